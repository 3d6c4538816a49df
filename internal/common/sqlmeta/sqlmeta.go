// Package sqlmeta statically inspects SQL text without executing it.
package sqlmeta

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"
)

var (
	ErrUnparseable = errors.New("sql could not be parsed")
	ErrNotReadOnly = errors.New("statement is not a read")
)

// Inspection is what a statement references.
type Inspection struct {
	Kind     string   // statement kind as reported by the parser, e.g. SELECT, INSERT
	ReadOnly bool     // SELECT or UNION without a locking clause
	Tables   []string // lower-cased, schema-qualified as schema.table, first-seen order
	Columns  []string // qualified as table.column when the query qualifies them
}

// Inspect parses one statement and collects tables and columns. Aliases
// are resolved to the tables they stand for and never reported as tables.
func Inspect(query string) (*Inspection, error) {
	stmt, err := sqlparser.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	ins := &Inspection{Kind: statementKind(stmt)}
	switch s := stmt.(type) {
	case *sqlparser.Select:
		ins.ReadOnly = s.Lock == ""
	case *sqlparser.Union:
		ins.ReadOnly = s.Lock == ""
	case *sqlparser.ParenSelect:
		ins.ReadOnly = true
	}

	aliases := map[string]string{}
	tables := newOrderedSet()

	// first pass: tables and aliases
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		ate, ok := node.(*sqlparser.AliasedTableExpr)
		if !ok {
			return true, nil
		}
		name, ok := ate.Expr.(sqlparser.TableName)
		if !ok {
			return true, nil
		}
		table := qualifiedName(name)
		tables.add(table)
		if !ate.As.IsEmpty() {
			aliases[strings.ToLower(ate.As.String())] = table
		}
		return true, nil
	}, stmt)

	columns := newOrderedSet()
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		switch n := node.(type) {
		case *sqlparser.ColName:
			col := n.Name.Lowered()
			if n.Qualifier.IsEmpty() {
				columns.add(col)
				return true, nil
			}
			columns.add(resolveQualifier(n.Qualifier, aliases) + "." + col)
		case *sqlparser.StarExpr:
			if n.TableName.IsEmpty() {
				columns.add("*")
			} else {
				columns.add(resolveQualifier(n.TableName, aliases) + ".*")
			}
		}
		return true, nil
	}, stmt)

	ins.Tables = tables.items
	ins.Columns = columns.items
	return ins, nil
}

// qualifiedName keeps the schema so otherdb.articles never reads as articles.
func qualifiedName(t sqlparser.TableName) string {
	name := strings.ToLower(t.Name.String())
	if t.Qualifier.IsEmpty() {
		return name
	}
	return strings.ToLower(t.Qualifier.String()) + "." + name
}

func resolveQualifier(q sqlparser.TableName, aliases map[string]string) string {
	if q.Qualifier.IsEmpty() {
		if table, ok := aliases[strings.ToLower(q.Name.String())]; ok {
			return table
		}
	}
	return qualifiedName(q)
}

func statementKind(stmt sqlparser.Statement) string {
	switch s := stmt.(type) {
	case *sqlparser.Select, *sqlparser.ParenSelect:
		return "SELECT"
	case *sqlparser.Union:
		return "UNION"
	case *sqlparser.Insert:
		return strings.ToUpper(s.Action)
	case *sqlparser.Update:
		return "UPDATE"
	case *sqlparser.Delete:
		return "DELETE"
	case *sqlparser.DDL:
		return strings.ToUpper(s.Action)
	case *sqlparser.DBDDL:
		return strings.ToUpper(s.Action) + " DATABASE"
	case *sqlparser.Set:
		return "SET"
	case *sqlparser.Show:
		return "SHOW"
	case *sqlparser.Use:
		return "USE"
	default:
		return "OTHER"
	}
}

type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]bool{}, items: []string{}}
}

func (s *orderedSet) add(v string) {
	if v == "" || s.seen[v] {
		return
	}
	s.seen[v] = true
	s.items = append(s.items, v)
}
