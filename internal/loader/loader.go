// Package loader copies the parquet exports of the product tables into
// PostgreSQL in fixed-size chunks.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"product-analytics/internal/common/logger"
)

var ErrNoObjects = errors.New("no parquet objects under prefix")

// Object is an opened parquet object.
type Object interface {
	io.ReaderAt
	io.Closer
}

// ObjectStore lists and opens objects in the source bucket.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Open(ctx context.Context, key string) (Object, int64, error)
}

// Copier appends rows to a table.
type Copier interface {
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]interface{}) (int64, error)
}

type Config struct {
	Prefixes  map[string]string
	ChunkSize int
}

type Loader struct {
	config *Config
	store  ObjectStore
	copier Copier
	logger logger.Logger
}

func New(config *Config, store ObjectStore, copier Copier, log logger.Logger) *Loader {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 10_000
	}
	return &Loader{
		config: config,
		store:  store,
		copier: copier,
		logger: log.With(map[string]interface{}{"component": "data-loader"}),
	}
}

// TableResult summarizes one table load.
type TableResult struct {
	Table   string
	Objects int
	Rows    int64
	Chunks  int
}

// LoadTable appends every parquet object under the table's prefix.
func (l *Loader) LoadTable(ctx context.Context, table string) (*TableResult, error) {
	prefix, ok := l.config.Prefixes[table]
	if !ok {
		return nil, fmt.Errorf("no prefix configured for table %s", table)
	}

	keys, err := l.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	var parts []string
	for _, k := range keys {
		if strings.HasSuffix(k, ".parquet") {
			parts = append(parts, k)
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoObjects, prefix)
	}
	sort.Strings(parts)

	result := &TableResult{Table: table}
	for _, key := range parts {
		start := time.Now()
		rows, chunks, err := l.loadObject(ctx, table, key)
		result.Rows += rows
		result.Chunks += chunks
		if err != nil {
			return result, fmt.Errorf("load %s: %w", key, err)
		}
		result.Objects++
		l.logger.Info("Object loaded", map[string]interface{}{
			"table":      table,
			"key":        key,
			"rows":       rows,
			"durationMs": time.Since(start).Milliseconds(),
		})
	}
	return result, nil
}

func (l *Loader) loadObject(ctx context.Context, table, key string) (int64, int, error) {
	obj, size, err := l.store.Open(ctx, key)
	if err != nil {
		return 0, 0, err
	}
	defer obj.Close()

	file, err := parquet.OpenFile(obj, size)
	if err != nil {
		return 0, 0, fmt.Errorf("open parquet: %w", err)
	}

	columns, converters, err := flatColumns(file.Schema())
	if err != nil {
		return 0, 0, err
	}

	var (
		total  int64
		chunks int
		batch  = make([][]interface{}, 0, l.config.ChunkSize)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := l.copier.CopyFrom(ctx, table, columns, batch)
		if err != nil {
			return err
		}
		total += n
		chunks++
		batch = make([][]interface{}, 0, l.config.ChunkSize)
		return nil
	}

	buf := make([]parquet.Row, 512)
	for _, rg := range file.RowGroups() {
		rows := rg.Rows()
		for {
			n, readErr := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				batch = append(batch, convertRow(row, converters))
				if len(batch) == l.config.ChunkSize {
					if err := flush(); err != nil {
						_ = rows.Close()
						return total, chunks, err
					}
				}
			}
			if readErr == io.EOF {
				break
			}
			if readErr != nil {
				_ = rows.Close()
				return total, chunks, fmt.Errorf("read rows: %w", readErr)
			}
		}
		_ = rows.Close()

		if err := ctx.Err(); err != nil {
			return total, chunks, err
		}
	}

	if err := flush(); err != nil {
		return total, chunks, err
	}
	return total, chunks, nil
}

type converter func(parquet.Value) interface{}

// flatColumns returns the leaf column names in column index order. Nested
// schemas are rejected since the target tables are flat.
func flatColumns(schema *parquet.Schema) ([]string, []converter, error) {
	paths := schema.Columns()
	columns := make([]string, len(paths))
	converters := make([]converter, len(paths))
	for i, path := range paths {
		if len(path) != 1 {
			return nil, nil, fmt.Errorf("nested column %s not supported", strings.Join(path, "."))
		}
		columns[i] = path[0]
		leaf, ok := schema.Lookup(path...)
		if !ok {
			return nil, nil, fmt.Errorf("column %s missing from schema", path[0])
		}
		converters[i] = converterFor(leaf.Node.Type().LogicalType())
	}
	return columns, converters, nil
}

func converterFor(lt *format.LogicalType) converter {
	switch {
	case lt != nil && lt.Date != nil:
		return func(v parquet.Value) interface{} {
			return time.Unix(int64(v.Int32())*86400, 0).UTC()
		}
	case lt != nil && lt.Timestamp != nil:
		unit := lt.Timestamp.Unit
		return func(v parquet.Value) interface{} {
			n := v.Int64()
			switch {
			case unit.Millis != nil:
				return time.UnixMilli(n).UTC()
			case unit.Micros != nil:
				return time.UnixMicro(n).UTC()
			default:
				return time.Unix(0, n).UTC()
			}
		}
	default:
		return plainValue
	}
}

func plainValue(v parquet.Value) interface{} {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

func convertRow(row parquet.Row, converters []converter) []interface{} {
	out := make([]interface{}, len(converters))
	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= len(out) || v.IsNull() {
			continue
		}
		out[col] = converters[col](v)
	}
	return out
}
