package loader

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// PgxCopier appends rows with the COPY protocol.
type PgxCopier struct {
	conn *pgx.Conn
}

func NewPgxCopier(ctx context.Context, dsn string) (*PgxCopier, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &PgxCopier{conn: conn}, nil
}

func (c *PgxCopier) CopyFrom(ctx context.Context, table string, columns []string, rows [][]interface{}) (int64, error) {
	return c.conn.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}

func (c *PgxCopier) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}
