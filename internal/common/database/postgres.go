package database

import (
	"database/sql"
	"fmt"

	"product-analytics/internal/common/config"

	_ "github.com/lib/pq"
)

func NewPostgres(cfg config.PostgresConfig) (*SQLClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	configurePool(db, cfg.MaxConnections, cfg.MaxIdle)

	return &SQLClient{DB: db, Dialect: DialectPostgres}, nil
}
