package database

import (
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"product-analytics/internal/common/config"

	"github.com/go-sql-driver/mysql"
)

// MySQLDSN builds the driver DSN; TLS is "true", "skip-verify" or empty.
func MySQLDSN(cfg config.MySQLConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	if cfg.TLS != "" {
		mc.TLSConfig = cfg.TLS
	}
	return mc.FormatDSN()
}

func NewMySQL(cfg config.MySQLConfig) (*SQLClient, error) {
	db, err := sql.Open("mysql", MySQLDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	configurePool(db, cfg.MaxConnections, cfg.MaxIdle)

	return &SQLClient{DB: db, Dialect: DialectMySQL}, nil
}
