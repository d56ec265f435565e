package archive

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"circuitflow/internal/config"
)

// buildMySQLDSN builds user:password@tcp(host:port)/db?parseTime=true.
func buildMySQLDSN(cfg config.ArchiveConfig, password string) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.Username, password, cfg.Host, port, cfg.Database,
	)
	if cfg.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

// buildPostgresDSN builds a lib/pq key=value connection string.
func buildPostgresDSN(cfg config.ArchiveConfig, password string) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, port, cfg.Username, password, cfg.Database, sslMode,
	)
}

// buildSQLiteDSN opens the file named by Database (or URI) in WAL mode.
func buildSQLiteDSN(cfg config.ArchiveConfig) string {
	path := cfg.Database
	if path == "" {
		path = cfg.URI
	}
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}
