package mysql

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	driver "github.com/go-sql-driver/mysql"
)

// Config is the subset of connection settings the service exposes.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// DSN builds a go-sql-driver DSN. parseTime and UTC are required by the
// store; clientFoundRows makes no-op updates still count as matched.
func (c Config) DSN() string {
	cfg := driver.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	port := c.Port
	if port == 0 {
		port = 3306
	}
	cfg.Addr = c.Host + ":" + strconv.Itoa(port)
	cfg.DBName = c.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
