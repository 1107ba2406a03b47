package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Options tunes the connection pool.  Zero values fall back to the defaults
// used in Open.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN builds the MySQL connection string.  parseTime=true maps DATETIME to
// time.Time and loc=UTC keeps stored timestamps consistent.  lockWait sets
// innodb_lock_wait_timeout, bounding how long a booking waits on a
// contended slot row; zero keeps the server default.
func DSN(user, pass, host, port, name string, lockWait time.Duration) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = host + ":" + port
	cfg.DBName = name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	// UPDATE reports matched rows so "no such id" is distinguishable from "no change".
	cfg.ClientFoundRows = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	if lockWait > 0 {
		cfg.Params["innodb_lock_wait_timeout"] = fmt.Sprintf("%d", int(lockWait.Seconds()))
	}
	return cfg.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(dsn string, opts Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	maxOpen, maxIdle, lifetime := 25, 25, 30*time.Minute
	if opts.MaxOpenConns > 0 {
		maxOpen = opts.MaxOpenConns
	}
	if opts.MaxIdleConns > 0 {
		maxIdle = opts.MaxIdleConns
	}
	if opts.ConnMaxLifetime > 0 {
		lifetime = opts.ConnMaxLifetime
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
