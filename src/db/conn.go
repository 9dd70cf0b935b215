package db

import (
	"context"
	"time"

	"git.handmade.network/hmn/syllabus/src/config"
	"git.handmade.network/hmn/syllabus/src/logging"
	"git.handmade.network/hmn/syllabus/src/oops"
	"git.handmade.network/hmn/syllabus/src/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jpillora/backoff"
)

// Satisfied by *pgx.Conn, *pgxpool.Pool, and pgx.Tx. Begin on a transaction
// creates a savepoint.
type ConnOrTx interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// A single connection using the configured database. Not safe for concurrent
// use; meant for CLI commands.
func NewConn() *pgx.Conn {
	return NewConnWithConfig(config.PostgresConfig{})
}

// Zero fields of cfg fall back to the configured values.
func NewConnWithConfig(cfg config.PostgresConfig) *pgx.Conn {
	cfg = withDefaults(cfg)

	pgcfg, err := pgx.ParseConfig(cfg.DSN())
	if err != nil {
		panic(oops.New(err, "failed to parse database config"))
	}
	pgcfg.Tracer = newTracer(cfg.LogLevel)

	conn, err := pgx.ConnectConfig(context.Background(), pgcfg)
	if err != nil {
		panic(oops.New(err, "failed to connect to database"))
	}
	return conn
}

func NewConnPool() *pgxpool.Pool {
	return NewConnPoolWithConfig(config.PostgresConfig{})
}

func NewConnPoolWithConfig(cfg config.PostgresConfig) *pgxpool.Pool {
	cfg = withDefaults(cfg)

	pgcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		panic(oops.New(err, "failed to parse database config"))
	}
	pgcfg.MinConns = cfg.MinConn
	pgcfg.MaxConns = cfg.MaxConn
	pgcfg.ConnConfig.Tracer = newTracer(cfg.LogLevel)

	pool, err := pgxpool.NewWithConfig(context.Background(), pgcfg)
	if err != nil {
		panic(oops.New(err, "failed to create database connection pool"))
	}
	return pool
}

// Pings until the database answers or maxWait runs out. The database
// container may still be starting when the website does.
func WaitForConnection(ctx context.Context, pool *pgxpool.Pool, maxWait time.Duration) error {
	retry := backoff.Backoff{
		Min:    250 * time.Millisecond,
		Max:    10 * time.Second,
		Factor: 2,
	}
	deadline := time.Now().Add(maxWait)

	for err := pool.Ping(ctx); err != nil; err = pool.Ping(ctx) {
		if time.Now().After(deadline) {
			return oops.New(err, "database did not become available within %v", maxWait)
		}

		wait := retry.Duration()
		logging.Warn().Err(err).Dur("retrying after", wait).Msg("database is not available yet")
		if err := utils.SleepContext(ctx, wait); err != nil {
			return oops.New(err, "gave up waiting for database")
		}
	}
	return nil
}

func withDefaults(cfg config.PostgresConfig) config.PostgresConfig {
	def := config.Config.Postgres
	return config.PostgresConfig{
		User:     utils.OrDefault(cfg.User, def.User),
		Password: utils.OrDefault(cfg.Password, def.Password),
		Hostname: utils.OrDefault(cfg.Hostname, def.Hostname),
		Port:     utils.OrDefault(cfg.Port, def.Port),
		DbName:   utils.OrDefault(cfg.DbName, def.DbName),
		LogLevel: utils.OrDefault(cfg.LogLevel, def.LogLevel),
		MinConn:  utils.OrDefault(cfg.MinConn, def.MinConn),
		MaxConn:  utils.OrDefault(cfg.MaxConn, def.MaxConn),
	}
}
