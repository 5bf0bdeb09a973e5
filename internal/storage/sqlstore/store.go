// Package sqlstore implements the domain repositories on a relational
// database. MySQL, Postgres and SQLite are supported through GORM; Postgres
// connections go through a pgx pool with decimal codecs registered.
package sqlstore

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is an open database handle shared by all repositories.
type Store struct {
	db     *gorm.DB
	pool   *pgxpool.Pool
	driver Driver
}

// Open connects to the database described by cfg.
func Open(ctx context.Context, cfg Config, lg *zap.Logger) (*Store, error) {
	if lg == nil {
		lg = zap.NewNop()
	}
	driver, err := cfg.ResolveDriver()
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		Logger: logger.New(zap.NewStdLog(lg.Named("gorm")), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	s := &Store{driver: driver}
	switch driver {
	case DriverPostgres:
		s.pool, err = newPool(ctx, cfg.DSN(driver), cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		s.db, err = gorm.Open(postgres.New(postgres.Config{
			Conn: stdlib.OpenDBFromPool(s.pool),
		}), gormCfg)
	case DriverSQLite:
		s.db, err = gorm.Open(sqlite.Open(cfg.DSN(driver)), gormCfg)
	default:
		s.db, err = gorm.Open(mysql.Open(cfg.DSN(driver)), gormCfg)
	}
	if err != nil {
		s.Close()
		return nil, errors.Wrapf(err, "open %s", driver)
	}

	if driver != DriverPostgres {
		sqlDB, err := s.db.DB()
		if err != nil {
			s.Close()
			return nil, errors.Wrap(err, "get sql db")
		}
		switch {
		case driver == DriverSQLite:
			// Single writer; also keeps ":memory:" databases on one connection.
			sqlDB.SetMaxOpenConns(1)
		case cfg.MaxConns > 0:
			sqlDB.SetMaxOpenConns(int(cfg.MaxConns))
		}
	}

	lg.Info("Database opened", zap.String("driver", string(driver)), zap.String("host", cfg.Host))
	return s, nil
}

// newPool creates a pgx pool with shopspring decimal codecs registered on
// every connection.
func newPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}
	return pool, nil
}

// Driver returns the resolved backend.
func (s *Store) Driver() Driver { return s.driver }

// Migrate creates missing tables, columns and indexes. Nothing is dropped.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(allModels...); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "get sql db")
	}
	return sqlDB.PingContext(ctx)
}

// Close releases all connections.
func (s *Store) Close() {
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// notFound maps gorm.ErrRecordNotFound to target.
func notFound(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
