package migrations

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/maverick16108/atlas/internal/shared/config"
	"github.com/maverick16108/atlas/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// RunMigrations applies every pending migration from cfg.MigrationsPath.
func RunMigrations(cfg config.DatabaseConfig) error {
	log.Info("RunMigrations",
		zap.String("source", cfg.MigrationsPath),
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name))
	m, err := migrate.New(cfg.MigrationsPath, cfg.DSN())
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	version, dirty, err := m.Version()
	if err == nil {
		log.Info("Database schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	return nil
}
