package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/arcana-labs/arcana-backend/internal/platform/envutil"
	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
	"github.com/arcana-labs/arcana-backend/internal/types"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := envutil.String("POSTGRES_HOST", "localhost")
	postgresPort := envutil.String("POSTGRES_PORT", "5432")
	postgresUser := envutil.String("POSTGRES_USER", "postgres")
	postgresPassword := envutil.String("POSTGRES_PASSWORD", "")
	postgresName := envutil.String("POSTGRES_NAME", "arcana")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := gormDB.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("enable uuid-ossp: %w", err)
	}

	return &PostgresService{db: gormDB, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.Theme{},
		&types.Card{},
		&types.CardTheme{},
		&types.Spread{},
		&types.UserTheme{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}
	if err := s.db.Exec(`
		ALTER TABLE "card_theme"
		ADD CONSTRAINT "fk_card_theme_card_id"
		FOREIGN KEY ("card_id")
		REFERENCES "card"("id")
		ON DELETE CASCADE
	`).Error; err != nil {
		s.log.Warn("fk_card_theme_card_id not added", "error", err)
	}
	if err := s.db.Exec(`
		ALTER TABLE "card_theme"
		ADD CONSTRAINT "fk_card_theme_theme_id"
		FOREIGN KEY ("theme_id")
		REFERENCES "theme"("id")
		ON DELETE CASCADE
	`).Error; err != nil {
		s.log.Warn("fk_card_theme_theme_id not added", "error", err)
	}
	if err := s.db.Exec(`
		ALTER TABLE "user_theme"
		ADD CONSTRAINT "fk_user_theme_theme_id"
		FOREIGN KEY ("theme_id")
		REFERENCES "theme"("id")
		ON DELETE CASCADE
	`).Error; err != nil {
		s.log.Warn("fk_user_theme_theme_id not added", "error", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
