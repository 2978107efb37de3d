package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/types"
	"github.com/wellslab/s4m-api/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewPostgresService connects to the metadata store. DB_DRIVER=sqlite swaps
// in a file-backed SQLite database for local development; everything else
// uses Postgres.
func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	log.Info("Loading environment variables...")
	driver := utils.GetEnv("DB_DRIVER", "postgres", log)

	if driver == "sqlite" {
		dbPath := utils.GetEnv("DB_PATH", "s4m.db", log)
		log.Info("Connecting to SQLite...", "path", dbPath)
		db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
		})
		if err != nil {
			log.Error("Failed to connect to SQLite", "error", err)
			return nil, fmt.Errorf("Failed to connect to SQLite: %w", err)
		}
		return &PostgresService{db: db, log: serviceLog}, nil
	}

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "s4m", log)
	log.Debug("Environment variables loaded")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("Failed to connect to Postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("Failed to enable uuid-ossp extension: %w", err)
	}
	log.Info("uuid-ossp extension enabled")

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	err := s.db.AutoMigrate(
		&types.Dataset{},
		&types.Sample{},
		&types.User{},
	)
	if err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}

	if s.db.Dialector.Name() != "postgres" {
		s.log.Info("Skipping text search index setup on non-Postgres driver")
		return nil
	}

	s.log.Info("Configuring full text search columns...")
	if err := s.db.Exec(`
		ALTER TABLE "dataset"
		ADD COLUMN IF NOT EXISTS "search_tsv" tsvector
		GENERATED ALWAYS AS (to_tsvector('english',
			coalesce(name,'') || ' ' || coalesce(title,'') || ' ' || coalesce(authors,'') || ' ' ||
			coalesce(description,'') || ' ' || coalesce(accession,'') || ' ' || coalesce(platform,'')
		)) STORED
	`).Error; err != nil {
		return fmt.Errorf("Failed to add dataset search_tsv: %w", err)
	}
	if err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS "idx_dataset_search_tsv"
		ON "dataset" USING GIN ("search_tsv")
	`).Error; err != nil {
		return fmt.Errorf("Failed to index dataset search_tsv: %w", err)
	}
	if err := s.db.Exec(`
		ALTER TABLE "sample"
		ADD COLUMN IF NOT EXISTS "search_tsv" tsvector
		GENERATED ALWAYS AS (to_tsvector('english',
			coalesce(cell_type,'') || ' ' || coalesce(parental_cell_type,'') || ' ' ||
			coalesce(final_cell_type,'') || ' ' || coalesce(disease_state,'') || ' ' ||
			coalesce(sample_type,'') || ' ' || coalesce(tissue_of_origin,'') || ' ' ||
			coalesce(sample_name_long,'') || ' ' || coalesce(cell_line,'') || ' ' ||
			coalesce(sample_description,'') || ' ' || coalesce(treatment,'') || ' ' ||
			coalesce(sample_source,'') || ' ' || coalesce(developmental_stage,'')
		)) STORED
	`).Error; err != nil {
		return fmt.Errorf("Failed to add sample search_tsv: %w", err)
	}
	if err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS "idx_sample_search_tsv"
		ON "sample" USING GIN ("search_tsv")
	`).Error; err != nil {
		return fmt.Errorf("Failed to index sample search_tsv: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
