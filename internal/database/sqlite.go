package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/optcg-tracker/internal/models"
)

var DB *gorm.DB

// Initialize opens the process-wide database and runs schema and data migrations.
func Initialize(dbPath string, log *zap.SugaredLogger) error {
	db, err := Open(dbPath, log)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to the SQLite file at dbPath, migrates the schema and
// normalizes legacy rows.
func Open(dbPath string, log *zap.SugaredLogger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	// foreign keys stay off; item codes may reference cards missing from the catalog
	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	log.Infof("Database connected successfully (%s)", dbPath)

	err = db.AutoMigrate(
		&models.AppState{},
		&models.Collection{},
		&models.CollectionItem{},
		&models.PriceEntry{},
		&models.CollectionValueSnapshot{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	if err := RunMigrations(db, log); err != nil {
		return nil, fmt.Errorf("failed to run data migrations: %w", err)
	}

	log.Info("Database migration completed")
	return db, nil
}

func GetDB() *gorm.DB {
	return DB
}

// newGormLogger routes gorm warnings through zap. Lookups that miss are
// expected (404s, first run) and are not logged.
func newGormLogger(log *zap.SugaredLogger) logger.Interface {
	return logger.New(zap.NewStdLog(log.Desugar()), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
