package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// Connect establishes a database connection. Postgres DSNs (postgres:// prefix)
// use the postgres driver; anything else is treated as a SQLite path.
func Connect(dsn string, logLevel logger.LogLevel) error {
	var err error

	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		DB, err = gorm.Open(postgres.Open(dsn), cfg)
	} else {
		DB, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established")
	return nil
}

// AutoMigrate runs database migrations
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&Provider{},
		&Service{},
		&Tag{},
		&ServiceTag{},
		&Alert{},
		&ArchivedAlert{},
		&AlertHistoryEntry{},
		&Integration{},
		&View{},
		&CustomField{},
		&ServiceCustomField{},
		&AuditLog{},
		&SlackSettings{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// InitializeDefaults creates default records if they don't exist
func InitializeDefaults(db *gorm.DB) error {
	var count int64
	db.Model(&SlackSettings{}).Count(&count)
	if count == 0 {
		if err := db.Create(&SlackSettings{Enabled: false}).Error; err != nil {
			return fmt.Errorf("failed to create default slack settings: %w", err)
		}
		log.Println("Created default Slack settings (disabled)")
	}

	db.Model(&View{}).Count(&count)
	if count == 0 {
		defaultView := &View{
			Name:      "All Services",
			Filters:   JSONB{},
			IsDefault: true,
			CreatedBy: "system",
		}
		if err := db.Create(defaultView).Error; err != nil {
			return fmt.Errorf("failed to create default view: %w", err)
		}
		log.Println("Created default view")
	}

	return nil
}

// GetSlackSettings retrieves Slack settings from the database
func GetSlackSettings(db *gorm.DB) (*SlackSettings, error) {
	var settings SlackSettings
	if err := db.First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSlackSettings updates Slack settings in the database
func UpdateSlackSettings(db *gorm.DB, settings *SlackSettings) error {
	return db.Model(&SlackSettings{}).Where("id = ?", settings.ID).Updates(map[string]interface{}{
		"bot_token":      settings.BotToken,
		"alerts_channel": settings.AlertsChannel,
		"enabled":        settings.Enabled,
	}).Error
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// Close closes the database connection
func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
