package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	migrateV4 "github.com/golang-migrate/migrate/v4"
	migratePostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yourusername/academy-bot/internal/config"
	"github.com/yourusername/academy-bot/internal/domain/entity"
	"github.com/yourusername/academy-bot/internal/pkg/logger"
)

// Models перечисляет сущности для AutoMigrate (SQLite и тесты)
var Models = []interface{}{
	&entity.User{},
	&entity.Material{},
	&entity.Question{},
	&entity.Answer{},
	&entity.StudyRecord{},
	&entity.TestResult{},
	&entity.Rating{},
	&entity.AIMessage{},
	&entity.AISummary{},
}

// NewDB открывает подключение согласно драйверу из конфигурации
func NewDB(cfg config.DatabaseConfig, logMode string) (*gorm.DB, error) {
	level := gormlogger.Warn
	if logMode == "debug" {
		level = gormlogger.Info
	}
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(level)}

	switch cfg.Driver {
	case "sqlite":
		return NewSQLiteDB(cfg.Path, gormCfg)
	default:
		return NewPostgresDB(cfg.PostgresConnectionString(), gormCfg)
	}
}

// NewPostgresDB создает новое подключение к PostgreSQL
func NewPostgresDB(dsn string, gormCfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(gormPostgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// NewSQLiteDB открывает файл SQLite и создает схему через AutoMigrate.
// Путь ":memory:" используется в тестах.
func NewSQLiteDB(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	if gormCfg == nil {
		gormCfg = &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	}
	dsn := path + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite не поддерживает параллельную запись, а in-memory база живёт в одном соединении
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("sqlite automigrate failed: %w", err)
	}
	return db, nil
}

// MigrateDB применяет SQL-миграции golang-migrate (только PostgreSQL)
func MigrateDB(db *gorm.DB, migrationsPath string, log *logger.Logger) error {
	log.Info("[Database] Запуск применения миграций", "path", migrationsPath)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("не удалось получить *sql.DB из *gorm.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("не удалось проверить подключение к БД перед миграцией: %w", err)
	}

	driver, err := migratePostgres.WithInstance(sqlDB, &migratePostgres.Config{})
	if err != nil {
		return fmt.Errorf("не удалось создать драйвер postgres для migrate: %w", err)
	}

	m, err := migrateV4.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("не удалось создать экземпляр migrate: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrateV4.ErrNoChange):
		log.Info("[Database] Изменений в миграциях не найдено, база данных уже актуальна")
	case err != nil:
		return fmt.Errorf("ошибка применения миграций 'up': %w", err)
	default:
		log.Info("[Database] Миграции успешно применены")
	}
	return nil
}

// GetSQLDB возвращает базовый *sql.DB из *gorm.DB
func GetSQLDB(gormDB *gorm.DB) (*sql.DB, error) {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB, nil
}
