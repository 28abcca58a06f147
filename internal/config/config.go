package config

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Log      LogConfig
	Telegram TelegramConfig
	Database DatabaseConfig
	Redis    RedisConfig
	LLM      LLMConfig
	Admin    AdminConfig
	Quiz     QuizConfig
	Rating   RatingConfig
	HTTP     HTTPConfig
	Content  ContentConfig
}

// LogConfig содержит настройки логирования
type LogConfig struct {
	// Mode: "development" (по умолчанию) или "production"
	Mode string `mapstructure:"mode"`
}

// TelegramConfig содержит настройки подключения к Bot API
type TelegramConfig struct {
	Token       string `mapstructure:"token"`
	Debug       bool   `mapstructure:"debug"`
	PollTimeout int    `mapstructure:"poll_timeout"` // секунды long polling
}

// DatabaseConfig содержит настройки подключения к БД.
// Driver: "postgres" (по умолчанию) или "sqlite" (локальная разработка, файл Path).
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
	// MigrationsPath: каталог SQL-миграций golang-migrate (только для postgres)
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig содержит настройки подключения к Redis.
// Redis необязателен: при пустом Addr/Addrs используется кеш-заглушка.
type RedisConfig struct {
	Mode       string   `mapstructure:"mode"`
	Addrs      []string `mapstructure:"addrs"`
	Addr       string   `mapstructure:"addr"`
	Password   string   `mapstructure:"password"`
	DB         int      `mapstructure:"db"`
	MasterName string   `mapstructure:"master_name"`
	MaxRetries int      `mapstructure:"max_retries"`
}

// Enabled сообщает, сконфигурирован ли Redis
func (r RedisConfig) Enabled() bool {
	return r.Addr != "" || len(r.Addrs) > 0
}

// LLMConfig содержит настройки OpenRouter-совместимого API
type LLMConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	SummaryTimeout   time.Duration `mapstructure:"summary_timeout"`
	HistoryLimit     int           `mapstructure:"history_limit"`     // сколько последних реплик подмешивать в запрос
	SummaryWindow    int           `mapstructure:"summary_window"`    // сколько последних реплик отдавать на summary
	SummaryThreshold int           `mapstructure:"summary_threshold"` // минимум реплик в окне для пересчёта summary
	AsksPerMinute    int           `mapstructure:"asks_per_minute"`   // лимит /ask на пользователя
}

// AdminConfig содержит статический список администраторов (Telegram ID)
type AdminConfig struct {
	IDs []int64 `mapstructure:"-"`
}

// IsAdmin проверяет, входит ли пользователь в список администраторов.
// Пустой список означает, что администраторов нет.
func (a AdminConfig) IsAdmin(userID int64) bool {
	for _, id := range a.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// QuizConfig содержит настройки тестов
type QuizConfig struct {
	PassThreshold float64 `mapstructure:"pass_threshold"`
}

// RatingConfig содержит веса формулы рейтинга. Все веса неотрицательные.
type RatingConfig struct {
	StudyWeight   float64 `mapstructure:"study_weight"`
	PercentWeight float64 `mapstructure:"percent_weight"`
	PassWeight    float64 `mapstructure:"pass_weight"`
}

// HTTPConfig содержит настройки служебного HTTP API (healthz, лидерборд)
type HTTPConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Port         string   `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`
	WriteTimeout int      `mapstructure:"write_timeout"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// ContentConfig содержит настройки начального контента
type ContentConfig struct {
	SeedPath string `mapstructure:"seed_path"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL формирует URL подключения для golang-migrate/lib/pq
func (d *DatabaseConfig) PostgresURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("log.mode", "development")
	vip.SetDefault("telegram.poll_timeout", 60)
	vip.SetDefault("database.driver", "postgres")
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.path", "academy.db")
	vip.SetDefault("database.migrations_path", "migrations")
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	vip.SetDefault("llm.model", "openai/gpt-4o-mini")
	vip.SetDefault("llm.timeout", 30*time.Second)
	vip.SetDefault("llm.summary_timeout", 20*time.Second)
	vip.SetDefault("llm.history_limit", 6)
	vip.SetDefault("llm.summary_window", 12)
	vip.SetDefault("llm.summary_threshold", 8)
	vip.SetDefault("llm.asks_per_minute", 10)
	vip.SetDefault("quiz.pass_threshold", 60.0)
	vip.SetDefault("rating.study_weight", 10.0)
	vip.SetDefault("rating.percent_weight", 0.1)
	vip.SetDefault("rating.pass_weight", 5.0)
	vip.SetDefault("http.enabled", true)
	vip.SetDefault("http.port", "8080")
	vip.SetDefault("http.read_timeout", 10)
	vip.SetDefault("http.write_timeout", 10)
	vip.SetDefault("content.seed_path", "content/seed.yaml")
}

// Load загружает конфигурацию: .env → переменные окружения → YAML-файл → значения по умолчанию
func Load(configPath string) (*Config, error) {
	// .env необязателен, существующие переменные окружения не перезаписываются
	if err := godotenv.Load(); err != nil {
		log.Printf("Файл .env не загружен: %v", err)
	}

	vip := viper.New()
	setDefaults(vip)

	vip.BindEnv("log.mode", "LOG_MODE")

	vip.BindEnv("telegram.token", "TELEGRAM_BOT_TOKEN", "BOT_TOKEN")
	vip.BindEnv("telegram.debug", "TELEGRAM_DEBUG")

	vip.BindEnv("database.driver", "DATABASE_DRIVER")
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.path", "DATABASE_PATH")
	vip.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("llm.base_url", "LLM_BASE_URL")
	vip.BindEnv("llm.api_key", "OPENROUTER_API_KEY", "LLM_API_KEY")
	vip.BindEnv("llm.model", "LLM_MODEL")

	vip.BindEnv("admin.ids", "ADMIN_IDS")
	vip.BindEnv("quiz.pass_threshold", "QUIZ_PASS_THRESHOLD")
	vip.BindEnv("http.enabled", "HTTP_ENABLED")
	vip.BindEnv("http.port", "HTTP_PORT")
	vip.BindEnv("content.seed_path", "CONTENT_SEED_PATH")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ids, err := parseAdminIDs(vip.GetStringSlice("admin.ids"))
	if err != nil {
		return nil, err
	}
	cfg.Admin.IDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	token := strings.TrimSpace(c.Telegram.Token)
	if token == "" || strings.Contains(token, "PASTE_YOUR_TOKEN_HERE") {
		return fmt.Errorf("telegram token is required (check TELEGRAM_BOT_TOKEN or BOT_TOKEN env vars)")
	}
	c.Telegram.Token = token

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
			return fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite driver (check DATABASE_PATH env var)")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Quiz.PassThreshold < 0 || c.Quiz.PassThreshold > 100 {
		return fmt.Errorf("quiz pass threshold must be within [0, 100], got %v", c.Quiz.PassThreshold)
	}
	if c.Rating.StudyWeight < 0 || c.Rating.PercentWeight < 0 || c.Rating.PassWeight < 0 {
		return fmt.Errorf("rating weights must be non-negative")
	}
	return nil
}

// parseAdminIDs принимает как YAML-список, так и строку "1,2,3" из ADMIN_IDS
func parseAdminIDs(raw []string) ([]int64, error) {
	var ids []int64
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid admin id %q: %w", part, err)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
