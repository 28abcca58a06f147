package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/academy-bot/internal/config"
	"github.com/yourusername/academy-bot/internal/domain/entity"
	"github.com/yourusername/academy-bot/internal/domain/repository"
	"github.com/yourusername/academy-bot/internal/handler"
	"github.com/yourusername/academy-bot/internal/llm"
	"github.com/yourusername/academy-bot/internal/middleware"
	"github.com/yourusername/academy-bot/internal/pkg/logger"
	"github.com/yourusername/academy-bot/internal/repository/gormrepo"
	redisRepo "github.com/yourusername/academy-bot/internal/repository/redis"
	"github.com/yourusername/academy-bot/internal/service"
	"github.com/yourusername/academy-bot/internal/service/quizengine"
	"github.com/yourusername/academy-bot/internal/telegram"
	"github.com/yourusername/academy-bot/internal/wizard"
	"github.com/yourusername/academy-bot/pkg/database"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	appLog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Printf("Failed to init logger: %v", err)
		os.Exit(1)
	}
	defer appLog.Sync()

	if err := run(cfg, appLog); err != nil {
		appLog.Error("[Main] Бот остановлен с ошибкой", "error", err)
		appLog.Sync()
		os.Exit(1)
	}
	appLog.Info("[Main] Бот остановлен")
}

func run(cfg *config.Config, appLog *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbLogMode := cfg.Log.Mode
	if cfg.Telegram.Debug {
		dbLogMode = "debug"
	}
	db, err := database.NewDB(cfg.Database, dbLogMode)
	if err != nil {
		return err
	}
	if sqlDB, err := database.GetSQLDB(db); err == nil {
		defer sqlDB.Close()
	}
	if cfg.Database.Driver == "postgres" {
		if err := database.MigrateDB(db, cfg.Database.MigrationsPath, appLog); err != nil {
			return err
		}
	}
	appLog.Info("[Main] База данных готова", "driver", cfg.Database.Driver)

	var cacheRepo repository.CacheRepository = redisRepo.NewNoOpCache()
	if cfg.Redis.Enabled() {
		client, err := database.NewUniversalRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func(c redis.UniversalClient) { _ = c.Close() }(client)
		if cacheRepo, err = redisRepo.NewCacheRepo(client); err != nil {
			return err
		}
		appLog.Info("[Main] Подключен Redis", "mode", cfg.Redis.Mode)
	} else {
		appLog.Warn("[Main] Redis не настроен, кеш и счётчики работают в памяти процесса")
	}

	// Репозитории
	userRepo := gormrepo.NewUserRepo(db)
	materialRepo := gormrepo.NewMaterialRepo(db)
	questionRepo := gormrepo.NewQuestionRepo(db)
	progressRepo := gormrepo.NewProgressRepo(db)
	ratingRepo := gormrepo.NewRatingRepo(db)
	aiRepo := gormrepo.NewAIRepo(db)

	// Сервисы
	weights := entity.RatingWeights{
		Study:         cfg.Rating.StudyWeight,
		Percent:       cfg.Rating.PercentWeight,
		Pass:          cfg.Rating.PassWeight,
		PassThreshold: cfg.Quiz.PassThreshold,
	}
	ratingService := service.NewRatingService(userRepo, progressRepo, ratingRepo, cacheRepo, weights, appLog)
	userService := service.NewUserService(userRepo, ratingService, appLog)
	contentService := service.NewContentService(materialRepo, questionRepo, appLog)
	progressService := service.NewProgressService(progressRepo, materialRepo, userRepo, ratingRepo, ratingService, appLog)
	exportService := service.NewExportService(ratingRepo, progressRepo, userRepo, appLog)

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return err
	}
	if !llmClient.Configured() {
		appLog.Warn("[Main] Ключ LLM не задан, /ask будет отвечать ошибкой")
	}
	tutorService := service.NewTutorService(llmClient, aiRepo, userRepo, progressRepo, cacheRepo, cfg.LLM, appLog)

	engine := quizengine.NewEngine(questionRepo, progressService,
		quizengine.Config{PassThreshold: cfg.Quiz.PassThreshold}, appLog)

	// Начальный контент и пересчёт рейтинга после возможных ручных правок БД
	if n, err := contentService.SeedIfEmpty(ctx, cfg.Content.SeedPath); err != nil {
		appLog.Error("[Main] Не удалось загрузить начальный контент", "path", cfg.Content.SeedPath, "error", err)
	} else if n > 0 {
		appLog.Info("[Main] Загружен начальный контент", "materials", n)
	}
	if err := ratingService.RecomputeAll(ctx); err != nil {
		appLog.Error("[Main] Не удалось пересчитать рейтинг при старте", "error", err)
	}

	bot, err := telegram.NewBot(cfg.Telegram, telegram.Deps{
		Users:    userService,
		Content:  contentService,
		Progress: progressService,
		Rating:   ratingService,
		Tutor:    tutorService,
		Export:   exportService,
		Engine:   engine,
		Wizards:  wizard.NewStore(),
		Admins:   cfg.Admin,
	}, appLog)
	if err != nil {
		return err
	}
	if len(cfg.Admin.IDs) == 0 {
		appLog.Warn("[Main] Список администраторов пуст, админ-команды недоступны")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(gctx)
	})

	if cfg.HTTP.Enabled {
		router := handler.NewRouter(
			cfg.HTTP,
			handler.NewLeaderboardHandler(ratingService, appLog),
			middleware.NewRateLimiter(cacheRepo, appLog),
		)
		srv := &http.Server{
			Addr:         ":" + cfg.HTTP.Port,
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
		}
		g.Go(func() error {
			appLog.Info("[HTTP] Сервер запущен", "port", cfg.HTTP.Port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			appLog.Info("[HTTP] Остановка сервера")
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
