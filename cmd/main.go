package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"medequip-backend/config"
	"medequip-backend/db/models"
	"medequip-backend/internal/bootstrap"
	"medequip-backend/middleware"
	"medequip-backend/seeds"
	"medequip-backend/token"
	"medequip-backend/utils"
	"medequip-backend/websocket"

	// imports
	importControllers "medequip-backend/imports/controllers"
	importRepositories "medequip-backend/imports/repositories"
	importRoutes "medequip-backend/imports/routes"
	imports "medequip-backend/imports/services"
	"medequip-backend/imports/tasks"

	// pm
	pmRepositories "medequip-backend/pm/repositories"
	pmServices "medequip-backend/pm/services"

	// bleve
	bleveControllers "medequip-backend/bleve/controllers"
	bleveRepositories "medequip-backend/bleve/repositories"
	bleveRoutes "medequip-backend/bleve/routes"
	bleveServices "medequip-backend/bleve/services"

	// users
	userControllers "medequip-backend/users/controllers"
	userRepositories "medequip-backend/users/repositories"
	userRoutes "medequip-backend/users/routes"
)

func main() {
	envErr := godotenv.Load(".env")

	// Initialize Zap logger
	config.InitLogger()
	defer config.Logger.Sync()
	if envErr != nil {
		config.Logger.Warn("No .env file loaded, using process environment", zap.Error(envErr))
	}

	if err := utils.InitializeDateLocation(); err != nil {
		config.Logger.Fatal("Failed to initialize date location", zap.Error(err))
	}

	settings := config.LoadImportSettings()
	ctx := context.Background()

	// Initialize database and redis
	db := config.ConfigureDatabase()
	redisClient := config.InitRedisServer(ctx)
	defer redisClient.Close()

	if config.GetEnv("RUN_SEEDS") == "true" {
		if err := seeds.SeedAll(db); err != nil {
			config.Logger.Error("Database seeding failed", zap.Error(err))
		}
	}

	tokenMaker, err := token.NewPasetoMaker(config.GetEnv("TOKEN_SYMMETRIC_KEY"), config.GetEnvList("TOKEN_RETIRED_KEYS")...)
	if err != nil {
		config.Logger.Fatal("Cannot create token maker", zap.Error(err))
	}
	appCtx := &middleware.AppContext{PasetoMaker: tokenMaker, Ctx: ctx, RedisClient: redisClient}

	// Initialize the mailer
	utils.InitializeMailer()
	if utils.GetMailer() == nil {
		config.Logger.Warn("Mailer not configured, upload reports will not be emailed")
	}

	// ------ Search ------
	indexPath := config.GetEnvOrDefault("BLEVE_INDEX_PATH", "./bleve_data")
	bleveIndexingService := bleveServices.NewIndexingService(config.Logger, indexPath, bleveRepositories.KeywordFields...)
	defer bleveIndexingService.Close()
	_, bleveRepo := bleveRepositories.NewBleveRepository(bleveIndexingService)
	searchCache := utils.NewQueryCache(redisClient, "search", config.GetEnvDuration("SEARCH_CACHE_TTL", 5*time.Minute))

	// ------ Import engines ------
	engineOpts := imports.OptionsFromSettings(settings)
	normalizer := imports.NewHeaderNormalizer()
	uploadLogRepo := importRepositories.NewUploadLogRepository(db)
	failedRows := &imports.FailedRowsReport{
		Dir:     settings.ReportsDir,
		BaseURL: settings.BaseURL,
		Write:   utils.GenerateExcel,
	}
	finalizers := imports.WithFinalizers(
		failedRows,
		&imports.UploadLogRecorder{Logs: uploadLogRepo},
		&imports.ReportMailer{Send: utils.SendEmail, Reports: failedRows},
	)

	pmStore := pmRepositories.NewPMRepository(db)
	registry := imports.NewRegistry()
	for _, cfg := range imports.AllEntityConfigs() {
		hooks := []imports.PostWriteHook{bleveRepositories.NewRecordIndexer(bleveRepo, cfg, searchCache)}
		if cfg.Slug == imports.EquipmentEntity {
			hooks = append([]imports.PostWriteHook{pmServices.NewScheduleGenerator(pmStore, settings.ChunkSize, utils.Today)}, hooks...)
		}
		store := importRepositories.NewRecordStoreRepository(db, cfg)
		registry.Register(imports.NewEngine(cfg, store, normalizer, engineOpts, imports.WithHooks(hooks...), finalizers))
	}

	if config.GetEnv("REINDEX_ON_START") == "true" {
		go func() {
			if err := bootstrap.IndexBleveData(ctx, db, registry, bleveRepo); err != nil {
				config.Logger.Error("Search reindex failed", zap.Error(err))
			}
		}()
	}

	// ------ WebSocket hub for background job progress ------
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// ------ Background imports ------
	jobStore := importRepositories.NewJobStore(redisClient, settings.JobTTL)
	locker := importRepositories.NewUploadLocker(redisClient, settings.LockTTL)
	staged := utils.NewLocalFileStorage(settings.TmpDir)

	asynqRedisOpt := asynq.RedisClientOpt{
		Addr:     config.GetEnvOrDefault("REDIS_ADDRESS", "localhost:6379"),
		Password: config.GetEnv("REDIS_PASSWORD"),
		DB:       0,
	}
	asynqClient := asynq.NewClient(asynqRedisOpt)
	defer asynqClient.Close()

	asynqServer := asynq.NewServer(asynqRedisOpt, asynq.Config{
		Concurrency: config.GetEnvInt("IMPORT_WORKERS", 2),
		Queues:      map[string]int{"imports": 1},
	})
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeImportProcess, tasks.NewImportProcessor(registry, jobStore, wsHub, staged, locker))
	if err := asynqServer.Start(mux); err != nil {
		config.Logger.Fatal("Failed to start import worker", zap.Error(err))
	}

	// ------ Nightly jobs ------
	scheduler, err := bootstrap.StartScheduler(bootstrap.SchedulerConfig{
		PMRefresher: pmServices.NewStatusRefresher(pmStore, 500, utils.Today),
		CleanupDirs: []string{settings.ReportsDir, settings.TmpDir},
		FileTTL:     config.GetEnvDuration("FILE_TTL", 24*time.Hour),
	})
	if err != nil {
		config.Logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// ------ HTTP ------
	app := fiber.New(fiber.Config{
		BodyLimit: int(settings.MaxUploadBytes) + 1024*1024,
	})
	middleware.InitCors(app)
	app.Static("/files", settings.ReportsDir)

	protected := middleware.ProtectedRoute(appCtx)

	userRoutes.InitRoutes(app, &userControllers.AuthController{
		UserRepo: userRepositories.NewUserRepository(db),
		App:      appCtx,
		Issuer:   config.GetEnvOrDefault("TOTP_ISSUER", "MedEquip"),
	})

	importController := &importControllers.ImportController{
		Registry:    registry,
		Locker:      locker,
		Jobs:        jobStore,
		UploadLogs:  uploadLogRepo,
		Queue:       asynqClient,
		Files:       staged,
		TaskTimeout: settings.LockTTL,
	}
	limiter := middleware.NewUploadRateLimiter(
		config.GetEnvDuration("UPLOAD_RATE_INTERVAL", 10*time.Second),
		config.GetEnvInt("UPLOAD_RATE_BURST", 3),
	)
	importRoutes.InitImportRoutes(app, importController,
		[]fiber.Handler{protected},
		middleware.RequireRole(string(models.AdminRole), string(models.OperatorRole)),
		limiter.Middleware(), middleware.UploadGuard(settings.MaxUploadBytes))

	bleveRoutes.InitBleveRoutes(app, bleveControllers.NewSearchController(bleveRepo, registry, searchCache), protected)

	wsHandler := websocket.NewWsHandler(wsHub, tokenMaker, jobStore)
	app.Get("/ws/imports/:jobID", wsHandler.HandleWebSocket)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		config.Logger.Info("Shutting down")
		<-scheduler.Stop().Done()
		asynqServer.Shutdown()
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			config.Logger.Error("HTTP shutdown failed", zap.Error(err))
		}
	}()

	port := config.GetEnvOrDefault("PORT", "8080")
	config.Logger.Info("Server starting", zap.String("port", port), zap.Strings("entities", registry.Entities()))
	if err := app.Listen(":" + port); err != nil {
		config.Logger.Fatal("Server failed", zap.String("port", port), zap.Error(err))
	}
}
