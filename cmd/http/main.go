package main

import (
	"context"
	"errors"
	"imaging-demo-service/internal/app/config"
	"imaging-demo-service/internal/app/contracts"
	"imaging-demo-service/internal/app/delivery/http/controllers"
	"imaging-demo-service/internal/app/delivery/http/middlewares"
	"imaging-demo-service/internal/app/delivery/http/routers"
	"imaging-demo-service/internal/app/drivers/database"
	"imaging-demo-service/internal/app/drivers/logger"
	"imaging-demo-service/internal/app/drivers/messaging"
	"imaging-demo-service/internal/app/drivers/storage"
	"imaging-demo-service/internal/app/models"
	"imaging-demo-service/internal/app/services/core/patients"
	"imaging-demo-service/internal/app/services/core/studies"
	"imaging-demo-service/internal/app/services/dicom"
	imagingStudiesFhir "imaging-demo-service/internal/app/services/fhir_spark/imaging_studies"
	patientsFhir "imaging-demo-service/internal/app/services/fhir_spark/patients"
	"imaging-demo-service/internal/app/services/shared/downloadqueue"
	"imaging-demo-service/internal/app/services/shared/fetcher"
	"imaging-demo-service/internal/app/services/shared/locker"
	"imaging-demo-service/internal/app/services/shared/ratelimiter"
	"imaging-demo-service/internal/app/services/shared/redis"
	blobStorage "imaging-demo-service/internal/app/services/shared/storage"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Version and Tag are set at build time with -ldflags "-X main.Version=...".
var (
	Version = "develop"
	Tag     = "0.0.1-rc"
)

func main() {
	driverConfig := config.NewDriverConfig()
	internalConfig := config.NewInternalConfig()
	if err := internalConfig.Validate(); err != nil {
		log.Fatalf("Error validating config: %v", err)
	}

	location, err := time.LoadLocation(internalConfig.App.Timezone)
	if err != nil {
		log.Fatalf("Error loading location: %v", err)
	}
	time.Local = location

	zapLogger := logger.NewZapLogger(driverConfig, internalConfig)
	mongoDB := database.NewMongoDB(driverConfig)
	redisClient := database.NewRedisClient(driverConfig)
	rabbitMQ := messaging.NewRabbitMQ(driverConfig)
	minioClient := storage.NewMinio(driverConfig, internalConfig.Minio.BucketName)
	chiRouter := chi.NewRouter()

	bootstrap := &config.Bootstrap{
		Router:         chiRouter,
		MongoDB:        mongoDB,
		Redis:          redisClient,
		Minio:          minioClient,
		RabbitMQ:       rabbitMQ,
		Logger:         zapLogger,
		DriverConfig:   driverConfig,
		InternalConfig: internalConfig,
	}
	err = bootstrapingTheApp(bootstrap)
	if err != nil {
		log.Fatalf("Error bootstraping the app: %v", err)
	}

	server := &http.Server{
		Addr:    internalConfig.App.Port,
		Handler: chiRouter,
	}

	go func() {
		zapLogger.Info("Server listening",
			zap.String("address", server.Addr),
			zap.String("version", Version),
			zap.String("tag", Tag),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c

	log.Println("Waiting for pending requests that already received by server to be processed..")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Second*time.Duration(internalConfig.App.ShutdownTimeoutInSeconds),
	)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	if err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	err = bootstrap.Shutdown(shutdownCtx)
	if err != nil {
		log.Printf("Error while shutting down dependencies: %v", err)
	}

	log.Println("Server exiting")
}

func bootstrapingTheApp(bootstrap *config.Bootstrap) error {
	internalConfig := bootstrap.InternalConfig
	log := bootstrap.Logger

	// Redis
	redisRepository := redis.NewRedisRepository(bootstrap.Redis)
	lockerService := locker.NewLockService(redisRepository, log)
	resourceLimiter := ratelimiter.NewResourceLimiter(redisRepository, log)

	// Upstream HTTP
	upstreamLimiter := rate.NewLimiter(
		rate.Limit(internalConfig.App.UpstreamRequestsPerSecond),
		internalConfig.App.UpstreamRequestsBurst,
	)
	bearerFetcher := fetcher.NewBearerFetcher(&http.Client{}, upstreamLimiter, log)

	// FHIR
	patientFhirClient := patientsFhir.NewPatientFhirClient(internalConfig.FHIR.ClinicalBaseUrl, bearerFetcher, log)
	imagingStudyFhirClient := imagingStudiesFhir.NewImagingStudyFhirClient(internalConfig.FHIR.ImagingBaseUrl, bearerFetcher, log)

	// DICOM retrieval
	blobRegistry := blobStorage.NewMinioBlobRegistry(bootstrap.Minio, internalConfig.Minio.BucketName, log)
	multipartFetcher := dicom.NewMultipartFetcher(bearerFetcher, dicom.RetryPolicy{
		Delay:      time.Duration(internalConfig.Dicom.RetryDelayInMilliseconds) * time.Millisecond,
		MaxRetries: internalConfig.Dicom.MaxRetries,
	}, log)
	studyLoader := dicom.NewStudyLoader(
		multipartFetcher,
		dicom.NewDatasetDecoder(dicom.DecoderConfig{}),
		blobRegistry,
		dicom.LoaderConfig{
			DecodePolicy:      internalConfig.Dicom.DecodePolicy,
			DecodeConcurrency: internalConfig.Dicom.DecodeConcurrency,
			MaxPayloadSize:    internalConfig.Dicom.MaxPayloadSizeInMegabytes << 20,
		},
		log,
	)

	// Download queue
	downloadQueue, err := downloadqueue.NewService(
		bootstrap.RabbitMQ,
		log,
		internalConfig.App.DownloadWorkerPrefetchCount,
		time.Duration(internalConfig.Dicom.DownloadJobTTLInMinutes)*time.Minute,
	)
	if err != nil {
		return err
	}

	// Patient
	patientUsecase := patients.NewPatientUsecase(patientFhirClient, log)
	patientController := controllers.NewPatientController(log, patientUsecase)

	// Study
	studyManifestRepository := studies.NewStudyManifestMongoRepository(bootstrap.MongoDB, bootstrap.DriverConfig.MongoDB.DbName)
	studyUsecase := studies.NewStudyUsecase(
		imagingStudyFhirClient,
		studyManifestRepository,
		redisRepository,
		lockerService,
		downloadQueue,
		resourceLimiter,
		studyLoader,
		blobRegistry,
		internalConfig,
		log,
	)
	studyController := controllers.NewStudyController(log, studyUsecase)
	imageController := controllers.NewImageController(log, studyUsecase)

	startDownloadWorker(bootstrap, downloadQueue, studyUsecase.ProcessDownloadJob)

	middlewares := middlewares.NewMiddlewares(log, internalConfig)
	routers.SetupRoutes(bootstrap.Router, internalConfig, middlewares, patientController, studyController, imageController)
	return nil
}

// startDownloadWorker consumes prefetch jobs until shutdown.
func startDownloadWorker(bootstrap *config.Bootstrap, queue contracts.DownloadQueue, handler func(ctx context.Context, job *models.DownloadJob) error) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := queue.Consume(ctx, handler)
		if err != nil && !errors.Is(err, context.Canceled) {
			bootstrap.Logger.Error("Download worker stopped", zap.Error(err))
		}
	}()

	bootstrap.WorkerStop = func() {
		cancel()
		wg.Wait()
		if err := queue.Close(); err != nil {
			bootstrap.Logger.Warn("Error closing download queue", zap.Error(err))
		}
	}
}
