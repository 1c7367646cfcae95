package config

import (
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/utils"

	"github.com/joho/godotenv"
)

func init() {
	godotenv.Load()
}

func NewDriverConfig() *DriverConfig {
	return &DriverConfig{
		MongoDB: MongoDB{
			Port:     utils.GetEnvString("MONGODB_PORT", "27017"),
			Host:     utils.GetEnvString("MONGODB_HOST", "localhost"),
			DbName:   utils.GetEnvString("MONGODB_DB_NAME", "imaging"),
			Username: utils.GetEnvString("MONGODB_USERNAME", "defaultUsername"),
			Password: utils.GetEnvString("MONGODB_PASSWORD", "defaultPassword"),
		},
		Redis: Redis{
			Host:     utils.GetEnvString("REDIS_HOST", "localhost"),
			Port:     utils.GetEnvString("REDIS_PORT", "6379"),
			Password: utils.GetEnvString("REDIS_PASSWORD", ""),
		},
		Logger: Logger{
			Level:               utils.GetEnvString("LOGGER_LEVEL", "debug"),
			OutputFileName:      utils.GetEnvString("LOGGER_OUTPUT_FILENAME", "logger.log"),
			OutputErrorFileName: utils.GetEnvString("LOGGER_OUTPUT_ERROR_FILENAME", "logger_error.log"),
		},
		RabbitMQ: RabbitMQ{
			Port:     utils.GetEnvString("RABBITMQ_PORT", "5672"),
			Host:     utils.GetEnvString("RABBITMQ_HOST", "localhost"),
			Username: utils.GetEnvString("RABBITMQ_USERNAME", "guest"),
			Password: utils.GetEnvString("RABBITMQ_PASSWORD", "guest"),
		},
		Minio: Minio{
			Port:     utils.GetEnvString("MINIO_PORT", "9000"),
			Host:     utils.GetEnvString("MINIO_HOST", "localhost"),
			Username: utils.GetEnvString("MINIO_USERNAME", "minioadmin"),
			Password: utils.GetEnvString("MINIO_PASSWORD", "minioadmin"),
			UseSSL:   utils.GetEnvBool("MINIO_USE_SSL", false),
		},
	}
}

func NewInternalConfig() *InternalConfig {
	return &InternalConfig{
		App: App{
			Env:                         utils.GetEnvString("APP_ENV", constvars.AppEnvDevelopment),
			Port:                        utils.GetEnvString("APP_PORT", ":8080"),
			Version:                     utils.GetEnvString("APP_VERSION", "v1"),
			Timezone:                    utils.GetEnvString("APP_TIMEZONE", "UTC"),
			EndpointPrefix:              utils.GetEnvString("APP_ENDPOINT_PREFIX", "api"),
			MaxRequests:                 utils.GetEnvInt("APP_MAX_REQUEST", 20),
			ShutdownTimeoutInSeconds:    utils.GetEnvInt("APP_SHUTDOWN_TIMEOUT", 10),
			RequestTimeoutInSeconds:     utils.GetEnvInt("APP_REQUEST_TIMEOUT_IN_SECONDS", 30),
			UpstreamRequestsPerSecond:   utils.GetEnvInt("APP_UPSTREAM_REQUESTS_PER_SECOND", 10),
			UpstreamRequestsBurst:       utils.GetEnvInt("APP_UPSTREAM_REQUESTS_BURST", 5),
			DownloadWorkerPrefetchCount: utils.GetEnvInt("APP_DOWNLOAD_WORKER_PREFETCH_COUNT", 1),
		},
		FHIR: FHIR{
			ClinicalBaseUrl: utils.GetEnvString("FHIR_CLINICAL_BASE_URL", "http://localhost:9090/fhir"),
			ImagingBaseUrl:  utils.GetEnvString("FHIR_IMAGING_BASE_URL", "http://localhost:9091/fhir"),
		},
		Dicom: Dicom{
			RetryDelayInMilliseconds:  utils.GetEnvInt("DICOM_RETRY_DELAY_MS", 1000),
			MaxRetries:                utils.GetEnvInt("DICOM_MAX_RETRIES", 10),
			DownloadTimeoutInSeconds:  utils.GetEnvInt("DICOM_DOWNLOAD_TIMEOUT_SECONDS", 120),
			DecodeConcurrency:         utils.GetEnvInt("DICOM_DECODE_CONCURRENCY", 4),
			DecodePolicy:              utils.GetEnvString("DICOM_DECODE_POLICY", constvars.DicomDecodePolicyStrict),
			DownloadLockTTLInSeconds:  utils.GetEnvInt("DICOM_DOWNLOAD_LOCK_TTL_SECONDS", 180),
			StudyStateTTLInMinutes:    utils.GetEnvInt("DICOM_STUDY_STATE_TTL_MINUTES", 60),
			PrefetchQuotaPerMinute:    utils.GetEnvInt("DICOM_PREFETCH_QUOTA_PER_MINUTE", 30),
			DownloadJobTTLInMinutes:   utils.GetEnvInt("DICOM_DOWNLOAD_JOB_TTL_MINUTES", 15),
			MaxPayloadSizeInMegabytes: utils.GetEnvInt64("DICOM_MAX_PAYLOAD_SIZE_MB", 1024),
		},
		Minio: AppMinio{
			BucketName: utils.GetEnvString("MINIO_BUCKET_NAME", "dicom-instances"),
		},
		Cache: Cache{
			ImagingStudiesTTLInSeconds: utils.GetEnvInt("CACHE_IMAGING_STUDIES_TTL_SECONDS", 60),
		},
	}
}
