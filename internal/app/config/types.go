package config

type (
	InternalConfig struct {
		App   App
		FHIR  FHIR
		Dicom Dicom
		Minio AppMinio
		Cache Cache
	}

	DriverConfig struct {
		MongoDB  MongoDB
		Redis    Redis
		Logger   Logger
		RabbitMQ RabbitMQ
		Minio    Minio
	}

	App struct {
		Env                         string `validate:"required,oneof=development staging production"`
		Port                        string `validate:"required"`
		Version                     string `validate:"required"`
		Timezone                    string `validate:"required"`
		EndpointPrefix              string `validate:"required"`
		MaxRequests                 int    `validate:"gt=0"`
		ShutdownTimeoutInSeconds    int    `validate:"gte=0"`
		RequestTimeoutInSeconds     int    `validate:"gt=0"`
		UpstreamRequestsPerSecond   int    `validate:"gt=0"`
		UpstreamRequestsBurst       int    `validate:"gt=0"`
		DownloadWorkerPrefetchCount int    `validate:"gt=0"`
	}

	FHIR struct {
		ClinicalBaseUrl string `validate:"required,url"`
		ImagingBaseUrl  string `validate:"required,url"`
	}

	// Dicom holds the WADO-RS retrieval tunables.
	Dicom struct {
		RetryDelayInMilliseconds  int    `validate:"gt=0"`
		MaxRetries                int    `validate:"gte=0"`
		DownloadTimeoutInSeconds  int    `validate:"gt=0"`
		DecodeConcurrency         int    `validate:"gt=0"`
		DecodePolicy              string `validate:"required,oneof=strict lenient"`
		DownloadLockTTLInSeconds  int    `validate:"gt=0"`
		StudyStateTTLInMinutes    int    `validate:"gt=0"`
		PrefetchQuotaPerMinute    int    `validate:"gte=0"`
		DownloadJobTTLInMinutes   int    `validate:"gt=0"`
		MaxPayloadSizeInMegabytes int64  `validate:"gt=0"`
	}

	AppMinio struct {
		BucketName string `validate:"required"`
	}

	Cache struct {
		ImagingStudiesTTLInSeconds int `validate:"gte=0"`
	}

	MongoDB struct {
		Port     string
		Host     string
		DbName   string
		Username string
		Password string
	}
	Redis struct {
		Host     string
		Port     string
		Password string
	}
	Logger struct {
		Level               string
		OutputFileName      string
		OutputErrorFileName string
	}
	RabbitMQ struct {
		Port     string
		Host     string
		Username string
		Password string
	}
	Minio struct {
		Port     string
		Host     string
		Username string
		Password string
		UseSSL   bool
	}
)
