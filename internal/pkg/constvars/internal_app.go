package constvars

type ContextKey string

const (
	CONTEXT_REQUEST_ID_KEY           ContextKey = "request_id"
	CONTEXT_IS_CLIENT_REQUEST_ID_KEY ContextKey = "is_client_request_id"
	CONTEXT_BEARER_TOKEN_KEY         ContextKey = "bearer_token"
)

const (
	URLParamPatientID   = "patientID"
	URLParamStudyID     = "studyID"
	URLParamSeriesIndex = "seriesIndex"
	URLParamImageID     = "imageID"
)

const (
	AppEnvDevelopment = "development"
	AppEnvProduction  = "production"
)

const (
	MongoCollectionStudyManifests = "study_manifests"
)

const (
	RedisKeyImagingStudiesFormat    = "imaging_studies:%s:%s"
	RedisKeyStudyStateFormat        = "study_state:%s"
	RedisKeyStudyDownloadLockFormat = "study_download_lock:%s"
	RateLimiterGroupPrefetch        = "prefetch"
)

const (
	RabbitMQStudyDownloadQueue    = "study_download_queue"
	RabbitMQStudyDownloadDLQQueue = "study_download_dlq"
)
