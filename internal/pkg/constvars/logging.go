package constvars

const (
	LoggingRequestIDKey       = "request_id"
	LoggingMethodKey          = "method"
	LoggingEndpointKey        = "endpoint"
	LoggingRemoteAddrKey      = "remote_addr"
	LoggingUserAgentKey       = "user_agent"
	LoggingQueryKey           = "query"
	LoggingStatusCodeKey      = "status_code"
	LoggingDurationKey        = "duration"
	LoggingSuccessKey         = "success"
	LoggingErrorTypeKey       = "error_type"
	LoggingPatientIDKey       = "patient_id"
	LoggingStudyIDKey         = "study_id"
	LoggingSeriesIDKey        = "series_id"
	LoggingSeriesIndexKey     = "series_index"
	LoggingImageIDKey         = "image_id"
	LoggingURIKey             = "uri"
	LoggingAttemptKey         = "attempt"
	LoggingPartIndexKey       = "part_index"
	LoggingPartsCountKey      = "parts_count"
	LoggingSeriesCountKey     = "series_count"
	LoggingBoundaryKey        = "boundary"
	LoggingPayloadSizeKey     = "payload_size"
	LoggingRedisKey           = "redis_key"
	LoggingLockValueKey       = "lock_value"
	LoggingLockExpirationKey  = "lock_expiration"
	LoggingLockStoredValueKey = "lock_stored_value"
	LoggingQueueNameKey       = "queue_name"
	LoggingBucketNameKey      = "bucket_name"
	LoggingObjectNameKey      = "object_name"
	LoggingStudyStateKey      = "study_state"
	LoggingCacheHitKey        = "cache_hit"
	LoggingStudiesCountKey    = "studies_count"
	LoggingEnqueuedAtKey      = "enqueued_at"
)
