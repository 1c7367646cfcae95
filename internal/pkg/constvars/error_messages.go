package constvars

// Validation messages mapper
var CustomValidationErrorMessages = map[string]string{
	"required": "is required",
	"min":      "must be at least %s",
	"max":      "must be at most %s",
	"gt":       "must be greater than %s",
	"gte":      "must be greater than or equal to %s",
	"oneof":    "must be one of [%s]",
	"url":      "must be a valid URL",
}

// Tags that require parameter substitution
var TagsWithParams = map[string]bool{
	"min":   true,
	"max":   true,
	"gt":    true,
	"gte":   true,
	"oneof": true,
}

// Error messages for clients
const (
	ErrClientSomethingWrongWithApplication = "something wrong with the application, please try again later"
	ErrClientCannotProcessRequest          = "cannot process your request"
	ErrClientNotAuthorized                 = "you are not authorized to access this resource"
	ErrClientTokenExpired                  = "your session has expired, please sign in again"
	ErrClientServerLongRespond             = "the imaging server is taking too long to respond, please retry"
	ErrClientImagingServerUnavailable      = "the imaging server could not provide this study, please retry"
	ErrClientMalformedImagingPayload       = "the imaging server returned a study that could not be read"
	ErrClientStudyNotFound                 = "study not found"
	ErrClientSeriesNotFound                = "series not found"
	ErrClientImageNotFound                 = "image not found"
	ErrClientPatientNotFound               = "patient not found"
	ErrClientStudyNotDownloaded            = "study has not been downloaded yet"
	ErrClientStudyDownloadInProgress       = "study download is already in progress"
	ErrClientTooManyPrefetches             = "too many study downloads requested, retry in %d seconds"
)

// Error messages for developers
const (
	ErrDevSomethingWrongWithApplication = "unexpected application error"
	ErrDevURLParamValidationFailed      = "failed to validate url param %s"
	ErrDevValidationFailed              = "validation failed"
	ErrDevMissingRequestID              = "request id missing from context"
	ErrDevAuthTokenMissing              = "bearer token missing"
	ErrDevAuthTokenExpired              = "bearer token expired"
	ErrDevAuthTokenMalformed            = "bearer token malformed"
	ErrDevCannotMarshalJSON             = "failed to marshal JSON"
	ErrDevCannotParseJSON               = "failed to parse JSON"
	ErrDevCreateHTTPRequest             = "failed to create HTTP request"
	ErrDevSendHTTPRequest               = "failed to send HTTP request"
	ErrDevReadResponseBody              = "failed to read response body"
	ErrDevDecodeResponse                = "failed to decode %s response"
	ErrDevFetchFHIRResource             = "failed to fetch FHIR %s resource"
	ErrDevFHIRResourceNotFound          = "FHIR %s resource not found"
	ErrDevServerDeadlineExceeded        = "deadline exceeded while waiting for imaging server"
	ErrDevDicomMalformedPayload         = "malformed DICOM multipart payload"
	ErrDevDicomRetriesExhausted         = "imaging server kept answering 503"
	ErrDevDicomDecodeInstance           = "failed to decode DICOM instance"
	ErrDevDicomUpstreamStatus           = "imaging server answered with an unexpected status"
	ErrDevDicomMissingEndpoint          = "ImagingStudy has no resolvable WADO-RS endpoint"
	ErrDevStudyNotFound                 = "study %s not found for patient"
	ErrDevSeriesIndexOutOfRange         = "series index %d out of range"
	ErrDevStudyNotDownloaded            = "study %s not downloaded"
	ErrDevStudyDownloadInProgress       = "study %s download in progress"
	ErrDevBlobNotFound                  = "blob %s not registered"
	ErrDevPrefetchQuotaExceeded         = "prefetch quota exceeded for patient %s"
	ErrDevMongoDBFindDocument           = "failed to find document"
	ErrDevMongoDBUpsertDocument         = "failed to upsert document"
	ErrDevRedisGet                      = "failed to get key %s"
	ErrDevRedisSet                      = "failed to set key"
	ErrDevRedisDelete                   = "failed to delete key"
	ErrDevRedisUnlock                   = "failed to unlock"
	ErrDevMinioCreateObject             = "failed to create object in bucket %s"
	ErrDevMinioGetObject                = "failed to get object from bucket %s"
	ErrDevRabbitMQPublishMessage        = "failed to publish message to queue %s"
	ErrDevRabbitMQConsumeMessage        = "failed to consume messages from queue %s"
)
