package constvars

const (
	ResponseSuccess         = "success"
	ResponseUnknown         = "unknown"
	ResponsePatientFound    = "patient found"
	ResponseStudiesFound    = "studies found"
	ResponseStudyDownloaded = "study downloaded"
	ResponseStudyQueued     = "study download queued"
	ResponseSeriesFound     = "series found"
	ResponseSelectSeries    = "study has multiple series, select one"
)
