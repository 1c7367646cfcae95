package constvars

const (
	DicomFrameQueryFormat = "%s?frame=%d"
	DicomFrameQuerySep    = "?frame="
	DicomImageIDPrefix    = "dicomfile:"
	DicomPersonNameSep    = "^"
	// DicomUnknownSeriesID groups instances that carry no SeriesInstanceUID.
	DicomUnknownSeriesID = "unknown"
)

const (
	DicomDecodePolicyStrict  = "strict"
	DicomDecodePolicyLenient = "lenient"
)

const (
	StudyStateInitial     = "initial"
	StudyStateDownloading = "downloading"
	StudyStateDownloaded  = "downloaded"
	StudyStateFailed      = "failed"
)
