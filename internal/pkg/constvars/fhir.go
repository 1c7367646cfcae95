package constvars

const (
	ResourcePatient      = "Patient"
	ResourceImagingStudy = "ImagingStudy"
	ResourceEndpoint     = "Endpoint"
	ResourceBundle       = "Bundle"
)

const (
	FhirSearchParamPatient = "patient"

	// System of the identifier carrying the DICOM Study Instance UID on R4 resources
	FhirIdentifierSystemDicomUID = "urn:dicom:uid"
	FhirDicomUIDPrefix           = "urn:oid:"
)

const (
	FhirBundleLinkNext = "next"
)
