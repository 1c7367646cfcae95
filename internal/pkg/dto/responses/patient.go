package responses

type PatientDemographics struct {
	PatientID string `json:"patient_id"`
	Name      string `json:"name,omitempty"`
	BirthDate string `json:"birth_date,omitempty"`
	City      string `json:"city,omitempty"`
}
