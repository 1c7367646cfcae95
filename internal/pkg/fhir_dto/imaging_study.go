package fhir_dto

// ImagingStudy covers the DSTU2/STU3 shape (uid, modalityList, accession)
// together with the R4 equivalents (identifier, modality).
type ImagingStudy struct {
	ID             string              `json:"id,omitempty"`
	ResourceType   string              `json:"resourceType,omitempty"`
	UID            string              `json:"uid,omitempty"`
	Identifier     []Identifier        `json:"identifier,omitempty"`
	Contained      []ContainedResource `json:"contained,omitempty"`
	Endpoint       []Reference         `json:"endpoint,omitempty"`
	ModalityList   []Coding            `json:"modalityList,omitempty"`
	Modality       []Coding            `json:"modality,omitempty"`
	Started        string              `json:"started,omitempty"`
	Accession      *Identifier         `json:"accession,omitempty"`
	Referrer       *Reference          `json:"referrer,omitempty"`
	NumberOfSeries int                 `json:"numberOfSeries,omitempty"`
	Description    string              `json:"description,omitempty"`
}

// ContainedResource keeps the fields needed to resolve a contained Endpoint.
type ContainedResource struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
	Address      string `json:"address,omitempty"`
	Status       string `json:"status,omitempty"`
}
