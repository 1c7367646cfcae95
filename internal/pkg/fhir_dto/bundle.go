package fhir_dto

import (
	"encoding/json"
	"imaging-demo-service/internal/pkg/constvars"
)

type FHIRBundle struct {
	ResourceType string       `json:"resourceType"`
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	Total        int          `json:"total"`
	Link         []BundleLink `json:"link,omitempty"`
	Entry        []Entry      `json:"entry"`
}

type Entry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

// NextURL is the url of the "next" page link, "" on the last page.
func (b *FHIRBundle) NextURL() string {
	for _, link := range b.Link {
		if link.Relation == constvars.FhirBundleLinkNext {
			return link.URL
		}
	}
	return ""
}
