package utils

import (
	"imaging-demo-service/internal/pkg/constvars"
	"strings"
)

// ParseDicomName turns a DICOM person name (last^first^middle^prefix^suffix)
// into display order "prefix first middle last suffix". Empty components are
// dropped. ok is false when raw carries no name at all.
func ParseDicomName(raw string) (name string, ok bool) {
	if raw == "" {
		return "", false
	}

	components := strings.SplitN(raw, constvars.DicomPersonNameSep, 5)
	for len(components) < 5 {
		components = append(components, "")
	}
	last, first, middle, prefix, suffix := components[0], components[1], components[2], components[3], components[4]

	var parts []string
	for _, component := range []string{prefix, first, middle, last, suffix} {
		component = strings.TrimSpace(component)
		if component != "" {
			parts = append(parts, component)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}
