package models

import (
	"fmt"
	"imaging-demo-service/internal/pkg/constvars"
	"sort"
	"sync"
)

// InstanceFields are the identifying fields read from one decoded DICOM instance.
type InstanceFields struct {
	SeriesID         string
	InstanceNumber   int
	NumberOfFrames   int
	Description      string
	Modality         string
	StudyDescription string
	PatientName      string
}

// IsMultiFrame reports whether the instance addresses its frames individually.
func (f InstanceFields) IsMultiFrame() bool {
	return f.NumberOfFrames > 0
}

type ImageEntry struct {
	ImageID    string `json:"image_id" bson:"image_id"`
	FrameIndex int    `json:"frame_index" bson:"frame_index"`
}

// Series groups the renderable images of one DICOM series. Descriptive fields
// are first-write-wins; image ids are exposed sorted by frame index.
type Series struct {
	mu sync.Mutex

	seriesID         string
	description      string
	modality         string
	studyDescription string
	patientName      string

	entries []ImageEntry
	sorted  []ImageEntry
}

func NewSeries(seriesID string) *Series {
	return &Series{seriesID: seriesID}
}

func (s *Series) SeriesID() string {
	return s.seriesID
}

func (s *Series) Description() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.description
}

func (s *Series) Modality() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modality
}

func (s *Series) StudyDescription() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.studyDescription
}

func (s *Series) PatientName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patientName
}

// AddInstance appends the images of one instance. A multi-frame instance adds
// one "<base>?frame=i" entry per frame, a single-frame instance adds base with
// its instance number. Duplicates are not filtered.
func (s *Series) AddInstance(imageIDBase string, fields InstanceFields) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fields.IsMultiFrame() {
		for i := 0; i < fields.NumberOfFrames; i++ {
			s.appendLocked(fmt.Sprintf(constvars.DicomFrameQueryFormat, imageIDBase, i), i)
		}
	} else {
		s.appendLocked(imageIDBase, fields.InstanceNumber)
	}

	s.fillLocked(fields.Description, fields.Modality, fields.StudyDescription, fields.PatientName)
}

// AddImage appends a single image entry as is.
func (s *Series) AddImage(imageID string, frameIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(imageID, frameIndex)
}

// ImageIDs returns the image ids sorted ascending by frame index. Entries
// sharing an index keep their insertion order.
func (s *Series) ImageIDs() []string {
	entries := s.Entries()
	imageIDs := make([]string, len(entries))
	for i, entry := range entries {
		imageIDs[i] = entry.ImageID
	}
	return imageIDs
}

// Entries returns a sorted copy of the image entries.
func (s *Series) Entries() []ImageEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sorted == nil {
		s.sorted = make([]ImageEntry, len(s.entries))
		copy(s.sorted, s.entries)
		sort.SliceStable(s.sorted, func(i, j int) bool {
			return s.sorted[i].FrameIndex < s.sorted[j].FrameIndex
		})
	}

	out := make([]ImageEntry, len(s.sorted))
	copy(out, s.sorted)
	return out
}

func (s *Series) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Series) appendLocked(imageID string, frameIndex int) {
	s.entries = append(s.entries, ImageEntry{ImageID: imageID, FrameIndex: frameIndex})
	s.sorted = nil
}

func (s *Series) fillLocked(description, modality, studyDescription, patientName string) {
	if s.description == "" {
		s.description = description
	}
	if s.modality == "" {
		s.modality = modality
	}
	if s.studyDescription == "" {
		s.studyDescription = studyDescription
	}
	if s.patientName == "" {
		s.patientName = patientName
	}
}
