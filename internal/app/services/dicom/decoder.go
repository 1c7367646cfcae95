package dicom

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Decoder turns the body of one multipart part into an Instance.
type Decoder interface {
	Decode(ctx context.Context, blob []byte) (Instance, error)
}

// DecoderConfig is fixed once at startup and handed to NewDatasetDecoder.
type DecoderConfig struct {
	// KeepPixelData parses pixel data as well. Grouping only needs the
	// header, so it is off unless a caller needs the frames.
	KeepPixelData bool
}

type datasetDecoder struct {
	options []dicom.ParseOption
}

func NewDatasetDecoder(config DecoderConfig) Decoder {
	decoder := &datasetDecoder{}
	if !config.KeepPixelData {
		decoder.options = append(decoder.options, dicom.SkipPixelData())
	}
	return decoder
}

func (d *datasetDecoder) Decode(ctx context.Context, blob []byte) (instance Instance, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = fmt.Errorf("%w: parser panic: %v", ErrDecodeInstance, r)
		}
	}()

	dataset, err := dicom.Parse(bytes.NewReader(blob), int64(len(blob)), nil, d.options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeInstance, err)
	}
	return &datasetInstance{dataset: dataset}, nil
}

type datasetInstance struct {
	dataset dicom.Dataset
}

// NewDatasetInstance exposes an already parsed dataset as an Instance.
func NewDatasetInstance(dataset dicom.Dataset) Instance {
	return &datasetInstance{dataset: dataset}
}

func (i *datasetInstance) value(t tag.Tag) (interface{}, bool) {
	element, err := i.dataset.FindElementByTag(t)
	if err != nil || element == nil || element.Value == nil {
		return nil, false
	}
	value := element.Value.GetValue()
	if value == nil {
		return nil, false
	}
	return value, true
}

func (i *datasetInstance) String(t tag.Tag) (string, bool) {
	value, ok := i.value(t)
	if !ok {
		return "", false
	}
	switch v := value.(type) {
	case []string:
		if len(v) == 0 {
			return "", false
		}
		return strings.TrimSpace(v[0]), true
	case string:
		return strings.TrimSpace(v), true
	case []int:
		if len(v) == 0 {
			return "", false
		}
		return strconv.Itoa(v[0]), true
	}
	return "", false
}

// Int reads numeric tags. IS values arrive as strings and are parsed.
func (i *datasetInstance) Int(t tag.Tag) (int, bool) {
	value, ok := i.value(t)
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case []int:
		if len(v) == 0 {
			return 0, false
		}
		return v[0], true
	case []string:
		if len(v) == 0 {
			return 0, false
		}
		number, err := strconv.Atoi(strings.TrimSpace(v[0]))
		if err != nil {
			return 0, false
		}
		return number, true
	}
	return 0, false
}
