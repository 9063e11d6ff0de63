// Package dataset loads data into project datasets and reports on their
// uploads.
package dataset

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// UploadMode selects how loaded rows are merged with the dataset.
type UploadMode string

const (
	UploadFull        UploadMode = "FULL"
	UploadIncremental UploadMode = "INCREMENTAL"
)

// Part maps one CSV column onto the dataset.
type Part struct {
	ColumnName     string            `json:"columnName"`
	PopulatesField []string          `json:"populates"`
	Mode           UploadMode        `json:"mode,omitempty"`
	ReferenceKey   int               `json:"referenceKey,omitempty"`
	Constraints    map[string]string `json:"constraints,omitempty"`
}

// Manifest describes how a CSV file is loaded into a dataset (the single
// load interface manifest).
type Manifest struct {
	DataSet   string          `json:"dataSet"`
	File      string          `json:"file"`
	Parts     []Part          `json:"parts"`
	CSVParams json.RawMessage `json:"csvParams,omitempty"`
}

// NewManifest returns a manifest loading file into dataset.
func NewManifest(dataset, file string, parts ...Part) *Manifest {
	return &Manifest{DataSet: dataset, File: file, Parts: parts}
}

// SetUploadMode sets mode on every part.
func (m *Manifest) SetUploadMode(mode UploadMode) {
	for i := range m.Parts {
		m.Parts[i].Mode = mode
	}
}

// Validate reports every problem of the manifest.
func (m *Manifest) Validate() error {
	var result *multierror.Error
	if m.DataSet == "" {
		result = multierror.Append(result, fmt.Errorf("dataSet is required"))
	}
	if m.File == "" {
		result = multierror.Append(result, fmt.Errorf("file is required"))
	}
	if len(m.Parts) == 0 {
		result = multierror.Append(result, fmt.Errorf("at least one part is required"))
	}
	for i, p := range m.Parts {
		if p.ColumnName == "" {
			result = multierror.Append(result, fmt.Errorf("part %d: columnName is required", i))
		}
		if len(p.PopulatesField) == 0 {
			result = multierror.Append(result, fmt.Errorf("part %d: populates is required", i))
		}
		switch p.Mode {
		case "", UploadFull, UploadIncremental:
		default:
			result = multierror.Append(result, fmt.Errorf("part %d: unknown mode %q", i, p.Mode))
		}
	}
	return result.ErrorOrNil()
}

type manifestBody Manifest

func (m Manifest) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]manifestBody{"dataSetSLIManifest": manifestBody(m)})
}

func (m *Manifest) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Manifest *manifestBody `json:"dataSetSLIManifest"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Manifest == nil {
		return fmt.Errorf("manifest has no %q key", "dataSetSLIManifest")
	}
	*m = Manifest(*wrapped.Manifest)
	return nil
}
