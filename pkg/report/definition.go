package report

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hashicorp-forge/gdc/pkg/md"
)

// Format is the visualization of a report definition.
type Format string

const (
	FormatGrid      Format = "grid"
	FormatChart     Format = "chart"
	FormatOneNumber Format = "oneNumber"
)

// Filter is a MAQL filter of a report definition.
type Filter struct {
	Expression string `json:"expression"`
}

// DefinitionContent is the content of a report definition.
type DefinitionContent struct {
	Grid    *Grid           `json:"grid"`
	Format  Format          `json:"format"`
	Filters []Filter        `json:"filters"`
	Chart   json.RawMessage `json:"chart,omitempty"`
}

// Definition is a version of a report:
//
//	{"reportDefinition": {"meta": {...}, "content": {"grid": {...}, "format": "grid"}}}
type Definition struct {
	Meta    md.Meta
	Content DefinitionContent
}

type definitionBody struct {
	Meta    md.Meta           `json:"meta"`
	Content DefinitionContent `json:"content"`
}

// NewGridDefinition returns a grid report definition.
func NewGridDefinition(title string, columns, rows []GridElement, metrics []MetricElement, filters ...Filter) (*Definition, error) {
	d := &Definition{
		Meta: md.Meta{Title: title, Category: "reportDefinition"},
		Content: DefinitionContent{
			Grid:    NewGrid(columns, rows, metrics),
			Format:  FormatGrid,
			Filters: append([]Filter{}, filters...),
		},
	}
	if err := validation.Validate(title, validation.Required); err != nil {
		return nil, err
	}
	return d, nil
}

// URI returns the definition URI.
func (d *Definition) URI() string {
	return d.Meta.URI
}

func (d Definition) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]definitionBody{
		"reportDefinition": {Meta: d.Meta, Content: d.Content},
	})
}

func (d *Definition) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		ReportDefinition definitionBody `json:"reportDefinition"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	d.Meta = wrapped.ReportDefinition.Meta
	d.Content = wrapped.ReportDefinition.Content
	return nil
}

// Report groups the definitions (versions) of a report.
type Report struct {
	Meta    md.Meta
	Content ReportContent
}

// ReportContent lists the definitions of a report, the newest last.
type ReportContent struct {
	Definitions []string `json:"definitions"`
	Domains     []string `json:"domains"`
}

type reportBody struct {
	Meta    md.Meta       `json:"meta"`
	Content ReportContent `json:"content"`
}

// NewReport returns a report for the given definitions.
func NewReport(title string, definitions ...*Definition) *Report {
	r := &Report{
		Meta:    md.Meta{Title: title, Category: "report"},
		Content: ReportContent{Definitions: []string{}, Domains: []string{}},
	}
	for _, d := range definitions {
		r.Content.Definitions = append(r.Content.Definitions, d.URI())
	}
	return r
}

// URI returns the report URI.
func (r *Report) URI() string {
	return r.Meta.URI
}

func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]reportBody{
		"report": {Meta: r.Meta, Content: r.Content},
	})
}

func (r *Report) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Report reportBody `json:"report"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	r.Meta = wrapped.Report.Meta
	r.Content = wrapped.Report.Content
	return nil
}
