package execution

import (
	"encoding/json"
	"errors"
)

// ObjQualifier references a metadata object by URI or by identifier.
type ObjQualifier struct {
	URI        string `json:"uri,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

// Validate checks exactly one of URI and Identifier is set.
func (q ObjQualifier) Validate() error {
	if (q.URI == "") == (q.Identifier == "") {
		return errors.New("object qualifier needs exactly one of uri and identifier")
	}
	return nil
}

// AttributeItem is an attribute of an execution, given by display form.
type AttributeItem struct {
	DisplayForm     ObjQualifier `json:"displayForm"`
	LocalIdentifier string       `json:"localIdentifier"`
	Alias           string       `json:"alias,omitempty"`
}

// SimpleMeasure aggregates a fact, attribute or metric.
type SimpleMeasure struct {
	Item         ObjQualifier      `json:"item"`
	Aggregation  string            `json:"aggregation,omitempty"`
	ComputeRatio bool              `json:"computeRatio,omitempty"`
	Filters      []json.RawMessage `json:"filters,omitempty"`
}

// MeasureDefinition is the definition of a measure. Derived measures
// (period over period, previous period) are passed through as raw JSON.
type MeasureDefinition struct {
	Measure    *SimpleMeasure  `json:"measure,omitempty"`
	PopMeasure json.RawMessage `json:"popMeasure,omitempty"`
}

// MeasureItem is a measure of an execution.
type MeasureItem struct {
	Definition      MeasureDefinition `json:"definition"`
	LocalIdentifier string            `json:"localIdentifier"`
	Alias           string            `json:"alias,omitempty"`
	Format          string            `json:"format,omitempty"`
}

// NativeTotal is a total computed by the engine rather than by the client.
type NativeTotal struct {
	MeasureIdentifier    string   `json:"measureIdentifier"`
	AttributeIdentifiers []string `json:"attributeIdentifiers"`
}

// Afm is the attribute, filter, measure definition of an execution.
type Afm struct {
	Attributes   []AttributeItem   `json:"attributes,omitempty"`
	Measures     []MeasureItem     `json:"measures,omitempty"`
	Filters      []json.RawMessage `json:"filters,omitempty"`
	NativeTotals []NativeTotal     `json:"nativeTotals,omitempty"`
}

// TotalItem is a total shown in a result dimension.
type TotalItem struct {
	MeasureIdentifier   string `json:"measureIdentifier"`
	Type                string `json:"type"`
	AttributeIdentifier string `json:"attributeIdentifier"`
}

// Dimension lists the items placed in one dimension of the result.
type Dimension struct {
	ItemIdentifiers []string    `json:"itemIdentifiers"`
	Totals          []TotalItem `json:"totals,omitempty"`
}

// MeasureGroup is the item identifier placing all measures in a dimension.
const MeasureGroup = "measureGroup"

// ResultSpec shapes the result of an execution.
type ResultSpec struct {
	Dimensions []Dimension       `json:"dimensions,omitempty"`
	Sorts      []json.RawMessage `json:"sorts,omitempty"`
}

// Execution is the request of an AFM execution:
//
//	{"execution": {"afm": {...}, "resultSpec": {...}}}
type Execution struct {
	Afm        *Afm        `json:"afm"`
	ResultSpec *ResultSpec `json:"resultSpec,omitempty"`
}

// NewExecution returns an execution of afm with an optional result spec.
func NewExecution(afm *Afm, spec *ResultSpec) (*Execution, error) {
	if afm == nil {
		return nil, errors.New("execution needs an afm")
	}
	for _, a := range afm.Attributes {
		if err := a.DisplayForm.Validate(); err != nil {
			return nil, err
		}
	}
	return &Execution{Afm: afm, ResultSpec: spec}, nil
}

// ResultDimension describes the headers of one dimension of the result.
type ResultDimension struct {
	Headers []json.RawMessage `json:"headers"`
}

// ExecutionResponse is returned when an execution is started. The result is
// polled at Links.ExecutionResult.
type ExecutionResponse struct {
	Dimensions []ResultDimension `json:"dimensions"`
	Links      struct {
		ExecutionResult string `json:"executionResult"`
	} `json:"links"`
}

// ResultURI returns the link of the execution result.
func (r *ExecutionResponse) ResultURI() string {
	return r.Links.ExecutionResult
}
