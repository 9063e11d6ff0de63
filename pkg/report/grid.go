package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Total is an aggregation shown for an attribute of a grid.
type Total string

const (
	TotalSum Total = "sum"
	TotalAvg Total = "avg"
	TotalMax Total = "max"
	TotalMin Total = "min"
	TotalNat Total = "nat"
	TotalMed Total = "med"
)

// Validate checks t is a known total.
func (t Total) Validate() error {
	return validation.Validate(string(t), validation.In("sum", "avg", "max", "min", "nat", "med"))
}

const metricGroup = "metricGroup"

// GridElement is a column or row of a grid: either the metric group or an
// attribute.
type GridElement struct {
	Attribute *AttributeInGrid
}

// MetricGroup is the grid element holding the metrics.
var MetricGroup = GridElement{}

// AttributeElement returns a grid element for a.
func AttributeElement(a *AttributeInGrid) GridElement {
	return GridElement{Attribute: a}
}

// IsMetricGroup reports whether e is the metric group.
func (e GridElement) IsMetricGroup() bool {
	return e.Attribute == nil
}

func (e GridElement) MarshalJSON() ([]byte, error) {
	if e.IsMetricGroup() {
		return json.Marshal(metricGroup)
	}
	return json.Marshal(e.Attribute)
}

func (e *GridElement) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != metricGroup {
			return fmt.Errorf("unknown grid element %q", s)
		}
		e.Attribute = nil
		return nil
	}

	var a AttributeInGrid
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	e.Attribute = &a
	return nil
}

// AttributeInGrid is an attribute display form placed in a grid:
//
//	{"attribute": {"uri": "...", "alias": "", "totals": [[]]}}
type AttributeInGrid struct {
	URI    string    `json:"uri"`
	Alias  string    `json:"alias"`
	Totals [][]Total `json:"totals"`
}

// NewAttributeInGrid returns the grid attribute for display form uri.
func NewAttributeInGrid(uri, alias string) (*AttributeInGrid, error) {
	a := &AttributeInGrid{URI: uri, Alias: alias, Totals: [][]Total{}}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks the attribute has a display form.
func (a *AttributeInGrid) Validate() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.URI, validation.Required),
	)
}

type attributeInGridBody AttributeInGrid

func (a AttributeInGrid) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]attributeInGridBody{"attribute": attributeInGridBody(a)})
}

func (a *AttributeInGrid) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Attribute *attributeInGridBody `json:"attribute"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Attribute == nil {
		return fmt.Errorf("grid attribute has no %q key", "attribute")
	}
	*a = AttributeInGrid(*wrapped.Attribute)
	return nil
}

// MetricElement is a metric placed in a grid.
type MetricElement struct {
	URI                        string `json:"uri"`
	Alias                      string `json:"alias"`
	Format                     string `json:"format,omitempty"`
	DrillAcrossStepAttributeDF string `json:"drillAcrossStepAttributeDF,omitempty"`
}

// NewMetricElement returns the grid metric for metric uri.
func NewMetricElement(uri, alias string) (*MetricElement, error) {
	m := &MetricElement{URI: uri, Alias: alias}
	if err := validation.ValidateStruct(m,
		validation.Field(&m.URI, validation.Required),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// Sort is the sorting of a grid.
type Sort struct {
	Columns []any `json:"columns"`
	Rows    []any `json:"rows"`
}

// Grid is the layout of a grid report.
type Grid struct {
	Columns      []GridElement   `json:"columns"`
	Rows         []GridElement   `json:"rows"`
	Metrics      []MetricElement `json:"metrics"`
	Sort         Sort            `json:"sort"`
	ColumnWidths []any           `json:"columnWidths"`
}

// NewGrid returns a grid with empty sorting and column widths.
func NewGrid(columns, rows []GridElement, metrics []MetricElement) *Grid {
	return &Grid{
		Columns:      columns,
		Rows:         rows,
		Metrics:      metrics,
		Sort:         Sort{Columns: []any{}, Rows: []any{}},
		ColumnWidths: []any{},
	}
}
