package execution

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Data is a node of the result matrix: a single value or a list of nodes.
type Data interface {
	IsList() bool
	IsValue() bool
	// List returns the nested nodes; nil for a value.
	List() DataList
	// TextValue returns the cell text; "" for a list or a null value.
	TextValue() string
}

// DataValue is a result cell. A nil Value is a JSON null. Number and
// boolean cells keep their literal text in Value and are written back
// unquoted.
type DataValue struct {
	Value *string

	literal bool
}

// NewDataValue returns a non-null cell.
func NewDataValue(v string) DataValue {
	return DataValue{Value: &v}
}

func (v DataValue) IsList() bool   { return false }
func (v DataValue) IsValue() bool  { return true }
func (v DataValue) List() DataList { return nil }
func (v DataValue) IsNull() bool   { return v.Value == nil }

func (v DataValue) TextValue() string {
	if v.Value == nil {
		return ""
	}
	return *v.Value
}

func (v DataValue) MarshalJSON() ([]byte, error) {
	if v.Value == nil {
		return []byte("null"), nil
	}
	if v.literal {
		return []byte(*v.Value), nil
	}
	return json.Marshal(*v.Value)
}

// DataList is a list of result nodes.
type DataList []Data

func (l DataList) IsList() bool      { return true }
func (l DataList) IsValue() bool     { return false }
func (l DataList) List() DataList    { return l }
func (l DataList) TextValue() string { return "" }

func (l *DataList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	list := make(DataList, 0, len(raw))
	for _, r := range raw {
		d, err := decodeData(r)
		if err != nil {
			return err
		}
		list = append(list, d)
	}
	*l = list
	return nil
}

func decodeData(data []byte) (Data, error) {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return DataValue{}, nil
	case data[0] == '[':
		var l DataList
		if err := l.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return l, nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return NewDataValue(s), nil
	case data[0] == '{':
		return nil, fmt.Errorf("unexpected object in result data")
	default:
		if !json.Valid(data) {
			return nil, fmt.Errorf("invalid result value %q", data)
		}
		v := NewDataValue(string(data))
		v.literal = true
		return v, nil
	}
}

// Paging is the position of a result page in every dimension.
type Paging struct {
	Count  []int `json:"count"`
	Offset []int `json:"offset"`
	Total  []int `json:"total"`
}

// IsComplete reports whether the page reaches the end of every dimension.
func (p Paging) IsComplete() bool {
	for i, total := range p.Total {
		if i >= len(p.Offset) || i >= len(p.Count) {
			return false
		}
		if p.Offset[i]+p.Count[i] < total {
			return false
		}
	}
	return true
}

// ResultHeaderItem is a header of a result row or column.
type ResultHeaderItem interface {
	HeaderName() string
}

// AttributeHeaderItem is the header of an attribute element.
type AttributeHeaderItem struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

func (h AttributeHeaderItem) HeaderName() string { return h.Name }

func (h AttributeHeaderItem) MarshalJSON() ([]byte, error) {
	type body AttributeHeaderItem
	return json.Marshal(map[string]body{"attributeHeaderItem": body(h)})
}

// MeasureHeaderItem is the header of a measure.
type MeasureHeaderItem struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

func (h MeasureHeaderItem) HeaderName() string { return h.Name }

func (h MeasureHeaderItem) MarshalJSON() ([]byte, error) {
	type body MeasureHeaderItem
	return json.Marshal(map[string]body{"measureHeaderItem": body(h)})
}

// TotalHeaderItem is the header of a total.
type TotalHeaderItem struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (h TotalHeaderItem) HeaderName() string { return h.Name }

func (h TotalHeaderItem) MarshalJSON() ([]byte, error) {
	type body TotalHeaderItem
	return json.Marshal(map[string]body{"totalHeaderItem": body(h)})
}

func decodeHeaderItem(data []byte) (ResultHeaderItem, error) {
	var wrapped struct {
		Attribute *AttributeHeaderItem `json:"attributeHeaderItem"`
		Measure   *MeasureHeaderItem   `json:"measureHeaderItem"`
		Total     *TotalHeaderItem     `json:"totalHeaderItem"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	switch {
	case wrapped.Attribute != nil:
		return *wrapped.Attribute, nil
	case wrapped.Measure != nil:
		return *wrapped.Measure, nil
	case wrapped.Total != nil:
		return *wrapped.Total, nil
	}
	return nil, fmt.Errorf("unknown header item %s", data)
}

// ExecutionResult is a page of the result of an execution.
type ExecutionResult struct {
	Data        Data
	Paging      Paging
	HeaderItems [][][]ResultHeaderItem
	Totals      [][][]*string
}

type executionResultBody struct {
	Data        json.RawMessage       `json:"data"`
	Paging      Paging                `json:"paging"`
	HeaderItems [][][]json.RawMessage `json:"headerItems,omitempty"`
	Totals      [][][]*string         `json:"totals,omitempty"`
}

func (r ExecutionResult) MarshalJSON() ([]byte, error) {
	body := struct {
		Data        Data                   `json:"data"`
		Paging      Paging                 `json:"paging"`
		HeaderItems [][][]ResultHeaderItem `json:"headerItems,omitempty"`
		Totals      [][][]*string          `json:"totals,omitempty"`
	}{r.Data, r.Paging, r.HeaderItems, r.Totals}
	return json.Marshal(map[string]any{"executionResult": body})
}

func (r *ExecutionResult) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		ExecutionResult *executionResultBody `json:"executionResult"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.ExecutionResult == nil {
		return fmt.Errorf("execution result has no %q key", "executionResult")
	}
	body := wrapped.ExecutionResult

	d, err := decodeData(body.Data)
	if err != nil {
		return fmt.Errorf("invalid result data: %w", err)
	}

	var headers [][][]ResultHeaderItem
	if body.HeaderItems != nil {
		headers = make([][][]ResultHeaderItem, len(body.HeaderItems))
		for i, dim := range body.HeaderItems {
			headers[i] = make([][]ResultHeaderItem, len(dim))
			for j, attr := range dim {
				headers[i][j] = make([]ResultHeaderItem, len(attr))
				for k, raw := range attr {
					h, err := decodeHeaderItem(raw)
					if err != nil {
						return fmt.Errorf("invalid header item: %w", err)
					}
					headers[i][j][k] = h
				}
			}
		}
	}

	r.Data = d
	r.Paging = body.Paging
	r.HeaderItems = headers
	r.Totals = body.Totals
	return nil
}
