package md

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Object is a metadata object of any category. On the wire it is wrapped
// by its category:
//
//	{"metric": {"meta": {...}, "content": {...}}}
type Object struct {
	Category string
	Meta     Meta
	Content  map[string]any
}

type objectBody struct {
	Meta    Meta           `json:"meta"`
	Content map[string]any `json:"content,omitempty"`
}

// NewObject returns an object of category with the given title.
func NewObject(category, title string, content map[string]any) *Object {
	return &Object{
		Category: category,
		Meta:     Meta{Title: title, Category: category},
		Content:  content,
	}
}

// URI returns the object URI.
func (o *Object) URI() string {
	return o.Meta.URI
}

// DecodeContent copies the content of the object into out, which is a
// pointer to a struct with json tags.
func (o *Object) DecodeContent(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(o.Content); err != nil {
		return fmt.Errorf("failed to decode %s content: %w", o.Category, err)
	}
	return nil
}

func (o Object) MarshalJSON() ([]byte, error) {
	if o.Category == "" {
		return nil, errors.New("metadata object has no category")
	}
	return json.Marshal(map[string]objectBody{
		o.Category: {Meta: o.Meta, Content: o.Content},
	})
}

func (o *Object) UnmarshalJSON(data []byte) error {
	var wrapped map[string]objectBody
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if len(wrapped) != 1 {
		return fmt.Errorf("metadata object must have exactly one category key, got %d", len(wrapped))
	}
	for category, body := range wrapped {
		o.Category = category
		o.Meta = body.Meta
		o.Content = body.Content
	}
	return nil
}
