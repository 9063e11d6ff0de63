package md

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

// Meta is the meta block shared by every metadata object.
type Meta struct {
	Author       string    `json:"author,omitempty"`
	Contributor  string    `json:"contributor,omitempty"`
	Created      *gdc.Time `json:"created,omitempty"`
	Updated      *gdc.Time `json:"updated,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	Title        string    `json:"title,omitempty"`
	Category     string    `json:"category,omitempty"`
	Tags         string    `json:"tags,omitempty"`
	URI          string    `json:"uri,omitempty"`
	Identifier   string    `json:"identifier,omitempty"`
	Deprecated   Flag      `json:"deprecated,omitempty"`
	Locked       Flag      `json:"locked,omitempty"`
	Unlisted     Flag      `json:"unlisted,omitempty"`
	IsProduction Flag      `json:"isProduction,omitempty"`
	Flags        []string  `json:"flags,omitempty"`
}

// NewMeta returns a Meta with the given title.
func NewMeta(title string) Meta {
	return Meta{Title: title}
}

// ID returns the object id from the object URI.
func (m *Meta) ID() string {
	if m.URI == "" {
		return ""
	}
	return gdc.IDFromURI(m.URI)
}

// Flag is a boolean sent by the API as 0/1, "0"/"1" or true/false.
type Flag bool

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	switch string(data) {
	case "", "null", "0", "false":
		*f = false
		return nil
	case "1", "true":
		*f = true
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("invalid flag %s", data)
	}
	*f = n != 0
	return nil
}

// Entry is a lightweight reference to a metadata object as returned by
// query and usage resources.
type Entry struct {
	Link        string    `json:"link"`
	Title       string    `json:"title,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Identifier  string    `json:"identifier,omitempty"`
	Category    string    `json:"category,omitempty"`
	Author      string    `json:"author,omitempty"`
	Contributor string    `json:"contributor,omitempty"`
	Tags        string    `json:"tags,omitempty"`
	Created     *gdc.Time `json:"created,omitempty"`
	Updated     *gdc.Time `json:"updated,omitempty"`
	Deprecated  Flag      `json:"deprecated,omitempty"`
	Locked      Flag      `json:"locked,omitempty"`
	Unlisted    Flag      `json:"unlisted,omitempty"`
}

// UseMany lists the objects using (or used by) one object.
type UseMany struct {
	URI     string  `json:"uri"`
	Entries []Entry `json:"entries"`
}

type queryResult struct {
	Query struct {
		Entries []Entry `json:"entries"`
	} `json:"query"`
}
