package connector

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mitchellh/mapstructure"
)

// Settings holds the configuration of a connector as returned by the API.
// Each connector type accepts its own keys; Decode converts them into one of
// the typed settings.
type Settings map[string]any

// NewSettings converts typed settings, for example *Zendesk4Settings, into
// Settings.
func NewSettings(v any) (Settings, error) {
	if val, ok := v.(validation.Validatable); ok {
		if err := val.Validate(); err != nil {
			return nil, err
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var s map[string]any
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return Settings(s), nil
}

// Decode copies the settings into out, a pointer to typed settings.
func (s Settings) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]any(s)); err != nil {
		return fmt.Errorf("failed to decode connector settings: %w", err)
	}
	return nil
}

func (s Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]map[string]any{"settings": s})
}

func (s *Settings) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Settings map[string]any `json:"settings"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Settings == nil {
		return fmt.Errorf("settings has no %q key", "settings")
	}
	*s = wrapped.Settings
	return nil
}

// Zendesk4 account types.
const (
	Zendesk4TypePlus       = "plus"
	Zendesk4TypeEnterprise = "enterprise"
)

// Zendesk4Settings configures the Zendesk connector.
type Zendesk4Settings struct {
	APIURL       string `json:"apiUrl"`
	Type         string `json:"type,omitempty"`
	SyncTime     string `json:"syncTime,omitempty"`
	SyncTimeZone string `json:"syncTimeZone,omitempty"`
}

func (s *Zendesk4Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.APIURL, validation.Required),
		validation.Field(&s.Type, validation.In(Zendesk4TypePlus, Zendesk4TypeEnterprise)),
	)
}

// CoupaSettings configures the Coupa connector.
type CoupaSettings struct {
	TimeZone string `json:"timeZone"`
}

func (s *CoupaSettings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.TimeZone, validation.Required),
	)
}
