package project

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationType selects a check of project validation.
type ValidationType string

const (
	ValidatePDM                ValidationType = "pdm"
	ValidateLDM                ValidationType = "ldm"
	ValidateMetricFilter       ValidationType = "metric_filter"
	ValidateInvalidObjects     ValidationType = "invalid_objects"
	ValidatePDMElements        ValidationType = "pdm::elem_validation"
	ValidatePDMTransitivity    ValidationType = "pdm::transitivity"
	ValidatePDMPKFKConsistency ValidationType = "pdm::pk_fk_consistency"
	ValidateLDMNonExisting     ValidationType = "ldm::nonexisting_datasets"
)

// Levels of validation messages.
const (
	LevelError   = "ERROR"
	LevelWarning = "WARN"
	LevelInfo    = "INFO"
)

// ValidationResultItem is one message of a validation.
type ValidationResultItem struct {
	Validation ValidationType `json:"-"`
	Level      string         `json:"level"`
	Category   string         `json:"ecat"`
	Message    string         `json:"msg"`
	Params     []any          `json:"pars,omitempty"`
}

// Text returns the message with its parameters substituted.
func (i *ValidationResultItem) Text() string {
	if len(i.Params) == 0 || !strings.Contains(i.Message, "%") {
		return i.Message
	}
	return fmt.Sprintf(i.Message, i.Params...)
}

// ValidationResults is the outcome of a project validation.
type ValidationResults struct {
	Items           []ValidationResultItem
	ErrorFound      bool
	FatalErrorFound bool
}

// ErrorCount returns the number of error messages.
func (r *ValidationResults) ErrorCount() int {
	return r.count(LevelError)
}

// WarningCount returns the number of warning messages.
func (r *ValidationResults) WarningCount() int {
	return r.count(LevelWarning)
}

func (r *ValidationResults) count(level string) int {
	n := 0
	for _, item := range r.Items {
		if item.Level == level {
			n++
		}
	}
	return n
}

// HasErrors reports whether validation found a problem.
func (r *ValidationResults) HasErrors() bool {
	return r.ErrorFound || r.FatalErrorFound || r.ErrorCount() > 0
}

type validationResultsBody struct {
	Results []struct {
		From ValidationType `json:"from"`
		Body struct {
			Log []ValidationResultItem `json:"log"`
		} `json:"body"`
	} `json:"results"`
	ErrorFound      int `json:"error_found"`
	FatalErrorFound int `json:"fatal_error_found"`
}

func (r *ValidationResults) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Result *validationResultsBody `json:"projectValidateResult"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Result == nil {
		return fmt.Errorf("validation result has no %q key", "projectValidateResult")
	}

	r.Items = nil
	for _, result := range wrapped.Result.Results {
		for _, item := range result.Body.Log {
			item.Validation = result.From
			r.Items = append(r.Items, item)
		}
	}
	r.ErrorFound = wrapped.Result.ErrorFound > 0
	r.FatalErrorFound = wrapped.Result.FatalErrorFound > 0
	return nil
}
