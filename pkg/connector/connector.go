// Package connector manages ETL connector integrations of a project: their
// configuration, settings and process runs.
package connector

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

// Type identifies a connector.
type Type string

const (
	Zendesk4 Type = "zendesk4"
	Coupa    Type = "coupa"
	Pardot   Type = "pardot"
	Google   Type = "ga"
)

// Name returns the name used in connector URIs.
func (t Type) Name() string {
	return string(t)
}

func (t Type) Validate() error {
	return validation.Validate(string(t),
		validation.Required,
		validation.In(string(Zendesk4), string(Coupa), string(Pardot), string(Google)),
	)
}

// StatusCode is the state of a connector process.
type StatusCode string

const (
	StatusNew          StatusCode = "NEW"
	StatusScheduled    StatusCode = "SCHEDULED"
	StatusDownloading  StatusCode = "DOWNLOADING"
	StatusDownloaded   StatusCode = "DOWNLOADED"
	StatusTransforming StatusCode = "TRANSFORMING"
	StatusTransformed  StatusCode = "TRANSFORMED"
	StatusUploading    StatusCode = "UPLOADING"
	StatusUploaded     StatusCode = "UPLOADED"
	StatusSynchronized StatusCode = "SYNCHRONIZED"
	StatusError        StatusCode = "ERROR"
	StatusUserError    StatusCode = "USER_ERROR"
)

// IsFinished reports whether the code is terminal. Unknown codes are not.
func (c StatusCode) IsFinished() bool {
	switch c {
	case StatusSynchronized, StatusError, StatusUserError:
		return true
	}
	return false
}

// IsFailed reports whether the code is a terminal failure.
func (c StatusCode) IsFailed() bool {
	switch c {
	case StatusError, StatusUserError:
		return true
	}
	return false
}

// Status is the status of a connector process.
type Status struct {
	Code        StatusCode `json:"code"`
	Detail      string     `json:"detail,omitempty"`
	Description string     `json:"description,omitempty"`
}

// IsFinished reports whether the process ended. A nil status has not.
func (s *Status) IsFinished() bool {
	return s != nil && s.Code.IsFinished()
}

// IsFailed reports whether the process ended with an error.
func (s *Status) IsFailed() bool {
	return s != nil && s.Code.IsFailed()
}

func (s *Status) String() string {
	if s == nil {
		return "unknown"
	}
	if s.Description != "" {
		return fmt.Sprintf("%s (%s)", s.Code, s.Description)
	}
	return string(s.Code)
}

// IntegrationProcessStatus is one run of a connector process.
type IntegrationProcessStatus struct {
	Started  *gdc.Time `json:"started,omitempty"`
	Finished *gdc.Time `json:"finished,omitempty"`
	Status   *Status   `json:"status,omitempty"`
	Links    struct {
		Self string `json:"self,omitempty"`
	} `json:"links"`
}

// IsFinished reports whether the run ended.
func (p *IntegrationProcessStatus) IsFinished() bool {
	return p.Status.IsFinished()
}

// IsFailed reports whether the run ended with an error.
func (p *IntegrationProcessStatus) IsFailed() bool {
	return p.Status.IsFailed()
}

// URI returns the self link of the run.
func (p *IntegrationProcessStatus) URI() string {
	return p.Links.Self
}

// ID returns the run id.
func (p *IntegrationProcessStatus) ID() string {
	return gdc.IDFromURI(p.Links.Self)
}

type processStatusBody IntegrationProcessStatus

func (p IntegrationProcessStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]processStatusBody{"process": processStatusBody(p)})
}

func (p *IntegrationProcessStatus) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Process *processStatusBody `json:"process"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Process == nil {
		return fmt.Errorf("process status has no %q key", "process")
	}
	*p = IntegrationProcessStatus(*wrapped.Process)
	return nil
}

// Integration is the connector configuration of a project.
type Integration struct {
	ProjectTemplate       string                    `json:"projectTemplate"`
	Active                bool                      `json:"active"`
	LastFinishedProcess   *IntegrationProcessStatus `json:"lastFinishedProcess,omitempty"`
	LastSuccessfulProcess *IntegrationProcessStatus `json:"lastSuccessfulProcess,omitempty"`
	RunningProcess        *IntegrationProcessStatus `json:"runningProcess,omitempty"`
}

// NewIntegration returns an active integration created from the project
// template at projectTemplate, for example "/projectTemplates/ZendeskAnalytics/11".
func NewIntegration(projectTemplate string) (*Integration, error) {
	i := &Integration{ProjectTemplate: projectTemplate, Active: true}
	if err := i.Validate(); err != nil {
		return nil, err
	}
	return i, nil
}

func (i *Integration) Validate() error {
	return validation.ValidateStruct(i,
		validation.Field(&i.ProjectTemplate, validation.Required),
	)
}

// IsRunning reports whether a process of the integration is in progress.
func (i *Integration) IsRunning() bool {
	return i.RunningProcess != nil && !i.RunningProcess.IsFinished()
}

// request returns the fields the API accepts on create and update.
func (i *Integration) request() *Integration {
	return &Integration{ProjectTemplate: i.ProjectTemplate, Active: i.Active}
}

type integrationBody Integration

func (i Integration) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]integrationBody{"integration": integrationBody(i)})
}

func (i *Integration) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Integration *integrationBody `json:"integration"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Integration == nil {
		return fmt.Errorf("integration has no %q key", "integration")
	}
	*i = Integration(*wrapped.Integration)
	return nil
}

// ProcessExecution requests a connector run.
type ProcessExecution struct {
	// Incremental selects an incremental or full load. Nil keeps the
	// connector default. Only zendesk4 honours it.
	Incremental *bool `json:"incremental,omitempty"`
}

// NewProcessExecution returns a run request with the connector defaults.
func NewProcessExecution() *ProcessExecution {
	return &ProcessExecution{}
}

// SetIncremental selects an incremental or full load.
func (p *ProcessExecution) SetIncremental(incremental bool) *ProcessExecution {
	p.Incremental = &incremental
	return p
}

type processExecutionBody ProcessExecution

func (p ProcessExecution) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]processExecutionBody{"process": processExecutionBody(p)})
}
