package process

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

// Type of a process.
type Type string

const (
	TypeGraph    Type = "GRAPH"
	TypeRuby     Type = "RUBY"
	TypeETL      Type = "ETL"
	TypeDataload Type = "DATALOAD"
)

// Link keys of a process.
const (
	LinkSelf       = "self"
	LinkExecutions = "executions"
	LinkSource     = "source"
)

// Process is a deployed data loading process:
//
//	{"process": {"name": "...", "type": "GRAPH", "executables": [...], "links": {...}}}
type Process struct {
	Name        string            `json:"name"`
	Type        Type              `json:"type"`
	Path        string            `json:"path,omitempty"`
	Executables []string          `json:"executables,omitempty"`
	Links       map[string]string `json:"links,omitempty"`
}

// NewProcess returns a process to be deployed.
func NewProcess(name string, typ Type) (*Process, error) {
	p := &Process{Name: name, Type: typ}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the name and type.
func (p *Process) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Type, validation.Required, validation.In(TypeGraph, TypeRuby, TypeETL, TypeDataload)),
	)
}

// URI returns the self link.
func (p *Process) URI() string {
	return p.Links[LinkSelf]
}

// ID returns the process id from the self link.
func (p *Process) ID() string {
	if p.URI() == "" {
		return ""
	}
	return gdc.IDFromURI(p.URI())
}

// ExecutionsURI returns the link to start executions.
func (p *Process) ExecutionsURI() string {
	return p.Links[LinkExecutions]
}

// SourceURI returns the link of the deployed archive.
func (p *Process) SourceURI() string {
	return p.Links[LinkSource]
}

// HasExecutable reports whether the process contains executable.
func (p *Process) HasExecutable(executable string) bool {
	for _, e := range p.Executables {
		if e == executable {
			return true
		}
	}
	return false
}

type processBody Process

func (p Process) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]processBody{"process": processBody(p)})
}

func (p *Process) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Process *processBody `json:"process"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Process == nil {
		return fmt.Errorf("process has no %q key", "process")
	}
	*p = Process(*wrapped.Process)
	return nil
}

// Execution is a request to run an executable of a process.
type Execution struct {
	Executable   string            `json:"executable"`
	Params       map[string]string `json:"params,omitempty"`
	HiddenParams map[string]string `json:"hiddenParams,omitempty"`
}

// NewExecution returns a request to run executable of p.
func NewExecution(p *Process, executable string, params, hiddenParams map[string]string) (*Execution, error) {
	if err := validation.Validate(executable, validation.Required); err != nil {
		return nil, fmt.Errorf("executable: %w", err)
	}
	if len(p.Executables) > 0 && !p.HasExecutable(executable) {
		return nil, fmt.Errorf("process %s has no executable %q", p.Name, executable)
	}
	return &Execution{Executable: executable, Params: params, HiddenParams: hiddenParams}, nil
}

// Validate checks that an executable is set.
func (e *Execution) Validate() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.Executable, validation.Required),
	)
}

type executionTask struct {
	ExecutionTask struct {
		Links struct {
			Poll   string `json:"poll"`
			Detail string `json:"detail"`
		} `json:"links"`
	} `json:"executionTask"`
}

// ExecutionStatus is the state of a process execution.
type ExecutionStatus string

const (
	StatusQueued    ExecutionStatus = "QUEUED"
	StatusRunning   ExecutionStatus = "RUNNING"
	StatusOK        ExecutionStatus = "OK"
	StatusError     ExecutionStatus = "ERROR"
	StatusCancelled ExecutionStatus = "CANCELLED"
)

// ErrorDetail describes why an execution failed.
type ErrorDetail struct {
	ErrorCode  string `json:"errorCode,omitempty"`
	Message    string `json:"message"`
	Parameters []any  `json:"parameters,omitempty"`
}

func (e *ErrorDetail) String() string {
	if len(e.Parameters) == 0 {
		return e.Message
	}
	return fmt.Sprintf(e.Message, e.Parameters...)
}

// ExecutionDetail is the outcome of a process execution.
type ExecutionDetail struct {
	Status   ExecutionStatus `json:"status"`
	Created  *gdc.Time       `json:"created,omitempty"`
	Started  *gdc.Time       `json:"started,omitempty"`
	Updated  *gdc.Time       `json:"updated,omitempty"`
	Finished *gdc.Time       `json:"finished,omitempty"`
	Error    *ErrorDetail    `json:"error,omitempty"`
	Links    struct {
		Self      string `json:"self,omitempty"`
		Log       string `json:"log,omitempty"`
		Execution string `json:"execution,omitempty"`
	} `json:"links"`
}

// IsSuccess reports a successful execution.
func (d *ExecutionDetail) IsSuccess() bool {
	return d.Status == StatusOK
}

type executionDetailBody struct {
	ExecutionDetail *ExecutionDetail `json:"executionDetail"`
}
