package process

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

// Schedule parameters understood by the platform.
const (
	ParamProcessID  = "PROCESS_ID"
	ParamExecutable = "EXECUTABLE"
)

// ScheduleState enables or disables a schedule.
type ScheduleState string

const (
	ScheduleEnabled  ScheduleState = "ENABLED"
	ScheduleDisabled ScheduleState = "DISABLED"
)

// Schedule runs an executable of a process by cron expression or after
// another schedule:
//
//	{"schedule": {"type": "MSETL", "params": {"PROCESS_ID": "...", "EXECUTABLE": "..."}, "cron": "0 0 * * *"}}
type Schedule struct {
	Type                            string            `json:"type"`
	State                           ScheduleState     `json:"state"`
	Params                          map[string]string `json:"params"`
	HiddenParams                    map[string]string `json:"hiddenParams,omitempty"`
	Cron                            string            `json:"cron,omitempty"`
	Timezone                        string            `json:"timezone,omitempty"`
	TriggerScheduleID               string            `json:"triggerScheduleId,omitempty"`
	ReschedulingSchedule            int               `json:"reschedule,omitempty"`
	Name                            string            `json:"name,omitempty"`
	NextExecutionTime               *gdc.Time         `json:"nextExecutionTime,omitempty"`
	ConsecutiveFailedExecutionCount int               `json:"consecutiveFailedExecutionCount,omitempty"`
	Links                           map[string]string `json:"links,omitempty"`
}

// NewSchedule returns an enabled schedule running executable of p by cron.
func NewSchedule(p *Process, executable, cron string) (*Schedule, error) {
	s := newSchedule(p, executable)
	s.Cron = cron
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewTriggeredSchedule returns a schedule running executable of p after
// trigger finished successfully.
func NewTriggeredSchedule(p *Process, executable string, trigger *Schedule) (*Schedule, error) {
	s := newSchedule(p, executable)
	s.TriggerScheduleID = trigger.ID()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func newSchedule(p *Process, executable string) *Schedule {
	return &Schedule{
		Type:  "MSETL",
		State: ScheduleEnabled,
		Params: map[string]string{
			ParamProcessID:  p.ID(),
			ParamExecutable: executable,
		},
	}
}

// Validate checks the process, executable and exactly one of cron and
// trigger are set.
func (s *Schedule) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Params, validation.Required, validation.Map(
			validation.Key(ParamProcessID, validation.Required),
			validation.Key(ParamExecutable, validation.When(s.Type == "MSETL", validation.Required)).Optional(),
		).AllowExtraKeys()),
		validation.Field(&s.Cron, validation.When(s.TriggerScheduleID == "", validation.Required.Error("cron or trigger is required"))),
		validation.Field(&s.TriggerScheduleID, validation.When(s.Cron != "", validation.Empty.Error("cannot be combined with cron"))),
		validation.Field(&s.State, validation.In(ScheduleEnabled, ScheduleDisabled)),
	)
}

// ProcessID returns the id of the scheduled process.
func (s *Schedule) ProcessID() string {
	return s.Params[ParamProcessID]
}

// Executable returns the scheduled executable.
func (s *Schedule) Executable() string {
	return s.Params[ParamExecutable]
}

// SetParam sets a schedule parameter.
func (s *Schedule) SetParam(key, value string) {
	if s.Params == nil {
		s.Params = map[string]string{}
	}
	s.Params[key] = value
}

// SetHiddenParam sets a parameter that is not returned by the API.
func (s *Schedule) SetHiddenParam(key, value string) {
	if s.HiddenParams == nil {
		s.HiddenParams = map[string]string{}
	}
	s.HiddenParams[key] = value
}

// IsEnabled reports an enabled schedule.
func (s *Schedule) IsEnabled() bool {
	return s.State == ScheduleEnabled
}

// URI returns the self link.
func (s *Schedule) URI() string {
	return s.Links[LinkSelf]
}

// ID returns the schedule id from the self link.
func (s *Schedule) ID() string {
	if s.URI() == "" {
		return ""
	}
	return gdc.IDFromURI(s.URI())
}

// ExecutionsURI returns the link to start executions of the schedule.
func (s *Schedule) ExecutionsURI() string {
	if uri := s.Links[LinkExecutions]; uri != "" {
		return uri
	}
	return s.URI() + "/executions"
}

type scheduleBody Schedule

func (s Schedule) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]scheduleBody{"schedule": scheduleBody(s)})
}

func (s *Schedule) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Schedule *scheduleBody `json:"schedule"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Schedule == nil {
		return fmt.Errorf("schedule has no %q key", "schedule")
	}
	*s = Schedule(*wrapped.Schedule)
	return nil
}

// ScheduleExecutionStatus is the state of a schedule execution.
type ScheduleExecutionStatus string

const (
	ScheduleExecutionScheduled ScheduleExecutionStatus = "SCHEDULED"
	ScheduleExecutionRunning   ScheduleExecutionStatus = "RUNNING"
	ScheduleExecutionOK        ScheduleExecutionStatus = "OK"
	ScheduleExecutionError     ScheduleExecutionStatus = "ERROR"
	ScheduleExecutionCanceled  ScheduleExecutionStatus = "CANCELED"
)

// ScheduleExecution is a run of a schedule.
type ScheduleExecution struct {
	Status                ScheduleExecutionStatus `json:"status"`
	Trigger               string                  `json:"trigger,omitempty"`
	ProcessLastDeployedBy string                  `json:"processLastDeployedBy,omitempty"`
	Created               *gdc.Time               `json:"created,omitempty"`
	Started               *gdc.Time               `json:"started,omitempty"`
	Finished              *gdc.Time               `json:"finished,omitempty"`
	Links                 struct {
		Self string `json:"self,omitempty"`
	} `json:"links"`
}

// IsFinished reports whether the execution reached a terminal status.
func (e *ScheduleExecution) IsFinished() bool {
	switch e.Status {
	case ScheduleExecutionOK, ScheduleExecutionError, ScheduleExecutionCanceled:
		return true
	}
	return false
}

// IsSuccess reports a successful execution.
func (e *ScheduleExecution) IsSuccess() bool {
	return e.Status == ScheduleExecutionOK
}

type scheduleExecutionBody struct {
	Execution *ScheduleExecution `json:"execution"`
}
