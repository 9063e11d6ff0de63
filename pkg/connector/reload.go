package connector

import (
	"encoding/json"
	"fmt"
)

// ReloadStatus is the state of a Zendesk reload.
type ReloadStatus string

const (
	ReloadScheduled  ReloadStatus = "SCHEDULED"
	ReloadProcessing ReloadStatus = "PROCESSING"
	ReloadFinished   ReloadStatus = "FINISHED"
	ReloadFailed     ReloadStatus = "FAILED"
)

// Reload is a full reload of Zendesk data, optionally restarting some
// entities from the given start times (Unix seconds, keyed by entity).
type Reload struct {
	ID         int64            `json:"id,omitempty"`
	Status     ReloadStatus     `json:"status,omitempty"`
	ProcessID  string           `json:"processId,omitempty"`
	StartTimes map[string]int64 `json:"startTimes,omitempty"`
	Links      struct {
		Self string `json:"self,omitempty"`
	} `json:"links"`
}

// NewReload returns a reload request for the entities in startTimes.
func NewReload(startTimes map[string]int64) *Reload {
	return &Reload{StartTimes: startTimes}
}

// URI returns the self link of the reload.
func (r *Reload) URI() string {
	return r.Links.Self
}

// IsFinished reports whether the reload ended.
func (r *Reload) IsFinished() bool {
	return r.Status == ReloadFinished || r.Status == ReloadFailed
}

// IsFailed reports whether the reload failed.
func (r *Reload) IsFailed() bool {
	return r.Status == ReloadFailed
}

// ProcessURI returns the process URI of the reload run in project, if it
// started.
func (r *Reload) ProcessURI(projectID string) string {
	if r.ProcessID == "" {
		return ""
	}
	return processTemplate.Expand(projectID, Zendesk4.Name(), r.ProcessID)
}

type reloadBody Reload

func (r Reload) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]reloadBody{"reload": reloadBody(r)})
}

func (r *Reload) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Reload *reloadBody `json:"reload"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Reload == nil {
		return fmt.Errorf("reload has no %q key", "reload")
	}
	*r = Reload(*wrapped.Reload)
	return nil
}
