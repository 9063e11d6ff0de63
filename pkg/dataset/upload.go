package dataset

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

// TaskStatus is the state of a load or MAQL DML task.
type TaskStatus string

const (
	TaskOK      TaskStatus = "OK"
	TaskError   TaskStatus = "ERROR"
	TaskWarning TaskStatus = "WARNING"
	TaskRunning TaskStatus = "RUNNING"
)

// TaskMessage is a message reported by a task.
type TaskMessage struct {
	Message    string `json:"message"`
	Parameters []any  `json:"parameters,omitempty"`
}

func (m TaskMessage) String() string {
	return gdc.FormatMessage(m.Message, m.Parameters)
}

// TaskState is the status of an asynchronous dataset task.
type TaskState struct {
	Status   TaskStatus
	Messages []TaskMessage
}

// IsFinished reports whether the task stopped running.
func (s *TaskState) IsFinished() bool {
	return s.Status != "" && s.Status != TaskRunning
}

// IsSuccess reports whether the task finished without error.
func (s *TaskState) IsSuccess() bool {
	return s.Status == TaskOK || s.Status == TaskWarning
}

// Message joins the task messages.
func (s *TaskState) Message() string {
	texts := make([]string, 0, len(s.Messages))
	for _, m := range s.Messages {
		texts = append(texts, m.String())
	}
	return strings.Join(texts, "; ")
}

// Task messages are keyed by severity: {"error": {"message": ...}}.
type taskStateBody struct {
	Status   TaskStatus               `json:"status"`
	Messages []map[string]TaskMessage `json:"messages,omitempty"`
}

func (s *TaskState) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		State *taskStateBody `json:"wTaskStatus"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.State == nil {
		return fmt.Errorf("task state has no %q key", "wTaskStatus")
	}
	s.Status = wrapped.State.Status
	s.Messages = nil
	for _, m := range wrapped.State.Messages {
		for _, msg := range m {
			s.Messages = append(s.Messages, msg)
		}
	}
	return nil
}

// UploadStatus is the state of a data upload.
type UploadStatus string

const (
	UploadOK        UploadStatus = "OK"
	UploadError     UploadStatus = "ERROR"
	UploadWarning   UploadStatus = "WARNING"
	UploadRunning   UploadStatus = "RUNNING"
	UploadPrepared  UploadStatus = "PREPARED"
)

// Upload is one load of data into a dataset.
type Upload struct {
	URI         string       `json:"uri"`
	Status      UploadStatus `json:"status"`
	Progress    float64      `json:"progress"`
	FileSize    int64        `json:"fileSize,omitempty"`
	RowCount    int64        `json:"rowCount,omitempty"`
	Message     string       `json:"msg,omitempty"`
	CreatedAt   *gdc.Time    `json:"createdAt,omitempty"`
	ProcessedAt *gdc.Time    `json:"processedAt,omitempty"`
	UploadMode  UploadMode   `json:"uploadMode,omitempty"`
}

// ID returns the upload id.
func (u *Upload) ID() string {
	return gdc.IDFromURI(u.URI)
}

type uploadBody Upload

func (u Upload) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]uploadBody{"dataUpload": uploadBody(u)})
}

func (u *Upload) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Upload *uploadBody `json:"dataUpload"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Upload == nil {
		return fmt.Errorf("upload has no %q key", "dataUpload")
	}
	*u = Upload(*wrapped.Upload)
	return nil
}

// DataSetInfo describes the uploads of one dataset.
type DataSetInfo struct {
	Meta struct {
		Identifier string `json:"identifier"`
		Title      string `json:"title,omitempty"`
		URI        string `json:"uri,omitempty"`
	} `json:"meta"`
	UploadsURI string  `json:"uploadsURI"`
	LastUpload *Upload `json:"lastUpload,omitempty"`
}

// UploadsInfo lists the datasets of a project with their uploads.
type UploadsInfo struct {
	DataSets []DataSetInfo
}

// DataSetInfo returns the info of datasetID, or nil.
func (u *UploadsInfo) DataSetInfo(datasetID string) *DataSetInfo {
	for i := range u.DataSets {
		if u.DataSets[i].Meta.Identifier == datasetID {
			return &u.DataSets[i]
		}
	}
	return nil
}

func (u *UploadsInfo) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Info *struct {
			Items []struct {
				DataSet DataSetInfo `json:"dataSet"`
			} `json:"items"`
		} `json:"dataSetsInfo"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Info == nil {
		return fmt.Errorf("uploads info has no %q key", "dataSetsInfo")
	}
	u.DataSets = make([]DataSetInfo, 0, len(wrapped.Info.Items))
	for _, item := range wrapped.Info.Items {
		u.DataSets = append(u.DataSets, item.DataSet)
	}
	return nil
}

// UploadStatistics counts the uploads of a project by status.
type UploadStatistics struct {
	StatusCount map[UploadStatus]int `json:"statusCount"`
}

// Count returns the number of uploads with status.
func (s *UploadStatistics) Count(status UploadStatus) int {
	return s.StatusCount[status]
}

// Total returns the number of uploads.
func (s *UploadStatistics) Total() int {
	n := 0
	for _, c := range s.StatusCount {
		n += c
	}
	return n
}

func (s *UploadStatistics) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Info *struct {
			StatusCount map[UploadStatus]int `json:"statusCount"`
		} `json:"dataUploadsInfo"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Info == nil {
		return fmt.Errorf("upload statistics has no %q key", "dataUploadsInfo")
	}
	s.StatusCount = wrapped.Info.StatusCount
	return nil
}
