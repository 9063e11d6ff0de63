package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

const (
	manifestTemplate   gdc.Template = "/gdc/md/{projectId}/ldm/singleloadinterface/{dataset}/manifest"
	pullTemplate       gdc.Template = "/gdc/md/{projectId}/etl/pull2"
	dmlTemplate        gdc.Template = "/gdc/md/{projectId}/dml/manage"
	dataSetsTemplate   gdc.Template = "/gdc/md/{projectId}/data/sets"
	uploadInfoTemplate gdc.Template = "/gdc/md/{projectId}/data/uploads_info"

	// manifestFile is the name the pull task expects the manifest under.
	manifestFile = "upload_info.json"
)

// NotFoundError is returned when a dataset or its uploads do not exist.
type NotFoundError struct {
	Dataset string
	URI     string
	Err     error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dataset %s not found at %s", e.Dataset, e.URI)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// LoadError is returned when data could not be loaded into a dataset.
type LoadError struct {
	Dataset string
	URI     string
	State   *TaskState
	Err     error
}

func (e *LoadError) Error() string {
	if e.State != nil {
		return fmt.Sprintf("load of dataset %s failed (%s): %s", e.Dataset, e.URI, e.State.Message())
	}
	return fmt.Sprintf("load of dataset %s failed (%s): %v", e.Dataset, e.URI, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// UpdateError is returned when a MAQL DML update of project data failed.
type UpdateError struct {
	URI   string
	State *TaskState
	Err   error
}

func (e *UpdateError) Error() string {
	if e.State != nil {
		return fmt.Sprintf("update of project data failed (%s): %s", e.URI, e.State.Message())
	}
	return fmt.Sprintf("update of project data failed (%s): %v", e.URI, e.Err)
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}

// Service loads data into datasets.
type Service struct {
	client *gdc.Client
	fs     afero.Fs
	logger hclog.Logger
}

// NewService creates a dataset service. Data files are read from fs; nil
// means the OS file system.
func NewService(c *gdc.Client, fsys afero.Fs) *Service {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Service{
		client: c,
		fs:     fsys,
		logger: c.Logger().Named("dataset"),
	}
}

// GetManifest fetches the load manifest of dataset datasetID.
func (s *Service) GetManifest(ctx context.Context, projectID, datasetID string) (*Manifest, error) {
	uri := manifestTemplate.Expand(projectID, datasetID)
	var m Manifest
	if err := s.client.GetJSON(ctx, uri, &m); err != nil {
		if gdc.IsNotFound(err) {
			return nil, &NotFoundError{Dataset: datasetID, URI: uri, Err: err}
		}
		return nil, fmt.Errorf("failed to get manifest of dataset %s: %w", datasetID, err)
	}
	return &m, nil
}

// pullTask is the answer to a pull request.
type pullTask struct {
	Task struct {
		Links struct {
			Poll string `json:"poll"`
		} `json:"links"`
	} `json:"pull2Task"`
}

// LoadDataset loads data into the dataset of m. Data and manifest are
// uploaded to a fresh staging directory, which is removed once the load
// task ends.
func (s *Service) LoadDataset(ctx context.Context, projectID string, m *Manifest, data io.Reader) (*gdc.FutureResult[*TaskState], error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	manifest, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	dir := gdc.NewStagingDir()
	cleanup := func() { s.client.RemoveStaging(context.Background(), dir) }

	if _, err := s.client.UploadToStaging(ctx, dir, m.File, data); err != nil {
		cleanup()
		return nil, &LoadError{Dataset: m.DataSet, URI: dir.URI(m.File), Err: err}
	}
	if _, err := s.client.UploadToStaging(ctx, dir, manifestFile, bytes.NewReader(manifest)); err != nil {
		cleanup()
		return nil, &LoadError{Dataset: m.DataSet, URI: dir.URI(manifestFile), Err: err}
	}

	uri := pullTemplate.Expand(projectID)
	var task pullTask
	if _, err := s.client.PostJSON(ctx, uri, map[string]string{"pullIntegration": string(dir)}, &task); err != nil {
		cleanup()
		return nil, &LoadError{Dataset: m.DataSet, URI: uri, Err: err}
	}
	poll := task.Task.Links.Poll
	s.logger.Debug("dataset load started", "dataset", m.DataSet, "poll", poll)

	return gdc.NewFutureResult(s.client, gdc.PollHandler[*TaskState]{
		URI: poll,
		Finished: func(resp *gdc.Response) (bool, error) {
			done, err := taskFinished(resp)
			if err != nil {
				cleanup()
				return true, &LoadError{Dataset: m.DataSet, URI: poll, Err: err}
			}
			return done, nil
		},
		Result: func(ctx context.Context, resp *gdc.Response) (*TaskState, error) {
			defer cleanup()
			var state TaskState
			if err := resp.Decode(&state); err != nil {
				return nil, &LoadError{Dataset: m.DataSet, URI: poll, Err: err}
			}
			if !state.IsSuccess() {
				return &state, &LoadError{Dataset: m.DataSet, URI: poll, State: &state}
			}
			s.logger.Info("dataset loaded", "dataset", m.DataSet, "status", state.Status)
			return &state, nil
		},
		Err: func(err error) error {
			cleanup()
			return &LoadError{Dataset: m.DataSet, URI: poll, Err: err}
		},
	}), nil
}

// LoadDatasetFile loads the file at path into the dataset of m.
func (s *Service) LoadDatasetFile(ctx context.Context, projectID string, m *Manifest, path string) (*gdc.FutureResult[*TaskState], error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()
	return s.LoadDataset(ctx, projectID, m, f)
}

// taskFinished accepts a 200 with a task state that is no longer running.
// 202 means the task is still running.
func taskFinished(resp *gdc.Response) (bool, error) {
	if resp.StatusCode != http.StatusOK {
		return false, nil
	}
	var state TaskState
	if err := resp.Decode(&state); err != nil {
		return true, err
	}
	return state.IsFinished(), nil
}

// UpdateProjectData runs the MAQL DML statement maql, for example
// `DELETE FROM {attr.city} WHERE {label.city} = "Prague";`.
func (s *Service) UpdateProjectData(ctx context.Context, projectID, maql string) (*gdc.FutureResult[*TaskState], error) {
	uri := dmlTemplate.Expand(projectID)
	req := map[string]map[string]string{"manage": {"maql": maql}}

	var created struct {
		URI string `json:"uri"`
	}
	if _, err := s.client.PostJSON(ctx, uri, req, &created); err != nil {
		return nil, &UpdateError{URI: uri, Err: err}
	}
	poll := created.URI

	return gdc.NewFutureResult(s.client, gdc.PollHandler[*TaskState]{
		URI:      poll,
		Finished: taskFinished,
		Result: func(ctx context.Context, resp *gdc.Response) (*TaskState, error) {
			var state TaskState
			if err := resp.Decode(&state); err != nil {
				return nil, &UpdateError{URI: poll, Err: err}
			}
			if !state.IsSuccess() {
				return &state, &UpdateError{URI: poll, State: &state}
			}
			return &state, nil
		},
		Err: func(err error) error {
			return &UpdateError{URI: poll, Err: err}
		},
	}), nil
}

// GetUploadsInfo lists the datasets of project projectID with their last
// uploads.
func (s *Service) GetUploadsInfo(ctx context.Context, projectID string) (*UploadsInfo, error) {
	uri := dataSetsTemplate.Expand(projectID)
	var info UploadsInfo
	if err := s.client.GetJSON(ctx, uri, &info); err != nil {
		return nil, fmt.Errorf("failed to get uploads info of project %s: %w", projectID, err)
	}
	return &info, nil
}

func (s *Service) dataSetInfo(ctx context.Context, projectID, datasetID string) (*DataSetInfo, error) {
	info, err := s.GetUploadsInfo(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ds := info.DataSetInfo(datasetID)
	if ds == nil {
		return nil, &NotFoundError{Dataset: datasetID, URI: dataSetsTemplate.Expand(projectID)}
	}
	return ds, nil
}

// ListUploads returns every upload of dataset datasetID.
func (s *Service) ListUploads(ctx context.Context, projectID, datasetID string) ([]Upload, error) {
	ds, err := s.dataSetInfo(ctx, projectID, datasetID)
	if err != nil {
		return nil, err
	}
	if ds.UploadsURI == "" {
		return nil, nil
	}
	uploads, err := gdc.GetAll[Upload](ctx, s.client, ds.UploadsURI, "dataUploads")
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads of dataset %s: %w", datasetID, err)
	}
	return uploads, nil
}

// GetLastUpload returns the most recent upload of dataset datasetID.
func (s *Service) GetLastUpload(ctx context.Context, projectID, datasetID string) (*Upload, error) {
	ds, err := s.dataSetInfo(ctx, projectID, datasetID)
	if err != nil {
		return nil, err
	}
	if ds.LastUpload == nil {
		return nil, &NotFoundError{Dataset: datasetID, URI: ds.UploadsURI}
	}
	return ds.LastUpload, nil
}

// GetUploadStatistics counts the uploads of project projectID by status.
func (s *Service) GetUploadStatistics(ctx context.Context, projectID string) (*UploadStatistics, error) {
	uri := uploadInfoTemplate.Expand(projectID)
	var stats UploadStatistics
	if err := s.client.GetJSON(ctx, uri, &stats); err != nil {
		return nil, fmt.Errorf("failed to get upload statistics of project %s: %w", projectID, err)
	}
	return &stats, nil
}
