package process

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

const (
	processesTemplate     gdc.Template = "/gdc/projects/{projectId}/dataload/processes"
	processTemplate       gdc.Template = "/gdc/projects/{projectId}/dataload/processes/{processId}"
	userProcessesTemplate gdc.Template = "/gdc/account/profile/{userId}/dataload/processes"
	schedulesTemplate     gdc.Template = "/gdc/projects/{projectId}/schedules"
	scheduleTemplate      gdc.Template = "/gdc/projects/{projectId}/schedules/{scheduleId}"

	archiveName = "process.zip"
)

// NotFoundError is returned when a process or schedule does not exist.
type NotFoundError struct {
	URI string
	Err error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.URI)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// ExecutionError is returned when a process execution did not finish with
// status OK.
type ExecutionError struct {
	URI    string
	Detail *ExecutionDetail
	Err    error
}

func (e *ExecutionError) Error() string {
	switch {
	case e.Detail != nil && e.Detail.Error != nil:
		return fmt.Sprintf("execution %s finished with status %s: %s", e.URI, e.Detail.Status, e.Detail.Error)
	case e.Detail != nil:
		return fmt.Sprintf("execution %s finished with status %s", e.URI, e.Detail.Status)
	default:
		return fmt.Sprintf("execution %s failed: %v", e.URI, e.Err)
	}
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ScheduleError is returned when a schedule execution did not
// finish with status OK.
type ScheduleError struct {
	URI       string
	Execution *ScheduleExecution
	Err       error
}

func (e *ScheduleError) Error() string {
	if e.Execution != nil {
		return fmt.Sprintf("schedule execution %s finished with status %s", e.URI, e.Execution.Status)
	}
	return fmt.Sprintf("schedule execution %s failed: %v", e.URI, e.Err)
}

func (e *ScheduleError) Unwrap() error {
	return e.Err
}

// Service deploys and runs processes and manages their schedules.
type Service struct {
	client *gdc.Client
	fs     afero.Fs
	logger hclog.Logger
}

// NewService creates a process service. Process sources are read from fs;
// nil means the OS file system.
func NewService(c *gdc.Client, fsys afero.Fs) *Service {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Service{
		client: c,
		fs:     fsys,
		logger: c.Logger().Named("process"),
	}
}

func wrap(err error, uri, action string) error {
	if gdc.IsNotFound(err) {
		return &NotFoundError{URI: uri, Err: err}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// CreateProcess deploys p to project projectID with the content of
// sourceDir. DATALOAD processes have no source; pass "".
func (s *Service) CreateProcess(ctx context.Context, projectID string, p *Process, sourceDir string) (*Process, error) {
	return s.deploy(ctx, http.MethodPost, processesTemplate.Expand(projectID), p, sourceDir)
}

// CreateProcessFromArchive deploys p with the zip archive read from r.
func (s *Service) CreateProcessFromArchive(ctx context.Context, projectID string, p *Process, r io.Reader) (*Process, error) {
	return s.deployArchive(ctx, http.MethodPost, processesTemplate.Expand(projectID), p, r)
}

// UpdateProcess redeploys p with the content of sourceDir.
func (s *Service) UpdateProcess(ctx context.Context, p *Process, sourceDir string) (*Process, error) {
	if p.URI() == "" {
		return nil, fmt.Errorf("process %s has no self link", p.Name)
	}
	return s.deploy(ctx, http.MethodPut, p.URI(), p, sourceDir)
}

func (s *Service) deploy(ctx context.Context, method, uri string, p *Process, sourceDir string) (*Process, error) {
	if sourceDir == "" {
		return s.send(ctx, method, uri, p)
	}

	archive, err := s.zipDir(sourceDir)
	if err != nil {
		return nil, err
	}
	return s.deployArchive(ctx, method, uri, p, archive)
}

func (s *Service) deployArchive(ctx context.Context, method, uri string, p *Process, r io.Reader) (*Process, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid process: %w", err)
	}

	dir := gdc.NewStagingDir()
	path, err := s.client.UploadToStaging(ctx, dir, archiveName, r)
	if err != nil {
		return nil, err
	}
	defer s.client.RemoveStaging(context.Background(), dir)

	deployed := *p
	deployed.Path = path
	deployed.Links = nil
	return s.send(ctx, method, uri, &deployed)
}

func (s *Service) send(ctx context.Context, method, uri string, p *Process) (*Process, error) {
	var out Process
	if _, err := s.client.Execute(ctx, method, uri, p, &out); err != nil {
		return nil, wrap(err, uri, "deploy process "+p.Name)
	}
	s.logger.Info("process deployed", "name", out.Name, "uri", out.URI())
	return &out, nil
}

// zipDir packs the files below dir into a zip archive.
func (s *Service) zipDir(dir string) (*bytes.Buffer, error) {
	info, err := s.fs.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read process source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("process source %s is not a directory", dir)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	err = afero.Walk(s.fs, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := s.fs.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pack process source %s: %w", dir, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to pack process source %s: %w", dir, err)
	}
	return &buf, nil
}

// GetProcessByURI fetches the process at uri.
func (s *Service) GetProcessByURI(ctx context.Context, uri string) (*Process, error) {
	var p Process
	if err := s.client.GetJSON(ctx, uri, &p); err != nil {
		return nil, wrap(err, uri, "get process "+uri)
	}
	return &p, nil
}

// GetProcessByID fetches process processID of project projectID.
func (s *Service) GetProcessByID(ctx context.Context, projectID, processID string) (*Process, error) {
	return s.GetProcessByURI(ctx, processTemplate.Expand(projectID, processID))
}

// ListProcesses returns the processes of project projectID.
func (s *Service) ListProcesses(ctx context.Context, projectID string) ([]Process, error) {
	uri := processesTemplate.Expand(projectID)
	all, err := gdc.GetAll[Process](ctx, s.client, uri, "processes")
	if err != nil {
		return nil, wrap(err, uri, "list processes of project "+projectID)
	}
	return all, nil
}

// ListUserProcesses returns the processes of all projects of the current
// user.
func (s *Service) ListUserProcesses(ctx context.Context) ([]Process, error) {
	profile, err := s.client.CurrentProfileURI(ctx)
	if err != nil {
		return nil, err
	}
	uri := userProcessesTemplate.Expand(gdc.IDFromURI(profile))
	all, err := gdc.GetAll[Process](ctx, s.client, uri, "processes")
	if err != nil {
		return nil, wrap(err, uri, "list user processes")
	}
	return all, nil
}

// RemoveProcess deletes p.
func (s *Service) RemoveProcess(ctx context.Context, p *Process) error {
	if _, err := s.client.Delete(ctx, p.URI()); err != nil {
		return wrap(err, p.URI(), "remove process "+p.Name)
	}
	s.logger.Info("process removed", "uri", p.URI())
	return nil
}

// GetProcessSource writes the deployed archive of p to w.
func (s *Service) GetProcessSource(ctx context.Context, p *Process, w io.Writer) error {
	uri := p.SourceURI()
	if uri == "" {
		return fmt.Errorf("process %s has no source", p.Name)
	}
	if _, err := s.client.Download(ctx, uri, w); err != nil {
		return wrap(err, uri, "download process source")
	}
	return nil
}

// ExecuteProcess runs ex. The task is polled until it answers 204, then the
// execution detail is fetched.
func (s *Service) ExecuteProcess(ctx context.Context, p *Process, ex *Execution) (*gdc.FutureResult[*ExecutionDetail], error) {
	if ex == nil {
		return nil, errors.New("no execution to run")
	}
	if err := ex.Validate(); err != nil {
		return nil, fmt.Errorf("invalid execution: %w", err)
	}
	uri := p.ExecutionsURI()
	if uri == "" {
		return nil, fmt.Errorf("process %s has no executions link", p.Name)
	}

	var task executionTask
	req := map[string]*Execution{"execution": ex}
	if _, err := s.client.PostJSON(ctx, uri, req, &task); err != nil {
		return nil, &ExecutionError{URI: uri, Err: err}
	}
	links := task.ExecutionTask.Links
	s.logger.Debug("process execution started", "process", p.URI(), "executable", ex.Executable, "poll", links.Poll)

	return gdc.NewFutureResult(s.client, gdc.PollHandler[*ExecutionDetail]{
		URI: links.Poll,
		Finished: func(resp *gdc.Response) (bool, error) {
			return resp.StatusCode == http.StatusNoContent, nil
		},
		Result: func(ctx context.Context, resp *gdc.Response) (*ExecutionDetail, error) {
			var body executionDetailBody
			if err := s.client.GetJSON(ctx, links.Detail, &body); err != nil {
				return nil, &ExecutionError{URI: links.Detail, Err: err}
			}
			detail := body.ExecutionDetail
			if detail == nil {
				return nil, &ExecutionError{URI: links.Detail, Err: fmt.Errorf("response has no %q key", "executionDetail")}
			}
			if !detail.IsSuccess() {
				return detail, &ExecutionError{URI: links.Detail, Detail: detail}
			}
			s.logger.Info("process execution finished", "process", p.URI(), "status", detail.Status)
			return detail, nil
		},
		Err: func(err error) error {
			return &ExecutionError{URI: links.Poll, Err: err}
		},
	}), nil
}

// GetExecutionLog writes the log of an execution to w.
func (s *Service) GetExecutionLog(ctx context.Context, d *ExecutionDetail, w io.Writer) error {
	uri := d.Links.Log
	if uri == "" {
		return fmt.Errorf("execution %s has no log", d.Links.Self)
	}
	if _, err := s.client.Download(ctx, uri, w); err != nil {
		return wrap(err, uri, "download execution log")
	}
	return nil
}

// CreateSchedule stores sch in project projectID.
func (s *Service) CreateSchedule(ctx context.Context, projectID string, sch *Schedule) (*Schedule, error) {
	if err := sch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}
	uri := schedulesTemplate.Expand(projectID)

	var out Schedule
	if _, err := s.client.PostJSON(ctx, uri, sch, &out); err != nil {
		return nil, wrap(err, uri, "create schedule")
	}
	s.logger.Info("schedule created", "uri", out.URI())
	return &out, nil
}

// UpdateSchedule stores sch and returns the updated schedule.
func (s *Service) UpdateSchedule(ctx context.Context, sch *Schedule) (*Schedule, error) {
	uri := sch.URI()
	if uri == "" {
		return nil, fmt.Errorf("schedule has no self link")
	}
	if err := sch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}

	update := *sch
	update.Links = nil
	update.NextExecutionTime = nil
	update.ConsecutiveFailedExecutionCount = 0

	var out Schedule
	if _, err := s.client.PutJSON(ctx, uri, &update, &out); err != nil {
		return nil, wrap(err, uri, "update schedule")
	}
	return &out, nil
}

// GetScheduleByURI fetches the schedule at uri.
func (s *Service) GetScheduleByURI(ctx context.Context, uri string) (*Schedule, error) {
	var sch Schedule
	if err := s.client.GetJSON(ctx, uri, &sch); err != nil {
		return nil, wrap(err, uri, "get schedule "+uri)
	}
	return &sch, nil
}

// GetScheduleByID fetches schedule scheduleID of project projectID.
func (s *Service) GetScheduleByID(ctx context.Context, projectID, scheduleID string) (*Schedule, error) {
	return s.GetScheduleByURI(ctx, scheduleTemplate.Expand(projectID, scheduleID))
}

// ListSchedules returns one page of the schedules of project projectID.
func (s *Service) ListSchedules(ctx context.Context, projectID string, page *gdc.PageRequest) (*gdc.Page[Schedule], error) {
	uri := schedulesTemplate.Expand(projectID)
	p, err := gdc.GetPage[Schedule](ctx, s.client, page.Apply(uri), "schedules")
	if err != nil {
		return nil, wrap(err, uri, "list schedules of project "+projectID)
	}
	return p, nil
}

// ListAllSchedules returns every schedule of project projectID.
func (s *Service) ListAllSchedules(ctx context.Context, projectID string) ([]Schedule, error) {
	uri := schedulesTemplate.Expand(projectID)
	all, err := gdc.GetAll[Schedule](ctx, s.client, uri, "schedules")
	if err != nil {
		return nil, wrap(err, uri, "list schedules of project "+projectID)
	}
	return all, nil
}

// RemoveSchedule deletes sch.
func (s *Service) RemoveSchedule(ctx context.Context, sch *Schedule) error {
	if _, err := s.client.Delete(ctx, sch.URI()); err != nil {
		return wrap(err, sch.URI(), "remove schedule")
	}
	return nil
}

// ExecuteSchedule runs sch now. The execution is polled until its status is
// terminal.
func (s *Service) ExecuteSchedule(ctx context.Context, sch *Schedule) (*gdc.FutureResult[*ScheduleExecution], error) {
	uri := sch.ExecutionsURI()

	var started scheduleExecutionBody
	req := map[string]any{"execution": map[string]any{}}
	if _, err := s.client.PostJSON(ctx, uri, req, &started); err != nil {
		return nil, &ScheduleError{URI: uri, Err: err}
	}
	if started.Execution == nil {
		return nil, &ScheduleError{URI: uri, Err: fmt.Errorf("response has no %q key", "execution")}
	}
	pollURI := started.Execution.Links.Self

	return gdc.NewFutureResult(s.client, gdc.PollHandler[*ScheduleExecution]{
		URI: pollURI,
		Finished: func(resp *gdc.Response) (bool, error) {
			if resp.StatusCode != http.StatusOK {
				return false, nil
			}
			var body scheduleExecutionBody
			if err := resp.Decode(&body); err != nil {
				return true, &ScheduleError{URI: pollURI, Err: err}
			}
			return body.Execution != nil && body.Execution.IsFinished(), nil
		},
		Result: func(ctx context.Context, resp *gdc.Response) (*ScheduleExecution, error) {
			var body scheduleExecutionBody
			if err := resp.Decode(&body); err != nil {
				return nil, &ScheduleError{URI: pollURI, Err: err}
			}
			if !body.Execution.IsSuccess() {
				return body.Execution, &ScheduleError{URI: pollURI, Execution: body.Execution}
			}
			return body.Execution, nil
		},
		Err: func(err error) error {
			return &ScheduleError{URI: pollURI, Err: err}
		},
	}), nil
}
