package connector

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

const (
	integrationTemplate gdc.Template = "/gdc/projects/{projectId}/connectors/{connector}/integration"
	settingsTemplate    gdc.Template = "/gdc/projects/{projectId}/connectors/{connector}/integration/config/settings"
	processesTemplate   gdc.Template = "/gdc/projects/{projectId}/connectors/{connector}/integration/processes"
	processTemplate     gdc.Template = "/gdc/projects/{projectId}/connectors/{connector}/integration/processes/{processId}"
	reloadsTemplate     gdc.Template = "/gdc/projects/{projectId}/connectors/zendesk4/reloads"
	reloadTemplate      gdc.Template = "/gdc/projects/{projectId}/connectors/zendesk4/reloads/{reloadId}"
)

// IntegrationNotFoundError is returned when a project has no integration of
// a connector type.
type IntegrationNotFoundError struct {
	ProjectID string
	Type      Type
	URI       string
	Err       error
}

func (e *IntegrationNotFoundError) Error() string {
	return fmt.Sprintf("%s integration of project %s not found at %s", e.Type, e.ProjectID, e.URI)
}

func (e *IntegrationNotFoundError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when a connector process or reload does not
// exist.
type NotFoundError struct {
	URI string
	Err error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("connector resource %s not found", e.URI)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// ProcessError is returned when a connector process finished with an error.
type ProcessError struct {
	URI    string
	Status *Status
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("connector process %s failed: %s", e.URI, e.Status)
}

// Service manages connector integrations.
type Service struct {
	client *gdc.Client
	logger hclog.Logger
}

// NewService creates a connector service.
func NewService(c *gdc.Client) *Service {
	return &Service{
		client: c,
		logger: c.Logger().Named("connector"),
	}
}

func (s *Service) wrapIntegration(err error, projectID string, t Type, uri, action string) error {
	if gdc.IsNotFound(err) {
		return &IntegrationNotFoundError{ProjectID: projectID, Type: t, URI: uri, Err: err}
	}
	return fmt.Errorf("failed to %s %s integration of project %s: %w", action, t, projectID, err)
}

func wrap(err error, uri, action string) error {
	if gdc.IsNotFound(err) {
		return &NotFoundError{URI: uri, Err: err}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// GetIntegration fetches the integration of connector t in project
// projectID.
func (s *Service) GetIntegration(ctx context.Context, projectID string, t Type) (*Integration, error) {
	uri := integrationTemplate.Expand(projectID, t.Name())
	var i Integration
	if err := s.client.GetJSON(ctx, uri, &i); err != nil {
		return nil, s.wrapIntegration(err, projectID, t, uri, "get")
	}
	return &i, nil
}

// CreateIntegration creates the integration of connector t in project
// projectID.
func (s *Service) CreateIntegration(ctx context.Context, projectID string, t Type, i *Integration) (*Integration, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid connector type %q: %w", t, err)
	}
	if err := i.Validate(); err != nil {
		return nil, fmt.Errorf("invalid integration: %w", err)
	}

	uri := integrationTemplate.Expand(projectID, t.Name())
	var created Integration
	if _, err := s.client.PostJSON(ctx, uri, i.request(), &created); err != nil {
		return nil, s.wrapIntegration(err, projectID, t, uri, "create")
	}
	s.logger.Info("integration created", "project", projectID, "connector", t)
	return &created, nil
}

// UpdateIntegration stores i and returns the integration as read back from
// the API.
func (s *Service) UpdateIntegration(ctx context.Context, projectID string, t Type, i *Integration) (*Integration, error) {
	if err := i.Validate(); err != nil {
		return nil, fmt.Errorf("invalid integration: %w", err)
	}

	uri := integrationTemplate.Expand(projectID, t.Name())
	if _, err := s.client.PutJSON(ctx, uri, i.request(), nil); err != nil {
		return nil, s.wrapIntegration(err, projectID, t, uri, "update")
	}
	s.logger.Debug("integration updated", "project", projectID, "connector", t)
	return s.GetIntegration(ctx, projectID, t)
}

// DeleteIntegration removes the integration of connector t.
func (s *Service) DeleteIntegration(ctx context.Context, projectID string, t Type) error {
	uri := integrationTemplate.Expand(projectID, t.Name())
	if _, err := s.client.Delete(ctx, uri); err != nil {
		return s.wrapIntegration(err, projectID, t, uri, "delete")
	}
	s.logger.Info("integration deleted", "project", projectID, "connector", t)
	return nil
}

// GetSettings fetches the settings of connector t.
func (s *Service) GetSettings(ctx context.Context, projectID string, t Type) (Settings, error) {
	uri := settingsTemplate.Expand(projectID, t.Name())
	var settings Settings
	if err := s.client.GetJSON(ctx, uri, &settings); err != nil {
		return nil, s.wrapIntegration(err, projectID, t, uri, "get settings of")
	}
	return settings, nil
}

// UpdateSettings stores the settings of connector t.
func (s *Service) UpdateSettings(ctx context.Context, projectID string, t Type, settings Settings) error {
	uri := settingsTemplate.Expand(projectID, t.Name())
	if _, err := s.client.PutJSON(ctx, uri, settings, nil); err != nil {
		return s.wrapIntegration(err, projectID, t, uri, "update settings of")
	}
	s.logger.Debug("connector settings updated", "project", projectID, "connector", t)
	return nil
}

// ExecuteProcess starts a run of connector t. The run is polled until its
// status is terminal; a failed run yields *ProcessError.
func (s *Service) ExecuteProcess(
	ctx context.Context, projectID string, t Type, execution *ProcessExecution,
) (*gdc.FutureResult[*IntegrationProcessStatus], error) {
	if execution == nil {
		execution = NewProcessExecution()
	}

	uri := processesTemplate.Expand(projectID, t.Name())
	var created struct {
		URI string `json:"uri"`
	}
	if _, err := s.client.PostJSON(ctx, uri, execution, &created); err != nil {
		return nil, s.wrapIntegration(err, projectID, t, uri, "execute process of")
	}
	processURI := created.URI
	s.logger.Debug("connector process started", "connector", t, "uri", processURI)

	return gdc.NewFutureResult(s.client, gdc.PollHandler[*IntegrationProcessStatus]{
		URI: processURI,
		Finished: func(resp *gdc.Response) (bool, error) {
			if resp.StatusCode != http.StatusOK {
				return false, nil
			}
			var status IntegrationProcessStatus
			if err := resp.Decode(&status); err != nil {
				return true, fmt.Errorf("cannot get status of connector process %s: %w", processURI, err)
			}
			return status.IsFinished(), nil
		},
		Result: func(ctx context.Context, resp *gdc.Response) (*IntegrationProcessStatus, error) {
			var status IntegrationProcessStatus
			if err := resp.Decode(&status); err != nil {
				return nil, err
			}
			if status.IsFailed() {
				return &status, &ProcessError{URI: processURI, Status: status.Status}
			}
			s.logger.Info("connector process finished", "connector", t, "uri", processURI)
			return &status, nil
		},
		Err: func(err error) error {
			return fmt.Errorf("cannot get status of connector process %s: %w", processURI, err)
		},
	}), nil
}

// GetProcessStatus fetches run processID of connector t.
func (s *Service) GetProcessStatus(ctx context.Context, projectID string, t Type, processID string) (*IntegrationProcessStatus, error) {
	uri := processTemplate.Expand(projectID, t.Name(), processID)
	var status IntegrationProcessStatus
	if err := s.client.GetJSON(ctx, uri, &status); err != nil {
		return nil, wrap(err, uri, "get connector process "+uri)
	}
	return &status, nil
}

// ScheduleReload schedules a Zendesk reload and returns it as created.
func (s *Service) ScheduleReload(ctx context.Context, projectID string, r *Reload) (*Reload, error) {
	uri := reloadsTemplate.Expand(projectID)
	request := &Reload{StartTimes: r.StartTimes}
	var created Reload
	if _, err := s.client.PostJSON(ctx, uri, request, &created); err != nil {
		return nil, s.wrapIntegration(err, projectID, Zendesk4, uri, "schedule reload of")
	}
	s.logger.Info("reload scheduled", "project", projectID, "uri", created.URI())
	return &created, nil
}

// GetReload fetches reload id of project projectID.
func (s *Service) GetReload(ctx context.Context, projectID string, id int64) (*Reload, error) {
	return s.GetReloadByURI(ctx, reloadTemplate.Expand(projectID, fmt.Sprint(id)))
}

// GetReloadByURI fetches the reload at uri.
func (s *Service) GetReloadByURI(ctx context.Context, uri string) (*Reload, error) {
	var r Reload
	if err := s.client.GetJSON(ctx, uri, &r); err != nil {
		return nil, wrap(err, uri, "get reload "+uri)
	}
	return &r, nil
}
