package execution

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

const executeAfmTemplate gdc.Template = "/gdc/app/projects/{projectId}/executeAfm"

// ExecutionError is returned when the result of an execution cannot be
// computed.
type ExecutionError struct {
	URI string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution result %s failed: %v", e.URI, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Service runs AFM executions.
type Service struct {
	client *gdc.Client
	logger hclog.Logger
}

// NewService creates an execution service.
func NewService(c *gdc.Client) *Service {
	return &Service{
		client: c,
		logger: c.Logger().Named("execution"),
	}
}

// Execute starts ex in project projectID.
func (s *Service) Execute(ctx context.Context, projectID string, ex *Execution) (*ExecutionResponse, error) {
	uri := executeAfmTemplate.Expand(projectID)

	req := map[string]*Execution{"execution": ex}
	var resp struct {
		ExecutionResponse *ExecutionResponse `json:"executionResponse"`
	}
	if _, err := s.client.PostJSON(ctx, uri, req, &resp); err != nil {
		return nil, &ExecutionError{URI: uri, Err: err}
	}
	if resp.ExecutionResponse == nil {
		return nil, &ExecutionError{URI: uri, Err: fmt.Errorf("response has no %q key", "executionResponse")}
	}

	s.logger.Debug("execution started", "project", projectID, "result", resp.ExecutionResponse.ResultURI())
	return resp.ExecutionResponse, nil
}

// GetResult polls the result of an execution: 202 while computing, 200 with
// the result, 204 when the result is empty.
func (s *Service) GetResult(resp *ExecutionResponse) *gdc.FutureResult[*ExecutionResult] {
	uri := resp.ResultURI()
	return gdc.NewFutureResult(s.client, gdc.PollHandler[*ExecutionResult]{
		URI: uri,
		Finished: func(r *gdc.Response) (bool, error) {
			switch r.StatusCode {
			case http.StatusOK:
				return true, nil
			case http.StatusAccepted:
				return false, nil
			case http.StatusNoContent:
				return true, &ExecutionError{URI: uri, Err: gdc.ErrNoData}
			default:
				return true, &ExecutionError{URI: uri, Err: fmt.Errorf("unexpected status %d", r.StatusCode)}
			}
		},
		Result: func(ctx context.Context, r *gdc.Response) (*ExecutionResult, error) {
			var result ExecutionResult
			if err := r.Decode(&result); err != nil {
				return nil, &ExecutionError{URI: uri, Err: err}
			}
			return &result, nil
		},
		Err: func(err error) error {
			return &ExecutionError{URI: uri, Err: err}
		},
	})
}

// ExecuteAndGet runs ex and waits for its result.
func (s *Service) ExecuteAndGet(ctx context.Context, projectID string, ex *Execution) (*ExecutionResult, error) {
	resp, err := s.Execute(ctx, projectID, ex)
	if err != nil {
		return nil, err
	}
	return s.GetResult(resp).Get(ctx)
}
