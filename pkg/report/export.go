package report

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

const (
	rawExportTemplate gdc.Template = "/gdc/app/projects/{projectId}/execute/raw"
	exporterURI                    = "/gdc/exporter/executor"
)

// ExportFormat is the file format of a report export.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLS  ExportFormat = "xls"
	ExportXLSX ExportFormat = "xlsx"
	ExportPDF  ExportFormat = "pdf"
	ExportPNG  ExportFormat = "png"
)

// ExportError is returned when an export fails or produces no data.
type ExportError struct {
	URI string
	Err error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s failed: %v", e.URI, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// ExportService exports reports and report definitions.
type ExportService struct {
	client *gdc.Client
	logger hclog.Logger
}

// NewExportService creates an export service.
func NewExportService(c *gdc.Client) *ExportService {
	return &ExportService{
		client: c,
		logger: c.Logger().Named("export"),
	}
}

type uriResponse struct {
	URI string `json:"uri"`
}

// ExportCSV exports the raw data of the report definition at definitionURI
// of project projectID as CSV into w. The result is the number of bytes
// written.
func (s *ExportService) ExportCSV(ctx context.Context, projectID, definitionURI string, w io.Writer) (*gdc.FutureResult[int64], error) {
	uri := rawExportTemplate.Expand(projectID)
	req := map[string]any{
		"report_req": map[string]string{"reportDefinition": definitionURI},
	}

	var task uriResponse
	if _, err := s.client.PostJSON(ctx, uri, req, &task); err != nil {
		return nil, &ExportError{URI: definitionURI, Err: err}
	}
	s.logger.Debug("raw export started", "definition", definitionURI, "poll", task.URI)

	return s.download(task.URI, definitionURI, w), nil
}

// ExportReport exports the report at reportURI in format into w. The
// result is the number of bytes written.
func (s *ExportService) ExportReport(ctx context.Context, reportURI string, format ExportFormat, w io.Writer) (*gdc.FutureResult[int64], error) {
	req := map[string]any{
		"result_req": map[string]string{
			"format": string(format),
			"report": reportURI,
		},
	}

	var task uriResponse
	if _, err := s.client.PostJSON(ctx, exporterURI, req, &task); err != nil {
		return nil, &ExportError{URI: reportURI, Err: err}
	}
	s.logger.Debug("report export started", "report", reportURI, "format", format, "poll", task.URI)

	return s.download(task.URI, reportURI, w), nil
}

// download polls uri: 202 while running, 200 with the file, 204 when the
// export is empty.
func (s *ExportService) download(uri, source string, w io.Writer) *gdc.FutureResult[int64] {
	return gdc.NewFutureResult(s.client, gdc.PollHandler[int64]{
		URI: uri,
		Finished: func(resp *gdc.Response) (bool, error) {
			switch resp.StatusCode {
			case http.StatusOK:
				return true, nil
			case http.StatusAccepted:
				return false, nil
			case http.StatusNoContent:
				return true, &ExportError{URI: source, Err: gdc.ErrNoData}
			default:
				return true, &ExportError{URI: source, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
			}
		},
		Result: func(ctx context.Context, resp *gdc.Response) (int64, error) {
			n, err := w.Write(resp.Body)
			if err != nil {
				return int64(n), &ExportError{URI: source, Err: err}
			}
			return int64(n), nil
		},
		Err: func(err error) error {
			return &ExportError{URI: source, Err: err}
		},
	})
}
