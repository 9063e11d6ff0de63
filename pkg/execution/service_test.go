package execution_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/gdc/pkg/execution"
	"github.com/hashicorp-forge/gdc/pkg/gdc"
	"github.com/hashicorp-forge/gdc/pkg/gdc/gdctest"
)

const resultURI = "/gdc/app/projects/p1/executionResults/123?q=abc&offset=0,0&limit=1000,1000"

func executionServer(t *testing.T, result http.HandlerFunc) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/gdc/app/projects/p1/executeAfm", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Execution execution.Execution `json:"execution"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "m1", req.Execution.Afm.Measures[0].LocalIdentifier)

		gdctest.WriteJSON(w, http.StatusCreated, map[string]any{
			"executionResponse": map[string]any{
				"dimensions": []any{},
				"links":      map[string]string{"executionResult": resultURI},
			},
		})
	})
	mux.HandleFunc("/gdc/app/projects/p1/executionResults/123", gdctest.Sequence(
		gdctest.Status(http.StatusAccepted, nil),
		result,
	))
	return mux
}

func newExecution() *execution.Execution {
	return &execution.Execution{
		Afm: &execution.Afm{
			Measures: []execution.MeasureItem{{
				Definition: execution.MeasureDefinition{
					Measure: &execution.SimpleMeasure{Item: execution.ObjQualifier{URI: "/gdc/md/p1/obj/42"}},
				},
				LocalIdentifier: "m1",
			}},
		},
	}
}

func TestService_ExecuteAndGet(t *testing.T) {
	client, _ := gdctest.NewClient(t, executionServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"executionResult": {"data": [["10"]], "paging": {"count": [1, 1], "offset": [0, 0], "total": [1, 1]}}}`)
	}))
	svc := execution.NewService(client)

	result, err := svc.ExecuteAndGet(context.Background(), "p1", newExecution())
	require.NoError(t, err)
	assert.Equal(t, "10", result.Data.List()[0].List()[0].TextValue())
}

func TestService_GetResult_NoData(t *testing.T) {
	client, _ := gdctest.NewClient(t, executionServer(t, gdctest.Status(http.StatusNoContent, nil)))
	svc := execution.NewService(client)
	ctx := context.Background()

	resp, err := svc.Execute(ctx, "p1", newExecution())
	require.NoError(t, err)
	assert.Equal(t, resultURI, resp.ResultURI())

	_, err = svc.GetResult(resp).Get(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, gdc.ErrNoData)
	assert.Contains(t, err.Error(), resultURI)
}

func TestService_GetResult_Failed(t *testing.T) {
	client, _ := gdctest.NewClient(t, executionServer(t, func(w http.ResponseWriter, r *http.Request) {
		gdctest.WriteError(w, http.StatusRequestEntityTooLarge, "result too large")
	}))
	svc := execution.NewService(client)
	ctx := context.Background()

	resp, err := svc.Execute(ctx, "p1", newExecution())
	require.NoError(t, err)

	_, err = svc.GetResult(resp).Get(ctx)
	var execErr *execution.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, resultURI, execErr.URI)
	assert.Equal(t, http.StatusRequestEntityTooLarge, gdc.StatusCode(err))
}

func TestService_Execute_Rejected(t *testing.T) {
	client, _ := gdctest.NewClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gdctest.WriteError(w, http.StatusBadRequest, "invalid afm")
	}))
	svc := execution.NewService(client)

	_, err := svc.Execute(context.Background(), "p1", newExecution())
	var execErr *execution.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "/gdc/app/projects/p1/executeAfm", execErr.URI)
}
