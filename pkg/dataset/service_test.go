package dataset_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/gdc/pkg/dataset"
	"github.com/hashicorp-forge/gdc/pkg/gdc/gdctest"
)

// fakeLoadAPI stores staging uploads and runs a pull task that reports
// status after two polls. An empty status answers with a malformed body.
type fakeLoadAPI struct {
	mu      sync.Mutex
	files   map[string]string
	removed []string
	pulled  string
	status  string
}

func (f *fakeLoadAPI) register(t *testing.T, mux *http.ServeMux) {
	mux.HandleFunc("PUT /gdc/uploads/{dir}/{file}", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		f.mu.Lock()
		f.files[r.PathValue("dir")+"/"+r.PathValue("file")] = string(body)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("DELETE /gdc/uploads/{dir}/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.removed = append(f.removed, r.PathValue("dir"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /gdc/md/p1/etl/pull2", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.pulled = req["pullIntegration"]
		f.mu.Unlock()
		gdctest.WriteJSON(w, http.StatusCreated, map[string]any{
			"pull2Task": map[string]any{"links": map[string]string{"poll": "/gdc/md/p1/tasks/t1/status"}},
		})
	})
	mux.HandleFunc("GET /gdc/md/p1/tasks/t1/status", gdctest.Sequence(
		gdctest.Status(http.StatusAccepted, nil),
		gdctest.Status(http.StatusOK, map[string]any{"wTaskStatus": map[string]any{"status": "RUNNING"}}),
		func(w http.ResponseWriter, r *http.Request) {
			if f.status == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("{not json"))
				return
			}
			body := map[string]any{"status": f.status}
			if f.status == "ERROR" {
				body["messages"] = []any{map[string]any{"error": map[string]any{"message": "Invalid row %s", "parameters": []any{"3"}}}}
			}
			gdctest.WriteJSON(w, http.StatusOK, map[string]any{"wTaskStatus": body})
		},
	))
}

func newLoadService(t *testing.T, status string, fs afero.Fs) (*dataset.Service, *fakeLoadAPI) {
	api := &fakeLoadAPI{files: map[string]string{}, status: status}
	mux := http.NewServeMux()
	api.register(t, mux)
	client, _ := gdctest.NewClient(t, mux)
	return dataset.NewService(client, fs), api
}

func personManifest() *dataset.Manifest {
	return dataset.NewManifest("dataset.person", "person.csv",
		dataset.Part{ColumnName: "id", PopulatesField: []string{"label.person.id"}, ReferenceKey: 1},
	)
}

func TestLoadDatasetFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/person.csv", []byte("id\n1\n2\n"), 0o644))
	svc, api := newLoadService(t, "OK", fs)

	future, err := svc.LoadDatasetFile(context.Background(), "p1", personManifest(), "/data/person.csv")
	require.NoError(t, err)

	state, err := future.GetWithTimeout(5 * time.Second)
	require.NoError(t, err)
	assert.True(t, state.IsSuccess())

	api.mu.Lock()
	defer api.mu.Unlock()
	require.NotEmpty(t, api.pulled)
	assert.Equal(t, "id\n1\n2\n", api.files[api.pulled+"/person.csv"])

	var uploaded dataset.Manifest
	require.NoError(t, json.Unmarshal([]byte(api.files[api.pulled+"/upload_info.json"]), &uploaded))
	assert.Equal(t, "dataset.person", uploaded.DataSet)
	assert.Equal(t, []string{api.pulled}, api.removed)
}

func TestLoadDataset_Error(t *testing.T) {
	svc, api := newLoadService(t, "ERROR", nil)

	future, err := svc.LoadDataset(context.Background(), "p1", personManifest(), strings.NewReader("id\nx\n"))
	require.NoError(t, err)

	_, err = future.GetWithTimeout(5 * time.Second)
	var loadErr *dataset.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "dataset.person", loadErr.Dataset)
	assert.Equal(t, "/gdc/md/p1/tasks/t1/status", loadErr.URI)
	assert.Contains(t, err.Error(), "Invalid row 3")

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Len(t, api.removed, 1)
}

func TestLoadDataset_MalformedStatus(t *testing.T) {
	svc, api := newLoadService(t, "", nil)

	future, err := svc.LoadDataset(context.Background(), "p1", personManifest(), strings.NewReader("id\n1\n"))
	require.NoError(t, err)

	_, err = future.GetWithTimeout(5 * time.Second)
	var loadErr *dataset.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "/gdc/md/p1/tasks/t1/status", loadErr.URI)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.NotEmpty(t, api.pulled)
	assert.Equal(t, []string{api.pulled}, api.removed)
}

func TestLoadDataset_InvalidManifest(t *testing.T) {
	svc, _ := newLoadService(t, "OK", nil)
	_, err := svc.LoadDataset(context.Background(), "p1", &dataset.Manifest{}, strings.NewReader(""))
	assert.Error(t, err)
}

func TestGetManifest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gdc/md/p1/ldm/singleloadinterface/{dataset}/manifest", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("dataset") != "dataset.person" {
			gdctest.WriteError(w, http.StatusNotFound, "unknown dataset")
			return
		}
		gdctest.WriteJSON(w, http.StatusOK, personManifest())
	})
	client, _ := gdctest.NewClient(t, mux)
	svc := dataset.NewService(client, nil)
	ctx := context.Background()

	m, err := svc.GetManifest(ctx, "p1", "dataset.person")
	require.NoError(t, err)
	assert.Equal(t, personManifest(), m)

	_, err = svc.GetManifest(ctx, "p1", "dataset.city")
	var notFound *dataset.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "dataset.city", notFound.Dataset)
}

func TestUpdateProjectData(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /gdc/md/p1/dml/manage", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, `DELETE FROM {attr.person};`, req["manage"]["maql"])
		gdctest.WriteJSON(w, http.StatusOK, map[string]string{"uri": "/gdc/md/p1/tasks/dml1/status"})
	})
	mux.HandleFunc("GET /gdc/md/p1/tasks/dml1/status", gdctest.Sequence(
		gdctest.Status(http.StatusOK, map[string]any{"wTaskStatus": map[string]any{"status": "RUNNING"}}),
		gdctest.Status(http.StatusOK, map[string]any{"wTaskStatus": map[string]any{"status": "OK"}}),
	))
	client, _ := gdctest.NewClient(t, mux)
	svc := dataset.NewService(client, nil)

	future, err := svc.UpdateProjectData(context.Background(), "p1", `DELETE FROM {attr.person};`)
	require.NoError(t, err)
	state, err := future.GetWithTimeout(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, dataset.TaskOK, state.Status)
}

func TestUploads(t *testing.T) {
	upload := func(id string, status string) map[string]any {
		return map[string]any{"dataUpload": map[string]any{
			"uri":       "/gdc/md/p1/data/upload/" + id,
			"status":    status,
			"progress":  1,
			"createdAt": "2024-04-01 10:00:00",
		}}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/gdc/md/p1/data/sets", func(w http.ResponseWriter, r *http.Request) {
		gdctest.WriteJSON(w, http.StatusOK, map[string]any{"dataSetsInfo": map[string]any{"items": []any{
			map[string]any{"dataSet": map[string]any{
				"meta":       map[string]any{"identifier": "dataset.person"},
				"uploadsURI": "/gdc/md/p1/data/uploads/person",
				"lastUpload": upload("2", "ERROR"),
			}},
			map[string]any{"dataSet": map[string]any{"meta": map[string]any{"identifier": "dataset.city"}}},
		}}})
	})
	mux.HandleFunc("/gdc/md/p1/data/uploads/person", func(w http.ResponseWriter, r *http.Request) {
		gdctest.WriteJSON(w, http.StatusOK, map[string]any{"dataUploads": map[string]any{
			"items": []any{upload("2", "ERROR"), upload("1", "OK")},
		}})
	})
	mux.HandleFunc("/gdc/md/p1/data/uploads_info", func(w http.ResponseWriter, r *http.Request) {
		gdctest.WriteJSON(w, http.StatusOK, map[string]any{"dataUploadsInfo": map[string]any{
			"statusCount": map[string]int{"OK": 1, "ERROR": 1},
		}})
	})
	client, _ := gdctest.NewClient(t, mux)
	svc := dataset.NewService(client, nil)
	ctx := context.Background()

	uploads, err := svc.ListUploads(ctx, "p1", "dataset.person")
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	assert.Equal(t, "2", uploads[0].ID())
	assert.Equal(t, 2024, uploads[0].CreatedAt.Year())

	last, err := svc.GetLastUpload(ctx, "p1", "dataset.person")
	require.NoError(t, err)
	assert.Equal(t, dataset.UploadError, last.Status)

	var notFound *dataset.NotFoundError
	_, err = svc.GetLastUpload(ctx, "p1", "dataset.city")
	assert.True(t, errors.As(err, &notFound))
	_, err = svc.ListUploads(ctx, "p1", "dataset.unknown")
	assert.True(t, errors.As(err, &notFound))

	stats, err := svc.GetUploadStatistics(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total())
}
