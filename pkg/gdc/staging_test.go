package gdc_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
	"github.com/hashicorp-forge/gdc/pkg/gdc/gdctest"
)

func TestStagingDir(t *testing.T) {
	dir := gdc.StagingDir("abc")
	assert.Equal(t, "/gdc/uploads/abc/data.csv", dir.URI("data.csv"))
	assert.Equal(t, "/uploads/abc/data.csv", dir.Path("data.csv"))

	assert.NotEqual(t, gdc.NewStagingDir(), gdc.NewStagingDir())
}

func TestClient_UploadToStaging(t *testing.T) {
	var mu sync.Mutex
	var methods []string
	uploaded := map[string]string{}

	client, _ := gdctest.NewClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		methods = append(methods, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPut {
			body, _ := io.ReadAll(r.Body)
			uploaded[r.URL.Path] = string(body)
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	ctx := context.Background()
	dir := gdc.StagingDir("d1")

	ref, err := client.UploadToStaging(ctx, dir, "process.zip", strings.NewReader("zip"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/d1/process.zip", ref)

	client.RemoveStaging(ctx, dir)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "zip", uploaded["/gdc/uploads/d1/process.zip"])
	assert.Equal(t, []string{"PUT /gdc/uploads/d1/process.zip", "DELETE /gdc/uploads/d1/"}, methods)
}
