// Package gdctest provides a fake platform API for tests of gdc services.
package gdctest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

// Token is the API token test clients authenticate with.
const Token = "test-api-token"

// NewClient starts an httptest server with handler and returns a client
// pointed at it. Polling runs every 5ms.
func NewClient(t testing.TB, handler http.Handler) (*gdc.Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := gdc.New(&gdc.Config{
		Endpoint:     srv.URL,
		APIToken:     Token,
		Timeout:      5 * time.Second,
		PollInterval: 5 * time.Millisecond,
		Logger:       hclog.NewNullLogger(),
	})
	require.NoError(t, err)

	return client, srv
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError writes a platform error body.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]any{
		"error": map[string]any{
			"message":    message,
			"errorClass": "com.gooddata.exception.TestException",
			"component":  "Test",
			"requestId":  "test-request",
		},
	})
}

// Sequence returns a handler that serves the given handlers one per call and
// repeats the last one.
func Sequence(handlers ...http.HandlerFunc) http.HandlerFunc {
	var mu sync.Mutex
	i := 0
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		h := handlers[i]
		if i < len(handlers)-1 {
			i++
		}
		mu.Unlock()
		h(w, r)
	}
}

// Status returns a handler answering with status and an optional JSON body.
func Status(status int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if body == nil {
			w.WriteHeader(status)
			return
		}
		WriteJSON(w, status, body)
	}
}

// HandleCurrentAccount registers the current account resource on mux for
// user profileID.
func HandleCurrentAccount(mux *http.ServeMux, profileID string) {
	mux.HandleFunc("/gdc/account/profile/current", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"accountSetting": map[string]any{
				"login": profileID + "@example.com",
				"links": map[string]string{
					"self":     "/gdc/account/profile/" + profileID,
					"projects": "/gdc/account/profile/" + profileID + "/projects",
				},
			},
		})
	})
}
