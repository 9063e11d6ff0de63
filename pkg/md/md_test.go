package md_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
	"github.com/hashicorp-forge/gdc/pkg/gdc/gdctest"
	"github.com/hashicorp-forge/gdc/pkg/md"
)

const metricJSON = `{
  "metric": {
    "meta": {
      "author": "/gdc/account/profile/u1",
      "created": "2014-04-10 13:27:06",
      "title": "Revenue",
      "category": "metric",
      "uri": "/gdc/md/p1/obj/42",
      "identifier": "aaRevenue",
      "deprecated": "0",
      "locked": 1,
      "isProduction": 1
    },
    "content": {
      "expression": "SELECT SUM([/gdc/md/p1/obj/7])",
      "format": "#,##0"
    }
  }
}`

func TestObject_Unmarshal(t *testing.T) {
	var obj md.Object
	require.NoError(t, json.Unmarshal([]byte(metricJSON), &obj))

	assert.Equal(t, "metric", obj.Category)
	assert.Equal(t, "Revenue", obj.Meta.Title)
	assert.Equal(t, "42", obj.Meta.ID())
	assert.False(t, bool(obj.Meta.Deprecated))
	assert.True(t, bool(obj.Meta.Locked))
	assert.True(t, bool(obj.Meta.IsProduction))
	assert.Equal(t, 2014, obj.Meta.Created.Year())

	var content struct {
		Expression string `json:"expression"`
		Format     string `json:"format"`
	}
	require.NoError(t, obj.DecodeContent(&content))
	assert.Equal(t, "SELECT SUM([/gdc/md/p1/obj/7])", content.Expression)
	assert.Equal(t, "#,##0", content.Format)
}

func TestObject_RoundTrip(t *testing.T) {
	obj := md.NewObject("fact", "Amount", map[string]any{"expr": "x"})

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fact":{"meta":{"title":"Amount","category":"fact"},"content":{"expr":"x"}}}`, string(data))

	var decoded md.Object
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *obj, decoded)
}

func TestObject_InvalidRoot(t *testing.T) {
	var obj md.Object
	err := json.Unmarshal([]byte(`{"a":{},"b":{}}`), &obj)
	assert.Error(t, err)

	_, err = json.Marshal(md.Object{})
	assert.Error(t, err)
}

func TestService_GetObjByID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gdc/md/p1/obj/42", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, metricJSON)
	})
	client, _ := gdctest.NewClient(t, mux)
	svc := md.NewService(client)

	obj, err := svc.GetObjByID(context.Background(), "p1", "42")
	require.NoError(t, err)
	assert.Equal(t, "/gdc/md/p1/obj/42", obj.URI())
}

func TestService_GetObjByURI_NotFound(t *testing.T) {
	client, _ := gdctest.NewClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gdctest.WriteError(w, http.StatusNotFound, "not found")
	}))
	svc := md.NewService(client)

	_, err := svc.GetObjByURI(context.Background(), "/gdc/md/p1/obj/404")
	require.Error(t, err)

	var notFound *md.ObjNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "/gdc/md/p1/obj/404", notFound.URI)
	assert.Contains(t, err.Error(), "/gdc/md/p1/obj/404")
	assert.True(t, gdc.IsNotFound(err))
}

func TestService_GetObjByURI_ServerError(t *testing.T) {
	client, _ := gdctest.NewClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gdctest.WriteError(w, http.StatusBadGateway, "upstream down")
	}))
	svc := md.NewService(client)

	_, err := svc.GetObjByURI(context.Background(), "/gdc/md/p1/obj/1")
	require.Error(t, err)

	var notFound *md.ObjNotFoundError
	assert.False(t, errors.As(err, &notFound))

	var gdcErr *gdc.Error
	require.True(t, errors.As(err, &gdcErr))
	assert.Equal(t, http.StatusBadGateway, gdcErr.StatusCode)
	assert.Contains(t, err.Error(), "/gdc/md/p1/obj/1")
}

func TestService_CreateObj(t *testing.T) {
	client, _ := gdctest.NewClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/gdc/md/p1/obj", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("createAndGet"))

		var obj md.Object
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&obj))
		obj.Meta.URI = "/gdc/md/p1/obj/100"
		gdctest.WriteJSON(w, http.StatusOK, obj)
	}))
	svc := md.NewService(client)

	created, err := svc.CreateObj(context.Background(), "p1", md.NewObject("fact", "Amount", nil))
	require.NoError(t, err)
	assert.Equal(t, "/gdc/md/p1/obj/100", created.URI())
	assert.Equal(t, "fact", created.Category)
}

func TestService_FindURIs(t *testing.T) {
	client, _ := gdctest.NewClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gdc/md/p1/query/metrics", r.URL.Path)
		gdctest.WriteJSON(w, http.StatusOK, map[string]any{
			"query": map[string]any{
				"entries": []map[string]any{
					{"link": "/gdc/md/p1/obj/1", "title": "Revenue"},
					{"link": "/gdc/md/p1/obj/2", "title": "Cost"},
				},
			},
		})
	}))
	svc := md.NewService(client)
	ctx := context.Background()

	all, err := svc.FindURIs(ctx, "p1", "metrics", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/gdc/md/p1/obj/1", "/gdc/md/p1/obj/2"}, all)

	one, err := svc.FindOneURI(ctx, "p1", "metrics", func(e md.Entry) bool { return e.Title == "Cost" })
	require.NoError(t, err)
	assert.Equal(t, "/gdc/md/p1/obj/2", one)

	_, err = svc.FindOneURI(ctx, "p1", "metrics", func(e md.Entry) bool { return false })
	var notFound *md.ObjNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestService_GetURIsByIdentifiers(t *testing.T) {
	client, _ := gdctest.NewClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IdentifierToURI []string `json:"identifierToUri"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"a", "b"}, req.IdentifierToURI)

		gdctest.WriteJSON(w, http.StatusOK, map[string]any{
			"identifiers": []map[string]string{
				{"identifier": "a", "uri": "/gdc/md/p1/obj/1"},
			},
		})
	}))
	svc := md.NewService(client)

	uris, err := svc.GetURIsByIdentifiers(context.Background(), "p1", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "/gdc/md/p1/obj/1"}, uris)
}

func TestService_UsedBy(t *testing.T) {
	client, _ := gdctest.NewClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gdc/md/p1/usedby2", r.URL.Path)

		var req struct {
			InUseMany struct {
				URIs    []string `json:"uris"`
				Types   []string `json:"types"`
				Nearest int      `json:"nearest"`
			} `json:"inUseMany"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1, req.InUseMany.Nearest)
		assert.Equal(t, []string{"report"}, req.InUseMany.Types)

		gdctest.WriteJSON(w, http.StatusOK, map[string]any{
			"useMany": []map[string]any{
				{"uri": "/gdc/md/p1/obj/1", "entries": []map[string]any{{"link": "/gdc/md/p1/obj/9", "category": "report"}}},
			},
		})
	}))
	svc := md.NewService(client)

	usages, err := svc.UsedBy(context.Background(), "p1", []string{"/gdc/md/p1/obj/1"}, true, "report")
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Equal(t, "/gdc/md/p1/obj/9", usages[0].Entries[0].Link)
}
