package gdc_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
	"github.com/hashicorp-forge/gdc/pkg/gdc/gdctest"
)

type item struct {
	Name string `json:"name"`
}

// pagedHandler serves items split into pages of size under an envelope key.
// The next link alternates between paging.next and links.next.
func pagedHandler(t *testing.T, envelope string, items []string, size int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset := 0
		if o := r.URL.Query().Get("offset"); o != "" {
			_, err := fmt.Sscanf(o, "%d", &offset)
			require.NoError(t, err)
		}
		end := min(offset+size, len(items))

		page := map[string]any{
			"paging": map[string]any{"offset": offset, "count": end - offset},
			"links":  map[string]any{},
		}
		pageItems := []item{}
		for _, name := range items[offset:end] {
			pageItems = append(pageItems, item{Name: name})
		}
		page["items"] = pageItems
		if end < len(items) {
			next := fmt.Sprintf("%s?offset=%d", r.URL.Path, end)
			if (offset/size)%2 == 0 {
				page["paging"].(map[string]any)["next"] = next
			} else {
				page["links"].(map[string]any)["next"] = next
			}
		}
		gdctest.WriteJSON(w, http.StatusOK, map[string]any{envelope: page})
	}
}

func names(items []item) []string {
	out := make([]string, 0, len(items))
	for _, i := range items {
		out = append(out, i.Name)
	}
	return out
}

func TestGetAll_FollowsNextLinks(t *testing.T) {
	all := []string{"a", "b", "c", "d", "e", "f", "g"}
	client, _ := gdctest.NewClient(t, pagedHandler(t, "things", all, 3))

	items, err := gdc.GetAll[item](context.Background(), client, "/gdc/things", "things")
	require.NoError(t, err)
	assert.Equal(t, all, names(items))
}

func TestGetPage_SinglePage(t *testing.T) {
	client, _ := gdctest.NewClient(t, pagedHandler(t, "things", []string{"a", "b", "c"}, 2))

	page, err := gdc.GetPage[item](context.Background(), client, "/gdc/things", "things")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(page.Items))
	assert.True(t, page.HasNext())
	assert.Equal(t, "/gdc/things?offset=2", page.NextURI())
	assert.Equal(t, 2, page.Paging.Count)
}

func TestGetPage_MissingEnvelope(t *testing.T) {
	client, _ := gdctest.NewClient(t, pagedHandler(t, "things", []string{"a"}, 2))

	_, err := gdc.GetPage[item](context.Background(), client, "/gdc/things", "other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"other"`)
}

func TestCollect_DetectsLoop(t *testing.T) {
	first := &gdc.Page[item]{
		Items:  []item{{Name: "a"}},
		Paging: gdc.Paging{Next: "/gdc/things?offset=1"},
	}
	fetch := func(ctx context.Context, uri string) (*gdc.Page[item], error) {
		return &gdc.Page[item]{
			Items:  []item{{Name: "b"}},
			Paging: gdc.Paging{Next: "/gdc/things?offset=1"},
		}, nil
	}

	items, err := gdc.Collect(context.Background(), first, fetch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paging loop")
	assert.Equal(t, []string{"a", "b"}, names(items))
}

func TestGetAll_LoopBackToFirstPage(t *testing.T) {
	client, _ := gdctest.NewClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := map[string]any{"items": []item{{Name: "a"}}, "paging": map[string]any{}}
		if r.URL.Query().Get("offset") == "" {
			page["paging"] = map[string]any{"next": "/gdc/things?offset=1"}
		} else {
			page["items"] = []item{{Name: "b"}}
			page["paging"] = map[string]any{"next": "/gdc/things"}
		}
		gdctest.WriteJSON(w, http.StatusOK, map[string]any{"things": page})
	}))

	items, err := gdc.GetAll[item](context.Background(), client, "/gdc/things", "things")
	require.ErrorContains(t, err, "paging loop")
	assert.Equal(t, []string{"a", "b"}, names(items))

	first := &gdc.Page[item]{
		Items:  []item{{Name: "a"}},
		Paging: gdc.Paging{Next: "/gdc/things?offset=1"},
		Links:  gdc.Links{Self: "/gdc/things"},
	}
	fetch := func(ctx context.Context, uri string) (*gdc.Page[item], error) {
		return &gdc.Page[item]{Items: []item{{Name: "b"}}, Paging: gdc.Paging{Next: "/gdc/things"}}, nil
	}
	collected, err := gdc.Collect(context.Background(), first, fetch)
	require.ErrorContains(t, err, "paging loop")
	assert.Equal(t, []string{"a", "b"}, names(collected))
}

func TestPageRequest_Apply(t *testing.T) {
	var nilReq *gdc.PageRequest
	assert.Equal(t, "/gdc/things", nilReq.Apply("/gdc/things"))

	req := &gdc.PageRequest{Offset: 20, Limit: 10}
	assert.Equal(t, "/gdc/things?limit=10&offset=20", req.Apply("/gdc/things"))
	assert.Equal(t, "/gdc/things?limit=10&offset=20&q=x", req.Apply("/gdc/things?q=x"))
}
