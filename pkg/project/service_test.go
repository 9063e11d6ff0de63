package project_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
	"github.com/hashicorp-forge/gdc/pkg/gdc/gdctest"
	"github.com/hashicorp-forge/gdc/pkg/project"
)

func projectBody(id, title string, state project.State) map[string]any {
	return map[string]any{
		"project": map[string]any{
			"meta":    map[string]any{"title": title},
			"content": map[string]any{"state": state, "driver": "Pg"},
			"links":   map[string]string{"self": "/gdc/projects/" + id},
		},
	}
}

func newService(t *testing.T, mux *http.ServeMux) *project.Service {
	client, _ := gdctest.NewClient(t, mux)
	return project.NewService(client)
}

func TestListAllProjects(t *testing.T) {
	mux := http.NewServeMux()
	gdctest.HandleCurrentAccount(mux, "u1")
	mux.HandleFunc("/gdc/account/profile/u1/projects", func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		page := map[string]any{
			"items":  []any{projectBody("p1", "first", project.StateEnabled)},
			"paging": map[string]any{"offset": 0, "count": 1},
			"links":  map[string]string{"next": "/gdc/account/profile/u1/projects?offset=1"},
		}
		if offset == "1" {
			page = map[string]any{
				"items":  []any{projectBody("p2", "second", project.StateEnabled)},
				"paging": map[string]any{"offset": 1, "count": 1},
			}
		}
		gdctest.WriteJSON(w, http.StatusOK, map[string]any{"projects": page})
	})
	svc := newService(t, mux)
	ctx := context.Background()

	all, err := svc.ListAllProjects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "p1", all[0].ID())
	assert.Equal(t, "p2", all[1].ID())

	page, err := svc.ListProjects(ctx, &gdc.PageRequest{Offset: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "second", page.Items[0].Title())
	assert.False(t, page.HasNext())
}

func TestGetProject_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gdc/projects/", func(w http.ResponseWriter, r *http.Request) {
		gdctest.WriteError(w, http.StatusNotFound, "project not found")
	})
	svc := newService(t, mux)

	_, err := svc.GetProjectByID(context.Background(), "gone")
	var notFound *project.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "/gdc/projects/gone", notFound.URI)
	assert.Contains(t, err.Error(), "/gdc/projects/gone")
}

func createMux(t *testing.T, final project.State) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /gdc/projects", func(w http.ResponseWriter, r *http.Request) {
		var p project.Project
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, "token", p.Content.AuthorizationToken)
		assert.Empty(t, p.Content.State)
		gdctest.WriteJSON(w, http.StatusCreated, map[string]string{"uri": "/gdc/projects/new1"})
	})
	mux.HandleFunc("GET /gdc/projects/new1", gdctest.Sequence(
		gdctest.Status(http.StatusOK, projectBody("new1", "Sales", project.StatePreparing)),
		gdctest.Status(http.StatusOK, projectBody("new1", "Sales", project.StateLoading)),
		gdctest.Status(http.StatusOK, projectBody("new1", "Sales", final)),
	))
	return mux
}

func TestCreateProject(t *testing.T) {
	svc := newService(t, createMux(t, project.StateEnabled))

	p, err := project.NewProject("Sales", "token")
	require.NoError(t, err)

	future, err := svc.CreateProject(context.Background(), p)
	require.NoError(t, err)

	created, err := future.GetWithTimeout(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "new1", created.ID())
	assert.True(t, created.IsEnabled())
}

func TestCreateProject_NotEnabled(t *testing.T) {
	svc := newService(t, createMux(t, project.StateDeleted))

	p, err := project.NewProject("Sales", "token")
	require.NoError(t, err)

	future, err := svc.CreateProject(context.Background(), p)
	require.NoError(t, err)

	_, err = future.Get(context.Background())
	var createErr *project.CreateError
	require.True(t, errors.As(err, &createErr))
	assert.Equal(t, project.StateDeleted, createErr.Project.State())
	assert.Contains(t, err.Error(), "/gdc/projects/new1")
}

func TestValidateProject(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gdc/md/p1/validate", func(w http.ResponseWriter, r *http.Request) {
		gdctest.WriteJSON(w, http.StatusOK, map[string]any{
			"projectValidateAvailable": map[string]any{"availableValidations": []string{"pdm", "ldm"}},
		})
	})
	mux.HandleFunc("POST /gdc/md/p1/validate", func(w http.ResponseWriter, r *http.Request) {
		var req map[string][]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"pdm", "ldm"}, req["validateProject"])
		gdctest.WriteJSON(w, http.StatusCreated, map[string]any{
			"asyncTask": map[string]any{"link": map[string]string{"poll": "/gdc/md/p1/tasks/t1/status"}},
		})
	})
	// The task moves once, then redirects to its result.
	mux.HandleFunc("GET /gdc/md/p1/tasks/t1/status", func(w http.ResponseWriter, r *http.Request) {
		gdctest.WriteJSON(w, http.StatusAccepted, map[string]any{
			"asyncTask": map[string]any{"link": map[string]string{"poll": "/gdc/md/p1/tasks/t2/status"}},
		})
	})
	mux.HandleFunc("GET /gdc/md/p1/tasks/t2/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/gdc/md/p1/validate/task/t2")
		w.WriteHeader(http.StatusSeeOther)
	})
	mux.HandleFunc("GET /gdc/md/p1/validate/task/t2", func(w http.ResponseWriter, r *http.Request) {
		gdctest.WriteJSON(w, http.StatusOK, map[string]any{
			"projectValidateResult": map[string]any{
				"results": []any{map[string]any{
					"from": "ldm",
					"body": map[string]any{"log": []any{map[string]any{"level": "ERROR", "ecat": "LDM", "msg": "broken"}}},
				}},
				"error_found":       1,
				"fatal_error_found": 0,
			},
		})
	})
	svc := newService(t, mux)
	ctx := context.Background()

	p := &project.Project{Links: map[string]string{project.LinkSelf: "/gdc/projects/p1"}}
	future, err := svc.ValidateProject(ctx, p)
	require.NoError(t, err)

	results, err := future.GetWithTimeout(5 * time.Second)
	require.NoError(t, err)
	assert.True(t, results.HasErrors())
	assert.Equal(t, 1, results.ErrorCount())
	assert.Equal(t, "/gdc/md/p1/validate/task/t2", future.PollingURI())
}

func TestValidateProject_Failed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /gdc/md/p1/validate", func(w http.ResponseWriter, r *http.Request) {
		gdctest.WriteJSON(w, http.StatusCreated, map[string]any{
			"asyncTask": map[string]any{"link": map[string]string{"poll": "/gdc/md/p1/tasks/t1/status"}},
		})
	})
	mux.HandleFunc("GET /gdc/md/p1/tasks/t1/status", func(w http.ResponseWriter, r *http.Request) {
		gdctest.WriteError(w, http.StatusInternalServerError, "validation crashed")
	})
	svc := newService(t, mux)

	p := &project.Project{Links: map[string]string{project.LinkSelf: "/gdc/projects/p1"}}
	future, err := svc.ValidateProject(context.Background(), p, project.ValidatePDM)
	require.NoError(t, err)

	_, err = future.Get(context.Background())
	var validationErr *project.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "/gdc/md/p1/validate", validationErr.URI)
	assert.Equal(t, http.StatusInternalServerError, gdc.StatusCode(err))
}

func TestListAllUsers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gdc/projects/p1/users", func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		user := func(n int) map[string]any {
			return map[string]any{"user": map[string]any{
				"content": map[string]any{"login": fmt.Sprintf("user%d@example.com", n)},
				"links":   map[string]string{"self": fmt.Sprintf("/gdc/account/profile/u%d", n)},
			}}
		}
		if offset == "" {
			gdctest.WriteJSON(w, http.StatusOK, map[string]any{
				"users":  []any{user(1), user(2)},
				"paging": map[string]any{"offset": 0, "count": 2, "next": "/gdc/projects/p1/users?offset=2"},
			})
			return
		}
		gdctest.WriteJSON(w, http.StatusOK, map[string]any{
			"users":  []any{user(3)},
			"paging": map[string]any{"offset": 2, "count": 1},
		})
	})
	svc := newService(t, mux)

	p := &project.Project{Links: map[string]string{project.LinkSelf: "/gdc/projects/p1"}}
	users, err := svc.ListAllUsers(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "user1@example.com", users[0].Login())
	assert.Equal(t, "/gdc/account/profile/u3", users[2].ProfileURI())
}

func TestGetRoles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gdc/projects/p1/roles", func(w http.ResponseWriter, r *http.Request) {
		gdctest.WriteJSON(w, http.StatusOK, map[string]any{
			"projectRoles": map[string]any{"roles": []string{"/gdc/projects/p1/roles/1", "/gdc/projects/p1/roles/2"}},
		})
	})
	mux.HandleFunc("/gdc/projects/p1/roles/{id}", func(w http.ResponseWriter, r *http.Request) {
		identifier := map[string]string{"1": "adminRole", "2": "readOnlyUserRole"}[r.PathValue("id")]
		gdctest.WriteJSON(w, http.StatusOK, map[string]any{
			"projectRole": map[string]any{
				"meta":        map[string]any{"identifier": identifier, "title": identifier},
				"permissions": map[string]any{"canCreateReport": "1", "canManageProject": "0"},
			},
		})
	})
	svc := newService(t, mux)
	ctx := context.Background()

	p := &project.Project{Links: map[string]string{project.LinkSelf: "/gdc/projects/p1"}}
	roles, err := svc.GetRoles(ctx, p)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "/gdc/projects/p1/roles/1", roles[0].URI)
	assert.True(t, bool(roles[0].Permissions["canCreateReport"]))

	role, err := svc.GetRoleByIdentifier(ctx, p, "readOnlyUserRole")
	require.NoError(t, err)
	assert.Equal(t, "/gdc/projects/p1/roles/2", role.URI)

	_, err = svc.GetRoleByIdentifier(ctx, p, "editorRole")
	var notFound *project.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}
