package project

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

const (
	projectsURI                       = "/gdc/projects"
	projectTemplate      gdc.Template = "/gdc/projects/{projectId}"
	userProjectsTemplate gdc.Template = "/gdc/account/profile/{userId}/projects"
	validateTemplate     gdc.Template = "/gdc/md/{projectId}/validate"
	usersTemplate        gdc.Template = "/gdc/projects/{projectId}/users"
	rolesTemplate        gdc.Template = "/gdc/projects/{projectId}/roles"
)

// NotFoundError is returned when a project or role does not exist.
type NotFoundError struct {
	URI string
	Err error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("project resource %s not found", e.URI)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// CreateError is returned when a project did not become enabled.
type CreateError struct {
	URI     string
	Project *Project
	Err     error
}

func (e *CreateError) Error() string {
	if e.Project != nil {
		return fmt.Sprintf("project %s created in state %s", e.URI, e.Project.State())
	}
	return fmt.Sprintf("failed to create project %s: %v", e.URI, e.Err)
}

func (e *CreateError) Unwrap() error {
	return e.Err
}

// ValidationError is returned when a project validation cannot run.
type ValidationError struct {
	URI string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation of %s failed: %v", e.URI, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Service manages projects (workspaces).
type Service struct {
	client *gdc.Client
	logger hclog.Logger
}

// NewService creates a project service.
func NewService(c *gdc.Client) *Service {
	return &Service{
		client: c,
		logger: c.Logger().Named("project"),
	}
}

func wrap(err error, uri, action string) error {
	if gdc.IsNotFound(err) {
		return &NotFoundError{URI: uri, Err: err}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func (s *Service) userProjectsURI(ctx context.Context) (string, error) {
	profile, err := s.client.CurrentProfileURI(ctx)
	if err != nil {
		return "", err
	}
	return userProjectsTemplate.Expand(gdc.IDFromURI(profile)), nil
}

// ListProjects returns one page of the projects of the current user.
func (s *Service) ListProjects(ctx context.Context, page *gdc.PageRequest) (*gdc.Page[Project], error) {
	uri, err := s.userProjectsURI(ctx)
	if err != nil {
		return nil, err
	}
	p, err := gdc.GetPage[Project](ctx, s.client, page.Apply(uri), "projects")
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return p, nil
}

// ListAllProjects returns every project of the current user.
func (s *Service) ListAllProjects(ctx context.Context) ([]Project, error) {
	uri, err := s.userProjectsURI(ctx)
	if err != nil {
		return nil, err
	}
	all, err := gdc.GetAll[Project](ctx, s.client, uri, "projects")
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return all, nil
}

// GetProjectByID fetches project id.
func (s *Service) GetProjectByID(ctx context.Context, id string) (*Project, error) {
	return s.GetProjectByURI(ctx, projectTemplate.Expand(id))
}

// GetProjectByURI fetches the project at uri.
func (s *Service) GetProjectByURI(ctx context.Context, uri string) (*Project, error) {
	var p Project
	if err := s.client.GetJSON(ctx, uri, &p); err != nil {
		return nil, wrap(err, uri, "get project "+uri)
	}
	if p.Links[LinkSelf] == "" && p.Meta.URI == "" {
		p.Meta.URI = uri
	}
	return &p, nil
}

// CreateProject requests a new project. The project is polled until it
// leaves the preparing states; a project that is not enabled then fails
// with *CreateError.
func (s *Service) CreateProject(ctx context.Context, p *Project) (*gdc.FutureResult[*Project], error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project: %w", err)
	}

	create := &Project{
		Meta: p.Meta,
		Content: Content{
			AuthorizationToken: p.Content.AuthorizationToken,
			Driver:             p.Content.Driver,
			Environment:        p.Content.Environment,
			GuidedNavigation:   p.Content.GuidedNavigation,
		},
	}

	var created struct {
		URI string `json:"uri"`
	}
	if _, err := s.client.PostJSON(ctx, projectsURI, create, &created); err != nil {
		return nil, fmt.Errorf("failed to create project %q: %w", p.Meta.Title, err)
	}
	uri := created.URI
	s.logger.Debug("project creation started", "title", p.Meta.Title, "uri", uri)

	return gdc.NewFutureResult(s.client, gdc.PollHandler[*Project]{
		URI: uri,
		Finished: func(resp *gdc.Response) (bool, error) {
			if resp.StatusCode != http.StatusOK {
				return false, nil
			}
			var polled Project
			if err := resp.Decode(&polled); err != nil {
				return true, &CreateError{URI: uri, Err: err}
			}
			return !polled.IsPreparing(), nil
		},
		Result: func(ctx context.Context, resp *gdc.Response) (*Project, error) {
			var polled Project
			if err := resp.Decode(&polled); err != nil {
				return nil, &CreateError{URI: uri, Err: err}
			}
			if !polled.IsEnabled() {
				return &polled, &CreateError{URI: uri, Project: &polled}
			}
			s.logger.Info("project created", "uri", uri)
			return &polled, nil
		},
		Err: func(err error) error {
			return &CreateError{URI: uri, Err: err}
		},
	}), nil
}

// RemoveProject deletes p.
func (s *Service) RemoveProject(ctx context.Context, p *Project) error {
	uri := p.URI()
	if uri == "" {
		return fmt.Errorf("project %q has no self link", p.Meta.Title)
	}
	if _, err := s.client.Delete(ctx, uri); err != nil {
		return wrap(err, uri, "remove project "+uri)
	}
	s.logger.Info("project removed", "uri", uri)
	return nil
}

// GetAvailableValidationTypes lists the validations p supports.
func (s *Service) GetAvailableValidationTypes(ctx context.Context, p *Project) ([]ValidationType, error) {
	uri := validateTemplate.Expand(p.ID())
	var resp struct {
		Available struct {
			Validations []ValidationType `json:"availableValidations"`
		} `json:"projectValidateAvailable"`
	}
	if err := s.client.GetJSON(ctx, uri, &resp); err != nil {
		return nil, wrap(err, uri, "get validation types of "+p.URI())
	}
	return resp.Available.Validations, nil
}

type asyncTask struct {
	AsyncTask struct {
		Link struct {
			Poll string `json:"poll"`
		} `json:"link"`
	} `json:"asyncTask"`
}

// ValidateProject validates p with types, or with every available
// validation when none are given. The task may move: a task body carrying a
// new poll link or a 303 redirects polling, 200 carries the result.
func (s *Service) ValidateProject(ctx context.Context, p *Project, types ...ValidationType) (*gdc.FutureResult[*ValidationResults], error) {
	if len(types) == 0 {
		available, err := s.GetAvailableValidationTypes(ctx, p)
		if err != nil {
			return nil, err
		}
		types = available
	}

	uri := validateTemplate.Expand(p.ID())
	req := map[string][]ValidationType{"validateProject": types}

	var task asyncTask
	if _, err := s.client.PostJSON(ctx, uri, req, &task); err != nil {
		return nil, &ValidationError{URI: uri, Err: err}
	}
	s.logger.Debug("project validation started", "project", p.URI(), "types", types)

	return gdc.NewFutureResult(s.client, gdc.PollHandler[*ValidationResults]{
		URI: task.AsyncTask.Link.Poll,
		Redirect: func(resp *gdc.Response) string {
			var moved asyncTask
			if err := resp.Decode(&moved); err != nil {
				return ""
			}
			return moved.AsyncTask.Link.Poll
		},
		Err: func(err error) error {
			return &ValidationError{URI: uri, Err: err}
		},
	}), nil
}

// ListUsers returns one page of the users of p.
func (s *Service) ListUsers(ctx context.Context, p *Project, page *gdc.PageRequest) (*gdc.Page[User], error) {
	uri := s.usersURI(p)
	return s.fetchUsers(ctx, page.Apply(uri))
}

// ListAllUsers returns every user of p.
func (s *Service) ListAllUsers(ctx context.Context, p *Project) ([]User, error) {
	uri := s.usersURI(p)
	first, err := s.fetchUsers(ctx, uri)
	if err != nil {
		return nil, err
	}
	return gdc.CollectFrom(ctx, uri, first, s.fetchUsers)
}

func (s *Service) usersURI(p *Project) string {
	if uri := p.Links[LinkUsers]; uri != "" {
		return uri
	}
	return usersTemplate.Expand(p.ID())
}

// fetchUsers reads a page of the users resource, which lists users next to
// its paging block: {"users": [...], "paging": {...}}.
func (s *Service) fetchUsers(ctx context.Context, uri string) (*gdc.Page[User], error) {
	var resp struct {
		Users []struct {
			User User `json:"user"`
		} `json:"users"`
		Paging gdc.Paging `json:"paging"`
	}
	if err := s.client.GetJSON(ctx, uri, &resp); err != nil {
		return nil, wrap(err, uri, "list project users")
	}

	page := &gdc.Page[User]{Paging: resp.Paging}
	for _, u := range resp.Users {
		page.Items = append(page.Items, u.User)
	}
	return page, nil
}

// GetRoles returns the roles of p.
func (s *Service) GetRoles(ctx context.Context, p *Project) ([]Role, error) {
	uri := p.Links[LinkRoles]
	if uri == "" {
		uri = rolesTemplate.Expand(p.ID())
	}

	var resp struct {
		ProjectRoles struct {
			Roles []string `json:"roles"`
		} `json:"projectRoles"`
	}
	if err := s.client.GetJSON(ctx, uri, &resp); err != nil {
		return nil, wrap(err, uri, "list roles of "+p.URI())
	}

	roles := make([]Role, 0, len(resp.ProjectRoles.Roles))
	for _, roleURI := range resp.ProjectRoles.Roles {
		role, err := s.GetRoleByURI(ctx, roleURI)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	return roles, nil
}

// GetRoleByURI fetches the role at uri.
func (s *Service) GetRoleByURI(ctx context.Context, uri string) (*Role, error) {
	var resp struct {
		ProjectRole Role `json:"projectRole"`
	}
	if err := s.client.GetJSON(ctx, uri, &resp); err != nil {
		return nil, wrap(err, uri, "get role "+uri)
	}
	role := resp.ProjectRole
	role.URI = uri
	return &role, nil
}

// GetRoleByIdentifier returns the role of p with identifier, for example
// "adminRole".
func (s *Service) GetRoleByIdentifier(ctx context.Context, p *Project, identifier string) (*Role, error) {
	roles, err := s.GetRoles(ctx, p)
	if err != nil {
		return nil, err
	}
	for i := range roles {
		if roles[i].Identifier() == identifier {
			return &roles[i], nil
		}
	}
	return nil, &NotFoundError{URI: rolesTemplate.Expand(p.ID()) + "#" + identifier}
}
