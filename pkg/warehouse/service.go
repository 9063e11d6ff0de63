package warehouse

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

const (
	instancesURI                  = "/gdc/datawarehouse/instances"
	instanceTemplate gdc.Template = "/gdc/datawarehouse/instances/{id}"
	usersTemplate    gdc.Template = "/gdc/datawarehouse/instances/{id}/users"
	schemasTemplate  gdc.Template = "/gdc/datawarehouse/instances/{id}/schemas"
	schemaTemplate   gdc.Template = "/gdc/datawarehouse/instances/{id}/schemas/{name}"
)

// NotFoundError is returned when a warehouse, user or schema does not exist.
type NotFoundError struct {
	URI string
	Err error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("warehouse resource %s not found", e.URI)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// Service manages warehouses, their users and schemas.
type Service struct {
	client *gdc.Client
	logger hclog.Logger
}

// NewService creates a warehouse service.
func NewService(c *gdc.Client) *Service {
	return &Service{
		client: c,
		logger: c.Logger().Named("warehouse"),
	}
}

func (s *Service) wrap(err error, uri, action string) error {
	if gdc.IsNotFound(err) {
		return &NotFoundError{URI: uri, Err: err}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// CreateWarehouse requests a new warehouse. The result is available once
// the creation task answers 201.
func (s *Service) CreateWarehouse(ctx context.Context, w *Warehouse) (*gdc.FutureResult[*Warehouse], error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid warehouse: %w", err)
	}

	create := &Warehouse{
		Title:              w.Title,
		Description:        w.Description,
		AuthorizationToken: w.AuthorizationToken,
		Environment:        w.Environment,
		License:            w.License,
	}

	var task taskResponse
	if _, err := s.client.PostJSON(ctx, instancesURI, create, &task); err != nil {
		return nil, fmt.Errorf("failed to create warehouse %q: %w", w.Title, err)
	}
	s.logger.Debug("warehouse creation started", "title", w.Title, "poll", task.AsyncTask.Links.Poll)

	return gdc.NewFutureResult(s.client, gdc.PollHandler[*Warehouse]{
		URI: task.AsyncTask.Links.Poll,
		Finished: func(resp *gdc.Response) (bool, error) {
			return resp.StatusCode == http.StatusCreated, nil
		},
		Result: func(ctx context.Context, resp *gdc.Response) (*Warehouse, error) {
			var done taskResponse
			if err := resp.Decode(&done); err != nil {
				return nil, err
			}
			created, err := s.GetWarehouseByURI(ctx, done.AsyncTask.Links.Instance)
			if err != nil {
				return nil, err
			}
			s.logger.Info("warehouse created", "uri", created.URI())
			return created, nil
		},
		Err: func(err error) error {
			return fmt.Errorf("failed to create warehouse %q: %w", w.Title, err)
		},
	}), nil
}

// GetWarehouseByID fetches warehouse id.
func (s *Service) GetWarehouseByID(ctx context.Context, id string) (*Warehouse, error) {
	return s.GetWarehouseByURI(ctx, instanceTemplate.Expand(id))
}

// GetWarehouseByURI fetches the warehouse at uri.
func (s *Service) GetWarehouseByURI(ctx context.Context, uri string) (*Warehouse, error) {
	var w Warehouse
	if err := s.client.GetJSON(ctx, uri, &w); err != nil {
		return nil, s.wrap(err, uri, "get warehouse "+uri)
	}
	return &w, nil
}

// ListWarehouses returns one page of the warehouses visible to the user.
func (s *Service) ListWarehouses(ctx context.Context, page *gdc.PageRequest) (*gdc.Page[Warehouse], error) {
	p, err := gdc.GetPage[Warehouse](ctx, s.client, page.Apply(instancesURI), "instances")
	if err != nil {
		return nil, fmt.Errorf("failed to list warehouses: %w", err)
	}
	return p, nil
}

// ListAllWarehouses returns every warehouse visible to the user.
func (s *Service) ListAllWarehouses(ctx context.Context) ([]Warehouse, error) {
	all, err := gdc.GetAll[Warehouse](ctx, s.client, instancesURI, "instances")
	if err != nil {
		return nil, fmt.Errorf("failed to list warehouses: %w", err)
	}
	return all, nil
}

// UpdateWarehouse stores the title and description of w and returns the
// updated warehouse.
func (s *Service) UpdateWarehouse(ctx context.Context, w *Warehouse) (*Warehouse, error) {
	uri := w.URI()
	if uri == "" {
		return nil, fmt.Errorf("warehouse %q has no self link", w.Title)
	}

	update := &Warehouse{Title: w.Title, Description: w.Description}
	if _, err := s.client.PutJSON(ctx, uri, update, nil); err != nil {
		return nil, s.wrap(err, uri, "update warehouse "+uri)
	}
	return s.GetWarehouseByURI(ctx, uri)
}

// RemoveWarehouse deletes w.
func (s *Service) RemoveWarehouse(ctx context.Context, w *Warehouse) error {
	uri := w.URI()
	if uri == "" {
		return fmt.Errorf("warehouse %q has no self link", w.Title)
	}
	if _, err := s.client.Delete(ctx, uri); err != nil {
		return s.wrap(err, uri, "remove warehouse "+uri)
	}
	s.logger.Info("warehouse removed", "uri", uri)
	return nil
}

// ListUsers returns one page of the users of w.
func (s *Service) ListUsers(ctx context.Context, w *Warehouse, page *gdc.PageRequest) (*gdc.Page[User], error) {
	uri := w.UsersURI()
	p, err := gdc.GetPage[User](ctx, s.client, page.Apply(uri), "users")
	if err != nil {
		return nil, s.wrap(err, uri, "list users of "+w.URI())
	}
	return p, nil
}

// ListAllUsers returns every user of w.
func (s *Service) ListAllUsers(ctx context.Context, w *Warehouse) ([]User, error) {
	uri := w.UsersURI()
	all, err := gdc.GetAll[User](ctx, s.client, uri, "users")
	if err != nil {
		return nil, s.wrap(err, uri, "list users of "+w.URI())
	}
	return all, nil
}

// GetUserByURI fetches the warehouse user at uri.
func (s *Service) GetUserByURI(ctx context.Context, uri string) (*User, error) {
	var u User
	if err := s.client.GetJSON(ctx, uri, &u); err != nil {
		return nil, s.wrap(err, uri, "get warehouse user "+uri)
	}
	return &u, nil
}

// AddUser grants u access to w. The result is available once the task
// answers 201.
func (s *Service) AddUser(ctx context.Context, w *Warehouse, u *User) (*gdc.FutureResult[*User], error) {
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("invalid warehouse user: %w", err)
	}

	uri := w.UsersURI()
	var task taskResponse
	if _, err := s.client.PostJSON(ctx, uri, u, &task); err != nil {
		return nil, s.wrap(err, uri, "add user to "+w.URI())
	}

	return gdc.NewFutureResult(s.client, gdc.PollHandler[*User]{
		URI: task.AsyncTask.Links.Poll,
		Finished: func(resp *gdc.Response) (bool, error) {
			return resp.StatusCode == http.StatusCreated, nil
		},
		Result: func(ctx context.Context, resp *gdc.Response) (*User, error) {
			var done taskResponse
			if err := resp.Decode(&done); err != nil {
				return nil, err
			}
			return s.GetUserByURI(ctx, done.AsyncTask.Links.User)
		},
		Err: func(err error) error {
			return fmt.Errorf("failed to add user to %s: %w", w.URI(), err)
		},
	}), nil
}

// RemoveUser revokes the access of u. The task finishes with 204.
func (s *Service) RemoveUser(ctx context.Context, u *User) (*gdc.FutureResult[struct{}], error) {
	uri := u.URI()
	if uri == "" {
		return nil, fmt.Errorf("warehouse user has no self link")
	}

	resp, err := s.client.Delete(ctx, uri)
	if err != nil {
		return nil, s.wrap(err, uri, "remove warehouse user "+uri)
	}
	var task taskResponse
	if err := resp.Decode(&task); err != nil {
		return nil, err
	}

	return gdc.NewFutureResult(s.client, gdc.PollHandler[struct{}]{
		URI: task.AsyncTask.Links.Poll,
		Finished: func(resp *gdc.Response) (bool, error) {
			return resp.StatusCode == http.StatusNoContent, nil
		},
		Result: func(ctx context.Context, resp *gdc.Response) (struct{}, error) {
			s.logger.Info("warehouse user removed", "uri", uri)
			return struct{}{}, nil
		},
		Err: func(err error) error {
			return fmt.Errorf("failed to remove warehouse user %s: %w", uri, err)
		},
	}), nil
}

// ListSchemas returns the schemas of w.
func (s *Service) ListSchemas(ctx context.Context, w *Warehouse) ([]Schema, error) {
	uri := w.SchemasURI()
	all, err := gdc.GetAll[Schema](ctx, s.client, uri, "schemas")
	if err != nil {
		return nil, s.wrap(err, uri, "list schemas of "+w.URI())
	}
	return all, nil
}

// GetSchemaByName fetches schema name of w.
func (s *Service) GetSchemaByName(ctx context.Context, w *Warehouse, name string) (*Schema, error) {
	uri := schemaTemplate.Expand(w.ID(), name)
	var schema Schema
	if err := s.client.GetJSON(ctx, uri, &schema); err != nil {
		return nil, s.wrap(err, uri, "get schema "+uri)
	}
	return &schema, nil
}

// GetDefaultSchema fetches the default schema of w.
func (s *Service) GetDefaultSchema(ctx context.Context, w *Warehouse) (*Schema, error) {
	return s.GetSchemaByName(ctx, w, DefaultSchemaName)
}
