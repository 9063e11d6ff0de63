package warehouse

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

// Environment of a warehouse.
type Environment string

const (
	Production  Environment = "PRODUCTION"
	Development Environment = "DEVELOPMENT"
	Testing     Environment = "TESTING"
)

// Link keys of a warehouse.
const (
	LinkSelf    = "self"
	LinkParent  = "parent"
	LinkUsers   = "users"
	LinkSchemas = "schemas"
	LinkJDBC    = "jdbc"
)

// Warehouse is a data warehouse instance:
//
//	{"instance": {"title": "...", "authorizationToken": "...", "links": {"self": "..."}}}
type Warehouse struct {
	Title              string            `json:"title"`
	Description        string            `json:"description,omitempty"`
	AuthorizationToken string            `json:"authorizationToken,omitempty"`
	ConnectionURL      string            `json:"connectionUrl,omitempty"`
	Status             string            `json:"status,omitempty"`
	Environment        Environment       `json:"environment,omitempty"`
	License            string            `json:"license,omitempty"`
	Created            *gdc.Time         `json:"created,omitempty"`
	Updated            *gdc.Time         `json:"updated,omitempty"`
	CreatedBy          string            `json:"createdBy,omitempty"`
	UpdatedBy          string            `json:"updatedBy,omitempty"`
	Links              map[string]string `json:"links,omitempty"`
}

// NewWarehouse returns a warehouse to be created with authorization token
// token.
func NewWarehouse(title, token string) (*Warehouse, error) {
	w := &Warehouse{Title: title, AuthorizationToken: token}
	if err := validation.ValidateStruct(w,
		validation.Field(&w.Title, validation.Required),
		validation.Field(&w.AuthorizationToken, validation.Required),
	); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate checks the fields of a create request.
func (w *Warehouse) Validate() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Title, validation.Required),
		validation.Field(&w.AuthorizationToken, validation.Required),
		validation.Field(&w.Environment, validation.In(Production, Development, Testing)),
	)
}

// URI returns the self link.
func (w *Warehouse) URI() string {
	return w.Links[LinkSelf]
}

// ID returns the warehouse id from the self link.
func (w *Warehouse) ID() string {
	if w.URI() == "" {
		return ""
	}
	return gdc.IDFromURI(w.URI())
}

// UsersURI returns the link of the warehouse users.
func (w *Warehouse) UsersURI() string {
	if uri := w.Links[LinkUsers]; uri != "" {
		return uri
	}
	return usersTemplate.Expand(w.ID())
}

// SchemasURI returns the link of the warehouse schemas.
func (w *Warehouse) SchemasURI() string {
	if uri := w.Links[LinkSchemas]; uri != "" {
		return uri
	}
	return schemasTemplate.Expand(w.ID())
}

// JDBCConnectionString returns the JDBC URL to connect to the warehouse.
func (w *Warehouse) JDBCConnectionString() string {
	return w.ConnectionURL
}

func (w *Warehouse) String() string {
	return fmt.Sprintf("warehouse %q (%s)", w.Title, w.URI())
}

type warehouseBody Warehouse

func (w Warehouse) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]warehouseBody{"instance": warehouseBody(w)})
}

func (w *Warehouse) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Instance *warehouseBody `json:"instance"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Instance == nil {
		return fmt.Errorf("warehouse has no %q key", "instance")
	}
	*w = Warehouse(*wrapped.Instance)
	return nil
}

// Role of a warehouse user.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDataAdmin Role = "dataAdmin"
	RoleDataUser  Role = "dataUser"
)

// User is a user of a warehouse, given either by profile URI or by login.
type User struct {
	Role    Role              `json:"role"`
	Profile string            `json:"profile,omitempty"`
	Login   string            `json:"login,omitempty"`
	Links   map[string]string `json:"links,omitempty"`
}

// NewUserWithProfile returns a user for account profile profileURI.
func NewUserWithProfile(role Role, profileURI string) (*User, error) {
	u := &User{Role: role, Profile: profileURI}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// NewUserWithLogin returns a user for account login.
func NewUserWithLogin(role Role, login string) (*User, error) {
	u := &User{Role: role, Login: login}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks the role and that exactly one of profile and login is set.
func (u *User) Validate() error {
	err := validation.ValidateStruct(u,
		validation.Field(&u.Role, validation.Required, validation.In(RoleAdmin, RoleDataAdmin, RoleDataUser)),
		validation.Field(&u.Profile, validation.When(u.Login == "", validation.Required)),
		validation.Field(&u.Login, validation.When(u.Profile != "", validation.Empty.Error("must be blank when profile is set"))),
	)
	return err
}

// URI returns the self link.
func (u *User) URI() string {
	return u.Links[LinkSelf]
}

// ID returns the user id from the self link.
func (u *User) ID() string {
	if u.URI() == "" {
		return ""
	}
	return gdc.IDFromURI(u.URI())
}

type userBody User

func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]userBody{"user": userBody(u)})
}

func (u *User) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		User *userBody `json:"user"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.User == nil {
		return fmt.Errorf("warehouse user has no %q key", "user")
	}
	*u = User(*wrapped.User)
	return nil
}

// DefaultSchemaName is the schema every warehouse has.
const DefaultSchemaName = "default"

// Schema is a schema of a warehouse.
type Schema struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Created     *gdc.Time         `json:"created,omitempty"`
	Updated     *gdc.Time         `json:"updated,omitempty"`
	CreatedBy   string            `json:"createdBy,omitempty"`
	UpdatedBy   string            `json:"updatedBy,omitempty"`
	Links       map[string]string `json:"links,omitempty"`
}

// URI returns the self link.
func (s *Schema) URI() string {
	return s.Links[LinkSelf]
}

type schemaBody Schema

func (s Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]schemaBody{"schema": schemaBody(s)})
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Schema *schemaBody `json:"schema"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Schema == nil {
		return fmt.Errorf("warehouse schema has no %q key", "schema")
	}
	*s = Schema(*wrapped.Schema)
	return nil
}

// Task is the asynchronous task answering warehouse and user changes.
type Task struct {
	Links struct {
		Poll     string `json:"poll,omitempty"`
		Instance string `json:"instance,omitempty"`
		User     string `json:"user,omitempty"`
	} `json:"links"`
}

type taskResponse struct {
	AsyncTask Task `json:"asyncTask"`
}
