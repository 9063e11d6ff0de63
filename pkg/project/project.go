package project

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
	"github.com/hashicorp-forge/gdc/pkg/md"
)

// State of a project.
type State string

const (
	StatePreparing State = "PREPARING"
	StatePrepared  State = "PREPARED"
	StateLoading   State = "LOADING"
	StateEnabled   State = "ENABLED"
	StateDisabled  State = "DISABLED"
	StateDeleted   State = "DELETED"
	StateArchived  State = "ARCHIVED"
	StateMigrated  State = "MIGRATED"
)

// Driver is the database backing a project.
type Driver string

const (
	DriverPostgres Driver = "Pg"
	DriverVertica  Driver = "vertica"
)

// Environment of a project.
type Environment string

const (
	Production  Environment = "PRODUCTION"
	Development Environment = "DEVELOPMENT"
	Testing     Environment = "TESTING"
)

// Link keys of a project.
const (
	LinkSelf     = "self"
	LinkUsers    = "users"
	LinkRoles    = "roles"
	LinkMetadata = "metadata"
)

// Content holds the settings of a project.
type Content struct {
	AuthorizationToken string      `json:"authorizationToken,omitempty"`
	Driver             Driver      `json:"driver,omitempty"`
	Environment        Environment `json:"environment,omitempty"`
	GuidedNavigation   md.Flag     `json:"guidedNavigation,omitempty"`
	IsPublic           md.Flag     `json:"isPublic,omitempty"`
	State              State       `json:"state,omitempty"`
	Cluster            string      `json:"cluster,omitempty"`
}

// Project is a workspace of the platform:
//
//	{"project": {"meta": {"title": "..."}, "content": {...}, "links": {"self": "..."}}}
type Project struct {
	Meta    md.Meta           `json:"meta"`
	Content Content           `json:"content"`
	Links   map[string]string `json:"links,omitempty"`
}

// Workspace is the newer name of a project; the API and this package treat
// them the same.
type Workspace = Project

// NewProject returns a project to be created with authorization token
// token.
func NewProject(title, token string) (*Project, error) {
	p := &Project{
		Meta: md.Meta{Title: title},
		Content: Content{
			AuthorizationToken: token,
			Driver:             DriverPostgres,
			Environment:        Production,
			GuidedNavigation:   true,
		},
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the fields of a create request.
func (p *Project) Validate() error {
	return validation.Errors{
		"title":              validation.Validate(p.Meta.Title, validation.Required),
		"authorizationToken": validation.Validate(p.Content.AuthorizationToken, validation.Required),
		"driver":             validation.Validate(p.Content.Driver, validation.In(DriverPostgres, DriverVertica)),
		"environment":        validation.Validate(p.Content.Environment, validation.In(Production, Development, Testing)),
	}.Filter()
}

// URI returns the self link, falling back to the meta URI.
func (p *Project) URI() string {
	if uri := p.Links[LinkSelf]; uri != "" {
		return uri
	}
	return p.Meta.URI
}

// ID returns the project id from its URI.
func (p *Project) ID() string {
	if p.URI() == "" {
		return ""
	}
	return gdc.IDFromURI(p.URI())
}

// Title returns the project title.
func (p *Project) Title() string {
	return p.Meta.Title
}

// State returns the project state.
func (p *Project) State() State {
	return p.Content.State
}

// IsPreparing reports a project still being set up.
func (p *Project) IsPreparing() bool {
	switch p.Content.State {
	case StatePreparing, StatePrepared, StateLoading:
		return true
	}
	return false
}

// IsEnabled reports a project ready for use.
func (p *Project) IsEnabled() bool {
	return p.Content.State == StateEnabled
}

func (p *Project) String() string {
	return fmt.Sprintf("project %q (%s)", p.Meta.Title, p.URI())
}

type projectBody Project

func (p Project) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]projectBody{"project": projectBody(p)})
}

func (p *Project) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Project *projectBody `json:"project"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Project == nil {
		return fmt.Errorf("project has no %q key", "project")
	}
	*p = Project(*wrapped.Project)
	return nil
}

// Role is a project role.
type Role struct {
	URI         string             `json:"-"`
	Meta        md.Meta            `json:"meta"`
	Permissions map[string]md.Flag `json:"permissions"`
	Links       struct {
		RoleUsers string `json:"roleUsers,omitempty"`
	} `json:"links"`
}

// Identifier returns the role identifier, for example "adminRole".
func (r *Role) Identifier() string {
	return r.Meta.Identifier
}

// User is a member of a project.
type User struct {
	Content struct {
		Email     string   `json:"email,omitempty"`
		Login     string   `json:"login,omitempty"`
		FirstName string   `json:"firstname,omitempty"`
		LastName  string   `json:"lastname,omitempty"`
		Status    string   `json:"status,omitempty"`
		UserRoles []string `json:"userRoles,omitempty"`
	} `json:"content"`
	Links struct {
		Self string `json:"self"`
	} `json:"links"`
}

// ProfileURI returns the account profile of the user.
func (u *User) ProfileURI() string {
	return u.Links.Self
}

// Login returns the user login.
func (u *User) Login() string {
	return u.Content.Login
}
