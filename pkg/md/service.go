package md

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

const (
	objTemplate         gdc.Template = "/gdc/md/{projectId}/obj/{objId}"
	createObjTemplate   gdc.Template = "/gdc/md/{projectId}/obj?createAndGet=true"
	queryTemplate       gdc.Template = "/gdc/md/{projectId}/query/{category}"
	identifiersTemplate gdc.Template = "/gdc/md/{projectId}/identifiers"
	usedByTemplate      gdc.Template = "/gdc/md/{projectId}/usedby2"
	usingTemplate       gdc.Template = "/gdc/md/{projectId}/using2"
)

// ObjNotFoundError is returned when a metadata object does not exist.
type ObjNotFoundError struct {
	URI string
	Err error
}

func (e *ObjNotFoundError) Error() string {
	return fmt.Sprintf("metadata object %s not found", e.URI)
}

func (e *ObjNotFoundError) Unwrap() error {
	return e.Err
}

// Service manages metadata objects of projects.
type Service struct {
	client *gdc.Client
	logger hclog.Logger
}

// NewService creates a metadata service.
func NewService(c *gdc.Client) *Service {
	return &Service{
		client: c,
		logger: c.Logger().Named("md"),
	}
}

// GetObjByURI fetches the object at uri.
func (s *Service) GetObjByURI(ctx context.Context, uri string) (*Object, error) {
	var obj Object
	if err := s.GetObjInto(ctx, uri, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// GetObjByID fetches object objID of project projectID.
func (s *Service) GetObjByID(ctx context.Context, projectID, objID string) (*Object, error) {
	return s.GetObjByURI(ctx, objTemplate.Expand(projectID, objID))
}

// GetObjInto decodes the object at uri into out, which is typically a typed
// model such as a report definition.
func (s *Service) GetObjInto(ctx context.Context, uri string, out any) error {
	if err := s.client.GetJSON(ctx, uri, out); err != nil {
		if gdc.IsNotFound(err) {
			return &ObjNotFoundError{URI: uri, Err: err}
		}
		return fmt.Errorf("failed to get metadata object %s: %w", uri, err)
	}
	return nil
}

// CreateObj stores obj in project projectID and returns the stored object.
// obj is an *Object or any typed model with a category root.
func (s *Service) CreateObj(ctx context.Context, projectID string, obj any) (*Object, error) {
	uri := createObjTemplate.Expand(projectID)

	var created Object
	if _, err := s.client.PostJSON(ctx, uri, obj, &created); err != nil {
		return nil, fmt.Errorf("failed to create metadata object in project %s: %w", projectID, err)
	}

	s.logger.Debug("created metadata object", "uri", created.URI(), "category", created.Category)
	return &created, nil
}

// UpdateObj replaces the object at uri with obj.
func (s *Service) UpdateObj(ctx context.Context, uri string, obj any) error {
	if _, err := s.client.PutJSON(ctx, uri, obj, nil); err != nil {
		if gdc.IsNotFound(err) {
			return &ObjNotFoundError{URI: uri, Err: err}
		}
		return fmt.Errorf("failed to update metadata object %s: %w", uri, err)
	}
	return nil
}

// RemoveObj deletes the object at uri.
func (s *Service) RemoveObj(ctx context.Context, uri string) error {
	if _, err := s.client.Delete(ctx, uri); err != nil {
		if gdc.IsNotFound(err) {
			return &ObjNotFoundError{URI: uri, Err: err}
		}
		return fmt.Errorf("failed to remove metadata object %s: %w", uri, err)
	}
	s.logger.Debug("removed metadata object", "uri", uri)
	return nil
}

// Find lists the objects of category (for example "metrics" or "reports")
// in project projectID.
func (s *Service) Find(ctx context.Context, projectID, category string) ([]Entry, error) {
	uri := queryTemplate.Expand(projectID, category)

	var result queryResult
	if err := s.client.GetJSON(ctx, uri, &result); err != nil {
		return nil, fmt.Errorf("failed to query %s in project %s: %w", category, projectID, err)
	}
	return result.Query.Entries, nil
}

// FindURIs returns the links of the entries of category accepted by match.
// A nil match accepts every entry.
func (s *Service) FindURIs(ctx context.Context, projectID, category string, match func(Entry) bool) ([]string, error) {
	entries, err := s.Find(ctx, projectID, category)
	if err != nil {
		return nil, err
	}

	var uris []string
	for _, e := range entries {
		if match == nil || match(e) {
			uris = append(uris, e.Link)
		}
	}
	return uris, nil
}

// FindOneURI returns the link of the single entry accepted by match.
func (s *Service) FindOneURI(ctx context.Context, projectID, category string, match func(Entry) bool) (string, error) {
	uris, err := s.FindURIs(ctx, projectID, category, match)
	if err != nil {
		return "", err
	}
	switch len(uris) {
	case 0:
		return "", &ObjNotFoundError{URI: queryTemplate.Expand(projectID, category)}
	case 1:
		return uris[0], nil
	default:
		return "", fmt.Errorf("%d %s match, expected one", len(uris), category)
	}
}

// GetURIsByIdentifiers maps object identifiers to URIs. Unknown identifiers
// are missing from the result.
func (s *Service) GetURIsByIdentifiers(ctx context.Context, projectID string, identifiers ...string) (map[string]string, error) {
	uri := identifiersTemplate.Expand(projectID)

	req := map[string]any{"identifierToUri": identifiers}
	var resp struct {
		Identifiers []struct {
			URI        string `json:"uri"`
			Identifier string `json:"identifier"`
		} `json:"identifiers"`
	}
	if _, err := s.client.PostJSON(ctx, uri, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to resolve identifiers in project %s: %w", projectID, err)
	}

	out := make(map[string]string, len(resp.Identifiers))
	for _, id := range resp.Identifiers {
		out[id.Identifier] = id.URI
	}
	return out, nil
}

// UsedBy lists the objects using each of uris. nearest restricts the result
// to direct dependencies. types limits the result to the given categories.
func (s *Service) UsedBy(ctx context.Context, projectID string, uris []string, nearest bool, types ...string) ([]UseMany, error) {
	return s.usage(ctx, usedByTemplate.Expand(projectID), uris, nearest, types)
}

// Using lists the objects each of uris depends on.
func (s *Service) Using(ctx context.Context, projectID string, uris []string, nearest bool, types ...string) ([]UseMany, error) {
	return s.usage(ctx, usingTemplate.Expand(projectID), uris, nearest, types)
}

func (s *Service) usage(ctx context.Context, uri string, uris []string, nearest bool, types []string) ([]UseMany, error) {
	n := 0
	if nearest {
		n = 1
	}
	req := map[string]any{
		"inUseMany": map[string]any{
			"uris":    uris,
			"types":   types,
			"nearest": n,
		},
	}

	var resp struct {
		UseMany []UseMany `json:"useMany"`
	}
	if _, err := s.client.Execute(ctx, http.MethodPost, uri, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to get usage of %s: %w", strings.Join(uris, ", "), err)
	}
	return resp.UseMany, nil
}
