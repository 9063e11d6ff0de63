package gdc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const (
	sstHeader = "X-GDC-AuthSST"
	ttHeader  = "X-GDC-AuthTT"

	loginURI        = "/gdc/account/login"
	tokenURI        = "/gdc/account/token"
	currentUserURI  = "/gdc/account/profile/current"
	ttTokenType     = "GDC-TT"
	ttLifetime      = 10 * time.Minute
	ttExpiryLeeway  = 30 * time.Second
	sessionAuthName = "session"
	bearerAuthName  = "bearer"
)

// authenticator adds credentials to outgoing requests.
type authenticator interface {
	name() string
	authorize(req *http.Request) error
	// renewable reports whether reset can fix a 401.
	renewable() bool
	reset()
}

type bearerAuth struct {
	source oauth2.TokenSource
}

func newBearerAuth(token string) *bearerAuth {
	return &bearerAuth{
		source: oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token,
			TokenType:   "Bearer",
		}),
	}
}

func (a *bearerAuth) name() string    { return bearerAuthName }
func (a *bearerAuth) renewable() bool { return false }
func (a *bearerAuth) reset()          {}

func (a *bearerAuth) authorize(req *http.Request) error {
	tok, err := a.source.Token()
	if err != nil {
		return err
	}
	tok.SetAuthHeader(req)
	return nil
}

// sessionAuth logs in with login and password to obtain a super secured
// token (SST) and exchanges it for short lived temporary tokens (TT).
type sessionAuth struct {
	client *Client
	tt     *ttSource

	mu     sync.Mutex
	cached oauth2.TokenSource
}

func newSessionAuth(c *Client, login, password string) *sessionAuth {
	tt := &ttSource{client: c, login: login, password: password}
	return &sessionAuth{
		client: c,
		tt:     tt,
		cached: oauth2.ReuseTokenSource(nil, tt),
	}
}

func (a *sessionAuth) name() string    { return sessionAuthName }
func (a *sessionAuth) renewable() bool { return true }

func (a *sessionAuth) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cached = oauth2.ReuseTokenSource(nil, a.tt)
}

func (a *sessionAuth) authorize(req *http.Request) error {
	a.mu.Lock()
	source := a.cached
	a.mu.Unlock()

	tok, err := source.Token()
	if err != nil {
		return err
	}
	req.Header.Set(ttHeader, tok.AccessToken)
	return nil
}

// ttSource implements oauth2.TokenSource on top of the SST/TT exchange.
type ttSource struct {
	client   *Client
	login    string
	password string

	mu         sync.Mutex
	sst        string
	profileURI string
	stateURI   string
}

type loginRequest struct {
	PostUserLogin struct {
		Login       string `json:"login"`
		Password    string `json:"password"`
		Remember    int    `json:"remember"`
		VerifyLevel int    `json:"verify_level"`
	} `json:"postUserLogin"`
}

type loginResponse struct {
	UserLogin struct {
		Profile string `json:"profile"`
		Token   string `json:"token"`
		State   string `json:"state"`
	} `json:"userLogin"`
}

type tokenResponse struct {
	UserToken struct {
		Token string `json:"token"`
	} `json:"userToken"`
}

// Token returns a fresh TT, logging in again when the SST expired.
func (s *ttSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// oauth2.TokenSource has no context, so a login is bounded by the
	// request timeout and not by the caller's context.
	ctx, cancel := context.WithTimeout(context.Background(), s.client.config.Timeout)
	defer cancel()

	if s.sst == "" {
		if err := s.doLogin(ctx); err != nil {
			return nil, err
		}
	}

	tt, err := s.fetchTT(ctx)
	if IsUnauthorized(err) {
		s.client.logger.Debug("SST rejected, logging in again")
		s.sst = ""
		if err := s.doLogin(ctx); err != nil {
			return nil, err
		}
		tt, err = s.fetchTT(ctx)
	}
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken: tt,
		TokenType:   ttTokenType,
		Expiry:      time.Now().Add(ttLifetime - ttExpiryLeeway),
	}, nil
}

func (s *ttSource) doLogin(ctx context.Context) error {
	var body loginRequest
	body.PostUserLogin.Login = s.login
	body.PostUserLogin.Password = s.password
	body.PostUserLogin.VerifyLevel = 2

	resp, err := s.client.send(ctx, http.MethodPost, loginURI, body, nil, false)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return newResponseError(http.MethodPost, loginURI, resp)
	}

	var out loginResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}
	if out.UserLogin.Token == "" {
		return fmt.Errorf("login response from %s carries no token", loginURI)
	}

	s.sst = out.UserLogin.Token
	s.profileURI = out.UserLogin.Profile
	s.stateURI = out.UserLogin.State
	s.client.logger.Debug("logged in", "login", s.login, "profile", s.profileURI)
	return nil
}

func (s *ttSource) fetchTT(ctx context.Context) (string, error) {
	header := http.Header{}
	header.Set(sstHeader, s.sst)

	resp, err := s.client.send(ctx, http.MethodGet, tokenURI, nil, header, false)
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", newResponseError(http.MethodGet, tokenURI, resp)
	}

	var out tokenResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	return out.UserToken.Token, nil
}

// IsUnauthorized reports whether err wraps an *Error with status 401.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// Account is the profile of the authenticated user.
type Account struct {
	Login     string `json:"login"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Created   *Time  `json:"created,omitempty"`
	Updated   *Time  `json:"updated,omitempty"`
	Links     struct {
		Self     string `json:"self"`
		Projects string `json:"projects,omitempty"`
	} `json:"links"`
}

// ID returns the profile id.
func (a *Account) ID() string {
	return IDFromURI(a.Links.Self)
}

// CurrentAccount returns the profile of the authenticated user.
func (c *Client) CurrentAccount(ctx context.Context) (*Account, error) {
	var out struct {
		AccountSetting Account `json:"accountSetting"`
	}
	if err := c.GetJSON(ctx, currentUserURI, &out); err != nil {
		return nil, fmt.Errorf("failed to get current account: %w", err)
	}
	return &out.AccountSetting, nil
}

// CurrentProfileURI returns the self link of the authenticated user.
func (c *Client) CurrentProfileURI(ctx context.Context) (string, error) {
	account, err := c.CurrentAccount(ctx)
	if err != nil {
		return "", err
	}
	if account.Links.Self == "" {
		return "", fmt.Errorf("current account %s has no self link", currentUserURI)
	}
	return account.Links.Self, nil
}

// Logout invalidates the SST of a login/password client. It is a no-op for
// bearer token clients.
func (c *Client) Logout(ctx context.Context) error {
	session, ok := c.auth.(*sessionAuth)
	if !ok {
		return nil
	}

	session.tt.mu.Lock()
	stateURI := session.tt.stateURI
	session.tt.mu.Unlock()
	if stateURI == "" {
		return nil
	}

	if _, err := c.Delete(ctx, stateURI); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}

	session.tt.mu.Lock()
	session.tt.sst = ""
	session.tt.stateURI = ""
	session.tt.mu.Unlock()
	session.reset()
	return nil
}
