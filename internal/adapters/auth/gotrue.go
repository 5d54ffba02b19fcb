// Package auth is a client for a GoTrue-compatible managed auth service.
// The current session is persisted so a restarted process stays signed in.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/0xcro3dile/ao-assistant/internal/adapters/store"
	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
	"github.com/0xcro3dile/ao-assistant/internal/domain/ports"
)

// refreshMargin renews tokens slightly before they expire.
const refreshMargin = 30 * time.Second

// Provider implements ports.AuthProvider.
type Provider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	stored  *store.Value[*entities.Session]
	now     func() time.Time

	mu      sync.Mutex
	session *entities.Session
	loaded  bool

	// refreshes lets concurrent callers share one token refresh.
	refreshes singleflight.Group

	subsMu sync.Mutex
	subs   map[int]func(ports.AuthEvent, *entities.Session)
	nextID int
}

// NewProvider creates an auth client. apiKey is sent as the apikey header
// on every request.
func NewProvider(baseURL, apiKey string, kv ports.KeyValueStore) *Provider {
	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		stored: store.NewValue[*entities.Session](kv, store.KeySession, nil),
		now:    time.Now,
		subs:   make(map[int]func(ports.AuthEvent, *entities.Session)),
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	Msg         string `json:"msg"`
	Message     string `json:"message"`
}

// SignUp registers a new account. Services that confirm instantly answer
// with a session, which is then adopted.
func (p *Provider) SignUp(ctx context.Context, email, password string) error {
	var resp tokenResponse
	if err := p.post(ctx, "sign up", "/signup", "", credentials{email, password}, &resp); err != nil {
		return err
	}
	if resp.AccessToken == "" {
		slog.Info("sign-up pending confirmation", "email", email)
		return nil
	}

	session, err := p.toSession(resp)
	if err != nil {
		return err
	}
	p.setSession(ctx, session, ports.AuthSignedIn)
	return nil
}

// SignIn authenticates with email and password.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*entities.Session, error) {
	var resp tokenResponse
	if err := p.post(ctx, "sign in", "/token?grant_type=password", "", credentials{email, password}, &resp); err != nil {
		return nil, err
	}

	session, err := p.toSession(resp)
	if err != nil {
		return nil, err
	}
	p.setSession(ctx, session, ports.AuthSignedIn)

	slog.Info("signed in", "user", session.User.ID)
	out := *session
	return &out, nil
}

// SignOut revokes the session remotely and always forgets it locally.
func (p *Provider) SignOut(ctx context.Context) error {
	session, err := p.CurrentSession(ctx)
	if err == nil && session != nil {
		if err := p.post(ctx, "sign out", "/logout", session.AccessToken, struct{}{}, nil); err != nil {
			slog.Warn("remote sign-out failed", "error", err)
		}
	}
	p.setSession(ctx, nil, ports.AuthSignedOut)
	return nil
}

// ResetPassword asks the service to email a recovery link.
func (p *Provider) ResetPassword(ctx context.Context, email string) error {
	return p.post(ctx, "reset password", "/recover", "", map[string]string{"email": email}, nil)
}

// CurrentSession returns the active session, renewing it when the access
// token is about to expire. It fails with entities.ErrNoSession when signed out.
func (p *Provider) CurrentSession(ctx context.Context) (*entities.Session, error) {
	p.mu.Lock()
	if !p.loaded {
		p.session = p.stored.Load(ctx)
		p.loaded = true
	}
	session := p.session
	p.mu.Unlock()

	if session == nil {
		return nil, entities.ErrNoSession
	}
	if !session.Expired(p.now().Add(refreshMargin)) {
		out := *session
		return &out, nil
	}

	v, err, _ := p.refreshes.Do("refresh", func() (any, error) {
		return p.renew(ctx)
	})
	if err != nil {
		return nil, err
	}

	out := *v.(*entities.Session)
	return &out, nil
}

// renew refreshes the current session once. A refresh that completed while
// the caller waited has already rotated the token, so it is reused.
func (p *Provider) renew(ctx context.Context) (*entities.Session, error) {
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()

	if session == nil {
		return nil, entities.ErrNoSession
	}
	if !session.Expired(p.now().Add(refreshMargin)) {
		return session, nil
	}

	refreshed, err := p.refresh(ctx, session.RefreshToken)
	if err != nil {
		slog.Warn("session refresh failed", "user", session.User.ID, "error", err)
		p.setSession(ctx, nil, ports.AuthSignedOut)
		return nil, fmt.Errorf("%w: %v", entities.ErrNoSession, err)
	}
	p.setSession(ctx, refreshed, ports.AuthTokenRefreshed)
	return refreshed, nil
}

func (p *Provider) refresh(ctx context.Context, refreshToken string) (*entities.Session, error) {
	if refreshToken == "" {
		return nil, errors.New("no refresh token")
	}
	var resp tokenResponse
	body := map[string]string{"refresh_token": refreshToken}
	if err := p.post(ctx, "refresh session", "/token?grant_type=refresh_token", "", body, &resp); err != nil {
		return nil, err
	}
	return p.toSession(resp)
}

// OnAuthStateChange registers fn for session transitions.
func (p *Provider) OnAuthStateChange(fn func(event ports.AuthEvent, session *entities.Session)) func() {
	p.subsMu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.subsMu.Unlock()

	return func() {
		p.subsMu.Lock()
		delete(p.subs, id)
		p.subsMu.Unlock()
	}
}

func (p *Provider) setSession(ctx context.Context, session *entities.Session, event ports.AuthEvent) {
	p.mu.Lock()
	p.session = session
	p.loaded = true
	p.mu.Unlock()

	var err error
	if session == nil {
		err = p.stored.Clear(ctx)
	} else {
		err = p.stored.Save(ctx, session)
	}
	if err != nil {
		slog.Error("failed to persist session", "error", err)
	}

	p.subsMu.Lock()
	subs := make([]func(ports.AuthEvent, *entities.Session), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.subsMu.Unlock()

	for _, fn := range subs {
		if session == nil {
			fn(event, nil)
			continue
		}
		out := *session
		fn(event, &out)
	}
}

// toSession builds a session from a token response. Fields the response
// omits are taken from the access token claims.
func (p *Provider) toSession(resp tokenResponse) (*entities.Session, error) {
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access token", entities.ErrMalformedResponse)
	}

	session := &entities.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if resp.User != nil {
		session.User = entities.User{ID: resp.User.ID, Email: resp.User.Email}
	}
	switch {
	case resp.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(resp.ExpiresAt, 0).UTC()
	case resp.ExpiresIn > 0:
		session.ExpiresAt = p.now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC()
	}

	// The signature is not checked here.
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(resp.AccessToken, &claims); err != nil {
		slog.Debug("access token is not a readable JWT", "error", err)
	} else {
		if session.User.ID == "" {
			session.User.ID = claims.Subject
		}
		if session.User.Email == "" {
			session.User.Email = claims.Email
		}
		if session.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
			session.ExpiresAt = claims.ExpiresAt.Time.UTC()
		}
	}

	if session.User.ID == "" {
		return nil, fmt.Errorf("%w: session has no user", entities.ErrMalformedResponse)
	}
	return session, nil
}

func (p *Provider) post(ctx context.Context, op, path, bearer string, body any, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}
	if bearer == "" {
		bearer = p.apiKey
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling auth service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return p.statusError(op, resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, entities.ErrMalformedResponse, err)
	}
	return nil
}

func (p *Provider) statusError(op string, status int, data []byte) error {
	var e errorResponse
	_ = json.Unmarshal(data, &e)

	message := e.Description
	for _, m := range []string{e.Msg, e.Message, e.Error} {
		if message == "" {
			message = m
		}
	}

	if op == "sign in" && (status == http.StatusBadRequest || status == http.StatusUnauthorized) {
		if message == "" {
			return entities.ErrInvalidCredentials
		}
		return fmt.Errorf("%w: %s", entities.ErrInvalidCredentials, message)
	}
	return &entities.BackendError{Op: op, StatusCode: status, Message: message}
}
