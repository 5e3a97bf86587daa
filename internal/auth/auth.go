// Package auth implements the mock OAuth flows for the external services the
// ecosystem can connect to. No real provider is contacted: login URLs point
// at an internal consent page and the token exchange mints signed mock
// credentials. The shape of the flow (authorize redirect, code callback,
// token exchange, disconnect) mirrors the real one so the rest of the system
// treats connections uniformly.
package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/cynqhq/cynq/internal/observability"
	"github.com/cynqhq/cynq/pkg/models"
)

// Provider describes one connectable service.
type Provider struct {
	// Name is the lowercase service identifier used in routes.
	Name string

	// Scope is the scope string the mock grant carries. Separator
	// conventions vary per service, matching the real providers.
	Scope string

	// TokenLifetime is how long the minted upstream credential claims to
	// live.
	TokenLifetime time.Duration

	// IssuesRefreshToken controls whether the exchange returns a refresh
	// token alongside the access token.
	IssuesRefreshToken bool
}

var providers = map[string]Provider{
	"google":     {Name: "google", Scope: "https://www.googleapis.com/auth/calendar.readonly", TokenLifetime: time.Hour, IssuesRefreshToken: true},
	"linkedin":   {Name: "linkedin", Scope: "r_liteprofile r_emailaddress", TokenLifetime: 60 * 24 * time.Hour},
	"github":     {Name: "github", Scope: "repo,read:user", TokenLifetime: 8 * time.Hour, IssuesRefreshToken: true},
	"slack":      {Name: "slack", Scope: "users:read,channels:read", TokenLifetime: 24 * time.Hour},
	"notion":     {Name: "notion", Scope: "read_content", TokenLifetime: time.Hour},
	"meetup":     {Name: "meetup", Scope: "basic", TokenLifetime: time.Hour},
	"discord":    {Name: "discord", Scope: "identify", TokenLifetime: 7 * 24 * time.Hour},
	"eventbrite": {Name: "eventbrite", Scope: "events_read", TokenLifetime: 2 * time.Hour},
	"crunchbase": {Name: "crunchbase", Scope: "organization.read", TokenLifetime: 24 * time.Hour},
	"twitter":    {Name: "twitter", Scope: "tweet.read users.read", TokenLifetime: 2 * time.Hour},
}

// ErrUnknownService reports a service outside the registry.
type ErrUnknownService struct {
	Service string
}

func (e *ErrUnknownService) Error() string {
	return fmt.Sprintf("unknown service %q", e.Service)
}

// ConnectionStore records which services are connected. Implemented by the
// ecosystem repository.
type ConnectionStore interface {
	SetConnected(ctx context.Context, service string, connected bool) error
}

// TokenClaims are the claims carried by a minted mock access token.
type TokenClaims struct {
	Service string `json:"service"`
	Scope   string `json:"scope"`
	jwt.RegisteredClaims
}

// Service mints and verifies mock OAuth credentials.
type Service struct {
	secret      []byte
	tokenExpiry time.Duration
	connections ConnectionStore
	logger      *observability.Logger
	now         func() time.Time
}

// Config assembles an auth Service.
type Config struct {
	// JWTSecret signs the minted access tokens.
	JWTSecret string

	// TokenExpiry bounds how long a minted token verifies against this
	// service, independent of the lifetime the mock upstream grant claims.
	// Zero defaults to one hour.
	TokenExpiry time.Duration

	Connections ConnectionStore
	Logger      *observability.Logger
}

// NewService creates the mock OAuth service.
func NewService(cfg Config) *Service {
	if cfg.TokenExpiry == 0 {
		cfg.TokenExpiry = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Service{
		secret:      []byte(cfg.JWTSecret),
		tokenExpiry: cfg.TokenExpiry,
		connections: cfg.Connections,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// Services returns the registered service names in stable order.
func Services() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether service is in the registry.
func Known(service string) bool {
	_, ok := providers[service]
	return ok
}

// LoginURL builds the authorize redirect for service. The URL is relative
// and points at the internal mock consent page, which redirects back to the
// service's callback route with a code.
func (s *Service) LoginURL(service string) (string, error) {
	provider, ok := providers[service]
	if !ok {
		return "", &ErrUnknownService{Service: service}
	}
	conf := oauth2.Config{
		ClientID:    "cynq-mock-" + provider.Name,
		RedirectURL: fmt.Sprintf("/api/auth/%s/callback", provider.Name),
		Scopes:      strings.Fields(strings.ReplaceAll(provider.Scope, ",", " ")),
		Endpoint: oauth2.Endpoint{
			AuthURL: fmt.Sprintf("/auth/mock-consent/%s", provider.Name),
		},
	}
	return conf.AuthCodeURL(uuid.NewString()), nil
}

// Exchange simulates the authorization-code exchange for service, minting a
// signed access token and marking the service connected. The code itself is
// not validated beyond being non-empty; the consent page is mock too.
func (s *Service) Exchange(ctx context.Context, service, code string) (*models.OAuthToken, error) {
	provider, ok := providers[service]
	if !ok {
		return nil, &ErrUnknownService{Service: service}
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("missing authorization code for %s", service)
	}

	now := s.now()
	claims := TokenClaims{
		Service: provider.Name,
		Scope:   provider.Scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "cynq",
			Subject:   provider.Name,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiry)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	token := &models.OAuthToken{
		AccessToken: signed,
		ExpiresIn:   int(provider.TokenLifetime.Seconds()),
		Scope:       provider.Scope,
	}
	if provider.IssuesRefreshToken {
		token.RefreshToken = fmt.Sprintf("mock_%s_refresh_token_%s", provider.Name, uuid.NewString())
	}

	if s.connections != nil {
		if err := s.connections.SetConnected(ctx, provider.Name, true); err != nil {
			return nil, fmt.Errorf("failed to record %s connection: %w", provider.Name, err)
		}
	}
	s.logger.Info(ctx, "service connected", "service", provider.Name)
	return token, nil
}

// Disconnect clears the connected flag for service.
func (s *Service) Disconnect(ctx context.Context, service string) error {
	provider, ok := providers[service]
	if !ok {
		return &ErrUnknownService{Service: service}
	}
	if s.connections != nil {
		if err := s.connections.SetConnected(ctx, provider.Name, false); err != nil {
			return fmt.Errorf("failed to disconnect %s: %w", provider.Name, err)
		}
	}
	s.logger.Info(ctx, "service disconnected", "service", provider.Name)
	return nil
}

// VerifyToken parses and validates a minted access token, returning its
// claims.
func (s *Service) VerifyToken(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid access token")
	}
	return claims, nil
}
