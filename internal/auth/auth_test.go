package auth

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"
)

type fakeConnections struct {
	state map[string]bool
}

func (f *fakeConnections) SetConnected(_ context.Context, service string, connected bool) error {
	if f.state == nil {
		f.state = make(map[string]bool)
	}
	f.state[service] = connected
	return nil
}

func newTestService(conns ConnectionStore) *Service {
	return NewService(Config{
		JWTSecret:   "test-secret",
		TokenExpiry: time.Hour,
		Connections: conns,
	})
}

func TestLoginURLPointsAtMockConsent(t *testing.T) {
	s := newTestService(nil)

	raw, err := s.LoginURL("google")
	if err != nil {
		t.Fatalf("LoginURL() error = %v", err)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q) error = %v", raw, err)
	}
	if parsed.Path != "/auth/mock-consent/google" {
		t.Errorf("unexpected consent path %q", parsed.Path)
	}
	q := parsed.Query()
	if q.Get("redirect_uri") != "/api/auth/google/callback" {
		t.Errorf("unexpected redirect_uri %q", q.Get("redirect_uri"))
	}
	if q.Get("state") == "" || q.Get("client_id") == "" {
		t.Errorf("missing oauth params in %q", raw)
	}
}

func TestLoginURLRejectsUnknownService(t *testing.T) {
	s := newTestService(nil)
	if _, err := s.LoginURL("myspace"); err == nil {
		t.Error("expected error for unknown service")
	}
}

func TestExchangeMintsVerifiableToken(t *testing.T) {
	ctx := context.Background()
	conns := &fakeConnections{}
	s := newTestService(conns)

	token, err := s.Exchange(ctx, "github", "mock-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if token.ExpiresIn != 28800 {
		t.Errorf("github lifetime = %d, want 28800", token.ExpiresIn)
	}
	if token.Scope != "repo,read:user" {
		t.Errorf("unexpected scope %q", token.Scope)
	}
	if !strings.HasPrefix(token.RefreshToken, "mock_github_refresh_token_") {
		t.Errorf("unexpected refresh token %q", token.RefreshToken)
	}
	if !conns.state["github"] {
		t.Error("exchange must mark the service connected")
	}

	claims, err := s.VerifyToken(token.AccessToken)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if claims.Service != "github" || claims.Scope != "repo,read:user" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Subject != "github" || claims.Issuer != "cynq" {
		t.Errorf("unexpected registered claims: %+v", claims.RegisteredClaims)
	}
}

func TestExchangeOmitsRefreshTokenWhereNotIssued(t *testing.T) {
	s := newTestService(nil)
	token, err := s.Exchange(context.Background(), "slack", "code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if token.RefreshToken != "" {
		t.Errorf("slack must not issue a refresh token, got %q", token.RefreshToken)
	}
	if token.ExpiresIn != 86400 {
		t.Errorf("slack lifetime = %d, want 86400", token.ExpiresIn)
	}
}

func TestExchangeRequiresCode(t *testing.T) {
	s := newTestService(nil)
	if _, err := s.Exchange(context.Background(), "google", "  "); err == nil {
		t.Error("expected error for empty code")
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	s := newTestService(nil)
	past := time.Now().Add(-48 * time.Hour)
	s.now = func() time.Time { return past }

	token, err := s.Exchange(context.Background(), "notion", "code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if _, err := s.VerifyToken(token.AccessToken); err == nil {
		t.Error("expected expired token to fail verification")
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	s := newTestService(nil)
	token, err := s.Exchange(context.Background(), "twitter", "code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}

	other := NewService(Config{JWTSecret: "different"})
	if _, err := other.VerifyToken(token.AccessToken); err == nil {
		t.Error("expected token signed with another secret to fail")
	}
}

func TestDisconnectClearsFlag(t *testing.T) {
	ctx := context.Background()
	conns := &fakeConnections{}
	s := newTestService(conns)

	if _, err := s.Exchange(ctx, "discord", "code"); err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if err := s.Disconnect(ctx, "discord"); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if conns.state["discord"] {
		t.Error("disconnect must clear the connected flag")
	}
	if err := s.Disconnect(ctx, "geocities"); err == nil {
		t.Error("expected error for unknown service")
	}
}

func TestServicesListsRegistryInOrder(t *testing.T) {
	services := Services()
	if len(services) != 10 {
		t.Fatalf("expected 10 services, got %d", len(services))
	}
	for i := 1; i < len(services); i++ {
		if services[i-1] >= services[i] {
			t.Errorf("services not sorted: %v", services)
		}
	}
	if !Known("google") || Known("myspace") {
		t.Error("Known() misclassifies services")
	}
}
