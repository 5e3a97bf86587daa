package datasync

import (
	"context"
	"testing"
	"time"

	"github.com/cynqhq/cynq/internal/ecosystem"
	"github.com/cynqhq/cynq/internal/sessions"
	"github.com/cynqhq/cynq/pkg/models"
)

func newTestSyncer(t *testing.T) (*Syncer, *ecosystem.Repository) {
	t.Helper()
	store, err := sessions.OpenSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSnapshotStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	repo := ecosystem.NewRepository(store, nil)
	return NewSyncer(repo, nil), repo
}

func TestSyncGoogleImportsEvents(t *testing.T) {
	ctx := context.Background()
	s, repo := newTestSyncer(t)
	fixed := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	result, err := s.Sync(ctx, "google")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if result.Report.ImportedCounts["events"] != 3 {
		t.Errorf("expected 3 imported events, got %+v", result.Report.ImportedCounts)
	}
	events, ok := result.Records.([]models.CalendarEvent)
	if !ok {
		t.Fatalf("unexpected records type %T", result.Records)
	}
	if events[0].Summary != "AI Tech Summit 2024" {
		t.Errorf("unexpected first event %+v", events[0])
	}
	if events[0].Start != fixed.Add(48*time.Hour).Format(time.RFC3339) {
		t.Errorf("unexpected event start %q", events[0].Start)
	}

	profile, err := repo.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if len(profile.Events) != 3 {
		t.Errorf("expected events in ecosystem, got %d", len(profile.Events))
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSyncer(t)

	if _, err := s.Sync(ctx, "linkedin"); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	again, err := s.Sync(ctx, "linkedin")
	if err != nil {
		t.Fatalf("Sync(repeat) error = %v", err)
	}
	if again.Report.ImportedCounts["contacts"] != 0 {
		t.Errorf("expected repeat sync to add nothing, got %+v", again.Report.ImportedCounts)
	}
}

func TestSyncMapsServicesToCollections(t *testing.T) {
	ctx := context.Background()
	s, repo := newTestSyncer(t)

	for _, service := range []string{"github", "slack", "notion"} {
		if _, err := s.Sync(ctx, service); err != nil {
			t.Fatalf("Sync(%s) error = %v", service, err)
		}
	}

	profile, err := repo.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if len(profile.Projects) != 3 {
		t.Errorf("github sync must land in projects, got %d", len(profile.Projects))
	}
	if len(profile.Communities) != 3 {
		t.Errorf("slack sync must land in communities, got %d", len(profile.Communities))
	}
	if len(profile.Knowledge) != 3 {
		t.Errorf("notion sync must land in knowledge, got %d", len(profile.Knowledge))
	}
	if profile.Knowledge[0].URL == "" {
		t.Error("notion pages must keep their urls")
	}
}

func TestSyncRejectsUnsupportedService(t *testing.T) {
	s, _ := newTestSyncer(t)
	if _, err := s.Sync(context.Background(), "meetup"); err == nil {
		t.Error("expected error for service without a sync source")
	}
	if Supported("meetup") || !Supported("google") {
		t.Error("Supported() misclassifies services")
	}
}
