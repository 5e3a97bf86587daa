package ecosystem

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cynqhq/cynq/internal/sessions"
	"github.com/cynqhq/cynq/pkg/models"
)

func newTestRepository(t *testing.T) (*Repository, *sessions.SnapshotStore) {
	t.Helper()
	store, err := sessions.OpenSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSnapshotStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewRepository(store, nil), store
}

func TestImportEcosystemDedupesCaseInsensitively(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	data := ImportData{
		Contacts: []ContactImport{{Name: "Ada Lovelace", Email: "ada@example.com"}},
		Skills:   []NamedImport{{Name: "Go"}, {Name: "Rust"}},
	}

	report, err := repo.ImportEcosystem(ctx, data)
	if err != nil {
		t.Fatalf("ImportEcosystem() error = %v", err)
	}
	if report.ImportedCounts["contacts"] != 1 || report.ImportedCounts["skills"] != 2 {
		t.Errorf("unexpected counts: %+v", report.ImportedCounts)
	}

	// Second import with differing case must add nothing.
	again, err := repo.ImportEcosystem(ctx, ImportData{
		Contacts: []ContactImport{{Name: "ADA LOVELACE"}},
		Skills:   []NamedImport{{Name: "go"}},
	})
	if err != nil {
		t.Fatalf("ImportEcosystem(repeat) error = %v", err)
	}
	for key, count := range again.ImportedCounts {
		if count != 0 {
			t.Errorf("expected idempotent import, %s got %d", key, count)
		}
	}
	if len(again.ImportedTypes) != 0 {
		t.Errorf("expected no imported types, got %v", again.ImportedTypes)
	}

	profile, err := repo.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if len(profile.Contacts) != 1 || len(profile.Skills) != 2 {
		t.Errorf("unexpected profile after imports: %d contacts, %d skills", len(profile.Contacts), len(profile.Skills))
	}
}

func TestImportProfileMergesInterestsAndGoals(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	if _, err := repo.AddGoal(ctx, "Ship v1"); err != nil {
		t.Fatalf("AddGoal() error = %v", err)
	}
	if err := repo.ImportProfile(ctx, "Find a co-founder", []string{"AI", "climbing"}, "Engineer"); err != nil {
		t.Fatalf("ImportProfile() error = %v", err)
	}
	if err := repo.ImportProfile(ctx, "", []string{"AI", "music"}, ""); err != nil {
		t.Fatalf("ImportProfile(second) error = %v", err)
	}

	profile, err := repo.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if len(profile.Interests) != 3 {
		t.Errorf("expected deduped interests, got %v", profile.Interests)
	}
	var texts []string
	for _, g := range profile.Goals {
		texts = append(texts, g.Text)
	}
	found := false
	for _, text := range texts {
		if text == "Find a co-founder" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected imported goal line, got %v", texts)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := sessions.OpenSnapshotStore(dir)
	if err != nil {
		t.Fatalf("OpenSnapshotStore() error = %v", err)
	}
	repo := NewRepository(store, nil)
	if _, err := repo.AddGoal(ctx, "persist me"); err != nil {
		t.Fatalf("AddGoal() error = %v", err)
	}
	if err := repo.SetConnected(ctx, "github", true); err != nil {
		t.Fatalf("SetConnected() error = %v", err)
	}
	store.Close()

	store2, err := sessions.OpenSnapshotStore(dir)
	if err != nil {
		t.Fatalf("OpenSnapshotStore(reopen) error = %v", err)
	}
	defer store2.Close()
	repo2 := NewRepository(store2, nil)

	profile, err := repo2.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if len(profile.Goals) != 1 || profile.Goals[0].Text != "persist me" {
		t.Errorf("expected goal to survive reopen, got %+v", profile.Goals)
	}
	connected, err := repo2.Connected(ctx, "github")
	if err != nil || !connected {
		t.Errorf("expected github connection to survive reopen: %v, %v", connected, err)
	}
}

func TestToggleGoal(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	goal, err := repo.AddGoal(ctx, "run")
	if err != nil {
		t.Fatalf("AddGoal() error = %v", err)
	}
	ok, err := repo.ToggleGoal(ctx, goal.ID)
	if err != nil || !ok {
		t.Fatalf("ToggleGoal() = %v, %v", ok, err)
	}
	profile, _ := repo.Profile(ctx)
	if !profile.Goals[0].Completed {
		t.Error("expected goal to be completed after toggle")
	}

	ok, err = repo.ToggleGoal(ctx, "missing")
	if err != nil {
		t.Fatalf("ToggleGoal(missing) error = %v", err)
	}
	if ok {
		t.Error("expected toggle of unknown goal to report false")
	}
}

func TestMigrateV0Interests(t *testing.T) {
	state := map[string]any{
		"interests":  "AI, climbing; music\nrunning",
		"background": "dev",
	}
	raw, _ := json.Marshal(state)
	got, migrated, err := migrate(envelope{Version: 0, State: raw})
	if err != nil {
		t.Fatalf("migrate() error = %v", err)
	}
	if !migrated {
		t.Error("expected v0 snapshot to report migration")
	}
	want := []string{"AI", "climbing", "music", "running"}
	if len(got.Interests) != len(want) {
		t.Fatalf("expected %v, got %v", want, got.Interests)
	}
	for i := range want {
		if got.Interests[i] != want[i] {
			t.Errorf("interest %d: expected %q, got %q", i, want[i], got.Interests[i])
		}
	}
}

func TestMigrateV1Goals(t *testing.T) {
	state := map[string]any{
		"goals":     "Ship v1\n\nFind users",
		"interests": []string{"AI"},
	}
	raw, _ := json.Marshal(state)
	got, migrated, err := migrate(envelope{Version: 1, State: raw})
	if err != nil {
		t.Fatalf("migrate() error = %v", err)
	}
	if !migrated {
		t.Error("expected v1 snapshot to report migration")
	}
	if len(got.Goals) != 2 {
		t.Fatalf("expected 2 goals, got %+v", got.Goals)
	}
	if got.Goals[0].Text != "Ship v1" || got.Goals[1].Text != "Find users" {
		t.Errorf("unexpected goal texts: %+v", got.Goals)
	}
	for _, g := range got.Goals {
		if g.ID == "" || g.Completed {
			t.Errorf("migrated goals must get ids and start active: %+v", g)
		}
	}
}

func TestMigrateCurrentVersionPassesThrough(t *testing.T) {
	state := State{
		Goals:     []models.Goal{{ID: "g1", Text: "x", Completed: true}},
		Interests: []string{"AI"},
	}
	env := envelopeFor(&state)
	got, migrated, err := migrate(env)
	if err != nil {
		t.Fatalf("migrate() error = %v", err)
	}
	if migrated {
		t.Error("current-version snapshot must not report migration")
	}
	if len(got.Goals) != 1 || !got.Goals[0].Completed {
		t.Errorf("unexpected state: %+v", got.Goals)
	}
}

func TestMigrateRejectsFutureVersion(t *testing.T) {
	if _, _, err := migrate(envelope{Version: 99, State: json.RawMessage(`{}`)}); err == nil {
		t.Error("expected error for future snapshot version")
	}
}
