// Package ecosystem stores the user's personal graph: goals, interests,
// background, contacts, events, communities, organizations, skills,
// projects, knowledge items and the relationships linking them. State is
// snapshotted to badger through the shared snapshot store and carries a
// schema version so older snapshots migrate on load.
package ecosystem

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/cynqhq/cynq/internal/observability"
	"github.com/cynqhq/cynq/internal/sessions"
	"github.com/cynqhq/cynq/pkg/models"
)

const snapshotKey = "userEcosystem"

// State is the complete persisted ecosystem.
type State struct {
	Goals         []models.Goal          `json:"goals"`
	Interests     []string               `json:"interests"`
	Background    string                 `json:"background"`
	Contacts      []models.Contact       `json:"contacts"`
	Events        []models.Event         `json:"events"`
	Communities   []models.Community     `json:"communities"`
	Organizations []models.Organization  `json:"organizations"`
	Skills        []models.Skill         `json:"skills"`
	Projects      []models.Project       `json:"projects"`
	Knowledge     []models.KnowledgeItem `json:"knowledge"`
	Relationships []models.Relationship  `json:"relationships"`

	// Connections tracks which external services are linked.
	Connections map[string]bool `json:"connections"`
}

// Repository owns the ecosystem state for the single local user.
type Repository struct {
	store  *sessions.SnapshotStore
	logger *observability.Logger

	mu     sync.Mutex
	loaded bool
	state  *State
}

// NewRepository creates a repository over the given snapshot store.
func NewRepository(store *sessions.SnapshotStore, logger *observability.Logger) *Repository {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Repository{store: store, logger: logger}
}

func (r *Repository) ensureLoaded(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	var env envelope
	err := r.store.Load(snapshotKey, &env)
	if err == sessions.ErrNotFound {
		r.state = newState()
		r.loaded = true
		return nil
	}
	if err != nil {
		return err
	}

	state, migrated, err := migrate(env)
	if err != nil {
		return err
	}
	r.state = state
	r.loaded = true
	if migrated {
		r.logger.Info(ctx, "migrated ecosystem snapshot",
			"from_version", env.Version, "to_version", schemaVersion)
		return r.persist()
	}
	return nil
}

func newState() *State {
	return &State{Connections: make(map[string]bool)}
}

// persist snapshots the state under the current schema version. Callers
// must hold r.mu.
func (r *Repository) persist() error {
	return r.store.Save(snapshotKey, envelopeFor(r.state))
}

// Profile returns the ecosystem as a prompt context. Community data is
// filled in by the caller; this repository only owns the personal graph.
func (r *Repository) Profile(ctx context.Context) (*models.UserProfileContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s := r.state
	return &models.UserProfileContext{
		Goals:         append([]models.Goal(nil), s.Goals...),
		Interests:     append([]string(nil), s.Interests...),
		Background:    s.Background,
		Contacts:      append([]models.Contact(nil), s.Contacts...),
		Events:        append([]models.Event(nil), s.Events...),
		Communities:   append([]models.Community(nil), s.Communities...),
		Organizations: append([]models.Organization(nil), s.Organizations...),
		Skills:        append([]models.Skill(nil), s.Skills...),
		Projects:      append([]models.Project(nil), s.Projects...),
		Knowledge:     append([]models.KnowledgeItem(nil), s.Knowledge...),
		Relationships: append([]models.Relationship(nil), s.Relationships...),
	}, nil
}

// ImportData is a bulk payload of named items from an external source.
type ImportData struct {
	Contacts      []ContactImport   `json:"contacts,omitempty"`
	Events        []NamedImport     `json:"events,omitempty"`
	Communities   []NamedImport     `json:"communities,omitempty"`
	Organizations []NamedImport     `json:"organizations,omitempty"`
	Skills        []NamedImport     `json:"skills,omitempty"`
	Projects      []NamedImport     `json:"projects,omitempty"`
	Knowledge     []KnowledgeImport `json:"knowledge,omitempty"`
}

type ContactImport struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type NamedImport struct {
	Name string `json:"name"`
}

type KnowledgeImport struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// ImportReport summarizes what an import actually added.
type ImportReport struct {
	ImportedCounts map[string]int `json:"importedCounts"`
	ImportedTypes  []string       `json:"importedTypes"`
}

// ImportEcosystem merges the payload into the ecosystem. Items whose name
// matches an existing item case-insensitively are skipped, which makes
// repeated imports of the same payload idempotent.
func (r *Repository) ImportEcosystem(ctx context.Context, data ImportData) (*ImportReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	counts := map[string]int{
		"contacts": 0, "events": 0, "communities": 0, "organizations": 0,
		"skills": 0, "projects": 0, "knowledge": 0,
	}

	existing := nameSet(len(r.state.Contacts), func(i int) string { return r.state.Contacts[i].Name })
	for _, item := range data.Contacts {
		if existing[strings.ToLower(item.Name)] {
			continue
		}
		existing[strings.ToLower(item.Name)] = true
		r.state.Contacts = append(r.state.Contacts, models.Contact{ID: uuid.NewString(), Name: item.Name, Email: item.Email})
		counts["contacts"]++
	}

	r.state.Events = mergeNamed(r.state.Events, data.Events, counts, "events",
		func(e models.Event) string { return e.Name },
		func(name string) models.Event { return models.Event{ID: uuid.NewString(), Name: name} })
	r.state.Communities = mergeNamed(r.state.Communities, data.Communities, counts, "communities",
		func(c models.Community) string { return c.Name },
		func(name string) models.Community { return models.Community{ID: uuid.NewString(), Name: name} })
	r.state.Organizations = mergeNamed(r.state.Organizations, data.Organizations, counts, "organizations",
		func(o models.Organization) string { return o.Name },
		func(name string) models.Organization { return models.Organization{ID: uuid.NewString(), Name: name} })
	r.state.Skills = mergeNamed(r.state.Skills, data.Skills, counts, "skills",
		func(s models.Skill) string { return s.Name },
		func(name string) models.Skill { return models.Skill{ID: uuid.NewString(), Name: name} })
	r.state.Projects = mergeNamed(r.state.Projects, data.Projects, counts, "projects",
		func(p models.Project) string { return p.Name },
		func(name string) models.Project { return models.Project{ID: uuid.NewString(), Name: name} })

	existingKnowledge := nameSet(len(r.state.Knowledge), func(i int) string { return r.state.Knowledge[i].Name })
	for _, item := range data.Knowledge {
		if existingKnowledge[strings.ToLower(item.Name)] {
			continue
		}
		existingKnowledge[strings.ToLower(item.Name)] = true
		r.state.Knowledge = append(r.state.Knowledge, models.KnowledgeItem{ID: uuid.NewString(), Name: item.Name, URL: item.URL})
		counts["knowledge"]++
	}

	if err := r.persist(); err != nil {
		return nil, err
	}

	report := &ImportReport{ImportedCounts: counts}
	for _, key := range []string{"contacts", "events", "communities", "organizations", "skills", "projects", "knowledge"} {
		if counts[key] > 0 {
			report.ImportedTypes = append(report.ImportedTypes, key)
		}
	}
	return report, nil
}

func mergeNamed[T any](current []T, imports []NamedImport, counts map[string]int, key string, name func(T) string, make func(string) T) []T {
	if len(imports) == 0 {
		return current
	}
	existing := nameSet(len(current), func(i int) string { return name(current[i]) })
	for _, item := range imports {
		if existing[strings.ToLower(item.Name)] {
			continue
		}
		existing[strings.ToLower(item.Name)] = true
		current = append(current, make(item.Name))
		counts[key]++
	}
	return current
}

func nameSet(n int, name func(int) string) map[string]bool {
	set := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		set[strings.ToLower(name(i))] = true
	}
	return set
}

// ImportProfile merges free-form profile text. Interests are unioned
// preserving order; imported goal text is appended to the existing goal
// lines with a separator and re-split line by line; backgrounds are
// concatenated with the same separator.
func (r *Repository) ImportProfile(ctx context.Context, goals string, interests []string, background string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}

	seen := make(map[string]bool, len(r.state.Interests))
	for _, interest := range r.state.Interests {
		seen[interest] = true
	}
	for _, interest := range interests {
		if !seen[interest] {
			seen[interest] = true
			r.state.Interests = append(r.state.Interests, interest)
		}
	}

	existingGoals := make([]string, len(r.state.Goals))
	for i, g := range r.state.Goals {
		existingGoals[i] = g.Text
	}
	combined := joinNonEmpty([]string{strings.Join(existingGoals, "\n"), goals}, "\n\n---\n\n")
	var newGoals []models.Goal
	for _, line := range strings.Split(combined, "\n") {
		if line == "" {
			continue
		}
		newGoals = append(newGoals, models.Goal{ID: uuid.NewString(), Text: line, Completed: false})
	}
	r.state.Goals = newGoals

	r.state.Background = joinNonEmpty([]string{r.state.Background, background}, "\n\n---\n\n")

	return r.persist()
}

func joinNonEmpty(parts []string, sep string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// AddGoal appends a new active goal.
func (r *Repository) AddGoal(ctx context.Context, text string) (models.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return models.Goal{}, err
	}
	goal := models.Goal{ID: uuid.NewString(), Text: text}
	r.state.Goals = append(r.state.Goals, goal)
	return goal, r.persist()
}

// ToggleGoal flips a goal's completion state. Returns false for unknown
// ids.
func (r *Repository) ToggleGoal(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return false, err
	}
	for i := range r.state.Goals {
		if r.state.Goals[i].ID == id {
			r.state.Goals[i].Completed = !r.state.Goals[i].Completed
			return true, r.persist()
		}
	}
	return false, nil
}

// AddRelationship links two ecosystem items.
func (r *Repository) AddRelationship(ctx context.Context, rel models.Relationship) (models.Relationship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return models.Relationship{}, err
	}
	rel.ID = uuid.NewString()
	r.state.Relationships = append(r.state.Relationships, rel)
	return rel, r.persist()
}

// SetConnected records whether an external service is linked.
func (r *Repository) SetConnected(ctx context.Context, service string, connected bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}
	if r.state.Connections == nil {
		r.state.Connections = make(map[string]bool)
	}
	r.state.Connections[service] = connected
	return r.persist()
}

// Connected reports whether an external service is linked.
func (r *Repository) Connected(ctx context.Context, service string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return false, err
	}
	return r.state.Connections[service], nil
}

// Clear resets the ecosystem to its initial empty state.
func (r *Repository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}
	r.state = newState()
	return r.persist()
}
