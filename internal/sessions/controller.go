// Package sessions owns the durable per-user state that survives chat
// agents: session metadata, the shared community resource library and
// anonymized community insights. State lives in memory and is snapshotted
// to badger on every mutation.
package sessions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cynqhq/cynq/internal/observability"
	"github.com/cynqhq/cynq/pkg/models"
)

// Snapshot keys. One key per collection.
const (
	keySessions  = "sessions"
	keyResources = "communityResources"
	keyInsights  = "anonymizedInsights"
)

// Controller is the single authority for session metadata and community
// data. All operations lazily load state from the snapshot store on first
// use; the community collections are seeded exactly once, when the store
// has never held any resources.
type Controller struct {
	store   *SnapshotStore
	logger  *observability.Logger
	metrics *observability.Metrics

	// now is swappable for tests.
	now func() time.Time

	mu        sync.Mutex
	loaded    bool
	sessions  map[string]*models.SessionInfo
	resources map[string]models.CommunityResource
	insights  map[string]models.AnonymizedInsight
}

// NewController creates a controller over the given snapshot store.
// Metrics may be nil.
func NewController(store *SnapshotStore, logger *observability.Logger, metrics *observability.Metrics) *Controller {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Controller{
		store:     store,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
		sessions:  make(map[string]*models.SessionInfo),
		resources: make(map[string]models.CommunityResource),
		insights:  make(map[string]models.AnonymizedInsight),
	}
}

// ensureLoaded loads the snapshots once and seeds community data when the
// resource collection is empty. Callers must hold c.mu.
func (c *Controller) ensureLoaded(ctx context.Context) error {
	if c.loaded {
		return nil
	}

	if err := c.loadCollection(keySessions, &c.sessions); err != nil {
		return err
	}
	if err := c.loadCollection(keyResources, &c.resources); err != nil {
		return err
	}
	if err := c.loadCollection(keyInsights, &c.insights); err != nil {
		return err
	}

	if len(c.resources) == 0 {
		c.seedCommunityData()
		if err := c.persist(); err != nil {
			return err
		}
		c.logger.Info(ctx, "seeded community data",
			"resources", len(c.resources), "insights", len(c.insights))
	}

	c.loaded = true
	c.updateSessionGauge()
	return nil
}

func (c *Controller) loadCollection(key string, dst any) error {
	err := c.store.Load(key, dst)
	if err != nil && err != ErrNotFound {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	return nil
}

func (c *Controller) seedCommunityData() {
	for _, res := range []models.CommunityResource{
		{ID: "res-1", Type: models.ResourceArticle, Title: "Networking Tips for AI Founders", Description: "A guide on how to effectively network in the AI startup scene.", Tags: []string{"networking", "ai", "startup"}},
		{ID: "res-2", Type: models.ResourceTool, Title: "Pitch Deck Analyzer", Description: "An AI-powered tool to review and give feedback on your startup pitch deck.", Tags: []string{"tool", "startup", "funding"}},
		{ID: "res-3", Type: models.ResourceContact, Title: "Dr. Evelyn Reed, AI Ethicist", Description: "A leading expert in AI ethics, available for consultations.", Tags: []string{"contact", "ai", "ethics"}},
	} {
		c.resources[res.ID] = res
	}
	for _, ins := range []models.AnonymizedInsight{
		{ID: "ins-1", Text: `Many users interested in "generative AI" are also exploring "venture capital".`, RelevanceScore: 0.85},
		{ID: "ins-2", Text: `A common goal among users is "finding a technical co-founder".`, RelevanceScore: 0.92},
		{ID: "ins-3", Text: `The "AI Tech Summit" event is frequently linked to networking goals.`, RelevanceScore: 0.78},
	} {
		c.insights[ins.ID] = ins
	}
}

// persist snapshots all collections. Callers must hold c.mu.
func (c *Controller) persist() error {
	if err := c.store.Save(keySessions, c.sessions); err != nil {
		return err
	}
	if err := c.store.Save(keyResources, c.resources); err != nil {
		return err
	}
	return c.store.Save(keyInsights, c.insights)
}

// AddSession registers a session. An empty title defaults to a dated
// placeholder that the orchestrator later replaces with a generated one.
func (c *Controller) AddSession(ctx context.Context, id, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return err
	}

	now := c.now()
	if title == "" {
		title = DefaultTitle(now)
	}
	c.sessions[id] = &models.SessionInfo{
		ID:         id,
		Title:      title,
		CreatedAt:  now,
		LastActive: now,
	}
	c.updateSessionGauge()
	return c.persist()
}

// DefaultTitle is the placeholder title for sessions created without one.
func DefaultTitle(t time.Time) string {
	return "Chat " + t.Format("1/2/2006")
}

// GetSession returns a copy of the session record.
func (c *Controller) GetSession(ctx context.Context, id string) (*models.SessionInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	session, ok := c.sessions[id]
	if !ok {
		return nil, nil
	}
	clone := *session
	return &clone, nil
}

// ListSessions returns all sessions, most recently active first.
func (c *Controller) ListSessions(ctx context.Context) ([]models.SessionInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	result := make([]models.SessionInfo, 0, len(c.sessions))
	for _, session := range c.sessions {
		result = append(result, *session)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastActive.After(result[j].LastActive)
	})
	return result, nil
}

// TouchSession bumps a session's last-active time. Unknown ids are a
// no-op.
func (c *Controller) TouchSession(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return err
	}
	session, ok := c.sessions[id]
	if !ok {
		return nil
	}
	session.LastActive = c.now()
	return c.persist()
}

// RenameSession sets a session title. Returns false when the session does
// not exist.
func (c *Controller) RenameSession(ctx context.Context, id, title string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return false, err
	}
	session, ok := c.sessions[id]
	if !ok {
		return false, nil
	}
	session.Title = title
	return true, c.persist()
}

// RemoveSession deletes a session record. Returns false when the session
// did not exist.
func (c *Controller) RemoveSession(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return false, err
	}
	if _, ok := c.sessions[id]; !ok {
		return false, nil
	}
	delete(c.sessions, id)
	c.updateSessionGauge()
	return true, c.persist()
}

// ClearAllSessions removes every session and returns how many were
// cleared.
func (c *Controller) ClearAllSessions(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	count := len(c.sessions)
	c.sessions = make(map[string]*models.SessionInfo)
	c.updateSessionGauge()
	return count, c.persist()
}

// SessionCount returns the number of stored sessions.
func (c *Controller) SessionCount(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	return len(c.sessions), nil
}

// ExpireIdleSessions removes sessions whose last activity predates the
// cutoff and returns how many were removed.
func (c *Controller) ExpireIdleSessions(ctx context.Context, olderThan time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return 0, err
	}

	cutoff := c.now().Add(-olderThan)
	removed := 0
	for id, session := range c.sessions {
		if session.LastActive.Before(cutoff) {
			delete(c.sessions, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	c.updateSessionGauge()
	return removed, c.persist()
}

// ListResources returns all community resources, sorted by id for a
// stable order.
func (c *Controller) ListResources(ctx context.Context) ([]models.CommunityResource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	result := make([]models.CommunityResource, 0, len(c.resources))
	for _, res := range c.resources {
		result = append(result, res)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListInsights returns all anonymized insights, sorted by id for a stable
// order.
func (c *Controller) ListInsights(ctx context.Context) ([]models.AnonymizedInsight, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	result := make([]models.AnonymizedInsight, 0, len(c.insights))
	for _, ins := range c.insights {
		result = append(result, ins)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// AddInsight stores a new anonymized insight and returns it.
func (c *Controller) AddInsight(ctx context.Context, text string) (models.AnonymizedInsight, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return models.AnonymizedInsight{}, err
	}
	insight := models.AnonymizedInsight{
		ID:   uuid.NewString(),
		Text: text,
	}
	c.insights[insight.ID] = insight
	return insight, c.persist()
}

func (c *Controller) updateSessionGauge() {
	if c.metrics != nil {
		c.metrics.ActiveSessions.Set(float64(len(c.sessions)))
	}
}
