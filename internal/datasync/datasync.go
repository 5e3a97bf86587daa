// Package datasync simulates pulling data from connected services. Each
// supported service returns a fixed record set shaped like the real API
// response; the records are then merged into the ecosystem so repeated
// syncs stay idempotent.
package datasync

import (
	"context"
	"fmt"
	"time"

	"github.com/cynqhq/cynq/internal/ecosystem"
	"github.com/cynqhq/cynq/internal/observability"
	"github.com/cynqhq/cynq/pkg/models"
)

// Syncer pulls canned records and folds them into the ecosystem.
type Syncer struct {
	repo   *ecosystem.Repository
	logger *observability.Logger
	now    func() time.Time
}

// NewSyncer creates a syncer over the given ecosystem repository.
func NewSyncer(repo *ecosystem.Repository, logger *observability.Logger) *Syncer {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Syncer{repo: repo, logger: logger, now: time.Now}
}

// Result is the outcome of one sync: the raw records the "provider"
// returned plus what the ecosystem import actually added.
type Result struct {
	Service string                  `json:"service"`
	Records any                     `json:"records"`
	Report  *ecosystem.ImportReport `json:"report"`
}

// Supported reports whether service has a sync source.
func Supported(service string) bool {
	switch service {
	case "google", "linkedin", "github", "slack", "notion":
		return true
	}
	return false
}

// Sync fetches the canned records for service and imports them into the
// ecosystem.
func (s *Syncer) Sync(ctx context.Context, service string) (*Result, error) {
	var (
		records any
		data    ecosystem.ImportData
	)
	switch service {
	case "google":
		events := CalendarEvents(s.now())
		for _, e := range events {
			data.Events = append(data.Events, ecosystem.NamedImport{Name: e.Summary})
		}
		records = events
	case "linkedin":
		contacts := LinkedInContacts()
		for _, c := range contacts {
			data.Contacts = append(data.Contacts, ecosystem.ContactImport{Name: c.Name})
		}
		records = contacts
	case "github":
		repos := GitHubRepos()
		for _, r := range repos {
			data.Projects = append(data.Projects, ecosystem.NamedImport{Name: r.Name})
		}
		records = repos
	case "slack":
		channels := SlackChannels()
		for _, ch := range channels {
			data.Communities = append(data.Communities, ecosystem.NamedImport{Name: ch.Name})
		}
		records = channels
	case "notion":
		pages := NotionPages()
		for _, p := range pages {
			data.Knowledge = append(data.Knowledge, ecosystem.KnowledgeImport{Name: p.Title, URL: p.URL})
		}
		records = pages
	default:
		return nil, fmt.Errorf("no sync source for service %q", service)
	}

	report, err := s.repo.ImportEcosystem(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s records: %w", service, err)
	}
	s.logger.Info(ctx, "synced service data",
		"service", service, "imported_types", report.ImportedTypes)
	return &Result{Service: service, Records: records, Report: report}, nil
}

// CalendarEvents returns the mock upcoming calendar entries, dated relative
// to now.
func CalendarEvents(now time.Time) []models.CalendarEvent {
	return []models.CalendarEvent{
		{ID: "gcal-event-1", Summary: "AI Tech Summit 2024", Start: now.Add(2 * 24 * time.Hour).Format(time.RFC3339)},
		{ID: "gcal-event-2", Summary: "Quarterly Strategy Meeting", Start: now.Add(5 * 24 * time.Hour).Format(time.RFC3339)},
		{ID: "gcal-event-3", Summary: "Networking Mixer @ TechHub", Start: now.Add(7 * 24 * time.Hour).Format(time.RFC3339)},
	}
}

// LinkedInContacts returns the mock professional connections.
func LinkedInContacts() []models.LinkedInContact {
	return []models.LinkedInContact{
		{ID: "li-contact-1", Name: "Jane Doe", Headline: "Lead AI Researcher at InnovateCorp"},
		{ID: "li-contact-2", Name: "John Smith", Headline: "Venture Partner at Future Ventures"},
		{ID: "li-contact-3", Name: "Sam Wilson", Headline: "Founder & CEO at ConnectSphere"},
	}
}

// GitHubRepos returns the mock repository list.
func GitHubRepos() []models.GitHubRepo {
	return []models.GitHubRepo{
		{ID: "gh-repo-1", Name: "dex-aei-frontend", Description: "The main user interface for the Dex AEI application."},
		{ID: "gh-repo-2", Name: "ecosystem-data-importer", Description: "Service for ingesting and normalizing data from various sources."},
		{ID: "gh-repo-3", Name: "ai-insights-engine", Description: "Core machine learning models for generating predictive insights."},
	}
}

// SlackChannels returns the mock channel list.
func SlackChannels() []models.SlackChannel {
	return []models.SlackChannel{
		{ID: "sl-chan-1", Name: "#general", Topic: "Company-wide announcements and updates."},
		{ID: "sl-chan-2", Name: "#ai-research", Topic: "Discussions on the latest in AI/ML."},
		{ID: "sl-chan-3", Name: "#product-feedback", Topic: "User feedback and feature requests."},
	}
}

// NotionPages returns the mock page list.
func NotionPages() []models.NotionPage {
	return []models.NotionPage{
		{ID: "nt-page-1", Title: "2024 Product Roadmap", URL: "https://www.notion.so/mock/2024-product-roadmap"},
		{ID: "nt-page-2", Title: "Competitive Analysis Q3", URL: "https://www.notion.so/mock/competitive-analysis-q3"},
		{ID: "nt-page-3", Title: "User Interview Notes", URL: "https://www.notion.so/mock/user-interview-notes"},
	}
}
