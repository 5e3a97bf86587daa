package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cynqhq/cynq/pkg/models"
)

func testProfile() *models.UserProfileContext {
	return &models.UserProfileContext{
		Contacts: []models.Contact{
			{ID: "c1", Name: "Dr. Evelyn Reed", Email: "evelyn@example.com"},
			{ID: "c2", Name: "Marcus Chen"},
		},
		CommunityResources: []models.CommunityResource{
			{ID: "r1", Type: models.ResourceArticle, Title: "Scaling Community Events", Tags: []string{"events"}},
			{ID: "r2", Type: models.ResourceContact, Title: "AI Ethics Mentor", Description: "Office hours for responsible AI", Tags: []string{"ai", "ethics"}},
		},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	if err := reg.Register(NewContactEmailTool()); err != nil {
		t.Fatalf("Register(contact tool) error = %v", err)
	}
	if err := reg.Register(NewCommunityResourcesTool()); err != nil {
		t.Fatalf("Register(resources tool) error = %v", err)
	}
	return reg
}

func TestExecuteUnknownToolIsErrorResult(t *testing.T) {
	reg := newTestRegistry(t)
	result, err := reg.Execute(context.Background(), "launch_rocket", json.RawMessage(`{}`), testProfile())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.IsError {
		t.Error("expected error-shaped result for unknown tool")
	}
	if !strings.Contains(result.Content, "unknown tool") {
		t.Errorf("unexpected content: %q", result.Content)
	}
}

func TestExecuteRejectsSchemaViolations(t *testing.T) {
	reg := newTestRegistry(t)
	result, err := reg.Execute(context.Background(), "get_contact_email", json.RawMessage(`{"name": 42}`), testProfile())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.IsError {
		t.Error("expected schema violation to produce an error result")
	}

	result, err = reg.Execute(context.Background(), "get_contact_email", json.RawMessage(`{}`), testProfile())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.IsError {
		t.Error("expected missing required field to produce an error result")
	}
}

func TestContactEmailLookup(t *testing.T) {
	reg := newTestRegistry(t)

	result, err := reg.Execute(context.Background(), "get_contact_email", json.RawMessage(`{"name":"evelyn"}`), testProfile())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %q", result.Content)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(result.Content), &payload); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if payload["email"] != "evelyn@example.com" {
		t.Errorf("expected evelyn@example.com, got %q", payload["email"])
	}
}

func TestContactEmailMissingAddress(t *testing.T) {
	reg := newTestRegistry(t)
	result, err := reg.Execute(context.Background(), "get_contact_email", json.RawMessage(`{"name":"Marcus"}`), testProfile())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.IsError {
		t.Error("expected error result when contact has no email")
	}
}

func TestFindCommunityResourcesByTag(t *testing.T) {
	reg := newTestRegistry(t)
	result, err := reg.Execute(context.Background(), "find_community_resources", json.RawMessage(`{"query":"ethics"}`), testProfile())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %q", result.Content)
	}
	var payload struct {
		Resources []models.CommunityResource `json:"resources"`
		Count     int                        `json:"count"`
	}
	if err := json.Unmarshal([]byte(result.Content), &payload); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if payload.Count != 1 || payload.Resources[0].ID != "r2" {
		t.Errorf("expected single match r2, got %+v", payload)
	}
}

func TestFindCommunityResourcesTypeFilter(t *testing.T) {
	reg := newTestRegistry(t)
	result, err := reg.Execute(context.Background(), "find_community_resources", json.RawMessage(`{"query":"events","type":"contact"}`), testProfile())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	var payload struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(result.Content), &payload); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if payload.Count != 0 {
		t.Errorf("expected type filter to exclude article, got %d matches", payload.Count)
	}
}

func TestDefinitionsAreSorted(t *testing.T) {
	reg := newTestRegistry(t)
	defs := reg.Definitions()
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	if defs[0].Name != "find_community_resources" || defs[1].Name != "get_contact_email" {
		t.Errorf("expected sorted definitions, got %s then %s", defs[0].Name, defs[1].Name)
	}
}
