package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cynqhq/cynq/pkg/models"
)

// maxResourceMatches caps how many community resources one search returns
// to keep the follow-up prompt small.
const maxResourceMatches = 5

// CommunityResourcesTool searches the community resources in the caller's
// profile context by keyword and optional type.
type CommunityResourcesTool struct{}

func NewCommunityResourcesTool() *CommunityResourcesTool {
	return &CommunityResourcesTool{}
}

func (t *CommunityResourcesTool) Name() string {
	return "find_community_resources"
}

func (t *CommunityResourcesTool) Description() string {
	return "Search the community resource library for articles, tools or contacts matching a keyword. Use when the user asks for recommendations or introductions."
}

func (t *CommunityResourcesTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "Keyword to match against resource titles, descriptions and tags"
			},
			"type": {
				"type": "string",
				"enum": ["article", "tool", "contact"],
				"description": "Optional resource type filter"
			}
		},
		"required": ["query"]
	}`)
}

func (t *CommunityResourcesTool) Execute(_ context.Context, params json.RawMessage, profile *models.UserProfileContext) (*Result, error) {
	var args struct {
		Query string `json:"query"`
		Type  string `json:"type"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error()), nil
	}
	if profile == nil {
		return errorResult("no user context available"), nil
	}

	needle := strings.ToLower(strings.TrimSpace(args.Query))
	if needle == "" {
		return errorResult("query must not be empty"), nil
	}

	var matches []models.CommunityResource
	for _, res := range profile.CommunityResources {
		if args.Type != "" && string(res.Type) != args.Type {
			continue
		}
		if resourceMatches(res, needle) {
			matches = append(matches, res)
			if len(matches) == maxResourceMatches {
				break
			}
		}
	}

	payload, _ := json.Marshal(map[string]any{
		"query":     args.Query,
		"resources": matches,
		"count":     len(matches),
	})
	return &Result{Content: string(payload)}, nil
}

func resourceMatches(res models.CommunityResource, needle string) bool {
	if strings.Contains(strings.ToLower(res.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(res.Description), needle) {
		return true
	}
	for _, tag := range res.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
