package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cynqhq/cynq/pkg/models"
)

// ContactEmailTool resolves a contact's stored email address from the
// caller's profile context by name.
type ContactEmailTool struct{}

func NewContactEmailTool() *ContactEmailTool {
	return &ContactEmailTool{}
}

func (t *ContactEmailTool) Name() string {
	return "get_contact_email"
}

func (t *ContactEmailTool) Description() string {
	return "Retrieve a contact's email address from the user's ecosystem. Use when the user asks how to reach or email someone they know."
}

func (t *ContactEmailTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {
				"type": "string",
				"description": "Full or partial name of the contact to look up"
			}
		},
		"required": ["name"]
	}`)
}

func (t *ContactEmailTool) Execute(_ context.Context, params json.RawMessage, profile *models.UserProfileContext) (*Result, error) {
	var args struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error()), nil
	}
	if profile == nil {
		return errorResult("no user context available"), nil
	}

	needle := strings.ToLower(strings.TrimSpace(args.Name))
	if needle == "" {
		return errorResult("name must not be empty"), nil
	}

	for _, contact := range profile.Contacts {
		if !strings.Contains(strings.ToLower(contact.Name), needle) {
			continue
		}
		if contact.Email == "" {
			return errorResult(fmt.Sprintf("contact %q has no stored email address", contact.Name)), nil
		}
		payload, _ := json.Marshal(map[string]string{
			"name":  contact.Name,
			"email": contact.Email,
		})
		return &Result{Content: string(payload)}, nil
	}

	return errorResult(fmt.Sprintf("no contact found matching %q", args.Name)), nil
}
