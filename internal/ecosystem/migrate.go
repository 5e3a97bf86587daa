package ecosystem

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/cynqhq/cynq/pkg/models"
)

// schemaVersion is the current snapshot schema.
//
// History:
//
//	v0: interests persisted as one free-form string
//	v1: interests as []string; goals still one free-form string
//	v2: goals as []Goal with ids and completion state
const schemaVersion = 2

var interestSplitRe = regexp.MustCompile(`[,;\n]`)

// envelope wraps a state snapshot with its schema version.
type envelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

func envelopeFor(state *State) envelope {
	data, _ := json.Marshal(state)
	return envelope{Version: schemaVersion, State: data}
}

// versionedState reads the fields whose shape changed across versions as
// raw JSON so migration can handle either form.
type versionedState struct {
	Goals         json.RawMessage        `json:"goals"`
	Interests     json.RawMessage        `json:"interests"`
	Background    string                 `json:"background"`
	Contacts      []models.Contact       `json:"contacts"`
	Events        []models.Event         `json:"events"`
	Communities   []models.Community     `json:"communities"`
	Organizations []models.Organization  `json:"organizations"`
	Skills        []models.Skill         `json:"skills"`
	Projects      []models.Project       `json:"projects"`
	Knowledge     []models.KnowledgeItem `json:"knowledge"`
	Relationships []models.Relationship  `json:"relationships"`
	Connections   map[string]bool        `json:"connections"`
}

// migrate decodes a snapshot, upgrading v0 and v1 shapes to the current
// schema. The bool result reports whether an upgrade happened, so the
// caller can re-persist.
func migrate(env envelope) (*State, bool, error) {
	if env.Version > schemaVersion {
		return nil, false, fmt.Errorf("ecosystem snapshot version %d is newer than supported %d", env.Version, schemaVersion)
	}

	var raw versionedState
	if err := json.Unmarshal(env.State, &raw); err != nil {
		return nil, false, fmt.Errorf("failed to decode ecosystem snapshot: %w", err)
	}

	interests, err := decodeInterests(raw.Interests, env.Version)
	if err != nil {
		return nil, false, err
	}
	goals, err := decodeGoals(raw.Goals, env.Version)
	if err != nil {
		return nil, false, err
	}

	state := &State{
		Goals:         goals,
		Interests:     interests,
		Background:    raw.Background,
		Contacts:      raw.Contacts,
		Events:        raw.Events,
		Communities:   raw.Communities,
		Organizations: raw.Organizations,
		Skills:        raw.Skills,
		Projects:      raw.Projects,
		Knowledge:     raw.Knowledge,
		Relationships: raw.Relationships,
		Connections:   raw.Connections,
	}
	if state.Connections == nil {
		state.Connections = make(map[string]bool)
	}
	return state, env.Version < schemaVersion, nil
}

// decodeInterests handles the v0 form, one string split on commas,
// semicolons and newlines.
func decodeInterests(raw json.RawMessage, version int) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if version < 1 {
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			var interests []string
			for _, part := range interestSplitRe.Split(single, -1) {
				if trimmed := strings.TrimSpace(part); trimmed != "" {
					interests = append(interests, trimmed)
				}
			}
			return interests, nil
		}
	}
	var interests []string
	if err := json.Unmarshal(raw, &interests); err != nil {
		return nil, fmt.Errorf("failed to decode interests: %w", err)
	}
	return interests, nil
}

// decodeGoals handles the v1 form, one string split on newlines into
// active goals.
func decodeGoals(raw json.RawMessage, version int) ([]models.Goal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if version < 2 {
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			var goals []models.Goal
			for _, line := range strings.Split(single, "\n") {
				if trimmed := strings.TrimSpace(line); trimmed != "" {
					goals = append(goals, models.Goal{
						ID:   uuid.NewString(),
						Text: trimmed,
					})
				}
			}
			return goals, nil
		}
	}
	var goals []models.Goal
	if err := json.Unmarshal(raw, &goals); err != nil {
		return nil, fmt.Errorf("failed to decode goals: %w", err)
	}
	return goals, nil
}
