package models

// Goal is a user objective tracked with completion state.
type Goal struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Contact is a person in the user's network.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Event is a calendar or networking event the user cares about.
type Event struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Community is a group or network the user belongs to.
type Community struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Organization is a company or institution in the user's ecosystem.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Skill is a capability the user has or is developing.
type Skill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Project is a body of work the user is involved in.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// KnowledgeItem is a reference the user has collected, optionally with a URL.
type KnowledgeItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Relationship links two ecosystem items by id. Source and target types
// name the collections the endpoints live in.
type Relationship struct {
	ID         string `json:"id"`
	SourceID   string `json:"sourceId"`
	SourceType string `json:"sourceType"`
	TargetID   string `json:"targetId"`
	TargetType string `json:"targetType"`
}

// ResourceType classifies a community resource.
type ResourceType string

const (
	ResourceArticle ResourceType = "article"
	ResourceTool    ResourceType = "tool"
	ResourceContact ResourceType = "contact"
)

// CommunityResource is a shared item contributed by the community.
type CommunityResource struct {
	ID          string       `json:"id"`
	Type        ResourceType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Tags        []string     `json:"tags"`
}

// AnonymizedInsight is an aggregate observation derived from community
// activity, stripped of identifying detail.
type AnonymizedInsight struct {
	ID             string  `json:"id"`
	Text           string  `json:"text"`
	RelevanceScore float64 `json:"relevance_score,omitempty"`
}

// UserProfileContext is the read-only snapshot of a user's profile and
// ecosystem passed into prompt assembly. It is assembled by the caller per
// request and never persisted by the chat pipeline.
type UserProfileContext struct {
	Goals              []Goal              `json:"goals,omitempty"`
	Interests          []string            `json:"interests,omitempty"`
	Background         string              `json:"background,omitempty"`
	Contacts           []Contact           `json:"contacts,omitempty"`
	Events             []Event             `json:"events,omitempty"`
	Communities        []Community         `json:"communities,omitempty"`
	Organizations      []Organization      `json:"organizations,omitempty"`
	Skills             []Skill             `json:"skills,omitempty"`
	Projects           []Project           `json:"projects,omitempty"`
	Knowledge          []KnowledgeItem     `json:"knowledge,omitempty"`
	Relationships      []Relationship      `json:"relationships,omitempty"`
	CommunityResources []CommunityResource `json:"communityResources,omitempty"`
	AnonymizedInsights []AnonymizedInsight `json:"anonymizedInsights,omitempty"`
}

// EcosystemInsight is one AI-generated growth suggestion.
type EcosystemInsight struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ChatTakeaway is an actionable item extracted from a conversation that is
// not yet present in the user's ecosystem.
type ChatTakeaway struct {
	Type        string `json:"type"` // contact, event, goal or community
	Value       string `json:"value"`
	Description string `json:"description"`
}
