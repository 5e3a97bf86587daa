package models

// OAuthToken is the credential returned by a provider token exchange.
type OAuthToken struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int    `json:"expiresIn"` // seconds
	Scope        string `json:"scope"`
}

// CalendarEvent is a synced calendar entry.
type CalendarEvent struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Start   string `json:"start"` // RFC 3339
}

// LinkedInContact is a synced professional connection.
type LinkedInContact struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Headline string `json:"headline"`
}

// GitHubRepo is a synced repository record.
type GitHubRepo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SlackChannel is a synced channel record.
type SlackChannel struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Topic string `json:"topic"`
}

// NotionPage is a synced page record.
type NotionPage struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}
