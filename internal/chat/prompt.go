package chat

import (
	"fmt"
	"strings"

	"github.com/cynqhq/cynq/pkg/models"
)

const basePrompt = "You are CYNQ, a helpful and insightful personal consultant. Your goal is to provide predictive and refined consultations based on the user's unique ecosystem and the broader community intelligence. You have access to a tool called `get_contact_email` to retrieve a contact's email address if they have one stored."

const noContextPrompt = "\n\nTo provide the best consultation, you can start by asking the user about their goals, interests, or background. Encourage them to share information so you can offer more personalized and predictive insights."

const proactivePrompt = "\n\n**Proactive Mode is ON:** You must actively analyze the user's full context. Periodically, without being asked, offer relevant suggestions, connections, or ideas that could help them achieve their goals. **Crucially, if a user's goal or interest aligns with a Shared Community Resource or Anonymized Insight, you should proactively mention it.** For example, if a user is interested in startups and there is a 'Pitch Deck Analyzer' tool, you should suggest it. Introduce these insights naturally into the conversation."

// BuildSystemPrompt renders the consultant system prompt from the user's
// profile context. Section order is stable so prompts are deterministic for
// a given context.
func BuildSystemPrompt(profile *models.UserProfileContext, proactive bool) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if profile == nil {
		b.WriteString(noContextPrompt)
	} else {
		writeProfileContext(&b, profile)
	}

	if proactive {
		b.WriteString(proactivePrompt)
	}
	return b.String()
}

func writeProfileContext(b *strings.Builder, profile *models.UserProfileContext) {
	b.WriteString("\n\n# User's Personal Context\nUse this to tailor your responses and provide personalized insights:")

	if len(profile.Goals) > 0 {
		b.WriteString("\n- **User's Goals:**")
		for _, goal := range profile.Goals {
			status := "Active"
			if goal.Completed {
				status = "Completed"
			}
			fmt.Fprintf(b, "\n  - %s [%s]", goal.Text, status)
		}
	}
	if len(profile.Interests) > 0 {
		fmt.Fprintf(b, "\n- **User's Interests:** %s", strings.Join(profile.Interests, ", "))
	}
	if profile.Background != "" {
		fmt.Fprintf(b, "\n- **User's Background:** %s", profile.Background)
	}
	if len(profile.Contacts) > 0 {
		fmt.Fprintf(b, "\n- **Key Contacts:** %s", joinNames(len(profile.Contacts), func(i int) string { return profile.Contacts[i].Name }))
	}
	if len(profile.Events) > 0 {
		fmt.Fprintf(b, "\n- **Important Events:** %s", joinNames(len(profile.Events), func(i int) string { return profile.Events[i].Name }))
	}
	if len(profile.Communities) > 0 {
		fmt.Fprintf(b, "\n- **Communities/Groups:** %s", joinNames(len(profile.Communities), func(i int) string { return profile.Communities[i].Name }))
	}
	if len(profile.Organizations) > 0 {
		fmt.Fprintf(b, "\n- **Organizations:** %s", joinNames(len(profile.Organizations), func(i int) string { return profile.Organizations[i].Name }))
	}
	if len(profile.Skills) > 0 {
		fmt.Fprintf(b, "\n- **Skills:** %s", joinNames(len(profile.Skills), func(i int) string { return profile.Skills[i].Name }))
	}
	if len(profile.Projects) > 0 {
		fmt.Fprintf(b, "\n- **Projects:** %s", joinNames(len(profile.Projects), func(i int) string { return profile.Projects[i].Name }))
	}
	if len(profile.Knowledge) > 0 {
		fmt.Fprintf(b, "\n- **Knowledge Base:** %s", joinNames(len(profile.Knowledge), func(i int) string {
			item := profile.Knowledge[i]
			if item.URL != "" {
				return fmt.Sprintf("%s (%s)", item.Name, item.URL)
			}
			return item.Name
		}))
	}
	if len(profile.Relationships) > 0 {
		b.WriteString("\n- **Defined Connections:**")
		index := buildItemIndex(profile)
		for _, rel := range profile.Relationships {
			source, sourceOK := index[rel.SourceID]
			target, targetOK := index[rel.TargetID]
			if sourceOK && targetOK {
				fmt.Fprintf(b, "\n  - '%s' is linked to '%s'.", source, target)
			}
		}
	}

	b.WriteString("\n\n# Community Intelligence\nLeverage this shared knowledge from the user's community to provide broader, more connected advice.")
	if len(profile.CommunityResources) > 0 {
		b.WriteString("\n- **Shared Community Resources:**\n")
		lines := make([]string, len(profile.CommunityResources))
		for i, res := range profile.CommunityResources {
			lines[i] = fmt.Sprintf("  - [%s] %s: %s", res.Type, res.Title, res.Description)
		}
		b.WriteString(strings.Join(lines, "\n"))
	}
	if len(profile.AnonymizedInsights) > 0 {
		b.WriteString("\n- **Anonymized Community Insights:**\n")
		lines := make([]string, len(profile.AnonymizedInsights))
		for i, insight := range profile.AnonymizedInsights {
			lines[i] = fmt.Sprintf("  - %s", insight.Text)
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	b.WriteString("\n\nKeep all this context in mind to offer suggestions, connections, and ideas that are highly relevant to the user and their community. Connect the user's personal goals to the community resources and insights where possible.")
}

// buildItemIndex maps item IDs across every collection to display names so
// relationships can be resolved regardless of which collections their
// endpoints live in. Interests have no IDs of their own and get synthetic
// positional ones.
func buildItemIndex(profile *models.UserProfileContext) map[string]string {
	index := make(map[string]string)
	for _, g := range profile.Goals {
		index[g.ID] = g.Text
	}
	for i, interest := range profile.Interests {
		index[fmt.Sprintf("interest-%d", i)] = interest
	}
	for _, c := range profile.Contacts {
		index[c.ID] = c.Name
	}
	for _, e := range profile.Events {
		index[e.ID] = e.Name
	}
	for _, c := range profile.Communities {
		index[c.ID] = c.Name
	}
	for _, o := range profile.Organizations {
		index[o.ID] = o.Name
	}
	for _, s := range profile.Skills {
		index[s.ID] = s.Name
	}
	for _, p := range profile.Projects {
		index[p.ID] = p.Name
	}
	for _, k := range profile.Knowledge {
		index[k.ID] = k.Name
	}
	for _, r := range profile.CommunityResources {
		index[r.ID] = r.Title
	}
	return index
}

func joinNames(n int, name func(int) string) string {
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = name(i)
	}
	return strings.Join(names, ", ")
}
