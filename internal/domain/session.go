package domain

import "strings"

// Desk labels used for session scoping and registry partitioning.
const (
	DeskHY      = "HY"
	DeskIG      = "IG"
	DeskEM      = "EM"
	DeskRates   = "RATES"
	DeskMulti   = "MULTI"
	DeskGeneral = "GENERAL"
)

// User role tags derived from the user id.
const (
	UserRoleBusiness  = "business"
	UserRoleTechnical = "technical"
)

// deskPrefixes maps trader-code prefixes to desk labels. Order matters only
// for determinism; the prefixes do not overlap.
var deskPrefixes = []struct {
	prefix string
	desk   string
}{
	{"T_HY", DeskHY},
	{"T_IG", DeskIG},
	{"T_EM", DeskEM},
	{"T_RATES", DeskRates},
}

// DeskForUser derives a desk label from a trader code such as T_HY_001.
// Unknown codes map to GENERAL.
func DeskForUser(userID string) string {
	for _, p := range deskPrefixes {
		if strings.HasPrefix(userID, p.prefix) {
			return p.desk
		}
	}
	return DeskGeneral
}

// RoleForUser tags trader codes as business users; everything else is
// treated as a technical caller.
func RoleForUser(userID string) string {
	if strings.HasPrefix(strings.ToUpper(userID), "T_") {
		return UserRoleBusiness
	}
	return UserRoleTechnical
}

// historyHeader opens the rendered context block; the gateway's enriched
// query and downstream prompts rely on this literal.
const historyHeader = "[Conversation History — previous turns in this session]"

// RenderHistory formats a message log as the conversation-context block
// prepended to the current query. Empty logs render as an empty string.
func RenderHistory(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	lines := make([]string, 0, len(messages)+1)
	lines = append(lines, historyHeader)
	for _, m := range messages {
		prefix := "System: "
		if m.Role == RoleUser {
			prefix = "Trader: "
		}
		lines = append(lines, prefix+m.Content)
	}
	return strings.Join(lines, "\n")
}
