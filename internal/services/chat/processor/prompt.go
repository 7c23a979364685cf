package processor

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Personas with their own follow-up questions.
const (
	PersonaSupplyChain   = "supply_chain"
	PersonaManufacturing = "manufacturing"
)

const personaSentence = "You are the Steel Ecosystem Co-Pilot, an AI assistant for steel industry professionals."

var followUps = map[string][]string{
	PersonaSupplyChain: {
		"Tell me more about production capacity optimization",
		"How can I improve supply chain resilience?",
		"What are best practices for just-in-time inventory management?",
	},
	PersonaManufacturing: {
		"How can I reduce production downtime?",
		"What metrics should I track for manufacturing efficiency?",
		"Tell me about predictive maintenance best practices",
	},
}

var defaultFollowUps = []string{
	"Can you help me with demand planning?",
	"What are the best practices for inventory management?",
	"How can I optimize my supply chain?",
}

// FollowUps returns the three suggested questions for persona. Unknown
// personas get the default set.
func FollowUps(persona string) []string {
	src, ok := followUps[persona]
	if !ok {
		src = defaultFollowUps
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// ModuleTitle turns a module slug such as "supply-planning" into
// "Supply Planning".
func ModuleTitle(module string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(module, "-", " "))
}

// HasAgent reports whether agentID selects an agent. Zero means none.
func HasAgent(agentID *int) bool {
	return agentID != nil && *agentID != 0
}

// SystemPrompt builds the system message for a conversational request.
func SystemPrompt(module string, agentID *int) string {
	var b strings.Builder
	b.WriteString(personaSentence)
	if module != "" {
		fmt.Fprintf(&b, " You are currently focusing on %s and should provide specific insights on this topic.", ModuleTitle(module))
	}
	if HasAgent(agentID) {
		fmt.Fprintf(&b, " You are operating as Agent #%d with specialized knowledge in this domain.", *agentID)
	}
	return b.String()
}
