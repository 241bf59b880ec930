package gateway

import "biblestudy/internal/prompt"

// Role is the system prompt and temperature used for one intent.
type Role struct {
	System      string
	Temperature float64
}

// RoleFor returns the role table entry for intent.
func RoleFor(intent prompt.Intent) (Role, bool) {
	switch intent {
	case prompt.IntentTheologicalInsight:
		return Role{
			System:      "You are a knowledgeable Christian theologian and Bible scholar. Provide thoughtful, well-researched responses about biblical and theological topics, drawing from various Christian traditions and scholarly sources.",
			Temperature: 0.7,
		}, true
	case prompt.IntentChapterSummary:
		return Role{
			System:      "You are a Bible scholar. Provide clear, concise summaries of biblical passages.",
			Temperature: 0.3,
		}, true
	case prompt.IntentCommentary:
		return Role{
			System:      "You are a skilled biblical commentator with deep knowledge of various Christian theological traditions.",
			Temperature: 0.6,
		}, true
	case prompt.IntentChat:
		return Role{
			System:      "You are a helpful and knowledgeable Bible assistant. Be helpful and informative.",
			Temperature: 0.7,
		}, true
	default:
		return Role{}, false
	}
}
