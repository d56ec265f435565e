// Package chat implements the canned workflow assistant.
package chat

import (
	"strings"

	"circuitflow/internal/domain"
)

const Welcome = "Welcome to CircuitFlow! I'm your AI assistant. Tell me what workflow you'd like to build and I'll help you create it with electrical components."

const (
	ReplyEmail    = "Great! I can help you build an email notification workflow. You'll need: 1) A trigger component (like a timer or webhook), 2) An email processor chip, and 3) Output connectors. Start by placing a Timer component on the canvas!"
	ReplyData     = "Perfect for a data processing pipeline! You'll want to connect: 1) Data input sensors, 2) Processing units (filters, transformers), and 3) Output displays. Try placing a Data Sensor first and connect it with cables!"
	ReplySchedule = "A scheduled workflow is a great choice! Use Timer components as your base, connect them to Logic Gates for conditions, and wire them to Action components. The electrical connections will show the flow of your automation!"
	ReplyAPI      = "API integrations work beautifully here! Place a Webhook Receiver component, connect it through Signal Processors, and wire it to your desired outputs. Each connection represents data flow between services!"
	ReplyFallback = "Interesting idea! In CircuitFlow, every workflow is like building an electrical circuit. Start by selecting components from the library on the left, place them on the grid, and connect them with cables. What specific automation are you trying to achieve?"
)

// QuickActions are the canned prompts offered under the chat input.
var QuickActions = []string{
	"Build an email notification workflow",
	"Create a data processing pipeline",
}

type rule struct {
	keywords []string
	reply    string
}

// Order matters: the first matching group wins.
var rules = []rule{
	{[]string{"email", "notification"}, ReplyEmail},
	{[]string{"data", "process"}, ReplyData},
	{[]string{"schedule", "time"}, ReplySchedule},
	{[]string{"api", "webhook"}, ReplyAPI},
}

// Respond maps user text to a canned reply by case-insensitive substring match.
func Respond(text string) string {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, k := range r.keywords {
			if strings.Contains(lower, k) {
				return r.reply
			}
		}
	}
	return ReplyFallback
}

// Suggest picks a palette kind to preselect after a reply that talks about a
// workflow. ok is false when nothing should be selected.
func Suggest(input, reply string) (t domain.BlockType, ok bool) {
	if !strings.Contains(reply, "workflow") {
		return "", false
	}
	lower := strings.ToLower(input)
	switch {
	case strings.Contains(lower, "timer"):
		return domain.BlockTypeScheduler, true
	case strings.Contains(lower, "email"):
		return domain.BlockTypeTransmitter, true
	}
	return "", false
}
