package chat_test

import (
	"testing"

	"circuitflow/internal/chat"
	"circuitflow/internal/domain"
)

func TestRespond(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Can you send an email reminder?", chat.ReplyEmail},
		{"NOTIFICATION please", chat.ReplyEmail},
		{"build a data pipeline", chat.ReplyData},
		{"process my files", chat.ReplyData},
		{"run on a schedule", chat.ReplySchedule},
		{"what time is it", chat.ReplySchedule},
		{"call an API", chat.ReplyAPI},
		{"incoming Webhook", chat.ReplyAPI},
		{"xyz", chat.ReplyFallback},
		{"", chat.ReplyFallback},
		// earlier groups win
		{"email the processed data via api", chat.ReplyEmail},
		{"timed data webhook", chat.ReplyData},
	}
	for _, tt := range tests {
		if got := chat.Respond(tt.input); got != tt.want {
			t.Errorf("Respond(%q) = %.30q..., want %.30q...", tt.input, got, tt.want)
		}
	}
}

func TestSuggest(t *testing.T) {
	tests := []struct {
		input, reply string
		want         domain.BlockType
		ok           bool
	}{
		{"email with a timer", chat.ReplyEmail, domain.BlockTypeScheduler, true},
		{"email me", chat.ReplyEmail, domain.BlockTypeTransmitter, true},
		{"schedule something", chat.ReplySchedule, "", false},
		{"email me", chat.ReplyData, "", false},
	}
	for _, tt := range tests {
		got, ok := chat.Suggest(tt.input, tt.reply)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Suggest(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}
