package service_test

import (
	"context"
	"testing"
	"time"

	"circuitflow/internal/chat"
	"circuitflow/internal/domain"
	"circuitflow/internal/service"
	"circuitflow/internal/storage"
)

func newChat(t *testing.T, canvasSvc *service.CanvasService, em service.EventEmitter, delay time.Duration) *service.ChatService {
	t.Helper()
	svc := service.NewChatService(context.Background(), service.ChatOptions{
		Canvas:   canvasSvc,
		Emitter:  em,
		MinDelay: delay,
		MaxDelay: delay,
	})
	t.Cleanup(svc.Close)
	return svc
}

// ─────────────────────────────────────────────────────────────
// ChatService
// ─────────────────────────────────────────────────────────────

func TestChat_StartsWithWelcome(t *testing.T) {
	svc := newChat(t, nil, nil, time.Millisecond)
	v := svc.View()
	if len(v.Messages) != 1 || v.Messages[0].Content != chat.Welcome || v.Messages[0].Role != domain.ChatRoleAssistant {
		t.Fatalf("unexpected initial history %+v", v.Messages)
	}
	if len(v.QuickActions) != 2 {
		t.Errorf("expected 2 quick actions, got %d", len(v.QuickActions))
	}
}

func TestChat_IgnoresBlankAndBusy(t *testing.T) {
	svc := newChat(t, nil, nil, time.Hour)

	if svc.Send("   ") {
		t.Fatal("blank input must be ignored")
	}
	if !svc.Send("hello") {
		t.Fatal("expected first send to be accepted")
	}
	if svc.Send("again") {
		t.Fatal("input while typing must be ignored")
	}
	v := svc.View()
	if !v.Typing || len(v.Messages) != 2 {
		t.Fatalf("expected typing with 2 messages, got %+v", v)
	}
}

func TestChat_ReplyAndSuggestion(t *testing.T) {
	em := &service.MockEmitter{}
	canvasSvc := service.NewCanvasService(nil)
	svc := newChat(t, canvasSvc, em, 2*time.Millisecond)

	if !svc.SendQuickAction(0) {
		t.Fatal("expected quick action to send")
	}
	waitFor(t, time.Second, func() bool { return len(em.Named(service.EventChatReply)) == 1 })

	v := svc.View()
	if v.Typing {
		t.Error("expected typing to clear after reply")
	}
	last := v.Messages[len(v.Messages)-1]
	if last.Content != chat.ReplyEmail {
		t.Errorf("expected email reply, got %q", last.Content)
	}
	waitFor(t, time.Second, func() bool { return len(em.Named(service.EventChatSuggestion)) == 1 })
	if got := canvasSvc.State().Selected; got != domain.BlockTypeTransmitter {
		t.Errorf("expected transmitter preselected, got %q", got)
	}
}

func TestChat_CloseCancelsPendingReply(t *testing.T) {
	em := &service.MockEmitter{}
	svc := service.NewChatService(context.Background(), service.ChatOptions{
		Emitter:  em,
		MinDelay: 20 * time.Millisecond,
		MaxDelay: 20 * time.Millisecond,
	})
	if !svc.Send("schedule something") {
		t.Fatal("expected send")
	}
	svc.Close()
	time.Sleep(50 * time.Millisecond)

	if n := len(em.Named(service.EventChatReply)); n != 0 {
		t.Errorf("expected no reply after Close, got %d", n)
	}
	if svc.Send("more") {
		t.Error("expected Send to be refused after Close")
	}
}

func TestChat_PersistsHistory(t *testing.T) {
	db := openDB(t)
	store := storage.NewChatStore(db)

	first := service.NewChatService(context.Background(), service.ChatOptions{Store: store, MinDelay: time.Millisecond, MaxDelay: time.Millisecond})
	first.Send("api please")
	waitFor(t, time.Second, func() bool { return !first.View().Typing })
	first.Close()

	reopened := service.NewChatService(context.Background(), service.ChatOptions{Store: store})
	defer reopened.Close()
	msgs := reopened.View().Messages
	if len(msgs) != 3 || msgs[2].Content != chat.ReplyAPI {
		t.Fatalf("expected persisted welcome, question and reply, got %+v", msgs)
	}

	if err := reopened.Reset(); err != nil {
		t.Fatal(err)
	}
	if msgs := reopened.View().Messages; len(msgs) != 1 {
		t.Errorf("expected reset to leave only the welcome, got %d", len(msgs))
	}
}

func TestChat_ResetDropsPendingReply(t *testing.T) {
	em := &service.MockEmitter{}
	svc := newChat(t, nil, em, 20*time.Millisecond)

	if !svc.Send("process my data") {
		t.Fatal("expected send")
	}
	if err := svc.Reset(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	v := svc.View()
	if len(v.Messages) != 1 || v.Messages[0].Content != chat.Welcome {
		t.Fatalf("expected only the welcome after reset, got %+v", v.Messages)
	}
	if v.Typing {
		t.Error("expected typing to clear on reset")
	}
	if n := len(em.Named(service.EventChatReply)); n != 0 {
		t.Errorf("expected reset to drop the pending reply, got %d replies", n)
	}
	if !svc.Send("hello again") {
		t.Error("expected a new send to be accepted after reset")
	}
}
