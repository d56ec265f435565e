package app

import "circuitflow/internal/service"

// ============================================================
// Chat
// ============================================================

func (a *App) GetChat() service.ChatView {
	return a.svc.Chat.View()
}

// SendChat posts a message. The reply arrives later as a chat:reply event.
func (a *App) SendChat(text string) bool {
	return a.svc.Chat.Send(text)
}

func (a *App) SendQuickAction(index int) bool {
	return a.svc.Chat.SendQuickAction(index)
}

func (a *App) ResetChat() error {
	return a.svc.Chat.Reset()
}
