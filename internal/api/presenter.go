package api

import (
	"github.com/talgya/goobernor/internal/game"
)

// Presenter pushes game updates to WebSocket clients. HTTP clients act on
// modals through POST /api/v1/choice rather than the option callbacks.
type Presenter struct {
	hub *Hub
}

// NewPresenter creates a presenter broadcasting on hub.
func NewPresenter(hub *Hub) *Presenter {
	return &Presenter{hub: hub}
}

// PromptChoice announces a new modal.
func (p *Presenter) PromptChoice(m game.Modal) {
	p.hub.Broadcast(Message{Type: "modal", Data: m})
}

// DismissModal announces that the modal is gone.
func (p *Presenter) DismissModal() {
	p.hub.Broadcast(Message{Type: "dismiss"})
}

// Refresh pushes the latest read-model.
func (p *Presenter) Refresh(rm game.ReadModel) {
	p.hub.Broadcast(Message{Type: "refresh", Data: rm})
}
