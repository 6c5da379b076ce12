package ws

// ClientMsg representa uma mensagem enviada pelo cliente WebSocket
type ClientMsg struct {
	Type      string `json:"type"`       // subscribe | unsubscribe | ping
	ContestID uint32 `json:"contest_id"` // obrigatório em subscribe/unsubscribe
}
