package types

// ActionRequest asks the orchestrator to act on an app
type ActionRequest struct {
	Type  string `json:"type" binding:"required"`
	AppID string `json:"appId" binding:"required"`
}

// WSMessage is the WebSocket envelope in both directions
type WSMessage struct {
	Type    string `json:"type"`
	AppID   string `json:"appId,omitempty"`
	Message string `json:"message,omitempty"`
	Event   *Event `json:"event,omitempty"`
}
