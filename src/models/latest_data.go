package models

// -----------------------------------------------------------------------------
// WebSocket push envelope
// -----------------------------------------------------------------------------

type MLatestData struct {
	Type      string            `json:"type"` // "INITIAL" or "UPDATE"
	Snapshot  *MNowcastSnapshot `json:"snapshot"`
	Timestamp int64             `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command    string `json:"command"`
	ClientType string `json:"clientType"`
}
