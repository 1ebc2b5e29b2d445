package server

// EventPayload is stored as the jsonb payload of a lifecycle event.
type EventPayload struct {
	UserID    uint `json:"user_id,omitempty"`
	Listeners int  `json:"listeners"`
}
