package broadcast

import "time"

// Message types on the viewer channel
const (
	MessageTypeSnapshot    = "snapshot"
	MessageTypeDelta       = "delta"
	MessageTypeError       = "error"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
)

// ClientMessage is what a viewer may send: subscribe or unsubscribe by match id.
type ClientMessage struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
}

// ServerMessage carries a snapshot, a delta or an error. Sequence is the
// match stream sequence the payload is current as of.
type ServerMessage struct {
	Type      string    `json:"type"`
	MatchID   string    `json:"match_id,omitempty"`
	Sequence  int64     `json:"sequence"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorMessage(matchID, code, message string) ServerMessage {
	return ServerMessage{
		Type:      MessageTypeError,
		MatchID:   matchID,
		Payload:   ErrorMessage{Code: code, Message: message},
		Timestamp: time.Now(),
	}
}
