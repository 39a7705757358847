package ws

import "encoding/json"

// MessageType constants for the question feed protocol.
const (
	// Server -> Client
	TypeQuestionCreated = "question_created"
	TypeQuestionDeleted = "question_deleted"
	TypeError           = "error"

	// Both directions
	TypePing = "ping"
	TypePong = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage encodes payload into a typed envelope.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}

type QuestionCreatedPayload struct {
	ID             int32  `json:"id"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
	Category       int32  `json:"category"`
	Difficulty     int32  `json:"difficulty"`
	TotalQuestions int    `json:"total_questions"`
}

type QuestionDeletedPayload struct {
	ID             int32 `json:"id"`
	TotalQuestions int   `json:"total_questions"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
