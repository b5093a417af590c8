package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Mirror message types.
const (
	MessageUpsert = "expense.upsert"
	MessageDelete = "expense.delete"
)

// MirrorMessage tells the mirror worker which expense changed. It carries
// only the ID and version; the worker reads the current row from storage.
type MirrorMessage struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Version   int64     `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewUpsertMessage(id string, version int64) *MirrorMessage {
	return &MirrorMessage{Type: MessageUpsert, ID: id, Version: version, Timestamp: time.Now().UTC()}
}

func NewDeleteMessage(id string) *MirrorMessage {
	return &MirrorMessage{Type: MessageDelete, ID: id, Timestamp: time.Now().UTC()}
}

func (m *MirrorMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MirrorMessageFromJSON decodes and validates a message body.
func MirrorMessageFromJSON(data []byte) (*MirrorMessage, error) {
	var msg MirrorMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errors.New("mirror message without id")
	}
	switch msg.Type {
	case MessageUpsert, MessageDelete:
	case "":
		msg.Type = MessageUpsert
	default:
		return nil, fmt.Errorf("unknown mirror message type %q", msg.Type)
	}
	return &msg, nil
}
