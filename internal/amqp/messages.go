package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"billview/internal/core"
)

// MutationMessage announces a queued beneficiary mutation. The worker loads
// the payload from the outbox by MutationID.
type MutationMessage struct {
	ID         int64           `json:"id"`
	MutationID string          `json:"mutation_id"`
	Op         core.MutationOp `json:"op"`
	Timestamp  time.Time       `json:"timestamp"`
}

func NewMutationMessage(id int64, mutationID string, op core.MutationOp) *MutationMessage {
	return &MutationMessage{
		ID:         id,
		MutationID: mutationID,
		Op:         op,
		Timestamp:  time.Now(),
	}
}

func (m *MutationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MutationMessageFromJSON decodes a delivery body. A message without a
// mutation ID can never be processed and is rejected.
func MutationMessageFromJSON(data []byte) (*MutationMessage, error) {
	var msg MutationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.MutationID == "" {
		return nil, errors.New("message has no mutation_id")
	}
	return &msg, nil
}
