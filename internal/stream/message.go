package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"burrowfeed/internal/model"
)

// ErrMalformedMessage marks a frame that could not be decoded into an event batch.
var ErrMalformedMessage = errors.New("malformed stream message")

// DecodeMessage parses a server frame into its raw events.
func DecodeMessage(data []byte) ([]model.RawEvent, error) {
	var msg model.StreamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Events == nil {
		return nil, fmt.Errorf("%w: missing events array", ErrMalformedMessage)
	}
	return msg.Events, nil
}
