package reconcile

import (
	"fmt"

	"burrowfeed/internal/model"
)

func buildEvent(seq uint64, raw model.RawEvent) (model.Event, error) {
	if raw.BlockTimestamp == 0 {
		return model.Event{}, fmt.Errorf("missing block timestamp")
	}
	if len(raw.Event.Data) == 0 || raw.Event.Data[0] == nil {
		return model.Event{}, fmt.Errorf("event %q has no data entries", raw.Event.Event)
	}

	first := raw.Event.Data[0]
	data := make(map[string]any, len(first))
	for k, v := range first {
		data[k] = v
	}
	accountID, _ := data[model.DataAccountID].(string)

	return model.Event{
		Seq:       seq,
		Time:      raw.BlockTimestamp.Time(),
		AccountID: accountID,
		Kind:      raw.Event.Event,
		Data:      data,
	}, nil
}
