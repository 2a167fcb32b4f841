package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Well-known keys of a burrow event data entry.
const (
	DataAccountID            = "account_id"
	DataTokenID              = "token_id"
	DataAmount               = "amount"
	DataLiquidationAccountID = "liquidation_account_id"
	DataCollateralSum        = "collateral_sum"
	DataRepaidSum            = "repaid_sum"
)

// Event kinds the feed renders specially.
const (
	KindLiquidate  = "liquidate"
	KindForceClose = "force_close"
)

// StreamMessage is a server to client frame of the event stream.
type StreamMessage struct {
	Events []RawEvent `json:"events"`
}

// RawEvent is an event as delivered by the stream provider.
type RawEvent struct {
	BlockHeight    uint64       `json:"block_height"`
	BlockHash      string       `json:"block_hash"`
	BlockTimestamp Nanos        `json:"block_timestamp"`
	ReceiptID      string       `json:"receipt_id"`
	AccountID      string       `json:"account_id"`
	PredecessorID  string       `json:"predecessor_id"`
	Status         string       `json:"status"`
	Event          RawEventBody `json:"event"`
}

// RawEventBody is the NEP-297 event envelope.
type RawEventBody struct {
	Standard string           `json:"standard"`
	Version  string           `json:"version"`
	Event    string           `json:"event"`
	Data     []map[string]any `json:"data"`
}

// Nanos is a nanosecond timestamp encoded either as a decimal string or a JSON number.
type Nanos uint64

func (n *Nanos) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid nanosecond timestamp %q: %w", data, err)
	}
	*n = Nanos(v)
	return nil
}

func (n Nanos) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(n), 10))
}

// Time converts the timestamp to millisecond resolution.
func (n Nanos) Time() time.Time {
	return time.UnixMilli(int64(n / 1_000_000)).UTC()
}

// Event is a normalized entry of the event log. Values are never mutated after creation.
type Event struct {
	Seq       uint64         `json:"seq"`
	Time      time.Time      `json:"time"`
	AccountID string         `json:"account_id"`
	Kind      string         `json:"kind"`
	Data      map[string]any `json:"data"`
}

func (e Event) field(key string) string {
	v, ok := e.Data[key]
	if !ok || v == nil {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return typed
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func (e Event) TokenID() string { return e.field(DataTokenID) }
func (e Event) Amount() string { return e.field(DataAmount) }
func (e Event) LiquidationAccountID() string { return e.field(DataLiquidationAccountID) }
func (e Event) CollateralSum() string { return e.field(DataCollateralSum) }
func (e Event) RepaidSum() string { return e.field(DataRepaidSum) }
