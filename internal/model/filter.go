package model

// Filter is the server-side event filter. Clauses are OR'd; fields inside a clause are AND'd.
type Filter []FilterClause

// FilterClause constrains the event envelope.
type FilterClause struct {
	Status    string      `json:"status"`
	AccountID string      `json:"account_id"`
	Event     EventFilter `json:"event"`
}

// EventFilter constrains the NEP-297 body.
type EventFilter struct {
	Standard string       `json:"standard"`
	Event    string       `json:"event,omitempty"`
	Data     []DataFilter `json:"data,omitempty"`
}

// DataFilter matches one entry of the event data array.
type DataFilter struct {
	AccountID            string `json:"account_id,omitempty"`
	LiquidationAccountID string `json:"liquidation_account_id,omitempty"`
}

// Subscribe is the handshake sent once per connection.
type Subscribe struct {
	Secret          string `json:"secret"`
	Filter          Filter `json:"filter"`
	FetchPastEvents int    `json:"fetch_past_events"`
}
