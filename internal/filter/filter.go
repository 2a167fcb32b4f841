// Package filter builds the server-side subscription filter for burrow events.
package filter

import (
	"burrowfeed/internal/model"
)

const (
	DefaultContractID = "contract.main.burrow.near"
	DefaultStandard   = "burrow"
	StatusSuccess     = "SUCCESS"
)

// Builder builds filters scoped to one contract and event standard.
type Builder struct {
	ContractID string
	Standard   string
}

// NewBuilder returns a Builder, falling back to the mainnet burrow contract.
func NewBuilder(contractID, standard string) Builder {
	if contractID == "" {
		contractID = DefaultContractID
	}
	if standard == "" {
		standard = DefaultStandard
	}
	return Builder{ContractID: contractID, Standard: standard}
}

// Params are the filter dimensions. An empty AccountID disables account scoping.
type Params struct {
	AccountID        string
	LiquidationsOnly bool
}

// Build returns one clause without an account, or two OR'd clauses matching
// the account as actor or as the liquidated party.
func (b Builder) Build(p Params) model.Filter {
	if p.AccountID == "" {
		return model.Filter{b.base(p.LiquidationsOnly)}
	}

	actor := b.base(p.LiquidationsOnly)
	actor.Event.Data = []model.DataFilter{{AccountID: p.AccountID}}

	liquidated := b.base(p.LiquidationsOnly)
	liquidated.Event.Data = []model.DataFilter{{LiquidationAccountID: p.AccountID}}

	return model.Filter{actor, liquidated}
}

func (b Builder) base(liquidationsOnly bool) model.FilterClause {
	clause := model.FilterClause{
		Status:    StatusSuccess,
		AccountID: b.ContractID,
		Event:     model.EventFilter{Standard: b.Standard},
	}
	if liquidationsOnly {
		clause.Event.Event = model.KindLiquidate
	}
	return clause
}

// Build uses the default contract and standard.
func Build(p Params) model.Filter {
	return NewBuilder("", "").Build(p)
}
