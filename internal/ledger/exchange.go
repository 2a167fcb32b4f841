package ledger

import (
	"context"

	"burrowfeed/internal/model"
)

const DefaultExchangeContract = "v2.ref-finance.near"

// Exchange reads pools from an AMM exchange contract.
type Exchange struct {
	client     *Client
	contractID string
}

// NewExchange binds client to the exchange contract.
func NewExchange(client *Client, contractID string) *Exchange {
	if contractID == "" {
		contractID = DefaultExchangeContract
	}
	return &Exchange{client: client, contractID: contractID}
}

func (e *Exchange) ContractID() string {
	return e.contractID
}

// NumberOfPools returns the number of pools ever created on the exchange.
func (e *Exchange) NumberOfPools(ctx context.Context) (uint64, error) {
	var n uint64
	if err := e.client.CallFunction(ctx, e.contractID, "get_number_of_pools", nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// GetPools returns up to limit pools starting at pool id from.
func (e *Exchange) GetPools(ctx context.Context, from, limit uint64) ([]model.PoolRecord, error) {
	var pools []model.PoolRecord
	args := model.PoolPageArgs{FromIndex: from, Limit: limit}
	if err := e.client.CallFunction(ctx, e.contractID, "get_pools", args, &pools); err != nil {
		return nil, err
	}
	return pools, nil
}
