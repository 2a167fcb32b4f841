package model

// PoolKindSimple is the two-asset constant-product pool kind.
const PoolKindSimple = "SIMPLE_POOL"

// PoolRecord is a pool as returned by the exchange contract's get_pools view.
type PoolRecord struct {
	PoolKind          string   `json:"pool_kind"`
	TokenAccountIDs   []string `json:"token_account_ids"`
	Amounts           []string `json:"amounts"`
	TotalFee          uint32   `json:"total_fee"`
	SharesTotalSupply string   `json:"shares_total_supply"`
}

// PoolPageArgs are the arguments of get_pools.
type PoolPageArgs struct {
	FromIndex uint64 `json:"from_index"`
	Limit     uint64 `json:"limit"`
}
