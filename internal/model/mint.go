package model

import "github.com/ethereum/go-ethereum/common"

// Mint captures a token registered with the ledger.
type Mint struct {
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
}
