package model

import "github.com/ethereum/go-ethereum/common"

// LiquidityAdded is emitted once per committed liquidity addition.
type LiquidityAdded struct {
	Pool      common.Address `json:"pool"`
	Owner     common.Address `json:"owner"`
	Amount0   uint64         `json:"amount0"`
	Amount1   uint64         `json:"amount1"`
	TickLower int32          `json:"tick_lower"`
	TickUpper int32          `json:"tick_upper"`
	Liquidity string         `json:"liquidity"`
}

// EventLog is the EVM-style log encoding of an event.
type EventLog struct {
	Address common.Address `json:"address"`
	Topics  []string       `json:"topics"`
	Data    string         `json:"data"`
}

// EventRecord is one line of the event journal.
type EventRecord struct {
	EventName  string         `json:"event_name"`
	Event      LiquidityAdded `json:"event"`
	Log        EventLog       `json:"log"`
	RecordedAt string         `json:"recorded_at"`
}
