package events

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"cyklon/internal/model"
)

// LiquidityAddedName is the event name carried in journal records.
const LiquidityAddedName = "LiquidityAdded"

const eventsABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": false, "internalType": "uint64", "name": "amount0", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "amount1", "type": "uint64"},
      {"indexed": false, "internalType": "int32", "name": "tickLower", "type": "int32"},
      {"indexed": false, "internalType": "int32", "name": "tickUpper", "type": "int32"},
      {"indexed": false, "internalType": "uint128", "name": "liquidity", "type": "uint128"}
    ],
    "name": "LiquidityAdded",
    "type": "event"
  }
]`

var (
	eventsABI     abi.ABI
	eventsABIOnce sync.Once
	eventsABIErr  error
)

// EventsABI returns the parsed event ABI.
func EventsABI() (abi.ABI, error) {
	eventsABIOnce.Do(func() {
		eventsABI, eventsABIErr = abi.JSON(strings.NewReader(eventsABIJSON))
	})
	return eventsABI, eventsABIErr
}

// LiquidityAddedTopic returns topic0 of the LiquidityAdded log.
func LiquidityAddedTopic() (common.Hash, error) {
	parsed, err := EventsABI()
	if err != nil {
		return common.Hash{}, err
	}
	return parsed.Events[LiquidityAddedName].ID, nil
}

// EncodeLog renders event as an EVM-style log emitted by the pool.
func EncodeLog(event model.LiquidityAdded) (model.EventLog, error) {
	parsed, err := EventsABI()
	if err != nil {
		return model.EventLog{}, err
	}
	abiEvent := parsed.Events[LiquidityAddedName]

	liquidity, ok := new(big.Int).SetString(event.Liquidity, 10)
	if !ok || liquidity.Sign() < 0 || liquidity.BitLen() > 128 {
		return model.EventLog{}, fmt.Errorf("invalid liquidity %q", event.Liquidity)
	}

	data, err := abiEvent.Inputs.NonIndexed().Pack(
		event.Amount0,
		event.Amount1,
		event.TickLower,
		event.TickUpper,
		liquidity,
	)
	if err != nil {
		return model.EventLog{}, fmt.Errorf("pack %s: %w", LiquidityAddedName, err)
	}

	return model.EventLog{
		Address: event.Pool,
		Topics: []string{
			abiEvent.ID.Hex(),
			common.BytesToHash(event.Pool.Bytes()).Hex(),
			common.BytesToHash(event.Owner.Bytes()).Hex(),
		},
		Data: hexutil.Encode(data),
	}, nil
}

// DecodeLog reverses EncodeLog.
func DecodeLog(log model.EventLog) (model.LiquidityAdded, error) {
	parsed, err := EventsABI()
	if err != nil {
		return model.LiquidityAdded{}, err
	}
	abiEvent := parsed.Events[LiquidityAddedName]

	if len(log.Topics) == 0 {
		return model.LiquidityAdded{}, fmt.Errorf("missing topics")
	}
	if !strings.EqualFold(log.Topics[0], abiEvent.ID.Hex()) {
		return model.LiquidityAdded{}, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}

	indexedTopics, err := parseIndexedTopics(abiEvent, log.Topics)
	if err != nil {
		return model.LiquidityAdded{}, err
	}
	var indexed struct {
		Pool  common.Address
		Owner common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(abiEvent.Inputs), indexedTopics); err != nil {
		return model.LiquidityAdded{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(abiEvent, log.Data)
	if err != nil {
		return model.LiquidityAdded{}, err
	}
	if len(values) != 5 {
		return model.LiquidityAdded{}, fmt.Errorf("unexpected %s values: %d", LiquidityAddedName, len(values))
	}

	amount0, ok0 := values[0].(uint64)
	amount1, ok1 := values[1].(uint64)
	tickLower, ok2 := values[2].(int32)
	tickUpper, ok3 := values[3].(int32)
	liquidity, ok4 := values[4].(*big.Int)
	if !ok0 || !ok1 || !ok2 || !ok3 || !ok4 {
		return model.LiquidityAdded{}, fmt.Errorf("unexpected %s value types", LiquidityAddedName)
	}

	return model.LiquidityAdded{
		Pool:      indexed.Pool,
		Owner:     indexed.Owner,
		Amount0:   amount0,
		Amount1:   amount1,
		TickLower: tickLower,
		TickUpper: tickUpper,
		Liquidity: liquidity.String(),
	}, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	out := make([]common.Hash, 0, indexedCount)
	for _, topic := range topics[1:] {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}
