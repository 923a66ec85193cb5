package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ParseAddress converts a hex string into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}

// ParseAddresses converts string addresses into common.Address, skipping blanks.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		if strings.TrimSpace(input) == "" {
			continue
		}
		addr, err := ParseAddress(input)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

// ParseSqrtPrice reads a decimal or 0x-prefixed Q64.96 value. Blank input
// yields nil.
func ParseSqrtPrice(input string) (*uint256.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	var (
		value *uint256.Int
		err   error
	)
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		value, err = uint256.FromHex(input)
	} else {
		value, err = uint256.FromDecimal(input)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid sqrt price %q: %w", input, err)
	}
	return value, nil
}
