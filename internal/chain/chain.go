// Package chain knows the chains the wallet provider supports and how their
// addresses are spelled.
package chain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
)

// Family groups chains that share an address format.
type Family string

const (
	FamilyEVM Family = "evm"
	FamilyNeo Family = "neo"
)

// Chain describes one supported chain.
type Chain struct {
	ID      string
	Name    string
	Family  Family
	Testnet bool
}

var (
	ErrUnknownChain   = errors.New("unknown chain")
	ErrEmptyAddress   = errors.New("address is empty")
	ErrInvalidAddress = errors.New("invalid address")
)

var registry = map[string]Chain{
	"ethereum":         {ID: "ethereum", Name: "Ethereum", Family: FamilyEVM},
	"ethereum-sepolia": {ID: "ethereum-sepolia", Name: "Ethereum Sepolia", Family: FamilyEVM, Testnet: true},
	"base":             {ID: "base", Name: "Base", Family: FamilyEVM},
	"base-sepolia":     {ID: "base-sepolia", Name: "Base Sepolia", Family: FamilyEVM, Testnet: true},
	"polygon":          {ID: "polygon", Name: "Polygon", Family: FamilyEVM},
	"polygon-amoy":     {ID: "polygon-amoy", Name: "Polygon Amoy", Family: FamilyEVM, Testnet: true},
	"optimism":         {ID: "optimism", Name: "Optimism", Family: FamilyEVM},
	"optimism-sepolia": {ID: "optimism-sepolia", Name: "Optimism Sepolia", Family: FamilyEVM, Testnet: true},
	"arbitrum":         {ID: "arbitrum", Name: "Arbitrum One", Family: FamilyEVM},
	"arbitrum-sepolia": {ID: "arbitrum-sepolia", Name: "Arbitrum Sepolia", Family: FamilyEVM, Testnet: true},
	"neo3":             {ID: "neo3", Name: "Neo N3", Family: FamilyNeo},
	"neo3-testnet":     {ID: "neo3-testnet", Name: "Neo N3 Testnet", Family: FamilyNeo, Testnet: true},
}

// IDs returns every known chain id, sorted.
func IDs() []string {
	out := make([]string, 0, len(registry))
	for id := range registry {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Lookup resolves a chain id. Unknown ids get a "did you mean" hint when a
// registered id is close enough.
func Lookup(id string) (Chain, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if c, ok := registry[id]; ok {
		return c, nil
	}
	if s := Suggest(id); s != "" {
		return Chain{}, fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownChain, id, s)
	}
	return Chain{}, fmt.Errorf("%w %q", ErrUnknownChain, id)
}

// Suggest returns the registered id nearest to id, or "" if none is within a
// third of its length.
func Suggest(id string) string {
	if id == "" {
		return ""
	}
	best, bestDist := "", len(id)/3+1
	for _, known := range IDs() {
		if d := levenshtein.ComputeDistance(id, known); d < bestDist {
			best, bestDist = known, d
		}
	}
	return best
}

// ValidateAddress checks that addr is syntactically a valid address on c.
func (c Chain) ValidateAddress(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ErrEmptyAddress
	}
	switch c.Family {
	case FamilyEVM:
		if !strings.HasPrefix(addr, "0x") || !common.IsHexAddress(addr) {
			return fmt.Errorf("%w: not a 20-byte hex address", ErrInvalidAddress)
		}
		if hasMixedCase(addr[2:]) && common.HexToAddress(addr).Hex() != addr {
			return fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
		}
		return nil
	case FamilyNeo:
		if _, err := address.StringToUint160(addr); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported chain family %q", ErrInvalidAddress, c.Family)
	}
}

func hasMixedCase(hex string) bool {
	return strings.ToLower(hex) != hex && strings.ToUpper(hex) != hex
}
