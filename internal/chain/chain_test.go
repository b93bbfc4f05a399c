package chain

import (
	"errors"
	"strings"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownAndCaseInsensitive(t *testing.T) {
	t.Parallel()

	c, err := Lookup(" Base-Sepolia ")
	require.NoError(t, err)
	require.Equal(t, "base-sepolia", c.ID)
	require.Equal(t, FamilyEVM, c.Family)
	require.True(t, c.Testnet)
}

func TestLookupSuggestsNearestID(t *testing.T) {
	t.Parallel()

	_, err := Lookup("base-sepola")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownChain))
	require.Contains(t, err.Error(), `did you mean "base-sepolia"`)

	_, err = Lookup("solana")
	require.True(t, errors.Is(err, ErrUnknownChain))
	require.NotContains(t, err.Error(), "did you mean")
}

func TestValidateEVMAddress(t *testing.T) {
	t.Parallel()

	c, err := Lookup("base-sepolia")
	require.NoError(t, err)

	cases := []struct {
		name string
		addr string
		ok   bool
	}{
		{"lowercase", "0x52908400098527886e0f7030069857d2e4169ee7", true},
		{"checksummed", "0x52908400098527886E0F7030069857D2E4169EE7", true},
		{"mixed checksum", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", true},
		{"bad checksum", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD", false},
		{"short", "0xabc", false},
		{"no prefix", "52908400098527886e0f7030069857d2e4169ee7", false},
		{"placeholder", "0x1234...5678", false},
	}
	for _, tc := range cases {
		err := c.ValidateAddress(tc.addr)
		if tc.ok {
			require.NoError(t, err, tc.name)
			continue
		}
		require.ErrorIs(t, err, ErrInvalidAddress, tc.name)
	}

	require.ErrorIs(t, c.ValidateAddress("  "), ErrEmptyAddress)
}

func TestValidateNeoAddress(t *testing.T) {
	t.Parallel()

	c, err := Lookup("neo3-testnet")
	require.NoError(t, err)
	valid := address.Uint160ToString(util.Uint160{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20})
	require.NoError(t, c.ValidateAddress(valid))

	last := valid[len(valid)-1]
	swapped := byte('a')
	if last == 'a' {
		swapped = 'b'
	}
	require.ErrorIs(t, c.ValidateAddress(valid[:len(valid)-1]+string(swapped)), ErrInvalidAddress)
	require.ErrorIs(t, c.ValidateAddress("0x52908400098527886e0f7030069857d2e4169ee7"), ErrInvalidAddress)
}

func TestIDsSorted(t *testing.T) {
	t.Parallel()

	ids := IDs()
	require.NotEmpty(t, ids)
	require.True(t, strings.Compare(ids[0], ids[len(ids)-1]) < 0)
}
