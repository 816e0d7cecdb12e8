package staking

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestProgramID(t *testing.T) {
	// the address the bootstrap loads the program at and the address the
	// client targets must be the same constant
	require.Equal(t, "EyJ4ZNzAK8HJJrRbTTE6x769RA2h95zj826194DxyEbw", ProgramID.String())
}

func TestAddressDerivation(t *testing.T) {
	t.Run("derivation is deterministic", func(t *testing.T) {
		a1, bump1, err := MasterAddress()
		require.NoError(t, err)
		a2, bump2, err := MasterAddress()
		require.NoError(t, err)
		require.Equal(t, a1, a2)
		require.Equal(t, bump1, bump2)
	})

	t.Run("pool addresses differ by index", func(t *testing.T) {
		p0, _, err := PoolAddress(0)
		require.NoError(t, err)
		p1, _, err := PoolAddress(1)
		require.NoError(t, err)
		require.NotEqual(t, p0, p1)
	})

	t.Run("account kinds do not collide", func(t *testing.T) {
		seen := map[solana.PublicKey]string{}
		for name, derive := range map[string]func() (solana.PublicKey, uint8, error){
			"master":          MasterAddress,
			"token authority": TokenAuthorityAddress,
			"pool":            func() (solana.PublicKey, uint8, error) { return PoolAddress(0) },
			"pool wallet":     func() (solana.PublicKey, uint8, error) { return PoolWalletAddress(0) },
			"staked account":  func() (solana.PublicKey, uint8, error) { return StakedAccountAddress(0) },
		} {
			addr, _, err := derive()
			require.NoError(t, err, name)
			require.NotContains(t, seen, addr, "%s collides with %s", name, seen[addr])
			seen[addr] = name
		}
	})

	t.Run("user info is keyed by pool and token account", func(t *testing.T) {
		pool, _, err := PoolAddress(0)
		require.NoError(t, err)
		tokenAcc1 := solana.NewWallet().PublicKey()
		tokenAcc2 := solana.NewWallet().PublicKey()

		u1, _, err := UserInfoAddress(pool, tokenAcc1)
		require.NoError(t, err)
		u2, _, err := UserInfoAddress(pool, tokenAcc2)
		require.NoError(t, err)
		require.NotEqual(t, u1, u2)
	})
}
