package staking

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestMasterStaking(t *testing.T) {
	t.Run("pack and unpack", func(t *testing.T) {
		m := &MasterStaking{PoolCounter: 7}
		data := m.Pack()
		require.Len(t, data, MasterStakingLen)

		m2, err := UnpackMasterStaking(data)
		require.NoError(t, err)
		require.EqualValues(t, 7, m2.PoolCounter)
	})

	t.Run("too short buffer", func(t *testing.T) {
		_, err := UnpackMasterStaking([]byte{1, 2, 3})
		require.ErrorIs(t, err, ErrInvalidMasterStaking)
	})

	t.Run("counter overflow", func(t *testing.T) {
		m := &MasterStaking{PoolCounter: ^uint64(0)}
		require.ErrorIs(t, m.IncreaseCounter(), ErrPoolCounterOverflow)

		m.PoolCounter = 0
		require.NoError(t, m.IncreaseCounter())
		require.EqualValues(t, 1, m.PoolCounter)
	})
}

func TestUserInfo(t *testing.T) {
	tokenAccount := solana.NewWallet().PublicKey()

	t.Run("pack and unpack", func(t *testing.T) {
		u := &UserInfo{
			TokenAccountID:   tokenAccount,
			Amount:           1000,
			RewardDebt:       42,
			RewardLockFinish: 1700000000,
		}
		u2, err := UnpackUserInfo(u.Pack())
		require.NoError(t, err)
		require.Equal(t, u, u2)
	})

	t.Run("legacy account without lock field", func(t *testing.T) {
		u := &UserInfo{TokenAccountID: tokenAccount, Amount: 5, RewardDebt: 1}
		u2, err := UnpackUserInfo(u.Pack()[:UserInfoLen])
		require.NoError(t, err)
		require.EqualValues(t, 5, u2.Amount)
		require.Zero(t, u2.RewardLockFinish)
	})

	t.Run("too short buffer", func(t *testing.T) {
		_, err := UnpackUserInfo(make([]byte, UserInfoLen-1))
		require.ErrorIs(t, err, ErrInvalidUserInfo)
	})

	t.Run("reward lock", func(t *testing.T) {
		u := &UserInfo{}
		require.NoError(t, u.LockRewards(1000))
		require.EqualValues(t, 1000+RewardsLockDuration, u.RewardLockFinish)
		require.True(t, u.RewardsLocked(1000))
		require.True(t, u.RewardsLocked(1000+RewardsLockDuration-1))
		require.False(t, u.RewardsLocked(1000+RewardsLockDuration))

		require.ErrorIs(t, u.LockRewards(^uint64(0)), ErrRewardLockOverflow)
	})
}

func TestStakePoolPackUnpack(t *testing.T) {
	pool := &StakePool{
		PoolIndex:            3,
		Owner:                solana.NewWallet().PublicKey(),
		Mint:                 solana.NewWallet().PublicKey(),
		IsInitialized:        true,
		PrecisionFactorRank:  9,
		BonusMultiplier:      OptionU8{Set: true, Value: 2},
		BonusStartBlock:      OptionU64{Set: true, Value: 100},
		BonusEndBlock:        OptionU64{Set: true, Value: 200},
		LastRewardBlock:      150,
		StartBlock:           50,
		EndBlock:             1000,
		RewardAmount:         1_000_000,
		RewardPerBlock:       10,
		AccruedTokenPerShare: uint256.NewInt(123456789),
		PeriodFinish:         1700604800,
		RewardRate:           uint256.NewInt(7777),
		LastUpdateTime:       1700000000,
		RewardPerTokenStored: uint256.NewInt(55),
		TotalSupply:          500,
	}

	data, err := pool.Pack()
	require.NoError(t, err)
	require.Len(t, data, StakePoolLen)

	pool2, err := UnpackStakePool(data)
	require.NoError(t, err)
	require.Equal(t, pool, pool2)

	// the account buffer on chain is larger than the packed state,
	// unpack must tolerate the unused tail
	padded := make([]byte, StakePoolAccountLen)
	copy(padded, data)
	pool3, err := UnpackStakePool(padded)
	require.NoError(t, err)
	require.Equal(t, pool, pool3)
}

func TestStakePoolLayout(t *testing.T) {
	pool := &StakePool{
		PoolIndex:           1,
		IsInitialized:       true,
		PrecisionFactorRank: 6,
		BonusMultiplier:     OptionU8{Set: true, Value: 5},
		TotalSupply:         0x1122334455667788,
	}
	data, err := pool.Pack()
	require.NoError(t, err)

	// spot check fixed offsets of the on-chain layout
	require.EqualValues(t, 1, data[0], "pool index, little endian")
	require.EqualValues(t, 1, data[offIsInitialized])
	require.EqualValues(t, 6, data[offPrecisionRank])
	require.Equal(t, []byte{1, 0, 0, 0, 5}, data[offBonusMultiplier:offBonusMultiplier+5], "COption<u8> tag + value")
	require.Equal(t, []byte{0, 0, 0, 0}, data[offBonusStart:offBonusStart+4], "COption<u64> none tag")
	require.Equal(t, []byte{0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}, data[offTotalSupply:offTotalSupply+8])
}

func TestStakePoolUnpackErrors(t *testing.T) {
	t.Run("too short buffer", func(t *testing.T) {
		_, err := UnpackStakePool(make([]byte, StakePoolLen-1))
		require.ErrorIs(t, err, ErrInvalidStakePool)
	})

	t.Run("invalid option tag", func(t *testing.T) {
		data := make([]byte, StakePoolLen)
		data[offBonusMultiplier] = 2 // valid tags are 0 and 1
		_, err := UnpackStakePool(data)
		require.ErrorIs(t, err, ErrInvalidOptionTag)
		require.ErrorContains(t, err, "bonus multiplier")
	})

	t.Run("u128 field out of range on pack", func(t *testing.T) {
		pool := &StakePool{AccruedTokenPerShare: new(uint256.Int).Lsh(uint256.NewInt(1), 128)}
		_, err := pool.Pack()
		require.ErrorIs(t, err, ErrU128Range)
		require.ErrorContains(t, err, "accrued token per share")
	})
}
