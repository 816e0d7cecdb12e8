package staking

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestPrecisionFactor(t *testing.T) {
	f, err := PrecisionFactor(0)
	require.NoError(t, err)
	require.EqualValues(t, 1, f)

	f, err = PrecisionFactor(9)
	require.NoError(t, err)
	require.EqualValues(t, 1_000_000_000, f)

	f, err = PrecisionFactor(19)
	require.NoError(t, err)
	require.EqualValues(t, uint64(10_000_000_000_000_000_000), f)

	_, err = PrecisionFactor(20)
	require.ErrorIs(t, err, ErrPrecisionFactorRank)
}

func TestMultiplier(t *testing.T) {
	pool := &StakePool{
		StartBlock:      0,
		EndBlock:        10_000,
		BonusMultiplier: OptionU8{Set: true, Value: 3},
		BonusStartBlock: OptionU64{Set: true, Value: 100},
		BonusEndBlock:   OptionU64{Set: true, Value: 200},
	}

	// range spans the whole bonus window
	require.EqualValues(t, 50+50+100*3, pool.multiplier(50, 250))
	// range enters the bonus window
	require.EqualValues(t, 50+50*3, pool.multiplier(50, 150))
	// range leaves the bonus window
	require.EqualValues(t, 50+50*3, pool.multiplier(150, 250))
	// range inside the bonus window
	require.EqualValues(t, 60*3, pool.multiplier(120, 180))
	// range after the bonus window
	require.EqualValues(t, 100, pool.multiplier(300, 400))
	// empty range
	require.Zero(t, pool.multiplier(500, 500))

	t.Run("no bonus configured", func(t *testing.T) {
		pool := &StakePool{StartBlock: 100, EndBlock: 1000}
		require.EqualValues(t, 100, pool.multiplier(200, 300))
		// clamped to the pool window
		require.EqualValues(t, 100, pool.multiplier(50, 200))
		require.EqualValues(t, 100, pool.multiplier(900, 2000))
		// both ends past the pool window
		require.Zero(t, pool.multiplier(1500, 2000))
	})
}

func TestUpdatePool(t *testing.T) {
	newPool := func() *StakePool {
		return &StakePool{
			StartBlock:          100,
			EndBlock:            1000,
			LastRewardBlock:     100,
			RewardPerBlock:      10,
			PrecisionFactorRank: 2,
		}
	}

	t.Run("accrues reward per share", func(t *testing.T) {
		pool := newPool()
		require.NoError(t, pool.UpdatePool(400, 200))
		// 100 blocks * 10 reward * 100 precision / 400 staked
		require.EqualValues(t, uint256.NewInt(250), pool.AccruedTokenPerShare)
		require.EqualValues(t, 200, pool.LastRewardBlock)

		// second update runs past the pool end block
		require.NoError(t, pool.UpdatePool(400, 1100))
		require.EqualValues(t, uint256.NewInt(2250), pool.AccruedTokenPerShare)
		require.EqualValues(t, 1000, pool.LastRewardBlock, "clamped to pool end block")
	})

	t.Run("no-op when slot has not advanced", func(t *testing.T) {
		pool := newPool()
		require.NoError(t, pool.UpdatePool(400, 100))
		require.Nil(t, pool.AccruedTokenPerShare)
		require.EqualValues(t, 100, pool.LastRewardBlock)
	})

	t.Run("empty pool just advances the block", func(t *testing.T) {
		pool := newPool()
		require.NoError(t, pool.UpdatePool(0, 500))
		require.Nil(t, pool.AccruedTokenPerShare)
		require.EqualValues(t, 500, pool.LastRewardBlock)
	})

	t.Run("bonus window expiry resets the multiplier", func(t *testing.T) {
		pool := newPool()
		pool.BonusMultiplier = OptionU8{Set: true, Value: 2}
		pool.BonusStartBlock = OptionU64{Set: true, Value: 100}
		pool.BonusEndBlock = OptionU64{Set: true, Value: 200}

		require.NoError(t, pool.UpdatePool(400, 300))
		require.False(t, pool.BonusStartBlock.Set)
		require.False(t, pool.BonusEndBlock.Set)
		require.Equal(t, OptionU8{Set: true, Value: 1}, pool.BonusMultiplier)
	})

	t.Run("reward overflow", func(t *testing.T) {
		pool := newPool()
		pool.RewardPerBlock = ^uint64(0)
		require.ErrorIs(t, pool.UpdatePool(400, 200), ErrRewardOverflow)
	})

	t.Run("accrued per share overflow", func(t *testing.T) {
		pool := newPool()
		pool.PrecisionFactorRank = 0
		pool.RewardPerBlock = 1
		maxU128 := new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)
		pool.AccruedTokenPerShare = maxU128
		require.ErrorIs(t, pool.UpdatePool(1, 200), ErrAccruedPerShareOverflow)
	})
}

func TestSupplyAccounting(t *testing.T) {
	pool := &StakePool{}
	require.NoError(t, pool.AddSupply(100))
	require.NoError(t, pool.AddSupply(50))
	require.EqualValues(t, 150, pool.TotalSupply)

	require.ErrorIs(t, pool.AddSupply(^uint64(0)), ErrTotalSupplyOverflow)

	require.NoError(t, pool.SubSupply(150))
	require.Zero(t, pool.TotalSupply)
	require.ErrorIs(t, pool.SubSupply(1), ErrTotalSupplyUnderflow)
}

func TestPendingReward(t *testing.T) {
	pool := &StakePool{
		PrecisionFactorRank:  2,
		AccruedTokenPerShare: uint256.NewInt(123_450),
	}

	t.Run("accrued minus debt", func(t *testing.T) {
		user := &UserInfo{Amount: 1000, RewardDebt: 34_500}
		pending, err := pool.PendingReward(user)
		require.NoError(t, err)
		require.EqualValues(t, 1_200_000, pending)
	})

	t.Run("debt exceeds accrued", func(t *testing.T) {
		user := &UserInfo{Amount: 1, RewardDebt: 10_000}
		_, err := pool.PendingReward(user)
		require.ErrorIs(t, err, ErrRewardDebtExceeded)
	})

	t.Run("reward debt after stake change", func(t *testing.T) {
		debt, err := pool.RewardDebt(1000)
		require.NoError(t, err)
		require.EqualValues(t, 1_234_500, debt)
	})
}

func TestRewardPerToken(t *testing.T) {
	newPool := func() *StakePool {
		return &StakePool{
			TotalSupply:          100,
			RewardRate:           uint256.NewInt(500),
			LastUpdateTime:       1000,
			PeriodFinish:         2000,
			RewardPerTokenStored: uint256.NewInt(7),
		}
	}

	t.Run("mid period", func(t *testing.T) {
		rpt, err := newPool().RewardPerToken(1500)
		require.NoError(t, err)
		require.EqualValues(t, uint256.NewInt(2507), rpt)
	})

	t.Run("clamped to period finish", func(t *testing.T) {
		rpt, err := newPool().RewardPerToken(3000)
		require.NoError(t, err)
		require.EqualValues(t, uint256.NewInt(5007), rpt)
	})

	t.Run("empty pool returns stored value", func(t *testing.T) {
		pool := newPool()
		pool.TotalSupply = 0
		rpt, err := pool.RewardPerToken(3000)
		require.NoError(t, err)
		require.EqualValues(t, uint256.NewInt(7), rpt)
	})

	t.Run("clock behind last update", func(t *testing.T) {
		_, err := newPool().RewardPerToken(500)
		require.ErrorIs(t, err, ErrTimeWentBackwards)
	})
}

func TestNotifyRewardAmount(t *testing.T) {
	t.Run("fresh period", func(t *testing.T) {
		pool := &StakePool{}
		require.NoError(t, pool.NotifyRewardAmount(RewardsDuration*5, 1000))
		require.EqualValues(t, uint256.NewInt(5), pool.RewardRate)
		require.EqualValues(t, 1000+RewardsDuration, pool.PeriodFinish)
		require.EqualValues(t, 1000, pool.LastUpdateTime)
	})

	t.Run("leftover of the running period is rolled over", func(t *testing.T) {
		pool := &StakePool{}
		require.NoError(t, pool.NotifyRewardAmount(RewardsDuration*4, 1000))
		// half way through the period fund the same amount again:
		// new rate = (4*duration + leftover 0.5*duration*4) / duration = 6
		halfway := 1000 + RewardsDuration/2
		require.NoError(t, pool.NotifyRewardAmount(RewardsDuration*4, halfway))
		require.EqualValues(t, uint256.NewInt(6), pool.RewardRate)
		require.EqualValues(t, halfway+RewardsDuration, pool.PeriodFinish)
	})
}
