package staking

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/holiman/uint256"
)

// PrecisionFactor returns the 10^rank fixed point scaling factor used by
// reward accrual. Rank is capped so the factor fits into uint64.
func PrecisionFactor(rank uint8) (uint64, error) {
	if rank > 19 {
		return 0, fmt.Errorf("%w: %d", ErrPrecisionFactorRank, rank)
	}
	f := uint64(1)
	for i := uint8(0); i < rank; i++ {
		f *= 10
	}
	return f, nil
}

/*
UpdatePool advances the per block reward accrual of the pool up to
currentSlot. stakedSupply is the balance of the pool's staked token account.
All arithmetic is overflow checked, an overflow surfaces as an error and
leaves the pool unmodified.
*/
func (p *StakePool) UpdatePool(stakedSupply uint64, currentSlot uint64) error {
	if currentSlot <= p.LastRewardBlock {
		return nil
	}
	if stakedSupply == 0 {
		p.LastRewardBlock = currentSlot
		return nil
	}

	multiplier := p.multiplier(p.LastRewardBlock, currentSlot)
	hi, reward := bits.Mul64(multiplier, p.RewardPerBlock)
	if hi != 0 {
		return ErrRewardOverflow
	}

	precisionFactor, err := PrecisionFactor(p.PrecisionFactorRank)
	if err != nil {
		return err
	}

	// accrued += reward * precision / supply, 128 bit fixed point
	share := new(uint256.Int).Mul(uint256.NewInt(reward), uint256.NewInt(precisionFactor))
	share.Div(share, uint256.NewInt(stakedSupply))
	accrued := new(uint256.Int).Add(p.accruedTokenPerShare(), share)
	if accrued.BitLen() > 128 {
		return ErrAccruedPerShareOverflow
	}
	p.AccruedTokenPerShare = accrued

	if p.EndBlock > currentSlot {
		p.LastRewardBlock = currentSlot
	} else {
		p.LastRewardBlock = p.EndBlock
	}

	// bonus window is over, back to the base multiplier
	if p.BonusEndBlock.Set && p.BonusEndBlock.Value != 0 && currentSlot > p.BonusEndBlock.Value {
		p.BonusStartBlock = OptionU64{}
		p.BonusEndBlock = OptionU64{}
		p.BonusMultiplier = OptionU8{Set: true, Value: 1}
	}
	return nil
}

// multiplier returns the bonus weighted block count of [from, to),
// clamped to the pool's active window.
func (p *StakePool) multiplier(from, to uint64) uint64 {
	if from < p.StartBlock {
		from = p.StartBlock
	}
	if p.EndBlock < to {
		to = p.EndBlock
	}
	if to <= from {
		return 0
	}

	m := uint64(1)
	if p.BonusMultiplier.Set {
		m = uint64(p.BonusMultiplier.Value)
	}
	var start, end uint64
	if p.BonusStartBlock.Set {
		start = p.BonusStartBlock.Value
	}
	if p.BonusEndBlock.Set {
		end = p.BonusEndBlock.Value
	}

	switch {
	case from < start && to > end:
		return start - from + to - end + (end-start)*m
	case from < start && to > start:
		return start - from + (to-start)*m
	case from < end && to > end:
		return to - end + (end-from)*m
	case from >= start && to <= end:
		return (to - from) * m
	default:
		return to - from
	}
}

// AddSupply records amount more tokens staked into the pool.
func (p *StakePool) AddSupply(amount uint64) error {
	if p.TotalSupply > math.MaxUint64-amount {
		return ErrTotalSupplyOverflow
	}
	p.TotalSupply += amount
	return nil
}

// SubSupply records amount tokens unstaked from the pool.
func (p *StakePool) SubSupply(amount uint64) error {
	if p.TotalSupply < amount {
		return ErrTotalSupplyUnderflow
	}
	p.TotalSupply -= amount
	return nil
}

/*
PendingReward returns the reward amount the user could claim right now:

	amount * accruedTokenPerShare / precisionFactor - rewardDebt
*/
func (p *StakePool) PendingReward(u *UserInfo) (uint64, error) {
	precisionFactor, err := PrecisionFactor(p.PrecisionFactorRank)
	if err != nil {
		return 0, err
	}
	v := new(uint256.Int).Mul(uint256.NewInt(u.Amount), p.accruedTokenPerShare())
	v.Div(v, uint256.NewInt(precisionFactor))
	if !v.IsUint64() {
		return 0, ErrRewardOverflow
	}
	accrued := v.Uint64()
	if accrued < u.RewardDebt {
		return 0, ErrRewardDebtExceeded
	}
	return accrued - u.RewardDebt, nil
}

// RewardDebt returns the reward debt to record after the user's stake
// changed to amount.
func (p *StakePool) RewardDebt(amount uint64) (uint64, error) {
	precisionFactor, err := PrecisionFactor(p.PrecisionFactorRank)
	if err != nil {
		return 0, err
	}
	v := new(uint256.Int).Mul(uint256.NewInt(amount), p.accruedTokenPerShare())
	v.Div(v, uint256.NewInt(precisionFactor))
	if !v.IsUint64() {
		return 0, ErrRewardOverflow
	}
	return v.Uint64(), nil
}

// LastTimeRewardApplicable returns nowUnix clamped to the end of the
// current reward period.
func (p *StakePool) LastTimeRewardApplicable(nowUnix uint64) uint64 {
	if nowUnix < p.PeriodFinish {
		return nowUnix
	}
	return p.PeriodFinish
}

/*
RewardPerToken returns the duration based accrual counterpart of
AccruedTokenPerShare:

	rewardPerTokenStored + elapsed * rewardRate / totalSupply

where elapsed is the time since the last update, clamped to the reward
period, and rewardRate is scaled by the precision factor.
*/
func (p *StakePool) RewardPerToken(nowUnix uint64) (*uint256.Int, error) {
	stored := new(uint256.Int).Set(p.rewardPerTokenStored())
	if p.TotalSupply == 0 {
		return stored, nil
	}

	applicable := p.LastTimeRewardApplicable(nowUnix)
	if applicable < p.LastUpdateTime {
		return nil, ErrTimeWentBackwards
	}
	elapsed := applicable - p.LastUpdateTime

	v := new(uint256.Int).Mul(uint256.NewInt(elapsed), p.rewardRate())
	v.Div(v, uint256.NewInt(p.TotalSupply))
	v.Add(v, stored)
	if v.BitLen() > 128 {
		return nil, ErrRewardOverflow
	}
	return v, nil
}

// UpdateReward rolls the duration based accrual state forward to nowUnix.
func (p *StakePool) UpdateReward(nowUnix uint64) error {
	rpt, err := p.RewardPerToken(nowUnix)
	if err != nil {
		return err
	}
	p.RewardPerTokenStored = rpt
	p.LastUpdateTime = p.LastTimeRewardApplicable(nowUnix)
	return nil
}

/*
NotifyRewardAmount starts (or tops up) a reward period of RewardsDuration
seconds distributing reward tokens. When the previous period has not
finished yet its leftover is rolled into the new rate.
*/
func (p *StakePool) NotifyRewardAmount(reward uint64, nowUnix uint64) error {
	if err := p.UpdateReward(nowUnix); err != nil {
		return err
	}

	precisionFactor, err := PrecisionFactor(p.PrecisionFactorRank)
	if err != nil {
		return err
	}

	total := new(uint256.Int).Mul(uint256.NewInt(reward), uint256.NewInt(precisionFactor))
	if nowUnix < p.PeriodFinish {
		leftover := new(uint256.Int).Mul(uint256.NewInt(p.PeriodFinish-nowUnix), p.rewardRate())
		total.Add(total, leftover)
	}
	rate := total.Div(total, uint256.NewInt(RewardsDuration))
	if rate.BitLen() > 128 {
		return ErrRewardOverflow
	}

	if nowUnix > math.MaxUint64-RewardsDuration {
		return ErrRewardOverflow
	}
	p.RewardRate = rate
	p.LastUpdateTime = nowUnix
	p.PeriodFinish = nowUnix + RewardsDuration
	return nil
}

// nil tolerant accessors, a freshly constructed pool may leave the
// uint256 fields unset.

func (p *StakePool) accruedTokenPerShare() *uint256.Int {
	if p.AccruedTokenPerShare == nil {
		p.AccruedTokenPerShare = &uint256.Int{}
	}
	return p.AccruedTokenPerShare
}

func (p *StakePool) rewardRate() *uint256.Int {
	if p.RewardRate == nil {
		p.RewardRate = &uint256.Int{}
	}
	return p.RewardRate
}

func (p *StakePool) rewardPerTokenStored() *uint256.Int {
	if p.RewardPerTokenStored == nil {
		p.RewardPerTokenStored = &uint256.Int{}
	}
	return p.RewardPerTokenStored
}
