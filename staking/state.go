package staking

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// Account data lengths, bytes.
const (
	MasterStakingLen = 8
	UserInfoLen      = 48
	// StakePoolLen is the length of the packed pool state. The on-chain
	// account is allocated larger (StakePoolAccountLen), the tail is unused.
	StakePoolLen        = 215
	StakePoolAccountLen = 321
)

// Reward timing constants, seconds.
const (
	RewardsDuration     uint64 = 7 * 24 * 60 * 60
	RewardsLockDuration uint64 = 24 * 60 * 60
)

type (
	// MasterStaking is the singleton account counting created pools.
	MasterStaking struct {
		PoolCounter uint64
	}

	// StakePool is the state account of a single staking pool. Reward
	// accrual uses 128 bit fixed point intermediates, fields of that width
	// are held as uint256.Int and checked against the 128 bit bound when
	// packed.
	StakePool struct {
		PoolIndex            uint64
		Owner                solana.PublicKey
		Mint                 solana.PublicKey
		IsInitialized        bool
		PrecisionFactorRank  uint8
		BonusMultiplier      OptionU8
		BonusStartBlock      OptionU64
		BonusEndBlock        OptionU64
		LastRewardBlock      uint64
		StartBlock           uint64
		EndBlock             uint64
		RewardAmount         uint64
		RewardPerBlock       uint64
		AccruedTokenPerShare *uint256.Int

		// duration based accrual state
		PeriodFinish         uint64
		RewardRate           *uint256.Int
		LastUpdateTime       uint64
		RewardPerTokenStored *uint256.Int
		TotalSupply          uint64
	}

	// UserInfo is the per user staking record of a pool.
	UserInfo struct {
		TokenAccountID   solana.PublicKey
		Amount           uint64
		RewardDebt       uint64
		RewardLockFinish uint64
	}

	// OptionU8 mirrors the on-chain COption<u8> field encoding.
	OptionU8 struct {
		Set   bool
		Value uint8
	}

	// OptionU64 mirrors the on-chain COption<u64> field encoding.
	OptionU64 struct {
		Set   bool
		Value uint64
	}
)

func UnpackMasterStaking(data []byte) (*MasterStaking, error) {
	if len(data) < MasterStakingLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidMasterStaking, len(data))
	}
	return &MasterStaking{PoolCounter: binary.LittleEndian.Uint64(data)}, nil
}

func (m *MasterStaking) Pack() []byte {
	buf := make([]byte, MasterStakingLen)
	binary.LittleEndian.PutUint64(buf, m.PoolCounter)
	return buf
}

// IncreaseCounter assigns the next pool index.
func (m *MasterStaking) IncreaseCounter() error {
	if m.PoolCounter == math.MaxUint64 {
		return ErrPoolCounterOverflow
	}
	m.PoolCounter++
	return nil
}

func UnpackUserInfo(data []byte) (*UserInfo, error) {
	if len(data) < UserInfoLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidUserInfo, len(data))
	}
	u := &UserInfo{}
	copy(u.TokenAccountID[:], data[0:32])
	u.Amount = binary.LittleEndian.Uint64(data[32:40])
	u.RewardDebt = binary.LittleEndian.Uint64(data[40:48])
	// accounts created before reward locking were 48 bytes, without the lock field
	if len(data) >= UserInfoLen+8 {
		u.RewardLockFinish = binary.LittleEndian.Uint64(data[48:56])
	}
	return u, nil
}

func (u *UserInfo) Pack() []byte {
	buf := make([]byte, UserInfoLen+8)
	copy(buf[0:32], u.TokenAccountID[:])
	binary.LittleEndian.PutUint64(buf[32:40], u.Amount)
	binary.LittleEndian.PutUint64(buf[40:48], u.RewardDebt)
	binary.LittleEndian.PutUint64(buf[48:56], u.RewardLockFinish)
	return buf
}

// LockRewards starts the reward lock period from nowUnix.
func (u *UserInfo) LockRewards(nowUnix uint64) error {
	if nowUnix > math.MaxUint64-RewardsLockDuration {
		return ErrRewardLockOverflow
	}
	u.RewardLockFinish = nowUnix + RewardsLockDuration
	return nil
}

// RewardsLocked reports whether claimed rewards are still locked at nowUnix.
func (u *UserInfo) RewardsLocked(nowUnix uint64) bool {
	return nowUnix < u.RewardLockFinish
}

// StakePool packed layout offsets.
const (
	offPoolIndex       = 0
	offOwner           = 8
	offMint            = 40
	offIsInitialized   = 72
	offPrecisionRank   = 73
	offBonusMultiplier = 74  // COption<u8>, 5 bytes
	offBonusStart      = 79  // COption<u64>, 12 bytes
	offBonusEnd        = 91  // COption<u64>, 12 bytes
	offLastRewardBlock = 103
	offStartBlock      = 111
	offEndBlock        = 119
	offRewardAmount    = 127
	offRewardPerBlock  = 135
	offAccruedPerShare = 143 // u128
	offPeriodFinish    = 159
	offRewardRate      = 167 // u128
	offLastUpdateTime  = 183
	offRewardPerToken  = 191 // u128
	offTotalSupply     = 207
)

func UnpackStakePool(data []byte) (*StakePool, error) {
	if len(data) < StakePoolLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidStakePool, len(data))
	}
	p := &StakePool{
		PoolIndex:            binary.LittleEndian.Uint64(data[offPoolIndex:]),
		IsInitialized:        data[offIsInitialized] != 0,
		PrecisionFactorRank:  data[offPrecisionRank],
		LastRewardBlock:      binary.LittleEndian.Uint64(data[offLastRewardBlock:]),
		StartBlock:           binary.LittleEndian.Uint64(data[offStartBlock:]),
		EndBlock:             binary.LittleEndian.Uint64(data[offEndBlock:]),
		RewardAmount:         binary.LittleEndian.Uint64(data[offRewardAmount:]),
		RewardPerBlock:       binary.LittleEndian.Uint64(data[offRewardPerBlock:]),
		PeriodFinish:         binary.LittleEndian.Uint64(data[offPeriodFinish:]),
		LastUpdateTime:       binary.LittleEndian.Uint64(data[offLastUpdateTime:]),
		TotalSupply:          binary.LittleEndian.Uint64(data[offTotalSupply:]),
		AccruedTokenPerShare: uint128FromLE(data[offAccruedPerShare:]),
		RewardRate:           uint128FromLE(data[offRewardRate:]),
		RewardPerTokenStored: uint128FromLE(data[offRewardPerToken:]),
	}
	copy(p.Owner[:], data[offOwner:offOwner+32])
	copy(p.Mint[:], data[offMint:offMint+32])

	var err error
	if p.BonusMultiplier, err = unpackOptionU8(data[offBonusMultiplier:]); err != nil {
		return nil, fmt.Errorf("bonus multiplier: %w", err)
	}
	if p.BonusStartBlock, err = unpackOptionU64(data[offBonusStart:]); err != nil {
		return nil, fmt.Errorf("bonus start block: %w", err)
	}
	if p.BonusEndBlock, err = unpackOptionU64(data[offBonusEnd:]); err != nil {
		return nil, fmt.Errorf("bonus end block: %w", err)
	}
	return p, nil
}

func (p *StakePool) Pack() ([]byte, error) {
	buf := make([]byte, StakePoolLen)
	binary.LittleEndian.PutUint64(buf[offPoolIndex:], p.PoolIndex)
	copy(buf[offOwner:], p.Owner[:])
	copy(buf[offMint:], p.Mint[:])
	if p.IsInitialized {
		buf[offIsInitialized] = 1
	}
	buf[offPrecisionRank] = p.PrecisionFactorRank
	packOptionU8(buf[offBonusMultiplier:], p.BonusMultiplier)
	packOptionU64(buf[offBonusStart:], p.BonusStartBlock)
	packOptionU64(buf[offBonusEnd:], p.BonusEndBlock)
	binary.LittleEndian.PutUint64(buf[offLastRewardBlock:], p.LastRewardBlock)
	binary.LittleEndian.PutUint64(buf[offStartBlock:], p.StartBlock)
	binary.LittleEndian.PutUint64(buf[offEndBlock:], p.EndBlock)
	binary.LittleEndian.PutUint64(buf[offRewardAmount:], p.RewardAmount)
	binary.LittleEndian.PutUint64(buf[offRewardPerBlock:], p.RewardPerBlock)
	binary.LittleEndian.PutUint64(buf[offPeriodFinish:], p.PeriodFinish)
	binary.LittleEndian.PutUint64(buf[offLastUpdateTime:], p.LastUpdateTime)
	binary.LittleEndian.PutUint64(buf[offTotalSupply:], p.TotalSupply)

	for _, f := range []struct {
		name string
		off  int
		val  *uint256.Int
	}{
		{"accrued token per share", offAccruedPerShare, p.AccruedTokenPerShare},
		{"reward rate", offRewardRate, p.RewardRate},
		{"reward per token stored", offRewardPerToken, p.RewardPerTokenStored},
	} {
		if err := putUint128LE(buf[f.off:], f.val); err != nil {
			return nil, fmt.Errorf("packing %s: %w", f.name, err)
		}
	}
	return buf, nil
}

func unpackOptionU8(src []byte) (OptionU8, error) {
	switch tag := binary.LittleEndian.Uint32(src); tag {
	case 0:
		return OptionU8{}, nil
	case 1:
		return OptionU8{Set: true, Value: src[4]}, nil
	default:
		return OptionU8{}, fmt.Errorf("%w: %d", ErrInvalidOptionTag, tag)
	}
}

func packOptionU8(dst []byte, v OptionU8) {
	if v.Set {
		binary.LittleEndian.PutUint32(dst, 1)
		dst[4] = v.Value
	} else {
		binary.LittleEndian.PutUint32(dst, 0)
		dst[4] = 0
	}
}

func unpackOptionU64(src []byte) (OptionU64, error) {
	switch tag := binary.LittleEndian.Uint32(src); tag {
	case 0:
		return OptionU64{}, nil
	case 1:
		return OptionU64{Set: true, Value: binary.LittleEndian.Uint64(src[4:])}, nil
	default:
		return OptionU64{}, fmt.Errorf("%w: %d", ErrInvalidOptionTag, tag)
	}
}

func packOptionU64(dst []byte, v OptionU64) {
	if v.Set {
		binary.LittleEndian.PutUint32(dst, 1)
		binary.LittleEndian.PutUint64(dst[4:], v.Value)
	} else {
		binary.LittleEndian.PutUint32(dst, 0)
		binary.LittleEndian.PutUint64(dst[4:], 0)
	}
}

func uint128FromLE(src []byte) *uint256.Int {
	v := &uint256.Int{}
	v[0] = binary.LittleEndian.Uint64(src[0:8])
	v[1] = binary.LittleEndian.Uint64(src[8:16])
	return v
}

func putUint128LE(dst []byte, v *uint256.Int) error {
	if v == nil {
		v = &uint256.Int{}
	}
	if v.BitLen() > 128 {
		return ErrU128Range
	}
	binary.LittleEndian.PutUint64(dst[0:8], v[0])
	binary.LittleEndian.PutUint64(dst[8:16], v[1])
	return nil
}
