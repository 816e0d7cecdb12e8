package staking

import "errors"

var (
	ErrInvalidMasterStaking = errors.New("invalid master staking account data")
	ErrInvalidStakePool     = errors.New("invalid stake pool account data")
	ErrInvalidUserInfo      = errors.New("invalid user info account data")
	ErrInvalidOptionTag     = errors.New("invalid optional field tag")

	ErrPoolCounterOverflow     = errors.New("pool counter overflow")
	ErrRewardOverflow          = errors.New("reward calculation overflow")
	ErrAccruedPerShareOverflow = errors.New("accrued token per share overflow")
	ErrTotalSupplyOverflow     = errors.New("total supply overflow")
	ErrTotalSupplyUnderflow    = errors.New("total supply underflow")
	ErrRewardDebtExceeded      = errors.New("reward debt exceeds accrued reward")
	ErrRewardLockOverflow      = errors.New("reward lock time overflow")
	ErrTimeWentBackwards       = errors.New("last update time is in the future")
	ErrPrecisionFactorRank     = errors.New("precision factor rank out of range")
	ErrU128Range               = errors.New("value does not fit into 128 bits")
)
