package staking

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Instruction codes, the first byte of every instruction payload.
const (
	codeCreateMaster uint8 = iota
	codeCreatePool
	codeDeposit
	codeWithdraw
	codeClaimReward
	codeFundReward
	codeSetBonus
)

type (
	// CreatePoolParams is the borsh encoded payload of the create pool
	// instruction.
	CreatePoolParams struct {
		StartBlock          uint64
		EndBlock            uint64
		RewardAmount        uint64
		RewardPerBlock      uint64
		PrecisionFactorRank uint8
	}

	createMasterPayload struct {
		Code uint8
	}

	createPoolPayload struct {
		Code   uint8
		Params CreatePoolParams
	}

	amountPayload struct {
		Code   uint8
		Amount uint64
	}

	claimRewardPayload struct {
		Code uint8
	}

	setBonusPayload struct {
		Code       uint8
		Multiplier uint8
		StartBlock uint64
		EndBlock   uint64
	}
)

/*
NewCreateMasterInstruction creates the master staking account, the
singleton pool counter. Must be executed once before any pool is created,
funder pays for the account.
*/
func NewCreateMasterInstruction(funder solana.PublicKey) (solana.Instruction, error) {
	master, _, err := MasterAddress()
	if err != nil {
		return nil, err
	}
	data, err := encodePayload(createMasterPayload{Code: codeCreateMaster})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(funder).WRITE().SIGNER(),
		solana.Meta(master).WRITE(),
		solana.Meta(solana.SystemProgramID),
	}, data), nil
}

/*
NewCreatePoolInstruction creates the next staking pool (index assigned
from the master pool counter) for the given staking token mint.
*/
func NewCreatePoolInstruction(owner, mint solana.PublicKey, poolIndex uint64, params CreatePoolParams) (solana.Instruction, error) {
	accounts, err := poolAccounts(poolIndex)
	if err != nil {
		return nil, err
	}
	master, _, err := MasterAddress()
	if err != nil {
		return nil, err
	}
	data, err := encodePayload(createPoolPayload{Code: codeCreatePool, Params: params})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(owner).WRITE().SIGNER(),
		solana.Meta(master).WRITE(),
		solana.Meta(accounts.state).WRITE(),
		solana.Meta(accounts.wallet).WRITE(),
		solana.Meta(accounts.staked).WRITE(),
		solana.Meta(accounts.tokenAuthority),
		solana.Meta(mint),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(solana.SysVarClockPubkey),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
	}, data), nil
}

// NewDepositInstruction stakes amount tokens from the user's token account
// into the pool.
func NewDepositInstruction(owner, userTokenAccount solana.PublicKey, poolIndex, amount uint64) (solana.Instruction, error) {
	return userInstruction(codeDeposit, owner, userTokenAccount, poolIndex, amount)
}

// NewWithdrawInstruction unstakes amount tokens from the pool back to the
// user's token account.
func NewWithdrawInstruction(owner, userTokenAccount solana.PublicKey, poolIndex, amount uint64) (solana.Instruction, error) {
	return userInstruction(codeWithdraw, owner, userTokenAccount, poolIndex, amount)
}

// NewClaimRewardInstruction transfers the user's accrued rewards to
// rewardTokenAccount and starts the reward lock period.
func NewClaimRewardInstruction(owner, userTokenAccount, rewardTokenAccount solana.PublicKey, poolIndex uint64) (solana.Instruction, error) {
	accounts, err := poolAccounts(poolIndex)
	if err != nil {
		return nil, err
	}
	userInfo, _, err := UserInfoAddress(accounts.state, userTokenAccount)
	if err != nil {
		return nil, err
	}
	data, err := encodePayload(claimRewardPayload{Code: codeClaimReward})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(owner).SIGNER(),
		solana.Meta(userTokenAccount),
		solana.Meta(rewardTokenAccount).WRITE(),
		solana.Meta(userInfo).WRITE(),
		solana.Meta(accounts.state).WRITE(),
		solana.Meta(accounts.staked),
		solana.Meta(accounts.tokenAuthority),
		solana.Meta(solana.SysVarClockPubkey),
		solana.Meta(solana.TokenProgramID),
	}, data), nil
}

// NewFundRewardInstruction transfers amount reward tokens from the funder's
// token account into the pool and starts a new reward period.
func NewFundRewardInstruction(funder, funderTokenAccount solana.PublicKey, poolIndex, amount uint64) (solana.Instruction, error) {
	accounts, err := poolAccounts(poolIndex)
	if err != nil {
		return nil, err
	}
	data, err := encodePayload(amountPayload{Code: codeFundReward, Amount: amount})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(funder).SIGNER(),
		solana.Meta(funderTokenAccount).WRITE(),
		solana.Meta(accounts.state).WRITE(),
		solana.Meta(accounts.staked).WRITE(),
		solana.Meta(accounts.tokenAuthority),
		solana.Meta(solana.SysVarClockPubkey),
		solana.Meta(solana.TokenProgramID),
	}, data), nil
}

// NewSetBonusInstruction sets the bonus multiplier window of the pool,
// only the pool owner may execute it.
func NewSetBonusInstruction(owner solana.PublicKey, poolIndex uint64, multiplier uint8, startBlock, endBlock uint64) (solana.Instruction, error) {
	accounts, err := poolAccounts(poolIndex)
	if err != nil {
		return nil, err
	}
	data, err := encodePayload(setBonusPayload{
		Code:       codeSetBonus,
		Multiplier: multiplier,
		StartBlock: startBlock,
		EndBlock:   endBlock,
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(owner).SIGNER(),
		solana.Meta(accounts.state).WRITE(),
		solana.Meta(solana.SysVarClockPubkey),
	}, data), nil
}

type poolAccountSet struct {
	state          solana.PublicKey
	wallet         solana.PublicKey
	staked         solana.PublicKey
	tokenAuthority solana.PublicKey
}

func poolAccounts(poolIndex uint64) (*poolAccountSet, error) {
	state, _, err := PoolAddress(poolIndex)
	if err != nil {
		return nil, err
	}
	wallet, _, err := PoolWalletAddress(poolIndex)
	if err != nil {
		return nil, err
	}
	staked, _, err := StakedAccountAddress(poolIndex)
	if err != nil {
		return nil, err
	}
	tokenAuthority, _, err := TokenAuthorityAddress()
	if err != nil {
		return nil, err
	}
	return &poolAccountSet{state: state, wallet: wallet, staked: staked, tokenAuthority: tokenAuthority}, nil
}

func userInstruction(code uint8, owner, userTokenAccount solana.PublicKey, poolIndex, amount uint64) (solana.Instruction, error) {
	accounts, err := poolAccounts(poolIndex)
	if err != nil {
		return nil, err
	}
	userInfo, _, err := UserInfoAddress(accounts.state, userTokenAccount)
	if err != nil {
		return nil, err
	}
	data, err := encodePayload(amountPayload{Code: code, Amount: amount})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(owner).SIGNER(),
		solana.Meta(userTokenAccount).WRITE(),
		solana.Meta(userInfo).WRITE(),
		solana.Meta(accounts.state).WRITE(),
		solana.Meta(accounts.wallet).WRITE(),
		solana.Meta(accounts.staked).WRITE(),
		solana.Meta(accounts.tokenAuthority),
		solana.Meta(solana.SysVarClockPubkey),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
	}, data), nil
}

func encodePayload(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("borsh encoding instruction payload: %w", err)
	}
	return buf.Bytes(), nil
}
