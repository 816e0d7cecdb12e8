package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/walker1992/stake-reward/logger"
	"github.com/walker1992/stake-reward/staking"
)

/*
InitMaster creates the master staking account. Returns an error if the
master account already exists.
*/
func (c *Client) InitMaster(ctx context.Context, signer solana.PrivateKey) (solana.Signature, error) {
	if _, err := c.MasterStaking(ctx); err == nil {
		return solana.Signature{}, errors.New("master staking account already exists")
	} else if !errors.Is(err, ErrAccountNotFound) {
		return solana.Signature{}, err
	}

	ins, err := staking.NewCreateMasterInstruction(signer.PublicKey())
	if err != nil {
		return solana.Signature{}, err
	}
	return c.SendInstructions(ctx, signer, ins)
}

/*
CreatePool creates the next staking pool for mint, owned by the signer.
The assigned pool index is read from the master staking account.
*/
func (c *Client) CreatePool(ctx context.Context, signer solana.PrivateKey, mint solana.PublicKey, params staking.CreatePoolParams) (uint64, solana.Signature, error) {
	master, err := c.MasterStaking(ctx)
	if err != nil {
		return 0, solana.Signature{}, fmt.Errorf("reading pool counter: %w", err)
	}
	poolIndex := master.PoolCounter

	ins, err := staking.NewCreatePoolInstruction(signer.PublicKey(), mint, poolIndex, params)
	if err != nil {
		return 0, solana.Signature{}, err
	}
	sig, err := c.SendInstructions(ctx, signer, ins)
	if err != nil {
		return 0, solana.Signature{}, err
	}
	c.log.InfoContext(ctx, "staking pool created", logger.Pool(poolIndex), logger.Address(mint))
	return poolIndex, sig, nil
}

// Stake deposits amount tokens from the signer's token account into the pool.
func (c *Client) Stake(ctx context.Context, signer solana.PrivateKey, userTokenAccount solana.PublicKey, poolIndex, amount uint64) (solana.Signature, error) {
	ins, err := staking.NewDepositInstruction(signer.PublicKey(), userTokenAccount, poolIndex, amount)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.SendInstructions(ctx, signer, ins)
}

// Unstake withdraws amount tokens from the pool back to the signer's token
// account.
func (c *Client) Unstake(ctx context.Context, signer solana.PrivateKey, userTokenAccount solana.PublicKey, poolIndex, amount uint64) (solana.Signature, error) {
	ins, err := staking.NewWithdrawInstruction(signer.PublicKey(), userTokenAccount, poolIndex, amount)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.SendInstructions(ctx, signer, ins)
}

/*
ClaimReward transfers the signer's accrued rewards of the pool to
rewardTokenAccount. The on-chain program starts the reward lock period,
a second claim before the lock expires fails.
*/
func (c *Client) ClaimReward(ctx context.Context, signer solana.PrivateKey, userTokenAccount, rewardTokenAccount solana.PublicKey, poolIndex uint64) (solana.Signature, error) {
	ins, err := staking.NewClaimRewardInstruction(signer.PublicKey(), userTokenAccount, rewardTokenAccount, poolIndex)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.SendInstructions(ctx, signer, ins)
}

// FundReward transfers amount reward tokens into the pool and starts a new
// reward period.
func (c *Client) FundReward(ctx context.Context, signer solana.PrivateKey, funderTokenAccount solana.PublicKey, poolIndex, amount uint64) (solana.Signature, error) {
	ins, err := staking.NewFundRewardInstruction(signer.PublicKey(), funderTokenAccount, poolIndex, amount)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.SendInstructions(ctx, signer, ins)
}

// SetBonus configures the bonus multiplier window of the pool, pool owner
// only.
func (c *Client) SetBonus(ctx context.Context, signer solana.PrivateKey, poolIndex uint64, multiplier uint8, startBlock, endBlock uint64) (solana.Signature, error) {
	ins, err := staking.NewSetBonusInstruction(signer.PublicKey(), poolIndex, multiplier, startBlock, endBlock)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.SendInstructions(ctx, signer, ins)
}
