package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/walker1992/stake-reward/logger"
	"github.com/walker1992/stake-reward/staking"
)

const (
	defaultConfirmTimeout = time.Minute
	defaultConfirmPoll    = 500 * time.Millisecond
)

var ErrAccountNotFound = errors.New("account does not exist")

type (
	// Config is the explicit client configuration. The endpoint and the
	// commitment level are always carried here, never in process global
	// state.
	Config struct {
		Endpoint   string
		Commitment rpc.CommitmentType

		// ConfirmTimeout bounds waiting for a sent transaction to reach
		// the configured commitment level.
		ConfirmTimeout time.Duration
		ConfirmPoll    time.Duration

		Logger *slog.Logger
	}

	// Client issues staking program RPC calls against a single endpoint.
	Client struct {
		rpc *rpc.Client
		cfg Config
		log *slog.Logger
	}
)

func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint must be assigned")
	}
	if !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://") {
		cfg.Endpoint = "http://" + cfg.Endpoint
	}
	if cfg.Commitment == "" {
		cfg.Commitment = rpc.CommitmentConfirmed
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultConfirmTimeout
	}
	if cfg.ConfirmPoll <= 0 {
		cfg.ConfirmPoll = defaultConfirmPoll
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		rpc: rpc.New(cfg.Endpoint),
		cfg: cfg,
		log: log.With(logger.Module("client")),
	}, nil
}

// Endpoint returns the RPC endpoint the client is bound to.
func (c *Client) Endpoint() string { return c.cfg.Endpoint }

// Commitment returns the commitment level the client reads and confirms at.
func (c *Client) Commitment() rpc.CommitmentType { return c.cfg.Commitment }

// Health returns nil when the node behind the endpoint reports itself
// healthy.
func (c *Client) Health(ctx context.Context) error {
	out, err := c.rpc.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	if out != rpc.HealthOk {
		return fmt.Errorf("node is not healthy: %s", out)
	}
	return nil
}

// CurrentSlot returns the latest slot at the configured commitment level.
func (c *Client) CurrentSlot(ctx context.Context) (uint64, error) {
	slot, err := c.rpc.GetSlot(ctx, c.cfg.Commitment)
	if err != nil {
		return 0, fmt.Errorf("slot request: %w", err)
	}
	return slot, nil
}

// MasterStaking fetches and decodes the master staking account.
func (c *Client) MasterStaking(ctx context.Context) (*staking.MasterStaking, error) {
	addr, _, err := staking.MasterAddress()
	if err != nil {
		return nil, err
	}
	data, err := c.accountData(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("master staking account: %w", err)
	}
	return staking.UnpackMasterStaking(data)
}

// StakePool fetches and decodes the state account of pool poolIndex.
func (c *Client) StakePool(ctx context.Context, poolIndex uint64) (*staking.StakePool, error) {
	addr, _, err := staking.PoolAddress(poolIndex)
	if err != nil {
		return nil, err
	}
	data, err := c.accountData(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("pool %d state account: %w", poolIndex, err)
	}
	return staking.UnpackStakePool(data)
}

// UserInfo fetches and decodes the staking record of the user's token
// account in pool poolIndex.
func (c *Client) UserInfo(ctx context.Context, poolIndex uint64, userTokenAccount solana.PublicKey) (*staking.UserInfo, error) {
	pool, _, err := staking.PoolAddress(poolIndex)
	if err != nil {
		return nil, err
	}
	addr, _, err := staking.UserInfoAddress(pool, userTokenAccount)
	if err != nil {
		return nil, err
	}
	data, err := c.accountData(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("user info account: %w", err)
	}
	return staking.UnpackUserInfo(data)
}

// StakedSupply returns the balance of the token account holding the staked
// tokens of pool poolIndex.
func (c *Client) StakedSupply(ctx context.Context, poolIndex uint64) (uint64, error) {
	addr, _, err := staking.StakedAccountAddress(poolIndex)
	if err != nil {
		return 0, err
	}
	res, err := c.rpc.GetTokenAccountBalance(ctx, addr, c.cfg.Commitment)
	if err != nil {
		return 0, fmt.Errorf("staked account balance request: %w", err)
	}
	supply, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing staked account balance %q: %w", res.Value.Amount, err)
	}
	return supply, nil
}

/*
PendingReward returns the reward amount the user could claim right now,
combining the fetched pool state with the reward accrual of the blocks the
pool has not been updated for yet. The accrual is projected with the staked
token account balance, the same supply the program itself accrues against.
*/
func (c *Client) PendingReward(ctx context.Context, poolIndex uint64, userTokenAccount solana.PublicKey) (uint64, error) {
	pool, err := c.StakePool(ctx, poolIndex)
	if err != nil {
		return 0, err
	}
	user, err := c.UserInfo(ctx, poolIndex, userTokenAccount)
	if err != nil {
		return 0, err
	}
	supply, err := c.StakedSupply(ctx, poolIndex)
	if err != nil {
		return 0, err
	}
	slot, err := c.CurrentSlot(ctx)
	if err != nil {
		return 0, err
	}
	if err := pool.UpdatePool(supply, slot); err != nil {
		return 0, fmt.Errorf("projecting pool accrual to slot %d: %w", slot, err)
	}
	return pool.PendingReward(user)
}

// Airdrop requests lamports to be airdropped to addr, local and test
// networks only.
func (c *Client) Airdrop(ctx context.Context, addr solana.PublicKey, lamports uint64) (solana.Signature, error) {
	sig, err := c.rpc.RequestAirdrop(ctx, addr, lamports, c.cfg.Commitment)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("airdrop request: %w", err)
	}
	c.log.InfoContext(ctx, "airdrop requested", logger.Address(addr), logger.Signature(sig))
	return sig, c.confirm(ctx, sig)
}

/*
SendInstructions builds a transaction from the instructions, signs it with
signer (which is also the fee payer), submits it and blocks until the
transaction reaches the configured commitment level or ConfirmTimeout
passes.
*/
func (c *Client) SendInstructions(ctx context.Context, signer solana.PrivateKey, instructions ...solana.Instruction) (solana.Signature, error) {
	if len(instructions) == 0 {
		return solana.Signature{}, errors.New("no instructions to send")
	}

	recent, err := c.rpc.GetLatestBlockhash(ctx, c.cfg.Commitment)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("latest blockhash request: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, solana.TransactionPayer(signer.PublicKey()))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("building transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(signer.PublicKey()) {
			return &signer
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("signing transaction: %w", err)
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.cfg.Commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sending transaction: %w", err)
	}
	c.log.DebugContext(ctx, "transaction sent", logger.Signature(sig))

	return sig, c.confirm(ctx, sig)
}

// confirm polls the signature status until the configured commitment level
// is reached.
func (c *Client) confirm(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.cfg.ConfirmPoll)
	defer ticker.Stop()

	for {
		out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			// the deadline may expire while the status request is in
			// flight, report that as not-confirmed rather than a
			// request failure
			if ctx.Err() != nil {
				return fmt.Errorf("transaction %s was not confirmed within %s: %w", sig, c.cfg.ConfirmTimeout, ctx.Err())
			}
			return fmt.Errorf("signature status request: %w", err)
		}
		if len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed: %v", sig, status.Err)
			}
			if commitmentReached(status.ConfirmationStatus, c.cfg.Commitment) {
				c.log.DebugContext(ctx, "transaction confirmed", logger.Signature(sig))
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("transaction %s was not confirmed within %s: %w", sig, c.cfg.ConfirmTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func commitmentReached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := func(s string) int {
		switch s {
		case string(rpc.CommitmentProcessed):
			return 1
		case string(rpc.CommitmentConfirmed):
			return 2
		case string(rpc.CommitmentFinalized):
			return 3
		}
		return 0
	}
	return rank(string(status)) >= rank(string(want))
}

func (c *Client) accountData(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	res, err := c.rpc.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{Commitment: c.cfg.Commitment})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
		}
		return nil, fmt.Errorf("account info request: %w", err)
	}
	if res.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	data := res.Value.Data.GetBinary()
	if len(data) == 0 {
		return nil, fmt.Errorf("account %s has no data", addr)
	}
	return data, nil
}
