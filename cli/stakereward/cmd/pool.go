package cmd

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/walker1992/stake-reward/staking"
)

const (
	flagNamePool        = "pool"
	flagNameMint        = "mint"
	flagNameStartBlock  = "start-block"
	flagNameEndBlock    = "end-block"
	flagNameReward      = "reward"
	flagNameRewardRate  = "reward-per-block"
	flagNamePrecision   = "precision-rank"
	flagNameMultiplier  = "multiplier"
	flagNameBonusStart  = "bonus-start"
	flagNameBonusEnd    = "bonus-end"
	flagNameTokenAcct   = "token-account"
	flagNameRewardAcct  = "reward-account"
	flagNameAmountToken = "amount"
)

// newPoolCmd creates the command group managing the staking pools.
func newPoolCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "manage staking pools",
	}
	cmd.AddCommand(poolInitMasterCmd(baseConfig))
	cmd.AddCommand(poolCreateCmd(baseConfig))
	cmd.AddCommand(poolShowCmd(baseConfig))
	cmd.AddCommand(poolFundCmd(baseConfig))
	cmd.AddCommand(poolSetBonusCmd(baseConfig))
	return cmd
}

func poolInitMasterCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-master",
		Short: "initialize the master staking account",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromFlags(cmd, baseConfig)
			if err != nil {
				return err
			}
			key, err := accountKeyFromFlags(cmd, baseConfig)
			if err != nil {
				return err
			}
			sig, err := c.InitMaster(cmd.Context(), key.PrivKey)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "master staking initialized, tx %s\n", sig)
			return nil
		},
	}
	addClientFlags(cmd)
	addWalletFlags(cmd)
	return cmd
}

func poolCreateCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "create a new staking pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execPoolCreateCmd(cmd, baseConfig)
		},
	}
	addClientFlags(cmd)
	addWalletFlags(cmd)
	cmd.Flags().String(flagNameMint, "", "mint address of the staked token")
	cmd.Flags().Uint64(flagNameStartBlock, 0, "slot at which reward accrual starts")
	cmd.Flags().Uint64(flagNameEndBlock, 0, "slot at which reward accrual ends")
	cmd.Flags().Uint64(flagNameReward, 0, "total reward amount of the pool")
	cmd.Flags().Uint64(flagNameRewardRate, 0, "reward amount accrued per slot")
	cmd.Flags().Uint8(flagNamePrecision, 12, "decimal rank of the reward precision factor")
	_ = cmd.MarkFlagRequired(flagNameMint)
	_ = cmd.MarkFlagRequired(flagNameStartBlock)
	_ = cmd.MarkFlagRequired(flagNameEndBlock)
	_ = cmd.MarkFlagRequired(flagNameRewardRate)
	return cmd
}

func execPoolCreateCmd(cmd *cobra.Command, baseConfig *baseConfiguration) error {
	c, err := clientFromFlags(cmd, baseConfig)
	if err != nil {
		return err
	}
	key, err := accountKeyFromFlags(cmd, baseConfig)
	if err != nil {
		return err
	}
	mint, err := publicKeyFlag(cmd, flagNameMint)
	if err != nil {
		return err
	}

	params := staking.CreatePoolParams{}
	if params.StartBlock, err = cmd.Flags().GetUint64(flagNameStartBlock); err != nil {
		return err
	}
	if params.EndBlock, err = cmd.Flags().GetUint64(flagNameEndBlock); err != nil {
		return err
	}
	if params.RewardAmount, err = cmd.Flags().GetUint64(flagNameReward); err != nil {
		return err
	}
	if params.RewardPerBlock, err = cmd.Flags().GetUint64(flagNameRewardRate); err != nil {
		return err
	}
	if params.PrecisionFactorRank, err = cmd.Flags().GetUint8(flagNamePrecision); err != nil {
		return err
	}

	index, sig, err := c.CreatePool(cmd.Context(), key.PrivKey, mint, params)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pool #%d created, tx %s\n", index, sig)
	return nil
}

func poolShowCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "print the state of a staking pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromFlags(cmd, baseConfig)
			if err != nil {
				return err
			}
			poolIndex, err := cmd.Flags().GetUint64(flagNamePool)
			if err != nil {
				return err
			}
			pool, err := c.StakePool(cmd.Context(), poolIndex)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pool:             #%d\n", pool.PoolIndex)
			fmt.Fprintf(out, "owner:            %s\n", pool.Owner)
			fmt.Fprintf(out, "mint:             %s\n", pool.Mint)
			fmt.Fprintf(out, "start block:      %d\n", pool.StartBlock)
			fmt.Fprintf(out, "end block:        %d\n", pool.EndBlock)
			fmt.Fprintf(out, "reward per block: %d\n", pool.RewardPerBlock)
			fmt.Fprintf(out, "total staked:     %d\n", pool.TotalSupply)
			return nil
		},
	}
	addClientFlags(cmd)
	cmd.Flags().Uint64(flagNamePool, 0, "pool index")
	return cmd
}

func poolFundCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "transfer reward tokens into the pool wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromFlags(cmd, baseConfig)
			if err != nil {
				return err
			}
			key, err := accountKeyFromFlags(cmd, baseConfig)
			if err != nil {
				return err
			}
			funderAcct, err := publicKeyFlag(cmd, flagNameTokenAcct)
			if err != nil {
				return err
			}
			poolIndex, err := cmd.Flags().GetUint64(flagNamePool)
			if err != nil {
				return err
			}
			amount, err := cmd.Flags().GetUint64(flagNameAmountToken)
			if err != nil {
				return err
			}
			sig, err := c.FundReward(cmd.Context(), key.PrivKey, funderAcct, poolIndex, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pool #%d funded with %d, tx %s\n", poolIndex, amount, sig)
			return nil
		},
	}
	addClientFlags(cmd)
	addWalletFlags(cmd)
	cmd.Flags().Uint64(flagNamePool, 0, "pool index")
	cmd.Flags().String(flagNameTokenAcct, "", "token account the reward is transferred from")
	cmd.Flags().Uint64(flagNameAmountToken, 0, "reward amount to transfer")
	_ = cmd.MarkFlagRequired(flagNameTokenAcct)
	_ = cmd.MarkFlagRequired(flagNameAmountToken)
	return cmd
}

func poolSetBonusCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-bonus",
		Short: "set the bonus multiplier window of a pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromFlags(cmd, baseConfig)
			if err != nil {
				return err
			}
			key, err := accountKeyFromFlags(cmd, baseConfig)
			if err != nil {
				return err
			}
			poolIndex, err := cmd.Flags().GetUint64(flagNamePool)
			if err != nil {
				return err
			}
			multiplier, err := cmd.Flags().GetUint8(flagNameMultiplier)
			if err != nil {
				return err
			}
			startBlock, err := cmd.Flags().GetUint64(flagNameBonusStart)
			if err != nil {
				return err
			}
			endBlock, err := cmd.Flags().GetUint64(flagNameBonusEnd)
			if err != nil {
				return err
			}
			sig, err := c.SetBonus(cmd.Context(), key.PrivKey, poolIndex, multiplier, startBlock, endBlock)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pool #%d bonus set, tx %s\n", poolIndex, sig)
			return nil
		},
	}
	addClientFlags(cmd)
	addWalletFlags(cmd)
	cmd.Flags().Uint64(flagNamePool, 0, "pool index")
	cmd.Flags().Uint8(flagNameMultiplier, 1, "bonus reward multiplier")
	cmd.Flags().Uint64(flagNameBonusStart, 0, "slot at which the bonus window starts")
	cmd.Flags().Uint64(flagNameBonusEnd, 0, "slot at which the bonus window ends")
	_ = cmd.MarkFlagRequired(flagNameMultiplier)
	return cmd
}

func publicKeyFlag(cmd *cobra.Command, name string) (solana.PublicKey, error) {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		return solana.PublicKey{}, err
	}
	pk, err := solana.PublicKeyFromBase58(val)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid --%s value %q: %w", name, val, err)
	}
	return pk, nil
}
