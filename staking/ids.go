package staking

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is the address the staking program is deployed at. The local
// network bootstrap loads the program artifact at this same address, the
// two must never diverge.
var ProgramID = solana.MustPublicKeyFromBase58("EyJ4ZNzAK8HJJrRbTTE6x769RA2h95zj826194DxyEbw")

// PDA seeds of the program owned accounts.
const (
	SeedTokenAccountAuthority = "TOKEN_ACCOUNT_AUTHORITY_test_8"
	SeedMasterStaking         = "MASTER_STAKING_test_8"
	SeedStatePool             = "STATE_POOL"
	SeedWalletPool            = "WALLET_POOL"
	SeedStaked                = "STAKED"
)

// MasterAddress derives the PDA of the singleton master staking account.
func MasterAddress() (solana.PublicKey, uint8, error) {
	return findAddress([][]byte{[]byte(SeedMasterStaking)})
}

// TokenAuthorityAddress derives the PDA which owns the program token accounts.
func TokenAuthorityAddress() (solana.PublicKey, uint8, error) {
	return findAddress([][]byte{[]byte(SeedTokenAccountAuthority)})
}

// PoolAddress derives the PDA of the state account of pool poolIndex.
func PoolAddress(poolIndex uint64) (solana.PublicKey, uint8, error) {
	return findAddress([][]byte{[]byte(SeedStatePool), uint64Bytes(poolIndex)})
}

// PoolWalletAddress derives the PDA holding SOL for creating user info
// accounts of pool poolIndex.
func PoolWalletAddress(poolIndex uint64) (solana.PublicKey, uint8, error) {
	return findAddress([][]byte{[]byte(SeedWalletPool), uint64Bytes(poolIndex)})
}

// StakedAccountAddress derives the PDA of the token account holding the
// staked tokens of pool poolIndex. Reward tokens are kept in a separate
// account.
func StakedAccountAddress(poolIndex uint64) (solana.PublicKey, uint8, error) {
	return findAddress([][]byte{[]byte(SeedStaked), uint64Bytes(poolIndex)})
}

// UserInfoAddress derives the PDA of the per user staking record, keyed by
// the pool state account and the user's staking token account.
func UserInfoAddress(pool, userTokenAccount solana.PublicKey) (solana.PublicKey, uint8, error) {
	return findAddress([][]byte{pool.Bytes(), userTokenAccount.Bytes()})
}

func findAddress(seeds [][]byte) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, ProgramID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("deriving program address: %w", err)
	}
	return addr, bump, nil
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
