package wallet

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/tyler-smith/go-bip39"
)

const mnemonicEntropyBitSize = 128

type (
	// Keys holds the wallet mnemonic and the first derived account key.
	Keys struct {
		Mnemonic   string
		AccountKey *AccountKey
	}

	// AccountKey is a single derived ed25519 key pair.
	AccountKey struct {
		PubKey  solana.PublicKey  `json:"pubKey"`
		PrivKey solana.PrivateKey `json:"privKey"`
		Index   uint64            `json:"index"`
	}
)

// NewKeys generates wallet keys from the given mnemonic seed, or generates
// a mnemonic first if an empty string is provided.
func NewKeys(mnemonic string) (*Keys, error) {
	if mnemonic == "" {
		var err error
		if mnemonic, err = generateMnemonic(); err != nil {
			return nil, err
		}
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic")
	}
	ac, err := DeriveAccountKey(mnemonic, 0)
	if err != nil {
		return nil, err
	}
	return &Keys{Mnemonic: mnemonic, AccountKey: ac}, nil
}

/*
DeriveAccountKey derives the ed25519 key of the given account index from
the mnemonic. Derivation is deterministic, the same mnemonic and index
always yield the same key.
*/
func DeriveAccountKey(mnemonic string, index uint64) (*AccountKey, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("deriving seed from mnemonic: %w", err)
	}

	// ed25519 keys take a 32 byte seed, mix the account index in so every
	// index yields an independent key
	h := sha256.New()
	h.Write(seed[:32])
	idx := make([]byte, 8)
	binary.LittleEndian.PutUint64(idx, index)
	h.Write(idx)

	priv := solana.PrivateKey(ed25519.NewKeyFromSeed(h.Sum(nil)))
	return &AccountKey{
		PubKey:  priv.PublicKey(),
		PrivKey: priv,
		Index:   index,
	}, nil
}

func generateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBitSize)
	if err != nil {
		return "", fmt.Errorf("generating entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generating mnemonic: %w", err)
	}
	return mnemonic, nil
}
