package wallet

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

type (
	// Manager manages wallet accounts.
	Manager interface {
		CreateKeys(mnemonic string) error
		AddAccount() (*AccountKey, error)
		GetAccountKey(index uint64) (*AccountKey, error)
		GetAccountKeys() ([]*AccountKey, error)
		GetPublicKey(index uint64) (solana.PublicKey, error)
		GetMnemonic() (string, error)
		Close() error
	}

	managerImpl struct {
		db *Db
	}
)

// NewManager opens the wallet in dir, creating it when create is true.
func NewManager(dir string, password string, create bool) (Manager, error) {
	db, err := OpenDb(dir, password, create)
	if err != nil {
		return nil, err
	}
	return &managerImpl{db: db}, nil
}

/*
CreateKeys initializes the wallet from the given mnemonic, generating a
new mnemonic when an empty string is given. The key of account index 0 is
derived and stored.
*/
func (m *managerImpl) CreateKeys(mnemonic string) error {
	keys, err := NewKeys(mnemonic)
	if err != nil {
		return err
	}
	if err := m.db.SetMnemonic(keys.Mnemonic); err != nil {
		return fmt.Errorf("storing mnemonic: %w", err)
	}
	if err := m.db.AddAccount(keys.AccountKey); err != nil {
		return fmt.Errorf("storing account key: %w", err)
	}
	return nil
}

// AddAccount derives and stores the key of the next account index.
func (m *managerImpl) AddAccount() (*AccountKey, error) {
	mnemonic, err := m.db.GetMnemonic()
	if err != nil {
		return nil, err
	}
	accounts, err := m.db.GetAccountKeys()
	if err != nil {
		return nil, err
	}
	key, err := DeriveAccountKey(mnemonic, uint64(len(accounts)))
	if err != nil {
		return nil, err
	}
	if err := m.db.AddAccount(key); err != nil {
		return nil, err
	}
	return key, nil
}

func (m *managerImpl) GetAccountKey(index uint64) (*AccountKey, error) {
	return m.db.GetAccountKey(index)
}

func (m *managerImpl) GetAccountKeys() ([]*AccountKey, error) {
	return m.db.GetAccountKeys()
}

func (m *managerImpl) GetPublicKey(index uint64) (solana.PublicKey, error) {
	key, err := m.db.GetAccountKey(index)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return key.PubKey, nil
}

func (m *managerImpl) GetMnemonic() (string, error) {
	return m.db.GetMnemonic()
}

func (m *managerImpl) Close() error {
	if m.db == nil {
		return errors.New("wallet database is not open")
	}
	return m.db.Close()
}
