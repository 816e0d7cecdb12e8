package wallet

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/walker1992/stake-reward/internal/crypto"
)

const AccountFileName = "accounts.db"

var (
	keysBucket     = []byte("keys")
	accountsBucket = []byte("accounts")
	metaBucket     = []byte("meta")

	mnemonicKeyName    = []byte("mnemonic")
	isEncryptedKeyName = []byte("isEncrypted")
	passwordCheckName  = []byte("passwordCheck")

	// passwordCheckValue is a known plaintext stored encrypted so an
	// incorrect password is detected on open.
	passwordCheckValue = []byte("stake-reward-wallet")

	ErrAccountNotFound = errors.New("account does not exist")
	ErrInvalidPassword = errors.New("invalid wallet password")
)

/*
Db is a bbolt backed store of wallet account keys. When a password is
given all stored values are AES-GCM encrypted with a key derived from it.
*/
type Db struct {
	db       *bolt.DB
	password string
}

// OpenDb opens (or creates when create is true) the wallet database in dir.
func OpenDb(dir string, password string, create bool) (*Db, error) {
	dbPath := filepath.Join(dir, AccountFileName)
	if _, err := os.Stat(dbPath); err != nil {
		if !create {
			return nil, fmt.Errorf("wallet database %s not found", dbPath)
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating wallet directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening wallet database: %w", err)
	}
	d := &Db{db: db, password: password}

	if err := d.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{keysBucket, accountsBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("creating bucket %s: %w", bucket, err)
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := d.verifyPassword(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

func (d *Db) Close() error {
	return d.db.Close()
}

// SetMnemonic stores the wallet mnemonic.
func (d *Db) SetMnemonic(mnemonic string) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		val, err := d.encryptValue([]byte(mnemonic))
		if err != nil {
			return err
		}
		return tx.Bucket(keysBucket).Put(mnemonicKeyName, val)
	})
}

// GetMnemonic returns the stored wallet mnemonic.
func (d *Db) GetMnemonic() (string, error) {
	var mnemonic string
	err := d.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket(keysBucket).Get(mnemonicKeyName)
		if val == nil {
			return errors.New("mnemonic is not stored")
		}
		dec, err := d.decryptValue(val)
		if err != nil {
			return err
		}
		mnemonic = string(dec)
		return nil
	})
	return mnemonic, err
}

// AddAccount stores the key of the given account index.
func (d *Db) AddAccount(key *AccountKey) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		val, err := json.Marshal(key)
		if err != nil {
			return fmt.Errorf("serializing account key: %w", err)
		}
		if val, err = d.encryptValue(val); err != nil {
			return err
		}
		return tx.Bucket(accountsBucket).Put(uint64Key(key.Index), val)
	})
}

// GetAccountKey returns the key of the given account index.
func (d *Db) GetAccountKey(index uint64) (*AccountKey, error) {
	var key *AccountKey
	err := d.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket(accountsBucket).Get(uint64Key(index))
		if val == nil {
			return fmt.Errorf("%w: index %d", ErrAccountNotFound, index)
		}
		dec, err := d.decryptValue(val)
		if err != nil {
			return err
		}
		return json.Unmarshal(dec, &key)
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}

// GetAccountKeys returns all stored account keys ordered by account index.
func (d *Db) GetAccountKeys() ([]*AccountKey, error) {
	var keys []*AccountKey
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(accountsBucket).ForEach(func(_, v []byte) error {
			dec, err := d.decryptValue(v)
			if err != nil {
				return err
			}
			var key *AccountKey
			if err := json.Unmarshal(dec, &key); err != nil {
				return err
			}
			keys = append(keys, key)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

/*
verifyPassword checks the stored password marker. On first open the
marker is written with the current password, subsequent opens must use
the same password.
*/
func (d *Db) verifyPassword() error {
	return d.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(metaBucket)

		encrypted := meta.Get(isEncryptedKeyName)
		if encrypted == nil {
			if err := meta.Put(isEncryptedKeyName, boolBytes(d.password != "")); err != nil {
				return err
			}
			if d.password == "" {
				return nil
			}
			check, err := crypto.Encrypt(d.password, passwordCheckValue)
			if err != nil {
				return err
			}
			return meta.Put(passwordCheckName, []byte(check))
		}

		if !bytesToBool(encrypted) {
			if d.password != "" {
				return fmt.Errorf("%w: wallet is not password protected", ErrInvalidPassword)
			}
			return nil
		}
		if d.password == "" {
			return fmt.Errorf("%w: password is required", ErrInvalidPassword)
		}
		dec, err := crypto.Decrypt(d.password, string(meta.Get(passwordCheckName)))
		if err != nil || string(dec) != string(passwordCheckValue) {
			return ErrInvalidPassword
		}
		return nil
	})
}

func (d *Db) encryptValue(val []byte) ([]byte, error) {
	if d.password == "" {
		return val, nil
	}
	enc, err := crypto.Encrypt(d.password, val)
	if err != nil {
		return nil, fmt.Errorf("encrypting value: %w", err)
	}
	return []byte(enc), nil
}

func (d *Db) decryptValue(val []byte) ([]byte, error) {
	if d.password == "" {
		return val, nil
	}
	dec, err := crypto.Decrypt(d.password, string(val))
	if err != nil {
		return nil, fmt.Errorf("decrypting value: %w", err)
	}
	return dec, nil
}

func uint64Key(v uint64) []byte {
	// big endian so bbolt iterates accounts in index order
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func boolBytes(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func bytesToBool(b []byte) bool {
	return len(b) == 1 && b[0] == 1
}
