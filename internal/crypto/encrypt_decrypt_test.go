package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDataCanBeEncryptedAndDecrypted(t *testing.T) {
	data := []byte("my-secret-message")
	passphrase := "foo"

	ciphertext, err := Encrypt(passphrase, data)
	require.NoError(t, err)

	plaintext, err := Decrypt(passphrase, ciphertext)
	require.NoError(t, err)
	require.EqualValues(t, data, plaintext)
}

func TestDecryptWithWrongPassphraseFails(t *testing.T) {
	ciphertext, err := Encrypt("foo", []byte("data"))
	require.NoError(t, err)

	_, err = Decrypt("bar", ciphertext)
	require.ErrorContains(t, err, "incorrect passphrase")
}

func TestEncryptEmptyPassphraseFails(t *testing.T) {
	_, err := Encrypt("", []byte("data"))
	require.ErrorContains(t, err, "passphrase cannot be empty")
}

func TestDecryptMalformedDataFails(t *testing.T) {
	_, err := Decrypt("foo", "not-valid")
	require.ErrorContains(t, err, "invalid encrypted data format")
}
