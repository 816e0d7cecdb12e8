package logger

import (
	"log/slog"

	"github.com/gagliardetto/solana-go"
)

/*
Log attribute key values. Generally shouldn't be used directly, use
appropriate "attribute constructor function" instead.

Only define names here if they are common for multiple packages,
package specific names should be defined in the package.
*/
const (
	ModuleKey    = "module"
	ErrorKey     = "err"
	AddressKey   = "addr"
	SignatureKey = "sig"
	PoolKey      = "pool"
	SlotKey      = "slot"
)

// Error adds error attribute under the "err" key.
func Error(err error) slog.Attr {
	return slog.Any(ErrorKey, err)
}

// Address adds base58 encoded account address field.
func Address(pk solana.PublicKey) slog.Attr {
	return slog.String(AddressKey, pk.String())
}

// Signature adds base58 encoded transaction signature field.
func Signature(sig solana.Signature) slog.Attr {
	return slog.String(SignatureKey, sig.String())
}

// Pool adds staking pool index field.
func Pool(index uint64) slog.Attr {
	return slog.Uint64(PoolKey, index)
}

// Slot adds chain slot number field.
func Slot(slot uint64) slog.Attr {
	return slog.Uint64(SlotKey, slot)
}

/*
Module adds module name field, meant to be used with logger.With to
create "sub logger" for a module, ie

	log := logger.With(logger.Module("localnet"))
*/
func Module(name string) slog.Attr {
	return slog.String(ModuleKey, name)
}
