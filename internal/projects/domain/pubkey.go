package domain

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// PubkeySize is the width of every identity and record identifier.
const PubkeySize = 32

// Pubkey is a fixed-width identity: a wallet public key, a funds-pool account or a
// derived project identifier. Its text form is base58.
type Pubkey [PubkeySize]byte

// ParsePubkey decodes a base58 identity.
func ParsePubkey(s string) (Pubkey, error) {
	var pk Pubkey
	raw, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("decode pubkey %q: %w", s, err)
	}
	if len(raw) != PubkeySize {
		return pk, fmt.Errorf("decode pubkey %q: got %d bytes, want %d", s, len(raw), PubkeySize)
	}
	copy(pk[:], raw)
	return pk, nil
}

// MustPubkey is ParsePubkey for constants and tests.
func MustPubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// IsZero reports whether pk is the all-zero identity.
func (pk Pubkey) IsZero() bool {
	return pk == Pubkey{}
}

func (pk Pubkey) String() string {
	return base58.Encode(pk[:])
}

func (pk Pubkey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

func (pk *Pubkey) UnmarshalText(text []byte) error {
	parsed, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}
