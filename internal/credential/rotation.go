// Package credential validates credential rotations carried by profile mutations.
package credential

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"github.com/and161185/profiled/internal/errs"
	"github.com/and161185/profiled/internal/model"
)

// Decoded lengths of the credential fields.
const (
	SaltLen                = 16
	AuthKeyLen             = 32
	EncryptedPrivateKeyLen = 72
)

// Decision is the outcome of a rotation check that was not rejected.
type Decision struct {
	Rotating bool
	Bundle   model.CredentialBundle // zero unless Rotating
}

// Check inspects the credential fields of m against the caller's stored authKey.
//
// No credential fields means no rotation. All four fields are decoded and
// oldAuthKey must equal storedAuthKey; the returned bundle drops oldAuthKey.
// Any other count is rejected with errs.ErrIncompleteRotation.
func Check(m model.ProfileMutation, storedAuthKey []byte) (Decision, error) {
	switch m.CredentialFieldCount() {
	case 0:
		return Decision{}, nil
	case 4:
	default:
		return Decision{}, errs.ErrIncompleteRotation
	}

	salt, err := decode("salt", *m.Salt, SaltLen)
	if err != nil {
		return Decision{}, err
	}
	authKey, err := decode("authKey", *m.AuthKey, AuthKeyLen)
	if err != nil {
		return Decision{}, err
	}
	oldAuthKey, err := decode("oldAuthKey", *m.OldAuthKey, AuthKeyLen)
	if err != nil {
		return Decision{}, err
	}
	epk, err := decode("encryptedPrivateKey", *m.EncryptedPrivateKey, EncryptedPrivateKeyLen)
	if err != nil {
		return Decision{}, err
	}

	if !Equal(oldAuthKey, storedAuthKey) {
		return Decision{}, errs.ErrInvalidPassword
	}

	return Decision{
		Rotating: true,
		Bundle: model.CredentialBundle{
			Salt:                salt,
			AuthKey:             authKey,
			EncryptedPrivateKey: epk,
		},
	}, nil
}

// Equal compares two keys in constant time.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Encode returns the wire text form of a credential field.
func Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decode(field, s string, want int) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not base64", errs.ErrValidation, field)
	}
	if len(b) != want {
		return nil, fmt.Errorf("%w: %s must decode to %d bytes", errs.ErrValidation, field, want)
	}
	return b, nil
}
