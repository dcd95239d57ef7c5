package model

import (
	"fmt"
	"unicode/utf8"

	"github.com/and161185/profiled/internal/errs"
)

// Encoded (base64) lengths of the credential fields.
const (
	SaltTextLen                = 24
	AuthKeyTextLen             = 44
	EncryptedPrivateKeyTextLen = 96
)

// Validate checks the shape of every provided field. It does not require any
// field to be present.
func (m ProfileMutation) Validate() error {
	if m.Name != nil {
		if n := utf8.RuneCountInString(*m.Name); n < 1 || n > 32 {
			return fmt.Errorf("%w: name must be 1-32 characters", errs.ErrValidation)
		}
	}
	if m.Handle != nil {
		if n := len(*m.Handle); n < 3 || n > 32 || !alphanumeric(*m.Handle) {
			return fmt.Errorf("%w: handle must be 3-32 alphanumeric characters", errs.ErrValidation)
		}
	}
	if m.AccentColor != nil && !m.AccentColor.Valid() {
		return fmt.Errorf("%w: unknown accentColor %q", errs.ErrValidation, *m.AccentColor)
	}
	for _, f := range []struct {
		name string
		v    *string
		n    int
	}{
		{"salt", m.Salt, SaltTextLen},
		{"authKey", m.AuthKey, AuthKeyTextLen},
		{"oldAuthKey", m.OldAuthKey, AuthKeyTextLen},
		{"encryptedPrivateKey", m.EncryptedPrivateKey, EncryptedPrivateKeyTextLen},
	} {
		if f.v != nil && len(*f.v) != f.n {
			return fmt.Errorf("%w: %s must be %d characters", errs.ErrValidation, f.name, f.n)
		}
	}
	return nil
}

// ValidateRequest is Validate plus the request-level rule that accentColor is required.
func (m ProfileMutation) ValidateRequest() error {
	if m.AccentColor == nil {
		return fmt.Errorf("%w: accentColor is required", errs.ErrValidation)
	}
	return m.Validate()
}

func alphanumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}
