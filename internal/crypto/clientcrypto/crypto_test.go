package clientcrypto

import (
	"bytes"
	"crypto/subtle"
	"testing"

	"github.com/and161185/profiled/internal/credential"
	"github.com/and161185/profiled/internal/model"
)

func TestRand_LengthUniq(t *testing.T) {
	t.Parallel()
	const n = 48
	a, err := Rand(n)
	if err != nil {
		t.Fatalf("Rand: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, _ := Rand(n)
	if bytes.Equal(a, b) {
		t.Fatalf("Rand produced equal slices")
	}
}

func TestDerive_DeterministicAndSeparated(t *testing.T) {
	t.Parallel()
	pw := []byte("secret-pass")
	s1 := bytes.Repeat([]byte{1}, credential.SaltLen)
	s2 := bytes.Repeat([]byte{2}, credential.SaltLen)

	k1, err := Derive(pw, s1)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	k2, _ := Derive(pw, s1)
	if subtle.ConstantTimeCompare(k1.AuthKey, k2.AuthKey) != 1 || subtle.ConstantTimeCompare(k1.SealKey, k2.SealKey) != 1 {
		t.Fatalf("Derive not deterministic")
	}
	if len(k1.AuthKey) != credential.AuthKeyLen || len(k1.SealKey) != SealKeyLen {
		t.Fatalf("key lengths: auth=%d seal=%d", len(k1.AuthKey), len(k1.SealKey))
	}
	if bytes.Equal(k1.AuthKey, k1.SealKey) {
		t.Fatalf("auth and seal keys must differ")
	}
	k3, _ := Derive(pw, s2)
	if bytes.Equal(k1.AuthKey, k3.AuthKey) {
		t.Fatalf("Derive must change with salt")
	}
	k4, _ := Derive([]byte("other"), s1)
	if bytes.Equal(k1.AuthKey, k4.AuthKey) {
		t.Fatalf("Derive must change with password")
	}
}

func TestSealOpen(t *testing.T) {
	t.Parallel()
	k, _ := Derive([]byte("pw"), bytes.Repeat([]byte{7}, credential.SaltLen))
	priv, _ := Rand(PrivateKeyLen)

	sealed, err := SealPrivateKey(k.SealKey, priv)
	if err != nil {
		t.Fatalf("SealPrivateKey: %v", err)
	}
	if len(sealed) != credential.EncryptedPrivateKeyLen {
		t.Fatalf("sealed len=%d, want %d", len(sealed), credential.EncryptedPrivateKeyLen)
	}
	if got := len(credential.Encode(sealed)); got != model.EncryptedPrivateKeyTextLen {
		t.Fatalf("encoded len=%d, want %d", got, model.EncryptedPrivateKeyTextLen)
	}

	out, err := OpenPrivateKey(k.SealKey, sealed)
	if err != nil || !bytes.Equal(out, priv) {
		t.Fatalf("OpenPrivateKey: %v", err)
	}

	other, _ := Derive([]byte("nope"), bytes.Repeat([]byte{7}, credential.SaltLen))
	if _, err := OpenPrivateKey(other.SealKey, sealed); err == nil {
		t.Fatalf("open with wrong key must fail")
	}
	sealed[len(sealed)-1] ^= 1
	if _, err := OpenPrivateKey(k.SealKey, sealed); err == nil {
		t.Fatalf("tampered ciphertext must fail")
	}
	if _, err := SealPrivateKey(k.SealKey, priv[:5]); err == nil {
		t.Fatalf("short private key must be rejected")
	}
}

func TestNewRotation_PassesServerCheck(t *testing.T) {
	t.Parallel()
	cur, priv, err := Enroll([]byte("old"))
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	m, err := NewRotation([]byte("old"), []byte("new"), cur.Salt, cur.EncryptedPrivateKey)
	if err != nil {
		t.Fatalf("NewRotation: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("rotation must pass input validation: %v", err)
	}

	d, err := credential.Check(m, cur.AuthKey)
	if err != nil || !d.Rotating {
		t.Fatalf("Check: %+v %v", d, err)
	}
	if bytes.Equal(d.Bundle.Salt, cur.Salt) || bytes.Equal(d.Bundle.AuthKey, cur.AuthKey) {
		t.Fatalf("rotation must replace salt and auth key")
	}

	k, _ := Derive([]byte("new"), d.Bundle.Salt)
	got, err := OpenPrivateKey(k.SealKey, d.Bundle.EncryptedPrivateKey)
	if err != nil || !bytes.Equal(got, priv) {
		t.Fatalf("new password must open the same private key: %v", err)
	}
}

func TestNewRotation_WrongPassword(t *testing.T) {
	t.Parallel()
	cur, _, _ := Enroll([]byte("old"))
	if _, err := NewRotation([]byte("guess"), []byte("new"), cur.Salt, cur.EncryptedPrivateKey); err != ErrWrongPassword {
		t.Fatalf("err=%v, want ErrWrongPassword", err)
	}
}
