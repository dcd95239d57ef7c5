// Package clientcrypto derives the client-side credential bundle: the auth key
// the server compares on rotation and the sealed private key it stores opaquely.
// The password and the plain private key never leave the client.
package clientcrypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/and161185/profiled/internal/credential"
	"github.com/and161185/profiled/internal/model"
)

// Params
const (
	PrivateKeyLen = 32
	SealKeyLen    = chacha20poly1305.KeySize

	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 1
	masterLen    uint32 = 32
)

var (
	infoAuth = []byte("profiled auth key")
	infoSeal = []byte("profiled seal key")
)

// Keys are the per-password secrets derived from (password, salt).
type Keys struct {
	AuthKey []byte // sent to the server
	SealKey []byte // stays on the client
}

// Bundle is a complete credential set in raw bytes.
type Bundle struct {
	Salt                []byte
	AuthKey             []byte
	EncryptedPrivateKey []byte
}

func Rand(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Derive stretches password with Argon2id and expands the result into the
// auth and seal keys via HKDF-SHA256.
func Derive(password, salt []byte) (Keys, error) {
	master := argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, masterLen)
	auth, err := expand(master, infoAuth, credential.AuthKeyLen)
	if err != nil {
		return Keys{}, err
	}
	seal, err := expand(master, infoSeal, SealKeyLen)
	if err != nil {
		return Keys{}, err
	}
	return Keys{AuthKey: auth, SealKey: seal}, nil
}

func expand(master, info []byte, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, info), out); err != nil {
		return nil, err
	}
	return out, nil
}

// SealPrivateKey encrypts priv with XChaCha20-Poly1305 and a random nonce.
// Output is nonce||ciphertext||tag.
func SealPrivateKey(sealKey, priv []byte) ([]byte, error) {
	if len(priv) != PrivateKeyLen {
		return nil, errors.New("private key must be 32 bytes")
	}
	aead, err := chacha20poly1305.NewX(sealKey)
	if err != nil {
		return nil, err
	}
	nonce, err := Rand(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(priv)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, priv, nil), nil
}

// OpenPrivateKey reverses SealPrivateKey. A wrong seal key fails authentication.
func OpenPrivateKey(sealKey, sealed []byte) ([]byte, error) {
	if len(sealed) != credential.EncryptedPrivateKeyLen {
		return nil, errors.New("sealed private key has wrong length")
	}
	aead, err := chacha20poly1305.NewX(sealKey)
	if err != nil {
		return nil, err
	}
	nonce := sealed[:chacha20poly1305.NonceSizeX]
	return aead.Open(nil, nonce, sealed[chacha20poly1305.NonceSizeX:], nil)
}

// Enroll creates a fresh private key and the bundle protecting it under password.
func Enroll(password []byte) (Bundle, []byte, error) {
	priv, err := Rand(PrivateKeyLen)
	if err != nil {
		return Bundle{}, nil, err
	}
	b, err := protect(password, priv)
	if err != nil {
		return Bundle{}, nil, err
	}
	return b, priv, nil
}

func protect(password, priv []byte) (Bundle, error) {
	salt, err := Rand(credential.SaltLen)
	if err != nil {
		return Bundle{}, err
	}
	k, err := Derive(password, salt)
	if err != nil {
		return Bundle{}, err
	}
	sealed, err := SealPrivateKey(k.SealKey, priv)
	if err != nil {
		return Bundle{}, err
	}
	return Bundle{Salt: salt, AuthKey: k.AuthKey, EncryptedPrivateKey: sealed}, nil
}

// ErrWrongPassword is returned when the current password cannot open the stored key.
var ErrWrongPassword = errors.New("current password does not open the private key")

// NewRotation builds the four-field mutation that moves the private key from
// oldPassword to newPassword. salt and sealed are the values currently stored.
func NewRotation(oldPassword, newPassword, salt, sealed []byte) (model.ProfileMutation, error) {
	old, err := Derive(oldPassword, salt)
	if err != nil {
		return model.ProfileMutation{}, err
	}
	priv, err := OpenPrivateKey(old.SealKey, sealed)
	if err != nil {
		return model.ProfileMutation{}, ErrWrongPassword
	}
	next, err := protect(newPassword, priv)
	if err != nil {
		return model.ProfileMutation{}, err
	}

	s := credential.Encode(next.Salt)
	ak := credential.Encode(next.AuthKey)
	oak := credential.Encode(old.AuthKey)
	epk := credential.Encode(next.EncryptedPrivateKey)
	return model.ProfileMutation{Salt: &s, AuthKey: &ak, OldAuthKey: &oak, EncryptedPrivateKey: &epk}, nil
}
