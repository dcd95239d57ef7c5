package main

import (
	"encoding/base64"
	"errors"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/profiled/internal/convert"
	"github.com/and161185/profiled/internal/credential"
	"github.com/and161185/profiled/internal/crypto/clientcrypto"
	"github.com/and161185/profiled/internal/model"
)

// buildUpdate turns the update flags into a mutation. Only flags present in
// set are included; -color is always required.
func buildUpdate(name, handle, color string, set map[string]bool) (model.ProfileMutation, error) {
	if !set["color"] {
		return model.ProfileMutation{}, errors.New("need -color")
	}
	c := model.AccentColor(color)
	m := model.ProfileMutation{AccentColor: &c}
	if set["name"] {
		m.Name = &name
	}
	if set["handle"] {
		m.Handle = &handle
	}
	if err := m.ValidateRequest(); err != nil {
		return model.ProfileMutation{}, err
	}
	return m, nil
}

func toRequest(m model.ProfileMutation) (*structpb.Struct, error) {
	return structpb.NewStruct(convert.MutationToMap(m))
}

// stored is what rotation needs from GetMe.
type stored struct {
	Salt                []byte
	EncryptedPrivateKey []byte
	AccentColor         model.AccentColor
}

func parseStored(s *structpb.Struct) (stored, error) {
	f := s.GetFields()
	salt, err := base64.StdEncoding.DecodeString(f[convert.FieldSalt].GetStringValue())
	if err != nil || len(salt) != credential.SaltLen {
		return stored{}, errors.New("server returned a bad salt")
	}
	epk, err := base64.StdEncoding.DecodeString(f[convert.FieldEncryptedPrivateKey].GetStringValue())
	if err != nil || len(epk) != credential.EncryptedPrivateKeyLen {
		return stored{}, errors.New("server returned a bad encryptedPrivateKey")
	}
	c := model.AccentColor(f[convert.FieldAccentColor].GetStringValue())
	if !c.Valid() {
		c = model.AccentGreen
	}
	return stored{Salt: salt, EncryptedPrivateKey: epk, AccentColor: c}, nil
}

func bundleJSON(b clientcrypto.Bundle) map[string]string {
	return map[string]string{
		convert.FieldSalt:                credential.Encode(b.Salt),
		convert.FieldAuthKey:             credential.Encode(b.AuthKey),
		convert.FieldEncryptedPrivateKey: credential.Encode(b.EncryptedPrivateKey),
	}
}
