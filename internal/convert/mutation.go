// Package convert maps loosely typed request payloads to domain types and back.
package convert

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/profiled/internal/credential"
	"github.com/and161185/profiled/internal/errs"
	"github.com/and161185/profiled/internal/model"
)

// Request field names.
const (
	FieldName                = "name"
	FieldHandle              = "handle"
	FieldAccentColor         = "accentColor"
	FieldSalt                = "salt"
	FieldAuthKey             = "authKey"
	FieldOldAuthKey          = "oldAuthKey"
	FieldEncryptedPrivateKey = "encryptedPrivateKey"
)

// MutationFromMap builds a mutation from a decoded JSON object.
// Unknown keys and non-string values are rejected.
func MutationFromMap(in map[string]any) (model.ProfileMutation, error) {
	var m model.ProfileMutation
	targets := map[string]**string{
		FieldName:                &m.Name,
		FieldHandle:              &m.Handle,
		FieldSalt:                &m.Salt,
		FieldAuthKey:             &m.AuthKey,
		FieldOldAuthKey:          &m.OldAuthKey,
		FieldEncryptedPrivateKey: &m.EncryptedPrivateKey,
	}

	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		s, ok := in[k].(string)
		if !ok {
			return model.ProfileMutation{}, fmt.Errorf("%w: %s must be a string", errs.ErrValidation, k)
		}
		if k == FieldAccentColor {
			c := model.AccentColor(s)
			m.AccentColor = &c
			continue
		}
		dst, known := targets[k]
		if !known {
			return model.ProfileMutation{}, fmt.Errorf("%w: %s is not allowed", errs.ErrValidation, k)
		}
		*dst = &s
	}
	return m, nil
}

// MutationFromStruct builds a mutation from a protobuf Struct.
func MutationFromStruct(s *structpb.Struct) (model.ProfileMutation, error) {
	if s == nil {
		return model.ProfileMutation{}, nil
	}
	return MutationFromMap(s.AsMap())
}

// MutationToMap is the inverse of MutationFromMap.
func MutationToMap(m model.ProfileMutation) map[string]any {
	out := map[string]any{}
	put := func(k string, v *string) {
		if v != nil {
			out[k] = *v
		}
	}
	put(FieldName, m.Name)
	put(FieldHandle, m.Handle)
	if m.AccentColor != nil {
		out[FieldAccentColor] = string(*m.AccentColor)
	}
	put(FieldSalt, m.Salt)
	put(FieldAuthKey, m.AuthKey)
	put(FieldOldAuthKey, m.OldAuthKey)
	put(FieldEncryptedPrivateKey, m.EncryptedPrivateKey)
	return out
}

// ProfileToMap renders the owner's view of p. authKey is never included.
func ProfileToMap(p *model.Profile) map[string]any {
	return map[string]any{
		"id":                     p.ID.String(),
		FieldName:                p.Name,
		FieldHandle:              p.Handle,
		FieldAccentColor:         string(p.AccentColor),
		FieldSalt:                credential.Encode(p.Salt),
		FieldEncryptedPrivateKey: credential.Encode(p.EncryptedPrivateKey),
	}
}

// ProfileToStruct is ProfileToMap as a protobuf Struct.
func ProfileToStruct(p *model.Profile) (*structpb.Struct, error) {
	return structpb.NewStruct(ProfileToMap(p))
}
