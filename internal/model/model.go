// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// AccentColor is the UI accent chosen by a user. Visible to the owner only.
type AccentColor string

// Allowed accent colors.
const (
	AccentGreen  AccentColor = "green"
	AccentRed    AccentColor = "red"
	AccentYellow AccentColor = "yellow"
	AccentBlue   AccentColor = "blue"
	AccentIndigo AccentColor = "indigo"
	AccentPurple AccentColor = "purple"
	AccentPink   AccentColor = "pink"
)

// Valid reports whether c is one of the allowed accent colors.
func (c AccentColor) Valid() bool {
	switch c {
	case AccentGreen, AccentRed, AccentYellow, AccentBlue, AccentIndigo, AccentPurple, AccentPink:
		return true
	}
	return false
}

// Profile is a user record as stored on the server.
type Profile struct {
	ID                  uuid.UUID // PK
	Name                string
	Handle              string // unique
	AccentColor         AccentColor
	Salt                []byte // client KDF salt
	AuthKey             []byte // client-derived auth key
	EncryptedPrivateKey []byte // sealed by the client, opaque here
	CreatedAt           time.Time
}

// ProfileMutation is a partial update as received from a client.
// Nil fields are left untouched. Credential fields carry their base64 text form.
type ProfileMutation struct {
	Name                *string
	Handle              *string
	AccentColor         *AccentColor
	Salt                *string
	AuthKey             *string
	OldAuthKey          *string
	EncryptedPrivateKey *string
}

// CredentialFieldCount returns how many of the four credential fields are present.
func (m ProfileMutation) CredentialFieldCount() int {
	n := 0
	for _, f := range []*string{m.Salt, m.AuthKey, m.OldAuthKey, m.EncryptedPrivateKey} {
		if f != nil {
			n++
		}
	}
	return n
}

// CredentialBundle is a decoded, verified credential rotation. It never
// carries oldAuthKey.
type CredentialBundle struct {
	Salt                []byte
	AuthKey             []byte
	EncryptedPrivateKey []byte
}

// ProfileUpdate is an accepted mutation ready to persist.
type ProfileUpdate struct {
	Name        *string
	Handle      *string
	AccentColor *AccentColor
	Credentials *CredentialBundle // nil unless rotating

	// ExpectedAuthKey is the stored auth key the rotation was checked against.
	// The write only applies while it is still current.
	ExpectedAuthKey []byte
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Handle == nil && u.AccentColor == nil && u.Credentials == nil
}

// Relationship is a direct link ("friend") between two users.
type Relationship struct {
	ID        uuid.UUID
	Initiator uuid.UUID
	Target    uuid.UUID
}

// GroupMember is a single membership row inside a group.
type GroupMember struct {
	UserID  uuid.UUID
	Removed bool
}

// GroupMembership is a group ("channel") with its full member list.
type GroupMembership struct {
	GroupID uuid.UUID
	Members []GroupMember
}
