// Package audience derives what each audience may see of a profile change
// and who the audience members are.
package audience

import (
	"github.com/and161185/profiled/internal/model"
)

// SelfView is what the owner's other sessions receive. Credentials are never part of it.
type SelfView struct {
	Name        *string            `json:"name,omitempty"`
	Handle      *string            `json:"handle,omitempty"`
	AccentColor *model.AccentColor `json:"accentColor,omitempty"`
}

// PeerView is what friends and channel co-members receive.
type PeerView struct {
	Name   *string `json:"name,omitempty"`
	Handle *string `json:"handle,omitempty"`
}

// Views holds the redacted payloads of one accepted update. A nil view means
// that audience gets nothing.
type Views struct {
	Self *SelfView
	Peer *PeerView
}

// Empty reports whether no audience receives anything.
func (v Views) Empty() bool { return v.Self == nil && v.Peer == nil }

// Redact narrows u by field removal: credentials are dropped for the self
// view, then accentColor is dropped for the peer view.
func Redact(u model.ProfileUpdate) Views {
	var v Views

	self := SelfView{Name: u.Name, Handle: u.Handle, AccentColor: u.AccentColor}
	if self.Name != nil || self.Handle != nil || self.AccentColor != nil {
		v.Self = &self
	}

	peer := PeerView{Name: self.Name, Handle: self.Handle}
	if peer.Name != nil || peer.Handle != nil {
		v.Peer = &peer
	}
	return v
}
