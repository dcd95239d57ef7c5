// Package broadcast fans redacted profile changes out to per-user topics.
package broadcast

import (
	"github.com/and161185/profiled/internal/audience"
	"github.com/gofrs/uuid/v5"
)

// Message types as seen by subscribers.
const (
	TypeUser        = "user"
	TypeFriendUser  = "friendUser"
	TypeChannelUser = "channelUser"
)

// Message is the wire envelope published to a user topic.
type Message struct {
	Type string `json:"t"`
	Data any    `json:"d"`
}

// FriendUser is the payload delivered to a relationship counterpart.
type FriendUser struct {
	Friend string `json:"friend"`
	audience.PeerView
}

// ChannelUser is the payload delivered to a channel co-member.
type ChannelUser struct {
	Channel string `json:"channel"`
	ID      string `json:"id"`
	audience.PeerView
}

// Envelope is a message bound to its destination topic.
type Envelope struct {
	Topic   string
	Message Message
}

// Topic returns the private notification topic of a user.
func Topic(id uuid.UUID) string { return "user:" + id.String() }

// SelfEnvelope addresses the owner's own sessions.
func SelfEnvelope(actor uuid.UUID, v audience.SelfView) Envelope {
	return Envelope{Topic: Topic(actor), Message: Message{Type: TypeUser, Data: v}}
}

// PeerEnvelopes addresses every relationship counterpart.
func PeerEnvelopes(peers []audience.PeerRecipient, v audience.PeerView) []Envelope {
	out := make([]Envelope, 0, len(peers))
	for _, p := range peers {
		out = append(out, Envelope{
			Topic:   Topic(p.UserID),
			Message: Message{Type: TypeFriendUser, Data: FriendUser{Friend: p.RelationshipID.String(), PeerView: v}},
		})
	}
	return out
}

// GroupEnvelopes addresses every channel co-member, tagged with the channel and the actor.
func GroupEnvelopes(actor uuid.UUID, members []audience.GroupRecipient, v audience.PeerView) []Envelope {
	out := make([]Envelope, 0, len(members))
	for _, m := range members {
		out = append(out, Envelope{
			Topic: Topic(m.UserID),
			Message: Message{Type: TypeChannelUser, Data: ChannelUser{
				Channel:  m.GroupID.String(),
				ID:       actor.String(),
				PeerView: v,
			}},
		})
	}
	return out
}
