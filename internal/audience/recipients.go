package audience

import (
	"github.com/and161185/profiled/internal/model"
	"github.com/gofrs/uuid/v5"
)

// PeerRecipient is the other side of one relationship.
type PeerRecipient struct {
	RelationshipID uuid.UUID
	UserID         uuid.UUID
}

// GroupRecipient is one active co-member of one group.
type GroupRecipient struct {
	GroupID uuid.UUID
	UserID  uuid.UUID
}

// PeerRecipients returns the counterpart of every relationship actor is part of.
// Relationships not involving actor are skipped.
func PeerRecipients(actor uuid.UUID, rels []model.Relationship) []PeerRecipient {
	out := make([]PeerRecipient, 0, len(rels))
	for _, r := range rels {
		var other uuid.UUID
		switch actor {
		case r.Initiator:
			other = r.Target
		case r.Target:
			other = r.Initiator
		default:
			continue
		}
		out = append(out, PeerRecipient{RelationshipID: r.ID, UserID: other})
	}
	return out
}

// GroupRecipients returns, per group, every non-removed member except actor.
func GroupRecipients(actor uuid.UUID, groups []model.GroupMembership) []GroupRecipient {
	var out []GroupRecipient
	for _, g := range groups {
		for _, m := range g.Members {
			if m.Removed || m.UserID == actor {
				continue
			}
			out = append(out, GroupRecipient{GroupID: g.GroupID, UserID: m.UserID})
		}
	}
	return out
}
