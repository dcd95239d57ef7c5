package audience

import (
	"testing"

	"github.com/and161185/profiled/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

func newID() uuid.UUID { return uuid.Must(uuid.NewV4()) }

func TestPeerRecipients_PicksCounterpart(t *testing.T) {
	t.Parallel()

	me, a, b, c := newID(), newID(), newID(), newID()
	r1 := model.Relationship{ID: newID(), Initiator: me, Target: a}
	r2 := model.Relationship{ID: newID(), Initiator: b, Target: me}
	stray := model.Relationship{ID: newID(), Initiator: b, Target: c}

	got := PeerRecipients(me, []model.Relationship{r1, r2, stray})
	require.Equal(t, []PeerRecipient{
		{RelationshipID: r1.ID, UserID: a},
		{RelationshipID: r2.ID, UserID: b},
	}, got)

	require.Empty(t, PeerRecipients(me, nil))
}

func TestGroupRecipients_SkipsRemovedAndActor(t *testing.T) {
	t.Parallel()

	me, a, b, gone := newID(), newID(), newID(), newID()
	g1 := model.GroupMembership{GroupID: newID(), Members: []model.GroupMember{
		{UserID: me},
		{UserID: a},
		{UserID: gone, Removed: true},
		{UserID: b},
	}}
	g2 := model.GroupMembership{GroupID: newID(), Members: []model.GroupMember{
		{UserID: a},
		{UserID: me},
	}}

	got := GroupRecipients(me, []model.GroupMembership{g1, g2})
	require.Equal(t, []GroupRecipient{
		{GroupID: g1.GroupID, UserID: a},
		{GroupID: g1.GroupID, UserID: b},
		{GroupID: g2.GroupID, UserID: a},
	}, got)
}

func TestGroupRecipients_SoloGroup(t *testing.T) {
	t.Parallel()

	me := newID()
	got := GroupRecipients(me, []model.GroupMembership{{GroupID: newID(), Members: []model.GroupMember{{UserID: me}}}})
	require.Empty(t, got)
}
