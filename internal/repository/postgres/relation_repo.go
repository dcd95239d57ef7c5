package postgres

import (
	"context"

	"github.com/and161185/profiled/internal/model"
	"github.com/gofrs/uuid/v5"
)

// RelationRepo implements RelationshipRepository using PostgreSQL.
type RelationRepo struct{ db *DB }

// NewRelationRepo constructs a relationship repository.
func NewRelationRepo(db *DB) *RelationRepo { return &RelationRepo{db: db} }

// ListRelationships returns friendships where id is on either side.
func (r *RelationRepo) ListRelationships(ctx context.Context, id uuid.UUID) ([]model.Relationship, error) {
	const q = `
SELECT id, initiator, target
FROM friends
WHERE initiator=$1 OR target=$1`
	rows, err := r.db.Pool.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Relationship
	for rows.Next() {
		var rel model.Relationship
		if err := rows.Scan(&rel.ID, &rel.Initiator, &rel.Target); err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// ListActiveGroups returns every channel id is an active member of, with the
// full member list of each (removed members included, flagged).
func (r *RelationRepo) ListActiveGroups(ctx context.Context, id uuid.UUID) ([]model.GroupMembership, error) {
	const q = `
SELECT cu.channel_id, cu.user_id, cu.removed
FROM channel_users cu
WHERE cu.channel_id IN (
  SELECT channel_id FROM channel_users WHERE user_id=$1 AND NOT removed
)
ORDER BY cu.channel_id, cu.added_at`
	rows, err := r.db.Pool.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GroupMembership
	for rows.Next() {
		var (
			gid uuid.UUID
			m   model.GroupMember
		)
		if err := rows.Scan(&gid, &m.UserID, &m.Removed); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].GroupID != gid {
			out = append(out, model.GroupMembership{GroupID: gid})
		}
		last := &out[len(out)-1]
		last.Members = append(last.Members, m)
	}
	return out, rows.Err()
}
