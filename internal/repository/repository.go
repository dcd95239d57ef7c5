// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/profiled/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ProfileRepository provides access to user profiles.
type ProfileRepository interface {
	// GetByID loads a profile by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	// GetByHandle loads a profile by handle.
	GetByHandle(ctx context.Context, handle string) (*model.Profile, error)
	// Update applies every provided field of u atomically.
	Update(ctx context.Context, id uuid.UUID, u model.ProfileUpdate) error
}

// RelationshipRepository lists who is entitled to see a user's changes.
type RelationshipRepository interface {
	// ListRelationships returns relationships where id is initiator or target.
	ListRelationships(ctx context.Context, id uuid.UUID) ([]model.Relationship, error)
	// ListActiveGroups returns groups where id is a non-removed member, with all members.
	ListActiveGroups(ctx context.Context, id uuid.UUID) ([]model.GroupMembership, error)
}
