package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/and161185/profiled/internal/errs"
	"github.com/and161185/profiled/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// ProfileRepo implements ProfileRepository using PostgreSQL.
type ProfileRepo struct{ db *DB }

// NewProfileRepo constructs a profile repository.
func NewProfileRepo(db *DB) *ProfileRepo { return &ProfileRepo{db: db} }

const selectProfile = `
SELECT id, name, handle, accent_color, salt, auth_key, encrypted_private_key, created_at
FROM users `

// GetByID selects a profile by ID.
func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	return r.getOne(ctx, selectProfile+`WHERE id=$1`, id)
}

// GetByHandle selects a profile by handle.
func (r *ProfileRepo) GetByHandle(ctx context.Context, handle string) (*model.Profile, error) {
	return r.getOne(ctx, selectProfile+`WHERE handle=$1`, handle)
}

func (r *ProfileRepo) getOne(ctx context.Context, q string, arg any) (*model.Profile, error) {
	row := r.db.Pool.QueryRow(ctx, q, arg)
	var (
		p      model.Profile
		accent string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Handle, &accent, &p.Salt, &p.AuthKey, &p.EncryptedPrivateKey, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	p.AccentColor = model.AccentColor(accent)
	return &p, nil
}

// Update sets the provided columns in a single statement.
func (r *ProfileRepo) Update(ctx context.Context, id uuid.UUID, u model.ProfileUpdate) error {
	q, args := buildUpdate(id, u)
	if q == "" {
		return nil
	}
	tag, err := r.db.Pool.Exec(ctx, q, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		if u.Credentials != nil && u.ExpectedAuthKey != nil {
			// auth_key changed since it was checked
			return errs.ErrInvalidPassword
		}
		return errs.ErrNotFound
	}
	return nil
}

// buildUpdate returns an UPDATE touching only the provided fields, or "" if none.
// A rotation is additionally conditioned on the auth key it was checked against.
func buildUpdate(id uuid.UUID, u model.ProfileUpdate) (string, []any) {
	var (
		sets []string
		args = []any{id}
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+"=$"+strconv.Itoa(len(args)))
	}
	if u.Name != nil {
		set("name", *u.Name)
	}
	if u.Handle != nil {
		set("handle", *u.Handle)
	}
	if u.AccentColor != nil {
		set("accent_color", string(*u.AccentColor))
	}
	if c := u.Credentials; c != nil {
		set("salt", c.Salt)
		set("auth_key", c.AuthKey)
		set("encrypted_private_key", c.EncryptedPrivateKey)
	}
	if len(sets) == 0 {
		return "", nil
	}
	where := " WHERE id=$1"
	if u.Credentials != nil && u.ExpectedAuthKey != nil {
		args = append(args, u.ExpectedAuthKey)
		where += " AND auth_key=$" + strconv.Itoa(len(args))
	}
	return "UPDATE users SET " + strings.Join(sets, ", ") + where, args
}
