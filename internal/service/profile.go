// Package service contains the profile update pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/profiled/internal/audience"
	"github.com/and161185/profiled/internal/broadcast"
	"github.com/and161185/profiled/internal/credential"
	"github.com/and161185/profiled/internal/errs"
	"github.com/and161185/profiled/internal/metrics"
	"github.com/and161185/profiled/internal/model"
	"github.com/and161185/profiled/internal/repository"
)

// ProfileService defines operations on the caller's own profile.
type ProfileService interface {
	// Update validates and persists m for actor, then broadcasts the change in the
	// background. The returned Delivery tracks that broadcast.
	Update(ctx context.Context, actor uuid.UUID, m model.ProfileMutation) (*Delivery, error)
	// Get returns the caller's profile.
	Get(ctx context.Context, actor uuid.UUID) (*model.Profile, error)
}

// Sender fans envelopes out to their topics.
type Sender interface {
	Send(ctx context.Context, envs []broadcast.Envelope) broadcast.Report
}

// Delivery is the handle of a background broadcast.
type Delivery struct {
	done   chan struct{}
	report broadcast.Report
}

// Wait blocks until the broadcast finished and returns its report.
func (d *Delivery) Wait() broadcast.Report {
	<-d.done
	return d.report
}

// Done is closed once the broadcast finished.
func (d *Delivery) Done() <-chan struct{} { return d.done }

func finished(r broadcast.Report) *Delivery {
	d := &Delivery{done: make(chan struct{}), report: r}
	close(d.done)
	return d
}

type ProfileServiceImpl struct {
	profiles  repository.ProfileRepository
	relations repository.RelationshipRepository
	sender    Sender
	log       *zap.Logger
	m         *metrics.Metrics

	inflight sync.WaitGroup
}

// NewProfileService constructs ProfileService with required dependencies.
func NewProfileService(
	profiles repository.ProfileRepository,
	relations repository.RelationshipRepository,
	sender Sender,
	log *zap.Logger,
	m *metrics.Metrics,
) *ProfileServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &ProfileServiceImpl{profiles: profiles, relations: relations, sender: sender, log: log, m: m}
}

// Get loads the caller's own profile.
func (s *ProfileServiceImpl) Get(ctx context.Context, actor uuid.UUID) (*model.Profile, error) {
	if actor == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	return s.profiles.GetByID(ctx, actor)
}

// Update runs validate, persist and broadcast in that order. Errors before the
// write leave the store untouched and nothing is broadcast. Broadcast
// failures never reach the caller.
func (s *ProfileServiceImpl) Update(ctx context.Context, actor uuid.UUID, m model.ProfileMutation) (*Delivery, error) {
	u, err := s.accept(ctx, actor, m)
	if err != nil {
		s.m.Updates.WithLabelValues(outcome(err)).Inc()
		return nil, err
	}

	if err := s.profiles.Update(ctx, actor, u); err != nil {
		s.m.Updates.WithLabelValues(outcome(err)).Inc()
		if errors.Is(err, errs.ErrAlreadyExists) || errors.Is(err, errs.ErrInvalidPassword) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.m.Updates.WithLabelValues("ok").Inc()

	views := audience.Redact(u)
	if views.Empty() {
		return finished(broadcast.Report{}), nil
	}

	d := &Delivery{done: make(chan struct{})}
	bctx := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer close(d.done)
		d.report = s.broadcast(bctx, actor, views)
	}()
	return d, nil
}

// Drain waits for every background broadcast started so far. Call it after
// the transports stopped accepting requests and before closing the store or
// the publisher.
func (s *ProfileServiceImpl) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// accept checks m and turns it into a persistable update.
func (s *ProfileServiceImpl) accept(ctx context.Context, actor uuid.UUID, m model.ProfileMutation) (model.ProfileUpdate, error) {
	if actor == uuid.Nil {
		return model.ProfileUpdate{}, errs.ErrUnauthorized
	}
	if err := m.Validate(); err != nil {
		return model.ProfileUpdate{}, err
	}

	if m.Handle != nil {
		owner, err := s.profiles.GetByHandle(ctx, *m.Handle)
		switch {
		case err == nil && owner.ID != actor:
			return model.ProfileUpdate{}, errs.ErrAlreadyExists
		case err != nil && !errors.Is(err, errs.ErrNotFound):
			return model.ProfileUpdate{}, fmt.Errorf("lookup handle: %w", err)
		}
	}

	u := model.ProfileUpdate{Name: m.Name, Handle: m.Handle, AccentColor: m.AccentColor}
	if m.CredentialFieldCount() == 0 {
		return u, nil
	}

	var stored []byte
	if m.CredentialFieldCount() == 4 {
		cur, err := s.profiles.GetByID(ctx, actor)
		if err != nil {
			return model.ProfileUpdate{}, fmt.Errorf("load profile: %w", err)
		}
		stored = cur.AuthKey
	}
	dec, err := credential.Check(m, stored)
	if err != nil {
		return model.ProfileUpdate{}, err
	}
	u.Credentials = &dec.Bundle
	u.ExpectedAuthKey = stored
	return u, nil
}

// broadcast resolves the audiences of actor and publishes views to them.
func (s *ProfileServiceImpl) broadcast(ctx context.Context, actor uuid.UUID, views audience.Views) broadcast.Report {
	start := time.Now()
	var (
		envs []broadcast.Envelope
		rep  broadcast.Report
	)
	if views.Self != nil {
		envs = append(envs, broadcast.SelfEnvelope(actor, *views.Self))
	}

	if views.Peer != nil {
		var (
			g                 errgroup.Group
			rels              []model.Relationship
			groups            []model.GroupMembership
			relErr, groupsErr error
		)
		g.Go(func() error {
			rels, relErr = s.relations.ListRelationships(ctx, actor)
			return nil
		})
		g.Go(func() error {
			groups, groupsErr = s.relations.ListActiveGroups(ctx, actor)
			return nil
		})
		_ = g.Wait()

		if relErr != nil {
			rep.Merge(s.resolveFailed("relationships", actor, relErr))
		} else {
			envs = append(envs, broadcast.PeerEnvelopes(audience.PeerRecipients(actor, rels), *views.Peer)...)
		}
		if groupsErr != nil {
			rep.Merge(s.resolveFailed("groups", actor, groupsErr))
		} else {
			envs = append(envs, broadcast.GroupEnvelopes(actor, audience.GroupRecipients(actor, groups), *views.Peer)...)
		}
	}

	rep.Merge(s.sender.Send(ctx, envs))
	s.log.Debug("profile broadcast",
		zap.String("user", actor.String()),
		zap.Int("attempted", rep.Attempted),
		zap.Int("delivered", rep.Delivered),
		zap.Duration("dur", time.Since(start)),
	)
	return rep
}

func (s *ProfileServiceImpl) resolveFailed(what string, actor uuid.UUID, err error) broadcast.Report {
	s.m.Failures.WithLabelValues("resolve").Inc()
	s.log.Warn("broadcast resolve",
		zap.String("what", what),
		zap.String("user", actor.String()),
		zap.Error(err),
	)
	return broadcast.Report{Err: fmt.Errorf("list %s: %w", what, err)}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return "invalid"
	case errors.Is(err, errs.ErrAlreadyExists):
		return "conflict"
	case errors.Is(err, errs.ErrInvalidPassword):
		return "bad_password"
	case errors.Is(err, errs.ErrIncompleteRotation):
		return "incomplete_rotation"
	case errors.Is(err, errs.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}
