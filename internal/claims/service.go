package claims

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
)

// UserClaimsClient is the part of *auth.Client the service needs.
type UserClaimsClient interface {
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	SetCustomUserClaims(ctx context.Context, uid string, customClaims map[string]interface{}) error
}

// Recorder persists a written claim change somewhere outside Firebase Auth.
type Recorder interface {
	Record(ctx context.Context, change Change) error
}

type Options struct {
	// Merge keeps the user's other custom claims when granting.
	Merge bool
	// Verify reads the user back after writing.
	Verify bool
	// DryRun computes the claims without writing or recording them.
	DryRun bool
}

type Service struct {
	client    UserClaimsClient
	log       *slog.Logger
	opts      Options
	recorders []Recorder

	now   func() time.Time
	newID func() string
}

var isUserNotFound = auth.IsUserNotFound

func NewService(client UserClaimsClient, log *slog.Logger, opts Options, recorders ...Recorder) *Service {
	return &Service{
		client:    client,
		log:       log,
		opts:      opts,
		recorders: recorders,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// SetAdmin grants (admin=true) or revokes (admin=false) the admin claim on uid.
//
// A grant replaces the user's custom claims with {admin: true} unless Merge is
// set. A revoke always keeps the other claims and drops only the admin key.
func (s *Service) SetAdmin(ctx context.Context, uid string, admin bool) (*Change, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrBadRequest)
	}

	change := &Change{
		ID:     s.newID(),
		UID:    uid,
		Action: actionFor(admin),
		DryRun: s.opts.DryRun,
	}
	log := s.log.With("uid", uid, "action", change.Action, "changeId", change.ID)

	if s.needsCurrent(admin) {
		current, err := s.currentClaims(ctx, uid)
		if err != nil {
			return nil, err
		}
		change.Before = current
	}
	change.After = s.desired(change.Before, admin)
	change.ChangedAt = s.now().UTC()

	if s.opts.DryRun {
		log.Info("dry run, claims not written", "before", change.Before, "after", change.After)
		return change, nil
	}

	if err := s.client.SetCustomUserClaims(ctx, uid, change.After); err != nil {
		return nil, wrapAuthErr("SetCustomUserClaims", uid, err)
	}
	log.Info("custom claims written", "merge", s.opts.Merge, "claims", change.After)

	if s.opts.Verify {
		if err := s.verify(ctx, log, uid, admin); err != nil {
			return nil, err
		}
	}

	for _, r := range s.recorders {
		if err := r.Record(ctx, *change); err != nil {
			log.Warn("failed to record claim change", "error", err)
		}
	}
	return change, nil
}

func (s *Service) needsCurrent(admin bool) bool {
	return s.opts.Merge || !admin || s.opts.DryRun || len(s.recorders) > 0
}

func (s *Service) desired(before Claims, admin bool) Claims {
	if !admin {
		out := before.clone()
		delete(out, AdminKey)
		if len(out) == 0 {
			return nil
		}
		return out
	}
	if !s.opts.Merge {
		return Claims{AdminKey: true}
	}
	out := before.clone()
	if out == nil {
		out = Claims{}
	}
	out[AdminKey] = true
	return out
}

func (s *Service) currentClaims(ctx context.Context, uid string) (Claims, error) {
	u, err := s.client.GetUser(ctx, uid)
	if err != nil {
		return nil, wrapAuthErr("GetUser", uid, err)
	}
	return Claims(u.CustomClaims).clone(), nil
}

func (s *Service) verify(ctx context.Context, log *slog.Logger, uid string, admin bool) error {
	got, err := s.currentClaims(ctx, uid)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	flag, has := got[AdminKey]
	if admin && flag != true {
		return fmt.Errorf("%w: %s is %v after grant", ErrVerifyFailed, AdminKey, flag)
	}
	if !admin && has {
		return fmt.Errorf("%w: %s still present after revoke", ErrVerifyFailed, AdminKey)
	}
	if !admin && IsAdmin(got) {
		log.Warn("admin flag removed but role claims still grant admin", "claims", got)
	}
	log.Debug("claims verified", "claims", got)
	return nil
}

func wrapAuthErr(op, uid string, err error) error {
	if isUserNotFound(err) {
		return fmt.Errorf("%w: user %q: %w", ErrNotFound, uid, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
