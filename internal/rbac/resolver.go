package rbac

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/meridian-portal/meridian/internal/shared"
)

// ProfileRecord is the stored shape of a principal as the profile store
// returns it. RoleName is the raw stored value; parsing happens here.
type ProfileRecord struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	RoleName  string
	IsActive  bool
}

// ProfileSource supplies stored profile rows keyed by principal ID.
type ProfileSource interface {
	ProfileByID(ctx context.Context, id uuid.UUID) (ProfileRecord, error)
}

// Resolver turns a session user ID into a Principal. It fails closed:
// any lookup failure yields no principal, never an elevated default.
type Resolver struct {
	source ProfileSource
	logger *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(source ProfileSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{source: source, logger: logger}
}

// Resolve looks up the principal for the given ID. A missing profile,
// a deactivated account, or any datastore error resolves to nil.
func (r *Resolver) Resolve(ctx context.Context, id uuid.UUID) (*Principal, error) {
	record, err := r.source.ProfileByID(ctx, id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			r.logger.Error("resolve principal", slog.String("id", id.String()), slog.Any("error", err))
		}
		return nil, err
	}
	if !record.IsActive {
		return nil, shared.ErrAccountInactive
	}

	role, err := ParseRole(record.RoleName)
	if err != nil {
		// An unset or unrecognised stored role degrades to the least
		// privileged role, never to manager or admin.
		r.logger.Warn("stored role invalid, defaulting to user",
			slog.String("id", id.String()), slog.String("role", record.RoleName))
		role = RoleUser
	}

	return &Principal{
		ID:        record.ID,
		Email:     record.Email,
		FirstName: record.FirstName,
		LastName:  record.LastName,
		Role:      role,
	}, nil
}

// ResolveSessionUser parses the raw session user value and resolves it.
// Empty or malformed values resolve to nil without error.
func (r *Resolver) ResolveSessionUser(ctx context.Context, raw string) (*Principal, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		r.logger.Warn("session user id malformed", slog.String("value", raw))
		return nil, nil
	}
	return r.Resolve(ctx, id)
}
