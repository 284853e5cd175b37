package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/memo-edu/memo-api/internal/models"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
)

// Scope is the effective academic year and stream of a request. Nil means unfiltered.
type Scope struct {
	YearID   *int64
	StreamID *int64
}

// Empty reports whether neither year nor stream is known.
func (s Scope) Empty() bool {
	return s.YearID == nil && s.StreamID == nil
}

// ResolveScope takes each of year and stream from params first, then from the profile.
func ResolveScope(params Scope, profile *models.AcademicProfile) Scope {
	scope := params
	if profile == nil {
		return scope
	}
	if scope.YearID == nil {
		scope.YearID = profile.AcademicYearID
	}
	if scope.StreamID == nil {
		scope.StreamID = profile.AcademicStreamID
	}
	return scope
}

type profileReader interface {
	FindByUser(ctx context.Context, userID int64) (*models.AcademicProfile, error)
}

// ScopeResolver derives listing scopes from request parameters and the caller's stored profile.
type ScopeResolver struct {
	profiles profileReader
}

// NewScopeResolver constructs a ScopeResolver.
func NewScopeResolver(profiles profileReader) *ScopeResolver {
	return &ScopeResolver{profiles: profiles}
}

// Profile returns the principal's profile, or nil for anonymous callers and users without one.
func (r *ScopeResolver) Profile(ctx context.Context, principal *models.Principal) (*models.AcademicProfile, error) {
	if principal == nil || r.profiles == nil {
		return nil, nil
	}
	profile, err := r.profiles.FindByUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic profile")
	}
	return profile, nil
}

// SubjectScope applies either-or precedence: the profile is consulted only when params carry
// neither year nor stream. An empty result is SCOPE_REQUIRED.
func (r *ScopeResolver) SubjectScope(ctx context.Context, principal *models.Principal, params Scope) (Scope, error) {
	if !params.Empty() {
		return params, nil
	}
	profile, err := r.Profile(ctx, principal)
	if err != nil {
		return Scope{}, err
	}
	scope := ResolveScope(params, profile)
	if scope.Empty() {
		return Scope{}, appErrors.ErrScopeRequired
	}
	return scope, nil
}

// Stream returns the explicit stream when given, else the profile stream, else nil.
func (r *ScopeResolver) Stream(ctx context.Context, principal *models.Principal, explicit *int64) (*int64, error) {
	if explicit != nil {
		return explicit, nil
	}
	profile, err := r.Profile(ctx, principal)
	if err != nil {
		return nil, err
	}
	return ResolveScope(Scope{}, profile).StreamID, nil
}
