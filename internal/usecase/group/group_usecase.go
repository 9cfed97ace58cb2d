// Package group manages matching contexts: creating groups, joining and
// leaving them (which materializes or retires the member's per-context
// profile), and discovering location groups by proximity.
package group

import (
	"context"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/geo"
	"github.com/b0ho/glimpse-sub008/internal/repository"
	"github.com/b0ho/glimpse-sub008/internal/usecase/profile"
	"github.com/google/uuid"
)

type Service struct {
	groups   repository.GroupRepository
	profiles *profile.Store
	clock    func() time.Time
	idGen    func() string
}

func NewService(groups repository.GroupRepository, profiles *profile.Store) *Service {
	return &Service{
		groups:   groups,
		profiles: profiles,
		clock:    time.Now,
		idGen:    uuid.NewString,
	}
}

// WithClock replaces the wall clock for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

type CreateRequest struct {
	Name      string   `json:"name" binding:"required,min=1,max=100"`
	Type      string   `json:"type" binding:"required,contexttype"`
	Latitude  *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	TTLHours  int      `json:"ttl_hours" binding:"omitempty,min=1,max=168"`
}

func (s *Service) Create(ctx context.Context, req *CreateRequest) (*domain.Group, error) {
	ct := domain.ContextType(req.Type)
	if !ct.Valid() {
		return nil, domain.ErrInvalidContext
	}
	if ct == domain.ContextLocation && (req.Latitude == nil || req.Longitude == nil) {
		return nil, domain.ErrInvalidInput
	}
	g := &domain.Group{
		ID:        s.idGen(),
		Name:      req.Name,
		Type:      ct,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	if req.TTLHours > 0 {
		exp := s.clock().Add(time.Duration(req.TTLHours) * time.Hour)
		g.ExpiresAt = &exp
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, &domain.TransientStorageError{Op: "group.Create", Err: err}
	}
	return g, nil
}

func (s *Service) Get(ctx context.Context, groupID string) (*domain.Group, error) {
	return s.groups.GetByID(ctx, groupID)
}

// Membership is the join result: the caller's isolated profile for the group
// plus the context metadata variant derived from the group itself.
type Membership struct {
	Profile *domain.Profile    `json:"profile"`
	Meta    domain.ContextMeta `json:"context_meta"`
}

// Join materializes the caller's profile for the group's context. Joining
// twice returns the same profile.
func (s *Service) Join(ctx context.Context, accountID, groupID string) (*Membership, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.ExpiresAt != nil && s.clock().After(*g.ExpiresAt) {
		return nil, domain.ErrGroupNotFound
	}
	p, err := s.profiles.GetOrCreate(ctx, accountID, g.Type, g.ID)
	if err != nil {
		return nil, err
	}
	return &Membership{Profile: p, Meta: g.Meta()}, nil
}

// Leave retires the caller's profile for the group. For instant groups the
// profile is purged outright.
func (s *Service) Leave(ctx context.Context, accountID, groupID string) error {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	p, err := s.profiles.ResolveByContext(ctx, accountID, g.Type, g.ID)
	if err != nil {
		return err
	}
	return s.profiles.Deactivate(ctx, accountID, p.ID, domain.ReasonContextLeft)
}

// NearbyGroup is a discovery hit annotated with its distance from the query
// point.
type NearbyGroup struct {
	Group          *domain.Group `json:"group"`
	DistanceMeters float64       `json:"distance_meters"`
}

// DiscoverNearby lists active location groups within radiusMeters of the
// given point, closest first.
func (s *Service) DiscoverNearby(ctx context.Context, lat, lon, radiusMeters float64) ([]NearbyGroup, error) {
	groups, err := s.groups.ListWithLocation(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	byID := make(map[string]*domain.Group, len(groups))
	candidates := make([]geo.Candidate, 0, len(groups))
	for _, g := range groups {
		if !g.HasLocation() {
			continue
		}
		if g.ExpiresAt != nil && now.After(*g.ExpiresAt) {
			continue
		}
		byID[g.ID] = g
		candidates = append(candidates, geo.Candidate{ID: g.ID, Latitude: *g.Latitude, Longitude: *g.Longitude})
	}

	ranked := geo.Nearby(lat, lon, radiusMeters, candidates)
	out := make([]NearbyGroup, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, NearbyGroup{Group: byID[r.ID], DistanceMeters: r.DistanceMeters})
	}
	return out, nil
}
