package domain

import "time"

// Group is a matching context: an official organization group, an ad-hoc
// created group, or an instant meetup. Location-typed groups carry
// coordinates for proximity discovery.
type Group struct {
	ID        string      `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	Type      ContextType `json:"type" db:"type"`
	Latitude  *float64    `json:"latitude" db:"latitude"`
	Longitude *float64    `json:"longitude" db:"longitude"`
	ExpiresAt *time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

func (g *Group) HasLocation() bool {
	return g.Latitude != nil && g.Longitude != nil
}

// Meta derives the context metadata variant for profiles joined through this
// group.
func (g *Group) Meta() ContextMeta {
	switch g.Type {
	case ContextOfficial:
		return OfficialMeta{OrganizationDomain: g.Name}
	case ContextInstant:
		return InstantMeta{MeetupTitle: g.Name, StartsAt: g.CreatedAt}
	case ContextLocation:
		m := LocationMeta{}
		if g.HasLocation() {
			m.Latitude = *g.Latitude
			m.Longitude = *g.Longitude
		}
		return m
	default:
		return CreatedMeta{}
	}
}
