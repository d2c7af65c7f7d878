// Package activity defines the service-neutral activity record shared by
// every source, and the aggregation over an activity and the activities
// linked to it.
package activity

import (
	"time"

	"runjournal/internal/splits"
	"runjournal/internal/units"
)

// Service identifies where an activity came from
type Service struct {
	ID   string // "smashrun", "strava"
	Name string // display name
}

// Key is the identity of an activity across services
type Key struct {
	Service string
	ID      string
}

func (k Key) String() string { return k.Service + ":" + k.ID }

// Tag is a journal tag with its origin. Derived tags come from the
// activity's own attributes (race, commute) rather than from its service.
type Tag struct {
	Service string
	Name    string
	Derived bool
}

type Badge struct {
	Service     string
	ID          string
	Name        string
	Requirement string
	ImageURL    string
	EarnedAt    time.Time
}

// PhotoKind records why a file is attached to an activity
type PhotoKind int

const (
	PhotoService PhotoKind = iota
	PhotoBadge
	PhotoRoute
)

func (k PhotoKind) String() string {
	switch k {
	case PhotoBadge:
		return "badge"
	case PhotoRoute:
		return "route"
	}
	return "photo"
}

// Photo is a downloaded image owned by the activity until cleanup
type Photo struct {
	Service string
	Path    string
	Kind    PhotoKind
}

// Notable is a highlight such as a personal record or segment achievement
type Notable struct {
	Service string
	Text    string
}

type Coordinate struct {
	Lat float64
	Lng float64
}

// Activity is one recorded activity from one service. A primary activity
// owns the secondary activities matched to it through Linked.
type Activity struct {
	Service    Service
	ID         string
	Type       string
	Start      time.Time // carries the activity's local zone
	Distance   units.Quantity
	Polyline   string
	Title      string
	Notes      string
	URL        string
	Coordinate *Coordinate
	Splits     []splits.Split

	Tags     []Tag
	Badges   []Badge
	Photos   []Photo
	Notables []Notable

	Linked []*Activity
}

// New creates an activity carrying the per-service tag
func New(svc Service, id string) *Activity {
	return &Activity{
		Service:  svc,
		ID:       id,
		Distance: units.Meters(0),
		Tags:     []Tag{{Service: svc.ID, Name: svc.ID}},
	}
}

func (a *Activity) Key() Key {
	return Key{Service: a.Service.ID, ID: a.ID}
}

// Link attaches a secondary activity to a
func (a *Activity) Link(secondary *Activity) {
	a.Linked = append(a.Linked, secondary)
}

// AddTag appends a tag derived from the activity's attributes
func (a *Activity) AddTag(name string) {
	a.Tags = append(a.Tags, Tag{Service: a.Service.ID, Name: name, Derived: true})
}

// PrependPhoto puts p ahead of the activity's other photos
func (a *Activity) PrependPhoto(p Photo) {
	a.Photos = append([]Photo{p}, a.Photos...)
}

// DistanceMeters returns the distance in meters
func (a *Activity) DistanceMeters() float64 {
	m, err := a.Distance.In(units.Meter)
	if err != nil {
		return 0
	}
	return m
}

// flatten collects own(x) for a and then, depth first, every linked activity
func flatten[T any](a *Activity, own func(*Activity) []T) []T {
	out := append([]T(nil), own(a)...)
	for _, l := range a.Linked {
		out = append(out, flatten(l, own)...)
	}
	return out
}

// All returns a followed by its linked activities, depth first
func (a *Activity) All() []*Activity {
	return flatten(a, func(x *Activity) []*Activity { return []*Activity{x} })
}

func (a *Activity) AllTags() []Tag {
	return flatten(a, func(x *Activity) []Tag { return x.Tags })
}

func (a *Activity) AllBadges() []Badge {
	return flatten(a, func(x *Activity) []Badge { return x.Badges })
}

func (a *Activity) AllPhotos() []Photo {
	return flatten(a, func(x *Activity) []Photo { return x.Photos })
}

func (a *Activity) AllNotables() []Notable {
	return flatten(a, func(x *Activity) []Notable { return x.Notables })
}

// EffectiveSplits returns a's splits, or those of the first linked
// activity that has any
func (a *Activity) EffectiveSplits() []splits.Split {
	for _, x := range a.All() {
		if len(x.Splits) > 0 {
			return x.Splits
		}
	}
	return nil
}

// EffectiveCoordinate returns the first known coordinate over a and its links
func (a *Activity) EffectiveCoordinate() *Coordinate {
	for _, x := range a.All() {
		if x.Coordinate != nil {
			return x.Coordinate
		}
	}
	return nil
}
