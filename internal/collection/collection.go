// Package collection downloads and decorates the activities of one service
// within a time window.
package collection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"time"

	"runjournal/internal/activity"
	"runjournal/internal/logging"
)

// Window is the half-open interval [Start, Stop) of activity start times
type Window struct {
	Start time.Time
	Stop  time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.Stop)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.DateTime), w.Stop.Format(time.DateTime))
}

// Source is what a service must provide to be collected
type Source interface {
	ID() string
	Name() string

	// DownloadActivities returns fully decorated activities (splits, notes,
	// tags, polyline) started within w whose type is in types
	DownloadActivities(ctx context.Context, w Window, types []string) ([]*activity.Activity, error)

	URLForActivity(a *activity.Activity) string

	// PhotosForActivity downloads the activity's photos to local files
	PhotosForActivity(ctx context.Context, a *activity.Activity) ([]activity.Photo, error)

	BadgesForActivity(ctx context.Context, a *activity.Activity) ([]activity.Badge, error)

	// ImageForBadge downloads the badge image and returns its local path
	ImageForBadge(ctx context.Context, b activity.Badge) (string, error)
}

// RouteRenderer produces a local route image for an encoded polyline.
// An empty path with a nil error means no image is available.
type RouteRenderer interface {
	Render(ctx context.Context, polyline string) (string, error)
}

// Options selects which optional decorations a download performs
type Options struct {
	Badges        bool
	Photos        bool
	Routes        bool
	ActivityTypes []string
}

// DefaultOptions enables every decoration for runs
func DefaultOptions() Options {
	return Options{Badges: true, Photos: true, Routes: true, ActivityTypes: []string{"run"}}
}

// Collection holds one service's activities, ordered oldest to newest
type Collection struct {
	source  Source
	primary bool
	routes  RouteRenderer

	activities []*activity.Activity
	byID       map[string]*activity.Activity
}

// New creates a secondary collection
func New(src Source) *Collection {
	return &Collection{source: src, byID: make(map[string]*activity.Activity)}
}

// NewPrimary creates the collection entries are written for. Only the
// primary gets route images.
func NewPrimary(src Source, routes RouteRenderer) *Collection {
	c := New(src)
	c.primary = true
	c.routes = routes
	return c
}

func (c *Collection) Service() activity.Service {
	return activity.Service{ID: c.source.ID(), Name: c.source.Name()}
}

// Activities returns the activities oldest to newest
func (c *Collection) Activities() []*activity.Activity {
	return c.activities
}

func (c *Collection) Len() int { return len(c.activities) }

// Get looks up an activity by its service-local id
func (c *Collection) Get(id string) (*activity.Activity, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// Download fetches the window's activities and decorates them. Failures of
// optional decorations are logged and skipped.
func (c *Collection) Download(ctx context.Context, w Window, opts Options) error {
	log := logging.Ctx(ctx).With().Str("service", c.source.ID()).Logger()

	fetched, err := c.source.DownloadActivities(ctx, w, opts.ActivityTypes)
	if err != nil {
		return fmt.Errorf("downloading %s activities: %w", c.source.Name(), err)
	}

	for _, a := range fetched {
		if !w.Contains(a.Start) {
			log.Debug().Str("activity", a.ID).Time("start", a.Start).Msg("Outside window, dropping")
			continue
		}
		if len(opts.ActivityTypes) > 0 && !slices.Contains(opts.ActivityTypes, a.Type) {
			log.Debug().Str("activity", a.ID).Str("type", a.Type).Msg("Activity type not selected, dropping")
			continue
		}
		if _, dup := c.byID[a.ID]; dup {
			log.Warn().Str("activity", a.ID).Msg("Duplicate activity id, keeping the first")
			continue
		}
		c.byID[a.ID] = a
		c.activities = append(c.activities, a)
	}

	sort.SliceStable(c.activities, func(i, j int) bool {
		return c.activities[i].Start.Before(c.activities[j].Start)
	})

	for _, a := range c.activities {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		a.URL = c.source.URLForActivity(a)
		if opts.Photos {
			c.attachPhotos(ctx, a)
		}
		if opts.Badges {
			c.attachBadges(ctx, a)
		}
		if opts.Routes && c.primary && c.routes != nil {
			c.attachRoute(ctx, a)
		}
	}

	log.Info().Int("activities", len(c.activities)).Str("window", w.String()).Msg("Downloaded activities")
	return nil
}

func (c *Collection) attachPhotos(ctx context.Context, a *activity.Activity) {
	photos, err := c.source.PhotosForActivity(ctx, a)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("activity", a.Key().String()).Msg("Could not download photos")
		return
	}
	a.Photos = append(a.Photos, photos...)
}

// attachBadges prepends each badge image, so later badges come first
func (c *Collection) attachBadges(ctx context.Context, a *activity.Activity) {
	log := logging.Ctx(ctx)
	badges, err := c.source.BadgesForActivity(ctx, a)
	if err != nil {
		log.Warn().Err(err).Str("activity", a.Key().String()).Msg("Could not load badges")
		return
	}

	for _, b := range badges {
		a.Badges = append(a.Badges, b)
		path, err := c.source.ImageForBadge(ctx, b)
		if err != nil {
			log.Warn().Err(err).Str("badge", b.Name).Msg("Could not download badge image")
			continue
		}
		if path == "" {
			continue
		}
		a.PrependPhoto(activity.Photo{Service: c.source.ID(), Path: path, Kind: activity.PhotoBadge})
	}
}

func (c *Collection) attachRoute(ctx context.Context, a *activity.Activity) {
	if a.Polyline == "" {
		return
	}
	path, err := c.routes.Render(ctx, a.Polyline)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("activity", a.Key().String()).Msg("Could not render route")
		return
	}
	if path == "" {
		return
	}
	a.PrependPhoto(activity.Photo{Service: c.source.ID(), Path: path, Kind: activity.PhotoRoute})
}

// Cleanup removes every file this collection's activities own. Linked
// activities belong to their own collection and are left alone.
func (c *Collection) Cleanup() error {
	var errs []error
	for _, a := range c.activities {
		for _, p := range a.Photos {
			if p.Path == "" {
				continue
			}
			if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("removing %s: %w", p.Path, err))
			}
		}
	}
	return errors.Join(errs...)
}
