package smashrun

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"

	"runjournal/internal/activity"
	"runjournal/internal/collection"
	"runjournal/internal/logging"
	"runjournal/internal/splits"
	"runjournal/internal/units"
)

var Service = activity.Service{ID: "smashrun", Name: "Smashrun"}

var activityTypes = map[string]string{
	"running": "run",
}

// Downloader fetches a URL to a local file
type Downloader interface {
	Download(ctx context.Context, rawURL string) (string, error)
}

// Source exposes Smashrun activities to a collection. User info and the
// badge list are fetched once and reused.
type Source struct {
	client *Client
	fetch  Downloader

	userName string
	badges   []activity.Badge
	loaded   bool
}

var _ collection.Source = (*Source)(nil)

func NewSource(client *Client, fetch Downloader) *Source {
	return &Source{client: client, fetch: fetch}
}

func (s *Source) ID() string   { return Service.ID }
func (s *Source) Name() string { return Service.Name }

func (s *Source) DownloadActivities(ctx context.Context, w collection.Window, types []string) ([]*activity.Activity, error) {
	log := logging.Ctx(ctx).With().Str("service", Service.ID).Logger()
	log.Info().Time("start", w.Start).Time("stop", w.Stop).Msg("Retrieving activities")

	if s.userName == "" {
		u, err := s.client.GetUserInfo(ctx)
		if err != nil {
			return nil, err
		}
		s.userName = u.UserName
	}

	briefs, err := s.client.GetAllActivities(ctx, w.Start)
	if err != nil {
		return nil, err
	}

	var out []*activity.Activity
	for _, r := range briefs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start, err := units.ParseLocalOffset(r.StartDateTimeLocal)
		if err != nil {
			return nil, fmt.Errorf("activity %d: %w", r.ActivityID, err)
		}
		if !start.Before(w.Stop) {
			log.Debug().Int64("activity", r.ActivityID).Time("start", start).Msg("Dropping activity after stop")
			continue
		}

		kind, ok := activityTypes[r.ActivityType]
		if !ok {
			log.Warn().Int64("activity", r.ActivityID).Str("type", r.ActivityType).Msg("Unknown activity type, ignoring")
			continue
		}
		if len(types) > 0 && !slices.Contains(types, kind) {
			log.Info().Int64("activity", r.ActivityID).Str("type", r.ActivityType).Msg("Dropping activity type")
			continue
		}

		details, err := s.client.GetActivity(ctx, r.ActivityID)
		if err != nil {
			return nil, err
		}
		a, err := convert(ctx, details)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("activity", a.ID).Float64("meters", a.DistanceMeters()).Msg("Converted activity")
		out = append(out, a)
	}

	log.Info().Int("activities", len(out)).Msg("Downloaded activities")
	return out, nil
}

// convert builds an activity from a detailed Smashrun payload
func convert(ctx context.Context, d *Activity) (*activity.Activity, error) {
	start, err := units.ParseLocalOffset(d.StartDateTimeLocal)
	if err != nil {
		return nil, fmt.Errorf("activity %d: %w", d.ActivityID, err)
	}

	a := activity.New(Service, strconv.FormatInt(d.ActivityID, 10))
	a.Type = activityTypes[d.ActivityType]
	a.Start = start
	a.Distance = units.Meters(d.Distance * units.MetersPerKm)
	a.Notes = d.Notes

	lat, lng := d.Recording("latitude"), d.Recording("longitude")
	if n := min(len(lat), len(lng)); n > 0 {
		coords := make([][]float64, n)
		for i := 0; i < n; i++ {
			coords[i] = []float64{lat[i], lng[i]}
		}
		a.Polyline = string(polyline.EncodeCoords(coords))
		a.Coordinate = &activity.Coordinate{Lat: lat[n-1], Lng: lng[n-1]}
	}

	a.Splits, err = splits.Calculate(d.Recording("distance"), d.Recording("clock"), splits.DefaultInterval)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("activity", d.ActivityID).Msg("Could not compute splits")
		a.Splits = nil
	}
	return a, nil
}

func (s *Source) URLForActivity(a *activity.Activity) string {
	return fmt.Sprintf("http://smashrun.com/%s/run/%s", s.userName, a.ID)
}

// Smashrun has no photos
func (s *Source) PhotosForActivity(ctx context.Context, a *activity.Activity) ([]activity.Photo, error) {
	return nil, nil
}

// BadgesForActivity returns the badges earned on the activity's local
// calendar day. Two runs on the same day both get the day's badges.
func (s *Source) BadgesForActivity(ctx context.Context, a *activity.Activity) ([]activity.Badge, error) {
	if err := s.loadBadges(ctx); err != nil {
		return nil, err
	}

	var out []activity.Badge
	for _, b := range s.badges {
		if earnedOn(b, a.Start) {
			logging.Ctx(ctx).Info().Str("badge", b.Name).Str("activity", a.ID).Msg("Adding badge")
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Source) loadBadges(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	listed, err := s.client.GetBadges(ctx)
	if err != nil {
		return err
	}

	for _, b := range listed {
		earned, err := units.ParseBadgeTime(b.DateEarnedUTC)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("badge", b.Name).Msg("Skipping badge with bad earned date")
			continue
		}
		s.badges = append(s.badges, activity.Badge{
			Service:     Service.ID,
			ID:          strconv.Itoa(b.ID),
			Name:        b.Name,
			Requirement: b.Requirement,
			ImageURL:    b.Image,
			EarnedAt:    earned,
		})
	}
	sort.SliceStable(s.badges, func(i, j int) bool {
		return s.badges[i].EarnedAt.Before(s.badges[j].EarnedAt)
	})
	s.loaded = true
	return nil
}

// ImageForBadge downloads the full size badge image, falling back to the
// listed size
func (s *Source) ImageForBadge(ctx context.Context, b activity.Badge) (string, error) {
	if b.ImageURL == "" {
		return "", nil
	}
	log := logging.Ctx(ctx)

	full := FullSizeImageURL(b.ImageURL)
	if full != b.ImageURL {
		log.Info().Str("badge", b.Name).Msg("Downloading full size image")
		p, err := s.fetch.Download(ctx, full)
		if err == nil {
			return p, nil
		}
		log.Warn().Err(err).Str("badge", b.Name).Msg("Unable to download full size badge image, trying listed size")
	}
	return s.fetch.Download(ctx, b.ImageURL)
}

// FullSizeImageURL swaps a "medium" parent directory for "full"
func FullSizeImageURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	dir, file := path.Split(u.Path)
	dir = strings.TrimSuffix(dir, "/")
	if path.Base(dir) != "medium" {
		return raw
	}
	u.Path = path.Join(path.Dir(dir), "full", file)
	return u.String()
}

// earnedOn reports whether the badge was earned on the given local day
func earnedOn(b activity.Badge, day time.Time) bool {
	y, m, d := day.Date()
	by, bm, bd := b.EarnedAt.In(day.Location()).Date()
	return by == y && bm == m && bd == d
}
