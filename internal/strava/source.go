package strava

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"runjournal/internal/activity"
	"runjournal/internal/collection"
	"runjournal/internal/logging"
	"runjournal/internal/splits"
	"runjournal/internal/units"
)

const DefaultPhotoSize = 1000

var Service = activity.Service{ID: "strava", Name: "Strava"}

// activityTypes maps Strava sport types to journal activity types
var activityTypes = map[string]string{
	"Run":        "run",
	"TrailRun":   "run",
	"VirtualRun": "run",
	"Walk":       "walk",
	"Hike":       "hike",
	"Ride":       "ride",
}

// workoutTags are the derived tags for run workout types
var workoutTags = map[int]string{
	1: "race",
	2: "long run",
	3: "workout",
}

// Downloader fetches a URL to a local file
type Downloader interface {
	Download(ctx context.Context, rawURL string) (string, error)
}

// Source exposes Strava activities to a collection
type Source struct {
	client    *Client
	fetch     Downloader
	photoSize int
}

var _ collection.Source = (*Source)(nil)

func NewSource(client *Client, fetch Downloader, photoSize int) *Source {
	if photoSize <= 0 {
		photoSize = DefaultPhotoSize
	}
	return &Source{client: client, fetch: fetch, photoSize: photoSize}
}

func (s *Source) ID() string   { return Service.ID }
func (s *Source) Name() string { return Service.Name }

// ActivityType normalizes a Strava sport type, returning "" when unknown
func ActivityType(sportType string) string {
	return activityTypes[sportType]
}

func (s *Source) DownloadActivities(ctx context.Context, w collection.Window, types []string) ([]*activity.Activity, error) {
	log := logging.Ctx(ctx).With().Str("service", Service.ID).Logger()
	log.Info().Time("start", w.Start).Time("stop", w.Stop).Msg("Retrieving activities")

	summaries, err := s.client.GetAllActivities(ctx, w.Start, w.Stop, nil)
	if err != nil {
		return nil, err
	}

	var out []*activity.Activity
	for _, sum := range summaries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		kind := ActivityType(sum.Type)
		if kind == "" || (len(types) > 0 && !slices.Contains(types, kind)) {
			log.Debug().Int64("activity", sum.ID).Str("type", sum.Type).Msg("Dropping activity type")
			continue
		}

		details, err := s.client.GetActivity(ctx, sum.ID)
		if err != nil {
			return nil, err
		}
		a, err := s.convert(ctx, details)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("activity", a.ID).Float64("meters", a.DistanceMeters()).Msg("Converted activity")
		out = append(out, a)
	}

	log.Info().Int("activities", len(out)).Msg("Downloaded activities")
	return out, nil
}

// convert builds an activity from a detailed Strava payload
func (s *Source) convert(ctx context.Context, d *Activity) (*activity.Activity, error) {
	start, err := units.ParseUTC(d.StartDate)
	if err != nil {
		return nil, fmt.Errorf("activity %d: %w", d.ID, err)
	}

	a := activity.New(Service, strconv.FormatInt(d.ID, 10))
	a.Type = ActivityType(d.Type)
	a.Start = units.InZone(start, d.Timezone)
	a.Distance = units.Meters(d.Distance)
	a.Title = d.Name
	a.Notes = d.Description
	a.Polyline = d.Map.Polyline
	if a.Polyline == "" {
		a.Polyline = d.Map.SummaryPolyline
	}
	if len(d.EndLatLng) == 2 {
		a.Coordinate = &activity.Coordinate{Lat: d.EndLatLng[0], Lng: d.EndLatLng[1]}
	}

	for _, tag := range DerivedTags(d) {
		a.AddTag(tag)
	}
	for _, text := range Notables(d) {
		a.Notables = append(a.Notables, activity.Notable{Service: Service.ID, Text: text})
	}

	a.Splits, err = s.splits(ctx, d)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("activity", d.ID).Msg("Could not compute splits")
		a.Splits = nil
	}
	return a, nil
}

// DerivedTags returns the tags implied by the activity's workout type and
// commute flag
func DerivedTags(d *Activity) []string {
	var tags []string
	if d.WorkoutType != nil {
		if t, ok := workoutTags[*d.WorkoutType]; ok {
			tags = append(tags, t)
		}
	}
	if d.Commute {
		tags = append(tags, "commute")
	}
	return tags
}

// Notables lists best-effort records and segment achievements
func Notables(d *Activity) []string {
	var out []string
	for _, e := range d.BestEfforts {
		if e.PRRank == nil {
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s in %s", rankLabel(*e.PRRank), e.Name, units.TimeString(float64(e.ElapsedTime))))
	}
	for _, e := range d.Segments {
		for _, ach := range e.Achievements {
			switch ach.Type {
			case "pr":
				out = append(out, fmt.Sprintf("Segment %s: %s in %s", rankLabel(ach.Rank), e.Name, units.TimeString(float64(e.ElapsedTime))))
			case "overall":
				out = append(out, fmt.Sprintf("Top %d overall on segment %s", ach.Rank, e.Name))
			}
		}
	}
	return out
}

func rankLabel(rank int) string {
	switch rank {
	case 1:
		return "PR"
	case 2:
		return "2nd best"
	case 3:
		return "3rd best"
	}
	return fmt.Sprintf("%dth best", rank)
}

// splits prefers Strava's own mile splits and falls back to the streams
func (s *Source) splits(ctx context.Context, d *Activity) ([]splits.Split, error) {
	if len(d.Splits) > 0 {
		pre := make([]splits.Precomputed, 0, len(d.Splits))
		for _, sp := range d.Splits {
			pre = append(pre, splits.Precomputed{
				Distance:     units.Meters(sp.Distance),
				ElapsedTime:  units.Seconds(float64(sp.ElapsedTime)),
				AverageSpeed: sp.AverageSpeed,
			})
		}
		return splits.FromPrecomputed(pre)
	}

	streams, err := s.client.GetActivityStreams(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	if streams.Distance == nil || streams.Time == nil {
		return nil, nil
	}
	km := make([]float64, len(streams.Distance.Data))
	for i, m := range streams.Distance.Data {
		km[i] = m / units.MetersPerKm
	}
	return splits.Calculate(km, streams.Time.Data, splits.DefaultInterval)
}

func (s *Source) URLForActivity(a *activity.Activity) string {
	return fmt.Sprintf("https://www.strava.com/activities/%s", a.ID)
}

// PhotosForActivity downloads the activity's photos at the configured size.
// Photos that fail to download are skipped.
func (s *Source) PhotosForActivity(ctx context.Context, a *activity.Activity) ([]activity.Photo, error) {
	log := logging.Ctx(ctx)
	id, err := strconv.ParseInt(a.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("strava activity id %q: %w", a.ID, err)
	}

	log.Info().Str("activity", a.ID).Msg("Getting any photos")
	listed, err := s.client.GetActivityPhotos(ctx, id, s.photoSize)
	if err != nil {
		return nil, err
	}

	size := strconv.Itoa(s.photoSize)
	var photos []activity.Photo
	for _, p := range listed {
		u := p.URLs[size]
		if u == "" {
			log.Debug().Str("photo", p.UniqueID).Msg("No URL at requested size")
			continue
		}
		path, err := s.fetch.Download(ctx, u)
		if err != nil {
			log.Warn().Err(err).Str("photo", p.UniqueID).Msg("Could not download photo")
			continue
		}
		photos = append(photos, activity.Photo{Service: Service.ID, Path: path, Kind: activity.PhotoService})
	}
	return photos, nil
}

// Strava has no badges
func (s *Source) BadgesForActivity(ctx context.Context, a *activity.Activity) ([]activity.Badge, error) {
	return nil, nil
}

func (s *Source) ImageForBadge(ctx context.Context, b activity.Badge) (string, error) {
	return "", nil
}
