package collection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"runjournal/internal/activity"
	"runjournal/internal/units"
)

var day = time.Date(2016, 11, 17, 0, 0, 0, 0, time.UTC)

type fakeSource struct {
	dir         string
	activities  []*activity.Activity
	downloadErr error
	photoErr    error
	badges      map[string][]activity.Badge
}

func (f *fakeSource) ID() string   { return "fake" }
func (f *fakeSource) Name() string { return "Fake" }

func (f *fakeSource) DownloadActivities(ctx context.Context, w Window, types []string) ([]*activity.Activity, error) {
	return f.activities, f.downloadErr
}

func (f *fakeSource) URLForActivity(a *activity.Activity) string {
	return "https://fake.example/" + a.ID
}

func (f *fakeSource) PhotosForActivity(ctx context.Context, a *activity.Activity) ([]activity.Photo, error) {
	if f.photoErr != nil {
		return nil, f.photoErr
	}
	return []activity.Photo{{Service: "fake", Path: f.file("photo-" + a.ID)}}, nil
}

func (f *fakeSource) BadgesForActivity(ctx context.Context, a *activity.Activity) ([]activity.Badge, error) {
	return f.badges[a.ID], nil
}

func (f *fakeSource) ImageForBadge(ctx context.Context, b activity.Badge) (string, error) {
	return f.file("badge-" + b.Name), nil
}

func (f *fakeSource) file(name string) string {
	p := filepath.Join(f.dir, name)
	_ = os.WriteFile(p, []byte("img"), 0o644)
	return p
}

type fakeRoutes struct{ path string }

func (r fakeRoutes) Render(ctx context.Context, polyline string) (string, error) {
	return r.path, nil
}

func run(id string, start time.Time, typ string) *activity.Activity {
	a := activity.New(activity.Service{ID: "fake", Name: "Fake"}, id)
	a.Start = start
	a.Type = typ
	a.Distance = units.Meters(5000)
	return a
}

func testWindow() Window {
	return Window{Start: day, Stop: day.Add(24 * time.Hour)}
}

func TestWindowContains(t *testing.T) {
	w := testWindow()
	tests := []struct {
		t    time.Time
		want bool
	}{
		{day, true},
		{day.Add(12 * time.Hour), true},
		{day.Add(24 * time.Hour), false},
		{day.Add(-time.Second), false},
	}
	for _, tt := range tests {
		if got := w.Contains(tt.t); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestDownloadOrdersAndFilters(t *testing.T) {
	src := &fakeSource{
		dir: t.TempDir(),
		activities: []*activity.Activity{
			run("late", day.Add(18*time.Hour), "run"),
			run("early", day.Add(6*time.Hour), "run"),
			run("ride", day.Add(9*time.Hour), "ride"),
			run("yesterday", day.Add(-time.Hour), "run"),
			run("early", day.Add(7*time.Hour), "run"),
		},
	}
	c := New(src)

	err := c.Download(context.Background(), testWindow(), Options{ActivityTypes: []string{"run"}})
	if err != nil {
		t.Fatal(err)
	}

	got := c.Activities()
	if len(got) != 2 {
		t.Fatalf("Len = %d, want 2", len(got))
	}
	if got[0].ID != "early" || got[1].ID != "late" {
		t.Errorf("order = %s, %s; want early, late", got[0].ID, got[1].ID)
	}
	if got[0].Start.Hour() != 6 {
		t.Error("duplicate id replaced the first activity")
	}
	if got[0].URL != "https://fake.example/early" {
		t.Errorf("URL = %q", got[0].URL)
	}
	if _, ok := c.Get("ride"); ok {
		t.Error("filtered activity is retrievable")
	}
	if len(got[0].Photos) != 0 {
		t.Error("photos attached though not requested")
	}
}

func TestDownloadDecorations(t *testing.T) {
	dir := t.TempDir()
	routePath := filepath.Join(dir, "route.png")
	if err := os.WriteFile(routePath, []byte("map"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := run("1", day.Add(6*time.Hour), "run")
	a.Polyline = "_p~iF~ps|U_ulLnnqC"
	src := &fakeSource{
		dir:        dir,
		activities: []*activity.Activity{a},
		badges: map[string][]activity.Badge{
			"1": {{Name: "first"}, {Name: "second"}},
		},
	}
	c := NewPrimary(src, fakeRoutes{path: routePath})

	if err := c.Download(context.Background(), testWindow(), DefaultOptions()); err != nil {
		t.Fatal(err)
	}

	want := []activity.PhotoKind{activity.PhotoRoute, activity.PhotoBadge, activity.PhotoBadge, activity.PhotoService}
	if len(a.Photos) != len(want) {
		t.Fatalf("Photos = %+v", a.Photos)
	}
	for i, k := range want {
		if a.Photos[i].Kind != k {
			t.Errorf("Photos[%d].Kind = %s, want %s", i, a.Photos[i].Kind, k)
		}
	}
	if filepath.Base(a.Photos[1].Path) != "badge-second" {
		t.Errorf("first badge image = %s, want the last badge", a.Photos[1].Path)
	}
	if len(a.Badges) != 2 {
		t.Errorf("Badges = %+v", a.Badges)
	}

	if err := c.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	for _, p := range a.Photos {
		if _, err := os.Stat(p.Path); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s still exists after cleanup", p.Path)
		}
	}
	// A second cleanup finds nothing left and still succeeds.
	if err := c.Cleanup(); err != nil {
		t.Errorf("second Cleanup: %v", err)
	}
}

func TestSecondaryGetsNoRoute(t *testing.T) {
	a := run("1", day.Add(6*time.Hour), "run")
	a.Polyline = "abc"
	src := &fakeSource{dir: t.TempDir(), activities: []*activity.Activity{a}}
	c := New(src)

	if err := c.Download(context.Background(), testWindow(), DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	for _, p := range a.Photos {
		if p.Kind == activity.PhotoRoute {
			t.Error("secondary collection attached a route image")
		}
	}
}

func TestDownloadDegradesOnPhotoFailure(t *testing.T) {
	src := &fakeSource{
		dir:        t.TempDir(),
		activities: []*activity.Activity{run("1", day.Add(time.Hour), "run")},
		photoErr:   errors.New("boom"),
	}
	c := New(src)
	if err := c.Download(context.Background(), testWindow(), DefaultOptions()); err != nil {
		t.Fatalf("photo failure should not fail the download: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestDownloadError(t *testing.T) {
	src := &fakeSource{downloadErr: errors.New("api down")}
	c := New(src)
	if err := c.Download(context.Background(), testWindow(), DefaultOptions()); err == nil {
		t.Error("expected error")
	}
}

func TestDownloadCancelled(t *testing.T) {
	src := &fakeSource{
		dir:        t.TempDir(),
		activities: []*activity.Activity{run("1", day.Add(time.Hour), "run")},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := New(src).Download(ctx, testWindow(), DefaultOptions()); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
