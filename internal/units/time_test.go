package units

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"
)

func TestParseUTC(t *testing.T) {
	got, err := ParseUTC("2016-11-17T15:59:56Z")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2016, 11, 17, 15, 59, 56, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseUTC = %v, want %v", got, want)
	}

	var fe *FormatError
	if _, err := ParseUTC("2016-11-17 15:59:56"); !errors.As(err, &fe) {
		t.Errorf("ParseUTC(bad) error = %v, want FormatError", err)
	}
}

func TestParseLocalOffset(t *testing.T) {
	tests := []struct {
		in         string
		wantUTC    time.Time
		wantOffset int
	}{
		{
			in:         "2016-11-17T07:11:00-08:00",
			wantUTC:    time.Date(2016, 11, 17, 15, 11, 0, 0, time.UTC),
			wantOffset: -8 * 3600,
		},
		{
			in:         "2016-11-17T07:11:00+05:30",
			wantUTC:    time.Date(2016, 11, 17, 1, 41, 0, 0, time.UTC),
			wantOffset: 5*3600 + 30*60,
		},
		{
			in:         "2016-11-17T07:11:00+00:00",
			wantUTC:    time.Date(2016, 11, 17, 7, 11, 0, 0, time.UTC),
			wantOffset: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLocalOffset(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.wantUTC) {
				t.Errorf("instant = %v, want %v", got.UTC(), tt.wantUTC)
			}
			if _, off := got.Zone(); off != tt.wantOffset {
				t.Errorf("offset = %d, want %d", off, tt.wantOffset)
			}
			if got.Hour() != 7 || got.Minute() != 11 {
				t.Errorf("local clock = %02d:%02d, want 07:11", got.Hour(), got.Minute())
			}
		})
	}
}

func TestParseLocalOffsetErrors(t *testing.T) {
	for _, in := range []string{
		"2016-11-17T07:11:00Z",
		"2016-11-17T07:11:00-0a:00",
		"2016-11-17T07:11:00*08:00",
		"07:11",
		"",
	} {
		var fe *FormatError
		if _, err := ParseLocalOffset(in); !errors.As(err, &fe) {
			t.Errorf("ParseLocalOffset(%q) error = %v, want FormatError", in, err)
		}
	}
}

func TestParseBadgeTime(t *testing.T) {
	for _, in := range []string{"2016-11-17T15:59:56", "2016-11-17T15:59:56.123"} {
		got, err := ParseBadgeTime(in)
		if err != nil {
			t.Fatalf("ParseBadgeTime(%q): %v", in, err)
		}
		if got.Location() != time.UTC || got.Hour() != 15 || got.Second() != 56 {
			t.Errorf("ParseBadgeTime(%q) = %v", in, got)
		}
	}
}

func TestZoneFromStrava(t *testing.T) {
	loc := ZoneFromStrava("(GMT-08:00) America/Los_Angeles")
	if loc.String() != "America/Los_Angeles" {
		t.Errorf("ZoneFromStrava = %s, want America/Los_Angeles", loc)
	}
	if got := ZoneFromStrava("(GMT+00:00) Not/AZone"); got != time.Local {
		t.Errorf("unknown zone = %s, want Local", got)
	}

	start := time.Date(2016, 11, 17, 15, 59, 56, 0, time.UTC)
	if h := InZone(start, "(GMT-08:00) America/Los_Angeles").Hour(); h != 7 {
		t.Errorf("InZone hour = %d, want 7", h)
	}
}
