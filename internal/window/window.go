// Package window resolves command line options into the time window a run
// processes.
package window

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"runjournal/internal/collection"
	"runjournal/internal/watermark"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
)

var (
	ErrStartAndStateFile = errors.New("specify at most one of --start and --state_file")
	ErrDaysAndStateFile  = errors.New("specify at most one of --days and --state_file")
	ErrStopAndDays       = errors.New("specify at most one of --stop and --days")
	ErrEmptyWindow       = errors.New("window stop is not after its start")
)

// Options are the window-related command line flags
type Options struct {
	Start           string // YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS
	Stop            string
	Days            int
	StateFile       string
	CreateStateFile bool
}

// Validate reports conflicting flags
func (o Options) Validate() error {
	resuming := o.StateFile != "" && !o.CreateStateFile
	if resuming && o.Start != "" {
		return ErrStartAndStateFile
	}
	if resuming && o.Days > 0 {
		return ErrDaysAndStateFile
	}
	if o.Stop != "" && o.Days > 0 {
		return ErrStopAndDays
	}
	if o.Days < 0 {
		return fmt.Errorf("--days must not be negative, got %d", o.Days)
	}
	return nil
}

// Resolve computes the window in loc. Start comes from --start, else the
// state file's last stop, else yesterday at midnight. Stop comes from
// --stop, else the end of the day --days after the start date, else now.
func Resolve(o Options, now time.Time, loc *time.Location) (collection.Window, error) {
	if err := o.Validate(); err != nil {
		return collection.Window{}, err
	}
	now = now.In(loc)

	var w collection.Window
	var err error
	switch {
	case o.Start != "":
		if w.Start, err = parse(o.Start, loc); err != nil {
			return collection.Window{}, fmt.Errorf("parsing --start: %w", err)
		}
	case o.StateFile != "" && !o.CreateStateFile:
		if w.Start, err = watermark.Read(o.StateFile, loc); err != nil {
			return collection.Window{}, err
		}
	default:
		y, m, d := now.Date()
		w.Start = time.Date(y, m, d-1, 0, 0, 0, 0, loc)
	}

	switch {
	case o.Stop != "":
		if w.Stop, err = parse(o.Stop, loc); err != nil {
			return collection.Window{}, fmt.Errorf("parsing --stop: %w", err)
		}
	case o.Days > 0:
		y, m, d := w.Start.Date()
		w.Stop = time.Date(y, m, d+o.Days+1, 0, 0, 0, 0, loc)
	default:
		w.Stop = now
	}

	if !w.Stop.After(w.Start) {
		return collection.Window{}, fmt.Errorf("%w: %s", ErrEmptyWindow, w)
	}
	return w, nil
}

func parse(s string, loc *time.Location) (time.Time, error) {
	layout := dateLayout
	if strings.Contains(s, "T") {
		layout = dateTimeLayout
	}
	return time.ParseInLocation(layout, s, loc)
}
