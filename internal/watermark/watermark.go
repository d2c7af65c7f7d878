// Package watermark persists the end of the last processed window in a
// plain text state file so the next run can resume from it.
package watermark

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Layout is the timestamp format of the state file, in local time
const Layout = "2006-01-02T15:04:05"

const (
	commandPrefix = "Command: "
	startPrefix   = "LastUpdateStart: "
	stopPrefix    = "LastUpdateStop: "
)

// ErrNoStop is returned when a state file has no LastUpdateStop line
var ErrNoStop = errors.New("state file has no LastUpdateStop line")

// State is the content of a state file
type State struct {
	Command string
	Start   time.Time
	Stop    time.Time
}

// Read returns the LastUpdateStop instant recorded in path, interpreted in loc
func Read(path string, loc *time.Location) (time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading state file: %w", err)
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		value, ok := strings.CutPrefix(sc.Text(), stopPrefix)
		if !ok {
			continue
		}
		t, err := time.ParseInLocation(Layout, strings.TrimSpace(value), loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing LastUpdateStop in %s: %w", path, err)
		}
		return t, nil
	}
	if err := sc.Err(); err != nil {
		return time.Time{}, fmt.Errorf("scanning state file: %w", err)
	}
	return time.Time{}, fmt.Errorf("%s: %w", path, ErrNoStop)
}

// Write replaces the state file with s
func Write(path string, s State) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s\n", commandPrefix, s.Command)
	fmt.Fprintf(&b, "%s%s\n", startPrefix, s.Start.Format(Layout))
	fmt.Fprintf(&b, "%s%s\n", stopPrefix, s.Stop.Format(Layout))

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
