// Package journal renders merged activities as journal entries and hands
// them to a journaling tool.
package journal

import (
	"fmt"
	"strings"
	"time"

	"runjournal/internal/activity"
	"runjournal/internal/splits"
	"runjournal/internal/units"
)

const (
	DefaultBaseTag     = "dayonerun"
	DefaultTitleMarker = "::Location="
)

// Entry is a rendered journal entry
type Entry struct {
	Title      string
	Text       string
	Date       time.Time
	Tags       []string
	Coordinate *activity.Coordinate
	Photos     []string
}

// Formatter renders entries. The zero value is not usable; use NewFormatter.
type Formatter struct {
	BaseTag      string
	TitleMarker  string
	DistanceUnit units.Unit
}

func NewFormatter(baseTag, titleMarker string, distanceUnit units.Unit) *Formatter {
	if baseTag == "" {
		baseTag = DefaultBaseTag
	}
	if titleMarker == "" {
		titleMarker = DefaultTitleMarker
	}
	return &Formatter{BaseTag: baseTag, TitleMarker: titleMarker, DistanceUnit: distanceUnit}
}

// Format renders a primary activity together with everything linked to it.
// userTags follow the activity's own tags. The coordinate is only carried
// when includeCoordinates is set.
func (f *Formatter) Format(a *activity.Activity, userTags []string, includeCoordinates bool) (Entry, error) {
	table, err := SplitTable(a.EffectiveSplits(), f.DistanceUnit)
	if err != nil {
		return Entry{}, fmt.Errorf("formatting splits for %s: %w", a.Key(), err)
	}

	e := Entry{
		Title: f.Title(a),
		Date:  a.Start,
		Tags:  f.Tags(a, userTags),
	}
	if includeCoordinates {
		e.Coordinate = a.EffectiveCoordinate()
	}
	for _, p := range a.AllPhotos() {
		e.Photos = append(e.Photos, p.Path)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", e.Title)
	fmt.Fprintf(&b, "# Notes\n%s\n\n", notes(a))
	fmt.Fprintf(&b, "# Splits\n%s\n", table)

	if badges := a.AllBadges(); len(badges) > 0 {
		b.WriteString("# Badges\n")
		for _, bd := range badges {
			fmt.Fprintf(&b, "   * **%s**: %s\n", bd.Name, bd.Requirement)
		}
		b.WriteString("\n")
	}

	if notables := a.AllNotables(); len(notables) > 0 {
		b.WriteString("# Notables\n")
		for _, n := range notables {
			fmt.Fprintf(&b, "   * %s\n", n.Text)
		}
		b.WriteString("\n")
	}

	b.WriteString("# Misc\n")
	for _, x := range a.All() {
		fmt.Fprintf(&b, "   * [%s Link](%s) ID: `%s`\n", x.Service.Name, x.URL, x.ID)
	}

	e.Text = b.String()
	return e, nil
}

// Title picks the first marker line in the notes, then the service's own
// title, then a generated one
func (f *Formatter) Title(a *activity.Activity) string {
	for _, x := range a.All() {
		for _, line := range strings.Split(x.Notes, "\n") {
			line = strings.TrimSpace(line)
			if rest, ok := strings.CutPrefix(line, f.TitleMarker); ok {
				if t := strings.TrimSpace(rest); t != "" {
					return t
				}
			}
		}
	}
	for _, x := range a.All() {
		if t := strings.TrimSpace(x.Title); t != "" {
			return t
		}
	}
	return fmt.Sprintf("%s Activity on %s", a.Service.Name, a.Start.Format(time.DateTime))
}

// Tags returns the base tag, every service and derived tag over the
// activity and its links, then userTags. Duplicates are kept.
func (f *Formatter) Tags(a *activity.Activity, userTags []string) []string {
	all := a.AllTags()
	out := make([]string, 0, 1+len(all)+len(userTags))
	out = append(out, f.BaseTag)
	for _, t := range all {
		if !t.Derived {
			out = append(out, t.Name)
		}
	}
	for _, t := range all {
		if t.Derived {
			out = append(out, t.Name)
		}
	}
	return append(out, userTags...)
}

// notes returns the primary's notes, falling back to the first linked notes
func notes(a *activity.Activity) string {
	for _, x := range a.All() {
		if n := strings.TrimSpace(x.Notes); n != "" {
			return n
		}
	}
	return ""
}

// SplitTable renders splits as a markdown table in the given distance unit
func SplitTable(ss []splits.Split, unit units.Unit) (string, error) {
	paceUnit := units.PaceUnitFor(unit)

	var b strings.Builder
	b.WriteString("Distance | Total Time | Split Time | Split Pace | Total Pace\n")
	b.WriteString("-------- | ---------- | ---------- | ---------- | ----------\n")
	for _, s := range ss {
		dist, err := s.TotalDistance.In(unit)
		if err != nil {
			return "", err
		}
		total, err := s.TotalTime.In(units.Second)
		if err != nil {
			return "", err
		}
		split, err := s.SplitTime.In(units.Second)
		if err != nil {
			return "", err
		}
		splitPace, err := s.SplitPace.In(paceUnit)
		if err != nil {
			return "", err
		}
		totalPace, err := s.TotalPace.In(paceUnit)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%.2f | %s | %s | %s | %s\n", dist,
			units.TimeString(total), units.TimeString(split),
			units.TimeString(splitPace), units.TimeString(totalPace))
	}
	return b.String(), nil
}

