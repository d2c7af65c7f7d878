// Package report prints a summary of a journal run for the terminal.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/guptarohit/asciigraph"

	"runjournal/internal/activity"
	"runjournal/internal/match"
	"runjournal/internal/service"
	"runjournal/internal/units"
)

// minChartSplits is the fewest splits worth charting
const minChartSplits = 3

// Render writes the run summary to w, with distances and paces in unit
func Render(w io.Writer, res *service.RunResult, unit units.Unit) error {
	var lines []string

	lines = append(lines, titleStyle.Render(fmt.Sprintf("Journal run %s", res.RunID)))
	lines = append(lines, labelStyle.Render("Window: ")+res.Window.String())
	lines = append(lines, labelStyle.Render("Written: ")+english.Plural(len(res.Entries), "entry", "entries"))
	lines = append(lines, "")

	manual := manualKeys(res.Merges)
	for _, a := range res.Activities {
		line, err := activityLine(a, unit)
		if err != nil {
			return err
		}
		lines = append(lines, entryStyle.Render(line))
		for _, l := range a.Linked {
			note := ""
			if manual[l.Key()] {
				note = " (manual)"
			}
			lines = append(lines, linkedStyle.Render(fmt.Sprintf("  + %s %s%s", l.Service.Name, l.ID, note)))
		}
		if chart := paceChart(a, unit); chart != "" {
			lines = append(lines, chart)
		}
	}

	for _, m := range res.Merges {
		for _, u := range m.Unmatched {
			lines = append(lines, warnStyle.Render(fmt.Sprintf("Unmatched %s activity %s on %s",
				m.Service.Name, u.ID, u.Start.Format(time.DateTime))))
		}
	}
	for _, err := range res.Errors {
		lines = append(lines, errorStyle.Render("Error: "+err.Error()))
	}

	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
	return err
}

func activityLine(a *activity.Activity, unit units.Unit) (string, error) {
	dist, err := a.Distance.In(unit)
	if err != nil {
		return "", err
	}
	line := fmt.Sprintf("%s  %s %s  %s", a.Start.Format(time.DateTime), humanize.FtoaWithDigits(math.Round(dist*100)/100, 2), unit, a.Service.Name)

	if ss := a.EffectiveSplits(); len(ss) > 0 {
		pace, err := ss[len(ss)-1].TotalPace.In(units.PaceUnitFor(unit))
		if err != nil {
			return "", err
		}
		line += fmt.Sprintf("  %s/%s", units.TimeString(pace), unit)
	}
	return line, nil
}

// paceChart plots split paces in minutes per unit, or "" for short runs
func paceChart(a *activity.Activity, unit units.Unit) string {
	ss := a.EffectiveSplits()
	if len(ss) < minChartSplits {
		return ""
	}

	paceUnit := units.PaceUnitFor(unit)
	data := make([]float64, 0, len(ss))
	for _, s := range ss {
		p, err := s.SplitPace.In(paceUnit)
		if err != nil {
			return ""
		}
		data = append(data, p/60)
	}

	chart := asciigraph.Plot(data,
		asciigraph.Height(6),
		asciigraph.Width(40),
		asciigraph.Precision(2),
		asciigraph.Caption(fmt.Sprintf("split pace (min/%s)", unit)),
	)
	return chartStyle.Render(strings.TrimRight(chart, "\n"))
}

func manualKeys(merges []*match.Result) map[activity.Key]bool {
	out := make(map[activity.Key]bool)
	for _, m := range merges {
		for _, p := range m.Pairs {
			if p.Manual {
				out[p.Secondary.Key()] = true
			}
		}
	}
	return out
}
