// Package match pairs activities recorded by a secondary service with the
// primary service's record of the same run, and links them.
package match

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"runjournal/internal/activity"
	"runjournal/internal/collection"
	"runjournal/internal/units"
)

const (
	DefaultMaxStartTimeDelta = 90 * time.Second
	DefaultMaxDistanceDelta  = 150.0 // meters
)

// ErrNoMatch means no primary activity corresponds to a secondary one
var ErrNoMatch = errors.New("no matching activity")

// ConfigError reports a manual match table that claims a secondary
// activity more than once
type ConfigError struct {
	Secondary activity.Key
	Claims    []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("manual matches claim %s more than once (primary ids %s)",
		e.Secondary, strings.Join(e.Claims, ", "))
}

// Entry is one manual override: service id to that service's activity id,
// all naming the same real-world run
type Entry map[string]string

type Config struct {
	MaxStartTimeDelta time.Duration
	MaxDistanceDelta  float64 // meters
	Manual            []Entry
}

// Pair is one secondary activity linked to a primary
type Pair struct {
	Primary   *activity.Activity
	Secondary *activity.Activity
	Manual    bool
}

// Result summarizes one merge of a secondary collection into the primary
type Result struct {
	Service   activity.Service
	Pairs     []Pair
	Unmatched []*activity.Activity
}

type Matcher struct {
	cfg Config
	log zerolog.Logger
}

// NewMatcher creates a matcher. Zero thresholds take the defaults.
func NewMatcher(cfg Config, log zerolog.Logger) *Matcher {
	if cfg.MaxStartTimeDelta <= 0 {
		cfg.MaxStartTimeDelta = DefaultMaxStartTimeDelta
	}
	if cfg.MaxDistanceDelta <= 0 {
		cfg.MaxDistanceDelta = DefaultMaxDistanceDelta
	}
	return &Matcher{cfg: cfg, log: log}
}

// Find returns the id of the primary activity that secondary records.
// Manual entries win over proximity. Proximity takes the first primary
// activity, oldest to newest, that started within MaxStartTimeDelta and
// whose distance is within MaxDistanceDelta.
func (m *Matcher) Find(primary *collection.Collection, secondary *activity.Activity) (string, error) {
	id, _, err := m.find(primary, secondary)
	return id, err
}

func (m *Matcher) find(primary *collection.Collection, secondary *activity.Activity) (string, bool, error) {
	primaryService := primary.Service().ID

	id, ok, err := m.manual(primaryService, secondary)
	if err != nil {
		return "", false, err
	}
	if ok {
		return id, true, nil
	}

	for _, candidate := range primary.Activities() {
		dt := secondary.Start.Sub(candidate.Start).Abs()
		delta, err := secondary.Distance.Sub(candidate.Distance)
		if err != nil {
			return "", false, fmt.Errorf("comparing %s with %s: %w", secondary.Key(), candidate.Key(), err)
		}
		dd, err := delta.Abs().In(units.Meter)
		if err != nil {
			return "", false, err
		}

		m.log.Debug().
			Str("secondary", secondary.Key().String()).
			Str("candidate", candidate.Key().String()).
			Dur("start_delta", dt).
			Float64("distance_delta_m", dd).
			Msg("Comparing activities")

		if dt < m.cfg.MaxStartTimeDelta && dd < m.cfg.MaxDistanceDelta {
			return candidate.ID, false, nil
		}
	}

	return "", false, fmt.Errorf("%w for %s", ErrNoMatch, secondary.Key())
}

func (m *Matcher) manual(primaryService string, secondary *activity.Activity) (string, bool, error) {
	var claims []string
	for _, e := range m.cfg.Manual {
		if e[secondary.Service.ID] != secondary.ID {
			continue
		}
		if pid, ok := e[primaryService]; ok {
			claims = append(claims, pid)
		}
	}
	switch len(claims) {
	case 0:
		return "", false, nil
	case 1:
		return claims[0], true, nil
	}
	sort.Strings(claims)
	return "", false, &ConfigError{Secondary: secondary.Key(), Claims: claims}
}

// Merge links every activity of secondary to its match in primary.
// Unmatched activities are reported, not fatal. A ConfigError aborts.
func (m *Matcher) Merge(primary, secondary *collection.Collection) (*Result, error) {
	res := &Result{Service: secondary.Service()}

	for _, act := range secondary.Activities() {
		id, manual, err := m.find(primary, act)
		if errors.Is(err, ErrNoMatch) {
			m.log.Warn().Str("activity", act.Key().String()).Time("start", act.Start).Msg("No matching activity found")
			res.Unmatched = append(res.Unmatched, act)
			continue
		}
		if err != nil {
			return nil, err
		}

		target, ok := primary.Get(id)
		if !ok {
			m.log.Warn().
				Str("activity", act.Key().String()).
				Str("primary_id", id).
				Msg("Manual match names an activity outside the downloaded window")
			res.Unmatched = append(res.Unmatched, act)
			continue
		}

		target.Link(act)
		res.Pairs = append(res.Pairs, Pair{Primary: target, Secondary: act, Manual: manual})
		m.log.Info().
			Str("primary", target.Key().String()).
			Str("secondary", act.Key().String()).
			Bool("manual", manual).
			Msg("Matched activities")
	}

	if len(res.Pairs) == 0 && secondary.Len() > 0 {
		m.log.Warn().Str("service", secondary.Service().ID).Msg("No activities matched")
	}
	return res, nil
}
