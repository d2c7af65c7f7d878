// Package splits turns cumulative distance/time samples into fixed-interval
// pace splits.
package splits

import (
	"errors"
	"fmt"

	"runjournal/internal/units"
)

// DefaultInterval is the split length used when none is configured
var DefaultInterval = units.Miles(1)

// remainders at or below this are float noise, not a trailing split
const minRemaining = 1e-9

// ErrSeriesLength is returned when the distance and time channels disagree in length
var ErrSeriesLength = errors.New("distance and time series differ in length")

// Split is one interval of an activity. Split* fields cover the interval
// itself, Total* fields run from the start of the activity.
type Split struct {
	TotalDistance units.Quantity
	SplitDistance units.Quantity
	TotalTime     units.Quantity
	SplitTime     units.Quantity
	SplitPace     units.Quantity
	TotalPace     units.Quantity
}

// Calculate emits a split at the first sample whose cumulative distance
// exceeds each interval boundary, timed with that sample's clock. There is
// no interpolation between samples. Any distance recorded past the last
// boundary becomes a trailing partial split.
//
// distanceKm holds cumulative kilometers and clock cumulative elapsed
// seconds, one entry per sample. A nil channel means the recording lacks it
// and yields a nil result. Zero samples yield an empty, non-nil result.
func Calculate(distanceKm, clock []float64, interval units.Quantity) ([]Split, error) {
	if distanceKm == nil || clock == nil {
		return nil, nil
	}
	if len(distanceKm) != len(clock) {
		return nil, fmt.Errorf("%w: %d distance samples, %d time samples", ErrSeriesLength, len(distanceKm), len(clock))
	}
	if interval.Value <= 0 {
		return nil, fmt.Errorf("split interval must be positive, got %s", interval)
	}

	out := []Split{}
	next := interval
	prevDistance := units.Quantity{Unit: interval.Unit}
	prevTime := units.Seconds(0)

	for i, km := range distanceKm {
		cmp, err := units.Kilometers(km).Compare(next)
		if err != nil {
			return nil, err
		}
		if cmp <= 0 {
			continue
		}

		total := units.Seconds(clock[i])
		elapsed, err := total.Sub(prevTime)
		if err != nil {
			return nil, err
		}
		out = append(out, Split{
			TotalDistance: next,
			SplitDistance: interval,
			TotalTime:     total,
			SplitTime:     elapsed,
		})

		prevDistance = next
		prevTime = total
		if next, err = next.Add(interval); err != nil {
			return nil, err
		}
	}

	if len(distanceKm) > 0 {
		last := len(distanceKm) - 1
		end, err := units.Kilometers(distanceKm[last]).To(interval.Unit)
		if err != nil {
			return nil, err
		}
		remaining, err := end.Sub(prevDistance)
		if err != nil {
			return nil, err
		}
		if remaining.Value > minRemaining {
			total := units.Seconds(clock[last])
			elapsed, err := total.Sub(prevTime)
			if err != nil {
				return nil, err
			}
			out = append(out, Split{
				TotalDistance: end,
				SplitDistance: remaining,
				TotalTime:     total,
				SplitTime:     elapsed,
			})
		}
	}

	if err := fillPaces(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Precomputed is a split as reported by a service that computes its own
type Precomputed struct {
	Distance     units.Quantity
	ElapsedTime  units.Quantity
	AverageSpeed float64 // meters per second, 0 when unknown
}

// FromPrecomputed maps service-computed splits into Split records. Moving
// time derived from average speed is preferred over elapsed time.
func FromPrecomputed(in []Precomputed) ([]Split, error) {
	if in == nil {
		return nil, nil
	}

	out := make([]Split, 0, len(in))
	totalTime := units.Seconds(0)
	var totalDistance units.Quantity
	if len(in) > 0 {
		totalDistance = units.Quantity{Unit: in[0].Distance.Unit}
	}
	for _, p := range in {
		if p.Distance.Value <= 0 {
			continue
		}
		elapsed := p.ElapsedTime
		if p.AverageSpeed > 0 {
			meters, err := p.Distance.In(units.Meter)
			if err != nil {
				return nil, err
			}
			elapsed = units.Seconds(meters / p.AverageSpeed)
		}

		var err error
		if totalDistance, err = totalDistance.Add(p.Distance); err != nil {
			return nil, err
		}
		if totalTime, err = totalTime.Add(elapsed); err != nil {
			return nil, err
		}
		out = append(out, Split{
			TotalDistance: totalDistance,
			SplitDistance: p.Distance,
			TotalTime:     totalTime,
			SplitTime:     elapsed,
		})
	}

	if err := fillPaces(out); err != nil {
		return nil, err
	}
	return out, nil
}

func fillPaces(out []Split) error {
	for i := range out {
		s := &out[i]
		var err error
		if s.SplitPace, err = units.Pace(s.SplitTime, s.SplitDistance); err != nil {
			return fmt.Errorf("split %d pace: %w", i+1, err)
		}
		if s.TotalPace, err = units.Pace(s.TotalTime, s.TotalDistance); err != nil {
			return fmt.Errorf("split %d total pace: %w", i+1, err)
		}
	}
	return nil
}
