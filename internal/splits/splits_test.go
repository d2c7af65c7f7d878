package splits

import (
	"errors"
	"math"
	"testing"

	"runjournal/internal/units"
)

const kmPerMile = units.MetersPerMile / 1000

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

// steadyRun samples every 0.1 mile, offset from the mile boundaries, at a
// constant pace of secPerMile, ending exactly at miles
func steadyRun(miles float64, secPerMile float64) (distance, clock []float64) {
	n := int(miles*10 + 0.5)
	for k := 1; k <= n; k++ {
		d := float64(k)/10 - 0.05
		distance = append(distance, d*kmPerMile)
		clock = append(clock, d*secPerMile)
	}
	distance = append(distance, miles*kmPerMile)
	clock = append(clock, miles*secPerMile)
	return distance, clock
}

func TestCalculateMissingChannels(t *testing.T) {
	tests := []struct {
		name     string
		distance []float64
		clock    []float64
	}{
		{"no distance", nil, []float64{1, 2}},
		{"no clock", []float64{0.1, 0.2}, nil},
		{"neither", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(tt.distance, tt.clock, DefaultInterval)
			if err != nil {
				t.Fatal(err)
			}
			if got != nil {
				t.Errorf("Calculate = %v, want nil", got)
			}
		})
	}
}

func TestCalculateEmpty(t *testing.T) {
	got, err := Calculate([]float64{}, []float64{}, DefaultInterval)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Calculate(empty) = %#v, want empty non-nil", got)
	}
}

func TestCalculateLengthMismatch(t *testing.T) {
	_, err := Calculate([]float64{1, 2}, []float64{1}, DefaultInterval)
	if !errors.Is(err, ErrSeriesLength) {
		t.Errorf("error = %v, want ErrSeriesLength", err)
	}
}

func TestCalculateSteadyPace(t *testing.T) {
	distance, clock := steadyRun(3.5, 480)

	got, err := Calculate(distance, clock, DefaultInterval)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("len(splits) = %d, want 4 (3 full + partial)", len(got))
	}

	for i, s := range got[:3] {
		if s.SplitDistance.Unit != units.Mile || s.SplitDistance.Value != 1 {
			t.Errorf("split %d distance = %v, want 1 mi", i, s.SplitDistance)
		}
		if !near(s.TotalDistance.Value, float64(i+1)) {
			t.Errorf("split %d total distance = %v, want %d", i, s.TotalDistance.Value, i+1)
		}
		// Emitted at the 1.05, 2.05, 3.05 mile samples.
		wantTotal := (float64(i+1) + 0.05) * 480
		if !near(s.TotalTime.Value, wantTotal) {
			t.Errorf("split %d total time = %v, want %v", i, s.TotalTime.Value, wantTotal)
		}
	}

	partial := got[3]
	if !near(partial.SplitDistance.Value, 0.5) {
		t.Errorf("partial distance = %v, want 0.5", partial.SplitDistance.Value)
	}
	if !near(partial.TotalDistance.Value, 3.5) {
		t.Errorf("partial total distance = %v, want 3.5", partial.TotalDistance.Value)
	}
	if !near(partial.TotalTime.Value, 3.5*480) {
		t.Errorf("partial total time = %v, want %v", partial.TotalTime.Value, 3.5*480)
	}
}

func TestCalculateInvariants(t *testing.T) {
	distance, clock := steadyRun(6.3, 455)

	got, err := Calculate(distance, clock, DefaultInterval)
	if err != nil {
		t.Fatal(err)
	}

	var sumTime float64
	for i, s := range got {
		sumTime += s.SplitTime.Value
		if !near(s.TotalTime.Value, sumTime) {
			t.Errorf("split %d: total time %v != sum of split times %v", i, s.TotalTime.Value, sumTime)
		}
		if !near(s.SplitPace.Value, s.SplitTime.Value/s.SplitDistance.Value) {
			t.Errorf("split %d: split pace %v != time/distance", i, s.SplitPace.Value)
		}
		if !near(s.TotalPace.Value, s.TotalTime.Value/s.TotalDistance.Value) {
			t.Errorf("split %d: total pace %v != time/distance", i, s.TotalPace.Value)
		}
		if s.SplitPace.Unit != units.SecondPerMile {
			t.Errorf("split %d: pace unit %s, want s/mi", i, s.SplitPace.Unit)
		}
		if i > 0 {
			prev := got[i-1]
			if s.TotalDistance.Value <= prev.TotalDistance.Value {
				t.Errorf("split %d: total distance not increasing", i)
			}
			if s.TotalTime.Value < prev.TotalTime.Value {
				t.Errorf("split %d: total time decreasing", i)
			}
		}
	}
}

func TestCalculateTrailingAfterLastSplit(t *testing.T) {
	tests := []struct {
		name      string
		distance  []float64
		clock     []float64
		wantFull  int
		wantTotal float64 // trailing split total distance, mi
		wantTime  float64 // trailing split time, s
	}{
		{"last sample crosses boundary", []float64{0, 0.5, 1.7}, []float64{0, 100, 400}, 1, 1.7 / kmPerMile, 0},
		{"crossing by a hair", []float64{0.8, 1.2, kmPerMile + 0.01}, []float64{240, 360, 500}, 1, 1 + 0.01/kmPerMile, 0},
		{"single sample", []float64{0.5}, []float64{200}, 0, 0.5 / kmPerMile, 200},
		{"sparse long gap", []float64{0, 3.5}, []float64{0, 1000}, 1, 3.5 / kmPerMile, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(tt.distance, tt.clock, DefaultInterval)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.wantFull+1 {
				t.Fatalf("len(splits) = %d, want %d", len(got), tt.wantFull+1)
			}
			last := got[len(got)-1]
			if !near(last.TotalDistance.Value, tt.wantTotal) {
				t.Errorf("total distance = %v mi, want %v", last.TotalDistance.Value, tt.wantTotal)
			}
			if !near(last.SplitDistance.Value, tt.wantTotal-float64(tt.wantFull)) {
				t.Errorf("partial distance = %v mi, want %v", last.SplitDistance.Value, tt.wantTotal-float64(tt.wantFull))
			}
			if !near(last.SplitTime.Value, tt.wantTime) {
				t.Errorf("partial time = %v, want %v", last.SplitTime.Value, tt.wantTime)
			}
			if !near(last.TotalTime.Value, tt.clock[len(tt.clock)-1]) {
				t.Errorf("total time = %v, want %v", last.TotalTime.Value, tt.clock[len(tt.clock)-1])
			}
		})
	}
}

func TestCalculateShortRun(t *testing.T) {
	distance := []float64{0.2, 0.5, 0.8}
	clock := []float64{60, 150, 240}

	got, err := Calculate(distance, clock, DefaultInterval)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("len(splits) = %d, want 1 partial", len(got))
	}
	if !near(got[0].SplitDistance.Value, 0.8/kmPerMile) {
		t.Errorf("partial distance = %v mi", got[0].SplitDistance.Value)
	}
	if got[0].SplitTime.Value != 240 {
		t.Errorf("partial time = %v, want 240", got[0].SplitTime.Value)
	}
}

func TestCalculateKilometerInterval(t *testing.T) {
	distance := []float64{0.5, 1.01, 1.5, 2.02, 2.5}
	clock := []float64{150, 303, 450, 606, 750}

	got, err := Calculate(distance, clock, units.Kilometers(1))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len(splits) = %d, want 3", len(got))
	}
	if got[1].SplitTime.Value != 303 {
		t.Errorf("second split time = %v, want 303", got[1].SplitTime.Value)
	}
	if got[0].SplitPace.Unit != units.SecondPerKilometer {
		t.Errorf("pace unit = %s, want s/km", got[0].SplitPace.Unit)
	}
}

func TestFromPrecomputed(t *testing.T) {
	in := []Precomputed{
		{Distance: units.Meters(1609.3), ElapsedTime: units.Seconds(430), AverageSpeed: 1609.3 / 420},
		{Distance: units.Meters(1609.3), ElapsedTime: units.Seconds(415)},
		{Distance: units.Meters(0)},
		{Distance: units.Meters(800), ElapsedTime: units.Seconds(200), AverageSpeed: 4},
	}

	got, err := FromPrecomputed(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len(splits) = %d, want 3", len(got))
	}
	if !near(got[0].SplitTime.Value, 420) {
		t.Errorf("first split time = %v, want 420 (from speed)", got[0].SplitTime.Value)
	}
	if got[1].SplitTime.Value != 415 {
		t.Errorf("second split time = %v, want 415 (elapsed)", got[1].SplitTime.Value)
	}
	if !near(got[2].TotalTime.Value, 420+415+200) {
		t.Errorf("total time = %v, want 1035", got[2].TotalTime.Value)
	}
	if !near(got[2].TotalDistance.Value, 1609.3*2+800) {
		t.Errorf("total distance = %v", got[2].TotalDistance.Value)
	}

	none, err := FromPrecomputed(nil)
	if err != nil || none != nil {
		t.Errorf("FromPrecomputed(nil) = %v, %v", none, err)
	}
}
