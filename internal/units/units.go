// Package units carries distances, durations and paces as typed quantities
// and normalizes the timestamp formats the services report.
package units

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	MetersPerMile = 1609.344
	MetersPerKm   = 1000.0
)

// ErrIncompatibleUnits is returned when quantities of different dimensions are combined
var ErrIncompatibleUnits = errors.New("incompatible units")

// ErrZeroDistance is returned when a pace is requested over no distance
var ErrZeroDistance = errors.New("pace over zero distance")

// Unit identifies the unit a Quantity is expressed in
type Unit int

const (
	Meter Unit = iota
	Kilometer
	Mile
	Second
	SecondPerMeter
	SecondPerKilometer
	SecondPerMile
)

type dimension int

const (
	length dimension = iota
	duration
	pace
)

func (u Unit) dimension() dimension {
	switch u {
	case Meter, Kilometer, Mile:
		return length
	case Second:
		return duration
	default:
		return pace
	}
}

// factor converts a value in u to the base unit of its dimension (m, s, s/m)
func (u Unit) factor() float64 {
	switch u {
	case Kilometer:
		return MetersPerKm
	case Mile:
		return MetersPerMile
	case SecondPerKilometer:
		return 1 / MetersPerKm
	case SecondPerMile:
		return 1 / MetersPerMile
	default:
		return 1
	}
}

func (u Unit) String() string {
	switch u {
	case Meter:
		return "m"
	case Kilometer:
		return "km"
	case Mile:
		return "mi"
	case Second:
		return "s"
	case SecondPerMeter:
		return "s/m"
	case SecondPerKilometer:
		return "s/km"
	case SecondPerMile:
		return "s/mi"
	}
	return fmt.Sprintf("Unit(%d)", int(u))
}

// ParseDistanceUnit maps a display setting ("mi", "km", "m") to a length unit
func ParseDistanceUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mi", "mile", "miles":
		return Mile, nil
	case "km", "kilometer", "kilometers":
		return Kilometer, nil
	case "m", "meter", "meters":
		return Meter, nil
	}
	return 0, fmt.Errorf("unknown distance unit %q", s)
}

// PaceUnitFor returns the pace unit measured per one unit of the given length unit
func PaceUnitFor(distance Unit) Unit {
	switch distance {
	case Kilometer:
		return SecondPerKilometer
	case Mile:
		return SecondPerMile
	default:
		return SecondPerMeter
	}
}

// Quantity is a magnitude tagged with its unit
type Quantity struct {
	Value float64
	Unit  Unit
}

func Meters(v float64) Quantity     { return Quantity{Value: v, Unit: Meter} }
func Kilometers(v float64) Quantity { return Quantity{Value: v, Unit: Kilometer} }
func Miles(v float64) Quantity      { return Quantity{Value: v, Unit: Mile} }
func Seconds(v float64) Quantity    { return Quantity{Value: v, Unit: Second} }

// To converts q into unit u of the same dimension
func (q Quantity) To(u Unit) (Quantity, error) {
	if q.Unit.dimension() != u.dimension() {
		return Quantity{}, fmt.Errorf("converting %s to %s: %w", q.Unit, u, ErrIncompatibleUnits)
	}
	if q.Unit == u {
		return q, nil
	}
	return Quantity{Value: q.Value * q.Unit.factor() / u.factor(), Unit: u}, nil
}

// In returns the magnitude of q expressed in u
func (q Quantity) In(u Unit) (float64, error) {
	c, err := q.To(u)
	if err != nil {
		return 0, err
	}
	return c.Value, nil
}

// Add returns q + o expressed in q's unit
func (q Quantity) Add(o Quantity) (Quantity, error) {
	c, err := o.To(q.Unit)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: q.Value + c.Value, Unit: q.Unit}, nil
}

// Sub returns q - o expressed in q's unit
func (q Quantity) Sub(o Quantity) (Quantity, error) {
	c, err := o.To(q.Unit)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: q.Value - c.Value, Unit: q.Unit}, nil
}

// Compare returns -1, 0 or +1 as q is less than, equal to, or greater than o
func (q Quantity) Compare(o Quantity) (int, error) {
	c, err := o.To(q.Unit)
	if err != nil {
		return 0, err
	}
	switch {
	case q.Value < c.Value:
		return -1, nil
	case q.Value > c.Value:
		return 1, nil
	}
	return 0, nil
}

// Abs returns q with a non-negative magnitude
func (q Quantity) Abs() Quantity {
	if q.Value < 0 {
		q.Value = -q.Value
	}
	return q
}

func (q Quantity) String() string {
	return fmt.Sprintf("%.2f %s", q.Value, q.Unit)
}

// Pace divides a time by a distance. The result is per one unit of the
// distance's own unit, so seconds over miles yields seconds per mile.
func Pace(t, d Quantity) (Quantity, error) {
	if t.Unit.dimension() != duration || d.Unit.dimension() != length {
		return Quantity{}, fmt.Errorf("pace of %s over %s: %w", t.Unit, d.Unit, ErrIncompatibleUnits)
	}
	if d.Value == 0 {
		return Quantity{}, ErrZeroDistance
	}
	secs, err := t.In(Second)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: secs / d.Value, Unit: PaceUnitFor(d.Unit)}, nil
}

// TimeString renders seconds as HH:MM:SS, MM:SS or SS, dropping leading
// zero units. Minutes are kept whenever hours are shown. Fractions of a
// second are truncated, after absorbing conversion noise.
func TimeString(seconds float64) string {
	total := int(math.Floor(seconds + 1e-6))
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	var b strings.Builder
	if hours > 0 {
		fmt.Fprintf(&b, "%02d:", hours)
	}
	if hours > 0 || minutes > 0 {
		fmt.Fprintf(&b, "%02d:", minutes)
	}
	fmt.Fprintf(&b, "%02d", secs)
	return b.String()
}
