package strava

// SummaryActivity is an entry of the athlete activity list
type SummaryActivity struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	SportType string  `json:"sport_type"`
	StartDate string  `json:"start_date"` // UTC, "2016-11-17T15:59:56Z"
	Distance  float64 `json:"distance"`   // meters
}

// Activity is a detailed activity, fetched with all efforts
type Activity struct {
	SummaryActivity

	Description  string      `json:"description"`
	Timezone     string      `json:"timezone"` // "(GMT-08:00) America/Los_Angeles"
	ElapsedTime  int         `json:"elapsed_time"`
	MovingTime   int         `json:"moving_time"`
	AverageSpeed float64     `json:"average_speed"` // m/s
	WorkoutType  *int        `json:"workout_type"`
	Commute      bool        `json:"commute"`
	Map          Map         `json:"map"`
	StartLatLng  []float64   `json:"start_latlng"`
	EndLatLng    []float64   `json:"end_latlng"`
	BestEfforts  []Effort    `json:"best_efforts"`
	Segments     []Effort    `json:"segment_efforts"`
	Splits       []Split     `json:"splits_standard"`
	Photos       PhotoCounts `json:"photos"`
}

// Map carries the encoded route. Polyline is only set on detailed activities.
type Map struct {
	Polyline        string `json:"polyline"`
	SummaryPolyline string `json:"summary_polyline"`
}

// Effort is a best effort or a segment effort
type Effort struct {
	Name         string        `json:"name"`
	ElapsedTime  int           `json:"elapsed_time"`
	Distance     float64       `json:"distance"`
	PRRank       *int          `json:"pr_rank"`
	Achievements []Achievement `json:"achievements"`
}

type Achievement struct {
	TypeID int    `json:"type_id"`
	Type   string `json:"type"` // "pr", "overall"
	Rank   int    `json:"rank"`
}

// Split is one of Strava's per-mile splits
type Split struct {
	Distance     float64 `json:"distance"`      // meters
	ElapsedTime  int     `json:"elapsed_time"`  // seconds
	MovingTime   int     `json:"moving_time"`   // seconds
	AverageSpeed float64 `json:"average_speed"` // m/s
	Split        int     `json:"split"`
}

type PhotoCounts struct {
	Count int `json:"count"`
}

// Photo is an activity photo. URLs is keyed by the requested size.
type Photo struct {
	UniqueID string            `json:"unique_id"`
	URLs     map[string]string `json:"urls"`
	Source   int               `json:"source"`
}

// Streams holds activity stream data keyed by type
type Streams struct {
	Time     *StreamData[float64] `json:"time"`
	Distance *StreamData[float64] `json:"distance"` // meters
}

// StreamData represents a single stream type
type StreamData[T any] struct {
	Data         []T    `json:"data"`
	SeriesType   string `json:"series_type"`
	OriginalSize int    `json:"original_size"`
	Resolution   string `json:"resolution"`
}

// Len returns the length of the time stream, or 0 if nil
func (s *Streams) Len() int {
	if s == nil || s.Time == nil {
		return 0
	}
	return len(s.Time.Data)
}
