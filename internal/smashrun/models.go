package smashrun

import "slices"

// Activity is a Smashrun activity. Search results leave the recordings empty.
type Activity struct {
	ActivityID         int64       `json:"activityId"`
	StartDateTimeLocal string      `json:"startDateTimeLocal"` // "2016-11-17T07:11:00-08:00"
	Distance           float64     `json:"distance"`           // kilometers
	Duration           float64     `json:"duration"`           // seconds
	ActivityType       string      `json:"activityType"`
	Notes              string      `json:"notes"`
	RecordingKeys      []string    `json:"recordingKeys"`
	RecordingValues    [][]float64 `json:"recordingValues"`
}

// Recording returns the samples recorded under key ("distance", "clock",
// "latitude", "longitude"), or nil when the key was not recorded
func (a *Activity) Recording(key string) []float64 {
	i := slices.Index(a.RecordingKeys, key)
	if i < 0 || i >= len(a.RecordingValues) {
		return nil
	}
	return a.RecordingValues[i]
}

type Badge struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Image         string `json:"image"`
	Requirement   string `json:"requirement"`
	DateEarnedUTC string `json:"dateEarnedUTC"` // "2016-11-17T15:59:56.123"
}

type UserInfo struct {
	ID       int    `json:"id"`
	UserName string `json:"userName"`
}
