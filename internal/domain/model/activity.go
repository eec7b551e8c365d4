package model

// Activity is one completed activity as recorded by a participant. Every
// valid activity record counts independently; records are never replaced.
type Activity struct {
	EventID   string
	Author    string
	Timestamp int64 // recorded completion time, unix seconds
	Distance  float64
	Duration  float64 // seconds
	Calories  float64
}

// ActivityFromEvent extracts the activity payload from an activity-record
// event. Missing or malformed numeric tags read as zero; the record still
// counts for count-based scoring.
func ActivityFromEvent(e Event) Activity {
	return Activity{
		EventID:   e.ID,
		Author:    e.Author,
		Timestamp: e.CreatedAt,
		Distance:  e.tagFloat(TagDistance),
		Duration:  e.tagFloat(TagDuration),
		Calories:  e.tagFloat(TagCalories),
	}
}

// InWindow reports whether the activity's recorded timestamp falls inside
// [start, end). Arrival time is irrelevant.
func (a Activity) InWindow(start, end int64) bool {
	return a.Timestamp >= start && a.Timestamp < end
}
