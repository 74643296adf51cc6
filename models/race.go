package models

import "github.com/uptrace/bun"

// DistanceType distinguishes races run over a fixed length from races run
// for a fixed time (6-hour, 24-hour and similar).
type DistanceType string

const (
	FixedDistance DistanceType = "distance"
	FixedTime     DistanceType = "time"
)

// Event is one organised running event; a single event usually hosts
// several races over different distances with different start times.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	EventID int    `bun:"event_id,pk,autoincrement" json:"eventID"`
	Name    string `bun:"name,notnull" json:"name"`
	City    string `bun:"city,notnull" json:"city"`
	Date    string `bun:"date,notnull,type:date" json:"date"`
	URL     string `bun:"url" json:"url,omitempty"`
}

// Race is a single start within an event.
type Race struct {
	bun.BaseModel `bun:"table:races,alias:rc"`

	RaceID       int          `bun:"race_id,pk,autoincrement" json:"raceID"`
	EventID      int          `bun:"event_id,notnull,unique:races_no_dupes" json:"eventID"`
	StartTime    string       `bun:"start_time,notnull,unique:races_no_dupes" json:"startTime"`
	DistanceType DistanceType `bun:"distance_type,notnull,default:'distance'" json:"distanceType"`
	// Length is the nominal length in meters for fixed-distance races and
	// the duration in seconds for fixed-time races.
	Length int `bun:"length,notnull" json:"length"`
	// RealLength holds the measured (GPS-corrected) length in meters when
	// it differs from the nominal one.
	RealLength *int `bun:"real_length" json:"realLength,omitempty"`
	// ItraScore is the external trail rating, when the race carries one.
	ItraScore *int `bun:"itra_score" json:"itraScore,omitempty"`
	Year      int  `bun:"year,notnull" json:"year"`

	Event *Event `bun:"rel:belongs-to,join:event_id=event_id" json:"-"`
}

// EffectiveLength returns the measured length when known, else the
// nominal one. Fixed-time races have no meaningful length of their own;
// the distance covered lives on each result.
func (r *Race) EffectiveLength() int {
	if r.RealLength != nil && *r.RealLength > 0 {
		return *r.RealLength
	}
	return r.Length
}

// ResultStatus is the finishing status recorded by the timing system.
type ResultStatus string

const (
	StatusFinished ResultStatus = "finished"
	StatusDNF      ResultStatus = "dnf"
	StatusDSQ      ResultStatus = "dsq"
)

// Result is a single timing record. Official results are immutable apart
// from the runner link; changing the runner link or the time triggers
// recomputation of the affected participants.
type Result struct {
	bun.BaseModel `bun:"table:results,alias:r"`

	ResultID  int          `bun:"result_id,pk,autoincrement" json:"resultID"`
	RaceID    int          `bun:"race_id,notnull" json:"raceID"`
	RunnerID  *int         `bun:"runner_id" json:"runnerID,omitempty"`
	UserID    *int         `bun:"user_id" json:"userID,omitempty"`
	LastName  string       `bun:"last_name,notnull" json:"lastName"`
	FirstName string       `bun:"first_name,notnull" json:"firstName"`
	Status    ResultStatus `bun:"status,notnull,default:'finished'" json:"status"`
	// TimeCs is the elapsed time in centiseconds for fixed-distance races.
	TimeCs int64 `bun:"time_cs,notnull,default:0" json:"timeCs"`
	// DistanceM is the distance covered in meters for fixed-time races.
	DistanceM int  `bun:"distance_m,notnull,default:0" json:"distanceM"`
	Official  bool `bun:"official,notnull,default:false" json:"official"`

	Race   *Race   `bun:"rel:belongs-to,join:race_id=race_id" json:"-"`
	Runner *Runner `bun:"rel:belongs-to,join:runner_id=runner_id" json:"-"`
}
