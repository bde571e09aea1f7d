package model

import (
	"time"
)

// Holds the static GTFS entity types and the date-bound instance types
// derived from them.

// Service dates travel as YYYYMMDD strings. They compare correctly as
// strings, which keeps map keys and range checks simple.
const DateFormat = "20060102"

// DateOf returns the service date of t, in t's location.
func DateOf(t time.Time) string {
	return t.Format(DateFormat)
}

type LocationType int8

const (
	LocationTypeStop LocationType = iota
	LocationTypeStation
)

type RouteType int

const (
	RouteTypeTram  RouteType = 0
	RouteTypeRail  RouteType = 2
	RouteTypeBus   RouteType = 3
	RouteTypeFerry RouteType = 4
)

func (rt RouteType) String() string {
	switch rt {
	case RouteTypeTram:
		return "tram"
	case RouteTypeRail:
		return "rail"
	case RouteTypeBus:
		return "bus"
	case RouteTypeFerry:
		return "ferry"
	}
	return "unknown"
}

// Direction is line-relative, not geographic: upward trips head towards
// the top of the line diagram, downward trips away from it.
type Direction int8

const (
	DirectionUpward Direction = iota
	DirectionDownward
)

func (d Direction) String() string {
	if d == DirectionUpward {
		return "upward"
	}
	return "downward"
}

type Colour int

const (
	ColourRed Colour = iota
	ColourBlue
	ColourGreen
	ColourGold
	ColourPurple
	ColourCyan
	ColourGrey
	ColourWhite
)

// Display colours for the SEQ network. Rail lines are keyed by the line
// code embedded in the route short name, buses and ferries by the full
// short name.
var railColours = map[string]Colour{
	"GY": ColourGreen,
	"NA": ColourGreen,
	"CA": ColourGreen,
	"RP": ColourCyan,
	"SH": ColourBlue,
	"BD": ColourGold,
	"DB": ColourPurple,
	"FG": ColourRed,
	"BR": ColourGrey,
	"CL": ColourBlue,
	"BN": ColourRed,
	"VL": ColourGold,
	"SP": ColourCyan,
	"IP": ColourGreen,
	"RW": ColourGreen,
}

var busColours = map[string]Colour{
	"M1": ColourBlue,
	"M2": ColourBlue,
	"30": ColourGold,
	"40": ColourRed,
	"50": ColourRed,
	"60": ColourBlue,
	"61": ColourRed,
}

var ferryColours = map[string]Colour{
	"F1":  ColourBlue,
	"F11": ColourGreen,
	"F12": ColourPurple,
	"F21": ColourCyan,
	"F22": ColourGold,
	"F23": ColourRed,
	"F24": ColourGreen,
}

type Route struct {
	ID        string
	ShortName string
	LongName  string
	Type      RouteType
}

// Colour returns the display colour for the route.
func (r *Route) Colour() Colour {
	switch r.Type {
	case RouteTypeTram:
		return ColourGold
	case RouteTypeRail:
		if len(r.ShortName) >= 2 {
			if c, ok := railColours[r.ShortName[2:]]; ok {
				return c
			}
		}
		return ColourGrey
	case RouteTypeBus:
		if c, ok := busColours[r.ShortName]; ok {
			return c
		}
		return ColourPurple
	case RouteTypeFerry:
		if c, ok := ferryColours[r.ShortName]; ok {
			return c
		}
		return ColourCyan
	}
	return ColourWhite
}

// Service is a calendar pattern: a set of weekdays within a date range,
// plus per-date exceptions. Exceptions always win over the weekday rule.
type Service struct {
	ID         string
	Weekday    int8 // bitmask, 1<<time.Weekday
	StartDate  string
	EndDate    string
	Exceptions map[string]bool
}

// RunsOn reports whether the service operates on the given date.
func (s *Service) RunsOn(date string) bool {
	if added, ok := s.Exceptions[date]; ok {
		return added
	}
	if date < s.StartDate || date > s.EndDate {
		return false
	}
	parsed, err := time.Parse(DateFormat, date)
	if err != nil {
		return false
	}
	return s.Weekday&(1<<parsed.Weekday()) != 0
}

type Trip struct {
	ID        string
	RouteID   string
	ServiceID string
	Headsign  string
	Direction Direction
}

type Stop struct {
	ID           string
	Name         string
	URL          string
	LocationType LocationType
	ParentID     string // empty means no parent station
	PlatformCode string
}

// StopTime holds scheduled times as offsets from the start of the
// service day. GTFS allows offsets past 24:00:00 for trips running over
// midnight, so these are durations, never wall-clock times.
type StopTime struct {
	TripID     string
	StopID     string
	Sequence   int
	Arrival    time.Duration
	Departure  time.Duration
	Terminates bool // no further boarding at this stop
}

// TripInstance is a trip bound to one concrete service date. Instances
// returned by the store are snapshots; realtime mutations only show up
// in later lookups.
type TripInstance struct {
	Trip      *Trip
	Date      string
	Cancelled bool
}

// StopTimeInstance is a stop time bound to one service date, carrying
// the realtime overrides layered onto it. A zero ActualArrival or
// ActualDeparture means no override is in effect.
type StopTimeInstance struct {
	StopTime *StopTime
	Trip     *Trip
	Stop     *Stop
	Date     string

	Skipped   bool
	Cancelled bool // owning trip instance is cancelled

	ScheduledArrival   time.Time
	ScheduledDeparture time.Time
	ActualArrival      time.Time
	ActualDeparture    time.Time
}

// Arrival returns the realtime arrival if one has been reported, else
// the scheduled arrival.
func (sti *StopTimeInstance) Arrival() time.Time {
	if !sti.ActualArrival.IsZero() {
		return sti.ActualArrival
	}
	return sti.ScheduledArrival
}

// Departure returns the realtime departure if one has been reported,
// else the scheduled departure.
func (sti *StopTimeInstance) Departure() time.Time {
	if !sti.ActualDeparture.IsZero() {
		return sti.ActualDeparture
	}
	return sti.ScheduledDeparture
}
