// Package store holds the in-memory relational model of one GTFS
// generation: the static entities loaded from the schedule dump, the
// indexes derived from them, and the rolling window of date-bound
// instances that realtime updates are applied to.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/seqtransit/timetable/model"
)

// ErrNotFound is returned when an entity or instance lookup misses.
// Distinct from a search returning no matches, which yields an empty
// slice and no error.
var ErrNotFound = errors.New("not found")

// tripInstance is the store-internal mutable form of a trip bound to a
// date. Callers only ever see model.TripInstance snapshots.
type tripInstance struct {
	trip      *model.Trip
	date      string
	cancelled bool
}

type stopTimeInstance struct {
	stopTime *model.StopTime
	stop     *model.Stop
	trip     *tripInstance
	date     string

	skipped            bool
	scheduledArrival   time.Time
	scheduledDeparture time.Time
	actualArrival      time.Time
	actualDeparture    time.Time
}

func (sti *stopTimeInstance) departure() time.Time {
	if !sti.actualDeparture.IsZero() {
		return sti.actualDeparture
	}
	return sti.scheduledDeparture
}

// Store is the authoritative in-memory database of all GTFS entities
// and their derived indexes. A single lock guards the entire mutation
// surface; reads may run concurrently with each other but never with a
// mutation, so a reload can not tear an in-flight query.
//
// All entity IDs are normalized (trimmed, lower-cased) on every insert
// and lookup. Upstream feeds are inconsistent in casing.
type Store struct {
	mu       sync.RWMutex
	location *time.Location

	// Static data, owned for the lifetime of one generation.
	routes           map[string]*model.Route
	services         map[string]*model.Service
	trips            map[string]*model.Trip
	tripsByRoute     map[string][]*model.Trip
	tripsByService   map[string][]*model.Trip
	stops            map[string]*model.Stop
	stopTimesByTrip  map[string][]*model.StopTime
	stopTimesByStop  map[string][]*model.StopTime
	routeTypesByStop map[string]map[model.RouteType]struct{}

	// Rolling instance window, patched by realtime updates.
	tripInstancesByDate     map[string]map[string]*tripInstance
	stopTimeInstancesByDate map[string]map[string]map[int]*stopTimeInstance
	stopTimeInstancesByStop map[string][]*stopTimeInstance
}

// New creates an empty store. All schedule arithmetic happens in the
// agency's location.
func New(location *time.Location) *Store {
	s := &Store{location: location}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.routes = map[string]*model.Route{}
	s.services = map[string]*model.Service{}
	s.trips = map[string]*model.Trip{}
	s.tripsByRoute = map[string][]*model.Trip{}
	s.tripsByService = map[string][]*model.Trip{}
	s.stops = map[string]*model.Stop{}
	s.stopTimesByTrip = map[string][]*model.StopTime{}
	s.stopTimesByStop = map[string][]*model.StopTime{}
	s.routeTypesByStop = map[string]map[model.RouteType]struct{}{}
	s.tripInstancesByDate = map[string]map[string]*tripInstance{}
	s.stopTimeInstancesByDate = map[string]map[string]map[int]*stopTimeInstance{}
	s.stopTimeInstancesByStop = map[string][]*stopTimeInstance{}
}

// Location returns the agency location the store was built with.
func (s *Store) Location() *time.Location {
	return s.location
}

func norm(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Clear wipes every map. Must be called before a fresh static load.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// AddRoute inserts a route.
func (s *Store) AddRoute(route *model.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	route.ID = norm(route.ID)
	s.routes[route.ID] = route
}

// AddService inserts a service calendar.
func (s *Store) AddService(service *model.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	service.ID = norm(service.ID)
	s.services[service.ID] = service
}

// AddTrip inserts a trip. The referenced route and service must already
// exist.
func (s *Store) AddTrip(trip *model.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip.ID = norm(trip.ID)
	trip.RouteID = norm(trip.RouteID)
	trip.ServiceID = norm(trip.ServiceID)

	if _, ok := s.routes[trip.RouteID]; !ok {
		return fmt.Errorf("trip %q: route %q: %w", trip.ID, trip.RouteID, ErrNotFound)
	}
	if _, ok := s.services[trip.ServiceID]; !ok {
		return fmt.Errorf("trip %q: service %q: %w", trip.ID, trip.ServiceID, ErrNotFound)
	}

	s.trips[trip.ID] = trip
	s.tripsByRoute[trip.RouteID] = append(s.tripsByRoute[trip.RouteID], trip)
	s.tripsByService[trip.ServiceID] = append(s.tripsByService[trip.ServiceID], trip)
	return nil
}

// AddStop inserts a stop.
func (s *Store) AddStop(stop *model.Stop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stop.ID = norm(stop.ID)
	stop.ParentID = norm(stop.ParentID)
	s.stops[stop.ID] = stop
}

// AddStopTime inserts a stop time, registering it against the stop and
// every ancestor station, and adding the trip's route type to each of
// their route type sets.
func (s *Store) AddStopTime(stopTime *model.StopTime) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopTime.TripID = norm(stopTime.TripID)
	stopTime.StopID = norm(stopTime.StopID)

	trip, ok := s.trips[stopTime.TripID]
	if !ok {
		return fmt.Errorf("stop time: trip %q: %w", stopTime.TripID, ErrNotFound)
	}
	stop, ok := s.stops[stopTime.StopID]
	if !ok {
		return fmt.Errorf("stop time: stop %q: %w", stopTime.StopID, ErrNotFound)
	}
	route := s.routes[trip.RouteID]

	times := append(s.stopTimesByTrip[stopTime.TripID], stopTime)
	if n := len(times); n > 1 && times[n-2].Sequence > stopTime.Sequence {
		sort.Slice(times, func(i, j int) bool { return times[i].Sequence < times[j].Sequence })
	}
	s.stopTimesByTrip[stopTime.TripID] = times

	s.forEachAncestor(stop, func(ancestor *model.Stop) {
		s.stopTimesByStop[ancestor.ID] = append(s.stopTimesByStop[ancestor.ID], stopTime)
		types, ok := s.routeTypesByStop[ancestor.ID]
		if !ok {
			types = map[model.RouteType]struct{}{}
			s.routeTypesByStop[ancestor.ID] = types
		}
		types[route.Type] = struct{}{}
	})
	return nil
}

// forEachAncestor visits stop and every parent up the station tree. The
// seen guard keeps a malformed feed with a parent cycle from looping
// forever.
func (s *Store) forEachAncestor(stop *model.Stop, fn func(*model.Stop)) {
	seen := map[string]bool{}
	for stop != nil && !seen[stop.ID] {
		seen[stop.ID] = true
		fn(stop)
		if stop.ParentID == "" {
			break
		}
		stop = s.stops[stop.ParentID]
	}
}

// instanceWindow returns the dates instances are materialized for:
// yesterday, today and tomorrow relative to now in the agency location.
func (s *Store) instanceWindow(now time.Time) []string {
	local := now.In(s.location)
	return []string{
		model.DateOf(local.AddDate(0, 0, -1)),
		model.DateOf(local),
		model.DateOf(local.AddDate(0, 0, 1)),
	}
}

// CreateTripInstances materializes trip and stop time instances for
// yesterday, today and tomorrow. Dates that already have instances are
// left untouched, so calling this repeatedly is safe; it only fills in
// dates that newly entered the window.
func (s *Store) CreateTripInstances(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, date := range s.instanceWindow(now) {
		if len(s.tripInstancesByDate[date]) > 0 {
			continue
		}
		s.materializeDate(date)
	}
}

func (s *Store) materializeDate(date string) {
	active := map[string]bool{}
	for id, service := range s.services {
		if service.RunsOn(date) {
			active[id] = true
		}
	}

	dayStart, err := time.ParseInLocation(model.DateFormat, date, s.location)
	if err != nil {
		return
	}

	tripInstances := map[string]*tripInstance{}
	stopTimeInstances := map[string]map[int]*stopTimeInstance{}

	for id, trip := range s.trips {
		if !active[trip.ServiceID] {
			continue
		}
		ti := &tripInstance{trip: trip, date: date}
		tripInstances[id] = ti

		bySeq := map[int]*stopTimeInstance{}
		for _, stopTime := range s.stopTimesByTrip[id] {
			sti := &stopTimeInstance{
				stopTime:           stopTime,
				stop:               s.stops[stopTime.StopID],
				trip:               ti,
				date:               date,
				scheduledArrival:   dayStart.Add(stopTime.Arrival),
				scheduledDeparture: dayStart.Add(stopTime.Departure),
			}
			bySeq[stopTime.Sequence] = sti
		}
		stopTimeInstances[id] = bySeq
	}

	s.tripInstancesByDate[date] = tripInstances
	s.stopTimeInstancesByDate[date] = stopTimeInstances

	// Register the new instances against their stop and every ancestor
	// station, so a query on a parent returns child platform departures.
	for _, bySeq := range stopTimeInstances {
		for _, sti := range bySeq {
			s.forEachAncestor(sti.stop, func(ancestor *model.Stop) {
				s.stopTimeInstancesByStop[ancestor.ID] = append(s.stopTimeInstancesByStop[ancestor.ID], sti)
			})
		}
	}
}

// RemoveOldTripInstances prunes all instances for dates older than
// yesterday, including their entries in the stop indexes.
func (s *Store) RemoveOldTripInstances(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	yesterday := model.DateOf(now.In(s.location).AddDate(0, 0, -1))

	for date := range s.tripInstancesByDate {
		if date < yesterday {
			delete(s.tripInstancesByDate, date)
		}
	}
	for date := range s.stopTimeInstancesByDate {
		if date < yesterday {
			delete(s.stopTimeInstancesByDate, date)
		}
	}
	for stopID, instances := range s.stopTimeInstancesByStop {
		kept := instances[:0]
		for _, sti := range instances {
			if sti.date >= yesterday {
				kept = append(kept, sti)
			}
		}
		s.stopTimeInstancesByStop[stopID] = kept
	}
}

func (s *Store) tripInstanceLocked(tripID, date string) (*tripInstance, error) {
	ti, ok := s.tripInstancesByDate[date][norm(tripID)]
	if !ok {
		return nil, fmt.Errorf("trip instance %q on %s: %w", tripID, date, ErrNotFound)
	}
	return ti, nil
}

func (s *Store) stopTimeInstanceLocked(tripID, date string, sequence int) (*stopTimeInstance, error) {
	sti, ok := s.stopTimeInstancesByDate[date][norm(tripID)][sequence]
	if !ok {
		return nil, fmt.Errorf("stop time instance %q/%d on %s: %w", tripID, sequence, date, ErrNotFound)
	}
	return sti, nil
}

// SetTripInstanceStatus sets the cancelled flag of a trip instance.
func (s *Store) SetTripInstanceStatus(tripID, date string, cancelled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ti, err := s.tripInstanceLocked(tripID, date)
	if err != nil {
		return err
	}
	ti.cancelled = cancelled
	return nil
}

// SetStopTimeInstanceStatus sets the skipped flag of a stop time
// instance.
func (s *Store) SetStopTimeInstanceStatus(tripID, date string, sequence int, skipped bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sti, err := s.stopTimeInstanceLocked(tripID, date, sequence)
	if err != nil {
		return err
	}
	sti.skipped = skipped
	return nil
}

// SetStopTimeActualArrival records a realtime arrival override.
func (s *Store) SetStopTimeActualArrival(tripID, date string, sequence int, arrival time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sti, err := s.stopTimeInstanceLocked(tripID, date, sequence)
	if err != nil {
		return err
	}
	sti.actualArrival = arrival
	return nil
}

// SetStopTimeActualDeparture records a realtime departure override.
func (s *Store) SetStopTimeActualDeparture(tripID, date string, sequence int, departure time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sti, err := s.stopTimeInstanceLocked(tripID, date, sequence)
	if err != nil {
		return err
	}
	sti.actualDeparture = departure
	return nil
}

// ResetRealtimeData discards all realtime state for a trip instance:
// the cancelled flag, and every stop time's skipped flag and actual
// time overrides. The instances themselves survive.
func (s *Store) ResetRealtimeData(tripID, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ti, err := s.tripInstanceLocked(tripID, date)
	if err != nil {
		return err
	}
	ti.cancelled = false
	for _, sti := range s.stopTimeInstancesByDate[date][norm(tripID)] {
		sti.skipped = false
		sti.actualArrival = time.Time{}
		sti.actualDeparture = time.Time{}
	}
	return nil
}

// GetRoute returns the route with the given ID.
func (s *Store) GetRoute(routeID string) (*model.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	route, ok := s.routes[norm(routeID)]
	if !ok {
		return nil, fmt.Errorf("route %q: %w", routeID, ErrNotFound)
	}
	return route, nil
}

// GetService returns the service with the given ID.
func (s *Store) GetService(serviceID string) (*model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	service, ok := s.services[norm(serviceID)]
	if !ok {
		return nil, fmt.Errorf("service %q: %w", serviceID, ErrNotFound)
	}
	return service, nil
}

// GetTrip returns the trip with the given ID.
func (s *Store) GetTrip(tripID string) (*model.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trip, ok := s.trips[norm(tripID)]
	if !ok {
		return nil, fmt.Errorf("trip %q: %w", tripID, ErrNotFound)
	}
	return trip, nil
}

// GetStop returns the stop with the given ID.
func (s *Store) GetStop(stopID string) (*model.Stop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stop, ok := s.stops[norm(stopID)]
	if !ok {
		return nil, fmt.Errorf("stop %q: %w", stopID, ErrNotFound)
	}
	return stop, nil
}

// LookupStop is the optional-lookup form of GetStop, for callers that
// treat a miss as ordinary (e.g. trying a search query as an ID first).
func (s *Store) LookupStop(stopID string) (*model.Stop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stop, ok := s.stops[norm(stopID)]
	return stop, ok
}

// GetTripsByRoute returns all trips of a route.
func (s *Store) GetTripsByRoute(routeID string) []*model.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*model.Trip(nil), s.tripsByRoute[norm(routeID)]...)
}

// GetTripsByService returns all trips of a service.
func (s *Store) GetTripsByService(serviceID string) []*model.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*model.Trip(nil), s.tripsByService[norm(serviceID)]...)
}

// GetStopTimes returns a trip's stop times, ordered by sequence.
func (s *Store) GetStopTimes(tripID string) []*model.StopTime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*model.StopTime(nil), s.stopTimesByTrip[norm(tripID)]...)
}

// StopsByRouteType returns all stops served by routes of the given
// type, parent stations included via rollup, sorted by name.
func (s *Store) StopsByRouteType(routeType model.RouteType) []*model.Stop {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stops := []*model.Stop{}
	for id, types := range s.routeTypesByStop {
		if _, ok := types[routeType]; !ok {
			continue
		}
		if stop, found := s.stops[id]; found {
			stops = append(stops, stop)
		}
	}
	sort.Slice(stops, func(i, j int) bool {
		if stops[i].Name != stops[j].Name {
			return stops[i].Name < stops[j].Name
		}
		return stops[i].ID < stops[j].ID
	})
	return stops
}

// StopHasRouteType reports whether a stop (or any of its descendants)
// is served by routes of the given type.
func (s *Store) StopHasRouteType(stopID string, routeType model.RouteType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.routeTypesByStop[norm(stopID)][routeType]
	return ok
}

// GetTripInstance returns a snapshot of the trip instance for (trip,
// date).
func (s *Store) GetTripInstance(tripID, date string) (model.TripInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ti, err := s.tripInstanceLocked(tripID, date)
	if err != nil {
		return model.TripInstance{}, err
	}
	return snapshotTrip(ti), nil
}

// GetStopTimeInstances returns snapshots of a trip instance's stop
// times on a date, ordered by sequence.
func (s *Store) GetStopTimeInstances(tripID, date string) ([]model.StopTimeInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySeq, ok := s.stopTimeInstancesByDate[date][norm(tripID)]
	if !ok {
		return nil, fmt.Errorf("trip instance %q on %s: %w", tripID, date, ErrNotFound)
	}
	instances := make([]model.StopTimeInstance, 0, len(bySeq))
	for _, sti := range bySeq {
		instances = append(instances, snapshotStopTime(sti))
	}
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].StopTime.Sequence < instances[j].StopTime.Sequence
	})
	return instances, nil
}

// GetStopTimeInstancesBetween returns snapshots of every stop time
// instance at the stop (descendant stops included) whose actual
// departure falls in [start, end), ascending by actual departure. A
// plain filter and sort: one metro region's 3-day window stays in the
// low thousands of instances per stop.
func (s *Store) GetStopTimeInstancesBetween(stopID string, start, end time.Time) []model.StopTimeInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instances := []model.StopTimeInstance{}
	for _, sti := range s.stopTimeInstancesByStop[norm(stopID)] {
		departure := sti.departure()
		if departure.Before(start) || !departure.Before(end) {
			continue
		}
		instances = append(instances, snapshotStopTime(sti))
	}
	sort.SliceStable(instances, func(i, j int) bool {
		return instances[i].Departure().Before(instances[j].Departure())
	})
	return instances
}

// CountInstances returns the number of materialized trip and stop time
// instances across the whole window.
func (s *Store) CountInstances() (trips, stopTimes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, byTrip := range s.tripInstancesByDate {
		trips += len(byTrip)
	}
	for _, byTrip := range s.stopTimeInstancesByDate {
		for _, bySeq := range byTrip {
			stopTimes += len(bySeq)
		}
	}
	return trips, stopTimes
}

func snapshotTrip(ti *tripInstance) model.TripInstance {
	return model.TripInstance{
		Trip:      ti.trip,
		Date:      ti.date,
		Cancelled: ti.cancelled,
	}
}

func snapshotStopTime(sti *stopTimeInstance) model.StopTimeInstance {
	return model.StopTimeInstance{
		StopTime:           sti.stopTime,
		Trip:               sti.trip.trip,
		Stop:               sti.stop,
		Date:               sti.date,
		Skipped:            sti.skipped,
		Cancelled:          sti.trip.cancelled,
		ScheduledArrival:   sti.scheduledArrival,
		ScheduledDeparture: sti.scheduledDeparture,
		ActualArrival:      sti.actualArrival,
		ActualDeparture:    sti.actualDeparture,
	}
}
