package timetable

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/seqtransit/timetable/config"
	"github.com/seqtransit/timetable/model"
	"github.com/seqtransit/timetable/store"
)

// ErrUnavailable is returned by queries while no schedule dataset is
// loaded, or while a reload is in progress.
var ErrUnavailable = errors.New("timetable unavailable")

// Provider answers timetable queries against the instance store,
// applying the per-route-type policy for lookahead windows and result
// caps.
type Provider struct {
	store  *store.Store
	cfg    *config.Config
	health *Health
}

func NewProvider(s *store.Store, cfg *config.Config, health *Health) *Provider {
	return &Provider{
		store:  s,
		cfg:    cfg,
		health: health,
	}
}

// SearchStops finds stops served by the given route type whose names
// match the query, best matches first. A query that exactly matches a
// stop ID ranks that stop ahead of the name matches. With parentsOnly
// set, platform-level stops are dropped in favour of their stations.
func (p *Provider) SearchStops(query string, routeType model.RouteType, parentsOnly bool) ([]*model.Stop, error) {
	if !p.health.Available() {
		return nil, ErrUnavailable
	}

	limit := p.cfg.SearchLimit
	results := make([]*model.Stop, 0, limit)

	exact, ok := p.store.LookupStop(query)
	if ok && p.store.StopHasRouteType(exact.ID, routeType) &&
		(!parentsOnly || exact.LocationType == model.LocationTypeStation || exact.ParentID == "") {
		results = append(results, exact)
	} else {
		exact = nil
	}

	candidates := p.store.StopsByRouteType(routeType)
	if parentsOnly {
		kept := candidates[:0]
		for _, stop := range candidates {
			if stop.LocationType == model.LocationTypeStation || stop.ParentID == "" {
				kept = append(kept, stop)
			}
		}
		candidates = kept
	}

	names := make([]string, len(candidates))
	for i, stop := range candidates {
		names[i] = stop.Name
	}

	ranks := fuzzy.RankFindNormalizedFold(query, names)
	sort.Sort(ranks)

	for _, rank := range ranks {
		if len(results) >= limit {
			break
		}
		stop := candidates[rank.OriginalIndex]
		if exact != nil && stop.ID == exact.ID {
			continue
		}
		results = append(results, stop)
	}
	return results, nil
}

// NextServices returns the resolved stop and its upcoming departures
// of the given route type, soonest first, within the route type's
// lookahead window. Skipped stops, cancelled trips, and stops where
// the trip terminates are left out.
func (p *Provider) NextServices(stopID string, routeType model.RouteType, now time.Time) (*model.Stop, []model.StopTimeInstance, error) {
	if !p.health.Available() {
		return nil, nil, ErrUnavailable
	}

	stop, err := p.store.GetStop(stopID)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up stop: %w", err)
	}

	policy := p.cfg.PolicyFor(routeType)
	end := now.Add(time.Duration(policy.LookaheadHours) * time.Hour)

	departures := []model.StopTimeInstance{}
	for _, sti := range p.store.GetStopTimeInstancesBetween(stopID, now, end) {
		if !p.departing(sti, routeType) {
			continue
		}
		departures = append(departures, sti)
		if len(departures) >= policy.MaxResults {
			break
		}
	}
	return stop, departures, nil
}

// NextTrains returns the resolved station and its upcoming rail
// departures, split by direction. Each direction gets the full rail
// result cap.
func (p *Provider) NextTrains(stopID string, now time.Time) (stop *model.Stop, downward, upward []model.StopTimeInstance, err error) {
	if !p.health.Available() {
		return nil, nil, nil, ErrUnavailable
	}

	stop, err = p.store.GetStop(stopID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("looking up stop: %w", err)
	}

	policy := p.cfg.PolicyFor(model.RouteTypeRail)
	end := now.Add(time.Duration(policy.LookaheadHours) * time.Hour)

	downward = []model.StopTimeInstance{}
	upward = []model.StopTimeInstance{}
	for _, sti := range p.store.GetStopTimeInstancesBetween(stopID, now, end) {
		if !p.departing(sti, model.RouteTypeRail) {
			continue
		}
		switch sti.Trip.Direction {
		case model.DirectionDownward:
			if len(downward) < policy.MaxResults {
				downward = append(downward, sti)
			}
		case model.DirectionUpward:
			if len(upward) < policy.MaxResults {
				upward = append(upward, sti)
			}
		}
	}
	return stop, downward, upward, nil
}

// departing reports whether an instance is a boardable departure of
// the given route type.
func (p *Provider) departing(sti model.StopTimeInstance, routeType model.RouteType) bool {
	if sti.Skipped || sti.Cancelled || sti.StopTime.Terminates {
		return false
	}
	route, err := p.store.GetRoute(sti.Trip.RouteID)
	if err != nil {
		return false
	}
	return route.Type == routeType
}
