package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/seqtransit/timetable/model"
)

var departuresCmd = &cobra.Command{
	Use:   "departures <stop_id>",
	Short: "Lists upcoming departures from a stop",
	Args:  cobra.ExactArgs(1),
	RunE:  departures,
}

var routeTypeName string

func init() {
	departuresCmd.Flags().StringVarP(&routeTypeName, "type", "t", "bus", "Route type (tram, rail, bus, ferry)")
}

func parseRouteType(name string) (model.RouteType, error) {
	for _, rt := range []model.RouteType{
		model.RouteTypeTram,
		model.RouteTypeRail,
		model.RouteTypeBus,
		model.RouteTypeFerry,
	} {
		if rt.String() == name {
			return rt, nil
		}
	}
	return 0, fmt.Errorf("unknown route type %q", name)
}

func departures(cmd *cobra.Command, args []string) error {
	routeType, err := parseRouteType(routeTypeName)
	if err != nil {
		return err
	}

	manager, err := loadManager(cmd.Context())
	if err != nil {
		return err
	}

	stop, results, err := manager.Provider.NextServices(args[0], routeType, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", stop.Name)
	for _, departure := range results {
		route, err := manager.Store.GetRoute(departure.Trip.RouteID)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s %s %s\n",
			departure.Departure().Format("15:04"),
			route.ShortName,
			departure.Trip.Headsign,
			departure.Stop.PlatformCode)
	}

	return nil
}
