package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var stopsCmd = &cobra.Command{
	Use:   "stops <query>...",
	Short: "Searches stops by name or ID",
	Args:  cobra.MinimumNArgs(1),
	RunE:  stops,
}

var (
	stopsRouteType string
	parentsOnly    bool
)

func init() {
	stopsCmd.Flags().StringVarP(&stopsRouteType, "type", "t", "bus", "Route type (tram, rail, bus, ferry)")
	stopsCmd.Flags().BoolVarP(&parentsOnly, "parents-only", "p", false, "Only return stations, not platforms")
}

func stops(cmd *cobra.Command, args []string) error {
	routeType, err := parseRouteType(stopsRouteType)
	if err != nil {
		return err
	}

	manager, err := loadManager(cmd.Context())
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	results, err := manager.Provider.SearchStops(query, routeType, parentsOnly)
	if err != nil {
		return err
	}

	for _, stop := range results {
		fmt.Printf("%s: %s\n", stop.ID, stop.Name)
	}

	return nil
}
