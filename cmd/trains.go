package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/seqtransit/timetable/model"
)

var trainsCmd = &cobra.Command{
	Use:   "trains <station_id>",
	Short: "Lists upcoming train departures from a station, by direction",
	Args:  cobra.ExactArgs(1),
	RunE:  trains,
}

func trains(cmd *cobra.Command, args []string) error {
	manager, err := loadManager(cmd.Context())
	if err != nil {
		return err
	}

	station, downward, upward, err := manager.Provider.NextTrains(args[0], time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", station.Name)
	printTrains := func(heading string, trains []model.StopTimeInstance) {
		fmt.Println(heading)
		for _, train := range trains {
			fmt.Printf("  %s %s platform %s\n",
				train.Departure().Format("15:04"),
				train.Trip.Headsign,
				train.Stop.PlatformCode)
		}
	}

	printTrains("Downward:", downward)
	printTrains("Upward:", upward)

	return nil
}
