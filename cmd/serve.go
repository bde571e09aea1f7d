package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seqtransit/timetable"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the timetable refresh loops until interrupted",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := timetable.NewManager(cfg, newLogger(cfg))
	return manager.Run(ctx)
}
