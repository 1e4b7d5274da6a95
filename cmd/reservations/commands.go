package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sirpyerre/hotel-reservations/internal/app"
	"github.com/sirpyerre/hotel-reservations/internal/core/catalog"
	"github.com/sirpyerre/hotel-reservations/internal/infrastructure/config"
	"github.com/sirpyerre/hotel-reservations/pkg/logger"
)

const serviceName = "hotel-reservations"

var (
	cfg *config.Config
	log zerolog.Logger

	rootCmd = &cobra.Command{
		Use:           "reservations",
		Short:         "Hotel room reservation service",
		Long:          "Serves room availability and bookings over HTTP. Configuration is read from the environment.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadWith(cmd.Context(), envLookuper())
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			cfg = c
			log = logger.Init(logger.Options{
				Level:   cfg.LogLevel,
				Pretty:  cfg.IsDevelopment(),
				Service: serviceName,
				Env:     cfg.Env,
				Output:  os.Stderr,
			})
			return nil
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}

	verifyCmd = &cobra.Command{
		Use:   "verify-data",
		Short: "Load the persisted state and check it for corruption without serving",
		RunE:  runVerify,
	}

	roomsCmd = &cobra.Command{
		Use:   "rooms",
		Short: "Print the room catalog the service would start with",
		RunE:  runRooms,
	}
)

func init() {
	rootCmd.AddCommand(serveCmd, verifyCmd, roomsCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		return err
	}

	if err := a.Run(ctx); err != nil {
		log.Error().Err(err).Msg("service stopped with error")
		return err
	}
	log.Info().Msg("service stopped")
	return nil
}

func runVerify(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	backend, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close(context.WithoutCancel(ctx))

	ds, seeded, err := app.LoadDataset(ctx, backend.Storage, cfg.Storage.SeedRooms)
	if err != nil {
		log.Error().Err(err).Msg("persisted data is not usable")
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ok: %d rooms (seeded: %t), %d clients, %d reservations, last reservation id %d\n",
		len(ds.Rooms), seeded, len(ds.Clients), len(ds.Reservations), ds.LastReservationID)
	return nil
}

func runRooms(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	backend, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close(context.WithoutCancel(ctx))

	ds, _, err := app.LoadDataset(ctx, backend.Storage, cfg.Storage.SeedRooms)
	if err != nil {
		return err
	}

	rooms, err := catalog.New(ds.Rooms)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROOM\tMAX GUESTS")
	for _, r := range rooms.List() {
		fmt.Fprintf(w, "%d\t%d\n", r.ID, r.MaxGuests)
	}
	return w.Flush()
}
