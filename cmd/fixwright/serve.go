package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fixwright/fixwright/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP control plane",
	Long:  `Serve the run API: submit repair runs, resume failed ones, and inspect state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		r, store, err := buildRunner(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		srv := server.New(r, store, cfg.DefaultRetryLimit)
		fmt.Printf("Listening on %s\n", cfg.ListenAddr)
		return srv.ListenAndServe(ctx, cfg.ListenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
