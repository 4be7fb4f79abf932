// Command zebr0-server runs the rudimentary key-value test server, serving
// keys from a YAML seed file until interrupted.
//
// Usage:
//
//	zebr0-server [--address 127.0.0.1:8000] [--data seed.yaml]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zebr0/zebr0-go/internal/filesys"
	"github.com/zebr0/zebr0-go/internal/log"
	"github.com/zebr0/zebr0-go/pkg/testserver"
)

const shutdownTimeout = 5 * time.Second

func main() {
	var address, seed string

	root := &cobra.Command{
		Use:           "zebr0-server",
		Short:         "Rudimentary zebr0 key-value server, for development or testing purposes only",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var data map[string]string
			if seed != "" {
				var err error
				if data, err = testserver.LoadSeed(filesys.OS(), seed); err != nil {
					return err
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log.Infof("serving %d keys on %s", len(data), address)
			return serve(ctx, testserver.New(data, testserver.WithAddress(address)))
		},
	}
	root.Flags().StringVar(&address, "address", testserver.DefaultAddress, "host:port to listen on")
	root.Flags().StringVar(&seed, "data", "", "YAML file of keys and values to serve")

	if err := root.Execute(); err != nil {
		color.New(color.FgHiRed, color.Bold).Fprint(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *testserver.Server) error {
	if err := srv.Start(); err != nil {
		return err
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		if err := srv.Wait(); err != nil {
			return err
		}
		if ctx.Err() == nil {
			return errors.New("test server stopped unexpectedly")
		}
		return nil
	})
	grp.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down…")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return grp.Wait()
}
