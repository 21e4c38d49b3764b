package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/viam-modules/onvifcore/httpapi"
	"github.com/viam-modules/onvifcore/mdns"
	"github.com/viam-modules/onvifcore/metrics"
	"github.com/viam-modules/onvifcore/profile"
	"github.com/viam-modules/onvifcore/store"
)

const shutdownTimeout = 5 * time.Second

func serveCommand() *cobra.Command {
	var (
		listen string
		cached bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve device sessions and commands over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			logger := opts.logger

			st, err := store.Open(opts.cfg.StorePath)
			if err != nil {
				return err
			}
			defer st.Close()

			var announcer *mdns.Announcer
			if opts.cfg.MDNS {
				announcer = mdns.NewAnnouncerFromCache(opts.cfg.MDNSCache, logger.Sublogger("mdns"))
				defer func() {
					if opts.cfg.MDNSCache != "" {
						if err := announcer.SaveCache(); err != nil {
							logger.Warnf("failed to save mdns cache: %v", err)
						}
					}
					announcer.Shutdown()
				}()
			}

			srv, err := httpapi.NewServer(httpapi.Options{
				Registry:    profile.NewDefaultRegistry(logger),
				Store:       st,
				Announcer:   announcer,
				Metrics:     metrics.NewCollector(),
				StepTimeout: opts.stepTimeout(),
			}, logger.Sublogger("http"))
			if err != nil {
				return err
			}

			// configured devices are opened up front, one that fails is logged and skipped
			for _, d := range opts.cfg.Devices {
				u, err := d.URL()
				if err != nil {
					return err
				}
				if _, err := srv.Open(ctx, httpapi.OpenRequest{
					Xaddr:                    u.String(),
					Username:                 d.Username,
					Password:                 d.Password,
					SkipLocalTLSVerification: d.SkipLocalTLSVerification,
					Cached:                   cached,
				}); err != nil {
					logger.Warnf("failed to open %s: %v", d.Name, err)
				}
			}

			if listen == "" {
				listen = opts.cfg.Listen
			}
			httpServer := &http.Server{
				Addr:              listen,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Infof("listening on %s", listen)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on, defaults to the config listen")
	cmd.Flags().BoolVar(&cached, "cached", false, "restore stored sessions for configured devices instead of bootstrapping")
	return cmd
}
