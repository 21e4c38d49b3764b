package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/viam-modules/onvifcore/device"
	"github.com/viam-modules/onvifcore/normalize"
	"github.com/viam-modules/onvifcore/onvifdiscovery"
	"github.com/viam-modules/onvifcore/session"
	"github.com/viam-modules/onvifcore/wsdiscovery"
)

type discovered struct {
	wsdiscovery.ProbeMatch
	DeviceInformation *normalize.DeviceInformation `json:"device_information,omitempty"`
}

func discoverCommand() *cobra.Command {
	var (
		info     bool
		attempts int
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find ONVIF devices on the local network with WS-Discovery",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d := wsdiscovery.NewDiscoverer(opts.logger)
			if attempts > 0 {
				d.Attempts = attempts
			}
			matches, err := d.Discover(ctx)
			if err != nil {
				return err
			}
			out := make([]discovered, 0, len(matches))
			for _, m := range matches {
				entry := discovered{ProbeMatch: m}
				if info {
					entry.DeviceInformation = identify(ctx, m, credentialCandidates())
				}
				out = append(out, entry)
			}
			opts.logger.Infof("found %d devices", len(out))
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&info, "info", false, "bootstrap every device to report its manufacturer and model")
	cmd.Flags().IntVar(&attempts, "attempts", 0, "probes per interface")
	return cmd
}

// credentialCandidates returns --user first, then the configured credentials, then no credentials.
func credentialCandidates() []device.Credentials {
	var creds []device.Credentials
	if opts.username != "" {
		creds = append(creds, device.Credentials{User: opts.username, Pass: opts.password})
	}
	creds = append(creds, opts.cfg.Credentials...)
	return append(creds, device.Credentials{})
}

func identify(ctx context.Context, m wsdiscovery.ProbeMatch, creds []device.Credentials) *normalize.DeviceInformation {
	f, err := onvifdiscovery.Bootstrap(ctx, m, creds, session.Options{StepTimeout: opts.stepTimeout()}, opts.logger)
	if err != nil {
		opts.logger.Warnf("could not bootstrap %s: %v", m.Endpoint, err)
		return nil
	}
	info := f.Session.DeviceInformation()
	opts.logger.Infof("%s %s %s", info.Manufacturer, info.Model, info.SerialNumber)
	return &info
}
