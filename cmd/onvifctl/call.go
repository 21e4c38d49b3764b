package main

import (
	"github.com/spf13/cobra"

	"github.com/viam-modules/onvifcore/dispatch"
	"github.com/viam-modules/onvifcore/profile"
)

func callCommand() *cobra.Command {
	var cached bool
	cmd := &cobra.Command{
		Use:   "call <command> [key=value...]",
		Short: "Run one command against a device",
		Example: `  onvifctl call --xaddr 192.168.1.10 -u admin -p secret get-device-information
  onvifctl call -d front-door --cached get-stream-uri profile_token=profile_1
  onvifctl call -d front-door continuous-move profile_token=profile_1 pan_speed=0.5 timeout=2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			s, err := opts.openSession(cmd.Context(), cached)
			if err != nil {
				return err
			}
			router := dispatch.NewRouter(profile.NewDefaultRegistry(opts.logger), s, opts.logger)
			resp, err := router.Call(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			out, err := dispatch.ToMap(resp)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "use the stored session instead of bootstrapping")
	return cmd
}
