package main

import (
	"github.com/spf13/cobra"

	"github.com/viam-modules/onvifcore/dispatch"
	"github.com/viam-modules/onvifcore/profile"
)

func commandsCommand() *cobra.Command {
	var (
		cached bool
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List the commands a device supports",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := profile.NewDefaultRegistry(opts.logger)
			if all {
				listings := []dispatch.Listing{}
				for _, h := range registry.Handlers() {
					listings = append(listings, dispatch.Listing{Profile: h.Name(), Commands: h.Commands()})
				}
				return printJSON(cmd.OutOrStdout(), listings)
			}
			s, err := opts.openSession(cmd.Context(), cached)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dispatch.NewRouter(registry, s, opts.logger).Commands())
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "use the stored session instead of bootstrapping")
	cmd.Flags().BoolVar(&all, "all", false, "list every known command without contacting a device")
	return cmd
}
