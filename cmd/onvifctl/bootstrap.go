package main

import (
	"github.com/spf13/cobra"

	"github.com/viam-modules/onvifcore/session"
	"github.com/viam-modules/onvifcore/store"
)

func bootstrapCommand() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Run the bootstrap sequence against a device and print the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := opts.target()
			if err != nil {
				return err
			}
			dev, err := newDevice(target, nil, opts.logger)
			if err != nil {
				return err
			}

			b := session.NewBootstrapper(dev, session.Options{StepTimeout: opts.stepTimeout()}, opts.logger)
			var failure error
			err = b.Start(cmd.Context(), session.HandlerFuncs{
				Step: func(step session.Step, err error) {
					if err != nil {
						opts.logger.Infof("%-24s %v", step, err)
						return
					}
					opts.logger.Infof("%-24s ok", step)
				},
				Failed: func(_ session.Step, err error) {
					failure = err
				},
			})
			if err != nil {
				return err
			}
			b.Wait()

			snap := b.Session().Snapshot()
			if err := printJSON(cmd.OutOrStdout(), snap); err != nil {
				return err
			}
			if failure != nil {
				return failure
			}
			if !save {
				return nil
			}
			s, err := store.Open(opts.cfg.StorePath)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Put(snap); err != nil {
				return err
			}
			opts.logger.Infof("saved session %s to %s", snap.ID, opts.cfg.StorePath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "store the session for later --cached use")
	return cmd
}
