package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.viam.com/rdk/logging"

	"github.com/viam-modules/onvifcore/config"
	"github.com/viam-modules/onvifcore/device"
	"github.com/viam-modules/onvifcore/metrics"
	"github.com/viam-modules/onvifcore/session"
	"github.com/viam-modules/onvifcore/store"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	debug      bool
	deviceName string
	xaddr      string
	username   string
	password   string
	timeout    time.Duration

	cfg    *config.Config
	logger logging.Logger
}

var opts options

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "onvifctl",
		Short:         "Bootstrap ONVIF devices and run commands against them",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.logger = logging.NewLogger("onvifctl")
			if opts.debug {
				opts.logger.SetLevel(logging.DEBUG)
			}
			if opts.configPath == "" {
				opts.cfg = config.Default()
				return nil
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to an onvifctl JSON config")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.StringVarP(&opts.deviceName, "device", "d", "", "name of a device from the config")
	flags.StringVar(&opts.xaddr, "xaddr", "", "device service url or host, overrides --device")
	flags.StringVarP(&opts.username, "user", "u", "", "device username")
	flags.StringVarP(&opts.password, "pass", "p", "", "device password")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per request timeout, defaults to the config step_timeout")
	return root
}

var errNoDevice = errors.New("no device selected, use --xaddr or --device")

// target picks the device the command runs against: --xaddr first, then --device, then the only
// configured device.
func (o *options) target() (config.Device, error) {
	if o.xaddr != "" {
		return config.Device{Name: "cli", Xaddr: o.xaddr, Username: o.username, Password: o.password}, nil
	}
	var dev config.Device
	switch {
	case o.deviceName != "":
		d, ok := o.cfg.Device(o.deviceName)
		if !ok {
			return config.Device{}, fmt.Errorf("device %q is not in the config", o.deviceName)
		}
		dev = d
	case len(o.cfg.Devices) == 1:
		dev = o.cfg.Devices[0]
	default:
		return config.Device{}, errNoDevice
	}
	if o.username != "" {
		dev.Username = o.username
		dev.Password = o.password
	}
	return dev, nil
}

func (o *options) stepTimeout() time.Duration {
	if o.timeout > 0 {
		return o.timeout
	}
	return o.cfg.StepTimeoutDuration()
}

func newDevice(d config.Device, rec metrics.Recorder, logger logging.Logger) (*device.Device, error) {
	params, err := d.Params()
	if err != nil {
		return nil, err
	}
	params.Metrics = rec
	return device.NewDevice(params, logger.Sublogger(d.Name))
}

// openSession bootstraps the target device, or restores its stored snapshot when cached is set.
func (o *options) openSession(ctx context.Context, cached bool) (*session.Session, error) {
	target, err := o.target()
	if err != nil {
		return nil, err
	}
	dev, err := newDevice(target, nil, o.logger)
	if err != nil {
		return nil, err
	}

	if cached {
		s, err := store.Open(o.cfg.StorePath)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		snap, err := s.GetByXaddr(dev.Xaddr().String())
		if err == nil {
			o.logger.Debugf("restored session %s for %s", snap.ID, snap.Xaddr)
			return session.Restore(dev, snap), nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		o.logger.Infof("no stored session for %s, bootstrapping", dev.Xaddr())
	}

	b := session.NewBootstrapper(dev, session.Options{StepTimeout: o.stepTimeout()}, o.logger)
	return b.Run(ctx)
}

// parseParams turns key=value arguments into command parameters. Values stay strings, the profile
// argument helpers parse numbers and booleans, except JSON arrays and objects which are decoded.
func parseParams(args []string) (map[string]interface{}, error) {
	params := map[string]interface{}{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q must be key=value", arg)
		}
		params[key] = parseValue(value)
	}
	return params, nil
}

func parseValue(value string) interface{} {
	if strings.HasPrefix(value, "[") || strings.HasPrefix(value, "{") {
		var v interface{}
		if err := json.Unmarshal([]byte(value), &v); err == nil {
			return v
		}
	}
	return value
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
