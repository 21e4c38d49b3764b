// Package onvifsession implements a generic component that holds a bootstrapped ONVIF session and
// dispatches DoCommand requests to the device's profiles.
package onvifsession

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.viam.com/rdk/components/generic"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"

	"github.com/viam-modules/onvifcore"
	"github.com/viam-modules/onvifcore/device"
	"github.com/viam-modules/onvifcore/dispatch"
	"github.com/viam-modules/onvifcore/profile"
	"github.com/viam-modules/onvifcore/session"
)

// Model is the model of the ONVIF session component.
var Model = onvifcore.Family.WithModel("onvif-session")

const stopOnCloseTimeout = 5 * time.Second

func init() {
	resource.RegisterComponent(
		generic.API,
		Model,
		resource.Registration[resource.Resource, *Config]{
			Constructor: newSession,
		},
	)
}

// Config is the configuration of the ONVIF session component.
type Config struct {
	Address  string `json:"address"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	// ProfileToken is used for commands that take a profile_token when the request has none.
	ProfileToken             string  `json:"profile_token,omitempty"`
	SkipLocalTLSVerification bool    `json:"skip_local_tls_verification,omitempty"`
	StepTimeoutSeconds       float64 `json:"step_timeout_seconds,omitempty"`
}

// Validate validates the configuration.
func (cfg *Config) Validate(path string) ([]string, []string, error) {
	if cfg.Address == "" {
		return nil, nil, fmt.Errorf(`expected "address" attribute for %s %q`, Model.String(), path)
	}
	u, err := url.Parse(cfg.Address)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, nil, fmt.Errorf(`"address" for %s %q must be the device service url, e.g. http://192.168.1.10/onvif/device_service`,
			Model.String(), path)
	}
	if cfg.Password != "" && cfg.Username == "" {
		return nil, nil, fmt.Errorf(`"password" set without "username" for %s %q`, Model.String(), path)
	}
	if cfg.StepTimeoutSeconds < 0 {
		return nil, nil, fmt.Errorf(`"step_timeout_seconds" must not be negative for %s %q`, Model.String(), path)
	}
	return nil, nil, nil
}

type onvifSession struct {
	resource.AlwaysRebuild

	name   resource.Name
	logger logging.Logger
	cfg    *Config

	bootstrapper *session.Bootstrapper
	router       *dispatch.Router
	// closed once bootstrap finished, successfully or not
	done     chan struct{}
	doneOnce sync.Once

	cancelCtx  context.Context
	cancelFunc func()
}

func newSession(
	ctx context.Context,
	deps resource.Dependencies,
	rawConf resource.Config,
	logger logging.Logger,
) (resource.Resource, error) {
	conf, err := resource.NativeConfig[*Config](rawConf)
	if err != nil {
		return nil, err
	}
	return NewSession(ctx, deps, rawConf.ResourceName(), conf, logger)
}

// NewSession creates the component and starts bootstrapping the device in the background.
func NewSession(
	_ context.Context,
	_ resource.Dependencies,
	name resource.Name,
	conf *Config,
	logger logging.Logger,
) (resource.Resource, error) {
	u, err := url.Parse(conf.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", conf.Address, err)
	}
	dev, err := device.NewDevice(device.Params{
		Xaddr:                    u,
		Username:                 conf.Username,
		Password:                 conf.Password,
		SkipLocalTLSVerification: conf.SkipLocalTLSVerification,
	}, logger.Sublogger("device"))
	if err != nil {
		return nil, fmt.Errorf("failed to create ONVIF device for %s: %w", u.Redacted(), err)
	}

	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	b := session.NewBootstrapper(dev, session.Options{
		StepTimeout: time.Duration(conf.StepTimeoutSeconds * float64(time.Second)),
	}, logger.Sublogger("bootstrap"))

	s := &onvifSession{
		name:         name,
		logger:       logger,
		cfg:          conf,
		bootstrapper: b,
		router:       dispatch.NewRouter(profile.NewDefaultRegistry(logger), b.Session(), logger.Sublogger("dispatch")),
		done:         make(chan struct{}),
		cancelCtx:    cancelCtx,
		cancelFunc:   cancelFunc,
	}
	if conf.ProfileToken == "" {
		logger.Info("No 'profile_token' configured, media commands use the first profile and PTZ commands need one per request.")
	}

	if err := b.Start(cancelCtx, session.HandlerFuncs{
		Step: func(step session.Step, err error) {
			if err != nil {
				logger.Debugf("bootstrap step %s failed: %v", step, err)
			}
		},
		Ready: func(sess *session.Session) {
			info := sess.DeviceInformation()
			logger.Infof("ONVIF session ready: %s %s (firmware %s)", info.Manufacturer, info.Model, info.FirmwareVersion)
			s.finish()
		},
		Failed: func(step session.Step, err error) {
			logger.Errorf("ONVIF bootstrap failed at %s: %v", step, err)
			s.finish()
		},
	}); err != nil {
		cancelFunc()
		return nil, err
	}
	return s, nil
}

func (s *onvifSession) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *onvifSession) Name() resource.Name {
	return s.name
}

// waitBootstrapped blocks until bootstrap has finished or ctx is done.
func (s *onvifSession) waitBootstrapped(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DoCommand dispatches {"command": name, ...params}. "status" returns the session snapshot and
// "commands" lists what the device supports.
func (s *onvifSession) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	command, err := profile.GetString(cmd, "command")
	if err != nil {
		return nil, errors.New("invalid command request: 'command' key missing or not a string")
	}
	s.logger.Debugf("Received command: %s with args: %v", command, cmd)

	if err := s.waitBootstrapped(ctx); err != nil {
		return nil, err
	}
	if profile.CanonicalCommand(command) == "status" {
		return dispatch.ToMap(dispatch.Response{Command: "status", Value: s.router.Session().Snapshot()})
	}

	if _, ok := cmd["profile_token"]; !ok && s.cfg.ProfileToken != "" {
		withToken := make(map[string]interface{}, len(cmd)+1)
		for k, v := range cmd {
			withToken[k] = v
		}
		withToken["profile_token"] = s.cfg.ProfileToken
		cmd = withToken
	}
	return s.router.DoCommand(ctx, cmd)
}

// Close stops any PTZ movement and ends the session.
func (s *onvifSession) Close(ctx context.Context) error {
	s.cancelFunc()
	s.bootstrapper.Wait()
	s.router.Wait()

	sess := s.router.Session()
	if sess.Ready() && sess.HasNamespace(device.NamespacePTZ) && s.cfg.ProfileToken != "" {
		stopCtx, cancel := context.WithTimeout(ctx, stopOnCloseTimeout)
		defer cancel()
		if _, err := s.router.Call(stopCtx, "Stop", map[string]interface{}{"profile_token": s.cfg.ProfileToken}); err != nil {
			s.logger.Errorf("Failed to stop PTZ: %v", err)
		}
	}
	return nil
}
