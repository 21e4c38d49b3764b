package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.viam.com/rdk/logging"
	goutils "go.viam.com/utils"

	"github.com/viam-modules/onvifcore/device"
	"github.com/viam-modules/onvifcore/metrics"
	"github.com/viam-modules/onvifcore/normalize"
	"github.com/viam-modules/onvifcore/xsd/onvif"
)

// DefaultStepTimeout bounds each bootstrap request.
const DefaultStepTimeout = 10 * time.Second

// ErrAlreadyStarted is returned when a Bootstrapper is run twice.
var ErrAlreadyStarted = errors.New("bootstrap already started")

// Step is one request of the bootstrap sequence.
type Step string

// Bootstrap steps, in the order they run.
const (
	StepDeviceInformation   Step = "GetDeviceInformation"
	StepServices            Step = "GetServices"
	StepServiceCapabilities Step = "GetServiceCapabilities"
	StepScopes              Step = "GetScopes"
	StepNetworkInterfaces   Step = "GetNetworkInterfaces"
	StepCapabilities        Step = "GetCapabilities"
)

// Steps is the fixed bootstrap order.
var Steps = []Step{
	StepDeviceInformation,
	StepServices,
	StepServiceCapabilities,
	StepScopes,
	StepNetworkInterfaces,
	StepCapabilities,
}

// Optional reports whether a failure of the step is tolerated. Devices older than ONVIF 2.0
// reject GetServices and GetServiceCapabilities.
func (s Step) Optional() bool {
	return s == StepServices || s == StepServiceCapabilities
}

// StepError is the error of a required step.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("bootstrap step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Handler receives progress from a background bootstrap.
type Handler interface {
	// OnStep is called after every step; err is non-nil when the step failed.
	OnStep(step Step, err error)
	// OnReady is called once when every required step succeeded.
	OnReady(s *Session)
	// OnFailed is called once when a required step failed.
	OnFailed(step Step, err error)
}

// HandlerFuncs adapts plain functions to a Handler. Nil functions are skipped.
type HandlerFuncs struct {
	Step   func(step Step, err error)
	Ready  func(s *Session)
	Failed func(step Step, err error)
}

// OnStep implements Handler.
func (h HandlerFuncs) OnStep(step Step, err error) {
	if h.Step != nil {
		h.Step(step, err)
	}
}

// OnReady implements Handler.
func (h HandlerFuncs) OnReady(s *Session) {
	if h.Ready != nil {
		h.Ready(s)
	}
}

// OnFailed implements Handler.
func (h HandlerFuncs) OnFailed(step Step, err error) {
	if h.Failed != nil {
		h.Failed(step, err)
	}
}

// Options configures a Bootstrapper.
type Options struct {
	// StepTimeout bounds every request. Defaults to DefaultStepTimeout.
	StepTimeout time.Duration
	Metrics     metrics.Recorder
}

// Bootstrapper drives the fixed bootstrap sequence against one device. It is single use.
type Bootstrapper struct {
	dev     *device.Device
	logger  logging.Logger
	opts    Options
	session *Session

	started                 atomic.Bool
	activeBackgroundWorkers sync.WaitGroup
	// services whose endpoint came from GetServices; GetCapabilities does not override them.
	advertised map[string]struct{}
}

// NewBootstrapper returns a Bootstrapper for dev.
func NewBootstrapper(dev *device.Device, opts Options, logger logging.Logger) *Bootstrapper {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = DefaultStepTimeout
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	return &Bootstrapper{
		dev:        dev,
		logger:     logger,
		opts:       opts,
		session:    newSession(dev),
		advertised: map[string]struct{}{},
	}
}

// Session returns the session being bootstrapped. It is valid before, during and after the run.
func (b *Bootstrapper) Session() *Session {
	return b.session
}

// Run bootstraps synchronously.
func (b *Bootstrapper) Run(ctx context.Context) (*Session, error) {
	if !b.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}
	if err := b.run(ctx, HandlerFuncs{}); err != nil {
		return b.session, err
	}
	return b.session, nil
}

// Start bootstraps in the background, reporting progress to h. Use Wait to block until done.
func (b *Bootstrapper) Start(ctx context.Context, h Handler) error {
	if !b.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if h == nil {
		h = HandlerFuncs{}
	}
	b.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer b.activeBackgroundWorkers.Done()
		//nolint:errcheck
		b.run(ctx, h)
	})
	return nil
}

// Wait blocks until a background run started with Start has finished.
func (b *Bootstrapper) Wait() {
	b.activeBackgroundWorkers.Wait()
}

func (b *Bootstrapper) run(ctx context.Context, h Handler) error {
	b.session.setState(StateBootstrapping)
	b.logger.Debugf("bootstrapping %s", b.dev.Xaddr())

	for _, step := range Steps {
		err := b.runStep(ctx, step)
		outcome := metrics.OutcomeOK
		if err != nil {
			outcome = metrics.OutcomeFailed
		}
		b.opts.Metrics.ObserveBootstrapStep(string(step), outcome)
		h.OnStep(step, err)
		if err == nil {
			continue
		}
		if step.Optional() && ctx.Err() == nil {
			b.logger.Warnf("%s failed on %s, continuing: %v", step, b.dev.Xaddr(), err)
			b.session.update(func(s *Session) { s.stepErrors[step] = err.Error() })
			continue
		}
		stepErr := &StepError{Step: step, Err: err}
		b.session.fail(step, stepErr)
		b.logger.Warnf("bootstrap of %s failed: %v", b.dev.Xaddr(), stepErr)
		h.OnFailed(step, stepErr)
		return stepErr
	}

	b.session.update(func(s *Session) {
		s.state = StateReady
		s.bootstrappedAt = time.Now().UTC()
	})
	b.logger.Debugf("bootstrap of %s ready, endpoints: %v", b.dev.Xaddr(), b.dev.Endpoints())
	h.OnReady(b.session)
	return nil
}

func (b *Bootstrapper) runStep(ctx context.Context, step Step) error {
	if step == StepServiceCapabilities {
		// bounded per service below
		return b.serviceCapabilities(ctx)
	}
	stepCtx, cancel := context.WithTimeout(ctx, b.opts.StepTimeout)
	defer cancel()

	switch step {
	case StepDeviceInformation:
		body, err := b.dev.CallMethod(stepCtx, device.ServiceDevice, device.GetDeviceInformation{})
		if err != nil {
			return err
		}
		info, err := normalize.ParseDeviceInformation(body)
		if err != nil {
			return err
		}
		b.session.update(func(s *Session) { s.info = info })
	case StepServices:
		body, err := b.dev.CallMethod(stepCtx, device.ServiceDevice, device.GetServices{IncludeCapability: true})
		if err != nil {
			return err
		}
		services, err := normalize.ParseServices(body)
		if err != nil {
			return err
		}
		for _, svc := range services {
			name := device.ServiceName(svc.Namespace)
			b.dev.SetEndpoint(name, svc.XAddr)
			if svc.XAddr != "" {
				b.advertised[name] = struct{}{}
			}
		}
		b.session.update(func(s *Session) { s.services = services })
	case StepScopes:
		body, err := b.dev.CallMethod(stepCtx, device.ServiceDevice, device.GetScopes{})
		if err != nil {
			return err
		}
		scopes, err := normalize.ParseScopes(body)
		if err != nil {
			return err
		}
		b.session.update(func(s *Session) { s.scopes = scopes })
	case StepNetworkInterfaces:
		body, err := b.dev.CallMethod(stepCtx, device.ServiceDevice, device.GetNetworkInterfaces{})
		if err != nil {
			return err
		}
		ifaces, err := normalize.ParseNetworkInterfaces(body)
		if err != nil {
			return err
		}
		b.session.update(func(s *Session) { s.interfaces = ifaces })
	case StepCapabilities:
		body, err := b.dev.CallMethod(stepCtx, device.ServiceDevice, device.GetCapabilities{Category: onvif.CapabilityCategory("All")})
		if err != nil {
			return err
		}
		caps, err := normalize.ParseCapabilities(body)
		if err != nil {
			return err
		}
		b.mergeCapabilityEndpoints(caps)
		b.session.update(func(s *Session) { s.capabilities = caps })
	default:
		return fmt.Errorf("unknown bootstrap step %q", step)
	}
	return nil
}

// mergeCapabilityEndpoints fills endpoints GetServices did not provide.
func (b *Bootstrapper) mergeCapabilityEndpoints(caps normalize.Capabilities) {
	for service, xaddr := range caps.XAddrs {
		if _, ok := b.advertised[service]; ok {
			continue
		}
		if service == device.ServiceDevice {
			// the configured device address stays authoritative
			continue
		}
		b.dev.SetEndpoint(service, xaddr)
	}
}

// serviceCapabilities asks every advertised service for its capabilities. Individual failures are
// logged; the step only fails if no service answered.
func (b *Bootstrapper) serviceCapabilities(ctx context.Context) error {
	namespaces := []string{device.NamespaceDevice}
	for _, svc := range b.session.Services() {
		if svc.Namespace != device.NamespaceDevice {
			namespaces = append(namespaces, svc.Namespace)
		}
	}
	sort.Strings(namespaces[1:])

	var errs []error
	answered := 0
	for _, ns := range namespaces {
		callCtx, cancel := context.WithTimeout(ctx, b.opts.StepTimeout)
		body, err := b.dev.CallMethod(callCtx, device.ServiceName(ns), device.GetServiceCapabilities(ns))
		cancel()
		if err == nil {
			var caps normalize.ServiceCapabilities
			caps, err = normalize.ParseServiceCapabilities(ns, body)
			if err == nil {
				answered++
				b.session.update(func(s *Session) { s.serviceCaps[ns] = caps })
				continue
			}
		}
		b.logger.Debugf("GetServiceCapabilities for %s failed: %v", ns, err)
		errs = append(errs, err)
	}
	if answered == 0 {
		return errors.Join(errs...)
	}
	return nil
}
