package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"go.viam.com/rdk/logging"
	"go.viam.com/test"

	"github.com/viam-modules/onvifcore/device"
	"github.com/viam-modules/onvifcore/gosoap"
	"github.com/viam-modules/onvifcore/metrics"
	"github.com/viam-modules/onvifcore/onviftest"
)

func newDevice(t *testing.T, cam *onviftest.Camera) *device.Device {
	t.Helper()
	u, err := url.Parse(cam.URL())
	test.That(t, err, test.ShouldBeNil)
	dev, err := device.NewDevice(device.Params{Xaddr: u, Username: "admin", Password: "secret"}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return dev
}

func TestRun(t *testing.T) {
	logger := logging.NewTestLogger(t)

	t.Run("ready", func(t *testing.T) {
		cam := onviftest.NewCamera(t)
		b := NewBootstrapper(newDevice(t, cam), Options{}, logger)
		test.That(t, b.Session().State(), test.ShouldEqual, StateIdle)

		s, err := b.Run(context.Background())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, s.State(), test.ShouldEqual, StateReady)
		test.That(t, s.Ready(), test.ShouldBeTrue)
		test.That(t, s.DeviceInformation().Manufacturer, test.ShouldEqual, "Acme")
		test.That(t, s.Scopes().Name(), test.ShouldEqual, "Front Door")
		test.That(t, len(s.Services()), test.ShouldEqual, 3)
		test.That(t, len(s.NetworkInterfaces()), test.ShouldEqual, 1)
		test.That(t, s.Capabilities().Supports("events"), test.ShouldBeTrue)

		calls := cam.Calls()
		test.That(t, calls, test.ShouldResemble, []string{
			"GetDeviceInformation",
			"GetServices",
			"GetServiceCapabilities",
			"GetServiceCapabilities",
			"GetServiceCapabilities",
			"GetScopes",
			"GetNetworkInterfaces",
			"GetCapabilities",
		})

		caps, ok := s.ServiceCapabilities(device.NamespacePTZ)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, caps.Flags["System.SystemReboot"], test.ShouldEqual, "true")
	})

	t.Run("endpoint merge prefers GetServices", func(t *testing.T) {
		cam := onviftest.NewCamera(t)
		dev := newDevice(t, cam)
		_, err := NewBootstrapper(dev, Options{}, logger).Run(context.Background())
		test.That(t, err, test.ShouldBeNil)
		base := cam.Server.URL
		test.That(t, dev.Endpoint(device.ServiceMedia), test.ShouldEqual, base+"/onvif/media")
		test.That(t, dev.Endpoint(device.ServiceEvents), test.ShouldEqual, base+"/onvif/events")
		test.That(t, dev.Endpoint(device.ServicePTZ), test.ShouldEqual, base+"/onvif/ptz")
	})

	t.Run("pre 2.0 device without GetServices", func(t *testing.T) {
		cam := onviftest.NewCamera(t)
		cam.SetFault("GetServices", "ter:ActionNotSupported")
		cam.SetFault("GetServiceCapabilities", "ter:ActionNotSupported")
		dev := newDevice(t, cam)

		s, err := NewBootstrapper(dev, Options{}, logger).Run(context.Background())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, s.State(), test.ShouldEqual, StateReady)
		test.That(t, s.Services(), test.ShouldBeEmpty)
		test.That(t, dev.Endpoint(device.ServiceMedia), test.ShouldEqual, cam.Server.URL+"/onvif/media_from_capabilities")

		snap := s.Snapshot()
		test.That(t, snap.StepErrors[StepServices], test.ShouldContainSubstring, "ActionNotSupported")
		test.That(t, snap.StepErrors[StepServiceCapabilities], test.ShouldNotBeEmpty)
		test.That(t, snap.Namespaces, test.ShouldContain, device.NamespaceMedia)
	})

	t.Run("required step failure stops the cascade", func(t *testing.T) {
		cam := onviftest.NewCamera(t)
		cam.SetFault("GetScopes", "ter:NotAuthorized")

		s, err := NewBootstrapper(newDevice(t, cam), Options{}, logger).Run(context.Background())
		test.That(t, err, test.ShouldNotBeNil)
		var stepErr *StepError
		test.That(t, errors.As(err, &stepErr), test.ShouldBeTrue)
		test.That(t, stepErr.Step, test.ShouldEqual, StepScopes)
		var fault *gosoap.Fault
		test.That(t, errors.As(err, &fault), test.ShouldBeTrue)
		test.That(t, fault.IsNotAuthorized(), test.ShouldBeTrue)

		test.That(t, s.State(), test.ShouldEqual, StateFailed)
		test.That(t, s.Err(), test.ShouldEqual, err)
		test.That(t, cam.Calls(), test.ShouldNotContain, "GetNetworkInterfaces")
		test.That(t, cam.Calls(), test.ShouldNotContain, "GetCapabilities")
		test.That(t, s.Snapshot().FailedStep, test.ShouldEqual, StepScopes)
	})

	t.Run("device information is required", func(t *testing.T) {
		cam := onviftest.NewCamera(t)
		cam.SetResponse("GetDeviceInformation", `<tds:Unexpected/>`)

		_, err := NewBootstrapper(newDevice(t, cam), Options{}, logger).Run(context.Background())
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, cam.Calls(), test.ShouldResemble, []string{"GetDeviceInformation"})
	})

	t.Run("single use", func(t *testing.T) {
		cam := onviftest.NewCamera(t)
		b := NewBootstrapper(newDevice(t, cam), Options{}, logger)
		_, err := b.Run(context.Background())
		test.That(t, err, test.ShouldBeNil)
		_, err = b.Run(context.Background())
		test.That(t, err, test.ShouldBeError, ErrAlreadyStarted)
	})

	t.Run("metrics", func(t *testing.T) {
		cam := onviftest.NewCamera(t)
		rec := &recordingMetrics{}
		_, err := NewBootstrapper(newDevice(t, cam), Options{Metrics: rec}, logger).Run(context.Background())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(rec.steps), test.ShouldEqual, len(Steps))
		test.That(t, rec.steps[0], test.ShouldEqual, "GetDeviceInformation:ok")
	})
}

func TestStart(t *testing.T) {
	logger := logging.NewTestLogger(t)

	t.Run("ready", func(t *testing.T) {
		cam := onviftest.NewCamera(t)
		b := NewBootstrapper(newDevice(t, cam), Options{StepTimeout: time.Second}, logger)

		var mu sync.Mutex
		var steps []Step
		var ready *Session
		var failed bool
		err := b.Start(context.Background(), HandlerFuncs{
			Step: func(step Step, err error) {
				mu.Lock()
				defer mu.Unlock()
				steps = append(steps, step)
			},
			Ready:  func(s *Session) { ready = s },
			Failed: func(Step, error) { failed = true },
		})
		test.That(t, err, test.ShouldBeNil)
		b.Wait()

		test.That(t, steps, test.ShouldResemble, Steps)
		test.That(t, ready, test.ShouldEqual, b.Session())
		test.That(t, failed, test.ShouldBeFalse)
		test.That(t, b.Start(context.Background(), nil), test.ShouldBeError, ErrAlreadyStarted)
	})

	t.Run("failed", func(t *testing.T) {
		cam := onviftest.NewCamera(t)
		cam.SetFault("GetCapabilities", "ter:ActionNotSupported")
		b := NewBootstrapper(newDevice(t, cam), Options{}, logger)

		var failedStep Step
		var ready bool
		test.That(t, b.Start(context.Background(), HandlerFuncs{
			Ready:  func(*Session) { ready = true },
			Failed: func(step Step, _ error) { failedStep = step },
		}), test.ShouldBeNil)
		b.Wait()
		test.That(t, ready, test.ShouldBeFalse)
		test.That(t, failedStep, test.ShouldEqual, StepCapabilities)
		test.That(t, b.Session().State(), test.ShouldEqual, StateFailed)
	})

	t.Run("cancelled context fails the bootstrap", func(t *testing.T) {
		cam := onviftest.NewCamera(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		b := NewBootstrapper(newDevice(t, cam), Options{}, logger)
		_, err := b.Run(ctx)
		test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	})
}

func TestSnapshotRestore(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cam := onviftest.NewCamera(t)
	s, err := NewBootstrapper(newDevice(t, cam), Options{}, logger).Run(context.Background())
	test.That(t, err, test.ShouldBeNil)

	raw, err := json.Marshal(s.Snapshot())
	test.That(t, err, test.ShouldBeNil)
	var snap Snapshot
	test.That(t, json.Unmarshal(raw, &snap), test.ShouldBeNil)
	test.That(t, snap.State, test.ShouldEqual, "ready")
	test.That(t, snap.Xaddr, test.ShouldEqual, cam.URL())

	dev := newDevice(t, cam)
	restored := Restore(dev, snap)
	test.That(t, restored.ID(), test.ShouldEqual, s.ID())
	test.That(t, restored.Ready(), test.ShouldBeTrue)
	test.That(t, restored.DeviceInformation(), test.ShouldResemble, s.DeviceInformation())
	test.That(t, dev.Endpoint(device.ServicePTZ), test.ShouldEqual, cam.Server.URL+"/onvif/ptz")
	test.That(t, restored.Namespaces(), test.ShouldResemble, s.Namespaces())
}

func TestStepOptional(t *testing.T) {
	for _, step := range Steps {
		switch step {
		case StepServices, StepServiceCapabilities:
			test.That(t, step.Optional(), test.ShouldBeTrue)
		default:
			test.That(t, step.Optional(), test.ShouldBeFalse)
		}
	}
	test.That(t, StateBootstrapping.String(), test.ShouldEqual, "bootstrapping")
}

type recordingMetrics struct {
	metrics.Nop
	mu    sync.Mutex
	steps []string
}

func (r *recordingMetrics) ObserveBootstrapStep(step, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step+":"+outcome)
}
