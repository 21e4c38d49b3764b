// Package session bootstraps an ONVIF device into a ready session and holds what was learned.
package session

import (
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viam-modules/onvifcore/device"
	"github.com/viam-modules/onvifcore/normalize"
)

// State is the lifecycle state of a Session.
type State int

// Session states. A session only moves forward: Idle, Bootstrapping, then Ready or Failed.
const (
	StateIdle State = iota
	StateBootstrapping
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBootstrapping:
		return "bootstrapping"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is everything the bootstrap sequence learned about one device.
// It is safe for concurrent use.
type Session struct {
	id  string
	dev *device.Device

	mu             sync.RWMutex
	state          State
	failedStep     Step
	err            error
	info           normalize.DeviceInformation
	services       []normalize.Service
	serviceCaps    map[string]normalize.ServiceCapabilities
	scopes         normalize.ScopeSet
	interfaces     []normalize.NetworkInterface
	capabilities   normalize.Capabilities
	stepErrors     map[Step]string
	bootstrappedAt time.Time
}

func newSession(dev *device.Device) *Session {
	return &Session{
		id:          uuid.NewString(),
		dev:         dev,
		serviceCaps: map[string]normalize.ServiceCapabilities{},
		stepErrors:  map[Step]string{},
	}
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// Device returns the transport the session was bootstrapped over.
func (s *Session) Device() *device.Device {
	return s.dev
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ready reports whether bootstrap completed.
func (s *Session) Ready() bool {
	return s.State() == StateReady
}

// Err returns the error that failed the session, if any.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// DeviceInformation returns the GetDeviceInformation result.
func (s *Session) DeviceInformation() normalize.DeviceInformation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Services returns the GetServices result. It is empty on devices that rejected GetServices.
func (s *Session) Services() []normalize.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.services)
}

// ServiceCapabilities returns the capabilities reported for a service namespace.
func (s *Session) ServiceCapabilities(namespace string) (normalize.ServiceCapabilities, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	caps, ok := s.serviceCaps[namespace]
	return caps, ok
}

// Scopes returns the GetScopes result.
func (s *Session) Scopes() normalize.ScopeSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.scopes)
}

// NetworkInterfaces returns the GetNetworkInterfaces result.
func (s *Session) NetworkInterfaces() []normalize.NetworkInterface {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.interfaces)
}

// Capabilities returns the GetCapabilities result.
func (s *Session) Capabilities() normalize.Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capabilities
}

// Namespaces returns the sorted service namespaces the device advertises, from GetServices and
// from the addresses in GetCapabilities.
func (s *Session) Namespaces() []string {
	seen := map[string]struct{}{}
	for service := range s.dev.Endpoints() {
		if ns := device.Namespace(service); ns != "" {
			seen[ns] = struct{}{}
		}
	}
	s.mu.RLock()
	for _, svc := range s.services {
		seen[svc.Namespace] = struct{}{}
	}
	s.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// HasNamespace reports whether the device advertises namespace.
func (s *Session) HasNamespace(namespace string) bool {
	return slices.Contains(s.Namespaces(), namespace)
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Session) fail(step Step, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFailed
	s.failedStep = step
	s.err = err
}

func (s *Session) update(fn func(s *Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// Snapshot is a JSON serialisable copy of a Session.
type Snapshot struct {
	ID                  string                                   `json:"id"`
	Xaddr               string                                   `json:"xaddr"`
	State               string                                   `json:"state"`
	FailedStep          Step                                     `json:"failed_step,omitempty"`
	Error               string                                   `json:"error,omitempty"`
	DeviceInformation   normalize.DeviceInformation              `json:"device_information"`
	Services            []normalize.Service                      `json:"services,omitempty"`
	ServiceCapabilities map[string]normalize.ServiceCapabilities `json:"service_capabilities,omitempty"`
	Scopes              normalize.ScopeSet                       `json:"scopes,omitempty"`
	NetworkInterfaces   []normalize.NetworkInterface             `json:"network_interfaces,omitempty"`
	Capabilities        normalize.Capabilities                   `json:"capabilities"`
	Endpoints           map[string]string                        `json:"endpoints"`
	Namespaces          []string                                 `json:"namespaces"`
	StepErrors          map[Step]string                          `json:"step_errors,omitempty"`
	BootstrappedAt      time.Time                                `json:"bootstrapped_at,omitempty"`
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	namespaces := s.Namespaces()
	endpoints := s.dev.Endpoints()

	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		ID:                  s.id,
		Xaddr:               s.dev.Xaddr().String(),
		State:               s.state.String(),
		FailedStep:          s.failedStep,
		DeviceInformation:   s.info,
		Services:            slices.Clone(s.services),
		ServiceCapabilities: make(map[string]normalize.ServiceCapabilities, len(s.serviceCaps)),
		Scopes:              slices.Clone(s.scopes),
		NetworkInterfaces:   slices.Clone(s.interfaces),
		Capabilities:        s.capabilities,
		Endpoints:           endpoints,
		Namespaces:          namespaces,
		StepErrors:          make(map[Step]string, len(s.stepErrors)),
		BootstrappedAt:      s.bootstrappedAt,
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	for k, v := range s.serviceCaps {
		snap.ServiceCapabilities[k] = v
	}
	for k, v := range s.stepErrors {
		snap.StepErrors[k] = v
	}
	return snap
}

// Restore rebuilds a ready session from a stored snapshot without calling the device. The
// snapshot's endpoints are copied onto dev.
func Restore(dev *device.Device, snap Snapshot) *Session {
	s := newSession(dev)
	if snap.ID != "" {
		s.id = snap.ID
	}
	for service, xaddr := range snap.Endpoints {
		dev.SetEndpoint(service, xaddr)
	}
	s.info = snap.DeviceInformation
	s.services = slices.Clone(snap.Services)
	for k, v := range snap.ServiceCapabilities {
		s.serviceCaps[k] = v
	}
	s.scopes = slices.Clone(snap.Scopes)
	s.interfaces = slices.Clone(snap.NetworkInterfaces)
	s.capabilities = snap.Capabilities
	for k, v := range snap.StepErrors {
		s.stepErrors[k] = v
	}
	s.bootstrappedAt = snap.BootstrappedAt
	if snap.State == StateReady.String() {
		s.state = StateReady
	} else {
		s.state = StateFailed
		s.failedStep = snap.FailedStep
		if snap.Error != "" {
			s.err = errors.New(snap.Error)
		}
	}
	return s
}
