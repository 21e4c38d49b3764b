// Package profile holds the ONVIF profile handlers and the registry that finds them.
//
// A Handler owns the commands of one ONVIF profile (device management, media, PTZ). The Registry
// knows every handler and, given what a device advertises, which of them are active.
package profile

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"go.viam.com/rdk/logging"

	"github.com/viam-modules/onvifcore/device"
	"github.com/viam-modules/onvifcore/xsd/onvif"
)

var (
	// ErrAlreadyInRegistry means that a handler with the same name is already registered.
	ErrAlreadyInRegistry = errors.New("already in registry")
	// ErrNotFound means that the handler or command was not found.
	ErrNotFound = errors.New("not in registry")
	// ErrUnknownCommand means that the handler does not implement the command.
	ErrUnknownCommand = errors.New("unknown command")
)

// Caller is the device surface handlers send requests through. *device.Device implements it.
type Caller interface {
	CallMethod(ctx context.Context, service string, method interface{}) ([]byte, error)
	Credentials() device.Credentials
	GetStreamURI(ctx context.Context, token onvif.ReferenceToken, creds device.Credentials) (*url.URL, error)
	GetSnapshotURI(ctx context.Context, token onvif.ReferenceToken, creds device.Credentials) (*url.URL, error)
}

// Advertiser reports which service namespaces a device advertises. *session.Session implements it.
type Advertiser interface {
	HasNamespace(namespace string) bool
}

// Command describes one command of a handler.
type Command struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []string `json:"params,omitempty"`
}

// Handler executes the commands of one ONVIF profile.
type Handler interface {
	// Name is the profile name, e.g. "core" or "ptz".
	Name() string
	// Namespaces are the service namespaces the profile needs; any one of them makes it active.
	Namespaces() []string
	// Commands lists the commands the handler executes.
	Commands() []Command
	// Execute runs command against c.
	Execute(ctx context.Context, c Caller, command string, params map[string]interface{}) (interface{}, error)
}

// CanonicalCommand folds the different spellings of a command name onto one key, so
// "get-profiles", "get_profiles" and "GetProfiles" are the same command.
func CanonicalCommand(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r == '-' || r == '_' || r == ' ' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Registry allows handlers to be added, removed and queried.
type Registry struct {
	mu       sync.Mutex
	handlers map[string]Handler
	order    []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// NewDefaultRegistry returns a registry holding the Core, Profile S and PTZ handlers.
func NewDefaultRegistry(logger logging.Logger) *Registry {
	r := NewRegistry()
	for _, h := range []Handler{NewCore(logger), NewProfileS(logger), NewPTZ(logger)} {
		//nolint:errcheck
		r.Add(h)
	}
	return r
}

// Get returns the handler with the name.
func (r *Registry) Get(name string) (Handler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return h, nil
}

// Add adds a handler under its name.
func (r *Registry) Add(h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[h.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyInRegistry, h.Name())
	}
	r.handlers[h.Name()] = h
	r.order = append(r.order, h.Name())
	return nil
}

// Remove removes the handler with the name.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(r.handlers, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
	return nil
}

// Handlers returns every handler in registration order.
func (r *Registry) Handlers() []Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Handler, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.handlers[name])
	}
	return out
}

// ForNamespace returns the handlers that serve namespace.
func (r *Registry) ForNamespace(namespace string) []Handler {
	var out []Handler
	for _, h := range r.Handlers() {
		if slices.Contains(h.Namespaces(), namespace) {
			out = append(out, h)
		}
	}
	return out
}

// ForCommand returns the first handler, in registration order, implementing command.
func (r *Registry) ForCommand(command string) (Handler, Command, error) {
	key := CanonicalCommand(command)
	for _, h := range r.Handlers() {
		for _, cmd := range h.Commands() {
			if CanonicalCommand(cmd.Name) == key {
				return h, cmd, nil
			}
		}
	}
	return nil, Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, command)
}

// Active returns the handlers usable against a device. The core handler is always active; the
// others need the device to advertise one of their namespaces.
func (r *Registry) Active(adv Advertiser) []Handler {
	var out []Handler
	for _, h := range r.Handlers() {
		if IsActive(h, adv) {
			out = append(out, h)
		}
	}
	return out
}

// IsActive reports whether h is usable against the device adv describes.
func IsActive(h Handler, adv Advertiser) bool {
	if h.Name() == CoreName {
		return true
	}
	for _, ns := range h.Namespaces() {
		if adv.HasNamespace(ns) {
			return true
		}
	}
	return false
}
