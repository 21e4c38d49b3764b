// Package dispatch routes named device commands to the profile handler that owns them.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.viam.com/rdk/logging"
	goutils "go.viam.com/utils"

	"github.com/viam-modules/onvifcore/profile"
	"github.com/viam-modules/onvifcore/session"
)

// ListCommand is the DoCommand name that lists the commands available on the session.
const ListCommand = "commands"

var (
	// ErrUnknownCommand means no registered profile has a command with that name.
	ErrUnknownCommand = profile.ErrUnknownCommand
	// ErrProfileUnavailable means the command exists but the device does not advertise its profile.
	ErrProfileUnavailable = errors.New("profile not available on device")
	// ErrSessionNotReady means the session has not finished bootstrapping, or failed to.
	ErrSessionNotReady = errors.New("session not ready")
)

// Response is the result of a dispatched command.
type Response struct {
	Command string      `json:"command"`
	Profile string      `json:"profile"`
	Value   interface{} `json:"value"`
}

// ResponseHandler receives the outcome of a dispatched command. Exactly one of resp and err is
// meaningful.
type ResponseHandler func(resp Response, err error)

// Listing is the set of commands one active profile offers.
type Listing struct {
	Profile  string            `json:"profile"`
	Commands []profile.Command `json:"commands"`
}

// Router dispatches commands for one session.
type Router struct {
	registry *profile.Registry
	session  *session.Session
	logger   logging.Logger

	activeBackgroundWorkers sync.WaitGroup
}

// NewRouter returns a Router over the handlers of registry.
func NewRouter(registry *profile.Registry, s *session.Session, logger logging.Logger) *Router {
	return &Router{registry: registry, session: s, logger: logger}
}

// Session returns the session commands are dispatched to.
func (r *Router) Session() *session.Session {
	return r.session
}

// Call resolves command among the session's active profiles and executes it.
func (r *Router) Call(ctx context.Context, command string, params map[string]interface{}) (Response, error) {
	if !r.session.Ready() {
		if err := r.session.Err(); err != nil {
			return Response{}, fmt.Errorf("%w: %s: %w", ErrSessionNotReady, r.session.State(), err)
		}
		return Response{}, fmt.Errorf("%w: %s", ErrSessionNotReady, r.session.State())
	}
	h, cmd, err := r.resolve(command)
	if err != nil {
		return Response{}, err
	}
	r.logger.Debugf("dispatching %s to %s", cmd.Name, h.Name())
	value, err := h.Execute(ctx, r.session.Device(), cmd.Name, params)
	if err != nil {
		return Response{}, fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return Response{Command: cmd.Name, Profile: h.Name(), Value: value}, nil
}

// Dispatch executes command and hands the outcome to rh. The error is also returned.
func (r *Router) Dispatch(ctx context.Context, command string, params map[string]interface{}, rh ResponseHandler) error {
	resp, err := r.Call(ctx, command, params)
	if rh != nil {
		rh(resp, err)
	}
	return err
}

// Go dispatches command in the background. rh is called from the worker goroutine.
func (r *Router) Go(ctx context.Context, command string, params map[string]interface{}, rh ResponseHandler) {
	r.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer r.activeBackgroundWorkers.Done()
		//nolint:errcheck
		r.Dispatch(ctx, command, params, rh)
	})
}

// Wait blocks until every command started with Go has completed.
func (r *Router) Wait() {
	r.activeBackgroundWorkers.Wait()
}

// resolve prefers active handlers, so a command offered by two profiles goes to the one the
// device supports.
func (r *Router) resolve(command string) (profile.Handler, profile.Command, error) {
	key := profile.CanonicalCommand(command)
	if key == "" {
		return nil, profile.Command{}, fmt.Errorf("%w: empty command", ErrUnknownCommand)
	}
	for _, h := range r.registry.Active(r.session) {
		if cmd, ok := findCommand(h, key); ok {
			return h, cmd, nil
		}
	}
	h, _, err := r.registry.ForCommand(command)
	if err != nil {
		return nil, profile.Command{}, err
	}
	return nil, profile.Command{}, fmt.Errorf("%w: %s needs profile %s (namespaces %s)",
		ErrProfileUnavailable, command, h.Name(), strings.Join(h.Namespaces(), ", "))
}

func findCommand(h profile.Handler, key string) (profile.Command, bool) {
	for _, cmd := range h.Commands() {
		if profile.CanonicalCommand(cmd.Name) == key {
			return cmd, true
		}
	}
	return profile.Command{}, false
}

// Commands lists the commands of every profile active on the session.
func (r *Router) Commands() []Listing {
	active := r.registry.Active(r.session)
	out := make([]Listing, 0, len(active))
	for _, h := range active {
		out = append(out, Listing{Profile: h.Name(), Commands: h.Commands()})
	}
	return out
}

// DoCommand is the map interface used by the viam component and the HTTP API. cmd carries the
// command name under "command" and the parameters alongside it.
func (r *Router) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	name, err := profile.GetString(cmd, "command")
	if err != nil {
		return nil, err
	}
	if profile.CanonicalCommand(name) == ListCommand {
		listing, err := toGeneric(r.Commands())
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"commands": listing}, nil
	}

	params := make(map[string]interface{}, len(cmd))
	for k, v := range cmd {
		if k != "command" {
			params[k] = v
		}
	}
	resp, err := r.Call(ctx, name, params)
	if err != nil {
		return nil, err
	}
	return ToMap(resp)
}

// ToMap converts a response into plain maps, slices and scalars.
func ToMap(resp Response) (map[string]interface{}, error) {
	value, err := toGeneric(resp.Value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", resp.Command, err)
	}
	return map[string]interface{}{
		"command": resp.Command,
		"profile": resp.Profile,
		"result":  value,
	}, nil
}

func toGeneric(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
