package profile

import (
	"context"
	"fmt"

	"go.viam.com/rdk/logging"
)

type commandFunc func(ctx context.Context, c Caller, params map[string]interface{}) (interface{}, error)

type command struct {
	Command
	run commandFunc
}

// handler is the table-driven Handler shared by the built-in profiles.
type handler struct {
	name       string
	namespaces []string
	logger     logging.Logger
	commands   []command
	byKey      map[string]commandFunc
}

func newHandler(name string, namespaces []string, logger logging.Logger, commands []command) *handler {
	h := &handler{
		name:       name,
		namespaces: namespaces,
		logger:     logger,
		commands:   commands,
		byKey:      make(map[string]commandFunc, len(commands)),
	}
	for _, cmd := range commands {
		h.byKey[CanonicalCommand(cmd.Name)] = cmd.run
	}
	return h
}

func (h *handler) Name() string {
	return h.name
}

func (h *handler) Namespaces() []string {
	return append([]string(nil), h.namespaces...)
}

func (h *handler) Commands() []Command {
	out := make([]Command, 0, len(h.commands))
	for _, cmd := range h.commands {
		out = append(out, cmd.Command)
	}
	return out
}

func (h *handler) Execute(ctx context.Context, c Caller, name string, params map[string]interface{}) (interface{}, error) {
	run, ok := h.byKey[CanonicalCommand(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no command %s", ErrUnknownCommand, h.name, name)
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	h.logger.Debugf("executing %s with args: %v", name, params)
	return run(ctx, c, params)
}

// call sends method and parses the response with parse.
func call[T any](ctx context.Context, c Caller, service string, method interface{}, parse func([]byte) (T, error)) (interface{}, error) {
	body, err := c.CallMethod(ctx, service, method)
	if err != nil {
		return nil, err
	}
	return parse(body)
}

// success is the value returned by commands whose response carries no data.
func success() map[string]interface{} {
	return map[string]interface{}{"success": true}
}
