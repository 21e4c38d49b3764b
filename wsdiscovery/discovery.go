package wsdiscovery

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"go.viam.com/rdk/logging"
)

// DefaultAttempts is the number of probes per interface. Cameras miss probes often enough that
// one is not reliable.
const DefaultAttempts = 3

type probeFunc func(ctx context.Context, iface net.Interface, timeout time.Duration, logger logging.Logger) ([]string, error)

// Discoverer probes every usable interface and merges the answers.
type Discoverer struct {
	Attempts     int
	ProbeTimeout time.Duration

	logger     logging.Logger
	interfaces func() ([]net.Interface, error)
	probe      probeFunc
}

// NewDiscoverer returns a Discoverer using the host's interfaces.
func NewDiscoverer(logger logging.Logger) *Discoverer {
	return &Discoverer{
		Attempts:     DefaultAttempts,
		ProbeTimeout: DefaultProbeTimeout,
		logger:       logger,
		interfaces:   net.Interfaces,
		probe:        SendProbe,
	}
}

// Discover runs WS-Discovery on every up, multicast, non-loopback interface.
func Discover(ctx context.Context, logger logging.Logger) ([]ProbeMatch, error) {
	return NewDiscoverer(logger).Discover(ctx)
}

// Discover returns the devices that answered, merged by endpoint reference and sorted by their
// first XAddr.
func (d *Discoverer) Discover(ctx context.Context) ([]ProbeMatch, error) {
	ifaces, err := d.interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve network interfaces: %w", err)
	}

	merged := map[string]ProbeMatch{}
	for _, iface := range ifaces {
		if !ValidInterface(iface) {
			d.logger.Debugf("WS-Discovery skipping interface %s: does not meet WS-Discovery requirements", iface.Name)
			continue
		}
		matches, err := d.discoverInterface(ctx, iface)
		if err != nil {
			d.logger.Debugf("WS-Discovery skipping interface %s: %v", iface.Name, err)
			continue
		}
		for _, m := range matches {
			merged[m.key()] = mergeMatch(merged[m.key()], m)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]ProbeMatch, 0, len(merged))
	for _, m := range merged {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b ProbeMatch) int {
		return strings.Compare(a.XAddrs[0], b.XAddrs[0])
	})
	return out, nil
}

func (d *Discoverer) discoverInterface(ctx context.Context, iface net.Interface) ([]ProbeMatch, error) {
	d.logger.Debugf("WS-Discovery starting on interface: %s", iface.Name)
	defer d.logger.Debugf("WS-Discovery stopping on interface: %s", iface.Name)

	var matches []ProbeMatch
	for i := range d.Attempts {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("context canceled for interface: %s", iface.Name)
		}
		resp, err := d.probe(ctx, iface, d.ProbeTimeout, d.logger)
		if err != nil {
			d.logger.Debugf("breaking at attempt %d: failed to send WS-Discovery probe on interface %s: %v", i+1, iface.Name, err)
			break
		}
		for _, r := range resp {
			parsed, err := ParseProbeMatches(r)
			if err != nil {
				d.logger.Debugf("ignoring malformed WS-Discovery response on %s: %v", iface.Name, err)
				continue
			}
			matches = append(matches, parsed...)
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no discovery responses received on interface %s after %d attempts", iface.Name, d.Attempts)
	}
	return matches, nil
}

// mergeMatch folds b into a, keeping every distinct XAddr, type and scope.
func mergeMatch(a, b ProbeMatch) ProbeMatch {
	if a.key() == "" {
		return b
	}
	for _, x := range b.XAddrs {
		if !slices.Contains(a.XAddrs, x) {
			a.XAddrs = append(a.XAddrs, x)
		}
	}
	for _, t := range b.Types {
		if !slices.Contains(a.Types, t) {
			a.Types = append(a.Types, t)
		}
	}
	for _, s := range b.Scopes {
		if !slices.Contains(a.Scopes, s) {
			a.Scopes = append(a.Scopes, s)
		}
	}
	a.MetadataVersion = max(a.MetadataVersion, b.MetadataVersion)
	return a
}
