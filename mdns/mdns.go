// Package mdns announces bootstrapped devices as <hostname>.local so they can be reached by a
// stable name when their DHCP address changes.
package mdns

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/edaniels/zeroconf"
	"go.viam.com/rdk/logging"

	"github.com/viam-modules/onvifcore/session"
)

type registerFunc func(hostname string, ip net.IP, logger logging.Logger) (func(), error)

type entry struct {
	ip      net.IP
	cleanup func()
}

// Announcer serves one mDNS A record per device.
type Announcer struct {
	mu        sync.Mutex
	entries   map[string]entry
	logger    logging.Logger
	cachePath string
	register  registerFunc
}

// NewAnnouncer returns an Announcer with no entries.
func NewAnnouncer(logger logging.Logger) *Announcer {
	return &Announcer{
		entries:  map[string]entry{},
		logger:   logger,
		register: registerProxy,
	}
}

// NewAnnouncerFromCache returns an Announcer that re-announces the entries saved at cachePath
// and saves to it on SaveCache. A missing or unreadable cache is logged and ignored.
func NewAnnouncerFromCache(cachePath string, logger logging.Logger) *Announcer {
	a := NewAnnouncer(logger)
	a.loadCache(cachePath)
	return a
}

func (a *Announcer) loadCache(cachePath string) {
	a.cachePath = cachePath
	data, err := os.ReadFile(cachePath)
	if err != nil {
		if !os.IsNotExist(err) {
			a.logger.Warnf("failed to read mdns cache %s: %v", cachePath, err)
		}
		return
	}
	var cached map[string]string
	if err := json.Unmarshal(data, &cached); err != nil {
		a.logger.Warnf("failed to parse mdns cache %s: %v", cachePath, err)
		return
	}
	for hostname, ip := range cached {
		if err := a.Add(hostname, net.ParseIP(ip)); err != nil {
			a.logger.Debugf("failed to restore mdns entry %s: %v", hostname, err)
		}
	}
}

func registerProxy(hostname string, ip net.IP, logger logging.Logger) (func(), error) {
	server, err := zeroconf.RegisterProxy(
		hostname,
		"_onvif._tcp",
		"local",
		80, // the port is not used for address resolution
		hostname,
		[]string{ip.String()},
		[]string{},
		nil, // all interfaces
		// zeroconf takes a *zap.SugaredLogger
		logger.Desugar().Sugar(),
	)
	if err != nil {
		return nil, err
	}
	return server.Shutdown, nil
}

// Add maps hostname, without the .local suffix, to ip. Re-adding the same mapping is a no-op.
func (a *Announcer) Add(hostname string, ip net.IP) error {
	if hostname == "" {
		return errors.New("empty mdns hostname")
	}
	if ip == nil {
		return fmt.Errorf("no ip for mdns hostname %s", hostname)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if e, exists := a.entries[hostname]; exists {
		if e.ip.Equal(ip) {
			return nil
		}
		e.cleanup()
		delete(a.entries, hostname)
	}

	cleanup, err := a.register(hostname, ip, a.logger)
	if err != nil {
		return err
	}
	a.entries[hostname] = entry{ip: ip, cleanup: cleanup}
	a.logger.Debugf("announcing %s.local at %s", hostname, ip)
	return nil
}

// AnnounceSession announces the device of s under a name derived from its serial number, or
// its name scope when the serial is empty. It returns the announced hostname.
func (a *Announcer) AnnounceSession(s *session.Session) (string, error) {
	info := s.DeviceInformation()
	name := info.SerialNumber
	if name == "" {
		name = s.Scopes().Name()
	}
	if name == "" {
		return "", fmt.Errorf("device %s has neither a serial number nor a name scope", s.Device().Xaddr())
	}
	host := s.Device().Xaddr().Hostname()
	ip := net.ParseIP(host)
	if ip == nil {
		return "", fmt.Errorf("device address %s is not an ip", host)
	}
	hostname := HostName(name)
	return hostname, a.Add(hostname, ip)
}

// Remove stops announcing hostname.
func (a *Announcer) Remove(hostname string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, exists := a.entries[hostname]
	if !exists {
		return
	}
	e.cleanup()
	delete(a.entries, hostname)
}

// Hostnames returns the announced hostnames, sorted.
func (a *Announcer) Hostnames() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for hostname := range a.entries {
		out = append(out, hostname)
	}
	slices.Sort(out)
	return out
}

// SaveCache writes the current mappings to the cache path, if there is one.
func (a *Announcer) SaveCache() error {
	if a.cachePath == "" {
		return nil
	}
	a.mu.Lock()
	cached := make(map[string]string, len(a.entries))
	for hostname, e := range a.entries {
		cached[hostname] = e.ip.String()
	}
	a.mu.Unlock()

	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return os.WriteFile(a.cachePath, data, 0o600)
}

// Shutdown stops every announcement.
func (a *Announcer) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		e.cleanup()
	}
	a.entries = map[string]entry{}
}

// HostName turns s into a valid hostname label: every run of characters other than letters,
// digits and '-' becomes a single '-'.
func HostName(s string) string {
	var sb strings.Builder
	lastDash := false
	for _, r := range s {
		valid := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if valid {
			sb.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			sb.WriteByte('-')
			lastDash = true
		}
	}
	return sb.String()
}
