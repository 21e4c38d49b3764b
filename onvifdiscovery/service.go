// Package onvifdiscovery provides the discovery service that finds ONVIF devices with
// WS-Discovery, bootstraps a session on each and proposes an onvif-session component for it.
package onvifdiscovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.viam.com/rdk/components/generic"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/discovery"

	"github.com/viam-modules/onvifcore"
	"github.com/viam-modules/onvifcore/device"
	"github.com/viam-modules/onvifcore/dispatch"
	"github.com/viam-modules/onvifcore/mdns"
	"github.com/viam-modules/onvifcore/onvifsession"
	"github.com/viam-modules/onvifcore/profile"
	"github.com/viam-modules/onvifcore/session"
	"github.com/viam-modules/onvifcore/wsdiscovery"
)

// Model is the model of the ONVIF discovery service.
var (
	Model             = onvifcore.Family.WithModel("onvif-discovery")
	errNoDevicesFound = errors.New("no ONVIF devices found, ensure devices are reachable or check credentials")
)

func init() {
	resource.RegisterService(
		discovery.API,
		Model,
		resource.Registration[discovery.Service, *Config]{
			Constructor: newDiscovery,
		})
}

// Config is the config for the discovery service.
type Config struct {
	Credentials        []device.Credentials `json:"credentials"`
	StepTimeoutSeconds float64              `json:"step_timeout_seconds,omitempty"`
}

// Validate validates the discovery service.
func (cfg *Config) Validate(path string) ([]string, []string, error) {
	// a credential may have both fields empty
	for i, cred := range cfg.Credentials {
		if cred.Pass != "" && cred.User == "" {
			return nil, nil, fmt.Errorf("credentials[%d] for %s %q has a password but no username", i, Model.String(), path)
		}
	}
	if cfg.StepTimeoutSeconds < 0 {
		return nil, nil, fmt.Errorf(`"step_timeout_seconds" must not be negative for %s %q`, Model.String(), path)
	}
	return nil, nil, nil
}

type matchFunc func(ctx context.Context) ([]wsdiscovery.ProbeMatch, error)

type onvifDiscovery struct {
	resource.Named
	resource.AlwaysRebuild

	credentials []device.Credentials
	opts        session.Options
	registry    *profile.Registry
	announcer   *mdns.Announcer
	discover    matchFunc
	logger      logging.Logger

	mu sync.Mutex
	// keyed by the address of the proposed component
	found map[string]Found
}

func newDiscovery(_ context.Context, _ resource.Dependencies,
	conf resource.Config,
	logger logging.Logger,
) (discovery.Service, error) {
	cfg, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return nil, err
	}

	dis := &onvifDiscovery{
		Named:       conf.ResourceName().AsNamed(),
		credentials: append([]device.Credentials{emptyCred}, cfg.Credentials...),
		opts:        session.Options{StepTimeout: time.Duration(cfg.StepTimeoutSeconds * float64(time.Second))},
		registry:    profile.NewDefaultRegistry(logger),
		discover: func(ctx context.Context) ([]wsdiscovery.ProbeMatch, error) {
			return wsdiscovery.Discover(ctx, logger.Sublogger("wsdiscovery"))
		},
		logger: logger,
		found:  map[string]Found{},
	}

	// viam-server sets this environment variable. The contents of this directory is expected to
	// persist across process restarts and module upgrades.
	moduleDataDir := os.Getenv("VIAM_MODULE_DATA")
	if !strings.HasPrefix(moduleDataDir, "/") {
		dis.announcer = mdns.NewAnnouncer(logger.Sublogger("mdns"))
	} else {
		dis.announcer = mdns.NewAnnouncerFromCache(
			filepath.Join(moduleDataDir, "mdns_cache.json"), logger.Sublogger("mdns"))
	}
	return dis, nil
}

// DiscoverResources bootstraps every device that answers a probe and returns one onvif-session
// config per ready device. Devices that fail with every credential are skipped.
func (dis *onvifDiscovery) DiscoverResources(ctx context.Context, extra map[string]any) ([]resource.Config, error) {
	creds := slices.Clone(dis.credentials)
	if extraCred, ok := getCredFromExtra(extra); ok {
		creds = append(creds, extraCred)
	}

	matches, err := dis.discover(ctx)
	if err != nil {
		return nil, err
	}

	configs := []resource.Config{}
	found := map[string]Found{}
	names := map[string]int{}
	for _, m := range matches {
		f, err := Bootstrap(ctx, m, creds, dis.opts, dis.logger.Sublogger("bootstrap"))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			dis.logger.Warnf("skipping %s: %v", strings.Join(m.XAddrs, " "), err)
			continue
		}
		info := f.Session.DeviceInformation()
		dis.logger.Debugf("%s %s %s", info.Manufacturer, info.Model, info.SerialNumber)

		address := f.Session.Device().Xaddr()
		var dependsOn []string
		if dis.announcer != nil {
			// a device announced over mdns is addressed by its .local name, which needs this
			// service running to resolve
			if hostname, err := dis.announcer.AnnounceSession(f.Session); err != nil {
				dis.logger.Debugf("not announcing %s over mdns: %v", address, err)
			} else {
				address = withHost(address, hostname+".local")
				dependsOn = []string{dis.Name().ShortName()}
			}
		}

		cfg, err := createSessionConfig(componentName(f, names), address.String(), f.Credentials, dependsOn)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
		found[address.String()] = f
	}

	if dis.announcer != nil {
		if err := dis.announcer.SaveCache(); err != nil {
			dis.logger.Warnf("failed to save mdns cache: %v", err)
		}
	}

	dis.mu.Lock()
	dis.found = found
	dis.mu.Unlock()

	if len(configs) == 0 {
		return nil, errNoDevicesFound
	}
	return configs, nil
}

// DoCommand supports "preview", which returns a snapshot of a discovered device as a data url:
// {"command": "preview", "attributes": {"address": ..., "profile_token": ...}}.
func (dis *onvifDiscovery) DoCommand(ctx context.Context, command map[string]interface{}) (map[string]interface{}, error) {
	cmd, ok := command["command"].(string)
	if !ok {
		return nil, errors.New("invalid command type")
	}

	switch cmd {
	case "preview":
		attributes, ok := command["attributes"].(map[string]interface{})
		if !ok {
			return nil, errors.New("attributes is missing or not a map")
		}
		address, err := profile.GetString(attributes, "address")
		if err != nil {
			return nil, err
		}
		dis.mu.Lock()
		f, ok := dis.found[address]
		dis.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("no discovered device at %s, run discovery first", address)
		}

		params := map[string]interface{}{}
		if token := profile.GetOptionalString(attributes, "profile_token", ""); token != "" {
			params["profile_token"] = token
		}
		resp, err := dispatch.NewRouter(dis.registry, f.Session, dis.logger).Call(ctx, "get-snapshot", params)
		if err != nil {
			return nil, fmt.Errorf("failed to download preview image: %w", err)
		}
		result, ok := resp.Value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected snapshot result %T", resp.Value)
		}
		return map[string]interface{}{"preview": result["data_url"]}, nil
	default:
		return nil, fmt.Errorf("unknown command: %s", cmd)
	}
}

func (dis *onvifDiscovery) Close(_ context.Context) error {
	if dis.announcer != nil {
		dis.announcer.Shutdown()
	}
	return nil
}

func withHost(u *url.URL, hostname string) *url.URL {
	out := *u
	if port := u.Port(); port != "" {
		out.Host = hostname + ":" + port
	} else {
		out.Host = hostname
	}
	return &out
}

// componentName derives a unique component name from the model and serial number.
func componentName(f Found, seen map[string]int) string {
	info := f.Session.DeviceInformation()
	base := strings.Trim(mdns.HostName(strings.ToLower(info.Model+"-"+info.SerialNumber)), "-")
	if base == "" {
		base = "onvif-device"
	}
	seen[base]++
	if n := seen[base]; n > 1 {
		return fmt.Sprintf("%s-%d", base, n)
	}
	return base
}

func createSessionConfig(name, address string, cred device.Credentials, dependsOn []string) (resource.Config, error) {
	// using the component's Config struct in case a breaking change occurs
	attributes := onvifsession.Config{
		Address:  address,
		Username: cred.User,
		Password: cred.Pass,
	}
	var result map[string]interface{}

	jsonBytes, err := json.Marshal(attributes)
	if err != nil {
		return resource.Config{}, err
	}
	if err = json.Unmarshal(jsonBytes, &result); err != nil {
		return resource.Config{}, err
	}

	return resource.Config{
		Name: name, API: generic.API, Model: onvifsession.Model,
		Attributes: result, ConvertedAttributes: &attributes, DependsOn: dependsOn,
	}, nil
}

func getCredFromExtra(extra map[string]any) (device.Credentials, bool) {
	extraUser, ok := extra["User"].(string)
	if !ok {
		return device.Credentials{}, false
	}
	// not requiring a password to match config
	extraPass, ok := extra["Pass"].(string)
	if !ok {
		extraPass = ""
	}
	return device.Credentials{User: extraUser, Pass: extraPass}, true
}
