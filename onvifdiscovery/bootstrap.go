package onvifdiscovery

import (
	"context"
	"errors"
	"fmt"

	"go.viam.com/rdk/logging"

	"github.com/viam-modules/onvifcore/device"
	"github.com/viam-modules/onvifcore/session"
	"github.com/viam-modules/onvifcore/wsdiscovery"
)

var emptyCred = device.Credentials{}

// Found is a discovered device and the session bootstrapped on it.
type Found struct {
	Match       wsdiscovery.ProbeMatch
	Session     *session.Session
	Credentials device.Credentials
}

// Bootstrap tries every credential against every XAddr of m and returns the first ready session.
// The error of the last attempt is returned when none succeeds.
func Bootstrap(
	ctx context.Context,
	m wsdiscovery.ProbeMatch,
	creds []device.Credentials,
	opts session.Options,
	logger logging.Logger,
) (Found, error) {
	urls := m.URLs()
	if len(urls) == 0 {
		return Found{}, fmt.Errorf("%s advertised no usable xaddr", m.Endpoint)
	}
	if len(creds) == 0 {
		creds = []device.Credentials{emptyCred}
	}

	var lastErr error
	for _, u := range urls {
		for _, cred := range creds {
			if err := ctx.Err(); err != nil {
				return Found{}, err
			}
			dev, err := device.NewDevice(device.Params{
				Xaddr:    u,
				Username: cred.User,
				Password: cred.Pass,
				Metrics:  opts.Metrics,
			}, logger.Sublogger("device"))
			if err != nil {
				lastErr = err
				break
			}
			s, err := session.NewBootstrapper(dev, opts, logger).Run(ctx)
			if err != nil {
				logger.Debugf("bootstrap of %s as %q failed: %v", u, cred.User, err)
				lastErr = err
				continue
			}
			return Found{Match: m, Session: s, Credentials: cred}, nil
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no attempt made")
	}
	return Found{}, lastErr
}
