// Package device allows communication with an onvif device.
// It is the transport under the session bootstrapper and the profile handlers: it owns the
// endpoint map and turns typed requests into authenticated SOAP calls.
package device

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/icholy/digest"
	"go.viam.com/rdk/logging"

	"github.com/viam-modules/onvifcore/gosoap"
	"github.com/viam-modules/onvifcore/metrics"
)

const (
	contentType = "application/soap+xml; charset=utf-8"
	// upper bound on a response body, cameras occasionally stream garbage.
	maxResponseBytes = 4 << 20
)

var (
	// ErrNoEndpoint means the device has not advertised an XAddr for the requested service.
	ErrNoEndpoint = errors.New("no endpoint for service")
	// ErrHTTPStatus means the device answered with a non-200 status and no SOAP fault.
	ErrHTTPStatus = errors.New("unexpected http status")
)

// Xlmns XML Schema.
var Xlmns = map[string]string{
	"onvif":   "http://www.onvif.org/ver10/schema",
	"tt":      "http://www.onvif.org/ver10/schema",
	"tds":     "http://www.onvif.org/ver10/device/wsdl",
	"trt":     "http://www.onvif.org/ver10/media/wsdl",
	"tev":     "http://www.onvif.org/ver10/events/wsdl",
	"tptz":    "http://www.onvif.org/ver20/ptz/wsdl",
	"timg":    "http://www.onvif.org/ver20/imaging/wsdl",
	"tan":     "http://www.onvif.org/ver20/analytics/wsdl",
	"xmime":   "http://www.w3.org/2005/05/xmlmime",
	"wsnt":    "http://docs.oasis-open.org/wsn/b-2",
	"xop":     "http://www.w3.org/2004/08/xop/include",
	"wsa":     "http://www.w3.org/2005/08/addressing",
	"wstop":   "http://docs.oasis-open.org/wsn/t-1",
	"wsntw":   "http://docs.oasis-open.org/wsn/bw-2",
	"wsrf-rw": "http://docs.oasis-open.org/wsrf/rw-2",
	"wsaw":    "http://www.w3.org/2006/05/addressing/wsdl",
}

// Credentials contain an onvif device username and password.
type Credentials struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

// Params configures the device connection.
type Params struct {
	Xaddr      *url.URL
	Username   string
	Password   string
	HTTPClient *http.Client
	// SkipLocalTLSVerification controls whether TLS certificate verification is skipped for local IP addresses.
	// This is necessary for cameras with self-signed certificates.
	SkipLocalTLSVerification bool
	// Metrics receives one observation per SOAP call. Optional.
	Metrics metrics.Recorder
}

// Device is an ONVIF device reachable over SOAP.
type Device struct {
	xaddr  *url.URL
	logger logging.Logger
	params Params

	mu        sync.RWMutex
	endpoints map[string]string

	digestOnce   sync.Once
	digestClient *http.Client
}

// NewDevice constructs a Device. No request is sent; endpoints beyond "device" are learned
// through SetEndpoint, normally by the session bootstrapper.
func NewDevice(params Params, logger logging.Logger) (*Device, error) {
	if params.Xaddr == nil {
		return nil, errors.New("device xaddr is required")
	}
	if params.Xaddr.Scheme == "" || params.Xaddr.Host == "" {
		return nil, fmt.Errorf("device xaddr %q must be an absolute url", params.Xaddr.String())
	}
	dev := &Device{
		xaddr:     params.Xaddr,
		logger:    logger,
		params:    params,
		endpoints: map[string]string{},
	}
	dev.endpoints[ServiceDevice] = dev.Xaddr().String()
	if dev.params.Metrics == nil {
		dev.params.Metrics = metrics.Nop{}
	}

	if dev.params.HTTPClient == nil {
		var skipVerify bool
		if params.SkipLocalTLSVerification {
			ip, err := netip.ParseAddr(params.Xaddr.Hostname())
			if err != nil {
				return nil, fmt.Errorf("failed to parse xaddr hostname %s: %w", params.Xaddr.Hostname(), err)
			}
			skipVerify = ip.IsPrivate() || ip.IsLoopback()
		}
		transport := &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: skipVerify, //nolint:gosec
			},
		}
		dev.params.HTTPClient = &http.Client{
			Transport: transport,
		}

		if skipVerify {
			logger.Debugf("TLS certificate verification disabled for local IP address: %s.",
				params.Xaddr.Hostname())
		}
	}

	return dev, nil
}

// Xaddr returns the URL of the device management service, without credentials.
func (dev *Device) Xaddr() *url.URL {
	return &url.URL{
		Scheme: dev.xaddr.Scheme,
		Host:   dev.xaddr.Host,
		Path:   dev.xaddr.Path,
	}
}

// Credentials returns the credentials the device was configured with.
func (dev *Device) Credentials() Credentials {
	return Credentials{User: dev.params.Username, Pass: dev.params.Password}
}

// Endpoint returns the XAddr of a service, or "" if unknown.
func (dev *Device) Endpoint(service string) string {
	dev.mu.RLock()
	defer dev.mu.RUnlock()
	return dev.endpoints[strings.ToLower(service)]
}

// SetEndpoint records the XAddr of a service. Relative XAddrs are resolved against the device
// xaddr, and an empty xaddr is ignored.
func (dev *Device) SetEndpoint(service, xaddr string) {
	xaddr = strings.TrimSpace(xaddr)
	if xaddr == "" {
		return
	}
	if u, err := url.Parse(xaddr); err == nil && !u.IsAbs() {
		xaddr = dev.xaddr.ResolveReference(u).String()
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.endpoints[strings.ToLower(service)] = xaddr
}

// Endpoints returns a copy of the endpoint map.
func (dev *Device) Endpoints() map[string]string {
	dev.mu.RLock()
	defer dev.mu.RUnlock()
	return maps.Clone(dev.endpoints)
}

// CallMethod sends method to the named service and returns the raw response envelope.
// method is either a struct marshalled with encoding/xml or a prebuilt *etree.Element.
func (dev *Device) CallMethod(ctx context.Context, service string, method interface{}) ([]byte, error) {
	endpoint := dev.Endpoint(service)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoEndpoint, service)
	}
	return dev.callOnvifServiceMethod(ctx, service, endpoint, method)
}

func (dev *Device) callOnvifServiceMethod(ctx context.Context, service, endpoint string, method interface{}) ([]byte, error) {
	element, err := requestElement(method)
	if err != nil {
		return nil, err
	}
	methodName := element.Tag

	soap := gosoap.NewMessage()
	soap.AddBodyContent(element)
	for key, value := range Xlmns {
		soap.AddRootNamespace(key, value)
	}
	if dev.params.Username != "" || dev.params.Password != "" {
		if err := soap.AddWSSecurity(dev.params.Username, dev.params.Password); err != nil {
			return nil, err
		}
	}
	msg, err := soap.Bytes()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	body, outcome, err := dev.post(ctx, endpoint, msg)
	dev.params.Metrics.ObserveSOAPCall(service, methodName, outcome, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", service, methodName, err)
	}
	dev.logger.Debugf("%s response body: %s", methodName, string(body))
	return body, nil
}

func requestElement(method interface{}) (*etree.Element, error) {
	if el, ok := method.(*etree.Element); ok {
		return el.Copy(), nil
	}
	output, err := xml.MarshalIndent(method, "  ", "    ")
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(output); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("request %T marshalled to an empty document", method)
	}
	return doc.Root(), nil
}

// post sends message, retrying once with HTTP digest when the device challenges for it.
func (dev *Device) post(ctx context.Context, endpoint string, message []byte) ([]byte, string, error) {
	resp, body, err := dev.sendSoap(ctx, dev.params.HTTPClient, endpoint, message)
	if err != nil {
		return nil, metrics.OutcomeTransportError, err
	}

	if resp.StatusCode == http.StatusUnauthorized && isDigestChallenge(resp.Header) && dev.params.Username != "" {
		dev.logger.Debugf("%s requested digest authentication, retrying", endpoint)
		resp, body, err = dev.sendSoap(ctx, dev.digestHTTPClient(), endpoint, message)
		if err != nil {
			return nil, metrics.OutcomeTransportError, err
		}
	}

	if fault := gosoap.ParseFault(body); fault != nil {
		return nil, metrics.OutcomeFault, fault
	}
	if resp.StatusCode != http.StatusOK {
		return nil, metrics.OutcomeHTTPError,
			fmt.Errorf("%w: SOAP request to %s failed with status code: %d", ErrHTTPStatus, endpoint, resp.StatusCode)
	}
	return body, metrics.OutcomeOK, nil
}

func (dev *Device) sendSoap(ctx context.Context, client *http.Client, endpoint string, message []byte) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(message))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	// Using Do instead of POST to support context cancellation and timeout.
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}
	return resp, body, nil
}

func (dev *Device) digestHTTPClient() *http.Client {
	dev.digestOnce.Do(func() {
		base := dev.params.HTTPClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		dev.digestClient = &http.Client{
			Timeout: dev.params.HTTPClient.Timeout,
			Transport: &digest.Transport{
				Username:  dev.params.Username,
				Password:  dev.params.Password,
				Transport: base,
			},
		}
	})
	return dev.digestClient
}

func isDigestChallenge(h http.Header) bool {
	for _, v := range h.Values("WWW-Authenticate") {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(v)), "digest") {
			return true
		}
	}
	return false
}
