// Package wsdiscovery finds ONVIF devices on the local network with WS-Discovery.
package wsdiscovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"go.viam.com/rdk/logging"
	"golang.org/x/net/ipv4"
)

const (
	bufSize = 8192
	// DefaultProbeTimeout is how long SendProbe collects ProbeMatch responses.
	DefaultProbeTimeout = 2 * time.Second
)

var multicastGroup = net.IPv4(239, 255, 255, 250)

const multicastPort = 3702

const probeTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<e:Envelope xmlns:e="http://www.w3.org/2003/05/soap-envelope"
            xmlns:w="http://schemas.xmlsoap.org/ws/2004/08/addressing"
            xmlns:d="http://schemas.xmlsoap.org/ws/2005/04/discovery"
            xmlns:dn="http://www.onvif.org/ver10/network/wsdl">
 <e:Header>
  <w:MessageID>uuid:%s</w:MessageID>
  <w:To e:mustUnderstand="true">urn:schemas-xmlsoap-org:ws:2005:04:discovery</w:To>
  <w:Action e:mustUnderstand="true">http://schemas.xmlsoap.org/ws/2005/04/discovery/Probe</w:Action>
 </e:Header>
 <e:Body>
  <d:Probe>
   <d:Types>dn:NetworkVideoTransmitter</d:Types>
  </d:Probe>
 </e:Body>
</e:Envelope>`

// NewProbe returns a NetworkVideoTransmitter Probe with a fresh MessageID.
func NewProbe() string {
	return fmt.Sprintf(probeTemplate, uuid.New().String())
}

// SendProbe multicasts a Probe on iface and returns the raw responses received before timeout
// or the context deadline, whichever is sooner.
func SendProbe(ctx context.Context, iface net.Interface, timeout time.Duration, logger logging.Logger) ([]string, error) {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	c, err := net.ListenPacket("udp4", "0.0.0.0:0")
	if err != nil {
		return nil, err
	}
	defer c.Close()

	p := ipv4.NewPacketConn(c)
	if err := p.JoinGroup(&iface, &net.UDPAddr{IP: multicastGroup}); err != nil {
		return nil, fmt.Errorf("join multicast group on %s: %w", iface.Name, err)
	}
	if err := p.SetMulticastInterface(&iface); err != nil {
		return nil, err
	}
	if err := p.SetMulticastTTL(2); err != nil {
		logger.Debugf("failed to set multicast ttl on %s: %v", iface.Name, err)
	}

	dst := &net.UDPAddr{IP: multicastGroup, Port: multicastPort}
	if _, err := p.WriteTo([]byte(NewProbe()), nil, dst); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := p.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	var result []string
	for {
		b := make([]byte, bufSize)
		n, _, src, err := p.ReadFrom(b)
		if err != nil {
			if !errors.Is(err, os.ErrDeadlineExceeded) {
				return nil, err
			}
			break
		}
		logger.Debugf("WS-Discovery response from %v on %s", src, iface.Name)
		result = append(result, string(b[:n]))
	}
	return result, nil
}

// ValidInterface reports whether WS-Discovery can run on iface.
func ValidInterface(iface net.Interface) bool {
	return iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagMulticast != 0 && iface.Flags&net.FlagLoopback == 0
}
