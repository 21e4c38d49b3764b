package wsdiscovery

import (
	"net/url"
	"strings"

	"github.com/viam-modules/onvifcore/normalize"
)

// ProbeMatch is one device answering a Probe.
type ProbeMatch struct {
	// Endpoint is the device's endpoint reference, usually a urn:uuid.
	Endpoint        string             `json:"endpoint"`
	XAddrs          []string           `json:"xaddrs"`
	Types           []string           `json:"types,omitempty"`
	Scopes          normalize.ScopeSet `json:"scopes,omitempty"`
	MetadataVersion int                `json:"metadata_version,omitempty"`
}

// key identifies a device across probes and interfaces.
func (m ProbeMatch) key() string {
	if m.Endpoint != "" {
		return m.Endpoint
	}
	if len(m.XAddrs) > 0 {
		return m.XAddrs[0]
	}
	return ""
}

// URLs returns the parseable XAddrs.
func (m ProbeMatch) URLs() []*url.URL {
	out := make([]*url.URL, 0, len(m.XAddrs))
	for _, xaddr := range m.XAddrs {
		u, err := url.Parse(xaddr)
		if err != nil || u.Host == "" {
			continue
		}
		out = append(out, u)
	}
	return out
}

// ParseProbeMatches parses a ProbeMatches response. Matches without any XAddr are dropped.
func ParseProbeMatches(response string) ([]ProbeMatch, error) {
	resp, err := normalize.Response([]byte(response), "ProbeMatches")
	if err != nil {
		return nil, err
	}
	var matches []ProbeMatch
	for _, n := range resp.All("ProbeMatch") {
		m := ProbeMatch{
			Endpoint:        strings.TrimSpace(n.Find("EndpointReference", "Address").Text()),
			XAddrs:          strings.Fields(n.Value("XAddrs")),
			Types:           strings.Fields(n.Value("Types")),
			MetadataVersion: n.Int("MetadataVersion"),
		}
		for _, item := range strings.Fields(n.Value("Scopes")) {
			m.Scopes = append(m.Scopes, normalize.Scope{Item: item})
		}
		if len(m.XAddrs) == 0 {
			continue
		}
		matches = append(matches, m)
	}
	return matches, nil
}
