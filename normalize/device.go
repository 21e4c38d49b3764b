package normalize

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/viam-modules/onvifcore/xsd"
)

// DeviceInformation is the GetDeviceInformation response.
type DeviceInformation struct {
	Manufacturer    string `json:"manufacturer"`
	Model           string `json:"model"`
	FirmwareVersion string `json:"firmware_version"`
	SerialNumber    string `json:"serial_number"`
	HardwareID      string `json:"hardware_id"`
}

// ParseDeviceInformation parses a GetDeviceInformation response.
func ParseDeviceInformation(body []byte) (DeviceInformation, error) {
	resp, err := Response(body, "GetDeviceInformationResponse")
	if err != nil {
		return DeviceInformation{}, err
	}
	return DeviceInformation{
		Manufacturer:    resp.Value("Manufacturer"),
		Model:           resp.Value("Model"),
		FirmwareVersion: resp.Value("FirmwareVersion"),
		SerialNumber:    resp.Value("SerialNumber"),
		HardwareID:      resp.Value("HardwareId"),
	}, nil
}

// Version is an ONVIF service version.
type Version struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

func (v Version) String() string {
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
}

func parseVersion(n *Node) Version {
	if n == nil {
		return Version{}
	}
	if n.Has("Major") {
		return Version{Major: n.Int("Major"), Minor: n.Int("Minor")}
	}
	// some firmwares send "2.60" as plain text
	major, minor, _ := strings.Cut(n.Text(), ".")
	maj, _ := strconv.Atoi(strings.TrimSpace(major))
	mnr, _ := strconv.Atoi(strings.TrimSpace(minor))
	return Version{Major: maj, Minor: mnr}
}

// Service is one entry of a GetServices response.
type Service struct {
	Namespace    string            `json:"namespace"`
	XAddr        string            `json:"xaddr"`
	Version      Version           `json:"version"`
	Capabilities map[string]string `json:"capabilities,omitempty"`
}

// ParseServices parses a GetServices response.
func ParseServices(body []byte) ([]Service, error) {
	resp, err := Response(body, "GetServicesResponse")
	if err != nil {
		return nil, err
	}
	var services []Service
	for _, s := range resp.All("Service") {
		ns := s.Value("Namespace")
		if ns == "" {
			continue
		}
		svc := Service{
			Namespace: ns,
			XAddr:     s.XAddr(),
			Version:   parseVersion(s.Child("Version")),
		}
		if caps := s.Child("Capabilities"); caps != nil {
			// the payload is the service's own Capabilities element, sometimes unwrapped
			inner := caps.Child("Capabilities")
			if inner == nil {
				inner = caps
			}
			svc.Capabilities = flattenFlags(inner, "")
		}
		services = append(services, svc)
	}
	return services, nil
}

// ServiceCapabilities is a GetServiceCapabilities response for a single service namespace.
type ServiceCapabilities struct {
	Namespace string            `json:"namespace"`
	Flags     map[string]string `json:"flags"`
}

// ParseServiceCapabilities parses a GetServiceCapabilities response. Attributes of nested
// capability elements are keyed as Element.Attr.
func ParseServiceCapabilities(namespace string, body []byte) (ServiceCapabilities, error) {
	resp, err := Response(body, "GetServiceCapabilitiesResponse")
	if err != nil {
		return ServiceCapabilities{}, err
	}
	caps := resp.Child("Capabilities")
	if caps == nil {
		caps = resp
	}
	return ServiceCapabilities{Namespace: namespace, Flags: flattenFlags(caps, "")}, nil
}

// flattenFlags collects the attributes and leaf values under n, keyed by dotted element path.
func flattenFlags(n *Node, prefix string) map[string]string {
	out := map[string]string{}
	var walk func(n *Node, prefix string)
	walk = func(n *Node, prefix string) {
		for k, v := range n.Attrs() {
			out[prefix+k] = v
		}
		for _, c := range n.Children() {
			if strings.EqualFold(c.Name(), "XAddr") {
				continue
			}
			if len(c.Children()) == 0 && len(c.Attrs()) == 0 {
				if t := c.Text(); t != "" {
					out[prefix+c.Name()] = t
				}
				continue
			}
			walk(c, prefix+c.Name()+".")
		}
	}
	walk(n, prefix)
	return out
}

const scopePrefix = "onvif://www.onvif.org/"

// Scope is a device scope URI.
type Scope struct {
	Definition string `json:"definition"`
	Item       string `json:"item"`
}

// Category returns the first path segment of an onvif:// scope, e.g. "name" or "hardware".
func (s Scope) Category() string {
	rest, ok := cutScopePrefix(s.Item)
	if !ok {
		return ""
	}
	category, _, _ := strings.Cut(rest, "/")
	return strings.ToLower(category)
}

// Value returns the unescaped remainder of an onvif:// scope after its category.
func (s Scope) Value() string {
	rest, ok := cutScopePrefix(s.Item)
	if !ok {
		return ""
	}
	_, value, _ := strings.Cut(rest, "/")
	if unescaped, err := url.PathUnescape(value); err == nil {
		return unescaped
	}
	return value
}

func cutScopePrefix(item string) (string, bool) {
	if len(item) < len(scopePrefix) || !strings.EqualFold(item[:len(scopePrefix)], scopePrefix) {
		return "", false
	}
	return item[len(scopePrefix):], true
}

// ScopeSet is the full list of scopes of a device.
type ScopeSet []Scope

// Values returns the values of every scope in category.
func (ss ScopeSet) Values(category string) []string {
	var out []string
	for _, s := range ss {
		if s.Category() == strings.ToLower(category) {
			out = append(out, s.Value())
		}
	}
	return out
}

func (ss ScopeSet) first(category string) string {
	if v := ss.Values(category); len(v) > 0 {
		return v[0]
	}
	return ""
}

// Name returns the device name scope.
func (ss ScopeSet) Name() string { return ss.first("name") }

// Hardware returns the hardware scope.
func (ss ScopeSet) Hardware() string { return ss.first("hardware") }

// Location returns the location scope.
func (ss ScopeSet) Location() string { return ss.first("location") }

// ParseScopes parses a GetScopes response.
func ParseScopes(body []byte) (ScopeSet, error) {
	resp, err := Response(body, "GetScopesResponse")
	if err != nil {
		return nil, err
	}
	var scopes ScopeSet
	for _, s := range resp.All("Scopes") {
		item := s.Value("ScopeItem")
		if item == "" {
			// bare text form
			item = s.Text()
		}
		if item == "" {
			continue
		}
		scopes = append(scopes, Scope{Definition: s.Value("ScopeDef"), Item: item})
	}
	return scopes, nil
}

// PrefixedAddress is an IP address with its prefix length.
type PrefixedAddress struct {
	Address      string `json:"address"`
	PrefixLength int    `json:"prefix_length"`
}

// IPv4Configuration is the IPv4 part of a network interface.
type IPv4Configuration struct {
	Enabled   bool              `json:"enabled"`
	DHCP      bool              `json:"dhcp"`
	Manual    []PrefixedAddress `json:"manual,omitempty"`
	LinkLocal *PrefixedAddress  `json:"link_local,omitempty"`
	FromDHCP  *PrefixedAddress  `json:"from_dhcp,omitempty"`
}

// NetworkInterface is one entry of a GetNetworkInterfaces response.
type NetworkInterface struct {
	Token     string            `json:"token"`
	Enabled   bool              `json:"enabled"`
	Name      string            `json:"name"`
	HwAddress string            `json:"hw_address"`
	MTU       int               `json:"mtu"`
	IPv4      IPv4Configuration `json:"ipv4"`
}

func parsePrefixedAddress(n *Node) *PrefixedAddress {
	if n == nil {
		return nil
	}
	addr := n.Value("Address")
	if addr == "" {
		return nil
	}
	return &PrefixedAddress{Address: addr, PrefixLength: n.Int("PrefixLength")}
}

// ParseNetworkInterfaces parses a GetNetworkInterfaces response.
func ParseNetworkInterfaces(body []byte) ([]NetworkInterface, error) {
	resp, err := Response(body, "GetNetworkInterfacesResponse")
	if err != nil {
		return nil, err
	}
	var ifaces []NetworkInterface
	for _, n := range resp.All("NetworkInterfaces") {
		iface := NetworkInterface{
			Token:     n.Value("token"),
			Enabled:   n.Bool("Enabled"),
			Name:      n.Find("Info").Value("Name"),
			HwAddress: n.Find("Info").Value("HwAddress"),
			MTU:       n.Find("Info").Int("MTU"),
		}
		ipv4 := n.Child("IPv4")
		iface.IPv4.Enabled = ipv4.Bool("Enabled")
		cfg := ipv4.Child("Config")
		if cfg == nil {
			cfg = ipv4
		}
		iface.IPv4.DHCP = cfg.Bool("DHCP")
		for _, m := range cfg.All("Manual") {
			if addr := parsePrefixedAddress(m); addr != nil {
				iface.IPv4.Manual = append(iface.IPv4.Manual, *addr)
			}
		}
		iface.IPv4.LinkLocal = parsePrefixedAddress(cfg.Child("LinkLocal"))
		iface.IPv4.FromDHCP = parsePrefixedAddress(cfg.Child("FromDHCP"))
		ifaces = append(ifaces, iface)
	}
	return ifaces, nil
}

// capabilityCategories are the fixed GetCapabilities categories, keyed by the service name the
// device endpoint map uses.
var capabilityCategories = map[string]string{
	"Analytics": "analytics",
	"Device":    "device",
	"Events":    "events",
	"Imaging":   "imaging",
	"Media":     "media",
	"PTZ":       "ptz",
}

// Capabilities is a GetCapabilities response.
type Capabilities struct {
	// XAddrs maps a lower-case service name (device, media, ptz, deviceio...) to its address.
	XAddrs map[string]string `json:"xaddrs"`
	// Flags holds every other capability value keyed Category.Element[.Attr].
	Flags map[string]string `json:"flags"`
}

// Supports reports whether the device advertised an address for service.
func (c Capabilities) Supports(service string) bool {
	return c.XAddrs[strings.ToLower(service)] != ""
}

// ParseCapabilities parses a GetCapabilities response.
func ParseCapabilities(body []byte) (Capabilities, error) {
	resp, err := Response(body, "GetCapabilitiesResponse")
	if err != nil {
		return Capabilities{}, err
	}
	caps := Capabilities{XAddrs: map[string]string{}, Flags: map[string]string{}}
	root := resp.Child("Capabilities")
	if root == nil {
		root = resp
	}
	for _, c := range root.Children() {
		if strings.EqualFold(c.Name(), "Extension") {
			for _, ext := range c.Children() {
				addCapability(caps, strings.ToLower(ext.Name()), ext)
			}
			continue
		}
		for name, service := range capabilityCategories {
			if strings.EqualFold(c.Name(), name) {
				addCapability(caps, service, c)
			}
		}
	}
	return caps, nil
}

func addCapability(caps Capabilities, service string, n *Node) {
	if xaddr := n.XAddr(); xaddr != "" {
		caps.XAddrs[service] = xaddr
	}
	for k, v := range flattenFlags(n, n.Name()+".") {
		caps.Flags[k] = v
	}
}

// NetworkHost is a DNS or NTP server entry.
type NetworkHost struct {
	Type    string `json:"type"`
	Address string `json:"address"`
}

func parseNetworkHosts(nodes []*Node) []NetworkHost {
	var out []NetworkHost
	for _, n := range nodes {
		addr := hostAddress(n)
		if addr == "" {
			continue
		}
		out = append(out, NetworkHost{Type: n.Value("Type"), Address: addr})
	}
	return out
}

// hostAddress returns the first address-looking value of n.
func hostAddress(n *Node) string {
	for _, name := range []string{"IPv4Address", "IPv6Address", "DNSname", "DNSName"} {
		if v := n.Value(name); v != "" {
			return v
		}
	}
	if len(n.Children()) == 0 {
		return n.Text()
	}
	return ""
}

// DNSRecord is a GetDNS response.
type DNSRecord struct {
	FromDHCP     bool          `json:"from_dhcp"`
	SearchDomain []string      `json:"search_domain,omitempty"`
	DNSFromDHCP  []NetworkHost `json:"dns_from_dhcp,omitempty"`
	DNSManual    []NetworkHost `json:"dns_manual,omitempty"`
}

// ParseDNS parses a GetDNS response.
func ParseDNS(body []byte) (DNSRecord, error) {
	resp, err := Response(body, "GetDNSResponse")
	if err != nil {
		return DNSRecord{}, err
	}
	info := resp.Child("DNSInformation")
	if info == nil {
		info = resp
	}
	var domains []string
	for _, d := range info.Texts("SearchDomain") {
		// a few firmwares pack the list into one space separated element
		domains = append(domains, strings.Fields(d)...)
	}
	return DNSRecord{
		FromDHCP:     info.Bool("FromDHCP"),
		SearchDomain: domains,
		DNSFromDHCP:  parseNetworkHosts(info.All("DNSFromDHCP")),
		DNSManual:    parseNetworkHosts(info.All("DNSManual")),
	}, nil
}

// NTPRecord is a GetNTP response.
type NTPRecord struct {
	FromDHCP    bool          `json:"from_dhcp"`
	NTPFromDHCP []NetworkHost `json:"ntp_from_dhcp,omitempty"`
	NTPManual   []NetworkHost `json:"ntp_manual,omitempty"`
}

// ParseNTP parses a GetNTP response.
func ParseNTP(body []byte) (NTPRecord, error) {
	resp, err := Response(body, "GetNTPResponse")
	if err != nil {
		return NTPRecord{}, err
	}
	info := resp.Child("NTPInformation")
	if info == nil {
		info = resp
	}
	return NTPRecord{
		FromDHCP:    info.Bool("FromDHCP"),
		NTPFromDHCP: parseNetworkHosts(info.All("NTPFromDHCP")),
		NTPManual:   parseNetworkHosts(info.All("NTPManual")),
	}, nil
}

// DynamicDNSRecord is a GetDynamicDNS response.
type DynamicDNSRecord struct {
	Type string        `json:"type"`
	Name string        `json:"name,omitempty"`
	TTL  time.Duration `json:"ttl,omitempty"`
}

// ParseDynamicDNS parses a GetDynamicDNS response. A malformed TTL is reported as zero.
func ParseDynamicDNS(body []byte) (DynamicDNSRecord, error) {
	resp, err := Response(body, "GetDynamicDNSResponse")
	if err != nil {
		return DynamicDNSRecord{}, err
	}
	info := resp.Child("DynamicDNSInformation")
	if info == nil {
		info = resp
	}
	rec := DynamicDNSRecord{Type: info.Value("Type"), Name: info.Value("Name")}
	if raw := info.Value("TTL"); raw != "" {
		if ttl, err := xsd.ParseDuration(raw); err == nil {
			rec.TTL = ttl
		} else if secs, err := strconv.Atoi(raw); err == nil {
			rec.TTL = time.Duration(secs) * time.Second
		}
	}
	return rec, nil
}

// HostnameRecord is a GetHostname response.
type HostnameRecord struct {
	FromDHCP bool   `json:"from_dhcp"`
	Name     string `json:"name"`
}

// ParseHostname parses a GetHostname response.
func ParseHostname(body []byte) (HostnameRecord, error) {
	resp, err := Response(body, "GetHostnameResponse")
	if err != nil {
		return HostnameRecord{}, err
	}
	info := resp.Child("HostnameInformation")
	if info == nil {
		info = resp
	}
	return HostnameRecord{FromDHCP: info.Bool("FromDHCP"), Name: info.Value("Name")}, nil
}

// SystemDateTime is a GetSystemDateAndTime response.
type SystemDateTime struct {
	DateTimeType    string    `json:"date_time_type"`
	DaylightSavings bool      `json:"daylight_savings"`
	TimeZone        string    `json:"time_zone,omitempty"`
	UTC             time.Time `json:"utc"`
}

// ParseSystemDateTime parses a GetSystemDateAndTime response. UTC is zero if the device omits it.
func ParseSystemDateTime(body []byte) (SystemDateTime, error) {
	resp, err := Response(body, "GetSystemDateAndTimeResponse")
	if err != nil {
		return SystemDateTime{}, err
	}
	info := resp.Child("SystemDateAndTime")
	if info == nil {
		info = resp
	}
	rec := SystemDateTime{
		DateTimeType:    info.Value("DateTimeType"),
		DaylightSavings: info.Bool("DaylightSavings"),
		TimeZone:        info.Find("TimeZone").Value("TZ"),
	}
	if utc := info.Child("UTCDateTime"); utc != nil {
		date, clock := utc.Child("Date"), utc.Child("Time")
		if year := date.Int("Year"); year > 0 {
			rec.UTC = time.Date(year, time.Month(date.Int("Month")), date.Int("Day"),
				clock.Int("Hour"), clock.Int("Minute"), clock.Int("Second"), 0, time.UTC)
		}
	}
	return rec, nil
}

// NetworkProtocol is one entry of a GetNetworkProtocols response.
type NetworkProtocol struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Ports   []int  `json:"ports,omitempty"`
}

// ParseNetworkProtocols parses a GetNetworkProtocols response.
func ParseNetworkProtocols(body []byte) ([]NetworkProtocol, error) {
	resp, err := Response(body, "GetNetworkProtocolsResponse")
	if err != nil {
		return nil, err
	}
	var protocols []NetworkProtocol
	for _, p := range resp.All("NetworkProtocols") {
		proto := NetworkProtocol{Name: p.Value("Name"), Enabled: p.Bool("Enabled")}
		for _, port := range p.Texts("Port") {
			if n, err := strconv.Atoi(port); err == nil {
				proto.Ports = append(proto.Ports, n)
			}
		}
		protocols = append(protocols, proto)
	}
	return protocols, nil
}

// DefaultGateway is a GetNetworkDefaultGateway response.
type DefaultGateway struct {
	IPv4Address []string `json:"ipv4_address,omitempty"`
	IPv6Address []string `json:"ipv6_address,omitempty"`
}

// ParseDefaultGateway parses a GetNetworkDefaultGateway response.
func ParseDefaultGateway(body []byte) (DefaultGateway, error) {
	resp, err := Response(body, "GetNetworkDefaultGatewayResponse")
	if err != nil {
		return DefaultGateway{}, err
	}
	gw := resp.Child("NetworkGateway")
	if gw == nil {
		gw = resp
	}
	return DefaultGateway{IPv4Address: gw.Texts("IPv4Address"), IPv6Address: gw.Texts("IPv6Address")}, nil
}
