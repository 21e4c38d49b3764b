// Package onviftest provides a fake ONVIF camera for tests.
package onviftest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/beevik/etree"
)

// DevicePath is the path of the fake device service.
const DevicePath = "/onvif/device_service"

// SnapshotJPEG is the body served at the fake snapshot uri.
var SnapshotJPEG = []byte{0xff, 0xd8, 0xff, 0xe0}

// Camera is an httptest server answering ONVIF SOAP requests with canned responses.
// Responses may contain {{base}}, replaced with the server url when served.
type Camera struct {
	Server *httptest.Server

	mu        sync.Mutex
	responses map[string]string
	faults    map[string]string
	calls     []string
	requests  map[string]string
	username  string
}

// NewCamera starts a camera that supports the device, media and PTZ services. It is closed when
// the test ends.
func NewCamera(t testing.TB) *Camera {
	t.Helper()
	c := &Camera{
		responses: defaultResponses(),
		faults:    map[string]string{},
		requests:  map[string]string{},
	}
	c.Server = httptest.NewServer(http.HandlerFunc(c.serveHTTP))
	t.Cleanup(c.Server.Close)
	return c
}

// URL returns the device service address.
func (c *Camera) URL() string {
	return c.Server.URL + DevicePath
}

// SetResponse replaces the response body element for method.
func (c *Camera) SetResponse(method, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[method] = body
	delete(c.faults, method)
}

// SetFault makes method answer with a SOAP fault carrying subcode, e.g. "ter:ActionNotSupported".
func (c *Camera) SetFault(method, subcode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults[method] = subcode
}

// RequireUser makes every request without a UsernameToken for username fail with
// ter:NotAuthorized.
func (c *Camera) RequireUser(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
}

// Calls returns the methods received, in order.
func (c *Camera) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// Request returns the last raw request received for method.
func (c *Camera) Request(method string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[method]
}

func (c *Camera) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && r.URL.Path == "/snapshot.jpg" {
		w.Header().Set("Content-Type", "image/jpeg")
		//nolint:errcheck
		w.Write(SnapshotJPEG)
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	method := requestMethod(raw)

	c.mu.Lock()
	c.calls = append(c.calls, method)
	c.requests[method] = string(raw)
	subcode, faulted := c.faults[method]
	body, known := c.responses[method]
	username := c.username
	c.mu.Unlock()

	w.Header().Set("Content-Type", "application/soap+xml; charset=utf-8")
	if username != "" && !strings.Contains(string(raw), "Username>"+username+"<") {
		faulted, subcode = true, "ter:NotAuthorized"
	}
	if !known && !faulted {
		faulted, subcode = true, "ter:ActionNotSupported"
	}
	if faulted {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, Envelope(fault(subcode)))
		return
	}
	fmt.Fprint(w, Envelope(strings.ReplaceAll(body, "{{base}}", c.Server.URL)))
}

func requestMethod(raw []byte) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return ""
	}
	body := doc.FindElement("./Envelope/Body")
	if body == nil || len(body.ChildElements()) == 0 {
		return ""
	}
	return body.ChildElements()[0].Tag
}

// Envelope wraps body in a SOAP 1.2 envelope declaring the usual ONVIF prefixes.
func Envelope(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://www.w3.org/2003/05/soap-envelope"
	xmlns:ter="http://www.onvif.org/ver10/error"
	xmlns:tds="http://www.onvif.org/ver10/device/wsdl"
	xmlns:trt="http://www.onvif.org/ver10/media/wsdl"
	xmlns:tptz="http://www.onvif.org/ver20/ptz/wsdl"
	xmlns:tt="http://www.onvif.org/ver10/schema">
<env:Body>` + body + `</env:Body>
</env:Envelope>`
}

func fault(subcode string) string {
	return `<env:Fault>
	<env:Code><env:Value>env:Receiver</env:Value><env:Subcode><env:Value>` + subcode + `</env:Value></env:Subcode></env:Code>
	<env:Reason><env:Text xml:lang="en">` + subcode + `</env:Text></env:Reason>
</env:Fault>`
}

func defaultResponses() map[string]string {
	return map[string]string{
		"GetDeviceInformation": `<tds:GetDeviceInformationResponse>
			<tds:Manufacturer>Acme</tds:Manufacturer>
			<tds:Model>Cam 3000</tds:Model>
			<tds:FirmwareVersion>1.2.3</tds:FirmwareVersion>
			<tds:SerialNumber>SN42</tds:SerialNumber>
			<tds:HardwareId>HW1</tds:HardwareId>
		</tds:GetDeviceInformationResponse>`,
		"GetServices": `<tds:GetServicesResponse>
			<tds:Service>
				<tds:Namespace>http://www.onvif.org/ver10/device/wsdl</tds:Namespace>
				<tds:XAddr>{{base}}/onvif/device_service</tds:XAddr>
				<tds:Version><tt:Major>2</tt:Major><tt:Minor>60</tt:Minor></tds:Version>
			</tds:Service>
			<tds:Service>
				<tds:Namespace>http://www.onvif.org/ver10/media/wsdl</tds:Namespace>
				<tds:XAddr>{{base}}/onvif/media</tds:XAddr>
				<tds:Version><tt:Major>2</tt:Major><tt:Minor>60</tt:Minor></tds:Version>
			</tds:Service>
			<tds:Service>
				<tds:Namespace>http://www.onvif.org/ver20/ptz/wsdl</tds:Namespace>
				<tds:XAddr>{{base}}/onvif/ptz</tds:XAddr>
				<tds:Version><tt:Major>2</tt:Major><tt:Minor>60</tt:Minor></tds:Version>
			</tds:Service>
		</tds:GetServicesResponse>`,
		"GetServiceCapabilities": `<tds:GetServiceCapabilitiesResponse>
			<tds:Capabilities><tds:Network ZeroConfiguration="true"/><tds:System SystemReboot="true"/></tds:Capabilities>
		</tds:GetServiceCapabilitiesResponse>`,
		"GetScopes": `<tds:GetScopesResponse>
			<tds:Scopes><tt:ScopeDef>Fixed</tt:ScopeDef><tt:ScopeItem>onvif://www.onvif.org/Profile/Streaming</tt:ScopeItem></tds:Scopes>
			<tds:Scopes><tt:ScopeDef>Configurable</tt:ScopeDef><tt:ScopeItem>onvif://www.onvif.org/name/Front%20Door</tt:ScopeItem></tds:Scopes>
			<tds:Scopes><tt:ScopeDef>Fixed</tt:ScopeDef><tt:ScopeItem>onvif://www.onvif.org/hardware/CAM-3000</tt:ScopeItem></tds:Scopes>
		</tds:GetScopesResponse>`,
		"GetNetworkInterfaces": `<tds:GetNetworkInterfacesResponse>
			<tds:NetworkInterfaces token="eth0">
				<tt:Enabled>true</tt:Enabled>
				<tt:Info><tt:Name>eth0</tt:Name><tt:HwAddress>00:11:22:33:44:55</tt:HwAddress><tt:MTU>1500</tt:MTU></tt:Info>
				<tt:IPv4><tt:Enabled>true</tt:Enabled><tt:Config>
					<tt:FromDHCP><tt:Address>192.168.1.10</tt:Address><tt:PrefixLength>24</tt:PrefixLength></tt:FromDHCP>
					<tt:DHCP>true</tt:DHCP>
				</tt:Config></tt:IPv4>
			</tds:NetworkInterfaces>
		</tds:GetNetworkInterfacesResponse>`,
		"GetCapabilities": `<tds:GetCapabilitiesResponse><tds:Capabilities>
			<tt:Device><tt:XAddr>{{base}}/onvif/device_service</tt:XAddr></tt:Device>
			<tt:Events><tt:XAddr>{{base}}/onvif/events</tt:XAddr></tt:Events>
			<tt:Media><tt:XAddr>{{base}}/onvif/media_from_capabilities</tt:XAddr></tt:Media>
			<tt:PTZ><tt:XAddr>{{base}}/onvif/ptz</tt:XAddr></tt:PTZ>
		</tds:Capabilities></tds:GetCapabilitiesResponse>`,
		"GetHostname": `<tds:GetHostnameResponse><tds:HostnameInformation>
			<tt:FromDHCP>false</tt:FromDHCP><tt:Name>frontdoor</tt:Name>
		</tds:HostnameInformation></tds:GetHostnameResponse>`,
		"SetHostname": `<tds:SetHostnameResponse/>`,
		"GetDNS": `<tds:GetDNSResponse><tds:DNSInformation>
			<tt:FromDHCP>true</tt:FromDHCP>
			<tt:DNSFromDHCP><tt:Type>IPv4</tt:Type><tt:IPv4Address>192.168.1.1</tt:IPv4Address></tt:DNSFromDHCP>
		</tds:DNSInformation></tds:GetDNSResponse>`,
		"GetNTP": `<tds:GetNTPResponse><tds:NTPInformation>
			<tt:FromDHCP>false</tt:FromDHCP>
			<tt:NTPManual><tt:Type>DNS</tt:Type><tt:DNSname>pool.ntp.org</tt:DNSname></tt:NTPManual>
		</tds:NTPInformation></tds:GetNTPResponse>`,
		"GetDynamicDNS": `<tds:GetDynamicDNSResponse><tds:DynamicDNSInformation>
			<tt:Type>NoUpdate</tt:Type>
		</tds:DynamicDNSInformation></tds:GetDynamicDNSResponse>`,
		"GetSystemDateAndTime": `<tds:GetSystemDateAndTimeResponse><tds:SystemDateAndTime>
			<tt:DateTimeType>NTP</tt:DateTimeType><tt:DaylightSavings>false</tt:DaylightSavings>
			<tt:UTCDateTime>
				<tt:Time><tt:Hour>12</tt:Hour><tt:Minute>0</tt:Minute><tt:Second>0</tt:Second></tt:Time>
				<tt:Date><tt:Year>2024</tt:Year><tt:Month>1</tt:Month><tt:Day>2</tt:Day></tt:Date>
			</tt:UTCDateTime>
		</tds:SystemDateAndTime></tds:GetSystemDateAndTimeResponse>`,
		"GetNetworkProtocols": `<tds:GetNetworkProtocolsResponse>
			<tds:NetworkProtocols><tt:Name>RTSP</tt:Name><tt:Enabled>true</tt:Enabled><tt:Port>554</tt:Port></tds:NetworkProtocols>
		</tds:GetNetworkProtocolsResponse>`,
		"GetNetworkDefaultGateway": `<tds:GetNetworkDefaultGatewayResponse><tds:NetworkGateway>
			<tt:IPv4Address>192.168.1.1</tt:IPv4Address>
		</tds:NetworkGateway></tds:GetNetworkDefaultGatewayResponse>`,
		"AddScopes":    `<tds:AddScopesResponse/>`,
		"RemoveScopes": `<tds:RemoveScopesResponse/>`,
		"SystemReboot": `<tds:SystemRebootResponse><tds:Message>Rebooting in 30 seconds</tds:Message></tds:SystemRebootResponse>`,
		"GetProfiles": `<trt:GetProfilesResponse>
			<trt:Profiles token="profile_1"><tt:Name>mainStream</tt:Name>
				<tt:VideoEncoderConfiguration><tt:Encoding>H264</tt:Encoding>
					<tt:Resolution><tt:Width>1920</tt:Width><tt:Height>1080</tt:Height></tt:Resolution>
				</tt:VideoEncoderConfiguration>
				<tt:PTZConfiguration token="ptz_1"/>
			</trt:Profiles>
			<trt:Profiles token="profile_2"><tt:Name>subStream</tt:Name></trt:Profiles>
		</trt:GetProfilesResponse>`,
		"GetStreamUri": `<trt:GetStreamUriResponse><trt:MediaUri>
			<tt:Uri>rtsp://127.0.0.1:554/stream1</tt:Uri>
		</trt:MediaUri></trt:GetStreamUriResponse>`,
		"GetSnapshotUri": `<trt:GetSnapshotUriResponse><trt:MediaUri>
			<tt:Uri>{{base}}/snapshot.jpg</tt:Uri>
		</trt:MediaUri></trt:GetSnapshotUriResponse>`,
		"GetVideoSources": `<trt:GetVideoSourcesResponse>
			<trt:VideoSources token="source_1"><tt:Framerate>25</tt:Framerate>
				<tt:Resolution><tt:Width>1920</tt:Width><tt:Height>1080</tt:Height></tt:Resolution>
			</trt:VideoSources>
		</trt:GetVideoSourcesResponse>`,
		"GetNodes": `<tptz:GetNodesResponse><tptz:PTZNode token="node_1">
			<tt:Name>PTZ</tt:Name><tt:MaximumNumberOfPresets>8</tt:MaximumNumberOfPresets><tt:HomeSupported>true</tt:HomeSupported>
		</tptz:PTZNode></tptz:GetNodesResponse>`,
		"GetConfigurations": `<tptz:GetConfigurationsResponse><tptz:PTZConfiguration token="ptz_config_1">
			<tt:Name>PTZConfig</tt:Name><tt:UseCount>1</tt:UseCount><tt:NodeToken>node_1</tt:NodeToken>
			<tt:DefaultAbsolutePantTiltPositionSpace>http://www.onvif.org/ver10/tptz/PanTiltSpaces/PositionGenericSpace</tt:DefaultAbsolutePantTiltPositionSpace>
			<tt:DefaultContinuousZoomVelocitySpace>http://www.onvif.org/ver10/tptz/ZoomSpaces/VelocityGenericSpace</tt:DefaultContinuousZoomVelocitySpace>
			<tt:DefaultPTZTimeout>PT5S</tt:DefaultPTZTimeout>
		</tptz:PTZConfiguration></tptz:GetConfigurationsResponse>`,
		"GetStatus": `<tptz:GetStatusResponse><tptz:PTZStatus>
			<tt:Position><tt:PanTilt x="0.1" y="0.2"/><tt:Zoom x="0.3"/></tt:Position>
			<tt:MoveStatus><tt:PanTilt>IDLE</tt:PanTilt><tt:Zoom>IDLE</tt:Zoom></tt:MoveStatus>
			<tt:UtcTime>2024-01-02T12:00:00Z</tt:UtcTime>
		</tptz:PTZStatus></tptz:GetStatusResponse>`,
		"GetPresets": `<tptz:GetPresetsResponse>
			<tptz:Preset token="1"><tt:Name>Gate</tt:Name></tptz:Preset>
		</tptz:GetPresetsResponse>`,
		"Stop":             `<tptz:StopResponse/>`,
		"ContinuousMove":   `<tptz:ContinuousMoveResponse/>`,
		"RelativeMove":     `<tptz:RelativeMoveResponse/>`,
		"AbsoluteMove":     `<tptz:AbsoluteMoveResponse/>`,
		"GotoHomePosition": `<tptz:GotoHomePositionResponse/>`,
		"GotoPreset":       `<tptz:GotoPresetResponse/>`,
	}
}
