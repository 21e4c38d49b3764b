package normalize

import (
	"errors"
	"testing"
	"time"

	"go.viam.com/test"
)

func envelope(body string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
	xmlns:tds="http://www.onvif.org/ver10/device/wsdl"
	xmlns:trt="http://www.onvif.org/ver10/media/wsdl"
	xmlns:tptz="http://www.onvif.org/ver20/ptz/wsdl"
	xmlns:tt="http://www.onvif.org/ver10/schema">
	<SOAP-ENV:Body>` + body + `</SOAP-ENV:Body>
</SOAP-ENV:Envelope>`)
}

func TestNode(t *testing.T) {
	root, err := Parse([]byte(`<a:Root xmlns:a="urn:a"><a:Item Key="1">x</a:Item><b:item key="2"> y </b:item><Other/></a:Root>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, root.Name(), test.ShouldEqual, "Root")
	test.That(t, len(root.All("item")), test.ShouldEqual, 2)
	test.That(t, root.All("item")[1].Text(), test.ShouldEqual, "y")
	test.That(t, root.Child("ITEM").Value("key"), test.ShouldEqual, "1")
	test.That(t, root.Has("Other"), test.ShouldBeTrue)
	test.That(t, root.Attrs(), test.ShouldResemble, map[string]string{})

	var missing *Node
	test.That(t, missing.Value("x"), test.ShouldEqual, "")
	test.That(t, missing.All("x"), test.ShouldBeEmpty)
	test.That(t, missing.Find("a", "b"), test.ShouldBeNil)
	test.That(t, missing.Int("x"), test.ShouldEqual, 0)

	_, err = Parse([]byte("not xml <"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = Response(envelope(`<tds:GetScopesResponse/>`), "GetDNSResponse")
	test.That(t, errors.Is(err, ErrMissingResponse), test.ShouldBeTrue)
}

func TestXAddrShapes(t *testing.T) {
	for name, xml := range map[string]string{
		"child":     `<Media><XAddr> http://10.0.0.2/onvif/media </XAddr></Media>`,
		"attribute": `<Media XAddr="http://10.0.0.2/onvif/media"/>`,
		"lowercase": `<Media xaddr="http://10.0.0.2/onvif/media"/>`,
		"inline":    `<Media>http://10.0.0.2/onvif/media</Media>`,
	} {
		t.Run(name, func(t *testing.T) {
			n, err := Parse([]byte(xml))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, n.XAddr(), test.ShouldEqual, "http://10.0.0.2/onvif/media")
		})
	}
	n, err := Parse([]byte(`<Media>not a url</Media>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n.XAddr(), test.ShouldEqual, "")
}

func TestParseDeviceInformation(t *testing.T) {
	info, err := ParseDeviceInformation(envelope(`<tds:GetDeviceInformationResponse>
		<tds:Manufacturer>Acme</tds:Manufacturer>
		<tds:Model>Cam 3000</tds:Model>
		<tds:FirmwareVersion>1.2.3</tds:FirmwareVersion>
		<tds:SerialNumber>SN42</tds:SerialNumber>
		<tds:HardwareId>HW1</tds:HardwareId>
	</tds:GetDeviceInformationResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info, test.ShouldResemble, DeviceInformation{
		Manufacturer: "Acme", Model: "Cam 3000", FirmwareVersion: "1.2.3", SerialNumber: "SN42", HardwareID: "HW1",
	})

	_, err = ParseDeviceInformation(envelope(`<tds:GetScopesResponse/>`))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseServices(t *testing.T) {
	services, err := ParseServices(envelope(`<tds:GetServicesResponse>
		<tds:Service>
			<tds:Namespace>http://www.onvif.org/ver10/device/wsdl</tds:Namespace>
			<tds:XAddr>http://10.0.0.2/onvif/device_service</tds:XAddr>
			<tds:Capabilities><tds:Capabilities><tds:Network IPFilter="true" ZeroConfiguration="false"/></tds:Capabilities></tds:Capabilities>
			<tds:Version><tt:Major>2</tt:Major><tt:Minor>60</tt:Minor></tds:Version>
		</tds:Service>
		<tds:Service>
			<tds:Namespace>http://www.onvif.org/ver10/media/wsdl</tds:Namespace>
			<tds:XAddr>http://10.0.0.2/onvif/media</tds:XAddr>
			<tds:Version>2.40</tds:Version>
		</tds:Service>
		<tds:Service><tds:XAddr>http://10.0.0.2/ignored</tds:XAddr></tds:Service>
	</tds:GetServicesResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(services), test.ShouldEqual, 2)
	test.That(t, services[0].Version, test.ShouldResemble, Version{Major: 2, Minor: 60})
	test.That(t, services[0].Capabilities["Network.IPFilter"], test.ShouldEqual, "true")
	test.That(t, services[1].XAddr, test.ShouldEqual, "http://10.0.0.2/onvif/media")
	test.That(t, services[1].Version.String(), test.ShouldEqual, "2.40")
}

func TestParseServiceCapabilities(t *testing.T) {
	caps, err := ParseServiceCapabilities("http://www.onvif.org/ver20/ptz/wsdl", envelope(`<tptz:GetServiceCapabilitiesResponse>
		<tptz:Capabilities EFlip="true" Reverse="false" MoveStatus="true"/>
	</tptz:GetServiceCapabilitiesResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, caps.Flags, test.ShouldResemble, map[string]string{"EFlip": "true", "Reverse": "false", "MoveStatus": "true"})
}

func TestParseScopes(t *testing.T) {
	scopes, err := ParseScopes(envelope(`<tds:GetScopesResponse>
		<tds:Scopes><tt:ScopeDef>Fixed</tt:ScopeDef><tt:ScopeItem>onvif://www.onvif.org/type/video_encoder</tt:ScopeItem></tds:Scopes>
		<tds:Scopes><tt:ScopeDef>Configurable</tt:ScopeDef><tt:ScopeItem>onvif://www.onvif.org/name/Front%20Door</tt:ScopeItem></tds:Scopes>
		<tds:Scopes><tt:ScopeDef>Fixed</tt:ScopeDef><tt:ScopeItem>onvif://www.onvif.org/hardware/CAM-3000</tt:ScopeItem></tds:Scopes>
		<tds:Scopes><tt:ScopeDef>Configurable</tt:ScopeDef><tt:ScopeItem>onvif://www.onvif.org/location/country/nl</tt:ScopeItem></tds:Scopes>
		<tds:Scopes>http://vendor.example/custom</tds:Scopes>
	</tds:GetScopesResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(scopes), test.ShouldEqual, 5)
	test.That(t, scopes.Name(), test.ShouldEqual, "Front Door")
	test.That(t, scopes.Hardware(), test.ShouldEqual, "CAM-3000")
	test.That(t, scopes.Location(), test.ShouldEqual, "country/nl")
	test.That(t, scopes[4].Category(), test.ShouldEqual, "")
	test.That(t, scopes[4].Item, test.ShouldEqual, "http://vendor.example/custom")
}

func TestParseScopesSingleton(t *testing.T) {
	scopes, err := ParseScopes(envelope(`<tds:GetScopesResponse>
		<tds:Scopes ScopeDef="Fixed" ScopeItem="onvif://www.onvif.org/name/Solo"/>
	</tds:GetScopesResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, scopes, test.ShouldResemble, ScopeSet{{Definition: "Fixed", Item: "onvif://www.onvif.org/name/Solo"}})
}

func TestParseNetworkInterfaces(t *testing.T) {
	ifaces, err := ParseNetworkInterfaces(envelope(`<tds:GetNetworkInterfacesResponse>
		<tds:NetworkInterfaces token="eth0">
			<tt:Enabled>true</tt:Enabled>
			<tt:Info><tt:Name>eth0</tt:Name><tt:HwAddress>00:11:22:33:44:55</tt:HwAddress><tt:MTU> 1500 </tt:MTU></tt:Info>
			<tt:IPv4>
				<tt:Enabled>1</tt:Enabled>
				<tt:Config>
					<tt:Manual><tt:Address>192.168.1.10</tt:Address><tt:PrefixLength>24</tt:PrefixLength></tt:Manual>
					<tt:Manual><tt:Address>10.0.0.2</tt:Address><tt:PrefixLength>8</tt:PrefixLength></tt:Manual>
					<tt:DHCP>false</tt:DHCP>
				</tt:Config>
			</tt:IPv4>
		</tds:NetworkInterfaces>
	</tds:GetNetworkInterfacesResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(ifaces), test.ShouldEqual, 1)
	iface := ifaces[0]
	test.That(t, iface.Token, test.ShouldEqual, "eth0")
	test.That(t, iface.Enabled, test.ShouldBeTrue)
	test.That(t, iface.MTU, test.ShouldEqual, 1500)
	test.That(t, iface.IPv4.Enabled, test.ShouldBeTrue)
	test.That(t, iface.IPv4.DHCP, test.ShouldBeFalse)
	test.That(t, iface.IPv4.Manual, test.ShouldResemble, []PrefixedAddress{
		{Address: "192.168.1.10", PrefixLength: 24},
		{Address: "10.0.0.2", PrefixLength: 8},
	})
	test.That(t, iface.IPv4.FromDHCP, test.ShouldBeNil)
}

func TestParseCapabilities(t *testing.T) {
	caps, err := ParseCapabilities(envelope(`<tds:GetCapabilitiesResponse>
		<tds:Capabilities>
			<tt:Device><tt:XAddr>http://10.0.0.2/onvif/device_service</tt:XAddr>
				<tt:Network><tt:IPFilter>false</tt:IPFilter><tt:ZeroConfiguration>true</tt:ZeroConfiguration></tt:Network>
			</tt:Device>
			<tt:Media XAddr="http://10.0.0.2/onvif/media">
				<tt:StreamingCapabilities><tt:RTP_TCP>true</tt:RTP_TCP></tt:StreamingCapabilities>
			</tt:Media>
			<tt:PTZ>http://10.0.0.2/onvif/ptz</tt:PTZ>
			<tt:Extension>
				<tt:DeviceIO><tt:XAddr>http://10.0.0.2/onvif/deviceio</tt:XAddr></tt:DeviceIO>
			</tt:Extension>
		</tds:Capabilities>
	</tds:GetCapabilitiesResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, caps.XAddrs, test.ShouldResemble, map[string]string{
		"device":   "http://10.0.0.2/onvif/device_service",
		"media":    "http://10.0.0.2/onvif/media",
		"ptz":      "http://10.0.0.2/onvif/ptz",
		"deviceio": "http://10.0.0.2/onvif/deviceio",
	})
	test.That(t, caps.Supports("PTZ"), test.ShouldBeTrue)
	test.That(t, caps.Supports("imaging"), test.ShouldBeFalse)
	test.That(t, caps.Flags["Device.Network.ZeroConfiguration"], test.ShouldEqual, "true")
	test.That(t, caps.Flags["Media.StreamingCapabilities.RTP_TCP"], test.ShouldEqual, "true")
	test.That(t, caps.Flags["Media.XAddr"], test.ShouldEqual, "http://10.0.0.2/onvif/media")
}

func TestParseDNS(t *testing.T) {
	dns, err := ParseDNS(envelope(`<tds:GetDNSResponse><tds:DNSInformation>
		<tt:FromDHCP>TRUE</tt:FromDHCP>
		<tt:SearchDomain>lan example.com</tt:SearchDomain>
		<tt:DNSFromDHCP><tt:Type>IPv4</tt:Type><tt:IPv4Address>192.168.1.1</tt:IPv4Address></tt:DNSFromDHCP>
		<tt:DNSManual><tt:Type>IPv4</tt:Type><tt:IPv4Address>8.8.8.8</tt:IPv4Address></tt:DNSManual>
		<tt:DNSManual><tt:Type>IPv6</tt:Type><tt:IPv6Address>2001:4860:4860::8888</tt:IPv6Address></tt:DNSManual>
	</tds:DNSInformation></tds:GetDNSResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dns.FromDHCP, test.ShouldBeTrue)
	test.That(t, dns.SearchDomain, test.ShouldResemble, []string{"lan", "example.com"})
	test.That(t, dns.DNSFromDHCP, test.ShouldResemble, []NetworkHost{{Type: "IPv4", Address: "192.168.1.1"}})
	test.That(t, len(dns.DNSManual), test.ShouldEqual, 2)
	test.That(t, dns.DNSManual[1].Address, test.ShouldEqual, "2001:4860:4860::8888")
}

func TestParseNTP(t *testing.T) {
	ntp, err := ParseNTP(envelope(`<tds:GetNTPResponse><tds:NTPInformation>
		<tt:FromDHCP>false</tt:FromDHCP>
		<tt:NTPManual><tt:Type>DNS</tt:Type><tt:DNSname>pool.ntp.org</tt:DNSname></tt:NTPManual>
	</tds:NTPInformation></tds:GetNTPResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ntp.FromDHCP, test.ShouldBeFalse)
	test.That(t, ntp.NTPManual, test.ShouldResemble, []NetworkHost{{Type: "DNS", Address: "pool.ntp.org"}})
	test.That(t, ntp.NTPFromDHCP, test.ShouldBeEmpty)
}

func TestParseDynamicDNS(t *testing.T) {
	rec, err := ParseDynamicDNS(envelope(`<tds:GetDynamicDNSResponse><tds:DynamicDNSInformation>
		<tt:Type>ClientUpdates</tt:Type><tt:Name>cam.example.com</tt:Name><tt:TTL>PT1H</tt:TTL>
	</tds:DynamicDNSInformation></tds:GetDynamicDNSResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rec, test.ShouldResemble, DynamicDNSRecord{Type: "ClientUpdates", Name: "cam.example.com", TTL: time.Hour})

	rec, err = ParseDynamicDNS(envelope(`<tds:GetDynamicDNSResponse><tds:DynamicDNSInformation>
		<tt:Type>NoUpdate</tt:Type><tt:TTL>garbage</tt:TTL>
	</tds:DynamicDNSInformation></tds:GetDynamicDNSResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rec.TTL, test.ShouldEqual, time.Duration(0))
}

func TestParseHostname(t *testing.T) {
	rec, err := ParseHostname(envelope(`<tds:GetHostnameResponse><tds:HostnameInformation>
		<tt:FromDHCP>false</tt:FromDHCP><tt:Name>frontdoor</tt:Name>
	</tds:HostnameInformation></tds:GetHostnameResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rec, test.ShouldResemble, HostnameRecord{Name: "frontdoor"})
}

func TestParseSystemDateTime(t *testing.T) {
	rec, err := ParseSystemDateTime(envelope(`<tds:GetSystemDateAndTimeResponse><tds:SystemDateAndTime>
		<tt:DateTimeType>NTP</tt:DateTimeType>
		<tt:DaylightSavings>false</tt:DaylightSavings>
		<tt:TimeZone><tt:TZ>CET-1CEST,M3.5.0,M10.5.0/3</tt:TZ></tt:TimeZone>
		<tt:UTCDateTime>
			<tt:Time><tt:Hour>7</tt:Hour><tt:Minute>50</tt:Minute><tt:Second>45</tt:Second></tt:Time>
			<tt:Date><tt:Year>2010</tt:Year><tt:Month>9</tt:Month><tt:Day>16</tt:Day></tt:Date>
		</tt:UTCDateTime>
	</tds:SystemDateAndTime></tds:GetSystemDateAndTimeResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rec.DateTimeType, test.ShouldEqual, "NTP")
	test.That(t, rec.TimeZone, test.ShouldEqual, "CET-1CEST,M3.5.0,M10.5.0/3")
	test.That(t, rec.UTC, test.ShouldEqual, time.Date(2010, time.September, 16, 7, 50, 45, 0, time.UTC))
}

func TestParseProfiles(t *testing.T) {
	profiles, err := ParseProfiles(envelope(`<trt:GetProfilesResponse>
		<trt:Profiles token="profile_1" fixed="true">
			<tt:Name>mainStream</tt:Name>
			<tt:VideoEncoderConfiguration token="enc_1">
				<tt:Encoding>H264</tt:Encoding>
				<tt:Resolution><tt:Width>1920</tt:Width><tt:Height>1080</tt:Height></tt:Resolution>
				<tt:RateControl><tt:FrameRateLimit>25</tt:FrameRateLimit></tt:RateControl>
			</tt:VideoEncoderConfiguration>
			<tt:PTZConfiguration token="ptz_1"/>
		</trt:Profiles>
	</trt:GetProfilesResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, profiles, test.ShouldResemble, []MediaProfile{{
		Token: "profile_1", Name: "mainStream", Encoding: "H264", Width: 1920, Height: 1080, FrameRateLimit: 25, PTZ: true,
	}})
}

func TestParseMediaURI(t *testing.T) {
	uri, err := ParseMediaURI("GetStreamUriResponse", envelope(`<trt:GetStreamUriResponse><trt:MediaUri>
		<tt:Uri>rtsp://10.0.0.2/stream1</tt:Uri><tt:InvalidAfterConnect>false</tt:InvalidAfterConnect>
	</trt:MediaUri></trt:GetStreamUriResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, uri.URI, test.ShouldEqual, "rtsp://10.0.0.2/stream1")
}

func TestParsePTZ(t *testing.T) {
	status, err := ParsePTZStatus(envelope(`<tptz:GetStatusResponse><tptz:PTZStatus>
		<tt:Position>
			<tt:PanTilt x="0.5" y="-0.25" space="http://www.onvif.org/ver10/tptz/PanTiltSpaces/PositionGenericSpace"/>
			<tt:Zoom x="0.1"/>
		</tt:Position>
		<tt:MoveStatus><tt:PanTilt>idle</tt:PanTilt><tt:Zoom>MOVING</tt:Zoom></tt:MoveStatus>
		<tt:UtcTime>2024-01-02T03:04:05Z</tt:UtcTime>
	</tptz:PTZStatus></tptz:GetStatusResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status.Position.Pan, test.ShouldEqual, 0.5)
	test.That(t, status.Position.Tilt, test.ShouldEqual, -0.25)
	test.That(t, status.Position.Zoom, test.ShouldEqual, 0.1)
	test.That(t, status.PanTiltStatus, test.ShouldEqual, "IDLE")
	test.That(t, status.ZoomStatus, test.ShouldEqual, "MOVING")
	test.That(t, status.UTCTime, test.ShouldEqual, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	presets, err := ParsePTZPresets(envelope(`<tptz:GetPresetsResponse>
		<tptz:Preset token="1"><tt:Name>Gate</tt:Name></tptz:Preset>
		<tptz:Preset token="2"><tt:Name>Yard</tt:Name><tt:PTZPosition><tt:PanTilt x="1" y="0"/></tt:PTZPosition></tptz:Preset>
	</tptz:GetPresetsResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(presets), test.ShouldEqual, 2)
	test.That(t, presets[0].Position, test.ShouldBeNil)
	test.That(t, presets[1].Position.Pan, test.ShouldEqual, 1.0)

	nodes, err := ParsePTZNodes(envelope(`<tptz:GetNodesResponse>
		<tptz:PTZNode token="node_1" FixedHomePosition="false">
			<tt:Name>PTZ</tt:Name>
			<tt:SupportedPTZSpaces>
				<tt:AbsolutePanTiltPositionSpace><tt:URI>http://www.onvif.org/ver10/tptz/PanTiltSpaces/PositionGenericSpace</tt:URI></tt:AbsolutePanTiltPositionSpace>
			</tt:SupportedPTZSpaces>
			<tt:MaximumNumberOfPresets>128</tt:MaximumNumberOfPresets>
			<tt:HomeSupported>true</tt:HomeSupported>
		</tptz:PTZNode>
	</tptz:GetNodesResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, nodes, test.ShouldResemble, []PTZNode{{
		Token: "node_1", Name: "PTZ", HomeSupported: true, MaxPresets: 128,
		Spaces: []string{"http://www.onvif.org/ver10/tptz/PanTiltSpaces/PositionGenericSpace"},
	}})
}

func TestParsePTZConfigurations(t *testing.T) {
	configs, err := ParsePTZConfigurations(envelope(`<tptz:GetConfigurationsResponse>
		<tptz:PTZConfiguration token="cfg_1">
			<tt:Name>Main</tt:Name><tt:UseCount>2</tt:UseCount><tt:NodeToken>node_1</tt:NodeToken>
			<tt:DefaultAbsolutePantTiltPositionSpace>http://www.onvif.org/ver10/tptz/PanTiltSpaces/PositionGenericSpace</tt:DefaultAbsolutePantTiltPositionSpace>
			<tt:DefaultRelativeZoomTranslationSpace>http://www.onvif.org/ver10/tptz/ZoomSpaces/TranslationGenericSpace</tt:DefaultRelativeZoomTranslationSpace>
			<tt:DefaultPTZSpeed><tt:Zoom x="1"/></tt:DefaultPTZSpeed>
			<tt:DefaultPTZTimeout>PT1M30S</tt:DefaultPTZTimeout>
		</tptz:PTZConfiguration>
		<tptz:PTZConfiguration token="cfg_2"><tt:DefaultPTZTimeout>PT</tt:DefaultPTZTimeout></tptz:PTZConfiguration>
	</tptz:GetConfigurationsResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, configs, test.ShouldResemble, []PTZConfiguration{
		{
			Token: "cfg_1", Name: "Main", NodeToken: "node_1", UseCount: 2,
			DefaultSpaces: map[string]string{
				"AbsolutePanTiltPositionSpace": "http://www.onvif.org/ver10/tptz/PanTiltSpaces/PositionGenericSpace",
				"RelativeZoomTranslationSpace": "http://www.onvif.org/ver10/tptz/ZoomSpaces/TranslationGenericSpace",
			},
			DefaultTimeout: 90 * time.Second,
		},
		{Token: "cfg_2"},
	})
}

func TestParseNetworkProtocolsAndGateway(t *testing.T) {
	protocols, err := ParseNetworkProtocols(envelope(`<tds:GetNetworkProtocolsResponse>
		<tds:NetworkProtocols><tt:Name>HTTP</tt:Name><tt:Enabled>true</tt:Enabled><tt:Port>80</tt:Port><tt:Port>8080</tt:Port></tds:NetworkProtocols>
		<tds:NetworkProtocols><tt:Name>RTSP</tt:Name><tt:Enabled>true</tt:Enabled><tt:Port>554</tt:Port></tds:NetworkProtocols>
	</tds:GetNetworkProtocolsResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, protocols, test.ShouldResemble, []NetworkProtocol{
		{Name: "HTTP", Enabled: true, Ports: []int{80, 8080}},
		{Name: "RTSP", Enabled: true, Ports: []int{554}},
	})

	gw, err := ParseDefaultGateway(envelope(`<tds:GetNetworkDefaultGatewayResponse><tds:NetworkGateway>
		<tt:IPv4Address>192.168.1.1</tt:IPv4Address>
	</tds:NetworkGateway></tds:GetNetworkDefaultGatewayResponse>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gw.IPv4Address, test.ShouldResemble, []string{"192.168.1.1"})
	test.That(t, gw.IPv6Address, test.ShouldBeEmpty)
}
