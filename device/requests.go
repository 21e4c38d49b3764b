package device

import (
	"github.com/beevik/etree"

	"github.com/viam-modules/onvifcore/xsd"
	"github.com/viam-modules/onvifcore/xsd/onvif"
)

// GetDeviceInformation is a request to the GetDeviceInformation onvif endpoint.
type GetDeviceInformation struct {
	XMLName string `xml:"tds:GetDeviceInformation"`
}

// GetServices is a request to the GetServices onvif endpoint.
type GetServices struct {
	XMLName           string      `xml:"tds:GetServices"`
	IncludeCapability xsd.Boolean `xml:"tds:IncludeCapability"`
}

// GetScopes is a request to the GetScopes onvif endpoint.
type GetScopes struct {
	XMLName string `xml:"tds:GetScopes"`
}

// AddScopes is a request to the AddScopes onvif endpoint.
type AddScopes struct {
	XMLName   string   `xml:"tds:AddScopes"`
	ScopeItem []string `xml:"tds:ScopeItem"`
}

// RemoveScopes is a request to the RemoveScopes onvif endpoint.
type RemoveScopes struct {
	XMLName   string   `xml:"tds:RemoveScopes"`
	ScopeItem []string `xml:"tds:ScopeItem"`
}

// GetNetworkInterfaces is a request to the GetNetworkInterfaces onvif endpoint.
type GetNetworkInterfaces struct {
	XMLName string `xml:"tds:GetNetworkInterfaces"`
}

// GetCapabilities is a request to the GetCapabilities onvif endpoint.
type GetCapabilities struct {
	XMLName  string                   `xml:"tds:GetCapabilities"`
	Category onvif.CapabilityCategory `xml:"tds:Category"`
}

// GetHostname is a request to the GetHostname onvif endpoint.
type GetHostname struct {
	XMLName string `xml:"tds:GetHostname"`
}

// SetHostname is a request to the SetHostname onvif endpoint.
type SetHostname struct {
	XMLName string `xml:"tds:SetHostname"`
	Name    string `xml:"tds:Name"`
}

// GetDNS is a request to the GetDNS onvif endpoint.
type GetDNS struct {
	XMLName string `xml:"tds:GetDNS"`
}

// GetNTP is a request to the GetNTP onvif endpoint.
type GetNTP struct {
	XMLName string `xml:"tds:GetNTP"`
}

// GetDynamicDNS is a request to the GetDynamicDNS onvif endpoint.
type GetDynamicDNS struct {
	XMLName string `xml:"tds:GetDynamicDNS"`
}

// GetSystemDateAndTime is a request to the GetSystemDateAndTime onvif endpoint.
type GetSystemDateAndTime struct {
	XMLName string `xml:"tds:GetSystemDateAndTime"`
}

// GetNetworkProtocols is a request to the GetNetworkProtocols onvif endpoint.
type GetNetworkProtocols struct {
	XMLName string `xml:"tds:GetNetworkProtocols"`
}

// GetNetworkDefaultGateway is a request to the GetNetworkDefaultGateway onvif endpoint.
type GetNetworkDefaultGateway struct {
	XMLName string `xml:"tds:GetNetworkDefaultGateway"`
}

// SystemReboot is a request to the SystemReboot onvif endpoint.
type SystemReboot struct {
	XMLName string `xml:"tds:SystemReboot"`
}

// GetProfiles is a request to the GetProfiles onvif endpoint.
type GetProfiles struct {
	XMLName string `xml:"trt:GetProfiles"`
}

// GetStreamURI is a request to the GetStreamURI onvif endpoint.
type GetStreamURI struct {
	XMLName      string               `xml:"trt:GetStreamUri"`
	StreamSetup  onvif.StreamSetup    `xml:"trt:StreamSetup"`
	ProfileToken onvif.ReferenceToken `xml:"trt:ProfileToken"`
}

// GetSnapshotURI is a request to the GetSnapshotUri onvif endpoint.
type GetSnapshotURI struct {
	XMLName      string               `xml:"trt:GetSnapshotUri"`
	ProfileToken onvif.ReferenceToken `xml:"trt:ProfileToken"`
}

// GetVideoSources is a request to the GetVideoSources onvif endpoint.
type GetVideoSources struct {
	XMLName string `xml:"trt:GetVideoSources"`
}

// GetServiceCapabilities builds a GetServiceCapabilities request in the given service namespace.
// Every ONVIF service defines this operation under its own namespace, so the element is built
// directly rather than from a fixed struct tag.
func GetServiceCapabilities(namespace string) *etree.Element {
	el := etree.NewElement("GetServiceCapabilities")
	el.CreateAttr("xmlns", namespace)
	return el
}
