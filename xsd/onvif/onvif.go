// Package onvif contains the subset of the ONVIF schema (tt namespace) used in requests.
package onvif

import (
	"github.com/viam-modules/onvifcore/xsd"
)

// ReferenceToken is a unique identifier of a configuration entity on a device.
type ReferenceToken string

// CapabilityCategory is a GetCapabilities category: All, Analytics, Device, Events, Imaging, Media or PTZ.
type CapabilityCategory string

// StreamType is RTP-Unicast or RTP-Multicast.
type StreamType string

// TransportProtocol is UDP, TCP, RTSP or HTTP.
type TransportProtocol string

// Transport describes the stream transport.
type Transport struct {
	Protocol TransportProtocol `xml:"onvif:Protocol"`
}

// StreamSetup selects the stream type and transport for GetStreamUri.
type StreamSetup struct {
	Stream    StreamType `xml:"onvif:Stream"`
	Transport Transport  `xml:"onvif:Transport"`
}

// Vector2D is a pan/tilt value in a coordinate space.
type Vector2D struct {
	X     float64    `xml:"x,attr"`
	Y     float64    `xml:"y,attr"`
	Space xsd.AnyURI `xml:"space,attr,omitempty"`
}

// Vector1D is a zoom value in a coordinate space.
type Vector1D struct {
	X     float64    `xml:"x,attr"`
	Space xsd.AnyURI `xml:"space,attr,omitempty"`
}

// PTZSpeed is a pan/tilt/zoom velocity or speed.
type PTZSpeed struct {
	PanTilt *Vector2D `xml:"onvif:PanTilt,omitempty"`
	Zoom    *Vector1D `xml:"onvif:Zoom,omitempty"`
}

// PTZVector is a pan/tilt/zoom position or translation.
type PTZVector struct {
	PanTilt *Vector2D `xml:"onvif:PanTilt,omitempty"`
	Zoom    *Vector1D `xml:"onvif:Zoom,omitempty"`
}
