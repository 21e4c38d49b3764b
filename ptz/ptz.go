// Package ptz provides PTZ (Pan-Tilt-Zoom) ONVIF request types and coordinate space URIs.
package ptz

import (
	"github.com/viam-modules/onvifcore/xsd"
	"github.com/viam-modules/onvifcore/xsd/onvif"
)

// Generic coordinate spaces every PTZ node must support.
const (
	AbsolutePanTiltPositionGenericSpace     = "http://www.onvif.org/ver10/tptz/PanTiltSpaces/PositionGenericSpace"
	AbsolutePanTiltPositionSphericalDegrees = "http://www.onvif.org/ver10/tptz/PanTiltSpaces/SphericalPositionSpaceDegrees"
	AbsoluteZoomPositionGenericSpace        = "http://www.onvif.org/ver10/tptz/ZoomSpaces/PositionGenericSpace"

	RelativePanTiltTranslationGenericSpace     = "http://www.onvif.org/ver10/tptz/PanTiltSpaces/TranslationGenericSpace"
	RelativePanTiltTranslationSphericalDegrees = "http://www.onvif.org/ver10/tptz/PanTiltSpaces/SphericalTranslationSpaceDegrees"
	RelativeZoomTranslationGenericSpace        = "http://www.onvif.org/ver10/tptz/ZoomSpaces/TranslationGenericSpace"

	ContinuousPanTiltVelocityGenericSpace = "http://www.onvif.org/ver10/tptz/PanTiltSpaces/VelocityGenericSpace"
	ContinuousZoomVelocityGenericSpace    = "http://www.onvif.org/ver10/tptz/ZoomSpaces/VelocityGenericSpace"
)

// Stop is a request to stop PTZ movement.
type Stop struct {
	XMLName      string               `xml:"tptz:Stop"`
	ProfileToken onvif.ReferenceToken `xml:"tptz:ProfileToken"`
	PanTilt      xsd.Boolean          `xml:"tptz:PanTilt"`
	Zoom         xsd.Boolean          `xml:"tptz:Zoom"`
}

// ContinuousMove is a request for continuous PTZ movement.
type ContinuousMove struct {
	XMLName      string               `xml:"tptz:ContinuousMove"`
	ProfileToken onvif.ReferenceToken `xml:"tptz:ProfileToken"`
	Velocity     onvif.PTZSpeed       `xml:"tptz:Velocity"`
	Timeout      xsd.Duration         `xml:"tptz:Timeout,omitempty"`
}

// RelativeMove is a request for relative PTZ movement.
type RelativeMove struct {
	XMLName      string               `xml:"tptz:RelativeMove"`
	ProfileToken onvif.ReferenceToken `xml:"tptz:ProfileToken"`
	Translation  onvif.PTZVector      `xml:"tptz:Translation"`
	Speed        *onvif.PTZSpeed      `xml:"tptz:Speed,omitempty"`
}

// AbsoluteMove is a request for absolute PTZ movement.
type AbsoluteMove struct {
	XMLName      string               `xml:"tptz:AbsoluteMove"`
	ProfileToken onvif.ReferenceToken `xml:"tptz:ProfileToken"`
	Position     onvif.PTZVector      `xml:"tptz:Position"`
	Speed        *onvif.PTZSpeed      `xml:"tptz:Speed,omitempty"`
}

// GotoHomePosition moves the PTZ unit to its home position.
type GotoHomePosition struct {
	XMLName      string               `xml:"tptz:GotoHomePosition"`
	ProfileToken onvif.ReferenceToken `xml:"tptz:ProfileToken"`
	Speed        *onvif.PTZSpeed      `xml:"tptz:Speed,omitempty"`
}

// GetPresets is a request to list the presets of a profile.
type GetPresets struct {
	XMLName      string               `xml:"tptz:GetPresets"`
	ProfileToken onvif.ReferenceToken `xml:"tptz:ProfileToken"`
}

// GotoPreset moves the PTZ unit to a saved preset.
type GotoPreset struct {
	XMLName      string               `xml:"tptz:GotoPreset"`
	ProfileToken onvif.ReferenceToken `xml:"tptz:ProfileToken"`
	PresetToken  onvif.ReferenceToken `xml:"tptz:PresetToken"`
	Speed        *onvif.PTZSpeed      `xml:"tptz:Speed,omitempty"`
}

// GetStatus is a request to get PTZ status.
type GetStatus struct {
	XMLName      string               `xml:"tptz:GetStatus"`
	ProfileToken onvif.ReferenceToken `xml:"tptz:ProfileToken"`
}

// GetConfigurations is a request to get all PTZ configurations.
type GetConfigurations struct {
	XMLName string `xml:"tptz:GetConfigurations"`
}

// GetNodes is a request to get PTZ nodes.
type GetNodes struct {
	XMLName string `xml:"tptz:GetNodes"`
}

// InUnitRange reports whether every value lies in [-1, 1].
func InUnitRange(values ...float64) bool {
	return InRange(-1, 1, values...)
}

// InRange reports whether every value lies in [lo, hi]. NaN is never in range.
func InRange(lo, hi float64, values ...float64) bool {
	for _, v := range values {
		if !(v >= lo && v <= hi) {
			return false
		}
	}
	return true
}
