package profile

import (
	"context"
	"errors"
	"time"

	"go.viam.com/rdk/logging"

	"github.com/viam-modules/onvifcore/device"
	"github.com/viam-modules/onvifcore/normalize"
	"github.com/viam-modules/onvifcore/ptz"
	"github.com/viam-modules/onvifcore/xsd"
	"github.com/viam-modules/onvifcore/xsd/onvif"
)

// PTZName is the name of the PTZ handler.
const PTZName = "ptz"

const (
	defaultPanSpeed  = 0.5
	defaultTiltSpeed = 0.5
	defaultZoomSpeed = 0.5
	// upper bound on a ContinuousMove timeout, well inside time.Duration
	maxMoveTimeoutSeconds = 24 * 60 * 60
)

// NewPTZ returns the pan-tilt-zoom handler.
func NewPTZ(logger logging.Logger) Handler {
	p := &ptzCommands{logger: logger.Sublogger(PTZName)}
	return newHandler(PTZName, []string{device.NamespacePTZ}, p.logger, []command{
		{
			Command: Command{Name: "GetNodes", Description: "PTZ nodes and their coordinate spaces"},
			run: func(ctx context.Context, c Caller, _ map[string]interface{}) (interface{}, error) {
				return call(ctx, c, device.ServicePTZ, ptz.GetNodes{}, normalize.ParsePTZNodes)
			},
		},
		{
			Command: Command{Name: "GetConfigurations", Description: "PTZ configurations and their default spaces"},
			run: func(ctx context.Context, c Caller, _ map[string]interface{}) (interface{}, error) {
				return call(ctx, c, device.ServicePTZ, ptz.GetConfigurations{}, normalize.ParsePTZConfigurations)
			},
		},
		{
			Command: Command{Name: "GetStatus", Description: "position and move status", Params: []string{"profile_token"}},
			run:     p.getStatus,
		},
		{
			Command: Command{Name: "Stop", Description: "stop movement", Params: []string{"profile_token", "pan_tilt", "zoom"}},
			run:     p.stop,
		},
		{
			Command: Command{
				Name:        "ContinuousMove",
				Description: "move at a velocity until stopped",
				Params:      []string{"profile_token", "pan_speed", "tilt_speed", "zoom_speed", "timeout"},
			},
			run: p.continuousMove,
		},
		{
			Command: Command{
				Name:        "RelativeMove",
				Description: "move relative to the current position",
				Params:      []string{"profile_token", "pan", "tilt", "zoom", "degrees", "use_speed", "speed_pan", "speed_tilt", "speed_zoom"},
			},
			run: p.relativeMove,
		},
		{
			Command: Command{
				Name:        "AbsoluteMove",
				Description: "move to an absolute position",
				Params: []string{
					"profile_token", "pan_position", "tilt_position", "zoom_position", "degrees",
					"pan_speed", "tilt_speed", "zoom_speed",
				},
			},
			run: p.absoluteMove,
		},
		{
			Command: Command{Name: "GotoHomePosition", Description: "move to the home position", Params: []string{"profile_token"}},
			run: func(ctx context.Context, c Caller, params map[string]interface{}) (interface{}, error) {
				token, err := ptzProfileToken(params)
				if err != nil {
					return nil, err
				}
				return p.send(ctx, c, ptz.GotoHomePosition{ProfileToken: token})
			},
		},
		{
			Command: Command{Name: "GetPresets", Description: "saved presets", Params: []string{"profile_token"}},
			run: func(ctx context.Context, c Caller, params map[string]interface{}) (interface{}, error) {
				token, err := ptzProfileToken(params)
				if err != nil {
					return nil, err
				}
				return call(ctx, c, device.ServicePTZ, ptz.GetPresets{ProfileToken: token}, normalize.ParsePTZPresets)
			},
		},
		{
			Command: Command{Name: "GotoPreset", Description: "move to a saved preset", Params: []string{"profile_token", "preset_token"}},
			run: func(ctx context.Context, c Caller, params map[string]interface{}) (interface{}, error) {
				token, err := ptzProfileToken(params)
				if err != nil {
					return nil, err
				}
				preset, err := GetString(params, "preset_token")
				if err != nil {
					return nil, err
				}
				return p.send(ctx, c, ptz.GotoPreset{ProfileToken: token, PresetToken: onvif.ReferenceToken(preset)})
			},
		},
	})
}

type ptzCommands struct {
	logger logging.Logger
}

func ptzProfileToken(params map[string]interface{}) (onvif.ReferenceToken, error) {
	token, err := GetString(params, "profile_token")
	if err != nil {
		return "", errors.New("profile_token is required for PTZ commands, run GetProfiles to list them")
	}
	return onvif.ReferenceToken(token), nil
}

func (p *ptzCommands) send(ctx context.Context, c Caller, req interface{}) (interface{}, error) {
	if _, err := c.CallMethod(ctx, device.ServicePTZ, req); err != nil {
		return nil, err
	}
	return success(), nil
}

func (p *ptzCommands) getStatus(ctx context.Context, c Caller, params map[string]interface{}) (interface{}, error) {
	token, err := ptzProfileToken(params)
	if err != nil {
		return nil, err
	}
	p.logger.Debugf("Sending GetStatus request for profile: %s", token)
	return call(ctx, c, device.ServicePTZ, ptz.GetStatus{ProfileToken: token}, normalize.ParsePTZStatus)
}

func (p *ptzCommands) stop(ctx context.Context, c Caller, params map[string]interface{}) (interface{}, error) {
	token, err := ptzProfileToken(params)
	if err != nil {
		return nil, err
	}
	stopPanTilt := GetOptionalBool(params, "pan_tilt", true)
	stopZoom := GetOptionalBool(params, "zoom", true)

	p.logger.Debugf("Sending Stop command (PanTilt: %v, Zoom: %v) for profile %s...", stopPanTilt, stopZoom, token)
	return p.send(ctx, c, ptz.Stop{
		ProfileToken: token,
		PanTilt:      xsd.Boolean(stopPanTilt),
		Zoom:         xsd.Boolean(stopZoom),
	})
}

func (p *ptzCommands) continuousMove(ctx context.Context, c Caller, params map[string]interface{}) (interface{}, error) {
	token, err := ptzProfileToken(params)
	if err != nil {
		return nil, err
	}
	panSpeed := GetOptionalFloat64(params, "pan_speed", 0.0)
	tiltSpeed := GetOptionalFloat64(params, "tilt_speed", 0.0)
	zoomSpeed := GetOptionalFloat64(params, "zoom_speed", 0.0)
	if !ptz.InUnitRange(panSpeed, tiltSpeed, zoomSpeed) {
		return nil, errors.New("speed values (pan_speed, tilt_speed, zoom_speed) must be between -1.0 and 1.0")
	}

	req := ptz.ContinuousMove{
		ProfileToken: token,
		Velocity: onvif.PTZSpeed{
			PanTilt: &onvif.Vector2D{X: panSpeed, Y: tiltSpeed, Space: ptz.ContinuousPanTiltVelocityGenericSpace},
			Zoom:    &onvif.Vector1D{X: zoomSpeed, Space: ptz.ContinuousZoomVelocityGenericSpace},
		},
	}
	// timeout is in seconds; the camera stops on its own when it elapses
	secs := GetOptionalFloat64(params, "timeout", 0)
	if !ptz.InRange(0, maxMoveTimeoutSeconds, secs) {
		return nil, errors.New("timeout must be between 0 and 86400 seconds")
	}
	if secs > 0 {
		timeout, err := xsd.FormatDuration(time.Duration(secs * float64(time.Second)))
		if err != nil {
			return nil, err
		}
		req.Timeout = timeout
	}

	p.logger.Debugf("Sending ContinuousMove (PanSpeed: %.2f, TiltSpeed: %.2f, ZoomSpeed: %.2f) for profile %s...",
		panSpeed, tiltSpeed, zoomSpeed, token)
	return p.send(ctx, c, req)
}

func (p *ptzCommands) relativeMove(ctx context.Context, c Caller, params map[string]interface{}) (interface{}, error) {
	token, err := ptzProfileToken(params)
	if err != nil {
		return nil, err
	}
	panRelative := GetOptionalFloat64(params, "pan", 0.0)
	tiltRelative := GetOptionalFloat64(params, "tilt", 0.0)
	zoomRelative := GetOptionalFloat64(params, "zoom", 0.0)
	useDegrees := GetOptionalBool(params, "degrees", false)

	speedX := GetOptionalFloat64(params, "speed_pan", defaultPanSpeed)
	speedY := GetOptionalFloat64(params, "speed_tilt", defaultTiltSpeed)
	speedZ := GetOptionalFloat64(params, "speed_zoom", defaultZoomSpeed)
	useSpeed := GetOptionalBool(params, "use_speed", false)

	if useDegrees {
		if !ptz.InRange(-180, 180, panRelative) {
			return nil, errors.New("relative pan must be between -180.0 and 180.0 when using degrees")
		}
		if !ptz.InRange(-90, 90, tiltRelative) {
			return nil, errors.New("relative tilt must be between -90.0 and 90.0 when using degrees")
		}
	} else if !ptz.InUnitRange(panRelative, tiltRelative) {
		return nil, errors.New("relative pan and tilt must be between -1.0 and 1.0 (use degrees=true for degrees)")
	}
	if !ptz.InUnitRange(zoomRelative) {
		return nil, errors.New("relative zoom must be between -1.0 and 1.0")
	}

	panTilt := &onvif.Vector2D{X: panRelative, Y: tiltRelative, Space: ptz.RelativePanTiltTranslationGenericSpace}
	if useDegrees {
		panTilt.Space = ptz.RelativePanTiltTranslationSphericalDegrees
	}
	req := ptz.RelativeMove{
		ProfileToken: token,
		Translation: onvif.PTZVector{
			PanTilt: panTilt,
			Zoom:    &onvif.Vector1D{X: zoomRelative, Space: ptz.RelativeZoomTranslationGenericSpace},
		},
	}
	if useSpeed {
		if !ptz.InUnitRange(speedX, speedY, speedZ) {
			return nil, errors.New("speed values must be between -1.0 and 1.0")
		}
		req.Speed = &onvif.PTZSpeed{
			PanTilt: &onvif.Vector2D{X: speedX, Y: speedY},
			Zoom:    &onvif.Vector1D{X: speedZ},
		}
	}

	p.logger.Debugf("Sending RelativeMove (P: %.3f, T: %.3f, Z: %.3f, degrees: %v) for profile %s...",
		panRelative, tiltRelative, zoomRelative, useDegrees, token)
	return p.send(ctx, c, req)
}

func (p *ptzCommands) absoluteMove(ctx context.Context, c Caller, params map[string]interface{}) (interface{}, error) {
	token, err := ptzProfileToken(params)
	if err != nil {
		return nil, err
	}
	panPos, err := GetFloat64(params, "pan_position")
	if err != nil {
		return nil, err
	}
	tiltPos, err := GetFloat64(params, "tilt_position")
	if err != nil {
		return nil, err
	}
	zoomPos, err := GetFloat64(params, "zoom_position")
	if err != nil {
		return nil, err
	}
	useDegrees := GetOptionalBool(params, "degrees", false)
	if useDegrees {
		if !ptz.InRange(-180, 180, panPos) || !ptz.InRange(-90, 90, tiltPos) {
			return nil, errors.New("pan position must be between -180.0 and 180.0 and tilt position between -90.0 and 90.0 when using degrees")
		}
	} else if !ptz.InUnitRange(panPos, tiltPos) {
		return nil, errors.New("pan and tilt positions must be between -1.0 and 1.0 (use degrees=true for degrees)")
	}
	if !ptz.InRange(0, 1, zoomPos) {
		return nil, errors.New("zoom position must be between 0.0 and 1.0")
	}
	panSpeed := GetOptionalFloat64(params, "pan_speed", 1.0)
	tiltSpeed := GetOptionalFloat64(params, "tilt_speed", 1.0)
	zoomSpeed := GetOptionalFloat64(params, "zoom_speed", 1.0)
	if !ptz.InRange(0, 1, panSpeed, tiltSpeed, zoomSpeed) {
		return nil, errors.New("speed values (pan_speed, tilt_speed, zoom_speed) must be between 0.0 and 1.0 for absolute move")
	}

	panTilt := &onvif.Vector2D{X: panPos, Y: tiltPos, Space: ptz.AbsolutePanTiltPositionGenericSpace}
	if useDegrees {
		panTilt.Space = ptz.AbsolutePanTiltPositionSphericalDegrees
	}
	req := ptz.AbsoluteMove{
		ProfileToken: token,
		Position: onvif.PTZVector{
			PanTilt: panTilt,
			Zoom:    &onvif.Vector1D{X: zoomPos, Space: ptz.AbsoluteZoomPositionGenericSpace},
		},
		Speed: &onvif.PTZSpeed{
			PanTilt: &onvif.Vector2D{X: panSpeed, Y: tiltSpeed},
			Zoom:    &onvif.Vector1D{X: zoomSpeed},
		},
	}

	p.logger.Debugf("Sending AbsoluteMove (Pan: %.3f, Tilt: %.3f, Zoom: %.3f, degrees: %v) with Speed (X: %.2f, Y: %.2f, Z: %.2f) for profile %s...",
		panPos, tiltPos, zoomPos, useDegrees, panSpeed, tiltSpeed, zoomSpeed, token)
	return p.send(ctx, c, req)
}
