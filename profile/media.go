package profile

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"go.viam.com/rdk/logging"

	"github.com/viam-modules/onvifcore/device"
	"github.com/viam-modules/onvifcore/normalize"
	"github.com/viam-modules/onvifcore/xsd/onvif"
)

// ProfileSName is the name of the media (Profile S) handler.
const ProfileSName = "profile_s"

// NewProfileS returns the media handler: profiles, stream and snapshot uris, and snapshots.
func NewProfileS(logger logging.Logger) Handler {
	logger = logger.Sublogger(ProfileSName)
	return newHandler(ProfileSName, []string{device.NamespaceMedia}, logger, []command{
		{
			Command: Command{Name: "GetProfiles", Description: "media profiles"},
			run: func(ctx context.Context, c Caller, _ map[string]interface{}) (interface{}, error) {
				return call(ctx, c, device.ServiceMedia, device.GetProfiles{}, normalize.ParseProfiles)
			},
		},
		{
			Command: Command{Name: "GetVideoSources", Description: "video sources"},
			run: func(ctx context.Context, c Caller, _ map[string]interface{}) (interface{}, error) {
				return call(ctx, c, device.ServiceMedia, device.GetVideoSources{}, normalize.ParseVideoSources)
			},
		},
		{
			Command: Command{
				Name:        "GetStreamUri",
				Description: "RTSP uri of a profile with credentials embedded",
				Params:      []string{"profile_token"},
			},
			run: getStreamURI,
		},
		{
			Command: Command{Name: "GetSnapshotUri", Description: "snapshot uri of a profile", Params: []string{"profile_token"}},
			run: func(ctx context.Context, c Caller, params map[string]interface{}) (interface{}, error) {
				token, err := profileToken(ctx, c, params)
				if err != nil {
					return nil, err
				}
				uri, err := c.GetSnapshotURI(ctx, token, device.Credentials{})
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"uri": uri.String(), "profile_token": string(token)}, nil
			},
		},
		{
			Command: Command{Name: "GetSnapshot", Description: "download a snapshot as a data url", Params: []string{"profile_token"}},
			run: func(ctx context.Context, c Caller, params map[string]interface{}) (interface{}, error) {
				token, err := profileToken(ctx, c, params)
				if err != nil {
					return nil, err
				}
				uri, err := c.GetSnapshotURI(ctx, token, c.Credentials())
				if err != nil {
					return nil, err
				}
				dataURL, err := device.DownloadSnapshot(ctx, logger, uri.String())
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"data_url": dataURL, "profile_token": string(token)}, nil
			},
		},
	})
}

func getStreamURI(ctx context.Context, c Caller, params map[string]interface{}) (interface{}, error) {
	token, err := profileToken(ctx, c, params)
	if err != nil {
		return nil, err
	}
	uri, err := c.GetStreamURI(ctx, token, c.Credentials())
	if err != nil {
		return nil, err
	}
	if err := validateRTSPURL(uri); err != nil {
		return nil, err
	}
	return map[string]interface{}{"uri": uri.String(), "profile_token": string(token)}, nil
}

// validateRTSPURL checks that uri is an RTSP url an RTSP client can dial.
func validateRTSPURL(uri *url.URL) error {
	u, err := base.ParseURL(uri.String())
	if err != nil {
		return fmt.Errorf("device returned an invalid stream uri %q: %w", uri.Redacted(), err)
	}
	if u.Host == "" {
		return fmt.Errorf("device returned a stream uri without a host: %q", uri.Redacted())
	}
	return nil
}

// profileToken returns the profile_token argument, falling back to the device's first profile.
func profileToken(ctx context.Context, c Caller, params map[string]interface{}) (onvif.ReferenceToken, error) {
	if token := GetOptionalString(params, "profile_token", ""); token != "" {
		return onvif.ReferenceToken(token), nil
	}
	body, err := c.CallMethod(ctx, device.ServiceMedia, device.GetProfiles{})
	if err != nil {
		return "", err
	}
	profiles, err := normalize.ParseProfiles(body)
	if err != nil {
		return "", err
	}
	if len(profiles) == 0 || profiles[0].Token == "" {
		return "", errors.New("device has no media profiles")
	}
	return onvif.ReferenceToken(profiles[0].Token), nil
}
