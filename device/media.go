package device

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/icholy/digest"
	"go.viam.com/rdk/logging"

	"github.com/viam-modules/onvifcore/normalize"
	"github.com/viam-modules/onvifcore/xsd/onvif"
)

const (
	streamTypeRTPUnicast = "RTP-Unicast"
	streamSetupProtocol  = "RTSP"
	snapshotTimeout      = 5 * time.Second
)

// GetStreamURI returns a device's RTP-Unicast over RTSP stream URI for a given profile token.
// Non-empty creds are embedded in the returned URL.
func (dev *Device) GetStreamURI(ctx context.Context, token onvif.ReferenceToken, creds Credentials) (*url.URL, error) {
	dev.logger.Debugf("GetStreamUri token: %s", token)
	body, err := dev.CallMethod(ctx, ServiceMedia, GetStreamURI{
		StreamSetup: onvif.StreamSetup{
			Stream:    onvif.StreamType(streamTypeRTPUnicast),
			Transport: onvif.Transport{Protocol: streamSetupProtocol},
		},
		ProfileToken: token,
	})
	if err != nil {
		return nil, err
	}

	streamURI, err := normalize.ParseMediaURI("GetStreamUriResponse", body)
	if err != nil {
		return nil, fmt.Errorf("failed to get RTSP URL for token %s: %w", token, err)
	}
	return mediaURIWithCreds(streamURI.URI, "stream", token, creds)
}

// GetSnapshotURI returns a device's snapshot URI for a given profile token.
func (dev *Device) GetSnapshotURI(ctx context.Context, token onvif.ReferenceToken, creds Credentials) (*url.URL, error) {
	dev.logger.Debugf("GetSnapshotUri token: %s", token)
	body, err := dev.CallMethod(ctx, ServiceMedia, GetSnapshotURI{ProfileToken: token})
	if err != nil {
		return nil, err
	}

	snapshotURI, err := normalize.ParseMediaURI("GetSnapshotUriResponse", body)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot URL for token %s: %w", token, err)
	}
	return mediaURIWithCreds(snapshotURI.URI, "snapshot", token, creds)
}

func mediaURIWithCreds(uriStr, kind string, token onvif.ReferenceToken, creds Credentials) (*url.URL, error) {
	if uriStr == "" {
		return nil, fmt.Errorf("got empty %s uri for token %s", kind, token)
	}
	uri, err := url.Parse(uriStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URI %s: %w", uriStr, err)
	}
	if creds.User != "" || creds.Pass != "" {
		uri.User = url.UserPassword(creds.User, creds.Pass)
	}
	return uri, nil
}

// DownloadSnapshot downloads the image behind snapshotURI and returns it as a data URL.
// Credentials in the URI are used for HTTP digest authentication.
func DownloadSnapshot(ctx context.Context, logger logging.Logger, snapshotURI string) (string, error) {
	parsedURL, err := url.Parse(snapshotURI)
	if err != nil {
		return "", fmt.Errorf("found an invalid snapshot URI: %w", err)
	}

	var username, password string
	if parsedURL.User != nil {
		username = parsedURL.User.Username()
		password, _ = parsedURL.User.Password()
		logger.Debugf("using credentials: username=%s", username)
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
	}
	client := &http.Client{
		// Setting upper bound timeout in case the ctx never times out
		Timeout: snapshotTimeout,
		Transport: &digest.Transport{
			Username:  username,
			Password:  password,
			Transport: transport,
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, snapshotURI, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create http request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute http request: %w", err)
	}
	defer resp.Body.Close()
	logger.Debugf("snapshot response status: %s", resp.Status)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to get snapshot image, status %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	imageBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read image data from http response: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	logger.Debugf("retrieved image data: %d bytes and content type: %s", len(imageBytes), contentType)

	return formatDataURL(contentType, imageBytes), nil
}

// formatDataURL formats the image data and content type into a data URL.
func formatDataURL(contentType string, imageBytes []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(imageBytes))
}
