package normalize

import (
	"strings"
	"time"

	"github.com/viam-modules/onvifcore/xsd"
)

// MediaProfile is one entry of a GetProfiles response.
type MediaProfile struct {
	Token          string `json:"token"`
	Name           string `json:"name"`
	Encoding       string `json:"encoding,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	FrameRateLimit int    `json:"frame_rate_limit,omitempty"`
	PTZ            bool   `json:"ptz"`
}

// ParseProfiles parses a GetProfiles response.
func ParseProfiles(body []byte) ([]MediaProfile, error) {
	resp, err := Response(body, "GetProfilesResponse")
	if err != nil {
		return nil, err
	}
	var profiles []MediaProfile
	for _, p := range resp.All("Profiles") {
		enc := p.Child("VideoEncoderConfiguration")
		if enc == nil {
			// media2 nests encoder configurations under Configurations
			enc = p.Find("Configurations", "VideoEncoder")
		}
		profiles = append(profiles, MediaProfile{
			Token:          p.Value("token"),
			Name:           p.Value("Name"),
			Encoding:       enc.Value("Encoding"),
			Width:          enc.Find("Resolution").Int("Width"),
			Height:         enc.Find("Resolution").Int("Height"),
			FrameRateLimit: enc.Find("RateControl").Int("FrameRateLimit"),
			PTZ:            p.Child("PTZConfiguration") != nil || p.Find("Configurations", "PTZ") != nil,
		})
	}
	return profiles, nil
}

// VideoSource is one entry of a GetVideoSources response.
type VideoSource struct {
	Token     string  `json:"token"`
	Framerate float64 `json:"framerate"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
}

// ParseVideoSources parses a GetVideoSources response.
func ParseVideoSources(body []byte) ([]VideoSource, error) {
	resp, err := Response(body, "GetVideoSourcesResponse")
	if err != nil {
		return nil, err
	}
	var sources []VideoSource
	for _, s := range resp.All("VideoSources") {
		sources = append(sources, VideoSource{
			Token:     s.Value("token"),
			Framerate: s.Float("Framerate"),
			Width:     s.Find("Resolution").Int("Width"),
			Height:    s.Find("Resolution").Int("Height"),
		})
	}
	return sources, nil
}

// MediaURI is the payload of a GetStreamUri or GetSnapshotUri response.
type MediaURI struct {
	URI                 string `json:"uri"`
	InvalidAfterConnect bool   `json:"invalid_after_connect"`
	InvalidAfterReboot  bool   `json:"invalid_after_reboot"`
}

// ParseMediaURI parses the response named responseName, either GetStreamUriResponse or
// GetSnapshotUriResponse.
func ParseMediaURI(responseName string, body []byte) (MediaURI, error) {
	resp, err := Response(body, responseName)
	if err != nil {
		return MediaURI{}, err
	}
	uri := resp.Child("MediaUri")
	if uri == nil {
		// media2 returns the uri as a direct child named Uri
		uri = resp
	}
	return MediaURI{
		URI:                 uri.Value("Uri"),
		InvalidAfterConnect: uri.Bool("InvalidAfterConnect"),
		InvalidAfterReboot:  uri.Bool("InvalidAfterReboot"),
	}, nil
}

// Vector is a pan/tilt/zoom triple in a coordinate space.
type Vector struct {
	Pan          float64 `json:"pan"`
	Tilt         float64 `json:"tilt"`
	Zoom         float64 `json:"zoom"`
	PanTiltSpace string  `json:"pan_tilt_space,omitempty"`
	ZoomSpace    string  `json:"zoom_space,omitempty"`
}

func parseVector(n *Node) Vector {
	pt, zoom := n.Child("PanTilt"), n.Child("Zoom")
	return Vector{
		Pan:          pt.Float("x"),
		Tilt:         pt.Float("y"),
		Zoom:         zoom.Float("x"),
		PanTiltSpace: pt.Value("space"),
		ZoomSpace:    zoom.Value("space"),
	}
}

// PTZStatus is a GetStatus response.
type PTZStatus struct {
	Position      Vector    `json:"position"`
	PanTiltStatus string    `json:"pan_tilt_status"`
	ZoomStatus    string    `json:"zoom_status"`
	Error         string    `json:"error,omitempty"`
	UTCTime       time.Time `json:"utc_time"`
}

// ParsePTZStatus parses a PTZ GetStatus response.
func ParsePTZStatus(body []byte) (PTZStatus, error) {
	resp, err := Response(body, "GetStatusResponse")
	if err != nil {
		return PTZStatus{}, err
	}
	status := resp.Child("PTZStatus")
	if status == nil {
		status = resp
	}
	rec := PTZStatus{
		Position: parseVector(status.Child("Position")),
		Error:    status.Value("Error"),
	}
	move := status.Child("MoveStatus")
	if move != nil && len(move.Children()) == 0 {
		// single value form applies to both axes
		rec.PanTiltStatus = strings.ToUpper(move.Text())
		rec.ZoomStatus = rec.PanTiltStatus
	} else {
		rec.PanTiltStatus = strings.ToUpper(move.Value("PanTilt"))
		rec.ZoomStatus = strings.ToUpper(move.Value("Zoom"))
	}
	if t, err := time.Parse(time.RFC3339, status.Value("UtcTime")); err == nil {
		rec.UTCTime = t.UTC()
	}
	return rec, nil
}

// PTZPreset is one entry of a GetPresets response.
type PTZPreset struct {
	Token    string  `json:"token"`
	Name     string  `json:"name"`
	Position *Vector `json:"position,omitempty"`
}

// ParsePTZPresets parses a GetPresets response.
func ParsePTZPresets(body []byte) ([]PTZPreset, error) {
	resp, err := Response(body, "GetPresetsResponse")
	if err != nil {
		return nil, err
	}
	var presets []PTZPreset
	for _, p := range resp.All("Preset") {
		preset := PTZPreset{Token: p.Value("token"), Name: p.Value("Name")}
		if pos := p.Child("PTZPosition"); pos != nil {
			v := parseVector(pos)
			preset.Position = &v
		}
		presets = append(presets, preset)
	}
	return presets, nil
}

// PTZNode is one entry of a GetNodes response.
type PTZNode struct {
	Token             string   `json:"token"`
	Name              string   `json:"name"`
	FixedHomePosition bool     `json:"fixed_home_position"`
	HomeSupported     bool     `json:"home_supported"`
	MaxPresets        int      `json:"max_presets"`
	Spaces            []string `json:"spaces,omitempty"`
}

// ParsePTZNodes parses a GetNodes response.
func ParsePTZNodes(body []byte) ([]PTZNode, error) {
	resp, err := Response(body, "GetNodesResponse")
	if err != nil {
		return nil, err
	}
	var nodes []PTZNode
	for _, n := range resp.All("PTZNode") {
		node := PTZNode{
			Token:             n.Value("token"),
			Name:              n.Value("Name"),
			FixedHomePosition: n.Bool("FixedHomePosition"),
			HomeSupported:     n.Bool("HomeSupported"),
			MaxPresets:        n.Int("MaximumNumberOfPresets"),
		}
		for _, space := range n.Child("SupportedPTZSpaces").Children() {
			if uri := space.Value("URI"); uri != "" {
				node.Spaces = append(node.Spaces, uri)
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// PTZConfiguration is one entry of a GetConfigurations response.
type PTZConfiguration struct {
	Token     string `json:"token"`
	Name      string `json:"name"`
	NodeToken string `json:"node_token"`
	UseCount  int    `json:"use_count"`
	// DefaultSpaces holds the default coordinate space of each move type, keyed by element name
	// without the "Default" prefix, e.g. "AbsolutePanTiltPositionSpace".
	DefaultSpaces  map[string]string `json:"default_spaces,omitempty"`
	DefaultTimeout time.Duration     `json:"default_timeout,omitempty"`
}

// ParsePTZConfigurations parses a GetConfigurations response. The schema spells one element
// "DefaultAbsolutePantTiltPositionSpace"; it is reported as AbsolutePanTiltPositionSpace.
func ParsePTZConfigurations(body []byte) ([]PTZConfiguration, error) {
	resp, err := Response(body, "GetConfigurationsResponse")
	if err != nil {
		return nil, err
	}
	var configs []PTZConfiguration
	for _, n := range resp.All("PTZConfiguration") {
		cfg := PTZConfiguration{
			Token:     n.Value("token"),
			Name:      n.Value("Name"),
			NodeToken: n.Value("NodeToken"),
			UseCount:  n.Int("UseCount"),
		}
		for _, child := range n.Children() {
			name := child.Name()
			if !strings.HasPrefix(name, "Default") || !strings.HasSuffix(name, "Space") {
				continue
			}
			key := strings.Replace(strings.TrimPrefix(name, "Default"), "PantTilt", "PanTilt", 1)
			if cfg.DefaultSpaces == nil {
				cfg.DefaultSpaces = map[string]string{}
			}
			cfg.DefaultSpaces[key] = child.Text()
		}
		if raw := n.Value("DefaultPTZTimeout"); raw != "" {
			if d, err := xsd.ParseDuration(raw); err == nil {
				cfg.DefaultTimeout = d
			}
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}
