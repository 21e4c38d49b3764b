package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/viam-modules/onvifcore/device"
)

func TestDeviceURL(t *testing.T) {
	for _, tc := range []struct {
		xaddr, want string
	}{
		{"http://192.168.1.10/onvif/device_service", "http://192.168.1.10/onvif/device_service"},
		{"192.168.1.10", "http://192.168.1.10/onvif/device_service"},
		{"192.168.1.10:8080", "http://192.168.1.10:8080/onvif/device_service"},
		{"https://cam.local/", "https://cam.local/onvif/device_service"},
	} {
		u, err := Device{Xaddr: tc.xaddr}.URL()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, u.String(), test.ShouldEqual, tc.want)
	}

	_, err := Device{}.URL()
	test.That(t, err, test.ShouldNotBeNil)
	_, err = Device{Xaddr: "rtsp://192.168.1.10/stream"}.URL()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestValidate(t *testing.T) {
	valid := Device{Name: "a", Xaddr: "192.168.1.10"}
	test.That(t, (&Config{Devices: []Device{valid}}).Validate(), test.ShouldBeNil)

	err := (&Config{Devices: []Device{{Xaddr: "192.168.1.10"}}}).Validate()
	test.That(t, err.Error(), test.ShouldContainSubstring, "name is required")

	err = (&Config{Devices: []Device{valid, valid}}).Validate()
	test.That(t, err.Error(), test.ShouldContainSubstring, "duplicate")

	err = (&Config{Devices: []Device{{Name: "a", Xaddr: "192.168.1.10", Password: "x"}}}).Validate()
	test.That(t, err.Error(), test.ShouldContainSubstring, "without a username")

	err = (&Config{Credentials: []device.Credentials{{Pass: "x"}}}).Validate()
	test.That(t, err.Error(), test.ShouldContainSubstring, "credentials[0]")

	err = (&Config{StepTimeout: "soon"}).Validate()
	test.That(t, err.Error(), test.ShouldContainSubstring, "step_timeout")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("template round trip", func(t *testing.T) {
		path := filepath.Join(dir, "onvif.json")
		test.That(t, Template().Write(path), test.ShouldBeNil)

		cfg, err := Load(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg, test.ShouldResemble, Template())
		test.That(t, cfg.StepTimeoutDuration(), test.ShouldEqual, 10*time.Second)

		d, ok := cfg.Device("front-door")
		test.That(t, ok, test.ShouldBeTrue)
		params, err := d.Params()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, params.Username, test.ShouldEqual, "admin")
		_, ok = cfg.Device("back-door")
		test.That(t, ok, test.ShouldBeFalse)
	})

	t.Run("defaults", func(t *testing.T) {
		path := filepath.Join(dir, "min.json")
		test.That(t, os.WriteFile(path, []byte(`{"devices": []}`), 0o600), test.ShouldBeNil)
		cfg, err := Load(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg.Listen, test.ShouldEqual, DefaultListen)
		test.That(t, cfg.StorePath, test.ShouldEqual, DefaultStorePath)
		test.That(t, cfg, test.ShouldResemble, &Config{
			Devices:     []Device{},
			StorePath:   DefaultStorePath,
			Listen:      DefaultListen,
			StepTimeout: Default().StepTimeout,
		})
	})

	t.Run("errors", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.json"))
		test.That(t, err, test.ShouldNotBeNil)

		path := filepath.Join(dir, "bad.json")
		test.That(t, os.WriteFile(path, []byte(`{"devices": [{"name": "a"}]}`), 0o600), test.ShouldBeNil)
		_, err = Load(path)
		test.That(t, err.Error(), test.ShouldContainSubstring, "xaddr is required")
	})
}
