package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"go.viam.com/rdk/logging"
	"go.viam.com/test"

	"github.com/viam-modules/onvifcore/config"
	"github.com/viam-modules/onvifcore/onviftest"
	"github.com/viam-modules/onvifcore/session"
	"github.com/viam-modules/onvifcore/store"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"profile_token=1", "pan=0.5", "scopes=[\"a\",\"b\"]", "note=x=y"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, params["profile_token"], test.ShouldEqual, "1")
	test.That(t, params["pan"], test.ShouldEqual, "0.5")
	test.That(t, params["scopes"], test.ShouldResemble, []interface{}{"a", "b"})
	test.That(t, params["note"], test.ShouldEqual, "x=y")

	_, err = parseParams([]string{"novalue"})
	test.That(t, err.Error(), test.ShouldContainSubstring, "key=value")
	_, err = parseParams([]string{"=1"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestTarget(t *testing.T) {
	cfg := config.Default()
	cfg.Devices = []config.Device{
		{Name: "a", Xaddr: "10.0.0.1", Username: "admin", Password: "x"},
		{Name: "b", Xaddr: "10.0.0.2"},
	}
	o := options{cfg: cfg}

	_, err := o.target()
	test.That(t, err, test.ShouldBeError, errNoDevice)

	o.deviceName = "b"
	d, err := o.target()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Xaddr, test.ShouldEqual, "10.0.0.2")

	o.username, o.password = "root", "pw"
	d, err = o.target()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Username, test.ShouldEqual, "root")

	o.deviceName = "c"
	_, err = o.target()
	test.That(t, err.Error(), test.ShouldContainSubstring, `"c"`)

	o.xaddr = "10.0.0.9"
	d, err = o.target()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Xaddr, test.ShouldEqual, "10.0.0.9")
	test.That(t, d.Password, test.ShouldEqual, "pw")

	single := options{cfg: &config.Config{Devices: cfg.Devices[:1]}}
	d, err = single.target()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Name, test.ShouldEqual, "a")
}

func TestOpenSessionCached(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cam := onviftest.NewCamera(t)
	cfg := config.Default()
	cfg.StorePath = filepath.Join(t.TempDir(), "sessions.db")
	o := options{cfg: cfg, logger: logger, xaddr: cam.URL(), username: "admin", password: "secret"}

	// nothing stored yet, so this bootstraps
	s, err := o.openSession(context.Background(), true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Ready(), test.ShouldBeTrue)

	st, err := store.Open(cfg.StorePath)
	test.That(t, err, test.ShouldBeNil)
	snap := s.Snapshot()
	snap.DeviceInformation.Model = "from store"
	test.That(t, st.Put(snap), test.ShouldBeNil)
	test.That(t, st.Close(), test.ShouldBeNil)

	s, err = o.openSession(context.Background(), true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.State(), test.ShouldEqual, session.StateReady)
	test.That(t, s.DeviceInformation().Model, test.ShouldEqual, "from store")
}

func TestCallCommand(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cam := onviftest.NewCamera(t)
	opts = options{cfg: config.Default(), logger: logger, xaddr: cam.URL(), username: "admin", password: "secret"}

	cmd := callCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"get-device-information"})
	test.That(t, cmd.Execute(), test.ShouldBeNil)

	var resp map[string]interface{}
	test.That(t, json.Unmarshal(out.Bytes(), &resp), test.ShouldBeNil)
	test.That(t, resp["profile"], test.ShouldEqual, "core")
	result, ok := resp["result"].(map[string]interface{})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, result["model"], test.ShouldEqual, "Cam 3000")
}
