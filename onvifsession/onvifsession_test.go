package onvifsession

import (
	"context"
	"errors"
	"testing"

	"go.viam.com/rdk/components/generic"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/test"

	"github.com/viam-modules/onvifcore/dispatch"
	"github.com/viam-modules/onvifcore/onviftest"
)

func TestValidate(t *testing.T) {
	_, _, err := (&Config{}).Validate("path")
	test.That(t, err.Error(), test.ShouldContainSubstring, `"address"`)

	_, _, err = (&Config{Address: "192.168.1.10"}).Validate("path")
	test.That(t, err.Error(), test.ShouldContainSubstring, "device service url")

	_, _, err = (&Config{Address: "http://192.168.1.10/onvif/device_service", Password: "x"}).Validate("path")
	test.That(t, err.Error(), test.ShouldContainSubstring, `"username"`)

	_, _, err = (&Config{Address: "http://192.168.1.10/onvif/device_service", StepTimeoutSeconds: -1}).Validate("path")
	test.That(t, err, test.ShouldNotBeNil)

	deps, optional, err := (&Config{Address: "http://192.168.1.10/onvif/device_service", Username: "admin"}).Validate("path")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, deps, test.ShouldBeEmpty)
	test.That(t, optional, test.ShouldBeEmpty)
}

func newComponent(t *testing.T, cam *onviftest.Camera, conf *Config) resource.Resource {
	t.Helper()
	conf.Address = cam.URL()
	res, err := NewSession(context.Background(), nil, generic.Named("onvif"), conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return res
}

func TestDoCommand(t *testing.T) {
	ctx := context.Background()
	cam := onviftest.NewCamera(t)
	res := newComponent(t, cam, &Config{Username: "admin", Password: "secret", ProfileToken: "profile_2"})
	defer res.Close(ctx)

	test.That(t, res.Name().ShortName(), test.ShouldEqual, "onvif")

	_, err := res.DoCommand(ctx, map[string]interface{}{})
	test.That(t, err.Error(), test.ShouldContainSubstring, "'command' key missing")

	out, err := res.DoCommand(ctx, map[string]interface{}{"command": "status"})
	test.That(t, err, test.ShouldBeNil)
	status := out["result"].(map[string]interface{})
	test.That(t, status["state"], test.ShouldEqual, "ready")

	out, err = res.DoCommand(ctx, map[string]interface{}{"command": "get-stream-uri"})
	test.That(t, err, test.ShouldBeNil)
	result := out["result"].(map[string]interface{})
	test.That(t, result["profile_token"], test.ShouldEqual, "profile_2")

	out, err = res.DoCommand(ctx, map[string]interface{}{"command": "get-stream-uri", "profile_token": "profile_1"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out["result"].(map[string]interface{})["profile_token"], test.ShouldEqual, "profile_1")

	out, err = res.DoCommand(ctx, map[string]interface{}{"command": "commands"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(out["commands"].([]interface{})), test.ShouldEqual, 3)

	_, err = res.DoCommand(ctx, map[string]interface{}{"command": "teleport"})
	test.That(t, errors.Is(err, dispatch.ErrUnknownCommand), test.ShouldBeTrue)
}

func TestBootstrapFailure(t *testing.T) {
	ctx := context.Background()
	cam := onviftest.NewCamera(t)
	cam.SetFault("GetDeviceInformation", "ter:NotAuthorized")
	res := newComponent(t, cam, &Config{})
	defer res.Close(ctx)

	out, err := res.DoCommand(ctx, map[string]interface{}{"command": "status"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out["result"].(map[string]interface{})["state"], test.ShouldEqual, "failed")

	_, err = res.DoCommand(ctx, map[string]interface{}{"command": "GetHostname"})
	test.That(t, errors.Is(err, dispatch.ErrSessionNotReady), test.ShouldBeTrue)
}

func TestCloseStopsPTZ(t *testing.T) {
	ctx := context.Background()
	cam := onviftest.NewCamera(t)
	res := newComponent(t, cam, &Config{ProfileToken: "profile_1"})

	_, err := res.DoCommand(ctx, map[string]interface{}{"command": "status"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Close(ctx), test.ShouldBeNil)
	test.That(t, cam.Calls(), test.ShouldContain, "Stop")
	test.That(t, cam.Request("Stop"), test.ShouldContainSubstring, "profile_1")
}
