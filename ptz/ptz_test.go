package ptz

import (
	"encoding/xml"
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/viam-modules/onvifcore/xsd/onvif"
)

func TestRequestMarshalling(t *testing.T) {
	t.Run("continuous move", func(t *testing.T) {
		out, err := xml.Marshal(ContinuousMove{
			ProfileToken: "profile_1",
			Velocity: onvif.PTZSpeed{
				PanTilt: &onvif.Vector2D{X: 0.5, Y: -0.25, Space: ContinuousPanTiltVelocityGenericSpace},
			},
		})
		test.That(t, err, test.ShouldBeNil)
		s := string(out)
		test.That(t, s, test.ShouldStartWith, "<tptz:ContinuousMove>")
		test.That(t, s, test.ShouldContainSubstring, "<tptz:ProfileToken>profile_1</tptz:ProfileToken>")
		test.That(t, s, test.ShouldContainSubstring, `x="0.5" y="-0.25"`)
		test.That(t, s, test.ShouldNotContainSubstring, "onvif:Zoom")
		test.That(t, s, test.ShouldNotContainSubstring, "tptz:Timeout")
	})

	t.Run("relative move without speed", func(t *testing.T) {
		out, err := xml.Marshal(RelativeMove{
			ProfileToken: "profile_1",
			Translation:  onvif.PTZVector{Zoom: &onvif.Vector1D{X: 0.1}},
		})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, string(out), test.ShouldNotContainSubstring, "tptz:Speed")
	})

	t.Run("goto preset", func(t *testing.T) {
		out, err := xml.Marshal(GotoPreset{ProfileToken: "profile_1", PresetToken: "3"})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, string(out), test.ShouldEqual,
			"<tptz:GotoPreset><tptz:ProfileToken>profile_1</tptz:ProfileToken><tptz:PresetToken>3</tptz:PresetToken></tptz:GotoPreset>")
	})

	t.Run("stop", func(t *testing.T) {
		out, err := xml.Marshal(Stop{ProfileToken: "p", PanTilt: true, Zoom: false})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, string(out), test.ShouldContainSubstring, "<tptz:PanTilt>true</tptz:PanTilt><tptz:Zoom>false</tptz:Zoom>")
	})
}

func TestInUnitRange(t *testing.T) {
	test.That(t, InUnitRange(), test.ShouldBeTrue)
	test.That(t, InUnitRange(-1, 0, 1), test.ShouldBeTrue)
	test.That(t, InUnitRange(0.5, 1.01), test.ShouldBeFalse)
	test.That(t, InUnitRange(math.NaN()), test.ShouldBeFalse)
	test.That(t, InUnitRange(0, math.Inf(1)), test.ShouldBeFalse)
}

func TestInRange(t *testing.T) {
	test.That(t, InRange(-180, 180, -180, 0, 180), test.ShouldBeTrue)
	test.That(t, InRange(-90, 90, 90.5), test.ShouldBeFalse)
	test.That(t, InRange(0, 1, math.NaN()), test.ShouldBeFalse)
	test.That(t, InRange(-180, 180, math.Inf(-1)), test.ShouldBeFalse)
	test.That(t, InRange(0, 1, math.Inf(1)), test.ShouldBeFalse)
}
