package store

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/viam-modules/onvifcore/normalize"
	"github.com/viam-modules/onvifcore/session"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() { test.That(t, s.Close(), test.ShouldBeNil) })
	return s
}

func snapshot(id, xaddr string) session.Snapshot {
	return session.Snapshot{
		ID:                id,
		Xaddr:             xaddr,
		State:             session.StateReady.String(),
		DeviceInformation: normalize.DeviceInformation{Manufacturer: "Acme", SerialNumber: id},
		Endpoints:         map[string]string{"device": xaddr},
	}
}

func TestPutGet(t *testing.T) {
	s := openStore(t)
	snap := snapshot("a", "http://192.168.1.10/onvif/device_service")
	test.That(t, s.Put(snap), test.ShouldBeNil)

	got, err := s.Get("a")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.DeviceInformation, test.ShouldResemble, snap.DeviceInformation)
	test.That(t, got.Endpoints, test.ShouldResemble, snap.Endpoints)

	got, err = s.GetByXaddr(snap.Xaddr)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.ID, test.ShouldEqual, "a")

	_, err = s.Get("missing")
	test.That(t, errors.Is(err, ErrNotFound), test.ShouldBeTrue)
	_, err = s.GetByXaddr("http://10.0.0.1/onvif/device_service")
	test.That(t, errors.Is(err, ErrNotFound), test.ShouldBeTrue)

	test.That(t, s.Put(session.Snapshot{Xaddr: "x"}), test.ShouldNotBeNil)
	test.That(t, s.Put(session.Snapshot{ID: "x"}), test.ShouldNotBeNil)
}

func TestReplaceAndList(t *testing.T) {
	s := openStore(t)
	test.That(t, s.Put(snapshot("b", "http://192.168.1.20/onvif/device_service")), test.ShouldBeNil)
	test.That(t, s.Put(snapshot("a", "http://192.168.1.10/onvif/device_service")), test.ShouldBeNil)
	// bootstrapping the same device again replaces its snapshot
	test.That(t, s.Put(snapshot("c", "http://192.168.1.10/onvif/device_service")), test.ShouldBeNil)

	list, err := s.List()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(list), test.ShouldEqual, 2)
	test.That(t, list[0].ID, test.ShouldEqual, "c")
	test.That(t, list[1].ID, test.ShouldEqual, "b")

	_, err = s.Get("a")
	test.That(t, errors.Is(err, ErrNotFound), test.ShouldBeTrue)
}

func TestDelete(t *testing.T) {
	s := openStore(t)
	snap := snapshot("a", "http://192.168.1.10/onvif/device_service")
	test.That(t, s.Put(snap), test.ShouldBeNil)
	test.That(t, s.Delete("a"), test.ShouldBeNil)

	_, err := s.GetByXaddr(snap.Xaddr)
	test.That(t, errors.Is(err, ErrNotFound), test.ShouldBeTrue)
	test.That(t, errors.Is(s.Delete("a"), ErrNotFound), test.ShouldBeTrue)

	list, err := s.List()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, list, test.ShouldBeEmpty)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	s, err := Open(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Put(snapshot("a", "http://192.168.1.10/onvif/device_service")), test.ShouldBeNil)
	test.That(t, s.Close(), test.ShouldBeNil)

	s, err = Open(path)
	test.That(t, err, test.ShouldBeNil)
	defer s.Close()
	got, err := s.Get("a")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.DeviceInformation.Manufacturer, test.ShouldEqual, "Acme")
}
