package platform

import (
	"errors"
	"testing"
	"time"
)

func TestPortFromNameIsStableAndInRange(t *testing.T) {
	first := portFromName("focusmatrix")
	if first != portFromName("focusmatrix") {
		t.Fatal("port must be deterministic")
	}
	for _, name := range []string{"", "a", "focusmatrix", "another app"} {
		if port := portFromName(name); port < 20000 || port > 39999 {
			t.Fatalf("portFromName(%q) = %d out of range", name, port)
		}
	}
}

func TestSecondInstanceActivatesFirst(t *testing.T) {
	name := "focusmatrix-test-" + t.Name() + time.Now().Format("150405.000000")
	guard, err := AcquireSingleInstance(name)
	if err != nil {
		t.Skipf("port unavailable: %v", err)
	}
	defer guard.Release()

	activated := make(chan struct{}, 1)
	guard.OnActivate(func() {
		activated <- struct{}{}
	})

	if _, err := AcquireSingleInstance(name); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second acquire error = %v, want ErrAlreadyRunning", err)
	}

	select {
	case <-activated:
	case <-time.After(2 * time.Second):
		t.Fatal("first instance was not activated")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	name := "focusmatrix-release-" + time.Now().Format("150405.000000")
	guard, err := AcquireSingleInstance(name)
	if err != nil {
		t.Skipf("port unavailable: %v", err)
	}
	if err := guard.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := guard.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}

	var nilGuard *InstanceGuard
	if err := nilGuard.Release(); err != nil || nilGuard.Address() != "" {
		t.Fatal("nil guard should be inert")
	}
}
