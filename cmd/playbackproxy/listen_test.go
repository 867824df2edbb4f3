package main

import (
	"net"
	"testing"

	"github.com/ideamans/playback-proxy-go/internal/perrors"
)

func TestBindListenerBindsStartPort(t *testing.T) {
	// port 0 lets the OS pick a free port; release it, then check that
	// bindListener binds that start port itself when nothing holds it.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := probe.Addr().(*net.TCPAddr).Port
	probe.Close()

	ln, got, err := bindListener("127.0.0.1", port)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	if got != port {
		t.Errorf("bound port = %d, want %d", got, port)
	}
}

func TestBindListenerScansUpwardOnConflict(t *testing.T) {
	blocker, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer blocker.Close()
	busyPort := blocker.Addr().(*net.TCPAddr).Port

	ln, got, err := bindListener("127.0.0.1", busyPort)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	if got == busyPort {
		t.Errorf("expected bindListener to scan past the busy port %d", busyPort)
	}
	if got <= busyPort {
		t.Errorf("bound port %d should be greater than the busy port %d", got, busyPort)
	}
}

func TestBindListenerFailsOnNonAddrInUseError(t *testing.T) {
	// An out-of-range host can never bind, and its error is not "address
	// already in use", so bindListener fails with BindFailed at once
	// instead of scanning upward.
	_, _, err := bindListener("256.256.256.256", 9999)
	if err == nil {
		t.Fatal("expected an error for an invalid host")
	}
	if !perrors.Is(err, perrors.BindFailed) {
		t.Errorf("expected a BindFailed error, got %v", err)
	}
}
