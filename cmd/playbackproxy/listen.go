package main

import (
	"fmt"
	"net"
	"strings"

	"github.com/ideamans/playback-proxy-go/internal/perrors"
)

// maxPortScan bounds the "auto-scan upward on conflict" behaviour from §6
// so a persistently busy range fails fast instead of scanning forever.
const maxPortScan = 100

// bindListener binds host:startPort, scanning upward on "address already
// in use" until maxPortScan attempts are exhausted. Any other bind error
// (permission denied, invalid address) fails immediately.
func bindListener(host string, startPort int) (net.Listener, int, error) {
	for port := startPort; port < startPort+maxPortScan; port++ {
		addr := fmt.Sprintf("%s:%d", host, port)
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, port, nil
		}
		if !isAddrInUse(err) {
			return nil, 0, perrors.New(perrors.BindFailed, "bindListener", err)
		}
	}
	return nil, 0, perrors.New(perrors.BindFailed, "bindListener",
		fmt.Errorf("no free port found in range %d-%d", startPort, startPort+maxPortScan-1))
}

func isAddrInUse(err error) bool {
	return strings.Contains(err.Error(), "address already in use")
}
