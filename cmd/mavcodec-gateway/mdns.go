package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// mdnsServiceType advertises the gateway's metrics/ready HTTP port,
// not a frame transport — there is no TCP relay in this binary.
const mdnsServiceType = "_mavcodec-gateway._tcp"

// startMDNS registers the service via mDNS and returns a cleanup function.
// It is safe to call even if disabled (no-op).
func startMDNS(ctx context.Context, cfg *appConfig, port int) (func(), error) {
	if !cfg.mdnsEnable {
		return func() {}, nil
	}
	instance := cfg.mdnsName
	if instance == "" {
		host, _ := os.Hostname()
		instance = fmt.Sprintf("mavcodec-gateway-%s", host)
	}
	meta := []string{
		"version=" + cfg.version,
		"definitions=" + strings.Join(cfg.definitions, ","),
		"system-id=" + fmt.Sprint(cfg.systemID),
		"component-id=" + fmt.Sprint(cfg.componentID),
	}
	svc, err := zeroconf.Register(instance, mdnsServiceType, "local.", port, meta, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		svc.Shutdown()
	}()
	return func() { close(done); svc.Shutdown(); time.Sleep(50 * time.Millisecond) }, nil
}
