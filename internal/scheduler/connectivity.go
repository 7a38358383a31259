// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

package scheduler

import (
	"context"
	"net"
	"time"
)

// Connectivity is the network precondition gate supplied to jobs.
type Connectivity interface {
	Online(ctx context.Context) bool
}

const dialProbeTimeout = 3 * time.Second

// TCPConnectivity reports connectivity by dialing a well-known address,
// normally the catalog host.
type TCPConnectivity struct {
	addr string
}

// NewTCPConnectivity creates a probe against addr (host:port).
func NewTCPConnectivity(addr string) *TCPConnectivity {
	return &TCPConnectivity{addr: addr}
}

// Online dials the probe address with a short timeout.
func (c *TCPConnectivity) Online(ctx context.Context) bool {
	dialer := net.Dialer{Timeout: dialProbeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// AlwaysOnline is a Connectivity that never blocks a job. Used when no
// probe address can be derived from configuration.
type AlwaysOnline struct{}

// Online always reports true.
func (AlwaysOnline) Online(ctx context.Context) bool {
	return true
}
