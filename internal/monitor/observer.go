// Package monitor runs the background detection loops that feed the
// response engine independently of the request path.
package monitor

import (
	"fmt"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// ConnectionObserver exposes the host's connection table. The monitors
// depend on this interface so detection logic is testable without sockets.
type ConnectionObserver interface {
	// ConnectionCounts returns established-connection counts per local
	// port and the total count across all ports.
	ConnectionCounts() (perPort map[int]int, total int, err error)
}

// SystemObserver reads the real TCP connection table via gopsutil.
type SystemObserver struct{}

// NewSystemObserver returns an observer over the host socket table.
func NewSystemObserver() *SystemObserver {
	return &SystemObserver{}
}

func (o *SystemObserver) ConnectionCounts() (map[int]int, int, error) {
	conns, err := psnet.Connections("tcp")
	if err != nil {
		return nil, 0, fmt.Errorf("read connection table: %w", err)
	}

	perPort := make(map[int]int)
	total := 0
	for _, c := range conns {
		if c.Status != "ESTABLISHED" && c.Status != "SYN_RECV" {
			continue
		}
		perPort[int(c.Laddr.Port)]++
		total++
	}
	return perPort, total, nil
}
