package ports

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// occupantLookupTimeout bounds the connection table scan so a slow host
// never delays a prompt noticeably.
const occupantLookupTimeout = 2 * time.Second

// Occupant is the process listening on a port.
type Occupant struct {
	PID  int32
	Name string
}

func (o Occupant) String() string {
	if o.Name == "" {
		return fmt.Sprintf("PID %d", o.PID)
	}
	return fmt.Sprintf("%s (PID %d)", o.Name, o.PID)
}

// FindOccupant returns the process holding a TCP listener on port.
// found is false when no listener is visible to this user.
func FindOccupant(ctx context.Context, port int) (occ Occupant, found bool, err error) {
	conns, err := net.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return Occupant{}, false, fmt.Errorf("failed to list connections: %w", err)
	}

	for _, c := range conns {
		if c.Status != "LISTEN" || c.Laddr.Port != uint32(port) || c.Pid == 0 {
			continue
		}
		occ = Occupant{PID: c.Pid}
		if proc, err := process.NewProcessWithContext(ctx, c.Pid); err == nil {
			if name, err := proc.NameWithContext(ctx); err == nil {
				occ.Name = name
			}
		}
		return occ, true, nil
	}
	return Occupant{}, false, nil
}

// DescribeOccupant is a best-effort one-line description of whoever holds
// port, or "" when that cannot be determined.
func DescribeOccupant(port int) string {
	ctx, cancel := context.WithTimeout(context.Background(), occupantLookupTimeout)
	defer cancel()

	occ, found, err := FindOccupant(ctx, port)
	if err != nil || !found {
		return ""
	}
	return "held by " + occ.String()
}
