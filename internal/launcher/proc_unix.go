//go:build !windows

package launcher

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func sysProcAttr(newGroup bool) *syscall.SysProcAttr {
	if !newGroup {
		return nil
	}
	// New process group to manage children as a unit
	return &syscall.SysProcAttr{Setpgid: true}
}

func signal(p *os.Process, group bool, sig unix.Signal) error {
	if group {
		// Negative PID addresses the whole process group.
		err := unix.Kill(-p.Pid, sig)
		if errors.Is(err, unix.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
	return p.Signal(sig)
}

func interrupt(p *os.Process, group bool) error {
	return signal(p, group, unix.SIGTERM)
}

func kill(p *os.Process, group bool) error {
	return signal(p, group, unix.SIGKILL)
}
