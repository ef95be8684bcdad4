//go:build windows

package launcher

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

func sysProcAttr(newGroup bool) *syscall.SysProcAttr {
	if !newGroup {
		return nil
	}
	return &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
}

// Windows has no SIGTERM for arbitrary processes; report that so Terminate
// falls through to Kill.
func interrupt(*os.Process, bool) error {
	return errors.New("graceful termination is not supported on windows")
}

func kill(p *os.Process, _ bool) error {
	return p.Kill()
}
