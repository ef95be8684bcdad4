package launcher

import (
	"time"

	"github.com/harshul/jumpstart/internal/logging"
	"github.com/shirou/gopsutil/v3/process"
)

// descendants snapshots every process below pid. It is taken before the
// service is signalled: once npm exits its node child is reparented and can
// no longer be found from the service's PID.
func descendants(pid int) []*process.Process {
	root, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil
	}
	var tree []*process.Process
	var walk func(p *process.Process)
	walk = func(p *process.Process) {
		children, err := p.Children()
		if err != nil {
			return
		}
		for _, c := range children {
			tree = append(tree, c)
			walk(c)
		}
	}
	walk(root)
	return tree
}

func running(tree []*process.Process) []*process.Process {
	var alive []*process.Process
	for _, p := range tree {
		if ok, err := p.IsRunning(); err == nil && ok {
			alive = append(alive, p)
		}
	}
	return alive
}

func signalTree(service string, tree []*process.Process, stop func(*process.Process) error) {
	for _, p := range tree {
		if err := stop(p); err != nil {
			logging.Debug("Launcher", "%s: signalling descendant %d failed: %v", service, p.Pid, err)
		}
	}
}

// awaitTree polls until no process in tree is running or deadline passes.
func awaitTree(tree []*process.Process, deadline time.Time) {
	for len(running(tree)) > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
}
