package process

import (
	"fmt"
	"strings"

	"github.com/prometheus/procfs"
)

// ProcTable reads live processes from /proc.
type ProcTable struct {
	mountPoint string
}

// NewProcTable creates a table over the default /proc mount.
func NewProcTable() *ProcTable {
	return &ProcTable{mountPoint: procfs.DefaultMountPoint}
}

// NewProcTableAt creates a table over a different procfs mount.
func NewProcTableAt(mountPoint string) *ProcTable {
	return &ProcTable{mountPoint: mountPoint}
}

// Processes lists processes with a readable, non-empty command line.
// Kernel threads and processes that exit mid-scan are skipped.
func (t *ProcTable) Processes() ([]Info, error) {
	fs, err := procfs.NewFS(t.mountPoint)
	if err != nil {
		return nil, fmt.Errorf("open procfs: %w", err)
	}

	procs, err := fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	out := make([]Info, 0, len(procs))
	for _, p := range procs {
		args, err := p.CmdLine()
		if err != nil || len(args) == 0 {
			continue
		}
		out = append(out, Info{PID: p.PID, CmdLine: strings.Join(args, " ")})
	}
	return out, nil
}
