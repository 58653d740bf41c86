// Package liveness implements the (pid, cmdline, start-time) triple used to
// tell a genuinely still-running apply process from a stale or reused pid
// before honoring a cancel request (spec §4.4, §5, GLOSSARY "Liveness
// triple"). Grounded on github.com/shirou/gopsutil/v4/process, pulled into
// this pack via ipiton-alert-history-service's indirect testcontainers
// dependency and wired here directly.
package liveness

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
)

// Capture snapshots the current process's liveness triple, to be persisted
// alongside an ApplyRecord at dispatch time.
func Capture() (model.ProcessInfo, error) {
	pid := int32(os.Getpid())
	p, err := process.NewProcess(pid)
	if err != nil {
		return model.ProcessInfo{}, err
	}
	cmdline, err := p.Cmdline()
	if err != nil {
		return model.ProcessInfo{}, err
	}
	createMs, err := p.CreateTime()
	if err != nil {
		return model.ProcessInfo{}, err
	}
	return model.ProcessInfo{
		PID:              pid,
		ExecutionCommand: cmdline,
		ProcessStartedAt: time.UnixMilli(createMs).UTC(),
	}, nil
}

// Alive reports whether the process recorded in info is still running with
// the exact same cmdline and start time. Any discrepancy — the pid no
// longer exists, the cmdline changed, the start time differs (reused pid,
// zombified process) — counts as not alive (spec §4.4).
func Alive(info model.ProcessInfo) bool {
	if info.PID == 0 {
		return false
	}
	p, err := process.NewProcess(info.PID)
	if err != nil {
		return false
	}
	cmdline, err := p.Cmdline()
	if err != nil || cmdline != info.ExecutionCommand {
		return false
	}
	createMs, err := p.CreateTime()
	if err != nil {
		return false
	}
	observed := time.UnixMilli(createMs).UTC()
	return observed.Equal(info.ProcessStartedAt.Truncate(time.Millisecond))
}
