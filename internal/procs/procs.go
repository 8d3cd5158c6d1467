// Package procs lists processes from procfs, ranks them and delivers signals.
package procs

import (
	"errors"
	"fmt"
	"os/user"
	"time"

	"github.com/prometheus/procfs"

	"github.com/fenilsonani/adminkit/internal/scanner"
)

// Process is a snapshot of one running process
type Process struct {
	PID        int
	User       string
	Command    string
	CPUPercent float64
	MemPercent float64
	RSS        uint64
}

// Source lists the processes on the host
type Source interface {
	Processes() ([]Process, error)
}

// ProcFS reads processes from a proc filesystem
type ProcFS struct {
	fs    procfs.FS
	now   func() time.Time
	users map[string]string
}

// NewProcFS opens the proc filesystem at mountPoint; empty means /proc
func NewProcFS(mountPoint string) (*ProcFS, error) {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", mountPoint, err)
	}
	return &ProcFS{fs: fs, now: time.Now, users: make(map[string]string)}, nil
}

// Processes returns every process that could be read. Processes that exit
// while being read are left out.
func (p *ProcFS) Processes() ([]Process, error) {
	all, err := p.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var memTotal uint64
	if mi, err := p.fs.Meminfo(); err == nil && mi.MemTotal != nil {
		memTotal = *mi.MemTotal * 1024
	}
	now := p.now()

	out := make([]Process, 0, len(all))
	for _, proc := range all {
		stat, err := proc.Stat()
		if err != nil {
			continue
		}

		entry := Process{
			PID:     stat.PID,
			Command: stat.Comm,
			RSS:     uint64(max(stat.ResidentMemory(), 0)),
		}

		if start, err := stat.StartTime(); err == nil {
			elapsed := now.Sub(time.Unix(0, int64(start*float64(time.Second)))).Seconds()
			if elapsed > 0 {
				entry.CPUPercent = 100 * stat.CPUTime() / elapsed
			}
		}
		if memTotal > 0 {
			entry.MemPercent = 100 * float64(entry.RSS) / float64(memTotal)
		}
		if status, err := proc.NewStatus(); err == nil {
			entry.User = p.userName(fmt.Sprint(status.UIDs[1]))
		}

		out = append(out, entry)
	}
	return out, nil
}

func (p *ProcFS) userName(uid string) string {
	if name, ok := p.users[uid]; ok {
		return name
	}
	name := uid
	if u, err := user.LookupId(uid); err == nil {
		name = u.Username
	}
	p.users[uid] = name
	return name
}

// Key selects the ranking metric
type Key func(Process) float64

// ByCPU ranks by CPU percentage
func ByCPU(p Process) float64 { return p.CPUPercent }

// ByMemory ranks by memory percentage
func ByMemory(p Process) float64 { return p.MemPercent }

// Top returns the n processes with the highest key, first seen winning ties
func Top(list []Process, n int, key Key) []Process {
	top := scanner.NewTopK[float64, Process](n)
	for _, p := range list {
		top.Offer(key(p), p)
	}
	return top.Items()
}

// Header is the column header for Rows
func Header(metric string) []string {
	return []string{"PID", "USER", "COMMAND", metric}
}

// Rows renders processes for a table, showing the given metric
func Rows(list []Process, key Key) [][]any {
	rows := make([][]any, len(list))
	for i, p := range list {
		rows[i] = []any{p.PID, p.User, p.Command, fmt.Sprintf("%.1f", key(p))}
	}
	return rows
}

// ErrNoProcess means no process matched a kill target
var ErrNoProcess = errors.New("no matching process")
