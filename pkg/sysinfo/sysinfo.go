// Package sysinfo captures the host snapshot recorded with every run
package sysinfo

import (
	"runtime"
	"time"

	"github.com/benchrunner/benchrunner/pkg/logger"
	"github.com/benchrunner/benchrunner/pkg/types"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// StartedAtLayout formats the run start time as "%F %T"
const StartedAtLayout = "2006-01-02 15:04:05"

// Provider supplies system and project information for a run
type Provider interface {
	SystemInfo(startedAt time.Time) types.SystemInfo
	ProjectInfo() types.ProjectInfo
}

// HostProvider reads the local machine through gopsutil
type HostProvider struct {
	project types.ProjectInfo
	logger  logger.Logger
}

// NewHostProvider creates a provider reporting project as the project info
func NewHostProvider(project types.ProjectInfo, log logger.Logger) *HostProvider {
	return &HostProvider{project: project, logger: log}
}

// SystemInfo implements Provider. Lookups that fail are logged and left
// empty; the thread count falls back to runtime.NumCPU.
func (p *HostProvider) SystemInfo(startedAt time.Time) types.SystemInfo {
	info := types.SystemInfo{
		Threads:   runtime.NumCPU(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		StartedAt: startedAt.Format(StartedAtLayout),
	}

	if threads, err := cpu.Counts(true); err != nil {
		p.logger.Debug("Failed to count logical CPUs", logger.WithError(err))
	} else if threads > 0 {
		info.Threads = threads
	}

	if cpus, err := cpu.Info(); err != nil {
		p.logger.Debug("Failed to read CPU info", logger.WithError(err))
	} else if len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}

	if h, err := host.Info(); err != nil {
		p.logger.Debug("Failed to read host info", logger.WithError(err))
	} else {
		info.Hostname = h.Hostname
		info.Platform = h.Platform
		info.PlatformVersion = h.PlatformVersion
		info.KernelVersion = h.KernelVersion
	}

	if v, err := mem.VirtualMemory(); err != nil {
		p.logger.Debug("Failed to read memory info", logger.WithError(err))
	} else {
		info.MemoryTotal = v.Total
	}

	return info
}

// ProjectInfo implements Provider
func (p *HostProvider) ProjectInfo() types.ProjectInfo {
	return p.project
}

// Static is a fixed Provider, useful to pin the thread count
type Static struct {
	Threads int
	Project types.ProjectInfo
}

// SystemInfo implements Provider
func (s Static) SystemInfo(startedAt time.Time) types.SystemInfo {
	return types.SystemInfo{
		Threads:   s.Threads,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		StartedAt: startedAt.Format(StartedAtLayout),
	}
}

// ProjectInfo implements Provider
func (s Static) ProjectInfo() types.ProjectInfo {
	return s.Project
}

// WithThreads overrides the thread count reported by another provider
type WithThreads struct {
	Provider
	Threads int
}

// SystemInfo implements Provider
func (w WithThreads) SystemInfo(startedAt time.Time) types.SystemInfo {
	info := w.Provider.SystemInfo(startedAt)
	if w.Threads > 0 {
		info.Threads = w.Threads
	}
	return info
}
