package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

type systemStatus struct {
	Hostname      string  `json:"hostname"`
	Platform      string  `json:"platform"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryTotal   uint64  `json:"memory_total_bytes"`
	MemoryUsed    uint64  `json:"memory_used_bytes"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskTotal     uint64  `json:"disk_total_bytes"`
	DiskUsed      uint64  `json:"disk_used_bytes"`
	DiskPercent   float64 `json:"disk_percent"`
}

func collectSystemStatus(ctx context.Context) (systemStatus, error) {
	var status systemStatus

	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return status, fmt.Errorf("failed to read host info: %w", err)
	}
	status.Hostname = info.Hostname
	status.Platform = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
	status.UptimeSeconds = info.Uptime

	// One-second sample for a meaningful load figure.
	percents, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil {
		return status, fmt.Errorf("failed to sample cpu: %w", err)
	}
	if len(percents) > 0 {
		status.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return status, fmt.Errorf("failed to read memory stats: %w", err)
	}
	status.MemoryTotal = vm.Total
	status.MemoryUsed = vm.Used
	status.MemoryPercent = vm.UsedPercent

	usage, err := disk.UsageWithContext(ctx, "/")
	if err != nil {
		return status, fmt.Errorf("failed to read disk usage: %w", err)
	}
	status.DiskTotal = usage.Total
	status.DiskUsed = usage.Used
	status.DiskPercent = usage.UsedPercent

	return status, nil
}

// RegisterSystemStatusTool adds a tool reporting the health of the host the
// agent itself runs on (not the jump host or any remote server).
func RegisterSystemStatusTool(reg *Registry) error {
	def := Definition{
		Tool: mcptypes.NewTool("get_system_status",
			mcptypes.WithDescription("Report CPU, memory, disk and uptime for the host the agent is running on."),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			status, err := collectSystemStatus(ctx)
			if err != nil {
				return "", &ExecutionError{Tool: "get_system_status", Cause: err}
			}

			payload, err := json.Marshal(status)
			if err != nil {
				return "", fmt.Errorf("failed to encode system status: %w", err)
			}
			return string(payload), nil
		},
	}
	return reg.Register(def)
}
