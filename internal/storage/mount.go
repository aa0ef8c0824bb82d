// Package storage manages attachment of the dataset block device.
//
// The workbench keeps its image dataset on a dedicated block device that is
// not mounted at boot. Before the container starts, the device has to be
// attached at a known mountpoint so compose can bind-mount the dataset
// directory. This package checks the kernel mount table and issues the
// mount when needed; it never detaches the device.
package storage

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/riffle-ml/riffle/internal/logger"
)

// Manager abstracts the attach subsystem so the bootstrap sequence can be
// tested without touching real devices.
type Manager interface {
	// IsAttached reports whether the device is currently mounted.
	IsAttached(ctx context.Context, device string) (bool, error)

	// Attach mounts the device at the configured mountpoint.
	Attach(ctx context.Context, device string) error
}

// mountsPath is the kernel mount table consulted by IsAttached.
const mountsPath = "/proc/self/mounts"

// MountManager attaches block devices using the system mount command.
type MountManager struct {
	// Mountpoint is the directory devices are mounted at.
	Mountpoint string

	// mounts allows tests to substitute a fake mount table.
	mounts string
}

// NewMountManager creates a mount manager for the given mountpoint.
func NewMountManager(mountpoint string) *MountManager {
	return &MountManager{
		Mountpoint: mountpoint,
		mounts:     mountsPath,
	}
}

// IsAttached reports whether anything is mounted at the manager's
// mountpoint, or whether the device itself appears in the mount table.
//
// Matching on the mountpoint covers UUID= device specs, which show up in
// the mount table under their resolved /dev path.
func (m *MountManager) IsAttached(ctx context.Context, device string) (bool, error) {
	data, err := os.ReadFile(m.mounts)
	if err != nil {
		return false, fmt.Errorf("failed to read mount table: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if unescapeMountField(fields[0]) == device ||
			unescapeMountField(fields[1]) == m.Mountpoint {
			return true, nil
		}
	}

	return false, nil
}

// Attach creates the mountpoint if needed and mounts the device there.
//
// Failures of the mount command itself are returned with the command
// output attached; they are not classified or retried here.
func (m *MountManager) Attach(ctx context.Context, device string) error {
	if err := os.MkdirAll(m.Mountpoint, 0755); err != nil {
		return fmt.Errorf("failed to create mountpoint %s: %w", m.Mountpoint, err)
	}

	logger.Info("Mounting %s at %s", device, m.Mountpoint)

	cmd := exec.CommandContext(ctx, "mount", device, m.Mountpoint)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to mount %s: %w: %s",
			device, err, strings.TrimSpace(string(output)))
	}

	return nil
}

// unescapeMountField decodes the octal escapes the kernel uses for
// whitespace in mount table fields (e.g. "\040" for a space).
func unescapeMountField(field string) string {
	if !strings.Contains(field, "\\") {
		return field
	}

	var b strings.Builder
	for i := 0; i < len(field); i++ {
		if field[i] == '\\' && i+3 < len(field) {
			if code, err := strconv.ParseUint(field[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(code))
				i += 3
				continue
			}
		}
		b.WriteByte(field[i])
	}
	return b.String()
}
