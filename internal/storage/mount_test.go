package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeMountTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mounts")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write mount table: %v", err)
	}
	return path
}

func TestIsAttached(t *testing.T) {
	table := `/dev/sda1 / ext4 rw,relatime 0 0
/dev/sdb1 /mnt/riffle ext4 rw,relatime 0 0
tmpfs /run tmpfs rw,nosuid 0 0
/dev/sdc1 /mnt/odd\040name ext4 rw 0 0
`

	tests := []struct {
		name       string
		device     string
		mountpoint string
		want       bool
	}{
		{"device mounted at mountpoint", "/dev/sdb1", "/mnt/riffle", true},
		{"mountpoint busy with other device", "/dev/sdz9", "/mnt/riffle", true},
		{"device mounted elsewhere", "/dev/sda1", "/mnt/riffle", true},
		{"not mounted", "/dev/sdz9", "/mnt/elsewhere", false},
		{"escaped mountpoint", "/dev/sdz9", "/mnt/odd name", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMountManager(tt.mountpoint)
			m.mounts = writeMountTable(t, table)

			got, err := m.IsAttached(context.Background(), tt.device)
			if err != nil {
				t.Fatalf("IsAttached() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsAttached(%q) = %v, want %v", tt.device, got, tt.want)
			}
		})
	}
}

func TestIsAttachedMissingTable(t *testing.T) {
	m := NewMountManager("/mnt/riffle")
	m.mounts = filepath.Join(t.TempDir(), "does-not-exist")

	if _, err := m.IsAttached(context.Background(), "/dev/sdb1"); err == nil {
		t.Error("IsAttached() expected error for missing mount table")
	}
}

func TestUnescapeMountField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/mnt/plain", "/mnt/plain"},
		{`/mnt/odd\040name`, "/mnt/odd name"},
		{`/mnt/tab\011sep`, "/mnt/tab\tsep"},
		{`/mnt/trailing\`, `/mnt/trailing\`},
	}

	for _, tt := range tests {
		if got := unescapeMountField(tt.in); got != tt.want {
			t.Errorf("unescapeMountField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
