package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jnesss/mptevents/mpi"
)

func writeHost(t *testing.T, sysDir, host string, attrs map[string]string) {
	t.Helper()
	dir := filepath.Join(sysDir, host)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, value := range attrs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(value), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFindControllers(t *testing.T) {
	sysDir := t.TempDir()
	writeHost(t, sysDir, "host0", map[string]string{"proc_name": "mpt3sas\n", "unique_id": "4\n"})
	writeHost(t, sysDir, "host1", map[string]string{"proc_name": "ahci\n", "unique_id": "1\n"})
	writeHost(t, sysDir, "host2", map[string]string{"proc_name": "mpt2sas\n", "unique_id": "0\n"})
	writeHost(t, sysDir, "host3", map[string]string{"proc_name": "mpt3sas\n"})
	writeHost(t, sysDir, "host4", map[string]string{"proc_name": "mpt3sas\n", "unique_id": "x\n"})

	got, err := FindControllers(sysDir)
	if err != nil {
		t.Fatalf("FindControllers: %v", err)
	}
	want := []mpi.Controller{
		{ID: 0, Type: mpi.MPT2SAS},
		{ID: 4, Type: mpi.MPT3SAS},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("controller %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFindControllersMissingDir(t *testing.T) {
	if _, err := FindControllers(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing sysfs directory")
	}
}

func TestIsControlNode(t *testing.T) {
	tests := []struct {
		major, minor uint32
		want         bool
	}{
		{10, 221, true},
		{10, 222, true},
		{10, 223, false},
		{8, 221, false},
	}
	for _, tt := range tests {
		if got := IsControlNode(tt.major, tt.minor); got != tt.want {
			t.Errorf("IsControlNode(%d, %d) = %v", tt.major, tt.minor, got)
		}
	}
}

func TestValidDevicePath(t *testing.T) {
	for path, want := range map[string]bool{
		"/dev/mpt2ctl":  true,
		"/dev/mpt3ctl":  true,
		"/dev/mpt3ctl0": true,
		"/dev/sda":      false,
		"mpt3ctl":       false,
	} {
		if got := ValidDevicePath(path); got != want {
			t.Errorf("ValidDevicePath(%q) = %v, want %v", path, got, want)
		}
	}
}
