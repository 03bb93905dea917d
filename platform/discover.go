// Package platform talks to the mpt2sas/mpt3sas control device: discovery of
// the control node and its controllers, the event ioctls and the readiness
// wait.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jnesss/mptevents/mpi"
)

// Default locations scanned during auto-detection.
const (
	DefaultDevDir  = "/dev"
	DefaultSysDir  = "/sys/class/scsi_host"
	MPT2DevicePath = "/dev/mpt2ctl"
	MPT3DevicePath = "/dev/mpt3ctl"
)

// Misc character device numbers of the control nodes.
const (
	miscMajor = 10
	mpt2Minor = 221
	mpt3Minor = 222
)

var (
	ErrNoControlDevice        = errors.New("no mpt control device found")
	ErrAmbiguousControlDevice = errors.New("more than one mpt control device found, cannot auto-select one")
)

// IsControlNode reports whether a device number belongs to an mpt control node.
func IsControlNode(major, minor uint32) bool {
	return major == miscMajor && (minor == mpt2Minor || minor == mpt3Minor)
}

// FindControllers lists the mpt2sas/mpt3sas SCSI hosts under sysDir, ordered
// by unique_id. The unique_id is the ioc_number the driver expects.
func FindControllers(sysDir string) ([]mpi.Controller, error) {
	entries, err := os.ReadDir(sysDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", sysDir, err)
	}

	var ctrls []mpi.Controller
	for _, entry := range entries {
		host := filepath.Join(sysDir, entry.Name())

		procName, err := readAttr(host, "proc_name")
		if err != nil {
			continue
		}
		var typ mpi.ControllerType
		switch {
		case strings.HasPrefix(procName, "mpt3sas"):
			typ = mpi.MPT3SAS
		case strings.HasPrefix(procName, "mpt2sas"):
			typ = mpi.MPT2SAS
		default:
			continue
		}

		uid, err := readAttr(host, "unique_id")
		if err != nil {
			continue
		}
		id, err := strconv.Atoi(uid)
		if err != nil {
			continue
		}
		ctrls = append(ctrls, mpi.Controller{ID: id, Type: typ})
	}

	sort.Slice(ctrls, func(i, j int) bool { return ctrls[i].ID < ctrls[j].ID })
	return ctrls, nil
}

// ValidDevicePath reports whether path names an mpt2 or mpt3 control node.
func ValidDevicePath(path string) bool {
	return strings.HasPrefix(path, MPT2DevicePath) || strings.HasPrefix(path, MPT3DevicePath)
}

func readAttr(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
