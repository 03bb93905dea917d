// Package mpi describes the binary event-log ABI exposed by the mpt2sas/mpt3sas
// control device: event codes, the fixed record layout and the full ring-buffer
// snapshot returned by the event report ioctl.
package mpi

import "fmt"

// EventKind is the MPI2 event code stored in each ring slot. Zero marks an empty slot.
type EventKind uint32

// MPI2/MPI2.5 event codes
const (
	EventNone                      EventKind = 0x0000
	EventLogData                   EventKind = 0x0001
	EventStateChange               EventKind = 0x0002
	EventHardResetReceived         EventKind = 0x0005
	EventEventChange               EventKind = 0x000A
	EventTaskSetFull               EventKind = 0x000E
	EventSASDeviceStatusChange     EventKind = 0x000F
	EventIROperationStatus         EventKind = 0x0014
	EventSASDiscovery              EventKind = 0x0016
	EventSASBroadcastPrimitive     EventKind = 0x0017
	EventSASInitDeviceStatusChange EventKind = 0x0018
	EventSASInitTableOverflow      EventKind = 0x0019
	EventSASTopologyChangeList     EventKind = 0x001C
	EventSASEnclDeviceStatusChange EventKind = 0x001D
	EventIRVolume                  EventKind = 0x001E
	EventIRPhysicalDisk            EventKind = 0x001F
	EventIRConfigurationChangeList EventKind = 0x0020
	EventLogEntryAdded             EventKind = 0x0021
	EventSASPhyCounter             EventKind = 0x0022
	EventGPIOInterrupt             EventKind = 0x0023
	EventHostBasedDiscoveryPhy     EventKind = 0x0024
	EventSASQuiesce                EventKind = 0x0025
	EventSASNotifyPrimitive        EventKind = 0x0026
	EventTempThreshold             EventKind = 0x0027
	EventHostMessage               EventKind = 0x0028
	EventPowerPerformanceChange    EventKind = 0x0029
	EventActiveCableException      EventKind = 0x0034
)

// ControllerType distinguishes the two driver generations sharing this ABI.
type ControllerType int

const (
	MPT2SAS ControllerType = iota
	MPT3SAS
)

func (t ControllerType) String() string {
	switch t {
	case MPT2SAS:
		return "mpt2sas"
	case MPT3SAS:
		return "mpt3sas"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Controller identifies one IOC behind the control device. ID is the value the
// driver expects in the ioctl header's ioc_number.
type Controller struct {
	ID   int
	Type ControllerType
}

func (c Controller) String() string {
	return fmt.Sprintf("ioc%d(%s)", c.ID, c.Type)
}
