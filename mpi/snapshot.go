package mpi

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Layout constants taken from mpt2sas_ctl.h / mpt3sas_ctl.h
const (
	// EventDataSize is the fixed payload capacity of one ring slot.
	EventDataSize = 192

	// EventRecordSize is event(4) + context(4) + data.
	EventRecordSize = 8 + EventDataSize

	// HeaderSize is sizeof(struct mpt2_ioctl_header).
	HeaderSize = 12

	// DefaultEventLogSize is MPT2SAS_CTL_EVENT_LOG_SIZE, the ring capacity.
	DefaultEventLogSize = 50

	// EventMaskWords is MPI2_EVENT_NOTIFY_EVENTMASK_WORDS.
	EventMaskWords = 4
)

// Header mirrors struct mpt2_ioctl_header.
type Header struct {
	IOCNumber   uint32
	PortNumber  uint32
	MaxDataSize uint32
}

// EventRecord mirrors struct MPT2_IOCTL_EVENTS: one slot of the circular log.
type EventRecord struct {
	Event   EventKind
	Context uint32
	Data    [EventDataSize]byte
}

// Empty reports whether the slot holds no event.
func (r *EventRecord) Empty() bool {
	return r.Event == EventNone
}

// Snapshot is one full read of the controller's event ring.
type Snapshot struct {
	Header  Header
	Records []EventRecord
}

// SnapshotSize returns the byte size of a snapshot holding n records.
func SnapshotSize(n int) int {
	return HeaderSize + n*EventRecordSize
}

// NewSnapshot allocates an empty snapshot with n slots, with the request header
// filled in for the given controller.
func NewSnapshot(ctrl Controller, n int) *Snapshot {
	return &Snapshot{
		Header: Header{
			IOCNumber:   uint32(ctrl.ID),
			PortNumber:  0,
			MaxDataSize: uint32(SnapshotSize(n)),
		},
		Records: make([]EventRecord, n),
	}
}

// Size returns the encoded size of the snapshot.
func (s *Snapshot) Size() int {
	return SnapshotSize(len(s.Records))
}

// MarshalBinary encodes the snapshot in the little-endian layout the driver uses.
func (s *Snapshot) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, s.Size()))
	if err := binary.Write(buf, binary.LittleEndian, &s.Header); err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, s.Records); err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes data into the snapshot. The number of records is
// derived from len(data), which must be a whole number of records past the header.
func (s *Snapshot) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize || (len(data)-HeaderSize)%EventRecordSize != 0 {
		return fmt.Errorf("invalid snapshot size %d", len(data))
	}

	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.LittleEndian, &s.Header); err != nil {
		return fmt.Errorf("failed to decode header: %w", err)
	}

	records := make([]EventRecord, (len(data)-HeaderSize)/EventRecordSize)
	if err := binary.Read(r, binary.LittleEndian, records); err != nil {
		return fmt.Errorf("failed to decode records: %w", err)
	}
	s.Records = records
	return nil
}

// EventEnable mirrors struct mpt2_ioctl_eventenable.
type EventEnable struct {
	Header     Header
	EventTypes [EventMaskWords]uint32
}

// EventEnableSize is sizeof(struct mpt2_ioctl_eventenable).
const EventEnableSize = HeaderSize + EventMaskWords*4

// NewEventEnable builds an enable request that unmasks every event class.
func NewEventEnable(ctrl Controller) *EventEnable {
	req := &EventEnable{
		Header: Header{IOCNumber: uint32(ctrl.ID)},
	}
	for i := range req.EventTypes {
		req.EventTypes[i] = 0xFFFFFFFF
	}
	return req
}

// MarshalBinary encodes the enable request.
func (e *EventEnable) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, EventEnableSize))
	if err := binary.Write(buf, binary.LittleEndian, e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
