package decode

import "github.com/jnesss/mptevents/mpi"

// UnknownName is the category used for event codes with no table entry.
const UnknownName = "Unknown Event"

// list describes the trailing array of a compound record.
type list struct {
	name   string
	offset int
	size   int
	count  func(p payload) int
	fields func(p payload) []Field
}

type category struct {
	name   string
	fields func(p payload) []Field // nil renders the payload as hex
	list   *list
}

var categories = map[mpi.EventKind]category{
	mpi.EventLogData:                   {name: "Log Data"},
	mpi.EventStateChange:               {name: "State Change"},
	mpi.EventEventChange:               {name: "Event Change"},
	mpi.EventHostBasedDiscoveryPhy:     {name: "Host Based Discovery Phy"},
	mpi.EventHostMessage:               {name: "Host Message"},
	mpi.EventSASDeviceStatusChange:     {name: "SAS Device Status Change", fields: sasDeviceStatusChange},
	mpi.EventLogEntryAdded:             {name: "Log Entry Added", fields: logEntryAdded},
	mpi.EventGPIOInterrupt:             {name: "GPIO Interrupt", fields: gpioInterrupt},
	mpi.EventTempThreshold:             {name: "Temperature Threshold", fields: temperatureThreshold},
	mpi.EventHardResetReceived:         {name: "Hard Reset Received", fields: hardResetReceived},
	mpi.EventTaskSetFull:               {name: "Task Set Full", fields: taskSetFull},
	mpi.EventIROperationStatus:         {name: "IR Operation Status", fields: irOperationStatus},
	mpi.EventIRVolume:                  {name: "IR Volume", fields: irVolume},
	mpi.EventIRPhysicalDisk:            {name: "IR Physical Disk", fields: irPhysicalDisk},
	mpi.EventSASDiscovery:              {name: "SAS Discovery", fields: sasDiscovery},
	mpi.EventSASBroadcastPrimitive:     {name: "SAS Broadcast Primitive", fields: sasBroadcastPrimitive},
	mpi.EventSASNotifyPrimitive:        {name: "SAS Notify Primitive", fields: sasNotifyPrimitive},
	mpi.EventSASInitDeviceStatusChange: {name: "SAS Init Dev Status Change", fields: sasInitDeviceStatusChange},
	mpi.EventSASInitTableOverflow:      {name: "SAS Init Table Overflow", fields: sasInitTableOverflow},
	mpi.EventSASEnclDeviceStatusChange: {name: "SAS Enclosure Device Status Change", fields: sasEnclosureStatusChange},
	mpi.EventSASQuiesce:                {name: "SAS Quiesce", fields: sasQuiesce},
	mpi.EventSASPhyCounter:             {name: "SAS Phy Counter", fields: sasPhyCounter},
	mpi.EventPowerPerformanceChange:    {name: "Power Performance Change", fields: powerPerformanceChange},
	mpi.EventActiveCableException:      {name: "Active Cable Exception", fields: activeCableException},
	mpi.EventIRConfigurationChangeList: {
		name:   "IR Config Change List",
		fields: irConfigChangeList,
		list: &list{
			name:   "IR Config Change List Element",
			offset: 8,
			size:   8,
			count:  func(p payload) int { return int(p.u8(0)) },
			fields: irConfigElement,
		},
	},
	mpi.EventSASTopologyChangeList: {
		name:   "SAS Topology Change List",
		fields: sasTopologyChangeList,
		list: &list{
			name:   "SAS Topology Change List Entry",
			offset: 12,
			size:   4,
			count:  func(p payload) int { return int(p.u8(8)) },
			fields: sasTopologyEntry,
		},
	},
}

// Name returns the category name for kind.
func Name(kind mpi.EventKind) string {
	if c, ok := categories[kind]; ok {
		return c.name
	}
	return UnknownName
}

// Decode describes one ring record.
func Decode(rec mpi.EventRecord) Description {
	return DecodePayload(rec.Event, rec.Context, rec.Data[:])
}

// DecodePayload describes an event from its parts. data may be shorter than a
// full record payload; missing bytes read as zero.
func DecodePayload(kind mpi.EventKind, context uint32, data []byte) Description {
	p := payload(data)
	d := Description{Kind: kind, Context: context}

	c, ok := categories[kind]
	if !ok {
		c = category{name: UnknownName}
	}
	d.Name = c.name

	if c.fields == nil {
		d.Fields = []Field{
			u("event", uint64(kind)),
			u("context", uint64(context)),
			{Key: "buf", Value: hexDump(p)},
		}
		return d
	}

	d.Fields = append([]Field{u("context", uint64(context))}, c.fields(p)...)
	if c.list != nil {
		d.Elements = c.list.decode(p)
	}
	return d
}

// decode walks the trailing array. The declared count is clipped to what fits
// in the payload so a corrupt count never reads outside the record.
func (l *list) decode(p payload) []Element {
	total := l.count(p)
	if capacity := (len(p) - l.offset) / l.size; total > capacity {
		total = capacity
	}
	if total <= 0 {
		return nil
	}
	elements := make([]Element, 0, total)
	for i := 0; i < total; i++ {
		off := l.offset + i*l.size
		elements = append(elements, Element{
			Name:   l.name,
			Index:  i + 1,
			Total:  total,
			Fields: l.fields(p.slice(off, l.size)),
		})
	}
	return elements
}
