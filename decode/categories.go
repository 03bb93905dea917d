package decode

import "strconv"

// Per-category field layouts. Offsets are relative to the start of the event
// data block and follow the MPI2 event data structures.

func sasDeviceStatusChange(p payload) []Field {
	rc := p.u8(2)
	return []Field{
		xw("tag", p.u16(0), 4),
		u("rc", rc).with(sasDeviceReasons.lookup(rc)),
		u("port", p.u8(3)),
		xu("asc", p.u8(4), 2),
		xu("ascq", p.u8(5), 2),
		xw("handle", p.u16(6), 4),
		u("reserved2", p.u32(8)),
		x("SASAddress", p.u64(12)),
	}
}

const logEntryDataLength = 0x1C

func logEntryAdded(p payload) []Field {
	return []Field{
		u("timestamp", p.u64(0)),
		u("reserved1", p.u32(8)),
		u("seq", p.u16(12)),
		u("entry_qualifier", p.u16(14)),
		u("vp_id", p.u8(16)),
		u("vf_id", p.u8(17)),
		u("reserved2", p.u16(18)),
		{Key: "log_data", Value: hexBlob(p.slice(20, logEntryDataLength))},
	}
}

func gpioInterrupt(p payload) []Field {
	return []Field{
		u("gpionum", p.u8(0)),
		u("reserved1", p.u8(1)),
		u("reserved2", p.u16(2)),
	}
}

func temperatureThreshold(p payload) []Field {
	status := p.u16(0)
	return []Field{
		xw("status", status, 4).with(temperatureStatus.render(status)),
		u("sensornum", p.u8(2)),
		u("current_temp", p.u16(4)),
		u("reserved1", p.u8(3)),
		u("reserved2", p.u16(6)),
		u("reserved3", p.u32(8)),
		u("reserved4", p.u32(12)),
	}
}

func hardResetReceived(p payload) []Field {
	return []Field{
		u("port", p.u8(1)),
		u("reserved1", p.u8(0)),
		u("reserved2", p.u16(2)),
	}
}

func taskSetFull(p payload) []Field {
	return []Field{
		x("dev_handle", p.u16(0)),
		u("current_depth", p.u16(2)),
	}
}

func irOperationStatus(p payload) []Field {
	op := p.u8(4)
	return []Field{
		x("vol_dev_handle", p.u16(0)),
		u("raid_op", op).with(raidOperations.lookup(op)),
		u("percent", p.u8(5)),
		u("elapsed_sec", p.u32(8)),
		u("reserved1", p.u16(2)),
		u("reserved2", p.u16(6)),
	}
}

func irVolume(p payload) []Field {
	rc := p.u8(2)
	return []Field{
		x("vol_dev_handle", p.u16(0)),
		u("reason", rc).with(irChangeReasons.lookup(rc)),
		u("new_value", p.u32(4)),
		u("prev_value", p.u32(8)),
		u("reserved1", p.u8(3)),
	}
}

func irPhysicalDisk(p payload) []Field {
	rc := p.u8(2)
	return []Field{
		u("reason", rc).with(irChangeReasons.lookup(rc)),
		u("phys_disk_num", p.u8(3)),
		x("phys_disk_dev_handle", p.u16(4)),
		u("slot", p.u16(8)),
		u("enclosure_handle", p.u16(10)),
		u("new_value", p.u32(12)),
		u("prev_value", p.u32(16)),
		u("reserved1", p.u16(0)),
		u("reserved2", p.u16(6)),
	}
}

func irConfigChangeList(p payload) []Field {
	return []Field{
		u("num_elements", p.u8(0)),
		u("config_num", p.u8(3)),
		x("flags", p.u32(4)),
		u("reserved1", p.u8(1)),
		u("reserved2", p.u8(2)),
	}
}

func irConfigElement(p payload) []Field {
	ef := p.u16(0)
	rc := p.u8(4)
	return []Field{
		x("flags", ef).with(configElementTypes.lookup(ef & configElementTypeMask)),
		x("vol_dev_handle", p.u16(2)),
		u("reason", rc).with(configChangeReasons.lookup(rc)),
		u("phys_disk_num", p.u8(5)),
		x("phys_disk_dev_handle", p.u16(6)),
	}
}

func sasDiscovery(p payload) []Field {
	fl := p.u8(0)
	rc := p.u8(1)
	status := p.u32(4)
	return []Field{
		xw("flags", fl, 2).with(discoveryFlags.render(fl)),
		x("reason", rc).with(discoveryReasons.lookup(rc)),
		x("physical_port", p.u8(2)),
		x("discovery_status", status).with(discoveryStatus.render(status)),
		x("reserved1", p.u8(3)),
	}
}

func sasBroadcastPrimitive(p payload) []Field {
	prim := p.u8(3)
	return []Field{
		u("phy_num", p.u8(0)),
		u("port", p.u8(1)),
		u("port_width", p.u8(2)),
		u("primitive", prim).with(broadcastPrimitives.lookup(prim)),
	}
}

func sasNotifyPrimitive(p payload) []Field {
	prim := p.u8(3)
	return []Field{
		u("phy_num", p.u8(0)),
		u("port", p.u8(1)),
		u("primitive", prim).with(notifyPrimitives.lookup(prim)),
		x("reserved1", p.u8(2)),
	}
}

func sasInitDeviceStatusChange(p payload) []Field {
	rc := p.u8(0)
	reason := Field{Key: "reason", Value: strconv.Itoa(int(int8(rc)))}
	return []Field{
		reason.with(presenceReasons.lookup(rc)),
		u("phys_port", p.u8(1)),
		u("dev_handle", p.u16(2)),
		x("sas_address", p.u64(4)),
	}
}

func sasInitTableOverflow(p payload) []Field {
	return []Field{
		u("max_init", p.u16(0)),
		u("current_init", p.u16(2)),
		x("sas_address", p.u64(4)),
	}
}

func sasTopologyChangeList(p payload) []Field {
	es := p.u8(10)
	return []Field{
		x("enclosure_handle", p.u16(0)),
		x("expander_dev_handle", p.u16(2)),
		u("num_phys", p.u8(4)),
		u("num_entries", p.u8(8)),
		u("start_phy_num", p.u8(9)),
		u("exp_status", es).with(expanderStatus.lookup(es)),
		u("physical_port", p.u8(11)),
		u("reserved1", p.u8(5)),
		u("reserved2", p.u16(6)),
	}
}

func sasTopologyEntry(p payload) []Field {
	lr := p.u8(2)
	ps := p.u8(3)
	return []Field{
		x("attached_dev_handle", p.u16(0)),
		x("link_rate", lr).with(linkRate(lr)),
		u("phy_status", ps).with(phyStatus(ps)),
	}
}

func sasEnclosureStatusChange(p payload) []Field {
	rc := p.u8(2)
	return []Field{
		x("enclosure_handle", p.u16(0)),
		u("reason", rc).with(presenceReasons.lookup(rc)),
		x("enclosure_logical_id", p.u64(4)),
		u("num_slots", p.u16(12)),
		u("start_slot", p.u16(14)),
		x("phy_bits", p.u32(16)),
	}
}

func sasQuiesce(p payload) []Field {
	rc := p.u8(0)
	return []Field{
		u("reason", rc).with(quiesceReasons.lookup(rc)),
		u("reserved1", p.u8(1)),
		u("reserved2", p.u16(2)),
		u("reserved3", p.u32(4)),
	}
}

func sasPhyCounter(p payload) []Field {
	code := p.u8(12)
	ct := p.u8(20)
	tu := p.u8(22)
	tf := p.u16(28)
	return []Field{
		u("timestamp", p.u64(0)),
		u("phy_event_code", code).with(phyEventCodes.lookup(code)),
		u("phy_num", p.u8(13)),
		x("phy_event_info", p.u32(16)),
		u("counter_type", ct).with(counterTypes.lookup(ct)),
		u("threshold_window", p.u8(21)),
		u("time_units", tu).with(timeUnits.lookup(tu)),
		u("event_threshold", p.u32(24)),
		x("threshold_flags", tf).with(thresholdFlags.render(tf)),
		u("reserved1", p.u32(8)),
		u("reserved2", p.u16(14)),
		u("reserved3", p.u8(23)),
		u("reserved4", p.u16(30)),
	}
}

func powerPerformanceChange(p payload) []Field {
	cur := p.u8(0)
	prev := p.u8(1)
	return []Field{
		xu("current_power_mode", cur, 2).with(powerState(cur)),
		xu("prev_power_mode", prev, 2).with(powerState(prev)),
		xu("reserved1", p.u16(2), 4),
	}
}

func activeCableException(p payload) []Field {
	rc := p.u8(4)
	return []Field{
		u("power_requirement", p.u32(0)),
		u("reason", rc).with(cableReasons.lookup(rc)),
		u("receptacle_id", p.u8(5)),
		u("reserved1", p.u16(6)),
	}
}
