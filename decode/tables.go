package decode

import "strings"

// codes maps a numeric field to its symbolic name. Missing values render UNKNOWN.
type codes map[uint64]string

func (c codes) lookup(v uint64) string {
	if name, ok := c[v]; ok {
		return name
	}
	return "UNKNOWN"
}

type flag struct {
	mask uint64
	name string
}

// flags is an ordered bit table; render lists the set bits in table order.
type flags []flag

func (fs flags) render(v uint64) string {
	var names []string
	for _, f := range fs {
		if v&f.mask != 0 {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, ",")
}

var sasDeviceReasons = codes{
	0x05: "SMART_DATA",
	0x07: "UNSUPPORTED",
	0x08: "INTERNAL_DEVICE_RESET",
	0x09: "TASK_ABORT_INTERNAL",
	0x0A: "ABORT_TASK_SET_INTERNAL",
	0x0B: "CLEAR_TASK_SET_INTERNAL",
	0x0C: "QUERY_TASK_INTERNAL",
	0x0D: "ASYNC_NOTIFICATION",
	0x0E: "COMPLETED_INTERNAL_DEV_RESET",
	0x0F: "COMPLETED_TASK_ABORT_INTERNAL",
	0x10: "SATA_INIT_FAILURE",
	0x11: "EXPANDER_REDUCED_FUNCTIONALITY",
	0x12: "COMPLETED_EXPANDER_REDUCED_FUNCTIONALITY",
}

var temperatureStatus = flags{
	{0x0008, "THRESHOLD3_EXCEEDED"},
	{0x0004, "THRESHOLD2_EXCEEDED"},
	{0x0002, "THRESHOLD1_EXCEEDED"},
	{0x0001, "THRESHOLD0_EXCEEDED"},
}

var raidOperations = codes{
	0x00: "RESYNC",
	0x01: "ONLINE_CAPACITY_EXPANSION",
	0x02: "CONSISTENCY_CHECK",
	0x03: "BACKGROUND_INIT",
	0x04: "MAKE_DATA_CONSISTENT",
}

// IR volume and IR physical disk share reason codes.
var irChangeReasons = codes{
	0x01: "SETTINGS_CHANGED",
	0x02: "STATUS_FLAGS_CHANGED",
	0x03: "STATE_CHANGED",
}

var configElementTypes = codes{
	0x0000: "VOLUME_ELEMENT",
	0x0001: "VOLPHYSDISK_ELEMENT",
	0x0002: "HOTSPARE_ELEMENT",
}

const configElementTypeMask = 0x000F

var configChangeReasons = codes{
	0x01: "ADDED",
	0x02: "REMOVED",
	0x03: "NO_CHANGE",
	0x04: "HIDE",
	0x05: "UNHIDE",
	0x06: "VOLUME_CREATED",
	0x07: "VOLUME_DELETED",
	0x08: "PD_CREATED",
	0x09: "PD_DELETED",
}

var discoveryFlags = flags{
	{0x01, "IN_PROGRESS"},
	{0x02, "DEVICE_CHANGE"},
}

var discoveryReasons = codes{
	0x01: "STARTED",
	0x02: "COMPLETED",
}

var discoveryStatus = flags{
	{0x80000000, "MAX_ENCLOSURES_EXCEED"},
	{0x40000000, "MAX_EXPANDERS_EXCEED"},
	{0x20000000, "MAX_DEVICES_EXCEED"},
	{0x10000000, "MAX_TOPO_PHYS_EXCEED"},
	{0x08000000, "DOWNSTREAM_INITIATOR"},
	{0x00008000, "MULTI_SUBTRACTIVE_SUBTRACTIVE"},
	{0x00004000, "EXP_MULTI_SUBTRACTIVE"},
	{0x00002000, "MULTI_PORT_DOMAIN"},
	{0x00001000, "TABLE_TO_SUBTRACTIVE_LINK"},
	{0x00000800, "UNSUPPORTED_DEVICE"},
	{0x00000400, "TABLE_LINK"},
	{0x00000200, "SUBTRACTIVE_LINK"},
	{0x00000100, "SMP_CRC_ERROR"},
	{0x00000080, "SMP_FUNCTION_FAILED"},
	{0x00000040, "INDEX_NOT_EXIST"},
	{0x00000020, "OUT_ROUTE_ENTRIES"},
	{0x00000010, "SMP_TIMEOUT"},
	{0x00000004, "MULTIPLE_PORTS"},
	{0x00000002, "UNADDRESSABLE_DEVICE"},
	{0x00000001, "LOOP_DETECTED"},
}

var broadcastPrimitives = codes{
	0x01: "CHANGE",
	0x02: "SES",
	0x03: "EXPANDER",
	0x04: "ASYNCHRONOUS_EVENT",
	0x05: "RESERVED3",
	0x06: "RESERVED4",
	0x07: "CHANGE0_RESERVED",
	0x08: "CHANGE1_RESERVED",
}

var notifyPrimitives = codes{
	0x01: "ENABLE_SPINUP",
	0x02: "POWER_LOSS_EXPECTED",
	0x03: "RESERVED1",
	0x04: "RESERVED2",
}

// Init device status, enclosure status. Both use ADDED / NOT_RESPONDING.
var presenceReasons = codes{
	0x01: "ADDED",
	0x02: "NOT_RESPONDING",
}

var expanderStatus = codes{
	0x00: "NO_EXPANDER",
	0x01: "ADDED",
	0x02: "NOT_RESPONDING",
	0x03: "RESPONDING",
	0x04: "DELAY_NOT_RESPONDING",
}

var linkRates = codes{
	0x00: "UNKNOWN_LINK_RATE",
	0x01: "PHY_DISABLED",
	0x02: "NEGOTIATION_FAILED",
	0x03: "SATA_OOB_COMPLETE",
	0x04: "PORT_SELECTOR",
	0x05: "SMP_RESET_IN_PROGRESS",
	0x06: "UNSUPPORTED_PHY",
	0x08: "RATE_1_5",
	0x09: "RATE_3_0",
	0x0A: "RATE_6_0",
	0x0B: "RATE_12_0",
}

var phyStatusFlags = flags{
	{0x80, "PHYSTATUS_VACANT"},
	{0x40, "UNKNOWN_40"},
	{0x20, "UNKNOWN_20"},
	{0x10, "PS_MULTIPLEX_CHANGE"},
}

var phyStatusReasons = codes{
	0x01: "TARG_ADDED",
	0x02: "TARG_NOT_RESPONDING",
	0x03: "PHY_CHANGED",
	0x04: "NO_CHANGE",
	0x05: "DELAY_NOT_RESPONDING",
}

// phyStatus renders the flag bits, if any, followed by the reason code from
// the low nibble.
func phyStatus(v uint64) string {
	reason := phyStatusReasons.lookup(v & 0x0F)
	if set := phyStatusFlags.render(v); set != "" {
		return set + "," + reason
	}
	return reason
}

// linkRate renders the previous (low nibble) and current (high nibble) rates.
func linkRate(v uint64) string {
	return "prev=" + linkRates.lookup(v&0x0F) + ",next=" + linkRates.lookup((v&0xF0)>>4)
}

var quiesceReasons = codes{
	0x01: "STARTED",
	0x02: "COMPLETED",
}

var phyEventCodes = codes{
	0x00: "NO_EVENT",
	0x01: "INVALID_DWORD",
	0x02: "RUNNING_DISPARITY_ERROR",
	0x03: "LOSS_DWORD_SYNC",
	0x04: "PHY_RESET_PROBLEM",
	0x05: "ELASTICITY_BUF_OVERFLOW",
	0x06: "RX_ERROR",
	0x20: "RX_ADDR_FRAME_ERROR",
	0x21: "TX_AC_OPEN_REJECT",
	0x22: "RX_AC_OPEN_REJECT",
	0x23: "TX_RC_OPEN_REJECT",
	0x24: "RX_RC_OPEN_REJECT",
	0x25: "RX_AIP_PARTIAL_WAITING_ON",
	0x26: "RX_AIP_CONNECT_WAITING_ON",
	0x27: "TX_BREAK",
	0x28: "RX_BREAK",
	0x29: "BREAK_TIMEOUT",
	0x2A: "CONNECTION",
	0x2B: "PEAKTX_PATHWAY_BLOCKED",
	0x2C: "PEAKTX_ARB_WAIT_TIME",
	0x2D: "PEAK_ARB_WAIT_TIME",
	0x2E: "PEAK_CONNECT_TIME",
	0x40: "TX_SSP_FRAMES",
	0x41: "RX_SSP_FRAMES",
	0x42: "TX_SSP_ERROR_FRAMES",
	0x43: "RX_SSP_ERROR_FRAMES",
	0x44: "TX_CREDIT_BLOCKED",
	0x45: "RX_CREDIT_BLOCKED",
	0x50: "TX_SATA_FRAMES",
	0x51: "RX_SATA_FRAMES",
	0x52: "SATA_OVERFLOW",
	0x60: "TX_SMP_FRAMES",
	0x61: "RX_SMP_FRAMES",
	0x63: "RX_SMP_ERROR_FRAMES",
	0xD0: "HOTPLUG_TIMEOUT",
	0xD1: "MISALIGNED_MUX_PRIMITIVE",
	0xD2: "RX_AIP",
}

var counterTypes = codes{
	0x00: "WRAPPING",
	0x01: "SATURATING",
	0x02: "PEAK_VALUE",
}

var timeUnits = codes{
	0x00: "10_MICROSECONDS",
	0x01: "100_MICROSECONDS",
	0x02: "1_MILLISECOND",
	0x03: "10_MILLISECONDS",
}

var thresholdFlags = flags{
	{0x0002, "PHY_RESET"},
	{0x0001, "EVENT_NOTIFY"},
}

var powerInit = codes{
	0x00: "INIT_UNAVAILABLE",
	0x40: "INIT_HOST",
	0x80: "INIT_IO_UNIT",
	0xC0: "INIT_PCIE_DPA",
}

var powerMode = codes{
	0x00: "MODE_UNAVAILABLE",
	0x01: "MODE_UNKNOWN",
	0x04: "MODE_FULL_POWER",
	0x05: "MODE_REDUCED_POWER",
	0x06: "MODE_STANDBY",
}

func powerState(v uint64) string {
	return powerInit.lookup(v&0xC0) + " " + powerMode.lookup(v&0x07)
}

var cableReasons = codes{
	0x00: "INSUFFICIENT_POWER",
	0x01: "PRESENT",
	0x02: "DEGRADED",
}
