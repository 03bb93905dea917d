package mpi

// Linux _IOC encoding for the generic (x86/arm) layout.
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocWrite = 1
	iocRead  = 2
)

// magicNumber is MPT2_MAGIC_NUMBER / MPT3_MAGIC_NUMBER ('L').
const magicNumber = 'L'

// eventReportSize is sizeof(struct mpt2_ioctl_eventreport): header plus one record.
const eventReportSize = HeaderSize + EventRecordSize

func iowr(typ, nr, size uintptr) uintptr {
	return (iocRead|iocWrite)<<iocDirShift | size<<iocSizeShift | typ<<iocTypeShift | nr<<iocNRShift
}

// Request numbers. mpt2sas and mpt3sas use the same magic, numbers and struct
// sizes, so one value serves both controller types.
var (
	IoctlEventEnable = iowr(magicNumber, 8, EventEnableSize)
	IoctlEventReport = iowr(magicNumber, 9, eventReportSize)
)

// EventEnableRequest returns the ioctl number for enabling events on t.
func EventEnableRequest(t ControllerType) uintptr {
	return IoctlEventEnable
}

// EventReportRequest returns the ioctl number for reading the event log of t.
func EventReportRequest(t ControllerType) uintptr {
	return IoctlEventReport
}
