package port

// FaultClass is the unified fault taxonomy spec.md §4.F maps hardware
// fault sources onto, used both for diagnostic logging and for translating
// a process thread's fault into the signal its waiting parent observes.
type FaultClass uint8

const (
	FaultNone FaultClass = iota
	FaultUnaligned
	FaultDivByZero
	FaultCoprocessor
	FaultInvalidInstruction
	FaultInvalidExcReturn
	FaultEPSRAccess
	FaultDataAccessOutOfRegion
	FaultDataAccessOutOfRegionNoAddr
	FaultInstructionFetchOutOfRegion
	FaultStackOverflow
	FaultBusError
	FaultUnknownHard
)

func (c FaultClass) String() string {
	switch c {
	case FaultNone:
		return "none"
	case FaultUnaligned:
		return "unaligned-access"
	case FaultDivByZero:
		return "divide-by-zero"
	case FaultCoprocessor:
		return "coprocessor-access"
	case FaultInvalidInstruction:
		return "invalid-instruction"
	case FaultInvalidExcReturn:
		return "invalid-exception-return"
	case FaultEPSRAccess:
		return "epsr-access"
	case FaultDataAccessOutOfRegion:
		return "data-access-out-of-region"
	case FaultDataAccessOutOfRegionNoAddr:
		return "data-access-out-of-region-no-addr"
	case FaultInstructionFetchOutOfRegion:
		return "instruction-fetch-out-of-region"
	case FaultStackOverflow:
		return "stack-overflow"
	case FaultBusError:
		return "bus-error"
	default:
		return "unknown-hard-fault"
	}
}

// FaultInfo is the raw information a real UsageFault/MemManage/BusFault
// handler would read out of the CFSR/MMFAR/BFAR registers before this
// package classifies it.
type FaultInfo struct {
	Unaligned      bool
	DivByZero      bool
	NoCoprocessor  bool
	InvalidInstr   bool
	InvalidExcRet  bool
	EPSRAccess     bool
	MMHasAddr      bool
	MMFault        bool
	InstrFetchMM   bool
	StackOverflow  bool
	BusFault       bool
}

// Decode maps a FaultInfo onto exactly one FaultClass, in the same
// precedence order the register bits are checked in on real hardware:
// a stack overflow first, then the most specific UsageFault causes, then
// MemManage, then BusFault, falling back to an unclassified hard fault.
func Decode(info FaultInfo) FaultClass {
	switch {
	case info.StackOverflow:
		return FaultStackOverflow
	case info.Unaligned:
		return FaultUnaligned
	case info.DivByZero:
		return FaultDivByZero
	case info.NoCoprocessor:
		return FaultCoprocessor
	case info.InvalidInstr:
		return FaultInvalidInstruction
	case info.InvalidExcRet:
		return FaultInvalidExcReturn
	case info.EPSRAccess:
		return FaultEPSRAccess
	case info.InstrFetchMM:
		return FaultInstructionFetchOutOfRegion
	case info.MMFault && info.MMHasAddr:
		return FaultDataAccessOutOfRegion
	case info.MMFault:
		return FaultDataAccessOutOfRegionNoAddr
	case info.BusFault:
		return FaultBusError
	default:
		return FaultUnknownHard
	}
}
