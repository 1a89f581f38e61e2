package insts

// CSR addresses. The top four bits of the 12-bit address encode access:
// bits 10-11 are 0b11 for read-only registers, bits 8-9 hold the lowest
// privilege level allowed to access the register.
const (
	CSRUStatus  = 0x000
	CSRUIE      = 0x004
	CSRUTVec    = 0x005
	CSRUScratch = 0x040
	CSRUEPC     = 0x041
	CSRUCause   = 0x042
	CSRUTVal    = 0x043
	CSRUIP      = 0x044

	CSRCycle    = 0xC00
	CSRTime     = 0xC01
	CSRInstRet  = 0xC02
	CSRCycleH   = 0xC80
	CSRTimeH    = 0xC81
	CSRInstRetH = 0xC82

	CSRSStatus  = 0x100
	CSRSEDeleg  = 0x102
	CSRSIDeleg  = 0x103
	CSRSIE      = 0x104
	CSRSTVec    = 0x105
	CSRSScratch = 0x140
	CSRSEPC     = 0x141
	CSRSCause   = 0x142
	CSRSTVal    = 0x143
	CSRSIP      = 0x144
	CSRSPTBR    = 0x180

	CSRMVendorID = 0xF11
	CSRMArchID   = 0xF12
	CSRMImpID    = 0xF13
	CSRMHartID   = 0xF14

	CSRMStatus  = 0x300
	CSRMISA     = 0x301
	CSRMEDeleg  = 0x302
	CSRMIDeleg  = 0x303
	CSRMIE      = 0x304
	CSRMTVec    = 0x305
	CSRMScratch = 0x340
	CSRMEPC     = 0x341
	CSRMCause   = 0x342
	CSRMTVal    = 0x343
	CSRMIP      = 0x344

	CSRMCycle    = 0xB00
	CSRMInstRet  = 0xB02
	CSRMCycleH   = 0xB80
	CSRMInstRetH = 0xB82
)

var csrNames = map[uint32]string{
	CSRUStatus: "ustatus", CSRUIE: "uie", CSRUTVec: "utvec",
	CSRUScratch: "uscratch", CSRUEPC: "uepc", CSRUCause: "ucause",
	CSRUTVal: "utval", CSRUIP: "uip",

	CSRCycle: "cycle", CSRTime: "time", CSRInstRet: "instret",
	CSRCycleH: "cycleh", CSRTimeH: "timeh", CSRInstRetH: "instreth",

	CSRSStatus: "sstatus", CSRSEDeleg: "sedeleg", CSRSIDeleg: "sideleg",
	CSRSIE: "sie", CSRSTVec: "stvec", CSRSScratch: "sscratch",
	CSRSEPC: "sepc", CSRSCause: "scause", CSRSTVal: "stval", CSRSIP: "sip",
	CSRSPTBR: "sptbr",

	CSRMVendorID: "mvendorid", CSRMArchID: "marchid",
	CSRMImpID: "mimpid", CSRMHartID: "mhartid",

	CSRMStatus: "mstatus", CSRMISA: "misa", CSRMEDeleg: "medeleg",
	CSRMIDeleg: "mideleg", CSRMIE: "mie", CSRMTVec: "mtvec",
	CSRMScratch: "mscratch", CSRMEPC: "mepc", CSRMCause: "mcause",
	CSRMTVal: "mtval", CSRMIP: "mip",

	CSRMCycle: "mcycle", CSRMInstRet: "minstret",
	CSRMCycleH: "mcycleh", CSRMInstRetH: "minstreth",
}

var csrByName = func() map[string]uint32 {
	m := make(map[string]uint32, len(csrNames))
	for addr, name := range csrNames {
		m[name] = addr
	}
	return m
}()

// CSRName returns the name of a CSR address.
func CSRName(csr uint32) (string, bool) {
	name, ok := csrNames[csr&0xFFF]
	return name, ok
}

// CSRAddress resolves a CSR name.
func CSRAddress(name string) (uint32, bool) {
	addr, ok := csrByName[name]
	return addr, ok
}

// CSRLevel returns the lowest privilege level allowed to access csr.
func CSRLevel(csr uint32) uint32 {
	return (csr >> 8) & 0x3
}

// CSRReadOnly reports whether csr is in the read-only address range.
func CSRReadOnly(csr uint32) bool {
	return (csr>>10)&0x3 == 0b11
}
