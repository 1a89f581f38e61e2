package insts

// ABI register numbers.
const (
	RegZero = iota
	RegRA
	RegSP
	RegGP
	RegTP
	RegT0
	RegT1
	RegT2
	RegS0
	RegS1
	RegA0
	RegA1
	RegA2
	RegA3
	RegA4
	RegA5
	RegA6
	RegA7
	RegS2
	RegS3
	RegS4
	RegS5
	RegS6
	RegS7
	RegS8
	RegS9
	RegS10
	RegS11
	RegT3
	RegT4
	RegT5
	RegT6
)

var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

var abiIndex = func() map[string]uint32 {
	m := make(map[string]uint32, len(abiNames)+1)
	for i, n := range abiNames {
		m[n] = uint32(i)
	}
	m["fp"] = RegS0
	return m
}()

// ABIName returns the ABI name of register r. Only the low five bits of r
// are used.
func ABIName(r uint32) string {
	return abiNames[r&0x1F]
}

// RegisterIndex resolves an ABI name ("t0", "fp") or an "xN" name.
func RegisterIndex(name string) (uint32, bool) {
	if r, ok := abiIndex[name]; ok {
		return r, true
	}

	if len(name) < 2 || len(name) > 3 || name[0] != 'x' {
		return 0, false
	}

	var n uint32
	for _, c := range name[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint32(c-'0')
	}
	if n > 31 {
		return 0, false
	}

	return n, true
}
