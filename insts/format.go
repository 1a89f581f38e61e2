package insts

import (
	"fmt"
)

// FormatOperand renders an operand value for listings.
func FormatOperand(kind OperandKind, value uint32) string {
	switch kind {
	case KindRegister:
		return ABIName(value)
	case KindAddress:
		return fmt.Sprintf("0x%08X", value)
	case KindGeneral:
		return fmt.Sprintf("%d", int32(value))
	case KindCSR:
		if name, ok := CSRName(value); ok {
			return name
		}
		return fmt.Sprintf("(csr %d)", value)
	default:
		panic(fmt.Sprintf("unknown operand kind %d", kind))
	}
}
