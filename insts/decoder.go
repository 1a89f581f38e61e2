package insts

import (
	"strings"
)

// Decoded is a decoded instruction word.
type Decoded struct {
	Descriptor *Descriptor
	Args       []uint32
}

// Name returns the mnemonic.
func (d Decoded) Name() string {
	return d.Descriptor.Name
}

// String renders the instruction as "(name arg arg ...)".
func (d Decoded) String() string {
	var sb strings.Builder
	sb.WriteString("(")
	sb.WriteString(d.Descriptor.Name)
	for i, o := range d.Descriptor.Operands {
		sb.WriteString(" ")
		sb.WriteString(FormatOperand(o.Kind, d.Args[i]))
	}
	sb.WriteString(")")
	return sb.String()
}

// Decoder maps instruction words back to catalog descriptors.
type Decoder struct {
	catalog *Catalog
}

// NewDecoder creates a decoder over catalog. A nil catalog selects the
// default one.
func NewDecoder(catalog *Catalog) *Decoder {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Decoder{catalog: catalog}
}

// Decode scans the catalog in precedence order and returns the first
// descriptor whose constraints all hold. It reports false when nothing
// matches.
func (d *Decoder) Decode(word uint32) (Decoded, bool) {
	for i := 0; i < d.catalog.Len(); i++ {
		desc := d.catalog.At(i)
		if !desc.Matches(word) {
			continue
		}

		args := make([]uint32, len(desc.Operands))
		for j, o := range desc.Operands {
			args[j] = o.Extract(word)
		}

		return Decoded{Descriptor: desc, Args: args}, true
	}

	return Decoded{}, false
}
