package permission

// Mask is a set of grade bits. Bit 63 means every grade.
type Mask uint64

// AllBit is the reserved bit granting every grade.
const AllBit = 63

// maxGrades is the number of bits available to a Catalog.
const maxGrades = AllBit

func (m Mask) Has(bit int) bool {
	if bit < 0 || bit >= 64 {
		return false
	}
	if m&(1<<AllBit) != 0 {
		return true
	}
	return m&(1<<bit) != 0
}

func (m *Mask) Set(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m |= 1 << bit
}

func (m *Mask) Clear(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m &^= 1 << bit
}

// All reports whether the mask grants every grade.
func (m Mask) All() bool {
	return m&(1<<AllBit) != 0
}

func (m Mask) Raw() uint64 {
	return uint64(m)
}
