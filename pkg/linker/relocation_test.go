package linker

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSection builds a minimal InputSection, already placed at addr by a
// fake OutputSection, with one symbol (index 1; index 0 is always the null
// symbol) at symAddr.
func newTestSection(addr, symAddr uint64, content []byte) (*InputSection, *Symbol) {
	osec := &OutputSection{}
	osec.Shdr.Addr = addr

	obj := &ObjectFile{}
	sym := &Symbol{Name: "target", Absolute: true, Value: symAddr, GotIndex: -1}
	obj.Symbols = []*Symbol{nil, sym}

	sec := &InputSection{
		File:          obj,
		name:          ".text",
		Content:       content,
		Size:          uint64(len(content)),
		OutputSection: osec,
	}
	return sec, sym
}

func TestWriteToNobitsSkipsZeroContent(t *testing.T) {
	sec := &InputSection{name: ".bss", Kind: SectionNobits, Size: 8}
	buf := make([]byte, 8)
	require.NoError(t, sec.WriteTo(&Context{}, buf))
}

func TestWriteToNobitsRejectsNonZeroContent(t *testing.T) {
	sec := &InputSection{name: ".bss", Kind: SectionNobits, Size: 4, Content: []byte{0, 1, 0, 0}}
	err := sec.WriteTo(&Context{}, make([]byte, 4))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestApplyRelocationsPC32(t *testing.T) {
	sec, _ := newTestSection(0x1000, 0x2000, make([]byte, 8))
	sec.Rels = []Rela{{Offset: 4, Type: uint32(elf.R_X86_64_PC32), Sym: 1, Addend: 0}}

	buf := make([]byte, len(sec.Content))
	require.NoError(t, sec.WriteTo(nil, buf))

	got := int32(buf[4]) | int32(buf[5])<<8 | int32(buf[6])<<16 | int32(buf[7])<<24
	assert.Equal(t, int32(0x2000-(0x1000+4)), got)
}

func TestApplyRelocations64(t *testing.T) {
	sec, _ := newTestSection(0x1000, 0xdeadbeefcafe, make([]byte, 8))
	sec.Rels = []Rela{{Offset: 0, Type: uint32(elf.R_X86_64_64), Sym: 1, Addend: 1}}

	buf := make([]byte, len(sec.Content))
	require.NoError(t, sec.WriteTo(nil, buf))

	var got uint64
	for i := 0; i < 8; i++ {
		got |= uint64(buf[i]) << (8 * i)
	}
	assert.Equal(t, uint64(0xdeadbeefcafe+1), got)
}

func TestApplyRelocationsPC32OverflowBoundary(t *testing.T) {
	// target - (P) must fit in a signed 32-bit field. Place the symbol
	// exactly 2^31-1 bytes ahead of P=4: succeeds.
	okSec, _ := newTestSection(0, 4+0x7fffffff, make([]byte, 8))
	okSec.Rels = []Rela{{Offset: 4, Type: uint32(elf.R_X86_64_PC32), Sym: 1}}
	require.NoError(t, okSec.WriteTo(nil, make([]byte, 8)))

	// One byte further overflows.
	badSec, _ := newTestSection(0, 4+0x80000000, make([]byte, 8))
	badSec.Rels = []Rela{{Offset: 4, Type: uint32(elf.R_X86_64_PC32), Sym: 1}}
	err := badSec.WriteTo(nil, make([]byte, 8))
	assert.ErrorIs(t, err, ErrRelocationOverflow)
}

func TestApplyRelocations32UnsignedOverflow(t *testing.T) {
	okSec, _ := newTestSection(0, 0xffffffff, make([]byte, 4))
	okSec.Rels = []Rela{{Offset: 0, Type: uint32(elf.R_X86_64_32), Sym: 1}}
	require.NoError(t, okSec.WriteTo(nil, make([]byte, 4)))

	badSec, _ := newTestSection(0, 0x100000000, make([]byte, 4))
	badSec.Rels = []Rela{{Offset: 0, Type: uint32(elf.R_X86_64_32), Sym: 1}}
	err := badSec.WriteTo(nil, make([]byte, 4))
	assert.ErrorIs(t, err, ErrRelocationOverflow)
}

func TestApplyRelocations32SSignedOverflow(t *testing.T) {
	okSec, _ := newTestSection(0, 0x7fffffff, make([]byte, 4))
	okSec.Rels = []Rela{{Offset: 0, Type: uint32(elf.R_X86_64_32S), Sym: 1}}
	require.NoError(t, okSec.WriteTo(nil, make([]byte, 4)))

	badSec, _ := newTestSection(0, 0x80000000, make([]byte, 4))
	badSec.Rels = []Rela{{Offset: 0, Type: uint32(elf.R_X86_64_32S), Sym: 1}}
	err := badSec.WriteTo(nil, make([]byte, 4))
	assert.ErrorIs(t, err, ErrRelocationOverflow)
}

func TestScanRelocationsUnsupportedType(t *testing.T) {
	sec, _ := newTestSection(0, 0, make([]byte, 8))
	sec.Rels = []Rela{{Offset: 0, Type: 9999, Sym: 1}}

	ctx := &Context{Got: NewGotSection()}
	err := sec.ScanRelocations(ctx)
	assert.ErrorIs(t, err, ErrUnsupportedReloc)
}

func TestScanRelocationsGotFamilyAllocatesSlot(t *testing.T) {
	sec, sym := newTestSection(0, 0, make([]byte, 8))
	sec.Rels = []Rela{{Offset: 0, Type: uint32(elf.R_X86_64_GOTPCREL), Sym: 1}}

	ctx := &Context{Got: NewGotSection()}
	require.NoError(t, sec.ScanRelocations(ctx))

	assert.Equal(t, int32(0), sym.GotIndex)
	assert.Len(t, ctx.Got.Syms, 1)
}
