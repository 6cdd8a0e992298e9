package linker

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLayoutFixture builds a Context with one RX output section (.text), two
// RW output sections (.data and .bss) and every chunk Layout touches, but skips the Input
// Loader/BinOutputSections stages since Layout only needs OutputSections
// already populated.
func newLayoutFixture() (*Context, *InputSection) {
	text := NewOutputSection(".text", uint32(elf.SHT_PROGBITS), uint64(elf.SHF_ALLOC|elf.SHF_EXECINSTR))
	textIsec := &InputSection{name: ".text", Kind: SectionProgbits, Size: 16, Align: 16, Content: make([]byte, 16)}
	text.Members = []*InputSection{textIsec}
	textIsec.OutputSection = text

	data := NewOutputSection(".data", uint32(elf.SHT_PROGBITS), uint64(elf.SHF_ALLOC|elf.SHF_WRITE))
	dataIsec := &InputSection{name: ".data", Kind: SectionProgbits, Size: 8, Align: 8, Content: make([]byte, 8)}
	data.Members = []*InputSection{dataIsec}
	dataIsec.OutputSection = data

	bss := NewOutputSection(".bss", uint32(elf.SHT_NOBITS), uint64(elf.SHF_ALLOC|elf.SHF_WRITE))
	bssIsec := &InputSection{name: ".bss", Kind: SectionNobits, Size: 32, Align: 16}
	bss.Members = []*InputSection{bssIsec}
	bssIsec.OutputSection = bss

	ctx := &Context{
		Ehdr:     NewOutputEhdr(),
		Phdr:     NewOutputPhdr(),
		Shdr:     NewOutputShdr(),
		Got:      NewGotSection(),
		Strtab:   NewOutputStrtab(),
		Shstrtab: NewOutputShstrtab(),
		Symbols:  NewSymbolTable(),

		OutputSections: []*OutputSection{text, data, bss},
	}
	ctx.Symtab = NewOutputSymtab(ctx.Strtab)

	return ctx, textIsec
}

func TestLayoutProducesExpectedSegments(t *testing.T) {
	ctx, textIsec := newLayoutFixture()
	require.NoError(t, ctx.Symbols.Define("_start", StrengthStrong, nil, textIsec, 0, false, uint8(elf.STT_FUNC)))

	require.NoError(t, Layout(ctx))

	require.Len(t, ctx.Segments, 2)
	assert.Equal(t, PermRX, ctx.Segments[0].Perm)
	assert.Equal(t, PermRW, ctx.Segments[1].Perm)
}

func TestLayoutPageAlignmentInvariant(t *testing.T) {
	ctx, textIsec := newLayoutFixture()
	require.NoError(t, ctx.Symbols.Define("_start", StrengthStrong, nil, textIsec, 0, false, uint8(elf.STT_FUNC)))

	require.NoError(t, Layout(ctx))

	for _, seg := range ctx.Segments {
		assert.Equal(t, seg.Phdr.VAddr%PageSize, seg.Phdr.Offset%PageSize,
			"segment %s: vaddr/offset page-alignment mismatch", seg.Perm)
	}
}

func TestLayoutImageBaseIsPageAligned(t *testing.T) {
	assert.Equal(t, uint64(0), ImageBase%PageSize)
}

// TestLayoutFirstSegmentCoversEhdrAndPhdr guards against a PT_LOAD that
// skips the ELF/program headers: the kernel sets AT_PHDR unconditionally,
// and libc startup code dereferences it before main runs, so the first
// segment must start at ImageBase/offset 0 and its MemSize/FileSize must
// reach past the end of the program header table.
func TestLayoutFirstSegmentCoversEhdrAndPhdr(t *testing.T) {
	ctx, textIsec := newLayoutFixture()
	require.NoError(t, ctx.Symbols.Define("_start", StrengthStrong, nil, textIsec, 0, false, uint8(elf.STT_FUNC)))

	require.NoError(t, Layout(ctx))

	first := ctx.Segments[0].Phdr
	assert.Equal(t, ImageBase, first.VAddr)
	assert.Equal(t, uint64(0), first.Offset)

	phdrEnd := ctx.Phdr.Shdr.Addr + ctx.Phdr.Shdr.Size
	assert.LessOrEqual(t, phdrEnd, first.VAddr+first.MemSize,
		"first PT_LOAD must cover the program header table")
	assert.Equal(t, ImageBase, ctx.Ehdr.Shdr.Addr)
	assert.Equal(t, uint64(0), ctx.Ehdr.Shdr.Offset)
}

func TestLayoutResolvesEntryFromStart(t *testing.T) {
	ctx, textIsec := newLayoutFixture()
	require.NoError(t, ctx.Symbols.Define("_start", StrengthStrong, nil, textIsec, 0, false, uint8(elf.STT_FUNC)))

	require.NoError(t, Layout(ctx))

	assert.Equal(t, textIsec.OutputSection.Shdr.Addr+uint64(textIsec.Offset), ctx.EntryAddr)
	assert.NotZero(t, ctx.EntryAddr)
}

func TestLayoutMissingEntryIsError(t *testing.T) {
	ctx, _ := newLayoutFixture()
	err := Layout(ctx)
	assert.ErrorIs(t, err, ErrMissingEntry)
}

func TestLayoutBssContributesNoFileSize(t *testing.T) {
	ctx, textIsec := newLayoutFixture()
	require.NoError(t, ctx.Symbols.Define("_start", StrengthStrong, nil, textIsec, 0, false, uint8(elf.STT_FUNC)))

	require.NoError(t, Layout(ctx))

	rw := ctx.Segments[1]
	// MemSize must cover data+bss, but FileSize only data: bss (32 bytes,
	// 16-byte aligned) inflates memory without inflating the file.
	assert.Greater(t, rw.Phdr.MemSize, rw.Phdr.FileSize)
}
