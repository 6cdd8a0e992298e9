package linker

import (
	"debug/elf"
	"sort"

	"github.com/pkg/errors"

	"github.com/ksco/uld/pkg/utils"
)

// Segment is one PT_LOAD entry of the fixed three-segment model of
// SPEC_FULL.md §4.4: RX (text), R (rodata), RW (data + got + bss).
type Segment struct {
	Perm Permission
	Phdr Phdr
}

// BinOutputSections assigns every alive, non-ignored InputSection to the
// OutputSection for its canonical name, creating OutputSections on first
// use in section-first-seen order. Member order within an OutputSection is
// load order: objects in the order they were read, then original section
// order within each object.
func BinOutputSections(ctx *Context) {
	for _, obj := range ctx.Objs {
		if !obj.IsAlive {
			continue
		}
		for _, isec := range obj.Sections {
			if isec == nil || isec.Kind == SectionIgnored {
				continue
			}
			shdr := isec.Shdr()
			flags := shdr.Flags & uint64(elf.SHF_ALLOC|elf.SHF_WRITE|elf.SHF_EXECINSTR)
			osec := GetOutputSection(ctx, CanonicalName(isec.Name()), shdr.Type, flags)
			osec.Members = append(osec.Members, isec)
			isec.OutputSection = osec
		}
	}
}

func chunkPermission(c Chunker) Permission {
	shdr := c.GetShdr()
	if shdr.Type == uint32(elf.SHT_NOBITS) {
		return PermRWZero
	}
	if shdr.Flags&uint64(elf.SHF_EXECINSTR) != 0 {
		return PermRX
	}
	if shdr.Flags&uint64(elf.SHF_WRITE) != 0 {
		return PermRW
	}
	return PermR
}

func phdrFlags(p Permission) uint32 {
	switch p {
	case PermRX:
		return uint32(elf.PF_R | elf.PF_X)
	case PermRW, PermRWZero:
		return uint32(elf.PF_R | elf.PF_W)
	default:
		return uint32(elf.PF_R)
	}
}

const phdrEntrySize = 56

// Layout is the Layout Engine of SPEC_FULL.md §4.4: it sizes every output
// section, places the three loadable segments back to back starting at
// ImageBase, and lays out the non-allocated trailer (section header table
// and symbol/string tables) after them.
//
// No PT_PHDR is ever emitted, so the first PT_LOAD must itself cover the
// ELF header and program header table: the kernel sets AT_PHDR unconditionally
// to load_bias+e_phoff, and libc startup code (e.g. musl's __init_tls) reads
// the phdr array through it before main runs. Ehdr/Phdr are therefore
// prepended to the first loadable segment's chunk list rather than placed
// ahead of it, so that segment's VAddr/Offset come out as ImageBase/0.
func Layout(ctx *Context) error {
	for _, osec := range ctx.OutputSections {
		osec.UpdateShdr(ctx)
	}
	ctx.Got.UpdateShdr(ctx)

	groups := map[Permission][]Chunker{}
	for _, osec := range ctx.OutputSections {
		if len(osec.Members) == 0 {
			continue
		}
		perm := chunkPermission(osec)
		if perm == PermRWZero {
			perm = PermRW // bss shares the RW segment with data; placeOne reorders it last
		}
		groups[perm] = append(groups[perm], osec)
	}
	if ctx.Got.Shdr.Size > 0 {
		groups[PermRW] = append(groups[PermRW], ctx.Got)
	}

	order := []Permission{PermRX, PermR, PermRW}
	var segCount uint64
	firstNonEmpty := -1
	for i, perm := range order {
		if len(groups[perm]) > 0 {
			segCount++
			if firstNonEmpty == -1 {
				firstNonEmpty = i
			}
		}
	}
	if firstNonEmpty == -1 {
		return errors.Wrap(ErrMalformedInput, "no loadable output sections")
	}

	ctx.Phdr.Shdr.Size = segCount * uint64(phdrEntrySize)

	firstPerm := order[firstNonEmpty]
	groups[firstPerm] = append([]Chunker{ctx.Ehdr, ctx.Phdr}, groups[firstPerm]...)

	addr := ImageBase
	foff := uint64(0)

	place := func(chunks []Chunker) (startAddr, startOff, fileEnd, memEnd uint64) {
		startAddr, startOff = addr, foff
		fileEnd, memEnd = foff, addr
		for _, c := range chunks {
			shdr := c.GetShdr()
			align := utils.Max(shdr.AddrAlign, 1)
			addr = utils.AlignTo(addr, align)
			shdr.Addr = addr
			if shdr.Type == uint32(elf.SHT_NOBITS) {
				shdr.Offset = foff
				addr += shdr.Size
			} else {
				foff = utils.AlignTo(foff, align)
				shdr.Offset = foff
				addr += shdr.Size
				foff += shdr.Size
			}
			fileEnd = foff
			memEnd = addr
		}
		return
	}

	placeOne := func(perm Permission) *Segment {
		chunks := groups[perm]
		if perm == PermRW {
			var dataLike, bss []Chunker
			for _, c := range chunks {
				if chunkPermission(c) == PermRWZero {
					bss = append(bss, c)
				} else {
					dataLike = append(dataLike, c)
				}
			}
			chunks = append(dataLike, bss...)
		}
		if len(chunks) == 0 {
			return nil
		}

		addr = utils.AlignTo(addr, PageSize)
		foff = addr - ImageBase
		startAddr, startOff, fileEnd, memEnd := place(chunks)

		return &Segment{
			Perm: perm,
			Phdr: Phdr{
				Type:     uint32(elf.PT_LOAD),
				Flags:    phdrFlags(perm),
				Offset:   startOff,
				VAddr:    startAddr,
				PAddr:    startAddr,
				FileSize: fileEnd - startOff,
				MemSize:  memEnd - startAddr,
				Align:    PageSize,
			},
		}
	}

	ctx.Segments = nil
	for _, perm := range order {
		if seg := placeOne(perm); seg != nil {
			ctx.Segments = append(ctx.Segments, seg)
		}
	}

	assignShndx(ctx)
	ctx.Symtab.Populate(ctx)
	ctx.Shstrtab.AssignNames(ctx)

	// Non-allocated trailer: symtab/strtab/shstrtab, then the section header table.
	for _, c := range []Chunker{ctx.Symtab, ctx.Strtab, ctx.Shstrtab} {
		shdr := c.GetShdr()
		foff = utils.AlignTo(foff, utils.Max(shdr.AddrAlign, 1))
		shdr.Offset = foff
		foff += shdr.Size
	}

	foff = utils.AlignTo(foff, 8)
	ctx.Shdr.Shdr.Offset = foff
	ctx.Shdr.UpdateShdr(ctx)

	sym, ok := ctx.Symbols.Lookup("_start")
	if !ok {
		return errors.Wrap(ErrMissingEntry, "_start")
	}
	entry, err := sym.Address()
	if err != nil {
		return errors.Wrap(err, "_start")
	}
	ctx.EntryAddr = entry

	return nil
}

// assignShndx hands out section header table indices in address order for
// allocated output sections, then the synthesized GOT and symbol/string
// tables.
func assignShndx(ctx *Context) {
	var ordered []*OutputSection
	for _, o := range ctx.OutputSections {
		if len(o.Members) > 0 {
			ordered = append(ordered, o)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Shdr.Addr < ordered[j].Shdr.Addr
	})

	idx := int64(1)
	ctx.Chunks = []Chunker{ctx.Ehdr, ctx.Phdr}
	for _, o := range ordered {
		o.SetShndx(idx)
		ctx.Chunks = append(ctx.Chunks, o)
		idx++
	}

	if ctx.Got.Shdr.Size > 0 {
		ctx.Got.SetShndx(idx)
		ctx.Chunks = append(ctx.Chunks, ctx.Got)
		idx++
	}

	ctx.Symtab.SetShndx(idx)
	ctx.Chunks = append(ctx.Chunks, ctx.Symtab)
	idx++
	ctx.Strtab.SetShndx(idx)
	ctx.Chunks = append(ctx.Chunks, ctx.Strtab)
	idx++
	ctx.Shstrtab.SetShndx(idx)
	ctx.Chunks = append(ctx.Chunks, ctx.Shstrtab)

	// The section header table chunk itself is not a section and never
	// gets a shndx, but still needs to be in the write list.
	ctx.Chunks = append(ctx.Chunks, ctx.Shdr)
}
