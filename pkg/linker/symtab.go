package linker

import (
	"debug/elf"

	"github.com/ksco/uld/pkg/utils"
)

// OutputStrtab is a flat, NUL-terminated byte pool of interned names,
// grounded on the symbol64 layout WonderfulToolchain's elf package reads
// (a Sym.Name / Shdr.Name field is an offset into a pool exactly like this).
type OutputStrtab struct {
	Chunk
	names   []string
	offsets []uint32 // offsets[i] is the byte offset of names[i]
}

func NewOutputStrtab() *OutputStrtab {
	o := &OutputStrtab{Chunk: NewChunk()}
	o.Name = ".strtab"
	o.Shdr.Type = uint32(elf.SHT_STRTAB)
	o.Shdr.AddrAlign = 1
	o.Shdr.Size = 1 // index 0 is always the empty string
	return o
}

// add interns name, growing the pool, and returns its offset.
func (o *OutputStrtab) add(name string) uint32 {
	off := uint32(o.Shdr.Size)
	o.names = append(o.names, name)
	o.offsets = append(o.offsets, off)
	o.Shdr.Size += uint64(len(name)) + 1
	return off
}

func (o *OutputStrtab) CopyBuf(ctx *Context) error {
	buf := ctx.Buf[o.Shdr.Offset : o.Shdr.Offset+o.Shdr.Size]
	for i, name := range o.names {
		writeStrtabName(buf[o.offsets[i]:], name)
	}
	return nil
}

// OutputSymtab is the output .symtab: one entry per name the linker kept in
// its global Symbol Table. Local symbols are never re-exported, matching
// SPEC_FULL.md §4.3's local/global split.
type OutputSymtab struct {
	Chunk
	strtab *OutputStrtab
}

func NewOutputSymtab(strtab *OutputStrtab) *OutputSymtab {
	o := &OutputSymtab{Chunk: NewChunk(), strtab: strtab}
	o.Name = ".symtab"
	o.Shdr.Type = uint32(elf.SHT_SYMTAB)
	o.Shdr.EntSize = symSize
	o.Shdr.AddrAlign = 8
	return o
}

// Populate interns every known symbol's name into strtab and sizes this
// chunk accordingly. It must run once every section has its final address
// (i.e. after segment placement) and before the non-allocated trailer's
// file offsets are computed, since those depend on this chunk's size.
func (o *OutputSymtab) Populate(ctx *Context) {
	for _, name := range ctx.Symbols.Names() {
		o.strtab.add(name)
	}
	o.Shdr.Size = uint64(1+len(ctx.Symbols.Names())) * symSize
	o.Shdr.Link = uint32(o.strtab.Shndx)
	o.Shdr.Info = 1 // every entry here is global
}

func (o *OutputSymtab) CopyBuf(ctx *Context) error {
	buf := ctx.Buf[o.Shdr.Offset : o.Shdr.Offset+o.Shdr.Size]
	utils.Write[Sym](buf, Sym{})

	for i, name := range ctx.Symbols.Names() {
		sym, _ := ctx.Symbols.Lookup(name)
		addr, err := sym.Address()
		if err != nil {
			return err
		}

		bind := uint8(elf.STB_GLOBAL)
		if sym.Strength == StrengthWeak {
			bind = uint8(elf.STB_WEAK)
		}
		shndx := uint16(elf.SHN_ABS)
		if !sym.Absolute && sym.Section != nil && sym.Section.OutputSection != nil {
			shndx = uint16(sym.Section.OutputSection.Shndx)
		}

		esym := Sym{
			Name:  o.strtab.offsets[i],
			Info:  bind<<4 | sym.Type,
			Shndx: shndx,
			Val:   addr,
		}
		utils.Write[Sym](buf[(i+1)*symSize:], esym)
	}
	return nil
}

// OutputShstrtab is the section header string table: every chunk with a
// section header entry (Shndx > 0) gets its Shdr.Name set to an offset here.
type OutputShstrtab struct {
	OutputStrtab
}

func NewOutputShstrtab() *OutputShstrtab {
	o := &OutputShstrtab{OutputStrtab: *NewOutputStrtab()}
	o.Name = ".shstrtab"
	return o
}

// AssignNames walks every chunk with a section header entry and interns its
// name, filling in Shdr.Name. Must run after shndx assignment.
func (o *OutputShstrtab) AssignNames(ctx *Context) {
	for _, c := range ctx.Chunks {
		if c.GetShndx() <= 0 {
			continue
		}
		c.GetShdr().Name = o.add(c.GetName())
	}
}
