package linker

import (
	"debug/elf"

	"github.com/ksco/uld/pkg/utils"
	"github.com/pkg/errors"
)

// GotSection is the synthesized .got: one 8-byte slot per distinct symbol
// referenced by a GOT-family relocation (SPEC_FULL.md §4.5).
type GotSection struct {
	Chunk
	Syms []*Symbol
}

func NewGotSection() *GotSection {
	g := &GotSection{Chunk: NewChunk()}
	g.Name = ".got"
	g.Shdr.Type = uint32(elf.SHT_PROGBITS)
	g.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	g.Shdr.AddrAlign = 8
	return g
}

// AddSymbol allocates sym a slot if it doesn't already have one.
func (g *GotSection) AddSymbol(sym *Symbol) {
	if sym.GotIndex >= 0 {
		return
	}
	sym.GotIndex = int32(len(g.Syms))
	g.Syms = append(g.Syms, sym)
}

func (g *GotSection) Addr(sym *Symbol) uint64 {
	return g.Shdr.Addr + uint64(sym.GotIndex)*8
}

func (g *GotSection) UpdateShdr(ctx *Context) {
	g.Shdr.Size = uint64(len(g.Syms)) * 8
}

func (g *GotSection) CopyBuf(ctx *Context) error {
	buf := ctx.Buf[g.Shdr.Offset : g.Shdr.Offset+g.Shdr.Size]
	for _, sym := range g.Syms {
		addr, err := sym.Address()
		if err != nil {
			return errors.Wrapf(err, "GOT entry for %s", sym.Name)
		}
		utils.Write[uint64](buf[sym.GotIndex*8:], addr)
	}
	return nil
}
