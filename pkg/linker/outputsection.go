package linker

import (
	"debug/elf"

	"github.com/ksco/uld/pkg/utils"
)

// OutputSection groups every InputSection sharing a canonical name (e.g.
// every ".text.*" contributed by every object) into one output section, per
// SPEC_FULL.md §4.4.
type OutputSection struct {
	Chunk
	Members []*InputSection
}

func NewOutputSection(name string, typ uint32, flags uint64) *OutputSection {
	o := &OutputSection{Chunk: NewChunk()}
	o.Name = name
	o.Shdr.Type = typ
	o.Shdr.Flags = flags
	return o
}

// GetOutputSection returns the OutputSection for name, creating it (in
// ctx.OutputSections, in first-seen order) if this is the first section
// contributing to it.
func GetOutputSection(ctx *Context, name string, typ uint32, flags uint64) *OutputSection {
	for _, o := range ctx.OutputSections {
		if o.Name == name {
			return o
		}
	}
	o := NewOutputSection(name, typ, flags)
	ctx.OutputSections = append(ctx.OutputSections, o)
	return o
}

func (o *OutputSection) Kind() int { return ChunkKindOutputSection }

func (o *OutputSection) UpdateShdr(ctx *Context) {
	var size uint64
	var align uint64 = 1
	for _, m := range o.Members {
		size = utils.AlignTo(size, m.Align)
		m.Offset = uint32(size)
		size += m.Size
		if m.Align > align {
			align = m.Align
		}
	}
	o.Shdr.Size = size
	o.Shdr.AddrAlign = align
}

func (o *OutputSection) CopyBuf(ctx *Context) error {
	if o.Shdr.Type == uint32(elf.SHT_NOBITS) {
		return nil
	}
	buf := ctx.Buf[o.Shdr.Offset:]
	for _, m := range o.Members {
		if err := m.WriteTo(ctx, buf[m.Offset:]); err != nil {
			return err
		}
	}
	return nil
}
