package linker

import (
	"debug/elf"

	"github.com/ksco/uld/pkg/utils"
)

// OutputPhdr is the program header table chunk: one PT_LOAD entry per
// Segment the Layout Engine produced, in RX/R/RW order.
type OutputPhdr struct {
	Chunk
}

func NewOutputPhdr() *OutputPhdr {
	o := &OutputPhdr{Chunk: NewChunk()}
	o.Shdr.Flags = uint64(elf.SHF_ALLOC)
	o.Shdr.AddrAlign = 8
	return o
}

func (o *OutputPhdr) Kind() int { return ChunkKindHeader }

func (o *OutputPhdr) CopyBuf(ctx *Context) error {
	buf := ctx.Buf[o.Shdr.Offset:]
	for i, seg := range ctx.Segments {
		utils.Write[Phdr](buf[i*phdrEntrySize:], seg.Phdr)
	}
	return nil
}
