package linker

import (
	"unsafe"

	"github.com/ksco/uld/pkg/utils"
)

// OutputShdr is the section header table chunk: one Shdr per Chunker with a
// non-zero section index, plus the mandatory null entry at index 0.
type OutputShdr struct {
	Chunk
}

func NewOutputShdr() *OutputShdr {
	o := &OutputShdr{Chunk: NewChunk()}
	o.Shdr.AddrAlign = 8
	return o
}

func (o *OutputShdr) Kind() int { return ChunkKindHeader }

func (o *OutputShdr) UpdateShdr(ctx *Context) {
	var n int64
	for _, c := range ctx.Chunks {
		if c.GetShndx() > n {
			n = c.GetShndx()
		}
	}
	o.Shdr.Size = uint64(n+1) * uint64(unsafe.Sizeof(Shdr{}))
}

func (o *OutputShdr) CopyBuf(ctx *Context) error {
	base := ctx.Buf[o.Shdr.Offset:]
	utils.Write[Shdr](base, Shdr{})
	for _, c := range ctx.Chunks {
		if c.GetShndx() > 0 {
			utils.Write[Shdr](base[c.GetShndx()*int64(unsafe.Sizeof(Shdr{})):], *c.GetShdr())
		}
	}
	return nil
}
