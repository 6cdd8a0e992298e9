package linker

import (
	"debug/elf"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/ksco/uld/pkg/utils"
)

// OutputEhdr is the file's ELF64 header chunk.
type OutputEhdr struct {
	Chunk
}

func NewOutputEhdr() *OutputEhdr {
	o := &OutputEhdr{Chunk: NewChunk()}
	o.Shdr.Flags = uint64(elf.SHF_ALLOC)
	o.Shdr.Size = uint64(unsafe.Sizeof(Ehdr{}))
	o.Shdr.AddrAlign = 8
	return o
}

func (o *OutputEhdr) Kind() int { return ChunkKindHeader }

func (o *OutputEhdr) CopyBuf(ctx *Context) error {
	if ctx.EntryAddr == 0 {
		return errors.Wrap(ErrMissingEntry, "_start")
	}

	var ehdr Ehdr
	ehdr.Ident[0] = 0x7f
	ehdr.Ident[1] = 'E'
	ehdr.Ident[2] = 'L'
	ehdr.Ident[3] = 'F'
	ehdr.Ident[elf.EI_CLASS] = uint8(elf.ELFCLASS64)
	ehdr.Ident[elf.EI_DATA] = uint8(elf.ELFDATA2LSB)
	ehdr.Ident[elf.EI_VERSION] = uint8(elf.EV_CURRENT)
	ehdr.Type = uint16(elf.ET_EXEC)
	ehdr.Machine = uint16(elf.EM_X86_64)
	ehdr.Version = uint32(elf.EV_CURRENT)
	ehdr.Entry = ctx.EntryAddr
	ehdr.PhOff = ctx.Phdr.Shdr.Offset
	ehdr.ShOff = ctx.Shdr.Shdr.Offset
	ehdr.EhSize = uint16(unsafe.Sizeof(Ehdr{}))
	ehdr.PhEntSize = uint16(unsafe.Sizeof(Phdr{}))
	ehdr.PhNum = uint16(ctx.Phdr.Shdr.Size / uint64(unsafe.Sizeof(Phdr{})))
	ehdr.ShEntSize = uint16(unsafe.Sizeof(Shdr{}))
	ehdr.ShNum = uint16(ctx.Shdr.Shdr.Size / uint64(unsafe.Sizeof(Shdr{})))
	ehdr.ShStrndx = uint16(ctx.Shstrtab.Shndx)

	utils.Write[Ehdr](ctx.Buf[o.Shdr.Offset:], ehdr)
	return nil
}
