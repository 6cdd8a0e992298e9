package linker

// Chunk kinds distinguish the file/program headers from ordinary output
// sections and from chunks synthesized by the linker itself (GOT, symtab).
const (
	ChunkKindHeader = iota
	ChunkKindOutputSection
	ChunkKindSynthetic
)

// Chunker is anything the ELF Writer can place, size, and serialize: the
// ELF/program/section header chunks, every OutputSection, and the
// synthesized GOT/symtab/strtab/shstrtab chunks all implement it uniformly.
type Chunker interface {
	Kind() int
	GetShdr() *Shdr
	GetName() string
	GetShndx() int64
	SetShndx(i int64)
	UpdateShdr(ctx *Context)
	CopyBuf(ctx *Context) error
}

// Chunk is the embeddable base: a name, a section header under
// construction, and the chunk's assigned index into the section header
// table once that's known.
type Chunk struct {
	Name  string
	Shdr  Shdr
	Shndx int64
}

func NewChunk() Chunk {
	return Chunk{Shdr: Shdr{AddrAlign: 1}}
}

func (c *Chunk) Kind() int { return ChunkKindSynthetic }

func (c *Chunk) GetShdr() *Shdr { return &c.Shdr }

func (c *Chunk) GetName() string { return c.Name }

func (c *Chunk) GetShndx() int64 { return c.Shndx }

func (c *Chunk) SetShndx(i int64) { c.Shndx = i }

func (c *Chunk) UpdateShdr(ctx *Context) {}

func (c *Chunk) CopyBuf(ctx *Context) error { return nil }
