package linker

import (
	"github.com/ksco/uld/pkg/utils"
	"github.com/rs/zerolog"
)

// ContextArg holds the resolved command-line configuration (§4.9 of
// SPEC_FULL.md). The CLI driver in cmd/uld populates it before calling Link.
type ContextArg struct {
	Output       string
	LibraryPaths []string
	MapFile      string
}

// Context is the pipeline driver's single piece of mutable shared state: the
// Symbol Table, the flat arena of loaded objects, and the growing list of
// output chunks. Every stage function takes *Context by exclusive reference
// and retains no state of its own once it returns (SPEC_FULL.md §5).
type Context struct {
	Arg ContextArg
	Log zerolog.Logger

	Symbols *SymbolTable

	Ehdr   *OutputEhdr
	Phdr   *OutputPhdr
	Shdr   *OutputShdr
	Got    *GotSection
	Symtab *OutputSymtab
	Strtab *OutputStrtab
	Shstrtab *OutputShstrtab

	Buf []byte

	FilePriority uint32
	Visited      utils.MapSet[string]

	Objs []*ObjectFile

	Chunks []Chunker

	OutputSections []*OutputSection
	Segments       []*Segment

	EntryAddr uint64
}

func NewContext(logger zerolog.Logger) *Context {
	return &Context{
		Arg:          ContextArg{Output: "a.out"},
		Log:          logger,
		Symbols:      NewSymbolTable(),
		Visited:      utils.NewMapSet[string](),
		FilePriority: 1,
	}
}
