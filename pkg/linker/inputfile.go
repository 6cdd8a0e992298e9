package linker

import (
	"debug/elf"

	"github.com/ksco/uld/pkg/utils"
	"github.com/pkg/errors"
)

// InputFile is the raw, section/symbol-table-level view of one parsed
// ELF64 relocatable object, before the linker-specific InputSection/Symbol
// wrapping that ObjectFile layers on top.
type InputFile struct {
	File *File

	ElfSections []Shdr
	ShStrtab    []byte

	ElfSyms      []Sym
	SymbolStrtab []byte
	FirstGlobal  int64

	Priority uint32
	IsAlive  bool
}

const ehdrSize = 64
const shdrSize = 64
const symSize = 24

func newInputFile(file *File) (*InputFile, error) {
	if len(file.Contents) < ehdrSize {
		return nil, errors.Wrapf(ErrMalformedInput, "%s: file too small for an ELF header", file.Name)
	}
	if err := checkTargetCompatibility(file.Contents); err != nil {
		return nil, errors.Wrapf(err, "%s", file.Name)
	}

	f := &InputFile{File: file}
	ehdr := utils.Read[Ehdr](file.Contents)

	if ehdr.ShOff == 0 || uint64(len(file.Contents)) < ehdr.ShOff+shdrSize {
		return nil, errors.Wrapf(ErrMalformedInput, "%s: section header table out of range", file.Name)
	}

	first := utils.Read[Shdr](file.Contents[ehdr.ShOff:])
	numSections := uint64(ehdr.ShNum)
	if numSections == 0 {
		numSections = first.Size
	}
	if numSections == 0 {
		return nil, errors.Wrapf(ErrMalformedInput, "%s: no section headers", file.Name)
	}

	f.ElfSections = make([]Shdr, 0, numSections)
	off := ehdr.ShOff
	for i := uint64(0); i < numSections; i++ {
		if uint64(len(file.Contents)) < off+shdrSize {
			return nil, errors.Wrapf(ErrMalformedInput, "%s: truncated section header table", file.Name)
		}
		f.ElfSections = append(f.ElfSections, utils.Read[Shdr](file.Contents[off:]))
		off += shdrSize
	}

	shstrndx := uint64(ehdr.ShStrndx)
	if ehdr.ShStrndx == uint16(elf.SHN_XINDEX) {
		shstrndx = uint64(first.Link)
	}
	strtab, err := f.bytesFromIndex(int(shstrndx))
	if err != nil {
		return nil, errors.Wrapf(err, "%s: section header string table", file.Name)
	}
	f.ShStrtab = strtab

	return f, nil
}

func (f *InputFile) bytesFromShdr(s *Shdr) ([]byte, error) {
	end := s.Offset + s.Size
	if uint64(len(f.File.Contents)) < end || end < s.Offset {
		return nil, errors.Wrapf(ErrMalformedInput, "%s: section data out of range (offset=%d size=%d)",
			f.File.Name, s.Offset, s.Size)
	}
	return f.File.Contents[s.Offset:end], nil
}

func (f *InputFile) bytesFromIndex(idx int) ([]byte, error) {
	if idx < 0 || idx >= len(f.ElfSections) {
		return nil, errors.Wrapf(ErrMalformedInput, "%s: section index %d out of range", f.File.Name, idx)
	}
	return f.bytesFromShdr(&f.ElfSections[idx])
}

func (f *InputFile) findSection(ty uint32) *Shdr {
	for i := range f.ElfSections {
		if f.ElfSections[i].Type == ty {
			return &f.ElfSections[i]
		}
	}
	return nil
}

func (f *InputFile) fillSymtab(s *Shdr) error {
	bs, err := f.bytesFromShdr(s)
	if err != nil {
		return err
	}
	if len(bs)%symSize != 0 {
		return errors.Wrapf(ErrMalformedInput, "%s: symbol table size not a multiple of entry size", f.File.Name)
	}
	n := len(bs) / symSize
	f.ElfSyms = make([]Sym, n)
	for i := 0; i < n; i++ {
		f.ElfSyms[i] = utils.Read[Sym](bs[i*symSize:])
	}
	return nil
}
