package linker

import (
	"debug/elf"

	"github.com/ksco/uld/pkg/utils"
	"github.com/pkg/errors"
)

// ObjectFile is the InputObject of SPEC_FULL.md §3: one parsed relocatable,
// its sections, and its symbols in original index order.
type ObjectFile struct {
	InputFile

	Sections []*InputSection // index-aligned with ElfSections; nil where skipped
	Symbols  []*Symbol        // index-aligned with ElfSyms; locals point at LocalSyms
	LocalSyms []Symbol
}

const relaSize = 24

func createObjectFile(ctx *Context, contents []byte, name string, inLib bool) (*ObjectFile, error) {
	inputFile, err := newInputFile(&File{Name: name, Contents: contents})
	if err != nil {
		return nil, err
	}

	obj := &ObjectFile{InputFile: *inputFile}
	obj.IsAlive = !inLib
	obj.Priority = ctx.FilePriority
	ctx.FilePriority++

	if err := obj.parse(ctx); err != nil {
		return nil, errors.Wrapf(err, "%s", name)
	}
	return obj, nil
}

func (o *ObjectFile) DisplayName() string { return o.File.Name }

func (o *ObjectFile) parse(ctx *Context) error {
	if symtab := o.findSection(uint32(elf.SHT_SYMTAB)); symtab != nil {
		o.FirstGlobal = int64(symtab.Info)
		if err := o.fillSymtab(symtab); err != nil {
			return err
		}
		strtab, err := o.bytesFromIndex(int(symtab.Link))
		if err != nil {
			return err
		}
		o.SymbolStrtab = strtab
	}

	if err := o.initializeSections(ctx); err != nil {
		return err
	}
	if err := o.initializeLocalSymbols(); err != nil {
		return err
	}
	if err := o.resolveGlobalSymbols(ctx); err != nil {
		return err
	}
	return nil
}

func (o *ObjectFile) initializeSections(ctx *Context) error {
	o.Sections = make([]*InputSection, len(o.ElfSections))

	for i := range o.ElfSections {
		shdr := &o.ElfSections[i]
		switch elf.SectionType(shdr.Type) {
		case elf.SHT_NULL, elf.SHT_SYMTAB, elf.SHT_STRTAB, elf.SHT_REL, elf.SHT_RELA, elf.SHT_GROUP, elf.SHT_SYMTAB_SHNDX:
			continue
		}
		if shdr.Flags&uint64(SHF_EXCLUDE) != 0 {
			continue
		}

		name := getStrtabName(o.ShStrtab, shdr.Name)
		sec, err := newInputSection(o, int64(i), name)
		if err != nil {
			return err
		}
		o.Sections[i] = sec
	}

	// Associate each SHT_RELA section with its target InputSection.
	for i := range o.ElfSections {
		shdr := &o.ElfSections[i]
		if shdr.Type != uint32(elf.SHT_RELA) {
			continue
		}
		if shdr.Info >= uint32(len(o.Sections)) {
			return errors.Wrapf(ErrMalformedInput, "%s: relocation section targets invalid index", o.DisplayName())
		}
		target := o.Sections[shdr.Info]
		if target == nil {
			continue
		}
		bs, err := o.bytesFromShdr(shdr)
		if err != nil {
			return err
		}
		if len(bs)%relaSize != 0 {
			return errors.Wrapf(ErrMalformedInput, "%s: relocation section size not a multiple of entry size", o.DisplayName())
		}
		n := len(bs) / relaSize
		target.Rels = make([]Rela, n)
		for j := 0; j < n; j++ {
			target.Rels[j] = utils.Read[Rela](bs[j*relaSize:])
		}
	}

	return nil
}

func (o *ObjectFile) sectionForSym(esym *Sym) *InputSection {
	if int(esym.Shndx) >= len(o.Sections) {
		return nil
	}
	return o.Sections[esym.Shndx]
}

func (o *ObjectFile) initializeLocalSymbols() error {
	o.LocalSyms = make([]Symbol, o.FirstGlobal)
	for i := int64(0); i < o.FirstGlobal; i++ {
		if i == 0 {
			continue // index 0 is always the null symbol
		}
		esym := &o.ElfSyms[i]
		name := getStrtabName(o.SymbolStrtab, esym.Name)
		if name == "" && esym.Type() == uint8(elf.STT_SECTION) {
			if sec := o.sectionForSym(esym); sec != nil {
				name = sec.Name()
			}
		}

		sym := &o.LocalSyms[i]
		sym.Name = name
		sym.File = o
		sym.GotIndex = -1
		if esym.IsAbs() {
			sym.Absolute = true
			sym.Value = esym.Val
		} else if !esym.IsUndef() {
			sym.Section = o.sectionForSym(esym)
			sym.Value = esym.Val
		}
	}
	return nil
}

func (o *ObjectFile) resolveGlobalSymbols(ctx *Context) error {
	o.Symbols = make([]*Symbol, len(o.ElfSyms))
	for i := int64(0); i < o.FirstGlobal; i++ {
		o.Symbols[i] = &o.LocalSyms[i]
	}

	for i := o.FirstGlobal; i < int64(len(o.ElfSyms)); i++ {
		esym := &o.ElfSyms[i]
		name := getStrtabName(o.SymbolStrtab, esym.Name)
		weak := esym.IsWeak()

		if esym.IsUndef() {
			o.Symbols[i] = ctx.Symbols.Reference(name, weak)
			continue
		}

		strength := StrengthStrong
		if weak {
			strength = StrengthWeak
		}

		var sec *InputSection
		if !esym.IsAbs() {
			sec = o.sectionForSym(esym)
		}

		if err := ctx.Symbols.Define(name, strength, o, sec, esym.Val, esym.IsAbs(), esym.Type()); err != nil {
			return err
		}
		sym, _ := ctx.Symbols.Lookup(name)
		o.Symbols[i] = sym
	}
	return nil
}

// exportedDefinedNames peeks at an object's symbol table without doing a
// full ObjectFile parse, returning every globally-visible defined symbol
// name. Used by the Archive Resolver to decide whether a not-yet-loaded
// member satisfies a currently-unresolved reference.
func exportedDefinedNames(contents []byte) ([]string, error) {
	f, err := newInputFile(&File{Contents: contents})
	if err != nil {
		return nil, err
	}
	symtab := f.findSection(uint32(elf.SHT_SYMTAB))
	if symtab == nil {
		return nil, nil
	}
	firstGlobal := int64(symtab.Info)
	if err := f.fillSymtab(symtab); err != nil {
		return nil, err
	}
	strtab, err := f.bytesFromIndex(int(symtab.Link))
	if err != nil {
		return nil, err
	}

	var names []string
	for i := firstGlobal; i < int64(len(f.ElfSyms)); i++ {
		esym := &f.ElfSyms[i]
		if esym.IsUndef() || esym.IsLocal() {
			continue
		}
		names = append(names, getStrtabName(strtab, esym.Name))
	}
	return names, nil
}
