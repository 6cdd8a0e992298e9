package linker

import (
	"debug/elf"
	"math/bits"
	"strings"

	"github.com/pkg/errors"
)

// SectionKind is the InputSection.kind attribute of SPEC_FULL.md §3.
type SectionKind int8

const (
	SectionProgbits SectionKind = iota
	SectionNobits
	SectionNote
	SectionIgnored
)

// Permission is the InputSection.permission-class attribute.
type Permission int8

const (
	PermR Permission = iota
	PermRX
	PermRW
	PermRWZero // BSS-like: read-write, zero-initialized, no file content
)

func (p Permission) String() string {
	switch p {
	case PermR:
		return "R"
	case PermRX:
		return "RX"
	case PermRW:
		return "RW"
	case PermRWZero:
		return "RW-zero"
	}
	return "?"
}

// ignoredPrefixes lists section names excluded from layout but still parsed
// for symbol cross-referencing, per SPEC_FULL.md §4.1.
var ignoredPrefixes = []string{".debug", ".eh_frame", ".comment", ".note.GNU-stack"}

func isIgnoredSectionName(name string) bool {
	for _, p := range ignoredPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// InputSection is one section contributed by one InputObject.
type InputSection struct {
	File  *ObjectFile
	Shndx int64

	name       string
	Kind       SectionKind
	Permission Permission
	Align      uint64 // power of two
	Content    []byte // nil for nobits
	Size       uint64

	Rels []Rela

	// OutputSection/Offset are filled in by the Layout Engine.
	OutputSection *OutputSection
	Offset        uint32
}

func p2AlignToBytes(shdr *Shdr) uint64 {
	if shdr.AddrAlign == 0 {
		return 1
	}
	return shdr.AddrAlign
}

func classifyKind(shdr *Shdr, name string) SectionKind {
	if isIgnoredSectionName(name) {
		return SectionIgnored
	}
	if shdr.Type == uint32(elf.SHT_NOBITS) {
		return SectionNobits
	}
	if shdr.Type == uint32(elf.SHT_NOTE) {
		return SectionNote
	}
	return SectionProgbits
}

func classifyPermission(shdr *Shdr, kind SectionKind) Permission {
	if kind == SectionNobits {
		return PermRWZero
	}
	write := shdr.Flags&uint64(elf.SHF_WRITE) != 0
	exec := shdr.Flags&uint64(elf.SHF_EXECINSTR) != 0
	switch {
	case exec:
		return PermRX
	case write:
		return PermRW
	default:
		return PermR
	}
}

func newInputSection(obj *ObjectFile, shndx int64, name string) (*InputSection, error) {
	shdr := &obj.ElfSections[shndx]

	s := &InputSection{
		File:  obj,
		Shndx: shndx,
		name:  name,
		Size:  shdr.Size,
		Align: p2AlignToBytes(shdr),
	}
	s.Kind = classifyKind(shdr, name)
	s.Permission = classifyPermission(shdr, s.Kind)

	if s.Kind != SectionNobits {
		content, err := obj.bytesFromShdr(shdr)
		if err != nil {
			return nil, err
		}
		s.Content = content
	}

	return s, nil
}

func (s *InputSection) Shdr() *Shdr { return &s.File.ElfSections[s.Shndx] }

func (s *InputSection) Name() string { return s.name }

// CanonicalName maps an input section name to its output section name per
// SPEC_FULL.md §4.4 (e.g. ".text.foo" -> ".text").
func CanonicalName(name string) string {
	for _, stem := range []string{".text", ".rodata", ".data", ".bss", ".init_array", ".fini_array"} {
		if name == stem || strings.HasPrefix(name, stem+".") {
			return stem
		}
	}
	return name
}

// GetAddr returns the section's final virtual address; it must already be
// placed by the Layout Engine.
func (s *InputSection) GetAddr() (uint64, error) {
	if s.OutputSection == nil {
		return 0, errors.Errorf("section %s of %s not laid out", s.name, s.File.DisplayName())
	}
	return s.OutputSection.Shdr.Addr + uint64(s.Offset), nil
}

func (s *InputSection) p2align() int {
	if s.Align <= 1 {
		return 0
	}
	return bits.TrailingZeros64(s.Align)
}
