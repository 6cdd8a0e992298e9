package linker

import (
	"debug/elf"

	"github.com/ksco/uld/pkg/utils"
	"github.com/pkg/errors"
)

func isGotFamily(ty uint32) bool {
	switch elf.R_X86_64(ty) {
	case elf.R_X86_64_GOTPCREL, elf.R_X86_64_GOTPCRELX, elf.R_X86_64_REX_GOTPCRELX:
		return true
	}
	return false
}

// ScanRelocations is the GOT Builder's first pass over one section's
// relocations (SPEC_FULL.md §4.5): every GOT-family relocation reserves its
// target symbol a slot before any relocation is applied.
func (s *InputSection) ScanRelocations(ctx *Context) error {
	for i := range s.Rels {
		rel := &s.Rels[i]
		if rel.Type == uint32(elf.R_X86_64_NONE) {
			continue
		}
		if int(rel.Sym) >= len(s.File.Symbols) {
			return errors.Wrapf(ErrMalformedInput, "%s: relocation symbol index %d out of range",
				s.File.DisplayName(), rel.Sym)
		}

		if isGotFamily(rel.Type) {
			ctx.Got.AddSymbol(s.File.Symbols[rel.Sym])
			continue
		}

		switch elf.R_X86_64(rel.Type) {
		case elf.R_X86_64_64, elf.R_X86_64_PC32, elf.R_X86_64_PLT32,
			elf.R_X86_64_GOTOFF64, elf.R_X86_64_GOTPC32, elf.R_X86_64_32, elf.R_X86_64_32S:
			// Applied directly against the symbol's final address; no GOT slot.
		default:
			return errors.Wrapf(ErrUnsupportedReloc, "%s+%#x: relocation type %d",
				s.Name(), rel.Offset, rel.Type)
		}
	}
	return nil
}

// WriteTo copies the section's content into buf and, for allocated
// sections, applies its relocations against the linked addresses.
func (s *InputSection) WriteTo(ctx *Context, buf []byte) error {
	if s.Kind == SectionNobits {
		if !utils.AllZeros(s.Content) {
			return errors.Wrapf(ErrMalformedInput, "%s: nobits section carries non-zero content", s.Name())
		}
		return nil
	}
	copy(buf, s.Content)
	return s.applyRelocations(ctx, buf)
}

func (s *InputSection) applyRelocations(ctx *Context, buf []byte) error {
	selfAddr, err := s.GetAddr()
	if err != nil {
		return err
	}

	for i := range s.Rels {
		rel := &s.Rels[i]
		if rel.Type == uint32(elf.R_X86_64_NONE) {
			continue
		}
		if uint64(rel.Offset) >= uint64(len(buf)) {
			return errors.Wrapf(ErrMalformedInput, "%s+%#x: relocation offset out of range",
				s.Name(), rel.Offset)
		}

		sym := s.File.Symbols[rel.Sym]
		symAddr, err := sym.Address()
		if err != nil {
			return errors.Wrapf(err, "%s+%#x", s.Name(), rel.Offset)
		}

		P := selfAddr + rel.Offset
		S := symAddr
		A := uint64(rel.Addend)
		loc := buf[rel.Offset:]

		switch elf.R_X86_64(rel.Type) {
		case elf.R_X86_64_64:
			utils.Write[uint64](loc, S+A)

		case elf.R_X86_64_PC32, elf.R_X86_64_PLT32:
			val := uint64(int64(S+A) - int64(P))
			if !utils.FitsSigned32(val) {
				return relocOverflow(s, rel, P, S, A, "32-bit PC-relative")
			}
			utils.Write[uint32](loc, uint32(val))

		case elf.R_X86_64_GOTPCREL, elf.R_X86_64_GOTPCRELX, elf.R_X86_64_REX_GOTPCRELX:
			G := ctx.Got.Addr(sym)
			val := uint64(int64(G+A) - int64(P))
			if !utils.FitsSigned32(val) {
				return relocOverflow(s, rel, P, S, A, "GOT-relative")
			}
			utils.Write[uint32](loc, uint32(val))

		case elf.R_X86_64_GOTOFF64:
			utils.Write[uint64](loc, S+A-ctx.Got.Shdr.Addr)

		case elf.R_X86_64_GOTPC32:
			val := uint64(int64(ctx.Got.Shdr.Addr+A) - int64(P))
			if !utils.FitsSigned32(val) {
				return relocOverflow(s, rel, P, S, A, "GOTPC32")
			}
			utils.Write[uint32](loc, uint32(val))

		case elf.R_X86_64_32:
			val := S + A
			if !utils.FitsUnsigned32(val) {
				return relocOverflow(s, rel, P, S, A, "unsigned 32-bit")
			}
			utils.Write[uint32](loc, uint32(val))

		case elf.R_X86_64_32S:
			val := S + A
			if !utils.FitsSigned32As32S(val) {
				return relocOverflow(s, rel, P, S, A, "signed 32-bit")
			}
			utils.Write[uint32](loc, uint32(val))

		default:
			return errors.Wrapf(ErrUnsupportedReloc, "%s+%#x: relocation type %d",
				s.Name(), rel.Offset, rel.Type)
		}
	}
	return nil
}

func relocOverflow(s *InputSection, rel *Rela, p, sAddr, a uint64, width string) error {
	return errors.Wrapf(ErrRelocationOverflow,
		"%s+%#x: %s relocation against symbol at %#x (P=%#x A=%#x) out of range",
		s.Name(), rel.Offset, width, sAddr, p, a)
}
