package linker

import "debug/elf"

// Fixed parameters of the ELF64 x86_64 static-executable target this linker
// emits. Only this combination is supported; anything else is rejected by
// the Input Loader with ErrUnsupportedTarget.
const (
	PageSize  = 0x1000
	ImageBase = uint64(0x400000)
)

// SHF_EXCLUDE marks a section for removal from the output (LLVM emits it on
// a handful of ignorable sections). Not defined by debug/elf.
const SHF_EXCLUDE uint32 = 0x80000000

// Ehdr mirrors struct Elf64_Ehdr.
type Ehdr struct {
	Ident     [16]uint8
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	PhOff     uint64
	ShOff     uint64
	Flags     uint32
	EhSize    uint16
	PhEntSize uint16
	PhNum     uint16
	ShEntSize uint16
	ShNum     uint16
	ShStrndx  uint16
}

// Shdr mirrors struct Elf64_Shdr.
type Shdr struct {
	Name      uint32
	Type      uint32
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	AddrAlign uint64
	EntSize   uint64
}

// Phdr mirrors struct Elf64_Phdr.
type Phdr struct {
	Type     uint32
	Flags    uint32
	Offset   uint64
	VAddr    uint64
	PAddr    uint64
	FileSize uint64
	MemSize  uint64
	Align    uint64
}

// Sym mirrors struct Elf64_Sym.
type Sym struct {
	Name  uint32
	Info  uint8
	Other uint8
	Shndx uint16
	Val   uint64
	Size  uint64
}

func (s *Sym) IsUndef() bool { return s.Shndx == uint16(elf.SHN_UNDEF) }
func (s *Sym) IsAbs() bool   { return s.Shndx == uint16(elf.SHN_ABS) }
func (s *Sym) IsDefined() bool {
	return !s.IsUndef()
}

func (s *Sym) Type() uint8 { return s.Info & 0xf }
func (s *Sym) Bind() uint8 { return s.Info >> 4 }
func (s *Sym) IsWeak() bool {
	return s.Bind() == uint8(elf.STB_WEAK)
}
func (s *Sym) IsLocal() bool {
	return s.Bind() == uint8(elf.STB_LOCAL)
}
func (s *Sym) IsUndefWeak() bool { return s.IsUndef() && s.IsWeak() }

// Rela mirrors struct Elf64_Rela. This linker only supports RELA-style
// relocations (explicit addends), which is what every modern x86_64 ELF
// toolchain emits.
type Rela struct {
	Offset uint64
	Type   uint32
	Sym    uint32
	Addend int64
}

func getStrtabName(strtab []byte, offset uint32) string {
	end := offset
	for end < uint32(len(strtab)) && strtab[end] != 0 {
		end++
	}
	return string(strtab[offset:end])
}

func writeStrtabName(buf []byte, str string) int {
	copy(buf, str)
	buf[len(str)] = 0
	return len(str) + 1
}
