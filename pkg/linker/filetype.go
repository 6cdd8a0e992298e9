package linker

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

type FileType int8

const (
	FileTypeUnknown FileType = iota
	FileTypeEmpty
	FileTypeObject
	FileTypeArchive
)

var elfMagic = [4]byte{0x7f, 'E', 'L', 'F'}

func checkMagic(contents []byte) bool {
	return len(contents) >= 4 && bytes.Equal(contents[:4], elfMagic[:])
}

// GetFileType classifies contents without fully parsing it: ELF ET_REL
// objects, ar archives, empty input, or unknown. Only the ELF magic and
// e_type are looked at; class, byte order and machine are checked later by
// checkTargetCompatibility.
func GetFileType(contents []byte) FileType {
	if len(contents) == 0 {
		return FileTypeEmpty
	}

	if checkMagic(contents) {
		if len(contents) < 18 {
			return FileTypeUnknown
		}
		et := elf.Type(binary.LittleEndian.Uint16(contents[16:]))
		if et == elf.ET_REL {
			return FileTypeObject
		}
		return FileTypeUnknown
	}

	if bytes.HasPrefix(contents, []byte("!<arch>\n")) {
		return FileTypeArchive
	}

	return FileTypeUnknown
}

// checkTargetCompatibility enforces the single supported target: ELF64,
// little-endian, x86_64, relocatable.
func checkTargetCompatibility(contents []byte) error {
	if len(contents) < 20 {
		return ErrMalformedInput
	}
	if !checkMagic(contents) {
		return ErrMalformedInput
	}
	if contents[elf.EI_CLASS] != byte(elf.ELFCLASS64) {
		return ErrUnsupportedTarget
	}
	if contents[elf.EI_DATA] != byte(elf.ELFDATA2LSB) {
		return ErrUnsupportedTarget
	}
	machine := elf.Machine(binary.LittleEndian.Uint16(contents[18:]))
	if machine != elf.EM_X86_64 {
		return ErrUnsupportedTarget
	}
	et := elf.Type(binary.LittleEndian.Uint16(contents[16:]))
	if et != elf.ET_REL {
		return ErrUnsupportedTarget
	}
	return nil
}
