package linker

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ArHdr mirrors the 60-byte Unix ar per-member header.
type ArHdr struct {
	Name [16]byte
	Date [12]byte
	Uid  [6]byte
	Gid  [6]byte
	Mode [8]byte
	Size [10]byte
	Fmag [2]byte
}

func (a *ArHdr) startsWith(s string) bool {
	return len(a.Name) >= len(s) && string(a.Name[:len(s)]) == s
}

func (a *ArHdr) isStrtab() bool { return a.startsWith("// ") }
func (a *ArHdr) isSymtab() bool {
	return a.startsWith("/ ") || a.startsWith("/SYM64/ ")
}

// readName resolves this header's member name, handling BSD long names
// (`#1/N`), SysV long names (`/N` into the string table), and short names.
func (a *ArHdr) readName(strTab []byte, ptr *[]byte) (string, error) {
	if a.startsWith("#1/") {
		n, err := strconv.Atoi(strings.TrimSpace(string(a.Name[3:])))
		if err != nil {
			return "", errors.Wrap(ErrMalformedInput, "bad BSD archive name length")
		}
		if n < 0 || n > len(*ptr) {
			return "", errors.Wrap(ErrMalformedInput, "BSD archive name out of range")
		}
		name := (*ptr)[:n]
		*ptr = (*ptr)[n:]
		if end := bytes.IndexByte(name, 0); end != -1 {
			name = name[:end]
		}
		return string(name), nil
	}

	if a.startsWith("/") {
		start, err := strconv.Atoi(strings.TrimSpace(string(a.Name[1:])))
		if err != nil {
			return "", errors.Wrap(ErrMalformedInput, "bad SysV archive name offset")
		}
		if start < 0 || start > len(strTab) {
			return "", errors.Wrap(ErrMalformedInput, "SysV archive name out of range")
		}
		rel := bytes.Index(strTab[start:], []byte("/\n"))
		if rel == -1 {
			return "", errors.Wrap(ErrMalformedInput, "unterminated SysV archive name")
		}
		return string(strTab[start : start+rel]), nil
	}

	if end := bytes.IndexByte(a.Name[:], '/'); end != -1 {
		return string(a.Name[:end]), nil
	}
	return strings.TrimRight(string(a.Name[:]), " "), nil
}

func (a *ArHdr) size() (int, error) {
	sz, err := strconv.Atoi(strings.TrimSpace(string(a.Size[:])))
	if err != nil || sz < 0 {
		return 0, errors.Wrap(ErrMalformedInput, "bad archive member size")
	}
	return sz, nil
}
