package linker

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LinkMap is the diagnostic report written to -Map PATH (SPEC_FULL.md
// §4.10). It is never read back by the linker; purely for humans, mirroring
// `ld -Map` / `mold -Map`.
type LinkMap struct {
	Output string        `yaml:"output"`
	Entry  uint64         `yaml:"entry"`
	Segments []MapSegment `yaml:"segments"`
	Sections []MapSection `yaml:"sections"`
	Symbols  []MapSymbol  `yaml:"symbols"`
}

type MapSegment struct {
	Name    string `yaml:"name"`
	VAddr   uint64 `yaml:"vaddr"`
	FileSize uint64 `yaml:"filesz"`
	MemSize  uint64 `yaml:"memsz"`
	Flags   string `yaml:"flags"`
}

type MapSection struct {
	Name    string `yaml:"name"`
	VAddr   uint64 `yaml:"vaddr"`
	Size    uint64 `yaml:"size"`
	Align   uint64 `yaml:"align"`
	P2Align int    `yaml:"p2align"` // readelf/objdump-style "2**n" alignment
}

type MapSymbol struct {
	Name    string `yaml:"name"`
	Address uint64 `yaml:"address"`
	Object  string `yaml:"object,omitempty"`
}

// WriteLinkMap builds a LinkMap from ctx's finished layout and marshals it
// to ctx.Arg.MapFile. Must run after Layout and the symbol/section CopyBuf
// passes have fixed final addresses.
func WriteLinkMap(ctx *Context) error {
	m := LinkMap{
		Output: ctx.Arg.Output,
		Entry:  ctx.EntryAddr,
	}

	for _, seg := range ctx.Segments {
		m.Segments = append(m.Segments, MapSegment{
			Name:     seg.Perm.String(),
			VAddr:    seg.Phdr.VAddr,
			FileSize: seg.Phdr.FileSize,
			MemSize:  seg.Phdr.MemSize,
			Flags:    phdrFlagsString(seg.Phdr.Flags),
		})
	}

	for _, osec := range ctx.OutputSections {
		if len(osec.Members) == 0 {
			continue
		}
		m.Sections = append(m.Sections, MapSection{
			Name:    osec.Name,
			VAddr:   osec.Shdr.Addr,
			Size:    osec.Shdr.Size,
			Align:   osec.Shdr.AddrAlign,
			P2Align: sectionP2Align(osec),
		})
	}

	for _, name := range ctx.Symbols.Names() {
		sym, _ := ctx.Symbols.Lookup(name)
		addr, err := sym.Address()
		if err != nil {
			continue // symbols whose defining section was not laid out have no address
		}
		m.Symbols = append(m.Symbols, MapSymbol{
			Name:    name,
			Address: addr,
			Object:  displayName(sym.File),
		})
	}

	out, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshal link map")
	}

	if err := os.WriteFile(ctx.Arg.MapFile, out, 0644); err != nil {
		return errors.Wrapf(ErrIOFailure, "write map %s: %v", ctx.Arg.MapFile, err)
	}
	return nil
}

// sectionP2Align is the alignment of osec's most-aligned member, expressed
// as a power-of-two shift the way readelf's "Align" column reports it.
func sectionP2Align(o *OutputSection) int {
	var best int
	for _, m := range o.Members {
		if p := m.p2align(); p > best {
			best = p
		}
	}
	return best
}

func phdrFlagsString(flags uint32) string {
	s := ""
	if flags&0x4 != 0 { // PF_R
		s += "R"
	}
	if flags&0x2 != 0 { // PF_W
		s += "W"
	}
	if flags&0x1 != 0 { // PF_X
		s += "X"
	}
	return s
}
