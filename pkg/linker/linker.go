package linker

import (
	"debug/elf"
	"os"

	"github.com/pkg/errors"
)

// Link runs the full pipeline of SPEC_FULL.md §2 over ctx.Arg and the
// positional/library inputs already resolved into args, in stage order:
// Input Loader, Relocation Scan, Symbol Table finalization, Layout Engine,
// ELF Writer. ctx.Arg must be populated by the caller before Link runs.
func Link(ctx *Context, args []string) error {
	ctx.Ehdr = NewOutputEhdr()
	ctx.Phdr = NewOutputPhdr()
	ctx.Shdr = NewOutputShdr()
	ctx.Got = NewGotSection()
	ctx.Strtab = NewOutputStrtab()
	ctx.Shstrtab = NewOutputShstrtab()
	ctx.Symtab = NewOutputSymtab(ctx.Strtab)

	if err := ReadInputFiles(ctx, args); err != nil {
		return err
	}

	if err := scanAllRelocations(ctx); err != nil {
		return err
	}

	if err := ctx.Symbols.Finalize(); err != nil {
		return err
	}

	BinOutputSections(ctx)

	if err := Layout(ctx); err != nil {
		return err
	}

	fileSize := fileSizeOf(ctx)
	ctx.Buf = make([]byte, fileSize)

	for _, chunk := range ctx.Chunks {
		if err := chunk.CopyBuf(ctx); err != nil {
			return err
		}
	}

	if ctx.Arg.MapFile != "" {
		if err := WriteLinkMap(ctx); err != nil {
			return err
		}
	}

	return writeOutput(ctx)
}

// scanAllRelocations walks every alive object's sections, populating the GOT
// Builder's slot list and validating every relocation's symbol index and
// kind before the Layout Engine runs.
func scanAllRelocations(ctx *Context) error {
	for _, obj := range ctx.Objs {
		if !obj.IsAlive {
			continue
		}
		for _, isec := range obj.Sections {
			if isec == nil || isec.Kind == SectionIgnored {
				continue
			}
			if err := isec.ScanRelocations(ctx); err != nil {
				return errors.Wrapf(err, "%s:%s", obj.DisplayName(), isec.Name())
			}
		}
	}
	return nil
}

// fileSizeOf returns the size of the final output file: the end of the
// non-allocated trailer, which the Layout Engine places last.
func fileSizeOf(ctx *Context) uint64 {
	var end uint64
	for _, chunk := range ctx.Chunks {
		shdr := chunk.GetShdr()
		if shdr.Type == uint32(elf.SHT_NOBITS) { // contributes no file bytes
			continue
		}
		if e := shdr.Offset + shdr.Size; e > end {
			end = e
		}
	}
	return end
}

func writeOutput(ctx *Context) error {
	f, err := os.OpenFile(ctx.Arg.Output, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0777)
	if err != nil {
		return errors.Wrapf(ErrIOFailure, "open %s: %v", ctx.Arg.Output, err)
	}
	defer f.Close()

	if _, err := f.Write(ctx.Buf); err != nil {
		return errors.Wrapf(ErrIOFailure, "write %s: %v", ctx.Arg.Output, err)
	}
	return nil
}
