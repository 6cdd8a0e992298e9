package linker

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/ksco/uld/pkg/utils"
)

// ReadInputFiles is the Input Loader of SPEC_FULL.md §4.1: it walks the
// link command's positional inputs and -lNAME flags in order, parsing plain
// objects eagerly and deferring archive members to the Archive Resolver.
func ReadInputFiles(ctx *Context, inputs []string) error {
	for _, arg := range inputs {
		if name, ok := strings.CutPrefix(arg, "-l"); ok {
			file, err := FindLibrary(ctx, name)
			if err != nil {
				return err
			}
			if err := readFile(ctx, file, false); err != nil {
				return err
			}
			continue
		}

		file, err := NewFile(arg)
		if err != nil {
			return err
		}
		if err := readFile(ctx, file, false); err != nil {
			return err
		}
	}

	if len(ctx.Objs) == 0 {
		return errors.Wrap(ErrMalformedInput, "no input files")
	}
	return nil
}

func readFile(ctx *Context, file *File, inLib bool) error {
	if ctx.Visited.Contains(file.Name) {
		return nil
	}
	ctx.Visited.Add(file.Name)

	switch GetFileType(file.Contents) {
	case FileTypeObject:
		obj, err := createObjectFile(ctx, file.Contents, file.Name, inLib)
		if err != nil {
			return err
		}
		ctx.Objs = append(ctx.Objs, obj)
		ctx.Log.Debug().Str("file", file.Name).Msg("loaded object")
		return nil

	case FileTypeArchive:
		return loadArchive(ctx, file)

	default:
		return errors.Wrapf(ErrMalformedInput, "%s: unrecognized file type", file.Name)
	}
}

// loadArchive implements the Archive Resolver's fixed point: repeatedly scan
// the not-yet-pulled members for one that defines a name currently in
// UnresolvedNames, load every such member, and repeat until a pass makes no
// progress.
func loadArchive(ctx *Context, file *File) error {
	members, err := readArchiveMembers(file)
	if err != nil {
		return errors.Wrapf(err, "%s", file.Name)
	}
	members = utils.RemoveIf(members, func(m Member) bool {
		return GetFileType(m.Contents) != FileTypeObject
	})

	loaded := make([]bool, len(members))
	for {
		progress := false

		unresolved := make(map[string]bool)
		for _, n := range ctx.Symbols.UnresolvedNames() {
			unresolved[n] = true
		}
		if len(unresolved) == 0 {
			break
		}

		for i, m := range members {
			if loaded[i] {
				continue
			}

			exports, err := exportedDefinedNames(m.Contents)
			if err != nil {
				return errors.Wrapf(err, "%s(%s)", file.Name, m.Name)
			}

			pull := false
			for _, name := range exports {
				if unresolved[name] {
					pull = true
					break
				}
			}
			if !pull {
				continue
			}

			memberFile := &File{Name: file.Name + "(" + m.Name + ")", Contents: m.Contents, Parent: file}
			obj, err := createObjectFile(ctx, memberFile.Contents, memberFile.Name, false)
			if err != nil {
				return err
			}
			ctx.Objs = append(ctx.Objs, obj)
			ctx.Log.Debug().Str("member", memberFile.Name).Msg("pulled archive member")

			loaded[i] = true
			progress = true
		}

		if !progress {
			break
		}
	}

	return nil
}
