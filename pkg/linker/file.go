package linker

import (
	"os"

	"github.com/pkg/errors"
)

// File is a fully read-in input file: either a relocatable object or an
// archive. Contents backs every InputSection's byte slice for the lifetime
// of the link, per the arena design in SPEC_FULL.md §9.
type File struct {
	Name     string
	Contents []byte

	// Parent is set on archive members, naming the archive they came from.
	Parent *File
}

func NewFile(filename string) (*File, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(ErrIOFailure, "read %s: %s", filename, err)
	}
	return &File{Name: filename, Contents: contents}, nil
}

// OpenLibrary reads path and returns nil (not an error) if it does not
// exist, so FindLibrary can fall through to the next search directory.
func OpenLibrary(path string) (*File, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(ErrIOFailure, "read %s: %s", path, err)
	}
	return &File{Name: path, Contents: contents}, nil
}

// FindLibrary searches ctx's library directories in order for libNAME.a.
func FindLibrary(ctx *Context, name string) (*File, error) {
	for _, dir := range ctx.Arg.LibraryPaths {
		stem := dir + "/lib" + name + ".a"
		f, err := OpenLibrary(stem)
		if err != nil {
			return nil, err
		}
		if f != nil {
			return f, nil
		}
	}
	return nil, errors.Errorf("library not found: -l%s", name)
}
