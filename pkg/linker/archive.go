package linker

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Member is one relocatable object pulled out of an archive, still
// associated with the archive it came from for diagnostics.
type Member struct {
	Name     string
	Contents []byte
	Parent   *File
}

// readArchiveMembers walks a Unix `ar` archive (the `!<arch>\n` format),
// skipping the symbol index (`/` or `/SYM64/` members, or BSD `__.SYMDEF`)
// and the GNU long-name string table (`//`), returning every other member
// in archive order.
func readArchiveMembers(file *File) ([]Member, error) {
	const magicLen = 8
	data := magicLen
	var strTab []byte
	var members []Member

	for data+60 <= len(file.Contents) {
		if (data-magicLen)%2 == 1 {
			data++
			if data+60 > len(file.Contents) {
				break
			}
		}

		var hdr ArHdr
		if err := binary.Read(bytes.NewReader(file.Contents[data:]), binary.LittleEndian, &hdr); err != nil {
			return nil, errors.Wrapf(ErrMalformedInput, "%s: truncated archive header", file.Name)
		}
		body := data + 60
		size, err := hdr.size()
		if err != nil {
			return nil, errors.Wrapf(err, "%s", file.Name)
		}
		if body+size > len(file.Contents) {
			return nil, errors.Wrapf(ErrMalformedInput, "%s: archive member overruns file", file.Name)
		}
		end := body + size
		data = end

		if hdr.isStrtab() {
			strTab = file.Contents[body:end]
			continue
		}
		if hdr.isSymtab() {
			continue
		}

		ptr := file.Contents[body:]
		name, err := hdr.readName(strTab, &ptr)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", file.Name)
		}
		if name == "__.SYMDEF" || name == "__.SYMDEF SORTED" {
			continue
		}

		members = append(members, Member{
			Name:     name,
			Contents: file.Contents[body:end],
			Parent:   file,
		})
	}

	return members, nil
}
