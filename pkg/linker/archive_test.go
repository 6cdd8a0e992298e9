package linker

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildArMember serializes one GNU-style ar member (60-byte header, name
// terminated with "/", content padded to an even boundary).
func buildArMember(name string, content []byte) []byte {
	var hdr [60]byte
	nameField := name
	if name != "/" && name != "//" {
		nameField = name + "/"
	}
	copy(hdr[0:16], fmt.Sprintf("%-16s", nameField))
	copy(hdr[16:28], fmt.Sprintf("%-12d", 0))
	copy(hdr[28:34], "0     ")
	copy(hdr[34:40], "0     ")
	copy(hdr[40:48], "100644  ")
	copy(hdr[48:58], fmt.Sprintf("%-10d", len(content)))
	hdr[58], hdr[59] = '`', '\n'

	buf := append([]byte{}, hdr[:]...)
	buf = append(buf, content...)
	if len(content)%2 == 1 {
		buf = append(buf, '\n')
	}
	return buf
}

func buildArchive(members map[string][]byte, order []string) []byte {
	buf := []byte("!<arch>\n")
	for _, name := range order {
		buf = append(buf, buildArMember(name, members[name])...)
	}
	return buf
}

func TestReadArchiveMembers(t *testing.T) {
	members := map[string][]byte{"a.o": []byte("AAAA"), "b.o": []byte("BBB")}
	order := []string{"a.o", "b.o"}
	data := buildArchive(members, order)

	got, err := readArchiveMembers(&File{Name: "lib.a", Contents: data})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a.o", got[0].Name)
	assert.Equal(t, []byte("AAAA"), got[0].Contents)
	assert.Equal(t, "b.o", got[1].Name)
	assert.Equal(t, []byte("BBB"), got[1].Contents)
}

func TestReadArchiveMembersSkipsSymbolIndex(t *testing.T) {
	buf := []byte("!<arch>\n")
	buf = append(buf, buildArMember("/", []byte("ignored-symtab"))...)
	buf = append(buf, buildArMember("real.o", []byte("X"))...)

	got, err := readArchiveMembers(&File{Name: "lib.a", Contents: buf})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "real.o", got[0].Name)
}

func TestReadArchiveMembersIgnoresTrailingGarbage(t *testing.T) {
	// A fragment too short to hold another 60-byte header is silently
	// dropped rather than treated as an error, matching what real archives
	// look like at EOF (no member header ever starts there).
	data := append([]byte("!<arch>\n"), []byte("short")...)
	got, err := readArchiveMembers(&File{Name: "lib.a", Contents: data})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadArchiveMembersRejectsOverrunMember(t *testing.T) {
	var hdr [60]byte
	copy(hdr[0:16], fmt.Sprintf("%-15s/", "bad.o"))
	copy(hdr[48:58], fmt.Sprintf("%-10d", 999999))
	hdr[58], hdr[59] = '`', '\n'
	data := append([]byte("!<arch>\n"), hdr[:]...)

	_, err := readArchiveMembers(&File{Name: "lib.a", Contents: data})
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestArHdrSizeRejectsGarbage(t *testing.T) {
	var hdr ArHdr
	copy(hdr.Size[:], "not-a-num ")
	_, err := hdr.size()
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestArHdrReadNameShortForm(t *testing.T) {
	var hdr ArHdr
	copy(hdr.Name[:], "foo.o/          ")
	name, err := hdr.readName(nil, &[]byte{})
	require.NoError(t, err)
	assert.Equal(t, "foo.o", name)
}

func TestArHdrReadNameSysVLongForm(t *testing.T) {
	strTab := []byte("foo.o/\nbar.o/\n")
	var hdr ArHdr
	copy(hdr.Name[:], "/7              ")
	name, err := hdr.readName(strTab, &[]byte{})
	require.NoError(t, err)
	assert.Equal(t, "bar.o", name)
}

func TestBuildArchiveRoundTripIsWellFormed(t *testing.T) {
	data := buildArchive(map[string][]byte{"x.o": []byte("Z")}, []string{"x.o"})
	assert.True(t, bytes.HasPrefix(data, []byte("!<arch>\n")))

	got, err := readArchiveMembers(&File{Name: "x.a", Contents: data})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x.o", got[0].Name)
	assert.Equal(t, []byte("Z"), got[0].Contents)
}
