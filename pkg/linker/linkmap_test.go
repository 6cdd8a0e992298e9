package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSectionP2AlignReportsMaxMemberShift(t *testing.T) {
	osec := &OutputSection{
		Members: []*InputSection{
			{name: ".text.a", Align: 4},
			{name: ".text.b", Align: 16},
			{name: ".text.c", Align: 1},
		},
	}
	assert.Equal(t, 4, sectionP2Align(osec)) // 16 == 1<<4
}

func TestSectionP2AlignEmptyIsZero(t *testing.T) {
	assert.Equal(t, 0, sectionP2Align(&OutputSection{}))
}
