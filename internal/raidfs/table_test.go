package raidfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableHeaderRoundtrip(t *testing.T) {
	h := tableHeader{nextFree: 12345}
	buf := h.bytes()
	require.Len(t, buf, headerSize)

	got, ok := parseTableHeader(buf)
	require.True(t, ok)
	require.Equal(t, h, got)
}

func TestParseTableHeaderRejectsBadMagic(t *testing.T) {
	h := tableHeader{nextFree: 1}
	buf := h.bytes()
	buf[0] = 'X'

	_, ok := parseTableHeader(buf)
	require.False(t, ok)
}

func TestParseTableHeaderRejectsBadVersion(t *testing.T) {
	h := tableHeader{nextFree: 1}
	buf := h.bytes()
	buf[8] = tableVersion + 1

	_, ok := parseTableHeader(buf)
	require.False(t, ok)
}

func TestFileEntryRoundtrip(t *testing.T) {
	e := fileEntry{name: "report.csv", offset: 4096, size: 512, used: true}
	buf := e.bytes()
	require.Len(t, buf, entrySize)

	got, err := parseFileEntry(buf)
	require.NoError(t, err)
	require.Equal(t, e, got)
}

func TestFileEntryRoundtripUnused(t *testing.T) {
	e := fileEntry{}
	got, err := parseFileEntry(e.bytes())
	require.NoError(t, err)
	require.Equal(t, e, got)
}

func TestFileEntryNameTruncatedToNameLen(t *testing.T) {
	long := ""
	for i := 0; i < nameLen+10; i++ {
		long += "a"
	}
	e := fileEntry{name: long, used: true}
	got, err := parseFileEntry(e.bytes())
	require.NoError(t, err)
	require.Len(t, got.name, nameLen)
}
