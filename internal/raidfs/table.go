package raidfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// The adapter reserves a fixed-size table at the front of the volume's byte
// space for a flat file directory: one header followed by a fixed number of
// file-entry slots. Everything after the table is allocated to file contents
// in append-only fashion, tracked by header.nextFree.
const (
	maxFiles   = 128
	nameLen    = 64
	headerSize = 32
	entrySize  = 88
	tableSize  = headerSize + entrySize*maxFiles

	tableVersion byte = 1
)

var tableMagic = [8]byte{'R', 'A', 'I', 'D', 'F', 'S', '1', 0}

type tableHeader struct {
	nextFree uint64
}

type fileEntry struct {
	name   string
	offset uint64
	size   uint64
	used   bool
}

func (h tableHeader) bytes() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:8], tableMagic[:])
	buf[8] = tableVersion
	binary.LittleEndian.PutUint64(buf[16:24], h.nextFree)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(maxFiles))
	return buf
}

func parseTableHeader(buf []byte) (tableHeader, bool) {
	if len(buf) < headerSize {
		return tableHeader{}, false
	}
	if !bytes.Equal(buf[0:8], tableMagic[:]) {
		return tableHeader{}, false
	}
	if buf[8] != tableVersion {
		return tableHeader{}, false
	}
	if binary.LittleEndian.Uint32(buf[24:28]) != uint32(maxFiles) {
		return tableHeader{}, false
	}
	return tableHeader{nextFree: binary.LittleEndian.Uint64(buf[16:24])}, true
}

func (e fileEntry) bytes() []byte {
	buf := make([]byte, entrySize)
	if e.used {
		buf[0] = 1
	}
	binary.LittleEndian.PutUint64(buf[8:16], e.offset)
	binary.LittleEndian.PutUint64(buf[16:24], e.size)
	name := []byte(e.name)
	if len(name) > nameLen {
		name = name[:nameLen]
	}
	copy(buf[24:24+len(name)], name)
	return buf
}

func parseFileEntry(buf []byte) (fileEntry, error) {
	if len(buf) < entrySize {
		return fileEntry{}, fmt.Errorf("raidfs: short entry record (%d bytes)", len(buf))
	}
	nameField := buf[24 : 24+nameLen]
	end := bytes.IndexByte(nameField, 0)
	if end < 0 {
		end = nameLen
	}
	return fileEntry{
		used:   buf[0] == 1,
		offset: binary.LittleEndian.Uint64(buf[8:16]),
		size:   binary.LittleEndian.Uint64(buf[16:24]),
		name:   string(nameField[:end]),
	}, nil
}
