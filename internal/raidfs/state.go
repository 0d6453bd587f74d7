package raidfs

import "github.com/Jan-Chojnacki/Stripe-Slinger/internal/volume"

// loadTable reads the file table from the front of vol's byte space,
// initializing a fresh empty table if none was found (first mount).
func loadTable(vol *volume.Volume) (tableHeader, []fileEntry, error) {
	buf := make([]byte, tableSize)
	vol.ReadBytes(0, buf)

	header, ok := parseTableHeader(buf[:headerSize])
	entries := make([]fileEntry, maxFiles)
	if !ok {
		header = tableHeader{nextFree: tableSize}
		for i := range entries {
			entries[i] = fileEntry{}
		}
		return header, entries, persistTable(vol, header, entries)
	}

	for i := range entries {
		start := headerSize + i*entrySize
		entry, err := parseFileEntry(buf[start : start+entrySize])
		if err != nil {
			return tableHeader{}, nil, err
		}
		entries[i] = entry
	}
	return header, entries, nil
}

func persistTable(vol *volume.Volume, header tableHeader, entries []fileEntry) error {
	vol.WriteBytes(0, header.bytes())
	for i, e := range entries {
		vol.WriteBytes(int64(headerSize+i*entrySize), e.bytes())
	}
	return nil
}

func persistHeaderAndEntry(vol *volume.Volume, header tableHeader, index int, entry fileEntry) {
	vol.WriteBytes(0, header.bytes())
	vol.WriteBytes(int64(headerSize+index*entrySize), entry.bytes())
}
