// Package raidfs exposes a Volume as a flat FUSE directory: one regular
// file per allocated entry in the on-disk file table, plus a virtual
// control file, .raidctl, for disk administration. It is the adapter
// layer; all RAID semantics live in internal/volume and below.
package raidfs

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/logger"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/raidmetrics"
	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/volume"
)

const (
	fileIDBase fuseops.InodeID = 2
	ctlName                    = ".raidctl"
	ctlInodeID fuseops.InodeID = fileIDBase + maxFiles + 1
)

func inodeForIndex(i int) fuseops.InodeID { return fileIDBase + fuseops.InodeID(i) }

func indexForInode(id fuseops.InodeID) (int, bool) {
	if id < fileIDBase {
		return 0, false
	}
	idx := int(id - fileIDBase)
	if idx >= maxFiles {
		return 0, false
	}
	return idx, true
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.Contains(name, "/")
}

// FileSystem is a fuseops.FileSystem backed by a single Volume. Every
// operation is serialized on mu, the same lock the background rebuild
// worker takes around each repaired stripe, so foreground IO and rebuild
// never race over Volume or the file table.
type FileSystem struct {
	fuseutil.NotImplementedFileSystem

	mu sync.Mutex

	vol     *volume.Volume
	header  tableHeader
	entries []fileEntry

	uid, gid uint32
	mountTag string
}

// New loads (or initializes) the file table at the front of vol's byte
// space and returns a FileSystem ready to be passed to fuse.Mount.
func New(vol *volume.Volume, uid, gid uint32) (*FileSystem, error) {
	header, entries, err := loadTable(vol)
	if err != nil {
		return nil, fmt.Errorf("raidfs: loading file table: %w", err)
	}
	return &FileSystem{
		vol:      vol,
		header:   header,
		entries:  entries,
		uid:      uid,
		gid:      gid,
		mountTag: uuid.NewString(),
	}, nil
}

// MountTag is a unique-per-mount identifier logged alongside administration
// commands, useful for correlating .raidctl activity with engine logs when
// several volumes are mounted concurrently.
func (fs *FileSystem) MountTag() string { return fs.mountTag }

func (fs *FileSystem) capacity() uint64 { return uint64(fs.vol.LogicalCapacityBytes()) }

func (fs *FileSystem) rootAttributes() fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Nlink: 2,
		Mode:  os.ModeDir | 0755,
		Uid:   fs.uid,
		Gid:   fs.gid,
	}
}

func (fs *FileSystem) ctlAttributes() fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Nlink: 1,
		Mode:  0644,
		Size:  uint64(len(fs.statusText())),
		Uid:   fs.uid,
		Gid:   fs.gid,
	}
}

func (fs *FileSystem) fileAttributes(size uint64) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Nlink: 1,
		Mode:  0644,
		Size:  size,
		Uid:   fs.uid,
		Gid:   fs.gid,
	}
}

func (fs *FileSystem) findEntry(name string) (int, bool) {
	for i, e := range fs.entries {
		if e.used && e.name == name {
			return i, true
		}
	}
	return 0, false
}

func (fs *FileSystem) freeSlot() (int, bool) {
	for i, e := range fs.entries {
		if !e.used {
			return i, true
		}
	}
	return 0, false
}

func (fs *FileSystem) persist(index int) {
	persistHeaderAndEntry(fs.vol, fs.header, index, fs.entries[index])
}

func (fs *FileSystem) Init(ctx context.Context, op *fuseops.InitOp) error {
	return nil
}

func (fs *FileSystem) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if op.Parent != fuseops.RootInodeID {
		return fuse.ENOENT
	}
	if op.Name == ctlName {
		op.Entry.Child = ctlInodeID
		op.Entry.Attributes = fs.ctlAttributes()
		return nil
	}

	idx, ok := fs.findEntry(op.Name)
	if !ok {
		return fuse.ENOENT
	}
	op.Entry.Child = inodeForIndex(idx)
	op.Entry.Attributes = fs.fileAttributes(fs.entries[idx].size)
	return nil
}

func (fs *FileSystem) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	switch op.Inode {
	case fuseops.RootInodeID:
		op.Attributes = fs.rootAttributes()
		return nil
	case ctlInodeID:
		op.Attributes = fs.ctlAttributes()
		return nil
	}

	idx, ok := indexForInode(op.Inode)
	if !ok || !fs.entries[idx].used {
		return fuse.ENOENT
	}
	op.Attributes = fs.fileAttributes(fs.entries[idx].size)
	return nil
}

// SetInodeAttributes handles truncation and growth via ftruncate/O_TRUNC.
// The control file accepts any attribute change as a no-op; regular files
// may only grow within the volume's remaining capacity and only if they
// are the most recently allocated (last) entry, since storage is
// append-only past the file table.
func (fs *FileSystem) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if op.Inode == ctlInodeID {
		op.Attributes = fs.ctlAttributes()
		return nil
	}

	idx, ok := indexForInode(op.Inode)
	if !ok || !fs.entries[idx].used {
		return fuse.ENOENT
	}

	entry := fs.entries[idx]
	if op.Size != nil {
		newSize := *op.Size
		if newSize > entry.size {
			allocated := entry.size
			if allocated == 0 {
				allocated = 1
			}
			isLast := entry.offset+allocated == fs.header.nextFree
			newAllocated := newSize
			if newAllocated == 0 {
				newAllocated = 1
			}
			newEnd := entry.offset + newAllocated
			if !isLast || newEnd > fs.capacity() {
				return fuse.ENOSYS
			}
			fs.header.nextFree = newEnd
		}
		entry.size = newSize
		fs.entries[idx] = entry
		fs.persist(idx)
	}

	op.Attributes = fs.fileAttributes(fs.entries[idx].size)
	return nil
}

func (fs *FileSystem) ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) error {
	return nil
}

func (fs *FileSystem) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if op.Parent != fuseops.RootInodeID || !validName(op.Name) {
		return fuse.EINVAL
	}
	if op.Name == ctlName {
		op.Entry.Child = ctlInodeID
		op.Entry.Attributes = fs.ctlAttributes()
		op.Handle = fuseops.HandleID(ctlInodeID)
		return nil
	}
	if len(op.Name) > nameLen {
		return fuse.EINVAL
	}
	if _, exists := fs.findEntry(op.Name); exists {
		return fuse.EEXIST
	}
	idx, ok := fs.freeSlot()
	if !ok {
		return fuse.ENOSYS
	}

	offset := fs.header.nextFree
	newEnd := offset + 1
	if newEnd > fs.capacity() {
		return fuse.ENOSYS
	}

	fs.entries[idx] = fileEntry{name: op.Name, offset: offset, size: 0, used: true}
	fs.header.nextFree = newEnd
	fs.persist(idx)

	op.Entry.Child = inodeForIndex(idx)
	op.Entry.Attributes = fs.fileAttributes(0)
	op.Handle = fuseops.HandleID(inodeForIndex(idx))

	logger.Debugf("raidfs[%s]: created %q (inode %d)", fs.mountTag, op.Name, op.Entry.Child)
	return nil
}

func (fs *FileSystem) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if op.Parent != fuseops.RootInodeID {
		return fuse.ENOENT
	}
	idx, ok := fs.findEntry(op.Name)
	if !ok {
		return fuse.ENOENT
	}
	fs.entries[idx] = fileEntry{}
	fs.persist(idx)
	return nil
}

func (fs *FileSystem) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	if op.Inode != fuseops.RootInodeID {
		return fuse.ENOENT
	}
	op.Handle = fuseops.HandleID(op.Inode)
	return nil
}

type direntSource struct {
	inode fuseops.InodeID
	typ   fuseutil.DirentType
	name  string
}

func (fs *FileSystem) dirents() []direntSource {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	out := []direntSource{
		{fuseops.RootInodeID, fuseutil.DT_Directory, "."},
		{fuseops.RootInodeID, fuseutil.DT_Directory, ".."},
		{ctlInodeID, fuseutil.DT_File, ctlName},
	}
	for i, e := range fs.entries {
		if e.used {
			out = append(out, direntSource{inodeForIndex(i), fuseutil.DT_File, e.name})
		}
	}
	return out
}

func (fs *FileSystem) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	if op.Inode != fuseops.RootInodeID {
		return fuse.ENOENT
	}

	entries := fs.dirents()
	offset := int(op.Offset)
	if offset > len(entries) {
		return fuse.EINVAL
	}

	for i := offset; i < len(entries); i++ {
		d := fuseutil.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  entries[i].inode,
			Name:   entries[i].name,
			Type:   entries[i].typ,
		}
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], d)
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

func (fs *FileSystem) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error {
	return nil
}

func (fs *FileSystem) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if op.Inode == ctlInodeID {
		op.Handle = fuseops.HandleID(op.Inode)
		return nil
	}
	idx, ok := indexForInode(op.Inode)
	if !ok || !fs.entries[idx].used {
		return fuse.ENOENT
	}
	op.Handle = fuseops.HandleID(op.Inode)
	return nil
}

func (fs *FileSystem) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if op.Inode == ctlInodeID {
		snippet := readRange(fs.statusText(), op.Offset, len(op.Dst))
		op.BytesRead = copy(op.Dst, snippet)
		return nil
	}

	idx, ok := indexForInode(op.Inode)
	if !ok || !fs.entries[idx].used {
		return fuse.ENOENT
	}
	entry := fs.entries[idx]

	if op.Offset < 0 || uint64(op.Offset) >= entry.size {
		op.BytesRead = 0
		return nil
	}
	available := entry.size - uint64(op.Offset)
	toRead := uint64(len(op.Dst))
	if toRead > available {
		toRead = available
	}
	fs.vol.ReadBytes(int64(entry.offset)+op.Offset, op.Dst[:toRead])
	op.BytesRead = int(toRead)
	return nil
}

func readRange(s string, offset int64, size int) string {
	if offset < 0 || int(offset) >= len(s) {
		return ""
	}
	end := int(offset) + size
	if end > len(s) {
		end = len(s)
	}
	return s[offset:end]
}

func (fs *FileSystem) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if op.Inode == ctlInodeID {
		return fs.runControlCommand(strings.TrimSpace(string(op.Data)))
	}

	idx, ok := indexForInode(op.Inode)
	if !ok || !fs.entries[idx].used {
		return fuse.ENOENT
	}
	entry := fs.entries[idx]

	offset := uint64(0)
	if op.Offset > 0 {
		offset = uint64(op.Offset)
	}
	endOffset := offset + uint64(len(op.Data))
	newSize := entry.size
	if endOffset > newSize {
		newSize = endOffset
	}

	allocated := entry.size
	if allocated == 0 {
		allocated = 1
	}
	isLast := entry.offset+allocated == fs.header.nextFree
	newAllocated := newSize
	if newAllocated == 0 {
		newAllocated = 1
	}
	newEnd := entry.offset + newAllocated

	if newEnd > fs.capacity() || (!isLast && newSize > entry.size) {
		return fuse.ENOSYS
	}

	if offset > entry.size {
		gap := make([]byte, offset-entry.size)
		fs.vol.WriteBytes(int64(entry.offset+entry.size), gap)
	}

	fs.vol.WriteBytes(int64(entry.offset+offset), op.Data)
	entry.size = newSize
	fs.entries[idx] = entry
	if isLast {
		fs.header.nextFree = newEnd
	}
	fs.persist(idx)

	raidmetrics.Current().RecordRaidOp(raidmetrics.RaidOp{Op: "fuse_write_file", Bytes: int64(len(op.Data))})
	return nil
}

func (fs *FileSystem) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error {
	return nil
}

func (fs *FileSystem) SyncFile(ctx context.Context, op *fuseops.SyncFileOp) error {
	return nil
}
