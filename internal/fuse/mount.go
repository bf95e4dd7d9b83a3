package fuse

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"github.com/S1riyS/os-course-lab-4/memfs/internal/models"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/pkg/kerrors"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/service"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging/slogext"
)

const (
	DefaultFsName  = "memfs"
	DefaultTimeout = time.Second
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted. It is
	// created if it does not exist.
	Mountpoint string

	Service service.FileSystemService

	// FsName is reported as the mount source. Defaults to DefaultFsName.
	FsName string

	// AllowOther requires user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// EntryTimeout and AttrTimeout default to DefaultTimeout.
	EntryTimeout time.Duration
	AttrTimeout  time.Duration

	Debug bool

	// Logger is attached to the context of every service call. If nil,
	// the logger from the Mount context is used.
	Logger *slog.Logger
}

// Mount serves the service at the configured mountpoint. The caller must
// call Unmount on the returned server when done.
func Mount(ctx context.Context, options Options) (*fuse.Server, error) {
	const op = "fuse.Mount"

	if options.Mountpoint == "" {
		return nil, fmt.Errorf("%s: mountpoint is required", op)
	}
	if options.Service == nil {
		return nil, fmt.Errorf("%s: service is required", op)
	}

	if options.FsName == "" {
		options.FsName = DefaultFsName
	}
	if options.EntryTimeout == 0 {
		options.EntryTimeout = DefaultTimeout
	}
	if options.AttrTimeout == 0 {
		options.AttrTimeout = DefaultTimeout
	}
	if options.Logger == nil {
		options.Logger = logging.GetLoggerFromContext(ctx)
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("%s: creating mountpoint %s: %w", op, options.Mountpoint, err)
	}

	root := newRoot(&options)

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout: &options.EntryTimeout,
		AttrTimeout:  &options.AttrTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     options.FsName,
			Name:       "memfs",
			AllowOther: options.AllowOther,
			Debug:      options.Debug,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: mounting at %s: %w", op, options.Mountpoint, err)
	}

	options.Logger.Info("FUSE filesystem mounted",
		slog.String("mountpoint", options.Mountpoint),
		slog.String("fs_name", options.FsName))

	return server, nil
}

// UnmountOnDone unmounts server once ctx is cancelled and returns the
// result of the unmount.
func UnmountOnDone(ctx context.Context, server *fuse.Server) error {
	const op = "fuse.UnmountOnDone"

	<-ctx.Done()
	if err := server.Unmount(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	server.Wait()

	return nil
}

// mount holds the state shared by every node of one mount.
type mount struct {
	options *Options
	uid     uint32
	gid     uint32
}

func (n *mount) withLogger(ctx context.Context) context.Context {
	return logging.MakeContextWithLogger(ctx, n.options.Logger)
}

func (n *mount) fillAttr(meta *models.NodeMeta, out *fuse.Attr) {
	out.Ino = uint64(meta.Ino)
	out.Mode = meta.Mode
	out.Nlink = meta.Nlink
	out.Size = uint64(meta.Size)
	out.Blocks = (out.Size + 511) / 512
	out.Blksize = 4096
	out.Owner = fuse.Owner{Uid: n.uid, Gid: n.gid}
	mtime := meta.ModTime
	out.SetTimes(&mtime, &mtime, &mtime)
}

// rootNode is the root directory. Its children are resolved through the
// service on every lookup.
type rootNode struct {
	gofuse.Inode
	*mount
}

var _ gofuse.InodeEmbedder = (*rootNode)(nil)
var _ gofuse.NodeLookuper = (*rootNode)(nil)
var _ gofuse.NodeGetattrer = (*rootNode)(nil)
var _ gofuse.NodeReaddirer = (*rootNode)(nil)
var _ gofuse.NodeCreater = (*rootNode)(nil)
var _ gofuse.NodeUnlinker = (*rootNode)(nil)

func newRoot(options *Options) *rootNode {
	return &rootNode{mount: &mount{
		options: options,
		uid:     uint32(unix.Getuid()),
		gid:     uint32(unix.Getgid()),
	}}
}

func childPath(name string) string {
	return "/" + name
}

func (r *rootNode) Getattr(ctx context.Context, _ gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	meta, err := r.options.Service.GetAttributes(r.withLogger(ctx), "/")
	if err != nil {
		return kerrors.ToErrno(err)
	}

	r.fillAttr(meta, &out.Attr)
	out.SetTimeout(r.options.AttrTimeout)
	return 0
}

func (r *rootNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	meta, err := r.options.Service.GetAttributes(r.withLogger(ctx), childPath(name))
	if err != nil {
		return nil, kerrors.ToErrno(err)
	}

	r.fillAttr(meta, &out.Attr)
	out.SetEntryTimeout(r.options.EntryTimeout)
	out.SetAttrTimeout(r.options.AttrTimeout)
	return r.newFileInode(ctx, name, meta), 0
}

func (r *rootNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	dirents, err := r.options.Service.ListDirectory(r.withLogger(ctx), "/")
	if err != nil {
		return nil, kerrors.ToErrno(err)
	}

	entries := make([]fuse.DirEntry, 0, len(dirents))
	for _, d := range dirents {
		// the kernel synthesizes the dot entries itself
		if d.Name == "." || d.Name == ".." {
			continue
		}
		mode := uint32(syscall.S_IFREG)
		if d.Type == models.NodeTypeDir {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: d.Name, Ino: uint64(d.Ino), Mode: mode})
	}

	return gofuse.NewListDirStream(entries), 0
}

func (r *rootNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	ctx = r.withLogger(ctx)
	path := childPath(name)

	meta, err := r.options.Service.Create(ctx, path)
	if err != nil {
		return nil, nil, 0, kerrors.ToErrno(err)
	}

	capability, err := r.options.Service.Open(ctx, path)
	if err != nil {
		return nil, nil, 0, kerrors.ToErrno(err)
	}

	r.fillAttr(meta, &out.Attr)
	out.SetEntryTimeout(r.options.EntryTimeout)
	out.SetAttrTimeout(r.options.AttrTimeout)
	return r.newFileInode(ctx, name, meta), &fileHandle{capability: capability}, fuse.FOPEN_DIRECT_IO, 0
}

func (r *rootNode) Unlink(ctx context.Context, name string) syscall.Errno {
	if err := r.options.Service.Unlink(r.withLogger(ctx), childPath(name)); err != nil {
		return kerrors.ToErrno(err)
	}

	return 0
}

func (r *rootNode) newFileInode(ctx context.Context, name string, meta *models.NodeMeta) *gofuse.Inode {
	child := &fileNode{mount: r.mount, path: childPath(name)}
	return r.NewInode(ctx, child, gofuse.StableAttr{Mode: syscall.S_IFREG, Ino: uint64(meta.Ino)})
}

// fileNode is a regular file. All data lives in the service; the node
// only remembers its path.
type fileNode struct {
	gofuse.Inode
	*mount
	path string
}

var _ gofuse.InodeEmbedder = (*fileNode)(nil)
var _ gofuse.NodeGetattrer = (*fileNode)(nil)
var _ gofuse.NodeOpener = (*fileNode)(nil)
var _ gofuse.NodeReader = (*fileNode)(nil)
var _ gofuse.NodeWriter = (*fileNode)(nil)
var _ gofuse.NodeSetattrer = (*fileNode)(nil)

// fileHandle carries the capability issued by Open.
type fileHandle struct {
	capability *service.Capability
}

func (f *fileNode) Getattr(ctx context.Context, _ gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	meta, err := f.options.Service.GetAttributes(f.withLogger(ctx), f.path)
	if err != nil {
		return kerrors.ToErrno(err)
	}

	f.fillAttr(meta, &out.Attr)
	out.SetTimeout(f.options.AttrTimeout)
	return 0
}

func (f *fileNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	capability, err := f.options.Service.Open(f.withLogger(ctx), f.path)
	if err != nil {
		return nil, 0, kerrors.ToErrno(err)
	}

	// Size changes made through other bridges must stay visible, so the
	// kernel page cache is bypassed.
	return &fileHandle{capability: capability}, fuse.FOPEN_DIRECT_IO, 0
}

func (f *fileNode) Read(ctx context.Context, fh gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := f.options.Service.Read(f.withLogger(ctx), f.handlePath(fh), dest, off)
	if err != nil {
		return nil, kerrors.ToErrno(err)
	}

	return fuse.ReadResultData(dest[:n]), 0
}

func (f *fileNode) Write(ctx context.Context, fh gofuse.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	n, err := f.options.Service.Write(f.withLogger(ctx), f.handlePath(fh), data, off)
	if err != nil {
		return 0, kerrors.ToErrno(err)
	}

	return uint32(n), 0
}

func (f *fileNode) Setattr(ctx context.Context, fh gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	ctx = f.withLogger(ctx)

	if size, ok := in.GetSize(); ok {
		if size > uint64(1<<63-1) {
			return syscall.EFBIG
		}
		if err := f.options.Service.Truncate(ctx, f.handlePath(fh), int64(size)); err != nil {
			logging.GetLoggerFromContextWithOp(ctx, "fuse.fileNode.Setattr").
				Debug("Truncate failed", slog.String("path", f.path), slogext.Err(err))
			return kerrors.ToErrno(err)
		}
	}

	return f.Getattr(ctx, fh, out)
}

func (f *fileNode) handlePath(fh gofuse.FileHandle) string {
	if h, ok := fh.(*fileHandle); ok && h.capability != nil {
		return h.capability.Path
	}
	return f.path
}
