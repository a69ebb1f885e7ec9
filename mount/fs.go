// Package mount exposes an open vpk.Package as a read-only FUSE
// filesystem: directories enumerate their vpk.Entry children, file
// reads delegate to File.ReadRange, the same primitive browse
// streams payload through.
package mount

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/vpktool/vpk/vpk"
)

// Options controls mount-time behavior that has no bearing on the
// core: whether to log every FUSE request.
type Options struct {
	Debug bool
}

// Serve mounts pkg read-only at mountpoint and blocks serving FUSE
// requests until the filesystem is unmounted or an error occurs.
func Serve(pkg *vpk.Package, mountpoint string, opts Options) error {
	if opts.Debug {
		fuse.Debug = func(msg interface{}) { println(msg.(string)) }
	}

	c, err := fuse.Mount(
		mountpoint,
		fuse.FSName("vpk"),
		fuse.Subtype("vpkfs"),
		fuse.ReadOnly(),
		fuse.LocalVolume(),
		fuse.VolumeName(pkg.Prefix),
	)
	if err != nil {
		return err
	}
	defer c.Close()

	filesys := &fileSystem{pkg: pkg}
	if err := fs.Serve(c, filesys); err != nil {
		return err
	}
	<-c.Ready
	return c.MountError
}

// fileSystem implements fs.FS over a single immutable *vpk.Package.
type fileSystem struct {
	pkg *vpk.Package
}

func (f *fileSystem) Root() (fs.Node, error) {
	return &node{fs: f, entry: f.pkg.Root, path: ""}, nil
}

// node implements fs.Node for both files and directories; which one
// it is follows entirely from the wrapped *vpk.Entry, mirroring the
// core's own File|Dir tagged union instead of keeping a parallel node
// kind enum.
type node struct {
	fs    *fileSystem
	entry *vpk.Entry
	path  string

	mu    sync.Mutex
	cache *vpk.ArchiveCache // lazily opened on first Read, one per node
}

func (n *node) Attr(ctx context.Context, a *fuse.Attr) error {
	now := time.Now()
	a.Atime, a.Mtime, a.Ctime = now, now, now
	if n.entry.IsDir() {
		a.Mode = os.ModeDir | 0555
		return nil
	}
	a.Mode = 0444
	a.Size = uint64(n.entry.File.FullSize())
	return nil
}

// Lookup implements fs.NodeStringLookuper.
func (n *node) Lookup(ctx context.Context, name string) (fs.Node, error) {
	if !n.entry.IsDir() {
		return nil, enotdir("%s", n.path)
	}
	child := n.entry.Dir.Get(name)
	if child == nil {
		return nil, enoent("%s/%s", n.path, name)
	}
	return &node{fs: n.fs, entry: child, path: joinPath(n.path, name)}, nil
}

// ReadDirAll implements fs.HandleReadDirAller directly on the node,
// since directory nodes never need a distinct open handle.
func (n *node) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	if !n.entry.IsDir() {
		return nil, enotdir("%s", n.path)
	}
	names := n.entry.Dir.Names()
	dirents := make([]fuse.Dirent, 0, len(names))
	for _, name := range names {
		child := n.entry.Dir.Get(name)
		typ := fuse.DT_File
		if child.IsDir() {
			typ = fuse.DT_Dir
		}
		dirents = append(dirents, fuse.Dirent{Name: name, Type: typ})
	}
	return dirents, nil
}

// Open implements fs.NodeOpener. The node itself serves as the
// returned Handle: reads go straight through File.ReadRange, so
// there is no separate buffering or caching of file content beyond
// the one ArchiveCache this node opens lazily.
func (n *node) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	if n.entry.IsDir() {
		return n, nil
	}
	if !req.Flags.IsReadOnly() {
		return nil, erofs("%s", n.path)
	}
	resp.Flags |= fuse.OpenKeepCache
	return n, nil
}

// Read implements fs.HandleReader for file nodes.
func (n *node) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	if n.entry.IsDir() {
		return enotdir("%s", n.path)
	}
	cache, err := n.archiveCache()
	if err != nil {
		return translate(n.path, err)
	}
	data, err := n.entry.File.ReadRange(cache, req.Offset, int64(req.Size))
	if err != nil {
		return translate(n.path, err)
	}
	resp.Data = data
	return nil
}

// Release implements fs.HandleReleaser, closing the node's lazily
// opened archive handles.
func (n *node) Release(ctx context.Context, req *fuse.ReleaseRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cache != nil {
		n.cache.Close()
		n.cache = nil
	}
	return nil
}

func (n *node) archiveCache() (*vpk.ArchiveCache, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cache == nil {
		n.cache = vpk.NewArchiveCache(n.fs.pkg.Dir, n.fs.pkg.Prefix, vpk.ForReading)
	}
	return n.cache, nil
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, "/") + "/" + name
}
