package ninep

import (
	"io"
	"os"
	"time"

	"github.com/S1riyS/os-course-lab-4/memfs/internal/models"
)

// fileInfo adapts node metadata to os.FileInfo for stat replies.
type fileInfo struct {
	name string
	meta *models.NodeMeta
}

var _ os.FileInfo = fileInfo{}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return fi.meta.Size }
func (fi fileInfo) ModTime() time.Time { return fi.meta.ModTime }
func (fi fileInfo) IsDir() bool        { return fi.meta.IsDir() }
func (fi fileInfo) Sys() any           { return fi.meta }

func (fi fileInfo) Mode() os.FileMode {
	mode := os.FileMode(fi.meta.Mode & 0o777)
	if fi.meta.IsDir() {
		mode |= os.ModeDir
	}
	return mode
}

// directory is returned by Topen on the root. Readdir follows the
// os.File contract.
type directory struct {
	self    os.FileInfo
	entries []os.FileInfo
	pos     int
}

func (d *directory) Stat() (os.FileInfo, error) {
	return d.self, nil
}

func (d *directory) Readdir(n int) ([]os.FileInfo, error) {
	if n <= 0 {
		rest := d.entries[d.pos:]
		d.pos = len(d.entries)
		return rest, nil
	}
	if d.pos >= len(d.entries) {
		return nil, io.EOF
	}

	end := min(d.pos+n, len(d.entries))
	out := d.entries[d.pos:end]
	d.pos = end
	return out, nil
}
