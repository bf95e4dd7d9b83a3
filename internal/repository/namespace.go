package repository

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/S1riyS/os-course-lab-4/memfs/internal/models"
)

const RootPath = "/"

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrNameTaken   = errors.New("name already registered")
)

// Entry is a regular file registered in the namespace.
type Entry struct {
	Name  string
	Path  string
	Ino   int64
	Store *FileStore
}

// Namespace maps paths to file stores. It holds the root directory and
// the files registered directly under it. Files are registered at startup
// and never leave the namespace; unlinking a file only empties its store.
type Namespace struct {
	mu      sync.RWMutex
	files   map[string]*Entry
	order   []*Entry
	nextIno int64
}

func NewNamespace() *Namespace {
	return &Namespace{
		files:   make(map[string]*Entry),
		nextIno: models.RootIno + 1,
	}
}

// AddFile registers store under /name.
func (n *Namespace) AddFile(name string, store *FileStore) (*Entry, error) {
	const op = "repository.Namespace.AddFile"

	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrInvalidName, name)
	}
	if store == nil {
		return nil, fmt.Errorf("%s: nil store for %q", op, name)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	path := RootPath + name
	if _, ok := n.files[path]; ok {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrNameTaken, name)
	}

	e := &Entry{
		Name:  name,
		Path:  path,
		Ino:   n.nextIno,
		Store: store,
	}
	n.nextIno++
	n.files[path] = e
	n.order = append(n.order, e)

	return e, nil
}

func (n *Namespace) IsRoot(path string) bool {
	return path == RootPath
}

// Lookup matches path exactly; no cleaning is applied.
func (n *Namespace) Lookup(path string) (*Entry, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	e, ok := n.files[path]
	return e, ok
}

// Entries lists the root directory: self, parent, then the files in
// registration order.
func (n *Namespace) Entries() []models.Dirent {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]models.Dirent, 0, len(n.order)+2)
	out = append(out,
		models.Dirent{Name: ".", Ino: models.RootIno, Type: models.NodeTypeDir},
		models.Dirent{Name: "..", Ino: models.RootIno, Type: models.NodeTypeDir},
	)
	for _, e := range n.order {
		out = append(out, models.Dirent{Name: e.Name, Ino: e.Ino, Type: models.NodeTypeFile})
	}
	return out
}
