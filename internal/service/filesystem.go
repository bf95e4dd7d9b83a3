package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/S1riyS/os-course-lab-4/memfs/internal/models"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/repository"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging/slogext"
)

// Capability is returned by Open. It holds no state besides the path it
// was issued for; every read and write made with it validates the path
// again.
type Capability struct {
	Token uuid.UUID
	Path  string
}

type FileSystemService interface {
	GetAttributes(ctx context.Context, path string) (*models.NodeMeta, error)
	ListDirectory(ctx context.Context, path string) ([]models.Dirent, error)
	Open(ctx context.Context, path string) (*Capability, error)
	Read(ctx context.Context, path string, buffer []byte, offset int64) (int64, error)
	Write(ctx context.Context, path string, data []byte, offset int64) (int64, error)
	Create(ctx context.Context, path string) (*models.NodeMeta, error)
	Unlink(ctx context.Context, path string) error
	Truncate(ctx context.Context, path string, size int64) error
}

type fileSystemService struct {
	ns      *repository.Namespace
	started time.Time
}

func NewFileSystemService(ns *repository.Namespace) FileSystemService {
	return &fileSystemService{
		ns:      ns,
		started: time.Now(),
	}
}

func (s *fileSystemService) GetAttributes(ctx context.Context, path string) (*models.NodeMeta, error) {
	const op = "service.fileSystemService.GetAttributes"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("GetAttributes", slog.String("path", path))

	if s.ns.IsRoot(path) {
		return s.rootMeta(), nil
	}

	entry, ok := s.ns.Lookup(path)
	if !ok {
		logger.Debug("Path not found", slog.String("path", path))
		return nil, ErrNotFound
	}

	return fileMeta(entry), nil
}

func (s *fileSystemService) ListDirectory(ctx context.Context, path string) ([]models.Dirent, error) {
	const op = "service.fileSystemService.ListDirectory"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("ListDirectory", slog.String("path", path))

	if !s.ns.IsRoot(path) {
		logger.Debug("Not the root directory", slog.String("path", path))
		return nil, ErrNotFound
	}

	return s.ns.Entries(), nil
}

func (s *fileSystemService) Open(ctx context.Context, path string) (*Capability, error) {
	const op = "service.fileSystemService.Open"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	if _, ok := s.ns.Lookup(path); !ok {
		logger.Debug("Open of unknown path", slog.String("path", path))
		return nil, ErrNotFound
	}

	c := &Capability{Token: uuid.New(), Path: path}
	logger.Debug("Opened", slog.String("path", path), slog.String("token", c.Token.String()))

	return c, nil
}

func (s *fileSystemService) Read(ctx context.Context, path string, buffer []byte, offset int64) (int64, error) {
	const op = "service.fileSystemService.Read"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Read",
		slog.String("path", path),
		slog.Int64("offset", offset),
		slog.Int("length", len(buffer)),
	)

	entry, ok := s.ns.Lookup(path)
	if !ok {
		logger.Debug("File not found", slog.String("path", path))
		return 0, ErrNotFound
	}

	n, err := entry.Store.ReadAt(buffer, offset)
	if err != nil {
		logger.Debug("Read rejected", slogext.Err(err), slog.Int64("offset", offset))
		return 0, fromRepository(op, err)
	}

	return int64(n), nil
}

func (s *fileSystemService) Write(ctx context.Context, path string, data []byte, offset int64) (int64, error) {
	const op = "service.fileSystemService.Write"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Write",
		slog.String("path", path),
		slog.Int64("offset", offset),
		slog.Int("length", len(data)),
	)

	entry, ok := s.ns.Lookup(path)
	if !ok {
		logger.Debug("File not found", slog.String("path", path))
		return 0, ErrNotFound
	}

	n, err := entry.Store.WriteAt(data, offset)
	if err != nil {
		logger.Debug("Write rejected",
			slogext.Err(err),
			slog.Int64("offset", offset),
			slog.Int("length", len(data)),
			slog.Int64("capacity", entry.Store.Capacity()),
		)
		return 0, fromRepository(op, err)
	}

	logger.Debug("Write successful",
		slog.Int("bytes_written", n),
		slog.Int64("size", entry.Store.Size()),
	)

	return int64(n), nil
}

// Create only accepts registered paths. Any other name is answered with
// ErrAlreadyExists: no new entry can be made in this namespace.
func (s *fileSystemService) Create(ctx context.Context, path string) (*models.NodeMeta, error) {
	const op = "service.fileSystemService.Create"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Create", slog.String("path", path))

	entry, ok := s.ns.Lookup(path)
	if !ok {
		logger.Debug("Cannot create unsupported path", slog.String("path", path))
		return nil, ErrAlreadyExists
	}

	entry.Store.Reset()

	return fileMeta(entry), nil
}

// Unlink empties the file. Its entry stays in the namespace.
func (s *fileSystemService) Unlink(ctx context.Context, path string) error {
	const op = "service.fileSystemService.Unlink"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Unlink", slog.String("path", path))

	entry, ok := s.ns.Lookup(path)
	if !ok {
		logger.Debug("File not found", slog.String("path", path))
		return ErrNotFound
	}

	entry.Store.Reset()

	return nil
}

func (s *fileSystemService) Truncate(ctx context.Context, path string, size int64) error {
	const op = "service.fileSystemService.Truncate"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Truncate", slog.String("path", path), slog.Int64("size", size))

	entry, ok := s.ns.Lookup(path)
	if !ok {
		logger.Debug("File not found", slog.String("path", path))
		return ErrNotFound
	}

	if err := entry.Store.Truncate(size); err != nil {
		logger.Debug("Truncate rejected",
			slogext.Err(err),
			slog.Int64("size", size),
			slog.Int64("capacity", entry.Store.Capacity()),
		)
		return fromRepository(op, err)
	}

	return nil
}

func (s *fileSystemService) rootMeta() *models.NodeMeta {
	return &models.NodeMeta{
		Ino:       models.RootIno,
		ParentIno: models.RootIno,
		Type:      models.NodeTypeDir,
		Mode:      models.S_IFDIR | models.RootPerm,
		Nlink:     2,
		ModTime:   s.started,
	}
}

func fileMeta(e *repository.Entry) *models.NodeMeta {
	return &models.NodeMeta{
		Ino:       e.Ino,
		ParentIno: models.RootIno,
		Type:      models.NodeTypeFile,
		Mode:      models.S_IFREG | models.FilePerm,
		Nlink:     1,
		Size:      e.Store.Size(),
		ModTime:   e.Store.ModTime(),
	}
}
