package ninep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"

	"aqwari.net/net/styx"

	"github.com/S1riyS/os-course-lab-4/memfs/internal/service"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging/slogext"
)

// Server exposes the file system service over 9P2000.
type Server struct {
	Service service.FileSystemService
	Logger  *slog.Logger
}

var _ styx.Handler = (*Server)(nil)

func (srv *Server) Serve9P(s *styx.Session) {
	const op = "ninep.Server.Serve9P"

	base := logging.MakeContextWithLogger(context.Background(), srv.logger())
	logger := srv.logger().With(slog.String("op", op), slog.String("user", s.User))
	logger.Debug("Session started")

	for s.Next() {
		msg := s.Request()
		ctx := logging.MakeContextWithNewRequestID(base)

		switch t := msg.(type) {
		case styx.Twalk:
			// styx completes a walk only to paths that already have a
			// qid on this connection. See TestSessionWalkNeedsRootListing.
			t.Rwalk(srv.stat(ctx, t.Path()))
		case styx.Tstat:
			t.Rstat(srv.stat(ctx, t.Path()))
		case styx.Topen:
			t.Ropen(srv.open(ctx, t.Path(), t.Flag))
		case styx.Tcreate:
			if t.Mode.IsDir() {
				t.Rerror("%s", service.ErrInvalidArgument.Message)
				continue
			}
			t.Rcreate(srv.create(ctx, t.NewPath()))
		case styx.Tremove:
			t.Rremove(srv.Service.Unlink(ctx, t.Path()))
		case styx.Ttruncate:
			t.Rtruncate(srv.Service.Truncate(ctx, t.Path(), t.Size))
		}
	}

	logger.Debug("Session ended")
}

// ListenAndServe serves 9P on addr until ctx is done.
func (srv *Server) ListenAndServe(ctx context.Context, addr string) error {
	const op = "ninep.Server.ListenAndServe"

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return srv.Serve(ctx, l)
}

// Serve accepts 9P connections on l until ctx is done. l is closed on
// return.
func (srv *Server) Serve(ctx context.Context, l net.Listener) error {
	const op = "ninep.Server.Serve"

	logger := srv.logger()
	logger.Info("9P server listening", slog.String("addr", l.Addr().String()))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		l.Close()
	}()

	s := &styx.Server{
		Handler:  srv,
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	err := s.Serve(l)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (srv *Server) logger() *slog.Logger {
	if srv.Logger == nil {
		return logging.NewDiscardLogger()
	}
	return srv.Logger
}

func (srv *Server) stat(ctx context.Context, p string) (os.FileInfo, error) {
	meta, err := srv.Service.GetAttributes(ctx, p)
	if err != nil {
		return nil, err
	}

	return fileInfo{name: path.Base(p), meta: meta}, nil
}

func (srv *Server) open(ctx context.Context, p string, flag int) (any, error) {
	const op = "ninep.Server.open"

	meta, err := srv.Service.GetAttributes(ctx, p)
	if err != nil {
		return nil, err
	}

	if meta.IsDir() {
		return srv.readDir(ctx, p)
	}

	capability, err := srv.Service.Open(ctx, p)
	if err != nil {
		return nil, err
	}

	if flag&os.O_TRUNC != 0 {
		if err := srv.Service.Truncate(ctx, p, 0); err != nil {
			logging.GetLoggerFromContextWithOp(ctx, op).Debug("Truncate on open failed", slogext.Err(err))
			return nil, err
		}
	}

	return &fileHandle{ctx: ctx, service: srv.Service, capability: capability}, nil
}

func (srv *Server) create(ctx context.Context, p string) (any, error) {
	if _, err := srv.Service.Create(ctx, p); err != nil {
		return nil, err
	}

	return srv.open(ctx, p, os.O_RDWR)
}

func (srv *Server) readDir(ctx context.Context, p string) (*directory, error) {
	dirents, err := srv.Service.ListDirectory(ctx, p)
	if err != nil {
		return nil, err
	}

	self, err := srv.stat(ctx, p)
	if err != nil {
		return nil, err
	}

	dir := &directory{self: self, entries: make([]os.FileInfo, 0, len(dirents))}
	for _, d := range dirents {
		if d.Name == "." || d.Name == ".." {
			continue
		}
		fi, err := srv.stat(ctx, path.Join(p, d.Name))
		if err != nil {
			return nil, err
		}
		dir.entries = append(dir.entries, fi)
	}

	return dir, nil
}

// fileHandle serves Tread and Twrite for one open fid.
type fileHandle struct {
	ctx        context.Context
	service    service.FileSystemService
	capability *service.Capability
}

func (h *fileHandle) ReadAt(p []byte, off int64) (int, error) {
	n, err := h.service.Read(h.ctx, h.capability.Path, p, off)
	if err != nil {
		return 0, err
	}
	if int(n) < len(p) {
		return int(n), io.EOF
	}
	return int(n), nil
}

func (h *fileHandle) WriteAt(p []byte, off int64) (int, error) {
	n, err := h.service.Write(h.ctx, h.capability.Path, p, off)
	return int(n), err
}

// Stat answers Tstat on an open fid with the current attributes.
func (h *fileHandle) Stat() (os.FileInfo, error) {
	meta, err := h.service.GetAttributes(h.ctx, h.capability.Path)
	if err != nil {
		return nil, err
	}

	return fileInfo{name: path.Base(h.capability.Path), meta: meta}, nil
}

func (h *fileHandle) Close() error {
	return nil
}
