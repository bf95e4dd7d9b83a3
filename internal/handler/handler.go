package handler

import (
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/S1riyS/os-course-lab-4/memfs/internal/pkg/kerrors"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/service"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/binary"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging/slogext"
)

// MaxReadLen bounds the buffer allocated for a single read request.
const MaxReadLen = 1 << 26

type Handler struct {
	service service.FileSystemService
}

func NewHandler(service service.FileSystemService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleGetAttr(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	meta, err := h.service.GetAttributes(ctx, path)
	if err != nil {
		binary.WriteResponse(w, kerrors.NegCode(err), nil)
		return
	}

	data, err := binary.EncodeNodeMeta(meta)
	if err != nil {
		binary.WriteResponse(w, kerrors.EIO_NEG, nil)
		return
	}

	binary.WriteResponse(w, 0, data)
}

func (h *Handler) HandleReadDir(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleReadDir"

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	entries, err := h.service.ListDirectory(ctx, path)
	if err != nil {
		binary.WriteResponse(w, kerrors.NegCode(err), nil)
		return
	}

	data, err := binary.EncodeDirents(entries)
	if err != nil {
		logging.GetLoggerFromContextWithOp(ctx, op).Error("Failed to encode dirents", slogext.Err(err))
		binary.WriteResponse(w, kerrors.EIO_NEG, nil)
		return
	}

	binary.WriteResponse(w, 0, data)
}

func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	c, err := h.service.Open(ctx, path)
	if err != nil {
		binary.WriteResponse(w, kerrors.NegCode(err), nil)
		return
	}

	// 16 raw bytes of the capability token
	binary.WriteResponse(w, 0, c.Token[:])
}

func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	lenStr := r.URL.Query().Get("len")
	offsetStr := r.URL.Query().Get("offset")

	if path == "" || lenStr == "" || offsetStr == "" {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	length, err := strconv.ParseUint(lenStr, 10, 64)
	if err != nil || length > MaxReadLen {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	offset, err := strconv.ParseInt(offsetStr, 10, 64)
	if err != nil {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	buffer := make([]byte, length)
	read, err := h.service.Read(ctx, path, buffer, offset)
	if err != nil {
		binary.WriteResponse(w, kerrors.NegCode(err), nil)
		return
	}

	// only the bytes actually read are returned
	binary.WriteResponse(w, 0, buffer[:read])
}

// HandleWrite accepts the data either base64 encoded in the "data" query
// parameter (GET, as sent by the kernel module) or as the raw POST body.
func (h *Handler) HandleWrite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleWrite"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Write request received",
		slog.String("method", r.Method),
		slog.String("query", r.URL.RawQuery),
		slog.String("remote_addr", r.RemoteAddr))

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		logger.Warn("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	offsetStr := r.URL.Query().Get("offset")

	if path == "" || offsetStr == "" {
		logger.Warn("Missing required parameters",
			slog.Bool("has_path", path != ""),
			slog.Bool("has_offset", offsetStr != ""))
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	offset, err := strconv.ParseInt(offsetStr, 10, 64)
	if err != nil {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	var data []byte
	if r.Method == http.MethodPost {
		data, err = io.ReadAll(http.MaxBytesReader(w, r.Body, MaxReadLen))
		if err != nil {
			logger.Warn("Failed to read request body", slogext.Err(err))
			binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
			return
		}
	} else {
		data, err = base64.StdEncoding.DecodeString(r.URL.Query().Get("data"))
		if err != nil {
			logger.Warn("Failed to decode base64 data", slogext.Err(err))
			binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
			return
		}
	}

	written, err := h.service.Write(ctx, path, data, offset)
	if err != nil {
		logger.Debug("Service.Write failed", slogext.Err(err),
			slog.String("path", path),
			slog.Int64("offset", offset),
			slog.Int("length", len(data)))
		binary.WriteResponse(w, kerrors.NegCode(err), nil)
		return
	}

	binary.WriteInt64Response(w, 0, written)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	meta, err := h.service.Create(ctx, path)
	if err != nil {
		binary.WriteResponse(w, kerrors.NegCode(err), nil)
		return
	}

	data, err := binary.EncodeNodeMeta(meta)
	if err != nil {
		binary.WriteResponse(w, kerrors.EIO_NEG, nil)
		return
	}

	binary.WriteResponse(w, 0, data)
}

func (h *Handler) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	if err := h.service.Unlink(ctx, path); err != nil {
		binary.WriteResponse(w, kerrors.NegCode(err), nil)
		return
	}

	binary.WriteResponse(w, 0, nil)
}

func (h *Handler) HandleTruncate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	sizeStr := r.URL.Query().Get("size")

	if path == "" || sizeStr == "" {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	size, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	if err := h.service.Truncate(ctx, path, size); err != nil {
		binary.WriteResponse(w, kerrors.NegCode(err), nil)
		return
	}

	binary.WriteResponse(w, 0, nil)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","service":"memfs"}`))
}
