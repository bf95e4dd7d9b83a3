package binary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/S1riyS/os-course-lab-4/memfs/internal/models"
)

var ErrShortResponse = errors.New("response shorter than its header")

// DecodeResponse splits a response body into its return code and payload.
func DecodeResponse(body []byte) (code int64, data []byte, err error) {
	if len(body) < 8 {
		return 0, nil, ErrShortResponse
	}
	code = int64(binary.LittleEndian.Uint64(body[:8]))
	return code, body[8:], nil
}

func DecodeNodeMeta(data []byte) (*models.NodeMeta, error) {
	var wire nodeMetaWire
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode node meta: %w", err)
	}

	return &models.NodeMeta{
		Ino:       wire.Ino,
		ParentIno: wire.ParentIno,
		Type:      models.NodeType(wire.Type),
		Mode:      wire.Mode,
		Nlink:     wire.Nlink,
		Size:      wire.Size,
		ModTime:   modTime(wire.MTimeNsec),
	}, nil
}

func DecodeDirents(data []byte) ([]models.Dirent, error) {
	r := bytes.NewReader(data)

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to decode dirent count: %w", err)
	}

	out := make([]models.Dirent, 0, count)
	for i := uint32(0); i < count; i++ {
		var wire direntWire
		if err := binary.Read(r, binary.LittleEndian, &wire); err != nil {
			return nil, fmt.Errorf("failed to decode dirent %d: %w", i, err)
		}
		name := wire.Name[:]
		if end := bytes.IndexByte(name, 0); end >= 0 {
			name = name[:end]
		}
		out = append(out, models.Dirent{
			Name: string(name),
			Ino:  wire.Ino,
			Type: models.NodeType(wire.Type),
		})
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("failed to decode dirents: %d trailing bytes", r.Len())
	}

	return out, nil
}

func DecodeInt64(data []byte) (int64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("failed to decode int64: got %d bytes", len(data))
	}
	return int64(binary.LittleEndian.Uint64(data)), nil
}
