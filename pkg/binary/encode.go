package binary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/S1riyS/os-course-lab-4/memfs/internal/models"
)

// NameLen is the fixed size of a dirent name on the wire, NUL padded.
const NameLen = 256

var ErrNameTooLong = errors.New("dirent name too long")

// nodeMetaWire is the little-endian layout of models.NodeMeta.
type nodeMetaWire struct {
	Ino       int64
	ParentIno int64
	Type      int16
	Mode      uint32
	Nlink     uint32
	Size      int64
	MTimeNsec int64
}

type direntWire struct {
	Name [NameLen]byte
	Ino  int64
	Type int16
}

func EncodeNodeMeta(meta *models.NodeMeta) ([]byte, error) {
	buf := new(bytes.Buffer)

	wire := nodeMetaWire{
		Ino:       meta.Ino,
		ParentIno: meta.ParentIno,
		Type:      int16(meta.Type),
		Mode:      meta.Mode,
		Nlink:     meta.Nlink,
		Size:      meta.Size,
		MTimeNsec: meta.ModTime.UnixNano(),
	}
	if err := binary.Write(buf, binary.LittleEndian, &wire); err != nil {
		return nil, fmt.Errorf("failed to encode node meta: %w", err)
	}

	return buf.Bytes(), nil
}

func EncodeDirent(dirent *models.Dirent) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeDirent(buf, dirent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeDirents writes a uint32 entry count followed by the entries.
func EncodeDirents(dirents []models.Dirent) ([]byte, error) {
	buf := new(bytes.Buffer)

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(dirents))); err != nil {
		return nil, fmt.Errorf("failed to encode dirent count: %w", err)
	}
	for i := range dirents {
		if err := writeDirent(buf, &dirents[i]); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func writeDirent(buf *bytes.Buffer, dirent *models.Dirent) error {
	// one byte is kept for the terminating NUL
	if len(dirent.Name) >= NameLen {
		return fmt.Errorf("failed to encode name %q: %w", dirent.Name, ErrNameTooLong)
	}

	var wire direntWire
	copy(wire.Name[:], dirent.Name)
	wire.Ino = dirent.Ino
	wire.Type = int16(dirent.Type)

	if err := binary.Write(buf, binary.LittleEndian, &wire); err != nil {
		return fmt.Errorf("failed to encode dirent: %w", err)
	}
	return nil
}

func WriteResponse(w http.ResponseWriter, code int64, data []byte) error {
	response := new(bytes.Buffer)

	// Return code (int64, 8 bytes): 0 or a negative errno
	if err := binary.Write(response, binary.LittleEndian, code); err != nil {
		return fmt.Errorf("failed to write response code: %w", err)
	}

	if data != nil {
		if _, err := response.Write(data); err != nil {
			return fmt.Errorf("failed to write response data: %w", err)
		}
	}

	body := response.Bytes()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(body)))
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusOK)

	_, err := w.Write(body)
	return err
}

func WriteInt64Response(w http.ResponseWriter, code int64, value int64) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, value); err != nil {
		return err
	}
	return WriteResponse(w, code, buf.Bytes())
}

func modTime(nsec int64) time.Time {
	return time.Unix(0, nsec)
}
