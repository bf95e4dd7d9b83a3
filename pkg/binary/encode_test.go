package binary

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S1riyS/os-course-lab-4/memfs/internal/models"
)

func TestNodeMetaLayout(t *testing.T) {
	meta := &models.NodeMeta{
		Ino:       2,
		ParentIno: 1,
		Type:      models.NodeTypeFile,
		Mode:      models.S_IFREG | 0o644,
		Nlink:     1,
		Size:      1022,
		ModTime:   time.Unix(1700000000, 42),
	}

	data, err := EncodeNodeMeta(meta)
	require.NoError(t, err)
	require.Len(t, data, 42)
	// ino comes first, little endian
	assert.Equal(t, []byte{2, 0, 0, 0, 0, 0, 0, 0}, data[:8])

	got, err := DecodeNodeMeta(data)
	require.NoError(t, err)
	assert.Equal(t, meta.Size, got.Size)
	assert.Equal(t, meta.Mode, got.Mode)
	assert.True(t, meta.ModTime.Equal(got.ModTime))
}

func TestDirents(t *testing.T) {
	in := []models.Dirent{
		{Name: ".", Ino: 1, Type: models.NodeTypeDir},
		{Name: "..", Ino: 1, Type: models.NodeTypeDir},
		{Name: "test.txt", Ino: 2, Type: models.NodeTypeFile},
	}

	data, err := EncodeDirents(in)
	require.NoError(t, err)
	assert.Len(t, data, 4+3*(NameLen+8+2))

	out, err := DecodeDirents(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeDirents(append(data, 0))
	assert.Error(t, err)
}

func TestDirentNameTooLong(t *testing.T) {
	_, err := EncodeDirent(&models.Dirent{Name: strings.Repeat("a", NameLen)})
	assert.ErrorIs(t, err, ErrNameTooLong)

	data, err := EncodeDirent(&models.Dirent{Name: strings.Repeat("a", NameLen-1)})
	require.NoError(t, err)
	assert.Zero(t, data[NameLen-1])
}

func TestWriteResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteInt64Response(rec, 0, 5))

	code, data, err := DecodeResponse(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Zero(t, code)

	n, err := DecodeInt64(data)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.Equal(t, "16", rec.Header().Get("Content-Length"))

	rec = httptest.NewRecorder()
	require.NoError(t, WriteResponse(rec, -2, nil))
	code, data, err = DecodeResponse(rec.Body.Bytes())
	require.NoError(t, err)
	assert.EqualValues(t, -2, code)
	assert.Empty(t, data)

	_, _, err = DecodeResponse([]byte{1, 2})
	assert.ErrorIs(t, err, ErrShortResponse)
}
