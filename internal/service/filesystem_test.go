package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S1riyS/os-course-lab-4/memfs/internal/models"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/pkg/kerrors"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/repository"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging"
)

const filePath = "/test.txt"

func newTestService(t *testing.T, capacity int64) (FileSystemService, context.Context) {
	t.Helper()

	store, err := repository.NewFileStore(capacity)
	require.NoError(t, err)

	ns := repository.NewNamespace()
	_, err = ns.AddFile("test.txt", store)
	require.NoError(t, err)

	ctx := logging.MakeContextWithLogger(context.Background(), logging.NewDiscardLogger())
	return NewFileSystemService(ns), ctx
}

func readString(t *testing.T, svc FileSystemService, ctx context.Context, length int, offset int64) string {
	t.Helper()
	buf := make([]byte, length)
	n, err := svc.Read(ctx, filePath, buf, offset)
	require.NoError(t, err)
	return string(buf[:n])
}

func sizeOf(t *testing.T, svc FileSystemService, ctx context.Context) int64 {
	t.Helper()
	meta, err := svc.GetAttributes(ctx, filePath)
	require.NoError(t, err)
	return meta.Size
}

func TestGetAttributes(t *testing.T) {
	svc, ctx := newTestService(t, 1024)

	root, err := svc.GetAttributes(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, models.NodeTypeDir, root.Type)
	assert.EqualValues(t, 2, root.Nlink)
	assert.EqualValues(t, models.S_IFDIR|0o755, root.Mode)
	assert.True(t, root.IsDir())

	file, err := svc.GetAttributes(ctx, filePath)
	require.NoError(t, err)
	assert.Equal(t, models.NodeTypeFile, file.Type)
	assert.EqualValues(t, 1, file.Nlink)
	assert.EqualValues(t, models.S_IFREG|0o644, file.Mode)
	assert.Zero(t, file.Size)

	_, err = svc.GetAttributes(ctx, "/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// capacity = 1024 walk-through of the driver contract
func TestConcreteScenario(t *testing.T) {
	svc, ctx := newTestService(t, 1024)

	n, err := svc.Write(ctx, filePath, []byte("hello"), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.EqualValues(t, 5, sizeOf(t, svc, ctx))

	assert.Equal(t, "hello", readString(t, svc, ctx, 5, 0))
	assert.Equal(t, "lo", readString(t, svc, ctx, 10, 3))

	_, err = svc.Write(ctx, filePath, []byte("!!"), 1020)
	require.NoError(t, err)
	assert.EqualValues(t, 1022, sizeOf(t, svc, ctx))

	_, err = svc.Write(ctx, filePath, []byte("xxx"), 1022)
	assert.ErrorIs(t, err, ErrOutOfSpace)
	assert.Equal(t, kerrors.ENOSPC, kerrors.Code(err))
	assert.EqualValues(t, 1022, sizeOf(t, svc, ctx))
}

func TestReadPastEnd(t *testing.T) {
	svc, ctx := newTestService(t, 64)
	_, err := svc.Write(ctx, filePath, []byte("abc"), 0)
	require.NoError(t, err)

	assert.Empty(t, readString(t, svc, ctx, 4, 3))
	assert.Empty(t, readString(t, svc, ctx, 4, 63))
	assert.Empty(t, readString(t, svc, ctx, 4, 1000))
}

func TestWriteOutOfSpaceLeavesSizeUnchanged(t *testing.T) {
	svc, ctx := newTestService(t, 32)
	_, err := svc.Write(ctx, filePath, []byte("0123456789"), 0)
	require.NoError(t, err)

	cases := []struct {
		offset int64
		length int
	}{
		{offset: 0, length: 33},
		{offset: 30, length: 3},
		{offset: 32, length: 1},
		{offset: 100, length: 1},
	}
	for _, tc := range cases {
		_, err := svc.Write(ctx, filePath, make([]byte, tc.length), tc.offset)
		assert.ErrorIs(t, err, ErrOutOfSpace, "offset %d length %d", tc.offset, tc.length)
		assert.EqualValues(t, 10, sizeOf(t, svc, ctx))
	}
	assert.Equal(t, "0123456789", readString(t, svc, ctx, 32, 0))
}

func TestWriteReadRoundTripIsStable(t *testing.T) {
	svc, ctx := newTestService(t, 128)
	for i := 0; i < 3; i++ {
		_, err := svc.Write(ctx, filePath, []byte("round trip"), 40)
		require.NoError(t, err)
		assert.Equal(t, "round trip", readString(t, svc, ctx, 10, 40))
	}
}

func TestCreateResetsSize(t *testing.T) {
	svc, ctx := newTestService(t, 128)
	_, err := svc.Write(ctx, filePath, make([]byte, 100), 0)
	require.NoError(t, err)

	meta, err := svc.Create(ctx, filePath)
	require.NoError(t, err)
	assert.Zero(t, meta.Size)
	assert.Zero(t, sizeOf(t, svc, ctx))

	_, err = svc.Create(ctx, "/other.txt")
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, kerrors.EEXIST, kerrors.Code(err))

	_, err = svc.Create(ctx, "/")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestUnlinkKeepsEntryListed(t *testing.T) {
	svc, ctx := newTestService(t, 128)
	_, err := svc.Write(ctx, filePath, make([]byte, 100), 0)
	require.NoError(t, err)
	require.EqualValues(t, 100, sizeOf(t, svc, ctx))

	require.NoError(t, svc.Unlink(ctx, filePath))
	assert.Zero(t, sizeOf(t, svc, ctx))

	entries, err := svc.ListDirectory(ctx, "/")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "test.txt", entries[2].Name)

	assert.ErrorIs(t, svc.Unlink(ctx, "/nope"), ErrNotFound)
	assert.ErrorIs(t, svc.Unlink(ctx, "/"), ErrNotFound)
}

func TestTruncate(t *testing.T) {
	svc, ctx := newTestService(t, 256)
	_, err := svc.Write(ctx, filePath, []byte("abcdef"), 0)
	require.NoError(t, err)

	require.NoError(t, svc.Truncate(ctx, filePath, 200))
	assert.EqualValues(t, 200, sizeOf(t, svc, ctx))

	require.NoError(t, svc.Truncate(ctx, filePath, 256))
	assert.EqualValues(t, 256, sizeOf(t, svc, ctx))

	err = svc.Truncate(ctx, filePath, 257)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, kerrors.EFBIG, kerrors.Code(err))
	assert.EqualValues(t, 256, sizeOf(t, svc, ctx))

	assert.ErrorIs(t, svc.Truncate(ctx, filePath, -1), ErrInvalidArgument)
	assert.ErrorIs(t, svc.Truncate(ctx, "/x", 1), ErrNotFound)

	require.NoError(t, svc.Truncate(ctx, filePath, 3))
	assert.Equal(t, "abc", readString(t, svc, ctx, 10, 0))
}

func TestListDirectoryAlwaysThreeEntries(t *testing.T) {
	svc, ctx := newTestService(t, 64)

	check := func() {
		entries, err := svc.ListDirectory(ctx, "/")
		require.NoError(t, err)
		names := []string{entries[0].Name, entries[1].Name, entries[2].Name}
		assert.Len(t, entries, 3)
		assert.Equal(t, []string{".", "..", "test.txt"}, names)
	}

	check()
	_, err := svc.Write(ctx, filePath, []byte("data"), 0)
	require.NoError(t, err)
	check()
	require.NoError(t, svc.Unlink(ctx, filePath))
	check()

	_, err = svc.ListDirectory(ctx, filePath)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnknownPathsAreNotFound(t *testing.T) {
	svc, ctx := newTestService(t, 64)

	for _, p := range []string{"/", "/other", "", "test.txt", "/test.txt/"} {
		_, err := svc.Read(ctx, p, make([]byte, 1), 0)
		assert.ErrorIs(t, err, ErrNotFound, "read %q", p)

		_, err = svc.Write(ctx, p, []byte("x"), 0)
		assert.ErrorIs(t, err, ErrNotFound, "write %q", p)

		_, err = svc.Open(ctx, p)
		assert.ErrorIs(t, err, ErrNotFound, "open %q", p)

		assert.ErrorIs(t, svc.Truncate(ctx, p, 0), ErrNotFound, "truncate %q", p)
	}
}

func TestOpenIssuesDistinctCapabilities(t *testing.T) {
	svc, ctx := newTestService(t, 64)

	a, err := svc.Open(ctx, filePath)
	require.NoError(t, err)
	b, err := svc.Open(ctx, filePath)
	require.NoError(t, err)

	assert.Equal(t, filePath, a.Path)
	assert.NotEqual(t, a.Token, b.Token)
}

func TestNegativeOffsetsAreInvalid(t *testing.T) {
	svc, ctx := newTestService(t, 64)

	_, err := svc.Write(ctx, filePath, []byte("x"), -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = svc.Read(ctx, filePath, make([]byte, 1), -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Zero(t, sizeOf(t, svc, ctx))
}
