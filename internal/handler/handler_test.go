package handler

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S1riyS/os-course-lab-4/memfs/internal/middleware"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/models"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/pkg/kerrors"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/repository"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/service"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/binary"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging"
)

const filePath = "/test.txt"

func testServer(t *testing.T, capacity int64) *httptest.Server {
	t.Helper()

	store, err := repository.NewFileStore(capacity)
	require.NoError(t, err)
	ns := repository.NewNamespace()
	_, err = ns.AddFile("test.txt", store)
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewHandler(service.NewFileSystemService(ns)).RegisterRoutes(mux)

	srv := httptest.NewServer(middleware.Chain(mux,
		middleware.RequestIDMiddleware,
		middleware.LoggerMiddleware(logging.NewDiscardLogger()),
	))
	t.Cleanup(srv.Close)
	return srv
}

// call performs a GET on endpoint and splits the binary response.
func call(t *testing.T, srv *httptest.Server, endpoint string, params url.Values) (int64, []byte) {
	t.Helper()

	resp, err := srv.Client().Get(srv.URL + endpoint + "?" + params.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	code, data, err := binary.DecodeResponse(body)
	require.NoError(t, err)
	return code, data
}

func write(t *testing.T, srv *httptest.Server, data string, offset int64) (int64, []byte) {
	t.Helper()
	return call(t, srv, "/api/write", url.Values{
		"path":   {filePath},
		"offset": {strconv.FormatInt(offset, 10)},
		"data":   {base64.StdEncoding.EncodeToString([]byte(data))},
	})
}

func read(t *testing.T, srv *httptest.Server, length int, offset int64) string {
	t.Helper()
	code, data := call(t, srv, "/api/read", url.Values{
		"path":   {filePath},
		"len":    {strconv.Itoa(length)},
		"offset": {strconv.FormatInt(offset, 10)},
	})
	require.Zero(t, code)
	return string(data)
}

func size(t *testing.T, srv *httptest.Server) int64 {
	t.Helper()
	code, data := call(t, srv, "/api/getattr", url.Values{"path": {filePath}})
	require.Zero(t, code)
	meta, err := binary.DecodeNodeMeta(data)
	require.NoError(t, err)
	return meta.Size
}

func TestHealth(t *testing.T) {
	srv := testServer(t, 64)

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}

func TestScenarioOverHTTP(t *testing.T) {
	srv := testServer(t, 1024)

	code, data := write(t, srv, "hello", 0)
	require.Zero(t, code)
	n, err := binary.DecodeInt64(data)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.EqualValues(t, 5, size(t, srv))

	assert.Equal(t, "hello", read(t, srv, 5, 0))
	assert.Equal(t, "lo", read(t, srv, 10, 3))

	code, _ = write(t, srv, "!!", 1020)
	require.Zero(t, code)
	assert.EqualValues(t, 1022, size(t, srv))

	code, _ = write(t, srv, "xxx", 1022)
	assert.Equal(t, -kerrors.ENOSPC, code)
	assert.EqualValues(t, 1022, size(t, srv))
}

func TestPostWrite(t *testing.T) {
	srv := testServer(t, 64)

	resp, err := srv.Client().Post(srv.URL+"/api/write?path=%2Ftest.txt&offset=2", "application/octet-stream",
		bytes.NewReader([]byte("raw body")))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	code, _, err := binary.DecodeResponse(body)
	require.NoError(t, err)
	require.Zero(t, code)

	assert.EqualValues(t, 10, size(t, srv))
	assert.Equal(t, "raw body", read(t, srv, 8, 2))
}

func TestReadDir(t *testing.T) {
	srv := testServer(t, 64)

	code, data := call(t, srv, "/api/readdir", url.Values{"path": {"/"}})
	require.Zero(t, code)
	entries, err := binary.DecodeDirents(data)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "test.txt", entries[2].Name)
	assert.Equal(t, models.NodeTypeFile, entries[2].Type)

	code, _ = call(t, srv, "/api/readdir", url.Values{"path": {filePath}})
	assert.Equal(t, -kerrors.ENOENT, code)
}

func TestOpenReturnsToken(t *testing.T) {
	srv := testServer(t, 64)

	code, data := call(t, srv, "/api/open", url.Values{"path": {filePath}})
	require.Zero(t, code)
	assert.Len(t, data, 16)

	code, _ = call(t, srv, "/api/open", url.Values{"path": {"/"}})
	assert.Equal(t, -kerrors.ENOENT, code)
}

func TestCreateUnlinkTruncate(t *testing.T) {
	srv := testServer(t, 128)

	code, _ := write(t, srv, string(make([]byte, 100)), 0)
	require.Zero(t, code)

	code, _ = call(t, srv, "/api/unlink", url.Values{"path": {filePath}})
	require.Zero(t, code)
	assert.Zero(t, size(t, srv))

	code, _ = call(t, srv, "/api/truncate", url.Values{"path": {filePath}, "size": {"128"}})
	require.Zero(t, code)
	assert.EqualValues(t, 128, size(t, srv))

	code, _ = call(t, srv, "/api/truncate", url.Values{"path": {filePath}, "size": {"129"}})
	assert.Equal(t, -kerrors.EFBIG, code)
	assert.EqualValues(t, 128, size(t, srv))

	code, data := call(t, srv, "/api/create", url.Values{"path": {filePath}})
	require.Zero(t, code)
	meta, err := binary.DecodeNodeMeta(data)
	require.NoError(t, err)
	assert.Zero(t, meta.Size)

	code, _ = call(t, srv, "/api/create", url.Values{"path": {"/new.txt"}})
	assert.Equal(t, -kerrors.EEXIST, code)
}

func TestBadRequests(t *testing.T) {
	srv := testServer(t, 64)

	cases := []struct {
		endpoint string
		params   url.Values
		want     int64
	}{
		{"/api/getattr", url.Values{}, kerrors.EINVAL_NEG},
		{"/api/getattr", url.Values{"path": {"/nope"}}, -kerrors.ENOENT},
		{"/api/read", url.Values{"path": {filePath}, "len": {"x"}, "offset": {"0"}}, kerrors.EINVAL_NEG},
		{"/api/read", url.Values{"path": {"/"}, "len": {"1"}, "offset": {"0"}}, -kerrors.ENOENT},
		{"/api/read", url.Values{"path": {filePath}, "len": {"1"}, "offset": {"-1"}}, kerrors.EINVAL_NEG},
		{"/api/write", url.Values{"path": {filePath}, "offset": {"0"}, "data": {"%%%"}}, kerrors.EINVAL_NEG},
		{"/api/write", url.Values{"path": {"/"}, "offset": {"0"}, "data": {"eA=="}}, -kerrors.ENOENT},
		{"/api/truncate", url.Values{"path": {filePath}}, kerrors.EINVAL_NEG},
		{"/api/unlink", url.Values{"path": {"/nope"}}, -kerrors.ENOENT},
	}
	for _, tc := range cases {
		code, _ := call(t, srv, tc.endpoint, tc.params)
		assert.Equal(t, tc.want, code, "%s %v", tc.endpoint, tc.params)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := testServer(t, 64)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/unlink?path=%2Ftest.txt", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
