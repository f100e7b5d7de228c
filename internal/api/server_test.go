package api

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/folio/internal/config"
	"github.com/tsawler/folio/reader"
)

func newTestServer() *Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(log, config.Config{
		MaxUploadBytes: 10 << 20,
	})
}

// buildPDF produces a document of pageCount pages where page i has MediaBox
// width i*100.
func buildPDF(t *testing.T, pageCount int) []byte {
	t.Helper()

	var buf bytes.Buffer
	offsets := make([]int, pageCount+3)

	buf.WriteString("%PDF-1.7\n")

	add := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	add(1, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := 1; i <= pageCount; i++ {
		kids += fmt.Sprintf("%d 0 R ", 2+i)
	}
	add(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pageCount))

	for i := 1; i <= pageCount; i++ {
		add(2+i, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d 200] >>", i*100))
	}

	size := pageCount + 3
	xrefOff := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i < size; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, xrefOff)

	return buf.Bytes()
}

type upload struct {
	field string
	name  string
	data  []byte
}

func multipartRequest(t *testing.T, target string, files []upload, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	for key, val := range fields {
		require.NoError(t, mw.WriteField(key, val))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// parsePDFResponse asserts a PDF download and returns the parsed document.
func parsePDFResponse(t *testing.T, rec *httptest.ResponseRecorder) *reader.Document {
	t.Helper()

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	doc, err := reader.FromBytes(rec.Body.Bytes())
	require.NoError(t, err, "response must be a valid document")
	return doc
}

func TestHealth(t *testing.T) {
	s := newTestServer()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestExtract(t *testing.T) {
	s := newTestServer()

	req := multipartRequest(t, "/api/extract",
		[]upload{{"file", "in.pdf", buildPDF(t, 3)}},
		map[string]string{"pages": "1,3"})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	doc := parsePDFResponse(t, rec)
	assert.Equal(t, 2, doc.PageCount())
}

func TestExtractRequiresPages(t *testing.T) {
	s := newTestServer()

	req := multipartRequest(t, "/api/extract",
		[]upload{{"file", "in.pdf", buildPDF(t, 3)}}, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "pages is required")
}

func TestExtractEmptySelection(t *testing.T) {
	s := newTestServer()

	req := multipartRequest(t, "/api/extract",
		[]upload{{"file", "in.pdf", buildPDF(t, 3)}},
		map[string]string{"pages": "7-9"})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMerge(t *testing.T) {
	s := newTestServer()

	req := multipartRequest(t, "/api/merge",
		[]upload{
			{"files", "a.pdf", buildPDF(t, 2)},
			{"files", "b.pdf", buildPDF(t, 1)},
		}, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	doc := parsePDFResponse(t, rec)
	assert.Equal(t, 3, doc.PageCount())
}

func TestMergeRequiresTwoFiles(t *testing.T) {
	s := newTestServer()

	req := multipartRequest(t, "/api/merge",
		[]upload{{"files", "a.pdf", buildPDF(t, 2)}}, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRotate(t *testing.T) {
	s := newTestServer()

	req := multipartRequest(t, "/api/rotate",
		[]upload{{"file", "in.pdf", buildPDF(t, 2)}},
		map[string]string{"degrees": "90"})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	doc := parsePDFResponse(t, rec)
	page, err := doc.Page(1)
	require.NoError(t, err)
	assert.Equal(t, 90, page.Rotate())
}

func TestRotateBadDegrees(t *testing.T) {
	s := newTestServer()

	req := multipartRequest(t, "/api/rotate",
		[]upload{{"file", "in.pdf", buildPDF(t, 2)}},
		map[string]string{"degrees": "ninety"})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReorder(t *testing.T) {
	s := newTestServer()

	req := multipartRequest(t, "/api/reorder",
		[]upload{{"file", "in.pdf", buildPDF(t, 2)}},
		map[string]string{"order": "2,1"})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	doc := parsePDFResponse(t, rec)
	require.Equal(t, 2, doc.PageCount())

	page, err := doc.Page(1)
	require.NoError(t, err)
	box, err := page.MediaBox()
	require.NoError(t, err)
	assert.Equal(t, 200.0, box[2], "page 2 must come first")
}

func TestReorderInvalidPermutation(t *testing.T) {
	s := newTestServer()

	req := multipartRequest(t, "/api/reorder",
		[]upload{{"file", "in.pdf", buildPDF(t, 3)}},
		map[string]string{"order": "1,1,2"})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSplit(t *testing.T) {
	s := newTestServer()

	req := multipartRequest(t, "/api/split",
		[]upload{{"file", "in.pdf", buildPDF(t, 3)}},
		map[string]string{"every": "2"})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))

	archive, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	require.Len(t, archive.File, 2)
	assert.Equal(t, "part-001.pdf", archive.File[0].Name)

	entry, err := archive.File[0].Open()
	require.NoError(t, err)
	defer entry.Close()
	data, err := io.ReadAll(entry)
	require.NoError(t, err)

	doc, err := reader.FromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount())
}

func TestCompact(t *testing.T) {
	s := newTestServer()

	req := multipartRequest(t, "/api/compact",
		[]upload{{"file", "in.pdf", buildPDF(t, 2)}}, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	doc := parsePDFResponse(t, rec)
	assert.Equal(t, 2, doc.PageCount())
}

func TestMalformedUpload(t *testing.T) {
	s := newTestServer()

	req := multipartRequest(t, "/api/extract",
		[]upload{{"file", "in.pdf", []byte("this is not a pdf")}},
		map[string]string{"pages": "1"})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
