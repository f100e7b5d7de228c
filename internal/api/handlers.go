package api

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/tsawler/folio/compose"
	"github.com/tsawler/folio/pagerange"
	"github.com/tsawler/folio/reader"
	"github.com/tsawler/folio/writer"
)

// handleMerge concatenates the uploaded files, in form order.
//
//	POST /api/merge
//	multipart fields: files (repeated), compact (optional bool)
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	if !s.parseUpload(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) < 2 {
		jsonError(w, fmt.Sprintf("merge requires at least two files, got %d", len(headers)), http.StatusBadRequest)
		return
	}

	docs := make([]*reader.Document, 0, len(headers))
	for _, header := range headers {
		doc, err := s.readUploadedDoc(header)
		if err != nil {
			s.respondError(w, fmt.Errorf("%s: %w", header.Filename, err))
			return
		}
		docs = append(docs, doc)
	}

	merged, err := compose.Merge(docs...)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondPDF(w, r, merged, "merged.pdf")
}

// handleExtract builds a document from the selected pages of one upload.
//
//	POST /api/extract
//	multipart fields: file, pages (range expression)
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.singleUpload(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	expression := r.FormValue("pages")
	if expression == "" {
		jsonError(w, "pages is required", http.StatusBadRequest)
		return
	}

	out, err := compose.ExtractRange(doc, expression)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondPDF(w, r, out, "extracted.pdf")
}

// handleSplit splits one upload into chunks of consecutive pages and
// returns them as a zip archive.
//
//	POST /api/split
//	multipart fields: file, every (optional chunk size, default 1)
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.singleUpload(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	every := 1
	if v := r.FormValue("every"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "every must be a positive integer", http.StatusBadRequest)
			return
		}
		every = n
	}

	parts, err := compose.SplitEvery(doc, every)
	if err != nil {
		s.respondError(w, err)
		return
	}

	wr := s.writerFor(r)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="parts.zip"`)

	zw := zip.NewWriter(w)
	for i, part := range parts {
		entry, err := zw.Create(fmt.Sprintf("part-%03d.pdf", i+1))
		if err != nil {
			s.log.Error("zip entry failed", "error", err)
			return
		}
		if err := wr.Write(part, entry); err != nil {
			s.log.Error("serialization failed mid-archive", "part", i+1, "error", err)
			return
		}
	}
	if err := zw.Close(); err != nil {
		s.log.Error("zip close failed", "error", err)
	}
}

// handleRotate adds a rotation delta to the selected pages of one upload.
//
//	POST /api/rotate
//	multipart fields: file, pages (optional, default all), degrees
func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.singleUpload(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	degrees, err := strconv.Atoi(r.FormValue("degrees"))
	if err != nil {
		jsonError(w, "degrees must be an integer", http.StatusBadRequest)
		return
	}

	expression := r.FormValue("pages")
	if expression == "" {
		expression = pagerange.Stringify(pagerange.All(doc.PageCount()))
	}

	out, err := compose.Rotate(doc, expression, degrees)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondPDF(w, r, out, "rotated.pdf")
}

// handleReorder permutes the pages of one upload.
//
//	POST /api/reorder
//	multipart fields: file, order (comma-separated indices, e.g. "3,1,2")
func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.singleUpload(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	orderField := r.FormValue("order")
	if orderField == "" {
		jsonError(w, "order is required", http.StatusBadRequest)
		return
	}

	parts := strings.Split(orderField, ",")
	permutation := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			jsonError(w, fmt.Sprintf("order contains non-integer %q", strings.TrimSpace(part)), http.StatusBadRequest)
			return
		}
		permutation = append(permutation, n)
	}

	out, err := compose.Reorder(doc, permutation)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondPDF(w, r, out, "reordered.pdf")
}

// handleCompact rewrites one upload with unreachable objects dropped and
// streams compressed.
//
//	POST /api/compact
//	multipart fields: file
func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.singleUpload(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	out, err := compose.Clone(doc)
	if err != nil {
		s.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="compacted.pdf"`)
	if err := writer.New(writer.WithRecompact()).Write(out, w); err != nil {
		s.log.Error("serialization failed mid-response", "error", err)
	}
}

// parseUpload enforces the upload size limit and parses the multipart form.
// Writes the error response itself on failure.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// singleUpload parses the form and loads the single "file" field as a
// document. Writes the error response itself on failure.
func (s *Server) singleUpload(w http.ResponseWriter, r *http.Request) (*reader.Document, bool) {
	if !s.parseUpload(w, r) {
		return nil, false
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) != 1 {
		jsonError(w, "exactly one file is required", http.StatusBadRequest)
		return nil, false
	}

	doc, err := s.readUploadedDoc(headers[0])
	if err != nil {
		s.respondError(w, err)
		return nil, false
	}
	return doc, true
}

func (s *Server) readUploadedDoc(header *multipart.FileHeader) (*reader.Document, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}

	return reader.FromBytes(data)
}

// writerFor picks the serializer based on the request's compact flag and
// the configured default.
func (s *Server) writerFor(r *http.Request) *writer.Writer {
	compact := s.cfg.RecompactDefault
	if v := r.FormValue("compact"); v != "" {
		compact = v == "true" || v == "1"
	}
	if compact {
		return writer.New(writer.WithRecompact())
	}
	return writer.New()
}

// respondPDF finalizes and streams a composed document as a download.
func (s *Server) respondPDF(w http.ResponseWriter, r *http.Request, doc *compose.Document, filename string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := s.writerFor(r).Write(doc, w); err != nil {
		// Headers are already out; all we can do is log
		s.log.Error("serialization failed mid-response", "error", err)
	}
}

// respondError maps engine errors to HTTP status codes.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	var malformed *reader.MalformedDocumentError
	var serialization *writer.SerializationError

	switch {
	case errors.Is(err, pagerange.ErrInvalidRange),
		errors.Is(err, pagerange.ErrEmptyRange),
		errors.Is(err, compose.ErrInsufficientInput),
		errors.Is(err, compose.ErrEmptyDocument),
		errors.Is(err, compose.ErrInvalidPermutation),
		errors.Is(err, compose.ErrInvalidRotation):
		jsonError(w, err.Error(), http.StatusBadRequest)

	case errors.As(err, &malformed):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)

	case errors.As(err, &serialization):
		jsonError(w, err.Error(), http.StatusInternalServerError)

	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
