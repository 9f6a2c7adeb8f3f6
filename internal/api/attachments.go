package api

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Binary assets (battle maps, handouts, portraits) live in one vault
// subdirectory and are addressed by bare filename only.
const (
	assetsDir      = "assets"
	maxUploadBytes = 50 << 20 // 50 MB
)

// AttachmentHandler serves and accepts binary assets referenced from
// entry bodies.
type AttachmentHandler struct {
	dir string // absolute assets directory
}

// NewAttachmentHandler creates a handler rooted at the vault directory.
func NewAttachmentHandler(vaultRoot string) *AttachmentHandler {
	return &AttachmentHandler{dir: filepath.Join(vaultRoot, assetsDir)}
}

// resolve maps a bare filename to its absolute path. Separators,
// traversal, and anything else that could escape the assets directory
// are rejected.
func (h *AttachmentHandler) resolve(name string) (string, bool) {
	if name == "" || strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) {
		return "", false
	}
	if name != filepath.Base(filepath.Clean(name)) {
		return "", false
	}
	return filepath.Join(h.dir, name), true
}

// ServeFile handles GET /assets/{filename}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, ok := h.resolve(chi.URLParam(r, "filename"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid asset name"))
		return
	}
	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/attachments (multipart/form-data, field "file").
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	src, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer src.Close()

	// Browsers may send a full client-side path; only the base name counts.
	abs, ok := h.resolve(filepath.Base(header.Filename))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid asset name"))
		return
	}

	size, err := h.save(abs, src)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to store asset"))
		return
	}

	name := filepath.Base(abs)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"filename": name,
		"size":     size,
		"url":      "/assets/" + name,
	})
}

// save writes the upload under the assets directory, creating the
// directory on first use.
func (h *AttachmentHandler) save(abs string, src io.Reader) (int64, error) {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return 0, err
	}
	dst, err := os.Create(abs)
	if err != nil {
		return 0, err
	}
	defer dst.Close()
	return io.Copy(dst, src)
}
