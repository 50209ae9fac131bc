// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package fetch implements component H, the fetch surface: read-only
// HTTP handlers that probe or stream committed content. Blobs under
// data/ are served exactly as stored — gzip-compressed where the
// upload was compressed — since integrity was checked against the
// pre-compression digest at upload time; callers are expected to
// decompress.
package fetch

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/bitfsorg/dstore-go/apperr"
	"github.com/bitfsorg/dstore-go/datastore"
	"github.com/bitfsorg/dstore-go/layout"
)

// Handlers serves committed store content.
type Handlers struct {
	Store *datastore.Store
}

// Probe implements HEAD /fetch/{storeId}/{roothash}/<dataPath>. The
// roothash path segment is accepted for URL symmetry with the upload
// surface but is not itself validated — existence is always checked
// against the live committed store, not against any particular root.
func (h *Handlers) Probe(w http.ResponseWriter, r *http.Request) {
	storeID := strings.ToLower(r.PathValue("storeId"))
	dataPath := r.PathValue("dataPath")

	hexHash, ok := layout.HashFromDataPath(dataPath)
	if !ok {
		apperr.Write(w, apperr.Bad("dataPath must be rooted under data/"))
		return
	}

	if !h.Store.HasBlob(storeID, hexHash) {
		w.Header().Set("x-file-exists", "false")
		w.WriteHeader(http.StatusOK)
		return
	}

	size, err := h.Store.StatBlob(storeID, hexHash)
	if err != nil {
		w.Header().Set("x-file-exists", "false")
		w.WriteHeader(http.StatusOK)
		return
	}

	w.Header().Set("x-file-exists", "true")
	w.Header().Set("x-file-size", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
}

// Download implements GET /fetch/{storeId}/<dataPath>. If the stream
// errors after headers have been sent, the connection is dropped rather
// than attempting to recover or append an error body.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	storeID := strings.ToLower(r.PathValue("storeId"))
	dataPath := r.PathValue("dataPath")

	hexHash, ok := layout.HashFromDataPath(dataPath)
	if !ok {
		apperr.Write(w, apperr.Bad("dataPath must be rooted under data/"))
		return
	}

	blob, size, err := h.Store.OpenBlob(storeID, hexHash)
	if err != nil {
		if errors.Is(err, datastore.ErrBlobMissing) {
			apperr.Write(w, apperr.NotFoundf("file not found"))
			return
		}
		apperr.Write(w, apperr.Internalf(err, "open blob"))
		return
	}
	defer blob.Close()

	filename := path.Base(dataPath)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, blob); err != nil {
		panic(http.ErrAbortHandler)
	}
}
