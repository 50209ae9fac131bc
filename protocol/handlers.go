// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package protocol implements component G, the upload protocol engine:
// the HTTP handlers for starting a session, issuing per-file nonces,
// streaming file uploads, and committing or aborting a session. It
// assumes TLS and any auth middleware run upstream; it owns only
// session and content semantics.
package protocol

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bitfsorg/dstore-go/apperr"
	"github.com/bitfsorg/dstore-go/config"
	"github.com/bitfsorg/dstore-go/datastore"
	"github.com/bitfsorg/dstore-go/external"
	"github.com/bitfsorg/dstore-go/hashstream"
	"github.com/bitfsorg/dstore-go/layout"
	"github.com/bitfsorg/dstore-go/merkle"
	"github.com/bitfsorg/dstore-go/noncecache"
	"github.com/bitfsorg/dstore-go/ownercache"
	"github.com/bitfsorg/dstore-go/session"
)

// externalCallTimeout bounds every call into an out-of-scope
// collaborator (signature verification, root history, foreign-tree
// membership, manifest regeneration).
const externalCallTimeout = 5 * time.Second

// Handlers wires the session, nonce, and owner registries together with
// the external collaborators to implement the upload protocol.
type Handlers struct {
	Layout        layout.Layout
	Sessions      *session.Registry
	Nonces        *noncecache.Cache
	Owners        *ownercache.Cache
	Store         *datastore.Store
	SigVerifier   external.SignatureVerifier
	RootHistory   external.RootHistoryProvider
	TreeValidator external.ForeignTreeValidator
	ManifestGen   external.ManifestGenerator
	CoinInfo      external.CoinInfoProvider

	OwnerUsername     string
	OwnerPasswordHash string

	Log *slog.Logger
}

func (h *Handlers) log() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}

func nonceKey(storeID, sessionID, filename string) string {
	return storeID + "_" + sessionID + "_" + filename
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Exists implements HEAD /{storeId}.
func (h *Handlers) Exists(w http.ResponseWriter, r *http.Request) {
	storeID := strings.ToLower(r.PathValue("storeId"))
	exists := h.Store.Exists(storeID)
	w.Header().Set("x-store-exists", strconv.FormatBool(exists))

	if rootHash := r.URL.Query().Get("hasRootHash"); rootHash != "" {
		has := exists && h.Store.HasRootCommitment(storeID, strings.ToLower(rootHash))
		w.Header().Set("x-has-root-hash", strconv.FormatBool(has))
	}
	w.WriteHeader(http.StatusOK)
}

// ownerAuthOK reports whether r carries Basic-Auth credentials matching
// the server's configured owner. If no owner credentials are
// configured, store creation can never be authorized.
func (h *Handlers) ownerAuthOK(r *http.Request) bool {
	if h.OwnerUsername == "" || h.OwnerPasswordHash == "" {
		return false
	}
	user, pass, ok := r.BasicAuth()
	if !ok || user != h.OwnerUsername {
		return false
	}
	valid, err := config.VerifyOwnerPassword(h.OwnerPasswordHash, pass)
	return err == nil && valid
}

// StartUpload implements POST /upload/{storeId}.
func (h *Handlers) StartUpload(w http.ResponseWriter, r *http.Request) {
	storeID := strings.ToLower(r.PathValue("storeId"))
	if !isHex64(storeID) {
		apperr.Write(w, apperr.Bad("%v", fmt.Errorf("%w: %q", ErrInvalidStoreID, storeID)))
		return
	}

	if !h.Store.Exists(storeID) && !h.ownerAuthOK(r) {
		apperr.Write(w, apperr.Unauth("%v", ErrOwnerAuthRequired))
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		apperr.Write(w, apperr.Bad("expected multipart body: %v", err))
		return
	}

	sess, err := h.Sessions.Create(storeID)
	if err != nil {
		apperr.Write(w, apperr.Internalf(err, "create session"))
		return
	}

	rootHash, err := h.receiveRootCommitment(sess, mr)
	if err != nil {
		_ = h.Sessions.Destroy(sess.ID)
		apperr.Write(w, apperr.Bad("%v", err))
		return
	}

	if h.Store.HasRootCommitment(storeID, rootHash) {
		_ = h.Sessions.Destroy(sess.ID)
		apperr.Write(w, apperr.New(apperr.Conflict, ErrRootCommitmentAlreadyCommitted.Error()))
		return
	}

	raw, err := os.ReadFile(h.Layout.SessionFilePath(sess.ID, rootHash+".dat"))
	if err != nil {
		_ = h.Sessions.Destroy(sess.ID)
		apperr.Write(w, apperr.Internalf(err, "read root commitment"))
		return
	}
	payload, err := merkle.Decode(raw)
	if err != nil {
		_ = h.Sessions.Destroy(sess.ID)
		apperr.Write(w, apperr.Bad("%v", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), externalCallTimeout)
	defer cancel()
	if err := merkle.ValidateRootCommitment(ctx, payload, rootHash, storeID, h.RootHistory); err != nil {
		_ = h.Sessions.Destroy(sess.ID)
		apperr.Write(w, apperr.Bad("%v", err))
		return
	}

	if err := sess.SetRootHash(rootHash); err != nil {
		_ = h.Sessions.Destroy(sess.ID)
		apperr.Write(w, apperr.Internalf(err, "assign root hash"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"sessionId": sess.ID})
}

// receiveRootCommitment reads the single multipart part of a
// start-upload request, validates its filename is "<rootHash>.dat",
// and streams it into the session's temp directory.
func (h *Handlers) receiveRootCommitment(sess *session.Session, mr *multipart.Reader) (string, error) {
	part, err := mr.NextPart()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingRootCommitment, err)
	}
	defer part.Close()

	rootHash, ok := rootHashFromDatFilename(filepath.Base(part.FileName()))
	if !ok {
		return "", fmt.Errorf("%w: filename %q", ErrInvalidRootHash, part.FileName())
	}

	dst := h.Layout.SessionFilePath(sess.ID, rootHash+".dat")
	if err := layout.EnsureParentDir(dst); err != nil {
		return "", err
	}
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("create root commitment file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, part); err != nil {
		return "", fmt.Errorf("stream root commitment: %w", err)
	}
	return rootHash, nil
}

// IssueNonce implements HEAD /upload/{storeId}/{sessionId}/{filename...}.
func (h *Handlers) IssueNonce(w http.ResponseWriter, r *http.Request) {
	storeID := strings.ToLower(r.PathValue("storeId"))
	sessionID := r.PathValue("sessionId")
	filename := r.PathValue("filename")

	if _, ok := h.Sessions.Get(sessionID); !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	inSession := layout.FileExists(h.Layout.SessionFilePath(sessionID, filename))
	inStore := layout.FileExists(filepath.Join(h.Layout.StoreDir(storeID), filepath.FromSlash(filename)))
	exists := inSession || inStore

	w.Header().Set("x-file-exists", strconv.FormatBool(exists))
	if exists {
		w.WriteHeader(http.StatusOK)
		return
	}

	nonce, err := h.Nonces.Issue(nonceKey(storeID, sessionID, filename))
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("x-nonce", nonce)
	w.WriteHeader(http.StatusOK)
}

// UploadFile implements PUT /upload/{storeId}/{sessionId}/{filename...}.
func (h *Handlers) UploadFile(w http.ResponseWriter, r *http.Request) {
	storeID := strings.ToLower(r.PathValue("storeId"))
	sessionID := r.PathValue("sessionId")
	filename := r.PathValue("filename")

	nonce := r.Header.Get("x-nonce")
	publicKey := r.Header.Get("x-public-key")
	sig := r.Header.Get("x-key-ownership-sig")
	if nonce == "" || publicKey == "" || sig == "" {
		apperr.Write(w, apperr.Bad("%v", ErrMissingUploadHeaders))
		return
	}

	if !h.Nonces.ValidateAndConsume(nonceKey(storeID, sessionID, filename), nonce) {
		apperr.Write(w, apperr.Unauth("nonce invalid, expired, or already used"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), externalCallTimeout)
	defer cancel()

	valid, err := h.SigVerifier.VerifyKeyOwnershipSignature(ctx, nonce, sig, publicKey)
	if err != nil || !valid {
		apperr.Write(w, apperr.Unauth("key ownership signature verification failed"))
		return
	}

	sess, ok := h.Sessions.Get(sessionID)
	if !ok {
		apperr.Write(w, apperr.NotFoundf("unknown session"))
		return
	}

	allowed, err := h.Owners.IsOwner(ctx, publicKey, storeID)
	if err != nil {
		apperr.Write(w, apperr.Internalf(err, "check write permission"))
		return
	}
	if !allowed {
		apperr.Write(w, apperr.Forbid("signer lacks write permission for this store"))
		return
	}

	dst := h.Layout.SessionFilePath(sessionID, filename)
	if err := layout.EnsureParentDir(dst); err != nil {
		apperr.Write(w, apperr.Internalf(err, "prepare destination"))
		return
	}

	digest, err := h.streamUpload(r.Body, dst, sessionID, publicKey, storeID, layout.IsDataPath(filename))
	if err != nil {
		_ = os.Remove(dst)
		apperr.Write(w, apperr.Internalf(err, "stream upload"))
		return
	}

	if layout.IsDataPath(filename) {
		payload, err := h.loadSessionPayload(sess)
		if err != nil {
			_ = os.Remove(dst)
			_ = h.Sessions.Destroy(sessionID)
			apperr.Write(w, apperr.Bad("%v", err))
			return
		}

		tmpDataDir := filepath.Join(sess.TmpDir, "data")
		err = merkle.ValidateLeafMembership(ctx, payload, filename, digest, sess.RootHash(), tmpDataDir, h.TreeValidator)
		if err != nil {
			_ = os.Remove(dst)
			_ = h.Sessions.Destroy(sessionID)
			apperr.Write(w, apperr.Bad("%v", err))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

// streamUpload pipes src through a bump-observing pass-through, then a
// sha-256 hashing reader, then — only for data/ paths — a gzip
// compressor, into dst. It returns the pre-compression hex digest.
func (h *Handlers) streamUpload(src io.Reader, dst, sessionID, publicKey, storeID string, gzipCompress bool) (string, error) {
	onChunk := func() {
		h.Sessions.Bump(sessionID)
		h.Owners.Bump(publicKey, storeID)
	}
	hashed := hashstream.NewReader(newPassThroughReader(src, onChunk))

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("create destination file: %w", err)
	}

	var writeErr error
	if gzipCompress {
		gz := gzip.NewWriter(f)
		_, writeErr = io.Copy(gz, hashed)
		if writeErr == nil {
			writeErr = gz.Close()
		}
	} else {
		_, writeErr = io.Copy(f, hashed)
	}
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return "", writeErr
	}
	return hashed.SumHex(), nil
}

func (h *Handlers) loadSessionPayload(sess *session.Session) (*merkle.Payload, error) {
	path := h.Layout.SessionFilePath(sess.ID, sess.RootHash()+".dat")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read root commitment: %w", err)
	}
	return merkle.Decode(raw)
}

// Commit implements POST /commit/{storeId}/{sessionId}.
func (h *Handlers) Commit(w http.ResponseWriter, r *http.Request) {
	storeID := strings.ToLower(r.PathValue("storeId"))
	sessionID := r.PathValue("sessionId")

	sess, ok := h.Sessions.Get(sessionID)
	if !ok {
		apperr.Write(w, apperr.NotFoundf("unknown session"))
		return
	}
	defer func() { _ = h.Sessions.Destroy(sessionID) }()

	rootHash := sess.RootHash()
	if rootHash == "" {
		apperr.Write(w, apperr.Bad("session has no accepted root commitment"))
		return
	}

	datPath := h.Layout.SessionFilePath(sessionID, rootHash+".dat")
	if !layout.FileExists(datPath) {
		apperr.Write(w, apperr.Bad("%v", fmt.Errorf("%w: %s.dat", datastore.ErrRootCommitmentMissing, rootHash)))
		return
	}

	raw, err := os.ReadFile(datPath)
	if err != nil {
		apperr.Write(w, apperr.Internalf(err, "read root commitment"))
		return
	}
	payload, err := merkle.Decode(raw)
	if err != nil {
		apperr.Write(w, apperr.Bad("%v", err))
		return
	}

	if err := h.Store.BlobsSatisfied(storeID, sess.TmpDir, payload); err != nil {
		apperr.Write(w, apperr.Bad("%v", err))
		return
	}

	if err := h.Store.Commit(storeID, sess.TmpDir, rootHash); err != nil {
		apperr.Write(w, apperr.Internalf(err, "commit session"))
		return
	}

	if h.CoinInfo != nil {
		ctx, cancel := context.WithTimeout(r.Context(), externalCallTimeout)
		defer cancel()
		if _, err := h.CoinInfo.FetchCoinInfo(ctx, storeID); err != nil {
			h.log().Warn("coin info cache refresh failed after commit", "store_id", storeID, "error", err)
		}
	}

	if h.ManifestGen != nil {
		ctx, cancel := context.WithTimeout(r.Context(), externalCallTimeout)
		defer cancel()
		if err := h.ManifestGen.GenerateManifest(ctx, storeID); err != nil {
			h.log().Warn("manifest regeneration failed after commit", "store_id", storeID, "error", err)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// Abort implements POST /abort/{storeId}/{sessionId}.
func (h *Handlers) Abort(w http.ResponseWriter, r *http.Request) {
	storeID := strings.ToLower(r.PathValue("storeId"))
	sessionID := r.PathValue("sessionId")

	if _, ok := h.Sessions.Get(sessionID); !ok {
		apperr.Write(w, apperr.NotFoundf("unknown session"))
		return
	}

	if err := h.Sessions.Destroy(sessionID); err != nil {
		apperr.Write(w, apperr.Internalf(err, "destroy session"))
		return
	}

	if h.ManifestGen != nil {
		ctx, cancel := context.WithTimeout(r.Context(), externalCallTimeout)
		defer cancel()
		if err := h.ManifestGen.GenerateManifest(ctx, storeID); err != nil {
			h.log().Warn("manifest regeneration failed after abort", "store_id", storeID, "error", err)
		}
	}

	w.WriteHeader(http.StatusOK)
}
