// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package hashstream provides stream transformers that forward bytes
// unchanged while accumulating a running digest, so a digest can be
// computed on data that also needs to flow on to a compressor or a
// file, without buffering the whole payload in memory.
package hashstream

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Writer wraps a destination io.Writer, forwarding every byte written to
// it while maintaining a running sha-256 digest of the bytes seen so
// far. It is meant to sit upstream of an optional compressor: the
// digest it reports is always of the uncompressed bytes.
type Writer struct {
	dst io.Writer
	h   hash.Hash
	n   int64
}

// NewWriter returns a Writer that forwards to dst.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: dst, h: sha256.New()}
}

func (w *Writer) Write(p []byte) (int, error) {
	w.h.Write(p)
	n, err := w.dst.Write(p)
	w.n += int64(n)
	return n, err
}

// Sum returns the raw sha-256 digest of everything written so far.
func (w *Writer) Sum() []byte { return w.h.Sum(nil) }

// SumHex returns the hex-encoded sha-256 digest of everything written so
// far.
func (w *Writer) SumHex() string { return hex.EncodeToString(w.Sum()) }

// BytesWritten returns the number of bytes forwarded downstream.
func (w *Writer) BytesWritten() int64 { return w.n }

// Reader wraps a source io.Reader, forwarding every byte read from it
// while maintaining a running sha-256 digest of the bytes seen so far.
type Reader struct {
	src io.Reader
	h   hash.Hash
	n   int64
}

// NewReader returns a Reader that reads from src.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src, h: sha256.New()}
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		r.h.Write(p[:n])
		r.n += int64(n)
	}
	return n, err
}

// Sum returns the raw sha-256 digest of everything read so far.
func (r *Reader) Sum() []byte { return r.h.Sum(nil) }

// SumHex returns the hex-encoded sha-256 digest of everything read so
// far.
func (r *Reader) SumHex() string { return hex.EncodeToString(r.Sum()) }

// BytesRead returns the number of bytes read from the source so far.
func (r *Reader) BytesRead() int64 { return r.n }
