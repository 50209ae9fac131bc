// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package protocol

import (
	"io"
	"time"
)

// bumpInterval bounds how often a streamed PUT slides the session and
// owner-cache deadlines forward — the spec permits bounding this to
// once per second or per N bytes rather than on every chunk.
const bumpInterval = time.Second

// passThroughReader forwards Read calls to src, invoking onChunk at
// most once per bumpInterval so a long-running upload keeps its session
// and owner-cache entries alive without a syscall-per-chunk lock storm.
type passThroughReader struct {
	src      io.Reader
	onChunk  func()
	lastBump time.Time
}

func newPassThroughReader(src io.Reader, onChunk func()) *passThroughReader {
	return &passThroughReader{src: src, onChunk: onChunk}
}

func (p *passThroughReader) Read(buf []byte) (int, error) {
	n, err := p.src.Read(buf)
	if n > 0 {
		if now := time.Now(); now.Sub(p.lastBump) >= bumpInterval {
			p.lastBump = now
			p.onChunk()
		}
	}
	return n, err
}
