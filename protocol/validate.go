// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package protocol

import "strings"

const hexHashLen = 64

func isHex64(s string) bool {
	if len(s) != hexHashLen {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func rootHashFromDatFilename(name string) (string, bool) {
	const suffix = ".dat"
	if !strings.HasSuffix(name, suffix) {
		return "", false
	}
	hash := strings.TrimSuffix(name, suffix)
	if !isHex64(hash) {
		return "", false
	}
	return strings.ToLower(hash), true
}
