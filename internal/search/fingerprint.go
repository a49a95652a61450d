// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package search

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"strconv"
)

// fingerprint hashes the full identity of a search: owner, normalized
// query text, every filter, and the limit. Hashing the complete
// normalized content (never a prefix) means long queries sharing a
// prefix can never collide.
func fingerprint(owner, queryText string, opts Options) string {
	h := sha256.New()

	writeField := func(s string) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}

	writeField(owner)
	writeField(normalizeQuery(queryText))

	tags := make([]string, len(opts.Tags))
	copy(tags, opts.Tags)
	sort.Strings(tags)
	writeField(strconv.Itoa(len(tags)))
	for _, tag := range tags {
		writeField(tag)
	}

	writeField(string(opts.Outcome))
	if opts.Since.IsZero() {
		writeField("")
	} else {
		writeField(strconv.FormatInt(opts.Since.UnixNano(), 10))
	}
	if opts.Until.IsZero() {
		writeField("")
	} else {
		writeField(strconv.FormatInt(opts.Until.UnixNano(), 10))
	}
	writeField(strconv.Itoa(opts.Limit))
	writeField(strconv.FormatFloat(opts.MinSimilarity, 'g', -1, 64))

	return hex.EncodeToString(h.Sum(nil))
}
