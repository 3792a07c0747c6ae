// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package codec implements the HTTP content-encodings understood by the
// client: gzip, deflate (zlib framing), deflate-raw, zstd and br, plus the
// no-op identity encoding.
//
// Encodings are named the way they appear in Content-Encoding and
// Accept-Encoding header values. A list of encodings is applied in the
// order given when encoding, and undone in reverse order when decoding.
package codec
