// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command hopper sends one HTTP request and prints the response.
//
// Usage:
//
//	hopper [flags] URL
//
// For example:
//
//	hopper -X POST -H 'Content-Type: application/json' -d '{"a":1}' https://example.com/items
//	hopper --retries 3 --log-level debug -i http://localhost:8080/health
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
