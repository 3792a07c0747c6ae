// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, "nope")
		case "/slow":
			time.Sleep(200 * time.Millisecond)
		case "/moved":
			http.Redirect(w, r, "/echo", http.StatusFound)
		default:
			b, _ := io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "text/plain")
			w.Header().Set("X-Method", r.Method)
			_, _ = io.WriteString(w, r.Header.Get("X-Test")+"|"+string(b))
		}
	}))
	defer server.Close()

	t.Run("GET", func(t *testing.T) {
		out, _, err := execute(t, "-H", "X-Test: yes", server.URL+"/echo")

		require.NoError(t, err)
		assert.Equal(t, "yes|", out)
	})
	t.Run("POST data", func(t *testing.T) {
		out, _, err := execute(t, "-i", "-d", "payload", server.URL+"/echo")

		require.NoError(t, err)
		assert.Contains(t, out, "HTTP/1.1 200 OK\n")
		assert.Contains(t, out, "X-Method: POST\n")
		assert.Contains(t, out, "\n\n|payload")
	})
	t.Run("no follow", func(t *testing.T) {
		out, _, err := execute(t, "-i", "--no-follow", server.URL+"/moved")

		require.NoError(t, err)
		assert.Contains(t, out, "302 Found")
		assert.Contains(t, out, "Location: /echo\n")
	})
	t.Run("status error", func(t *testing.T) {
		out, stderr, err := execute(t, server.URL+"/missing")

		require.Error(t, err)
		assert.Equal(t, "nope", out)
		assert.Contains(t, stderr, "404")
	})
	t.Run("max time", func(t *testing.T) {
		_, _, err := execute(t, "--max-time", "20ms", "--retries", "0", server.URL+"/slow")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out after 20ms")
	})
	t.Run("bad header", func(t *testing.T) {
		_, _, err := execute(t, "-H", "nocolon", server.URL)

		assert.EqualError(t, err, `invalid header "nocolon": want 'Name: value'`)
	})
	t.Run("missing URL", func(t *testing.T) {
		_, _, err := execute(t)

		assert.Error(t, err)
	})
}
