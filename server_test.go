// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package hopper

import (
	"bufio"
	"compress/gzip"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogama/hopper/alpn"
	"github.com/gogama/hopper/cookie"
	"github.com/gogama/hopper/dispatch"
	"github.com/gogama/hopper/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
)

var httpServer = httptest.NewUnstartedServer(newServerMux())
var http2Server = httptest.NewUnstartedServer(newServerMux())
var h2cServer = newH2COnlyServer(newServerMux())

func TestMain(m *testing.M) {
	httpServer.Start()
	defer httpServer.Close()
	http2Server.EnableHTTP2 = true
	http2Server.StartTLS()
	defer http2Server.Close()
	defer h2cServer.Close()
	os.Exit(m.Run())
}

type echo struct {
	Method        string `json:"method"`
	Proto         string `json:"proto"`
	Path          string `json:"path"`
	Cookie        string `json:"cookie"`
	Authorization string `json:"authorization"`
	ContentType   string `json:"contentType"`
	Body          string `json:"body"`
}

var flaky sync.Map

func newServerMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(echo{
			Method:        r.Method,
			Proto:         r.Proto,
			Path:          r.URL.Path,
			Cookie:        r.Header.Get("Cookie"),
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			Body:          string(b),
		})
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if name := q.Get("cookie"); name != "" {
			http.SetCookie(w, &http.Cookie{Name: name, Value: q.Get("value"), Path: "/"})
		}
		code, err := strconv.Atoi(q.Get("code"))
		if err != nil {
			code = http.StatusFound
		}
		w.Header().Set("Location", q.Get("to"))
		w.WriteHeader(code)
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		n, _ := flaky.LoadOrStore(q.Get("key"), new(int32))
		fail, _ := strconv.Atoi(q.Get("fail"))
		if int(atomic.AddInt32(n.(*int32), 1)) <= fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "recovered")
	})
	mux.HandleFunc("/gzip", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = io.WriteString(gz, "hello gzip")
		_ = gz.Close()
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		d, _ := time.ParseDuration(r.URL.Query().Get("d"))
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
		_, _ = io.WriteString(w, "finally")
	})
	return mux
}

// h2cOnlyServer speaks only HTTP/2 over plaintext. Like such servers in
// the wild, it answers an HTTP/1.1 request with a SETTINGS frame.
type h2cOnlyServer struct {
	URL string
	ln  net.Listener
	wg  sync.WaitGroup
}

func newH2COnlyServer(h http.Handler) *h2cOnlyServer {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	s := &h2cOnlyServer{URL: "http://" + ln.Addr().String(), ln: ln}
	srv := &http2.Server{}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(srv, c, h)
		}
	}()
	return s
}

func (s *h2cOnlyServer) serve(srv *http2.Server, c net.Conn, h http.Handler) {
	br := bufio.NewReader(c)
	preface, err := br.Peek(len(http2.ClientPreface))
	if err == nil && string(preface) == http2.ClientPreface {
		srv.ServeConn(&peekConn{Conn: c, r: br}, &http2.ServeConnOpts{Handler: h})
		return
	}
	// Read the whole request so closing the connection does not reset it.
	if req, err := http.ReadRequest(br); err == nil {
		_, _ = io.Copy(io.Discard, req.Body)
	}
	_ = http2.NewFramer(c, nil).WriteSettings()
	_ = c.Close()
}

func (s *h2cOnlyServer) Close() {
	_ = s.ln.Close()
	s.wg.Wait()
}

type peekConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *peekConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

func newServerClient() *Client {
	pool := x509.NewCertPool()
	pool.AddCert(http2Server.Certificate())
	config := &tls.Config{RootCAs: pool}
	return &Client{
		Dispatcher: dispatch.New(dispatch.WithTLSConfig(config)),
		Negotiator: &alpn.Negotiator{TLSConfig: config},
		Jar:        cookie.NewJar(),
	}
}

func decodeEcho(t *testing.T, e *request.Execution) echo {
	var v echo
	require.NoError(t, e.Response.JSON(&v))
	return v
}

func TestServerHTTP1(t *testing.T) {
	cl := newServerClient()

	e, err := cl.Get(httpServer.URL + "/echo")

	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1", e.Proto)
	v := decodeEcho(t, e)
	assert.Equal(t, "GET", v.Method)
	assert.Equal(t, "HTTP/1.1", v.Proto)
	assert.IsType(t, map[string]interface{}{}, e.Response.Value)
}

func TestServerHTTP2Negotiated(t *testing.T) {
	cl := newServerClient()

	t.Run("GET", func(t *testing.T) {
		e, err := cl.Get(http2Server.URL + "/echo")

		require.NoError(t, err)
		assert.Equal(t, "HTTP/2.0", e.Proto)
		assert.Equal(t, "HTTP/2.0", decodeEcho(t, e).Proto)
		assert.True(t, e.Plan.EndStream)
		assert.Equal(t, "GET", e.Plan.Pseudo[":method"])
	})
	t.Run("POST stream", func(t *testing.T) {
		p, err := request.NewPlan("POST", http2Server.URL+"/echo", strings.NewReader("streamed"))
		require.NoError(t, err)

		e, err := cl.Do(p)

		require.NoError(t, err)
		v := decodeEcho(t, e)
		assert.Equal(t, "HTTP/2.0", v.Proto)
		assert.Equal(t, "streamed", v.Body)
		assert.Equal(t, request.TypeOctetStream, v.ContentType)
		assert.False(t, e.Plan.EndStream)
	})
}

func TestServerH2CFallback(t *testing.T) {
	cl := newServerClient()

	e, err := cl.Get(h2cServer.URL + "/echo")

	require.NoError(t, err)
	assert.Equal(t, 1, e.Retries)
	assert.Equal(t, "HTTP/2.0", e.Proto)
	assert.Equal(t, "HTTP/2.0", decodeEcho(t, e).Proto)
}

func TestServerH2CRedirectToHTTP1(t *testing.T) {
	cl := newServerClient()
	to := url.QueryEscape(httpServer.URL + "/echo")

	t.Run("forced h2", func(t *testing.T) {
		p, err := request.NewPlan("GET", h2cServer.URL+"/redirect?to="+to, nil, request.WithH2(true))
		require.NoError(t, err)

		e, err := cl.Do(p)

		require.NoError(t, err)
		assert.Equal(t, 1, e.Hop)
		assert.Equal(t, "HTTP/1.1", decodeEcho(t, e).Proto)
	})
	t.Run("after fallback", func(t *testing.T) {
		e, err := cl.Get(h2cServer.URL + "/redirect?to=" + to)

		require.NoError(t, err)
		assert.Equal(t, 1, e.Retries)
		assert.Equal(t, 1, e.Hop)
		assert.Equal(t, "HTTP/1.1", decodeEcho(t, e).Proto)
	})
}

func TestServerRedirect(t *testing.T) {
	cl := newServerClient()
	to := url.QueryEscape("/echo")

	t.Run("cookies", func(t *testing.T) {
		e, err := cl.Get(httpServer.URL + "/redirect?cookie=session&value=abc&to=" + to)

		require.NoError(t, err)
		assert.True(t, e.Response.Redirected)
		assert.Equal(t, "session=abc", decodeEcho(t, e).Cookie)
		assert.Equal(t, map[string]string{"session": "abc"}, e.Response.Cookies.Map())
	})
	t.Run("303 POST", func(t *testing.T) {
		e, err := cl.Post(httpServer.URL+"/redirect?code=303&to="+to, "text/plain", "gone")

		require.NoError(t, err)
		v := decodeEcho(t, e)
		assert.Equal(t, "GET", v.Method)
		assert.Empty(t, v.Body)
		assert.Empty(t, v.ContentType)
	})
	t.Run("307 POST", func(t *testing.T) {
		e, err := cl.Post(httpServer.URL+"/redirect?code=307&to="+to, "text/plain", "kept")

		require.NoError(t, err)
		v := decodeEcho(t, e)
		assert.Equal(t, "POST", v.Method)
		assert.Equal(t, "kept", v.Body)
	})
	t.Run("cross origin", func(t *testing.T) {
		other := url.QueryEscape(h2cServer.URL + "/echo")
		p, err := request.NewPlan("GET", httpServer.URL+"/redirect?to="+other, nil,
			request.WithHeader("Authorization", "Bearer token"))
		require.NoError(t, err)

		e, err := cl.Do(p)

		require.NoError(t, err)
		assert.Empty(t, decodeEcho(t, e).Authorization)
	})
}

func TestServerRetry(t *testing.T) {
	cl := newServerClient()
	p, err := request.NewPlan("GET", httpServer.URL+"/flaky?fail=2&key="+url.QueryEscape(t.Name()), nil, quickRetry(2))
	require.NoError(t, err)

	e, err := cl.Do(p)

	require.NoError(t, err)
	assert.Equal(t, 2, e.Retries)
	assert.Equal(t, "recovered", e.Response.Value)
}

func TestServerContentEncoding(t *testing.T) {
	cl := newServerClient()

	e, err := cl.Get(httpServer.URL + "/gzip")

	require.NoError(t, err)
	assert.Equal(t, []byte("hello gzip"), e.Response.Data)
	assert.Equal(t, "hello gzip", e.Response.Value)
}

func TestServerAttemptTimeout(t *testing.T) {
	cl := newServerClient()
	p, err := request.NewPlan("GET", httpServer.URL+"/slow?d=5s", nil, request.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	e, err := cl.Do(p)

	var urlErr *url.Error
	require.ErrorAs(t, err, &urlErr)
	assert.True(t, urlErr.Timeout())
	var te *request.TimeoutError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, 1, e.AttemptTimeouts)
}

func TestServerHandshakeTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var mu sync.Mutex
	var held []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			held = append(held, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range held {
			_ = c.Close()
		}
	})
	cl := newServerClient()
	p, err := request.NewPlan("GET", "https://"+ln.Addr().String()+"/", nil, request.WithTimeout(100*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	e, err := cl.Do(p)

	assert.Less(t, time.Since(start), 2*time.Second)
	var te *request.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 100*time.Millisecond, te.After)
	assert.Equal(t, 1, e.AttemptTimeouts)
}

func TestServerZeroValueClient(t *testing.T) {
	cl := &Client{}

	e, err := cl.Get(httpServer.URL + "/echo")

	require.NoError(t, err)
	assert.Equal(t, "GET", decodeEcho(t, e).Method)
}
