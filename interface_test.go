// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package hopper

import (
	"bytes"
	"io"
	"net/url"
	"testing"

	"github.com/gogama/hopper/request"
	"github.com/gogama/hopper/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type helperCase struct {
	name  string
	call  func(d Doer) (*request.Execution, error)
	match func(p *request.Plan) bool
}

func formBody(p *request.Plan) string {
	v, ok := p.Body.(url.Values)
	if !ok {
		return "<not a form>"
	}
	return v.Encode()
}

var helperCases = []helperCase{
	{
		name: "Get",
		call: func(d Doer) (*request.Execution, error) { return Get(d, "http://a.test/") },
		match: func(p *request.Plan) bool {
			return p.Method == "GET" && p.URL.String() == "http://a.test/" && p.Body == nil
		},
	},
	{
		name: "Head",
		call: func(d Doer) (*request.Execution, error) { return Head(d, "http://b.test/") },
		match: func(p *request.Plan) bool {
			return p.Method == "HEAD" && p.URL.String() == "http://b.test/"
		},
	},
	{
		name: "Post",
		call: func(d Doer) (*request.Execution, error) {
			return Post(d, "http://c.test/", "text/csv", "a,b")
		},
		match: func(p *request.Plan) bool {
			return p.Method == "POST" && p.Header.Get("Content-Type") == "text/csv" && p.Body == "a,b"
		},
	},
	{
		name: "Post without content type",
		call: func(d Doer) (*request.Execution, error) {
			return Post(d, "http://c.test/", "", []byte("a,b"))
		},
		match: func(p *request.Plan) bool {
			_, has := p.Header["Content-Type"]
			return p.Method == "POST" && !has
		},
	},
	{
		name: "PostForm",
		call: func(d Doer) (*request.Execution, error) {
			return PostForm(d, "http://d.test/form", url.Values{"q": {"go"}, "n": {"1"}})
		},
		match: func(p *request.Plan) bool {
			return p.Method == "POST" &&
				p.Header.Get("Content-Type") == "application/x-www-form-urlencoded" &&
				formBody(p) == "n=1&q=go"
		},
	},
}

func TestHelpers(t *testing.T) {
	for _, testCase := range helperCases {
		t.Run(testCase.name, func(t *testing.T) {
			want := &request.Execution{ID: testCase.name}
			m := newMockDoer(t)
			m.On("Do", mock.MatchedBy(testCase.match)).Return(want, nil).Once()

			e, err := testCase.call(m)

			require.NoError(t, err)
			assert.Same(t, want, e)
			m.AssertExpectations(t)
		})
	}
}

func TestHelpersInvalidURL(t *testing.T) {
	calls := map[string]func(d Doer) (*request.Execution, error){
		"Get":      func(d Doer) (*request.Execution, error) { return Get(d, ":::") },
		"Head":     func(d Doer) (*request.Execution, error) { return Head(d, "relative/path") },
		"Post":     func(d Doer) (*request.Execution, error) { return Post(d, ":::", "text/plain", "x") },
		"PostForm": func(d Doer) (*request.Execution, error) { return PostForm(d, "relative", nil) },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			m := newMockDoer(t)

			e, err := call(m)

			assert.Nil(t, e)
			assert.Error(t, err)
			m.AssertNotCalled(t, "Do", mock.Anything)
		})
	}
}

func TestStream(t *testing.T) {
	t.Run("Doer", func(t *testing.T) {
		expected := &request.Execution{}
		p, err := request.NewPlan("PUT", "http://stream.test/", bytes.NewReader([]byte("raw")))
		require.NoError(t, err)
		m := newMockDoer(t)
		m.On("Do", mock.MatchedBy(func(q *request.Plan) bool {
			return q != p && q.Method == "PUT" &&
				q.Config.Redirect == request.RedirectManual &&
				q.Config.Retry.Attempts == 0 &&
				!q.Config.Digest &&
				q.Header.Get("Content-Type") == request.TypeOctetStream
		})).Return(expected, nil).Once()
		e, err := Stream(m, p)
		assert.Same(t, expected, e)
		assert.NoError(t, err)
		assert.True(t, p.Config.Digest)
		assert.Equal(t, request.RedirectFollow, p.Config.Redirect)
		m.AssertExpectations(t)
	})
	t.Run("Streamer", func(t *testing.T) {
		expected := &request.Execution{}
		p, err := request.NewPlan("GET", "http://stream.test/", nil)
		require.NoError(t, err)
		m := newMockStreamer(t)
		m.On("Stream", p).Return(expected, nil).Once()
		e, err := Stream(m, p)
		assert.Same(t, expected, e)
		assert.NoError(t, err)
		m.AssertExpectations(t)
		m.AssertNotCalled(t, "Do", mock.Anything)
	})
}

func TestInflate(t *testing.T) {
	t.Run("Inflate", func(t *testing.T) {
		t.Run("nil doer", func(t *testing.T) {
			assert.PanicsWithValue(t, "hopper: nil doer", func() {
				Inflate(nil)
			})
		})
		t.Run("already an Executor", func(t *testing.T) {
			cl := &Client{}
			x := Inflate(cl)
			assert.Same(t, cl, x)
		})
		t.Run("not yet an Executor", func(t *testing.T) {
			m := newMockDoer(t)
			x := Inflate(m)
			assert.IsType(t, inflated{}, x)
		})
	})
	expected := &request.Execution{}
	t.Run("Do", func(t *testing.T) {
		p, err := request.NewPlan("PUT", "http://www.randomcollections.com/widgets/1", "foo")
		require.NotNil(t, p)
		require.NoError(t, err)
		m := newMockDoer(t)
		m.On("Do", p).Return(expected, nil).Once()
		x := Inflate(m)
		e, err := x.Do(p)
		assert.Same(t, expected, e)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
	t.Run("helpers", func(t *testing.T) {
		m := newMockDoer(t)
		x := Inflate(m)
		methods := map[string]func() (*request.Execution, error){
			"Get":      func() (*request.Execution, error) { return x.Get("http://a.test/") },
			"Head":     func() (*request.Execution, error) { return x.Head("http://b.test/") },
			"Post":     func() (*request.Execution, error) { return x.Post("http://c.test/", "text/csv", "a,b") },
			"PostForm": func() (*request.Execution, error) { return x.PostForm("http://d.test/form", url.Values{"q": {"go"}, "n": {"1"}}) },
		}
		for _, testCase := range helperCases {
			call, ok := methods[testCase.name]
			if !ok {
				continue
			}
			m.On("Do", mock.MatchedBy(testCase.match)).Return(expected, nil).Once()
			e, err := call()
			assert.NoError(t, err, testCase.name)
			assert.Same(t, expected, e, testCase.name)
		}
		m.AssertExpectations(t)
	})
	t.Run("Stream", func(t *testing.T) {
		p, err := request.NewPlan("POST", "http://form.test/", io.LimitReader(bytes.NewReader(nil), 0))
		require.NoError(t, err)
		m := newMockDoer(t)
		m.On("Do", mock.MatchedBy(func(q *request.Plan) bool {
			return q.Config.Redirect == request.RedirectManual &&
				q.Config.Retry.Attempts == retry.Never().Attempts
		})).Return(expected, nil).Once()
		x := Inflate(m)
		e, err := x.Stream(p)
		assert.Same(t, expected, e)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
	t.Run("CloseIdleConnections", func(t *testing.T) {
		t.Run("Doer does not implement IdleCloser", func(t *testing.T) {
			m := newMockDoer(t)
			x := Inflate(m)
			x.CloseIdleConnections()
			m.AssertNotCalled(t, "CloseIdleConnections")
		})
		t.Run("Doer implements IdleCloser", func(t *testing.T) {
			m := newMockDoerWithCloseIdleConnections(t)
			m.On("CloseIdleConnections").Once()
			x := Inflate(m)
			x.CloseIdleConnections()
			m.AssertExpectations(t)
		})
	})
}

type mockDoer struct {
	mock.Mock
}

func newMockDoer(t *testing.T) *mockDoer {
	m := &mockDoer{}
	m.Test(t)
	return m
}

func (m *mockDoer) Do(p *request.Plan) (*request.Execution, error) {
	args := m.Called(p)
	e := args.Get(0)
	err := args.Error(1)
	if e == nil {
		return nil, err
	}
	return e.(*request.Execution), err
}

type mockDoerWithCloseIdleConnections struct {
	mockDoer
}

func newMockDoerWithCloseIdleConnections(t *testing.T) *mockDoerWithCloseIdleConnections {
	m := &mockDoerWithCloseIdleConnections{}
	m.Test(t)
	return m
}

func (m *mockDoerWithCloseIdleConnections) CloseIdleConnections() {
	m.Called()
}

type mockStreamer struct {
	mockDoer
}

func newMockStreamer(t *testing.T) *mockStreamer {
	m := &mockStreamer{}
	m.Test(t)
	return m
}

func (m *mockStreamer) Stream(p *request.Plan) (*request.Execution, error) {
	args := m.Called(p)
	return args.Get(0).(*request.Execution), args.Error(1)
}
