package hds

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/mutker/hdsim/internal/errors"
	"codeberg.org/mutker/hdsim/internal/fault"
	"codeberg.org/mutker/hdsim/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	method      string
	path        string
	contentType string
	body        []byte
}

func newRecorder(t *testing.T, status int, reply string) (*httptest.Server, chan captured) {
	t.Helper()

	got := make(chan captured, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- captured{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func unreachableURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestNewValidatesBaseURL(t *testing.T) {
	for _, bad := range []string{"", "localhost:5005", "ftp://host", "http://", "://nope"} {
		_, err := New(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.HasCode(err, ErrInvalidBaseURL), bad)
	}

	c, err := New("http://localhost:5005/")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}

func TestRegister(t *testing.T) {
	srv, got := newRecorder(t, http.StatusOK, `{"status":"registered"}`)

	c, err := New(srv.URL)
	require.NoError(t, err)

	reply, err := c.Register(context.Background(), "Application B", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, `{"status":"registered"}`, reply)

	req := <-got
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/api/v1/apps/register", req.path)
	assert.Equal(t, "application/json", req.contentType)
	assert.JSONEq(t, `{"application":"Application B","version":"1.0.0"}`, string(req.body))
}

func TestReportFault(t *testing.T) {
	srv, got := newRecorder(t, http.StatusOK, "ok")

	c, err := New(srv.URL)
	require.NoError(t, err)

	sig := fault.NewBuilder("Application B").WatchdogTimeout()
	reply, err := c.ReportFault(context.Background(), &sig)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)

	req := <-got
	assert.Equal(t, "/api/v1/faults/report", req.path)

	var sent model.FaultSignature
	require.NoError(t, model.Decode(req.body, &sent))
	assert.Equal(t, "F01A", sent.FaultCode)
	assert.Equal(t, "F2", sent.Type)
	assert.True(t, sig.Timestamp.Equal(sent.Timestamp))
}

func TestErrorStatusIsStillAReply(t *testing.T) {
	srv, _ := newRecorder(t, http.StatusBadRequest, `{"error":"application and version are required"}`)

	c, err := New(srv.URL)
	require.NoError(t, err)

	reply, err := c.Register(context.Background(), "", "")
	require.NoError(t, err)
	assert.Contains(t, reply, "application and version are required")
}

func TestUnreachableIsTransportError(t *testing.T) {
	c, err := New(unreachableURL(t))
	require.NoError(t, err)

	sig := fault.NewBuilder("Application B").NullPointer()
	reply, err := c.ReportFault(context.Background(), &sig)
	require.Error(t, err)
	assert.Empty(t, reply)
	assert.True(t, IsTransport(err))
	assert.False(t, IsSerialization(err))
}

func TestTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c, err := New(srv.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Register(context.Background(), "Application B", "1.0.0")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestUnencodablePayloadIsSerializationError(t *testing.T) {
	c, err := New(DefaultBaseURL)
	require.NoError(t, err)

	_, err = c.post(context.Background(), reportPath, make(chan int))
	require.Error(t, err)
	assert.True(t, IsSerialization(err))
}

func TestCopiesShareTransport(t *testing.T) {
	hc := &http.Client{}
	c, err := New(DefaultBaseURL, WithHTTPClient(hc))
	require.NoError(t, err)

	clone := c
	assert.Same(t, c.http, clone.http)
	assert.Same(t, hc, clone.http)
}

func TestTimeoutKeepsCallerClientSettings(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	transport := &http.Transport{}
	redirects := 0
	hc := &http.Client{
		Transport: transport,
		Jar:       jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			redirects++
			return http.ErrUseLastResponse
		},
	}

	c, err := New(DefaultBaseURL, WithHTTPClient(hc), WithTimeout(2*time.Second))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, c.http.Timeout)
	assert.Same(t, transport, c.http.Transport)
	assert.Equal(t, jar, c.http.Jar)
	require.NotNil(t, c.http.CheckRedirect)
	assert.ErrorIs(t, c.http.CheckRedirect(nil, nil), http.ErrUseLastResponse)
	assert.Equal(t, 1, redirects)

	// the caller's client is not modified
	assert.Zero(t, hc.Timeout)
}

func TestNilHTTPClientKeepsDefault(t *testing.T) {
	c, err := New(DefaultBaseURL, WithHTTPClient(nil), WithTimeout(time.Second))
	require.NoError(t, err)

	require.NotNil(t, c.http)
	assert.Equal(t, time.Second, c.http.Timeout)
}
