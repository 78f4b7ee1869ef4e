package erpclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/retailops/erpsync/internal/erpclient"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

var testResource = erpclient.Resource{
	Name:       "sales",
	Candidates: []string{"A", "B", "C"},
}

func TestUnitFetchPageEndpointFallback(t *testing.T) {
	var probedA, servedB int32

	srv := httptest.NewServer(http.HandlerFunc(func(wrt http.ResponseWriter, req *http.Request) {
		assert.Equal(t, testAPIKey, req.Header.Get("X-API-Key"), "should attach the api key to every request")

		switch req.URL.Path {
		case "/A":
			atomic.AddInt32(&probedA, 1)
			http.NotFound(wrt, req)
		case "/B":
			atomic.AddInt32(&servedB, 1)
			writeList(t, wrt, `{"value": [{"id": "s1"}]}`)
		default:
			t.Fatalf("unexpected call to %s", req.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)

	cli := newClient(t, srv)

	for call := 0; call < 3; call++ {
		records, err := cli.FetchPage(context.TODO(), testResource, 0, 10, erpclient.PageFilter{})
		require.NoError(t, err, "should fetch the page")
		require.Len(t, records, 1, "should return records from the working candidate")
	}

	assert.EqualValues(t, 1, probedA, "should probe the dead candidate exactly once per session")
	assert.EqualValues(t, 3, servedB, "should go directly to the resolved candidate on later calls")
}

func TestUnitFetchPageEmptyPageIsTermination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(wrt http.ResponseWriter, req *http.Request) {
		writeList(t, wrt, `{"value": []}`)
	}))
	t.Cleanup(srv.Close)

	records, err := newClient(t, srv).FetchPage(context.TODO(), testResource, 0, 10, erpclient.PageFilter{})

	require.NoError(t, err, "an empty 2xx page is not a failure")
	assert.Empty(t, records, "should return an empty page")
}

func TestUnitFetchPageRetriesServerErrors(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(wrt http.ResponseWriter, req *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			wrt.WriteHeader(http.StatusBadGateway)
			return
		}
		writeList(t, wrt, `{"data": [{"id": "s1"}, {"id": "s2"}]}`)
	}))
	t.Cleanup(srv.Close)

	records, err := newClient(t, srv).FetchPage(context.TODO(), testResource, 0, 10, erpclient.PageFilter{})

	require.NoError(t, err, "should succeed after retries")
	assert.Len(t, records, 2, "should return records from the retried call")
	assert.EqualValues(t, 3, calls, "should have retried the failing call")
}

func TestUnitFetchPageNoEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(wrt http.ResponseWriter, req *http.Request) {
		http.NotFound(wrt, req)
	}))
	t.Cleanup(srv.Close)

	_, err := newClient(t, srv).FetchPage(context.TODO(), testResource, 0, 10, erpclient.PageFilter{})

	var transportErr *erpclient.TransportError
	require.ErrorAs(t, err, &transportErr, "should surface a transport error")
	assert.Contains(t, transportErr.Error(), "no candidate endpoint responded",
		"should report that no candidate responded")
}

func TestUnitFetchPageSurfacesLastStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(wrt http.ResponseWriter, req *http.Request) {
		wrt.WriteHeader(http.StatusForbidden)
		_, _ = wrt.Write([]byte("key expired"))
	}))
	t.Cleanup(srv.Close)

	_, err := newClient(t, srv).FetchPage(context.TODO(), testResource, 0, 10, erpclient.PageFilter{})

	var transportErr *erpclient.TransportError
	require.ErrorAs(t, err, &transportErr, "should surface a transport error")
	assert.Equal(t, http.StatusForbidden, transportErr.StatusCode, "should carry the last status")
	assert.Contains(t, transportErr.Message, "key expired", "should carry the observed message")
}

func TestUnitFetchAll(t *testing.T) {
	pages := []string{
		`{"value": [{"id": "s1"}, {"id": "s2"}]}`,
		`{"value": [{"id": "s3"}]}`,
		`{"value": []}`,
	}
	var call int32

	srv := httptest.NewServer(http.HandlerFunc(func(wrt http.ResponseWriter, req *http.Request) {
		ix := atomic.AddInt32(&call, 1) - 1
		require.Less(t, int(ix), len(pages), "should stop calling after the empty page")
		assert.Equal(t, "10", req.URL.Query().Get("top"), "should pass the page size")
		writeList(t, wrt, pages[ix])
	}))
	t.Cleanup(srv.Close)

	var got []string
	err := newClient(t, srv).FetchAll(context.TODO(), testResource, 10, erpclient.PageFilter{},
		func(records []json.RawMessage) error {
			for _, record := range records {
				got = append(got, string(record))
			}
			return nil
		})

	require.NoError(t, err, "should walk all pages")
	assert.Len(t, got, 3, "should deliver every record exactly once")
}

func newClient(t *testing.T, srv *httptest.Server) *erpclient.Client {
	t.Helper()

	logger := zerolog.Nop()
	return erpclient.NewClient(srv.Client(), srv.URL, testAPIKey, &logger, erpclient.WithMaxRetries(3))
}

func writeList(t *testing.T, wrt http.ResponseWriter, body string) {
	t.Helper()

	wrt.Header().Set("Content-Type", "application/json")
	_, err := wrt.Write([]byte(body))
	require.NoError(t, err)
}
