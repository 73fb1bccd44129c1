package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinafrique-scraper/utils"
)

func newTestFetcher(retries int) *StaticFetcher {
	return NewStaticFetcher(StaticOptions{
		UserAgent:  "coinafrique-test/1.0",
		Timeout:    2 * time.Second,
		MaxRetries: retries,
		RetryDelay: time.Millisecond,
	}, utils.NewNopLogger())
}

func TestStaticFetcherParsesDocument(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`<html><body><h1>Chiot berger allemand</h1></body></html>`))
	}))
	defer srv.Close()

	doc, err := newTestFetcher(1).Fetch(context.Background(), srv.URL, ".ignored")
	require.NoError(t, err)
	assert.Equal(t, "Chiot berger allemand", doc.Find("h1").Text())
	assert.Equal(t, "coinafrique-test/1.0", gotUA)
}

func TestStaticFetcherReportsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher(1).Fetch(context.Background(), srv.URL, "")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestStaticFetcherRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`<p class="price">15 000 CFA</p>`))
	}))
	defer srv.Close()

	doc, err := newTestFetcher(2).Fetch(context.Background(), srv.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "15 000 CFA", doc.Find("p.price").Text())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestStaticFetcherTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	f := NewStaticFetcher(StaticOptions{Timeout: 50 * time.Millisecond, MaxRetries: 1}, utils.NewNopLogger())
	_, err := f.Fetch(context.Background(), srv.URL, "")
	assert.Error(t, err)
}

func TestNewBrowserFetcherWithoutChrome(t *testing.T) {
	_, err := NewBrowserFetcher(BrowserOptions{ChromeBin: "/nonexistent/chrome-binary"}, utils.NewNopLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBrowserUnavailable)
}
