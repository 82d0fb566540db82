package portals

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientDefaultHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-token")
	_, err := c.get(context.Background(), "/nfts/search", nil)
	require.NoError(t, err)
	require.Equal(t, "secret-token", got.Get("Authorization"))
	require.Equal(t, "application/json", got.Get("Accept"))
	require.NotEmpty(t, got.Get("User-Agent"))
}

func TestClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no access", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t")
	_, err := c.get(context.Background(), "/x", nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, http.StatusForbidden, te.Status)
	require.Contains(t, te.Body, "no access")
	require.False(t, te.Retryable())
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse every connection

	c := NewClient(srv.URL, "t")
	_, err := c.get(context.Background(), "/x", nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, 0, te.Status)
	require.True(t, te.Retryable())
}

func TestGetRetryRecoversFromServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t")
	body, err := c.getRetry(context.Background(), "/x", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(body))
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestGetRetryGivesUpOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t")
	_, err := c.getRetry(context.Background(), "/x", nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, http.StatusNotFound, te.Status)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClientTimeoutIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Millisecond * 300)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t")
	c.SetTimeout(time.Millisecond * 50)
	_, err := c.get(context.Background(), "/x", nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, 0, te.Status)
	require.True(t, te.Retryable())
}

func TestWalletBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/wallets/", r.URL.Path)
		_, _ = w.Write([]byte(`{"wallets":[{"symbol":"TON","balance":2500000000}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t")
	rows, err := c.WalletBalance(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "TON", rows[0].Symbol)
	require.EqualValues(t, 2500000000, rows[0].Balance)
}
