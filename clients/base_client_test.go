package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetAppliesDefaultTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.URL)
	c.SetTimeout(20 * time.Millisecond)

	_, err := c.Get(context.Background(), "/slow")

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, FailTimeout, fe.Kind)
}

// A caller-supplied deadline governs the request even when the client's
// default is tighter.
func TestGetCallerDeadlineOverridesDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewBaseClient(srv.URL)
	c.SetTimeout(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	body, err := c.Get(ctx, "/")
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
}
