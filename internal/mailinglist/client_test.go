package mailinglist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSubscribe(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3.0/lists/abc123/members", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := &Client{Endpoint: srv.URL + "/3.0", APIKey: "key", ListID: "abc123", HTTPClient: srv.Client()}
	require.NoError(t, c.Subscribe(context.Background(), "ada@example.com", "Ada", "Brown"))

	assert.Equal(t, "ada@example.com", got["email_address"])
	assert.Equal(t, true, got["update_existing"])
	merge, ok := got["merge_fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada", merge["FNAME"])
	assert.Equal(t, "Brown", merge["LNAME"])
}

func TestClientSubscribeClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := &Client{Endpoint: srv.URL, APIKey: "key", ListID: "abc123", HTTPClient: srv.Client()}
	err := c.Subscribe(context.Background(), "bad", "", "")
	require.Error(t, err)
	var perm *backoff.PermanentError
	assert.True(t, errors.As(err, &perm))
}

func TestClientConfigured(t *testing.T) {
	assert.False(t, (&Client{}).Configured())
	assert.False(t, (&Client{APIKey: "key"}).Configured())
	assert.False(t, (&Client{ListID: "abc"}).Configured())
	assert.True(t, (&Client{APIKey: "key", ListID: "abc"}).Configured())
}
