package sourceetcd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/keys/myapp", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("recursive"))

		_ = json.NewEncoder(w).Encode(etcdResponse{
			Node: &etcdNode{
				Key: "/myapp",
				Dir: true,
				Nodes: []etcdNode{
					{Key: "/myapp/host", Value: "localhost"},
					{
						Key: "/myapp/db",
						Dir: true,
						Nodes: []etcdNode{
							{Key: "/myapp/db/port", Value: "5432"},
							{Key: "/myapp/db/user", Value: "admin"},
						},
					},
				},
			},
		})
	}))
	defer server.Close()

	data, err := New(server.URL, Options{Prefix: "myapp"}).Read()
	require.NoError(t, err)

	assert.Equal(t, "localhost", data["host"])
	assert.Equal(t, map[string]any{
		"port": "5432",
		"user": "admin",
	}, data["db"])
}

func TestReadMissingPrefix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(etcdResponse{
			ErrorCode: errorCodeKeyNotFound,
			Message:   "Key not found",
		})
	}))
	defer server.Close()

	data, err := New(server.URL, Options{Prefix: "empty"}).Read()
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestReadServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(etcdResponse{
			ErrorCode: 300,
			Message:   "Raft internal error",
		})
	}))
	defer server.Close()

	_, err := New(server.URL, Options{}).Read()
	assert.ErrorContains(t, err, "Raft internal error")
}

func TestWrite(t *testing.T) {
	writes := make(map[string]string)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, r.ParseForm())
		writes[r.URL.Path] = r.PostForm.Get("value")
		_ = json.NewEncoder(w).Encode(etcdResponse{})
	}))
	defer server.Close()

	err := New(server.URL, Options{Prefix: "myapp"}).Write(map[string]any{
		"host": "localhost",
		"db": map[string]any{
			"port": 5432,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"/v2/keys/myapp/host":    "localhost",
		"/v2/keys/myapp/db/port": "5432",
	}, writes)
}

func TestWriteFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(etcdResponse{
			ErrorCode: 107,
			Message:   "Not a file",
		})
	}))
	defer server.Close()

	err := New(server.URL, Options{}).Write(map[string]any{"a": "b"})
	assert.ErrorContains(t, err, "Not a file")
}

func TestKeyEscaping(t *testing.T) {
	var requested string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.EscapedPath()
		_ = json.NewEncoder(w).Encode(etcdResponse{})
	}))
	defer server.Close()

	err := New(server.URL, Options{}).Write(map[string]any{"key with space": "v"})
	require.NoError(t, err)
	assert.Equal(t, "/v2/keys/"+url.PathEscape("key with space"), requested)
}

func TestCapabilities(t *testing.T) {
	assert.False(t, New("http://127.0.0.1:2379", Options{}).Typed())
	assert.Equal(t, "etcd:/myapp", New("http://127.0.0.1:2379", Options{Prefix: "myapp"}).Name())
	assert.Equal(t, "etcd:/", New("http://127.0.0.1:2379", Options{}).Name())
}
