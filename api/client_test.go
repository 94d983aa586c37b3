package api

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type user struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/api/", AppVersion: "1.2.3"})
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadBase(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrEmptyBaseURL)

	_, err = New(Config{BaseURL: "not a url"})
	require.ErrorIs(t, err, ErrInvalidBase)
}

func TestGetUnwrapsEnvelopeAndSendsHeaders(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/profile/", r.URL.Path)
		require.Equal(t, "1.2.3", r.Header.Get("X-App-Version"))
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"data":{"id":7,"username":"alice"},"message":"ok","status":200,"timestamp":"2026-01-01T00:00:00Z"}`)
	})

	var u user
	meta, err := c.Get(context.Background(), "auth/profile/", nil, &u)
	require.NoError(t, err)
	require.Equal(t, user{ID: 7, Username: "alice"}, u)
	require.Equal(t, "ok", meta.Message)
	require.Equal(t, 200, meta.Status)
	require.Equal(t, http.StatusOK, meta.HTTPStatus)
}

func TestUnwrappedBodyDecodesWhole(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":1,"username":"bob"}`)
	})

	var u user
	_, err := c.Post(context.Background(), "users/", map[string]string{"a": "b"}, &u)
	require.NoError(t, err)
	require.Equal(t, "bob", u.Username)
}

func TestPaginatedList(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "ali", r.URL.Query().Get("search"))
		_, _ = io.WriteString(w, `{"data":{"results":[{"id":1,"username":"alice"}],"count":1,"next":null,"previous":null,"page":1,"page_size":20},"status":200}`)
	})

	var page Page[user]
	_, err := c.Get(context.Background(), "users/", map[string][]string{"search": {"ali"}}, &page)
	require.NoError(t, err)
	require.Equal(t, 1, page.Count)
	require.Len(t, page.Results, 1)
	require.Equal(t, 20, page.PageSize)
}

func TestErrorResponseIsClassified(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "req-9")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"username":["A user with that username already exists."]}`)
	})

	_, err := c.Post(context.Background(), "auth/register/", map[string]string{}, nil)
	require.ErrorIs(t, err, ErrValidation)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "username: A user with that username already exists.", apiErr.Message)
	require.Equal(t, "req-9", apiErr.RequestID)
}

func TestDeleteSendsBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "Secret123", body["password"])
		w.WriteHeader(http.StatusNoContent)
	})

	_, err := c.Delete(context.Background(), "auth/profile/", map[string]string{"password": "Secret123"}, nil)
	require.NoError(t, err)
}

func TestUploadWritesMultipart(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.Equal(t, "multipart/form-data", mediaType)

		reader := multipart.NewReader(r.Body, params["boundary"])
		parts := map[string]string{}
		for {
			p, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			data, _ := io.ReadAll(p)
			parts[p.FormName()] = string(data)
		}
		require.Equal(t, "Alice", parts["first_name"])
		require.Equal(t, "PNGDATA", parts["avatar"])
		_, _ = io.WriteString(w, `{"user":{"id":1,"username":"alice"},"message":"Profile updated"}`)
	})

	var out struct {
		User    user   `json:"user"`
		Message string `json:"message"`
	}
	_, err := c.Upload(context.Background(), http.MethodPatch, "auth/profile/", Form{
		Fields: map[string]string{"first_name": "Alice"},
		Files:  []File{{Field: "avatar", Name: "me.png", ContentType: "image/png", Data: []byte("PNGDATA")}},
	}, &out)
	require.NoError(t, err)
	require.Equal(t, "alice", out.User.Username)
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base})
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "auth/profile/", nil, nil)
	require.ErrorIs(t, err, ErrNetwork)
	require.Equal(t, MessageNetwork, Message(err))
}
