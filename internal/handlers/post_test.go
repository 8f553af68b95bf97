package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SargisDallakyan/blogPlatform/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func createPost(t *testing.T, api *testAPI, token, title string) types.Post {
	t.Helper()
	rec := api.do(t, http.MethodPost, "/api/post", token, map[string]string{"title": title, "body": "Body of " + title})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var post types.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	return post
}

func TestPosts_CreateAndList(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup(t, "alice1")

	first := createPost(t, api, alice.AccessToken, "First")
	createPost(t, api, alice.AccessToken, "Second")
	assert.Equal(t, alice.UserID, first.AuthorID)
	require.NotNil(t, first.Author)
	assert.Equal(t, "alice1", first.Author.Username)

	rec := api.do(t, http.MethodGet, "/api/post?page=1&per_page=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list ListResponse[types.Post]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Second", list.Items[0].Title)

	rec = api.do(t, http.MethodGet, "/api/post?page=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/post?page=9223372036854775807&limit=100", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/post/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPosts_CreateValidation(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup(t, "alice1")

	rec := api.do(t, http.MethodPost, "/api/post", alice.AccessToken, map[string]string{"title": "", "body": "x"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/post", alice.AccessToken, map[string]string{"title": strings.Repeat("t", 201), "body": "x"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/post", "", map[string]string{"title": "t", "body": "b"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPosts_OwnerOnlyWrites(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup(t, "alice1")
	bob := api.signup(t, "bobby")
	post := createPost(t, api, alice.AccessToken, "Mine")

	path := "/api/post/1"
	rec := api.do(t, http.MethodPut, path, bob.AccessToken, map[string]string{"title": "Stolen", "body": "x"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, path, bob.AccessToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPut, path, alice.AccessToken, map[string]string{"title": "Edited", "body": "New body"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated types.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, post.ID, updated.ID)
	assert.Equal(t, "Edited", updated.Title)

	rec = api.do(t, http.MethodDelete, path, alice.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestComments(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup(t, "alice1")
	bob := api.signup(t, "bobby")
	createPost(t, api, alice.AccessToken, "Post")

	rec := api.do(t, http.MethodPost, "/api/post/42/comments", bob.AccessToken, map[string]string{"text": "hello"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/post/1/comments", bob.AccessToken, map[string]string{"text": ""})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/post/1/comments", bob.AccessToken, map[string]string{"text": "Nice post"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/post/1/comments", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var comments []types.Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "Nice post", comments[0].Text)
	require.NotNil(t, comments[0].Author)
	assert.Equal(t, "bobby", comments[0].Author.Username)

	rec = api.do(t, http.MethodDelete, "/api/comments/1", alice.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/comments/1", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/comments/1", bob.AccessToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func uploadCover(t *testing.T, api *testAPI, token, path string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(formFieldCover, "cover.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPut, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	return rec
}

func TestCovers(t *testing.T) {
	api := newTestAPI(t, withCovers())
	alice := api.signup(t, "alice1")
	bob := api.signup(t, "bobby")
	createPost(t, api, alice.AccessToken, "With cover")

	rec := api.do(t, http.MethodGet, "/api/post/1/cover", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = uploadCover(t, api, alice.AccessToken, "/api/post/1/cover", []byte("just some text"))
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	image := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x01}, 1024)...)
	rec = uploadCover(t, api, bob.AccessToken, "/api/post/1/cover", image)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = uploadCover(t, api, alice.AccessToken, "/api/post/1/cover", image)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var post types.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	assert.Equal(t, "posts/1/cover", post.CoverKey)

	rec = api.do(t, http.MethodGet, "/api/post/1/cover", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, image, rec.Body.Bytes())
}

func TestCovers_NotRoutedWithoutStorage(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup(t, "alice1")
	createPost(t, api, alice.AccessToken, "No cover")

	rec := api.do(t, http.MethodGet, "/api/post/1/cover", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = uploadCover(t, api, alice.AccessToken, "/api/post/1/cover", pngHeader)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
