package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SargisDallakyan/blogPlatform/internal/auth"
	"github.com/SargisDallakyan/blogPlatform/internal/services"
	"github.com/SargisDallakyan/blogPlatform/internal/storage"
	"github.com/SargisDallakyan/blogPlatform/internal/store"
	"github.com/SargisDallakyan/blogPlatform/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memUsers struct {
	mu     sync.Mutex
	calls  atomic.Int64
	nextID int
	byID   map[int]types.User
}

func newMemUsers() *memUsers {
	return &memUsers{nextID: 1, byID: map[int]types.User{}}
}

func (m *memUsers) GetByID(_ context.Context, id int) (types.User, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) List(_ context.Context, offset, limit int) ([]types.User, int, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var out []types.User
	for i, id := range ids {
		if i >= offset && len(out) < limit {
			out = append(out, m.byID[id])
		}
	}
	return out, len(ids), nil
}

func (m *memUsers) Create(_ context.Context, u types.User) (types.User, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Username == u.Username {
			return types.User{}, store.ErrConflict
		}
	}
	u.ID = m.nextID
	m.nextID++
	m.byID[u.ID] = u
	return u, nil
}

func (m *memUsers) Update(_ context.Context, u types.User) (types.User, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	m.byID[u.ID] = u
	return u, nil
}

func (m *memUsers) SetRole(_ context.Context, username string, role types.Role) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.byID {
		if u.Username == username {
			u.Role = role
			m.byID[id] = u
			return nil
		}
	}
	return store.ErrNotFound
}

type memPosts struct {
	mu     sync.Mutex
	nextID int
	posts  map[int]types.Post
}

func newMemPosts() *memPosts {
	return &memPosts{nextID: 1, posts: map[int]types.Post{}}
}

func (m *memPosts) List(_ context.Context, offset, limit int) ([]types.Post, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.posts))
	for id := range m.posts {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	var out []types.Post
	for i, id := range ids {
		if i >= offset && len(out) < limit {
			out = append(out, m.posts[id])
		}
	}
	return out, len(ids), nil
}

func (m *memPosts) Get(_ context.Context, id int) (types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return p, nil
}

func (m *memPosts) Create(_ context.Context, p types.Post) (types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextID
	m.nextID++
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.posts[p.ID] = p
	return p, nil
}

func (m *memPosts) Update(_ context.Context, p types.Post) (types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[p.ID]; !ok {
		return types.Post{}, store.ErrNotFound
	}
	m.posts[p.ID] = p
	return p, nil
}

func (m *memPosts) SetCover(_ context.Context, id int, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return store.ErrNotFound
	}
	p.CoverKey = key
	m.posts[id] = p
	return nil
}

func (m *memPosts) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

type memComments struct {
	mu       sync.Mutex
	nextID   int
	comments map[int]types.Comment
}

func newMemComments() *memComments {
	return &memComments{nextID: 1, comments: map[int]types.Comment{}}
}

func (m *memComments) ListByPost(_ context.Context, postID int) ([]types.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []types.Comment{}
	for id := 1; id < m.nextID; id++ {
		if c, ok := m.comments[id]; ok && c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memComments) Get(_ context.Context, id int) (types.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return types.Comment{}, store.ErrNotFound
	}
	return c, nil
}

func (m *memComments) Create(_ context.Context, c types.Comment) (types.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextID
	m.nextID++
	m.comments[c.ID] = c
	return c, nil
}

func (m *memComments) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memObjects) EnsureBucket(context.Context) error { return nil }

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memObjects) Get(_ context.Context, key string) (storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return storage.Object{}, storage.ErrObjectNotFound
	}
	return storage.Object{Body: io.NopCloser(bytes.NewReader(data)), ContentType: m.types[key], Size: int64(len(data))}, nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) Bucket() string { return "test" }

// testAPI wires the real services and handlers over in-memory repositories.
type testAPI struct {
	router  *chi.Mux
	users   *memUsers
	objects *memObjects
	issuer  *auth.Issuer
	now     time.Time
}

type apiOption func(*apiSettings)

type apiSettings struct {
	covers     bool
	allowAdmin bool
}

func withCovers() apiOption {
	return func(s *apiSettings) { s.covers = true }
}

func newTestAPI(t *testing.T, opts ...apiOption) *testAPI {
	t.Helper()

	var settings apiSettings
	for _, opt := range opts {
		opt(&settings)
	}

	api := &testAPI{
		users: newMemUsers(),
		now:   time.Now(),
	}

	issuer, err := auth.NewIssuer(auth.Config{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	}, auth.WithRevocationList(auth.NewMemoryRevocationList()), auth.WithClock(func() time.Time { return api.now }))
	require.NoError(t, err)
	api.issuer = issuer

	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var covers storage.ObjectStorage
	if settings.covers {
		api.objects = newMemObjects()
		covers = api.objects
	}

	posts := newMemPosts()
	authService := services.NewAuthService(api.users, hasher, issuer, nil, settings.allowAdmin)
	userService := services.NewUserService(api.users)
	postService := services.NewPostService(posts, covers, nil, logger)
	commentService := services.NewCommentService(newMemComments(), postService, nil)

	authMiddleware := RequireAuth(issuer, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Get("/healthz", Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			AuthRouter(r, authService, authMiddleware, logger)
		})
		r.Route("/post", func(r chi.Router) {
			PostRouter(r, postService, commentService, authMiddleware, logger)
		})
		r.Route("/comments", func(r chi.Router) {
			CommentRouter(r, commentService, authMiddleware, logger)
		})
		r.Route("/admin", func(r chi.Router) {
			AdminRouter(r, userService, postService, commentService, authMiddleware, logger)
		})
	})
	api.router = router
	return api
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

type session struct {
	UserID       int
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// signup registers username with password "secret" and logs in.
func (a *testAPI) signup(t *testing.T, username string) session {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"password": "secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data types.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var s session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	s.UserID = created.Data.ID
	return s
}

// promote makes username an admin and returns a fresh session carrying the new role.
func (a *testAPI) promote(t *testing.T, username string) session {
	t.Helper()
	require.NoError(t, a.users.SetRole(context.Background(), username, types.RoleAdmin))

	rec := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var s session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	return s
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}
