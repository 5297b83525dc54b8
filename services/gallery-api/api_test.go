package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"golang.org/x/crypto/bcrypt"

	gallery "github.com/bitmark-inc/client-gallery"
	"github.com/bitmark-inc/client-gallery/auth"
	"github.com/bitmark-inc/client-gallery/log"
	"github.com/bitmark-inc/client-gallery/upload"
)

var pngContent = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

func TestMain(m *testing.M) {
	if err := log.Initialize("error", false); err != nil {
		panic(err)
	}
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testFile struct {
	name        string
	contentType string
	content     []byte
}

func pngFile(name string) testFile {
	return testFile{name: name, contentType: "image/png", content: pngContent}
}

type testEnv struct {
	t          *testing.T
	server     *GalleryAPIServer
	store      *memoryStore
	metrics    tally.TestScope
	uploadsDir string
}

func defaultConfig(t *testing.T) Config {
	cfg, err := loadConfig(viper.New())
	require.NoError(t, err)
	cfg.Auth.BcryptCost = bcrypt.MinCost
	return cfg
}

// newTestEnv builds a server on an in-memory store. A nil storage writes into a temporary directory.
// Options run before the routes are set up.
func newTestEnv(t *testing.T, cfg Config, storage upload.Storage, options ...func(*GalleryAPIServer)) *testEnv {
	t.Helper()

	dir := t.TempDir()
	if storage == nil {
		local, err := upload.NewLocalStorage(dir, cfg.Server.UploadsRoute)
		require.NoError(t, err)
		storage = local
	}

	store := newMemoryStore()
	scope := tally.NewTestScope("", nil)
	s := NewGalleryAPIServer(cfg, store, auth.New(store, cfg.JWT.Secret, cfg.JWT.TTL, cfg.Auth.BcryptCost), storage, scope)
	for _, option := range options {
		option(s)
	}
	s.SetupRoute()

	return &testEnv{
		t:          t,
		server:     s,
		store:      store,
		metrics:    scope,
		uploadsDir: dir,
	}
}

func (e *testEnv) do(r *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.route.ServeHTTP(w, r)
	return w
}

func (e *testEnv) send(method, path, token string, payload any) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(e.t, err)
		body = bytes.NewReader(b)
	}

	r := httptest.NewRequest(method, path, body)
	r.Header.Set("Content-Type", "application/json")
	return e.do(r, token)
}

func (e *testEnv) multipart(path, token string, fields map[string]string, files ...testFile) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(e.t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(e.t, err)
		_, err = part.Write(f.content)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, w.Close())

	r := httptest.NewRequest(http.MethodPost, path, &body)
	r.Header.Set("Content-Type", w.FormDataContentType())
	return e.do(r, token)
}

func (e *testEnv) register(name, email string) auth.Result {
	w := e.send(http.MethodPost, "/api/auth/register", "", gin.H{"name": name, "email": email, "password": "secret"})
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	return decode[auth.Result](e.t, w)
}

func (e *testEnv) createGallery(token string, files ...testFile) gallery.Gallery {
	w := e.multipart("/api/galleries", token, map[string]string{"title": "Wedding", "date": "2024-05-01"}, files...)
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	return decode[gallery.Gallery](e.t, w)
}

func (e *testEnv) storedFiles() int {
	entries, err := os.ReadDir(e.uploadsDir)
	require.NoError(e.t, err)
	return len(entries)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	return decode[map[string]any](t, w)["message"].(string)
}

func TestRegisterSameEmailTwice(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)

	r := e.register("Ada", "ada@example.com")
	assert.NotEmpty(t, r.Token)
	assert.Equal(t, "ada@example.com", r.User.Email)

	w := e.send(http.MethodPost, "/api/auth/register", "", gin.H{"name": "Ada", "email": "ada@example.com", "password": "other"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", message(t, w))
}

func TestRegisterMissingFields(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)

	w := e.send(http.MethodPost, "/api/auth/register", "", gin.H{"name": "Ada", "email": "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Name, email and password are required", message(t, w))
	assert.NotContains(t, w.Body.String(), "password\":")
}

func TestLoginTokenAuthorizesProtectedCalls(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)
	e.register("Ada", "ada@example.com")

	w := e.send(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[auth.Result](t, w)

	w = e.send(http.MethodGet, "/api/galleries", login.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = e.send(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", message(t, w))
	assert.NotContains(t, w.Body.String(), "token")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)

	w := e.send(http.MethodGet, "/api/galleries", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authentication required", message(t, w))

	w = e.send(http.MethodGet, "/api/galleries", "not-a-token", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Invalid token", message(t, w))
}

func TestCreateGalleryWithoutFiles(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)
	token := e.register("Ada", "ada@example.com").Token

	w := e.multipart("/api/galleries", token, map[string]string{"title": "Empty", "date": "2024-05-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "At least one image is required", message(t, w))

	w = e.send(http.MethodPost, "/api/galleries", token, gin.H{"title": "Empty", "date": "2024-05-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "At least one image is required", message(t, w))
}

func TestCreateGalleryRejectsLargeFile(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)
	token := e.register("Ada", "ada@example.com").Token

	content := make([]byte, 11*1024*1024)
	copy(content, pngContent)

	w := e.multipart("/api/galleries", token, map[string]string{"title": "Big", "date": "2024-05-01"},
		testFile{name: "big.png", contentType: "image/png", content: content})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File is too large. Maximum size is 10MB.", message(t, w))
	assert.Zero(t, e.storedFiles())
}

func TestUploadBodyOverLimit(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil, func(s *GalleryAPIServer) {
		s.uploadBodyLimit = 1024
	})
	token := e.register("Ada", "ada@example.com").Token

	content := make([]byte, 4096)
	copy(content, pngContent)

	w := e.multipart("/api/galleries", token, map[string]string{"title": "Big", "date": "2024-05-01"},
		testFile{name: "big.png", contentType: "image/png", content: content})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File is too large. Maximum size is 10MB.", message(t, w))
	assert.Zero(t, e.storedFiles())

	g := e.createGallery(token, pngFile("a.png"))
	w = e.multipart("/api/galleries/"+g.ID.Hex()+"/images", token, nil,
		testFile{name: "big.png", contentType: "image/png", content: content})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File is too large. Maximum size is 10MB.", message(t, w))
}

func TestCreateGalleryRejectsNonImages(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)
	token := e.register("Ada", "ada@example.com").Token

	w := e.multipart("/api/galleries", token, map[string]string{"title": "Docs", "date": "2024-05-01"},
		pngFile("a.png"),
		testFile{name: "notes.txt", contentType: "text/plain", content: []byte("hello")})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Only images are allowed", message(t, w))
	assert.Zero(t, e.storedFiles())
}

func TestCreateGalleryRequiresTitleAndDate(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)
	token := e.register("Ada", "ada@example.com").Token

	w := e.multipart("/api/galleries", token, map[string]string{"date": "2024-05-01"}, pngFile("a.png"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.multipart("/api/galleries", token, map[string]string{"title": "Wedding", "date": "yesterday"}, pngFile("a.png"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid date", message(t, w))
	assert.Zero(t, e.storedFiles())
}

func TestCreateGallery(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)
	r := e.register("Ada", "ada@example.com")

	g := e.createGallery(r.Token, pngFile("first.png"))
	assert.Equal(t, "Wedding", g.Title)
	assert.Equal(t, r.User.ID, g.UserID.Hex())
	require.Len(t, g.Images, 1)
	require.NotNil(t, g.CoverImage)
	assert.Equal(t, g.Images[0].URL, *g.CoverImage)
	assert.True(t, strings.HasPrefix(g.Images[0].URL, "/uploads/"))
	assert.True(t, strings.HasSuffix(g.Images[0].URL, ".png"))
	assert.Zero(t, g.Images[0].Likes)
	assert.False(t, g.Images[0].IsLiked)
	assert.Equal(t, 1, e.storedFiles())

	w := e.do(httptest.NewRequest(http.MethodGet, g.Images[0].URL, nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pngContent, w.Body.Bytes())

	var uploaded int64
	for _, c := range e.metrics.Snapshot().Counters() {
		if c.Name() == "uploaded_files" {
			uploaded += c.Value()
		}
	}
	assert.Equal(t, int64(1), uploaded)
}

func TestListGalleriesOnlyReturnsOwnGalleries(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)
	ada := e.register("Ada", "ada@example.com").Token
	bob := e.register("Bob", "bob@example.com").Token

	first := e.createGallery(ada, pngFile("a.png"))
	second := e.createGallery(ada, pngFile("b.png"))

	w := e.send(http.MethodGet, "/api/galleries", bob, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = e.send(http.MethodGet, "/api/galleries", ada, nil)
	require.Equal(t, http.StatusOK, w.Code)
	galleries := decode[[]gallery.Gallery](t, w)
	require.Len(t, galleries, 2)
	assert.False(t, galleries[0].CreatedAt.Before(galleries[1].CreatedAt))
	assert.ElementsMatch(t, []string{first.ID.Hex(), second.ID.Hex()},
		[]string{galleries[0].ID.Hex(), galleries[1].ID.Hex()})

	w = e.send(http.MethodGet, "/api/galleries/"+first.ID.Hex(), bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Gallery not found", message(t, w))

	w = e.send(http.MethodGet, "/api/galleries/"+first.ID.Hex(), ada, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetGalleryMalformedID(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)
	token := e.register("Ada", "ada@example.com").Token

	w := e.send(http.MethodGet, "/api/galleries/not-an-id", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Gallery not found", message(t, w))
}

func TestToggleLikeTwiceRestoresState(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)
	token := e.register("Ada", "ada@example.com").Token
	g := e.createGallery(token, pngFile("a.png"))
	path := fmt.Sprintf("/api/galleries/%s/images/%s/like", g.ID.Hex(), g.Images[0].ID.Hex())

	w := e.send(http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	liked := decode[gallery.Gallery](t, w)
	assert.True(t, liked.Images[0].IsLiked)
	assert.Equal(t, int64(1), liked.Images[0].Likes)

	w = e.send(http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	unliked := decode[gallery.Gallery](t, w)
	assert.Equal(t, g.Images[0].IsLiked, unliked.Images[0].IsLiked)
	assert.Equal(t, g.Images[0].Likes, unliked.Images[0].Likes)
}

func TestToggleLikeNotFound(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)
	token := e.register("Ada", "ada@example.com").Token
	g := e.createGallery(token, pngFile("a.png"))

	w := e.send(http.MethodPost, fmt.Sprintf("/api/galleries/%s/images/%s/like", g.ID.Hex(), g.ID.Hex()), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Image not found", message(t, w))

	w = e.send(http.MethodPost, fmt.Sprintf("/api/galleries/%s/images/%s/like", g.Images[0].ID.Hex(), g.Images[0].ID.Hex()), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Gallery not found", message(t, w))
}

func TestSetCoverAcceptsArbitraryURL(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)
	token := e.register("Ada", "ada@example.com").Token
	g := e.createGallery(token, pngFile("a.png"))

	w := e.send(http.MethodPut, "/api/galleries/"+g.ID.Hex()+"/cover", token, gin.H{"coverImage": "https://example.com/elsewhere.jpg"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[gallery.Gallery](t, w)
	require.NotNil(t, updated.CoverImage)
	assert.Equal(t, "https://example.com/elsewhere.jpg", *updated.CoverImage)
}

func TestSetCoverStrict(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Gallery.StrictCover = true
	e := newTestEnv(t, cfg, nil)
	token := e.register("Ada", "ada@example.com").Token
	g := e.createGallery(token, pngFile("a.png"), pngFile("b.png"))
	path := "/api/galleries/" + g.ID.Hex() + "/cover"

	w := e.send(http.MethodPut, path, token, gin.H{"coverImage": "https://example.com/elsewhere.jpg"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cover image must belong to the gallery", message(t, w))

	w = e.send(http.MethodPut, path, token, gin.H{"coverImage": g.Images[1].URL})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, g.Images[1].URL, *decode[gallery.Gallery](t, w).CoverImage)
}

func TestAddImagesCover(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)
	token := e.register("Ada", "ada@example.com").Token
	g := e.createGallery(token, pngFile("a.png"))
	imagesPath := "/api/galleries/" + g.ID.Hex() + "/images"

	// with a cover, adding keeps it
	w := e.multipart(imagesPath, token, nil, pngFile("b.png"))
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[gallery.Gallery](t, w)
	require.Len(t, updated.Images, 2)
	assert.Equal(t, *g.CoverImage, *updated.CoverImage)

	w = e.send(http.MethodPut, "/api/galleries/"+g.ID.Hex()+"/cover", token, gin.H{"coverImage": nil})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[gallery.Gallery](t, w).CoverImage)

	// without a cover, the first added image becomes the cover
	w = e.multipart(imagesPath, token, nil, pngFile("c.png"), pngFile("d.png"))
	require.Equal(t, http.StatusOK, w.Code)
	updated = decode[gallery.Gallery](t, w)
	require.Len(t, updated.Images, 4)
	require.NotNil(t, updated.CoverImage)
	assert.Equal(t, updated.Images[2].URL, *updated.CoverImage)

	w = e.multipart(imagesPath, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "At least one image is required", message(t, w))
}

func TestAddImagesChecksOwnershipFirst(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)
	ada := e.register("Ada", "ada@example.com").Token
	bob := e.register("Bob", "bob@example.com").Token
	g := e.createGallery(ada, pngFile("a.png"))

	w := e.multipart("/api/galleries/"+g.ID.Hex()+"/images", bob, nil, pngFile("b.png"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Gallery not found", message(t, w))
	assert.Equal(t, 1, e.storedFiles())
}

func TestUpdateImageDescription(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)
	token := e.register("Ada", "ada@example.com").Token
	g := e.createGallery(token, pngFile("a.png"))

	w := e.send(http.MethodPut, fmt.Sprintf("/api/galleries/%s/images/%s", g.ID.Hex(), g.Images[0].ID.Hex()), token,
		gin.H{"description": "first dance"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "first dance", decode[gallery.Gallery](t, w).Images[0].Description)

	w = e.send(http.MethodPut, fmt.Sprintf("/api/galleries/%s/images/%s", g.ID.Hex(), g.ID.Hex()), token,
		gin.H{"description": "nothing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Gallery or image not found", message(t, w))
}

// failingStorage fails the n-th save of the wrapped storage
type failingStorage struct {
	upload.Storage
	failAt int
	saves  int
}

func (f *failingStorage) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	f.saves++
	if f.saves == f.failAt {
		return "", errors.New("bucket unavailable")
	}
	return f.Storage.Save(ctx, name, r, size, contentType)
}

func TestStorageFailureLeavesNoFiles(t *testing.T) {
	dir := t.TempDir()
	local, err := upload.NewLocalStorage(dir, "")
	require.NoError(t, err)

	e := newTestEnv(t, defaultConfig(t), &failingStorage{Storage: local, failAt: 2})
	e.uploadsDir = dir
	token := e.register("Ada", "ada@example.com").Token

	w := e.multipart("/api/galleries", token, map[string]string{"title": "Wedding", "date": "2024-05-01"},
		pngFile("a.png"), pngFile("b.png"), pngFile("c.png"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "Error creating gallery", body["message"])
	assert.Equal(t, "bucket unavailable", body["error"])
	assert.Zero(t, e.storedFiles())
}

func TestStoreFailureRemovesUploadedFiles(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Environment = gallery.ProductionEnvironment
	e := newTestEnv(t, cfg, nil)
	token := e.register("Ada", "ada@example.com").Token
	e.store.failWrite = errors.New("write concern error")

	w := e.multipart("/api/galleries", token, map[string]string{"title": "Wedding", "date": "2024-05-01"}, pngFile("a.png"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "Error creating gallery", body["message"])
	assert.NotContains(t, body, "error")
	assert.Zero(t, e.storedFiles())
}

func TestUnknownRoute(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)

	w := e.send(http.MethodGet, "/api/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"Not found"}`, w.Body.String())
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)

	w := e.send(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"Server is running","mongoConnection":true}`, w.Body.String())

	e.store.pingErr = errors.New("no reachable servers")
	w = e.send(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]any](t, w)
	assert.Equal(t, "OK", health["message"])
	assert.Equal(t, false, health["mongoConnection"])
	assert.Contains(t, health, "uptime")
	assert.Contains(t, health, "timestamp")
	assert.Contains(t, health, "date")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)

	r := httptest.NewRequest(http.MethodOptions, "/api/galleries", nil)
	r.Header.Set("Origin", "http://localhost:3002")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := e.do(r, "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3002", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestPanicIsRecovered(t *testing.T) {
	e := newTestEnv(t, defaultConfig(t), nil)
	e.server.route.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := e.send(http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "Internal server error", body["message"])
	assert.Equal(t, "panic: boom", body["error"])
}

func TestAuthRateLimit(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Server.AuthRateLimit = 0.001
	cfg.Server.AuthRateBurst = 1
	e := newTestEnv(t, cfg, nil)

	w := e.send(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "secret"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.send(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "secret"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
