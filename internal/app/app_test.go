package app

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"cabinet_tracker/database"
	"cabinet_tracker/internal/config"
	"cabinet_tracker/internal/logger"
	"cabinet_tracker/internal/queue"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	os.Exit(m.Run())
}

type testServer struct {
	router *gin.Engine
	infra  *Infrastructure
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	cfg.Storage.Type = "local"
	cfg.Storage.BasePath = t.TempDir()
	cfg.Storage.BaseURL = "/api/v1/files"
	cfg.Upload.MaxSize = 5 * 1024 * 1024
	cfg.Upload.DefaultCategory = "general"
	cfg.Upload.RejectUnknownTypes = true
	cfg.Upload.Thumbnails = true
	cfg.Upload.ImageQuality = 85
	cfg.Redis.TTL = 60
	cfg.Signing.Secret = "s3cret"
	cfg.Signing.TTL = 15

	db, err := database.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)

	infra, err := NewInfrastructure(cfg, db)
	require.NoError(t, err)
	t.Cleanup(func() {
		infra.Close()
		_ = sqlDB.Close()
	})

	return &testServer{router: SetupRouter(cfg, db, infra), infra: infra}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) waitForJobs() {
	if q, ok := s.infra.Queue.(*queue.InlineEnqueuer); ok {
		q.Wait()
	}
}

func pngImage(t *testing.T, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{G: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, name, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(method, path string, v interface{}) *http.Request {
	raw, _ := json.Marshal(v)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestUploadAndServe(t *testing.T) {
	s := newTestServer(t)
	data := pngImage(t, 320, 160)

	w := s.do(multipartRequest(t, "front.png", "image/png", data, map[string]string{"category": "cabinet"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := decode(t, w)
	assert.True(t, env.Success)

	var uploaded struct {
		URL          string `json:"url"`
		Filename     string `json:"filename"`
		OriginalName string `json:"originalName"`
		Size         int64  `json:"size"`
		MIMEType     string `json:"mimetype"`
		Type         string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &uploaded))
	assert.Regexp(t, `^cabinet_\d+_[0-9a-z]{8}\.png$`, uploaded.Filename)
	assert.Equal(t, "/api/v1/files/"+uploaded.Filename, uploaded.URL)
	assert.Equal(t, "front.png", uploaded.OriginalName)
	assert.Equal(t, int64(len(data)), uploaded.Size)
	assert.Equal(t, "image/png", uploaded.MIMEType)
	assert.Equal(t, "cabinet", uploaded.Type)

	file := s.do(httptest.NewRequest(http.MethodGet, uploaded.URL, nil))
	require.Equal(t, http.StatusOK, file.Code)
	assert.Equal(t, data, file.Body.Bytes())
	assert.Equal(t, "image/png", file.Header().Get("Content-Type"))
	etag := file.Header().Get("ETag")
	require.NotEmpty(t, etag)

	cached := httptest.NewRequest(http.MethodGet, uploaded.URL, nil)
	cached.Header.Set("If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, s.do(cached).Code)

	s.waitForJobs()
	list := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/images?category=cabinet", nil))
	require.Equal(t, http.StatusOK, list.Code)
	var page struct {
		Images []struct {
			ID            string `json:"id"`
			ThumbnailPath string `json:"thumbnailPath"`
		} `json:"images"`
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(decode(t, list).Data, &page))
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, strings.TrimSuffix(uploaded.Filename, ".png")+"_thumbnail.png", page.Images[0].ThumbnailPath)

	thumb := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/"+page.Images[0].ThumbnailPath, nil))
	assert.Equal(t, http.StatusOK, thumb.Code)
}

func TestServeUsesRecordedType(t *testing.T) {
	s := newTestServer(t)
	data := pngImage(t, 40, 40)

	w := s.do(multipartRequest(t, "scan", "image/png", data, nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var uploaded struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &uploaded))
	require.True(t, strings.HasSuffix(uploaded.Filename, ".jpg"), uploaded.Filename)

	file := s.do(httptest.NewRequest(http.MethodGet, uploaded.URL, nil))
	require.Equal(t, http.StatusOK, file.Code)
	assert.Equal(t, "image/png", file.Header().Get("Content-Type"))
	assert.Equal(t, data, file.Body.Bytes())
	s.waitForJobs()
}

func TestUploadRejections(t *testing.T) {
	s := newTestServer(t)
	data := pngImage(t, 8, 8)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{"no file", multipartRequest(t, "", "", nil, map[string]string{"category": "cabinet"}), http.StatusBadRequest, "NO_FILE_PROVIDED"},
		{"declared jpeg holds png", multipartRequest(t, "front.jpg", "image/jpeg", data, nil), http.StatusBadRequest, "CONTENT_MISMATCH"},
		{"unsupported type", multipartRequest(t, "doc.pdf", "application/pdf", []byte("%PDF-1.4"), nil), http.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE"},
		{"bad category", multipartRequest(t, "front.png", "image/png", data, map[string]string{"category": "no spaces"}), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"oversized", multipartRequest(t, "big.png", "image/png", make([]byte, 6*1024*1024), nil), http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.req)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			env := decode(t, w)
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestBase64Endpoint(t *testing.T) {
	s := newTestServer(t)
	data := pngImage(t, 4, 4)
	body := base64.StdEncoding.EncodeToString(data)

	w := s.do(jsonRequest(http.MethodPost, "/api/v1/images/base64", map[string]interface{}{
		"image":        "data:image/png;base64," + body,
		"originalName": "site.png",
		"category":     "site",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var processed struct {
		Filename string `json:"filename"`
		MIMEType string `json:"mimeType"`
		Size     int64  `json:"size"`
		Data     string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &processed))
	assert.Equal(t, "image/png", processed.MIMEType)
	assert.Equal(t, int64(len(data)), processed.Size)
	assert.Equal(t, body, processed.Data)
	assert.Regexp(t, `^site_\d+_[0-9a-z]{8}\.png$`, processed.Filename)

	bad := s.do(jsonRequest(http.MethodPost, "/api/v1/images/base64", map[string]string{"image": "not base64!!"}))
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "MALFORMED_ENCODING", decode(t, bad).Error.Code)

	empty := s.do(jsonRequest(http.MethodPost, "/api/v1/images/base64", map[string]string{"image": ""}))
	assert.Equal(t, http.StatusBadRequest, empty.Code)
	assert.Equal(t, "NO_FILE_PROVIDED", decode(t, empty).Error.Code)
}

func TestSignedURLAndDelete(t *testing.T) {
	s := newTestServer(t)

	w := s.do(jsonRequest(http.MethodPost, "/api/v1/images/base64", map[string]interface{}{
		"image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngImage(t, 4, 4)),
		"store": true,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stored struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &stored))
	require.NotEmpty(t, stored.ID)
	s.waitForJobs()

	signed := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/images/"+stored.ID+"/signed-url", nil))
	require.Equal(t, http.StatusOK, signed.Code)
	var link struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(decode(t, signed).Data, &link))
	assert.Equal(t, http.StatusOK, s.do(httptest.NewRequest(http.MethodGet, link.URL, nil)).Code)

	forged := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/"+stored.Filename+"?token=forged", nil))
	assert.Equal(t, http.StatusForbidden, forged.Code)

	stats := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/images/stats", nil))
	require.Equal(t, http.StatusOK, stats.Code)
	assert.Contains(t, stats.Body.String(), `"totalImages":1`)

	del := s.do(httptest.NewRequest(http.MethodDelete, "/api/v1/images/"+stored.ID, nil))
	require.Equal(t, http.StatusOK, del.Code)

	gone := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/images/"+stored.ID, nil))
	assert.Equal(t, http.StatusNotFound, gone.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, gone).Error.Code)

	missing := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/"+stored.Filename, nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
