package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipevault/backend"
	"recipevault/client"
	"recipevault/models"
	"recipevault/validate"
	"recipevault/views"
)

type pageBody struct {
	View     string          `json:"view"`
	State    views.State     `json:"state"`
	Message  string          `json:"message"`
	Flash    string          `json:"flash"`
	Navigate string          `json:"navigate"`
	Data     json.RawMessage `json:"data"`
}

type testEnv struct {
	router http.Handler
	store  *backend.MemoryStore
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func setupTestEnv(t *testing.T, seed ...models.Recipe) *testEnv {
	t.Helper()
	log := quietLogger()
	store := backend.NewMemoryStore(seed...)
	api := httptest.NewServer(backend.NewRouter(backend.NewAPI(store, backend.NewMemoryImageStore(), "", log), log))
	t.Cleanup(api.Close)

	svc := client.New(api.URL, "", client.WithLogger(log))
	return &testEnv{router: NewRouter(New(svc, log, nil), log), store: store}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, pageBody) {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	var p pageBody
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	}
	return w, p
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func postMultipart(t *testing.T, path string, values url.Values, contentType string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, vs := range values {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="photo"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(file)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func seed() []models.Recipe {
	return []models.Recipe{
		{ID: "soup", Title: "Tomato Soup", Ingredients: "tomatoes, garlic", Instructions: "Blend."},
		{ID: "bread", Title: "Garlic Bread", Ingredients: "baguette, butter, garlic", Instructions: "Bake."},
		{ID: "cake", Title: "Carrot Cake", Ingredients: "carrots, flour, sugar", Instructions: "Bake longer."},
	}
}

func TestListPage(t *testing.T) {
	env := setupTestEnv(t, seed()...)

	w, p := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "list", p.View)
	assert.Equal(t, views.StateReady, p.State)

	var snap views.ListSnapshot
	require.NoError(t, json.Unmarshal(p.Data, &snap))
	assert.Equal(t, 3, snap.Total)
	assert.Len(t, snap.Recipes, 3)

	w, p = env.do(t, httptest.NewRequest(http.MethodGet, "/?q=Garlic", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(p.Data, &snap))
	assert.Equal(t, "Garlic", snap.Term)
	require.Len(t, snap.Recipes, 2)
	assert.Equal(t, "soup", snap.Recipes[0].ID)
	assert.Equal(t, "bread", snap.Recipes[1].ID)
}

func TestListPageBackendDown(t *testing.T) {
	log := quietLogger()
	api := httptest.NewServer(http.NotFoundHandler())
	api.Close()
	router := NewRouter(New(client.New(api.URL, "", client.WithLogger(log)), log, nil), log)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to load recipes. Please try again later.")
}

func TestDetailPage(t *testing.T) {
	env := setupTestEnv(t, seed()...)

	w, p := env.do(t, httptest.NewRequest(http.MethodGet, "/recipe/cake", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var snap views.DetailSnapshot
	require.NoError(t, json.Unmarshal(p.Data, &snap))
	require.NotNil(t, snap.Recipe)
	assert.Equal(t, "Carrot Cake", snap.Recipe.Title)

	w, p = env.do(t, httptest.NewRequest(http.MethodGet, "/recipe/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, views.StateFailed, p.State)
}

func TestCreateRedirectsWithFlash(t *testing.T) {
	env := setupTestEnv(t)

	w, p := env.do(t, postForm("/create", url.Values{
		"title":        {"Miso Soup"},
		"ingredients":  {"dashi, miso, tofu"},
		"instructions": {"Warm dashi, whisk in miso."},
	}))
	require.Equal(t, http.StatusSeeOther, w.Code)

	all, err := env.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Miso Soup", all[0].Title)
	assert.Empty(t, all[0].ImageURL)
	assert.Equal(t, "/recipe/"+all[0].ID, w.Header().Get("Location"))
	assert.Equal(t, "/recipe/"+all[0].ID, p.Navigate)

	// The flash is shown once on the next page.
	next := httptest.NewRequest(http.MethodGet, p.Navigate, nil)
	for _, c := range w.Result().Cookies() {
		next.AddCookie(c)
	}
	_, p = env.do(t, next)
	assert.Equal(t, "Recipe created successfully!", p.Flash)
}

func TestCreateValidationFailure(t *testing.T) {
	env := setupTestEnv(t)

	w, p := env.do(t, postForm("/create", url.Values{"title": {"  "}, "ingredients": {"rice"}}))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var snap views.FormSnapshot
	require.NoError(t, json.Unmarshal(p.Data, &snap))
	assert.Equal(t, "Title is required", snap.Errors["title"])
	assert.Equal(t, "Instructions are required", snap.Errors["instructions"])
	assert.NotContains(t, snap.Errors, "ingredients")

	all, _ := env.store.List(context.Background())
	assert.Empty(t, all)
}

func TestCreateRejectsBadImage(t *testing.T) {
	env := setupTestEnv(t)
	values := url.Values{"title": {"T"}, "ingredients": {"I"}, "instructions": {"S"}}

	w, p := env.do(t, postMultipart(t, "/create", values, "application/pdf", []byte("%PDF-1.4")))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var snap views.FormSnapshot
	require.NoError(t, json.Unmarshal(p.Data, &snap))
	assert.Equal(t, "Only JPG, PNG and GIF images are allowed", snap.Errors["imageFile"])

	big := make([]byte, validate.MaxImageSize+1)
	w, p = env.do(t, postMultipart(t, "/create", values, "image/jpeg", big))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NoError(t, json.Unmarshal(p.Data, &snap))
	assert.Equal(t, "Image size should be less than 5MB", snap.Errors["imageFile"])

	all, _ := env.store.List(context.Background())
	assert.Empty(t, all)
}

func TestEditUploadsImageBeforeUpdate(t *testing.T) {
	env := setupTestEnv(t, seed()...)

	w, p := env.do(t, httptest.NewRequest(http.MethodGet, "/edit/soup", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var snap views.FormSnapshot
	require.NoError(t, json.Unmarshal(p.Data, &snap))
	assert.Equal(t, views.ModeEdit, snap.Mode)
	assert.Equal(t, "Tomato Soup", snap.Title)

	w, p = env.do(t, postMultipart(t, "/edit/soup", url.Values{"title": {"Roasted Tomato Soup"}},
		"application/octet-stream", pngBytes(t, 4, 4)))
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "/recipe/soup", p.Navigate)

	got, err := env.store.Get(context.Background(), "soup")
	require.NoError(t, err)
	assert.Equal(t, "Roasted Tomato Soup", got.Title)
	assert.Equal(t, "tomatoes, garlic", got.Ingredients)
	assert.Contains(t, got.ImageURL, "/images/")
}

func TestEditMissingRecipe(t *testing.T) {
	env := setupTestEnv(t)
	w, p := env.do(t, httptest.NewRequest(http.MethodGet, "/edit/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Failed to load recipe data. The recipe may not exist.", p.Message)

	w, _ = env.do(t, postForm("/edit/nope", url.Values{"title": {"x"}}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	env := setupTestEnv(t, seed()...)

	w, p := env.do(t, postForm("/recipe/bread/delete", url.Values{}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, views.StateConfirmPending, p.State)
	_, err := env.store.Get(context.Background(), "bread")
	require.NoError(t, err, "a single click must not delete")

	w, p = env.do(t, postForm("/recipe/bread/delete", url.Values{"confirm": {"true"}}))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", p.Navigate)
	assert.Equal(t, "Recipe deleted successfully!", p.Flash)
	_, err = env.store.Get(context.Background(), "bread")
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestFetchImageResizes(t *testing.T) {
	src := pngBytes(t, 100, 1000)
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(src)
	}))
	defer origin.Close()

	env := setupTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/image?h=100&url=%s", url.QueryEscape(origin.URL+"/a.png")), nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dy())
	assert.Equal(t, 10, img.Bounds().Dx())
}

// pngHeaderOnly returns a PNG whose header declares w x h pixels with no
// image data behind it.
func pngHeaderOnly(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 0 // grayscale

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestFetchImageRejectsHugeDimensions(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngHeaderOnly(12000, 12000))
	}))
	defer origin.Close()

	env := setupTestEnv(t)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/image?url="+url.QueryEscape(origin.URL+"/huge.png"), nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestFetchImageRejectsBadInput(t *testing.T) {
	env := setupTestEnv(t)
	for _, q := range []string{"", "?url=ftp://x/a.png", "?url=/relative.png", "?url=http://x/a.png&h=0"} {
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/image"+q, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}
