package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"recipevault/logging"
	"recipevault/metrics"
	"recipevault/models"
	"recipevault/validate"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// API serves the recipe endpoints.
type API struct {
	store     Store
	images    ImageStore
	publicURL string
	log       logrus.FieldLogger
}

// NewAPI wires the handlers. publicURL prefixes returned image references;
// when empty it is derived from each upload request.
func NewAPI(store Store, images ImageStore, publicURL string, log logrus.FieldLogger) *API {
	return &API{
		store:     store,
		images:    images,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
	}
}

// Routes registers the API on r.
func (a *API) Routes(r *mux.Router) {
	r.HandleFunc("/recipes", a.GetRecipes).Methods(http.MethodGet)
	r.HandleFunc("/recipes", a.CreateRecipe).Methods(http.MethodPost)
	r.HandleFunc("/recipes/{id}", a.GetRecipe).Methods(http.MethodGet)
	r.HandleFunc("/recipes/{id}", a.UpdateRecipe).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/recipes/{id}", a.DeleteRecipe).Methods(http.MethodDelete)
	r.HandleFunc("/images", a.UploadImage).Methods(http.MethodPost)
	r.HandleFunc("/images/{name}", a.GetImage).Methods(http.MethodGet)
}

func (a *API) GetRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := a.store.List(r.Context())
	if err != nil {
		a.fail(w, "Failed to list recipes", http.StatusInternalServerError, err, logrus.Fields{})
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (a *API) GetRecipe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	recipe, err := a.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "No matching recipe found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.fail(w, "Failed to retrieve recipe", http.StatusInternalServerError, err, logrus.Fields{"recipe_id": id})
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func (a *API) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, ok := a.decodeRecipe(w, r)
	if !ok {
		return
	}
	created, err := a.store.Create(r.Context(), recipe)
	if err != nil {
		a.fail(w, "Failed to create recipe", http.StatusInternalServerError, err, logrus.Fields{})
		return
	}
	a.log.WithField("recipe_id", created.ID).Info("recipe created")
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	recipe, ok := a.decodeRecipe(w, r)
	if !ok {
		return
	}
	updated, err := a.store.Update(r.Context(), id, recipe)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "No matching recipe found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.fail(w, "Failed to update recipe", http.StatusInternalServerError, err, logrus.Fields{"recipe_id": id})
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := a.store.Delete(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "No matching recipe found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.fail(w, "Failed to delete recipe", http.StatusInternalServerError, err, logrus.Fields{"recipe_id": id})
		return
	}
	a.log.WithField("recipe_id", id).Info("recipe deleted")
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage stores the multipart "image" file and answers {"url": ...}.
// The type is sniffed from the content, not trusted from the client.
func (a *API) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, validate.MaxImageSize+1<<20)
	file, _, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Image size should be less than 5MB", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Missing 'image' file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, validate.MaxImageSize+1))
	if err != nil {
		http.Error(w, "Failed to read image", http.StatusBadRequest)
		return
	}
	if len(data) > validate.MaxImageSize {
		http.Error(w, "Image size should be less than 5MB", http.StatusRequestEntityTooLarge)
		return
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		http.Error(w, "Only JPG, PNG and GIF images are allowed", http.StatusUnsupportedMediaType)
		return
	}

	name := uuid.New().String() + ext
	if err := a.images.Put(r.Context(), name, Image{ContentType: contentType, Data: data}); err != nil {
		a.fail(w, "Failed to store image", http.StatusInternalServerError, err, logrus.Fields{"image": name})
		return
	}
	a.log.WithFields(logrus.Fields{"image": name, "bytes": len(data)}).Info("image stored")
	writeJSON(w, http.StatusCreated, map[string]string{"url": a.baseURL(r) + "/images/" + name})
}

func (a *API) GetImage(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	img, err := a.images.Get(r.Context(), name)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "No matching image found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.fail(w, "Failed to read image", http.StatusInternalServerError, err, logrus.Fields{"image": name})
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(img.Data)
}

func (a *API) decodeRecipe(w http.ResponseWriter, r *http.Request) (models.Recipe, bool) {
	var recipe models.Recipe
	if err := json.NewDecoder(r.Body).Decode(&recipe); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		a.log.WithError(err).Debug("failed to decode request body")
		return recipe, false
	}
	if missing := recipe.Missing(); len(missing) > 0 {
		http.Error(w, fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", ")), http.StatusBadRequest)
		return recipe, false
	}
	return recipe, true
}

func (a *API) baseURL(r *http.Request) string {
	if a.publicURL != "" {
		return a.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host
}

func (a *API) fail(w http.ResponseWriter, msg string, code int, err error, fields logrus.Fields) {
	a.log.WithFields(fields).WithError(err).Error(msg)
	http.Error(w, msg, code)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("failed to encode response")
	}
}

// NewRouter returns a router serving a with request logging and metrics.
func NewRouter(a *API, log logrus.FieldLogger) *mux.Router {
	r := mux.NewRouter()
	r.Use(logging.Middleware(log), metrics.Middleware("api"))
	a.Routes(r)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}
