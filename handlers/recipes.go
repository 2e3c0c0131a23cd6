// Package handlers serves the navigation surface of the recipe vault: every
// page is a route that mounts its view controller and renders the resulting
// view state as JSON.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"recipevault/metrics"
	"recipevault/models"
	"recipevault/validate"
	"recipevault/views"
)

const flashCookie = "recipevault_flash"

// Page is the JSON body of every front-end response.
type Page struct {
	View     string      `json:"view"`
	State    views.State `json:"state"`
	Message  string      `json:"message,omitempty"`
	Flash    string      `json:"flash,omitempty"`
	Navigate string      `json:"navigate,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// Server holds what the page handlers share.
type Server struct {
	svc   views.RecipeService
	log   logrus.FieldLogger
	fetch *http.Client
}

// New returns the front-end server. fetch is used by the image proxy; nil
// means http.DefaultClient.
func New(svc views.RecipeService, log logrus.FieldLogger, fetch *http.Client) *Server {
	if fetch == nil {
		fetch = http.DefaultClient
	}
	return &Server{svc: svc, log: log, fetch: fetch}
}

// Routes registers the navigation surface on r.
func (s *Server) Routes(r *mux.Router) {
	r.HandleFunc("/", s.GetRecipes).Methods(http.MethodGet)
	r.HandleFunc("/recipe/{id}", s.GetRecipe).Methods(http.MethodGet)
	r.HandleFunc("/recipe/{id}/delete", s.DeleteRecipe).Methods(http.MethodPost)
	r.HandleFunc("/create", s.GetForm).Methods(http.MethodGet)
	r.HandleFunc("/create", s.SubmitForm).Methods(http.MethodPost)
	r.HandleFunc("/edit/{id}", s.GetForm).Methods(http.MethodGet)
	r.HandleFunc("/edit/{id}", s.SubmitForm).Methods(http.MethodPost)
	r.HandleFunc("/image", s.FetchImage).Methods(http.MethodGet)
}

// GetRecipes renders the list view, filtered by ?q=.
func (s *Server) GetRecipes(w http.ResponseWriter, r *http.Request) {
	l := views.NewList(s.svc)
	defer l.Unmount()

	if err := l.Mount(r.Context()); err != nil {
		s.log.WithField("view", "list").WithError(err).Warn("failed to load recipes")
	}
	l.Search(r.URL.Query().Get("q"))
	snap := l.Snapshot()

	code := http.StatusOK
	if snap.State == views.StateFailed {
		code = http.StatusBadGateway
	}
	s.render(w, r, code, Page{View: "list", State: snap.State, Message: snap.Message, Data: snap})
}

// GetRecipe renders the detail view.
func (s *Server) GetRecipe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	d := views.NewDetail(s.svc, views.NavigatorFunc(func(string, string) {}), id)
	defer d.Unmount()

	if err := d.Mount(r.Context()); err != nil {
		s.log.WithFields(logrus.Fields{"view": "detail", "recipe_id": id}).WithError(err).Warn("failed to load recipe")
	}
	s.renderDetail(w, r, d.Snapshot())
}

// DeleteRecipe is the delete button. Without confirm=true it only asks for
// confirmation; with it, the recipe is deleted and the client is sent home.
// A single request carrying confirm=true deletes at once, so clients that
// want the confirmation step must send the bare request first.
func (s *Server) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	nav := &redirect{}
	d := views.NewDetail(s.svc, nav, id)
	defer d.Unmount()

	fields := logrus.Fields{"view": "detail", "recipe_id": id}
	if err := d.Mount(r.Context()); err != nil {
		s.log.WithFields(fields).WithError(err).Warn("failed to load recipe")
		s.renderDetail(w, r, d.Snapshot())
		return
	}
	if err := d.RequestDelete(); err != nil {
		s.renderDetail(w, r, d.Snapshot())
		return
	}
	if r.FormValue("confirm") != "true" {
		s.renderDetail(w, r, d.Snapshot())
		return
	}
	if err := d.ConfirmDelete(r.Context()); err != nil {
		s.log.WithFields(fields).WithError(err).Warn("failed to delete recipe")
		s.renderDetail(w, r, d.Snapshot())
		return
	}
	s.log.WithFields(fields).Info("recipe deleted")
	s.navigate(w, r, "detail", nav)
}

// GetForm renders an empty create form or the edit form for {id}.
func (s *Server) GetForm(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	f := views.NewForm(s.svc, views.NavigatorFunc(func(string, string) {}), id)
	defer f.Unmount()

	if err := f.Mount(r.Context()); err != nil {
		s.log.WithFields(logrus.Fields{"view": "form", "recipe_id": id}).WithError(err).Warn("failed to load recipe")
	}
	s.renderForm(w, r, f.Snapshot(), http.StatusOK)
}

// SubmitForm accepts a urlencoded or multipart form with title,
// ingredients, instructions and an optional "image" file.
func (s *Server) SubmitForm(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	nav := &redirect{}
	f := views.NewForm(s.svc, nav, id)
	defer f.Unmount()

	fields := logrus.Fields{"view": "form", "recipe_id": id}
	if err := f.Mount(r.Context()); err != nil {
		s.log.WithFields(fields).WithError(err).Warn("failed to load recipe")
		s.renderForm(w, r, f.Snapshot(), http.StatusOK)
		return
	}

	image, cleanup, err := parseForm(w, r)
	if err != nil {
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		http.Error(w, "Invalid form submission", code)
		return
	}
	defer cleanup()

	for _, name := range []string{validate.FieldTitle, validate.FieldIngredients, validate.FieldInstructions} {
		if vs, ok := r.PostForm[name]; ok && len(vs) > 0 {
			f.SetField(name, vs[0])
		}
	}
	if image != nil {
		if fe := f.SelectImage(*image); fe != nil {
			f.Validate()
			s.renderForm(w, r, f.Snapshot(), http.StatusUnprocessableEntity)
			return
		}
	}

	err = f.Submit(r.Context())
	switch {
	case err == nil:
		s.log.WithFields(fields).WithField("target", nav.path).Info("recipe saved")
		s.navigate(w, r, "form", nav)
	case errors.Is(err, validate.ErrValidationFailed):
		s.renderForm(w, r, f.Snapshot(), http.StatusUnprocessableEntity)
	default:
		s.log.WithFields(fields).WithError(err).Warn("failed to save recipe")
		s.renderForm(w, r, f.Snapshot(), http.StatusBadGateway)
	}
}

// parseForm reads the submitted fields. The returned image, when present,
// stays readable until cleanup runs.
func parseForm(w http.ResponseWriter, r *http.Request) (*models.ImageFile, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, 2*validate.MaxImageSize)
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return nil, noop, r.ParseForm()
	}
	if err := r.ParseMultipartForm(validate.MaxImageSize); err != nil {
		return nil, noop, err
	}
	cleanup := func() { r.MultipartForm.RemoveAll() }
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, cleanup, nil
	}
	if err != nil {
		return nil, cleanup, err
	}
	// Undeclared types are sniffed by the validator.
	contentType := header.Header.Get("Content-Type")
	if contentType == "application/octet-stream" {
		contentType = ""
	}
	img := &models.ImageFile{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Content:     file,
	}
	return img, func() {
		file.Close()
		cleanup()
	}, nil
}

func (s *Server) renderDetail(w http.ResponseWriter, r *http.Request, snap views.DetailSnapshot) {
	code := http.StatusOK
	if snap.State == views.StateFailed {
		code = http.StatusBadGateway
		if snap.NotFound {
			code = http.StatusNotFound
		}
	}
	s.render(w, r, code, Page{View: "detail", State: snap.State, Message: snap.Message, Data: snap})
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, snap views.FormSnapshot, code int) {
	if snap.State == views.StateFailed {
		code = http.StatusBadGateway
		if snap.NotFound {
			code = http.StatusNotFound
		}
	}
	s.render(w, r, code, Page{View: "form", State: snap.State, Message: snap.Message, Data: snap})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, code int, p Page) {
	metrics.RecordView(p.View, string(p.State))
	p.Flash = popFlash(w, r)
	writeJSON(w, code, p)
}

// navigate answers 303 to the controller's navigation target and carries
// its flash to the next page in a cookie.
func (s *Server) navigate(w http.ResponseWriter, r *http.Request, view string, nav *redirect) {
	metrics.RecordView(view, "navigate")
	if nav.flash != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookie,
			Value:    url.QueryEscape(nav.flash),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	w.Header().Set("Location", nav.path)
	writeJSON(w, http.StatusSeeOther, Page{View: view, State: views.StateReady, Flash: nav.flash, Navigate: nav.path})
}

func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})
	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return msg
}

// redirect records the navigation requested by a controller.
type redirect struct {
	path  string
	flash string
}

func (rd *redirect) Navigate(path, flash string) {
	rd.path = path
	rd.flash = flash
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("failed to encode response")
	}
}
