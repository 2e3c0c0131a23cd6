// Package client talks to the remote recipe service and the image-upload
// service. Every call is a single round trip; nothing is retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"recipevault/models"
)

var (
	// ErrRequestFailed matches every failure returned by the client.
	ErrRequestFailed = errors.New("request failed")
	// ErrNotFound additionally matches a 404 from the recipe service.
	ErrNotFound = errors.New("recipe not found")
)

// Error describes a failed call.
type Error struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	if target == ErrRequestFailed {
		return true
	}
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client is safe for concurrent use; it holds configuration only.
type Client struct {
	baseURL   string
	uploadURL string
	http      *http.Client
	log       logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. A client passed through
// WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// WithLogger sets the logger used for failed calls.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a client for the recipe service at baseURL. Images are posted
// to uploadURL; when empty it defaults to baseURL + "/images".
func New(baseURL, uploadURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if uploadURL == "" {
		uploadURL = baseURL + "/images"
	}
	c := &Client{
		baseURL:   baseURL,
		uploadURL: uploadURL,
		http:      &http.Client{Timeout: 15 * time.Second},
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListRecipes returns every recipe in the order the service returns them.
func (c *Client) ListRecipes(ctx context.Context) ([]models.Recipe, error) {
	var recipes []models.Recipe
	if err := c.do(ctx, "list recipes", http.MethodGet, c.baseURL+"/recipes", nil, &recipes); err != nil {
		return nil, err
	}
	if recipes == nil {
		recipes = []models.Recipe{}
	}
	return recipes, nil
}

// GetRecipe fetches one recipe. A missing recipe matches ErrNotFound.
func (c *Client) GetRecipe(ctx context.Context, id string) (models.Recipe, error) {
	var recipe models.Recipe
	u, err := c.recipeURL("get recipe", id)
	if err != nil {
		return recipe, err
	}
	err = c.do(ctx, "get recipe", http.MethodGet, u, nil, &recipe)
	return recipe, err
}

// CreateRecipe posts r without an id and returns the stored recipe.
func (c *Client) CreateRecipe(ctx context.Context, r models.Recipe) (models.Recipe, error) {
	r.ID = ""
	var created models.Recipe
	if err := c.do(ctx, "create recipe", http.MethodPost, c.baseURL+"/recipes", r, &created); err != nil {
		return models.Recipe{}, err
	}
	if created.ID == "" {
		return models.Recipe{}, &Error{Op: "create recipe", Err: errors.New("response has no id")}
	}
	return created, nil
}

// UpdateRecipe replaces the recipe with the given id.
func (c *Client) UpdateRecipe(ctx context.Context, id string, r models.Recipe) (models.Recipe, error) {
	u, err := c.recipeURL("update recipe", id)
	if err != nil {
		return models.Recipe{}, err
	}
	r.ID = id
	var updated models.Recipe
	if err := c.do(ctx, "update recipe", http.MethodPut, u, r, &updated); err != nil {
		return models.Recipe{}, err
	}
	if updated.ID == "" {
		updated.ID = id
	}
	return updated, nil
}

// DeleteRecipe removes the recipe with the given id.
func (c *Client) DeleteRecipe(ctx context.Context, id string) error {
	u, err := c.recipeURL("delete recipe", id)
	if err != nil {
		return err
	}
	return c.do(ctx, "delete recipe", http.MethodDelete, u, nil, nil)
}

type uploadResponse struct {
	URL string `json:"url"`
}

// UploadImage posts f as multipart field "image" and returns the stored
// image reference.
func (c *Client) UploadImage(ctx context.Context, f models.ImageFile) (string, error) {
	const op = "upload image"
	if f.Content == nil {
		return "", &Error{Op: op, Err: errors.New("no image content")}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, fileName(f)))
	if f.ContentType != "" {
		h.Set("Content-Type", f.ContentType)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", &Error{Op: op, Err: err}
	}
	if _, err := io.Copy(part, f.Content); err != nil {
		return "", &Error{Op: op, Err: fmt.Errorf("read image: %w", err)}
	}
	if err := mw.Close(); err != nil {
		return "", &Error{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return "", &Error{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var out uploadResponse
	if err := c.send(op, req, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", &Error{Op: op, Err: errors.New("response has no url")}
	}
	return out.URL, nil
}

func (c *Client) recipeURL(op, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", &Error{Op: op, Err: errors.New("empty recipe id")}
	}
	return c.baseURL + "/recipes/" + url.PathEscape(id), nil
}

func (c *Client) do(ctx context.Context, op, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.send(op, req, out)
}

func (c *Client) send(op string, req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithFields(logrus.Fields{"op": op, "url": req.URL.String()}).WithError(err).Warn("request failed")
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.WithFields(logrus.Fields{"op": op, "url": req.URL.String(), "status": resp.StatusCode}).Warn("request rejected")
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: errors.New(text)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func fileName(f models.ImageFile) string {
	if f.Name != "" {
		return f.Name
	}
	return "image"
}
