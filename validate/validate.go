// Package validate checks recipe drafts before they are submitted.
package validate

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strings"

	"recipevault/models"
)

// MaxImageSize is the largest image the form accepts, 5 MiB.
const MaxImageSize = 5 * 1024 * 1024

// Field names used as keys in Errors.
const (
	FieldTitle        = "title"
	FieldIngredients  = "ingredients"
	FieldInstructions = "instructions"
	FieldImage        = "imageFile"
)

// Kind classifies a field failure.
type Kind string

const (
	MissingField    Kind = "MissingField"
	OversizedFile   Kind = "OversizedFile"
	UnsupportedType Kind = "UnsupportedType"
)

// ErrValidationFailed matches the error returned by Errors.Err.
var ErrValidationFailed = errors.New("validation failed")

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

// FieldError is one failing field.
type FieldError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Errors maps field names to their failure. An empty map means the draft is valid.
type Errors map[string]FieldError

// Err returns nil when there are no failures.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(fields, ", "))
}

// Messages flattens the errors to field -> message.
func (e Errors) Messages() map[string]string {
	out := make(map[string]string, len(e))
	for f, fe := range e {
		out[f] = fe.Message
	}
	return out
}

// Draft runs every rule against d and returns all failures.
func Draft(d models.Draft) Errors {
	errs := Errors{}
	if strings.TrimSpace(d.Title) == "" {
		errs[FieldTitle] = FieldError{Kind: MissingField, Message: "Title is required"}
	}
	if strings.TrimSpace(d.Ingredients) == "" {
		errs[FieldIngredients] = FieldError{Kind: MissingField, Message: "Ingredients are required"}
	}
	if strings.TrimSpace(d.Instructions) == "" {
		errs[FieldInstructions] = FieldError{Kind: MissingField, Message: "Instructions are required"}
	}
	if d.Image != nil {
		if fe := Image(*d.Image); fe != nil {
			errs[FieldImage] = *fe
		}
	}
	return errs
}

// Image checks size before type, so an oversized file is always OversizedFile.
func Image(f models.ImageFile) *FieldError {
	if f.Size > MaxImageSize {
		return &FieldError{Kind: OversizedFile, Message: "Image size should be less than 5MB"}
	}
	if !allowedImageTypes[ContentType(f)] {
		return &FieldError{Kind: UnsupportedType, Message: "Only JPG, PNG and GIF images are allowed"}
	}
	return nil
}

// ContentType returns the normalized MIME type of f. A file without a declared
// type is sniffed when its content can be rewound.
func ContentType(f models.ImageFile) string {
	if f.ContentType != "" {
		mt, _, err := mime.ParseMediaType(f.ContentType)
		if err != nil {
			return strings.ToLower(strings.TrimSpace(f.ContentType))
		}
		return mt
	}
	rs, ok := f.Content.(io.ReadSeeker)
	if !ok {
		return ""
	}
	head := make([]byte, 512)
	n, _ := io.ReadFull(rs, head)
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return ""
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(head[:n]))
	return mt
}
