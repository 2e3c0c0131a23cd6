package views

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"recipevault/client"
	"recipevault/models"
	"recipevault/validate"
)

// Mode tells create and edit forms apart.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// FormSnapshot is the renderable state of the form view.
type FormSnapshot struct {
	State        State             `json:"state"`
	Mode         Mode              `json:"mode"`
	Message      string            `json:"message,omitempty"`
	NotFound     bool              `json:"notFound,omitempty"`
	Submitting   bool              `json:"submitting"`
	Title        string            `json:"title"`
	Ingredients  string            `json:"ingredients"`
	Instructions string            `json:"instructions"`
	ImageURL     string            `json:"imageUrl,omitempty"`
	ImageName    string            `json:"imageName,omitempty"`
	Errors       map[string]string `json:"errors"`
}

// Form creates a recipe, or edits one when constructed with an id.
type Form struct {
	svc RecipeService
	nav Navigator
	id  string

	mu         sync.Mutex
	mounted    bool
	state      State
	message    string
	notFound   bool
	submitting bool
	draft      models.Draft
	errors     validate.Errors
}

func NewForm(svc RecipeService, nav Navigator, id string) *Form {
	f := &Form{svc: svc, nav: nav, id: id, state: StateReady, errors: validate.Errors{}}
	if id != "" {
		f.state = StateLoading
	}
	return f
}

func (f *Form) Mode() Mode {
	if f.id == "" {
		return ModeCreate
	}
	return ModeEdit
}

// Mount loads the recipe in edit mode. A create form is ready at once.
func (f *Form) Mount(ctx context.Context) error {
	f.mu.Lock()
	f.mounted = true
	if f.id == "" {
		f.state = StateReady
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()
	return f.load(ctx)
}

// Retry reloads the edited recipe after a failed load.
func (f *Form) Retry(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateFailed || f.id == "" {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	f.mu.Unlock()
	return f.load(ctx)
}

func (f *Form) Unmount() {
	f.mu.Lock()
	f.mounted = false
	f.mu.Unlock()
}

func (f *Form) load(ctx context.Context) error {
	f.mu.Lock()
	f.state = StateLoading
	f.message = ""
	f.notFound = false
	f.mu.Unlock()

	recipe, err := f.svc.GetRecipe(ctx, f.id)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.mounted {
		return ErrUnmounted
	}
	if err != nil {
		f.state = StateFailed
		f.message = msgFormLoadFailed
		f.notFound = errors.Is(err, client.ErrNotFound)
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	f.draft = models.DraftFrom(recipe)
	f.state = StateReady
	return nil
}

// SetField edits one text field and clears its error.
func (f *Form) SetField(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch name {
	case validate.FieldTitle:
		f.draft.Title = value
	case validate.FieldIngredients:
		f.draft.Ingredients = value
	case validate.FieldInstructions:
		f.draft.Instructions = value
	default:
		return fmt.Errorf("unknown field %q", name)
	}
	delete(f.errors, name)
	return nil
}

// SelectImage checks the file at once. An invalid file is not kept and the
// previous selection stays in place.
func (f *Form) SelectImage(img models.ImageFile) *validate.FieldError {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fe := validate.Image(img); fe != nil {
		f.errors[validate.FieldImage] = *fe
		return fe
	}
	f.draft.Image = &img
	delete(f.errors, validate.FieldImage)
	return nil
}

// ClearImage drops a selected file. The existing image reference is kept.
func (f *Form) ClearImage() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Image = nil
	delete(f.errors, validate.FieldImage)
}

// Submit validates the draft, uploads a selected image, then creates or
// updates the recipe and navigates to it. The upload always finishes before
// the save starts, and a failed upload aborts the save.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateReady || f.submitting {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	f.errors = validate.Draft(f.draft)
	if err := f.errors.Err(); err != nil {
		f.mu.Unlock()
		return err
	}
	draft := f.draft
	f.state = StateLoading
	f.submitting = true
	f.message = ""
	f.mu.Unlock()

	imageURL := draft.ImageURL
	if draft.Image != nil {
		if s, ok := draft.Image.Content.(io.Seeker); ok {
			if _, err := s.Seek(0, io.SeekStart); err != nil {
				return f.submitFailed(msgUploadFailed, fmt.Errorf("%w: rewind image: %w", ErrImageUploadFailed, err))
			}
		}
		ref, err := f.svc.UploadImage(ctx, *draft.Image)
		if err != nil {
			return f.submitFailed(msgUploadFailed, fmt.Errorf("%w: %w", ErrImageUploadFailed, err))
		}
		imageURL = ref
	}

	payload := draft.Recipe(imageURL)
	var (
		saved models.Recipe
		err   error
		flash string
	)
	if f.id == "" {
		saved, err = f.svc.CreateRecipe(ctx, payload)
		flash = FlashCreated
	} else {
		saved, err = f.svc.UpdateRecipe(ctx, f.id, payload)
		saved.ID = f.id
		flash = FlashUpdated
	}
	if err != nil {
		msg := msgCreateFailed
		if f.id != "" {
			msg = msgUpdateFailed
		}
		return f.submitFailed(msg, fmt.Errorf("%w: %w", ErrSaveFailed, err))
	}

	f.mu.Lock()
	f.submitting = false
	f.state = StateReady
	if !f.mounted {
		f.mu.Unlock()
		return ErrUnmounted
	}
	f.draft.Image = nil
	f.draft.ImageURL = imageURL
	f.mu.Unlock()

	f.nav.Navigate(PathDetail(saved.ID), flash)
	return nil
}

// submitFailed returns the form to an editable state carrying msg.
func (f *Form) submitFailed(msg string, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	f.state = StateReady
	if !f.mounted {
		return ErrUnmounted
	}
	f.message = msg
	return err
}

// Validate re-checks the draft without submitting. A rejected image from
// SelectImage stays reported.
func (f *Form) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rejected, hadImageErr := f.errors[validate.FieldImage]
	f.errors = validate.Draft(f.draft)
	if _, ok := f.errors[validate.FieldImage]; !ok && hadImageErr && f.draft.Image == nil {
		f.errors[validate.FieldImage] = rejected
	}
	return f.errors.Err()
}

// Errors returns a copy of the current field errors.
func (f *Form) Errors() validate.Errors {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(validate.Errors, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

func (f *Form) Snapshot() FormSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := FormSnapshot{
		State:        f.state,
		Mode:         f.Mode(),
		Message:      f.message,
		NotFound:     f.notFound,
		Submitting:   f.submitting,
		Title:        f.draft.Title,
		Ingredients:  f.draft.Ingredients,
		Instructions: f.draft.Instructions,
		ImageURL:     f.draft.ImageURL,
		Errors:       f.errors.Messages(),
	}
	if f.draft.Image != nil {
		snap.ImageName = f.draft.Image.Name
	}
	return snap
}
