// Package views holds the list, detail and form controllers. Each controller
// owns one explicit State and moves between states only through its event
// methods; rendering the state is left to the caller.
package views

import (
	"context"
	"errors"
	"net/url"

	"recipevault/models"
)

// State is the lifecycle position of a view.
type State string

const (
	StateLoading        State = "loading"
	StateReady          State = "ready"
	StateFailed         State = "failed"
	StateConfirmPending State = "confirm_pending"
)

// RecipeService is the remote API as seen by the views. *client.Client
// implements it.
type RecipeService interface {
	ListRecipes(ctx context.Context) ([]models.Recipe, error)
	GetRecipe(ctx context.Context, id string) (models.Recipe, error)
	CreateRecipe(ctx context.Context, r models.Recipe) (models.Recipe, error)
	UpdateRecipe(ctx context.Context, id string, r models.Recipe) (models.Recipe, error)
	DeleteRecipe(ctx context.Context, id string) error
	UploadImage(ctx context.Context, f models.ImageFile) (string, error)
}

// Navigator receives navigation requests. flash is shown once on the target.
type Navigator interface {
	Navigate(path, flash string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path, flash string)

func (f NavigatorFunc) Navigate(path, flash string) { f(path, flash) }

var (
	ErrFetchFailed       = errors.New("fetch failed")
	ErrDeleteFailed      = errors.New("delete failed")
	ErrSaveFailed        = errors.New("save failed")
	ErrImageUploadFailed = errors.New("image upload failed")

	// ErrInvalidTransition is returned when an event does not apply to the
	// current state.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrUnmounted is returned when a result arrives after Unmount; the
	// result is discarded.
	ErrUnmounted = errors.New("view unmounted")
)

// User-facing messages.
const (
	msgListFailed     = "Failed to load recipes. Please try again later."
	msgDetailFailed   = "Failed to load recipe details. The recipe may not exist or has been removed."
	msgDeleteFailed   = "Failed to delete recipe. Please try again."
	msgFormLoadFailed = "Failed to load recipe data. The recipe may not exist."
	msgUploadFailed   = "Failed to upload image. Please try again."
	msgCreateFailed   = "Failed to create recipe. Please try again."
	msgUpdateFailed   = "Failed to update recipe. Please try again."

	FlashDeleted = "Recipe deleted successfully!"
	FlashCreated = "Recipe created successfully!"
	FlashUpdated = "Recipe updated successfully!"
)

// Navigation paths.
const (
	PathList   = "/"
	PathCreate = "/create"
)

func PathDetail(id string) string { return "/recipe/" + url.PathEscape(id) }
func PathEdit(id string) string   { return "/edit/" + url.PathEscape(id) }

const excerptLength = 100

// truncate cuts s to n runes and marks the cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
