package views

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"recipevault/client"
	"recipevault/models"
)

// DetailSnapshot is the renderable state of the detail view.
type DetailSnapshot struct {
	State    State          `json:"state"`
	Message  string         `json:"message,omitempty"`
	NotFound bool           `json:"notFound,omitempty"`
	Recipe   *models.Recipe `json:"recipe,omitempty"`
}

// Detail shows one recipe and owns the two-step delete.
type Detail struct {
	svc RecipeService
	nav Navigator
	id  string

	mu       sync.Mutex
	mounted  bool
	state    State
	message  string
	notFound bool
	recipe   *models.Recipe
}

func NewDetail(svc RecipeService, nav Navigator, id string) *Detail {
	return &Detail{svc: svc, nav: nav, id: id, state: StateLoading}
}

// Mount fetches the recipe.
func (d *Detail) Mount(ctx context.Context) error {
	d.mu.Lock()
	d.mounted = true
	d.mu.Unlock()
	return d.load(ctx)
}

// Retry reloads after a failure.
func (d *Detail) Retry(ctx context.Context) error {
	d.mu.Lock()
	if d.state != StateFailed {
		d.mu.Unlock()
		return ErrInvalidTransition
	}
	d.mu.Unlock()
	return d.load(ctx)
}

func (d *Detail) Unmount() {
	d.mu.Lock()
	d.mounted = false
	d.mu.Unlock()
}

func (d *Detail) load(ctx context.Context) error {
	d.mu.Lock()
	d.state = StateLoading
	d.message = ""
	d.notFound = false
	d.mu.Unlock()

	recipe, err := d.svc.GetRecipe(ctx, d.id)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.mounted {
		return ErrUnmounted
	}
	if err != nil {
		d.state = StateFailed
		d.message = msgDetailFailed
		d.notFound = errors.Is(err, client.ErrNotFound)
		d.recipe = nil
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	d.recipe = &recipe
	d.state = StateReady
	return nil
}

// RequestDelete is the first delete click. It only asks for confirmation.
func (d *Detail) RequestDelete() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateReady {
		return ErrInvalidTransition
	}
	d.state = StateConfirmPending
	return nil
}

// CancelDelete withdraws a pending confirmation.
func (d *Detail) CancelDelete() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateConfirmPending {
		return ErrInvalidTransition
	}
	d.state = StateReady
	return nil
}

// ConfirmDelete is the second click. Without a pending request it does
// nothing and the service is not called.
func (d *Detail) ConfirmDelete(ctx context.Context) error {
	d.mu.Lock()
	if d.state != StateConfirmPending {
		d.mu.Unlock()
		return ErrInvalidTransition
	}
	d.state = StateLoading
	d.message = ""
	d.mu.Unlock()

	err := d.svc.DeleteRecipe(ctx, d.id)

	d.mu.Lock()
	if !d.mounted {
		d.mu.Unlock()
		return ErrUnmounted
	}
	if err != nil {
		d.state = StateFailed
		d.message = msgDeleteFailed
		d.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}
	d.recipe = nil
	d.mu.Unlock()

	d.nav.Navigate(PathList, FlashDeleted)
	return nil
}

func (d *Detail) Snapshot() DetailSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap := DetailSnapshot{State: d.state, Message: d.message, NotFound: d.notFound}
	if d.recipe != nil {
		r := *d.recipe
		snap.Recipe = &r
	}
	return snap
}
