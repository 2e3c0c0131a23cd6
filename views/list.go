package views

import (
	"context"
	"fmt"
	"sync"

	"recipevault/models"
	"recipevault/search"
)

// Card is one recipe as shown in the list.
type Card struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// ListSnapshot is the renderable state of the list view.
type ListSnapshot struct {
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
	Term    string `json:"term"`
	Total   int    `json:"total"`
	Recipes []Card `json:"recipes"`
}

// List is the root view: the whole collection with a search box.
type List struct {
	svc RecipeService

	mu      sync.Mutex
	mounted bool
	state   State
	message string
	engine  *search.Engine
}

func NewList(svc RecipeService) *List {
	return &List{svc: svc, state: StateLoading, engine: search.NewEngine(nil)}
}

// Mount fetches the collection.
func (l *List) Mount(ctx context.Context) error {
	l.mu.Lock()
	l.mounted = true
	l.mu.Unlock()
	return l.load(ctx)
}

// Retry reloads the collection after a failure. It is never called
// automatically.
func (l *List) Retry(ctx context.Context) error {
	l.mu.Lock()
	if l.state != StateFailed {
		l.mu.Unlock()
		return ErrInvalidTransition
	}
	l.mu.Unlock()
	return l.load(ctx)
}

// Unmount detaches the view; in-flight results are dropped.
func (l *List) Unmount() {
	l.mu.Lock()
	l.mounted = false
	l.mu.Unlock()
}

func (l *List) load(ctx context.Context) error {
	l.mu.Lock()
	l.state = StateLoading
	l.message = ""
	l.mu.Unlock()

	recipes, err := l.svc.ListRecipes(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.mounted {
		return ErrUnmounted
	}
	if err != nil {
		l.state = StateFailed
		l.message = msgListFailed
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	l.engine.SetRecipes(recipes)
	l.state = StateReady
	return nil
}

// Search updates the term; the filtered view follows immediately.
func (l *List) Search(term string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.engine.SetTerm(term)
}

// Results returns the filtered recipes.
func (l *List) Results() []models.Recipe {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Results()
}

func (l *List) Snapshot() ListSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap := ListSnapshot{
		State:   l.state,
		Message: l.message,
		Term:    l.engine.Term(),
		Total:   len(l.engine.All()),
		Recipes: []Card{},
	}
	if l.state != StateReady {
		return snap
	}
	for _, r := range l.engine.Results() {
		snap.Recipes = append(snap.Recipes, Card{
			ID:       r.ID,
			Title:    r.Title,
			Excerpt:  truncate(r.Ingredients, excerptLength),
			ImageURL: r.ImageURL,
		})
	}
	return snap
}
