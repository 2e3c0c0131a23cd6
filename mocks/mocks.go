// Package mocks provides test doubles for the view controllers.
package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"recipevault/models"
)

// MockRecipeService is a mock implementation of views.RecipeService.
type MockRecipeService struct {
	mock.Mock
}

func (m *MockRecipeService) ListRecipes(ctx context.Context) ([]models.Recipe, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Recipe), args.Error(1)
}

func (m *MockRecipeService) GetRecipe(ctx context.Context, id string) (models.Recipe, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Recipe), args.Error(1)
}

func (m *MockRecipeService) CreateRecipe(ctx context.Context, r models.Recipe) (models.Recipe, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(models.Recipe), args.Error(1)
}

func (m *MockRecipeService) UpdateRecipe(ctx context.Context, id string, r models.Recipe) (models.Recipe, error) {
	args := m.Called(ctx, id, r)
	return args.Get(0).(models.Recipe), args.Error(1)
}

func (m *MockRecipeService) DeleteRecipe(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRecipeService) UploadImage(ctx context.Context, f models.ImageFile) (string, error) {
	args := m.Called(ctx, f)
	return args.String(0), args.Error(1)
}

// Navigation is one recorded Navigate call.
type Navigation struct {
	Path  string
	Flash string
}

// Navigator records navigation requests.
type Navigator struct {
	mu    sync.Mutex
	Calls []Navigation
}

func (n *Navigator) Navigate(path, flash string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Calls = append(n.Calls, Navigation{Path: path, Flash: flash})
}

// Last returns the most recent navigation, or false when there was none.
func (n *Navigator) Last() (Navigation, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.Calls) == 0 {
		return Navigation{}, false
	}
	return n.Calls[len(n.Calls)-1], true
}
