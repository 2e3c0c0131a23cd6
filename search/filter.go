// Package search derives the filtered view of a recipe collection.
package search

import (
	"strings"

	"recipevault/models"
)

// Filter returns the recipes whose title or ingredients contain term,
// case-insensitively, in their original order. A blank term returns recipes
// unchanged.
func Filter(recipes []models.Recipe, term string) []models.Recipe {
	if strings.TrimSpace(term) == "" {
		return recipes
	}
	needle := strings.ToLower(term)
	out := make([]models.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if strings.Contains(strings.ToLower(r.Title), needle) ||
			strings.Contains(strings.ToLower(r.Ingredients), needle) {
			out = append(out, r)
		}
	}
	return out
}

// Engine keeps the full collection and the current term and recomputes the
// filtered view synchronously whenever either changes. Not safe for
// concurrent use.
type Engine struct {
	recipes  []models.Recipe
	term     string
	filtered []models.Recipe
}

// NewEngine returns an engine over recipes with an empty term.
func NewEngine(recipes []models.Recipe) *Engine {
	return &Engine{recipes: recipes, filtered: recipes}
}

// SetRecipes replaces the source collection.
func (e *Engine) SetRecipes(recipes []models.Recipe) {
	e.recipes = recipes
	e.filtered = Filter(recipes, e.term)
}

// SetTerm changes the search term. Setting the current term again keeps the
// last result.
func (e *Engine) SetTerm(term string) {
	if term == e.term {
		return
	}
	e.term = term
	e.filtered = Filter(e.recipes, term)
}

// Term returns the current search term.
func (e *Engine) Term() string { return e.term }

// All returns the unfiltered collection.
func (e *Engine) All() []models.Recipe { return e.recipes }

// Results returns the filtered view for the current inputs.
func (e *Engine) Results() []models.Recipe { return e.filtered }
