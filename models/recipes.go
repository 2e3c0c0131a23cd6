package models

import (
	"io"
	"strings"
)

// Recipe is the record stored by the recipe service. Ingredients and
// instructions are free text; the service never splits them.
type Recipe struct {
	ID           string `json:"id,omitempty" firestore:"id"`
	Title        string `json:"title" firestore:"title"`
	Ingredients  string `json:"ingredients" firestore:"ingredients"`
	Instructions string `json:"instructions" firestore:"instructions"`
	ImageURL     string `json:"imageUrl,omitempty" firestore:"imageUrl,omitempty"`
}

// Missing returns the names of the text fields that are blank after trimming.
func (r Recipe) Missing() []string {
	var missing []string
	if strings.TrimSpace(r.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(r.Ingredients) == "" {
		missing = append(missing, "ingredients")
	}
	if strings.TrimSpace(r.Instructions) == "" {
		missing = append(missing, "instructions")
	}
	return missing
}

// ImageFile is an image picked in the form, not yet uploaded.
type ImageFile struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Draft is an in-progress recipe held by the form view.
type Draft struct {
	Title        string
	Ingredients  string
	Instructions string
	ImageURL     string
	Image        *ImageFile
}

// DraftFrom seeds a draft with an existing recipe's fields.
func DraftFrom(r Recipe) Draft {
	return Draft{
		Title:        r.Title,
		Ingredients:  r.Ingredients,
		Instructions: r.Instructions,
		ImageURL:     r.ImageURL,
	}
}

// Recipe builds the payload submitted to the service. The id is left to the
// caller.
func (d Draft) Recipe(imageURL string) Recipe {
	return Recipe{
		Title:        d.Title,
		Ingredients:  d.Ingredients,
		Instructions: d.Instructions,
		ImageURL:     imageURL,
	}
}
