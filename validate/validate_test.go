package validate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipevault/models"
)

func validDraft() models.Draft {
	return models.Draft{
		Title:        "Pancakes",
		Ingredients:  "2 cups flour, 1 egg, 1 cup milk",
		Instructions: "Mix and fry.",
	}
}

func TestDraftValid(t *testing.T) {
	errs := Draft(validDraft())
	assert.Empty(t, errs)
	assert.NoError(t, errs.Err())
}

func TestDraftMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*models.Draft)
		field string
	}{
		{"empty title", func(d *models.Draft) { d.Title = "" }, FieldTitle},
		{"whitespace title", func(d *models.Draft) { d.Title = " \t\n" }, FieldTitle},
		{"empty ingredients", func(d *models.Draft) { d.Ingredients = "" }, FieldIngredients},
		{"whitespace instructions", func(d *models.Draft) { d.Instructions = "   " }, FieldInstructions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.edit(&d)
			errs := Draft(d)
			require.Len(t, errs, 1)
			assert.Equal(t, MissingField, errs[tt.field].Kind)
			assert.ErrorIs(t, errs.Err(), ErrValidationFailed)
		})
	}
}

func TestDraftAllFieldsMissing(t *testing.T) {
	errs := Draft(models.Draft{})
	assert.Len(t, errs, 3)
	assert.Equal(t, map[string]string{
		FieldTitle:        "Title is required",
		FieldIngredients:  "Ingredients are required",
		FieldInstructions: "Instructions are required",
	}, errs.Messages())
}

func TestImageOversizedRegardlessOfType(t *testing.T) {
	for _, ct := range []string{"image/jpeg", "application/pdf", ""} {
		fe := Image(models.ImageFile{Name: "big", ContentType: ct, Size: MaxImageSize + 1})
		require.NotNil(t, fe, ct)
		assert.Equal(t, OversizedFile, fe.Kind, ct)
	}
}

func TestImageUnsupportedRegardlessOfSize(t *testing.T) {
	for _, size := range []int64{0, 1, MaxImageSize} {
		fe := Image(models.ImageFile{Name: "doc.pdf", ContentType: "application/pdf", Size: size})
		require.NotNil(t, fe)
		assert.Equal(t, UnsupportedType, fe.Kind)
	}
}

func TestImageAccepted(t *testing.T) {
	for _, ct := range []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "IMAGE/PNG"} {
		assert.Nil(t, Image(models.ImageFile{ContentType: ct, Size: 1}), ct)
	}
	assert.Nil(t, Image(models.ImageFile{ContentType: "image/jpeg", Size: MaxImageSize}))
}

func TestImageSniffedWhenUndeclared(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	content := bytes.NewReader(png)
	f := models.ImageFile{Name: "photo", Size: int64(len(png)), Content: content}
	assert.Equal(t, "image/png", ContentType(f))
	assert.Nil(t, Image(f))
	assert.Equal(t, int64(len(png)), int64(content.Len()), "content must be rewound")

	text := models.ImageFile{Size: 5, Content: bytes.NewReader([]byte("hello"))}
	fe := Image(text)
	require.NotNil(t, fe)
	assert.Equal(t, UnsupportedType, fe.Kind)
}

func TestDraftReportsImage(t *testing.T) {
	d := validDraft()
	d.Image = &models.ImageFile{ContentType: "application/pdf", Size: 10}
	errs := Draft(d)
	require.Contains(t, errs, FieldImage)
	assert.Equal(t, "Only JPG, PNG and GIF images are allowed", errs[FieldImage].Message)
}
