package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipevault/models"
)

func TestMemoryStoreKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(models.Recipe{ID: "seed", Title: "Zucchini Bread"})

	a, err := s.Create(ctx, models.Recipe{Title: "Apple Pie"})
	require.NoError(t, err)
	b, err := s.Create(ctx, models.Recipe{Title: "Bagels"})
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"seed", a.ID, b.ID}, []string{list[0].ID, list[1].ID, list[2].ID})

	require.NoError(t, s.Delete(ctx, a.ID))
	list, _ = s.List(ctx)
	assert.Equal(t, []string{"seed", b.ID}, []string{list[0].ID, list[1].ID})
}

func TestMemoryStoreUpdatePreservesID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(models.Recipe{ID: "r1", Title: "Old"})

	got, err := s.Update(ctx, "r1", models.Recipe{ID: "other", Title: "New"})
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)

	stored, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "New", stored.Title)

	_, err = s.Update(ctx, "missing", models.Recipe{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)
}

func TestMemoryStoreDuplicateSeed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(
		models.Recipe{ID: "dup", Title: "First"},
		models.Recipe{ID: "other", Title: "Other"},
		models.Recipe{ID: "dup", Title: "Second"},
	)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "dup", list[0].ID)
	assert.Equal(t, "Second", list[0].Title)

	require.NoError(t, s.Delete(ctx, "dup"))
	list, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "other", list[0].ID)
}

func TestDirImageStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewDirImageStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "a.png", Image{ContentType: "image/png", Data: pngHeader}))
	img, err := s.Get(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, pngHeader, img.Data)

	_, err = s.Get(ctx, "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}
