package backend

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"recipevault/models"
)

const recipesCollection = "recipes"

// FirestoreStore keeps recipes in the "recipes" collection, one document per
// recipe keyed by its id.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore connects to the project. credentialsFile may be empty to
// use application default credentials.
func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) List(ctx context.Context) ([]models.Recipe, error) {
	recipes := []models.Recipe{}
	iter := s.client.Collection(recipesCollection).OrderBy("title", firestore.Asc).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list recipes: %w", err)
		}
		var recipe models.Recipe
		if err := doc.DataTo(&recipe); err != nil {
			return nil, fmt.Errorf("decode recipe %s: %w", doc.Ref.ID, err)
		}
		recipe.ID = doc.Ref.ID
		recipes = append(recipes, recipe)
	}
	return recipes, nil
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (models.Recipe, error) {
	doc, err := s.client.Collection(recipesCollection).Doc(id).Get(ctx)
	if err != nil {
		return models.Recipe{}, notFound(err, "get recipe "+id)
	}
	var recipe models.Recipe
	if err := doc.DataTo(&recipe); err != nil {
		return models.Recipe{}, fmt.Errorf("decode recipe %s: %w", id, err)
	}
	recipe.ID = doc.Ref.ID
	return recipe, nil
}

func (s *FirestoreStore) Create(ctx context.Context, r models.Recipe) (models.Recipe, error) {
	r.ID = uuid.New().String()
	if _, err := s.client.Collection(recipesCollection).Doc(r.ID).Create(ctx, r); err != nil {
		return models.Recipe{}, fmt.Errorf("create recipe: %w", err)
	}
	return r, nil
}

// Update fails with ErrNotFound when the document does not exist. An empty
// image reference removes the stored field.
func (s *FirestoreStore) Update(ctx context.Context, id string, r models.Recipe) (models.Recipe, error) {
	var image interface{} = r.ImageURL
	if r.ImageURL == "" {
		image = firestore.Delete
	}
	updates := []firestore.Update{
		{Path: "title", Value: r.Title},
		{Path: "ingredients", Value: r.Ingredients},
		{Path: "instructions", Value: r.Instructions},
		{Path: "imageUrl", Value: image},
	}
	if _, err := s.client.Collection(recipesCollection).Doc(id).Update(ctx, updates); err != nil {
		return models.Recipe{}, notFound(err, "update recipe "+id)
	}
	r.ID = id
	return r, nil
}

func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	if _, err := s.client.Collection(recipesCollection).Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return notFound(err, "delete recipe "+id)
	}
	return nil
}

func notFound(err error, op string) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
