package catalogue

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func sampleMemory(t *testing.T) *Memory {
	t.Helper()
	price := 12.5
	m, err := NewMemory(
		[]Ingredient{
			{ID: "corn", Name: "Corn", Price: 10, Nutrients: map[string]float64{"cp": 8.5, "me": 3300}},
			{ID: "soy", Name: "Soybean meal", Price: 20, Nutrients: map[string]float64{"cp": 44}},
		},
		[]Override{
			{UserID: "u1", IngredientID: "corn", Price: &price, Nutrients: map[string]float64{"cp": 9}},
			{UserID: "u1", IngredientID: "soy", Deleted: true},
		},
	)
	require.NoError(t, err)
	return m
}

func TestMemoryLookup(t *testing.T) {
	m := sampleMemory(t)
	ctx := context.Background()

	ing, err := m.Ingredient(ctx, "", "corn")
	require.NoError(t, err)
	assert.Equal(t, 10.0, ing.Price)
	assert.Equal(t, 8.5, ing.Content("cp"))
	assert.Zero(t, ing.Content("ca"))

	_, err = m.Ingredient(ctx, "", "barley")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, m.Len())
}

func TestMemoryAppliesUserOverrides(t *testing.T) {
	m := sampleMemory(t)
	ctx := context.Background()

	ing, err := m.Ingredient(ctx, "u1", "corn")
	require.NoError(t, err)
	assert.Equal(t, 12.5, ing.Price)
	assert.Equal(t, 9.0, ing.Content("cp"))
	assert.Equal(t, 3300.0, ing.Content("me"))
	assert.Equal(t, "Corn", ing.Name)

	// the shared entry is untouched
	shared, err := m.Ingredient(ctx, "u2", "corn")
	require.NoError(t, err)
	assert.Equal(t, 10.0, shared.Price)
	assert.Equal(t, 8.5, shared.Content("cp"))

	_, err = m.Ingredient(ctx, "u1", "soy")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRejectsBadEntries(t *testing.T) {
	_, err := NewMemory([]Ingredient{{Name: "nameless"}}, nil)
	assert.Error(t, err)

	_, err = NewMemory([]Ingredient{{ID: "x", Price: -1}}, nil)
	assert.Error(t, err)

	_, err = NewMemory(nil, []Override{{IngredientID: "x"}})
	assert.Error(t, err)
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	m := sampleMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Ingredient(ctx, "", "corn")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.yaml")
	content := `ingredients:
  - id: corn
    name: Corn
    price: 10
    nutrients:
      cp: 8.5
overrides:
  - userId: u1
    ingredientId: corn
    price: 11
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := LoadFile(path)
	require.NoError(t, err)
	ing, err := m.Ingredient(context.Background(), "u1", "corn")
	require.NoError(t, err)
	assert.Equal(t, 11.0, ing.Price)
	assert.Equal(t, 8.5, ing.Content("cp"))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

type countingCatalogue struct {
	calls atomic.Int32
	next  Catalogue
}

func (c *countingCatalogue) Ingredient(ctx context.Context, userID, id string) (Ingredient, error) {
	c.calls.Add(1)
	return c.next.Ingredient(ctx, userID, id)
}

func TestCachedServesRepeatLookupsFromCache(t *testing.T) {
	counting := &countingCatalogue{next: sampleMemory(t)}
	outcomes := map[string]int{}
	cached, err := NewCached(counting, time.Minute, 8, zap.NewNop(), func(o string) { outcomes[o]++ })
	require.NoError(t, err)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ing, err := cached.Ingredient(ctx, "u1", "corn")
		require.NoError(t, err)
		assert.Equal(t, 12.5, ing.Price)
	}
	assert.Equal(t, int32(1), counting.calls.Load())

	// users are cached separately
	ing, err := cached.Ingredient(ctx, "", "corn")
	require.NoError(t, err)
	assert.Equal(t, 10.0, ing.Price)
	assert.Equal(t, int32(2), counting.calls.Load())

	// misses are not cached
	for i := 0; i < 2; i++ {
		_, err := cached.Ingredient(ctx, "", "barley")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, int32(4), counting.calls.Load())
	assert.Equal(t, map[string]int{OutcomeHit: 2, OutcomeMiss: 2, OutcomeError: 2}, outcomes)
}

func TestNewCachedValidatesArguments(t *testing.T) {
	_, err := NewCached(nil, time.Minute, 8, nil, nil)
	assert.Error(t, err)
	_, err = NewCached(sampleMemory(t), 0, 8, nil, nil)
	assert.Error(t, err)
}

func TestDocumentConversion(t *testing.T) {
	cp := primitive.NewObjectID()
	user := primitive.NewObjectID()
	ingID := primitive.NewObjectID()
	price := 7.0

	doc := ingredientDocument{
		ID:        ingID,
		Name:      "Rice bran",
		Price:     15,
		Nutrients: []nutrientValue{{Nutrient: cp, Value: 12}},
	}
	ing := doc.toIngredient()
	assert.Equal(t, ingID.Hex(), ing.ID)
	assert.Equal(t, 12.0, ing.Content(cp.Hex()))

	override := overrideDocument{IngredientID: ingID, User: user, Price: &price, Deleted: 0}.toOverride()
	assert.False(t, override.Deleted)
	assert.Equal(t, user.Hex(), override.UserID)
	merged := override.Apply(ing)
	assert.Equal(t, 7.0, merged.Price)
	assert.Equal(t, "Rice bran", merged.Name)
	assert.Equal(t, 12.0, merged.Content(cp.Hex()))

	deleted := overrideDocument{Deleted: 1}.toOverride()
	assert.True(t, deleted.Deleted)
}

func TestIngredientFilter(t *testing.T) {
	ingID := primitive.NewObjectID()
	user := primitive.NewObjectID()

	t.Run("owner or global", func(t *testing.T) {
		filter := ingredientFilter(ingID, user.Hex())
		assert.Equal(t, ingID, filter["_id"])
		assert.NotContains(t, filter, "source")
		assert.Equal(t, bson.A{
			bson.M{"source": "global"},
			bson.M{"user": user},
		}, filter["$or"])
	})

	t.Run("anonymous sees global only", func(t *testing.T) {
		for _, userID := range []string{"", "farm-7"} {
			filter := ingredientFilter(ingID, userID)
			assert.Equal(t, bson.M{"_id": ingID, "source": "global"}, filter, "user %q", userID)
		}
	})

	t.Run("other user's private document does not match", func(t *testing.T) {
		owner := primitive.NewObjectID()
		doc := bson.M{"_id": ingID, "source": "user", "user": owner}
		filter := ingredientFilter(ingID, user.Hex())
		alternatives := filter["$or"].(bson.A)
		for _, alt := range alternatives {
			for key, want := range alt.(bson.M) {
				assert.NotEqual(t, want, doc[key], "alternative %v matches a foreign document", alt)
			}
		}
		ownFilter := ingredientFilter(ingID, owner.Hex())
		assert.Contains(t, ownFilter["$or"], bson.M{"user": owner})
	})
}

func TestNewMongoRequiresConnectionSettings(t *testing.T) {
	_, _, err := NewMongo(context.Background(), nil, MongoConfig{})
	assert.Error(t, err)
	_, _, err = NewMongo(context.Background(), nil, MongoConfig{URI: "mongodb://localhost:27017"})
	assert.Error(t, err)
}
