package catalogue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sapat/feed-optimizer/pkg/constants"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// MongoConfig locates the ingredient collections.
type MongoConfig struct {
	URI            string        `yaml:"uri" mapstructure:"uri"`
	Database       string        `yaml:"database" mapstructure:"database"`
	Ingredients    string        `yaml:"ingredients" mapstructure:"ingredients"`
	Overrides      string        `yaml:"overrides" mapstructure:"overrides"`
	ConnectTimeout time.Duration `yaml:"connectTimeout" mapstructure:"connectTimeout"`
}

type nutrientValue struct {
	Nutrient primitive.ObjectID `bson:"nutrient"`
	Value    float64            `bson:"value"`
}

type ingredientDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Price     float64            `bson:"price"`
	Nutrients []nutrientValue    `bson:"nutrients"`
	Source    string             `bson:"source"`
	User      primitive.ObjectID `bson:"user,omitempty"`
}

// sourceGlobal marks ingredients shared by every user; all others belong to
// the user that created them.
const sourceGlobal = "global"

// ingredientFilter matches ingredientID when it is global or owned by userID.
// A userID that is not an ObjectID only sees global ingredients.
func ingredientFilter(ingredientID primitive.ObjectID, userID string) bson.M {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return bson.M{"_id": ingredientID, "source": sourceGlobal}
	}
	return bson.M{
		"_id": ingredientID,
		"$or": bson.A{
			bson.M{"source": sourceGlobal},
			bson.M{"user": uid},
		},
	}
}

type overrideDocument struct {
	IngredientID primitive.ObjectID `bson:"ingredient_id"`
	User         primitive.ObjectID `bson:"user"`
	Name         string             `bson:"name,omitempty"`
	Price        *float64           `bson:"price,omitempty"`
	Nutrients    []nutrientValue    `bson:"nutrients,omitempty"`
	Deleted      int                `bson:"deleted"`
}

func nutrientMap(values []nutrientValue) map[string]float64 {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]float64, len(values))
	for _, nv := range values {
		out[nv.Nutrient.Hex()] = nv.Value
	}
	return out
}

func (d ingredientDocument) toIngredient() Ingredient {
	return Ingredient{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Price:     d.Price,
		Nutrients: nutrientMap(d.Nutrients),
	}
}

func (d overrideDocument) toOverride() Override {
	return Override{
		UserID:       d.User.Hex(),
		IngredientID: d.IngredientID.Hex(),
		Name:         d.Name,
		Price:        d.Price,
		Nutrients:    nutrientMap(d.Nutrients),
		Deleted:      d.Deleted == 1,
	}
}

// Mongo reads ingredients and per-user overrides from MongoDB.
type Mongo struct {
	logger      *zap.Logger
	ingredients *mongo.Collection
	overrides   *mongo.Collection
}

// NewMongo connects to MongoDB and verifies the primary is reachable. The
// returned cleanup function disconnects the client.
func NewMongo(ctx context.Context, logger *zap.Logger, conf MongoConfig) (*Mongo, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if conf.URI == "" {
		return nil, nil, errors.New("mongo catalogue requires a uri")
	}
	if conf.Database == "" {
		return nil, nil, errors.New("mongo catalogue requires a database")
	}
	if conf.Ingredients == "" {
		conf.Ingredients = constants.DefaultIngredientCollection
	}
	if conf.Overrides == "" {
		conf.Overrides = constants.DefaultOverrideCollection
	}
	if conf.ConnectTimeout <= 0 {
		conf.ConnectTimeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, conf.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(conf.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.Info("mongo catalogue connected",
		zap.String("op", "catalogue.NewMongo"),
		zap.String("database", conf.Database),
		zap.String("ingredients", conf.Ingredients),
		zap.String("overrides", conf.Overrides),
	)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			logger.Error("failed to disconnect from mongodb",
				zap.String("op", "catalogue.Mongo.cleanup"),
				zap.Error(err),
			)
		}
	}

	db := client.Database(conf.Database)
	return &Mongo{
		logger:      logger,
		ingredients: db.Collection(conf.Ingredients),
		overrides:   db.Collection(conf.Overrides),
	}, cleanup, nil
}

// Ingredient implements Catalogue.
func (m *Mongo) Ingredient(ctx context.Context, userID, ingredientID string) (Ingredient, error) {
	oid, err := primitive.ObjectIDFromHex(ingredientID)
	if err != nil {
		return Ingredient{}, fmt.Errorf("%w: %s", ErrNotFound, ingredientID)
	}

	var override *Override
	if uid, uidErr := primitive.ObjectIDFromHex(userID); uidErr == nil {
		var doc overrideDocument
		err := m.overrides.FindOne(ctx, bson.M{"ingredient_id": oid, "user": uid}).Decode(&doc)
		switch {
		case err == nil:
			o := doc.toOverride()
			if o.Deleted {
				return Ingredient{}, fmt.Errorf("%w: %s", ErrNotFound, ingredientID)
			}
			override = &o
		case !errors.Is(err, mongo.ErrNoDocuments):
			return Ingredient{}, fmt.Errorf("failed to load override for %s: %w", ingredientID, err)
		}
	}

	var doc ingredientDocument
	err = m.ingredients.FindOne(ctx, ingredientFilter(oid, userID)).Decode(&doc)
	switch {
	case err == nil:
	case errors.Is(err, mongo.ErrNoDocuments):
		if override == nil {
			return Ingredient{}, fmt.Errorf("%w: %s", ErrNotFound, ingredientID)
		}
		doc = ingredientDocument{ID: oid}
	default:
		return Ingredient{}, fmt.Errorf("failed to load ingredient %s: %w", ingredientID, err)
	}

	ing := doc.toIngredient()
	if override != nil {
		ing = override.Apply(ing)
	}
	m.logger.Debug("ingredient loaded",
		zap.String("op", "catalogue.Mongo.Ingredient"),
		zap.String("ingredient", ingredientID),
		zap.Bool("override", override != nil),
	)
	return ing, nil
}
