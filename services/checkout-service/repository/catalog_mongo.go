package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dachishengelia/restyle-backend/services/checkout-service/models"
)

// MongoCatalogRepository reads products from the marketplace's MongoDB catalog and joins the
// seller's user document to obtain their e-mail.
type MongoCatalogRepository struct {
	products *mongo.Collection
}

func NewMongoCatalogRepository(db *mongo.Database) *MongoCatalogRepository {
	return &MongoCatalogRepository{products: db.Collection("products")}
}

func (r *MongoCatalogRepository) FindProductByName(ctx context.Context, name string) (*models.Product, error) {
	cursor, err := r.products.Aggregate(ctx, productByNamePipeline(name))
	if err != nil {
		return nil, fmt.Errorf("catalog aggregate failed: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, fmt.Errorf("catalog cursor failed: %w", err)
		}
		return nil, ErrProductNotFound
	}

	var product models.Product
	if err := cursor.Decode(&product); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	return &product, nil
}

// All streams every product with its seller e-mail to fn. Used by the catalog migration tool.
func (r *MongoCatalogRepository) All(ctx context.Context, fn func(*models.Product) error) error {
	cursor, err := r.products.Aggregate(ctx, withSeller(mongo.Pipeline{}))
	if err != nil {
		return fmt.Errorf("catalog aggregate failed: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var product models.Product
		if err := cursor.Decode(&product); err != nil {
			return fmt.Errorf("decode product: %w", err)
		}
		if err := fn(&product); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func productByNamePipeline(name string) mongo.Pipeline {
	return withSeller(mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"name": name}}},
		{{Key: "$limit", Value: 1}},
	})
}

// withSeller appends the users join and flattens ids to hex strings.
func withSeller(stages mongo.Pipeline) mongo.Pipeline {
	return append(stages,
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "sellerId",
			"foreignField": "_id",
			"as":           "seller",
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"_id":         bson.M{"$toString": "$_id"},
			"name":        1,
			"price":       1,
			"sellerId":    bson.M{"$toString": "$sellerId"},
			"sellerEmail": bson.M{"$arrayElemAt": bson.A{"$seller.email", 0}},
		}}},
	)
}
