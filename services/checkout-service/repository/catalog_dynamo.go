package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/dachishengelia/restyle-backend/services/checkout-service/models"
)

// DynamoAPI is the subset of the DynamoDB client the catalog needs.
type DynamoAPI interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoCatalogRepository reads products from the DynamoDB products table.
type DynamoCatalogRepository struct {
	client DynamoAPI
	table  string
}

func NewDynamoCatalogRepository(client DynamoAPI, table string) *DynamoCatalogRepository {
	return &DynamoCatalogRepository{client: client, table: table}
}

type ddbProduct struct {
	ProductID   string  `dynamodbav:"product_id"`
	Name        string  `dynamodbav:"name"`
	Price       float64 `dynamodbav:"price"`
	SellerID    string  `dynamodbav:"seller_id,omitempty"`
	SellerEmail string  `dynamodbav:"seller_email,omitempty"`
	DeletedAt   *string `dynamodbav:"deleted_at,omitempty"`
}

func (p *ddbProduct) toModel() *models.Product {
	return &models.Product{
		ID:          p.ProductID,
		Name:        p.Name,
		Price:       p.Price,
		SellerID:    p.SellerID,
		SellerEmail: p.SellerEmail,
	}
}

// FindProductByName scans for the first live product with the exact name.
// TODO: switch to a Query once the products table has a name GSI.
func (d *DynamoCatalogRepository) FindProductByName(ctx context.Context, name string) (*models.Product, error) {
	filterExpr := "attribute_not_exists(deleted_at) AND #n = :name"
	exprVals, err := attributevalue.MarshalMap(map[string]string{":name": name})
	if err != nil {
		return nil, fmt.Errorf("marshal filter: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{
		TableName:                 &d.table,
		FilterExpression:          &filterExpr,
		ExpressionAttributeNames:  map[string]string{"#n": "name"},
		ExpressionAttributeValues: exprVals,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if len(page.Items) == 0 {
			continue
		}
		var p ddbProduct
		if err := attributevalue.UnmarshalMap(page.Items[0], &p); err != nil {
			return nil, fmt.Errorf("unmarshal item: %w", err)
		}
		return p.toModel(), nil
	}
	return nil, ErrProductNotFound
}

// Put writes product, replacing any item with the same id.
func (d *DynamoCatalogRepository) Put(ctx context.Context, product *models.Product) error {
	item, err := attributevalue.MarshalMap(ddbProduct{
		ProductID:   product.ID,
		Name:        product.Name,
		Price:       product.Price,
		SellerID:    product.SellerID,
		SellerEmail: product.SellerEmail,
	})
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: &d.table, Item: item}); err != nil {
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}
