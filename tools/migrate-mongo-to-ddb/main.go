package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	aws_pkg "github.com/dachishengelia/restyle-backend/pkg/aws"
	ddb "github.com/dachishengelia/restyle-backend/pkg/dynamodb"
	"github.com/dachishengelia/restyle-backend/services/common/logger"

	"github.com/dachishengelia/restyle-backend/services/checkout-service/database"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/models"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/repository"
)

type productSource interface {
	All(ctx context.Context, fn func(*models.Product) error) error
}

type productSink interface {
	Put(ctx context.Context, product *models.Product) error
}

type result struct {
	migrated int
	skipped  int
	failed   int
}

// migrate copies every catalog product into sink. Products without an id or name are skipped and
// write failures are counted, so one bad document does not stop the run.
func migrate(ctx context.Context, src productSource, sink productSink, zl *zap.Logger) (result, error) {
	var res result
	err := src.All(ctx, func(p *models.Product) error {
		if p.ID == "" || p.Name == "" {
			zl.Warn("skipping product without id or name", zap.String("product_id", p.ID))
			res.skipped++
			return nil
		}
		if err := sink.Put(ctx, p); err != nil {
			zl.Error("failed to write product", zap.String("product_id", p.ID), zap.Error(err))
			res.failed++
			return nil
		}
		res.migrated++
		if res.migrated%100 == 0 {
			zl.Info("migrated products", zap.Int("count", res.migrated))
		}
		return nil
	})
	return res, err
}

func main() {
	var mongoURI, dbName, table string
	flag.StringVar(&mongoURI, "mongo", os.Getenv("MONGO_DB_URL"), "MongoDB URI")
	flag.StringVar(&dbName, "db", os.Getenv("MONGO_DB_NAME"), "MongoDB database name")
	flag.StringVar(&table, "table", os.Getenv("DDB_TABLE_PRODUCTS"), "DynamoDB table name")
	flag.Parse()

	if mongoURI == "" || dbName == "" {
		log.Fatal("MONGO_DB_URL and MONGO_DB_NAME must be set or provided via flags")
	}
	if table == "" {
		table = "Products"
	}

	logger.Initialize(os.Getenv("APP_ENV"))
	zl := logger.Log
	defer zl.Sync() //nolint:errcheck

	ctx := context.Background()

	mclient, mdb, err := database.ConnectMongo(ctx, mongoURI, dbName)
	if err != nil {
		zl.Fatal("mongo connect", zap.Error(err))
	}
	defer database.DisconnectMongo(mclient) //nolint:errcheck

	awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
	if err != nil {
		zl.Fatal("aws config", zap.Error(err))
	}
	ddbClient := ddb.NewClientFromConfig(awsCfg)

	created, err := ddb.EnsureProductsTable(ctx, ddbClient, table)
	if err != nil {
		zl.Fatal("ensure products table", zap.Error(err))
	}
	if created {
		zl.Info("created products table", zap.String("table", table))
	}

	res, err := migrate(ctx,
		repository.NewMongoCatalogRepository(mdb),
		repository.NewDynamoCatalogRepository(ddbClient, table),
		zl,
	)
	if err != nil {
		zl.Fatal("catalog scan failed", zap.Error(err), zap.Int("migrated", res.migrated))
	}
	fmt.Printf("Migration complete. migrated=%d skipped=%d failed=%d\n", res.migrated, res.skipped, res.failed)
}
