package main

import (
	"context"
	"flag"
	"time"

	"github.com/meirf/gopart"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	gallery "github.com/bitmark-inc/client-gallery"
	"github.com/bitmark-inc/client-gallery/log"
)

func main() {
	dbURI := flag.String("mongouri", "mongodb://localhost:27017", "mongodb uri")
	dbName := flag.String("db", "client-gallery", "database name")
	batchSize := flag.Int("batch", 500, "number of updates per bulk write")
	dryRun := flag.Bool("dry-run", false, "only report the images that would be repaired")
	exact := flag.Bool("exact", false, "reset every counter to match its liked flag")
	flag.Parse()

	if err := log.Initialize("info", true); err != nil {
		panic(err)
	}

	if err := checkBatchSize(*batchSize); err != nil {
		log.Fatal("invalid flags", zap.Error(err))
	}

	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*dbURI))
	if err != nil {
		log.Panic("fail to connect mongodb", zap.Error(err))
	}
	defer client.Disconnect(ctx)

	collection := client.Database(*dbName).Collection("galleries")

	cursor, err := collection.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 1, "images": 1}))
	if err != nil {
		log.Panic("fail to query galleries", zap.Error(err))
	}
	defer cursor.Close(ctx)

	startTime := time.Now()

	var scanned int
	var models []mongo.WriteModel
	for cursor.Next(ctx) {
		var g gallery.Gallery
		if err := cursor.Decode(&g); err != nil {
			log.Warn("skip undecodable gallery", log.SourceMongo, zap.Error(err))
			continue
		}
		scanned++

		for _, r := range findRepairs(g, *exact) {
			log.Info("image like counter drifted", log.SourceMongo,
				zap.String("galleryID", r.galleryID.Hex()),
				zap.String("imageID", r.imageID.Hex()),
				zap.Int64("likes", r.from),
				zap.Int64("repaired", r.to))
			models = append(models, r.writeModel())
		}
	}
	if err := cursor.Err(); err != nil {
		log.Panic("fail to scan galleries", zap.Error(err))
	}

	if *dryRun || len(models) == 0 {
		log.Info("scan finished", zap.Int("galleries", scanned), zap.Int("repairs", len(models)), zap.Bool("dryRun", *dryRun))
		return
	}

	var modified int64
	for idxRange := range gopart.Partition(len(models), *batchSize) {
		result, err := collection.BulkWrite(ctx, models[idxRange.Low:idxRange.High], options.BulkWrite().SetOrdered(false))
		if err != nil {
			log.Panic("fail to write repairs", zap.Error(err))
		}
		modified += result.ModifiedCount
	}

	log.Info("like counters repaired",
		zap.Int("galleries", scanned),
		zap.Int64("modified", modified),
		zap.Duration("duration", time.Since(startTime)))
}
