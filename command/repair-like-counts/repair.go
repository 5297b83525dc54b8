package main

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	gallery "github.com/bitmark-inc/client-gallery"
)

func checkBatchSize(n int) error {
	if n < 1 {
		return fmt.Errorf("batch must be at least 1, got %d", n)
	}
	return nil
}

// repairImage returns the like counter an image should have. Negative counters
// become zero and a liked image counts at least its own like. With exact, the
// counter is reset to the flag, which holds for galleries liked only by their owner.
func repairImage(image gallery.Image, exact bool) (int64, bool) {
	likes := image.Likes

	switch {
	case exact && image.IsLiked:
		likes = 1
	case exact:
		likes = 0
	case likes < 0:
		likes = 0
	}

	if image.IsLiked && likes < 1 {
		likes = 1
	}

	return likes, likes != image.Likes
}

type imageRepair struct {
	galleryID primitive.ObjectID
	imageID   primitive.ObjectID
	from, to  int64
}

func findRepairs(g gallery.Gallery, exact bool) []imageRepair {
	var repairs []imageRepair
	for _, image := range g.Images {
		if likes, changed := repairImage(image, exact); changed {
			repairs = append(repairs, imageRepair{
				galleryID: g.ID,
				imageID:   image.ID,
				from:      image.Likes,
				to:        likes,
			})
		}
	}
	return repairs
}

// writeModel updates one embedded image only if its counter is still the one that was read
func (r imageRepair) writeModel() mongo.WriteModel {
	return mongo.NewUpdateOneModel().
		SetFilter(bson.M{
			"_id":    r.galleryID,
			"images": bson.M{"$elemMatch": bson.M{"_id": r.imageID, "likes": r.from}},
		}).
		SetUpdate(bson.M{
			"$set": bson.M{"images.$.likes": r.to},
		})
}
