package gallery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/bitmark-inc/client-gallery/log"
)

const (
	userCollectionName    = "users"
	galleryCollectionName = "galleries"
)

// toggleLikeRounds bounds how many times a like toggle is retried when the
// image state changes between the conditional updates.
const toggleLikeRounds = 3

var (
	ErrNotFound       = errors.New("gallery not found")
	ErrImageNotFound  = errors.New("image not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type Store interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)

	CreateGallery(ctx context.Context, gallery Gallery) (Gallery, error)
	GetGalleriesByOwner(ctx context.Context, owner primitive.ObjectID) ([]Gallery, error)
	GetGallery(ctx context.Context, id, owner primitive.ObjectID) (Gallery, error)

	PushImages(ctx context.Context, id, owner primitive.ObjectID, images []Image) (Gallery, error)
	UpdateImageDescription(ctx context.Context, id, owner, imageID primitive.ObjectID, description string) (Gallery, error)
	ToggleImageLike(ctx context.Context, id, owner, imageID primitive.ObjectID) (Gallery, error)
	SetCoverImage(ctx context.Context, id, owner primitive.ObjectID, coverImage *string) (Gallery, error)

	Ping(ctx context.Context) error
}

func NewMongodbStore(ctx context.Context, mongodbURI, dbName string) (*MongodbStore, error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongodbURI))
	if err != nil {
		return nil, err
	}

	db := mongoClient.Database(dbName)

	return &MongodbStore{
		dbName:            dbName,
		mongoClient:       mongoClient,
		userCollection:    db.Collection(userCollectionName),
		galleryCollection: db.Collection(galleryCollectionName),
	}, nil
}

type MongodbStore struct {
	dbName            string
	mongoClient       *mongo.Client
	userCollection    *mongo.Collection
	galleryCollection *mongo.Collection
}

// EnsureIndexes creates the unique email index and the owner listing index.
func (s *MongodbStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.userCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create user email index: %w", err)
	}

	if _, err := s.galleryCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("create gallery owner index: %w", err)
	}

	return nil
}

func (s *MongodbStore) Ping(ctx context.Context) error {
	return s.mongoClient.Ping(ctx, readpref.Primary())
}

func (s *MongodbStore) Close(ctx context.Context) error {
	return s.mongoClient.Disconnect(ctx)
}

// CreateUser inserts a user. A duplicated email is reported as ErrDuplicateEmail.
func (s *MongodbStore) CreateUser(ctx context.Context, user User) (User, error) {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	if _, err := s.userCollection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, err
	}

	return user, nil
}

func (s *MongodbStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User

	if err := s.userCollection.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return user, nil
}

func (s *MongodbStore) CreateGallery(ctx context.Context, gallery Gallery) (Gallery, error) {
	if gallery.ID.IsZero() {
		gallery.ID = primitive.NewObjectID()
	}
	if gallery.Images == nil {
		gallery.Images = []Image{}
	}

	if _, err := s.galleryCollection.InsertOne(ctx, gallery); err != nil {
		return Gallery{}, err
	}

	log.Debug("gallery created", log.SourceMongo,
		zap.String("galleryID", gallery.ID.Hex()), zap.Int("images", len(gallery.Images)))

	return gallery, nil
}

// GetGalleriesByOwner returns the galleries of an owner, newest first
func (s *MongodbStore) GetGalleriesByOwner(ctx context.Context, owner primitive.ObjectID) ([]Gallery, error) {
	cursor, err := s.galleryCollection.Find(ctx,
		bson.M{"userId": owner},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}

	galleries := []Gallery{}
	if err := cursor.All(ctx, &galleries); err != nil {
		return nil, err
	}

	return galleries, nil
}

func (s *MongodbStore) GetGallery(ctx context.Context, id, owner primitive.ObjectID) (Gallery, error) {
	var gallery Gallery

	if err := s.galleryCollection.FindOne(ctx, ownedGallery(id, owner)).Decode(&gallery); err != nil {
		if err == mongo.ErrNoDocuments {
			return Gallery{}, ErrNotFound
		}
		return Gallery{}, err
	}

	return gallery, nil
}

// PushImages appends images to an owned gallery. If the gallery has no cover
// the first pushed image becomes the cover.
func (s *MongodbStore) PushImages(ctx context.Context, id, owner primitive.ObjectID, images []Image) (Gallery, error) {
	if len(images) == 0 {
		return s.GetGallery(ctx, id, owner)
	}

	return s.findOneAndUpdate(ctx, ownedGallery(id, owner), pushImagesPipeline(images, time.Now()))
}

// pushImagesPipeline appends images and fills an empty cover in a single
// document write. Values are wrapped in $literal so user text starting with
// "$" is never read as a field path.
func pushImagesPipeline(images []Image, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"images": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$images", bson.A{}}},
				bson.M{"$literal": images},
			}},
			"coverImage": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{bson.M{"$ifNull": bson.A{"$coverImage", ""}}, ""}},
				bson.M{"$literal": images[0].URL},
				"$coverImage",
			}},
			"updatedAt": now,
		}}},
	}
}

func (s *MongodbStore) UpdateImageDescription(ctx context.Context, id, owner, imageID primitive.ObjectID, description string) (Gallery, error) {
	filter := ownedGallery(id, owner)
	filter["images._id"] = imageID

	return s.findOneAndUpdate(ctx, filter, bson.M{
		"$set": bson.M{
			"images.$.description": description,
			"updatedAt":            time.Now(),
		},
	})
}

// likeTransition is a conditional update that moves one image between the
// liked and unliked states. The filter and the update are applied to the
// same document in one operation, so the counter and the flag cannot diverge.
type likeTransition struct {
	match  bson.M
	update func(now time.Time) bson.M
}

// filter selects the owned gallery only while the image is in the state the
// transition starts from.
func (t likeTransition) filter(id, owner, imageID primitive.ObjectID) bson.M {
	elemMatch := bson.M{"_id": imageID}
	for k, v := range t.match {
		elemMatch[k] = v
	}

	filter := ownedGallery(id, owner)
	filter["images"] = bson.M{"$elemMatch": elemMatch}
	return filter
}

var likeTransitions = []likeTransition{
	{
		match: bson.M{"isLiked": bson.M{"$ne": true}},
		update: func(now time.Time) bson.M {
			return bson.M{
				"$set": bson.M{"images.$.isLiked": true, "updatedAt": now},
				"$inc": bson.M{"images.$.likes": 1},
			}
		},
	},
	{
		match: bson.M{"isLiked": true, "likes": bson.M{"$gt": 0}},
		update: func(now time.Time) bson.M {
			return bson.M{
				"$set": bson.M{"images.$.isLiked": false, "updatedAt": now},
				"$inc": bson.M{"images.$.likes": -1},
			}
		},
	},
	{
		match: bson.M{"isLiked": true, "likes": bson.M{"$not": bson.M{"$gt": 0}}},
		update: func(now time.Time) bson.M {
			return bson.M{
				"$set": bson.M{"images.$.isLiked": false, "images.$.likes": 0, "updatedAt": now},
			}
		},
	},
}

// ToggleImageLike flips the liked flag of an embedded image and moves its
// like counter by one in the same direction.
func (s *MongodbStore) ToggleImageLike(ctx context.Context, id, owner, imageID primitive.ObjectID) (Gallery, error) {
	for round := 0; round < toggleLikeRounds; round++ {
		for _, transition := range likeTransitions {
			gallery, err := s.findOneAndUpdate(ctx, transition.filter(id, owner, imageID), transition.update(time.Now()))
			if err == nil {
				return gallery, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return Gallery{}, err
			}
		}

		gallery, err := s.GetGallery(ctx, id, owner)
		if err != nil {
			return Gallery{}, err
		}
		if _, ok := gallery.FindImage(imageID); !ok {
			return Gallery{}, ErrImageNotFound
		}

		log.Warn("image like state changed during toggle, retrying", log.SourceMongo,
			zap.String("galleryID", id.Hex()), zap.String("imageID", imageID.Hex()), zap.Int("round", round))
	}

	return Gallery{}, fmt.Errorf("toggle like of image %s: state kept changing", imageID.Hex())
}

// SetCoverImage overwrites the cover. A nil cover clears it.
func (s *MongodbStore) SetCoverImage(ctx context.Context, id, owner primitive.ObjectID, coverImage *string) (Gallery, error) {
	return s.findOneAndUpdate(ctx, ownedGallery(id, owner), bson.M{
		"$set": bson.M{
			"coverImage": coverImage,
			"updatedAt":  time.Now(),
		},
	})
}

func (s *MongodbStore) findOneAndUpdate(ctx context.Context, filter bson.M, update any) (Gallery, error) {
	var gallery Gallery

	r := s.galleryCollection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	if err := r.Decode(&gallery); err != nil {
		if err == mongo.ErrNoDocuments {
			return Gallery{}, ErrNotFound
		}
		return Gallery{}, err
	}

	return gallery, nil
}

func ownedGallery(id, owner primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "userId": owner}
}
