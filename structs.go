package gallery

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered photographer
type User struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	Password  string             `json:"-" bson:"password"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// PublicUser is the part of a user returned to clients
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID.Hex(),
		Name:  u.Name,
		Email: u.Email,
	}
}

// Image is an uploaded picture embedded in a gallery
type Image struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	URL         string             `json:"url" bson:"url"`
	Description string             `json:"description" bson:"description"`
	Likes       int64              `json:"likes" bson:"likes"`
	IsLiked     bool               `json:"isLiked" bson:"isLiked"`
	UploadedAt  time.Time          `json:"uploadedAt" bson:"uploadedAt"`
}

func NewImage(url string, uploadedAt time.Time) Image {
	return Image{
		ID:         primitive.NewObjectID(),
		URL:        url,
		UploadedAt: uploadedAt,
	}
}

// ToggleLike flips the liked flag and moves the like counter with it.
// The counter never goes below zero.
func (i *Image) ToggleLike() {
	i.IsLiked = !i.IsLiked
	if i.IsLiked {
		i.Likes++
	} else if i.Likes > 0 {
		i.Likes--
	}
}

// Gallery is a named, dated collection of images owned by one user
type Gallery struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Title      string             `json:"title" bson:"title"`
	Date       time.Time          `json:"date" bson:"date"`
	UserID     primitive.ObjectID `json:"userId" bson:"userId"`
	CoverImage *string            `json:"coverImage" bson:"coverImage"`
	Images     []Image            `json:"images" bson:"images"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// NewGallery builds a gallery document and uses the first image as the cover.
func NewGallery(title string, date time.Time, owner primitive.ObjectID, images []Image, now time.Time) Gallery {
	g := Gallery{
		ID:        primitive.NewObjectID(),
		Title:     title,
		Date:      date,
		UserID:    owner,
		Images:    []Image{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	g.AddImages(images)
	return g
}

// AddImages appends images and sets the cover when the gallery has none.
func (g *Gallery) AddImages(images []Image) {
	g.Images = append(g.Images, images...)
	if !g.HasCover() && len(images) > 0 {
		cover := images[0].URL
		g.CoverImage = &cover
	}
}

func (g Gallery) HasCover() bool {
	return g.CoverImage != nil && *g.CoverImage != ""
}

// FindImage returns the embedded image with the given id.
func (g *Gallery) FindImage(id primitive.ObjectID) (*Image, bool) {
	for i := range g.Images {
		if g.Images[i].ID == id {
			return &g.Images[i], true
		}
	}
	return nil, false
}

// HasImageURL reports whether url belongs to one of the gallery images.
func (g Gallery) HasImageURL(url string) bool {
	for _, image := range g.Images {
		if image.URL == url {
			return true
		}
	}
	return false
}

// ParseDate parses a gallery date in any of DateLayouts.
func ParseDate(value string) (time.Time, error) {
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}
