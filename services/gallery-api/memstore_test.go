package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	gallery "github.com/bitmark-inc/client-gallery"
)

// memoryStore is an in-memory gallery.Store
type memoryStore struct {
	sync.Mutex

	users     map[string]gallery.User
	galleries map[primitive.ObjectID]*gallery.Gallery
	pingErr   error
	failWrite error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:     map[string]gallery.User{},
		galleries: map[primitive.ObjectID]*gallery.Gallery{},
	}
}

func cloneGallery(g *gallery.Gallery) gallery.Gallery {
	c := *g
	c.Images = append([]gallery.Image{}, g.Images...)
	if g.CoverImage != nil {
		cover := *g.CoverImage
		c.CoverImage = &cover
	}
	return c
}

func (m *memoryStore) CreateUser(_ context.Context, user gallery.User) (gallery.User, error) {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.users[user.Email]; ok {
		return gallery.User{}, gallery.ErrDuplicateEmail
	}
	user.ID = primitive.NewObjectID()
	m.users[user.Email] = user
	return user, nil
}

func (m *memoryStore) GetUserByEmail(_ context.Context, email string) (gallery.User, error) {
	m.Lock()
	defer m.Unlock()

	user, ok := m.users[email]
	if !ok {
		return gallery.User{}, gallery.ErrUserNotFound
	}
	return user, nil
}

func (m *memoryStore) CreateGallery(_ context.Context, g gallery.Gallery) (gallery.Gallery, error) {
	m.Lock()
	defer m.Unlock()

	if m.failWrite != nil {
		return gallery.Gallery{}, m.failWrite
	}
	m.galleries[g.ID] = &g
	return cloneGallery(&g), nil
}

func (m *memoryStore) GetGalleriesByOwner(_ context.Context, owner primitive.ObjectID) ([]gallery.Gallery, error) {
	m.Lock()
	defer m.Unlock()

	galleries := []gallery.Gallery{}
	for _, g := range m.galleries {
		if g.UserID == owner {
			galleries = append(galleries, cloneGallery(g))
		}
	}
	sort.Slice(galleries, func(i, j int) bool {
		return galleries[i].CreatedAt.After(galleries[j].CreatedAt)
	})
	return galleries, nil
}

func (m *memoryStore) owned(id, owner primitive.ObjectID) (*gallery.Gallery, error) {
	g, ok := m.galleries[id]
	if !ok || g.UserID != owner {
		return nil, gallery.ErrNotFound
	}
	return g, nil
}

func (m *memoryStore) GetGallery(_ context.Context, id, owner primitive.ObjectID) (gallery.Gallery, error) {
	m.Lock()
	defer m.Unlock()

	g, err := m.owned(id, owner)
	if err != nil {
		return gallery.Gallery{}, err
	}
	return cloneGallery(g), nil
}

func (m *memoryStore) PushImages(_ context.Context, id, owner primitive.ObjectID, images []gallery.Image) (gallery.Gallery, error) {
	m.Lock()
	defer m.Unlock()

	if m.failWrite != nil {
		return gallery.Gallery{}, m.failWrite
	}
	g, err := m.owned(id, owner)
	if err != nil {
		return gallery.Gallery{}, err
	}
	g.AddImages(images)
	g.UpdatedAt = time.Now()
	return cloneGallery(g), nil
}

func (m *memoryStore) UpdateImageDescription(_ context.Context, id, owner, imageID primitive.ObjectID, description string) (gallery.Gallery, error) {
	m.Lock()
	defer m.Unlock()

	g, err := m.owned(id, owner)
	if err != nil {
		return gallery.Gallery{}, err
	}
	image, ok := g.FindImage(imageID)
	if !ok {
		return gallery.Gallery{}, gallery.ErrNotFound
	}
	image.Description = description
	g.UpdatedAt = time.Now()
	return cloneGallery(g), nil
}

func (m *memoryStore) ToggleImageLike(_ context.Context, id, owner, imageID primitive.ObjectID) (gallery.Gallery, error) {
	m.Lock()
	defer m.Unlock()

	g, err := m.owned(id, owner)
	if err != nil {
		return gallery.Gallery{}, err
	}
	image, ok := g.FindImage(imageID)
	if !ok {
		return gallery.Gallery{}, gallery.ErrImageNotFound
	}
	image.ToggleLike()
	g.UpdatedAt = time.Now()
	return cloneGallery(g), nil
}

func (m *memoryStore) SetCoverImage(_ context.Context, id, owner primitive.ObjectID, coverImage *string) (gallery.Gallery, error) {
	m.Lock()
	defer m.Unlock()

	g, err := m.owned(id, owner)
	if err != nil {
		return gallery.Gallery{}, err
	}
	g.CoverImage = coverImage
	g.UpdatedAt = time.Now()
	return cloneGallery(g), nil
}

func (m *memoryStore) Ping(context.Context) error {
	return m.pingErr
}
