package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/iliyamo/blog-backend/internal/model"
)

// PostRepo encapsulates all database queries related to posts.
type PostRepo struct{ db *gorm.DB }

func NewPostRepo(db *gorm.DB) *PostRepo { return &PostRepo{db: db} }

// PostUpdate carries the mutable columns of a post.  Every field is written,
// including a false Published.
type PostUpdate struct {
	Title     string
	Content   string
	Published bool
}

// ListPublished returns every published post, oldest first.
func (r *PostRepo) ListPublished(ctx context.Context) ([]model.Post, error) {
	posts := []model.Post{}
	err := r.db.WithContext(ctx).Where("published = ?", true).Order("id").Find(&posts).Error
	return posts, err
}

// ListByAuthor returns all posts written by authorID, published or not.
func (r *PostRepo) ListByAuthor(ctx context.Context, authorID uint64) ([]model.Post, error) {
	posts := []model.Post{}
	err := r.db.WithContext(ctx).Where("author_id = ?", authorID).Order("id").Find(&posts).Error
	return posts, err
}

// Create inserts p and fills its ID and timestamps.
func (r *PostRepo) Create(ctx context.Context, p *model.Post) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// GetWithAuthor fetches a post together with its author.
func (r *PostRepo) GetWithAuthor(ctx context.Context, id uint64) (*model.Post, error) {
	var p model.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Update overwrites title, content and published on the post with the given
// id.  The author is not part of the filter.
func (r *PostRepo) Update(ctx context.Context, id uint64, upd PostUpdate) error {
	res := r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Updates(map[string]any{
		"title":     upd.Title,
		"content":   upd.Content,
		"published": upd.Published,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

// DeleteByIDAndAuthor removes the post only when it belongs to authorID and
// returns the number of rows deleted.  Zero rows is not an error.
func (r *PostRepo) DeleteByIDAndAuthor(ctx context.Context, id, authorID uint64) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND author_id = ?", id, authorID).Delete(&model.Post{})
	return res.RowsAffected, res.Error
}
