package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/lokmanch/lokmanch/internal/domain"
)

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Create(ctx context.Context, p domain.Post) error {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return fmt.Errorf("gorm posts: create: %w", err)
	}
	return nil
}

func (r *PostRepository) FindByID(ctx context.Context, id domain.PostID) (domain.Post, error) {
	var p domain.Post
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		if isNotFound(err) {
			return domain.Post{}, domain.ErrNotFound
		}
		return domain.Post{}, fmt.Errorf("gorm posts: find: %w", err)
	}
	return p, nil
}

// Delete removes the post and its entire discussion: reactions first, then
// comments, then the post row. Done explicitly because the sqlite test
// backend does not enforce the cascade constraints.
func (r *PostRepository) Delete(ctx context.Context, id domain.PostID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var commentIDs []domain.CommentID
		if err := tx.Model(&domain.Comment{}).
			Where("post_id = ?", id).
			Pluck("id", &commentIDs).Error; err != nil {
			return fmt.Errorf("gorm posts: list comments: %w", err)
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("comment_id IN ?", commentIDs).
				Delete(&domain.CommentReaction{}).Error; err != nil {
				return fmt.Errorf("gorm posts: delete reactions: %w", err)
			}
			if err := tx.Where("post_id = ?", id).
				Delete(&domain.Comment{}).Error; err != nil {
				return fmt.Errorf("gorm posts: delete comments: %w", err)
			}
		}

		res := tx.Where("id = ?", id).Delete(&domain.Post{})
		if res.Error != nil {
			return fmt.Errorf("gorm posts: delete: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *PostRepository) AddViews(ctx context.Context, id domain.PostID, delta int64) error {
	if delta == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&domain.Post{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", delta)).Error
	if err != nil {
		return fmt.Errorf("gorm posts: add views: %w", err)
	}
	return nil
}

var _ domain.PostRepository = (*PostRepository)(nil)
