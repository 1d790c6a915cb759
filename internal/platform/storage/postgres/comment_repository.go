package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/lokmanch/lokmanch/internal/domain"
)

// CommentRepository stores the discussion tree as an adjacency list and keeps
// the denormalized counters on comments and posts in step with it.
type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// CreateTopLevel inserts a root comment and bumps the post's comment_count.
// Replies never touch that counter, see CreateReply.
func (r *CommentRepository) CreateTopLevel(ctx context.Context, c domain.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&c).Error; err != nil {
			return fmt.Errorf("gorm comments: create: %w", err)
		}
		res := tx.Model(&domain.Post{}).
			Where("id = ?", c.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1"))
		if res.Error != nil {
			return fmt.Errorf("gorm comments: bump comment_count: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// CreateReply inserts a child comment and bumps the parent's reply_count.
func (r *CommentRepository) CreateReply(ctx context.Context, c domain.Comment) error {
	if c.ParentID == nil {
		return fmt.Errorf("gorm comments: reply without parent")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&c).Error; err != nil {
			return fmt.Errorf("gorm comments: create reply: %w", err)
		}
		res := tx.Model(&domain.Comment{}).
			Where("id = ?", *c.ParentID).
			UpdateColumn("reply_count", gorm.Expr("reply_count + 1"))
		if res.Error != nil {
			return fmt.Errorf("gorm comments: bump reply_count: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *CommentRepository) FindByID(ctx context.Context, id domain.CommentID) (domain.Comment, error) {
	var c domain.Comment
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if isNotFound(err) {
			return domain.Comment{}, domain.ErrNotFound
		}
		return domain.Comment{}, fmt.Errorf("gorm comments: find: %w", err)
	}
	return c, nil
}

func (r *CommentRepository) ListReplies(ctx context.Context, parentID domain.CommentID, offset, limit int) ([]domain.Comment, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&domain.Comment{}).
		Where("parent_id = ?", parentID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("gorm comments: count replies: %w", err)
	}

	replies := []domain.Comment{}
	if err := db.Where("parent_id = ?", parentID).
		Order("created_at ASC, id ASC").
		Offset(offset).Limit(limit).
		Find(&replies).Error; err != nil {
		return nil, 0, fmt.Errorf("gorm comments: list replies: %w", err)
	}
	return replies, total, nil
}

// DeleteTree removes the root comment and every descendant, along with their
// reactions, in one transaction. Descendants are collected level by level
// with an explicit worklist; a deep thread must not recurse. Returns the
// number of comments removed.
func (r *CommentRepository) DeleteTree(ctx context.Context, root domain.Comment) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := []domain.CommentID{root.ID}
		frontier := []domain.CommentID{root.ID}
		for len(frontier) > 0 {
			var next []domain.CommentID
			if err := tx.Model(&domain.Comment{}).
				Where("parent_id IN ?", frontier).
				Pluck("id", &next).Error; err != nil {
				return fmt.Errorf("gorm comments: collect children: %w", err)
			}
			all = append(all, next...)
			frontier = next
		}

		if err := tx.Where("comment_id IN ?", all).
			Delete(&domain.CommentReaction{}).Error; err != nil {
			return fmt.Errorf("gorm comments: delete reactions: %w", err)
		}

		res := tx.Where("id IN ?", all).Delete(&domain.Comment{})
		if res.Error != nil {
			return fmt.Errorf("gorm comments: delete tree: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		removed = res.RowsAffected

		// Every removed comment subtracts from the post's counter, replies
		// included, even though replies never added to it. The asymmetry
		// carries over from the create side and is kept on purpose.
		// CASE WHEN floors the counter at zero on both backends.
		err := tx.Model(&domain.Post{}).
			Where("id = ?", root.PostID).
			UpdateColumn("comment_count", gorm.Expr(
				"CASE WHEN comment_count > ? THEN comment_count - ? ELSE 0 END",
				removed, removed)).Error
		if err != nil {
			return fmt.Errorf("gorm comments: drop comment_count: %w", err)
		}

		if root.IsReply() {
			err := tx.Model(&domain.Comment{}).
				Where("id = ?", *root.ParentID).
				UpdateColumn("reply_count", gorm.Expr(
					"CASE WHEN reply_count > 0 THEN reply_count - 1 ELSE 0 END")).Error
			if err != nil {
				return fmt.Errorf("gorm comments: drop reply_count: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// React records one user's reaction. A repeat of the same kind is a conflict;
// the opposite kind switches sides. Counters are rewritten from the ledger in
// the same transaction so they can never drift past a single request.
func (r *CommentRepository) React(ctx context.Context, commentID domain.CommentID, userID domain.UserID, kind domain.ReactionKind) (domain.ReactionCounts, error) {
	var counts domain.ReactionCounts
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&domain.Comment{}, "id = ?", commentID).Error; err != nil {
			if isNotFound(err) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("gorm comments: find: %w", err)
		}

		var existing domain.CommentReaction
		err := tx.First(&existing, "comment_id = ? AND user_id = ?", commentID, userID).Error
		switch {
		case err == nil && existing.Kind == kind:
			return domain.ErrConflict
		case err == nil:
			if err := tx.Model(&domain.CommentReaction{}).
				Where("comment_id = ? AND user_id = ?", commentID, userID).
				UpdateColumn("kind", kind).Error; err != nil {
				return fmt.Errorf("gorm comments: switch reaction: %w", err)
			}
		case isNotFound(err):
			reaction := domain.CommentReaction{
				CommentID: commentID,
				UserID:    userID,
				Kind:      kind,
			}
			if err := insertReaction(tx, reaction); err != nil {
				return err
			}
		default:
			return fmt.Errorf("gorm comments: read reaction: %w", err)
		}

		var err2 error
		counts, err2 = syncReactionCounts(tx, commentID)
		return err2
	})
	if err != nil {
		return domain.ReactionCounts{}, err
	}
	return counts, nil
}

// Unreact removes the user's reaction of the given kind if present. Removing
// a reaction that does not exist is a no-op, not an error.
func (r *CommentRepository) Unreact(ctx context.Context, commentID domain.CommentID, userID domain.UserID, kind domain.ReactionKind) (domain.ReactionCounts, error) {
	var counts domain.ReactionCounts
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&domain.Comment{}, "id = ?", commentID).Error; err != nil {
			if isNotFound(err) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("gorm comments: find: %w", err)
		}

		if err := tx.Where("comment_id = ? AND user_id = ? AND kind = ?", commentID, userID, kind).
			Delete(&domain.CommentReaction{}).Error; err != nil {
			return fmt.Errorf("gorm comments: delete reaction: %w", err)
		}

		var err error
		counts, err = syncReactionCounts(tx, commentID)
		return err
	})
	if err != nil {
		return domain.ReactionCounts{}, err
	}
	return counts, nil
}

func (r *CommentRepository) Reactions(ctx context.Context, commentID domain.CommentID) (likes, dislikes []domain.UserID, err error) {
	db := r.db.WithContext(ctx)
	likes = []domain.UserID{}
	dislikes = []domain.UserID{}

	if err := db.Model(&domain.CommentReaction{}).
		Where("comment_id = ? AND kind = ?", commentID, domain.ReactionLike).
		Order("created_at ASC").
		Pluck("user_id", &likes).Error; err != nil {
		return nil, nil, fmt.Errorf("gorm comments: list likes: %w", err)
	}
	if err := db.Model(&domain.CommentReaction{}).
		Where("comment_id = ? AND kind = ?", commentID, domain.ReactionDislike).
		Order("created_at ASC").
		Pluck("user_id", &dislikes).Error; err != nil {
		return nil, nil, fmt.Errorf("gorm comments: list dislikes: %w", err)
	}
	return likes, dislikes, nil
}

func (r *CommentRepository) CountByPost(ctx context.Context, postID domain.PostID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Comment{}).
		Where("post_id = ?", postID).
		Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("gorm comments: count by post: %w", err)
	}
	return total, nil
}

// ReconcileCounters rewrites every denormalized counter from the tables that
// feed it and reports how many rows were out of step.
func (r *CommentRepository) ReconcileCounters(ctx context.Context) (int64, error) {
	var fixed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
			UPDATE comments SET reply_count = (
				SELECT COUNT(*) FROM comments c WHERE c.parent_id = comments.id
			) WHERE reply_count <> (
				SELECT COUNT(*) FROM comments c WHERE c.parent_id = comments.id
			)`)
		if res.Error != nil {
			return fmt.Errorf("gorm comments: repair reply_count: %w", res.Error)
		}
		fixed += res.RowsAffected

		res = tx.Exec(`
			UPDATE comments SET like_count = (
				SELECT COUNT(*) FROM comment_reactions r
				WHERE r.comment_id = comments.id AND r.kind = 'like'
			) WHERE like_count <> (
				SELECT COUNT(*) FROM comment_reactions r
				WHERE r.comment_id = comments.id AND r.kind = 'like'
			)`)
		if res.Error != nil {
			return fmt.Errorf("gorm comments: repair like_count: %w", res.Error)
		}
		fixed += res.RowsAffected

		res = tx.Exec(`
			UPDATE comments SET dislike_count = (
				SELECT COUNT(*) FROM comment_reactions r
				WHERE r.comment_id = comments.id AND r.kind = 'dislike'
			) WHERE dislike_count <> (
				SELECT COUNT(*) FROM comment_reactions r
				WHERE r.comment_id = comments.id AND r.kind = 'dislike'
			)`)
		if res.Error != nil {
			return fmt.Errorf("gorm comments: repair dislike_count: %w", res.Error)
		}
		fixed += res.RowsAffected

		// comment_count gains only from top-level creates but loses one per
		// deleted comment, replies included, so its exact value depends on
		// the deletion history and cannot be rebuilt from the rows. Repair
		// clamps it into the provable range instead: never negative, never
		// above the comments still present.
		res = tx.Exec(`
			UPDATE posts SET comment_count = (
				SELECT COUNT(*) FROM comments c WHERE c.post_id = posts.id
			) WHERE comment_count > (
				SELECT COUNT(*) FROM comments c WHERE c.post_id = posts.id
			)`)
		if res.Error != nil {
			return fmt.Errorf("gorm comments: clamp comment_count: %w", res.Error)
		}
		fixed += res.RowsAffected

		res = tx.Exec(`UPDATE posts SET comment_count = 0 WHERE comment_count < 0`)
		if res.Error != nil {
			return fmt.Errorf("gorm comments: floor comment_count: %w", res.Error)
		}
		fixed += res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return fixed, nil
}

// insertReaction writes a first-time reaction. Two concurrent first-time
// reactions for the same pair both pass the existence read; the composite
// primary key catches the loser here and it surfaces as a conflict, not an
// internal error.
func insertReaction(tx *gorm.DB, reaction domain.CommentReaction) error {
	if err := tx.Create(&reaction).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("gorm comments: create reaction: %w", err)
	}
	return nil
}

// syncReactionCounts rewrites the comment's cached counters from the ledger.
func syncReactionCounts(tx *gorm.DB, commentID domain.CommentID) (domain.ReactionCounts, error) {
	var counts domain.ReactionCounts
	err := tx.Model(&domain.CommentReaction{}).
		Where("comment_id = ? AND kind = ?", commentID, domain.ReactionLike).
		Count(&counts.Likes).Error
	if err != nil {
		return domain.ReactionCounts{}, fmt.Errorf("gorm comments: count likes: %w", err)
	}
	err = tx.Model(&domain.CommentReaction{}).
		Where("comment_id = ? AND kind = ?", commentID, domain.ReactionDislike).
		Count(&counts.Dislikes).Error
	if err != nil {
		return domain.ReactionCounts{}, fmt.Errorf("gorm comments: count dislikes: %w", err)
	}
	err = tx.Model(&domain.Comment{}).
		Where("id = ?", commentID).
		UpdateColumns(map[string]any{
			"like_count":    counts.Likes,
			"dislike_count": counts.Dislikes,
		}).Error
	if err != nil {
		return domain.ReactionCounts{}, fmt.Errorf("gorm comments: store counts: %w", err)
	}
	return counts, nil
}

var _ domain.CommentRepository = (*CommentRepository)(nil)
