// Package forum implements the discussion rules: posts, the threaded comment
// tree and the per-user reaction ledger.
package forum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/lokmanch/lokmanch/internal/domain"
	"github.com/lokmanch/lokmanch/internal/platform/ids"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrContentRequired = errors.New("content required")
	ErrContentTooLong  = errors.New("content too long")
	ErrInvalidLink     = errors.New("invalid link")
	ErrUserRequired    = errors.New("user required")
	ErrInvalidReaction = errors.New("invalid reaction")
	ErrAlreadyReacted  = errors.New("already reacted")
)

const (
	maxContentLength = 1000

	defaultRepliesPerPage = 10
	maxRepliesPerPage     = 100
)

// Service owns validation and orchestration; the counter arithmetic lives in
// the repositories so it happens inside their transactions.
type Service struct {
	posts    domain.PostRepository
	comments domain.CommentRepository
	views    domain.ViewCounter
	clock    domain.Clock
	ids      *ids.Generator
	log      *slog.Logger
}

func NewService(
	posts domain.PostRepository,
	comments domain.CommentRepository,
	views domain.ViewCounter,
	clock domain.Clock,
	idsGen *ids.Generator,
	log *slog.Logger,
) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		posts:    posts,
		comments: comments,
		views:    views,
		clock:    clock,
		ids:      idsGen,
		log:      log,
	}
}

func (s *Service) CreatePost(ctx context.Context, p domain.Post) (domain.Post, error) {
	if p.AuthorID == "" {
		return domain.Post{}, ErrUserRequired
	}
	p.Title = strings.TrimSpace(p.Title)
	p.Content = strings.TrimSpace(p.Content)
	if p.Title == "" && p.Content == "" {
		return domain.Post{}, fmt.Errorf("%w: title or content", ErrContentRequired)
	}
	if err := validateLink(p.Link); err != nil {
		return domain.Post{}, err
	}

	now := s.clock.Now()
	p.ID = domain.PostID(s.ids.New())
	p.Views = 0
	p.CommentCount = 0
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.posts.Create(ctx, p); err != nil {
		return domain.Post{}, err
	}
	return p, nil
}

// GetPost registers one view and returns the post. The counter accumulates in
// Redis; the stored views column only catches up when the worker drains it,
// so the pending hits are folded into the response here.
func (s *Service) GetPost(ctx context.Context, id domain.PostID) (domain.Post, error) {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Post{}, ErrPostNotFound
		}
		return domain.Post{}, err
	}

	if s.views != nil {
		pending, err := s.views.Hit(ctx, id)
		if err != nil {
			// A view that fails to count is not worth failing the read.
			s.log.WarnContext(ctx, "view counter unavailable", slog.String("post_id", string(id)), slog.String("error", err.Error()))
		} else {
			p.Views += pending
		}
	}
	return p, nil
}

func (s *Service) DeletePost(ctx context.Context, id domain.PostID) error {
	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	return nil
}

func (s *Service) CreateComment(ctx context.Context, postID domain.PostID, in domain.CommentInput) (domain.Comment, error) {
	content, err := validateCommentInput(in)
	if err != nil {
		return domain.Comment{}, err
	}

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Comment{}, ErrPostNotFound
		}
		return domain.Comment{}, err
	}

	c := s.newComment(post.ID, post.ConstituencyID, nil, in.UserID, content, in.Link)
	if err := s.comments.CreateTopLevel(ctx, c); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Comment{}, ErrPostNotFound
		}
		return domain.Comment{}, err
	}
	return c, nil
}

// CreateReply hangs a comment off an existing one. Post and constituency are
// inherited from the parent, never taken from the request.
func (s *Service) CreateReply(ctx context.Context, parentID domain.CommentID, in domain.CommentInput) (domain.Comment, error) {
	content, err := validateCommentInput(in)
	if err != nil {
		return domain.Comment{}, err
	}

	parent, err := s.comments.FindByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Comment{}, ErrCommentNotFound
		}
		return domain.Comment{}, err
	}

	c := s.newComment(parent.PostID, parent.ConstituencyID, &parent.ID, in.UserID, content, in.Link)
	if err := s.comments.CreateReply(ctx, c); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Comment{}, ErrCommentNotFound
		}
		return domain.Comment{}, err
	}
	return c, nil
}

// GetComment returns the comment with its first page of replies and the full
// reaction sets.
func (s *Service) GetComment(ctx context.Context, id domain.CommentID) (domain.CommentThread, error) {
	c, err := s.comments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.CommentThread{}, ErrCommentNotFound
		}
		return domain.CommentThread{}, err
	}

	replies, _, err := s.comments.ListReplies(ctx, id, 0, defaultRepliesPerPage)
	if err != nil {
		return domain.CommentThread{}, err
	}

	likes, dislikes, err := s.comments.Reactions(ctx, id)
	if err != nil {
		return domain.CommentThread{}, err
	}

	return domain.CommentThread{
		Comment:  c,
		Replies:  replies,
		Likes:    likes,
		Dislikes: dislikes,
	}, nil
}

func (s *Service) ListReplies(ctx context.Context, id domain.CommentID, page, limit int) (domain.RepliesPage, error) {
	if _, err := s.comments.FindByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.RepliesPage{}, ErrCommentNotFound
		}
		return domain.RepliesPage{}, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultRepliesPerPage
	}
	if limit > maxRepliesPerPage {
		limit = maxRepliesPerPage
	}

	replies, total, err := s.comments.ListReplies(ctx, id, (page-1)*limit, limit)
	if err != nil {
		return domain.RepliesPage{}, err
	}

	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return domain.RepliesPage{
		Replies: replies,
		Page: domain.Page{
			Current: page,
			Size:    limit,
			Total:   total,
			Pages:   pages,
			HasNext: int64(page) < pages,
			HasPrev: page > 1 && total > 0,
		},
	}, nil
}

func (s *Service) DeleteComment(ctx context.Context, id domain.CommentID) error {
	root, err := s.comments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrCommentNotFound
		}
		return err
	}

	removed, err := s.comments.DeleteTree(ctx, root)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	s.log.InfoContext(ctx, "comment tree removed",
		slog.String("comment_id", string(id)),
		slog.Int64("comments_removed", removed))
	return nil
}

func (s *Service) React(ctx context.Context, id domain.CommentID, userID domain.UserID, kind domain.ReactionKind) (domain.ReactionCounts, error) {
	if userID == "" {
		return domain.ReactionCounts{}, ErrUserRequired
	}
	if !kind.Valid() {
		return domain.ReactionCounts{}, fmt.Errorf("%w: %q", ErrInvalidReaction, kind)
	}

	counts, err := s.comments.React(ctx, id, userID, kind)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return domain.ReactionCounts{}, ErrCommentNotFound
		case errors.Is(err, domain.ErrConflict):
			return domain.ReactionCounts{}, fmt.Errorf("%w: %s", ErrAlreadyReacted, kind)
		}
		return domain.ReactionCounts{}, err
	}
	return counts, nil
}

func (s *Service) Unreact(ctx context.Context, id domain.CommentID, userID domain.UserID, kind domain.ReactionKind) (domain.ReactionCounts, error) {
	if userID == "" {
		return domain.ReactionCounts{}, ErrUserRequired
	}
	if !kind.Valid() {
		return domain.ReactionCounts{}, fmt.Errorf("%w: %q", ErrInvalidReaction, kind)
	}

	counts, err := s.comments.Unreact(ctx, id, userID, kind)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ReactionCounts{}, ErrCommentNotFound
		}
		return domain.ReactionCounts{}, err
	}
	return counts, nil
}

func (s *Service) newComment(postID domain.PostID, constituencyID domain.ConstituencyID, parentID *domain.CommentID, userID domain.UserID, content, link string) domain.Comment {
	now := s.clock.Now()
	return domain.Comment{
		ID:             domain.CommentID(s.ids.New()),
		PostID:         postID,
		UserID:         userID,
		ConstituencyID: constituencyID,
		ParentID:       parentID,
		Content:        content,
		Link:           link,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func validateCommentInput(in domain.CommentInput) (string, error) {
	if in.UserID == "" {
		return "", ErrUserRequired
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return "", ErrContentRequired
	}
	// The limit is characters, not bytes. Devanagari runs three bytes per
	// rune, so a byte count would cut valid comments to a third.
	if n := utf8.RuneCountInString(content); n > maxContentLength {
		return "", fmt.Errorf("%w: %d characters, maximum %d", ErrContentTooLong, n, maxContentLength)
	}
	if err := validateLink(in.Link); err != nil {
		return "", err
	}
	return content, nil
}

// validateLink accepts an empty link or an absolute http(s) URL.
func validateLink(link string) error {
	if link == "" {
		return nil
	}
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidLink, link)
	}
	return nil
}

var _ domain.ForumService = (*Service)(nil)
