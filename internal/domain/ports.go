package domain

import (
	"context"
	"time"
)

type ConstituencyRepository interface {
	Create(ctx context.Context, c Constituency) error
	Update(ctx context.Context, c Constituency) error
	Delete(ctx context.Context, id ConstituencyID) error
	FindByID(ctx context.Context, id ConstituencyID) (Constituency, error)
	FindByArea(ctx context.Context, areaName string) (Constituency, error)
	ListAreaNames(ctx context.Context) ([]string, error)
	ReplaceAll(ctx context.Context, cs []Constituency) error
}

// PollStore applies one vote and every dependent recomputation as a single
// transaction. Leaf counters are incremented with field-level atomic updates;
// derived scores are recomputed from a post-increment read.
type PollStore interface {
	ApplyVidhayakVote(ctx context.Context, questionID QuestionID, yes bool, ledger PollResponse) (VidhayakTally, error)
	ApplyDepartmentVote(ctx context.Context, questionID QuestionID, rating int, ledger PollResponse) (DepartmentTally, error)
	ReconcileScores(ctx context.Context) (int64, error)
}

type PostRepository interface {
	Create(ctx context.Context, p Post) error
	FindByID(ctx context.Context, id PostID) (Post, error)
	Delete(ctx context.Context, id PostID) error
	AddViews(ctx context.Context, id PostID, delta int64) error
}

type CommentRepository interface {
	CreateTopLevel(ctx context.Context, c Comment) error
	CreateReply(ctx context.Context, c Comment) error
	FindByID(ctx context.Context, id CommentID) (Comment, error)
	ListReplies(ctx context.Context, parentID CommentID, offset, limit int) ([]Comment, int64, error)
	DeleteTree(ctx context.Context, root Comment) (int64, error)
	React(ctx context.Context, commentID CommentID, userID UserID, kind ReactionKind) (ReactionCounts, error)
	Unreact(ctx context.Context, commentID CommentID, userID UserID, kind ReactionKind) (ReactionCounts, error)
	Reactions(ctx context.Context, commentID CommentID) (likes, dislikes []UserID, err error)
	CountByPost(ctx context.Context, postID PostID) (int64, error)
	ReconcileCounters(ctx context.Context) (int64, error)
}

// ViewCounter is the hot post-view counter. Hits accumulate in Redis and are
// drained into the posts table by the worker.
type ViewCounter interface {
	Hit(ctx context.Context, id PostID) (int64, error)
	Drain(ctx context.Context) (map[PostID]int64, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) error
}

type Clock interface {
	Now() time.Time
}

// PollMeta travels with a submission into the vote ledger.
type PollMeta struct {
	OriginIP  string
	UserAgent string
}

type PollSubmission struct {
	AreaName      string
	Category      string
	QuestionIndex int
	Response      string
	DepartmentID  DepartmentID
	Meta          PollMeta
}

// PollResult carries the recomputed scores for whichever category was voted
// on; exactly one of the two tallies is set.
type PollResult struct {
	Category   string           `json:"poll_category"`
	Vidhayak   *VidhayakTally   `json:"vidhayak,omitempty"`
	Department *DepartmentTally `json:"department,omitempty"`
}

type PollService interface {
	Submit(ctx context.Context, sub PollSubmission) (PollResult, error)
	SubmitVidhayakPoll(ctx context.Context, areaName string, questionIndex int, response string, meta PollMeta) (VidhayakTally, error)
	SubmitDepartmentPoll(ctx context.Context, areaName string, departmentID DepartmentID, questionIndex, rating int, meta PollMeta) (DepartmentTally, error)
}

type CommentInput struct {
	UserID  UserID
	Content string
	Link    string
}

// CommentThread is a comment with its direct replies and reaction sets.
type CommentThread struct {
	Comment  Comment   `json:"comment"`
	Replies  []Comment `json:"replies"`
	Likes    []UserID  `json:"like"`
	Dislikes []UserID  `json:"dislike"`
}

type RepliesPage struct {
	Replies []Comment `json:"replies"`
	Page    Page      `json:"pagination"`
}

type ForumService interface {
	CreatePost(ctx context.Context, p Post) (Post, error)
	GetPost(ctx context.Context, id PostID) (Post, error)
	DeletePost(ctx context.Context, id PostID) error
	CreateComment(ctx context.Context, postID PostID, in CommentInput) (Comment, error)
	CreateReply(ctx context.Context, parentID CommentID, in CommentInput) (Comment, error)
	GetComment(ctx context.Context, id CommentID) (CommentThread, error)
	ListReplies(ctx context.Context, id CommentID, page, limit int) (RepliesPage, error)
	DeleteComment(ctx context.Context, id CommentID) error
	React(ctx context.Context, id CommentID, userID UserID, kind ReactionKind) (ReactionCounts, error)
	Unreact(ctx context.Context, id CommentID, userID UserID, kind ReactionKind) (ReactionCounts, error)
}

type DirectoryService interface {
	ListAreaNames(ctx context.Context) ([]string, error)
	GetByArea(ctx context.Context, areaName string) (Constituency, error)
	Create(ctx context.Context, c Constituency) (Constituency, error)
	Update(ctx context.Context, c Constituency) (Constituency, error)
	Delete(ctx context.Context, id ConstituencyID) error
	ResetPopulate(ctx context.Context) (int, error)
}
