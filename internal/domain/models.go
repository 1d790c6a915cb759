package domain

import (
	"time"
)

type (
	ConstituencyID string
	DepartmentID   string
	QuestionID     string
	PostID         string
	CommentID      string
	UserID         string
	CategoryID     string
	PollID         string
)

// ReactionKind is a user's stance on a comment. A user holds at most one
// reaction per comment.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionDislike
}

// Poll categories accepted by the aggregator.
const (
	PollCategoryVidhayak   = "vidhayak"
	PollCategoryDepartment = "dept"
)

// Constituency is the reference document for one electoral area: the sitting
// vidhayak, scored departments and rival candidates.
type Constituency struct {
	ID          ConstituencyID   `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	AreaName    string           `gorm:"column:area_name;type:text;not null;uniqueIndex" json:"area_name"`
	Vidhayak    Vidhayak         `gorm:"embedded;embeddedPrefix:vidhayak_" json:"vidhayak_info"`
	SurveyScore []SurveyQuestion `gorm:"foreignKey:ConstituencyID;constraint:OnDelete:CASCADE" json:"survey_score"`
	Departments []Department     `gorm:"foreignKey:ConstituencyID;constraint:OnDelete:CASCADE" json:"dept_info"`
	Candidates  []Candidate      `gorm:"foreignKey:ConstituencyID;constraint:OnDelete:CASCADE" json:"other_candidates"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// Vidhayak is the representative profile embedded in a constituency.
// ManifestoScore is derived from department averages, everything else is
// admin-supplied reference data.
type Vidhayak struct {
	Name             string `gorm:"column:name;type:text;not null" json:"name"`
	ImageURL         string `gorm:"column:image_url;type:text" json:"image_url"`
	Age              int    `gorm:"column:age" json:"age"`
	Party            string `gorm:"column:party;type:text" json:"party_name"`
	PartyIconURL     string `gorm:"column:party_icon_url;type:text" json:"party_icon_url"`
	LastVoteShare    string `gorm:"column:last_vote_share;type:text" json:"last_election_vote_percentage"`
	Experience       int    `gorm:"column:experience" json:"experience"`
	ManifestoLink    string `gorm:"column:manifesto_link;type:text" json:"manifesto_link"`
	ManifestoScore   int    `gorm:"column:manifesto_score;not null;default:0" json:"manifesto_score"`
	Education        string `gorm:"column:education;type:text" json:"education"`
	NetWorth         string `gorm:"column:net_worth;type:text" json:"net_worth"`
	CriminalCases    int    `gorm:"column:criminal_cases" json:"criminal_cases"`
	Attendance       string `gorm:"column:attendance;type:text" json:"attendance"`
	QuestionsAsked   int    `gorm:"column:questions_asked" json:"questions_asked"`
	FundsUtilisation string `gorm:"column:funds_utilisation;type:text" json:"funds_utilisation"`
}

// SurveyQuestion is one yes/no poll question about the vidhayak. Score is
// derived from the vote counters and recomputed on every vote.
type SurveyQuestion struct {
	ID             QuestionID     `gorm:"column:id;type:char(26);primaryKey" json:"-"`
	ConstituencyID ConstituencyID `gorm:"column:constituency_id;type:char(26);not null;index" json:"-"`
	Position       int            `gorm:"column:position;not null" json:"position"`
	Question       string         `gorm:"column:question;type:text;not null" json:"question"`
	YesVotes       int64          `gorm:"column:yes_votes;not null;default:0" json:"yes_votes"`
	NoVotes        int64          `gorm:"column:no_votes;not null;default:0" json:"no_votes"`
	Score          int            `gorm:"column:score;not null;default:0" json:"score"`
}

// Department is a scored government functional area within a constituency.
// The id is admin-supplied (UUID) and must be unique within the constituency.
type Department struct {
	ID             DepartmentID         `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	ConstituencyID ConstituencyID       `gorm:"column:constituency_id;type:char(26);not null;index" json:"-"`
	Name           string               `gorm:"column:name;type:text;not null" json:"dept_name"`
	WorkInfo       []string             `gorm:"column:work_info;serializer:json" json:"work_info"`
	SurveyScore    []DepartmentQuestion `gorm:"foreignKey:DepartmentID;constraint:OnDelete:CASCADE" json:"survey_score"`
	AverageScore   int                  `gorm:"column:average_score;not null;default:0" json:"average_score"`
}

// DepartmentQuestion is one 5-star rating question. The per-star counters are
// the raw source of truth; Score is derived.
type DepartmentQuestion struct {
	ID           QuestionID   `gorm:"column:id;type:char(26);primaryKey" json:"-"`
	DepartmentID DepartmentID `gorm:"column:department_id;type:char(36);not null;index" json:"-"`
	Position     int          `gorm:"column:position;not null" json:"position"`
	Question     string       `gorm:"column:question;type:text;not null" json:"question"`
	Rating1      int64        `gorm:"column:rating_1;not null;default:0" json:"-"`
	Rating2      int64        `gorm:"column:rating_2;not null;default:0" json:"-"`
	Rating3      int64        `gorm:"column:rating_3;not null;default:0" json:"-"`
	Rating4      int64        `gorm:"column:rating_4;not null;default:0" json:"-"`
	Rating5      int64        `gorm:"column:rating_5;not null;default:0" json:"-"`
	Score        int          `gorm:"column:score;not null;default:0" json:"score"`
}

// Ratings returns the star breakdown keyed "1".."5", the wire shape clients
// expect.
func (q DepartmentQuestion) Ratings() map[string]int64 {
	return map[string]int64{
		"1": q.Rating1,
		"2": q.Rating2,
		"3": q.Rating3,
		"4": q.Rating4,
		"5": q.Rating5,
	}
}

// RatingCounts returns the counters indexed by star value 1..5.
func (q DepartmentQuestion) RatingCounts() [5]int64 {
	return [5]int64{q.Rating1, q.Rating2, q.Rating3, q.Rating4, q.Rating5}
}

// Candidate is a rival candidate listed on a constituency page.
type Candidate struct {
	ID             int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ConstituencyID ConstituencyID `gorm:"column:constituency_id;type:char(26);not null;index" json:"-"`
	Name           string         `gorm:"column:name;type:text;not null" json:"candidate_name"`
	ImageURL       string         `gorm:"column:image_url;type:text" json:"candidate_image_url"`
	Party          string         `gorm:"column:party;type:text" json:"candidate_party"`
	VoteShare      string         `gorm:"column:vote_share;type:text" json:"vote_share"`
}

// PollResponse is one row of the append-only vote ledger. Raw counters plus
// this ledger are the source of truth; every derived score can be rebuilt
// from them.
type PollResponse struct {
	ID             PollID         `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	ConstituencyID ConstituencyID `gorm:"column:constituency_id;type:char(26);not null;index" json:"constituency_id"`
	Category       string         `gorm:"column:category;type:text;not null" json:"category"`
	DepartmentID   *DepartmentID  `gorm:"column:department_id;type:char(36)" json:"department_id,omitempty"`
	QuestionIndex  int            `gorm:"column:question_index;not null" json:"question_index"`
	Response       string         `gorm:"column:response;type:text;not null" json:"response"`
	OriginIP       string         `gorm:"column:origin_ip;type:text" json:"-"`
	UserAgent      string         `gorm:"column:user_agent;type:text" json:"-"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// Post is a user submission scoped to a constituency. CommentCount tracks
// top-level comments only; replies deliberately do not contribute to it.
type Post struct {
	ID             PostID         `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	AuthorID       UserID         `gorm:"column:author_id;type:char(26);not null;index" json:"author"`
	ConstituencyID ConstituencyID `gorm:"column:constituency_id;type:char(26);not null;index" json:"constituency"`
	CategoryID     *CategoryID    `gorm:"column:category_id;type:char(26)" json:"category,omitempty"`
	Title          string         `gorm:"column:title;type:text" json:"title"`
	Description    string         `gorm:"column:description;type:text" json:"description"`
	Content        string         `gorm:"column:content;type:text" json:"content"`
	Link           string         `gorm:"column:link;type:text" json:"link,omitempty"`
	Tags           []string       `gorm:"column:tags;serializer:json" json:"tags"`
	Views          int64          `gorm:"column:views;not null;default:0" json:"views"`
	CommentCount   int64          `gorm:"column:comment_count;not null;default:0" json:"commentCount"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// Comment is a node of a post's discussion tree, stored as an adjacency list:
// a nil ParentID marks a top-level comment, anything else a reply. ReplyCount
// and the reaction counters are maintained alongside the sets they count.
type Comment struct {
	ID             CommentID      `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	PostID         PostID         `gorm:"column:post_id;type:char(26);not null;index:idx_comments_post_created,priority:1" json:"post"`
	UserID         UserID         `gorm:"column:user_id;type:char(26);not null;index" json:"user"`
	ConstituencyID ConstituencyID `gorm:"column:constituency_id;type:char(26);not null;index" json:"constituency"`
	ParentID       *CommentID     `gorm:"column:parent_id;type:char(26);index" json:"parentComment,omitempty"`
	Content        string         `gorm:"column:content;type:text;not null" json:"content"`
	Link           string         `gorm:"column:link;type:text" json:"link,omitempty"`
	ReplyCount     int64          `gorm:"column:reply_count;not null;default:0" json:"replyCount"`
	LikeCount      int64          `gorm:"column:like_count;not null;default:0" json:"likeCount"`
	DislikeCount   int64          `gorm:"column:dislike_count;not null;default:0" json:"dislikeCount"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime;index:idx_comments_post_created,priority:2" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// IsReply reports whether the comment hangs off another comment.
func (c Comment) IsReply() bool {
	return c.ParentID != nil
}

// CommentReaction is one user's reaction to one comment. The composite
// primary key is what enforces at-most-one reaction per (comment, user) pair.
type CommentReaction struct {
	CommentID CommentID    `gorm:"column:comment_id;type:char(26);primaryKey" json:"comment_id"`
	UserID    UserID       `gorm:"column:user_id;type:char(26);primaryKey" json:"user_id"`
	Kind      ReactionKind `gorm:"column:kind;type:text;not null" json:"kind"`
	CreatedAt time.Time    `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// User and Category are supporting reference tables; they carry no list or
// search surface here.
type User struct {
	ID        UserID    `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	Name      string    `gorm:"column:name;type:text;not null" json:"name"`
	Phone     string    `gorm:"column:phone;type:text;uniqueIndex" json:"phone"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

type Category struct {
	ID        CategoryID `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	Name      string     `gorm:"column:name;type:text;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// VidhayakTally is what a vidhayak poll submission returns: the fresh
// counters and the score derived from them in the same transaction.
type VidhayakTally struct {
	YesVotes int64 `json:"yes_votes"`
	NoVotes  int64 `json:"no_votes"`
	Score    int   `json:"score"`
}

// DepartmentTally is what a department poll submission returns. All four
// values are recomputed from the persisted counters, never echoed from the
// request.
type DepartmentTally struct {
	Ratings           map[string]int64 `json:"ratings"`
	QuestionScore     int              `json:"question_score"`
	DepartmentAverage int              `json:"department_average_score"`
	ManifestoScore    int              `json:"manifesto_score"`
}

// ReactionCounts is the reaction-set cardinality after a ledger mutation.
type ReactionCounts struct {
	Likes    int64 `json:"likeCount"`
	Dislikes int64 `json:"dislikeCount"`
}

// Page carries offset pagination metadata for reply listings.
type Page struct {
	Current int   `json:"currentPage"`
	Size    int   `json:"limit"`
	Total   int64 `json:"totalItems"`
	Pages   int64 `json:"totalPages"`
	HasNext bool  `json:"hasNextPage"`
	HasPrev bool  `json:"hasPrevPage"`
}

func (Constituency) TableName() string { return "constituencies" }

func (SurveyQuestion) TableName() string { return "survey_questions" }

func (Department) TableName() string { return "departments" }

func (DepartmentQuestion) TableName() string { return "department_questions" }

func (Candidate) TableName() string { return "candidates" }

func (PollResponse) TableName() string { return "poll_responses" }

func (Post) TableName() string { return "posts" }

func (Comment) TableName() string { return "comments" }

func (CommentReaction) TableName() string { return "comment_reactions" }

func (User) TableName() string { return "users" }

func (Category) TableName() string { return "categories" }
