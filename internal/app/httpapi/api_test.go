package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lokmanch/lokmanch/internal/app/directory"
	"github.com/lokmanch/lokmanch/internal/app/forum"
	"github.com/lokmanch/lokmanch/internal/app/polls"
	"github.com/lokmanch/lokmanch/internal/domain"
)

type MockPollService struct {
	mock.Mock
}

func (m *MockPollService) Submit(ctx context.Context, sub domain.PollSubmission) (domain.PollResult, error) {
	args := m.Called(ctx, sub)
	return args.Get(0).(domain.PollResult), args.Error(1)
}

func (m *MockPollService) SubmitVidhayakPoll(ctx context.Context, areaName string, questionIndex int, response string, meta domain.PollMeta) (domain.VidhayakTally, error) {
	args := m.Called(ctx, areaName, questionIndex, response, meta)
	return args.Get(0).(domain.VidhayakTally), args.Error(1)
}

func (m *MockPollService) SubmitDepartmentPoll(ctx context.Context, areaName string, departmentID domain.DepartmentID, questionIndex, rating int, meta domain.PollMeta) (domain.DepartmentTally, error) {
	args := m.Called(ctx, areaName, departmentID, questionIndex, rating, meta)
	return args.Get(0).(domain.DepartmentTally), args.Error(1)
}

type MockForumService struct {
	mock.Mock
}

func (m *MockForumService) CreatePost(ctx context.Context, p domain.Post) (domain.Post, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(domain.Post), args.Error(1)
}

func (m *MockForumService) GetPost(ctx context.Context, id domain.PostID) (domain.Post, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Post), args.Error(1)
}

func (m *MockForumService) DeletePost(ctx context.Context, id domain.PostID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockForumService) CreateComment(ctx context.Context, postID domain.PostID, in domain.CommentInput) (domain.Comment, error) {
	args := m.Called(ctx, postID, in)
	return args.Get(0).(domain.Comment), args.Error(1)
}

func (m *MockForumService) CreateReply(ctx context.Context, parentID domain.CommentID, in domain.CommentInput) (domain.Comment, error) {
	args := m.Called(ctx, parentID, in)
	return args.Get(0).(domain.Comment), args.Error(1)
}

func (m *MockForumService) GetComment(ctx context.Context, id domain.CommentID) (domain.CommentThread, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.CommentThread), args.Error(1)
}

func (m *MockForumService) ListReplies(ctx context.Context, id domain.CommentID, page, limit int) (domain.RepliesPage, error) {
	args := m.Called(ctx, id, page, limit)
	return args.Get(0).(domain.RepliesPage), args.Error(1)
}

func (m *MockForumService) DeleteComment(ctx context.Context, id domain.CommentID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockForumService) React(ctx context.Context, id domain.CommentID, userID domain.UserID, kind domain.ReactionKind) (domain.ReactionCounts, error) {
	args := m.Called(ctx, id, userID, kind)
	return args.Get(0).(domain.ReactionCounts), args.Error(1)
}

func (m *MockForumService) Unreact(ctx context.Context, id domain.CommentID, userID domain.UserID, kind domain.ReactionKind) (domain.ReactionCounts, error) {
	args := m.Called(ctx, id, userID, kind)
	return args.Get(0).(domain.ReactionCounts), args.Error(1)
}

type MockDirectoryService struct {
	mock.Mock
}

func (m *MockDirectoryService) ListAreaNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDirectoryService) GetByArea(ctx context.Context, areaName string) (domain.Constituency, error) {
	args := m.Called(ctx, areaName)
	return args.Get(0).(domain.Constituency), args.Error(1)
}

func (m *MockDirectoryService) Create(ctx context.Context, c domain.Constituency) (domain.Constituency, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(domain.Constituency), args.Error(1)
}

func (m *MockDirectoryService) Update(ctx context.Context, c domain.Constituency) (domain.Constituency, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(domain.Constituency), args.Error(1)
}

func (m *MockDirectoryService) Delete(ctx context.Context, id domain.ConstituencyID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDirectoryService) ResetPopulate(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type apiMocks struct {
	polls     *MockPollService
	forum     *MockForumService
	directory *MockDirectoryService
}

func setupAPI(t *testing.T, adminToken string) (*http.ServeMux, apiMocks) {
	mocks := apiMocks{
		polls:     new(MockPollService),
		forum:     new(MockForumService),
		directory: new(MockDirectoryService),
	}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{}))
	api := New(mocks.polls, mocks.forum, mocks.directory, logger, adminToken)

	mux := http.NewServeMux()
	api.Register(mux)

	t.Cleanup(func() {
		mocks.polls.AssertExpectations(t)
		mocks.forum.AssertExpectations(t)
		mocks.directory.AssertExpectations(t)
	})
	return mux, mocks
}

func doJSON(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.Header.Set("User-Agent", "test-agent")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestListConstituencies(t *testing.T) {
	mux, mocks := setupAPI(t, "")
	mocks.directory.On("ListAreaNames", mock.Anything).Return([]string{"Gandhi Chowk", "Karol Bagh"}, nil)

	w := doJSON(mux, "GET", "/constituencies", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string][]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, []string{"Gandhi Chowk", "Karol Bagh"}, resp["areas"])
}

func TestGetConstituencyNotFound(t *testing.T) {
	mux, mocks := setupAPI(t, "")
	mocks.directory.On("GetByArea", mock.Anything, "Nowhere").
		Return(domain.Constituency{}, directory.ErrConstituencyNotFound)

	w := doJSON(mux, "GET", "/constituencies/Nowhere", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitPoll(t *testing.T) {
	mux, mocks := setupAPI(t, "")
	tally := domain.VidhayakTally{YesVotes: 4, NoVotes: 1, Score: 80}
	mocks.polls.On("Submit", mock.Anything, mock.MatchedBy(func(sub domain.PollSubmission) bool {
		return sub.AreaName == "Karol Bagh" &&
			sub.Category == domain.PollCategoryVidhayak &&
			sub.QuestionIndex == 2 &&
			sub.Response == "yes" &&
			sub.Meta.UserAgent != ""
	})).Return(domain.PollResult{Category: domain.PollCategoryVidhayak, Vidhayak: &tally}, nil)

	w := doJSON(mux, "POST", "/constituencies/Karol%20Bagh/poll",
		`{"poll_category":"vidhayak","question_index":2,"response":"yes"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp domain.PollResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Vidhayak)
	assert.Equal(t, 80, resp.Vidhayak.Score)
}

func TestSubmitPollErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unknown area", polls.ErrConstituencyNotFound, http.StatusNotFound},
		{"unknown department", polls.ErrDepartmentNotFound, http.StatusNotFound},
		{"bad vidhayak index", polls.ErrQuestionOutOfRange, http.StatusNotFound},
		{"bad department index", polls.ErrInvalidQuestionIndex, http.StatusBadRequest},
		{"bad category", polls.ErrInvalidCategory, http.StatusBadRequest},
		{"bad response", polls.ErrInvalidResponse, http.StatusBadRequest},
		{"bad rating", polls.ErrInvalidRating, http.StatusBadRequest},
		{"rate limited", polls.ErrRateLimited, http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux, mocks := setupAPI(t, "")
			mocks.polls.On("Submit", mock.Anything, mock.Anything).
				Return(domain.PollResult{}, tc.err)

			w := doJSON(mux, "POST", "/constituencies/X/poll",
				`{"poll_category":"vidhayak","question_index":0,"response":"yes"}`)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestSubmitPollInvalidPayload(t *testing.T) {
	mux, _ := setupAPI(t, "")
	w := doJSON(mux, "POST", "/constituencies/X/poll", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	mux, _ := setupAPI(t, "secret-token")

	w := doJSON(mux, "POST", "/admin/constituencies/reset-populate", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("POST", "/admin/constituencies/reset-populate", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesAcceptValidToken(t *testing.T) {
	mux, mocks := setupAPI(t, "secret-token")
	mocks.directory.On("ResetPopulate", mock.Anything).Return(3, nil)

	req := httptest.NewRequest("POST", "/admin/constituencies/reset-populate", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp["constituencies"])
}

func TestCreateConstituencyConflict(t *testing.T) {
	mux, mocks := setupAPI(t, "")
	mocks.directory.On("Create", mock.Anything, mock.Anything).
		Return(domain.Constituency{}, directory.ErrDuplicateArea)

	w := doJSON(mux, "POST", "/admin/constituencies",
		`{"area_name":"Karol Bagh","vidhayak_info":{"name":"A"}}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteConstituency(t *testing.T) {
	mux, mocks := setupAPI(t, "")
	mocks.directory.On("Delete", mock.Anything, domain.ConstituencyID("cons-1")).Return(nil)

	w := doJSON(mux, "DELETE", "/admin/constituencies/cons-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreatePost(t *testing.T) {
	mux, mocks := setupAPI(t, "")
	created := domain.Post{ID: "post-1", Title: "Broken footpath"}
	mocks.forum.On("CreatePost", mock.Anything, mock.MatchedBy(func(p domain.Post) bool {
		return p.AuthorID == "user-1" && p.Title == "Broken footpath"
	})).Return(created, nil)

	w := doJSON(mux, "POST", "/posts",
		`{"author":"user-1","constituency":"cons-1","title":"Broken footpath"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp domain.Post
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, domain.PostID("post-1"), resp.ID)
}

func TestGetPostNotFound(t *testing.T) {
	mux, mocks := setupAPI(t, "")
	mocks.forum.On("GetPost", mock.Anything, domain.PostID("missing")).
		Return(domain.Post{}, forum.ErrPostNotFound)

	w := doJSON(mux, "GET", "/posts/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateComment(t *testing.T) {
	mux, mocks := setupAPI(t, "")
	created := domain.Comment{ID: "comment-1", PostID: "post-1", Content: "agreed"}
	mocks.forum.On("CreateComment", mock.Anything, domain.PostID("post-1"), domain.CommentInput{
		UserID:  "user-1",
		Content: "agreed",
	}).Return(created, nil)

	w := doJSON(mux, "POST", "/posts/post-1/comments",
		`{"user":"user-1","content":"agreed"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateCommentValidation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"blank content", forum.ErrContentRequired, http.StatusBadRequest},
		{"too long", forum.ErrContentTooLong, http.StatusBadRequest},
		{"bad link", forum.ErrInvalidLink, http.StatusBadRequest},
		{"no user", forum.ErrUserRequired, http.StatusBadRequest},
		{"missing post", forum.ErrPostNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux, mocks := setupAPI(t, "")
			mocks.forum.On("CreateComment", mock.Anything, mock.Anything, mock.Anything).
				Return(domain.Comment{}, tc.err)

			w := doJSON(mux, "POST", "/posts/post-1/comments", `{"user":"u","content":"x"}`)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestListRepliesPassesPagination(t *testing.T) {
	mux, mocks := setupAPI(t, "")
	mocks.forum.On("ListReplies", mock.Anything, domain.CommentID("comment-1"), 2, 5).
		Return(domain.RepliesPage{Replies: []domain.Comment{}, Page: domain.Page{Current: 2, Size: 5}}, nil)

	w := doJSON(mux, "GET", "/comments/comment-1/replies?page=2&limit=5", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReactConflict(t *testing.T) {
	mux, mocks := setupAPI(t, "")
	mocks.forum.On("React", mock.Anything, domain.CommentID("comment-1"), domain.UserID("user-1"), domain.ReactionLike).
		Return(domain.ReactionCounts{}, forum.ErrAlreadyReacted)

	w := doJSON(mux, "POST", "/comments/comment-1/reactions",
		`{"user_id":"user-1","kind":"like"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUnreact(t *testing.T) {
	mux, mocks := setupAPI(t, "")
	mocks.forum.On("Unreact", mock.Anything, domain.CommentID("comment-1"), domain.UserID("user-1"), domain.ReactionDislike).
		Return(domain.ReactionCounts{Likes: 2, Dislikes: 0}, nil)

	w := doJSON(mux, "DELETE", "/comments/comment-1/reactions",
		`{"user_id":"user-1","kind":"dislike"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var counts domain.ReactionCounts
	require.NoError(t, json.NewDecoder(w.Body).Decode(&counts))
	assert.Equal(t, int64(2), counts.Likes)
}

func TestInternalErrorHidesDetails(t *testing.T) {
	mux, mocks := setupAPI(t, "")
	mocks.forum.On("GetPost", mock.Anything, domain.PostID("post-1")).
		Return(domain.Post{}, assert.AnError)

	w := doJSON(mux, "GET", "/posts/post-1", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "internal error", resp["error"])
}
