// Package httpapi exposes the REST handlers and translates HTTP requests
// into the poll, forum and directory services.
package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/lokmanch/lokmanch/internal/app/directory"
	"github.com/lokmanch/lokmanch/internal/app/forum"
	"github.com/lokmanch/lokmanch/internal/app/polls"
	"github.com/lokmanch/lokmanch/internal/domain"
	"github.com/lokmanch/lokmanch/internal/platform/metrics"
)

// API bundles the HTTP handlers with the services they front.
type API struct {
	polls      domain.PollService
	forum      domain.ForumService
	directory  domain.DirectoryService
	logger     *slog.Logger
	adminToken string
}

func New(pollSvc domain.PollService, forumSvc domain.ForumService, directorySvc domain.DirectoryService, logger *slog.Logger, adminToken string) *API {
	return &API{
		polls:      pollSvc,
		forum:      forumSvc,
		directory:  directorySvc,
		logger:     logger,
		adminToken: adminToken,
	}
}

// Register wires every route. Routes are centralized here so tests and
// alternative servers can reuse the same mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /constituencies", a.listConstituencies)
	mux.HandleFunc("GET /constituencies/{area}", a.getConstituency)
	mux.HandleFunc("POST /constituencies/{area}/poll", a.submitPoll)

	mux.HandleFunc("POST /admin/constituencies", a.requireAdmin(a.createConstituency))
	mux.HandleFunc("POST /admin/constituencies/reset-populate", a.requireAdmin(a.resetPopulate))
	mux.HandleFunc("PUT /admin/constituencies/{id}", a.requireAdmin(a.updateConstituency))
	mux.HandleFunc("DELETE /admin/constituencies/{id}", a.requireAdmin(a.deleteConstituency))

	mux.HandleFunc("POST /posts", a.createPost)
	mux.HandleFunc("GET /posts/{id}", a.getPost)
	mux.HandleFunc("DELETE /posts/{id}", a.deletePost)
	mux.HandleFunc("POST /posts/{id}/comments", a.createComment)

	mux.HandleFunc("GET /comments/{id}", a.getComment)
	mux.HandleFunc("DELETE /comments/{id}", a.deleteComment)
	mux.HandleFunc("POST /comments/{id}/replies", a.createReply)
	mux.HandleFunc("GET /comments/{id}/replies", a.listReplies)
	mux.HandleFunc("POST /comments/{id}/reactions", a.react)
	mux.HandleFunc("DELETE /comments/{id}/reactions", a.unreact)
}

// requireAdmin gates a handler behind the configured bearer token. An empty
// token disables the gate for local development.
func (a *API) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.adminToken == "" {
			next(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(a.adminToken)) != 1 {
			a.logger.Warn("admin request rejected", "path", r.URL.Path)
			respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

func (a *API) listConstituencies(w http.ResponseWriter, r *http.Request) {
	names, err := a.directory.ListAreaNames(r.Context())
	if err != nil {
		a.logger.Error("list areas failed", "err", err)
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"areas": names})
}

func (a *API) getConstituency(w http.ResponseWriter, r *http.Request) {
	area := r.PathValue("area")
	c, err := a.directory.GetByArea(r.Context(), area)
	if err != nil {
		a.logger.Warn("constituency lookup failed", "err", err, "area", area)
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

type pollRequest struct {
	Category      string `json:"poll_category"`
	QuestionIndex int    `json:"question_index"`
	Response      string `json:"response"`
	DepartmentID  string `json:"dept_id"`
}

func (a *API) submitPoll(w http.ResponseWriter, r *http.Request) {
	var req pollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObservePollRequest("invalid_payload")
		a.logger.Warn("invalid poll payload", "err", err)
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	sub := domain.PollSubmission{
		AreaName:      r.PathValue("area"),
		Category:      req.Category,
		QuestionIndex: req.QuestionIndex,
		Response:      req.Response,
		DepartmentID:  domain.DepartmentID(req.DepartmentID),
		Meta: domain.PollMeta{
			OriginIP:  clientIP(r),
			UserAgent: r.UserAgent(),
		},
	}

	result, err := a.polls.Submit(r.Context(), sub)
	if err != nil {
		status := pollStatusLabel(err)
		metrics.ObservePollRequest(status)
		a.logger.Warn("poll submission rejected", "err", err, "area", sub.AreaName, "category", sub.Category, "status", status)
		a.respondError(w, err)
		return
	}

	metrics.ObservePollRequest("accepted")
	respondJSON(w, http.StatusOK, result)
	a.logger.Info("poll recorded", "area", sub.AreaName, "category", sub.Category)
}

func (a *API) createConstituency(w http.ResponseWriter, r *http.Request) {
	var c domain.Constituency
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	created, err := a.directory.Create(r.Context(), c)
	if err != nil {
		a.logger.Warn("constituency create failed", "err", err, "area", c.AreaName)
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (a *API) updateConstituency(w http.ResponseWriter, r *http.Request) {
	var c domain.Constituency
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	c.ID = domain.ConstituencyID(r.PathValue("id"))
	updated, err := a.directory.Update(r.Context(), c)
	if err != nil {
		a.logger.Warn("constituency update failed", "err", err, "id", c.ID)
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (a *API) deleteConstituency(w http.ResponseWriter, r *http.Request) {
	id := domain.ConstituencyID(r.PathValue("id"))
	if err := a.directory.Delete(r.Context(), id); err != nil {
		a.logger.Warn("constituency delete failed", "err", err, "id", id)
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) resetPopulate(w http.ResponseWriter, r *http.Request) {
	n, err := a.directory.ResetPopulate(r.Context())
	if err != nil {
		a.logger.Error("reset-populate failed", "err", err)
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"constituencies": n})
}

type postRequest struct {
	AuthorID       string   `json:"author"`
	ConstituencyID string   `json:"constituency"`
	CategoryID     string   `json:"category"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Content        string   `json:"content"`
	Link           string   `json:"link"`
	Tags           []string `json:"tags"`
}

func (a *API) createPost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveForumRequest("create_post", "invalid_payload")
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	p := domain.Post{
		AuthorID:       domain.UserID(req.AuthorID),
		ConstituencyID: domain.ConstituencyID(req.ConstituencyID),
		Title:          req.Title,
		Description:    req.Description,
		Content:        req.Content,
		Link:           req.Link,
		Tags:           req.Tags,
	}
	if req.CategoryID != "" {
		id := domain.CategoryID(req.CategoryID)
		p.CategoryID = &id
	}

	created, err := a.forum.CreatePost(r.Context(), p)
	if err != nil {
		a.forumError(w, "create_post", err)
		return
	}
	metrics.ObserveForumRequest("create_post", "ok")
	respondJSON(w, http.StatusCreated, created)
}

func (a *API) getPost(w http.ResponseWriter, r *http.Request) {
	p, err := a.forum.GetPost(r.Context(), domain.PostID(r.PathValue("id")))
	if err != nil {
		a.forumError(w, "get_post", err)
		return
	}
	metrics.ObserveForumRequest("get_post", "ok")
	respondJSON(w, http.StatusOK, p)
}

func (a *API) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := a.forum.DeletePost(r.Context(), domain.PostID(r.PathValue("id"))); err != nil {
		a.forumError(w, "delete_post", err)
		return
	}
	metrics.ObserveForumRequest("delete_post", "ok")
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type commentRequest struct {
	UserID  string `json:"user"`
	Content string `json:"content"`
	Link    string `json:"link"`
}

func (req commentRequest) input() domain.CommentInput {
	return domain.CommentInput{
		UserID:  domain.UserID(req.UserID),
		Content: req.Content,
		Link:    req.Link,
	}
}

func (a *API) createComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveForumRequest("create_comment", "invalid_payload")
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	c, err := a.forum.CreateComment(r.Context(), domain.PostID(r.PathValue("id")), req.input())
	if err != nil {
		a.forumError(w, "create_comment", err)
		return
	}
	metrics.ObserveForumRequest("create_comment", "ok")
	respondJSON(w, http.StatusCreated, c)
}

func (a *API) createReply(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveForumRequest("create_reply", "invalid_payload")
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	c, err := a.forum.CreateReply(r.Context(), domain.CommentID(r.PathValue("id")), req.input())
	if err != nil {
		a.forumError(w, "create_reply", err)
		return
	}
	metrics.ObserveForumRequest("create_reply", "ok")
	respondJSON(w, http.StatusCreated, c)
}

func (a *API) getComment(w http.ResponseWriter, r *http.Request) {
	thread, err := a.forum.GetComment(r.Context(), domain.CommentID(r.PathValue("id")))
	if err != nil {
		a.forumError(w, "get_comment", err)
		return
	}
	metrics.ObserveForumRequest("get_comment", "ok")
	respondJSON(w, http.StatusOK, thread)
}

func (a *API) listReplies(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 0)
	replies, err := a.forum.ListReplies(r.Context(), domain.CommentID(r.PathValue("id")), page, limit)
	if err != nil {
		a.forumError(w, "list_replies", err)
		return
	}
	metrics.ObserveForumRequest("list_replies", "ok")
	respondJSON(w, http.StatusOK, replies)
}

func (a *API) deleteComment(w http.ResponseWriter, r *http.Request) {
	if err := a.forum.DeleteComment(r.Context(), domain.CommentID(r.PathValue("id"))); err != nil {
		a.forumError(w, "delete_comment", err)
		return
	}
	metrics.ObserveForumRequest("delete_comment", "ok")
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type reactionRequest struct {
	UserID string `json:"user_id"`
	Kind   string `json:"kind"`
}

func (a *API) react(w http.ResponseWriter, r *http.Request) {
	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveForumRequest("react", "invalid_payload")
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	counts, err := a.forum.React(r.Context(), domain.CommentID(r.PathValue("id")), domain.UserID(req.UserID), domain.ReactionKind(req.Kind))
	if err != nil {
		a.forumError(w, "react", err)
		return
	}
	metrics.ObserveForumRequest("react", "ok")
	respondJSON(w, http.StatusOK, counts)
}

func (a *API) unreact(w http.ResponseWriter, r *http.Request) {
	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveForumRequest("unreact", "invalid_payload")
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	counts, err := a.forum.Unreact(r.Context(), domain.CommentID(r.PathValue("id")), domain.UserID(req.UserID), domain.ReactionKind(req.Kind))
	if err != nil {
		a.forumError(w, "unreact", err)
		return
	}
	metrics.ObserveForumRequest("unreact", "ok")
	respondJSON(w, http.StatusOK, counts)
}

func (a *API) forumError(w http.ResponseWriter, op string, err error) {
	status := statusFromError(err)
	metrics.ObserveForumRequest(op, strconv.Itoa(status))
	if status >= http.StatusInternalServerError {
		a.logger.Error("forum request failed", "op", op, "err", err)
	} else {
		a.logger.Warn("forum request rejected", "op", op, "err", err, "status", status)
	}
	a.respondError(w, err)
}

func (a *API) respondError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs.
		msg = "internal error"
	}
	respondJSON(w, status, map[string]string{"error": msg})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, polls.ErrConstituencyNotFound),
		errors.Is(err, polls.ErrDepartmentNotFound),
		errors.Is(err, polls.ErrQuestionOutOfRange),
		errors.Is(err, forum.ErrPostNotFound),
		errors.Is(err, forum.ErrCommentNotFound),
		errors.Is(err, directory.ErrConstituencyNotFound):
		return http.StatusNotFound
	case errors.Is(err, polls.ErrInvalidCategory),
		errors.Is(err, polls.ErrInvalidResponse),
		errors.Is(err, polls.ErrInvalidRating),
		errors.Is(err, polls.ErrInvalidQuestionIndex),
		errors.Is(err, forum.ErrContentRequired),
		errors.Is(err, forum.ErrContentTooLong),
		errors.Is(err, forum.ErrInvalidLink),
		errors.Is(err, forum.ErrUserRequired),
		errors.Is(err, forum.ErrInvalidReaction),
		errors.Is(err, directory.ErrInvalidConstituency):
		return http.StatusBadRequest
	case errors.Is(err, forum.ErrAlreadyReacted),
		errors.Is(err, directory.ErrDuplicateArea),
		errors.Is(err, directory.ErrDuplicateDepartment):
		return http.StatusConflict
	case errors.Is(err, polls.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func pollStatusLabel(err error) string {
	switch {
	case errors.Is(err, polls.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, polls.ErrConstituencyNotFound),
		errors.Is(err, polls.ErrDepartmentNotFound),
		errors.Is(err, polls.ErrQuestionOutOfRange):
		return "not_found"
	case errors.Is(err, polls.ErrInvalidCategory),
		errors.Is(err, polls.ErrInvalidResponse),
		errors.Is(err, polls.ErrInvalidRating),
		errors.Is(err, polls.ErrInvalidQuestionIndex):
		return "invalid"
	default:
		return "error"
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}
