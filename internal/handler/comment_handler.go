package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yangshinyaw/CIACHR/internal/model"
	"github.com/yangshinyaw/CIACHR/internal/security"
)

// commentRenderer は保存済みのプレーンテキスト本文を表示用HTMLに変換する。
var commentRenderer security.TextRenderer = security.NewTextRenderer()

// CommentServiceInterface はコメントハンドラーが必要とするサービスインターフェース。
type CommentServiceInterface interface {
	Post(ctx context.Context, actor model.Actor, taskID, content string) (*model.Comment, error)
	ListByTask(ctx context.Context, actor model.Actor, taskID string) ([]model.Comment, error)
}

// CommentHandler はタスクコメントのHTTPハンドラー。
type CommentHandler struct {
	service CommentServiceInterface
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(service CommentServiceInterface) *CommentHandler {
	return &CommentHandler{service: service}
}

type postCommentRequest struct {
	Content string `json:"content"`
}

type commentResponse struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	UserID      string    `json:"user_id"`
	Content     string    `json:"content"`
	ContentHTML string    `json:"content_html"`
	Mentions    []string  `json:"mentions"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListComments はタスクのコメント一覧を返す。
// GET /api/tasks/{id}/comments
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	comments, err := h.service.ListByTask(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]commentResponse, len(comments))
	for i := range comments {
		out[i] = toCommentResponse(&comments[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// PostComment はタスクにコメントを投稿する。
// POST /api/tasks/{id}/comments
func (h *CommentHandler) PostComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req postCommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	c, err := h.service.Post(r.Context(), actor, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCommentResponse(c))
}

func toCommentResponse(c *model.Comment) commentResponse {
	mentions := []string(c.Mentions)
	if mentions == nil {
		mentions = []string{}
	}
	return commentResponse{
		ID:          c.ID,
		TaskID:      c.TaskID,
		UserID:      c.UserID,
		Content:     c.Content,
		ContentHTML: commentRenderer.Render(c.Content),
		Mentions:    mentions,
		CreatedAt:   c.CreatedAt,
	}
}
