package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yangshinyaw/CIACHR/internal/model"
	"github.com/yangshinyaw/CIACHR/internal/task"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	Create(ctx context.Context, actor model.Actor, in task.CreateInput) (*model.Task, error)
	Get(ctx context.Context, actor model.Actor, taskID string) (*model.Task, error)
	ListForUser(ctx context.Context, actor model.Actor) ([]model.Task, error)
	AdvanceStatus(ctx context.Context, actor model.Actor, taskID string) (*model.Task, error)
	SetStatus(ctx context.Context, actor model.Actor, taskID string, target model.TaskStatus) (*model.Task, error)
	Reassign(ctx context.Context, actor model.Actor, taskID, assigneeEmail string) (*model.Task, error)
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{service: service}
}

// createTaskRequest はタスク作成リクエストのボディ。
// deadlineはRFC3339または YYYY-MM-DD 形式で受け付ける。
type createTaskRequest struct {
	Title      string `json:"title"`
	Deadline   string `json:"deadline"`
	Priority   string `json:"priority"`
	AssignedTo string `json:"assigned_to"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

type reassignRequest struct {
	AssignedTo string `json:"assigned_to"`
}

// taskResponse はタスクのAPIレスポンス。
type taskResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Deadline   time.Time `json:"deadline"`
	Priority   string    `json:"priority"`
	Status     string    `json:"status"`
	CreatedBy  string    `json:"created_by"`
	AssignedTo string    `json:"assigned_to"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListTasks は操作者が作成または担当しているタスク一覧を返す。
// GET /api/tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	tasks, err := h.service.ListForUser(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponses(tasks))
}

// CreateTask はタスクを作成する。
// POST /api/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("期限の形式が正しくありません。"))
		return
	}

	created, err := h.service.Create(r.Context(), actor, task.CreateInput{
		Title:      req.Title,
		Deadline:   deadline,
		Priority:   model.Priority(req.Priority),
		AssignedTo: req.AssignedTo,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTaskResponse(created))
}

// GetTask はタスク詳細を返す。
// GET /api/tasks/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	t, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

// AdvanceStatus はタスクの状態を1段階進める。
// POST /api/tasks/{id}/advance
func (h *TaskHandler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	t, err := h.service.AdvanceStatus(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

// SetStatus はタスクを指定の状態に変更する。次の状態以外は拒否される。
// PATCH /api/tasks/{id}/status
func (h *TaskHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req setStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	t, err := h.service.SetStatus(r.Context(), actor, chi.URLParam(r, "id"), model.TaskStatus(req.Status))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

// Reassign は担当者を変更する。
// PATCH /api/tasks/{id}/assignee
func (h *TaskHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req reassignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	t, err := h.service.Reassign(r.Context(), actor, chi.URLParam(r, "id"), req.AssignedTo)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

// parseDeadline は期限文字列を解析する。空文字はゼロ値を返し、必須チェックはサービス層で行う。
func parseDeadline(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		ID:         t.ID,
		Title:      t.Title,
		Deadline:   t.Deadline,
		Priority:   string(t.Priority),
		Status:     string(t.Status),
		CreatedBy:  t.CreatedBy,
		AssignedTo: t.AssignedTo,
		UserID:     t.UserID,
		CreatedAt:  t.CreatedAt,
	}
}

func toTaskResponses(tasks []model.Task) []taskResponse {
	out := make([]taskResponse, len(tasks))
	for i := range tasks {
		out[i] = toTaskResponse(&tasks[i])
	}
	return out
}
