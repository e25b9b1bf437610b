package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yangshinyaw/CIACHR/internal/model"
)

// DocumentServiceInterface は添付ファイルハンドラーが必要とするサービスインターフェース。
type DocumentServiceInterface interface {
	Attach(ctx context.Context, actor model.Actor, taskID, fileName string, size int64) (*model.Document, error)
	ListByTask(ctx context.Context, actor model.Actor, taskID string) ([]model.Document, error)
}

// DocumentHandler は添付ファイルメタデータのHTTPハンドラー。
type DocumentHandler struct {
	service DocumentServiceInterface
}

// NewDocumentHandler はDocumentHandlerを生成する。
func NewDocumentHandler(service DocumentServiceInterface) *DocumentHandler {
	return &DocumentHandler{service: service}
}

type attachDocumentRequest struct {
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
}

type documentResponse struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	FileName  string    `json:"file_name"`
	FileType  string    `json:"file_type"`
	Size      int64     `json:"size"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// ListDocuments はタスクの添付ファイル一覧を返す。
// GET /api/tasks/{id}/documents
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	docs, err := h.service.ListByTask(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]documentResponse, len(docs))
	for i := range docs {
		out[i] = toDocumentResponse(&docs[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// AttachDocument は添付ファイルを検証してメタデータを登録する。
// POST /api/tasks/{id}/documents
func (h *DocumentHandler) AttachDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req attachDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	doc, err := h.service.Attach(r.Context(), actor, chi.URLParam(r, "id"), req.FileName, req.Size)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func toDocumentResponse(d *model.Document) documentResponse {
	return documentResponse{
		ID:        d.ID,
		TaskID:    d.TaskID,
		FileName:  d.FileName,
		FileType:  d.FileType,
		Size:      d.Size,
		CreatedBy: d.CreatedBy,
		CreatedAt: d.CreatedAt,
	}
}
