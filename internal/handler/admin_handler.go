package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yangshinyaw/CIACHR/internal/model"
)

// AllowlistServiceInterface はIP許可リスト管理に必要なサービスインターフェース。
type AllowlistServiceInterface interface {
	List(ctx context.Context, actor model.Actor) ([]model.AllowedIP, error)
	Create(ctx context.Context, actor model.Actor, ip string, description *string) (*model.AllowedIP, error)
	Delete(ctx context.Context, actor model.Actor, id string) error
}

// FailedLoginListerInterface はログイン失敗記録の参照に必要なサービスインターフェース。
type FailedLoginListerInterface interface {
	List(ctx context.Context, actor model.Actor) ([]model.FailedLoginAttempt, error)
}

// AdminHandler は管理者向けのHTTPハンドラー。
type AdminHandler struct {
	allowlist    AllowlistServiceInterface
	failedLogins FailedLoginListerInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(allowlist AllowlistServiceInterface, failedLogins FailedLoginListerInterface) *AdminHandler {
	return &AdminHandler{allowlist: allowlist, failedLogins: failedLogins}
}

type createAllowedIPRequest struct {
	IPAddress   string  `json:"ip_address"`
	Description *string `json:"description"`
}

type allowedIPResponse struct {
	ID          string    `json:"id"`
	IPAddress   string    `json:"ip_address"`
	Description *string   `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type failedLoginResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	IPAddress    string    `json:"ip_address"`
	AttemptCount int       `json:"attempt_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastAttempt  time.Time `json:"last_attempt"`
}

// ListAllowedIPs は許可リストを返す。
// GET /api/admin/allowed-ips
func (h *AdminHandler) ListAllowedIPs(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	entries, err := h.allowlist.List(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]allowedIPResponse, len(entries))
	for i := range entries {
		out[i] = toAllowedIPResponse(&entries[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateAllowedIP は許可IPを登録する。
// POST /api/admin/allowed-ips
func (h *AdminHandler) CreateAllowedIP(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req createAllowedIPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	entry, err := h.allowlist.Create(r.Context(), actor, req.IPAddress, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAllowedIPResponse(entry))
}

// DeleteAllowedIP は許可IPを削除する。
// DELETE /api/admin/allowed-ips/{id}
func (h *AdminHandler) DeleteAllowedIP(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	if err := h.allowlist.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFailedLogins はログイン失敗記録を返す。
// GET /api/admin/failed-logins
func (h *AdminHandler) ListFailedLogins(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	attempts, err := h.failedLogins.List(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]failedLoginResponse, len(attempts))
	for i, a := range attempts {
		out[i] = failedLoginResponse{
			ID:           a.ID,
			Email:        a.Email,
			IPAddress:    a.IPAddress,
			AttemptCount: a.AttemptCount,
			CreatedAt:    a.CreatedAt,
			LastAttempt:  a.LastAttempt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func toAllowedIPResponse(e *model.AllowedIP) allowedIPResponse {
	return allowedIPResponse{
		ID:          e.ID,
		IPAddress:   e.IPAddress,
		Description: e.Description,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
	}
}
