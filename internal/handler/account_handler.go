package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// AccountRemover は一括アカウント削除に必要なサービスインターフェース。
type AccountRemover interface {
	Authorize(username, password string) bool
	RemoveAll(ctx context.Context, userIDs []string) []string
}

// AccountHandler は一括アカウント削除のHTTPハンドラー。
type AccountHandler struct {
	service AccountRemover
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountRemover) *AccountHandler {
	return &AccountHandler{service: service}
}

type deleteAccountsRequest struct {
	UserIDs       []string `json:"userIds"`
	AdminUsername string   `json:"adminUsername"`
	AdminPassword string   `json:"adminPassword"`
}

// DeleteAccounts は指定されたアカウントと関連データを削除する。
// 一部のIDで失敗しても他のIDの削除は取り消さない。
// POST /api/admin/accounts/delete, /functions/v1/delete-users
func (h *AccountHandler) DeleteAccounts(w http.ResponseWriter, r *http.Request) {
	var req deleteAccountsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		slog.Error("一括削除リクエストの解析に失敗しました", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, simpleErrorResponse{Error: "Internal server error"})
		return
	}

	if !h.service.Authorize(req.AdminUsername, req.AdminPassword) {
		slog.Warn("管理者資格情報が一致しません", slog.String("admin_username", req.AdminUsername))
		writeJSON(w, http.StatusUnauthorized, simpleErrorResponse{Error: "Invalid admin credentials"})
		return
	}

	slog.Info("一括アカウント削除を開始します", slog.Int("count", len(req.UserIDs)))

	if errs := h.service.RemoveAll(r.Context(), req.UserIDs); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, simpleErrorResponse{
			Error:   "Some users could not be deleted",
			Details: errs,
		})
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Users deleted successfully"})
}
