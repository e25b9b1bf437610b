package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yangshinyaw/CIACHR/internal/gate"
	"github.com/yangshinyaw/CIACHR/internal/model"
)

// FailedLoginRecorder はログイン失敗の記録に必要なサービスインターフェース。
type FailedLoginRecorder interface {
	Record(ctx context.Context, email, ip string) (*model.FailedLoginAttempt, error)
}

// FailedLoginHandler はログイン失敗の報告エンドポイント。
type FailedLoginHandler struct {
	recorder FailedLoginRecorder
}

// NewFailedLoginHandler はFailedLoginHandlerを生成する。
func NewFailedLoginHandler(recorder FailedLoginRecorder) *FailedLoginHandler {
	return &FailedLoginHandler{recorder: recorder}
}

type failedLoginRequest struct {
	Email     string `json:"email"`
	IPAddress string `json:"ip_address"`
}

// Report はログイン失敗を1回分記録する。
// ip_addressが省略された場合はX-Real-IP、次に転送ヘッダーから送信元を決める。
// POST /api/auth/failed-login, /functions/v1/handle-failed-login
func (h *FailedLoginHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req failedLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusInternalServerError, simpleErrorResponse{Error: err.Error()})
		return
	}

	ip := strings.TrimSpace(req.IPAddress)
	if ip == "" {
		ip = strings.TrimSpace(r.Header.Get("X-Real-IP"))
	}
	if ip == "" {
		ip = gate.ClientIP(r)
	}

	if _, err := h.recorder.Record(r.Context(), req.Email, ip); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			writeJSON(w, http.StatusBadRequest, simpleErrorResponse{Error: apiErr.Message})
			return
		}
		slog.Error("ログイン失敗の記録に失敗しました", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, simpleErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Failed login attempt logged successfully"})
}
