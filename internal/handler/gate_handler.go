package handler

import (
	"log/slog"
	"net/http"

	"github.com/yangshinyaw/CIACHR/internal/gate"
)

// GateHandler はIPアクセスゲートの判定エンドポイント。
type GateHandler struct {
	decider gate.Decider
}

// NewGateHandler はGateHandlerを生成する。
func NewGateHandler(decider gate.Decider) *GateHandler {
	return &GateHandler{decider: decider}
}

// validateResponse は判定結果のレスポンス。
// 内部エラー時のみdetailsを含める。
type validateResponse struct {
	Allowed bool   `json:"allowed"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	IP      string `json:"ip"`
}

// Validate は送信元IPが許可リストに含まれるかを判定する。リクエストボディは読まない。
// GET|POST /api/gate/validate, /functions/v1/validate-ip
func (h *GateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	origin := gate.OriginFromRequest(r)

	decision, err := h.decider.Decide(r.Context(), origin)
	if err != nil {
		slog.Error("IP判定に失敗しました",
			slog.String("ip", origin.IP()),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, validateResponse{
			Allowed: false,
			Message: "Internal server error",
			Details: err.Error(),
			IP:      origin.IP(),
		})
		return
	}

	message := "IP address not allowed"
	if decision.Allowed {
		message = "Access granted"
	}
	writeJSON(w, http.StatusOK, validateResponse{
		Allowed: decision.Allowed,
		Message: message,
		IP:      decision.IP,
	})
}

// unauthorizedPage はIPゲートで拒否されたブラウザに表示する案内。
const unauthorizedPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Access Denied</title></head>
<body>
<h1>Access Denied</h1>
<p>Your IP address is not authorized to access this application. Please contact your administrator.</p>
</body>
</html>
`

// Unauthorized は拒否通知を表示する。
// GET /unauthorized
func (h *GateHandler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(unauthorizedPage))
}
