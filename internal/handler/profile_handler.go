package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/yangshinyaw/CIACHR/internal/mention"
	"github.com/yangshinyaw/CIACHR/internal/model"
)

// profileSearchLimit はメンション候補の最大件数。
const profileSearchLimit = 10

// ProfileSearcher は従業員ディレクトリの前方一致検索。
type ProfileSearcher interface {
	SearchByNamePrefix(ctx context.Context, prefix string, limit int) ([]model.Profile, error)
}

// ProfileHandler は従業員ディレクトリのHTTPハンドラー。
type ProfileHandler struct {
	searcher ProfileSearcher
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(searcher ProfileSearcher) *ProfileHandler {
	return &ProfileHandler{searcher: searcher}
}

type profileResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Search はメンション入力補完の候補を返す。
// GET /api/profiles/search?q=<氏名の前方一致>
// GET /api/profiles/search?text=<カーソル直前の入力> の場合は入力中のメンションから検索語を取り出す。
func (h *ProfileHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	prefix := strings.TrimSpace(query.Get("q"))
	if query.Has("text") {
		q, active := mention.ActiveQuery(query.Get("text"))
		if !active {
			writeJSON(w, http.StatusOK, []profileResponse{})
			return
		}
		prefix = q
	}

	profiles, err := h.searcher.SearchByNamePrefix(r.Context(), prefix, profileSearchLimit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]profileResponse, len(profiles))
	for i, p := range profiles {
		out[i] = profileResponse{ID: p.ID, Email: p.Email, FullName: p.FullName}
	}
	writeJSON(w, http.StatusOK, out)
}
