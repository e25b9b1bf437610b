// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yangshinyaw/CIACHR/internal/model"
)

// accessTokenQueryParam はAuthorizationヘッダーを設定できないクライアント（EventSource）向けのトークン指定。
const accessTokenQueryParam = "access_token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// actorContextKey はリクエストコンテキストに操作者を格納するためのキー。
var actorContextKey = contextKey("actor")

// Claims はIDプロバイダーが発行するアクセストークンのクレーム。
// subjectがプロフィールIDを表す。
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ProfileFinder はトークンの主体に対応するプロフィールの検索に必要なインターフェース。
type ProfileFinder interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}

// NewAuthMiddleware はBearerトークンを検証し、操作者をリクエストコンテキストに注入するミドルウェアを返す。
// 権限ロールはトークンではなく従業員ディレクトリの値を使う。
// 未認証リクエストには401 Unauthorizedを返す。
func NewAuthMiddleware(secret []byte, profiles ProfileFinder) func(next http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	keyFunc := func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. トークンを取得
			raw := bearerToken(r)
			if raw == "" {
				WriteUnauthorized(w)
				return
			}

			// 2. 署名と有効期限を検証
			claims := &Claims{}
			if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
				slog.Warn("invalid access token", slog.String("error", err.Error()))
				WriteUnauthorized(w)
				return
			}
			if claims.Subject == "" {
				WriteUnauthorized(w)
				return
			}

			// 3. 従業員ディレクトリで主体を確認
			profile, err := profiles.FindByID(r.Context(), claims.Subject)
			if err != nil {
				slog.Error("failed to find profile",
					slog.String("user_id", claims.Subject),
					slog.String("error", err.Error()),
				)
				WriteUnauthorized(w)
				return
			}
			if profile == nil {
				WriteUnauthorized(w)
				return
			}

			// 4. 操作者をコンテキストに注入
			actor := model.Actor{
				UserID: profile.ID,
				Email:  profile.Email,
				Role:   profile.Role,
			}
			noteActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}

// NewAdminOnlyMiddleware は管理者ロール以外のリクエストに403を返すミドルウェアを返す。
// NewAuthMiddlewareの後に配置する。
func NewAdminOnlyMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				WriteUnauthorized(w)
				return
			}
			if !actor.IsAdmin() {
				WriteForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if r.Method == http.MethodGet {
		return r.URL.Query().Get(accessTokenQueryParam)
	}
	return ""
}

// ActorFromContext はリクエストコンテキストから操作者を取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(model.Actor)
	if !ok || actor.UserID == "" {
		return model.Actor{}, false
	}
	return actor, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("user ID not found in context")
	}
	return actor.UserID, nil
}

// ContextWithActor はコンテキストに操作者を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}
