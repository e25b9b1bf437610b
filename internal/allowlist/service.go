// Package allowlist はIP許可リストの管理（管理者のみ）を提供する。
package allowlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yangshinyaw/CIACHR/internal/model"
	"github.com/yangshinyaw/CIACHR/internal/repository"
)

// Service は許可リスト管理のサービス層。
type Service struct {
	repo repository.AllowedIPRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.AllowedIPRepository) *Service {
	return &Service{repo: repo}
}

// NormalizeIP はIPアドレスのリテラルを検証し、正規形の文字列を返す。
// CIDRやゾーン付きのアドレスは受け付けない。
func NormalizeIP(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	addr, err := netip.ParseAddr(s)
	if err != nil || addr.Zone() != "" {
		return "", model.NewInvalidIPAddressError(raw)
	}
	return addr.String(), nil
}

// List は許可リストを返す。
func (s *Service) List(ctx context.Context, actor model.Actor) ([]model.AllowedIP, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("許可リストの取得に失敗しました: %w", err)
	}
	return entries, nil
}

// Create は許可IPを登録する。
func (s *Service) Create(ctx context.Context, actor model.Actor, ip string, description *string) (*model.AllowedIP, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	normalized, err := NormalizeIP(ip)
	if err != nil {
		return nil, err
	}

	if description != nil {
		d := strings.TrimSpace(*description)
		if d == "" {
			description = nil
		} else {
			description = &d
		}
	}

	entry := &model.AllowedIP{
		ID:          uuid.New().String(),
		IPAddress:   normalized,
		Description: description,
		CreatedBy:   actor.UserID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateIPError(normalized)
		}
		return nil, fmt.Errorf("許可IPの登録に失敗しました: %w", err)
	}

	slog.Info("許可IPを登録しました",
		slog.String("ip", normalized),
		slog.String("user_id", actor.UserID),
	)
	return entry, nil
}

// Delete は許可IPを削除する。
func (s *Service) Delete(ctx context.Context, actor model.Actor, id string) error {
	if !actor.IsAdmin() {
		return model.NewForbiddenError()
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("許可IPの削除に失敗しました: %w", err)
	}
	if !ok {
		return model.NewAllowedIPNotFoundError(id)
	}

	slog.Info("許可IPを削除しました",
		slog.String("allowed_ip_id", id),
		slog.String("user_id", actor.UserID),
	)
	return nil
}
