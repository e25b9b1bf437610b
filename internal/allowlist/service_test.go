package allowlist

import (
	"context"
	"errors"
	"testing"

	"github.com/yangshinyaw/CIACHR/internal/model"
	"github.com/yangshinyaw/CIACHR/internal/repository"
)

type mockAllowedIPRepo struct {
	entries map[string]model.AllowedIP
	listErr error
	deleted []string
}

func newMockRepo() *mockAllowedIPRepo {
	return &mockAllowedIPRepo{entries: map[string]model.AllowedIP{}}
}

func (m *mockAllowedIPRepo) Exists(ctx context.Context, ip string) (bool, error) {
	for _, e := range m.entries {
		if e.IPAddress == ip {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAllowedIPRepo) List(ctx context.Context) ([]model.AllowedIP, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]model.AllowedIP, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

func (m *mockAllowedIPRepo) Create(ctx context.Context, entry *model.AllowedIP) error {
	if ok, _ := m.Exists(ctx, entry.IPAddress); ok {
		return repository.ErrDuplicate
	}
	m.entries[entry.ID] = *entry
	return nil
}

func (m *mockAllowedIPRepo) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := m.entries[id]; !ok {
		return false, nil
	}
	delete(m.entries, id)
	m.deleted = append(m.deleted, id)
	return true, nil
}

var (
	admin    = model.Actor{UserID: "id-admin", Email: "admin@corp.test", Role: model.RoleAdmin}
	employee = model.Actor{UserID: "id-emp", Email: "emp@corp.test", Role: model.RoleEmployee}
)

func codeOf(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"203.0.113.5", "203.0.113.5", false},
		{" 203.0.113.5 ", "203.0.113.5", false},
		{"2001:DB8::1", "2001:db8::1", false},
		{"0.0.0.0", "0.0.0.0", false},
		{"", "", true},
		{"203.0.113.0/24", "", true},
		{"203.0.113", "", true},
		{"fe80::1%eth0", "", true},
		{"localhost", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeIP(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeIP(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && codeOf(err) != model.ErrCodeInvalidIPAddress {
			t.Errorf("NormalizeIP(%q) code = %q", tt.in, codeOf(err))
		}
		if got != tt.want {
			t.Errorf("NormalizeIP(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCreate(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	desc := "  Head office  "
	entry, err := svc.Create(context.Background(), admin, "203.0.113.5", &desc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.IPAddress != "203.0.113.5" || entry.CreatedBy != "id-admin" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Description == nil || *entry.Description != "Head office" {
		t.Errorf("description = %v", entry.Description)
	}

	blank := "   "
	entry2, err := svc.Create(context.Background(), admin, "198.51.100.1", &blank)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry2.Description != nil {
		t.Errorf("blank description = %q, want nil", *entry2.Description)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	if _, err := svc.Create(context.Background(), admin, "203.0.113.5", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.Create(context.Background(), admin, " 203.0.113.5", nil)
	if codeOf(err) != model.ErrCodeDuplicateIP {
		t.Errorf("err = %v, want DUPLICATE_IP", err)
	}
}

func TestCreate_InvalidIP(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), admin, "not-an-ip", nil)
	if codeOf(err) != model.ErrCodeInvalidIPAddress {
		t.Errorf("err = %v, want INVALID_IP_ADDRESS", err)
	}
	if len(repo.entries) != 0 {
		t.Error("無効なIPが登録されました")
	}
}

func TestAdminOnly(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.List(ctx, employee); codeOf(err) != model.ErrCodeForbidden {
		t.Errorf("List err = %v", err)
	}
	if _, err := svc.Create(ctx, employee, "203.0.113.5", nil); codeOf(err) != model.ErrCodeForbidden {
		t.Errorf("Create err = %v", err)
	}
	if err := svc.Delete(ctx, employee, "x"); codeOf(err) != model.ErrCodeForbidden {
		t.Errorf("Delete err = %v", err)
	}
	if len(repo.entries) != 0 {
		t.Error("権限のない操作で登録されました")
	}
}

func TestDelete(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	entry, _ := svc.Create(context.Background(), admin, "203.0.113.5", nil)
	if err := svc.Delete(context.Background(), admin, entry.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete(context.Background(), admin, entry.ID); codeOf(err) != model.ErrCodeAllowedIPNotFound {
		t.Errorf("second delete err = %v, want ALLOWED_IP_NOT_FOUND", err)
	}
}

func TestList(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	svc.Create(context.Background(), admin, "203.0.113.5", nil)

	entries, err := svc.List(context.Background(), admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}

	repo.listErr = errors.New("db down")
	if _, err := svc.List(context.Background(), admin); err == nil {
		t.Error("expected error")
	}
}
