package handler

import (
	"context"
	"net/http"

	"github.com/yangshinyaw/CIACHR/internal/middleware"
	"github.com/yangshinyaw/CIACHR/internal/model"
	"github.com/yangshinyaw/CIACHR/internal/notification"
	"github.com/yangshinyaw/CIACHR/internal/task"
)

var (
	testEmployee = model.Actor{UserID: "user-1", Email: "alice@example.com", Role: model.RoleEmployee}
	testAdmin    = model.Actor{UserID: "admin-1", Email: "carol@example.com", Role: model.RoleAdmin}
)

// withActor は操作者をコンテキストに注入したリクエストを返す。
func withActor(r *http.Request, actor model.Actor) *http.Request {
	return r.WithContext(middleware.ContextWithActor(r.Context(), actor))
}

// --- タスク ---

type mockTaskService struct {
	createFn        func(ctx context.Context, actor model.Actor, in task.CreateInput) (*model.Task, error)
	getFn           func(ctx context.Context, actor model.Actor, taskID string) (*model.Task, error)
	listForUserFn   func(ctx context.Context, actor model.Actor) ([]model.Task, error)
	advanceStatusFn func(ctx context.Context, actor model.Actor, taskID string) (*model.Task, error)
	setStatusFn     func(ctx context.Context, actor model.Actor, taskID string, target model.TaskStatus) (*model.Task, error)
	reassignFn      func(ctx context.Context, actor model.Actor, taskID, assigneeEmail string) (*model.Task, error)
}

func (m *mockTaskService) Create(ctx context.Context, actor model.Actor, in task.CreateInput) (*model.Task, error) {
	return m.createFn(ctx, actor, in)
}
func (m *mockTaskService) Get(ctx context.Context, actor model.Actor, taskID string) (*model.Task, error) {
	return m.getFn(ctx, actor, taskID)
}
func (m *mockTaskService) ListForUser(ctx context.Context, actor model.Actor) ([]model.Task, error) {
	return m.listForUserFn(ctx, actor)
}
func (m *mockTaskService) AdvanceStatus(ctx context.Context, actor model.Actor, taskID string) (*model.Task, error) {
	return m.advanceStatusFn(ctx, actor, taskID)
}
func (m *mockTaskService) SetStatus(ctx context.Context, actor model.Actor, taskID string, target model.TaskStatus) (*model.Task, error) {
	return m.setStatusFn(ctx, actor, taskID, target)
}
func (m *mockTaskService) Reassign(ctx context.Context, actor model.Actor, taskID, assigneeEmail string) (*model.Task, error) {
	return m.reassignFn(ctx, actor, taskID, assigneeEmail)
}

// --- コメント ---

type mockCommentService struct {
	postFn       func(ctx context.Context, actor model.Actor, taskID, content string) (*model.Comment, error)
	listByTaskFn func(ctx context.Context, actor model.Actor, taskID string) ([]model.Comment, error)
}

func (m *mockCommentService) Post(ctx context.Context, actor model.Actor, taskID, content string) (*model.Comment, error) {
	return m.postFn(ctx, actor, taskID, content)
}
func (m *mockCommentService) ListByTask(ctx context.Context, actor model.Actor, taskID string) ([]model.Comment, error) {
	return m.listByTaskFn(ctx, actor, taskID)
}

// --- 添付ファイル ---

type mockDocumentService struct {
	attachFn     func(ctx context.Context, actor model.Actor, taskID, fileName string, size int64) (*model.Document, error)
	listByTaskFn func(ctx context.Context, actor model.Actor, taskID string) ([]model.Document, error)
}

func (m *mockDocumentService) Attach(ctx context.Context, actor model.Actor, taskID, fileName string, size int64) (*model.Document, error) {
	return m.attachFn(ctx, actor, taskID, fileName, size)
}
func (m *mockDocumentService) ListByTask(ctx context.Context, actor model.Actor, taskID string) ([]model.Document, error) {
	return m.listByTaskFn(ctx, actor, taskID)
}

// --- 通知 ---

type mockNotificationService struct {
	listFn        func(ctx context.Context, userID string) (*notification.Summary, error)
	markReadFn    func(ctx context.Context, userID, id string) error
	markAllReadFn func(ctx context.Context, userID string) (int64, error)
	deleteFn      func(ctx context.Context, userID, id string) error
	deleteAllFn   func(ctx context.Context, userID string) (int64, error)
}

func (m *mockNotificationService) List(ctx context.Context, userID string) (*notification.Summary, error) {
	return m.listFn(ctx, userID)
}
func (m *mockNotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return m.markReadFn(ctx, userID, id)
}
func (m *mockNotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return m.markAllReadFn(ctx, userID)
}
func (m *mockNotificationService) Delete(ctx context.Context, userID, id string) error {
	return m.deleteFn(ctx, userID, id)
}
func (m *mockNotificationService) DeleteAll(ctx context.Context, userID string) (int64, error) {
	return m.deleteAllFn(ctx, userID)
}

// --- 管理 ---

type mockAllowlistService struct {
	listFn   func(ctx context.Context, actor model.Actor) ([]model.AllowedIP, error)
	createFn func(ctx context.Context, actor model.Actor, ip string, description *string) (*model.AllowedIP, error)
	deleteFn func(ctx context.Context, actor model.Actor, id string) error
}

func (m *mockAllowlistService) List(ctx context.Context, actor model.Actor) ([]model.AllowedIP, error) {
	return m.listFn(ctx, actor)
}
func (m *mockAllowlistService) Create(ctx context.Context, actor model.Actor, ip string, description *string) (*model.AllowedIP, error) {
	return m.createFn(ctx, actor, ip, description)
}
func (m *mockAllowlistService) Delete(ctx context.Context, actor model.Actor, id string) error {
	return m.deleteFn(ctx, actor, id)
}

type mockFailedLoginService struct {
	recordFn func(ctx context.Context, email, ip string) (*model.FailedLoginAttempt, error)
	listFn   func(ctx context.Context, actor model.Actor) ([]model.FailedLoginAttempt, error)
}

func (m *mockFailedLoginService) Record(ctx context.Context, email, ip string) (*model.FailedLoginAttempt, error) {
	return m.recordFn(ctx, email, ip)
}
func (m *mockFailedLoginService) List(ctx context.Context, actor model.Actor) ([]model.FailedLoginAttempt, error) {
	return m.listFn(ctx, actor)
}

type mockAccountRemover struct {
	authorizeFn func(username, password string) bool
	removeAllFn func(ctx context.Context, userIDs []string) []string
}

func (m *mockAccountRemover) Authorize(username, password string) bool {
	return m.authorizeFn(username, password)
}
func (m *mockAccountRemover) RemoveAll(ctx context.Context, userIDs []string) []string {
	return m.removeAllFn(ctx, userIDs)
}

// --- 従業員ディレクトリ ---

type mockProfileDirectory struct {
	profiles map[string]*model.Profile
	searchFn func(ctx context.Context, prefix string, limit int) ([]model.Profile, error)
}

func (m *mockProfileDirectory) FindByID(_ context.Context, id string) (*model.Profile, error) {
	return m.profiles[id], nil
}
func (m *mockProfileDirectory) SearchByNamePrefix(ctx context.Context, prefix string, limit int) ([]model.Profile, error) {
	return m.searchFn(ctx, prefix, limit)
}
