package comment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yangshinyaw/CIACHR/internal/metrics"
	"github.com/yangshinyaw/CIACHR/internal/model"
)

// --- モック ---

type mockCommentRepo struct {
	created   []*model.Comment
	createErr error
	listFn    func(ctx context.Context, taskID string) ([]model.Comment, error)
}

func (m *mockCommentRepo) Create(ctx context.Context, c *model.Comment) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, c)
	return nil
}

func (m *mockCommentRepo) ListByTask(ctx context.Context, taskID string) ([]model.Comment, error) {
	if m.listFn != nil {
		return m.listFn(ctx, taskID)
	}
	return nil, nil
}

func (m *mockCommentRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return nil
}

type mockTaskFinder struct {
	tasks map[string]model.Task
}

func (m *mockTaskFinder) FindByID(ctx context.Context, id string) (*model.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

type mockDirectory struct {
	profiles []model.Profile
	err      error
}

func (m *mockDirectory) FindByEmails(ctx context.Context, emails []string) ([]model.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Profile
	for _, p := range m.profiles {
		for _, e := range emails {
			if strings.EqualFold(p.Email, e) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

type mockNotifier struct {
	task      model.Task
	author    model.Actor
	mentioned []model.Profile
	calls     int
}

func (m *mockNotifier) NotifyMentions(ctx context.Context, task model.Task, author model.Actor, mentioned []model.Profile) {
	m.calls++
	m.task = task
	m.author = author
	m.mentioned = mentioned
}

type mockMetrics struct {
	metrics.MetricsCollector
	failed []string
}

func (m *mockMetrics) RecordNotificationFailed(notificationType string) {
	m.failed = append(m.failed, notificationType)
}

var author = model.Actor{UserID: "id-carol", Email: "carol@corp.test", Role: model.RoleEmployee}

func newTestService() (*Service, *mockCommentRepo, *mockNotifier) {
	svc, repo, notifier, _, _ := newTestServiceWithDeps()
	return svc, repo, notifier
}

func newTestServiceWithDeps() (*Service, *mockCommentRepo, *mockNotifier, *mockDirectory, *mockMetrics) {
	repo := &mockCommentRepo{}
	notifier := &mockNotifier{}
	tasks := &mockTaskFinder{tasks: map[string]model.Task{
		"t1": {ID: "t1", Title: "Payroll review", CreatedBy: "carol@corp.test", AssignedTo: "bob@corp.test"},
	}}
	dir := &mockDirectory{profiles: []model.Profile{
		{ID: "id-bob", Email: "bob@corp.test"},
		{ID: "id-alice", Email: "alice@corp.test"},
	}}
	collector := &mockMetrics{}
	return NewService(repo, tasks, dir, notifier, collector), repo, notifier, dir, collector
}

// --- テスト ---

func TestPost_ResolvesMentionsAndNotifies(t *testing.T) {
	svc, repo, notifier := newTestService()

	c, err := svc.Post(context.Background(), author, "t1", "ping @bob@corp.test and @x@nowhere.io")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("created = %d, want 1", len(repo.created))
	}
	if len(c.Mentions) != 1 || c.Mentions[0] != "bob@corp.test" {
		t.Errorf("mentions = %v, want [bob@corp.test]", c.Mentions)
	}
	if c.UserID != "id-carol" || c.TaskID != "t1" {
		t.Errorf("comment = %+v", c)
	}

	if notifier.calls != 1 {
		t.Fatalf("notifier calls = %d, want 1", notifier.calls)
	}
	if len(notifier.mentioned) != 1 || notifier.mentioned[0].ID != "id-bob" {
		t.Errorf("mentioned = %+v", notifier.mentioned)
	}
	if notifier.task.Title != "Payroll review" || notifier.author.Email != author.Email {
		t.Errorf("notify args = %+v / %+v", notifier.task, notifier.author)
	}
}

func TestPost_NoMentionsSkipsNotification(t *testing.T) {
	svc, repo, notifier := newTestService()

	c, err := svc.Post(context.Background(), author, "t1", "looks good")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Mentions == nil || len(c.Mentions) != 0 {
		t.Errorf("mentions = %#v, want empty non-nil", c.Mentions)
	}
	if len(repo.created) != 1 || notifier.calls != 0 {
		t.Errorf("created = %d, notifier calls = %d", len(repo.created), notifier.calls)
	}
}

func TestPost_KeepsPlainTextVerbatim(t *testing.T) {
	svc, repo, notifier := newTestService()

	c, err := svc.Post(context.Background(), author, "t1", "  if a<b then ping @bob@corp.test \n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Content != "if a<b then ping @bob@corp.test" {
		t.Errorf("content = %q", c.Content)
	}
	if len(repo.created) != 1 || repo.created[0].Content != c.Content {
		t.Errorf("stored = %+v", repo.created)
	}
	if len(c.Mentions) != 1 || c.Mentions[0] != "bob@corp.test" {
		t.Errorf("mentions = %v, want [bob@corp.test]", c.Mentions)
	}
	if notifier.calls != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.calls)
	}
}

func TestPost_DirectoryFailureStillStoresComment(t *testing.T) {
	svc, repo, notifier, dir, collector := newTestServiceWithDeps()
	dir.err = errors.New("directory down")

	c, err := svc.Post(context.Background(), author, "t1", "ping @bob@corp.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("created = %d, want 1", len(repo.created))
	}
	if c.Mentions == nil || len(c.Mentions) != 0 {
		t.Errorf("mentions = %#v, want empty", c.Mentions)
	}
	if notifier.calls != 0 {
		t.Errorf("notifier calls = %d, want 0", notifier.calls)
	}
	if len(collector.failed) != 1 || collector.failed[0] != string(model.NotificationTypeMention) {
		t.Errorf("failed metrics = %v", collector.failed)
	}
}

func TestPost_EmptyContent(t *testing.T) {
	svc, repo, _ := newTestService()

	for _, content := range []string{"", "   ", "\n\t "} {
		_, err := svc.Post(context.Background(), author, "t1", content)
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmptyComment {
			t.Errorf("content %q: err = %v, want EMPTY_COMMENT", content, err)
		}
	}
	if len(repo.created) != 0 {
		t.Error("空のコメントが保存されました")
	}
}

func TestPost_UnknownTask(t *testing.T) {
	svc, _, notifier := newTestService()

	_, err := svc.Post(context.Background(), author, "missing", "hello @bob@corp.test")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTaskNotFound {
		t.Errorf("err = %v, want TASK_NOT_FOUND", err)
	}
	if notifier.calls != 0 {
		t.Error("存在しないタスクで通知されました")
	}
}

func TestPost_RepositoryErrorSkipsNotification(t *testing.T) {
	svc, repo, notifier := newTestService()
	repo.createErr = errors.New("insert failed")

	if _, err := svc.Post(context.Background(), author, "t1", "hi @bob@corp.test"); err == nil {
		t.Fatal("expected error")
	}
	if notifier.calls != 0 {
		t.Error("保存失敗時に通知されました")
	}
}

func TestListByTask(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.listFn = func(ctx context.Context, taskID string) ([]model.Comment, error) {
		return []model.Comment{{ID: "c2", TaskID: taskID}, {ID: "c1", TaskID: taskID}}, nil
	}

	comments, err := svc.ListByTask(context.Background(), author, "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comments) != 2 || comments[0].ID != "c2" {
		t.Errorf("comments = %+v", comments)
	}

	if _, err := svc.ListByTask(context.Background(), author, "missing"); err == nil {
		t.Error("expected TASK_NOT_FOUND")
	}
}

func TestPost_UnrelatedEmployeeCannotComment(t *testing.T) {
	svc, repo, notifier := newTestService()
	eve := model.Actor{UserID: "id-eve", Email: "eve@corp.test", Role: model.RoleEmployee}

	_, err := svc.Post(context.Background(), eve, "t1", "hi @bob@corp.test")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTaskNotFound {
		t.Errorf("err = %v, want TASK_NOT_FOUND", err)
	}
	if _, err := svc.ListByTask(context.Background(), eve, "t1"); !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTaskNotFound {
		t.Errorf("list err = %v, want TASK_NOT_FOUND", err)
	}
	if len(repo.created) != 0 || notifier.calls != 0 {
		t.Errorf("created = %d, notifier calls = %d", len(repo.created), notifier.calls)
	}
}
