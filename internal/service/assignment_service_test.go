package service

import (
	"fmt"
	"sync"
	"testing"

	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssignmentStore struct {
	mu          sync.Mutex
	assignments map[string]*model.Assignment
	seq         int
}

func newFakeAssignmentStore() *fakeAssignmentStore {
	return &fakeAssignmentStore{assignments: map[string]*model.Assignment{}}
}

func (f *fakeAssignmentStore) CreateBatch(assignments []model.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range assignments {
		f.seq++
		a := assignments[i]
		a.ID = fmt.Sprintf("a%d", f.seq)
		f.assignments[a.ID] = &a
	}
	return nil
}

func (f *fakeAssignmentStore) FindByID(id string) (*model.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok {
		return nil, fmt.Errorf("assignment %s not found", id)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAssignmentStore) ListByLesson(lessonID string) ([]model.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Assignment
	for _, a := range f.assignments {
		if a.LessonID == lessonID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAssignmentStore) ListByStudent(studentID uint) ([]model.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Assignment
	for _, a := range f.assignments {
		if a.StudentID == studentID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAssignmentStore) UpdateStatus(id string, state model.ReviewState, history []model.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.assignments[id]
	a.SetState(state)
	a.EditHistory = history
	return nil
}

func (f *fakeAssignmentStore) UpdateStudentContent(id string, content model.AssignmentContent, history []model.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.assignments[id]
	a.Content = content
	a.EditHistory = history
	return nil
}

type fakeDirectory struct {
	students []model.User
}

func (f *fakeDirectory) FindByID(id uint) (*model.User, error) {
	for i := range f.students {
		if f.students[i].ID == id {
			return &f.students[i], nil
		}
	}
	return nil, util.ErrUserNotFound
}

func (f *fakeDirectory) ListActiveStudentsByCycle(cycleID string) ([]model.User, error) {
	var out []model.User
	for _, s := range f.students {
		if s.CycleID == cycleID && s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func studentWithID(id uint, cycleID string) model.User {
	u := model.User{CycleID: cycleID, IsActive: true, Role: model.Student}
	u.ID = id
	u.Email = fmt.Sprintf("s%d@example.com", id)
	return u
}

func newAssignmentFixture(students ...model.User) (*AssignmentService, *fakeAssignmentStore) {
	store := newFakeAssignmentStore()
	dir := &fakeDirectory{students: students}
	return NewAssignmentService(store, dir, NewConsoleEmailService()), store
}

func TestDistributeCreatesPerStudent(t *testing.T) {
	svc, store := newAssignmentFixture(
		studentWithID(1, "c1"),
		studentWithID(2, "c1"),
		studentWithID(3, "c2"), // 其它周期,不应收到
	)

	created, err := svc.Distribute(DistributeInput{
		LessonID: "l1",
		CycleID:  "c1",
		Title:    "第一课作业",
		Template: "<p>模板</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	list, _ := store.ListByLesson("l1")
	require.Len(t, list, 2)
	for _, a := range list {
		assert.Equal(t, model.StateDraft, a.State())
		assert.Equal(t, "pending", a.Status)
		assert.Equal(t, "new", a.TeacherStatus)
		assert.Equal(t, "<p>模板</p>", a.Content.Template)
		assert.Equal(t, "<p>模板</p>", a.Content.StudentContent)
	}
}

func TestDistributeSkipsExisting(t *testing.T) {
	svc, store := newAssignmentFixture(
		studentWithID(1, "c1"),
		studentWithID(2, "c1"),
	)

	created, err := svc.Distribute(DistributeInput{LessonID: "l1", CycleID: "c1", Title: "作业"})
	require.NoError(t, err)
	require.Equal(t, 2, created)

	// 新学生入周期后重跑,只给新学生建
	svc.UserRepo.(*fakeDirectory).students = append(
		svc.UserRepo.(*fakeDirectory).students, studentWithID(3, "c1"))

	created, err = svc.Distribute(DistributeInput{LessonID: "l1", CycleID: "c1", Title: "作业"})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	list, _ := store.ListByLesson("l1")
	assert.Len(t, list, 3)
}

func TestStudentSubmitFlow(t *testing.T) {
	svc, store := newAssignmentFixture(studentWithID(1, "c1"))
	_, err := svc.Distribute(DistributeInput{LessonID: "l1", CycleID: "c1", Title: "作业"})
	require.NoError(t, err)
	id := firstAssignmentID(store)

	// 草稿可写
	a, err := svc.SaveContent(id, 1, "<p>我的作答</p>")
	require.NoError(t, err)
	assert.Equal(t, "<p>我的作答</p>", a.Content.StudentContent)
	assert.Len(t, a.EditHistory, 1)

	a, err = svc.Submit(id, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StateSubmitted, a.State())

	// 已提交后锁定
	_, err = svc.SaveContent(id, 1, "<p>改一下</p>")
	assert.ErrorIs(t, err, util.ErrContentLocked)

	// 重复提交不合法
	_, err = svc.Submit(id, 1)
	assert.ErrorIs(t, err, util.ErrInvalidTransition)
}

func TestTeacherReviewCycle(t *testing.T) {
	svc, store := newAssignmentFixture(studentWithID(1, "c1"))
	svc.Distribute(DistributeInput{LessonID: "l1", CycleID: "c1", Title: "作业"})
	id := firstAssignmentID(store)

	svc.SaveContent(id, 1, "<p>第一版</p>")
	_, err := svc.Submit(id, 1)
	require.NoError(t, err)

	a, err := svc.TeacherAction(id, "review")
	require.NoError(t, err)
	assert.Equal(t, model.StateUnderReview, a.State())

	a, err = svc.TeacherAction(id, "revision")
	require.NoError(t, err)
	assert.Equal(t, model.StateRevisionRequested, a.State())
	assert.Equal(t, "feedback", a.Status)
	assert.Equal(t, "revision", a.TeacherStatus)

	// 返修状态下学生可再编辑并重新提交
	_, err = svc.SaveContent(id, 1, "<p>第二版</p>")
	require.NoError(t, err)
	a, err = svc.Submit(id, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StateResubmitted, a.State())

	a, err = svc.TeacherAction(id, "completed")
	require.NoError(t, err)
	assert.Equal(t, model.StateCompleted, a.State())

	// 完结后不再接受批改动作
	_, err = svc.TeacherAction(id, "review")
	assert.ErrorIs(t, err, util.ErrInvalidTransition)

	// 每一步状态变化都进了历史
	stored, _ := store.FindByID(id)
	assert.GreaterOrEqual(t, len(stored.EditHistory), 5)
}

func TestStudentOwnershipGuard(t *testing.T) {
	svc, store := newAssignmentFixture(studentWithID(1, "c1"), studentWithID(2, "c1"))
	svc.Distribute(DistributeInput{LessonID: "l1", CycleID: "c1", Title: "作业"})
	id := firstAssignmentID(store)

	owner := store.assignments[id].StudentID
	var other uint = 1
	if owner == 1 {
		other = 2
	}

	_, err := svc.GetForStudent(id, other)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = svc.SaveContent(id, other, "content")
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func firstAssignmentID(store *fakeAssignmentStore) string {
	for id := range store.assignments {
		return id
	}
	return ""
}
