package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateProjections(t *testing.T) {
	cases := []struct {
		state         ReviewState
		status        string
		teacherStatus string
	}{
		{StateDraft, "pending", "new"},
		{StateSubmitted, "submitted", "submitted"},
		{StateUnderReview, "review", "review"},
		{StateRevisionRequested, "feedback", "revision"},
		{StateCompleted, "feedback", "completed"},
		{StateResubmitted, "resubmitted", "resubmitted"},
	}

	for _, c := range cases {
		assert.Equal(t, c.status, c.state.StudentStatus(), string(c.state))
		assert.Equal(t, c.teacherStatus, c.state.TeacherStatus(), string(c.state))

		// 投影可逆:两个字段能还原出规范状态
		assert.Equal(t, c.state, ReviewStateOf(c.status, c.teacherStatus), string(c.state))
	}
}

func TestCanStudentEdit(t *testing.T) {
	assert.True(t, StateDraft.CanStudentEdit())
	assert.True(t, StateRevisionRequested.CanStudentEdit())

	for _, s := range []ReviewState{StateSubmitted, StateUnderReview, StateResubmitted, StateCompleted} {
		assert.False(t, s.CanStudentEdit(), string(s))
	}
}

func TestNextOnSubmit(t *testing.T) {
	next, ok := StateDraft.NextOnSubmit()
	require.True(t, ok)
	assert.Equal(t, StateSubmitted, next)

	next, ok = StateRevisionRequested.NextOnSubmit()
	require.True(t, ok)
	assert.Equal(t, StateResubmitted, next)

	for _, s := range []ReviewState{StateSubmitted, StateUnderReview, StateResubmitted, StateCompleted} {
		_, ok := s.NextOnSubmit()
		assert.False(t, ok, string(s))
	}
}

func TestNextOnTeacherAction(t *testing.T) {
	for _, from := range []ReviewState{StateSubmitted, StateUnderReview, StateResubmitted} {
		next, ok := from.NextOnTeacherAction("review")
		require.True(t, ok, string(from))
		assert.Equal(t, StateUnderReview, next)

		next, ok = from.NextOnTeacherAction("completed")
		require.True(t, ok, string(from))
		assert.Equal(t, StateCompleted, next)

		next, ok = from.NextOnTeacherAction("revision")
		require.True(t, ok, string(from))
		assert.Equal(t, StateRevisionRequested, next)
	}

	// 未提交或已终结的作业不接受批改动作
	for _, from := range []ReviewState{StateDraft, StateRevisionRequested, StateCompleted} {
		_, ok := from.NextOnTeacherAction("review")
		assert.False(t, ok, string(from))
	}

	_, ok := StateSubmitted.NextOnTeacherAction("bogus")
	assert.False(t, ok)
}

func TestSetStateRoundTrip(t *testing.T) {
	a := &Assignment{}
	for _, s := range []ReviewState{StateDraft, StateSubmitted, StateUnderReview, StateRevisionRequested, StateResubmitted, StateCompleted} {
		a.SetState(s)
		assert.Equal(t, s, a.State(), string(s))
	}
}

func TestChatUnreadByRole(t *testing.T) {
	u := UnreadCount{Teacher: 3, Student: 7}
	assert.Equal(t, 3, u.ByRole(RoleTeacher))
	assert.Equal(t, 7, u.ByRole(RoleStudent))

	assert.Equal(t, RoleStudent, RoleTeacher.Other())
	assert.Equal(t, RoleTeacher, RoleStudent.Other())
	assert.False(t, ChatRole("admin").Valid())
}
