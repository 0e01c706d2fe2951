package service

import (
	"strings"
	"testing"

	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeedbackStore struct {
	assignment *model.Assignment
	saves      int
}

func (f *fakeFeedbackStore) FindByID(id string) (*model.Assignment, error) {
	return f.assignment, nil
}

func (f *fakeFeedbackStore) UpdateFeedbacks(id string, feedbacks []model.Feedback) error {
	f.assignment.Feedbacks = feedbacks
	f.saves++
	return nil
}

func newAnnotationFixture(content string, feedbacks ...model.Feedback) (*AnnotationService, *fakeFeedbackStore) {
	store := &fakeFeedbackStore{
		assignment: &model.Assignment{
			Content:   model.AssignmentContent{StudentContent: content},
			Feedbacks: feedbacks,
		},
	}
	store.assignment.ID = "a1"
	return NewAnnotationService(store), store
}

func TestBeginFromSelectionRejectsWhitespace(t *testing.T) {
	svc, _ := newAnnotationFixture("hello world")

	pending, ok := svc.BeginFromSelection("   \n\t ", model.Position{X: 10, Y: 20})
	assert.False(t, ok)
	assert.Nil(t, pending)
}

func TestBeginFromSelectionTrims(t *testing.T) {
	svc, _ := newAnnotationFixture("hello world")

	pending, ok := svc.BeginFromSelection("  hello ", model.Position{X: 10, Y: 20})
	require.True(t, ok)
	assert.Equal(t, "hello", pending.Text)
	require.NotNil(t, pending.Position)
	assert.Equal(t, 10.0, pending.Position.X)
}

func TestCommitSpannedFeedback(t *testing.T) {
	svc, store := newAnnotationFixture("say hello world now")

	pending, ok := svc.BeginFromSelection("hello world", model.Position{X: 1, Y: 2})
	require.True(t, ok)

	feedbacks, err := svc.Commit("a1", pending, "用词不错")
	require.NoError(t, err)
	require.Len(t, feedbacks, 1)

	fb := feedbacks[0]
	assert.Equal(t, "hello world", fb.Text)
	assert.Equal(t, "用词不错", fb.Comment)
	assert.False(t, fb.IsGeneral)
	assert.NotZero(t, fb.ID)
	assert.NotEmpty(t, fb.Timestamp)
	assert.Equal(t, 1, store.saves)
}

func TestCommitEmptyComment(t *testing.T) {
	svc, store := newAnnotationFixture("hello world")

	pending, _ := svc.BeginFromSelection("hello", model.Position{})
	_, err := svc.Commit("a1", pending, "   ")
	assert.ErrorIs(t, err, util.ErrEmptyComment)
	assert.Zero(t, store.saves)
}

func TestCommitTextNotInContent(t *testing.T) {
	svc, store := newAnnotationFixture("hello world")

	pending, _ := svc.BeginFromSelection("missing text", model.Position{})
	_, err := svc.Commit("a1", pending, "comment")
	assert.ErrorIs(t, err, util.ErrTextNotInContent)
	assert.Zero(t, store.saves)
}

func TestCommitNormalizesWhitespaceForValidation(t *testing.T) {
	// 选区来自渲染后的 DOM,换行会被折叠成空格
	svc, _ := newAnnotationFixture("first line\n  second line")

	pending, _ := svc.BeginFromSelection("line second", model.Position{})
	_, err := svc.Commit("a1", pending, "跨行选区")
	assert.NoError(t, err)
}

func TestCommitGeneralSkipsContentCheck(t *testing.T) {
	svc, _ := newAnnotationFixture("hello world")

	feedbacks, err := svc.Commit("a1", svc.BeginGeneral(), "整体评语")
	require.NoError(t, err)
	require.Len(t, feedbacks, 1)
	assert.True(t, feedbacks[0].IsGeneral)
	assert.Empty(t, feedbacks[0].Text)
	assert.Nil(t, feedbacks[0].Position)
}

func TestEditPreservesAnchor(t *testing.T) {
	original := model.Feedback{
		ID:        42,
		Text:      "hello",
		Comment:   "旧评语",
		Position:  &model.Position{X: 5, Y: 6},
		Timestamp: "2024-01-01T00:00:00Z",
	}
	svc, _ := newAnnotationFixture("hello world", original)

	feedbacks, err := svc.Edit("a1", 42, "新评语")
	require.NoError(t, err)
	require.Len(t, feedbacks, 1)

	fb := feedbacks[0]
	assert.Equal(t, int64(42), fb.ID)
	assert.Equal(t, "hello", fb.Text)
	assert.Equal(t, "新评语", fb.Comment)
	assert.Equal(t, &model.Position{X: 5, Y: 6}, fb.Position)
	assert.NotEqual(t, original.Timestamp, fb.Timestamp)
}

func TestEditMissingFeedback(t *testing.T) {
	svc, _ := newAnnotationFixture("hello", model.Feedback{ID: 1, Text: "hello"})

	_, err := svc.Edit("a1", 99, "评语")
	assert.ErrorIs(t, err, util.ErrFeedbackNotFound)
}

func TestRemoveIsIdempotent(t *testing.T) {
	svc, store := newAnnotationFixture("hello",
		model.Feedback{ID: 1, Text: "hello"},
		model.Feedback{ID: 2, IsGeneral: true})

	feedbacks, err := svc.Remove("a1", 1)
	require.NoError(t, err)
	assert.Len(t, feedbacks, 1)
	assert.Equal(t, 1, store.saves)

	// 再删同一条:无操作,不触存储
	feedbacks, err = svc.Remove("a1", 1)
	require.NoError(t, err)
	assert.Len(t, feedbacks, 1)
	assert.Equal(t, 1, store.saves)
}

func TestNewFeedbackIDAvoidsCollision(t *testing.T) {
	existing := []model.Feedback{}
	first := NewFeedbackID(existing)
	existing = append(existing, model.Feedback{ID: first})

	second := NewFeedbackID(existing)
	assert.NotEqual(t, first, second)
}

func TestRenderLongestAnchorWins(t *testing.T) {
	feedbacks := []model.Feedback{
		{ID: 1, Text: "hello"},
		{ID: 2, Text: "hello world"},
	}
	out := RenderAnnotated("say hello world now", feedbacks, true)

	assert.Contains(t, out, `data-feedback-id="2">hello world</mark>`)
	assert.NotContains(t, out, `data-feedback-id="1"`)
	// 标记不嵌套
	assert.Equal(t, strings.Count(out, "<mark"), strings.Count(out, "</mark>"))
	assert.Equal(t, 1, strings.Count(out, "<mark"))
}

func TestRenderAllOccurrencesMarked(t *testing.T) {
	feedbacks := []model.Feedback{{ID: 7, Text: "abc"}}
	out := RenderAnnotated("abc then abc again", feedbacks, true)

	assert.Equal(t, 2, strings.Count(out, `data-feedback-id="7"`))
}

func TestRenderDropsMismatchedAnchor(t *testing.T) {
	feedbacks := []model.Feedback{
		{ID: 1, Text: "vanished text"},
		{ID: 2, Text: "still here"},
	}
	out := RenderAnnotated("this text is still here", feedbacks, true)

	assert.NotContains(t, out, `data-feedback-id="1"`)
	assert.Contains(t, out, `data-feedback-id="2">still here</mark>`)
}

func TestRenderIsDeterministic(t *testing.T) {
	content := "alpha beta gamma alpha beta"
	feedbacks := []model.Feedback{
		{ID: 3, Text: "beta"},
		{ID: 1, Text: "alpha beta"},
		{ID: 2, Text: "gamma"},
	}

	first := RenderAnnotated(content, feedbacks, false)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, RenderAnnotated(content, feedbacks, false))
	}
}

func TestRenderPreservesContentOutsideMarks(t *testing.T) {
	content := "say hello world now"
	feedbacks := []model.Feedback{
		{ID: 1, Text: "hello"},
		{ID: 2, Text: "now"},
	}
	out := RenderAnnotated(content, feedbacks, true)

	// 剥掉标记后应还原出原文
	stripped := out
	stripped = strings.ReplaceAll(stripped, `<mark class="feedback-mark" data-feedback-id="1">`, "")
	stripped = strings.ReplaceAll(stripped, `<mark class="feedback-mark" data-feedback-id="2">`, "")
	stripped = strings.ReplaceAll(stripped, "</mark>", "")
	assert.Equal(t, content, stripped)
}

func TestRenderReadOnlyOmitsActions(t *testing.T) {
	feedbacks := []model.Feedback{{ID: 1, Text: "hello"}}

	readOnly := RenderAnnotated("hello", feedbacks, true)
	assert.NotContains(t, readOnly, "data-actions")

	editable := RenderAnnotated("hello", feedbacks, false)
	assert.Contains(t, editable, `data-actions="edit,remove"`)
}

func TestRenderIgnoresGeneralFeedback(t *testing.T) {
	feedbacks := []model.Feedback{{ID: 1, IsGeneral: true, Comment: "整体评语"}}
	out := RenderAnnotated("hello world", feedbacks, true)

	assert.Equal(t, "hello world", out)
}
