package service

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/util"
)

// FeedbackStore 批注引擎需要的最小存储面
type FeedbackStore interface {
	FindByID(id string) (*model.Assignment, error)
	UpdateFeedbacks(id string, feedbacks []model.Feedback) error
}

// AnnotationService 批注引擎：把教师评语挂到学生作答的文本片段上（spanned），
// 或挂到整份作答上（general）。批注集合整体随任务文档读写。
type AnnotationService struct {
	Store FeedbackStore
}

func NewAnnotationService(store FeedbackStore) *AnnotationService {
	return &AnnotationService{Store: store}
}

// PendingAnnotation 待提交的批注输入态。EditID 非零表示编辑已有批注。
type PendingAnnotation struct {
	Text      string
	Position  *model.Position
	IsGeneral bool
	EditID    int64
}

// BeginFromSelection 由选区发起批注。选区去空白后为空则静默拒绝（返回 false），
// 不产生任何副作用。坐标仅用于弹层定位。
func (s *AnnotationService) BeginFromSelection(selectedText string, pos model.Position) (*PendingAnnotation, bool) {
	trimmed := strings.TrimSpace(selectedText)
	if trimmed == "" {
		return nil, false
	}
	p := pos
	return &PendingAnnotation{Text: trimmed, Position: &p}, true
}

// BeginGeneral 发起整体批注，不绑定任何选区
func (s *AnnotationService) BeginGeneral() *PendingAnnotation {
	return &PendingAnnotation{IsGeneral: true}
}

// Commit 提交批注内容。编辑态只改 comment 与 timestamp；新建态生成毫秒级
// 唯一 ID 并校验选区文本确在学生作答中（按空白归一化比对）。
// 整个集合作为一次写入持久化并返回，供调用方做乐观更新。
func (s *AnnotationService) Commit(assignmentID string, pending *PendingAnnotation, comment string) ([]model.Feedback, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, util.ErrEmptyComment
	}

	assignment, err := s.Store.FindByID(assignmentID)
	if err != nil {
		return nil, util.ErrAssignmentNotFound
	}
	feedbacks := assignment.Feedbacks

	if pending.EditID != 0 {
		return s.edit(assignmentID, feedbacks, pending.EditID, comment)
	}

	if !pending.IsGeneral {
		if !containsNormalized(assignment.Content.StudentContent, pending.Text) {
			return nil, util.ErrTextNotInContent
		}
	}

	fb := model.Feedback{
		ID:        NewFeedbackID(feedbacks),
		Text:      pending.Text,
		Comment:   comment,
		Position:  pending.Position,
		Timestamp: model.NowISO(),
		IsGeneral: pending.IsGeneral,
	}
	feedbacks = append(feedbacks, fb)

	if err := s.Store.UpdateFeedbacks(assignmentID, feedbacks); err != nil {
		return nil, err
	}
	return feedbacks, nil
}

// Edit 按 ID 修改评语正文；选区锚文本、坐标、类别与 ID 均保持不变
func (s *AnnotationService) Edit(assignmentID string, feedbackID int64, comment string) ([]model.Feedback, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, util.ErrEmptyComment
	}
	assignment, err := s.Store.FindByID(assignmentID)
	if err != nil {
		return nil, util.ErrAssignmentNotFound
	}
	return s.edit(assignmentID, assignment.Feedbacks, feedbackID, comment)
}

func (s *AnnotationService) edit(assignmentID string, feedbacks []model.Feedback, feedbackID int64, comment string) ([]model.Feedback, error) {
	found := false
	for i := range feedbacks {
		if feedbacks[i].ID == feedbackID {
			feedbacks[i].Comment = comment
			feedbacks[i].Timestamp = model.NowISO()
			found = true
			break
		}
	}
	if !found {
		return nil, util.ErrFeedbackNotFound
	}
	if err := s.Store.UpdateFeedbacks(assignmentID, feedbacks); err != nil {
		return nil, err
	}
	return feedbacks, nil
}

// Remove 按 ID 删除批注；ID 不存在时为幂等空操作
func (s *AnnotationService) Remove(assignmentID string, feedbackID int64) ([]model.Feedback, error) {
	assignment, err := s.Store.FindByID(assignmentID)
	if err != nil {
		return nil, util.ErrAssignmentNotFound
	}

	feedbacks := assignment.Feedbacks
	kept := feedbacks[:0:0]
	removed := false
	for _, fb := range feedbacks {
		if fb.ID == feedbackID {
			removed = true
			continue
		}
		kept = append(kept, fb)
	}
	if !removed {
		return feedbacks, nil
	}

	if err := s.Store.UpdateFeedbacks(assignmentID, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// NewFeedbackID 生成集合内唯一的毫秒时间戳 ID，碰撞时递增
func NewFeedbackID(existing []model.Feedback) int64 {
	id := time.Now().UnixMilli()
	for hasFeedbackID(existing, id) {
		id++
	}
	return id
}

func hasFeedbackID(feedbacks []model.Feedback, id int64) bool {
	for _, fb := range feedbacks {
		if fb.ID == id {
			return true
		}
	}
	return false
}

// GeneralFeedbacks 整体批注子集
func GeneralFeedbacks(feedbacks []model.Feedback) []model.Feedback {
	var out []model.Feedback
	for _, fb := range feedbacks {
		if fb.IsGeneral {
			out = append(out, fb)
		}
	}
	return out
}

// SpannedFeedbacks 选区批注子集
func SpannedFeedbacks(feedbacks []model.Feedback) []model.Feedback {
	var out []model.Feedback
	for _, fb := range feedbacks {
		if !fb.IsGeneral {
			out = append(out, fb)
		}
	}
	return out
}

// markSpan 一次命中的标记区间
type markSpan struct {
	start int
	end   int
	id    int64
}

// RenderAnnotated 把选区批注以 <mark> 标记注入正文。
// 逐条做字面量子串查找而非正则替换：锚文本来自用户选区，不能进正则引擎。
// 最长锚文本优先占位，短锚文本命中已占用区间时跳过，因此互相包含的锚文本
// 不会嵌套或撕裂标记。锚文本在当前正文中找不到时，该批注只是不出现在
// 渲染结果里，存储中保持原样。输出对同样输入完全确定。
func RenderAnnotated(content string, feedbacks []model.Feedback, readOnly bool) string {
	spanned := SpannedFeedbacks(feedbacks)
	if len(spanned) == 0 || content == "" {
		return content
	}

	// 长文本优先；等长时按 ID 保证确定性
	sort.SliceStable(spanned, func(i, j int) bool {
		if len(spanned[i].Text) != len(spanned[j].Text) {
			return len(spanned[i].Text) > len(spanned[j].Text)
		}
		return spanned[i].ID < spanned[j].ID
	})

	var marks []markSpan
	for _, fb := range spanned {
		if fb.Text == "" {
			continue
		}
		marks = append(marks, findOccurrences(content, fb.Text, fb.ID, marks)...)
	}

	if len(marks) == 0 {
		return content
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].start < marks[j].start })

	var b strings.Builder
	b.Grow(len(content) + len(marks)*64)
	cursor := 0
	for _, m := range marks {
		b.WriteString(content[cursor:m.start])
		if readOnly {
			fmt.Fprintf(&b, `<mark class="feedback-mark" data-feedback-id="%d">`, m.id)
		} else {
			fmt.Fprintf(&b, `<mark class="feedback-mark" data-feedback-id="%d" data-actions="edit,remove">`, m.id)
		}
		b.WriteString(content[m.start:m.end])
		b.WriteString(`</mark>`)
		cursor = m.end
	}
	b.WriteString(content[cursor:])
	return b.String()
}

// findOccurrences 收集 needle 在 content 中所有不与已占用区间重叠的命中
func findOccurrences(content, needle string, id int64, occupied []markSpan) []markSpan {
	var out []markSpan
	from := 0
	for {
		idx := strings.Index(content[from:], needle)
		if idx < 0 {
			break
		}
		start := from + idx
		end := start + len(needle)
		if overlapsAny(start, end, occupied) || overlapsAny(start, end, out) {
			from = start + 1
			continue
		}
		out = append(out, markSpan{start: start, end: end, id: id})
		from = end
	}
	return out
}

func overlapsAny(start, end int, spans []markSpan) bool {
	for _, s := range spans {
		if start < s.end && end > s.start {
			return true
		}
	}
	return false
}

// containsNormalized 空白归一化后的子串判定。
// 学生正文会被继续编辑，偏移量不可信，锚定只认内容本身。
func containsNormalized(content, text string) bool {
	return strings.Contains(normalizeWhitespace(content), normalizeWhitespace(text))
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
