package telegram

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
	"github.com/yourusername/academy-bot/internal/service/quizengine"
)

func TestSplitText_ShortTextIsOnePage(t *testing.T) {
	assert.Equal(t, []string{"Короткий текст"}, SplitText("  Короткий текст \n", 100))
	assert.Equal(t, []string{""}, SplitText("", 100))
}

func TestSplitText_PrefersParagraphBreak(t *testing.T) {
	first := strings.Repeat("а", 60)
	second := strings.Repeat("б", 60)
	text := first + "\n\n" + second

	pages := SplitText(text, 100)

	assert.Equal(t, []string{first, second}, pages)
}

func TestSplitText_FallsBackToSpace(t *testing.T) {
	words := strings.Repeat("слово ", 50)

	pages := SplitText(words, 40)

	for _, p := range pages {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), 40)
		assert.False(t, strings.HasPrefix(p, " "))
		assert.NotContains(t, p, "сл ", "words are not cut")
	}
	assert.Equal(t, strings.TrimSpace(words), strings.Join(pages, " "))
}

func TestSplitText_HardCutWithoutSeparators(t *testing.T) {
	text := strings.Repeat("ж", 250)

	pages := SplitText(text, 100)

	assert.Len(t, pages, 3)
	assert.Equal(t, 100, utf8.RuneCountInString(pages[0]))
	assert.Equal(t, 50, utf8.RuneCountInString(pages[2]))
	assert.Equal(t, text, strings.Join(pages, ""))
}

func TestUserMessage_MapsSentinels(t *testing.T) {
	cases := []struct {
		err      error
		contains string
		expected bool
	}{
		{fmt.Errorf("wrap: %w", apperrors.ErrForbidden), "недоступно", true},
		{fmt.Errorf("wrap: %w", apperrors.ErrStaleSubmission), "уже отвечен", true},
		{fmt.Errorf("wrap: %w", apperrors.ErrTooManyRequests), "Слишком много", true},
		{fmt.Errorf("wrap: %w", apperrors.ErrUpstream), "наставник", false},
		{errNotRegistered, "/start", true},
		{errors.New("connection reset"), "Произошла ошибка", false},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Contains(t, userMessage(tc.err), tc.contains)
			assert.Equal(t, tc.expected, expected(tc.err))
		})
	}
}

func TestUserMessage_DoesNotLeakInternals(t *testing.T) {
	err := fmt.Errorf("%w: pq: relation \"users\" does not exist", apperrors.ErrNotFound)
	assert.NotContains(t, userMessage(err), "pq")
}

func leaderboardEntries(n int) []entity.LeaderboardEntry {
	entries := make([]entity.LeaderboardEntry, n)
	for i := range entries {
		entries[i] = entity.LeaderboardEntry{
			Rating: entity.Rating{UserID: int64(i + 1), Rank: i + 1, TotalScore: float64(100 - i)},
			Name:   fmt.Sprintf("Ученик <%d>", i+1),
		}
	}
	return entries
}

func TestFormatLeaderboard_OwnRankOutsideTop(t *testing.T) {
	own := &entity.LeaderboardEntry{Rating: entity.Rating{UserID: 99, Rank: 42, TotalScore: 7.5}}

	text := formatLeaderboard(leaderboardEntries(10), own)

	assert.Contains(t, text, "🥇")
	assert.Contains(t, text, "Ваше место: #42")
	assert.Contains(t, text, "Ученик &lt;1&gt;", "names are escaped")
}

func TestFormatLeaderboard_OwnRankInsideTopIsNotRepeated(t *testing.T) {
	own := &entity.LeaderboardEntry{Rating: entity.Rating{UserID: 3, Rank: 3}}

	text := formatLeaderboard(leaderboardEntries(10), own)

	assert.NotContains(t, text, "Ваше место")
}

func TestFormatLeaderboard_Empty(t *testing.T) {
	assert.Contains(t, formatLeaderboard(nil, nil), "пуст")
}

func TestFormatOutcome_Verdicts(t *testing.T) {
	cases := []struct {
		outcome quizengine.QuizOutcome
		emoji   string
	}{
		{quizengine.QuizOutcome{Correct: 5, Total: 5, Percentage: 100, Passed: true}, "🎉"},
		{quizengine.QuizOutcome{Correct: 7, Total: 10, Percentage: 70, Passed: true}, "👍"},
		{quizengine.QuizOutcome{Correct: 1, Total: 10, Percentage: 10}, "📚"},
	}
	for _, tc := range cases {
		t.Run(tc.emoji, func(t *testing.T) {
			text := formatOutcome(&tc.outcome)
			assert.True(t, strings.HasPrefix(text, tc.emoji))
			assert.Contains(t, text, fmt.Sprintf("%d/%d", tc.outcome.Correct, tc.outcome.Total))
		})
	}
}

func TestAnswerKeyboard_FitsCallbackLimit(t *testing.T) {
	view := &quizengine.QuestionView{
		MaterialID: 4294967295,
		Index:      99,
		Total:      100,
		Text:       "Вопрос",
		Options:    []string{strings.Repeat("очень длинный вариант ", 10), "коротко"},
	}

	kb := answerKeyboard(9223372036854775807, view)

	for _, r := range kb.InlineKeyboard {
		for _, btn := range r {
			assert.LessOrEqual(t, len(*btn.CallbackData), MaxPayloadLen)
		}
	}
	assert.LessOrEqual(t, utf8.RuneCountInString(kb.InlineKeyboard[0][0].Text), buttonTextLen+len("A. ..."))
}
