package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	"github.com/yourusername/academy-bot/internal/service"
	"github.com/yourusername/academy-bot/internal/service/quizengine"
)

const (
	// materialPageLen — длина страницы материала в символах
	materialPageLen = 3500
	// messageLen — запас до лимита Telegram в 4096 символов
	messageLen = 4000
	// captionLen — лимит подписи к видео
	captionLen = 1024
	// buttonTextLen — длина текста варианта ответа на кнопке
	buttonTextLen = 50
	// leaderboardTop — размер топа в /leaderboard
	leaderboardTop = 10
)

var medals = []string{"🥇", "🥈", "🥉"}

// esc экранирует пользовательский текст для ParseMode HTML
func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

// truncate обрезает строку до limit символов, добавляя многоточие
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

// SplitText делит текст на страницы не длиннее limit символов.
// Разрез ищется по абзацу, затем по строке, затем по пробелу во второй половине
// окна; если их нет, текст режется ровно по лимиту. Всегда возвращает хотя бы одну страницу.
func SplitText(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var pages []string
	rest := text
	for utf8.RuneCountInString(rest) > limit {
		window := string([]rune(rest)[:limit])
		cut := len(window)
		for _, sep := range []string{"\n\n", "\n", " "} {
			i := strings.LastIndex(window, sep)
			if i > 0 && utf8.RuneCountInString(window[:i]) >= limit/2 {
				cut = i
				break
			}
		}
		pages = append(pages, strings.TrimSpace(rest[:cut]))
		rest = strings.TrimSpace(rest[cut:])
	}
	if rest != "" {
		pages = append(pages, rest)
	}
	return pages
}

func formatWelcome(name string) string {
	return fmt.Sprintf("👋 Добро пожаловать, <b>%s</b>!\n\nВыберите действие:", esc(name))
}

func formatRegistered(u *entity.User) string {
	return fmt.Sprintf(
		"✅ <b>Регистрация завершена!</b>\n\n"+
			"👤 Имя: <b>%s</b>\n"+
			"📅 Возраст: <b>%d</b>\n"+
			"🌍 Страна: <b>%s</b>\n"+
			"🏙️ Город: <b>%s</b>\n\n"+
			"Теперь вы можете начать изучение материалов!",
		esc(u.Name), u.Age, esc(u.Country), esc(u.City),
	)
}

func formatLevels() string {
	var b strings.Builder
	b.WriteString("📚 <b>Выберите уровень сложности</b>\n\n")
	b.WriteString("🔰 Базовый - для начинающих\n")
	b.WriteString("⚡ Средний - для продолжающих\n")
	b.WriteString("🔥 Продвинутый - для опытных\n")
	return b.String()
}

func levelHeading(level entity.Level) string {
	if level == "" {
		return "📚 Все материалы"
	}
	return fmt.Sprintf("%s %s уровень", level.Emoji(), level.Title())
}

func formatMaterialPage(m *entity.Material, page string, index, total int, justStudied bool) string {
	var b strings.Builder
	b.WriteString(materialHeader(m))
	b.WriteString(esc(page))
	if total > 1 {
		fmt.Fprintf(&b, "\n\n📄 <i>Страница %d из %d</i>", index+1, total)
	}
	if justStudied {
		b.WriteString("\n\n✅ Материал отмечен как изученный!")
	}
	return b.String()
}

func materialHeader(m *entity.Material) string {
	return fmt.Sprintf("%s <b>%s</b>\n📊 Уровень: <b>%s</b>\n\n", m.Level.Emoji(), esc(m.Title), m.Level.Title())
}

func formatMaterialInfo(m *entity.Material, questions int) string {
	return fmt.Sprintf(
		"%s <b>%s</b>\n\n"+
			"📊 Уровень: <b>%s</b>\n"+
			"📝 Вопросов в тесте: <b>%d</b>\n"+
			"📄 Длина текста: <b>%d</b> символов",
		m.Level.Emoji(), esc(m.Title), m.Level.Title(), questions, utf8.RuneCountInString(m.Body),
	)
}

func formatQuestion(v *quizengine.QuestionView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 <b>Вопрос %d из %d</b>\n\n%s\n\n", v.Index+1, v.Total, esc(v.Text))
	for i, opt := range v.Options {
		fmt.Fprintf(&b, "%c. %s\n", optionLetter(i), esc(opt))
	}
	b.WriteString("\nВыберите правильный ответ:")
	return b.String()
}

func optionLetter(i int) rune {
	return rune('A' + i)
}

func formatOutcome(o *quizengine.QuizOutcome) string {
	emoji, verdict := "📚", "Рекомендуется перечитать материал."
	switch {
	case o.Percentage >= 80:
		emoji, verdict = "🎉", "Отлично! Вы хорошо усвоили материал!"
	case o.Passed:
		emoji, verdict = "👍", "Хорошо! Но есть что повторить."
	}

	text := fmt.Sprintf(
		"%s <b>Результаты теста</b>\n\n"+
			"✅ Правильных ответов: <b>%d/%d</b>\n"+
			"📊 Оценка: <b>%.1f%%</b>\n\n%s",
		emoji, o.Correct, o.Total, o.Percentage, verdict,
	)
	if o.Passed {
		return text + "\n\n✅ <b>Тест пройден!</b>"
	}
	return text + "\n\n💡 <b>Изучите материал ещё раз и попробуйте пройти тест снова.</b>"
}

func formatLeaderboard(entries []entity.LeaderboardEntry, own *entity.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "📊 Рейтинг пока пуст. Станьте первым!"
	}

	var b strings.Builder
	b.WriteString("🏆 <b>ТОП-10 ПОЛЬЗОВАТЕЛЕЙ</b>\n\n")
	for _, e := range entries {
		medal := "▫️"
		if e.Rank >= 1 && e.Rank <= len(medals) {
			medal = medals[e.Rank-1]
		}
		fmt.Fprintf(&b,
			"%s <b>#%d</b> %s\n"+
				"   🌍 %s, %s | 👤 %d лет\n"+
				"   ⭐ Баллов: %.1f | 📚 Материалов: %d | 📝 Тестов: %d\n\n",
			medal, e.Rank, esc(e.Name),
			esc(e.Country), esc(e.City), e.Age,
			e.TotalScore, e.MaterialsStudied, e.TestsCompleted,
		)
	}

	if own != nil && own.Rank > leaderboardTop {
		b.WriteString("━━━━━━━━━━━━━━━━━━━━\n")
		fmt.Fprintf(&b,
			"📍 <b>Ваше место: #%d</b>\n⭐ Баллов: %.1f\n📚 Материалов: %d\n📝 Тестов: %d\n",
			own.Rank, own.TotalScore, own.MaterialsStudied, own.TestsCompleted,
		)
	}

	b.WriteString("\n💪 Изучайте материалы и проходите тесты, чтобы подняться выше!")
	return b.String()
}

func formatStats(s *service.UserStats) string {
	var b strings.Builder
	b.WriteString("📊 <b>Ваша статистика</b>\n\n")
	fmt.Fprintf(&b, "👤 Имя: <b>%s</b>\n", esc(s.User.Name))
	fmt.Fprintf(&b, "📅 Возраст: <b>%d</b>\n", s.User.Age)
	fmt.Fprintf(&b, "🌍 %s, %s\n\n", esc(s.User.Country), esc(s.User.City))
	fmt.Fprintf(&b, "📚 Изучено материалов: <b>%d/%d</b>\n", s.Studied, s.TotalMaterials)
	fmt.Fprintf(&b, "📈 Прогресс: <b>%.1f%%</b>\n", s.Progress)

	if s.Rating != nil && s.Rating.Rank > 0 {
		fmt.Fprintf(&b, "🏆 Место в рейтинге: <b>#%d</b>\n", s.Rating.Rank)
		fmt.Fprintf(&b, "⭐ Баллов: <b>%.1f</b>\n", s.Rating.TotalScore)
		fmt.Fprintf(&b, "📝 Тестов пройдено: <b>%d</b>\n", s.Rating.TestsCompleted)
	}

	if len(s.RecentResults) > 0 {
		b.WriteString("\n🕑 <b>Последние тесты:</b>\n")
		for _, r := range s.RecentResults {
			title := r.Title
			if title == "" {
				title = fmt.Sprintf("Материал #%d", r.MaterialID)
			}
			fmt.Fprintf(&b, "• %s: %d/%d (%.1f%%)\n", esc(title), r.CorrectCount, r.TotalCount, r.Percentage)
		}
	}
	return b.String()
}

func formatAdminList(infos []service.MaterialInfo, total int) string {
	if total == 0 {
		return "📚 Материалы не найдены"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📚 <b>Всего материалов: %d</b>\n\n", total)
	for _, info := range infos {
		video := "  "
		if info.Material.HasVideo() {
			video = "📹"
		}
		fmt.Fprintf(&b,
			"%s %s <b>ID %d:</b> %s\n   📊 Уровень: %s\n   ❓ Вопросов: %d\n\n",
			info.Material.Level.Emoji(), video, info.Material.ID, esc(info.Material.Title),
			info.Material.Level.Title(), info.QuestionCount,
		)
	}
	if total > len(infos) {
		fmt.Fprintf(&b, "... и ещё %d материалов", total-len(infos))
	}
	return b.String()
}

const adminHelp = "🔧 <b>АДМИНИСТРАТИВНЫЕ КОМАНДЫ</b>\n\n" +
	"➕ <b>/add_material</b> - Добавить новый материал с тестом\n\n" +
	"✏️ <b>/edit_material</b> - Изменить название, дополнить текст, добавить видео\n\n" +
	"❓ <b>/add_question</b> - Добавить вопрос к существующему материалу\n\n" +
	"📋 <b>/list_materials</b> - Список материалов\n\n" +
	"🗑️ <b>/delete_material</b> - Удалить материал\n\n" +
	"📤 <b>/export</b> - Выгрузить рейтинг и результаты в Excel\n\n" +
	"✅ <b>/done</b> - Завершить ввод текста или вопросов\n" +
	"⏭ <b>/skip</b> - Пропустить добавление вопросов\n" +
	"❌ <b>/cancel</b> - Прервать текущий сценарий"

const userHelp = "ℹ️ <b>Команды</b>\n\n" +
	"/start - главное меню\n" +
	"/materials - учебные материалы\n" +
	"/leaderboard - рейтинг\n" +
	"/stats - моя статистика\n" +
	"/ask &lt;вопрос&gt; - спросить ИИ-наставника Specter\n" +
	"/cancel - прервать текущее действие"
