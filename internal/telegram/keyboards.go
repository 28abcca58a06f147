package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	"github.com/yourusername/academy-bot/internal/service/quizengine"
	"github.com/yourusername/academy-bot/internal/wizard"
)

// pickListLimit — сколько материалов показывать в админских списках выбора
const pickListLimit = 15

const levelAll = "all"

func button(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

func row(buttons ...tgbotapi.InlineKeyboardButton) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(buttons...)
}

func homeButton() tgbotapi.InlineKeyboardButton {
	return button("🏠 Главная", tagHome)
}

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		row(button("📚 Изучать материалы", tagLevels)),
		row(button("🏆 Рейтинг", tagLeaderboard)),
		row(button("📊 Моя статистика", tagStats)),
	)
}

func homeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(row(homeButton()))
}

func levelsKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(entity.Levels)+2)
	for _, level := range entity.Levels {
		rows = append(rows, row(button(level.Emoji()+" "+level.Title()+" уровень", payload(tagLevel, level))))
	}
	rows = append(rows,
		row(button("📚 Все материалы", payload(tagLevel, levelAll))),
		row(homeButton()),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func materialsKeyboard(materials []entity.Material, studied map[uint]bool) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(materials)+2)
	for _, m := range materials {
		status := "📖"
		if studied[m.ID] {
			status = "✅"
		}
		rows = append(rows, row(button(status+" "+m.Title, payload(tagMaterial, m.ID, 0))))
	}
	rows = append(rows,
		row(button("📚 К уровням", tagLevels)),
		row(homeButton()),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func materialNavKeyboard(materialID uint, hasTest bool, page, total int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if total > 1 {
		var nav []tgbotapi.InlineKeyboardButton
		if page > 0 {
			nav = append(nav, button("◀️ Назад", payload(tagMaterial, materialID, page-1)))
		}
		nav = append(nav, button(fmt.Sprintf("📄 %d/%d", page+1, total), payload(tagMaterialInfo, materialID)))
		if page < total-1 {
			nav = append(nav, button("Далее ▶️", payload(tagMaterial, materialID, page+1)))
		}
		rows = append(rows, nav)
	}
	// Тест доступен на последней странице
	if hasTest && page == total-1 {
		rows = append(rows, row(button("📝 Пройти тест", payload(tagTestStart, materialID))))
	}
	rows = append(rows, row(button("📚 К списку материалов", tagLevels), homeButton()))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func materialInfoKeyboard(materialID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		row(button("📖 Читать материал", payload(tagMaterial, materialID, 0))),
		row(button("📚 К списку", tagLevels)),
	)
}

func statsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		row(button("🏆 Рейтинг", tagLeaderboard)),
		row(homeButton()),
	)
}

func answerKeyboard(userID int64, v *quizengine.QuestionView) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(v.Options)+1)
	for i, opt := range v.Options {
		data := AnswerPayload{UserID: userID, MaterialID: v.MaterialID, Question: v.Index, Answer: i}.Encode()
		rows = append(rows, row(button(fmt.Sprintf("%c. %s", optionLetter(i), truncate(opt, buttonTextLen)), data)))
	}
	cancel := CancelPayload{UserID: userID, MaterialID: v.MaterialID}.Encode()
	rows = append(rows, row(button("❌ Отменить тест", cancel)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func resultKeyboard(materialID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		row(button("🔄 Пройти заново", payload(tagTestStart, materialID))),
		row(button("📚 К списку материалов", tagLevels)),
		row(homeButton()),
	)
}

func finishRetryKeyboard(userID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		row(button("🔁 Сохранить результат", payload(tagTestFinish, userID))),
	)
}

func adminLevelKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(entity.Levels))
	for _, level := range entity.Levels {
		rows = append(rows, row(button(level.Emoji()+" "+level.Title(), payload(tagNewLevel, level))))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// materialPickKeyboard — список материалов для выбора в админских сценариях
func materialPickKeyboard(materials []entity.Material, tag string, cancelData string) tgbotapi.InlineKeyboardMarkup {
	if len(materials) > pickListLimit {
		materials = materials[:pickListLimit]
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(materials)+1)
	for _, m := range materials {
		rows = append(rows, row(button(m.Level.Emoji()+" "+m.Title, payload(tag, m.ID))))
	}
	if cancelData != "" {
		rows = append(rows, row(button("❌ Отмена", cancelData)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func editActionKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		row(button("📝 Изменить название", payload(tagEditAction, wizard.EditRename))),
		row(button("➕ Дополнить текст", payload(tagEditAction, wizard.EditAppend))),
		row(button("📹 Добавить/Изменить видео", payload(tagEditAction, wizard.EditVideo))),
		row(button("❌ Отмена", payload(tagEditAction, editCancel))),
	)
}

const editCancel = "cancel"

func deleteConfirmKeyboard(materialID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		row(
			button("🗑️ Да, удалить", payload(tagDeleteConfirm, materialID)),
			button("❌ Отмена", tagDeleteCancel),
		),
	)
}
