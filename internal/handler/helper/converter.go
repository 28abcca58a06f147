package helper

import (
	"github.com/yourusername/academy-bot/internal/domain/entity"
	"github.com/yourusername/academy-bot/internal/handler/dto"
	"github.com/yourusername/academy-bot/internal/service"
)

// ConvertLeaderboard преобразует страницу лидерборда в ответ API.
// Username не отдаётся наружу: в публичном API только данные анкеты.
func ConvertLeaderboard(page *service.LeaderboardPage) *dto.PaginatedLeaderboardResponse {
	users := make([]*dto.LeaderboardUserDTO, len(page.Entries))
	for i := range page.Entries {
		users[i] = convertEntry(&page.Entries[i])
	}
	return &dto.PaginatedLeaderboardResponse{
		Users:   users,
		Total:   page.Total,
		Page:    page.Page,
		PerPage: page.PageSize,
	}
}

func convertEntry(e *entity.LeaderboardEntry) *dto.LeaderboardUserDTO {
	return &dto.LeaderboardUserDTO{
		Rank:             e.Rank,
		UserID:           e.UserID,
		Name:             e.Name,
		Country:          e.Country,
		City:             e.City,
		TotalScore:       e.TotalScore,
		MaterialsStudied: e.MaterialsStudied,
		TestsCompleted:   e.TestsCompleted,
	}
}
