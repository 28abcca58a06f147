package dto

// LeaderboardUserDTO представляет одного пользователя в лидерборде
type LeaderboardUserDTO struct {
	Rank             int     `json:"rank"`              // Место пользователя в рейтинге
	UserID           int64   `json:"user_id"`           // Telegram ID
	Name             string  `json:"name"`              // Имя из анкеты
	Country          string  `json:"country"`
	City             string  `json:"city"`
	TotalScore       float64 `json:"total_score"`       // Баллы рейтинга
	MaterialsStudied int     `json:"materials_studied"` // Изучено материалов
	TestsCompleted   int     `json:"tests_completed"`   // Пройдено попыток тестов
}

// PaginatedLeaderboardResponse представляет пагинированный ответ для лидерборда
type PaginatedLeaderboardResponse struct {
	Users   []*LeaderboardUserDTO `json:"users"`    // Список пользователей на странице
	Total   int64                 `json:"total"`    // Общее количество пользователей в лидерборде
	Page    int                   `json:"page"`     // Текущая страница
	PerPage int                   `json:"per_page"` // Количество пользователей на странице
}
