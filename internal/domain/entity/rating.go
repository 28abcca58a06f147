package entity

import (
	"math"
	"sort"
	"time"
)

// Rating — производная запись лидерборда, пересчитывается из StudyRecord и TestResult
type Rating struct {
	UserID           int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	TotalScore       float64   `gorm:"not null;default:0;index" json:"total_score"`
	MaterialsStudied int       `gorm:"not null;default:0" json:"materials_studied"`
	TestsCompleted   int       `gorm:"not null;default:0" json:"tests_completed"`
	Rank             int       `gorm:"not null;default:0;index" json:"rank"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Rating) TableName() string {
	return "ratings"
}

// LeaderboardEntry — строка лидерборда вместе с профилем пользователя
type LeaderboardEntry struct {
	Rating
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Age          int       `json:"age"`
	Country      string    `json:"country"`
	City         string    `json:"city"`
	RegisteredAt time.Time `json:"registered_at"`
}

// RatingWeights — веса формулы рейтинга
type RatingWeights struct {
	Study         float64 // за каждый изученный материал
	Percent       float64 // множитель процента каждой попытки теста
	Pass          float64 // бонус за каждую попытку не ниже порога
	PassThreshold float64
}

// ComputeScore считает итоговый балл.
// Все слагаемые неотрицательны, поэтому новый изученный материал или новая
// попытка теста никогда не уменьшают балл. Попытки суммируются в порядке ID.
func ComputeScore(w RatingWeights, studied int, results []TestResult) float64 {
	ordered := make([]TestResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	score := w.Study * float64(studied)
	for _, r := range ordered {
		score += w.Percent * r.Percentage
		if r.Percentage >= w.PassThreshold {
			score += w.Pass
		}
	}
	return math.Round(score*100) / 100
}

// RankCandidate — входные данные для ранжирования
type RankCandidate struct {
	UserID       int64
	Score        float64
	RegisteredAt time.Time
}

// AssignDenseRanks сортирует кандидатов по баллу (убывание), затем по дате регистрации
// и ID, и возвращает плотный ранг для каждого пользователя: равные баллы — общий ранг,
// следующий балл получает ранг +1.
func AssignDenseRanks(candidates []RankCandidate) map[int64]int {
	ordered := make([]RankCandidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		if !ordered[i].RegisteredAt.Equal(ordered[j].RegisteredAt) {
			return ordered[i].RegisteredAt.Before(ordered[j].RegisteredAt)
		}
		return ordered[i].UserID < ordered[j].UserID
	})

	ranks := make(map[int64]int, len(ordered))
	rank := 0
	for i, c := range ordered {
		if i == 0 || c.Score != ordered[i-1].Score {
			rank++
		}
		ranks[c.UserID] = rank
	}
	return ranks
}
