package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	"github.com/yourusername/academy-bot/internal/domain/repository"
	"github.com/yourusername/academy-bot/internal/pkg/logger"
)

const (
	exportLeaderboardSheet = "Рейтинг"
	exportResultsSheet     = "Результаты"
	exportPageSize         = 500
	exportTimeLayout       = "2006-01-02 15:04"
)

// ExportService выгружает рейтинг и результаты тестов в Excel
type ExportService struct {
	ratingRepo   repository.RatingRepository
	progressRepo repository.ProgressRepository
	userRepo     repository.UserRepository
	log          *logger.Logger
}

// NewExportService создает сервис выгрузки
func NewExportService(
	ratingRepo repository.RatingRepository,
	progressRepo repository.ProgressRepository,
	userRepo repository.UserRepository,
	log *logger.Logger,
) *ExportService {
	return &ExportService{
		ratingRepo:   ratingRepo,
		progressRepo: progressRepo,
		userRepo:     userRepo,
		log:          log,
	}
}

// BuildWorkbook формирует xlsx с листами рейтинга и результатов
func (s *ExportService) BuildWorkbook(ctx context.Context) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportLeaderboardSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(exportResultsSheet); err != nil {
		return nil, err
	}

	if err := s.writeLeaderboard(ctx, f); err != nil {
		return nil, fmt.Errorf("export leaderboard: %w", err)
	}
	if err := s.writeResults(ctx, f); err != nil {
		return nil, fmt.Errorf("export results: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func (s *ExportService) writeLeaderboard(ctx context.Context, f *excelize.File) error {
	sw, err := f.NewStreamWriter(exportLeaderboardSheet)
	if err != nil {
		return err
	}
	headers := []interface{}{"Место", "ID", "Имя", "Username", "Возраст", "Страна", "Город", "Баллы", "Изучено", "Тестов", "Регистрация"}
	if err := sw.SetRow("A1", headers); err != nil {
		return err
	}

	row := 2
	for offset := 0; ; offset += exportPageSize {
		entries, _, err := s.ratingRepo.GetLeaderboard(ctx, exportPageSize, offset)
		if err != nil {
			return err
		}
		for _, e := range entries {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			values := []interface{}{
				e.Rank, e.UserID, sanitizeForExcel(e.Name), sanitizeForExcel(e.Username), e.Age,
				sanitizeForExcel(e.Country), sanitizeForExcel(e.City), e.TotalScore,
				e.MaterialsStudied, e.TestsCompleted, e.RegisteredAt.Format(exportTimeLayout),
			}
			if err := sw.SetRow(cell, values); err != nil {
				return err
			}
			row++
		}
		if len(entries) < exportPageSize {
			break
		}
	}
	return sw.Flush()
}

func (s *ExportService) writeResults(ctx context.Context, f *excelize.File) error {
	results, err := s.progressRepo.AllResults(ctx)
	if err != nil {
		return err
	}
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	sw, err := f.NewStreamWriter(exportResultsSheet)
	if err != nil {
		return err
	}
	headers := []interface{}{"ID", "Пользователь", "Имя", "Материал", "Правильных", "Всего", "Процент", "Завершён"}
	if err := sw.SetRow("A1", headers); err != nil {
		return err
	}
	for i, r := range results {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{
			r.ID, r.UserID, sanitizeForExcel(names[r.UserID]), sanitizeForExcel(materialTitle(r)),
			r.CorrectCount, r.TotalCount, r.Percentage, r.CompletedAt.Format(exportTimeLayout),
		}
		if err := sw.SetRow(cell, values); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func materialTitle(r entity.TestResultView) string {
	if r.Title == "" {
		return fmt.Sprintf("Удалённый материал #%d", r.MaterialID)
	}
	return r.Title
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
