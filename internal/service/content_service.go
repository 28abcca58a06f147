package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	"github.com/yourusername/academy-bot/internal/domain/repository"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
	"github.com/yourusername/academy-bot/internal/pkg/logger"
)

// Ограничения контента
const (
	minTitleLength    = 3
	maxTitleLength    = 200
	minQuestionLength = 5
	maxQuestionLength = 1000
	minAnswers        = 2
	maxAnswers        = 8
	maxAnswerLength   = 500
)

// QuestionDraft — вопрос, введённый администратором. Correct — индекс с нуля.
type QuestionDraft struct {
	Text    string
	Answers []string
	Correct int
}

// MaterialDraft — новый материал вместе с вопросами
type MaterialDraft struct {
	Title       string
	Body        string
	Level       entity.Level
	VideoFileID string
	Questions   []QuestionDraft
}

// MaterialInfo — материал со сводкой для админ-списка и карточки
type MaterialInfo struct {
	Material      entity.Material
	QuestionCount int
}

// ContentService управляет материалами, вопросами и ответами
type ContentService struct {
	materialRepo repository.MaterialRepository
	questionRepo repository.QuestionRepository
	log          *logger.Logger
}

// NewContentService создает сервис контента
func NewContentService(materialRepo repository.MaterialRepository, questionRepo repository.QuestionRepository, log *logger.Logger) *ContentService {
	return &ContentService{
		materialRepo: materialRepo,
		questionRepo: questionRepo,
		log:          log,
	}
}

// GetMaterial возвращает материал
func (s *ContentService) GetMaterial(ctx context.Context, id uint) (*entity.Material, error) {
	return s.materialRepo.GetByID(ctx, id)
}

// ListMaterials возвращает материалы уровня; пустой уровень — все
func (s *ContentService) ListMaterials(ctx context.Context, level entity.Level) ([]entity.Material, error) {
	return s.materialRepo.List(ctx, level)
}

// ListWithCounts возвращает первые limit материалов с количеством вопросов
func (s *ContentService) ListWithCounts(ctx context.Context, limit int) ([]MaterialInfo, int, error) {
	materials, err := s.materialRepo.List(ctx, "")
	if err != nil {
		return nil, 0, err
	}
	total := len(materials)
	if limit > 0 && len(materials) > limit {
		materials = materials[:limit]
	}
	infos := make([]MaterialInfo, 0, len(materials))
	for _, m := range materials {
		count, err := s.questionRepo.CountByMaterialID(ctx, m.ID)
		if err != nil {
			return nil, 0, err
		}
		infos = append(infos, MaterialInfo{Material: m, QuestionCount: int(count)})
	}
	return infos, total, nil
}

// GetQuestions возвращает вопросы материала с ответами
func (s *ContentService) GetQuestions(ctx context.Context, materialID uint) ([]entity.Question, error) {
	return s.questionRepo.GetByMaterialID(ctx, materialID)
}

// QuestionCount возвращает число вопросов материала
func (s *ContentService) QuestionCount(ctx context.Context, materialID uint) (int, error) {
	count, err := s.questionRepo.CountByMaterialID(ctx, materialID)
	return int(count), err
}

// AddMaterial создает материал и затем его вопросы
func (s *ContentService) AddMaterial(ctx context.Context, draft MaterialDraft) (*entity.Material, error) {
	title, err := ValidateTitle(draft.Title)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(draft.Body)
	if body == "" {
		return nil, fmt.Errorf("%w: material text is empty", apperrors.ErrValidation)
	}
	if draft.Level == "" {
		draft.Level = entity.LevelBasic
	}
	if _, ok := entity.ParseLevel(string(draft.Level)); !ok {
		return nil, fmt.Errorf("%w: unknown level %q", apperrors.ErrValidation, draft.Level)
	}
	for i, q := range draft.Questions {
		if err := validateQuestionDraft(q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}

	material := &entity.Material{
		Title:       title,
		Body:        body,
		Level:       draft.Level,
		VideoFileID: draft.VideoFileID,
	}
	if err := s.materialRepo.Create(ctx, material); err != nil {
		return nil, fmt.Errorf("create material: %w", err)
	}
	for _, q := range draft.Questions {
		if _, err := s.createQuestion(ctx, material.ID, q); err != nil {
			return nil, err
		}
	}

	s.log.Info("[ContentService] Материал создан",
		"material_id", material.ID, "level", material.Level, "questions", len(draft.Questions))
	return material, nil
}

// AddQuestion добавляет вопрос с вариантами к существующему материалу
func (s *ContentService) AddQuestion(ctx context.Context, materialID uint, draft QuestionDraft) (*entity.Question, error) {
	if err := validateQuestionDraft(draft); err != nil {
		return nil, err
	}
	return s.createQuestion(ctx, materialID, draft)
}

func (s *ContentService) createQuestion(ctx context.Context, materialID uint, draft QuestionDraft) (*entity.Question, error) {
	q := &entity.Question{
		MaterialID: materialID,
		Text:       strings.TrimSpace(draft.Text),
	}
	for i, text := range draft.Answers {
		q.Answers = append(q.Answers, entity.Answer{Text: strings.TrimSpace(text), IsCorrect: i == draft.Correct})
	}
	if err := s.questionRepo.CreateWithAnswers(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// AddAnswer добавляет неверный вариант ответа к вопросу.
// Правильный вариант задаётся только при создании вопроса, поэтому он всегда единственный.
func (s *ContentService) AddAnswer(ctx context.Context, questionID uint, text string) (*entity.Answer, error) {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > maxAnswerLength {
		return nil, fmt.Errorf("%w: answer must be 1..%d characters", apperrors.ErrValidation, maxAnswerLength)
	}
	answer := &entity.Answer{QuestionID: questionID, Text: text}
	if err := s.questionRepo.AddAnswer(ctx, answer); err != nil {
		return nil, err
	}
	return answer, nil
}

// RenameMaterial меняет название материала
func (s *ContentService) RenameMaterial(ctx context.Context, id uint, title string) error {
	title, err := ValidateTitle(title)
	if err != nil {
		return err
	}
	return s.materialRepo.UpdateFields(ctx, id, map[string]interface{}{"title": title})
}

// SetVideo прикрепляет видео к материалу
func (s *ContentService) SetVideo(ctx context.Context, id uint, fileID string) error {
	if strings.TrimSpace(fileID) == "" {
		return fmt.Errorf("%w: video file id is empty", apperrors.ErrValidation)
	}
	return s.materialRepo.UpdateFields(ctx, id, map[string]interface{}{"video_file_id": fileID})
}

// AppendText дописывает текст к материалу
func (s *ContentService) AppendText(ctx context.Context, id uint, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: text is empty", apperrors.ErrValidation)
	}
	return s.materialRepo.AppendBody(ctx, id, text)
}

// DeleteMaterial удаляет материал с вопросами и ответами
func (s *ContentService) DeleteMaterial(ctx context.Context, id uint) error {
	if err := s.materialRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("[ContentService] Материал удалён", "material_id", id)
	return nil
}

// ValidateTitle проверяет название материала
func ValidateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(title)
	if n < minTitleLength || n > maxTitleLength {
		return "", fmt.Errorf("%w: title must be %d..%d characters", apperrors.ErrValidation, minTitleLength, maxTitleLength)
	}
	return title, nil
}

// ValidateQuestionText проверяет текст вопроса
func ValidateQuestionText(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(text)
	if n < minQuestionLength || n > maxQuestionLength {
		return "", fmt.Errorf("%w: question must be %d..%d characters", apperrors.ErrValidation, minQuestionLength, maxQuestionLength)
	}
	return text, nil
}

// ParseAnswers разбирает варианты ответов, перечисленные через запятую
func ParseAnswers(raw string) ([]string, error) {
	var answers []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) > maxAnswerLength {
			return nil, fmt.Errorf("%w: answer is longer than %d characters", apperrors.ErrValidation, maxAnswerLength)
		}
		answers = append(answers, part)
	}
	if len(answers) < minAnswers || len(answers) > maxAnswers {
		return nil, fmt.Errorf("%w: need %d..%d answers, got %d", apperrors.ErrValidation, minAnswers, maxAnswers, len(answers))
	}
	return answers, nil
}

// ParseCorrectNumber разбирает номер правильного ответа (с единицы) и возвращает индекс с нуля
func ParseCorrectNumber(raw string, answersCount int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > answersCount {
		return 0, fmt.Errorf("%w: correct answer number must be within [1, %d]", apperrors.ErrValidation, answersCount)
	}
	return n - 1, nil
}

func validateQuestionDraft(q QuestionDraft) error {
	if _, err := ValidateQuestionText(q.Text); err != nil {
		return err
	}
	if len(q.Answers) < minAnswers || len(q.Answers) > maxAnswers {
		return fmt.Errorf("%w: need %d..%d answers, got %d", apperrors.ErrValidation, minAnswers, maxAnswers, len(q.Answers))
	}
	for _, a := range q.Answers {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("%w: empty answer", apperrors.ErrValidation)
		}
	}
	if q.Correct < 0 || q.Correct >= len(q.Answers) {
		return fmt.Errorf("%w: correct answer index %d out of range", apperrors.ErrValidation, q.Correct)
	}
	return nil
}
