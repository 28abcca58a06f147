package wizard

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
	"github.com/yourusername/academy-bot/internal/service"
)

// Flow — сценарий многошагового диалога
type Flow int

const (
	FlowNone Flow = iota
	FlowRegistration
	FlowAddMaterial
	FlowEditMaterial
	FlowAddQuestion
)

func (f Flow) String() string {
	switch f {
	case FlowRegistration:
		return "registration"
	case FlowAddMaterial:
		return "add_material"
	case FlowEditMaterial:
		return "edit_material"
	case FlowAddQuestion:
		return "add_question"
	}
	return "none"
}

// Admin сообщает, относится ли сценарий к административным
func (f Flow) Admin() bool {
	return f == FlowAddMaterial || f == FlowEditMaterial || f == FlowAddQuestion
}

// Step — шаг сценария, на котором бот ждёт ввода
type Step int

const (
	StepNone Step = iota

	// Регистрация
	StepName
	StepAge
	StepCountry
	StepCity

	// Новый материал
	StepMaterialTitle
	StepMaterialText
	StepMaterialLevel

	// Вопросы (общие для нового материала и /add_question)
	StepPickMaterial
	StepQuestionText
	StepAnswers
	StepCorrect

	// Редактирование
	StepEditSelect
	StepEditChoice
	StepEditTitle
	StepEditText
	StepEditVideo

	// Идёт сохранение; повторный ввод отклоняется до MaterialCreated,
	// QuestionSaved или Retry
	StepSaving
)

var stepNames = map[Step]string{
	StepNone:          "none",
	StepName:          "name",
	StepAge:           "age",
	StepCountry:       "country",
	StepCity:          "city",
	StepMaterialTitle: "material_title",
	StepMaterialText:  "material_text",
	StepMaterialLevel: "material_level",
	StepPickMaterial:  "pick_material",
	StepQuestionText:  "question_text",
	StepAnswers:       "answers",
	StepCorrect:       "correct",
	StepEditSelect:    "edit_select",
	StepEditChoice:    "edit_choice",
	StepEditTitle:     "edit_title",
	StepEditText:      "edit_text",
	StepEditVideo:     "edit_video",
	StepSaving:        "saving",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// EditAction — действие над существующим материалом
type EditAction string

const (
	EditRename EditAction = "title"
	EditAppend EditAction = "append"
	EditVideo  EditAction = "video"
)

// ParseEditAction разбирает действие из callback-данных
func ParseEditAction(raw string) (EditAction, error) {
	switch a := EditAction(raw); a {
	case EditRename, EditAppend, EditVideo:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown edit action %q", apperrors.ErrValidation, raw)
}

// Draft накапливает ввод пользователя между шагами
type Draft struct {
	Name    string
	Age     int
	Country string
	City    string

	Title      string
	Body       string
	Level      entity.Level
	MaterialID uint

	QuestionText   string
	Answers        []string
	QuestionsAdded int
}

// State — текущее положение пользователя в сценарии
type State struct {
	Flow  Flow
	Step  Step
	Draft Draft
}

// NewRegistration начинает анкету регистрации
func NewRegistration() State {
	return State{Flow: FlowRegistration, Step: StepName}
}

// NewAddMaterial начинает создание материала
func NewAddMaterial() State {
	return State{Flow: FlowAddMaterial, Step: StepMaterialTitle}
}

// NewEditMaterial начинает редактирование материала
func NewEditMaterial() State {
	return State{Flow: FlowEditMaterial, Step: StepEditSelect}
}

// NewAddQuestion начинает добавление вопроса к существующему материалу
func NewAddQuestion() State {
	return State{Flow: FlowAddQuestion, Step: StepPickMaterial}
}

func (s *State) expect(flows []Flow, step Step) error {
	if s.Step != step || !slices.Contains(flows, s.Flow) {
		return fmt.Errorf("%w: wizard is at %s/%s, not %s", apperrors.ErrConflict, s.Flow, s.Step, step)
	}
	return nil
}

var (
	registrationFlows = []Flow{FlowRegistration}
	materialFlows     = []Flow{FlowAddMaterial}
	questionFlows     = []Flow{FlowAddMaterial, FlowAddQuestion}
	editFlows         = []Flow{FlowEditMaterial}
)

// AcceptName сохраняет имя и переходит к возрасту
func (s *State) AcceptName(raw string) error {
	if err := s.expect(registrationFlows, StepName); err != nil {
		return err
	}
	name, err := service.ValidateName(raw)
	if err != nil {
		return err
	}
	s.Draft.Name = name
	s.Step = StepAge
	return nil
}

// AcceptAge сохраняет возраст и переходит к стране
func (s *State) AcceptAge(raw string) error {
	if err := s.expect(registrationFlows, StepAge); err != nil {
		return err
	}
	age, err := service.ParseAge(raw)
	if err != nil {
		return err
	}
	s.Draft.Age = age
	s.Step = StepCountry
	return nil
}

// AcceptCountry сохраняет страну и переходит к городу
func (s *State) AcceptCountry(raw string) error {
	if err := s.expect(registrationFlows, StepCountry); err != nil {
		return err
	}
	country, err := service.ValidatePlace(raw)
	if err != nil {
		return err
	}
	s.Draft.Country = country
	s.Step = StepCity
	return nil
}

// AcceptCity завершает анкету. UserID и Username заполняет вызывающий.
func (s *State) AcceptCity(raw string) (service.Registration, error) {
	if err := s.expect(registrationFlows, StepCity); err != nil {
		return service.Registration{}, err
	}
	city, err := service.ValidatePlace(raw)
	if err != nil {
		return service.Registration{}, err
	}
	s.Draft.City = city
	return service.Registration{
		Name:    s.Draft.Name,
		Age:     s.Draft.Age,
		Country: s.Draft.Country,
		City:    s.Draft.City,
	}, nil
}

// AcceptTitle сохраняет название нового материала
func (s *State) AcceptTitle(raw string) error {
	if err := s.expect(materialFlows, StepMaterialTitle); err != nil {
		return err
	}
	title, err := service.ValidateTitle(raw)
	if err != nil {
		return err
	}
	s.Draft.Title = title
	s.Step = StepMaterialText
	return nil
}

// AppendBody дописывает очередное сообщение к тексту материала и
// возвращает текущую длину текста в символах
func (s *State) AppendBody(raw string) (int, error) {
	if err := s.expect(materialFlows, StepMaterialText); err != nil {
		return 0, err
	}
	if strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("%w: empty text", apperrors.ErrValidation)
	}
	if s.Draft.Body == "" {
		s.Draft.Body = raw
	} else {
		s.Draft.Body += "\n" + raw
	}
	return utf8.RuneCountInString(s.Draft.Body), nil
}

// FinishBody закрывает ввод текста (/done) и переходит к выбору уровня
func (s *State) FinishBody() error {
	if err := s.expect(materialFlows, StepMaterialText); err != nil {
		return err
	}
	if strings.TrimSpace(s.Draft.Body) == "" {
		return fmt.Errorf("%w: material text is empty", apperrors.ErrValidation)
	}
	s.Step = StepMaterialLevel
	return nil
}

// ChooseLevel фиксирует уровень, переводит сценарий в StepSaving и
// возвращает черновик для сохранения
func (s *State) ChooseLevel(level entity.Level) (service.MaterialDraft, error) {
	if err := s.expect(materialFlows, StepMaterialLevel); err != nil {
		return service.MaterialDraft{}, err
	}
	s.Draft.Level = level
	s.Step = StepSaving
	return service.MaterialDraft{
		Title: s.Draft.Title,
		Body:  s.Draft.Body,
		Level: level,
	}, nil
}

// MaterialCreated запоминает ID сохранённого материала и переходит к вопросам
func (s *State) MaterialCreated(id uint) {
	s.Draft.MaterialID = id
	s.Step = StepQuestionText
}

// PickMaterial выбирает материал для /add_question
func (s *State) PickMaterial(id uint, title string) error {
	if err := s.expect([]Flow{FlowAddQuestion}, StepPickMaterial); err != nil {
		return err
	}
	s.Draft.MaterialID = id
	s.Draft.Title = title
	s.Step = StepQuestionText
	return nil
}

// AcceptQuestionText сохраняет текст вопроса и переходит к вариантам
func (s *State) AcceptQuestionText(raw string) error {
	if err := s.expect(questionFlows, StepQuestionText); err != nil {
		return err
	}
	text, err := service.ValidateQuestionText(raw)
	if err != nil {
		return err
	}
	s.Draft.QuestionText = text
	s.Step = StepAnswers
	return nil
}

// AcceptAnswers сохраняет варианты ответов и переходит к выбору правильного
func (s *State) AcceptAnswers(raw string) error {
	if err := s.expect(questionFlows, StepAnswers); err != nil {
		return err
	}
	answers, err := service.ParseAnswers(raw)
	if err != nil {
		return err
	}
	s.Draft.Answers = answers
	s.Step = StepCorrect
	return nil
}

// AcceptCorrect разбирает номер правильного ответа (с единицы), переводит
// сценарий в StepSaving и возвращает вопрос для сохранения
func (s *State) AcceptCorrect(raw string) (service.QuestionDraft, error) {
	if err := s.expect(questionFlows, StepCorrect); err != nil {
		return service.QuestionDraft{}, err
	}
	correct, err := service.ParseCorrectNumber(raw, len(s.Draft.Answers))
	if err != nil {
		return service.QuestionDraft{}, err
	}
	s.Step = StepSaving
	return service.QuestionDraft{
		Text:    s.Draft.QuestionText,
		Answers: slices.Clone(s.Draft.Answers),
		Correct: correct,
	}, nil
}

// Retry возвращает сценарий к шагу, сохранение которого не удалось
func (s *State) Retry() {
	if s.Step != StepSaving {
		return
	}
	if s.Flow == FlowAddMaterial && s.Draft.MaterialID == 0 {
		s.Step = StepMaterialLevel
		return
	}
	s.Step = StepCorrect
}

// QuestionSaved засчитывает сохранённый вопрос и возвращается к вводу следующего
func (s *State) QuestionSaved() {
	s.Draft.QuestionsAdded++
	s.Draft.QuestionText = ""
	s.Draft.Answers = nil
	s.Step = StepQuestionText
}

// CanFinishQuestions сообщает, можно ли завершить ввод вопросов (/done, /skip)
func (s *State) CanFinishQuestions() bool {
	return s.expect(questionFlows, StepQuestionText) == nil
}

// SelectForEdit выбирает материал для редактирования
func (s *State) SelectForEdit(id uint, title string) error {
	if err := s.expect(editFlows, StepEditSelect); err != nil {
		return err
	}
	s.Draft.MaterialID = id
	s.Draft.Title = title
	s.Step = StepEditChoice
	return nil
}

// ChooseEditAction переводит редактирование к вводу нового значения
func (s *State) ChooseEditAction(action EditAction) error {
	if err := s.expect(editFlows, StepEditChoice); err != nil {
		return err
	}
	switch action {
	case EditRename:
		s.Step = StepEditTitle
	case EditAppend:
		s.Step = StepEditText
	case EditVideo:
		s.Step = StepEditVideo
	default:
		return fmt.Errorf("%w: unknown edit action %q", apperrors.ErrValidation, action)
	}
	return nil
}

// AcceptNewTitle проверяет новое название материала
func (s *State) AcceptNewTitle(raw string) (string, error) {
	if err := s.expect(editFlows, StepEditTitle); err != nil {
		return "", err
	}
	return service.ValidateTitle(raw)
}

// AcceptExtraText проверяет текст, дописываемый к материалу
func (s *State) AcceptExtraText(raw string) (string, error) {
	if err := s.expect(editFlows, StepEditText); err != nil {
		return "", err
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("%w: empty text", apperrors.ErrValidation)
	}
	return text, nil
}

// AcceptVideo проверяет file_id присланного видео
func (s *State) AcceptVideo(fileID string) (string, error) {
	if err := s.expect(editFlows, StepEditVideo); err != nil {
		return "", err
	}
	if fileID == "" {
		return "", fmt.Errorf("%w: video expected", apperrors.ErrValidation)
	}
	return fileID, nil
}

func (s State) clone() State {
	s.Draft.Answers = slices.Clone(s.Draft.Answers)
	return s
}
