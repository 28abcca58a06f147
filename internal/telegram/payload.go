package telegram

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
)

// MaxPayloadLen — ограничение Telegram на callback_data в байтах
const MaxPayloadLen = 64

const payloadSep = ":"

// Теги callback-данных
const (
	tagHome         = "home"
	tagLevels       = "ml" // выбор уровня
	tagLevel        = "lv" // lv:<level|all>
	tagMaterial     = "m"  // m:<mid>:<page>
	tagMaterialInfo = "mi" // mi:<mid>
	tagLeaderboard  = "lb"
	tagStats        = "st"
	tagTestStart    = "ts" // ts:<mid>
	tagTestAnswer   = "ta" // ta:<uid>:<mid>:<q>:<a>
	tagTestCancel   = "tc" // tc:<uid>:<mid>
	tagTestFinish   = "tf" // tf:<uid>, повтор сохранения результата

	tagNewLevel      = "al" // al:<level>
	tagEditPick      = "em" // em:<mid>
	tagEditAction    = "ea" // ea:<action|cancel>
	tagDeletePick    = "dm" // dm:<mid>
	tagDeleteConfirm = "dc" // dc:<mid>
	tagDeleteCancel  = "dx"
	tagAddQuestionTo = "aq" // aq:<mid>
)

// Payload — разобранные callback-данные вида tag[:arg...]
type Payload struct {
	Tag  string
	Args []string
}

// EncodePayload собирает callback-данные и проверяет ограничение длины
func EncodePayload(tag string, args ...interface{}) (string, error) {
	var b strings.Builder
	b.WriteString(tag)
	for _, arg := range args {
		b.WriteString(payloadSep)
		fmt.Fprint(&b, arg)
	}
	data := b.String()
	if len(data) > MaxPayloadLen {
		return "", fmt.Errorf("%w: callback data is %d bytes, limit %d", apperrors.ErrValidation, len(data), MaxPayloadLen)
	}
	return data, nil
}

// payload используется клавиатурами, где аргументы — только числовые ID и короткие
// константы и не могут превысить лимит
func payload(tag string, args ...interface{}) string {
	data, err := EncodePayload(tag, args...)
	if err != nil {
		panic(err)
	}
	return data
}

// DecodePayload разбирает callback-данные
func DecodePayload(data string) (Payload, error) {
	if data == "" || len(data) > MaxPayloadLen {
		return Payload{}, fmt.Errorf("%w: malformed callback data", apperrors.ErrValidation)
	}
	parts := strings.Split(data, payloadSep)
	return Payload{Tag: parts[0], Args: parts[1:]}, nil
}

func (p Payload) arg(i int) (string, error) {
	if i >= len(p.Args) {
		return "", fmt.Errorf("%w: callback %q has no argument #%d", apperrors.ErrValidation, p.Tag, i)
	}
	return p.Args[i], nil
}

// Arg возвращает аргумент как есть
func (p Payload) Arg(i int) (string, error) {
	return p.arg(i)
}

// Int разбирает аргумент как int
func (p Payload) Int(i int) (int, error) {
	raw, err := p.arg(i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: callback %q argument #%d is not a number", apperrors.ErrValidation, p.Tag, i)
	}
	return v, nil
}

// Int64 разбирает аргумент как int64 (Telegram ID)
func (p Payload) Int64(i int) (int64, error) {
	raw, err := p.arg(i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: callback %q argument #%d is not a number", apperrors.ErrValidation, p.Tag, i)
	}
	return v, nil
}

// Uint разбирает аргумент как ID записи
func (p Payload) Uint(i int) (uint, error) {
	raw, err := p.arg(i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: callback %q argument #%d is not an id", apperrors.ErrValidation, p.Tag, i)
	}
	return uint(v), nil
}

// AnswerPayload — нажатие варианта ответа в тесте
type AnswerPayload struct {
	UserID     int64
	MaterialID uint
	Question   int
	Answer     int
}

// Encode собирает callback-данные ответа
func (a AnswerPayload) Encode() string {
	return payload(tagTestAnswer, a.UserID, a.MaterialID, a.Question, a.Answer)
}

// DecodeAnswer разбирает ta:<uid>:<mid>:<q>:<a>
func DecodeAnswer(p Payload) (AnswerPayload, error) {
	if p.Tag != tagTestAnswer || len(p.Args) != 4 {
		return AnswerPayload{}, fmt.Errorf("%w: malformed answer payload", apperrors.ErrValidation)
	}
	var (
		a   AnswerPayload
		err error
	)
	if a.UserID, err = p.Int64(0); err != nil {
		return AnswerPayload{}, err
	}
	if a.MaterialID, err = p.Uint(1); err != nil {
		return AnswerPayload{}, err
	}
	if a.Question, err = p.Int(2); err != nil {
		return AnswerPayload{}, err
	}
	if a.Answer, err = p.Int(3); err != nil {
		return AnswerPayload{}, err
	}
	return a, nil
}

// CancelPayload — отмена теста
type CancelPayload struct {
	UserID     int64
	MaterialID uint
}

// Encode собирает callback-данные отмены
func (c CancelPayload) Encode() string {
	return payload(tagTestCancel, c.UserID, c.MaterialID)
}

// DecodeCancel разбирает tc:<uid>:<mid>
func DecodeCancel(p Payload) (CancelPayload, error) {
	if p.Tag != tagTestCancel || len(p.Args) != 2 {
		return CancelPayload{}, fmt.Errorf("%w: malformed cancel payload", apperrors.ErrValidation)
	}
	uid, err := p.Int64(0)
	if err != nil {
		return CancelPayload{}, err
	}
	mid, err := p.Uint(1)
	if err != nil {
		return CancelPayload{}, err
	}
	return CancelPayload{UserID: uid, MaterialID: mid}, nil
}

// checkActor отклоняет нажатие кнопки, выданной другому пользователю
func checkActor(payloadUserID, actorID int64) error {
	if payloadUserID != actorID {
		return fmt.Errorf("%w: payload issued to user %d, pressed by %d", apperrors.ErrForbidden, payloadUserID, actorID)
	}
	return nil
}
