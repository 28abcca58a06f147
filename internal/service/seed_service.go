package service

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/academy-bot/internal/domain/entity"
)

// seedFile — формат файла начального контента
type seedFile struct {
	Materials []seedMaterial `yaml:"materials"`
}

type seedMaterial struct {
	Title     string         `yaml:"title"`
	Level     string         `yaml:"level"`
	Body      string         `yaml:"body"`
	Questions []seedQuestion `yaml:"questions"`
}

type seedQuestion struct {
	Text    string   `yaml:"text"`
	Answers []string `yaml:"answers"`
	Correct int      `yaml:"correct"` // номер правильного ответа с единицы
}

// ParseSeed разбирает YAML с начальным контентом
func ParseSeed(data []byte) ([]MaterialDraft, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	drafts := make([]MaterialDraft, 0, len(file.Materials))
	for i, m := range file.Materials {
		level, ok := entity.ParseLevel(m.Level)
		if !ok {
			return nil, fmt.Errorf("seed material %d: unknown level %q", i+1, m.Level)
		}
		draft := MaterialDraft{Title: m.Title, Body: m.Body, Level: level}
		for _, q := range m.Questions {
			draft.Questions = append(draft.Questions, QuestionDraft{
				Text:    q.Text,
				Answers: q.Answers,
				Correct: q.Correct - 1,
			})
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

// SeedIfEmpty загружает контент из файла, только если материалов ещё нет.
// Возвращает количество созданных материалов.
func (s *ContentService) SeedIfEmpty(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	count, err := s.materialRepo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	drafts, err := ParseSeed(data)
	if err != nil {
		return 0, err
	}
	for _, d := range drafts {
		if _, err := s.AddMaterial(ctx, d); err != nil {
			return 0, fmt.Errorf("seed %q: %w", d.Title, err)
		}
	}
	s.log.Info("[ContentService] Загружен начальный контент", "materials", len(drafts), "path", path)
	return len(drafts), nil
}
