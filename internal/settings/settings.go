// Package settings holds the single mutable configuration row: values an
// operator can change at runtime without redeploying.
package settings

import (
	"context"
)

type Settings struct {
	ID           int    `json:"-"`
	GeminiAPIKey string `json:"gemini_api_key"`
	SearchTopK   int    `json:"search_top_k"`
}

type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context) (*Settings, error) {
	return s.repo.Get(ctx)
}

func (s *Service) Update(ctx context.Context, set *Settings) error {
	if set.SearchTopK < 1 || set.SearchTopK > 50 {
		return ErrInvalidTopK
	}
	return s.repo.Update(ctx, set)
}

// Seed copies environment values into the settings row on first boot,
// so a fresh deployment works before anyone touches the settings API.
func (s *Service) Seed(ctx context.Context, apiKey string, topK int) error {
	current, err := s.repo.Get(ctx)
	if err != nil {
		return err
	}
	changed := false
	if current.GeminiAPIKey == "" && apiKey != "" {
		current.GeminiAPIKey = apiKey
		changed = true
	}
	if current.SearchTopK == 0 && topK > 0 {
		current.SearchTopK = topK
		changed = true
	}
	if !changed {
		return nil
	}
	return s.repo.Update(ctx, current)
}
