package matching

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/smsledger/internal/parser"
)

var ErrEmptyRule = errors.New("pattern and category are required")

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=matching
type Repository interface {
	FindMatch(ctx context.Context, userID uuid.UUID, text string) (string, error)
	CreateRule(ctx context.Context, userID uuid.UUID, rawPattern, category string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Suggest returns the category of the longest rule contained in text.
// Returns empty string if no match found.
func (s *Service) Suggest(ctx context.Context, userID uuid.UUID, text string) (string, error) {
	return s.repo.FindMatch(ctx, userID, text)
}

// Learn remembers that text containing rawPattern belongs to category.
func (s *Service) Learn(ctx context.Context, userID uuid.UUID, rawPattern, category string) error {
	rawPattern = strings.TrimSpace(rawPattern)
	category = strings.TrimSpace(category)

	if rawPattern == "" || category == "" {
		return ErrEmptyRule
	}

	return s.repo.CreateRule(ctx, userID, rawPattern, category)
}

// Apply files tx under the user's learned category when one matches its
// merchant, or its raw text when no merchant was extracted. tx itself is
// left untouched.
func (s *Service) Apply(ctx context.Context, userID uuid.UUID, tx *parser.ParsedTransaction) (*parser.ParsedTransaction, error) {
	text := tx.Merchant
	if text == "" {
		text = tx.RawText
	}

	category, err := s.repo.FindMatch(ctx, userID, text)
	if err != nil {
		return nil, err
	}

	if category == "" || category == tx.Category {
		return tx, nil
	}

	return tx.WithCategory(category), nil
}
