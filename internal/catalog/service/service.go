package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockline/stockline-backend/internal/catalog/repository"
	"github.com/stockline/stockline-backend/pkg/errors"
	"github.com/stockline/stockline-backend/pkg/logger"
)

// skuAttempts bounds the random SKU retry loop before falling back to a
// timestamp-based code, which is unique for all practical purposes.
const skuAttempts = 5

// ItemStore persists catalog items
type ItemStore interface {
	Create(ctx context.Context, item *repository.Item) error
	GetByID(ctx context.Context, id string) (*repository.Item, error)
	List(ctx context.Context) ([]*repository.Item, error)
	ListByIDs(ctx context.Context, ids []string) ([]*repository.Item, error)
	SKUExists(ctx context.Context, sku string) (bool, error)
}

// CategoryStore persists categories
type CategoryStore interface {
	Create(ctx context.Context, category *repository.Category) error
	GetByID(ctx context.Context, id string) (*repository.Category, error)
	List(ctx context.Context) ([]*repository.Category, error)
}

// Service implements catalog operations
type Service struct {
	items      ItemStore
	categories CategoryStore
	logger     *logger.Logger
}

// NewService creates a new catalog service
func NewService(items ItemStore, categories CategoryStore, log *logger.Logger) *Service {
	return &Service{items: items, categories: categories, logger: log}
}

// CreateItemInput describes a new catalog item
type CreateItemInput struct {
	Name             string
	SKU              *string
	CategoryID       *string
	Unit             *string
	ReorderThreshold decimal.NullDecimal
	LeadTimeDays     *int
}

// CreateItem creates a catalog item. When no SKU is supplied one is generated
// from the item name.
func (s *Service) CreateItem(ctx context.Context, in CreateItemInput) (*repository.Item, error) {
	if in.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
	}
	if in.ReorderThreshold.Valid && in.ReorderThreshold.Decimal.IsNegative() {
		return nil, errors.BadRequest("reorder threshold cannot be negative")
	}

	var sku string
	if in.SKU != nil && *in.SKU != "" {
		exists, err := s.items.SKUExists(ctx, *in.SKU)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errors.Conflict(fmt.Sprintf("SKU %s already exists", *in.SKU))
		}
		sku = *in.SKU
	} else {
		generated, err := s.generateSKU(ctx, in.Name)
		if err != nil {
			return nil, err
		}
		sku = generated
	}

	item := &repository.Item{
		Name:             in.Name,
		SKU:              sku,
		CategoryID:       in.CategoryID,
		Unit:             in.Unit,
		ReorderThreshold: in.ReorderThreshold,
		LeadTimeDays:     in.LeadTimeDays,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info().Str("item_id", item.ID).Str("sku", item.SKU).Msg("item created")
	return item, nil
}

// generateSKU builds <PREFIX>-<RANDOM> from the item name, retrying on
// collision a bounded number of times before switching to a timestamp suffix.
func (s *Service) generateSKU(ctx context.Context, name string) (string, error) {
	prefix := skuPrefix(name)

	for i := 0; i < skuAttempts; i++ {
		candidate := fmt.Sprintf("%s-%s", prefix, strings.ToUpper(uuid.New().String()[:8]))
		exists, err := s.items.SKUExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}

	suffix := strings.ToUpper(strconv.FormatInt(time.Now().UTC().UnixNano(), 36))
	return fmt.Sprintf("%s-%s", prefix, suffix), nil
}

// skuPrefix takes the first three letters of the name, uppercased. Names
// without enough letters fall back to a generic prefix.
func skuPrefix(name string) string {
	letters := []rune{}
	for _, r := range name {
		if unicode.IsLetter(r) {
			letters = append(letters, unicode.ToUpper(r))
			if len(letters) == 3 {
				break
			}
		}
	}
	if len(letters) < 3 {
		return "ITM"
	}
	return string(letters)
}

// GetItem returns a single item
func (s *Service) GetItem(ctx context.Context, id string) (*repository.Item, error) {
	return s.items.GetByID(ctx, id)
}

// ListItems returns all items
func (s *Service) ListItems(ctx context.Context) ([]*repository.Item, error) {
	return s.items.List(ctx)
}

// CreateCategory creates a new category
func (s *Service) CreateCategory(ctx context.Context, name string) (*repository.Category, error) {
	category := &repository.Category{Name: name}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// GetCategory returns a single category
func (s *Service) GetCategory(ctx context.Context, id string) (*repository.Category, error) {
	return s.categories.GetByID(ctx, id)
}

// ListCategories returns all categories
func (s *Service) ListCategories(ctx context.Context) ([]*repository.Category, error) {
	return s.categories.List(ctx)
}
