package organization

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/caycohq/cayco-server/internal/database/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("organization not found")
	// ErrIdentifierExhausted means no unique identifier could be generated
	// within the attempt bound; the organization is not persisted.
	ErrIdentifierExhausted = errors.New("failed to generate unique organization ID")
)

const identifierAttempts = 10

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type CreateInput struct {
	Name    string
	OwnerID uuid.UUID
	Email   string
	Phone   string
}

// Create persists a new organization with a freshly generated identifier.
// The uniqueness pre-check tolerates a benign race: a collision that slips
// past it surfaces as a unique-constraint violation at write time, which
// counts as a failed attempt and triggers another generation.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Company, error) {
	return s.CreateTx(s.db.WithContext(ctx), input)
}

// CreateTx is Create running on the caller's transaction handle.
func (s *Service) CreateTx(tx *gorm.DB, input CreateInput) (*models.Company, error) {
	for attempt := 0; attempt < identifierAttempts; attempt++ {
		identifier := newIdentifier()

		var count int64
		if err := tx.Model(&models.Company{}).
			Where("identifier = ?", identifier).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			continue
		}

		company := models.Company{
			Name:       input.Name,
			Identifier: identifier,
			OwnerID:    input.OwnerID,
			Email:      input.Email,
			Phone:      input.Phone,
		}
		err := tx.Create(&company).Error
		if err == nil {
			return &company, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		return nil, err
	}

	return nil, ErrIdentifierExhausted
}

// FindByIdentifier looks an organization up by its public 8-character key.
// Identifiers are normalized to uppercase, so lookups are case-insensitive.
func (s *Service) FindByIdentifier(ctx context.Context, identifier string) (*models.Company, error) {
	var company models.Company
	err := s.db.WithContext(ctx).
		Where("identifier = ?", strings.ToUpper(strings.TrimSpace(identifier))).
		First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}

func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	err := s.db.WithContext(ctx).First(&company, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}

// newIdentifier returns 8 uppercase hex characters (4 random bytes).
func newIdentifier() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
