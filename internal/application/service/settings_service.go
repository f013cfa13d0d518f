package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/repository"
	"github.com/sangkips/pos-engine/pkg/apperror"
)

// SettingsService handles the store-wide settings used on receipts
type SettingsService struct {
	settingsRepo repository.SettingsRepository
	defaults     entity.StoreSettings
}

// NewSettingsService creates a new settings service. defaults fill the row
// the first time it is read.
func NewSettingsService(settingsRepo repository.SettingsRepository, defaults entity.StoreSettings) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
		defaults:     defaults,
	}
}

// GetSettings retrieves the store settings, creating defaults if not exists
func (s *SettingsService) GetSettings(ctx context.Context) (*entity.StoreSettings, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	// If no settings exist, create default settings
	if settings == nil {
		defaults := s.defaults
		settings = &defaults
		if err := s.settingsRepo.Create(ctx, settings); err != nil {
			return nil, err
		}
	}

	return settings, nil
}

// UpdateSettingsInput represents the input for updating settings
type UpdateSettingsInput struct {
	CompanyName    string
	Address        string
	Phone          string
	TaxID          string
	TicketFooter   string
	CurrencySymbol string
	CurrencyCode   string
	PrintOnCommit  bool
}

// UpdateSettings updates the store settings
func (s *SettingsService) UpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*entity.StoreSettings, error) {
	var fieldErrors []apperror.FieldError
	if strings.TrimSpace(input.CompanyName) == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "company_name", Message: "company_name is required"})
	}
	if strings.TrimSpace(input.CurrencySymbol) == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "currency_symbol", Message: "currency_symbol is required"})
	}
	if len(fieldErrors) > 0 {
		return nil, apperror.NewValidationError(fieldErrors)
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	// Update fields
	settings.CompanyName = strings.TrimSpace(input.CompanyName)
	settings.Address = input.Address
	settings.Phone = input.Phone
	settings.TaxID = input.TaxID
	settings.TicketFooter = input.TicketFooter
	settings.CurrencySymbol = strings.TrimSpace(input.CurrencySymbol)
	if input.CurrencyCode != "" {
		settings.CurrencyCode = strings.ToUpper(input.CurrencyCode)
	}
	settings.PrintOnCommit = input.PrintOnCommit

	if err := s.settingsRepo.Update(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
