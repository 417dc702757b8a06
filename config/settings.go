// Package config provides company settings used when rendering invoices.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Common errors
var (
	ErrConfigurationError   = errors.New("configuration error")
	ErrMissingRequiredField = errors.New("missing required field")
)

// ConfigError represents a configuration error with field context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrConfigurationError
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

func missingField(field string) *ConfigError {
	return &ConfigError{Field: field, Message: "required field is missing", Err: ErrMissingRequiredField}
}

// CompanySettings holds the issuer-side display fields for invoice
// rendering. CompanyName and Address are required; everything else is
// optional and simply omitted from the output when empty.
type CompanySettings struct {
	// CompanyName is the issuing company's display name.
	CompanyName string `yaml:"company_name" json:"company_name"`

	// Address is the issuing company's address. Lines are separated by
	// newlines.
	Address string `yaml:"address" json:"address"`

	// VATID is the issuing company's VAT identifier.
	VATID string `yaml:"vat_id" json:"vat_id,omitempty"`

	// IBAN and BIC identify the account payments should go to.
	IBAN string `yaml:"iban" json:"iban,omitempty"`
	BIC  string `yaml:"bic" json:"bic,omitempty"`

	// PaymentTerms is free text shown in the payment block.
	PaymentTerms string `yaml:"payment_terms" json:"payment_terms,omitempty"`

	// LegalNotes is free text shown in the footer, truncated to a fixed
	// character budget at render time.
	LegalNotes string `yaml:"legal_notes" json:"legal_notes,omitempty"`

	// Issuer contact shown in the footer.
	IssuerName  string `yaml:"issuer_name" json:"issuer_name,omitempty"`
	IssuerRole  string `yaml:"issuer_role" json:"issuer_role,omitempty"`
	IssuerEmail string `yaml:"issuer_email" json:"issuer_email,omitempty"`
	IssuerPhone string `yaml:"issuer_phone" json:"issuer_phone,omitempty"`

	// Display toggles for the line-item table.
	ShowProductCodes bool `yaml:"show_product_codes" json:"show_product_codes"`
	ShowBarcodes     bool `yaml:"show_barcodes" json:"show_barcodes"`
}

// Validate checks that the fields required for rendering are present.
func (s *CompanySettings) Validate() error {
	if s.CompanyName == "" {
		return missingField("company_name")
	}
	if s.Address == "" {
		return missingField("address")
	}
	return nil
}

// LoadCompanySettings reads and validates company settings from a YAML
// file.
func LoadCompanySettings(path string) (*CompanySettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	return ParseCompanySettings(data)
}

// ParseCompanySettings parses and validates company settings from YAML
// bytes.
func ParseCompanySettings(data []byte) (*CompanySettings, error) {
	var settings CompanySettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("invalid YAML: %v", err), Err: ErrConfigurationError}
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}
