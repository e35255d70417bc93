package settings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/IstiakDeveloper/orgreeni/internal/pricing"
	"github.com/IstiakDeveloper/orgreeni/pkg/config"
)

// Setting keys recognised in the settings table.
const (
	KeyVATPercentage     = "vat_percentage"
	KeyOrderPrefix       = "order_prefix"
	KeyAdvanceOrderDays  = "advance_order_days"
	KeyMaxLineQuantity   = "max_line_quantity"
	KeyLowStockThreshold = "low_stock_threshold"
)

// Policy is the typed view of the commerce settings for one operation.
type Policy struct {
	VATPercentage     decimal.Decimal `json:"vat_percentage"`
	OrderPrefix       string          `json:"order_prefix"`
	AdvanceOrderDays  int             `json:"advance_order_days"`
	MaxLineQuantity   int             `json:"max_line_quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
}

// VATRate returns the VAT percentage as a fraction.
func (p Policy) VATRate() decimal.Decimal {
	return pricing.RateFromPercent(p.VATPercentage)
}

// DefaultsFromConfig builds the fallback policy from environment config.
func DefaultsFromConfig(cfg config.CommerceConfig) (Policy, error) {
	vat, err := decimal.NewFromString(strings.TrimSpace(cfg.VATPercentage))
	if err != nil {
		return Policy{}, fmt.Errorf("invalid vat percentage %q: %w", cfg.VATPercentage, err)
	}
	p := Policy{
		VATPercentage:     vat,
		OrderPrefix:       cfg.OrderPrefix,
		AdvanceOrderDays:  cfg.AdvanceOrderDays,
		MaxLineQuantity:   cfg.MaxLineQuantity,
		LowStockThreshold: cfg.LowStockThreshold,
	}
	return p, p.validate()
}

// apply overlays a single stored setting onto the policy. Unknown keys are
// ignored so unrelated settings can share the table.
func (p *Policy) apply(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case KeyVATPercentage:
		vat, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
		p.VATPercentage = vat
	case KeyOrderPrefix:
		p.OrderPrefix = value
	case KeyAdvanceOrderDays:
		return setInt(&p.AdvanceOrderDays, key, value)
	case KeyMaxLineQuantity:
		return setInt(&p.MaxLineQuantity, key, value)
	case KeyLowStockThreshold:
		return setInt(&p.LowStockThreshold, key, value)
	}
	return nil
}

func (p Policy) validate() error {
	if p.VATPercentage.IsNegative() || p.VATPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("vat percentage must be between 0 and 100")
	}
	if strings.TrimSpace(p.OrderPrefix) == "" {
		return fmt.Errorf("order prefix is required")
	}
	if p.AdvanceOrderDays < 0 {
		return fmt.Errorf("advance order days must be non-negative")
	}
	if p.MaxLineQuantity <= 0 {
		return fmt.Errorf("max line quantity must be positive")
	}
	return nil
}

// IsKnownKey reports whether key maps onto a Policy field.
func IsKnownKey(key string) bool {
	switch key {
	case KeyVATPercentage, KeyOrderPrefix, KeyAdvanceOrderDays, KeyMaxLineQuantity, KeyLowStockThreshold:
		return true
	}
	return false
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	*dst = n
	return nil
}
