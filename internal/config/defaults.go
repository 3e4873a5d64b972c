package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ledgerbill/invoice-service/internal/billing"
)

// Defaults are the billing fallbacks applied to users who have not saved
// their own settings, plus invoice numbering and payment terms.
type Defaults struct {
	LateFeePolicy  billing.LateFeePolicy
	ReminderLadder billing.Ladder
	NetDays        int
	InvoicePrefix  string
}

// defaultsFile is the YAML shape. Money fields are strings so amounts
// survive the trip into decimals exactly.
type defaultsFile struct {
	LateFeePolicy struct {
		Enabled         bool   `yaml:"enabled"`
		GracePeriodDays int    `yaml:"grace_period_days"`
		FeeType         string `yaml:"fee_type"`
		FeeAmount       string `yaml:"fee_amount"`
		MaxFeePercent   string `yaml:"max_fee_percent"`
		CompoundDaily   bool   `yaml:"compound_daily"`
	} `yaml:"late_fee_policy"`
	ReminderLadder []struct {
		DayOffset int    `yaml:"day_offset"`
		Tone      string `yaml:"tone"`
	} `yaml:"reminder_ladder"`
	PaymentTerms struct {
		NetDays int `yaml:"net_days"`
	} `yaml:"payment_terms"`
	InvoiceNumbering struct {
		Prefix string `yaml:"prefix"`
	} `yaml:"invoice_numbering"`
}

// LoadDefaults reads the defaults file at path. A missing file falls back
// to the built-in defaults; an unreadable or invalid file is an error so a
// broken deployment fails at startup instead of billing with garbage.
func LoadDefaults(path string) (*Defaults, error) {
	if path == "" {
		return builtinDefaults(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return builtinDefaults(), nil
		}
		return nil, fmt.Errorf("read defaults file: %w", err)
	}

	var file defaultsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse defaults file: %w", err)
	}

	feeAmount, err := decimal.NewFromString(file.LateFeePolicy.FeeAmount)
	if err != nil {
		return nil, fmt.Errorf("defaults file: late_fee_policy.fee_amount: %w", err)
	}
	maxFeePercent, err := decimal.NewFromString(file.LateFeePolicy.MaxFeePercent)
	if err != nil {
		return nil, fmt.Errorf("defaults file: late_fee_policy.max_fee_percent: %w", err)
	}

	d := &Defaults{
		LateFeePolicy: billing.LateFeePolicy{
			Enabled:         file.LateFeePolicy.Enabled,
			GracePeriodDays: file.LateFeePolicy.GracePeriodDays,
			FeeType:         billing.FeeType(file.LateFeePolicy.FeeType),
			FeeAmount:       feeAmount,
			MaxFeePercent:   maxFeePercent,
			CompoundDaily:   file.LateFeePolicy.CompoundDaily,
		},
		NetDays:       file.PaymentTerms.NetDays,
		InvoicePrefix: file.InvoiceNumbering.Prefix,
	}
	for _, r := range file.ReminderLadder {
		d.ReminderLadder = append(d.ReminderLadder, billing.Rung{
			DayOffset: r.DayOffset,
			Tone:      billing.Tone(r.Tone),
		})
	}

	if err := d.LateFeePolicy.Validate(); err != nil {
		return nil, fmt.Errorf("defaults file: %w", err)
	}
	if err := d.ReminderLadder.Validate(); err != nil {
		return nil, fmt.Errorf("defaults file: %w", err)
	}
	if d.NetDays <= 0 {
		d.NetDays = 30
	}
	if d.InvoicePrefix == "" {
		d.InvoicePrefix = "INV"
	}

	return d, nil
}

func builtinDefaults() *Defaults {
	return &Defaults{
		LateFeePolicy: billing.LateFeePolicy{
			Enabled:         true,
			GracePeriodDays: 3,
			FeeType:         billing.FeeTypePercentMonthly,
			FeeAmount:       decimal.RequireFromString("1.5"),
			MaxFeePercent:   decimal.RequireFromString("25"),
		},
		ReminderLadder: billing.Ladder{
			{DayOffset: -7, Tone: billing.ToneFriendly},
			{DayOffset: -1, Tone: billing.ToneFriendly},
			{DayOffset: 0, Tone: billing.ToneProfessional},
			{DayOffset: 3, Tone: billing.ToneProfessional},
			{DayOffset: 7, Tone: billing.ToneUrgent},
			{DayOffset: 14, Tone: billing.ToneUrgent},
		},
		NetDays:       30,
		InvoicePrefix: "INV",
	}
}
