// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package models

// TierName identifies a subscription tier.
type TierName string

const (
	// TierFree is the default tier for unknown or unconfigured API keys.
	TierFree TierName = "free"

	// TierProfessional unlocks export, live streaming, and larger charts.
	TierProfessional TierName = "professional"
)

// Tier carries the serving limits attached to a subscription level.
//
// Tiers are capability gating only: they come from static configuration
// (key -> tier), not from an authentication or billing system.
type Tier struct {
	Name TierName `json:"name"`

	// MaxChartPoints caps the decimation target for /series requests.
	MaxChartPoints int `json:"max_chart_points"`

	// MaxRangeDays caps the queryable time range.
	MaxRangeDays int `json:"max_range_days"`

	// RateLimitPerMin is the per-key request budget on data routes.
	RateLimitPerMin int `json:"rate_limit_per_min"`

	// ExportEnabled gates CSV export (sync and async jobs).
	ExportEnabled bool `json:"export_enabled"`

	// LiveEnabled gates the WebSocket reading stream.
	LiveEnabled bool `json:"live_enabled"`
}

// FreeTier returns the built-in free tier limits.
func FreeTier() Tier {
	return Tier{
		Name:            TierFree,
		MaxChartPoints:  500,
		MaxRangeDays:    31,
		RateLimitPerMin: 60,
		ExportEnabled:   false,
		LiveEnabled:     false,
	}
}

// ProfessionalTier returns the built-in professional tier limits.
func ProfessionalTier() Tier {
	return Tier{
		Name:            TierProfessional,
		MaxChartPoints:  5000,
		MaxRangeDays:    730,
		RateLimitPerMin: 600,
		ExportEnabled:   true,
		LiveEnabled:     true,
	}
}

// TierByName resolves a tier name to its built-in limits.
// Unknown names resolve to the free tier.
func TierByName(name TierName) Tier {
	switch name {
	case TierProfessional:
		return ProfessionalTier()
	default:
		return FreeTier()
	}
}
