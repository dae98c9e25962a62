// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package api

// Error codes carried in the APIError envelope. Clients switch on the
// code, not the message.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeNotFound      = "NOT_FOUND"
	CodeTierForbidden = "TIER_FORBIDDEN"
	CodeRateLimited   = "RATE_LIMIT_EXCEEDED"
	CodeDatabase      = "DATABASE_ERROR"
	CodeService       = "SERVICE_ERROR"
)
