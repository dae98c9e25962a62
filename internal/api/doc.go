// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

// Package api implements the HTTP surface of the Voltaic server: the
// chi router, tier resolution and capability gating, the telemetry
// intake endpoint, decimated series queries, device listings, CSV
// export jobs, and the WebSocket live stream.
//
// Every endpoint responds with the models.APIResponse envelope. Tier
// limits come from static configuration (API key -> tier name); there
// is no authentication or billing integration behind them.
package api
