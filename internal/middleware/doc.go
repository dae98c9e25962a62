// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

// Package middleware provides HTTP middleware shared by the API server:
// request ID propagation, Prometheus instrumentation, gzip compression,
// and a sliding-window performance monitor exposed through the health
// surface.
//
// All middleware follows the standard func(http.Handler) http.Handler
// shape so it composes with chi's Use chain.
package middleware
