// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the folio terminal palette and Lip Gloss styles.
//
// All colors are lipgloss.AdaptiveColor so the theme follows the
// terminal's light or dark background. NewTheme detects the color profile
// with termenv; SetSize drives the widget panel width.
package styles
