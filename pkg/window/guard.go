// Package window implements the provider's 24-hour free-messaging window rule.
package window

import (
	"time"

	"github.com/zapflow/zapflow/pkg/models"
)

// Duration is the provider-defined length of the customer-service window
// opened by a user-initiated inbound message.
const Duration = 24 * time.Hour

// Evaluate returns whether a free-form send is permitted at the given instant.
// Pure and total: FreeFormAllowed iff the window is set and now is strictly
// before its expiry.
func Evaluate(state models.WindowState, now time.Time) models.WindowVerdict {
	if state.WindowExpiresAt != nil && now.Before(*state.WindowExpiresAt) {
		return models.FreeFormAllowed
	}

	return models.TemplateRequired
}

// RecordInbound returns the window state after an inbound message at now.
// Every inbound message extends the window unconditionally, regardless of
// content; the window is user-initiated-contact based, not message-type
// based. The expiry is monotonically non-decreasing: a new inbound message
// never shortens an existing window.
func RecordInbound(state models.WindowState, now time.Time) models.WindowState {
	expires := now.Add(Duration)

	next := models.WindowState{
		LastInboundAt:   &now,
		WindowExpiresAt: &expires,
	}

	if state.WindowExpiresAt != nil && state.WindowExpiresAt.After(expires) {
		next.WindowExpiresAt = state.WindowExpiresAt
	}

	return next
}
