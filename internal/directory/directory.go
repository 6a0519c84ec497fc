// Package directory integrates with the external identity directory
// (Microsoft Graph): listing the accounts behind a customer's mail domain and
// aggregating sign-in events.
package directory

import (
	"context"
	"errors"
)

// User is a directory account in application form.
type User struct {
	OID   string `json:"oid"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginStats aggregates sign-in outcomes over a range.
type LoginStats struct {
	Range        string `json:"range"`
	From         string `json:"from"`
	To           string `json:"to"`
	SuccessCount int    `json:"successCount"`
	FailureCount int    `json:"failureCount"`
}

// Valid login-stats ranges.
const (
	RangeToday     = "today"
	RangeLast7Days = "last7days"
	RangeLastMonth = "lastmonth"
	RangeLastYear  = "lastyear"
)

func ValidRange(r string) bool {
	switch r {
	case RangeToday, RangeLast7Days, RangeLastMonth, RangeLastYear:
		return true
	}
	return false
}

// Directory is the external directory contract.
type Directory interface {
	// UsersForDomain lists directory accounts whose address belongs to the
	// domain.
	UsersForDomain(ctx context.Context, domain string) ([]User, error)
	// SignInStats aggregates directory sign-in events over the range.
	SignInStats(ctx context.Context, rng string) (*LoginStats, error)
}

var ErrNotConfigured = errors.New("directory credentials not configured")

// Disabled is the Directory used when no credentials are configured: user
// listing yields nothing and stats are unavailable.
type Disabled struct{}

func (Disabled) UsersForDomain(context.Context, string) ([]User, error) {
	return nil, nil
}

func (Disabled) SignInStats(context.Context, string) (*LoginStats, error) {
	return nil, ErrNotConfigured
}
