package renewal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/certkeeper/core/renewal"
)

func TestIsDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		expiresOn     time.Time
		thresholdDays float64
		want          bool
	}{
		{
			name:          "far from expiry",
			expiresOn:     now.AddDate(0, 0, 60),
			thresholdDays: 30,
			want:          false,
		},
		{
			name:          "exactly at threshold",
			expiresOn:     now.Add(30 * 24 * time.Hour),
			thresholdDays: 30,
			want:          true,
		},
		{
			name:          "fraction of a day inside threshold",
			expiresOn:     now.Add(30*24*time.Hour - time.Hour),
			thresholdDays: 30,
			want:          true,
		},
		{
			name:          "fraction of a day outside threshold",
			expiresOn:     now.Add(30*24*time.Hour + time.Hour),
			thresholdDays: 30,
			want:          false,
		},
		{
			name:          "already expired",
			expiresOn:     now.AddDate(0, 0, -5),
			thresholdDays: 30,
			want:          true,
		},
		{
			name:          "expires this instant",
			expiresOn:     now,
			thresholdDays: 30,
			want:          true,
		},
		{
			name:          "zero threshold only renews expired",
			expiresOn:     now.Add(time.Minute),
			thresholdDays: 0,
			want:          false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, renewal.IsDue(now, tt.expiresOn, tt.thresholdDays))
		})
	}
}
