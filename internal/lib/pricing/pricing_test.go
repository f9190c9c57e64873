package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name         string
		pricePerUser int64
		totalUsers   int
		wantMonthly  int64
		wantAnnual   int64
	}{
		{
			name:         "команда из пяти пользователей",
			pricePerUser: 30000,
			totalUsers:   5,
			wantMonthly:  150000,
			wantAnnual:   1800000,
		},
		{
			name:         "один пользователь",
			pricePerUser: 30000,
			totalUsers:   1,
			wantMonthly:  30000,
			wantAnnual:   360000,
		},
		{
			name:         "нулевой размер команды считается одним пользователем",
			pricePerUser: 30000,
			totalUsers:   0,
			wantMonthly:  30000,
			wantAnnual:   360000,
		},
		{
			name:         "отрицательный размер команды считается одним пользователем",
			pricePerUser: 30000,
			totalUsers:   -3,
			wantMonthly:  30000,
			wantAnnual:   360000,
		},
		{
			name:         "большая команда без потери точности",
			pricePerUser: 30000,
			totalUsers:   1000,
			wantMonthly:  30000000,
			wantAnnual:   360000000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.pricePerUser, tt.totalUsers)
			assert.Equal(t, tt.wantMonthly, got.MonthlyCost)
			assert.Equal(t, tt.wantAnnual, got.AnnualTotal)
			assert.Equal(t, got.MonthlyCost*AnnualMultiplier, got.AnnualTotal)
		})
	}
}
