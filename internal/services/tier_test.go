package services

import (
	"testing"

	"github.com/taskhive/backend/internal/config"
	"github.com/taskhive/backend/internal/models"
)

func TestTierFor(t *testing.T) {
	rules := config.DefaultConfig().Tier

	tests := []struct {
		name  string
		stats TierStats
		want  string
	}{
		{"new freelancer", TierStats{}, models.TierBronze},
		{"enough work, poor rate", TierStats{Approved: 12, Rejected: 8, Rate: 0.6}, models.TierBronze},
		{"silver", TierStats{Approved: 10, Rate: 0.8}, models.TierSilver},
		{"gold volume at silver rate", TierStats{Approved: 60, Rejected: 10, Rate: 0.857}, models.TierSilver},
		{"gold", TierStats{Approved: 50, Rate: 0.9}, models.TierGold},
		{"elite", TierStats{Approved: 250, Rejected: 5, Rate: 0.98}, models.TierElite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TierFor(rules, tt.stats); got != tt.want {
				t.Errorf("TierFor(%+v) = %s, want %s", tt.stats, got, tt.want)
			}
		})
	}
}

func TestTierFor_UnsetRuleNeverMatches(t *testing.T) {
	rules := config.TierConfig{Silver: config.TierRule{MinApproved: 1}}
	if got := TierFor(rules, TierStats{Approved: 1000, Rate: 1}); got != models.TierSilver {
		t.Errorf("TierFor = %s, want %s when gold and elite are unset", got, models.TierSilver)
	}
}
