package services

import (
	"github.com/taskhive/backend/internal/config"
	"github.com/taskhive/backend/internal/models"
	"gorm.io/gorm"
)

// TierStats is a freelancer's reviewed-work record.
type TierStats struct {
	Approved int64   `json:"approved"`
	Rejected int64   `json:"rejected"`
	Rate     float64 `json:"approval_rate"` // approved / (approved + rejected)
}

// TierFor picks the highest tier whose thresholds the record meets.
func TierFor(rules config.TierConfig, stats TierStats) string {
	meets := func(r config.TierRule) bool {
		return r.MinApproved > 0 && stats.Approved >= int64(r.MinApproved) && stats.Rate >= r.MinApprovalRate
	}
	switch {
	case meets(rules.Elite):
		return models.TierElite
	case meets(rules.Gold):
		return models.TierGold
	case meets(rules.Silver):
		return models.TierSilver
	default:
		return models.TierBronze
	}
}

func loadTierStats(db *gorm.DB, userID uint) (TierStats, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := db.Model(&models.Submission{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ? AND status IN ?", userID, []string{models.SubmissionApproved, models.SubmissionRejected}).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return TierStats{}, err
	}

	var stats TierStats
	for _, r := range rows {
		switch r.Status {
		case models.SubmissionApproved:
			stats.Approved = r.Count
		case models.SubmissionRejected:
			stats.Rejected = r.Count
		}
	}
	if total := stats.Approved + stats.Rejected; total > 0 {
		stats.Rate = float64(stats.Approved) / float64(total)
	}
	return stats, nil
}

// recomputeTier writes the user's tier from their current record and returns it.
func recomputeTier(tx *gorm.DB, rules config.TierConfig, userID uint) (string, error) {
	stats, err := loadTierStats(tx, userID)
	if err != nil {
		return "", err
	}
	tier := TierFor(rules, stats)
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("tier", tier).Error; err != nil {
		return "", err
	}
	return tier, nil
}
