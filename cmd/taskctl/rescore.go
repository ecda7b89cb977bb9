package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/internal/services"
)

func rescoreCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "rescore",
		Short: "Retry AI scoring for pending submissions that have no score",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDB()
			if err != nil {
				return err
			}

			var ids []uint
			if err := db.Model(&models.Submission{}).
				Where("status = ? AND ai_score IS NULL AND triage_attempts < ?", models.SubmissionPending, cfg.Triage.RescoreMaxAttempts).
				Order("id ASC").Limit(limit).Pluck("id", &ids).Error; err != nil {
				return err
			}

			ai := services.NewAIService(db, &cfg.OpenAI)
			wallet := services.NewWalletService(db, cfg.Tier)
			review := services.NewReviewService(db, wallet, cfg.Triage.AutoApproveThreshold)
			triage := services.NewTriageService(db, services.NewLLMScorer(ai), cfg.Triage.Timeout())
			submissions := services.NewSubmissionService(db, wallet, triage, review, services.NewSyncQueue())

			type outcome struct {
				ID      uint     `json:"id"`
				AIScore *float64 `json:"ai_score"`
				Error   string   `json:"error,omitempty"`
			}
			results := make([]outcome, 0, len(ids))
			for _, id := range ids {
				o := outcome{ID: id}
				if err := submissions.Rescore(cmd.Context(), id, cfg.Triage.RescoreMaxAttempts); err != nil {
					o.Error = err.Error()
				} else if sub, err := submissions.GetByID(cmd.Context(), id); err == nil {
					o.AIScore = sub.AIScore
				}
				results = append(results, o)
			}

			if jsonOutput {
				return printJSON(results)
			}
			scored := 0
			for _, o := range results {
				switch {
				case o.Error != "":
					fmt.Printf("#%d  error: %s\n", o.ID, o.Error)
				case o.AIScore != nil:
					scored++
					fmt.Printf("#%d  score %.1f\n", o.ID, *o.AIScore)
				default:
					fmt.Printf("#%d  still unscored\n", o.ID)
				}
			}
			fmt.Printf("%d of %d submissions scored\n", scored, len(results))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum submissions to rescore")
	return cmd
}
