package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/internal/services"
)

var startTime = time.Now()

// Metrics returns Prometheus-compatible text format metrics.
func Metrics(c *gin.Context) {
	var b strings.Builder

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "taskhive_uptime_seconds", "Time since server start in seconds", time.Since(startTime).Seconds())
	writeGauge(&b, "taskhive_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "taskhive_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))

	db := models.GetDB()
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			stats := sqlDB.Stats()
			writeGauge(&b, "taskhive_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
			writeGauge(&b, "taskhive_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
		}
	}

	if hub := services.GetSSEHub(); hub != nil {
		writeGauge(&b, "taskhive_sse_active_clients", "Number of active SSE connections", float64(hub.ClientCount()))
	}

	queueAsync := 0.0
	if q := services.GetTaskQueue(); q != nil && q.IsAsync() {
		queueAsync = 1.0
	}
	writeGauge(&b, "taskhive_queue_async_enabled", "Whether the Redis rescore queue is enabled (1=yes, 0=no)", queueAsync)

	if db != nil {
		for _, status := range []string{models.SubmissionPending, models.SubmissionApproved, models.SubmissionRejected} {
			var n int64
			db.Model(&models.Submission{}).Where("status = ?", status).Count(&n)
			writeGauge(&b, "taskhive_submissions_"+strings.ToLower(status), "Submissions in status "+status, float64(n))
		}

		var unscored int64
		db.Model(&models.Submission{}).Where("status = ? AND ai_score IS NULL", models.SubmissionPending).Count(&unscored)
		writeGauge(&b, "taskhive_submissions_unscored", "Pending submissions still waiting for an AI score", float64(unscored))

		var poolFree, poolAssigned int64
		db.Model(&models.TaskPoolEntry{}).Where("is_assigned = ?", false).Count(&poolFree)
		db.Model(&models.TaskPoolEntry{}).Where("is_assigned = ?", true).Count(&poolAssigned)
		writeGauge(&b, "taskhive_pool_free", "Unassigned task pool entries", float64(poolFree))
		writeGauge(&b, "taskhive_pool_assigned", "Assigned task pool entries", float64(poolAssigned))

		var pendingPayouts int64
		db.Model(&models.PayoutRequest{}).Where("status = ?", models.PayoutPending).Count(&pendingPayouts)
		writeGauge(&b, "taskhive_payouts_pending", "Payout requests awaiting an admin", float64(pendingPayouts))

		var activeProjects, freelancers int64
		db.Model(&models.Project{}).Where("is_active = ?", true).Count(&activeProjects)
		db.Model(&models.User{}).Where("role = ? AND is_active = ?", models.RoleFreelancer, true).Count(&freelancers)
		writeGauge(&b, "taskhive_projects_active", "Number of active projects", float64(activeProjects))
		writeGauge(&b, "taskhive_freelancers_active", "Number of active freelancers", float64(freelancers))
	}

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
