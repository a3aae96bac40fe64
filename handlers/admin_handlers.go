package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"

	"examsim-server/db"
	"examsim-server/ingestion"
	"examsim-server/middleware"
	"examsim-server/models"
)

// NewRenderer loads the admin HTML templates from dir.
func NewRenderer(dir string) multitemplate.Renderer {
	renderer := multitemplate.NewRenderer()
	renderer.AddFromFiles("admin_dashboard",
		filepath.Join(dir, "layout.html"),
		filepath.Join(dir, "admin_dashboard.html"))
	return renderer
}

// AdminDashboard renders bank health and recent activity.
// GET /admin/dashboard
func AdminDashboard(bank *ingestion.BankSource, specs []models.SectionSpec, store db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		summary, err := bank.Summary(specs)
		bankError := ""
		if err != nil {
			log.Printf("Error summarizing question bank: %v", err)
			bankError = err.Error()
		}

		recentSets, err := store.ListExamSets(ctx, 10)
		if err != nil {
			log.Printf("Error fetching recent exam sets: %v", err)
		}
		recentEvents, err := store.RecentAdminEvents(ctx, 10)
		if err != nil {
			log.Printf("Error fetching recent admin events: %v", err)
		}
		recentErrors, err := store.RecentErrors(ctx, 10)
		if err != nil {
			log.Printf("Error fetching recent error logs: %v", err)
		}

		c.HTML(http.StatusOK, "admin_dashboard", gin.H{
			"Title":        "Exam Simulator Admin",
			"Summary":      summary,
			"SkipReasons":  sortedReasons(summary.SkipReasons),
			"Specs":        specs,
			"BankError":    bankError,
			"RecentSets":   recentSets,
			"RecentEvents": recentEvents,
			"RecentErrors": recentErrors,
			"Subject":      middleware.Subject(c),
		})
	}
}

type reasonCount struct {
	Reason string
	Count  int
}

func sortedReasons(reasons map[string]int) []reasonCount {
	out := make([]reasonCount, 0, len(reasons))
	for r, n := range reasons {
		out = append(out, reasonCount{r, n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Reason < out[j].Reason })
	return out
}

// ReloadBank re-reads the bank file on demand.
// POST /admin/bank/reload
func ReloadBank(bank *ingestion.BankSource, specs []models.SectionSpec, store db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := RefreshBank(c.Request.Context(), bank, specs, store, middleware.Subject(c))
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to reload question bank", "detail": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// RefreshBank reloads the bank, records the outcome as an admin event and
// logs validation drops. It backs both the reload endpoint and the periodic
// reload in main.
func RefreshBank(ctx context.Context, bank *ingestion.BankSource, specs []models.SectionSpec, store db.Store, actor string) (models.BankSummary, error) {
	if _, err := bank.Reload(); err != nil {
		log.Printf("Error reloading question bank: %v", err)
		store.LogAdminEvent(ctx, actor, "bank_reload_failed", bank.Path(), fmt.Sprintf("Error: %v", err))
		store.LogError(ctx, "bank", "", "Failed to reload question bank", err.Error())
		return models.BankSummary{}, err
	}
	summary, err := bank.Summary(specs)
	if err != nil {
		store.LogAdminEvent(ctx, actor, "bank_reload_failed", bank.Path(), fmt.Sprintf("Error: %v", err))
		return summary, err
	}
	if summary.Skipped > 0 {
		log.Printf("Warning: %d of %d bank records skipped: %v", summary.Skipped, summary.Records, summary.SkipReasons)
		store.LogError(ctx, "validator", "", "Bank records skipped",
			fmt.Sprintf("%d of %d skipped: %v", summary.Skipped, summary.Records, summary.SkipReasons))
	}
	store.LogAdminEvent(ctx, actor, "bank_reload", bank.Path(),
		fmt.Sprintf("%d records, %d valid, %d skipped", summary.Records, summary.Valid, summary.Skipped))
	return summary, nil
}

// AdminEvents lists recent admin events.
// GET /admin/events?limit=50
func AdminEvents(store db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		events, err := store.RecentAdminEvents(c.Request.Context(), limit)
		if err != nil {
			log.Printf("Error fetching admin events: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve admin events"})
			return
		}
		if events == nil {
			events = []models.AdminEvent{}
		}
		c.JSON(http.StatusOK, events)
	}
}

// AdminErrorLogs lists recent error log entries.
// GET /admin/error_logs?limit=50
func AdminErrorLogs(store db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		entries, err := store.RecentErrors(c.Request.Context(), limit)
		if err != nil {
			log.Printf("Error fetching error logs: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve error logs"})
			return
		}
		if entries == nil {
			entries = []models.ErrorLog{}
		}
		c.JSON(http.StatusOK, entries)
	}
}
