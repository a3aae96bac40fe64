package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"examsim-server/config"
	"examsim-server/models"
)

func sampleSet(id string, created time.Time, status string) *models.ExamSet {
	return &models.ExamSet{
		ID:        id,
		CreatedAt: created,
		Status:    status,
		Questions: []models.QuestionRecord{
			{ID: "h1", Stem: "Porosity?", Choices: []string{"0.375", "0.429"}, CorrectAnswer: "A", Section: "HPGE"},
			{ID: "h2", Stem: "Head?", Choices: []string{"a", "b", "c"}, CorrectAnswer: "C", Section: "HPGE"},
		},
		Sections: []models.SectionOutcome{
			{Name: "HPGE", Requested: 50, Delivered: 2, Shortfall: 48, TimeLimit: 14400},
		},
		Skipped:     1,
		SkipReasons: map[string]int{"too_few_choices": 1},
	}
}

// exerciseStore runs the behaviour every Store implementation shares.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.GetExamSet(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	older := sampleSet("set-older", base, models.StatusPartial)
	newer := sampleSet("set-newer", base.Add(time.Minute), models.StatusComplete)
	for _, s := range []*models.ExamSet{older, newer} {
		if err := store.SaveExamSet(ctx, s); err != nil {
			t.Fatalf("SaveExamSet(%s) failed: %v", s.ID, err)
		}
	}

	got, err := store.GetExamSet(ctx, older.ID)
	if err != nil {
		t.Fatalf("GetExamSet failed: %v", err)
	}
	if got.Status != models.StatusPartial || len(got.Questions) != 2 || got.Questions[1].CorrectAnswer != "C" {
		t.Fatalf("round trip lost data: %+v", got)
	}
	if sec, qs, ok := got.Section("HPGE"); !ok || sec.Shortfall != 48 || len(qs) != 2 {
		t.Fatalf("section outcome lost: %+v", got.Sections)
	}

	list, err := store.ListExamSets(ctx, 10)
	if err != nil {
		t.Fatalf("ListExamSets failed: %v", err)
	}
	if len(list) < 2 || list[0].ID != newer.ID {
		t.Fatalf("expected newest exam set first, got %+v", list)
	}
	if list[0].Questions != 2 {
		t.Errorf("expected question count 2, got %d", list[0].Questions)
	}

	store.LogError(ctx, "assembly", "HPGE", "section short", "filled 2 of 50")
	store.LogAdminEvent(ctx, "admin@example.com", "bank_reload", "question_bank.json", "120 records")
	store.LogAdminEvent(ctx, "system", "bank_reload", "question_bank.json", "121 records")

	errs, err := store.RecentErrors(ctx, 5)
	if err != nil {
		t.Fatalf("RecentErrors failed: %v", err)
	}
	if len(errs) == 0 || errs[0].Section != "HPGE" || errs[0].ErrorMessage != "section short" {
		t.Fatalf("unexpected error logs: %+v", errs)
	}

	events, err := store.RecentAdminEvents(ctx, 5)
	if err != nil {
		t.Fatalf("RecentAdminEvents failed: %v", err)
	}
	if len(events) < 2 || events[0].Actor != "system" || events[1].Actor != "admin@example.com" {
		t.Fatalf("expected newest event first, got %+v", events)
	}
}

func TestSQLiteStore(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "examsim.db") + "?_pragma=busy_timeout(5000)"
	store, err := OpenSQLite(context.Background(), dsn)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestSQLiteStoreOverwrite(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "examsim.db")
	store, err := Open(context.Background(), config.StoreConfig{Driver: "sqlite", DatabaseURL: dsn})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	set := sampleSet("set-1", time.Now().UTC(), models.StatusPartial)
	if err := store.SaveExamSet(ctx, set); err != nil {
		t.Fatal(err)
	}
	set.Status = models.StatusComplete
	if err := store.SaveExamSet(ctx, set); err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	got, err := store.GetExamSet(ctx, "set-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusComplete {
		t.Fatalf("expected updated status, got %s", got.Status)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.StoreConfig{Driver: "mongo"}); err == nil {
		t.Fatal("expected an error for an unknown driver")
	}
}

func TestPGStore(t *testing.T) {
	url := os.Getenv("EXAMSIM_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("EXAMSIM_TEST_DATABASE_URL not set")
	}
	store, err := OpenPostgres(context.Background(), url)
	if err != nil {
		t.Fatalf("OpenPostgres failed: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("EXAMSIM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("EXAMSIM_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("failed to flush test db: %v", err)
	}
	store := NewRedisStore(client, time.Minute)
	defer store.Close()
	exerciseStore(t, store)

	ttl, err := client.TTL(ctx, examSetPrefix+"set-newer").Result()
	if err != nil || ttl <= 0 {
		t.Fatalf("expected exam set to carry a TTL, got %v, %v", ttl, err)
	}
}
