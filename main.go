package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"examsim-server/config"
	"examsim-server/db"
	"examsim-server/exam"
	"examsim-server/handlers"
	"examsim-server/ingestion"
	"examsim-server/middleware"
)

// Exit codes of --generate.
const (
	exitOK = iota
	exitConfig
	exitBank
	exitPersist
	exitPartial
)

func main() {
	fs := config.Flags()
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("Error parsing flags: %v", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(fs)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	if subject, _ := fs.GetString("issue-token"); subject != "" {
		roles, _ := fs.GetStringSlice("roles")
		ttl, _ := fs.GetDuration("token-ttl")
		os.Exit(runIssueToken(cfg, subject, roles, ttl, os.Stdout))
	}

	if cfg.Bank.SeedSample {
		if _, err := ingestion.SeedSampleBank(cfg.Bank.Path); err != nil {
			log.Printf("Warning: could not seed sample bank: %v", err)
		}
	}

	if generate, _ := fs.GetBool("generate"); generate {
		strict, _ := fs.GetBool("strict")
		os.Exit(runGenerate(cfg, strict))
	}
	runServer(cfg)
}

// runGenerate assembles one exam into cfg.ExamFile and returns the exit code.
func runGenerate(cfg *config.Config, strict bool) int {
	asm, err := exam.NewAssembler(cfg.SectionSpecs(), cfg.Grouping)
	if err != nil {
		log.Printf("Error: %v", err)
		return exitConfig
	}
	bank, err := ingestion.LoadBank(cfg.Bank.Path)
	if err != nil {
		log.Printf("Error: %v", err)
		return exitBank
	}
	set, err := asm.Assemble(bank)
	if err != nil {
		log.Printf("Error: failed to generate exam: %v", err)
		if errors.Is(err, exam.ErrBankEmpty) {
			return exitBank
		}
		return exitConfig
	}

	underflow := exam.Underflow(set)
	if underflow != nil && strict {
		log.Printf("Error: %v", underflow)
		return exitPartial
	}
	if err := ingestion.WriteExamFile(cfg.ExamFile, set); err != nil {
		log.Printf("Error: %v", err)
		return exitPersist
	}
	if underflow != nil {
		log.Printf("Warning: %v", underflow)
	}
	fmt.Printf("Wrote %s to %s\n", ingestion.Describe(set), cfg.ExamFile)
	return exitOK
}

// runIssueToken writes a bearer token for subject to w and returns the exit code.
func runIssueToken(cfg *config.Config, subject string, roles []string, ttl time.Duration, w io.Writer) int {
	if cfg.Auth.JWTSigningKey == "" {
		log.Printf("Error: AUTH.JWT_SIGNING_KEY is not set")
		return exitConfig
	}
	for _, r := range roles {
		if r != middleware.RoleAdmin && r != middleware.RoleCandidate {
			log.Printf("Error: unknown role %q", r)
			return exitConfig
		}
	}
	if ttl <= 0 {
		log.Printf("Error: token ttl must be positive, got %s", ttl)
		return exitConfig
	}
	token, err := middleware.IssueToken(cfg.Auth, subject, roles, ttl)
	if err != nil {
		log.Printf("Error: signing token: %v", err)
		return exitConfig
	}
	if !cfg.Auth.Enabled {
		log.Printf("Warning: auth is disabled, the server will not check this token")
	}
	fmt.Fprintln(w, token)
	return exitOK
}

func runServer(cfg *config.Config) {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, err := db.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Unable to open %s store: %v", cfg.Store.Driver, err)
	}
	defer store.Close()

	specs := cfg.SectionSpecs()
	asm, err := exam.NewAssembler(specs, cfg.Grouping)
	if err != nil {
		log.Fatalf("Error configuring sections: %v", err)
	}

	bank := ingestion.NewBankSource(cfg.Bank.Path)
	if _, err := handlers.RefreshBank(ctx, bank, specs, store, "system"); err != nil {
		log.Printf("Warning: starting without a question bank: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.GinMode)
	router := handlers.NewRouter(handlers.Deps{
		Assembler:   asm,
		Bank:        bank,
		Store:       store,
		Auth:        cfg.Auth,
		TemplateDir: "templates",
	})

	// Periodic bank reload picks up edits to the bank file
	if cfg.ReloadInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.ReloadInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					log.Println("Running scheduled question bank reload...")
					if _, err := handlers.RefreshBank(ctx, bank, specs, store, "system"); err != nil {
						log.Printf("Error during scheduled bank reload: %v", err)
					}
				}
			}
		}()
	}

	srv := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: router,
	}

	// Goroutine to gracefully shut down the server
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("Exam simulator server starting on %s", cfg.ServerPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server startup error: %v", err)
	}
	log.Println("Server exited gracefully.")
}
