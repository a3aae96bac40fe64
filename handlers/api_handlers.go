package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"examsim-server/db"
	"examsim-server/exam"
	"examsim-server/ingestion"
	"examsim-server/models"
)

// AssembleExam builds a new exam from a snapshot of the loaded bank.
// POST /api/v1/exams
func AssembleExam(asm *exam.Assembler, bank *ingestion.BankSource, store db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AssembleRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		snapshot, err := bank.Snapshot()
		if err != nil {
			log.Printf("Error reading question bank: %v", err)
			store.LogError(c.Request.Context(), "bank", "", "Question bank unavailable", err.Error())
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Question bank unavailable"})
			return
		}

		set, err := asm.AssembleSections(snapshot, req.Sections)
		if err != nil {
			status, msg := assemblyErrorStatus(err)
			log.Printf("Error assembling exam: %v", err)
			store.LogError(c.Request.Context(), "assembly", "", msg, err.Error())
			c.JSON(status, gin.H{"error": msg, "detail": err.Error()})
			return
		}

		for _, s := range set.Sections {
			if s.Shortfall > 0 {
				store.LogError(c.Request.Context(), "assembly", s.Name, "Section underfilled",
					fmt.Sprintf("exam %s delivered %d of %d questions", set.ID, s.Delivered, s.Requested))
			}
		}

		if req.RequireComplete {
			var underflow *exam.UnderflowError
			if errors.As(exam.Underflow(set), &underflow) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"error":     "Question bank cannot fill every section",
					"shortfall": underflow.Sections,
				})
				return
			}
		}

		if req.ShouldPersist() {
			if err := store.SaveExamSet(c.Request.Context(), set); err != nil {
				log.Printf("Error saving exam set %s: %v", set.ID, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store exam set"})
				return
			}
		}
		log.Printf("Assembled %s", ingestion.Describe(set))
		c.JSON(http.StatusCreated, set)
	}
}

func assemblyErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, exam.ErrInvalidSpec):
		return http.StatusBadRequest, "Invalid section selection"
	case errors.Is(err, exam.ErrBankEmpty):
		return http.StatusUnprocessableEntity, "No valid questions found in question bank"
	case errors.Is(err, exam.ErrBankUnavailable):
		return http.StatusServiceUnavailable, "Question bank unavailable"
	}
	return http.StatusInternalServerError, "Failed to assemble exam"
}

// ListExams lists stored exam sets, newest first.
// GET /api/v1/exams?limit=20
func ListExams(store db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		sets, err := store.ListExamSets(c.Request.Context(), limit)
		if err != nil {
			log.Printf("Error listing exam sets: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve exam sets"})
			return
		}
		if sets == nil {
			sets = []models.ExamSetInfo{}
		}
		c.JSON(http.StatusOK, sets)
	}
}

// GetExam returns a stored exam set.
// GET /api/v1/exams/:id
func GetExam(store db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		set, ok := loadExamSet(c, store)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, set)
	}
}

// SubmitExam grades answer letters against a stored exam set.
// POST /api/v1/exams/:id/submit
func SubmitExam(store db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SubmitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		set, ok := loadExamSet(c, store)
		if !ok {
			return
		}
		for name, letters := range req.Answers {
			outcome, _, found := set.Section(name)
			if !found {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Exam has no section %s", name)})
				return
			}
			if len(letters) > outcome.Delivered {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Section %s has %d questions, got %d answers", name, outcome.Delivered, len(letters))})
				return
			}
		}
		c.JSON(http.StatusOK, exam.GradeExam(set, req.Answers))
	}
}

func loadExamSet(c *gin.Context, store db.Store) (*models.ExamSet, bool) {
	id := c.Param("id")
	set, err := store.GetExamSet(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Exam set %s not found", id)})
		return nil, false
	}
	if err != nil {
		log.Printf("Error fetching exam set %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve exam set"})
		return nil, false
	}
	return set, true
}

// BankSummary reports what the loaded bank can supply per section.
// GET /api/v1/bank/summary
func BankSummary(bank *ingestion.BankSource, specs []models.SectionSpec) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := bank.Summary(specs)
		if err != nil {
			log.Printf("Error summarizing question bank: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Question bank unavailable"})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
