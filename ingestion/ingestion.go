package ingestion

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"examsim-server/exam"
	"examsim-server/models"
)

const maxCSVChoices = 6

// LoadBank reads a question bank from path. The format follows the file
// extension: .json, .yaml/.yml or .csv. Any read or decode failure wraps
// exam.ErrBankUnavailable.
func LoadBank(path string) ([]models.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", exam.ErrBankUnavailable, err)
	}
	defer f.Close()

	var bank []models.RawRecord
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.NewDecoder(f).Decode(&bank)
	case ".yaml", ".yml":
		err = yaml.NewDecoder(f).Decode(&bank)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case ".csv":
		bank, err = readCSV(f)
	default:
		err = fmt.Errorf("unsupported bank format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", exam.ErrBankUnavailable, path, err)
	}
	return bank, nil
}

// readCSV maps each row onto the header names. choice_1..choice_6 columns are
// folded into a choices list, blank ones dropped.
func readCSV(r io.Reader) ([]models.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header row")
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	bank := make([]models.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(models.RawRecord, len(header))
		choices := make([]string, maxCSVChoices)
		for i, cell := range row {
			if i >= len(header) {
				break
			}
			cell = strings.TrimSpace(cell)
			var n int
			if _, err := fmt.Sscanf(header[i], "choice_%d", &n); err == nil && n >= 1 && n <= maxCSVChoices {
				choices[n-1] = cell
				continue
			}
			if cell == "" {
				continue
			}
			rec[header[i]] = cell
		}
		var kept []any
		for _, c := range choices {
			if c != "" {
				kept = append(kept, c)
			}
		}
		if kept != nil {
			rec["choices"] = kept
		}
		bank = append(bank, rec)
	}
	return bank, nil
}

// SampleBank returns three starter questions, one per default section.
func SampleBank() []models.RawRecord {
	return []models.RawRecord{
		{
			"stem":           "What is the reaction force R1 for a simply supported beam with 15 kN/m UDL over 10m span?",
			"figure":         "https://i.imgur.com/2s8Q9bL.png",
			"choices":        []any{"75 kN", "150 kN", "225 kN", "300 kN"},
			"correct_answer": "A",
			"section":        "AMSTHEC",
			"difficulty":     2,
			"explanation":    "For a simply supported beam with UDL, reactions are equal: R1 = R2 = (wL)/2 = (15 × 10)/2 = 75 kN",
		},
		{
			"stem":           "A soil has void ratio e = 0.6 and specific gravity G_s = 2.65. What is the porosity?",
			"figure":         "https://i.imgur.com/9z4K7pS.png",
			"choices":        []any{"0.375", "0.429", "0.545", "0.625"},
			"correct_answer": "A",
			"section":        "HPGE",
			"difficulty":     2,
			"explanation":    "Porosity n = e / (1 + e) = 0.6 / (1 + 0.6) = 0.375",
		},
		{
			"stem":           "What is the maximum bending moment for a simply supported beam with 15 kN/m UDL over 10m span?",
			"figure":         "https://i.imgur.com/2s8Q9bL.png",
			"choices":        []any{"187.5 kN·m", "281.25 kN·m", "375 kN·m", "468.75 kN·m"},
			"correct_answer": "A",
			"section":        "PSAD",
			"difficulty":     2,
			"explanation":    "Maximum bending moment = wL²/8 = (15 × 10²)/8 = 187.5 kN·m",
		},
	}
}

// SeedSampleBank writes SampleBank to path unless a file already exists there.
// It reports whether a file was written.
func SeedSampleBank(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	data, err := json.MarshalIndent(SampleBank(), "", "  ")
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("failed to write sample bank %s: %w", path, err)
	}
	log.Printf("Created sample question bank at %s", path)
	return true, nil
}

// WriteExamFile writes the exam questions as a JSON array, the layout the
// desktop client reads. The file is replaced atomically.
func WriteExamFile(path string, set *models.ExamSet) error {
	data, err := json.MarshalIndent(set.Questions, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", exam.ErrPersistWrite, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", exam.ErrPersistWrite, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", exam.ErrPersistWrite, err)
	}
	return nil
}

// BankSource holds the most recently loaded bank. Readers take a private
// copy so concurrent assemblies never share records.
type BankSource struct {
	path string

	mu       sync.RWMutex
	bank     []models.RawRecord
	loadedAt time.Time
}

// NewBankSource creates a source for path. Call Reload before use.
func NewBankSource(path string) *BankSource {
	return &BankSource{path: path}
}

// Path returns the bank file location.
func (s *BankSource) Path() string { return s.path }

// Reload reads the bank file again. On failure the previous bank is kept.
func (s *BankSource) Reload() (int, error) {
	bank, err := LoadBank(s.path)
	if err != nil {
		return 0, err
	}
	if bank == nil {
		bank = []models.RawRecord{}
	}
	s.mu.Lock()
	s.bank = bank
	s.loadedAt = time.Now()
	s.mu.Unlock()
	log.Printf("Loaded %d records from question bank %s", len(bank), s.path)
	return len(bank), nil
}

// Snapshot returns a deep copy of the current bank.
func (s *BankSource) Snapshot() ([]models.RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.bank == nil {
		return nil, fmt.Errorf("%w: %s not loaded", exam.ErrBankUnavailable, s.path)
	}
	out := make([]models.RawRecord, len(s.bank))
	for i, rec := range s.bank {
		out[i] = copyRecord(rec)
	}
	return out, nil
}

// Summary reports how the current bank fills each section.
func (s *BankSource) Summary(specs []models.SectionSpec) (models.BankSummary, error) {
	bank, err := s.Snapshot()
	if err != nil {
		return models.BankSummary{}, err
	}
	s.mu.RLock()
	loadedAt := s.loadedAt
	s.mu.RUnlock()

	summary := models.BankSummary{
		Path:     s.path,
		LoadedAt: loadedAt,
		Records:  len(bank),
	}
	report, err := exam.Validate(bank, specs)
	summary.Skipped = report.Skipped
	summary.SkipReasons = report.Reasons
	if err != nil && !errors.Is(err, exam.ErrBankEmpty) {
		return summary, err
	}
	summary.Valid = len(report.Valid)

	buckets := exam.Categorize(report.Valid, specs)
	for _, spec := range specs {
		b := buckets[spec.Name]
		summary.Sections = append(summary.Sections, models.SectionSummary{
			Name:    spec.Name,
			Total:   b.Len(),
			Buckets: b.Counts(),
		})
	}
	return summary, nil
}

func copyRecord(rec models.RawRecord) models.RawRecord {
	out := make(models.RawRecord, len(rec))
	for k, v := range rec {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case []any:
		c := make([]any, len(t))
		for i := range t {
			c[i] = copyValue(t[i])
		}
		return c
	case []string:
		return append([]string(nil), t...)
	case map[string]any:
		c := make(map[string]any, len(t))
		for k, e := range t {
			c[k] = copyValue(e)
		}
		return c
	case models.RawRecord:
		return copyRecord(t)
	}
	return v
}

// Describe formats a one-line summary of an assembled exam for logs and the CLI.
func Describe(set *models.ExamSet) string {
	parts := make([]string, 0, len(set.Sections))
	for _, s := range set.Sections {
		p := fmt.Sprintf("%s %d/%d", s.Name, s.Delivered, s.Requested)
		if s.Fallback {
			p += " (fallback)"
		}
		parts = append(parts, p)
	}
	counts := fmt.Sprintf("%d questions", len(set.Questions))
	if short := set.Shortfall(); short > 0 {
		counts += fmt.Sprintf(" (%d short)", short)
	}
	return fmt.Sprintf("exam %s [%s] %s, %d skipped: %s",
		set.ID, set.Status, counts, set.Skipped, strings.Join(parts, ", "))
}
