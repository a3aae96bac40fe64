package exam

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"examsim-server/models"
)

// Assembler builds exams for a fixed section configuration.
// It holds no per-run state and may be shared between goroutines; every run
// draws a fresh Source from NewSource.
type Assembler struct {
	Specs     []models.SectionSpec
	Policy    GroupPolicy
	NewSource func() Source
}

// NewAssembler validates specs and returns an Assembler using a wall-clock
// seeded Source per run.
func NewAssembler(specs []models.SectionSpec, policy GroupPolicy) (*Assembler, error) {
	if err := ValidateSpecs(specs); err != nil {
		return nil, err
	}
	return &Assembler{Specs: specs, Policy: policy, NewSource: NewSource}, nil
}

// Assemble builds an exam covering every configured section.
func (a *Assembler) Assemble(bank []models.RawRecord) (*models.ExamSet, error) {
	return assemble(bank, a.Specs, a.Specs, a.Policy, a.NewSource())
}

// AssembleSections builds an exam for the named sections only, in configured
// order. An empty names list means every section.
func (a *Assembler) AssembleSections(bank []models.RawRecord, names []string) (*models.ExamSet, error) {
	build, err := a.Sections(names)
	if err != nil {
		return nil, err
	}
	return assemble(bank, a.Specs, build, a.Policy, a.NewSource())
}

// Sections returns the configured specs matching names, in configured order.
func (a *Assembler) Sections(names []string) ([]models.SectionSpec, error) {
	if len(names) == 0 {
		return a.Specs, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := make([]models.SectionSpec, 0, len(names))
	for _, s := range a.Specs {
		if want[s.Name] {
			out = append(out, s)
			delete(want, s.Name)
		}
	}
	for n := range want {
		return nil, fmt.Errorf("%w: unknown section %q", ErrInvalidSpec, n)
	}
	return out, nil
}

// Assemble validates and categorizes bank, then builds every section of
// specs in declared order with the default group policy.
func Assemble(bank []models.RawRecord, specs []models.SectionSpec, rng Source) (*models.ExamSet, error) {
	if err := ValidateSpecs(specs); err != nil {
		return nil, err
	}
	return assemble(bank, specs, specs, DefaultGroupPolicy(), rng)
}

// assemble validates against every recognized section but only builds the
// sections listed in build.
func assemble(bank []models.RawRecord, recognized, build []models.SectionSpec, policy GroupPolicy, rng Source) (*models.ExamSet, error) {
	report, err := Validate(bank, recognized)
	if err != nil {
		return nil, err
	}
	categorized := Categorize(report.Valid, recognized)

	set := &models.ExamSet{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Status:      models.StatusComplete,
		Skipped:     report.Skipped,
		SkipReasons: report.Reasons,
	}

	for _, spec := range build {
		var sel Selection
		fallback := categorized[spec.Name].Len() == 0
		if fallback {
			log.Printf("Warning: section %s has no questions, drawing %d from all sections", spec.Name, spec.Total)
			sel = SelectFallback(report.Valid, spec, rng)
		} else {
			sel = SelectQuota(categorized[spec.Name], spec, rng)
		}

		ordered := ShuffleGroups(bankOrder(sel.Records), policy, rng)
		outcome := models.SectionOutcome{
			Name:      spec.Name,
			Requested: spec.Total,
			Delivered: len(ordered),
			Shortfall: sel.Shortfall,
			Fallback:  fallback,
			Offset:    len(set.Questions),
			TimeLimit: spec.TimeLimit,
		}
		for _, q := range ordered {
			p, err := PermuteChoices(q, rng)
			if err != nil {
				return nil, err
			}
			if HasDuplicateChoices(p) {
				set.DuplicateChoiceRecords = append(set.DuplicateChoiceRecords, p.ID)
			}
			set.Questions = append(set.Questions, p)
		}
		if outcome.Shortfall > 0 {
			log.Printf("Warning: section %s filled %d of %d questions", spec.Name, outcome.Delivered, outcome.Requested)
			set.Status = models.StatusPartial
		}
		set.Sections = append(set.Sections, outcome)
	}
	return set, nil
}

// Underflow returns an *UnderflowError describing every short section of
// set, or nil when the exam is complete.
func Underflow(set *models.ExamSet) error {
	var short []SectionShortfall
	for _, s := range set.Sections {
		if s.Shortfall > 0 {
			short = append(short, SectionShortfall{Section: s.Name, Requested: s.Requested, Delivered: s.Delivered})
		}
	}
	if len(short) == 0 {
		return nil
	}
	return &UnderflowError{Sections: short}
}

// ValidateSpecs rejects empty, duplicate or non-positive section specs.
func ValidateSpecs(specs []models.SectionSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("%w: no sections configured", ErrInvalidSpec)
	}
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		switch {
		case s.Name == "":
			return fmt.Errorf("%w: section without a name", ErrInvalidSpec)
		case seen[s.Name]:
			return fmt.Errorf("%w: duplicate section %q", ErrInvalidSpec, s.Name)
		case s.Total <= 0:
			return fmt.Errorf("%w: section %q total must be positive", ErrInvalidSpec, s.Name)
		case s.Terms < 0 || s.Difficulty.Easy < 0 || s.Difficulty.Medium < 0 || s.Difficulty.Hard < 0:
			return fmt.Errorf("%w: section %q has a negative quota", ErrInvalidSpec, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}
