package exam

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"examsim-server/models"
	"examsim-server/utils"
)

func TestAssemblyFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "exam-assembly",
		ScenarioInitializer: initializeAssemblyScenario,
		Options: &godog.Options{
			Format:   "progress",
			Paths:    []string{"testdata/features"},
			Output:   io.Discard,
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("assembly features failed")
	}
}

// assemblyState holds one scenario's bank, configuration and results.
type assemblyState struct {
	bank     []models.RawRecord
	specs    []models.SectionSpec
	sets     []*models.ExamSet
	groups   map[string][]string
	question models.QuestionRecord
	permuted []models.QuestionRecord
}

func initializeAssemblyScenario(ctx *godog.ScenarioContext) {
	s := &assemblyState{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		*s = assemblyState{groups: map[string][]string{}}
		return ctx, nil
	})

	ctx.Step(`^a "([^"]*)" bank with (\d+) easy, (\d+) medium, (\d+) hard, (\d+) term and (\d+) other questions$`, s.aBankWith)
	ctx.Step(`^a "([^"]*)" bank with (\d+) groups of (\d+) questions and (\d+) single questions$`, s.aGroupedBank)
	ctx.Step(`^section "([^"]*)" requires (\d+) questions with (\d+) easy, (\d+) medium, (\d+) hard and (\d+) term$`, s.sectionRequires)
	ctx.Step(`^the exam is assembled$`, func() error { return s.assembledTimes(1) })
	ctx.Step(`^the exam is assembled (\d+) times$`, s.assembledTimes)
	ctx.Step(`^the exam status is "([^"]*)"$`, s.statusIs)
	ctx.Step(`^section "([^"]*)" has (\d+) questions$`, s.sectionHas)
	ctx.Step(`^section "([^"]*)" has at least (\d+) "([^"]*)" questions$`, s.sectionHasAtLeast)
	ctx.Step(`^section "([^"]*)" reports a shortfall of (\d+)$`, s.shortfallOf)
	ctx.Step(`^no question appears twice$`, s.noDuplicates)
	ctx.Step(`^every group keeps its order in every exam$`, s.groupsKeepOrder)
	ctx.Step(`^a question with choices "([^"]*)" and answer "([^"]*)"$`, s.aQuestionWith)
	ctx.Step(`^its choices are permuted (\d+) times$`, s.permutedTimes)
	ctx.Step(`^every permutation holds the same choices$`, s.sameChoices)
	ctx.Step(`^"([^"]*)" is always at the correct answer$`, s.alwaysCorrect)
}

func (s *assemblyState) aBankWith(section string, easy, medium, hard, terms, other int) error {
	s.bank = append(s.bank, sectionBank(section, easy, medium, hard, terms, other)...)
	return nil
}

func (s *assemblyState) aGroupedBank(section string, groups, size, singles int) error {
	for g := 0; g < groups; g++ {
		gid := fmt.Sprintf("%s-g%d", section, g)
		for i := 0; i < size; i++ {
			id := fmt.Sprintf("%s-%d", gid, i)
			r := rawQuestion(id, section, 0, false)
			r["group_id"] = gid
			s.bank = append(s.bank, r)
			s.groups[gid] = append(s.groups[gid], id)
		}
	}
	for i := 0; i < singles; i++ {
		s.bank = append(s.bank, rawQuestion(fmt.Sprintf("%s-single-%d", section, i), section, 0, false))
	}
	return nil
}

func (s *assemblyState) sectionRequires(section string, total, easy, medium, hard, terms int) error {
	s.specs = append(s.specs, models.SectionSpec{
		Name:       section,
		Total:      total,
		Difficulty: models.DifficultyQuota{Easy: easy, Medium: medium, Hard: hard},
		Terms:      terms,
	})
	return nil
}

func (s *assemblyState) assembledTimes(n int) error {
	for i := 0; i < n; i++ {
		set, err := Assemble(s.bank, s.specs, NewSeededSource(int64(i)))
		if err != nil {
			return err
		}
		s.sets = append(s.sets, set)
	}
	return nil
}

func (s *assemblyState) last() *models.ExamSet {
	return s.sets[len(s.sets)-1]
}

func (s *assemblyState) statusIs(status string) error {
	if got := s.last().Status; got != status {
		return fmt.Errorf("expected status %s, got %s", status, got)
	}
	return nil
}

func (s *assemblyState) sectionHas(section string, n int) error {
	_, questions, ok := s.last().Section(section)
	if !ok {
		return fmt.Errorf("section %s missing", section)
	}
	if len(questions) != n {
		return fmt.Errorf("expected %d questions in %s, got %d", n, section, len(questions))
	}
	return nil
}

func (s *assemblyState) sectionHasAtLeast(section string, n int, bucket string) error {
	_, questions, _ := s.last().Section(section)
	if got := countBuckets(questions)[bucket]; got < n {
		return fmt.Errorf("expected at least %d %s questions, got %d", n, bucket, got)
	}
	return nil
}

func (s *assemblyState) shortfallOf(section string, n int) error {
	outcome, _, _ := s.last().Section(section)
	if outcome.Shortfall != n {
		return fmt.Errorf("expected shortfall %d, got %d", n, outcome.Shortfall)
	}
	if Underflow(s.last()) == nil {
		return fmt.Errorf("expected an underflow error")
	}
	return nil
}

func (s *assemblyState) noDuplicates() error {
	seen := make(map[string]bool)
	for _, q := range s.last().Questions {
		if seen[q.ID] {
			return fmt.Errorf("question %s appears twice", q.ID)
		}
		seen[q.ID] = true
	}
	return nil
}

func (s *assemblyState) groupsKeepOrder() error {
	for n, set := range s.sets {
		pos := positions(set.Questions)
		for gid, ids := range s.groups {
			for i := 1; i < len(ids); i++ {
				if pos[ids[i]] != pos[ids[i-1]]+1 {
					return fmt.Errorf("exam %d: group %s broken at %s", n, gid, ids[i])
				}
			}
		}
	}
	return nil
}

func (s *assemblyState) aQuestionWith(choices, answer string) error {
	s.question = models.QuestionRecord{ID: "q", Choices: strings.Split(choices, "|"), CorrectAnswer: answer}
	return nil
}

func (s *assemblyState) permutedTimes(n int) error {
	for i := 0; i < n; i++ {
		out, err := PermuteChoices(s.question, NewSeededSource(int64(i)))
		if err != nil {
			return err
		}
		s.permuted = append(s.permuted, out)
	}
	return nil
}

func (s *assemblyState) sameChoices() error {
	want := append([]string(nil), s.question.Choices...)
	sort.Strings(want)
	for _, p := range s.permuted {
		got := append([]string(nil), p.Choices...)
		sort.Strings(got)
		if strings.Join(got, "|") != strings.Join(want, "|") {
			return fmt.Errorf("choices changed: %v", p.Choices)
		}
	}
	return nil
}

func (s *assemblyState) alwaysCorrect(text string) error {
	for _, p := range s.permuted {
		idx, err := utils.LetterToIndex(p.CorrectAnswer)
		if err != nil {
			return err
		}
		if p.Choices[idx] != text {
			return fmt.Errorf("answer %s points at %q", p.CorrectAnswer, p.Choices[idx])
		}
	}
	return nil
}
