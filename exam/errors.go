package exam

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBankUnavailable is returned when the bank is missing, unreadable or corrupt.
	ErrBankUnavailable = errors.New("question bank unavailable")
	// ErrBankEmpty is returned when no bank record survives validation.
	ErrBankEmpty = errors.New("no valid questions found in question bank")
	// ErrInvalidSpec is returned for unusable section configuration.
	ErrInvalidSpec = errors.New("invalid section spec")
	// ErrQuotaUnderflow marks an exam with fewer questions than configured.
	ErrQuotaUnderflow = errors.New("quota underflow")
	// ErrPersistWrite is returned when an assembled exam cannot be stored.
	ErrPersistWrite = errors.New("failed to persist exam set")
)

// SectionShortfall is the count delta of one underfilled section.
type SectionShortfall struct {
	Section   string `json:"section"`
	Requested int    `json:"requested"`
	Delivered int    `json:"delivered"`
}

// UnderflowError reports every section that could not reach its total.
type UnderflowError struct {
	Sections []SectionShortfall
}

func (e *UnderflowError) Error() string {
	parts := make([]string, 0, len(e.Sections))
	for _, s := range e.Sections {
		parts = append(parts, fmt.Sprintf("%s %d/%d", s.Section, s.Delivered, s.Requested))
	}
	return fmt.Sprintf("%s: %s", ErrQuotaUnderflow, strings.Join(parts, ", "))
}

func (e *UnderflowError) Unwrap() error { return ErrQuotaUnderflow }
