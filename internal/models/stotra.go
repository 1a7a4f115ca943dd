package models

import (
	"sort"
	"strings"
	"time"
)

type Stotra struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Content     string    `json:"content" yaml:"content"`
	Category    string    `json:"category" yaml:"category"`
	Symptoms    []string  `json:"symptoms" yaml:"symptoms"`
	Benefits    []string  `json:"benefits" yaml:"benefits"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
}

// StotraFilter narrows the catalog. Empty fields match everything.
type StotraFilter struct {
	Query    string
	Category string
	Symptom  string
}

// AllCategories is the catalog's "no category filter" label.
const AllCategories = "All Categories"

func (f StotraFilter) Match(s *Stotra) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(s.Title), q) &&
			!strings.Contains(strings.ToLower(s.Description), q) &&
			!anyContains(s.Symptoms, q) {
			return false
		}
	}
	if c := strings.TrimSpace(f.Category); c != "" && c != AllCategories && s.Category != c {
		return false
	}
	if sym := strings.TrimSpace(f.Symptom); sym != "" {
		found := false
		for _, v := range s.Symptoms {
			if v == sym {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func anyContains(values []string, lowerNeedle string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), lowerNeedle) {
			return true
		}
	}
	return false
}

// UniqueSymptoms returns the sorted set of symptoms across stotras.
func UniqueSymptoms(stotras []*Stotra) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, s := range stotras {
		for _, sym := range s.Symptoms {
			if sym == "" || seen[sym] {
				continue
			}
			seen[sym] = true
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

// UniqueCategories returns the sorted set of categories across stotras.
func UniqueCategories(stotras []*Stotra) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, s := range stotras {
		if s.Category == "" || seen[s.Category] {
			continue
		}
		seen[s.Category] = true
		out = append(out, s.Category)
	}
	sort.Strings(out)
	return out
}
