package model

import (
	"slices"
	"time"
)

// Trend values of Comparison.Trend.
const (
	TrendImproved  = "improved"
	TrendWorsened  = "worsened"
	TrendUnchanged = "unchanged"
)

// Comparison is the difference between two scans of the same target.
type Comparison struct {
	Target   string      `json:"target"`
	Previous ScanPointer `json:"previous_scan"`
	Current  ScanPointer `json:"current_scan"`

	// NewlyBroken were valid (or unseen) before and are invalid now.
	NewlyBroken []string `json:"newly_broken,omitempty"`

	// Fixed were invalid before and are valid now.
	Fixed []string `json:"fixed,omitempty"`

	// Added are links seen only in the current scan.
	Added []string `json:"added,omitempty"`

	// Removed are links seen only in the previous scan.
	Removed []string `json:"removed,omitempty"`

	InvalidDelta int    `json:"invalid_delta"`
	ValidDelta   int    `json:"valid_delta"`
	Trend        string `json:"trend"`
}

// ScanPointer identifies one side of a Comparison.
type ScanPointer struct {
	ScanID     string    `json:"scan_id"`
	FinishedAt time.Time `json:"finished_at"`
	Stats      ScanStats `json:"stats"`
	Partial    bool      `json:"partial"`
}

// CompareReports computes what changed between previous and current.
// All link lists in the result are sorted.
func CompareReports(previous, current *ScanReport) *Comparison {
	prev := verdicts(previous)
	cur := verdicts(current)

	c := &Comparison{
		Target:       current.Metadata.Target,
		Previous:     pointerOf(previous),
		Current:      pointerOf(current),
		InvalidDelta: current.Stats.InvalidURLs - previous.Stats.InvalidURLs,
		ValidDelta:   current.Stats.ValidURLs - previous.Stats.ValidURLs,
	}

	for link, valid := range cur {
		before, seen := prev[link]
		switch {
		case !seen:
			c.Added = append(c.Added, link)
			if !valid {
				c.NewlyBroken = append(c.NewlyBroken, link)
			}
		case before && !valid:
			c.NewlyBroken = append(c.NewlyBroken, link)
		case !before && valid:
			c.Fixed = append(c.Fixed, link)
		}
	}
	for link := range prev {
		if _, ok := cur[link]; !ok {
			c.Removed = append(c.Removed, link)
		}
	}

	slices.Sort(c.NewlyBroken)
	slices.Sort(c.Fixed)
	slices.Sort(c.Added)
	slices.Sort(c.Removed)

	switch {
	case len(c.NewlyBroken) > len(c.Fixed):
		c.Trend = TrendWorsened
	case len(c.NewlyBroken) < len(c.Fixed):
		c.Trend = TrendImproved
	default:
		c.Trend = TrendUnchanged
	}
	return c
}

func verdicts(r *ScanReport) map[string]bool {
	m := make(map[string]bool, len(r.ValidLinks)+len(r.InvalidLinks))
	for _, l := range r.ValidLinks {
		m[l] = true
	}
	for _, l := range r.InvalidLinks {
		m[l] = false
	}
	return m
}

func pointerOf(r *ScanReport) ScanPointer {
	return ScanPointer{
		ScanID:     r.Metadata.ScanID,
		FinishedAt: r.Metadata.FinishedAt,
		Stats:      r.Stats,
		Partial:    r.Metadata.Partial,
	}
}
