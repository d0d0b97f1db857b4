package main

import "time"

// variantKind identifies which model capability is exercised.
type variantKind string

const (
	variantPlain variantKind = "plain"
	variantTools variantKind = "tools"
	variantTyped variantKind = "typed"
)

// requestVariant describes a single test permutation.
type requestVariant struct {
	Key     variantKind
	Header  string
	Aliases []string
}

// testResult captures the outcome for a single request.
type testResult struct {
	Model       string
	Variant     variantKind
	Label       string
	Success     bool
	Skipped     bool
	Duration    time.Duration
	ErrorReason string
	Reply       string
}
