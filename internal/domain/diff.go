package domain

// ChangeKind classifies a diff hunk.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

// LineChange is one contiguous run of changed lines, addressed against the
// previous version for removals/modifications and the new version for
// additions.
type LineChange struct {
	Kind      ChangeKind `json:"kind"`
	StartLine int        `json:"start_line"`
	EndLine   int        `json:"end_line"`
}

// Impact grades how disruptive a modification was.
type Impact string

const (
	ImpactLow      Impact = "low"
	ImpactMedium   Impact = "medium"
	ImpactHigh     Impact = "high"
	ImpactCritical Impact = "critical"
)

// DiffReport summarizes the differences between two game versions.
type DiffReport struct {
	ChangePercent float64      `json:"change_percent"`
	Changes       []LineChange `json:"changes,omitempty"`
	Statements    []string     `json:"statements,omitempty"`
	Impact        Impact       `json:"impact"`
	// Unreliable marks rebuild-scale rewrites where line diffing is noise.
	Unreliable bool `json:"unreliable,omitempty"`
}
