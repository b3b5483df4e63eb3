package model

import "fmt"

// HighlightItem is one entry in a review's highlight lists: a single
// action the reviewer called out, with free-text commentary.
type HighlightItem struct {
	ActionType ActionType `json:"action_type"`
	Target     string     `json:"target"`
	Text       string     `json:"text"`
}

// Highlights groups the notable actions a session review surfaced.
// Stored as a JSON column and decoded at the store boundary.
type Highlights struct {
	BestActions     []HighlightItem `json:"best_actions,omitempty"`
	DriftMoments    []HighlightItem `json:"drift_moments,omitempty"`
	BlockedActions  []HighlightItem `json:"blocked_actions,omitempty"`
	UnverifiedRisks []HighlightItem `json:"unverified_risks,omitempty"`
}

// ReviewRecord is a post-session scored summary. Immutable once written;
// it references action events by session but carries no foreign keys.
type ReviewRecord struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	SessionID string `json:"session_id"`

	OverallGrade             string  `json:"overall_grade"`
	OverallScore             float64 `json:"overall_score"`
	GoalAlignmentScore       float64 `json:"goal_alignment_score"`
	SecurityComplianceScore  float64 `json:"security_compliance_score"`
	ConstraintAdherenceScore float64 `json:"constraint_adherence_score"`

	TotalActions    int `json:"total_actions"`
	VerifiedActions int `json:"verified_actions"`
	BlockedActions  int `json:"blocked_actions"`

	Highlights Highlights `json:"highlights"`
	Insights   []string   `json:"insights"`
}

// Validate checks producer-controlled fields. Scores are 0-100.
func (r ReviewRecord) Validate() error {
	for _, s := range []struct {
		name  string
		value float64
	}{
		{"overall_score", r.OverallScore},
		{"goal_alignment_score", r.GoalAlignmentScore},
		{"security_compliance_score", r.SecurityComplianceScore},
		{"constraint_adherence_score", r.ConstraintAdherenceScore},
	} {
		if s.value < 0 || s.value > 100 {
			return fmt.Errorf("model: %s must be between 0 and 100", s.name)
		}
	}
	if r.TotalActions < 0 || r.VerifiedActions < 0 || r.BlockedActions < 0 {
		return fmt.Errorf("model: action counts must be non-negative")
	}
	return nil
}
