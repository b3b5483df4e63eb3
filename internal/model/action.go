// Package model defines the domain types shared by the storage layer,
// the HTTP handlers, and the trend analyzer.
package model

import "fmt"

// Verdict is the outcome the supervisor assigned to an action before it
// reached the store. It is decided upstream and persisted verbatim.
type Verdict string

const (
	VerdictPass  Verdict = "pass"
	VerdictWarn  Verdict = "warn"
	VerdictBlock Verdict = "block"

	// VerdictAll is a filter pseudo-value meaning "no verdict constraint".
	// It is never stored.
	VerdictAll Verdict = "all"
)

// ParseVerdict validates a stored verdict value.
func ParseVerdict(s string) (Verdict, error) {
	switch v := Verdict(s); v {
	case VerdictPass, VerdictWarn, VerdictBlock:
		return v, nil
	}
	return "", fmt.Errorf("model: invalid verdict %q", s)
}

// ActionType categorizes what a supervised agent attempted. The set is
// open: the upstream supervisor may introduce new kinds at any time, so
// unknown values are stored as-is.
type ActionType string

const (
	ActionSendEmail    ActionType = "send_email"
	ActionSendMessage  ActionType = "send_message"
	ActionMakePurchase ActionType = "make_purchase"
	ActionDeleteFile   ActionType = "delete_file"
	ActionWriteFile    ActionType = "write_file"
	ActionReadFile     ActionType = "read_file"
	ActionShellCommand ActionType = "shell_command"
	ActionBrowseWeb    ActionType = "browse_web"
	ActionAPICall      ActionType = "api_call"
)

// Tier is the integer risk classification of an action. Zero means the
// upstream classifier did not assign one.
type Tier int

const (
	TierUnclassified Tier = 0
	Tier1            Tier = 1
	Tier2            Tier = 2
	Tier3            Tier = 3
)

// maxTier is the highest classification the current taxonomy defines.
const maxTier = Tier3

// ValidateTier rejects classifications outside the known range so values
// like tier=7 never reach the store.
func ValidateTier(t Tier) error {
	if t < TierUnclassified || t > maxTier {
		return fmt.Errorf("model: invalid tier %d", t)
	}
	return nil
}

// ActionEvent is one logged attempt by a supervised agent to perform an
// operation, with its already-decided verdict. Append-only: rows are never
// updated, and the only deletion path is the retention sweep.
type ActionEvent struct {
	ID          int64      `json:"id"`
	Timestamp   string     `json:"timestamp"` // ISO-8601, UTC, caller-supplied
	SessionID   string     `json:"session_id"`
	ActionType  ActionType `json:"action_type"`
	Target      string     `json:"target"`
	Amount      float64    `json:"amount"`
	Description string     `json:"description"`
	Verdict     Verdict    `json:"verdict"`
	Reason      string     `json:"reason"`
	KeyWasValid bool       `json:"key_was_valid"`
	Tier        Tier       `json:"tier"`
	CreatedAt   string     `json:"created_at"` // store-assigned insertion time
}

// Validate checks the fields a producer controls. The store assigns ID and
// CreatedAt, so those are not checked here.
func (e ActionEvent) Validate() error {
	if e.ActionType == "" {
		return fmt.Errorf("model: action_type is required")
	}
	if _, err := ParseVerdict(string(e.Verdict)); err != nil {
		return err
	}
	if err := ValidateTier(e.Tier); err != nil {
		return err
	}
	if e.Amount < 0 {
		return fmt.Errorf("model: amount must be non-negative")
	}
	return nil
}
