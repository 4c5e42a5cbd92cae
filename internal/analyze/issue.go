package analyze

import (
	"github.com/querylens/querylens/internal/trace"
)

// Severity orders issues by urgency.
type Severity int

const (
	SeverityInfo     Severity = 1
	SeverityWarning  Severity = 2
	SeverityCritical Severity = 3
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityWarning:
		return "WARNING"
	case SeverityInfo:
		return "INFO"
	}
	return "UNKNOWN"
}

// MarshalJSON emits the severity label rather than its ordinal
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Issue type identifiers. Reporting keys, stable across releases.
const (
	TypeExcessiveJoins          = "excessive_joins"
	TypeTooManyJoins            = "too_many_joins"
	TypeSuboptimalLeftJoin      = "suboptimal_left_join"
	TypeUnusedJoin              = "unused_join"
	TypeMultiStepHydration      = "multi_step_hydration"
	TypeFindAllWithoutLimit     = "find_all_without_limit"
	TypeFlushInLoop             = "flush_in_loop"
	TypeMissingBatchClear       = "missing_batch_clear"
	TypeIneffectiveLike         = "ineffective_like"
	TypeLimitWithCollectionJoin = "limit_with_collection_join"
	TypeInjectionCritical       = "sql_injection_critical"
	TypeInjectionHigh           = "sql_injection_high"
	TypeNPlusOne                = "n_plus_one"
	TypeLazyLoadingInLoop       = "lazy_loading_in_loop"
	TypeFrequentQuery           = "frequent_query"
)

// Suggestion is structured fix content handed to an external renderer.
type Suggestion struct {
	Title    string   `json:"title"`
	Severity Severity `json:"severity"`
	Tags     []string `json:"tags,omitempty"`
	Text     string   `json:"text,omitempty"`
	Code     string   `json:"code,omitempty"`
}

// Issue is one detected anti-pattern occurrence. Issues are fully
// populated at construction via the builder and not mutated afterwards;
// the single exception is the Duplicates back-reference list the
// deduplicator attaches to a surviving issue.
type Issue struct {
	Type            string              `json:"type"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Severity        Severity            `json:"severity"`
	Suggestion      *Suggestion         `json:"suggestion,omitempty"`
	AffectedQueries []trace.QueryRecord `json:"affected_queries,omitempty"`
	Backtrace       []trace.Frame       `json:"backtrace,omitempty"`
	Details         map[string]any      `json:"details,omitempty"`
	Duplicates      []*Issue            `json:"duplicates,omitempty"`
}

// IssueBuilder accumulates issue fields and produces the immutable value
// once, so a partially-built issue can never escape a detector.
type IssueBuilder struct {
	issue Issue
}

// NewIssue starts a builder with the required identity fields.
func NewIssue(issueType, title string, severity Severity) *IssueBuilder {
	return &IssueBuilder{issue: Issue{
		Type:     issueType,
		Title:    title,
		Severity: severity,
	}}
}

func (b *IssueBuilder) Description(text string) *IssueBuilder {
	b.issue.Description = text
	return b
}

func (b *IssueBuilder) Suggest(s Suggestion) *IssueBuilder {
	b.issue.Suggestion = &s
	return b
}

func (b *IssueBuilder) Affected(records ...trace.QueryRecord) *IssueBuilder {
	b.issue.AffectedQueries = append(b.issue.AffectedQueries, records...)
	return b
}

func (b *IssueBuilder) Backtrace(frames []trace.Frame) *IssueBuilder {
	b.issue.Backtrace = frames
	return b
}

func (b *IssueBuilder) Detail(key string, value any) *IssueBuilder {
	if b.issue.Details == nil {
		b.issue.Details = make(map[string]any)
	}
	b.issue.Details[key] = value
	return b
}

// Build returns the completed issue.
func (b *IssueBuilder) Build() Issue {
	if len(b.issue.Backtrace) == 0 && len(b.issue.AffectedQueries) > 0 {
		b.issue.Backtrace = b.issue.AffectedQueries[0].Backtrace
	}
	return b.issue
}
