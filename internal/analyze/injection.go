package analyze

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/trace"
)

// injection risk levels; queries scoring riskHigh or riskCritical are
// reported, grouped per level.
const (
	riskNone     = 0
	riskLow      = 1
	riskHigh     = 2
	riskCritical = 3
)

// maxInjectionSamples caps the queries listed per grouped issue.
const maxInjectionSamples = 10

type injectionIndicator struct {
	label string
	level int
	re    *regexp.Regexp
}

// Injection scores each query against classic injection fingerprints.
// Indicators are matched against the raw SQL text, literals included —
// that is where an injected payload ends up.
type Injection struct {
	indicators []injectionIndicator
}

func NewInjection(cfg config.AnalysisConfig) *Injection {
	return &Injection{indicators: []injectionIndicator{
		{label: "comment injection", level: riskHigh, re: regexp.MustCompile(`--|/\*`)},
		{label: "boolean bypass (OR 1=1)", level: riskHigh, re: regexp.MustCompile(`(?i)\b(?:or|and)\s+'?\d+'?\s*=\s*'?\d+'?`)},
		{label: "UNION SELECT", level: riskCritical, re: regexp.MustCompile(`(?i)\bunion\s+(?:all\s+)?select\b`)},
		{label: "stacked statement", level: riskCritical, re: regexp.MustCompile(`(?i);\s*(?:drop|delete|truncate|alter|grant)\b`)},
		{label: "time-based probe", level: riskCritical, re: regexp.MustCompile(`(?i)\b(?:sleep|benchmark)\s*\(`)},
	}}
}

func (a *Injection) Name() string { return "injection" }

// riskOf returns the query's risk level and the labels of every matched
// indicator.
func (a *Injection) riskOf(sql string) (int, []string) {
	level := riskNone
	var labels []string
	for _, ind := range a.indicators {
		if ind.re.MatchString(sql) {
			labels = append(labels, ind.label)
			if ind.level > level {
				level = ind.level
			}
		}
	}
	return level, labels
}

func (a *Injection) Analyze(ctx *Context, tr *trace.QueryTrace) []Issue {
	grouped := map[int][]trace.QueryRecord{}
	labelSets := map[int]map[string]bool{
		riskHigh:     {},
		riskCritical: {},
	}

	for _, record := range tr.Records() {
		level, labels := a.riskOf(record.SQL)
		if level < riskHigh {
			continue
		}
		grouped[level] = append(grouped[level], record)
		for _, l := range labels {
			labelSets[level][l] = true
		}
	}

	var issues []Issue
	if records := grouped[riskCritical]; len(records) > 0 {
		issues = append(issues, a.buildGroupIssue(TypeInjectionCritical, SeverityCritical, records, labelSets[riskCritical]))
	}
	if records := grouped[riskHigh]; len(records) > 0 {
		issues = append(issues, a.buildGroupIssue(TypeInjectionHigh, SeverityWarning, records, labelSets[riskHigh]))
	}
	return issues
}

func (a *Injection) buildGroupIssue(issueType string, severity Severity, records []trace.QueryRecord, labels map[string]bool) Issue {
	names := make([]string, 0, len(labels))
	for l := range labels {
		names = append(names, l)
	}
	sort.Strings(names)

	samples := records
	if len(samples) > maxInjectionSamples {
		samples = samples[:maxInjectionSamples]
	}

	return NewIssue(
		issueType,
		fmt.Sprintf("%d queries show injection indicators: %s", len(records), strings.Join(names, ", ")),
		severity,
	).
		Description("The listed statements contain patterns typical of SQL injection payloads. Even when the current input is benign, the statements are built in a way that lets hostile input reach the database.").
		Suggest(Suggestion{
			Title:    "Use bound parameters",
			Severity: severity,
			Tags:     []string{"security", "injection"},
			Text:     "Never concatenate user input into SQL. Bind every dynamic value as a parameter and whitelist identifiers (table, column, direction) against fixed sets.",
		}).
		Affected(samples...).
		Detail("indicators", names).
		Detail("query_count", len(records)).
		Build()
}
