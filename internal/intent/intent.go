// Package intent classifies learner queries and rewrites them for search.
package intent

// Intent is one label of the fixed query taxonomy.
type Intent string

const (
	ConceptLearning      Intent = "concept_learning"
	QuickRevision        Intent = "quick_revision"
	InterviewPreparation Intent = "interview_preparation"
	ProblemSolving       Intent = "problem_solving"
	ExploratoryQuestion  Intent = "exploratory_question"
)

// All lists every intent in taxonomy order.
var All = []Intent{
	ConceptLearning,
	QuickRevision,
	InterviewPreparation,
	ProblemSolving,
	ExploratoryQuestion,
}

// Valid reports whether i belongs to the taxonomy.
func (i Intent) Valid() bool {
	for _, v := range All {
		if i == v {
			return true
		}
	}
	return false
}

// FallbackStrategy is the strategy reported when classification fails.
const FallbackStrategy = "fallback default search"

// Result is the outcome of classifying one query.
type Result struct {
	Intent      Intent `json:"intent"`
	SearchTerms string `json:"search_terms"`
	Strategy    string `json:"strategy"`
}

// Fallback returns the result used whenever classification fails.
func Fallback(query string) Result {
	return Result{
		Intent:      ExploratoryQuestion,
		SearchTerms: query,
		Strategy:    FallbackStrategy,
	}
}
