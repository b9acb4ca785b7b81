// Package service holds small domain services shared by handlers: currently
// the question intent router.
package service

import "strings"

// Intent is the rough shape of a question, used to hint the model toward the
// right tool and reported in response metadata.
type Intent string

const (
	IntentAggregate Intent = "aggregate"
	IntentLookup    Intent = "lookup"
	IntentSchema    Intent = "schema"
)

var aggregateKeywords = []string{
	// Totals, averages, breakdowns
	"sum", "total", "count", "average", "mean", "min", "max",
	"percent", "percentage", "share", "ratio", "per ", "group by",
	"breakdown", "by category", "by platform", "highest", "lowest",
	"top", "bottom", "most", "least", "how many", "how much",
	"сколько", "процент", "доля", "среднее", "сумма", "всего",
	"наибольш", "наименьш",
}

var lookupKeywords = []string{
	// Row-level questions
	"show", "list", "find", "which rows", "give me the rows",
	"records", "entries", "examples", "sample",
	"покажи", "список", "найди", "строки",
}

var schemaKeywords = []string{
	// Questions about the data's shape rather than its content
	"column", "columns", "schema", "fields", "what data", "structure",
	"what kind of data", "available", "what can i ask",
	"колонк", "структур", "какие данные",
}

// RoutingResult contains the classified intent and its confidence
type RoutingResult struct {
	Intent     Intent
	Confidence float64
	Reasoning  string
}

// IntentRouter classifies a natural-language question by keyword scoring
type IntentRouter struct{}

func NewIntentRouter() *IntentRouter {
	return &IntentRouter{}
}

// Route analyses the question and returns the best-matching intent.
// Defaults to aggregate: most questions about a dataset want a number.
func (r *IntentRouter) Route(question string) RoutingResult {
	lower := strings.ToLower(question)

	aggScore := score(lower, aggregateKeywords)
	lookupScore := score(lower, lookupKeywords)
	schemaScore := score(lower, schemaKeywords)

	total := aggScore + lookupScore + schemaScore
	if total == 0 {
		return RoutingResult{
			Intent:     IntentAggregate,
			Confidence: 0.5,
			Reasoning:  "no strong keywords, defaulting to aggregate",
		}
	}

	switch {
	case schemaScore > aggScore && schemaScore > lookupScore:
		return RoutingResult{
			Intent:     IntentSchema,
			Confidence: float64(schemaScore) / float64(total),
			Reasoning:  "question asks about the dataset's structure",
		}
	case lookupScore > aggScore:
		return RoutingResult{
			Intent:     IntentLookup,
			Confidence: float64(lookupScore) / float64(total),
			Reasoning:  "question asks for matching rows",
		}
	default:
		return RoutingResult{
			Intent:     IntentAggregate,
			Confidence: float64(aggScore) / float64(total),
			Reasoning:  "question asks for computed values",
		}
	}
}

func score(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

// Hint returns a system prompt line nudging the model toward the tools that
// fit the intent.
func (res RoutingResult) Hint() string {
	switch res.Intent {
	case IntentSchema:
		return "The question looks like it is about the dataset's structure: answer from dataset_schema."
	case IntentLookup:
		return "The question looks like a row lookup: prefer query_dataset with select and where."
	default:
		return "The question looks like an aggregate question: prefer query_dataset with agg (and group_by for breakdowns), or sum_by_category for a single per-category total."
	}
}
