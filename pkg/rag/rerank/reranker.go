package rerank

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"agentic-chat-be/pkg/llm"
	"agentic-chat-be/pkg/store"
)

// Outcome records how a document's score came to be, so the fail-open
// policy stays auditable instead of being buried in a catch-all.
type Outcome int

const (
	// OutcomeScored means the judge replied and a score was parsed.
	OutcomeScored Outcome = iota
	// OutcomeParseFailed means the judge replied but no score could be
	// extracted; the document is kept at 0.0 unless a positive
	// threshold excludes it.
	OutcomeParseFailed
	// OutcomeJudgeError means the judge call itself failed; the
	// document is kept at 0.0 (fail-open).
	OutcomeJudgeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeScored:
		return "scored"
	case OutcomeParseFailed:
		return "parse_failed"
	case OutcomeJudgeError:
		return "judge_error"
	default:
		return "unknown"
	}
}

// Result is the per-document outcome of one rerank pass.
type Result struct {
	Document *store.Document
	Score    float64
	Outcome  Outcome
}

// Config drives the scoring loop. Zero values mean "unset" for TopN and
// CollectedNumber; ScoreThreshold is a pointer because 0.0 is a valid
// threshold distinct from no threshold at all.
type Config struct {
	Model           string
	TopN            int
	ScoreThreshold  *float64
	CollectedNumber int
}

// Reranker scores retrieval candidates with an LLM relevance judge and
// filters, sorts and truncates the result set.
type Reranker struct {
	judge llm.LLMProvider
	cfg   Config
}

// New validates the configuration up front. Invalid parameter
// combinations reject construction rather than silently clamping.
func New(judge llm.LLMProvider, cfg Config) (*Reranker, error) {
	if judge == nil {
		return nil, fmt.Errorf("rerank: judge provider is required")
	}
	if cfg.TopN < 0 {
		return nil, fmt.Errorf("rerank: top_n must be a positive integer, got %d", cfg.TopN)
	}
	if cfg.CollectedNumber < 0 {
		return nil, fmt.Errorf("rerank: collected_number must be a positive integer, got %d", cfg.CollectedNumber)
	}
	if cfg.ScoreThreshold != nil && (*cfg.ScoreThreshold < 0.0 || *cfg.ScoreThreshold > 1.0) {
		return nil, fmt.Errorf("rerank: score_threshold must be between 0.0 and 1.0, got %v", *cfg.ScoreThreshold)
	}
	if cfg.CollectedNumber > 0 && cfg.ScoreThreshold == nil {
		return nil, fmt.Errorf("rerank: score_threshold must be provided when collected_number is set")
	}
	return &Reranker{judge: judge, cfg: cfg}, nil
}

var (
	taggedScoreRe = regexp.MustCompile(`<score>\s*(\d+(?:\.\d+)?)\s*</score>`)
	bareScoreRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
)

// Rerank scores documents against the query in their original order,
// applies the threshold filter with optional early exit, then returns
// the kept documents sorted by score descending (stable, so ties keep
// their original relative order) and truncated to TopN.
func (r *Reranker) Rerank(ctx context.Context, query string, documents []*store.Document) []*store.Document {
	results := r.RerankResults(ctx, query, documents)

	kept := make([]*store.Document, len(results))
	for i, res := range results {
		kept[i] = res.Document
	}
	return kept
}

// RerankResults is Rerank with the per-document audit outcome kept.
func (r *Reranker) RerankResults(ctx context.Context, query string, documents []*store.Document) []Result {
	results := r.Judge(ctx, query, documents)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if r.cfg.TopN > 0 && len(results) > r.cfg.TopN {
		results = results[:r.cfg.TopN]
	}
	return results
}

// Judge runs the scoring loop and returns the per-document results for
// every kept document, unsorted. Dropped documents do not appear.
func (r *Reranker) Judge(ctx context.Context, query string, documents []*store.Document) []Result {
	var results []Result

	for _, doc := range documents {
		reply, err := r.judge.Generate(ctx, r.buildPrompt(query, doc.Content), llm.WithTemperature(0.0), llm.WithModel(r.cfg.Model))
		if err != nil {
			// Fail-open: one failing judge call never aborts the batch.
			score := 0.0
			doc.RerankScore = &score
			results = append(results, Result{Document: doc, Score: score, Outcome: OutcomeJudgeError})
			continue
		}

		score, ok := parseScore(reply)
		if !ok {
			if r.cfg.ScoreThreshold != nil && *r.cfg.ScoreThreshold > 0 {
				// A positive threshold makes an unscorable document
				// ineligible by construction.
				continue
			}
			score = 0.0
			doc.RerankScore = &score
			results = append(results, Result{Document: doc, Score: score, Outcome: OutcomeParseFailed})
			continue
		}

		doc.RerankScore = &score

		if r.cfg.ScoreThreshold == nil {
			results = append(results, Result{Document: doc, Score: score, Outcome: OutcomeScored})
			continue
		}

		if score >= *r.cfg.ScoreThreshold {
			results = append(results, Result{Document: doc, Score: score, Outcome: OutcomeScored})
			if r.cfg.CollectedNumber > 0 && len(results) >= r.cfg.CollectedNumber {
				// Enough qualifying documents collected; the rest of
				// the batch stays unscored.
				break
			}
		}
	}

	return results
}

func (r *Reranker) buildPrompt(query, content string) string {
	return fmt.Sprintf(
		"Query: %s\n"+
			"Document Chunk: %s\n\n"+
			"Task: Evaluate the relevance of the Document Chunk to the Query.\n"+
			"Reply with a single float between 0.01 (completely irrelevant) and 1.00 (highly relevant),\n"+
			"wrapped in a score tag like <score>0.75</score>. No explanation, no other words.",
		query, content,
	)
}

// parseScore extracts the judged relevance from the reply, preferring
// the <score> tag and falling back to the first bare number, clamped
// to [0,1].
func parseScore(reply string) (float64, bool) {
	m := taggedScoreRe.FindStringSubmatch(reply)
	if m == nil {
		m = bareScoreRe.FindStringSubmatch(reply)
	}
	if m == nil {
		return 0, false
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, true
}
