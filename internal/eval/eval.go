package eval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/chunk"
	"github.com/fyrsmithlabs/docqa/internal/qa"
)

// Answerer is the QA capability under evaluation. *qa.Engine satisfies it.
type Answerer interface {
	Answer(ctx context.Context, queryText string, k int) (qa.Answer, error)
}

// TestQuery is one benchmark case.
type TestQuery struct {
	Question       string `json:"question"`
	ExpectedAnswer string `json:"expected_answer"`
}

// QueryResult is the outcome of one benchmark case.
type QueryResult struct {
	Question       string            `json:"question"`
	Answer         string            `json:"answer"`
	Accuracy       float64           `json:"accuracy"`
	GenerationMode qa.GenerationMode `json:"generation_mode"`
	RetrievalTime  time.Duration     `json:"retrieval_time"`
	GenerationTime time.Duration     `json:"generation_time"`
	ModalitiesUsed []chunk.Modality  `json:"modalities_used"`
}

// Report aggregates a full run.
type Report struct {
	Results       []QueryResult `json:"results"`
	MeanAccuracy  float64       `json:"mean_accuracy"`
	MeanRetrieval time.Duration `json:"mean_retrieval"`
	MeanGenerated time.Duration `json:"mean_generated"`
}

// Suite runs benchmark queries against a QA engine.
type Suite struct {
	engine Answerer
	logger *zap.Logger
}

// NewSuite creates an evaluation suite.
func NewSuite(engine Answerer, logger *zap.Logger) (*Suite, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suite{engine: engine, logger: logger}, nil
}

// Run evaluates every test query in order. A query whose Answer call fails
// aborts the run; degraded answers (fallback mode, low accuracy) do not.
func (s *Suite) Run(ctx context.Context, queries []TestQuery) (Report, error) {
	report := Report{Results: make([]QueryResult, 0, len(queries))}

	for _, q := range queries {
		answer, err := s.engine.Answer(ctx, q.Question, 0)
		if err != nil {
			return Report{}, fmt.Errorf("answering %q: %w", q.Question, err)
		}

		result := QueryResult{
			Question:       q.Question,
			Answer:         answer.Text,
			Accuracy:       Accuracy(answer.Text, q.ExpectedAnswer),
			GenerationMode: answer.GenerationMode,
			RetrievalTime:  answer.RetrievalTime,
			GenerationTime: answer.GenerationTime,
			ModalitiesUsed: modalitiesUsed(answer.Sources),
		}
		report.Results = append(report.Results, result)

		s.logger.Debug("evaluated query",
			zap.String("question", q.Question),
			zap.Float64("accuracy", result.Accuracy),
			zap.String("mode", string(result.GenerationMode)),
		)
	}

	if n := len(report.Results); n > 0 {
		var accSum float64
		var retSum, genSum time.Duration
		for _, r := range report.Results {
			accSum += r.Accuracy
			retSum += r.RetrievalTime
			genSum += r.GenerationTime
		}
		report.MeanAccuracy = accSum / float64(n)
		report.MeanRetrieval = retSum / time.Duration(n)
		report.MeanGenerated = genSum / time.Duration(n)
	}

	return report, nil
}

// Accuracy is the fraction of unique expected-answer tokens present in the
// generated answer, case-insensitive, in [0,1].
func Accuracy(generated, expected string) float64 {
	expectedTokens := tokenSet(expected)
	if len(expectedTokens) == 0 {
		return 0
	}

	generatedTokens := tokenSet(generated)
	matched := 0
	for t := range expectedTokens {
		if generatedTokens[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(expectedTokens))
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(text)) {
		set[t] = true
	}
	return set
}

// modalitiesUsed lists the distinct source modalities in rank order.
func modalitiesUsed(sources []qa.Source) []chunk.Modality {
	seen := make(map[chunk.Modality]bool, len(sources))
	var modalities []chunk.Modality
	for _, s := range sources {
		if s.Modality == "" || seen[s.Modality] {
			continue
		}
		seen[s.Modality] = true
		modalities = append(modalities, s.Modality)
	}
	return modalities
}
