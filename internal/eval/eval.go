// Package eval runs the classifier over a labelled dataset and reports how
// many messages it got wrong. It is meant to be run by hand against a real
// model after prompt or model changes.
package eval

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Samoxive/modbot/internal/classifier"
)

//go:embed testdata/messages.json
var defaultDataset []byte

var ErrNoCases = errors.New("dataset has no cases")

// Case is one labelled message.
type Case struct {
	Content        string `json:"content"`
	ExpectedResult bool   `json:"expected_result"`
}

type CaseResult struct {
	Case    Case
	Verdict classifier.Verdict
	Latency time.Duration
}

// Passed compares the boolean decision with the label. An inconclusive
// verdict counts as "does not violate", exactly as in production.
func (r CaseResult) Passed() bool {
	return r.Verdict.Violates() == r.Case.ExpectedResult
}

type Summary struct {
	Results        []CaseResult
	Mispredictions int
	Inconclusive   int
	AverageLatency time.Duration
}

func (s Summary) Total() int   { return len(s.Results) }
func (s Summary) Correct() int { return len(s.Results) - s.Mispredictions }
func (s Summary) Passed() bool { return s.Mispredictions == 0 }

func DefaultCases() ([]Case, error) {
	return ParseCases(defaultDataset)
}

func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	return ParseCases(data)
}

func ParseCases(data []byte) ([]Case, error) {
	var cases []Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parsing dataset: %w", err)
	}
	if len(cases) == 0 {
		return nil, ErrNoCases
	}
	return cases, nil
}

// Run evaluates every case in order, printing each misprediction to out as it
// happens, followed by the average latency and the score.
func Run(ctx context.Context, evaluator classifier.Evaluator, cases []Case, out io.Writer) (Summary, error) {
	if len(cases) == 0 {
		return Summary{}, ErrNoCases
	}

	summary := Summary{Results: make([]CaseResult, 0, len(cases))}
	var total time.Duration

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		start := time.Now()
		verdict := evaluator.Evaluate(ctx, c.Content)
		latency := time.Since(start)
		total += latency

		result := CaseResult{Case: c, Verdict: verdict, Latency: latency}
		summary.Results = append(summary.Results, result)
		if verdict.Kind == classifier.Inconclusive {
			summary.Inconclusive++
		}
		if !result.Passed() {
			summary.Mispredictions++
			fmt.Fprintln(out, "---")
			fmt.Fprintf(out, "case failed with expected result %t\n", c.ExpectedResult)
			fmt.Fprintln(out, c.Content)
			fmt.Fprintln(out, "---")
		}
	}

	summary.AverageLatency = total / time.Duration(len(summary.Results))
	fmt.Fprintf(out, "average time: %vs\n", summary.AverageLatency.Seconds())
	fmt.Fprintf(out, "results: %d/%d\n", summary.Correct(), summary.Total())
	if summary.Inconclusive > 0 {
		fmt.Fprintf(out, "inconclusive: %d\n", summary.Inconclusive)
	}

	return summary, nil
}
