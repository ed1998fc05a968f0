package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/archetype-engine/internal/engine"
	"github.com/jwebster45206/archetype-engine/internal/handlers"
	"github.com/jwebster45206/archetype-engine/pkg/turn"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running archetype-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration // per step
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	ScenarioOverride  string // If set, overrides the scenario for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 3 * time.Minute},
		Timeout:           2 * time.Minute,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		subJobs, err := LoadTestSuiteWithExpansion(filepath.Join(casesDir, caseFile), casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite starts a fresh session and plays every step against it.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job:     TestJob{Name: suite.Name, Suite: suite},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	scenarioID := suite.Scenario
	if r.ScenarioOverride != "" {
		scenarioID = r.ScenarioOverride
	}

	var created handlers.SessionResponse
	err := r.doJSON(ctx, http.MethodPost, "/v1/sessions", handlers.CreateSessionRequest{ScenarioID: scenarioID}, http.StatusCreated, &created)
	if err != nil {
		result.Error = fmt.Errorf("failed to create session: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.Session = created.Session.ID

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, result.Session, step)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	if suite.Results != nil && (result.Error == nil || r.ErrorHandlingMode == ErrorHandlingContinue) {
		if err := r.checkResults(ctx, result.Session, *suite.Results); err != nil && result.Error == nil {
			result.Error = fmt.Errorf("results: %w", err)
		}
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, id uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var res turn.Result
	path := "/v1/sessions/" + id.String() + "/turns"
	if err := r.doJSON(stepCtx, http.MethodPost, path, turn.Request{Message: step.UserPrompt}, http.StatusOK, &res); err != nil {
		result.Error = fmt.Errorf("failed to submit turn: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.ResponseText = res.NextSceneText
	if !res.OK() {
		result.ResponseText = res.ErrorMessage
	}

	if err := checkExpectations(step.Expectations, res); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) checkResults(ctx context.Context, id uuid.UUID, exp ResultsExpects) error {
	var res engine.Results
	if err := r.doJSON(ctx, http.MethodGet, "/v1/sessions/"+id.String()+"/results", nil, http.StatusOK, &res); err != nil {
		return err
	}
	if len(exp.ArchetypeIn) > 0 && (res.Archetype == nil || !slices.Contains(exp.ArchetypeIn, res.Archetype.ID)) {
		got := "<none>"
		if res.Archetype != nil {
			got = res.Archetype.ID
		}
		return fmt.Errorf("expected archetype in %v, got %s (path %v)", exp.ArchetypeIn, got, res.Path)
	}
	if exp.ConclusionMinSize != nil && len(res.Conclusion) < *exp.ConclusionMinSize {
		return fmt.Errorf("expected at least %d conclusion paragraphs, got %d", *exp.ConclusionMinSize, len(res.Conclusion))
	}
	lower := strings.ToLower(res.Debrief)
	for _, want := range exp.DebriefContains {
		if !strings.Contains(lower, strings.ToLower(want)) {
			return fmt.Errorf("expected debrief to contain '%s', but it didn't", want)
		}
	}
	return nil
}

// checkExpectations validates a step's expectations against its turn result
func checkExpectations(exp Expectations, res turn.Result) error {
	if exp.Status != nil && res.Status != *exp.Status {
		return fmt.Errorf("expected status %s, got %s (%s)", *exp.Status, res.Status, res.ErrorMessage)
	}

	if len(exp.ClassificationIn) > 0 && !slices.Contains(exp.ClassificationIn, res.Classification) {
		return fmt.Errorf("expected classification in %v, got %q", exp.ClassificationIn, res.Classification)
	}

	if exp.Turn != nil && res.Turn != *exp.Turn {
		return fmt.Errorf("expected turn to be %d, got %d", *exp.Turn, res.Turn)
	}

	if exp.Complete != nil && res.Complete != *exp.Complete {
		return fmt.Errorf("expected complete to be %t, got %t", *exp.Complete, res.Complete)
	}

	responseText := res.NextSceneText
	if !res.OK() {
		responseText = res.ErrorMessage
	}
	lowerResponse := strings.ToLower(responseText)

	for _, expectedText := range exp.ResponseContains {
		if !strings.Contains(lowerResponse, strings.ToLower(expectedText)) {
			return fmt.Errorf("expected response to contain '%s', but it didn't", expectedText)
		}
	}

	for _, unexpectedText := range exp.ResponseNotContains {
		if strings.Contains(lowerResponse, strings.ToLower(unexpectedText)) {
			return fmt.Errorf("expected response to NOT contain '%s', but it did", unexpectedText)
		}
	}

	if exp.ResponseRegex != "" {
		matched, err := regexp.MatchString(exp.ResponseRegex, responseText)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("response didn't match regex pattern: %s", exp.ResponseRegex)
		}
	}

	if exp.ResponseMinLength != nil && len(responseText) < *exp.ResponseMinLength {
		return fmt.Errorf("expected response length >= %d, got %d", *exp.ResponseMinLength, len(responseText))
	}
	if exp.ResponseMaxLength != nil && len(responseText) > *exp.ResponseMaxLength {
		return fmt.Errorf("expected response length <= %d, got %d", *exp.ResponseMaxLength, len(responseText))
	}

	return nil
}

func (r *Runner) doJSON(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
