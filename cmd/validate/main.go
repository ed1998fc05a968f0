package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/archetype-engine/internal/storage"
	"github.com/jwebster45206/archetype-engine/pkg/scenario"
)

// Usage:
//
//	validate                  validate every scenario in $DATA_DIR, or the built-in set
//	validate a.json b.json    validate the given files
func main() {
	if len(os.Args) < 2 {
		if err := validateRegistry(os.Getenv("DATA_DIR")); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	failed := false
	for _, filename := range os.Args[1:] {
		validator := &ScenarioValidator{}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is valid!\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

func validateRegistry(dataDir string) error {
	source := dataDir
	if source == "" {
		source = "built-in scenarios"
	}
	fmt.Printf("Validating %s...\n", source)

	reg, err := storage.LoadRegistry(dataDir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}
	for _, sc := range reg.All() {
		v := &ScenarioValidator{}
		v.validateScenario(sc)
		if len(v.errors) > 0 {
			return fmt.Errorf("validation errors in %s:\n%s", sc.ID, strings.Join(v.errors, "\n"))
		}
		printCoverage(sc)
	}
	fmt.Printf("%d scenarios are valid!\n", len(reg.All()))
	return nil
}

type ScenarioValidator struct {
	errors []string
}

func (v *ScenarioValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("scenario file must have .json extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ".json")
	if !isValidScenarioFilename(nameWithoutExt) {
		return fmt.Errorf("scenario filename '%s' must be lowercase snake_case (e.g., my_scenario.json, not my-scenario.json or MyScenario.json)", baseName)
	}

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	defer f.Close()

	s, err := scenario.Decode(f)
	if err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	v.errors = nil
	if err := s.Validate(); err != nil {
		v.addError(err.Error())
	}
	v.validateScenario(s)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	printCoverage(s)
	return nil
}

// validateScenario adds naming checks on top of Scenario.Validate.
func (v *ScenarioValidator) validateScenario(s *scenario.Scenario) {
	v.validateIDFormat("scenario ID", s.ID)

	for _, b := range s.Archetypes.Buckets {
		v.validateIDFormat("archetype ID", b.Archetype.ID)
	}

	for _, l := range s.Taxonomy.Labels {
		if !validLabelRegex.MatchString(l.Name) {
			v.addError(fmt.Sprintf("label '%s' should be a single capitalized word", l.Name))
		}
	}
}

func (v *ScenarioValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}

	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *ScenarioValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

// printCoverage lists the archetype each reachable score resolves to.
func printCoverage(s *scenario.Scenario) {
	lo, hi := s.ScoreRange()
	cov := s.Coverage()
	fmt.Printf("  %s: %d beats, %s policy, scores %d..%d\n", s.ID, s.TurnCount(), s.Archetypes.Policy, lo, hi)
	for score := lo; score <= hi; score++ {
		fmt.Printf("    %3d -> %s\n", score, strings.Join(cov[score], ", "))
	}
}

var (
	validIDRegex       = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validLabelRegex    = regexp.MustCompile(`^[A-Z][A-Za-z]*$`)
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidScenarioFilename(name string) bool {
	// Allow 'x.' prefix for experimental scenarios
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
