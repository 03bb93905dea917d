package sigma

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bradleyjkemp/sigma-go"
	"github.com/bradleyjkemp/sigma-go/evaluator"
	"github.com/fsnotify/fsnotify"
)

// Detector evaluates decoded controller events against the Sigma rules in
// RulesDir/enabled_rules and reloads them when that directory changes.
type Detector struct {
	RulesDir string
	logger   *log.Logger

	mu         sync.RWMutex
	evaluators map[string]*evaluator.RuleEvaluator

	reloadChan chan bool         // pending reload signal
	watcher    *fsnotify.Watcher // watches enabled_rules
}

// MatchResult is one rule that matched an event.
type MatchResult struct {
	Rule         sigma.Rule
	MatchDetails []string
}

// createConfig maps rule field names onto the keys decoded events expose.
func createConfig() sigma.Config {
	return sigma.Config{
		Title: "mptevents controller events",
		FieldMappings: map[string]sigma.FieldMapping{
			"Category":       {TargetNames: []string{"Category"}},
			"EventKind":      {TargetNames: []string{"EventKind"}},
			"Context":        {TargetNames: []string{"Context"}},
			"Controller":     {TargetNames: []string{"Controller"}},
			"ControllerType": {TargetNames: []string{"ControllerType"}},
		},
	}
}

// NewDetector creates the rule directories if needed, loads the enabled rules
// and starts watching for changes. Run must be called to apply reloads.
func NewDetector(rulesDir string, logger *log.Logger) (*Detector, error) {
	if logger == nil {
		logger = log.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %v", err)
	}

	detector := &Detector{
		RulesDir:   rulesDir,
		logger:     logger,
		evaluators: make(map[string]*evaluator.RuleEvaluator),
		reloadChan: make(chan bool, 1),
		watcher:    watcher,
	}

	for _, dir := range []string{detector.enabledDir(), filepath.Join(rulesDir, "disabled_rules")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
	}

	if err := detector.setupWatcher(); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to set up file watcher: %v", err)
	}

	if err := detector.LoadRules(); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to load rules: %v", err)
	}

	return detector, nil
}

func (sd *Detector) enabledDir() string {
	return filepath.Join(sd.RulesDir, "enabled_rules")
}

func (sd *Detector) setupWatcher() error {
	// disabled_rules is not watched; moving a rule out of enabled_rules shows up as a rename
	enabledDir := sd.enabledDir()
	if err := sd.watcher.Add(enabledDir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %v", enabledDir, err)
	}
	sd.logger.Printf("Watching directory for rule changes: %s", enabledDir)

	go sd.watchFileChanges()
	return nil
}

func (sd *Detector) watchFileChanges() {
	for {
		select {
		case event, ok := <-sd.watcher.Events:
			if !ok {
				return
			}
			if !isRuleFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				sd.logger.Printf("Detected rule change: %s (%s)", event.Name, event.Op)
				sd.ReloadRules()
			}

		case err, ok := <-sd.watcher.Errors:
			if !ok {
				return
			}
			sd.logger.Printf("File watcher error: %v", err)
		}
	}
}

// Run applies pending reloads until ctx is done.
func (sd *Detector) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sd.reloadChan:
			if err := sd.LoadRules(); err != nil {
				sd.logger.Printf("Failed to reload rules: %v", err)
			}
		}
	}
}

// ReloadRules schedules a reload. Repeated calls before Run picks it up collapse into one.
func (sd *Detector) ReloadRules() {
	select {
	case sd.reloadChan <- true:
	default:
	}
}

// LoadRules replaces the rule set with the rules in enabled_rules. Files that
// fail to parse are skipped.
func (sd *Detector) LoadRules() error {
	enabledDir := sd.enabledDir()
	files, err := os.ReadDir(enabledDir)
	if err != nil {
		return err
	}

	evaluators := make(map[string]*evaluator.RuleEvaluator)
	for _, file := range files {
		if file.IsDir() || !isRuleFile(file.Name()) {
			continue
		}
		filePath := filepath.Join(enabledDir, file.Name())
		ruleEvaluator, err := loadRuleFile(filePath)
		if err != nil {
			sd.logger.Printf("Warning: Failed to load rule file %s: %v", filePath, err)
			continue
		}
		evaluators[ruleEvaluator.Rule.ID] = ruleEvaluator
		sd.logger.Printf("Loaded rule: %s (%s)", ruleEvaluator.Rule.Title, ruleEvaluator.Rule.ID)
	}

	sd.mu.Lock()
	sd.evaluators = evaluators
	sd.mu.Unlock()

	sd.logger.Printf("Loaded %d Sigma rules from %s", len(evaluators), enabledDir)
	return nil
}

func loadRuleFile(filePath string) (*evaluator.RuleEvaluator, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	if sigma.InferFileType(content) != sigma.RuleFile {
		return nil, fmt.Errorf("file is not a Sigma rule: %s", filePath)
	}

	rule, err := sigma.ParseRule(content)
	if err != nil {
		return nil, err
	}

	// Controller events carry no placeholders or aggregations.
	options := []evaluator.Option{
		evaluator.WithConfig(createConfig()),
		evaluator.WithPlaceholderExpander(func(ctx context.Context, placeholderName string) ([]string, error) {
			return nil, nil
		}),
		evaluator.CountImplementation(func(ctx context.Context, key evaluator.GroupedByValues) (float64, error) {
			return 0, nil
		}),
		evaluator.SumImplementation(func(ctx context.Context, key evaluator.GroupedByValues, value float64) (float64, error) {
			return 0, nil
		}),
		evaluator.AverageImplementation(func(ctx context.Context, key evaluator.GroupedByValues, value float64) (float64, error) {
			return 0, nil
		}),
	}

	return evaluator.ForRule(rule, options...), nil
}

// RuleCount returns the number of loaded rules.
func (sd *Detector) RuleCount() int {
	sd.mu.RLock()
	defer sd.mu.RUnlock()
	return len(sd.evaluators)
}

// CheckEvent returns the rules matching event, ordered by rule id.
func (sd *Detector) CheckEvent(ctx context.Context, event map[string]interface{}) []MatchResult {
	sd.mu.RLock()
	defer sd.mu.RUnlock()

	var results []MatchResult
	for _, ruleEvaluator := range sd.evaluators {
		result, err := ruleEvaluator.Matches(ctx, event)
		if err != nil {
			sd.logger.Printf("Error evaluating rule %s: %v", ruleEvaluator.Rule.ID, err)
			continue
		}
		if !result.Match {
			continue
		}

		var matchConditions []string
		for k, v := range result.SearchResults {
			if v {
				matchConditions = append(matchConditions, k)
			}
		}
		sort.Strings(matchConditions)

		results = append(results, MatchResult{
			Rule: ruleEvaluator.Rule,
			MatchDetails: []string{
				fmt.Sprintf("Matched conditions: %s", strings.Join(matchConditions, ", ")),
			},
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Rule.ID < results[j].Rule.ID })
	return results
}

// Close stops watching the rules directory.
func (sd *Detector) Close() error {
	return sd.watcher.Close()
}

func isRuleFile(name string) bool {
	return strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")
}
