package analyzer

import (
	"regexp"
	"strings"
)

// CommandCategory classifies one terminal command by debugging approach.
type CommandCategory string

// Known command categories. Unrecognized shapes default to
// CategoryRandomTrialError.
const (
	CategoryPrintDebugging       CommandCategory = "print_debugging"
	CategoryTestRunning          CommandCategory = "test_running"
	CategoryCodeInspection       CommandCategory = "code_inspection"
	CategoryEnvironmentCheck     CommandCategory = "environment_check"
	CategoryDependencyManagement CommandCategory = "dependency_management"
	CategoryFileOperations       CommandCategory = "file_operations"
	CategorySystematicTesting    CommandCategory = "systematic_testing"
	CategoryRandomTrialError     CommandCategory = "random_trial_error"
)

// Sub-score weighting for the overall terminal score.
const (
	weightSystematic  = 0.35
	weightProficiency = 0.25
	weightEfficiency  = 0.25
	weightLearning    = 0.15

	// neutralScore is returned for every sub-score when no commands were
	// recorded: absence of terminal use is not evidence of poor problem
	// solving.
	neutralScore = 50.0

	categoryDiversityDenominator = 6
	efficiencyFreeCommands       = 20
	efficiencyVolumePenalty      = 2
	learningScoreFactor          = 120
)

// Test runners invoked with a specific-test filter indicate systematic,
// hypothesis-driven testing.
var systematicTestPattern = regexp.MustCompile(
	`(go test .*-run\s|pytest .*(-k\s|::)|jest .*(-t\s|--testNamePattern)|cargo test \S|npm test .*--\s.*-t\s)`,
)

var testRunPattern = regexp.MustCompile(
	`^(go test|pytest|jest|cargo test|npm (test|run test)|yarn test|make test|mvn test|rspec|phpunit)`,
)

var inspectionPattern = regexp.MustCompile(
	`^(cat|less|more|head|tail|grep|rg|ag|find|wc|diff|git (diff|log|show|status|blame))\b`,
)

var environmentPattern = regexp.MustCompile(
	`^(env|printenv|which|whereis|uname|pwd|whoami|hostname|echo \$|go version|go env|node (-v|--version)|python(3)? (-V|--version)|java -version|docker (ps|version)|ps\b|top\b|df\b|free\b)`,
)

var dependencyPattern = regexp.MustCompile(
	`^(go (get|mod)|npm (install|i|ci|uninstall|update)|yarn (add|remove|install)|pip(3)? (install|uninstall)|cargo (add|remove)|apt(-get)? install|brew install|composer (install|require)|bundle install)`,
)

var fileOpsPattern = regexp.MustCompile(
	`^(ls|mkdir|touch|rm|cp|mv|chmod|chown|ln|tar|zip|unzip|tree)\b`,
)

var printDebugPattern = regexp.MustCompile(
	`(^echo\b|print\(|println|console\.log|fmt\.Print|System\.out)`,
)

// Categorize classifies a single command by pattern matching on its text.
func Categorize(command string) CommandCategory {
	cmd := strings.TrimSpace(command)
	switch {
	case cmd == "":
		return CategoryRandomTrialError
	case systematicTestPattern.MatchString(cmd):
		return CategorySystematicTesting
	case testRunPattern.MatchString(cmd):
		return CategoryTestRunning
	case inspectionPattern.MatchString(cmd):
		return CategoryCodeInspection
	case dependencyPattern.MatchString(cmd):
		return CategoryDependencyManagement
	case environmentPattern.MatchString(cmd):
		return CategoryEnvironmentCheck
	case printDebugPattern.MatchString(cmd):
		return CategoryPrintDebugging
	case fileOpsPattern.MatchString(cmd):
		return CategoryFileOperations
	default:
		return CategoryRandomTrialError
	}
}

// goodCategories indicate deliberate, tool-assisted debugging. Print
// statements and unclassifiable commands are excluded.
var goodCategories = map[CommandCategory]struct{}{
	CategoryTestRunning:          {},
	CategoryCodeInspection:       {},
	CategoryEnvironmentCheck:     {},
	CategoryDependencyManagement: {},
	CategoryFileOperations:       {},
	CategorySystematicTesting:    {},
}

// systematicCategories count toward the disciplined-debugging trend.
var systematicCategories = map[CommandCategory]struct{}{
	CategorySystematicTesting: {},
	CategoryTestRunning:       {},
	CategoryCodeInspection:    {},
}

// TerminalScores holds the four debugging sub-scores and their weighted
// overall value, all on a 0-100 scale.
type TerminalScores struct {
	Systematic      float64
	ToolProficiency float64
	Efficiency      float64
	Learning        float64
	Overall         float64
	Categories      map[CommandCategory]int
}

// AnalyzeCommands computes the debugging-approach sub-scores from a
// session's command history, in encounter order.
func AnalyzeCommands(commands []string) TerminalScores {
	if len(commands) == 0 {
		return TerminalScores{
			Systematic:      neutralScore,
			ToolProficiency: neutralScore,
			Efficiency:      neutralScore,
			Learning:        neutralScore,
			Overall:         neutralScore,
			Categories:      map[CommandCategory]int{},
		}
	}

	total := float64(len(commands))
	cats := make([]CommandCategory, len(commands))
	counts := make(map[CommandCategory]int)
	unique := make(map[string]struct{})
	for i, c := range commands {
		cats[i] = Categorize(c)
		counts[cats[i]]++
		unique[strings.TrimSpace(c)] = struct{}{}
	}

	inspectAndTest := counts[CategoryCodeInspection] + counts[CategoryTestRunning] + counts[CategorySystematicTesting]
	random := counts[CategoryRandomTrialError]
	systematic := clamp(0, 100, 100*float64(inspectAndTest)/total-50*float64(random)/total)

	diversity := clamp(0, 100, float64(len(counts))/categoryDiversityDenominator*100)
	good := 0
	for cat, n := range counts {
		if _, ok := goodCategories[cat]; ok {
			good += n
		}
	}
	proficiency := 0.4*diversity + 0.6*(float64(good)/total*100)

	volumePenalty := 0.0
	if extra := total - efficiencyFreeCommands; extra > 0 {
		volumePenalty = extra * efficiencyVolumePenalty
	}
	efficiency := clamp(0, 100, float64(len(unique))/total*100-volumePenalty)

	// Trend toward disciplined debugging: score the second half of the
	// command history by its systematic fraction.
	half := cats[len(cats)/2:]
	sysLater := 0
	for _, cat := range half {
		if _, ok := systematicCategories[cat]; ok {
			sysLater++
		}
	}
	learning := neutralScore
	if len(half) > 0 {
		learning = clamp(0, 100, learningScoreFactor*float64(sysLater)/float64(len(half)))
	}

	return TerminalScores{
		Systematic:      systematic,
		ToolProficiency: proficiency,
		Efficiency:      efficiency,
		Learning:        learning,
		Overall: weightSystematic*systematic +
			weightProficiency*proficiency +
			weightEfficiency*efficiency +
			weightLearning*learning,
		Categories: counts,
	}
}
