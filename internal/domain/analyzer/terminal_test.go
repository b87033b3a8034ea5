package analyzer_test

import (
	"testing"

	"github.com/okian/tryout/internal/domain/analyzer"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCategorize(t *testing.T) {
	Convey("Given representative commands", t, func() {
		cases := map[string]analyzer.CommandCategory{
			"go test -run TestParser ./...": analyzer.CategorySystematicTesting,
			"pytest -k test_login":          analyzer.CategorySystematicTesting,
			"go test ./...":                 analyzer.CategoryTestRunning,
			"npm test":                      analyzer.CategoryTestRunning,
			"cat main.go":                   analyzer.CategoryCodeInspection,
			"git diff HEAD~1":               analyzer.CategoryCodeInspection,
			"grep -r TODO .":                analyzer.CategoryCodeInspection,
			"which go":                      analyzer.CategoryEnvironmentCheck,
			"go version":                    analyzer.CategoryEnvironmentCheck,
			"go get github.com/google/uuid": analyzer.CategoryDependencyManagement,
			"npm install express":           analyzer.CategoryDependencyManagement,
			"ls -la":                        analyzer.CategoryFileOperations,
			"mkdir -p out":                  analyzer.CategoryFileOperations,
			"echo debugging here":           analyzer.CategoryPrintDebugging,
			"asdfgh":                        analyzer.CategoryRandomTrialError,
			"":                              analyzer.CategoryRandomTrialError,
		}

		for cmd, want := range cases {
			So(analyzer.Categorize(cmd), ShouldEqual, want)
		}
	})
}

func TestAnalyzeCommandsEmpty(t *testing.T) {
	Convey("Given a session with no terminal activity", t, func() {
		scores := analyzer.AnalyzeCommands(nil)

		Convey("Then every sub-score is the neutral 50", func() {
			So(scores.Systematic, ShouldEqual, 50)
			So(scores.ToolProficiency, ShouldEqual, 50)
			So(scores.Efficiency, ShouldEqual, 50)
			So(scores.Learning, ShouldEqual, 50)
			So(scores.Overall, ShouldEqual, 50)
		})
	})
}

func TestAnalyzeCommandsDiscipline(t *testing.T) {
	Convey("Given a disciplined, test-driven command history", t, func() {
		disciplined := analyzer.AnalyzeCommands([]string{
			"cat solution.go",
			"go test -run TestEdgeCase ./...",
			"git diff",
			"go test ./...",
			"go test -run TestParser ./...",
		})

		Convey("And a random trial-and-error history", func() {
			flailing := analyzer.AnalyzeCommands([]string{
				"asdf",
				"echo 1",
				"echo 2",
				"try-again",
				"whatever",
			})

			Convey("Then the disciplined session scores higher overall", func() {
				So(disciplined.Overall, ShouldBeGreaterThan, flailing.Overall)
			})

			Convey("Then the disciplined session has a high systematic score", func() {
				So(disciplined.Systematic, ShouldBeGreaterThan, 80)
				So(flailing.Systematic, ShouldBeLessThan, 20)
			})
		})

		Convey("Then the category histogram is populated", func() {
			So(disciplined.Categories[analyzer.CategorySystematicTesting], ShouldEqual, 2)
			So(disciplined.Categories[analyzer.CategoryCodeInspection], ShouldEqual, 2)
			So(disciplined.Categories[analyzer.CategoryTestRunning], ShouldEqual, 1)
		})
	})
}

func TestAnalyzeCommandsEfficiency(t *testing.T) {
	Convey("Given a history of many repeated commands", t, func() {
		repeated := make([]string, 40)
		for i := range repeated {
			repeated[i] = "go test ./..."
		}
		scores := analyzer.AnalyzeCommands(repeated)

		Convey("Then low uniqueness and volume drag efficiency down", func() {
			So(scores.Efficiency, ShouldBeLessThan, 10)
		})
	})
}
