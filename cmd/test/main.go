package main

import (
	"flag"
	"fmt"
	"math"
	"os"
)

// End-to-end harness: builds a throwaway workspace of local feed fixtures,
// replays three consecutive run days through the full pipeline (first publish,
// fallback-and-outlier day, gate-blocked day) and then verifies the query
// server over the resulting artifacts. Exits non-zero when any check fails.
func main() {
	// 1. Parse command line flags
	workDir := flag.String("workdir", "", "workspace directory (default: fresh temp dir)")
	keep := flag.Bool("keep", false, "keep the workspace for inspection after the run")
	flag.Parse()

	os.Exit(run(*workDir, *keep))
}

// -----------------------------------------------------------------------------

func run(workDir string, keep bool) int {
	// 2. Build the fixture workspace
	ws, err := newWorkspace(workDir)
	if err != nil {
		fmt.Printf("Error building workspace: %v\n", err)
		return 1
	}
	if !keep {
		defer os.RemoveAll(ws.Root)
	}

	// 3. Config round trip through the same YAML loader the daily binary uses
	conf, appLogger, err := ws.buildConfig()
	if err != nil {
		fmt.Printf("Error building config: %v\n", err)
		return 1
	}
	defer appLogger.Close()

	// 4. Release log. The harness asserts against the audit trail, so unlike
	// the daily binary a broken log is fatal here.
	releaseLog := setupReleaseLog(conf.MConfig, appLogger)
	if releaseLog == nil {
		return 1
	}
	defer releaseLog.Close()

	// 5. Replay three run days
	r := &report{}
	runDayOne(ws, conf, releaseLog, appLogger, r)
	runDayTwo(ws, conf, releaseLog, appLogger, r)
	runDayThree(ws, conf, releaseLog, appLogger, r)

	// 6. Query server over the finished workspace
	checkQueryServer(ws, conf, releaseLog, appLogger, r)

	return r.summarize(ws.Root, keep)
}

// -----------------------------------------------------------------------------
// Check recording
// -----------------------------------------------------------------------------

type report struct {
	passed int
	failed int
}

func (r *report) check(name string, ok bool, format string, args ...interface{}) {
	if ok {
		r.passed++
		fmt.Printf("PASS  %s\n", name)
		return
	}
	r.failed++
	fmt.Printf("FAIL  %s: %s\n", name, fmt.Sprintf(format, args...))
}

func (r *report) summarize(root string, keep bool) int {
	fmt.Printf("\n%d passed, %d failed\n", r.passed, r.failed)
	if keep {
		fmt.Printf("workspace kept at %s\n", root)
	}
	if r.failed > 0 {
		return 1
	}
	return 0
}

// -----------------------------------------------------------------------------

func near(got, want, tolerance float64) bool {
	return math.Abs(got-want) <= tolerance
}

// floatOrNaN unwraps an optional snapshot field; NaN fails any near() check,
// so absent values surface as ordinary failures instead of panics.
func floatOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func hasCode(codes []string, want string) bool {
	for _, code := range codes {
		if code == want {
			return true
		}
	}
	return false
}
