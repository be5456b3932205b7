// Package errtest implements the §6.6 error-test protocol: fixtures under
// testdata/errtest/*.jslt encode an expected compiler error as a
// commented-out line carrying a `<!>message<!>` annotation. Running a
// fixture un-comments one such line at a time, compiles the result, and
// checks that the expected message shows up in the compiler's error
// output — one fixture file can therefore exercise several distinct
// error cases, each in its own pass over the file.
package errtest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/reaper-jsfx/jsfxc/compiler"
	"golang.org/x/term"
)

// annotation matches a commented-out line carrying a <!>message<!> marker.
// The code following the marker, if any, is what gets un-commented; a bare
// `// <!>message<!>` line (no trailing code) is itself the line to enable.
var annotation = regexp.MustCompile(`^(\s*)//\s*<!>(.*?)<!>(.*)$`)

// Options configures a Run call.
type Options struct {
	NoColor bool
}

// Run executes every .jslt fixture found at target (a single file or a
// directory), printing one PASS/FAIL line per case, and returns a non-nil
// error if any case failed or no fixtures were found.
func Run(target string, opts Options) error {
	files, err := collectFixtures(target)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .jslt fixtures found in %s", target)
	}

	color := !opts.NoColor && term.IsTerminal(int(os.Stderr.Fd()))
	pass, fail := 0, 0
	for _, f := range files {
		cases, err := loadCases(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f, err)
		}
		for _, c := range cases {
			ok, got := runCase(c)
			if ok {
				pass++
				printResult(color, true, f, c.lineNo, c.message, "")
			} else {
				fail++
				printResult(color, false, f, c.lineNo, c.message, got)
			}
		}
	}

	fmt.Fprintf(os.Stderr, "\n%d cases, %d passed, %d failed\n", pass+fail, pass, fail)
	if fail > 0 {
		return fmt.Errorf("%d error-test case(s) failed", fail)
	}
	return nil
}

type testCase struct {
	file       string
	lineNo     int
	message    string
	sourceText string // the whole fixture with just this line un-commented
}

func collectFixtures(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", target, err)
	}
	if !info.IsDir() {
		return []string{target}, nil
	}
	var files []string
	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", target, err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jslt") {
			files = append(files, filepath.Join(target, e.Name()))
		}
	}
	return files, nil
}

// loadCases reads fixture, finds every annotated line, and builds one
// test case per annotation, each with that one line un-commented and
// every other annotated line left disabled (commented out entirely, since
// an un-enabled annotation line has no code of its own to run).
func loadCases(fixture string) ([]testCase, error) {
	raw, err := os.ReadFile(fixture)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(raw), "\n")

	var annotated []int
	for i, line := range lines {
		if annotation.MatchString(line) {
			annotated = append(annotated, i)
		}
	}

	cases := make([]testCase, 0, len(annotated))
	for _, idx := range annotated {
		m := annotation.FindStringSubmatch(lines[idx])
		indent, message, code := m[1], m[2], m[3]

		out := make([]string, len(lines))
		copy(out, lines)
		for _, other := range annotated {
			if other == idx {
				out[other] = indent + strings.TrimSpace(code)
			} else {
				out[other] = "" // disable every other annotated line for this pass
			}
		}

		cases = append(cases, testCase{
			file:       fixture,
			lineNo:     idx + 1,
			message:    message,
			sourceText: strings.Join(out, "\n"),
		})
	}
	return cases, nil
}

// runCase compiles the case's source and reports whether the expected
// message appears in the resulting error's text.
func runCase(c testCase) (bool, string) {
	dir, err := os.MkdirTemp("", "jsfxc-errtest-*")
	if err != nil {
		return false, err.Error()
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filepath.Base(c.file))
	path = strings.TrimSuffix(path, filepath.Ext(path)) + ".jsl"
	if err := os.WriteFile(path, []byte(c.sourceText), 0o644); err != nil {
		return false, err.Error()
	}

	comp := &compiler.Compiler{}
	_, compileErr := comp.Emit(path)
	if compileErr == nil {
		return false, "compiled successfully, expected an error"
	}
	return strings.Contains(compileErr.Error(), c.message), compileErr.Error()
}

func printResult(color bool, ok bool, file string, line int, message, got string) {
	status := "FAIL"
	colorCode, reset := "\033[31m", "\033[0m"
	if ok {
		status = "PASS"
		colorCode = "\033[32m"
	}
	if !color {
		colorCode, reset = "", ""
	}
	fmt.Fprintf(os.Stderr, "%s%s%s %s:%d %q\n", colorCode, status, reset, file, line, message)
	if !ok {
		fmt.Fprintf(os.Stderr, "    got: %s\n", got)
	}
}
