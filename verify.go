package setup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type (
	// Check is one verification result. Optional checks are reported but do
	// not influence the overall pass/fail outcome.
	Check struct {
		Name     string
		Detail   string
		OK       bool
		Optional bool
	}
	// Section groups the checks of one setup component, in the order the
	// report prints them.
	Section struct {
		Title  string
		Checks []Check
	}
	// Report is the full verification outcome of one run.
	Report struct {
		Created  time.Time
		Env      PythonEnv
		Sections []Section
	}
)

const (
	markerPass = "✅"
	markerFail = "❌"
)

func (s *Section) add(name, detail string, ok, optional bool) {
	s.Checks = append(s.Checks, Check{Name: name, Detail: detail, OK: ok, Optional: optional})
}

// Passed reports whether every required check succeeded. This is the exit
// code contract of the tool: verification exits 0 iff Passed().
func (r *Report) Passed() bool {
	for _, section := range r.Sections {
		for _, check := range section.Checks {
			if !check.Optional && !check.OK {
				return false
			}
		}
	}
	return true
}

// Progress returns the fraction of all checks (required and optional) that
// succeeded, between 0.0 and 1.0.
func (r *Report) Progress() float64 {
	total, passed := 0, 0
	for _, section := range r.Sections {
		for _, check := range section.Checks {
			total++
			if check.OK {
				passed++
			}
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(passed) / float64(total)
}

// Verify runs all verification checks against the given environment and
// returns the report. It never aborts early: every check runs so the report
// is complete even when the first one fails.
func Verify(ctx context.Context, cmd Commander, env PythonEnv, config *Config) *Report {
	report := &Report{Created: time.Now(), Env: env}
	report.Sections = []Section{
		verifyPackageManager(ctx, cmd),
		verifyEnvironment(ctx, cmd, env, config),
		verifyPackages(ctx, cmd, env, config),
		verifyAccelerator(ctx, cmd, env),
		verifyParserFiles(config),
		verifyDirs(config),
		verifyCheckpoint(config),
		verifyDatasets(config),
	}
	return report
}

func verifyPackageManager(ctx context.Context, cmd Commander) Section {
	s := Section{Title: "Package manager"}
	version := uvVersion(ctx, cmd)
	s.add("uv installed", version, version != "", true)
	return s
}

func verifyEnvironment(ctx context.Context, cmd Commander, env PythonEnv, config *Config) Section {
	s := Section{Title: "Virtual environment"}
	s.add("environment exists", env.Dir, env.Valid(), false)
	if env.Valid() {
		version, err := env.Version(ctx, cmd)
		s.add("interpreter runs", version, err == nil, false)
		if config.PythonVersion != "" && err == nil {
			s.add(
				fmt.Sprintf("interpreter is Python %s", config.PythonVersion),
				version,
				strings.HasPrefix(version, config.PythonVersion),
				true,
			)
		}
	}
	return s
}

func verifyPackages(ctx context.Context, cmd Commander, env PythonEnv, config *Config) Section {
	s := Section{Title: "Python packages"}
	for _, pkg := range config.Packages {
		if !env.Valid() {
			s.add(pkg.DisplayName(), "no interpreter", false, pkg.Optional)
			continue
		}
		version, ok := importVersion(ctx, cmd, env, pkg.ImportName())
		switch {
		case !ok:
			s.add(pkg.DisplayName(), "not importable", false, pkg.Optional)
		case pkg.Version != "" && version != pkg.Version:
			s.add(pkg.DisplayName(),
				fmt.Sprintf("version %s, expected %s", version, pkg.Version),
				false, pkg.Optional)
		default:
			s.add(pkg.DisplayName(), version, true, pkg.Optional)
		}
	}
	return s
}

func verifyAccelerator(ctx context.Context, cmd Commander, env PythonEnv) Section {
	s := Section{Title: "Accelerator"}
	if !env.Valid() {
		s.add("torch accelerator", "no interpreter", false, true)
		return s
	}
	result, err := cmd.Run(ctx, "", env.Python, "-c",
		"import torch; print('cuda' if torch.cuda.is_available() else "+
			"'mps' if torch.backends.mps.is_available() else 'cpu')")
	if err != nil || !result.OK() {
		s.add("torch accelerator", "torch not importable", false, true)
		return s
	}
	backend := result.Output()
	s.add("torch accelerator", backend, backend != "cpu", true)
	return s
}

func verifyParserFiles(config *Config) Section {
	s := Section{Title: "Parser files"}
	for _, name := range append(config.Parser.Artifacts, config.Parser.Sources...) {
		path := filepath.Join(config.Parser.Dir, name)
		detail := ""
		if info, err := os.Stat(path); err == nil {
			detail = sizeString(info.Size())
		}
		s.add(name, detail, fileExists(path), true)
	}
	return s
}

func verifyDirs(config *Config) Section {
	s := Section{Title: "Project directories"}
	for _, dir := range config.Dirs {
		s.add(dir+"/", "", dirExists(dir), true)
	}
	return s
}

func verifyCheckpoint(config *Config) Section {
	s := Section{Title: "Pretrained checkpoint"}
	if config.Checkpoint.Path == "" {
		return s
	}
	info, err := os.Stat(config.Checkpoint.Path)
	if err != nil {
		s.add(filepath.Base(config.Checkpoint.Path), config.Checkpoint.Hint, false, true)
		return s
	}
	s.add(filepath.Base(config.Checkpoint.Path), sizeString(info.Size()), true, true)
	return s
}

func verifyDatasets(config *Config) Section {
	s := Section{Title: "Preprocessed data"}
	for _, dataset := range config.Datasets {
		pklFiles, _ := filepath.Glob(filepath.Join(dataset.Dir, "*.pkl"))
		detail := dataset.Display
		if len(pklFiles) > 0 {
			detail = fmt.Sprintf("%s (%d files)", dataset.Display, len(pklFiles))
		}
		s.add(dataset.Dir, detail, len(pklFiles) > 0, true)
	}
	return s
}

// importVersion imports the module in the environment's interpreter and
// returns its reported version.
func importVersion(ctx context.Context, cmd Commander, env PythonEnv, module string) (string, bool) {
	code := fmt.Sprintf("import %s; print(getattr(%s, '__version__', 'unknown'))", module, module)
	result, err := cmd.Run(ctx, "", env.Python, "-c", code)
	if err != nil || !result.OK() {
		return "", false
	}
	return result.Output(), true
}

// PrintReport writes the verification report to w in the console format of
// the setup progress check: section headers, per-check markers and an
// overall progress bar.
func PrintReport(w io.Writer, r *Report, t *Translator) {
	progress := r.Progress() * 100
	fmt.Fprintf(w, "\n%s\n", t.Get("verify_title"))
	filled := int(progress / 5)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", 20-filled)
	fmt.Fprintf(w, "[%s] %.0f%%\n", bar, progress)
	for _, section := range r.Sections {
		fmt.Fprintf(w, "\n%s\n%s\n", strings.Repeat("=", 70), section.Title)
		for _, check := range section.Checks {
			marker := markerFail
			if check.OK {
				marker = markerPass
			}
			fmt.Fprintf(w, "%s %s", marker, check.Name)
			if check.Detail != "" {
				fmt.Fprintf(w, " (%s)", check.Detail)
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 70))
	if r.Passed() {
		fmt.Fprintln(w, t.Get("verify_passed"))
	} else {
		fmt.Fprintln(w, t.Get("verify_failed"))
	}
}
