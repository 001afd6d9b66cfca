package setup

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
)

const (
	// Linux terminal command string to clear the current line and reset the cursor
	clearLineVT100 = "\033[2K\r"
	cliMaxLineLen  = 80
	logFilename    = "setup.log"
)

// Run parses commandline options (if any) and performs the requested setup
// mode.
//
// Commandline parameters are:
//
//	-verify           // Verify the installation only, install nothing
//	-fix-deps         // Run only the ordered pinned reinstall sequence
//	-rebuild-parsers  // Rebuild the tree-sitter parser library
//	-env              // Virtual environment directory
//	-manifest         // Requirements manifest to install
//	-report           // Markdown status report path ("" disables)
//	-yes              // Assume yes, never prompt
//	-no-launcher      // Skip creating the desktop launcher entry
//	-gui              // Show a GTK progress window instead of the line UI
//	-lang             // Choose the message language
//
// Without parameters the full bootstrap runs: ensure the virtual
// environment, install the manifest, apply the reinstall sequence, verify,
// and write the status report.
//
// Exit codes: 0 on success, 1 on configuration or environment errors, 2 when
// an install step fails, 3 when verification fails.
func Run() int {
	logfile := startLogging(logFilename)
	defer logfile.Close()

	openBoxes()
	config, err := NewConfig()
	if err != nil {
		return 1
	}
	config.Variables["setupName"] = os.Args[0]
	translator := NewTranslatorVar(config.Variables)

	verifyOnly := flag.Bool("verify", false, translator.Get("cli_help_verify"))
	fixDeps := flag.Bool("fix-deps", false, translator.Get("cli_help_fixdeps"))
	rebuildParsers := flag.Bool("rebuild-parsers", false, translator.Get("cli_help_rebuildparsers"))
	envDir := flag.String("env", "", translator.Get("cli_help_env"))
	manifest := flag.String("manifest", "", translator.Get("cli_help_manifest"))
	reportPath := flag.String("report", DefaultReportFilename, translator.Get("cli_help_report"))
	assumeYes := flag.Bool("yes", false, translator.Get("cli_help_yes"))
	noLauncher := flag.Bool("no-launcher", false, translator.Get("cli_help_nolauncher"))
	gui := flag.Bool("gui", false, translator.Get("cli_help_gui"))
	lang := flag.String("lang", "", translator.Get("cli_help_lang")+" "+strings.Join(translator.GetLanguages(), ", "))
	flag.Parse()

	if len(*lang) > 0 {
		err := translator.SetLanguage(*lang)
		if err != nil {
			fmt.Printf("Language '%s' not available\n", *lang)
		}
	}
	if len(*envDir) > 0 {
		config.EnvDir = *envDir
	}
	config.AssumeYes = *assumeYes
	config.NoLauncher = *noLauncher

	ctx := context.Background()
	cmd := NewCommander()

	if *rebuildParsers {
		return runParserRebuild(ctx, cmd, config, translator)
	}
	if *verifyOnly {
		env := DetectEnv(config.EnvDir)
		return runVerify(ctx, cmd, env, config, translator, *reportPath)
	}

	env, err := EnsureEnv(ctx, cmd, config)
	if err != nil {
		log.Println(err)
		fmt.Println(translator.Get("err_env_setup_failed"))
		fmt.Println(err)
		return 1
	}

	var steps []*InstallStep
	if *fixDeps {
		steps = FixSteps(config.FixOrder)
	} else {
		reqs, err := LoadManifest(*manifest, config.Manifest)
		if err != nil {
			log.Println(err)
			fmt.Println(translator.Get("err_manifest_unreadable"))
			fmt.Println(err)
			return 1
		}
		steps = append(ManifestSteps(reqs), FixSteps(config.FixOrder)...)
	}

	installer := NewInstaller(env, cmd, steps)
	if config.IndexURL != "" {
		installer.SetIndexURL(config.IndexURL)
	}
	if *gui {
		if err := RunGuiSetup(installer, translator); err != nil {
			log.Println("Unable to start GUI:", err)
			runCliInstall(installer, translator)
		}
	} else {
		runCliInstall(installer, translator)
	}
	if installer.Error() != nil {
		log.Println(installer.Error())
		fmt.Println(translator.Get("install_failed"))
		fmt.Println(installer.Error())
		return 2
	}
	fmt.Println(translator.Get("install_done"))

	if !config.NoLauncher {
		createLauncher(config)
	}
	return runVerify(ctx, cmd, env, config, translator, *reportPath)
}

// runCliInstall drives the installer on the terminal: one VT100-updated line
// with the current step, interrupt rolls the completed steps back.
func runCliInstall(installer *Installer, translator *Translator) {
	cancelChannel := make(chan os.Signal, 1)
	signal.Notify(cancelChannel, os.Interrupt)
	defer signal.Stop(cancelChannel)
	installer.SetProgressFunction(func(status InstallStatus) {
		line := ""
		if status.Step != nil {
			line = status.Step.Spec()
		}
		if len(line) > cliMaxLineLen {
			line = "..." + line[len(line)-(cliMaxLineLen-3):]
		}
		fmt.Print(clearLineVT100 + line)
	})
	fmt.Println(translator.Get("install_running"))
	installer.StartInstall()
	go func() {
		for range cancelChannel {
			installer.Rollback()
		}
	}()
	installer.WaitForDone()
	fmt.Print(clearLineVT100)
}

func runVerify(ctx context.Context, cmd Commander, env PythonEnv, config *Config, translator *Translator, reportPath string) int {
	report := Verify(ctx, cmd, env, config)
	PrintReport(os.Stdout, report, translator)
	if reportPath != "" {
		if err := WriteReport(reportPath, report, config.Variables); err != nil {
			log.Println("Unable to write status report:", err)
		} else {
			fmt.Println(translator.Get("report_written"), reportPath)
		}
	}
	if !report.Passed() {
		return 3
	}
	return 0
}

func runParserRebuild(ctx context.Context, cmd Commander, config *Config, translator *Translator) int {
	env := DetectEnv(config.EnvDir)
	if !env.Valid() {
		fmt.Println(translator.Get("err_no_env"))
		return 1
	}
	err := RebuildParsers(ctx, cmd, env, config, func(line string) {
		fmt.Println(line)
	})
	if err != nil {
		log.Println(err)
		fmt.Println(translator.Get("parsers_failed"))
		fmt.Println(err)
		return 2
	}
	fmt.Println(translator.Get("parsers_done"))
	return 0
}

// createLauncher writes the desktop entry pointing at the environment.
// Failure is logged but never fails the setup.
func createLauncher(config *Config) {
	projectDir, err := os.Getwd()
	if err != nil {
		projectDir = "."
	}
	launcherVars := MergeVariables(config.Variables, StringMap{
		"projectDir": projectDir,
		"envDir":     config.EnvDir,
	})
	if err := osCreateLauncherEntry(launcherVars); err != nil {
		log.Println("Unable to create launcher entry:", err)
	}
}

// startLogging sets up the logging
func startLogging(logFilename string) *os.File {
	logfile, err := os.OpenFile(logFilename, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatal(err)
	}
	log.SetFlags(log.Ldate | log.Ltime)
	log.SetOutput(logfile)
	return logfile
}
