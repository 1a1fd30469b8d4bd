//go:build ignore

// build.go - library-un build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, web, reconcile, test, clean

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const module = "github.com/solutionspelichet/library-un"

// executables maps a cmd/ directory to its output name
var executables = map[string]string{
	"web":       "reconcile-web",
	"reconcile": "reconcile",
}

var distDir = "dist"

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	start := time.Now()
	switch *target {
	case "all":
		for _, name := range []string{"web", "reconcile"} {
			buildExecutable(name, *verbose)
		}
	case "web", "reconcile":
		buildExecutable(*target, *verbose)
	case "test":
		runTests(*verbose)
	case "clean":
		clean()
	default:
		showHelp()
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(start).Round(time.Millisecond)))
}

func printInfo(msg string)    { fmt.Printf("[INFO] %s\n", msg) }
func printSuccess(msg string) { fmt.Printf("[OK] %s\n", msg) }
func printError(msg string)   { fmt.Fprintf(os.Stderr, "[ERROR] %s\n", msg) }

func buildExecutable(name string, verbose bool) {
	exeName := executables[name]
	if runtime.GOOS == "windows" {
		exeName += ".exe"
	}
	printInfo(fmt.Sprintf("Building %s...", name))

	ldflags := []string{"-s", "-w",
		"-X", module + "/pkg/contracts.BuildTime=" + time.Now().UTC().Format(time.RFC3339),
		"-X", module + "/pkg/contracts.GitCommit=" + gitCommit(),
	}

	outputPath := filepath.Join(distDir, exeName)
	args := []string{"build"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "-ldflags", strings.Join(ldflags, " "), "-o", outputPath, "./cmd/"+name)

	cmd := exec.Command("go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if verbose {
		fmt.Printf("Running: go %s\n", strings.Join(args, " "))
	}
	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Failed to build %s: %v", name, err))
		os.Exit(1)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", exeName, float64(info.Size())/1024/1024))
	}
}

func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func runTests(verbose bool) {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Go tests failed: %v", err))
		os.Exit(1)
	}
	printSuccess("All tests passed")
}

func clean() {
	printInfo("Cleaning build artifacts and logs...")
	for _, dir := range []string{distDir, "logs"} {
		if err := os.RemoveAll(dir); err != nil {
			printError(fmt.Sprintf("Failed to clean %s: %v", dir, err))
		}
	}
	printSuccess("Build artifacts cleaned")
}

func showHelp() {
	fmt.Println(`Usage: go run build.go [-target=TARGET] [-v]

Targets:
  all        Build every executable into dist/ (default)
  web        Build the HTTP server
  reconcile  Build the command-line tool
  test       Run all Go tests with the race detector
  clean      Remove dist/ and logs/`)
}
