// Package report prints the outcome of a run.
package report

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/hogwarts-cloud/stackctl/internal/inventory"
	"github.com/hogwarts-cloud/stackctl/internal/models"
)

var (
	okColor      = color.New(color.FgGreen, color.Bold)
	skippedColor = color.New(color.FgYellow)
	failedColor  = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
)

// Print writes one status line per result. Dependencies come before the
// result that needed them, warnings come last.
func Print(w io.Writer, report models.Report) {
	for _, result := range report.Results {
		printResult(w, result)
	}

	for _, warning := range report.Warnings {
		fmt.Fprintln(w, warningColor.Sprint(warning))
	}
}

func printResult(w io.Writer, result models.Result) {
	for _, dependency := range result.Dependencies {
		printResult(w, dependency)
	}

	fmt.Fprintf(w, "%s ...   %s\n", Subject(result), Status(result))
}

// Subject describes the operation on the object, e.g. `Creation of the network "n1"`.
func Subject(result models.Result) string {
	switch {
	case result.Kind == models.NetworkKind && result.Action == models.DeleteAction:
		return fmt.Sprintf("Deleting of the network %q with its subnet(s)", result.Name)
	case result.Kind == models.NetworkKind:
		return fmt.Sprintf("Creation of the network %q", result.Name)
	case result.Action == models.DeleteAction:
		return fmt.Sprintf("Deleting of the server %q", result.Name)
	default:
		return fmt.Sprintf("Creation of server %q", result.Name)
	}
}

func Status(result models.Result) string {
	switch result.Outcome {
	case models.Skipped:
		return skippedColor.Sprint("SKIPPED") + ": " + result.Reason
	case models.Failed:
		return failedColor.Sprint("FAILED") + ": " + result.Reason
	default:
		return okColor.Sprint("OK")
	}
}

// PrintGenerated tells where the generated files are and how to use them.
func PrintGenerated(w io.Writer, paths []string, sshDir string) {
	for _, path := range paths {
		switch filepath.Base(path) {
		case inventory.SSHConfigFile:
			fmt.Fprintf(w, "ssh config is generated and saved to %q\n", path)
			fmt.Fprintln(w, "To see generated ssh config run")
			fmt.Fprintf(w, "    cat %s\n", path)
			fmt.Fprintln(w, "To append generated config to ssh config file run")
			fmt.Fprintf(w, "    cat %s >> %s\n", path, filepath.Join(sshDir, "config"))
		case inventory.InventoryFile:
			fmt.Fprintf(w, "Ansible inventory file is generated and saved to %q\n", path)
			fmt.Fprintln(w, "To see generated Ansible inventory file run")
			fmt.Fprintf(w, "    cat %s\n", path)
		}
	}
}
