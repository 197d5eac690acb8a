// Command fms drives screening and drop-jump analysis over recorded
// JSON-lines pose files.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/movement.screen/internal/db"
	"github.com/banshee-data/movement.screen/internal/version"
)

const defaultDBPath = "fms.db"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "screen":
		err = runScreen(rest, stdout, stderr)
	case "dropjump":
		err = runDropJump(rest, stdout, stderr)
	case "serve":
		err = runServe(rest, stdout, stderr)
	case "migrate":
		err = runMigrate(rest, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, version.String())
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "fms %s: %v\n", command, err)
		return 1
	}
	return 0
}

func runMigrate(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("migrate", stderr)
	dbPath := fs.String("db", defaultDBPath, "Path to database file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return db.RunMigrateCommand(stdout, fs.Args(), *dbPath)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `fms - functional movement screen analysis

Usage: fms <command> [options]

Commands:
  screen     Score one movement test from a JSON-lines pose file
  dropjump   Detect landings and classify risk from stereo or 3D pose files
  serve      Serve the screening HTTP API
  migrate    Manage the SQLite schema (fms migrate help)
  version    Show version information
  help       Show this help message

Common Flags:
  -db <path>        SQLite database (empty keeps results in memory)
  -tuning <file>    Tuning configuration JSON
  -session <id>     Session id (default: random)
  -out <dir>        Export JSON, XLSX, PNG and HTML reports to dir

Examples:
  fms screen -test deep_squat -frames squat.jsonl -db fms.db
  fms dropjump -calib rig.json -left cam1.jsonl -right cam2.jsonl -out reports
  fms dropjump -frames3d landing3d.jsonl
  fms serve -listen :8080 -db fms.db`)
}
