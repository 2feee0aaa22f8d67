package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/openxe/oxe/internal/config"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitInvalidArgs     = 2
	ExitMirrorError     = 3
	ExitDatasetNotFound = 4
	ExitEncodeError     = 5
	ExitInferenceError  = 6
)

func main() {
	// Optional .env for REPLICATE_API_TOKEN and OXE_ overrides.
	godotenv.Load()

	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "download":
		return runDownload(cmdArgs)
	case "export":
		return runExport(cmdArgs)
	case "generate":
		return runGenerate(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: oxe <command> [options]

Commands:
  download  Fetch episode datasets from the mirror, optionally capped to an episode budget
  export    Render downloaded episodes as MP4 clips
  generate  Send a clip and a prompt to the hosted video model and store the result

Run 'oxe <command> -h' for command-specific help.`)
}

// loadConfig layers defaults, an optional YAML file, and OXE_ environment
// variables. Flag values are merged on top by each command.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		fileCfg, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = fileCfg
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[oxe] Received interrupt, shutting down...")
		cancel()
	}()

	return ctx, cancel
}
