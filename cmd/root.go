package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/samsaffron/term-chat/internal/exitcode"
	debugpprof "github.com/samsaffron/term-chat/internal/pprof"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default is <user config dir>/term-chat/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Model id to use, overriding the config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cpuProfile, "cpuprofile", "", "Write CPU profile to file")
	rootCmd.PersistentFlags().StringVar(&memProfile, "memprofile", "", "Write memory profile to file")
	rootCmd.PersistentFlags().IntVar(&pprofPort, "pprof", -1, "Serve pprof on localhost at this port (0 picks a free port)")
	if err := rootCmd.RegisterFlagCompletionFunc("model", ModelFlagCompletion); err != nil {
		panic(fmt.Sprintf("failed to register model completion: %v", err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "term-chat",
	Short: "Chat with OpenAI-compatible models from the terminal",
	Long: `term-chat streams chat completions from an OpenAI-compatible endpoint.

Examples:
  term-chat chat                                  # interactive chat
  term-chat ask "how do I reverse a slice in Go?"
  term-chat ask -f main.go "explain this file"
  term-chat models --filter claude
  term-chat config init                           # interactive setup`,
	SilenceUsage:      true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return startProfiling(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return stopProfiling()
	},
}

var configFile string
var modelFlag string
var logLevel string
var cpuProfile string
var memProfile string
var pprofPort int
var cpuProfileFile *os.File
var pprofServer *debugpprof.Server

func startProfiling(cmd *cobra.Command) error {
	if pprofPort >= 0 {
		pprofServer = debugpprof.NewServer(nil)
		port, err := pprofServer.Start(pprofPort)
		if err != nil {
			return err
		}
		debugpprof.PrintUsage(cmd.ErrOrStderr(), port)
	}
	if cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			return err
		}
		cpuProfileFile = f
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return err
		}
	}
	return nil
}

func stopProfiling() error {
	if pprofServer != nil {
		_ = pprofServer.Stop(context.Background())
		pprofServer = nil
	}
	if cpuProfileFile != nil {
		pprof.StopCPUProfile()
		cpuProfileFile.Close()
		cpuProfileFile = nil
	}
	if memProfile != "" {
		f, err := os.Create(memProfile)
		if err != nil {
			return err
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return err
		}
	}
	return nil
}

func Execute() {
	err := rootCmd.Execute()
	if code := exitcode.CodeOf(err); code != exitcode.Success {
		os.Exit(code)
	}
}
