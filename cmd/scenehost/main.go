package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	maxFrames   int
	dumpMetrics bool
	allScenes   bool
	listScenes  bool

	rootCmd = &cobra.Command{
		Use:   "scenehost",
		Short: "Run a scene tree against a simulated host frame loop",
		Long: `scenehost loads a scene manifest and Lua behaviours, registers every
object in the behaviour tree and drives it from a fixed-rate frame loop.`,
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Load the startup scenes and run the frame loop",
		RunE:  runHost,
	}

	treeCmd = &cobra.Command{
		Use:   "tree",
		Short: "Load scenes without running frames and print the behaviour tree",
		RunE:  printTree,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the TOML config (defaults apply when empty; "+envConfigHint+")")

	runCmd.Flags().IntVar(&maxFrames, "frames", -1, "stop after n frames (overrides host.max_frames)")
	runCmd.Flags().BoolVar(&dumpMetrics, "metrics", false, "print metrics on exit")

	treeCmd.Flags().BoolVar(&allScenes, "all", false, "also load every manifest scene not reached from the startup scenes")
	treeCmd.Flags().BoolVar(&listScenes, "scenes", false, "list the loaded scene instances after the tree")

	rootCmd.AddCommand(runCmd, treeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
