// Command prepd runs the canonical data preparation challenges.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/prepd/prepd/challenges"
	"github.com/prepd/prepd/internal/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.SetFlags(0)
		log.Fatalf("prepd: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "prepd",
		Short:         "prepd runs data preparation challenge pipelines",
		Version:       version.Info().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(version.Info().String())
	root.AddCommand(newListCommand(), newRunCommand())
	return root
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered challenges",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range challenges.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", c.Name, c.Description)
			}
			return nil
		},
	}
}

func newRunCommand() *cobra.Command {
	var inputDir, outputDir string

	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run one challenge pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			challenge, ok := challenges.Find(args[0])
			if !ok {
				return fmt.Errorf("unknown challenge %q, see prepd list", args[0])
			}
			if err := os.MkdirAll(outputDir, 0o750); err != nil {
				return err
			}
			log.SetFlags(0)
			log.Printf("running %s", challenge.Name)
			if err := challenge.Run(inputDir, outputDir); err != nil {
				return err
			}
			log.Printf("done, output in %s", outputDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input", ".", "directory holding the challenge input files")
	cmd.Flags().StringVar(&outputDir, "output", ".", "directory to write outputs into")
	return cmd
}
