package ctfhunter

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/railwayapp/ctfhunter/internal/config"
	"github.com/railwayapp/ctfhunter/internal/filesystems"
	"github.com/railwayapp/ctfhunter/internal/hunter"
	"github.com/railwayapp/ctfhunter/internal/logger"
	"github.com/railwayapp/ctfhunter/internal/report"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd builds the ctfhunter command with its own viper instance.
func NewRootCmd() *cobra.Command {
	var cfgFile, envFile string
	v := viper.New()
	config.SetDefaults(v)

	cmd := &cobra.Command{
		Use:   "ctfhunter <start_dir> <search_string>",
		Short: "Hunt a directory tree for flag files and a search string",
		Long: `ctfhunter walks <start_dir> recursively and reports:
1. Flag files - files named flag.txt, root.txt, user.txt or proof.txt
   (case-insensitive), printed in full
2. String matches - files whose contents contain <search_string>
   (case-insensitive, streamed, never loaded whole)

Symbolic links are never followed. <start_dir> may also be a source URI:
file:///path, github://owner/repo[/tree/ref[/subpath]] or
git://host/owner/repo[#ref].`,
		Example: `  ctfhunter / "HTB{"
  ctfhunter --workers 8 --format json /home flag{
  ctfhunter /home "-----BEGIN"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Past argument validation, failures are not usage mistakes
			cmd.SilenceUsage = true

			used, err := config.Init(v, cfgFile, envFile)
			if err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			log := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			if used != "" {
				log.Infof("Using config file: %s", used)
			}

			return runHunt(cmd.Context(), cmd.OutOrStdout(), log, cfg, args[0], args[1])
		},
	}

	flags := cmd.Flags()
	// Flags go before <start_dir>; everything after it is positional, so a
	// search string such as "-----BEGIN" is never parsed as a flag
	flags.SetInterspersed(false)
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ctfhunter.yaml)")
	flags.StringVar(&envFile, "env-file", "", "dotenv file with CTFHUNTER_* settings to load first")
	flags.String("format", report.FormatText, "report format: text, json, yaml or toml")
	flags.StringP("output", "o", "", "append the report to this file instead of stdout")
	flags.Int("workers", 1, "number of files scanned concurrently")
	flags.Int("chunk-size", 64*1024, "bytes read per scan pass")
	flags.StringSlice("target", nil, "extra flag file name (repeatable)")
	flags.String("log-level", "warn", "diagnostics level on stderr: debug, info, warn, error")
	flags.Bool("no-color", false, "disable colored markers")

	for key, flag := range map[string]string{
		"format":     "format",
		"output":     "output",
		"workers":    "workers",
		"chunk_size": "chunk-size",
		"targets":    "target",
		"log_level":  "log-level",
		"no_color":   "no-color",
	} {
		cobra.CheckErr(v.BindPFlag(key, flags.Lookup(flag)))
	}

	return cmd
}

func runHunt(ctx context.Context, stdout io.Writer, log logger.Logger, cfg config.Config, startDir, searchString string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Create filesystem from the startDir (supports file://, github://, git://)
	filesystem, err := filesystems.NewFileSystem(ctx, startDir)
	if err != nil {
		return fmt.Errorf("failed to create filesystem: %w", err)
	}
	defer func() {
		if err := filesystems.Cleanup(filesystem); err != nil {
			log.Warnf("cleanup failed: %v", err)
		}
	}()
	if gitFS, ok := filesystem.(*filesystems.GitFS); ok {
		log.Infof("cloned %s at %s", gitFS.RepoURL(), cmp.Or(gitFS.Ref(), "default branch"))
	}

	out := stdout
	if cfg.Output != "" {
		lf, err := report.OpenLockedFile(cfg.Output)
		if err != nil {
			return err
		}
		defer lf.Close()
		out = lf
	}

	reporter, err := report.New(out, report.Options{
		Format: cfg.Format,
		Color:  !cfg.NoColor && isTerminal(out),
	})
	if err != nil {
		return err
	}

	targets := hunter.NewTargetSet(cfg.Targets...)
	run := report.Run{
		ID:       uuid.NewString(),
		StartDir: startDir,
		Search:   searchString,
		Targets:  targets,
	}
	if err := reporter.Start(run); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	h := hunter.New(filesystem, reporter, log, hunter.Options{
		Needle:    searchString,
		Targets:   targets,
		ChunkSize: cfg.ChunkSize,
		Workers:   cfg.Workers,
	})

	summary, err := h.Run(ctx, filesystems.RootPath(startDir))
	if err != nil {
		return fmt.Errorf("hunt failed: %w", err)
	}

	log.Infof("run %s: %d directories, %d files, %d skipped, %d flag files, %d string matches in %s",
		run.ID, summary.Directories, summary.Files, summary.Skipped, summary.FlagFiles, summary.StringMatches, summary.Duration)

	if err := reporter.Finish(summary); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// isTerminal reports whether w is an interactive terminal honouring NO_COLOR.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
