// Package cmd implements the j2kcodec command tree.
package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewRoot builds the root command with logging flags shared by every
// subcommand.
func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "j2kcodec",
		Short: "JPEG 2000 encode/decode tooling",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFile, _ := cmd.Flags().GetString("log-file")

			var level slog.Level
			if err := level.UnmarshalText([]byte(strings.ToUpper(logLevel))); err != nil {
				level = slog.LevelInfo
			}
			var sink io.Writer = os.Stderr
			if logFile != "" {
				sink = io.MultiWriter(os.Stderr, &lumberjack.Logger{
					Filename:   logFile,
					MaxSize:    16, // megabytes
					MaxBackups: 4,
				})
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(sink, &slog.HandlerOptions{Level: level})))
			slog.Debug("j2kcodec starting", "git", gitsha)
		},
	}
	cmd.AddCommand(
		NewEncodeCmd(ctx),
		NewDecodeCmd(ctx),
		NewInfoCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "log level (DEBUG, INFO, WARN, ERROR)")
	pf.String("log-file", "", "also log to this rotating file")
	return cmd
}
