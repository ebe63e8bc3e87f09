package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/deppfellow/nginx-log-sink/internal/lib/nginx"
	"github.com/deppfellow/nginx-log-sink/internal/model"
	"github.com/spf13/cobra"
)

var (
	parseServerErrors bool
	parseThreshold    int
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse nginx access lines into JSON",
	Long: `Parse reads nginx access log lines from a file, or stdin when no file
is given, and prints one JSON object per parsed line. Lines that match
neither the combined format nor a JSON log_format are counted and skipped.

Example:
  logsink parse /var/log/nginx/access.log
  kubectl logs deploy/web -c nginx | logsink parse --server-errors`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseServerErrors, "server-errors", false, "only print lines at or above --threshold")
	parseCmd.Flags().IntVar(&parseThreshold, "threshold", 500, "status treated as a server error")
}

func runParse(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()
		in = f
	}

	stats, err := parseLines(in, cmd.OutOrStdout(), parseServerErrors, parseThreshold)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "parsed %d, skipped %d, server errors %d\n",
		stats.parsed, stats.skipped, stats.serverErrors)
	return nil
}

type parseStats struct {
	parsed       int
	skipped      int
	serverErrors int
}

func parseLines(in io.Reader, out io.Writer, onlyErrors bool, threshold int) (parseStats, error) {
	var stats parseStats

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		parsed, ok := nginx.Parse(line)
		if !ok {
			stats.skipped++
			continue
		}
		stats.parsed++

		isErr := parsed.IsServerError(threshold)
		if isErr {
			stats.serverErrors++
		}
		if onlyErrors && !isErr {
			continue
		}

		if err := enc.Encode(struct {
			*model.AccessLog
			ServerError bool `json:"server_error"`
		}{parsed, isErr}); err != nil {
			return stats, fmt.Errorf("write output: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read input: %w", err)
	}
	return stats, nil
}
