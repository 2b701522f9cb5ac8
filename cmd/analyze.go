package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/concurrent-sentiment/internal/analysis"
	"github.com/JakeFAU/concurrent-sentiment/internal/app"
	"github.com/JakeFAU/concurrent-sentiment/internal/input"
)

// pipelineFactory builds the fetch/extract/score stages; tests replace it.
var pipelineFactory = app.NewPipeline

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score every URL in the input file under the resource monitor",
		Long: `Reads the URL list, splits it across workers and scores each page.
The whole job is repeated once per configured monitor run; each run writes a
metrics CSV and the final labels go to the sentiment CSV.`,
		Annotations: map[string]string{needsAppAnnotation: ""},
		RunE:        runAnalyzeCommand,
	}
	cmd.Flags().String("mode", "", "execution mode: thread or process")
	cmd.Flags().Int("workers", 0, "number of workers")
	cmd.Flags().String("urls", "", "file with one URL per line")
	return cmd
}

func runAnalyzeCommand(cmd *cobra.Command, _ []string) error {
	st, a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	defer st.release()
	ctx := cmd.Context()

	urls, err := input.ReadFile(st.cfg.Input.URLsFile)
	if err != nil {
		return fmt.Errorf("read urls: %w", err)
	}
	pipeline, closePipeline, err := pipelineFactory(st.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closePipeline(); cerr != nil {
			st.logger.Warn("close fetcher", zap.Error(cerr))
		}
	}()

	if addr := st.cfg.Server.MetricsAddr; addr != "" {
		srvCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := a.Server().ListenAndServe(srvCtx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				st.logger.Error("status server stopped", zap.Error(err))
			}
		}()
		defer func() {
			cancel()
			<-done
		}()
	}

	out, err := a.Analyze(ctx, app.AnalyzeRequest{
		URLs:          urls,
		Pipeline:      pipeline,
		WorkerCommand: workerCommand(st.cfgFile),
	})
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "job %s: %d urls scored, sentiments at %s\n", out.JobID, len(out.Rows), out.SentimentURI)
	return nil
}

// workerCommand re-runs this executable as a hidden worker for one range.
// The child reads the full URL list from stdin and inherits the environment.
func workerCommand(cfgFile string) analysis.WorkerCommand {
	return func(ctx context.Context, spec analysis.WorkerSpec) (*exec.Cmd, error) {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		c := exec.CommandContext(ctx, exe, workerArgs(cfgFile, spec)...)
		c.Stdin = strings.NewReader(strings.Join(spec.URLs, "\n"))
		return c, nil
	}
}

func workerArgs(cfgFile string, spec analysis.WorkerSpec) []string {
	args := []string{"worker"}
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	return append(args,
		"--job-id", spec.JobID,
		"--start", strconv.Itoa(spec.Range.Start),
		"--end", strconv.Itoa(spec.Range.End),
		"--buffer", spec.BufferPath,
		"--count", strconv.Itoa(spec.Count),
	)
}
