package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/chararch/srcbatch"
	"github.com/chararch/srcbatch/internal/logs"
	"github.com/spf13/cobra"
)

type stringWriter struct {
	io.Writer
}

func (w stringWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

//NewRootCommand the srcbatch command and its subcommands
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var logLevel string
	rc := &cobra.Command{
		Use:   "srcbatch",
		Short: "srcbatch builds source maps of large catalogs in bounded jobs.",
		Long: `srcbatch splits the entities of source catalogs into fixed size jobs,
one per analysis bin, and builds the source maps artifact of each job
one entity at a time.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logs.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			srcbatch.SetLogger(logs.NewLogger(stringWriter{stderr}, level))
			return nil
		},
	}
	rc.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error.")

	rc.AddCommand(newSrcmapsCatalogCommand(stdin, stdout, stderr))
	rc.AddCommand(newSrcmapsCatalogSGCommand(stdin, stdout, stderr))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

//signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
