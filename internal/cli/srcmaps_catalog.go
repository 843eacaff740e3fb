package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chararch/srcbatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type srcmapsCatalogCommand struct {
	cfg         srcbatch.WorkerConfig
	engine      string
	publish     string
	metricsFile string

	stdout io.Writer
}

func newSrcmapsCatalogCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cmd := &srcmapsCatalogCommand{stdout: stdout}
	ccmd := &cobra.Command{
		Use:   "srcmaps-catalog",
		Short: "build the source maps of a range of catalog entities",
		Long: `
			Builds one source maps artifact from the entities [srcmin, srcmax) of a model file.
			The artifact header is copied from the counts map, then the contribution of each
			entity is appended in catalog order.
`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			ctx, cancel := signalContext(c.Context())
			defer cancel()
			return cmd.run(ctx)
		},
	}

	flags := ccmd.Flags()
	flags.StringVar(&cmd.cfg.Inputs.CountsMap, "cmap", "", "Counts map the artifact header is copied from.")
	flags.StringVar(&cmd.cfg.Inputs.LiveTimeCube, "expcube", "", "Livetime cube.")
	flags.StringVar(&cmd.cfg.Inputs.ExposureCube, "bexpmap", "", "Binned exposure map.")
	flags.StringVar(&cmd.cfg.Inputs.IRFs, "irfs", "", "Instrument response functions.")
	flags.StringVar(&cmd.cfg.ModelFile, "srcmdl", "", "Model file listing the catalog entities.")
	flags.StringVar(&cmd.cfg.OutputPath, "outfile", "", "Output artifact.")
	flags.IntVar(&cmd.cfg.SrcMin, "srcmin", 0, "Index of the first entity.")
	flags.IntVar(&cmd.cfg.SrcMax, "srcmax", -1, "Index after the last entity, -1 for the end of the catalog.")
	flags.BoolVar(&cmd.cfg.Compress, "gzip", false, "Compress the artifact once built.")
	flags.StringVar(&cmd.cfg.Checksum, "checksum", "", "Write a check file next to the artifact: OK, MD5, SHA1, SHA256 or SHA512.")
	flags.StringVar(&cmd.engine, "engine", srcbatch.EchoEngineName, "Analysis engine computing the contributions, one of: "+strings.Join(srcbatch.DefaultEngineRegistry().Names(), ", ")+".")
	flags.StringVar(&cmd.publish, "publish", "", "Copy the finished artifact to a directory, ftp:// or s3:// url.")
	flags.StringVar(&cmd.metricsFile, "metrics-file", "", "Write build metrics to this Prometheus textfile.")
	ccmd.MarkFlagRequired("cmap")
	ccmd.MarkFlagRequired("srcmdl")
	ccmd.MarkFlagRequired("outfile")
	return ccmd
}

func (cmd *srcmapsCatalogCommand) run(ctx context.Context) error {
	engine, be := srcbatch.DefaultEngineRegistry().Get(cmd.engine)
	if be != nil {
		return be
	}
	catalog, be := srcbatch.LoadCatalogFile(cmd.cfg.ModelFile)
	if be != nil {
		return be
	}
	builder, be := srcbatch.NewArtifactBuilder(cmd.cfg, catalog, engine, &srcbatch.FileArtifactStore{})
	if be != nil {
		return be
	}
	registry := prometheus.NewRegistry()
	builder.Listener(srcbatch.NewMetrics(registry))
	if cmd.publish != "" {
		publisher, be := srcbatch.NewPublisher(ctx, cmd.publish)
		if be != nil {
			return be
		}
		builder.Publisher(publisher)
	}
	err := builder.Run(ctx)
	e := builder.JobExecution()
	fmt.Fprintf(cmd.stdout, "%s %s entities=%d cost=%v\n", e.Status, e.OutputPath, e.EntityCount, e.Duration())
	if cmd.metricsFile != "" {
		if merr := srcbatch.WriteMetricsFile(registry, cmd.metricsFile); merr != nil && err == nil {
			return merr
		}
	}
	if err != nil {
		return err
	}
	return nil
}
