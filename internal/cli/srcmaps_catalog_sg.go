package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/chararch/srcbatch"
	"github.com/chararch/srcbatch/file"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type srcmapsCatalogSGCommand struct {
	params srcbatch.CatalogSGParams
	run    string

	jobsOut     string
	checksum    string
	dispatch    bool
	restart     bool
	workers     int
	engine      string
	jobLogs     bool
	publish     string
	db          string
	initDB      bool
	metricsFile string

	stdout io.Writer
}

func newSrcmapsCatalogSGCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cmd := &srcmapsCatalogSGCommand{stdout: stdout}
	ccmd := &cobra.Command{
		Use:   "srcmaps-catalog-sg",
		Short: "generate, and optionally run, the source maps jobs of a source library",
		Long: `
			Splits every catalog of the library into jobs of at most nsrc entities, one job per
			analysis bin of the binning definition. Without --dispatch the jobs are only recorded,
			printed as srcmaps-catalog command lines and exported with --jobs-out.
`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			ctx, cancel := signalContext(c.Context())
			defer cancel()
			return cmd.execute(ctx)
		},
	}

	flags := ccmd.Flags()
	flags.StringVar(&cmd.params.Comp, "comp", "", "Binning definition file.")
	flags.StringVar(&cmd.params.Data, "data", "", "Dataset definition file.")
	flags.StringVar(&cmd.params.Library, "library", "", "Source library file.")
	flags.IntVar(&cmd.params.Nsrc, "nsrc", srcbatch.DefaultChunkSize, "Number of entities per job.")
	flags.BoolVar(&cmd.params.MakeXML, "make-xml", false, "Write the model files of the catalogs and their splits.")
	flags.BoolVar(&cmd.params.Compress, "gzip", false, "Compress the artifacts once built.")
	flags.StringVar(&cmd.run, "run", "srcmaps", "Name the job table and executions are recorded under.")
	flags.StringVar(&cmd.jobsOut, "jobs-out", "", "Export the job table as JSON lines to this file.")
	flags.StringVar(&cmd.checksum, "checksum", "", "Check file written next to the exported table and the artifacts: OK, MD5, SHA1, SHA256 or SHA512.")
	flags.BoolVar(&cmd.dispatch, "dispatch", false, "Run the jobs in this process.")
	flags.BoolVar(&cmd.restart, "restart", false, "Run again the jobs of --run that did not complete.")
	flags.IntVar(&cmd.workers, "workers", srcbatch.DefaultMaxRunningJobs, "Number of jobs run at once with --dispatch.")
	flags.StringVar(&cmd.engine, "engine", srcbatch.EchoEngineName, "Analysis engine computing the contributions, one of: "+strings.Join(srcbatch.DefaultEngineRegistry().Names(), ", ")+".")
	flags.BoolVar(&cmd.jobLogs, "job-logs", true, "Write the log of each job next to its artifact.")
	flags.StringVar(&cmd.publish, "publish", "", "Copy finished artifacts to a directory, ftp:// or s3:// url.")
	flags.StringVar(&cmd.db, "db", "", "MySQL DSN of the run repository, runs are kept in memory when empty.")
	flags.BoolVar(&cmd.initDB, "init-db", false, "Create the repository tables if they do not exist.")
	flags.StringVar(&cmd.metricsFile, "metrics-file", "", "Write dispatch metrics to this Prometheus textfile.")
	return ccmd
}

func (cmd *srcmapsCatalogSGCommand) repository(ctx context.Context) (srcbatch.Repository, func(), error) {
	if cmd.db == "" {
		return srcbatch.NewMemoryRepository(), func() {}, nil
	}
	dsn, err := repositoryDSN(cmd.db)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open run repository")
	}
	if cmd.initDB {
		for _, stmt := range strings.Split(srcbatch.Schema, ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err = db.ExecContext(ctx, stmt); err != nil {
				db.Close()
				return nil, nil, errors.Wrap(err, "create repository tables")
			}
		}
	}
	return srcbatch.NewSQLRepository(db), func() { db.Close() }, nil
}

//repositoryDSN the repository scans DATETIME columns into time.Time, which the driver only does with parseTime
func repositoryDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Wrap(err, "parse repository dsn")
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (cmd *srcmapsCatalogSGCommand) dispatcher(ctx context.Context, registry *prometheus.Registry) (*srcbatch.LocalDispatcher, error) {
	engine, be := srcbatch.DefaultEngineRegistry().Get(cmd.engine)
	if be != nil {
		return nil, be
	}
	d, be := srcbatch.NewLocalDispatcher(cmd.workers, engine, &srcbatch.FileArtifactStore{})
	if be != nil {
		return nil, be
	}
	metrics := srcbatch.NewMetrics(registry)
	d.Listener(metrics).BuildListener(metrics).Checksum(cmd.checksum).JobLogs(cmd.jobLogs)
	if cmd.publish != "" {
		publisher, be := srcbatch.NewPublisher(ctx, cmd.publish)
		if be != nil {
			d.Release()
			return nil, be
		}
		d.Publisher(publisher)
	}
	return d, nil
}

func (cmd *srcmapsCatalogSGCommand) execute(ctx context.Context) error {
	repo, closeRepo, err := cmd.repository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	registry := prometheus.NewRegistry()
	var dispatcher srcbatch.Dispatcher
	if cmd.dispatch || cmd.restart {
		d, err := cmd.dispatcher(ctx, registry)
		if err != nil {
			return err
		}
		defer d.Release()
		dispatcher = d
	}
	op := srcbatch.NewOperator(srcbatch.DefaultRegistry(), repo, dispatcher)

	var report *srcbatch.RunReport
	var be srcbatch.BatchError
	switch {
	case cmd.restart:
		report, be = op.Restart(ctx, cmd.run)
	case cmd.dispatch:
		report, be = op.Submit(ctx, cmd.run, srcbatch.CatalogSGJobType, cmd.toParams())
	default:
		var table srcbatch.JobTable
		table, be = op.Generate(ctx, cmd.run, srcbatch.CatalogSGJobType, cmd.toParams())
		if be == nil {
			report = &srcbatch.RunReport{Run: cmd.run, Table: table}
		}
	}
	if be != nil {
		return be
	}

	if cmd.jobsOut != "" {
		if be = srcbatch.WriteJobTable(&file.LocalFileSystem{}, cmd.jobsOut, report.Table, cmd.checksum); be != nil {
			return be
		}
	}
	if dispatcher == nil {
		for _, key := range report.Table.Keys() {
			fmt.Fprintf(cmd.stdout, "%s: srcbatch srcmaps-catalog %s\n", key, strings.Join(report.Table[key].Args(), " "))
		}
		return nil
	}

	for _, key := range report.Table.Keys() {
		if e, ok := report.Executions[key]; ok {
			fmt.Fprintf(cmd.stdout, "%s %s entities=%d\n", key, e.Status, e.EntityCount)
		}
	}
	if cmd.metricsFile != "" {
		if err = srcbatch.WriteMetricsFile(registry, cmd.metricsFile); err != nil {
			return err
		}
	}
	if unfinished := report.Unfinished(); len(unfinished) > 0 {
		return errors.Errorf("%d of %d jobs did not complete, restart run %v to retry them", len(unfinished), len(report.Table), cmd.run)
	}
	return nil
}

func (cmd *srcmapsCatalogSGCommand) toParams() map[string]interface{} {
	return map[string]interface{}{
		"comp":     cmd.params.Comp,
		"data":     cmd.params.Data,
		"library":  cmd.params.Library,
		"nsrc":     cmd.params.Nsrc,
		"make_xml": cmd.params.MakeXML,
		"gzip":     cmd.params.Compress,
	}
}
