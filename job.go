package srcbatch

import (
	"fmt"
	"sort"
	"strconv"
)

//JobDescriptor everything one worker needs to build one artifact
type JobDescriptor struct {
	Key        string     `json:"key"`
	BinKey     string     `json:"bin"`
	Catalog    string     `json:"catalog"`
	JobIndex   int        `json:"job_index"`
	Range      IndexRange `json:"range"`
	Inputs     InputFiles `json:"inputs"`
	ModelFile  string     `json:"srcmdl"`
	OutputPath string     `json:"outfile"`
	LogPath    string     `json:"logfile"`
	EvType     int        `json:"evtype"`
	Compress   bool       `json:"gzip"`
}

//JobKey composes the `{ebin}_{psftype}_{catalog}_{index}` key of a job
func JobKey(bin AnalysisBin, catalog string, jobIndex int) string {
	return fmt.Sprintf("%s_%s_%02d", bin.Key(), catalog, jobIndex)
}

//WorkerConfig the worker configuration of the job
func (d *JobDescriptor) WorkerConfig() WorkerConfig {
	return WorkerConfig{
		Inputs:     d.Inputs,
		ModelFile:  d.ModelFile,
		OutputPath: d.OutputPath,
		SrcMin:     d.Range.Min,
		SrcMax:     d.Range.Max,
		Compress:   d.Compress,
	}
}

//Args the srcmaps-catalog command line arguments running the job
func (d *JobDescriptor) Args() []string {
	args := []string{
		"--cmap", d.Inputs.CountsMap,
		"--expcube", d.Inputs.LiveTimeCube,
		"--bexpmap", d.Inputs.ExposureCube,
		"--irfs", d.Inputs.IRFs,
		"--srcmdl", d.ModelFile,
		"--outfile", d.OutputPath,
		"--srcmin", strconv.Itoa(d.Range.Min),
		"--srcmax", strconv.Itoa(d.Range.Max),
	}
	if d.Compress {
		args = append(args, "--gzip")
	}
	return args
}

//JobTable job key -> descriptor
type JobTable map[string]*JobDescriptor

//Keys the job keys in ascending order
func (t JobTable) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

//Subset the jobs of the given keys, unknown keys are ignored
func (t JobTable) Subset(keys ...string) JobTable {
	sub := make(JobTable, len(keys))
	for _, k := range keys {
		if d, ok := t[k]; ok {
			sub[k] = d
		}
	}
	return sub
}
