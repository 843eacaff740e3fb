package srcbatch

import (
	"fmt"
	"path/filepath"
	"strings"
)

//path templates of the data products, relative to the dataset basedir
const (
	CountsCubeTemplate   = "{basedir}/counts_cubes/ccube_{dataver}_{mktime}_{evclass}_{ebin}_{psftype}_{coordsys}.fits"
	LiveTimeCubeTemplate = "{basedir}/lt_cubes/ltcube_{dataver}_{zcut}.fits"
	ExposureCubeTemplate = "{basedir}/exposure_cubes/bexcube_{dataver}_{mktime}_{evclass}_{ebin}_{psftype}_{coordsys}_{irf_ver}.fits"
	SrcMapsTemplate      = "{basedir}/srcmaps/srcmaps_{sourcekey}_{zcut}_{ebin}_{psftype}_{coordsys}_{irf_ver}_{job,#02}.fits"
	ModelFileTemplate    = "{basedir}/srcmdls/{sourcekey}.xml"
	IRFsTemplate         = "{evclass}_{irf_ver}"
)

//InputFiles the resolved inputs of one job
type InputFiles struct {
	CountsMap    string `json:"cmap"`
	LiveTimeCube string `json:"expcube"`
	ExposureCube string `json:"bexpmap"`
	IRFs         string `json:"irfs"`
}

//JobPaths every path a job reads or writes
type JobPaths struct {
	Inputs     InputFiles
	ModelFile  string
	OutputPath string
	LogPath    string
}

//NameFactory maps (bin, catalog, job index) to file names of a dataset
type NameFactory struct {
	Dataset      Dataset
	CountsCube   FilePath
	LiveTimeCube FilePath
	ExposureCube FilePath
	SrcMaps      FilePath
	ModelFile    FilePath
	IRFs         FilePath
}

//NewNameFactory creates a NameFactory with the default templates
func NewNameFactory(ds Dataset) *NameFactory {
	return &NameFactory{
		Dataset:      ds,
		CountsCube:   FilePath{CountsCubeTemplate},
		LiveTimeCube: FilePath{LiveTimeCubeTemplate},
		ExposureCube: FilePath{ExposureCubeTemplate},
		SrcMaps:      FilePath{SrcMapsTemplate},
		ModelFile:    FilePath{ModelFileTemplate},
		IRFs:         FilePath{IRFsTemplate},
	}
}

func (f *NameFactory) baseParams() map[string]interface{} {
	mktime := f.Dataset.MkTime
	if mktime == "" {
		mktime = DefaultMkTime
	}
	return map[string]interface{}{
		"basedir": f.Dataset.BaseDir,
		"dataver": f.Dataset.DataVer,
		"evclass": f.Dataset.EvClass,
		"irf_ver": f.Dataset.IrfVer,
		"mktime":  mktime,
	}
}

//Resolve computes the input and output paths of job jobIndex of catalog in bin
func (f *NameFactory) Resolve(bin AnalysisBin, catalog string, jobIndex int) (JobPaths, BatchError) {
	var missing []string
	if bin.EbinName == "" {
		missing = append(missing, "ebin")
	}
	if bin.PsfType == "" {
		missing = append(missing, "psftype")
	}
	if bin.CoordSys == "" {
		missing = append(missing, "coordsys")
	}
	if len(missing) > 0 {
		return JobPaths{}, NewBatchError(ErrCodeUnresolvedBin, "bin %v is missing %v", bin.Key(), strings.Join(missing, ","))
	}
	if catalog == "" || jobIndex < 0 {
		return JobPaths{}, NewBatchError(ErrCodeInvalidArgument, "invalid catalog:%v or job index:%v", catalog, jobIndex)
	}
	params := f.baseParams()
	params["ebin"] = bin.EbinName
	params["psftype"] = bin.PsfType
	params["coordsys"] = bin.CoordSys
	params["zcut"] = bin.ZCut()
	params["sourcekey"] = catalog
	params["job"] = jobIndex

	paths := JobPaths{}
	for _, t := range []struct {
		fp  *FilePath
		out *string
	}{
		{&f.CountsCube, &paths.Inputs.CountsMap},
		{&f.LiveTimeCube, &paths.Inputs.LiveTimeCube},
		{&f.ExposureCube, &paths.Inputs.ExposureCube},
		{&f.IRFs, &paths.Inputs.IRFs},
		{&f.SrcMaps, &paths.OutputPath},
		{&f.ModelFile, &paths.ModelFile},
	} {
		p, err := t.fp.Format(params)
		if err != nil {
			return JobPaths{}, NewBatchError(ErrCodeUnresolvedBin, "resolve paths of bin %v", bin.Key(), err)
		}
		*t.out = p
	}
	paths.LogPath = LogPathOf(paths.OutputPath)
	return paths, nil
}

//CatalogModelFile the model definition file of a whole catalog
func (f *NameFactory) CatalogModelFile(catalog string) (string, error) {
	params := f.baseParams()
	params["sourcekey"] = catalog
	return f.ModelFile.Format(params)
}

//SplitModelFile the model definition file of one split component of a catalog
func (f *NameFactory) SplitModelFile(catalog, component string) (string, error) {
	return f.CatalogModelFile(fmt.Sprintf("%s_%s", catalog, component))
}

//LogPathOf replaces the extension of an output path by ".log"
func LogPathOf(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".log"
}
