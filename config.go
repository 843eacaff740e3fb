package srcbatch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v2"
)

//event type masks by psf type name
var evTypeMasks = map[string]int{
	"ALL":   3,
	"FRONT": 1,
	"BACK":  2,
	"PSF0":  4,
	"PSF1":  8,
	"PSF2":  16,
	"PSF3":  32,
}

//EvTypeMask returns the event type bit mask for a psf type name such as "PSF3"
func EvTypeMask(psfType string) (int, bool) {
	mask, ok := evTypeMasks[psfType]
	return mask, ok
}

//AnalysisBin one (energy bin, event type) component of the binned analysis
type AnalysisBin struct {
	EbinName string   `json:"ebin"`
	PsfType  string   `json:"psftype"`
	EvType   int      `json:"evtype"`
	Zmax     int      `json:"zmax"`
	CoordSys string   `json:"coordsys"`
	LogEmin  float64  `json:"log_emin"`
	LogEmax  float64  `json:"log_emax"`
	EnumBins int      `json:"enumbins"`
	HpxOrder int      `json:"hpx_order"`
	Catalogs []string `json:"catalogs,omitempty"`
}

//Key the `{ebin}_{psftype}` key of the bin
func (b AnalysisBin) Key() string {
	return fmt.Sprintf("%s_%s", b.EbinName, b.PsfType)
}

//ZCut the zenith cut tag used in file names
func (b AnalysisBin) ZCut() string {
	return fmt.Sprintf("zmax%d", b.Zmax)
}

type psfTypeConfig struct {
	HpxOrder int `yaml:"hpx_order"`
	EvType   int `yaml:"evtype"`
}

type ebinConfig struct {
	LogEmin  float64                  `yaml:"log_emin"`
	LogEmax  float64                  `yaml:"log_emax"`
	EnumBins int                      `yaml:"enumbins"`
	Zmax     int                      `yaml:"zmax"`
	CoordSys string                   `yaml:"coordsys"`
	Catalogs []string                 `yaml:"catalogs"`
	PsfTypes map[string]psfTypeConfig `yaml:"psf_types"`
}

//ParseBins expands a binning definition into analysis bins, sorted by key
func ParseBins(data []byte) ([]AnalysisBin, BatchError) {
	ebins := make(map[string]ebinConfig)
	if err := yaml.Unmarshal(data, &ebins); err != nil {
		return nil, NewBatchError(ErrCodeInvalidArgument, "parse binning definition err", err)
	}
	bins := make([]AnalysisBin, 0)
	for ebinName, ebin := range ebins {
		if len(ebin.PsfTypes) == 0 {
			return nil, NewBatchError(ErrCodeInvalidArgument, "energy bin %v defines no psf types", ebinName)
		}
		for psfType, psf := range ebin.PsfTypes {
			evType := psf.EvType
			if evType == 0 {
				mask, ok := EvTypeMask(psfType)
				if !ok {
					return nil, NewBatchError(ErrCodeInvalidArgument, "unknown psf type %v in energy bin %v", psfType, ebinName)
				}
				evType = mask
			}
			bin := AnalysisBin{
				EbinName: ebinName,
				PsfType:  psfType,
				EvType:   evType,
				Zmax:     ebin.Zmax,
				CoordSys: ebin.CoordSys,
				LogEmin:  ebin.LogEmin,
				LogEmax:  ebin.LogEmax,
				EnumBins: ebin.EnumBins,
				HpxOrder: psf.HpxOrder,
				Catalogs: ebin.Catalogs,
			}
			if bin.CoordSys == "" {
				bin.CoordSys = DefaultCoordSys
			}
			bins = append(bins, bin)
		}
	}
	sort.Slice(bins, func(i, j int) bool {
		return bins[i].Key() < bins[j].Key()
	})
	return bins, nil
}

//LoadBinsFile reads a YAML binning definition file
func LoadBinsFile(path string) ([]AnalysisBin, BatchError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewBatchError(ErrCodeInvalidArgument, "read binning definition %v err", path, err)
	}
	return ParseBins(data)
}

//Dataset names the input data products of an analysis
type Dataset struct {
	BaseDir  string `yaml:"basedir"`
	DataVer  string `yaml:"data_ver"`
	EvClass  string `yaml:"evclass"`
	IrfVer   string `yaml:"irf_ver"`
	MkTime   string `yaml:"mktime"`
	CoordSys string `yaml:"coordsys"`
}

//LoadDataset reads a YAML dataset definition file
func LoadDataset(path string) (*Dataset, BatchError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewBatchError(ErrCodeInvalidArgument, "read dataset definition %v err", path, err)
	}
	ds := &Dataset{}
	if err = yaml.Unmarshal(data, ds); err != nil {
		return nil, NewBatchError(ErrCodeInvalidArgument, "parse dataset definition %v err", path, err)
	}
	if ds.MkTime == "" {
		ds.MkTime = DefaultMkTime
	}
	if ds.CoordSys == "" {
		ds.CoordSys = DefaultCoordSys
	}
	if ds.BaseDir == "" {
		ds.BaseDir = filepath.Dir(path)
	}
	return ds, nil
}

//LibraryEntry one catalog of the source library and its named splits
type LibraryEntry struct {
	CatalogFile string              `yaml:"catalog_file"`
	Split       map[string][]string `yaml:"split"`
}

//Library catalog name -> library entry
type Library map[string]LibraryEntry

//LoadLibrary reads a YAML source library file
func LoadLibrary(path string) (Library, BatchError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewBatchError(ErrCodeInvalidArgument, "read library %v err", path, err)
	}
	lib := make(Library)
	if err = yaml.Unmarshal(data, &lib); err != nil {
		return nil, NewBatchError(ErrCodeInvalidArgument, "parse library %v err", path, err)
	}
	for name, entry := range lib {
		if entry.CatalogFile == "" {
			return nil, NewBatchError(ErrCodeInvalidArgument, "library catalog %v has no catalog_file", name)
		}
	}
	return lib, nil
}

//LoadCatalogs loads every catalog of the library, resolving relative catalog files against basedir
func (lib Library) LoadCatalogs(basedir string) (map[string]*Catalog, BatchError) {
	catalogs := make(map[string]*Catalog, len(lib))
	for name, entry := range lib {
		path := entry.CatalogFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(basedir, path)
		}
		cat, err := LoadCatalogFile(path)
		if err != nil {
			return nil, err
		}
		cat.Name = name
		catalogs[name] = cat
	}
	return catalogs, nil
}
