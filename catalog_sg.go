package srcbatch

import (
	"context"
	"path/filepath"

	"github.com/chararch/srcbatch/util"
)

//CatalogSGJobType job type building the source maps of every catalog of a library
const CatalogSGJobType = "srcmaps-catalog-sg"

//CatalogSGParams parameters of a srcmaps-catalog-sg submission
type CatalogSGParams struct {
	//Comp binning definition file
	Comp string `json:"comp"`
	//Data dataset definition file
	Data string `json:"data"`
	//Library source library file, relative catalog files are resolved against its directory
	Library string `json:"library"`
	//Nsrc number of entities per job, DefaultChunkSize when absent from the params
	Nsrc     int  `json:"nsrc"`
	MakeXML  bool `json:"make_xml"`
	Compress bool `json:"gzip"`
}

//CatalogSG the ConfigMaker of CatalogSGJobType
type CatalogSG struct {
	params CatalogSGParams
}

//NewCatalogSG creates the config maker from submission params
func NewCatalogSG(params map[string]interface{}) (ConfigMaker, BatchError) {
	p := CatalogSGParams{}
	str, err := util.JsonString(params)
	if err != nil {
		return nil, NewBatchError(ErrCodeInvalidArgument, "encode params:%v", params, err)
	}
	if err = util.ParseJson(str, &p); err != nil {
		return nil, NewBatchError(ErrCodeInvalidArgument, "decode params:%v", str, err)
	}
	if p.Comp == "" || p.Data == "" || p.Library == "" {
		return nil, NewBatchError(ErrCodeInvalidArgument, "comp, data and library are required, params:%v", str)
	}
	if _, ok := params["nsrc"]; !ok {
		p.Nsrc = DefaultChunkSize
	}
	if p.Nsrc <= 0 {
		return nil, NewBatchError(ErrCodeInvalidArgument, "nsrc must be positive, nsrc:%v", p.Nsrc)
	}
	return &CatalogSG{params: p}, nil
}

//Params the decoded parameters
func (c *CatalogSG) Params() CatalogSGParams {
	return c.params
}

func (c *CatalogSG) BuildJobConfigs(ctx context.Context) (JobTable, BatchError) {
	bins, err := LoadBinsFile(c.params.Comp)
	if err != nil {
		return nil, err
	}
	ds, err := LoadDataset(c.params.Data)
	if err != nil {
		return nil, err
	}
	lib, err := LoadLibrary(c.params.Library)
	if err != nil {
		return nil, err
	}
	catalogs, err := lib.LoadCatalogs(filepath.Dir(c.params.Library))
	if err != nil {
		return nil, err
	}
	g, err := NewCatalogJobGenerator(NewNameFactory(*ds), lib, Options{
		ChunkSize: c.params.Nsrc,
		MakeXML:   c.params.MakeXML,
		Compress:  c.params.Compress,
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "generate jobs, bins:%v, catalogs:%v, nsrc:%v", len(bins), len(catalogs), c.params.Nsrc)
	return g.Generate(catalogs, bins, c.params.Nsrc)
}
