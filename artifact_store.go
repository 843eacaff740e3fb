package srcbatch

import (
	"github.com/chararch/srcbatch/file"
	"github.com/pkg/errors"
)

//IRFsKeyword header keyword updated with the IRFs of the job
const IRFsKeyword = "IRFS"

//FileArtifactStore creates artifacts on a file storage, local files by default
type FileArtifactStore struct {
	Storage file.FileStorage
}

func (s *FileArtifactStore) storage() file.FileStorage {
	if s.Storage == nil {
		return &file.LocalFileSystem{}
	}
	return s.Storage
}

//Create copies the header keywords of the reference counts map, updates the IRFs keyword and creates the artifact
func (s *FileArtifactStore) Create(path, reference, irfs string) (Artifact, error) {
	fs := s.storage()
	r, err := file.OpenMaybeGzip(fs, reference)
	if err != nil {
		return nil, errors.Wrapf(err, "open reference file:%v", reference)
	}
	header, err := file.ReadHeader(r)
	r.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "read header of reference file:%v", reference)
	}
	if irfs != "" {
		header.Set(IRFsKeyword, irfs)
	}
	return file.CreateArtifact(fs, path, header)
}
