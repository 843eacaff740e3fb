package srcbatch

import (
	"github.com/chararch/srcbatch/file"
)

//WriteJobTable exports the table as JSON lines, one descriptor per line in key order.
//When checksum is set a check file is written next to the table.
func WriteJobTable(fs file.FileStorage, fileName string, table JobTable, checksum string) BatchError {
	fd := file.FileObjectModel{FileStore: fs, FileName: fileName, Type: file.JSON, Checksum: checksum}
	writer := file.GetFileItemWriter(fd.Type)
	handle, err := writer.Open(fd)
	if err != nil {
		return NewBatchError(ErrCodeGeneral, "open job table file:%v", fileName, err)
	}
	for _, key := range table.Keys() {
		if err = writer.WriteItem(handle, table[key]); err != nil {
			writer.Close(handle)
			return NewBatchError(ErrCodeGeneral, "write job %v to %v", key, fileName, err)
		}
	}
	if err = writer.Close(handle); err != nil {
		return NewBatchError(ErrCodeGeneral, "close job table file:%v", fileName, err)
	}
	if checksum != "" {
		checksumer := file.GetChecksumer(checksum)
		if checksumer == nil {
			return NewBatchError(ErrCodeInvalidArgument, "unknown checksum:%v", checksum)
		}
		if err = checksumer.Checksum(fd); err != nil {
			return NewBatchError(ErrCodeGeneral, "checksum job table file:%v", fileName, err)
		}
	}
	return nil
}

//ReadJobTable reads a table written by WriteJobTable, verifying the check file first when checksum is set
func ReadJobTable(fs file.FileStorage, fileName string, checksum string) (JobTable, BatchError) {
	fd := file.FileObjectModel{FileStore: fs, FileName: fileName, Type: file.JSON, Checksum: checksum, ItemPrototype: &JobDescriptor{}}
	if checksum != "" {
		checksumer := file.GetChecksumer(checksum)
		if checksumer == nil {
			return nil, NewBatchError(ErrCodeInvalidArgument, "unknown checksum:%v", checksum)
		}
		ok, err := checksumer.Verify(fd)
		if err != nil {
			return nil, NewBatchError(ErrCodeGeneral, "verify job table file:%v", fileName, err)
		}
		if !ok {
			return nil, NewBatchError(ErrCodeInvalidArgument, "job table file %v does not match its checksum", fileName)
		}
	}
	reader := file.GetFileItemReader(fd.Type)
	handle, err := reader.Open(fd)
	if err != nil {
		return nil, NewBatchError(ErrCodeGeneral, "open job table file:%v", fileName, err)
	}
	defer reader.Close(handle)
	table := make(JobTable)
	for {
		item, err := reader.ReadItem(handle)
		if err != nil {
			return nil, NewBatchError(ErrCodeGeneral, "read job table file:%v", fileName, err)
		}
		if item == nil {
			break
		}
		d := item.(*JobDescriptor)
		if _, ok := table[d.Key]; ok || d.Key == "" {
			return nil, NewBatchError(ErrCodeDuplicateJob, "job key %q is empty or repeated in %v", d.Key, fileName)
		}
		table[d.Key] = d
	}
	return table, nil
}
