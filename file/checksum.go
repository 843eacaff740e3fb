package file

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"strings"
)

//OKFlagChecksumer generate and verify an empty file with '.ok' suffix indicating the data file completed
type OKFlagChecksumer struct {
}

func (ch *OKFlagChecksumer) Verify(fd FileObjectModel) (bool, error) {
	fs := fd.FileStore
	ok, err := fs.Exists(fd.FileName)
	if err != nil || !ok {
		return false, err
	}
	_, found, err := findCheckFile(fd, "ok")
	return found, err
}

func (ch *OKFlagChecksumer) Checksum(fd FileObjectModel) error {
	w, err := fd.FileStore.Create(fd.FileName+".ok", fd.Encoding)
	if err != nil {
		return err
	}
	return w.Close()
}

//DigestChecksumer generate and verify a check file containing the hex digest of the data file
type DigestChecksumer struct {
	Alg     string
	NewHash func() hash.Hash
}

func newDigestChecksumer(alg string) *DigestChecksumer {
	switch alg {
	case MD5:
		return &DigestChecksumer{Alg: MD5, NewHash: md5.New}
	case SHA1:
		return &DigestChecksumer{Alg: SHA1, NewHash: sha1.New}
	case SHA256:
		return &DigestChecksumer{Alg: SHA256, NewHash: sha256.New}
	case SHA512:
		return &DigestChecksumer{Alg: SHA512, NewHash: sha512.New}
	}
	return nil
}

//CheckFileName name of the check file written next to fileName
func (ch *DigestChecksumer) CheckFileName(fileName string) string {
	return fmt.Sprintf("%s.%s", fileName, strings.ToLower(ch.Alg))
}

func (ch *DigestChecksumer) digest(fd FileObjectModel) (string, error) {
	reader, err := fd.FileStore.Open(fd.FileName, fd.Encoding)
	if err != nil {
		return "", err
	}
	defer reader.Close()
	h := ch.NewHash()
	if _, err = io.Copy(h, reader); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func (ch *DigestChecksumer) Verify(fd FileObjectModel) (bool, error) {
	fs := fd.FileStore
	ok, err := fs.Exists(fd.FileName)
	if err != nil || !ok {
		return false, err
	}
	checkFile, found, err := findCheckFile(fd, ch.Alg)
	if err != nil || !found {
		return false, err
	}
	checkReader, err := fs.Open(checkFile, fd.Encoding)
	if err != nil {
		return false, err
	}
	defer checkReader.Close()
	buf, err := io.ReadAll(checkReader)
	if err != nil {
		return false, err
	}
	fileHash, err := ch.digest(fd)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(buf)) == fileHash, nil
}

func (ch *DigestChecksumer) Checksum(fd FileObjectModel) error {
	fileHash, err := ch.digest(fd)
	if err != nil {
		return err
	}
	w, err := fd.FileStore.Create(ch.CheckFileName(fd.FileName), fd.Encoding)
	if err != nil {
		return err
	}
	if _, err = w.Write([]byte(fileHash)); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

//findCheckFile looks for "<file>.<ext>" then "<file without extension>.<ext>", in lower then upper case
func findCheckFile(fd FileObjectModel, ext string) (string, bool, error) {
	bases := []string{fd.FileName}
	if dotIdx := strings.LastIndex(fd.FileName, "."); dotIdx > 0 {
		bases = append(bases, fd.FileName[0:dotIdx])
	}
	for _, base := range bases {
		for _, e := range []string{strings.ToLower(ext), strings.ToUpper(ext)} {
			checkFile := fmt.Sprintf("%s.%s", base, e)
			ok, err := fd.FileStore.Exists(checkFile)
			if err != nil {
				return "", false, err
			}
			if ok {
				return checkFile, true, nil
			}
		}
	}
	return "", false, nil
}
