package file

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	artifactMagic = "SRCMAPS"
	headerEnd     = "END"
	entityTag     = "ENTITY"
)

//Keyword one header card
type Keyword struct {
	Key   string
	Value string
}

//Header ordered header keywords
type Header []Keyword

//Get returns the value of key
func (h Header) Get(key string) (string, bool) {
	for _, kw := range h {
		if kw.Key == key {
			return kw.Value, true
		}
	}
	return "", false
}

//Set updates key in place or appends it
func (h *Header) Set(key, value string) {
	for i := range *h {
		if (*h)[i].Key == key {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, Keyword{Key: key, Value: value})
}

//ReadHeader reads "KEY = VALUE" cards up to the END card or the end of input.
//A leading magic line is skipped, other lines without '=' are ignored.
func ReadHeader(r io.Reader) (Header, error) {
	return readHeader(bufio.NewReader(r))
}

func readHeader(br *bufio.Reader) (Header, error) {
	header := Header{}
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		card := strings.TrimSpace(line)
		if card == headerEnd {
			return header, nil
		}
		if idx := strings.Index(card, "="); idx > 0 {
			header.Set(strings.TrimSpace(card[:idx]), strings.TrimSpace(card[idx+1:]))
		}
		if err == io.EOF {
			return header, nil
		}
	}
}

//ArtifactWriter writes a header block followed by one record per entity contribution
type ArtifactWriter struct {
	name   string
	writer io.WriteCloser
	buf    *bufio.Writer
	count  int
}

//CreateArtifact creates the artifact on the storage and writes its header
func CreateArtifact(fs FileStorage, fileName string, header Header) (*ArtifactWriter, error) {
	w, err := fs.Create(fileName, "")
	if err != nil {
		return nil, errors.Wrapf(err, "create artifact:%v", fileName)
	}
	a := &ArtifactWriter{name: fileName, writer: w, buf: bufio.NewWriter(w)}
	fmt.Fprintln(a.buf, artifactMagic)
	for _, kw := range header {
		fmt.Fprintf(a.buf, "%s = %s\n", kw.Key, kw.Value)
	}
	fmt.Fprintln(a.buf, headerEnd)
	if err = a.buf.Flush(); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "write artifact header:%v", fileName)
	}
	return a, nil
}

//AppendContribution appends the contribution of one entity and flushes it
func (a *ArtifactWriter) AppendContribution(name string, data []byte) error {
	if strings.ContainsAny(name, "\r\n") {
		return errors.Errorf("invalid entity name:%q", name)
	}
	fmt.Fprintf(a.buf, "%s %d %s\n", entityTag, len(data), name)
	a.buf.Write(data)
	a.buf.WriteByte('\n')
	if err := a.buf.Flush(); err != nil {
		return errors.Wrapf(err, "append %v to artifact:%v", name, a.name)
	}
	a.count++
	return nil
}

//Count number of contributions written
func (a *ArtifactWriter) Count() int {
	return a.count
}

func (a *ArtifactWriter) Close() error {
	err := a.buf.Flush()
	if e := a.writer.Close(); err == nil {
		err = e
	}
	return err
}

//Contribution one entity record of an artifact
type Contribution struct {
	Name string
	Data []byte
}

//ReadArtifact reads back the header and every contribution of an artifact
func ReadArtifact(r io.Reader) (Header, []Contribution, error) {
	br := bufio.NewReader(r)
	magic, err := br.ReadString('\n')
	if err != nil || strings.TrimSpace(magic) != artifactMagic {
		return nil, nil, errors.New("not an artifact")
	}
	header, err := readHeader(br)
	if err != nil {
		return nil, nil, err
	}
	contributions := make([]Contribution, 0)
	for {
		line, err := br.ReadString('\n')
		if err == io.EOF && line == "" {
			return header, contributions, nil
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, "read record")
		}
		fields := strings.SplitN(strings.TrimSuffix(line, "\n"), " ", 3)
		if len(fields) != 3 || fields[0] != entityTag {
			return nil, nil, errors.Errorf("bad record:%q", line)
		}
		size, err := strconv.Atoi(fields[1])
		if err != nil || size < 0 {
			return nil, nil, errors.Errorf("bad record size:%q", line)
		}
		data := make([]byte, size+1)
		if _, err = io.ReadFull(br, data); err != nil {
			return nil, nil, errors.Wrapf(err, "read contribution of %v", fields[2])
		}
		contributions = append(contributions, Contribution{Name: fields[2], Data: data[:size]})
	}
}
