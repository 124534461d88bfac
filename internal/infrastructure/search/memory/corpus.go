package memory

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cast"

	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/pkg/errors"
)

// corpusRecord is one precedent as exported from the vector store:
// {"id": ..., "content": ..., "metadata": {...}}. "page_content" is accepted
// for content.
type corpusRecord struct {
	ID          string         `json:"id"`
	Content     string         `json:"content"`
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

func (r corpusRecord) document() precedent.Document {
	content := r.Content
	if content == "" {
		content = r.PageContent
	}
	id := r.ID
	if id == "" {
		id = cast.ToString(r.Metadata["case_id"])
	}
	return precedent.Document{ID: id, Content: content, Metadata: precedent.MetadataFromMap(r.Metadata)}
}

// LoadCorpusFile reads a JSON array or JSON Lines corpus from path.
func LoadCorpusFile(path string) ([]precedent.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, "cannot open precedent corpus").WithDetail(path)
	}
	defer f.Close()
	return LoadCorpus(f)
}

// LoadCorpus decodes a JSON array of records, or one record per line.
// Blank lines are skipped; records without content are rejected.
func LoadCorpus(r io.Reader) ([]precedent.Document, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to read precedent corpus")
	}

	var records []corpusRecord
	if first == '[' {
		if err := json.NewDecoder(br).Decode(&records); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "invalid precedent corpus array")
		}
	} else {
		sc := bufio.NewScanner(br)
		sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
		line := 0
		for sc.Scan() {
			line++
			b := bytes.TrimSpace(sc.Bytes())
			if len(b) == 0 {
				continue
			}
			var rec corpusRecord
			if err := json.Unmarshal(b, &rec); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeSerialization, "invalid precedent corpus line").
					WithDetail("line " + strconv.Itoa(line))
			}
			records = append(records, rec)
		}
		if err := sc.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to read precedent corpus")
		}
	}

	docs := make([]precedent.Document, 0, len(records))
	for i, rec := range records {
		doc := rec.document()
		if doc.Content == "" {
			return nil, errors.Newf(errors.ErrCodeValidation, "precedent record %d has no content", i)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
