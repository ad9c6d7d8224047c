package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"tanyabot/utils"
)

// FileStore keeps the store as one JSON object mapping each question to its
// list of answers. Key order in the file is insertion order.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the file. A missing or blank file is an empty store.
func (s *FileStore) Load(_ context.Context) ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read qa file: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	entries, err := decodeOrdered(data)
	if err != nil {
		return nil, fmt.Errorf("decode qa file %s: %w", s.path, err)
	}
	return entries, nil
}

// Save rewrites the whole file atomically.
func (s *FileStore) Save(_ context.Context, entries []Entry) error {
	data, err := encodeOrdered(entries)
	if err != nil {
		return fmt.Errorf("encode qa entries: %w", err)
	}
	return utils.WriteFileAtomic(s.path, data)
}

// decodeOrdered walks the object token by token since a Go map would lose key order.
func decodeOrdered(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object, found %v", tok)
	}

	var entries []Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		question, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected a question key, found %v", tok)
		}
		var answers []string
		if err := dec.Decode(&answers); err != nil {
			return nil, fmt.Errorf("answers for %q: %w", question, err)
		}
		entries = append(entries, Entry{Question: question, Answers: answers})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after the top-level object")
	}
	return entries, nil
}

func encodeOrdered(entries []Entry) ([]byte, error) {
	if len(entries) == 0 {
		return []byte("{}\n"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, e := range entries {
		key, err := encodeString(e.Question)
		if err != nil {
			return nil, err
		}
		buf.WriteString("    ")
		buf.Write(key)
		buf.WriteString(": ")

		if len(e.Answers) == 0 {
			buf.WriteString("[]")
		} else {
			buf.WriteString("[\n")
			for j, a := range e.Answers {
				val, err := encodeString(a)
				if err != nil {
					return nil, err
				}
				buf.WriteString("        ")
				buf.Write(val)
				if j < len(e.Answers)-1 {
					buf.WriteByte(',')
				}
				buf.WriteByte('\n')
			}
			buf.WriteString("    ]")
		}

		if i < len(entries)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func encodeString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
