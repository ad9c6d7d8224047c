package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	apperrors "tanyabot/errors"
)

// LoadAdvice reads an advice file: a JSON object mapping a keyword to the
// advice given when a query contains it. Rules keep the file's key order. A
// missing file yields no rules.
func LoadAdvice(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrPersistence, "open advice file %s: %v", path, err)
	}
	defer f.Close()

	rules, err := decodeAdvice(f)
	if err != nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrInvalidInput, "advice file %s: %v", path, err)
	}
	return rules, nil
}

func decodeAdvice(r io.Reader) ([]Rule, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object, found %v", tok)
	}

	var rules []Rule
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		keyword, _ := tok.(string)
		var advice string
		if err := dec.Decode(&advice); err != nil {
			return nil, fmt.Errorf("advice for %q: %w", keyword, err)
		}
		rules = append(rules, Rule{Keywords: []string{keyword}, Response: advice})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rules, nil
}
