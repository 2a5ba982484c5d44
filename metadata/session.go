package metadata

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Session maps image filenames to their Records, remembering the order in which
// filenames were first seen. A Session has a single writer and is not safe for
// concurrent use.
type Session struct {
	names   []string
	records map[string]*Record
}

func NewSession() *Session {

	s := &Session{
		names:   make([]string, 0),
		records: make(map[string]*Record),
	}

	return s
}

// Set assigns rec to name. Re-processing a filename replaces its record but keeps its
// original position.
func (s *Session) Set(name string, rec *Record) {

	_, exists := s.records[name]

	if !exists {
		s.names = append(s.names, name)
	}

	s.records[name] = rec
}

func (s *Session) Get(name string) (*Record, bool) {
	rec, ok := s.records[name]
	return rec, ok
}

// Names returns the session's filenames in the order they were first added.
func (s *Session) Names() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}

func (s *Session) Len() int {
	return len(s.names)
}

// Duplicates returns groups of two or more filenames whose records share the same file
// hash, keyed by that hash. Records whose hash could not be computed are ignored.
func (s *Session) Duplicates() map[string][]string {

	by_hash := make(map[string][]string)

	for _, name := range s.names {

		h, ok := s.records[name].Get(LabelFileHash)

		if !ok || strings.HasPrefix(h, "Error:") {
			continue
		}

		by_hash[h] = append(by_hash[h], name)
	}

	dupes := make(map[string][]string)

	for h, names := range by_hash {

		if len(names) > 1 {
			dupes[h] = names
		}
	}

	return dupes
}

// Export merges the session in to body, an existing JSON document produced by a previous
// call to Export (or nil). Each record is stored under "records.{filename}" as an ordered
// list of label, value pairs; records for filenames not in the session are left untouched.
func (s *Session) Export(body []byte) ([]byte, error) {

	if len(body) == 0 {
		body = []byte(`{"records":{}}`)
	}

	var err error

	for _, name := range s.names {

		rec := s.records[name]
		path := fmt.Sprintf("records.%s", escapePath(name))

		body, err = sjson.SetBytes(body, path, rec.Fields())

		if err != nil {
			return nil, fmt.Errorf("Failed to assign %s property, %w", path, err)
		}
	}

	count := len(gjson.GetBytes(body, "records").Map())

	body, err = sjson.SetBytes(body, "count", count)

	if err != nil {
		return nil, fmt.Errorf("Failed to assign count property, %w", err)
	}

	return body, nil
}

// escapePath escapes the characters that gjson/sjson treat as path syntax.
func escapePath(key string) string {

	var sb strings.Builder

	for _, r := range key {

		switch r {
		case '\\', '.', '*', '?', '|', '#', '@', '!', '=', '<', '>', '%', ':':
			sb.WriteRune('\\')
		}

		sb.WriteRune(r)
	}

	return sb.String()
}
