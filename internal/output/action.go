package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Action output names.
const (
	OutputRepositoryURL   = "repository-url"
	OutputRepositoryName  = "repository-name"
	OutputRepositoryID    = "repository-id"
	OutputProductionalize = "productionalization-status"
)

// ActionSink appends step outputs to the file named by $GITHUB_OUTPUT.
type ActionSink struct {
	path string
	mu   sync.Mutex

	// newDelimiter is replaced in tests.
	newDelimiter func() string
}

func NewActionSink(path string) (*ActionSink, error) {
	if path == "" {
		return nil, fmt.Errorf("action output path required")
	}
	return &ActionSink{
		path:         path,
		newDelimiter: func() string { return "ghadelimiter_" + uuid.NewString() },
	}, nil
}

func (s *ActionSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch t := v.(type) {
	case RepositoryCreated:
		return s.set(
			[2]string{OutputRepositoryURL, t.Repository.HTMLURL},
			[2]string{OutputRepositoryName, t.Repository.FullName},
			[2]string{OutputRepositoryID, strconv.FormatInt(t.Repository.ID, 10)},
		)
	case Productionalized:
		raw, err := json.Marshal(t.Result)
		if err != nil {
			return fmt.Errorf("encode %s: %w", OutputProductionalize, err)
		}
		return s.set([2]string{OutputProductionalize, string(raw)})
	default:
		return nil
	}
}

// set writes each name/value pair as a heredoc block so values may span lines.
func (s *ActionSink) set(pairs ...[2]string) error {
	var b strings.Builder
	for _, p := range pairs {
		name, value := p[0], p[1]
		delim := s.newDelimiter()
		if strings.Contains(name, delim) || strings.Contains(value, delim) {
			return fmt.Errorf("unexpected input: name or value contains delimiter %s", delim)
		}
		fmt.Fprintf(&b, "%s<<%s\n%s\n%s\n", name, delim, value, delim)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open action output file: %w", err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write action output file: %w", err)
	}
	return f.Close()
}

func (s *ActionSink) Close() error { return nil }
