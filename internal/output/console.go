package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

type ConsoleSink struct {
	writer io.Writer
	format string // "text", "json"
	mu     sync.Mutex
	report Report
	seen   bool
}

func NewConsoleSink(w io.Writer, format string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}
	return &ConsoleSink{writer: w, format: format}
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(v)
}

func (s *ConsoleSink) writeLocked(v any) error {
	switch s.format {
	case "json":
		if s.report.apply(v) {
			s.seen = true
		}
		return nil
	case "text":
		switch t := v.(type) {
		case RepositoryCreated:
			if _, err := fmt.Fprintf(s.writer, "Repository created successfully: %s\n", t.Repository.HTMLURL); err != nil {
				return err
			}
		case Productionalized:
			if err := s.printProductionalized(t); err != nil {
				return err
			}
		default:
			return nil
		}
		return flushIfPossible(s.writer)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) printProductionalized(p Productionalized) error {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)

	if _, err := bold.Fprintf(s.writer, "Productionalization of %s/%s complete\n", p.Owner, p.Repo); err != nil {
		return err
	}
	for _, line := range SummaryLines(p.Result) {
		if _, err := fmt.Fprintln(s.writer, line); err != nil {
			return err
		}
	}
	failures := FailureLines(p.Result)
	if len(failures) == 0 {
		return nil
	}
	if _, err := red.Fprintf(s.writer, "%d failure(s):\n", len(failures)); err != nil {
		return err
	}
	for _, f := range failures {
		if _, err := fmt.Fprintf(s.writer, "  %s\n", f); err != nil {
			return err
		}
	}
	return nil
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json":
		if !s.seen {
			return nil
		}
		encoder := json.NewEncoder(s.writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(s.report); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	case "text":
		return nil
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

type flusher interface {
	Flush() error
}

// flushIfPossible flushes buffered writers such as bufio.Writer.
func flushIfPossible(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
