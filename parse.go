package springs

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"crosswarped.com/springs/pkg/primitives"
)

// MalformedRecordError is returned when a line cannot be parsed into a
// Record. It is the only error the package produces for bad input.
type MalformedRecordError struct {
	// Line is the 1-based line number, or 0 when the input was not read
	// from a multi-line source.
	Line   int
	Input  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed record on line %d (%q): %s", e.Line, e.Input, e.Reason)
	}
	return fmt.Sprintf("malformed record %q: %s", e.Input, e.Reason)
}

// ParseRecord parses a line of the form "<pattern> <c1,c2,...,cn>".
func ParseRecord(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Record{}, &MalformedRecordError{
			Input:  line,
			Reason: fmt.Sprintf("expected a pattern and a count list, got %d fields", len(fields)),
		}
	}
	r, err := ParseFields(fields[0], fields[1])
	if err != nil {
		err.(*MalformedRecordError).Input = line
		return Record{}, err
	}
	return r, nil
}

// ParseFields builds a Record from an already split pattern and count list.
// The returned error, if any, is a *MalformedRecordError.
func ParseFields(pattern, counts string) (Record, error) {
	input := pattern + " " + counts

	p, err := primitives.ParsePattern(pattern)
	if err != nil {
		return Record{}, &MalformedRecordError{Input: input, Reason: err.Error()}
	}

	if counts == "" {
		return Record{}, &MalformedRecordError{Input: input, Reason: "count list is empty"}
	}
	parts := strings.Split(counts, ",")
	c := make(Constraint, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			return Record{}, &MalformedRecordError{Input: input, Reason: fmt.Sprintf("count %d is missing", i+1)}
		}
		n, err := strconv.Atoi(part)
		if err != nil || strings.TrimLeft(part, "0123456789") != "" {
			return Record{}, &MalformedRecordError{Input: input, Reason: fmt.Sprintf("count %q is not an integer", part)}
		}
		if n <= 0 {
			return Record{}, &MalformedRecordError{Input: input, Reason: fmt.Sprintf("count %d must be positive", n)}
		}
		c = append(c, n)
	}

	return Record{Pattern: p, Constraint: c}, nil
}

// ParseRecords reads one record per line from r. Blank lines and lines
// starting with "//" are skipped. Parsing stops at the first malformed line.
func ParseRecords(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		rec, err := ParseRecord(line)
		if err != nil {
			err.(*MalformedRecordError).Line = lineNo
			return nil, err
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner.Err: %w", err)
	}
	return records, nil
}
