package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// minAnnotationFields is class + four box coordinates.
const minAnnotationFields = 5

// Outcome classifies what happened to one annotation line.
type Outcome int

const (
	Kept Outcome = iota
	DroppedMalformed
	DroppedOutOfRange
	DroppedUnmapped
)

func (o Outcome) String() string {
	switch o {
	case Kept:
		return "kept"
	case DroppedMalformed:
		return "malformed"
	case DroppedOutOfRange:
		return "out_of_range"
	case DroppedUnmapped:
		return "unmapped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Normalizer maps a source class name to a canonical index, or a negative
// value when the name has no mapping.
type Normalizer interface {
	Normalize(label string) int
}

// AnnotationCounts tallies line outcomes.
type AnnotationCounts struct {
	Kept       int
	Malformed  int
	OutOfRange int
	Unmapped   int
}

// Add accumulates other into c.
func (c *AnnotationCounts) Add(other AnnotationCounts) {
	c.Kept += other.Kept
	c.Malformed += other.Malformed
	c.OutOfRange += other.OutOfRange
	c.Unmapped += other.Unmapped
}

// Dropped is the number of lines that did not survive remapping.
func (c AnnotationCounts) Dropped() int {
	return c.Malformed + c.OutOfRange + c.Unmapped
}

func (c *AnnotationCounts) record(o Outcome) {
	switch o {
	case Kept:
		c.Kept++
	case DroppedMalformed:
		c.Malformed++
	case DroppedOutOfRange:
		c.OutOfRange++
	case DroppedUnmapped:
		c.Unmapped++
	}
}

// RemapLine rewrites the class field of a single annotation line to its
// canonical index. Fields after the class are kept verbatim and rejoined with
// single spaces. The returned string is empty unless the outcome is Kept.
func RemapLine(line string, sourceClasses []string, n Normalizer) (string, Outcome) {
	fields := strings.Fields(line)
	if len(fields) < minAnnotationFields {
		return "", DroppedMalformed
	}
	sourceIndex, err := strconv.Atoi(fields[0])
	if err != nil {
		return "", DroppedMalformed
	}
	if sourceIndex < 0 || sourceIndex >= len(sourceClasses) {
		return "", DroppedOutOfRange
	}
	canonical := n.Normalize(sourceClasses[sourceIndex])
	if canonical < 0 {
		return "", DroppedUnmapped
	}
	fields[0] = strconv.Itoa(canonical)
	return strings.Join(fields, " "), Kept
}

// RemapLabels rewrites every annotation in r. Blank lines are ignored.
func RemapLabels(r io.Reader, sourceClasses []string, n Normalizer) ([]string, AnnotationCounts, error) {
	var (
		kept   []string
		counts AnnotationCounts
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rewritten, outcome := RemapLine(line, sourceClasses, n)
		counts.record(outcome)
		if outcome == Kept {
			kept = append(kept, rewritten)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, counts, err
	}
	return kept, counts, nil
}
