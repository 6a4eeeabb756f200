package trainer

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Progress reports the epoch the trainer is working on.
type Progress struct {
	Epoch int
	Total int
}

// Percent is the share of epochs started, in [0, 100].
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Epoch) * 100 / float64(p.Total)
}

// Epoch rows start with "<epoch>/<total>" followed by GPU memory and losses.
var epochPattern = regexp.MustCompile(`^\s*(\d+)/(\d+)\s`)

// ParseEpoch extracts epoch progress from one line of trainer output.
func ParseEpoch(line string) (Progress, bool) {
	m := epochPattern.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}
	epoch, err := strconv.Atoi(m[1])
	if err != nil {
		return Progress{}, false
	}
	total, err := strconv.Atoi(m[2])
	if err != nil || total <= 0 || epoch > total {
		return Progress{}, false
	}
	return Progress{Epoch: epoch, Total: total}, true
}

// scanLines splits on \n and on the bare \r used by terminal progress bars.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func newLineScanner(buf []byte, r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(buf, 1024*1024)
	scanner.Split(scanLines)
	return scanner
}

// tail keeps the last n non-blank lines of output for error reports.
type tail struct {
	n     int
	lines []string
}

func (t *tail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > t.n {
		t.lines = t.lines[len(t.lines)-t.n:]
	}
}

func (t *tail) String() string {
	return strings.Join(t.lines, "\n")
}
