package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/star/orbitd/internal/sgp4"
)

// lineLength is the fixed width of a TLE line including the checksum digit.
const lineLength = 69

// ParseError reports a malformed TLE field. Line is 1 or 2.
type ParseError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tle: line %d, %s %q: %v", e.Line, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("tle: line %d, %s %q", e.Line, e.Field, e.Value)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseLines decodes one element set from its two fixed-width lines. Every
// field is validated, both checksums are verified, and nothing is returned
// on failure, so a decoded set is always internally consistent.
func ParseLines(line1, line2 string) (sgp4.Elements, error) {
	var el sgp4.Elements

	if len(line1) < lineLength {
		return el, &ParseError{Line: 1, Field: "length", Value: strconv.Itoa(len(line1))}
	}
	if len(line2) < lineLength {
		return el, &ParseError{Line: 2, Field: "length", Value: strconv.Itoa(len(line2))}
	}
	if line1[0] != '1' {
		return el, &ParseError{Line: 1, Field: "line number", Value: line1[0:1]}
	}
	if line2[0] != '2' {
		return el, &ParseError{Line: 2, Field: "line number", Value: line2[0:1]}
	}
	if err := verifyChecksum(1, line1); err != nil {
		return el, err
	}
	if err := verifyChecksum(2, line2); err != nil {
		return el, err
	}

	p := fieldParser{}
	el.SatelliteNumber = p.integer(1, "satellite number", line1[2:7])
	el.Classification = line1[7]
	el.IntlDesignator = strings.TrimSpace(line1[9:17])
	el.EpochYear = p.integer(1, "epoch year", line1[18:20])
	el.EpochDay = p.real(1, "epoch day", line1[20:32])
	el.MeanMotionDot = p.real(1, "mean motion dot", line1[33:43])
	el.MeanMotionDDot = p.impliedExp(1, "mean motion ddot", line1[44:52])
	el.Bstar = p.impliedExp(1, "bstar", line1[53:61])
	el.EphemerisType = p.integer(1, "ephemeris type", line1[62:63])
	el.ElementSet = p.integer(1, "element set", line1[64:68])

	num2 := p.integer(2, "satellite number", line2[2:7])
	el.Inclination = p.real(2, "inclination", line2[8:16])
	el.RAAN = p.real(2, "raan", line2[17:25])
	el.Eccentricity = p.real(2, "eccentricity", "0."+strings.TrimSpace(line2[26:33]))
	el.ArgPerigee = p.real(2, "argument of perigee", line2[34:42])
	el.MeanAnomaly = p.real(2, "mean anomaly", line2[43:51])
	el.MeanMotion = p.real(2, "mean motion", line2[52:63])
	el.RevolutionNum = int64(p.integer(2, "revolution number", line2[63:68]))

	if p.err != nil {
		return sgp4.Elements{}, p.err
	}
	if num2 != el.SatelliteNumber {
		return sgp4.Elements{}, &ParseError{Line: 2, Field: "satellite number", Value: line2[2:7]}
	}
	return el, nil
}

// fieldParser accumulates the first field error instead of forcing a check
// after every conversion.
type fieldParser struct {
	err error
}

func (p *fieldParser) integer(line int, field, raw string) int {
	if p.err != nil {
		return 0
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.err = &ParseError{Line: line, Field: field, Value: raw, Err: err}
		return 0
	}
	return v
}

func (p *fieldParser) real(line int, field, raw string) float64 {
	if p.err != nil {
		return 0
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = &ParseError{Line: line, Field: field, Value: raw, Err: err}
		return 0
	}
	return v
}

// impliedExp decodes the compact exponent notation used for bstar and the
// second mean motion derivative: a sign, five mantissa digits with an
// implied leading decimal point, and a signed one-digit exponent.
func (p *fieldParser) impliedExp(line int, field, raw string) float64 {
	if p.err != nil {
		return 0
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	if len(s) < 3 {
		p.err = &ParseError{Line: line, Field: field, Value: raw}
		return 0
	}
	expPart := strings.TrimPrefix(s[len(s)-2:], "+")
	exp, err := strconv.Atoi(expPart)
	if err != nil {
		p.err = &ParseError{Line: line, Field: field, Value: raw, Err: err}
		return 0
	}
	mant := strings.TrimSpace(s[:len(s)-2])
	m, err := strconv.ParseFloat(mant, 64)
	if err != nil {
		p.err = &ParseError{Line: line, Field: field, Value: raw, Err: err}
		return 0
	}
	digits := len(strings.TrimLeft(mant, "+- "))
	return m * math.Pow(10, float64(exp-digits))
}

// verifyChecksum checks the modulo-10 digit in column 69. Digits count
// their value and each minus sign counts one.
func verifyChecksum(lineNum int, line string) error {
	sum := 0
	for _, ch := range line[:lineLength-1] {
		switch {
		case ch >= '0' && ch <= '9':
			sum += int(ch - '0')
		case ch == '-':
			sum++
		}
	}
	want := int(line[lineLength-1] - '0')
	if sum%10 != want {
		return &ParseError{
			Line:  lineNum,
			Field: "checksum",
			Value: line[lineLength-1 : lineLength],
			Err:   fmt.Errorf("computed %d", sum%10),
		}
	}
	return nil
}

// Parse reads a catalog in 3-line (named) or 2-line format from r. Entries
// that fail to decode are skipped with a warning so one bad record cannot
// take down a whole feed.
func Parse(r io.Reader, logger *slog.Logger) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []Entry
	for i := 0; i < len(lines); {
		name := ""
		j := i
		if !strings.HasPrefix(lines[i], "1 ") {
			name = strings.TrimSpace(lines[i])
			j = i + 1
		}
		if j+1 >= len(lines) {
			break
		}
		line1, line2 := lines[j], lines[j+1]
		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			logger.Warn("skipping malformed TLE entry", "line_index", i, "name", name)
			i++
			continue
		}

		el, err := ParseLines(line1, line2)
		if err != nil {
			logger.Warn("skipping unparseable TLE entry", "name", name, "error", err)
			i = j + 2
			continue
		}

		entries = append(entries, Entry{
			NORADID:  el.SatelliteNumber,
			Name:     name,
			Epoch:    el.EpochTime(),
			Elements: el,
			Line1:    line1,
			Line2:    line2,
		})
		i = j + 2
	}

	return entries, nil
}
