// Package numscan extracts floating-point values from an
// arbitrary byte stream.
//
// A numeric entity is a maximal run of digits, '.' and
// '-'; every other byte separates entities. Entities that
// do not parse as a finite float64 are skipped with a
// diagnostic rather than treated as errors.
package numscan

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
)

// DefaultMaxEntity bounds the length of a single numeric
// entity. Longer runs are skipped whole.
const DefaultMaxEntity = 512

// A Scanner yields the valid numeric entities of a stream
// one at a time.
type Scanner struct {
	// Warnf, if non-nil, receives a diagnostic for every
	// skipped entity.
	Warnf func(format string, args ...interface{})

	// MaxEntity bounds entity length; NewScanner sets it
	// to DefaultMaxEntity.
	MaxEntity int

	r   *bufio.Reader
	buf []byte
}

// NewScanner creates a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{
		MaxEntity: DefaultMaxEntity,
		r:         bufio.NewReader(r),
	}
}

// Next returns the next entity that parses as a finite
// float64.
//
// It returns io.EOF at the end of the stream, and a
// non-nil error only when the underlying reader fails.
func (s *Scanner) Next() (float64, error) {
	for {
		entity, eof, err := s.scanEntity()
		if err != nil {
			return 0, err
		}
		if entity == "" {
			if eof {
				return 0, io.EOF
			}
			continue
		}
		value, perr := strconv.ParseFloat(entity, 64)
		if perr != nil || math.IsInf(value, 0) || math.IsNaN(value) {
			s.warnf("warning: skipping invalid entity (`%s')", entity)
			continue
		}
		return value, nil
	}
}

// scanEntity consumes bytes up to and including the first
// separator and returns the entity they form. An entity
// longer than MaxEntity is consumed entirely but returned
// as empty after a diagnostic.
func (s *Scanner) scanEntity() (entity string, eof bool, err error) {
	s.buf = s.buf[:0]
	overflow := false
	for {
		b, rerr := s.r.ReadByte()
		if rerr == io.EOF {
			eof = true
			break
		}
		if rerr != nil {
			return "", false, fmt.Errorf("read input: %w", rerr)
		}
		if !isEntityByte(b) {
			break
		}
		if len(s.buf) >= s.MaxEntity {
			overflow = true
			continue
		}
		s.buf = append(s.buf, b)
	}
	if overflow {
		s.warnf("warning: skipping entity overflowing buffer")
		return "", eof, nil
	}
	return string(s.buf), eof, nil
}

func (s *Scanner) warnf(format string, args ...interface{}) {
	if s.Warnf != nil {
		s.Warnf(format, args...)
	}
}

func isEntityByte(b byte) bool {
	return (b >= '0' && b <= '9') || b == '.' || b == '-'
}
