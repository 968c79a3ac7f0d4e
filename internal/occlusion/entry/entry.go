// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package entry implements the CSV row codec: the translation between one
// textual "<uuid>,<visibility_level>" record and an Entry the store can
// ingest.
package entry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Level is a per-object hierarchical visibility tier in [0, 255].
type Level uint8

// Mask is a per-caller visibility tier in [0, 255], compared by <=.
type Mask uint8

// Entry is one (UUID, Level) pair as loaded from the source.
type Entry struct {
	UUID  uuid.UUID
	Level Level
}

// ErrorKind identifies why a CSV row failed to parse.
type ErrorKind int

const (
	_ ErrorKind = iota
	KindMalformedUUID
	KindLevelOutOfRange
	KindLevelNotInteger
	KindWrongFieldCount
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedUUID:
		return "malformed_uuid"
	case KindLevelOutOfRange:
		return "level_out_of_range"
	case KindLevelNotInteger:
		return "level_not_integer"
	case KindWrongFieldCount:
		return "wrong_field_count"
	default:
		return "unknown"
	}
}

// ParseError describes a row-level parse failure. Row numbers are 1-indexed
// and count the header as row 1, matching what an operator would see in a
// text editor.
type ParseError struct {
	Row  int
	Kind ErrorKind
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Kind)
}

// ExpectedHeader is the literal (case-insensitive) header required on the
// first line of any CSV source.
const ExpectedHeader = "uuid,visibility_level"

// ValidateHeader reports whether line is an acceptable header line.
func ValidateHeader(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), ExpectedHeader)
}

// Parse decodes one non-header CSV row into an Entry. row is the 1-indexed
// line number, used only for error reporting.
func Parse(row int, fields []string) (Entry, error) {
	if len(fields) != 2 {
		return Entry{}, &ParseError{Row: row, Kind: KindWrongFieldCount}
	}

	uuidText := strings.TrimSpace(fields[0])
	levelText := strings.TrimSpace(fields[1])

	id, err := uuid.Parse(uuidText)
	if err != nil {
		return Entry{}, &ParseError{Row: row, Kind: KindMalformedUUID}
	}

	n, err := strconv.Atoi(levelText)
	if err != nil {
		return Entry{}, &ParseError{Row: row, Kind: KindLevelNotInteger}
	}
	if n < 0 || n > 255 {
		return Entry{}, &ParseError{Row: row, Kind: KindLevelOutOfRange}
	}

	return Entry{UUID: id, Level: Level(n)}, nil
}
