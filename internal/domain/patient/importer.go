package patient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseRecords parses a bulk payload: a JSON array of record objects.
// Only the structure is checked; the records are not validated.
func ParseRecords(payload []byte) ([]*Record, error) {
	payload = bytes.TrimSpace(bytes.TrimPrefix(payload, utf8BOM))
	if len(payload) == 0 {
		return nil, &ParseError{Err: fmt.Errorf("empty payload")}
	}
	if payload[0] != '[' {
		return nil, &ParseError{Err: fmt.Errorf("expected a JSON array")}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &ParseError{Err: err}
	}

	records := make([]*Record, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return nil, &ParseError{Err: fmt.Errorf("element %d is not an object", i)}
		}
		var r Record
		if err := json.Unmarshal(item, &r); err != nil {
			return nil, &ParseError{Err: fmt.Errorf("element %d: %w", i, err)}
		}
		records = append(records, &r)
	}
	return records, nil
}

// Importer holds the staged set: records parsed from a bulk payload and
// waiting for commit. Each stage attempt takes a ticket; only the result of
// the newest ticket may land. Importer is not safe for concurrent use.
type Importer struct {
	staged []*Record
	ticket uint64
}

// Stage parses payload and replaces the staged set. On failure the staged
// set is cleared and a *ParseError is returned.
func (im *Importer) Stage(payload []byte) ([]*Record, error) {
	return im.complete(im.begin(), payload, nil)
}

// begin opens a stage attempt and supersedes any unresolved earlier one.
func (im *Importer) begin() uint64 {
	im.ticket++
	return im.ticket
}

func (im *Importer) current(ticket uint64) bool {
	return ticket == im.ticket
}

// complete lands the result of the attempt identified by ticket. A read
// failure is reported the same way as a parse failure.
func (im *Importer) complete(ticket uint64, payload []byte, readErr error) ([]*Record, error) {
	if !im.current(ticket) {
		return nil, ErrImportSuperseded
	}
	if readErr != nil {
		im.staged = nil
		return nil, &ParseError{Err: readErr}
	}
	records, err := ParseRecords(payload)
	if err != nil {
		im.staged = nil
		return nil, err
	}
	im.staged = records
	return records, nil
}

// Staged returns a copy of the staged set.
func (im *Importer) Staged() []*Record {
	out := make([]*Record, len(im.staged))
	copy(out, im.staged)
	return out
}

func (im *Importer) Len() int { return len(im.staged) }

// Take returns the staged set and clears it.
func (im *Importer) Take() []*Record {
	out := im.staged
	im.staged = nil
	return out
}

// Discard clears the staged set and abandons any unresolved attempt.
func (im *Importer) Discard() {
	im.staged = nil
	im.ticket++
}
