package archive

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	partitionPrefix = "logs/"
	ndjsonContent   = "application/x-ndjson"
	dateLayout      = "2006-01-02"
	// MapTypeUnknown is recorded when a finished game reports no map.
	MapTypeUnknown = "unknown"
)

// Entry is one archived game record as stored in a partition file.
type Entry struct {
	GameID  string `json:"gameId"`
	MapType string `json:"mapType"`
}

// PartitionKey addresses one durable log file: all games that ended on one
// UTC day on one map.
type PartitionKey struct {
	Date    string
	MapType string
}

func (k PartitionKey) blobKey() string {
	return partitionPrefix + k.Date + "/" + sanitizeMapType(k.MapType) + ".ndjson"
}

func sanitizeMapType(mapType string) string {
	if mapType == "" {
		return MapTypeUnknown
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ':
			return '_'
		}
		return r
	}, mapType)
}

func datePrefix(date string) string {
	return partitionPrefix + date + "/"
}

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// DateOf truncates a timestamp to its UTC calendar day.
func DateOf(ts time.Time) string {
	return ts.UTC().Format(dateLayout)
}

func decodePartition(data []byte) []Entry {
	entries := []Entry{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func encodePartition(entries []Entry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			continue
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
