package normalize

import (
	"encoding/json"
	"time"

	"github.com/retaildemo/feedsync/pkg/models"
)

// outcome is what one candidate key contributed to a fallback chain
type outcome int

const (
	miss outcome = iota // key absent, try the next candidate
	hit                 // value found
	halt                // key present but unusable; the chain yields no value
)

type step[T any] func(ev map[string]any) (T, outcome)

// resolve applies the steps in order and returns the first hit
func resolve[T any](ev map[string]any, steps ...step[T]) (T, bool) {
	var zero T
	if ev == nil {
		return zero, false
	}
	for _, s := range steps {
		v, o := s(ev)
		switch o {
		case hit:
			return v, true
		case halt:
			return zero, false
		}
	}
	return zero, false
}

// truthyString hits when key holds a truthy scalar
func truthyString(key string) step[string] {
	return func(ev map[string]any) (string, outcome) {
		if s, ok := String(ev[key]); ok {
			return s, hit
		}
		return "", miss
	}
}

// presentInt hits when key is present and numeric; any other present value halts
func presentInt(key string) step[int64] {
	return func(ev map[string]any) (int64, outcome) {
		v, ok := ev[key]
		if !ok {
			return 0, miss
		}
		n, ok := Int(v)
		if !ok {
			return 0, halt
		}
		return n, hit
	}
}

// numericInt hits only for numeric values and otherwise moves on
func numericInt(key string) step[int64] {
	return func(ev map[string]any) (int64, outcome) {
		if n, ok := Int(ev[key]); ok {
			return n, hit
		}
		return 0, miss
	}
}

type dateParser func(string) (time.Time, bool)

// truthyDate hits when key holds a parsable date; a truthy unparsable value halts
func truthyDate(key string, parse dateParser) step[time.Time] {
	return func(ev map[string]any) (time.Time, outcome) {
		v := ev[key]
		if !Truthy(v) {
			return time.Time{}, miss
		}
		s, ok := v.(string)
		if !ok {
			return time.Time{}, halt
		}
		t, ok := parse(s)
		if !ok {
			return time.Time{}, halt
		}
		return t, hit
	}
}

var (
	idChain = []step[string]{
		truthyString("ID"),
		truthyString("id"),
		truthyString("eventId"),
		truthyString("EventId"),
		truthyString("compositeId"),
		func(ev map[string]any) (string, outcome) {
			feed, okFeed := String(ev["FeedId"])
			event, okEvent := String(ev["EventId"])
			if okFeed && okEvent {
				return feed + "-" + event, hit
			}
			return "", miss
		},
	}

	nameChain = []step[string]{
		truthyString("TypeName"),
		truthyString("gameName"),
		truthyString("name"),
		truthyString("title"),
		truthyString("game"),
	}

	typeValueChain = []step[int64]{
		numericInt("TypeValue"),
		numericInt("typeValue"),
		numericInt("GameTypeValue"),
		numericInt("gameTypeValue"),
	}

	numberChain = []step[int64]{
		presentInt("Number"),
		presentInt("number"),
		presentInt("gameNumber"),
		presentInt("GameNumber"),
		presentInt("eventNumber"),
		presentInt("EventNumber"),
	}

	statusChain = []step[int64]{
		presentInt("StatusValue"),
		presentInt("statusValue"),
		func(ev map[string]any) (int64, outcome) {
			v, ok := ev["status"]
			if !ok {
				return 0, miss
			}
			if label, ok := v.(string); ok {
				if code, ok := statusLabels[label]; ok {
					return code, hit
				}
				return 0, halt
			}
			if n, ok := Int(v); ok {
				return n, hit
			}
			return 0, halt
		},
	}

	startChain = []step[time.Time]{
		truthyDate("AdjustedStartTime", ParseDotNetDate),
		truthyDate("StartDateTimeAsWords", ParseSlashDate),
		truthyDate("startTime", ParseDotNetDate),
		truthyDate("start", ParseDotNetDate),
	}

	finishChain = []step[time.Time]{
		truthyDate("AdjustedFinishTime", ParseDotNetDate),
		truthyDate("EstimatedFinishTime", ParseDotNetDate),
		truthyDate("finishTime", ParseDotNetDate),
		truthyDate("finish", ParseDotNetDate),
	}
)

// statusLabels maps textual statuses to codes; lookups are case-sensitive
var statusLabels = map[string]int64{
	"Upcoming":   1,
	"InProgress": 2,
	"Finished":   3,
	"Settled":    3,
	"Cancelled":  4,
}

// StatusFinished is the status code the upstream uses for a completed round
const StatusFinished = 3

// Unwrap returns the inner object of an {"Event": {...}} envelope, or item itself
func Unwrap(item map[string]any) map[string]any {
	if inner, ok := Map(item["Event"]); ok {
		return inner
	}
	return item
}

// EventID extracts the external identifier
func EventID(ev map[string]any) (string, bool) {
	return resolve(ev, idChain...)
}

// GameName extracts the game type name
func GameName(ev map[string]any) (string, bool) {
	return resolve(ev, nameChain...)
}

// GameTypeValue extracts the numeric game type
func GameTypeValue(ev map[string]any) (int, bool) {
	n, ok := resolve(ev, typeValueChain...)
	return int(n), ok
}

// GameNumber extracts the round number
func GameNumber(ev map[string]any) (int64, bool) {
	return resolve(ev, numberChain...)
}

// StatusValue extracts the numeric status code
func StatusValue(ev map[string]any) (int, bool) {
	n, ok := resolve(ev, statusChain...)
	return int(n), ok
}

// StartTime extracts the round start
func StartTime(ev map[string]any) (time.Time, bool) {
	return resolve(ev, startChain...)
}

// FinishTime extracts the round finish
func FinishTime(ev map[string]any) (time.Time, bool) {
	return resolve(ev, finishChain...)
}

// IsFinished derives the finished flag. An explicit boolean wins, then status
// codes, then a finish time in the past relative to now.
func IsFinished(ev map[string]any, now time.Time) bool {
	if ev == nil {
		return false
	}
	if v, ok := ev["IsFinished"]; ok {
		return Truthy(v)
	}
	if v, ok := ev["StatusValue"]; ok {
		return NumberIs(v, StatusFinished)
	}
	if v, ok := ev["status"]; ok {
		return NumberIs(v, StatusFinished) || v == "Finished" || v == "Settled"
	}
	if v, ok := ev["statusValue"]; ok {
		return NumberIs(v, StatusFinished)
	}
	if v, ok := ev["isFinished"]; ok {
		return Truthy(v)
	}
	if s, ok := ev["AdjustedFinishTime"].(string); ok && s != "" {
		if t, ok := ParseDotNetDate(s); ok {
			return t.Before(now)
		}
	}
	return false
}

// Event builds the canonical record for one upstream item. The item is kept
// verbatim as the raw payload.
func Event(item map[string]any, now time.Time) models.Event {
	ev := Unwrap(item)

	var out models.Event
	out.EventID, _ = EventID(ev)
	if name, ok := GameName(ev); ok {
		out.GameName = &name
	}
	if tv, ok := GameTypeValue(ev); ok {
		out.GameTypeValue = &tv
	}
	if n, ok := GameNumber(ev); ok {
		out.GameNumber = &n
	}
	if t, ok := StartTime(ev); ok {
		out.StartTime = &t
	}
	if t, ok := FinishTime(ev); ok {
		out.FinishTime = &t
	}
	if s, ok := StatusValue(ev); ok {
		out.StatusValue = &s
	}
	out.IsFinished = IsFinished(ev, now)

	if item != nil {
		if raw, err := json.Marshal(item); err == nil {
			out.RawPayload = raw
		}
	}
	return out
}

// Items splits a list response into its raw items. Accepted shapes are
// {"Data": [...]}, a bare array, and a single {"Event": {...}} object.
func Items(resp any) []map[string]any {
	switch t := resp.(type) {
	case []any:
		return Maps(t)
	case map[string]any:
		if IsArray(t["Data"]) {
			return Maps(t["Data"])
		}
		if _, ok := Map(t["Event"]); ok {
			return []map[string]any{t}
		}
	}
	return nil
}

// Events normalizes a list response and drops items without an identifier
func Events(resp any, now time.Time) []models.Event {
	items := Items(resp)
	out := make([]models.Event, 0, len(items))
	for _, item := range items {
		ev := Event(item, now)
		if ev.EventID == "" {
			continue
		}
		out = append(out, ev)
	}
	return out
}
