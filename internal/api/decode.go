package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/infernoscraper/inferno/internal/models"
	"github.com/infernoscraper/inferno/internal/normalize"
)

// decodeAny unmarshals body keeping numbers as json.Number
func decodeAny(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return v, nil
}

// DecodeRecords maps a results payload onto ResultRecords. It accepts a bare
// array or an object wrapping one under "results"; items may be objects or
// bare URL strings. Items without a URL are dropped.
func DecodeRecords(body []byte) ([]models.ResultRecord, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	payload, err := decodeAny(body)
	if err != nil {
		return nil, err
	}

	var items []any
	switch v := payload.(type) {
	case []any:
		items = v
	case map[string]any:
		if list, ok := v["results"].([]any); ok {
			items = list
		}
	}

	records := make([]models.ResultRecord, 0, len(items))
	for _, item := range items {
		if r, ok := decodeRecord(item); ok {
			records = append(records, r)
		}
	}
	return records, nil
}

func decodeRecord(item any) (models.ResultRecord, bool) {
	switch v := item.(type) {
	case string:
		url := normalize.Value(v)
		return models.ResultRecord{URL: url}, url != ""
	case map[string]any:
		url := normalize.Value(v["url"])
		if url == "" {
			return models.ResultRecord{}, false
		}
		r := models.ResultRecord{
			URL:     url,
			Subcat:  normalize.Value(v["subcat"]),
			City:    normalize.CityField(v),
			ZipCode: normalize.ZipField(v),
		}
		if raw, ok := normalize.ExtractDateField(v); ok {
			r.RawDate = raw
			r.Day = normalize.DayOf(raw)
		}
		return r, true
	}
	return models.ResultRecord{}, false
}

// DecodeJob maps a /job_status payload onto a Job. The job may sit under
// "job" or at the top level; counters missing from the job fall back to the
// top level. Unknown statuses become idle.
func DecodeJob(body []byte, logger *log.Logger) (models.Job, error) {
	payload, err := decodeAny(body)
	if err != nil {
		return models.Job{}, err
	}

	top, ok := payload.(map[string]any)
	if !ok {
		return models.Job{}, fmt.Errorf("unexpected job status payload %T", payload)
	}
	return jobFromMap(top, logger), nil
}

func jobFromMap(top map[string]any, logger *log.Logger) models.Job {
	inner, _ := top["job"].(map[string]any)
	if inner == nil {
		inner = top
	}

	lookup := func(key string) any {
		if v, ok := inner[key]; ok && v != nil {
			return v
		}
		return top[key]
	}

	rawStatus := normalize.Value(lookup("status"))
	status := models.JobIdle
	if rawStatus != "" {
		parsed, err := models.ParseJobStatus(rawStatus)
		if err != nil {
			if logger != nil {
				logger.Warn("Unknown job status, treating as idle", "status", rawStatus)
			}
		} else {
			status = parsed
		}
	}

	return models.Job{
		StartedAt:    normalize.Value(lookup("started_at")),
		Status:       status,
		Phase:        normalize.Value(lookup("phase")),
		Done:         toInt(lookup("done")),
		Total:        toInt(lookup("total")),
		ResultsReady: toBool(lookup("results_ready")),
		Error:        normalize.Value(lookup("error")),
		LastCount:    toInt(lookup("last_count")),
	}
}

func toInt(v any) int {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		if f, err := t.Float64(); err == nil {
			return int(f)
		}
	case float64:
		return int(t)
	case int:
		return t
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return i
		}
	}
	return 0
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	case json.Number:
		return t.String() != "0"
	}
	return false
}
