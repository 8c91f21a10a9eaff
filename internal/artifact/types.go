// Package artifact describes failing-build records served by the artifact
// metadata service and the narrow contract the pipeline consumes them through.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
)

// Record is one failing build as returned by the metadata service.
// Only the fields the pipeline reads are decoded.
type Record struct {
	ImageTag           string `json:"image_tag"`
	Language           string `json:"lang"`
	ReproduceSuccesses int    `json:"reproduce_successes"`
	FailedJob          Job    `json:"failed_job"`
}

// ID returns the stable identifier of the record.
func (r Record) ID() string {
	return r.ImageTag
}

// Job references a CI job; the service returns numeric or string ids.
type Job struct {
	JobID JobID `json:"job_id"`
}

// JobID accepts both JSON numbers and strings.
type JobID string

// UnmarshalJSON implements json.Unmarshaler.
func (j *JobID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*j = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*j = JobID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*j = JobID(strconv.FormatInt(i, 10))
		return nil
	}
	*j = JobID(n.String())
	return nil
}

// Diff is the service's structured code change, kept as raw JSON so it is
// embedded verbatim and in the service's key order.
type Diff json.RawMessage

// Empty reports whether the diff is absent, null or an empty value.
func (d Diff) Empty() bool {
	t := bytes.TrimSpace(d)
	switch string(t) {
	case "", "null", "{}", "[]", `""`:
		return true
	}
	return false
}

// MarshalJSON returns the raw bytes.
func (d Diff) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

// UnmarshalJSON keeps a copy of the raw bytes.
func (d *Diff) UnmarshalJSON(data []byte) error {
	*d = append((*d)[:0], data...)
	return nil
}

// Query filters the artifact pool.
type Query struct {
	Language              string
	MinReproduceSuccesses int
}

// Where renders the query as the service's Mongo-style filter.
func (q Query) Where() string {
	where := map[string]any{
		"reproduce_successes": map[string]int{"$gte": q.MinReproduceSuccesses},
	}
	if q.Language != "" {
		where["lang"] = q.Language
	}
	b, _ := json.Marshal(where)
	return string(b)
}

// Provider is the artifact metadata service as seen by the pipeline.
type Provider interface {
	// Filter returns every record matching q.
	Filter(ctx context.Context, q Query) ([]Record, error)
	// Find resolves one record by identifier.
	Find(ctx context.Context, id string) (Record, error)
	// Diff returns the code change of an artifact; an empty Diff means none.
	Diff(ctx context.Context, id string) (Diff, error)
	// BuildLog returns the log of a CI job.
	BuildLog(ctx context.Context, jobID string) (string, error)
}
