package shadow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Target is one route compared between the Go API and the legacy API.
type Target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Body     string `json:"body,omitempty"`
	Critical bool   `json:"critical"`
}

type targetFile struct {
	Targets []Target `json:"targets"`
}

// Comparison is the outcome of one target.
type Comparison struct {
	Target         Target
	LegacyStatus   int
	GoStatus       int
	StatusMatch    bool
	BodyMatch      bool
	Error          error
	DurationGo     time.Duration
	DurationLegacy time.Duration
}

// Diff reports whether the target differs or failed.
func (c Comparison) Diff() bool {
	return c.Error != nil || !c.StatusMatch || !c.BodyMatch
}

// Report summarises a run.
type Report struct {
	Comparisons  []Comparison
	Breaking     int
	OptionalDiff int
}

// ignoredKeys are generated per service and never compared.
var ignoredKeys = []string{
	"paymentEventId",
	"scheduleExceptionId",
	"scheduleId",
	"paymentScheduleId",
	"createdAt",
	"updatedAt",
	"summaryDate",
}

// LoadTargets reads the JSON targets file.
func LoadTargets(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg targetFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode targets: %w", err)
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

// Comparer issues the same request to both services.
type Comparer struct {
	client     *http.Client
	goBase     string
	legacyBase string
	headers    http.Header
}

// NewComparer constructs a Comparer. Headers are sent to both services.
func NewComparer(client *http.Client, goBase, legacyBase string, headers http.Header) *Comparer {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Comparer{client: client, goBase: goBase, legacyBase: legacyBase, headers: headers}
}

// Run compares every target and counts critical and optional differences.
func (c *Comparer) Run(ctx context.Context, targets []Target) Report {
	var report Report
	for _, t := range targets {
		comp := c.Compare(ctx, t)
		if comp.Diff() {
			if t.Critical {
				report.Breaking++
			} else if comp.Error == nil {
				report.OptionalDiff++
			}
		}
		report.Comparisons = append(report.Comparisons, comp)
	}
	return report
}

// Compare runs a single target.
func (c *Comparer) Compare(ctx context.Context, tgt Target) Comparison {
	comp := Comparison{Target: tgt}
	goResp, goDur, goErr := c.perform(ctx, c.goBase, tgt)
	legacyResp, legacyDur, legacyErr := c.perform(ctx, c.legacyBase, tgt)
	comp.DurationGo = goDur
	comp.DurationLegacy = legacyDur
	if goResp != nil {
		defer goResp.Body.Close()
	}
	if legacyResp != nil {
		defer legacyResp.Body.Close()
	}

	if goErr != nil {
		comp.Error = fmt.Errorf("go request failed: %w", goErr)
		return comp
	}
	if legacyErr != nil {
		comp.Error = fmt.Errorf("legacy request failed: %w", legacyErr)
		return comp
	}

	comp.GoStatus = goResp.StatusCode
	comp.LegacyStatus = legacyResp.StatusCode
	comp.StatusMatch = comp.GoStatus == comp.LegacyStatus

	goBody, err := io.ReadAll(goResp.Body)
	if err != nil {
		comp.Error = fmt.Errorf("read go body: %w", err)
		return comp
	}
	legacyBody, err := io.ReadAll(legacyResp.Body)
	if err != nil {
		comp.Error = fmt.Errorf("read legacy body: %w", err)
		return comp
	}

	comp.BodyMatch = BodiesEqual(goBody, legacyBody)
	return comp
}

func (c *Comparer) perform(ctx context.Context, base string, tgt Target) (*http.Response, time.Duration, error) {
	if c.client == nil {
		return nil, 0, errors.New("nil client")
	}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	var body io.Reader
	if tgt.Body != "" {
		body = strings.NewReader(tgt.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, 0, err
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	return resp, time.Since(start), nil
}

// BodiesEqual compares two JSON bodies. The Go envelope's data member is
// unwrapped, generated ids are dropped and whole floats compare as integers.
func BodiesEqual(goBody, legacyBody []byte) bool {
	if bytes.Equal(bytes.TrimSpace(goBody), bytes.TrimSpace(legacyBody)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(goBody, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(legacyBody, &bj); err != nil {
		return false
	}
	aj = unwrapEnvelope(aj)
	normalize(&aj)
	normalize(&bj)
	return reflect.DeepEqual(aj, bj)
}

func unwrapEnvelope(v interface{}) interface{} {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	if data, ok := obj["data"]; ok {
		return data
	}
	return v
}

func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			if lo.Contains(ignoredKeys, k) {
				delete(val, k)
				continue
			}
			normalize(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

// Print writes a human readable report.
func Print(w io.Writer, report Report) {
	fmt.Fprintln(w, "Shadow Compare Report")
	fmt.Fprintln(w, "======================")
	for _, res := range report.Comparisons {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if res.Diff() {
			status = "DIFF"
		}
		fmt.Fprintf(w, "[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		fmt.Fprintf(w, "  Go Status: %d (%s)\n", res.GoStatus, res.DurationGo)
		fmt.Fprintf(w, "  Legacy Status: %d (%s)\n", res.LegacyStatus, res.DurationLegacy)
		if res.Error != nil {
			fmt.Fprintf(w, "  Error: %v\n", res.Error)
		} else {
			fmt.Fprintf(w, "  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Target.Critical)
		}
	}
	fmt.Fprintf(w, "Breaking diffs: %d, Optional diffs: %d\n", report.Breaking, report.OptionalDiff)
}
