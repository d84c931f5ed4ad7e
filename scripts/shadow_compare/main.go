// Command shadow_compare replays a set of read-only requests against the
// legacy academy API and this service, and reports status or body mismatches.
// Run it with both services pointed at the same database during cutover.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

type probe struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type probeFile struct {
	Probes []probe `json:"probes"`
}

type outcome struct {
	Probe        probe
	LegacyStatus int
	GoStatus     int
	StatusMatch  bool
	BodyMatch    bool
	Err          error
}

// volatileKeys are stripped before body comparison: the two stacks stamp
// these fields independently.
var volatileKeys = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"request_id": true,
}

func main() {
	var (
		goBase     string
		legacyBase string
		probesPath string
		token      string
		timeout    time.Duration
	)
	flag.StringVar(&goBase, "go-base", "http://localhost:8080/api/v1", "Go API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000/api/v1", "Legacy API base URL")
	flag.StringVar(&probesPath, "probes", filepath.Join("scripts", "shadow_compare", "probes.json"), "Path to JSON probes file")
	flag.StringVar(&token, "token", os.Getenv("SHADOW_COMPARE_TOKEN"), "Bearer token sent to both APIs")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	probes, err := loadProbes(probesPath)
	if err != nil {
		log.Fatalf("failed to load probes: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	breaking := 0
	minor := 0
	for _, p := range probes {
		out := runProbe(client, goBase, legacyBase, token, p)
		report(out)
		if out.Err != nil || !out.StatusMatch || !out.BodyMatch {
			if p.Critical {
				breaking++
			} else {
				minor++
			}
		}
	}

	fmt.Printf("breaking diffs: %d, minor diffs: %d\n", breaking, minor)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadProbes(path string) ([]probe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file probeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Probes) == 0 {
		return nil, fmt.Errorf("no probes defined in %s", path)
	}
	return file.Probes, nil
}

func runProbe(client *http.Client, goBase, legacyBase, token string, p probe) outcome {
	out := outcome{Probe: p}

	goStatus, goBody, err := fetch(client, goBase, token, p)
	if err != nil {
		out.Err = fmt.Errorf("go request failed: %w", err)
		return out
	}
	legacyStatus, legacyBody, err := fetch(client, legacyBase, token, p)
	if err != nil {
		out.Err = fmt.Errorf("legacy request failed: %w", err)
		return out
	}

	out.GoStatus = goStatus
	out.LegacyStatus = legacyStatus
	out.StatusMatch = goStatus == legacyStatus
	out.BodyMatch = bodiesEqual(goBody, legacyBody)
	return out
}

func fetch(client *http.Client, base, token string, p probe) (int, []byte, error) {
	method := strings.ToUpper(strings.TrimSpace(p.Method))
	if method == "" {
		method = http.MethodGet
	}
	url := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p.Path, "/")

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return 0, nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func bodiesEqual(a, b []byte) bool {
	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return strings.TrimSpace(string(a)) == strings.TrimSpace(string(b))
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	scrub(&aj)
	scrub(&bj)
	return reflect.DeepEqual(aj, bj)
}

func scrub(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k := range val {
			if volatileKeys[k] {
				delete(val, k)
				continue
			}
			child := val[k]
			scrub(&child)
			val[k] = child
		}
	case []interface{}:
		for i := range val {
			scrub(&val[i])
		}
	}
}

func report(out outcome) {
	label := fmt.Sprintf("%-6s %s", out.Probe.Method, out.Probe.Path)
	switch {
	case out.Err != nil:
		fmt.Printf("ERROR  %s: %v\n", label, out.Err)
	case !out.StatusMatch:
		fmt.Printf("DIFF   %s: status go=%d legacy=%d\n", label, out.GoStatus, out.LegacyStatus)
	case !out.BodyMatch:
		fmt.Printf("DIFF   %s: body mismatch\n", label)
	default:
		fmt.Printf("OK     %s\n", label)
	}
}
