package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRegistersIndependently(t *testing.T) {
	a := New()
	b := New()
	a.DocsIndexedTotal.Add(3)
	b.DocsIndexedTotal.Add(1)

	families, err := a.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "irbench_docs_indexed_total" {
			found = true
			if got := f.GetMetric()[0].GetCounter().GetValue(); got != 3 {
				t.Errorf("docs indexed = %v, want 3", got)
			}
		}
	}
	if !found {
		t.Error("docs indexed counter not gathered")
	}
}

func TestHandlerExposesEvaluation(t *testing.T) {
	m := New()
	m.ObserveEvaluation("run_a", 5, 0.25, 0.5)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)
	if !strings.Contains(text, `irbench_evaluation_map{k="5",run="run_a"} 0.25`) {
		t.Errorf("MAP gauge missing from scrape output:\n%s", text)
	}
	if !strings.Contains(text, `irbench_evaluation_mar{k="5",run="run_a"} 0.5`) {
		t.Errorf("MAR gauge missing from scrape output")
	}
}

func TestPush(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.RunDurationSeconds.Set(1.5)
	if err := m.Push(t.Context(), srv.URL, "irbench"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/metrics/job/irbench" {
		t.Errorf("push request = %s %s", gotMethod, gotPath)
	}
}
