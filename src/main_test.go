package main

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func post(t *testing.T, body string) (*httptest.ResponseRecorder, CountArrangementsResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/count-arrangements", strings.NewReader(body))
	w := httptest.NewRecorder()
	countArrangements(w, req)

	var resp CountArrangementsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return w, resp
}

func TestCountArrangements(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantTotal int64
		wantCount []int64
	}{
		{
			name:      "folded",
			body:      `{"lines": ["???.### 1,1,3", "?###???????? 3,2,1"]}`,
			wantTotal: 11,
			wantCount: []int64{1, 10},
		},
		{
			name:      "unfolded",
			body:      `{"lines": ["???.### 1,1,3", "?###???????? 3,2,1"], "unfold": 5}`,
			wantTotal: 506251,
			wantCount: []int64{1, 506250},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := post(t, tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if !resp.Success {
				t.Fatalf("response error: %s", resp.Error)
			}
			if resp.Total.Cmp(big.NewInt(tt.wantTotal)) != 0 {
				t.Errorf("total = %v, want %d", resp.Total, tt.wantTotal)
			}
			var got []int64
			for _, c := range resp.Counts {
				got = append(got, c.Int64())
			}
			if diff := cmp.Diff(tt.wantCount, got); diff != "" {
				t.Errorf("counts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCountArrangements_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"invalid json", `{`, http.StatusBadRequest, "Invalid JSON"},
		{"malformed line", `{"lines": ["??? 1", "??x 1"]}`, http.StatusBadRequest, "line 2"},
		{"nothing to count", `{}`, http.StatusOK, "one of lines or table"},
		{"unfold too large", `{"lines": ["? 1"], "unfold": 11}`, http.StatusOK, "unfold"},
		{"bad table", `{"table": "x; DROP"}`, http.StatusOK, "not a valid table name"},
		{
			name:       "pattern too long",
			body:       `{"lines": ["? 1", "` + strings.Repeat("?", maxPatternLength+1) + ` 1"], "unfold": 10}`,
			wantStatus: http.StatusOK,
			wantError:  "line 2: pattern has 201 cells",
		},
		{
			name:       "too many runs",
			body:       `{"lines": ["` + strings.Repeat("?", maxPatternLength) + " " + strings.Repeat("1,", maxPatternLength) + `1"]}`,
			wantStatus: http.StatusOK,
			wantError:  "constraint has 201 runs",
		},
		{
			name:       "body too large",
			body:       `{"lines": ["` + strings.Repeat("?", maxRequestBytes) + ` 1"]}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := post(t, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if resp.Success {
				t.Fatal("expected failure")
			}
			if !strings.Contains(resp.Error, tt.wantError) {
				t.Errorf("error = %q, want it to contain %q", resp.Error, tt.wantError)
			}
		})
	}
}

func TestCountArrangements_Methods(t *testing.T) {
	for _, tc := range []struct {
		method string
		want   int
	}{
		{http.MethodOptions, http.StatusOK},
		{http.MethodGet, http.StatusMethodNotAllowed},
	} {
		req := httptest.NewRequest(tc.method, "/count-arrangements", nil)
		w := httptest.NewRecorder()
		countArrangements(w, req)
		if w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.method, w.Code, tc.want)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("%s: missing CORS header, got %q", tc.method, got)
		}
	}
}
