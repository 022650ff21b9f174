package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"regexp"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/iterator"

	"crosswarped.com/springs"
)

const (
	maxInlineLines   = 1000
	maxUnfold        = 10
	maxTableRows     = 10000
	maxPatternLength = 200
	maxRequestBytes  = 1 << 20
)

var tableName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type CountArrangementsRequest struct {
	Lines  []string `json:"lines"`
	Unfold int      `json:"unfold"`
	Table  string   `json:"table"`
	Limit  int      `json:"limit"`
}

type CountArrangementsResponse struct {
	Success bool       `json:"success"`
	Counts  []*big.Int `json:"counts"`
	Total   *big.Int   `json:"total,omitempty"`
	Error   string     `json:"error,omitempty"`
}

type config struct {
	project string
	dataset string
}

func configFromEnv() config {
	c := config{project: "xword-x", dataset: "springs"}
	if p := os.Getenv("BQ_PROJECT"); p != "" {
		c.project = p
	}
	if d := os.Getenv("BQ_DATASET"); d != "" {
		c.dataset = d
	}
	return c
}

func getRecords(ctx context.Context, cfg config, table string, limit int) ([]springs.Record, error) {
	client, err := bigquery.NewClient(ctx, cfg.project)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	defer client.Close()

	query := fmt.Sprintf("SELECT pattern, counts FROM `%s.%s.%s` LIMIT %d", cfg.project, cfg.dataset, table, limit)
	q := client.Query(query)
	q.Location = "US"

	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("q.Run: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("job.Wait: %w", err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("status.Err: %w", err)
	}
	it, err := job.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("job.Read: %w", err)
	}

	var records []springs.Record
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("it.Next: %w", err)
		}

		pattern, ok := row[0].(string)
		if !ok {
			return nil, fmt.Errorf("row[0] is not a string: %v", row[0])
		}
		counts, ok := row[1].(string)
		if !ok {
			return nil, fmt.Errorf("row[1] is not a string: %v", row[1])
		}
		r, err := springs.ParseFields(pattern, counts)
		if err == nil {
			err = checkSize(r)
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(records)+1, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// checkSize bounds the memo a record can need once unfolded.
func checkSize(r springs.Record) error {
	if len(r.Pattern) > maxPatternLength {
		return fmt.Errorf("pattern has %d cells, at most %d are allowed", len(r.Pattern), maxPatternLength)
	}
	if len(r.Constraint) > maxPatternLength {
		return fmt.Errorf("constraint has %d runs, at most %d are allowed", len(r.Constraint), maxPatternLength)
	}
	return nil
}

// validate checks the request and returns the records it names inline.
func validate(req CountArrangementsRequest) ([]springs.Record, error) {
	if len(req.Lines) > maxInlineLines {
		return nil, fmt.Errorf("lines must have at most %d entries", maxInlineLines)
	}
	if req.Unfold < 0 || req.Unfold > maxUnfold {
		return nil, fmt.Errorf("unfold must be between 0 and %d", maxUnfold)
	}
	if req.Table != "" && !tableName.MatchString(req.Table) {
		return nil, fmt.Errorf("table %q is not a valid table name", req.Table)
	}
	if req.Limit < 0 || req.Limit > maxTableRows {
		return nil, fmt.Errorf("limit must be between 0 and %d", maxTableRows)
	}
	if len(req.Lines) == 0 && req.Table == "" {
		return nil, errors.New("one of lines or table must be set")
	}

	records := make([]springs.Record, 0, len(req.Lines))
	for i, line := range req.Lines {
		r, err := springs.ParseRecord(line)
		if err != nil {
			var mre *springs.MalformedRecordError
			if errors.As(err, &mre) {
				mre.Line = i + 1
			}
			return nil, err
		}
		if err := checkSize(r); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		records = append(records, r)
	}
	return records, nil
}

func execute(ctx context.Context, logger *slog.Logger, cfg config, req CountArrangementsRequest) (springs.Summary, error) {
	records, err := validate(req)
	if err != nil {
		return springs.Summary{}, err
	}

	if req.Table != "" {
		limit := req.Limit
		if limit == 0 {
			limit = maxTableRows
		}
		loaded, err := getRecords(ctx, cfg, req.Table, limit)
		if err != nil {
			return springs.Summary{}, fmt.Errorf("getRecords: %w", err)
		}
		logger.Info("loaded records", "table", req.Table, "records", len(loaded))
		records = append(records, loaded...)
	}

	deadline, ok := ctx.Deadline()
	timeout := 1 * time.Minute
	if ok {
		timeout = time.Until(deadline) - 5*time.Second
		logger.Info("setting timeout", "timeout", timeout)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return springs.Tally(ctx, records, springs.TallyOptions{Unfold: req.Unfold, Logger: logger})
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Content-Type", "application/json")
}

func countArrangements(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		fmt.Fprintf(w, `{"success": false, "error": "Method %s not allowed"}`, r.Method)
		return
	}

	logger := slog.Default().With("request_id", uuid.NewString())

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req CountArrangementsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid request body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(CountArrangementsResponse{
			Success: false,
			Error:   fmt.Sprintf("Invalid JSON: %v", err),
		})
		return
	}

	summary, err := execute(r.Context(), logger, configFromEnv(), req)

	response := CountArrangementsResponse{Success: err == nil}
	if err != nil {
		logger.Error("count failed", "error", err)
		response.Error = err.Error()
		var mre *springs.MalformedRecordError
		if errors.As(err, &mre) {
			w.WriteHeader(http.StatusBadRequest)
		}
	} else {
		logger.Info("counted records", "records", len(summary.Counts), "total", summary.Total, "elapsed", summary.Elapsed)
		response.Counts = summary.Counts
		response.Total = summary.Total
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("error marshaling response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"success": false, "error": "Internal server error"}`)
		return
	}
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	funcframework.RegisterHTTPFunction("/count-arrangements", countArrangements)
	funcframework.RegisterHTTPFunction("/metrics", promhttp.Handler().ServeHTTP)

	port := "8080"
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = envPort
	}
	hostname := ""
	if localOnly := os.Getenv("LOCAL_ONLY"); localOnly == "true" {
		hostname = "127.0.0.1"
	}
	if err := funcframework.StartHostPort(hostname, port); err != nil {
		log.Fatalf("funcframework.StartHostPort: %v\n", err)
	}
}
