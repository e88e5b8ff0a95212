// Benchmark tool for replaying questionnaire data against a running Iris server.
//
// Usage:
//
//	go run ./cmd/bench -csv /path/to/dry_eye_dataset.csv -url http://localhost:9000
//
// This tool:
//  1. Reads questionnaire rows (optionally with a Y/N dry-eye label column)
//  2. Sends each row to POST /v1/predictions
//  3. Compares the predicted class (probability >= threshold) with the label
//  4. Reports throughput, latency, the confusion matrix and accuracy
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Row is one questionnaire with its optional label.
type Row struct {
	Fields   map[string]any
	HasLabel bool
	Positive bool
}

// PredictionResponse is the subset of the prediction reply the benchmark reads.
type PredictionResponse struct {
	Prediction struct {
		Probability float64 `json:"probability"`
		RiskLevel   string  `json:"riskLevel"`
	} `json:"prediction"`
}

// Metrics tracks benchmark results
type Metrics struct {
	TruePositives  int64
	FalsePositives int64
	TrueNegatives  int64
	FalseNegatives int64

	TotalProcessed int64
	TotalLabeled   int64
	TotalErrors    int64

	ProcessingTimeMs int64

	levelsMu sync.Mutex
	Levels   map[string]int64
}

func main() {
	// Parse flags
	csvPath := flag.String("csv", "", "Path to questionnaire CSV file")
	baseURL := flag.String("url", "http://localhost:9000", "Iris base URL")
	labelColumn := flag.String("label", "Dry Eye Disease", "Y/N label column (ignored when absent)")
	threshold := flag.Float64("threshold", 0.5, "Probability at or above which a row counts as positive")
	limit := flag.Int("limit", 10000, "Maximum rows to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each row result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: bench -csv /path/to/questionnaire.csv [-url http://localhost:9000]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("IRIS BENCHMARK - dry-eye prediction replay")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("Iris URL:    %s\n", *baseURL)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Printf("Threshold:   %.2f\n", *threshold)
	fmt.Println()

	// Check Iris is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Iris not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Iris is running:")
		fmt.Println("  go run ./cmd/iris")
		os.Exit(1)
	}
	fmt.Println("✓ Iris is healthy")

	rows, err := readCSV(*csvPath, *labelColumn, *limit)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d rows\n", len(rows))
	if len(rows) == 0 {
		return
	}

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(rows, *baseURL, *threshold, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// readCSV maps every row to a questionnaire object keyed by the header.
// Numeric cells are sent as numbers and everything else as strings.
func readCSV(path, labelColumn string, limit int) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		row := Row{Fields: make(map[string]any, len(header))}
		for i, col := range header {
			if i >= len(record) {
				break
			}
			cell := strings.TrimSpace(record[i])
			if col == labelColumn {
				row.HasLabel = cell != ""
				row.Positive = strings.EqualFold(cell, "Y") || cell == "1"
				continue
			}
			if cell == "" {
				continue
			}
			if f, err := strconv.ParseFloat(cell, 64); err == nil {
				row.Fields[col] = f
			} else {
				row.Fields[col] = cell
			}
		}

		rows = append(rows, row)
		if limit > 0 && len(rows) >= limit {
			break
		}
	}

	return rows, nil
}

func runBenchmark(rows []Row, baseURL string, threshold float64, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{Levels: make(map[string]int64)}

	work := make(chan Row, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for row := range work {
				start := time.Now()
				result, err := predict(client, baseURL, row)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %v\n", err)
					}
					continue
				}

				metrics.levelsMu.Lock()
				metrics.Levels[result.Prediction.RiskLevel]++
				metrics.levelsMu.Unlock()

				predicted := result.Prediction.Probability >= threshold
				if row.HasLabel {
					atomic.AddInt64(&metrics.TotalLabeled, 1)
					switch {
					case predicted && row.Positive:
						atomic.AddInt64(&metrics.TruePositives, 1)
					case predicted && !row.Positive:
						atomic.AddInt64(&metrics.FalsePositives, 1)
					case !predicted && !row.Positive:
						atomic.AddInt64(&metrics.TrueNegatives, 1)
					default:
						atomic.AddInt64(&metrics.FalseNegatives, 1)
					}
				}

				if verbose {
					status := " "
					if row.HasLabel {
						status = "✓"
						if predicted != row.Positive {
							status = "✗"
						}
					}
					fmt.Printf("%s p=%.4f %-8s label=%v\n", status, result.Prediction.Probability, result.Prediction.RiskLevel, row.Positive)
				}
			}
		}()
	}

	for _, row := range rows {
		work <- row
	}
	close(work)

	wg.Wait()

	return metrics
}

func predict(client *http.Client, baseURL string, row Row) (*PredictionResponse, error) {
	body, err := json.Marshal(row.Fields)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/v1/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result PredictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\nBENCHMARK RESULTS")

	fmt.Printf("\nDATASET\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Labeled:          %d\n", m.TotalLabeled)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\nRISK LEVELS\n")
	for _, level := range []string{"Low", "Moderate", "High", "VeryHigh"} {
		fmt.Printf("   %-9s %d\n", level, m.Levels[level])
	}

	if m.TotalLabeled > 0 {
		fmt.Printf("\nCONFUSION MATRIX\n")
		fmt.Println("                 Predicted")
		fmt.Println("                 DED       no DED")
		fmt.Printf("   Actual DED    %8d  %8d   (TP, FN)\n", m.TruePositives, m.FalseNegatives)
		fmt.Printf("          no DED %8d  %8d   (FP, TN)\n", m.FalsePositives, m.TrueNegatives)

		precision := ratio(m.TruePositives, m.TruePositives+m.FalsePositives)
		recall := ratio(m.TruePositives, m.TruePositives+m.FalseNegatives)
		f1 := float64(0)
		if precision+recall > 0 {
			f1 = 2 * (precision * recall) / (precision + recall)
		}
		accuracy := ratio(m.TruePositives+m.TrueNegatives, m.TotalLabeled)

		fmt.Printf("\nDETECTION METRICS\n")
		fmt.Printf("   Precision:  %.4f\n", precision)
		fmt.Printf("   Recall:     %.4f\n", recall)
		fmt.Printf("   F1-Score:   %.4f\n", f1)
		fmt.Printf("   Accuracy:   %.4f\n", accuracy)
	}

	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Duration:     %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		fmt.Printf("   Avg Latency:  %.2f ms\n", float64(m.ProcessingTimeMs)/float64(m.TotalProcessed))
		fmt.Printf("   Throughput:   %.1f req/s\n", float64(m.TotalProcessed)/duration.Seconds())
	}
	fmt.Println()
}

func ratio(n, d int64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
