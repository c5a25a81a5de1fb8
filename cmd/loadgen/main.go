// Command loadgen drives a running payment sheet server with concurrent
// requests. Every successful request creates real objects in the processor
// account, so point the server at a test-mode key or stripe-mock.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/punchamoorthee/paymentsheet/internal/domain"
)

type counters struct {
	total      uint64
	success200 uint64
	fail400    uint64
	incomplete uint64 // 200 with a missing secret
	failOther  uint64
}

type settings struct {
	url         string
	concurrency int
	duration    time.Duration
	amount      int64
	currency    string
	output      string
}

func main() {
	app := &cli.App{
		Name:  "loadgen",
		Usage: "Fire payment sheet requests at a running server and tally the outcomes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "API base URL", EnvVars: []string{"LOADGEN_URL"}},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: 4, Usage: "Number of concurrent workers"},
			&cli.DurationFlag{Name: "duration", Aliases: []string{"d"}, Value: 10 * time.Second, Usage: "Test duration"},
			&cli.Int64Flag{Name: "amount", Value: 2499, Usage: "Charge amount in minor units"},
			&cli.StringFlag{Name: "currency", Value: "usd", Usage: "ISO 4217 currency code"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Also write the JSON summary to this file"},
		},
		Action: func(c *cli.Context) error {
			s := settings{
				url:         c.String("url"),
				concurrency: c.Int("workers"),
				duration:    c.Duration("duration"),
				amount:      c.Int64("amount"),
				currency:    c.String("currency"),
				output:      c.String("output"),
			}
			if s.concurrency < 1 {
				return fmt.Errorf("workers must be at least 1")
			}
			u, err := url.Parse(s.url)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("invalid url %q: want http(s)://host[:port]", s.url)
			}
			return run(s)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(s settings) error {
	log.Printf("Starting load: %s | Workers: %d | Duration: %s", s.url, s.concurrency, s.duration)

	body, err := json.Marshal(domain.ChargeRequest{Amount: &s.amount, Currency: &s.currency})
	if err != nil {
		return err
	}

	var c counters
	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(s.concurrency)

	for i := 0; i < s.concurrency; i++ {
		go worker(&wg, &c, s, body, start)
	}

	wg.Wait()
	return printResults(&c, s, time.Since(start))
}

func worker(wg *sync.WaitGroup, c *counters, s settings, body []byte, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 30 * time.Second}

	for time.Since(start) < s.duration {
		req, err := http.NewRequest(http.MethodPost, s.url+"/payment-sheet", bytes.NewReader(body))
		if err != nil {
			atomic.AddUint64(&c.failOther, 1)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&c.failOther, 1)
			continue
		}

		atomic.AddUint64(&c.total, 1)
		switch resp.StatusCode {
		case http.StatusOK:
			var sheet domain.PaymentSheet
			if err := json.NewDecoder(resp.Body).Decode(&sheet); err != nil ||
				sheet.PaymentIntent == "" || sheet.EphemeralKey == "" || sheet.Customer == "" {
				atomic.AddUint64(&c.incomplete, 1)
			} else {
				atomic.AddUint64(&c.success200, 1)
			}
		case http.StatusBadRequest:
			atomic.AddUint64(&c.fail400, 1)
		default:
			atomic.AddUint64(&c.failOther, 1)
		}
		resp.Body.Close()
	}
}

func printResults(c *counters, s settings, d time.Duration) error {
	total := atomic.LoadUint64(&c.total)

	results := map[string]interface{}{
		"url":            s.url,
		"workers":        s.concurrency,
		"duration_sec":   d.Seconds(),
		"total_requests": total,
		"throughput_rps": float64(total) / d.Seconds(),
		"success":        atomic.LoadUint64(&c.success200),
		"rejected_400":   atomic.LoadUint64(&c.fail400),
		"incomplete":     atomic.LoadUint64(&c.incomplete),
		"errors":         atomic.LoadUint64(&c.failOther),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return err
	}

	if s.output == "" {
		return nil
	}
	file, err := os.Create(s.output)
	if err != nil {
		return err
	}
	defer file.Close()
	return json.NewEncoder(file).Encode(results)
}
