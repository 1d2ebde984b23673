package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saude/clinic-scheduling/internal/db"
)

// simulate drives the running API with concurrent booking and cancellation
// traffic and reports how the conflict handling holds up.

type simConfig struct {
	APIBaseURL string
	DSN        string
	Workers    int
	Duration   time.Duration
	CancelPct  int // percentage of operations that cancel instead of book
}

type bookableSlot struct {
	Clinic string
	TaxID  string
	Date   string
	Time   string
}

type booking struct {
	Slot bookableSlot
	SSN  string
}

type dataPool struct {
	patients []string
	slots    []bookableSlot

	mu       sync.Mutex
	bookings []booking
}

func (dp *dataPool) addBooking(b booking) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.bookings = append(dp.bookings, b)
}

func (dp *dataPool) takeRandomBooking() (booking, bool) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if len(dp.bookings) == 0 {
		return booking{}, false
	}
	idx := rand.Intn(len(dp.bookings))
	b := dp.bookings[idx]
	dp.bookings = append(dp.bookings[:idx], dp.bookings[idx+1:]...)
	return b, true
}

type metrics struct {
	total     int64
	success   int64
	rejected  int64
	errored   int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (m *metrics) record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&m.total, 1)
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		atomic.AddInt64(&m.errored, 1)
	case status == http.StatusNoContent || status == http.StatusOK:
		atomic.AddInt64(&m.success, 1)
	default:
		atomic.AddInt64(&m.rejected, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *metrics) report(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log.Printf("%s: total=%d success=%d rejected=%d errors=%d",
		name, m.total, m.success, m.rejected, m.errored)

	if len(m.latencies) == 0 {
		return
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	p := func(pct int) time.Duration {
		idx := len(sorted) * pct / 100
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}

	log.Printf("%s latency: min=%s p50=%s p95=%s max=%s",
		name, sorted[0], p(50), p(95), sorted[len(sorted)-1])
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := simConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://127.0.0.1:8080"),
		DSN:        os.Getenv("DATABASE_URL"),
		Workers:    getInt("SIM_WORKERS", 8),
		Duration:   getDurationEnv("SIM_DURATION", 30*time.Second),
		CancelPct:  getInt("SIM_CANCEL_PCT", 20),
	}
	if cfg.DSN == "" {
		log.Fatal("DATABASE_URL is required")
	}

	pool, err := loadDataPool(cfg.DSN)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("loaded %d patients and %d free slots", len(pool.patients), len(pool.slots))
	if len(pool.patients) == 0 || len(pool.slots) == 0 {
		log.Fatal("nothing to simulate, run cmd/seed first")
	}

	bookMetrics := &metrics{}
	cancelMetrics := &metrics{}

	client := &http.Client{Timeout: 10 * time.Second}
	deadline := time.Now().Add(cfg.Duration)

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				if rand.Intn(100) < cfg.CancelPct {
					runCancel(client, cfg.APIBaseURL, pool, cancelMetrics)
				} else {
					runBooking(client, cfg.APIBaseURL, pool, bookMetrics)
				}
			}
		}()
	}
	wg.Wait()

	bookMetrics.report("book")
	cancelMetrics.report("cancel")
}

func runBooking(client *http.Client, baseURL string, pool *dataPool, m *metrics) {
	slot := pool.slots[rand.Intn(len(pool.slots))]
	ssn := pool.patients[rand.Intn(len(pool.patients))]

	status, latency, err := call(client, http.MethodPut,
		bookingURL(baseURL, slot.Clinic, "registar", ssn, slot))
	m.record(latency, status, err)

	if err == nil && status == http.StatusNoContent {
		pool.addBooking(booking{Slot: slot, SSN: ssn})
	}
}

func runCancel(client *http.Client, baseURL string, pool *dataPool, m *metrics) {
	b, ok := pool.takeRandomBooking()
	if !ok {
		return
	}

	status, latency, err := call(client, http.MethodDelete,
		bookingURL(baseURL, b.Slot.Clinic, "cancelar", b.SSN, b.Slot))
	m.record(latency, status, err)
}

func bookingURL(baseURL, clinicName, action, ssn string, slot bookableSlot) string {
	q := url.Values{}
	q.Set("ssn", ssn)
	q.Set("nif", slot.TaxID)
	q.Set("data", slot.Date)
	q.Set("hora", slot.Time)
	return fmt.Sprintf("%s/a/%s/%s/?%s", baseURL, url.PathEscape(clinicName), action, q.Encode())
}

func call(client *http.Client, method, target string) (int, time.Duration, error) {
	req, err := http.NewRequest(method, target, nil)
	if err != nil {
		return 0, 0, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, latency, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, latency, nil
}

func loadDataPool(dsn string) (*dataPool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer pgPool.Close()

	dp := &dataPool{}

	rows, err := pgPool.Query(ctx, `SELECT ssn FROM patients LIMIT 2000`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ssn string
		if err := rows.Scan(&ssn); err != nil {
			return nil, err
		}
		dp.patients = append(dp.patients, ssn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slotRows, err := pgPool.Query(ctx, `
		SELECT s.clinic_name, s.doctor_tax_id, s.slot_date::text, to_char(s.slot_time, 'HH24:MI')
		FROM doctor_slots s
		LEFT JOIN appointments a
		  ON a.doctor_tax_id = s.doctor_tax_id
		 AND a.slot_date = s.slot_date
		 AND a.slot_time = s.slot_time
		WHERE (s.slot_date + s.slot_time) > NOW() + INTERVAL '2 hour'
		  AND a.id IS NULL
		LIMIT 5000
	`)
	if err != nil {
		return nil, err
	}
	defer slotRows.Close()
	for slotRows.Next() {
		var slot bookableSlot
		if err := slotRows.Scan(&slot.Clinic, &slot.TaxID, &slot.Date, &slot.Time); err != nil {
			return nil, err
		}
		dp.slots = append(dp.slots, slot)
	}

	return dp, slotRows.Err()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
