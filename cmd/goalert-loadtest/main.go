// Command goalert-loadtest measures dispatch and notification throughput
// against an in-process engine with a simulated SMS gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goalert "github.com/MrEthical07/goAlert"
	"github.com/MrEthical07/goAlert/notify"
	"github.com/MrEthical07/goAlert/store/memory"
)

type userState struct {
	id       string
	contacts []goalert.SupportContact
}

func main() {
	var (
		users       = flag.Int("users", 1000, "number of senders to seed")
		perUser     = flag.Int("contacts", 3, "support contacts per sender")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (dispatch + notify)")
		smsLatency  = flag.Duration("sms-latency", 2*time.Millisecond, "simulated gateway latency")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *users <= 0 || *perUser <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, contacts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goalert.DefaultConfig()
	cfg.RateLimit.SupportMessageMax = *ops + 1
	cfg.RateLimit.RedisPrefix = fmt.Sprintf("lt:%d:", time.Now().UnixNano())
	cfg.Audit.Enabled = false
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	contacts := memory.NewContacts()
	hub := notify.NewHub(cfg.Notify.SubscriberBuffer)
	defer hub.Close()

	engine, err := goalert.New().
		WithConfig(cfg).
		WithRedis(client).
		WithContactProvider(contacts).
		WithSMSSender(&simulatedSMS{latency: *smsLatency}).
		WithNotifier(notify.NewService(memory.NewNotifications(), notify.ServiceConfig{}, hub)).
		WithHub(hub).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]userState, *users)
	fmt.Printf("seeding %d senders x %d contacts...\n", *users, *perUser)
	startSeed := time.Now()
	for i := range states {
		uid := fmt.Sprintf("user-%d", i)
		states[i].id = uid
		for j := 0; j < *perUser; j++ {
			c, err := contacts.Create(ctx, uid, goalert.SupportContact{
				Name:        fmt.Sprintf("contact-%d-%d", i, j),
				PhoneNumber: phoneFor(i*(*perUser) + j),
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
				os.Exit(1)
			}
			states[i].contacts = append(states[i].contacts, c)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	dispatchStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) error {
		s := states[r.Intn(len(states))]
		res, err := engine.SendSupportMessage(ctx, goalert.SupportMessageRequest{
			SenderUserID: s.id,
			SenderName:   "load",
			Message:      "checking in, call me when you can",
			Contacts:     s.contacts,
		})
		if err != nil {
			return err
		}
		if !res.Delivered() {
			return fmt.Errorf("nothing delivered")
		}
		return nil
	})
	notifyStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) error {
		from := states[r.Intn(len(states))]
		to := states[r.Intn(len(states))]
		_, err := engine.SendSupportNotification(ctx, from.id, to.id, "load", "thinking of you", notify.PriorityNormal)
		return err
	})

	fmt.Println("---- results ----")
	printStats("dispatch", dispatchStats)
	printStats("notify", notifyStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("delivery: success=%d failure=%d rate_limited=%d\n",
		snap.Counters[goalert.MetricDeliverySuccess],
		snap.Counters[goalert.MetricDeliveryFailure],
		snap.Counters[goalert.MetricRateLimited],
	)
}

// simulatedSMS accepts every message after a fixed delay.
type simulatedSMS struct {
	latency time.Duration
	n       atomic.Uint64
}

func (s *simulatedSMS) SendSMS(ctx context.Context, _, _ string) (string, error) {
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return fmt.Sprintf("SIM%d", s.n.Add(1)), nil
}

func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// phoneFor returns a distinct valid 10-digit number.
func phoneFor(i int) string {
	return fmt.Sprintf("555%07d", i%10_000_000)
}
