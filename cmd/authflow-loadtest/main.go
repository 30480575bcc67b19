// Command authflow-loadtest measures the client-side login path under
// concurrency: the rate limiter check, session establishment, and the
// Redis-backed session store round trip. The backend is a canned in-process
// gateway so the numbers isolate authflow's own overhead.
//
// Run:
//
//	go run ./cmd/authflow-loadtest -devices 1000 -concurrency 64 -ops 50000
package main

import (
	"context"
	"errors"
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

	"github.com/nimbuspay/authflow"
)

// cannedGateway answers every call instantly with a fixed token.
type cannedGateway struct {
	expiry time.Time
}

func (g *cannedGateway) login() (authflow.LoginResponse, error) {
	return authflow.LoginResponse{Token: "lt-token", ExpiresAt: g.expiry, UserID: "u1"}, nil
}

func (g *cannedGateway) Register(context.Context, authflow.RegisterRequest) error { return nil }
func (g *cannedGateway) VerifyContact(context.Context, string, string) (authflow.VerifyContactResponse, error) {
	return authflow.VerifyContactResponse{Token: "lt-token", ExpiresAt: g.expiry, UserID: "u1"}, nil
}
func (g *cannedGateway) ResendContactCode(context.Context, string) error { return nil }
func (g *cannedGateway) LoginPassword(context.Context, string, string, authflow.DeviceMetadata) (authflow.LoginResponse, error) {
	return g.login()
}
func (g *cannedGateway) LoginPasscode(context.Context, string, string, authflow.DeviceMetadata) (authflow.LoginResponse, error) {
	return g.login()
}
func (g *cannedGateway) VerifyTwoFactor(context.Context, string, string) (authflow.LoginResponse, error) {
	return g.login()
}
func (g *cannedGateway) ForgotPassword(context.Context, string) error        { return nil }
func (g *cannedGateway) VerifyResetCode(context.Context, string, string) error { return nil }
func (g *cannedGateway) ResetPassword(context.Context, string, string, string) error {
	return nil
}
func (g *cannedGateway) BiometricChallenge(context.Context, string) (string, error) {
	return "challenge", nil
}
func (g *cannedGateway) BiometricEnroll(context.Context, string, authflow.BiometricCredential) error {
	return nil
}
func (g *cannedGateway) BiometricLogin(context.Context, authflow.BiometricAssertion, authflow.DeviceMetadata) (authflow.LoginResponse, error) {
	return g.login()
}
func (g *cannedGateway) BiometricDisable(context.Context, string) error       { return nil }
func (g *cannedGateway) CreateTransactionPIN(context.Context, string) error   { return nil }
func (g *cannedGateway) SetPasscode(context.Context, string) error            { return nil }
func (g *cannedGateway) FetchProfile(context.Context) (authflow.Profile, error) {
	return authflow.Profile{UserID: "u1"}, nil
}

func main() {
	var (
		devices     = flag.Int("devices", 1000, "number of device orchestrators to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "afs", "session key prefix")
	)
	flag.Parse()

	if *devices <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "devices, concurrency, and ops must be > 0")
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

	gateway := &cannedGateway{expiry: time.Now().Add(24 * time.Hour)}

	cfg := authflow.DefaultConfig()
	cfg.Session.RedisPrefix = *prefix
	cfg.Audit.Enabled = false

	fmt.Printf("seeding %d orchestrators...\n", *devices)
	startSeed := time.Now()
	orchestrators := make([]*authflow.Orchestrator, *devices)
	for i := range orchestrators {
		o, err := authflow.New().
			WithConfig(cfg).
			WithGateway(gateway).
			WithRedis(client).
			WithDeviceID(fmt.Sprintf("lt-dev-%d", i)).
			Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
			os.Exit(1)
		}
		defer o.Close()
		orchestrators[i] = o
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	loginStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		o := orchestrators[r.Intn(len(orchestrators))]
		_, err := o.LoginWithPassword(ctx, fmt.Sprintf("user%d@example.com", r.Intn(*devices)), "load-test-pass", authflow.DeviceMetadata{})
		return err
	})

	restoreStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		o := orchestrators[r.Intn(len(orchestrators))]
		err := o.RestoreSession(ctx)
		if errors.Is(err, authflow.ErrNoSession) {
			// A device that never logged in is not a failure.
			return nil
		}
		return err
	})

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("restore", restoreStats)
}

func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
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
