package adminauth

import (
	"context"
	"testing"
	"time"
)

func benchEngine(b *testing.B) (*testEngine, *LoginResult) {
	b.Helper()
	te := newTestEngine(b, testConfig())
	te.createAdmin(b, "bench@example.com")
	res, err := te.Login(context.Background(), "bench@example.com", testPassword)
	if err != nil {
		b.Fatalf("login: %v", err)
	}
	return te, res
}

func BenchmarkAuthorize(b *testing.B) {
	te, res := benchEngine(b)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := te.Authorize(ctx, res.AccessToken); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkAuthorizeRejected(b *testing.B) {
	te, _ := benchEngine(b)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = te.Authorize(ctx, "eyJhbGciOiJub25lIn0.eyJzdWIiOiJ4In0.")
	}
}

func BenchmarkRefresh(b *testing.B) {
	te, res := benchEngine(b)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := te.Refresh(ctx, res.RefreshToken); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkLogin is dominated by password hashing, even with the minimal
// argon2id parameters of testConfig.
func BenchmarkLogin(b *testing.B) {
	te, _ := benchEngine(b)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := te.Login(ctx, "bench@example.com", testPassword); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMetricsInc(b *testing.B) {
	for _, enabled := range []bool{true, false} {
		name := "enabled"
		if !enabled {
			name = "disabled"
		}
		b.Run(name, func(b *testing.B) {
			m := NewMetrics(MetricsConfig{Enabled: enabled})
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					m.Inc(MetricLoginSuccess)
				}
			})
		})
	}
}

func BenchmarkMetricsObserveLoginLatency(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricLoginLatency, 40*time.Millisecond)
		}
	})
}
