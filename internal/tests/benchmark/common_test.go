package benchmark

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/yndnr/tuamail-go/internal/core/domain"
	"github.com/yndnr/tuamail-go/internal/core/service"
	"github.com/yndnr/tuamail-go/internal/infra/runloop"
	"github.com/yndnr/tuamail-go/internal/storage/memory"
)

// MailCounts defines the total number of emails for scaled benchmarks.
var MailCounts = []int{1000, 10000, 50000}

// SmallMailCounts for quick benchmarks.
var SmallMailCounts = []int{1000, 5000}

// population is the number of distinct principals emails are spread over.
const population = 100

func principal(i int) domain.Principal {
	return domain.Principal(fmt.Sprintf("user-%03d", i%population))
}

// fixture is a populated service driven by a virtual clock.
type fixture struct {
	svc   *service.Service
	sched *runloop.Virtual
}

func newFixture() *fixture {
	sched := runloop.NewVirtual(uint64(time.Second))
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{svc: service.New(memory.New(), sched, service.WithLogger(quiet)), sched: sched}
}

// prefill sends count emails round-robin, stars every tenth, adds a chat
// message per email and a reminder per fiftieth.
func prefill(b *testing.B, f *fixture, count int) {
	b.Helper()
	for i := 0; i < population; i++ {
		if _, _, err := f.svc.GetOrCreateUser(principal(i)); err != nil {
			b.Fatalf("create user: %v", err)
		}
	}
	for i := 0; i < count; i++ {
		f.sched.Advance(time.Microsecond)
		sender, receiver := principal(i), principal(i+1)
		mail, err := f.svc.SendMail(sender, receiver, "subject", "body")
		if err != nil {
			b.Fatalf("send mail: %v", err)
		}
		if i%10 == 0 {
			f.svc.ToggleStar(receiver, mail.Sender, mail.Timestamp, true)
		}
		if _, err := f.svc.SendChat(sender, receiver, "hello"); err != nil {
			b.Fatalf("send chat: %v", err)
		}
		if i%50 == 0 {
			at := f.sched.Now() + uint64(time.Hour)
			if _, err := f.svc.SetReminder(receiver, mail.Sender, mail.Timestamp, at); err != nil {
				b.Fatalf("set reminder: %v", err)
			}
		}
	}
}

// reportMemory reports heap usage after a forced GC.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithMailCounts runs benchFn once per scale.
func runWithMailCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("emails_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
