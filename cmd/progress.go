package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/metrics"
	"github.com/khanhnv2901/seca-scan/internal/scanner"
)

// progressPrinter renders a single, continuously rewritten status line for a scan.
type progressPrinter struct {
	out      io.Writer
	total    int
	name     string
	mu       sync.Mutex
	counts   map[string]int
	done     int
	duration time.Duration
	updates  chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	finished chan struct{}
}

func newProgressPrinter(out io.Writer, total int, name string) *progressPrinter {
	if total <= 0 {
		total = 1
	}
	return &progressPrinter{
		out:      out,
		total:    total,
		name:     name,
		counts:   make(map[string]int),
		updates:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

func (p *progressPrinter) Start() {
	go p.loop()
}

// Observe records one executed request spec. It is safe to use as Scanner.OnProbe.
func (p *progressPrinter) Observe(ev scanner.ProbeEvent) {
	p.mu.Lock()
	p.counts[metrics.OutcomeOf(ev.Finding)]++
	p.done++
	p.duration += ev.Duration
	p.mu.Unlock()

	select {
	case p.updates <- struct{}{}:
	default:
	}
}

// Stop ends the refresh loop and prints the final line.
func (p *progressPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
		<-p.finished
		fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 80))
		p.print()
		fmt.Fprintln(p.out)
	})
}

func (p *progressPrinter) loop() {
	defer close(p.finished)

	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.updates:
			p.print()
		case <-ticker.C:
			p.print()
		case <-p.stop:
			return
		}
	}
}

func (p *progressPrinter) print() {
	p.mu.Lock()
	done := p.done
	matched := p.counts[metrics.OutcomeMatched]
	clean := p.counts[metrics.OutcomeUnmatched]
	inconclusive := p.counts[metrics.OutcomeInconclusive]
	dur := p.duration
	if done > p.total {
		p.total = done
	}
	total := p.total
	p.mu.Unlock()

	percent := (float64(done) / float64(total)) * 100
	avg := 0.0
	if done > 0 {
		avg = dur.Seconds() / float64(done)
	}

	fmt.Fprintf(p.out, "\r[%s] Progress: %d/%d (%.1f%%) Matched:%d Clean:%d Inconclusive:%d Avg:%.2fs",
		p.name, done, total, percent, matched, clean, inconclusive, avg)
}
