package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/scan"
	"github.com/khanhnv2901/seca-scan/internal/scanner"
)

func TestProgressPrinterLifecycle(t *testing.T) {
	var out bytes.Buffer
	printer := newProgressPrinter(&out, 0, "scan")
	if printer.total != 1 {
		t.Fatalf("expected total to be clamped to 1, got %d", printer.total)
	}

	printer.Start()
	printer.Observe(scanner.ProbeEvent{Finding: &scan.Finding{Matched: true}, Duration: 500 * time.Millisecond})
	printer.Observe(scanner.ProbeEvent{Finding: &scan.Finding{}, Duration: time.Second})
	printer.Observe(scanner.ProbeEvent{Duration: 1500 * time.Millisecond})
	printer.Stop()
	printer.Stop()

	output := out.String()
	if !strings.Contains(output, "Progress: 3/3") {
		t.Fatalf("expected summary progress, got %q", output)
	}
	if !strings.Contains(output, "Matched:1") || !strings.Contains(output, "Clean:1") || !strings.Contains(output, "Inconclusive:1") {
		t.Fatalf("expected outcome counts in output, got %q", output)
	}
	if !strings.Contains(output, "Avg:1.00s") {
		t.Fatalf("expected average duration in output, got %q", output)
	}
}
