package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goliatone/go-webpush/pkg/domain"
)

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, domain.DeliveryReport{})
	if !strings.Contains(buf.String(), "No subscribers") {
		t.Fatalf("unexpected empty report %q", buf.String())
	}

	buf.Reset()
	printReport(&buf, domain.DeliveryReport{Attempted: 3, Succeeded: 2, Failed: 1, Pruned: 1})
	out := buf.String()
	if !strings.Contains(out, "2 succeeded, 1 failed (of 3)") || !strings.Contains(out, "removed: 1") {
		t.Fatalf("unexpected report %q", out)
	}
}
