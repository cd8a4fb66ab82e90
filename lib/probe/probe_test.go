// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/bureau-foundation/liaison/lib/attach"
	"github.com/bureau-foundation/liaison/lib/instrument"
	"github.com/bureau-foundation/liaison/lib/memaccess"
	"github.com/bureau-foundation/liaison/lib/remote"
	"github.com/bureau-foundation/liaison/lib/scope"
	"github.com/bureau-foundation/liaison/lib/testutil"
)

// directAccessor reads and writes through unsafe pointers, standing
// in for the kernel-backed accessors.
type directAccessor struct{}

func (directAccessor) Read(address uintptr, p []byte) (int, error) {
	return copy(p, unsafe.Slice((*byte)(unsafe.Pointer(address)), len(p))), nil
}

func (directAccessor) Write(address uintptr, p []byte) (int, error) {
	return copy(unsafe.Slice((*byte)(unsafe.Pointer(address)), len(p)), p), nil
}

func (directAccessor) Method() string { return "direct" }

type brokenAccessor struct{ directAccessor }

func (brokenAccessor) Write(address uintptr, p []byte) (int, error) {
	return 0, errors.New("EPERM")
}

func (brokenAccessor) Method() string { return "broken" }

func newInstrumentation() instrument.Instrumentation {
	return instrument.NewRuntime(scope.New(scope.Default()), nil, nil)
}

func TestInvokeCallbackReports(t *testing.T) {
	collector := NewCollector(nil)
	strategy := Strategy{Label: "direct"}

	if err := strategy.InvokeCallback(context.Background(), collector, newInstrumentation(), directAccessor{}); err != nil {
		t.Fatalf("InvokeCallback: %v", err)
	}
	reports := collector.Reports()
	if len(reports) != 1 {
		t.Fatalf("got %d reports", len(reports))
	}
	report := reports[0]
	if report.Label != "direct" || report.PID != os.Getpid() || report.Snapshot.Goroutines == 0 {
		t.Errorf("report = %+v", report)
	}
	if report.MemoryMethod != "direct" || !report.MemoryVerified || report.MemoryError != "" {
		t.Errorf("memory fields = %q %v %q", report.MemoryMethod, report.MemoryVerified, report.MemoryError)
	}
}

func TestInvokeCallbackMemoryOutcomes(t *testing.T) {
	tests := []struct {
		name         string
		mem          memaccess.Accessor
		wantMethod   string
		wantVerified bool
		wantError    bool
	}{
		{"no accessor", nil, "", false, false},
		{"failing accessor", brokenAccessor{}, "broken", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := NewCollector(nil)
			if err := (Strategy{}).InvokeCallback(context.Background(), collector, newInstrumentation(), tt.mem); err != nil {
				t.Fatalf("InvokeCallback: %v", err)
			}
			report := collector.Reports()[0]
			if report.MemoryMethod != tt.wantMethod || report.MemoryVerified != tt.wantVerified || (report.MemoryError != "") != tt.wantError {
				t.Errorf("report memory = %q %v %q", report.MemoryMethod, report.MemoryVerified, report.MemoryError)
			}
		})
	}
}

func TestStrategyRejectsForeignCallback(t *testing.T) {
	if err := (Strategy{}).InvokeCallback(context.Background(), "not a reporter", newInstrumentation(), nil); err == nil {
		t.Error("InvokeCallback accepted a non-Reporter callback")
	}
	if err := (Strategy{}).OnAttachFailure(context.Background(), 42, attach.Descriptor{}, errors.New("x")); err == nil {
		t.Error("OnAttachFailure accepted a non-Reporter callback")
	}
}

func TestReportsTravelThroughProxy(t *testing.T) {
	exporter := remote.NewExporter(filepath.Join(testutil.SocketDir(t), "callback.sock"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		exporter.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	testutil.RequireClosed(t, exporter.Ready(), 5*time.Second, "exporter ready")

	collector := NewCollector(nil)
	stub, err := exporter.Export(collector)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	proxy, err := remote.Reconstruct(scope.New(scope.Default()), stub)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}

	strategy := Strategy{Label: "remote"}
	if err := strategy.InvokeCallback(context.Background(), proxy, newInstrumentation(), nil); err != nil {
		t.Fatalf("InvokeCallback through proxy: %v", err)
	}
	target := attach.Descriptor{PID: 77, ID: "77", DisplayName: "db"}
	if err := strategy.OnAttachFailure(context.Background(), proxy, target, attach.ErrNotSupported); err != nil {
		t.Fatalf("OnAttachFailure through proxy: %v", err)
	}

	reports, err := collector.WaitForReports(context.Background(), 1)
	if err != nil || reports[0].Label != "remote" {
		t.Fatalf("WaitForReports = %v, %v", reports, err)
	}
	failures := collector.Failures()
	if len(failures) != 1 || failures[0].Target != target || failures[0].Cause != attach.ErrNotSupported.Error() {
		t.Errorf("failures = %+v", failures)
	}
}

func TestWaitForReportsHonorsContext(t *testing.T) {
	collector := NewCollector(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := collector.WaitForReports(ctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForReports = %v, want deadline exceeded", err)
	}
}
