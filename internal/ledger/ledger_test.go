package ledger

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestLedger_RecordAndLookup(t *testing.T) {
	l := New()

	if _, ok := l.LastSuccess("/data/report.docx"); ok {
		t.Fatal("empty ledger must not report a last success")
	}

	at := time.Now()
	l.RecordSuccess("/data/report.docx", at)

	got, ok := l.LastSuccess("/data/report.docx")
	if !ok {
		t.Fatal("recorded path not found")
	}
	if !got.Equal(at) {
		t.Errorf("LastSuccess = %v, want %v", got, at)
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
}

func TestLedger_NormalizesPaths(t *testing.T) {
	l := New()
	at := time.Now()

	l.RecordSuccess("/data//sub/../report.docx", at)

	if _, ok := l.LastSuccess("/data/report.docx"); !ok {
		t.Error("lookup via the clean form of the same path should hit")
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1 (one entry per normalized path)", l.Len())
	}
}

func TestLedger_OverwriteKeepsLatest(t *testing.T) {
	l := New()
	first := time.Now().Add(-time.Hour)
	second := time.Now()

	l.RecordSuccess("/data/report.docx", first)
	l.RecordSuccess("/data/report.docx", second)

	got, _ := l.LastSuccess("/data/report.docx")
	if !got.Equal(second) {
		t.Errorf("LastSuccess = %v, want the later record %v", got, second)
	}
}

func TestLedger_ConcurrentAccess(t *testing.T) {
	l := New()
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			path := fmt.Sprintf("/data/file-%d.txt", n%4)
			for j := 0; j < 100; j++ {
				l.RecordSuccess(path, time.Now())
				_, _ = l.LastSuccess(path)
			}
		}(i)
	}
	wg.Wait()

	if l.Len() != 4 {
		t.Errorf("Len = %d, want 4", l.Len())
	}
}
