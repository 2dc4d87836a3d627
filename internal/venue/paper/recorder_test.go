package paper

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/position"
)

func TestJSONLRecorder(t *testing.T) {
	path := t.TempDir() + "/fills.jsonl"

	recorder, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	fill := Fill{Ts: time.Now().UTC(), Event: "open", Side: position.Long, NotionalUSD: 300, CollateralUSD: 300, Price: 65000, ClientID: "x"}
	recorder.Record(fill)
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatalf("expected one line in recorder output")
	}
	var decoded Fill
	if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if decoded.Event != fill.Event || decoded.Side != fill.Side || decoded.ClientID != fill.ClientID {
		t.Fatalf("unexpected decoded fill: %+v", decoded)
	}
}

func TestLedgerReset(t *testing.T) {
	ledger := NewLedger(0)
	ledger.Record(Fill{Event: "open"})
	if len(ledger.Snapshot()) != 1 {
		t.Fatalf("expected one fill recorded")
	}
	ledger.Reset()
	if len(ledger.Snapshot()) != 0 {
		t.Fatalf("expected empty ledger after reset")
	}
}
