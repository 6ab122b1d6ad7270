package records_test

import (
	"encoding/json"
	"testing"

	"github.com/blockedu/blockedu/internal/hashing"
	"github.com/blockedu/blockedu/internal/ledger"
	"github.com/blockedu/blockedu/internal/records"
	"go.uber.org/zap"
)

func newService(t *testing.T) (*records.Service, *ledger.MemoryStore) {
	t.Helper()
	store := records.NewStore(records.NewMemory(), hashing.Default())
	led := ledger.NewMemory()
	return records.NewService(store, led, zap.NewNop()), led
}

func TestIssue_anchorsOnLedger(t *testing.T) {
	svc, led := newService(t)

	rec, entry, err := svc.Issue(ctx, records.Draft{
		SubjectID: "STU001", Type: records.TypeTranscript, Title: "T1",
		Payload: json.RawMessage(`{"grade":"A"}`), IssuedBy: "registrar@blockedu.edu",
	})
	if err != nil {
		t.Fatal(err)
	}
	if entry.Action != ledger.ActionStoreRecord {
		t.Errorf("action: got %q, want STORE_RECORD", entry.Action)
	}
	if entry.ContentHash != rec.ContentHash {
		t.Error("ledger entry does not carry the record's content hash")
	}
	if entry.RecordID != rec.ID.String() {
		t.Error("ledger entry does not reference the record")
	}

	n, _ := led.Len(ctx)
	if n != 1 {
		t.Errorf("expected 1 ledger entry, got %d", n)
	}
}

func TestReissue_newRecordNewHash(t *testing.T) {
	svc, _ := newService(t)

	orig, _, err := svc.Issue(ctx, records.Draft{
		SubjectID: "STU001", Type: records.TypeMarksheet, Title: "Sem 2",
		Payload: json.RawMessage(`{"grade":"B"}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	reissued, entry, err := svc.Reissue(ctx, orig.ID, json.RawMessage(`{"grade":"A"}`), "registrar@blockedu.edu")
	if err != nil {
		t.Fatal(err)
	}
	if reissued.ID == orig.ID {
		t.Error("reissue did not create a new record")
	}
	if reissued.ContentHash == orig.ContentHash {
		t.Error("reissue did not produce a new hash")
	}
	if entry == nil || entry.RecordID != reissued.ID.String() {
		t.Error("reissued record not anchored")
	}

	// The original record is untouched.
	got, err := svc.Get(ctx, orig.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ContentHash != orig.ContentHash || string(got.Payload) != `{"grade":"B"}` {
		t.Error("reissue mutated the original record")
	}
}

func TestReanchor_appendsStoreHash(t *testing.T) {
	svc, led := newService(t)
	rec, _, _ := svc.Issue(ctx, records.Draft{
		SubjectID: "STU001", Type: records.TypeDegree, Title: "BSc",
		Payload: json.RawMessage(`{"class":"first"}`),
	})

	entry, err := svc.Reanchor(ctx, rec.ID, "verifier@blockedu.edu")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Action != ledger.ActionStoreHash {
		t.Errorf("action: got %q, want STORE_HASH", entry.Action)
	}

	entries, _ := led.FindByRecordID(ctx, rec.ID.String())
	if len(entries) != 2 {
		t.Fatalf("expected 2 anchors, got %d", len(entries))
	}
}

func TestActorAddress_stableAndOpaque(t *testing.T) {
	a := records.ActorAddress("registrar@blockedu.edu")
	b := records.ActorAddress("registrar@blockedu.edu")
	c := records.ActorAddress("bursar@blockedu.edu")

	if a != b {
		t.Error("actor address not stable for the same identity")
	}
	if a == c {
		t.Error("distinct identities mapped to the same address")
	}
	if len(a) != 42 {
		t.Errorf("expected 0x + 40 hex chars, got %q", a)
	}
}
