package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"loom/internal/config"
	"loom/internal/segment"
	"loom/internal/store"
	"loom/internal/unit"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewPacket persists a packet with the given fragments distributed across the
// roster one by one, mirroring the engine's round-robin order.
func NewPacket(t testing.TB, st *store.Store, fragments []string, roster []string) (*unit.Packet, []unit.Item) {
	t.Helper()

	packet := &unit.Packet{
		ID:          uuid.NewString(),
		SourceRef:   "doc-" + uuid.NewString()[:8],
		TemplateRef: "tpl-default",
		TaskType:    "translation",
		Granularity: segment.GranularitySentence,
		CreatedBy:   "admin-1",
	}
	items := make([]unit.Item, len(fragments))
	for i, fragment := range fragments {
		items[i] = unit.Item{
			SequenceNumber: i + 1,
			SourceText:     fragment,
			AssignedTo:     roster[i%len(roster)],
		}
	}
	assignments := make([]unit.Assignment, len(roster))
	for i, translator := range roster {
		assignments[i] = unit.Assignment{PacketID: packet.ID, TranslatorID: translator, Position: i}
	}

	if err := st.CreatePacket(context.Background(), packet, items, assignments); err != nil {
		t.Fatalf("store.CreatePacket: %v", err)
	}
	return packet, items
}
