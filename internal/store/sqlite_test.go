// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers agent directory, status appends and message persistence/read tracking

package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	return store
}

func intPtr(v int) *int {
	return &v
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestCreateAndGetAgent(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	rec := &AgentRecord{
		Code:     "AG001",
		Name:     "Maria Santos",
		Role:     "agent",
		TeamID:   intPtr(1),
		TeamName: "Support",
		Email:    "maria@example.com",
	}

	if err := store.CreateAgent(ctx, rec); err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}

	got, err := store.GetAgent(ctx, "AG001")
	if err != nil {
		t.Fatalf("GetAgent failed: %v", err)
	}

	if got.Code != rec.Code {
		t.Errorf("Code mismatch: got %q, want %q", got.Code, rec.Code)
	}
	if got.Name != rec.Name {
		t.Errorf("Name mismatch: got %q, want %q", got.Name, rec.Name)
	}
	if got.Role != rec.Role {
		t.Errorf("Role mismatch: got %q, want %q", got.Role, rec.Role)
	}
	if got.TeamID == nil || *got.TeamID != 1 {
		t.Errorf("TeamID mismatch: got %v, want 1", got.TeamID)
	}
	if got.TeamName != rec.TeamName {
		t.Errorf("TeamName mismatch: got %q, want %q", got.TeamName, rec.TeamName)
	}
}

func TestGetAgent_NotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	_, err := store.GetAgent(context.Background(), "MISSING")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateAgent_Duplicate(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	rec := &AgentRecord{Code: "AG001", Name: "Maria Santos", Role: "agent"}

	if err := store.CreateAgent(ctx, rec); err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}
	if err := store.CreateAgent(ctx, rec); err != ErrDuplicateAgent {
		t.Errorf("expected ErrDuplicateAgent, got %v", err)
	}
}

func TestListTeamAgents(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	agents := []*AgentRecord{
		{Code: "AG002", Name: "Joao Lima", Role: "agent", TeamID: intPtr(1)},
		{Code: "AG001", Name: "Maria Santos", Role: "agent", TeamID: intPtr(1)},
		{Code: "SUP001", Name: "Ana Costa", Role: "supervisor", TeamID: intPtr(1)},
		{Code: "AG099", Name: "Other Team", Role: "agent", TeamID: intPtr(2)},
	}
	for _, a := range agents {
		if err := store.CreateAgent(ctx, a); err != nil {
			t.Fatalf("CreateAgent(%s) failed: %v", a.Code, err)
		}
	}

	got, err := store.ListTeamAgents(ctx, 1)
	if err != nil {
		t.Fatalf("ListTeamAgents failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 team members, got %d", len(got))
	}
	// Ordered by code
	if got[0].Code != "AG001" || got[1].Code != "AG002" || got[2].Code != "SUP001" {
		t.Errorf("unexpected order: %s, %s, %s", got[0].Code, got[1].Code, got[2].Code)
	}
}

func TestAppendStatus_AssignsIDAndTimestamp(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	ev := &StatusEvent{AgentCode: "AG001", Status: StatusAvailable, TeamID: intPtr(1)}

	before := time.Now().UTC()
	if err := store.AppendStatus(ctx, ev); err != nil {
		t.Fatalf("AppendStatus failed: %v", err)
	}

	if ev.ID == "" {
		t.Error("expected assigned ID")
	}
	if ev.Timestamp.Before(before.Truncate(time.Second)) {
		t.Errorf("timestamp %v is before append time %v", ev.Timestamp, before)
	}
}

func TestListStatusHistory(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	statuses := []string{StatusAvailable, StatusBusy, StatusBreak}
	for _, st := range statuses {
		ev := &StatusEvent{AgentCode: "AG001", Status: st}
		if err := store.AppendStatus(ctx, ev); err != nil {
			t.Fatalf("AppendStatus(%s) failed: %v", st, err)
		}
	}
	// Another agent's event should not appear
	other := &StatusEvent{AgentCode: "AG002", Status: StatusOffline}
	if err := store.AppendStatus(ctx, other); err != nil {
		t.Fatalf("AppendStatus failed: %v", err)
	}

	got, err := store.ListStatusHistory(ctx, "AG001", 10)
	if err != nil {
		t.Fatalf("ListStatusHistory failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for _, ev := range got {
		if ev.AgentCode != "AG001" {
			t.Errorf("unexpected agent code %q", ev.AgentCode)
		}
	}
}

func TestListStatusHistory_Limit(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		ev := &StatusEvent{AgentCode: "AG001", Status: StatusAvailable}
		if err := store.AppendStatus(ctx, ev); err != nil {
			t.Fatalf("AppendStatus failed: %v", err)
		}
	}

	got, err := store.ListStatusHistory(ctx, "AG001", 2)
	if err != nil {
		t.Fatalf("ListStatusHistory failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 events, got %d", len(got))
	}
}

func TestAppendMessage_Direct(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	msg := &Message{
		FromCode: "SUP001",
		ToCode:   "AG001",
		Content:  "please wrap up",
		Kind:     KindDirect,
		Priority: PriorityNormal,
	}

	if err := store.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if msg.ID == "" {
		t.Error("expected assigned ID")
	}

	got, err := store.ListAgentMessages(ctx, "AG001", nil, false, 10)
	if err != nil {
		t.Fatalf("ListAgentMessages failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if got[0].ID != msg.ID {
		t.Errorf("ID mismatch: got %q, want %q", got[0].ID, msg.ID)
	}
	if got[0].IsRead {
		t.Error("new message should be unread")
	}
	if got[0].ReadAt != nil {
		t.Error("new message should have nil ReadAt")
	}
}

func TestAppendMessage_ContentLengthConstraint(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()

	// sqlite length() counts characters, so multibyte text under the cap
	// fits even when its byte length exceeds it
	long := strings.Repeat("ก", 400)
	msg := &Message{
		FromCode: "SUP001",
		ToCode:   "AG001",
		Content:  long,
		Kind:     KindDirect,
		Priority: PriorityNormal,
	}
	if err := store.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage failed for 400-character content: %v", err)
	}

	over := &Message{
		FromCode: "SUP001",
		ToCode:   "AG001",
		Content:  strings.Repeat("a", MaxContentLength+1),
		Kind:     KindDirect,
		Priority: PriorityNormal,
	}
	if err := store.AppendMessage(ctx, over); err == nil {
		t.Error("expected constraint violation for over-length content")
	}
}

func TestListAgentMessages_IncludesTeamBroadcasts(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	direct := &Message{FromCode: "SUP001", ToCode: "AG001", Content: "direct", Kind: KindDirect, Priority: PriorityNormal}
	broadcast := &Message{FromCode: "SUP001", ToTeamID: intPtr(1), Content: "team news", Kind: KindBroadcast, Priority: PriorityHigh}
	otherTeam := &Message{FromCode: "SUP002", ToTeamID: intPtr(2), Content: "not yours", Kind: KindBroadcast, Priority: PriorityNormal}

	for _, m := range []*Message{direct, broadcast, otherTeam} {
		if err := store.AppendMessage(ctx, m); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	got, err := store.ListAgentMessages(ctx, "AG001", intPtr(1), false, 10)
	if err != nil {
		t.Fatalf("ListAgentMessages failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}

	// Without a team, only the direct message is visible
	got, err = store.ListAgentMessages(ctx, "AG001", nil, false, 10)
	if err != nil {
		t.Fatalf("ListAgentMessages failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 message without team filter, got %d", len(got))
	}
}

func TestMarkMessageRead(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	msg := &Message{FromCode: "SUP001", ToCode: "AG001", Content: "hello", Kind: KindDirect, Priority: PriorityNormal}
	if err := store.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	got, err := store.MarkMessageRead(ctx, msg.ID)
	if err != nil {
		t.Fatalf("MarkMessageRead failed: %v", err)
	}
	if !got.IsRead {
		t.Error("expected IsRead after marking")
	}
	if got.ReadAt == nil {
		t.Fatal("expected ReadAt after marking")
	}

	// Marking again keeps the original read_at
	firstReadAt := *got.ReadAt
	again, err := store.MarkMessageRead(ctx, msg.ID)
	if err != nil {
		t.Fatalf("MarkMessageRead second call failed: %v", err)
	}
	if again.ReadAt == nil || !again.ReadAt.Equal(firstReadAt) {
		t.Errorf("ReadAt changed on second mark: got %v, want %v", again.ReadAt, firstReadAt)
	}
}

func TestMarkMessageRead_NotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	_, err := store.MarkMessageRead(context.Background(), "nonexistent")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListAgentMessages_UnreadOnly(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	first := &Message{FromCode: "SUP001", ToCode: "AG001", Content: "one", Kind: KindDirect, Priority: PriorityNormal}
	second := &Message{FromCode: "SUP001", ToCode: "AG001", Content: "two", Kind: KindDirect, Priority: PriorityNormal}
	for _, m := range []*Message{first, second} {
		if err := store.AppendMessage(ctx, m); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	if _, err := store.MarkMessageRead(ctx, first.ID); err != nil {
		t.Fatalf("MarkMessageRead failed: %v", err)
	}

	got, err := store.ListAgentMessages(ctx, "AG001", nil, true, 10)
	if err != nil {
		t.Fatalf("ListAgentMessages failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 unread message, got %d", len(got))
	}
	if got[0].ID != second.ID {
		t.Errorf("expected unread message %q, got %q", second.ID, got[0].ID)
	}
}

func TestValidators(t *testing.T) {
	for _, s := range []string{StatusAvailable, StatusBusy, StatusBreak, StatusOffline} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false", s)
		}
	}
	if ValidStatus("available") {
		t.Error("ValidStatus should be case-sensitive")
	}
	if !ValidKind(KindDirect) || !ValidKind(KindBroadcast) || ValidKind("group") {
		t.Error("ValidKind mismatch")
	}
	if !ValidPriority(PriorityLow) || !ValidPriority(PriorityHigh) || ValidPriority("urgent") {
		t.Error("ValidPriority mismatch")
	}
}
