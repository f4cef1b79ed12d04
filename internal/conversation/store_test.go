package conversation

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_AppendAndHistoryOrder(t *testing.T) {
	s := NewStore("")
	s.AppendUser("sess", "hi")
	s.AppendAgent("sess", "hello back")
	s.AppendUser("sess", "how are you")

	h := s.History("sess")
	require.Len(t, h, 3)
	require.Equal(t, Turn{Speaker: SpeakerUser, Text: "hi"}, h[0])
	require.Equal(t, Turn{Speaker: SpeakerAgent, Text: "hello back"}, h[1])
	require.Equal(t, Turn{Speaker: SpeakerUser, Text: "how are you"}, h[2])
}

func TestStore_SessionsAreIsolated(t *testing.T) {
	s := NewStore("")
	s.AppendUser("a", "from a")
	s.AppendUser("b", "from b")

	require.Len(t, s.History("a"), 1)
	require.Len(t, s.History("b"), 1)
	require.Equal(t, "from a", s.History("a")[0].Text)
	require.Empty(t, s.History("c"))
}

func TestStore_HistoryReturnsCopy(t *testing.T) {
	s := NewStore("")
	s.AppendUser("sess", "original")

	h := s.History("sess")
	h[0].Text = "mutated"

	require.Equal(t, "original", s.History("sess")[0].Text)
}

func TestStore_SQLitePersistsAcrossInstances(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	first := NewStore(dbPath)
	first.AppendUser("sess", "persisted question")
	first.AppendAgent("sess", "persisted answer")

	second := NewStore(dbPath)
	h := second.History("sess")
	require.Len(t, h, 2)
	require.Equal(t, SpeakerUser, h[0].Speaker)
	require.Equal(t, "persisted question", h[0].Text)
	require.Equal(t, SpeakerAgent, h[1].Speaker)
}

func TestStore_AppendOnFreshStoreKeepsPersistedTurns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	first := NewStore(dbPath)
	first.AppendUser("sess", "old question")
	first.AppendAgent("sess", "old answer")

	// Pipeline order on a restarted process: append before the first read.
	second := NewStore(dbPath)
	second.AppendUser("sess", "new question")

	h := second.History("sess")
	require.Len(t, h, 3)
	require.Equal(t, "old question", h[0].Text)
	require.Equal(t, "old answer", h[1].Text)
	require.Equal(t, "new question", h[2].Text)
}

func TestStore_HistoryAfterReloadReturnsCopy(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	first := NewStore(dbPath)
	first.AppendUser("sess", "original")

	second := NewStore(dbPath)
	h := second.History("sess")
	require.Len(t, h, 1)
	h[0].Text = "mutated"

	require.Equal(t, "original", second.History("sess")[0].Text)
}

func TestStore_ConcurrentAppendsAllRecorded(t *testing.T) {
	s := NewStore("")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AppendUser("sess", "msg")
		}()
	}
	wg.Wait()
	require.Len(t, s.History("sess"), 20)
}
