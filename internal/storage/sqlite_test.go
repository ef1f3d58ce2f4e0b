package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-assistant/internal/retrieval"
	"github.com/jonathan/job-assistant/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fullRecord() *types.ApplicationRecord {
	state := types.ApplicationState{
		JobURL: "https://example.com/job",
		JobAnalysis: &types.JobAnalysis{
			Title: "Senior Backend Engineer", Company: "Acme", Location: "Remote",
			Seniority: "Senior", Industry: "Fintech", Summary: "Payments",
			RequiredSkills: []string{"Go"},
		},
		MatchAnalysis: &types.MatchAnalysis{
			OverallScore:  82,
			StrongMatches: []types.SkillMatch{{Skill: "Go", Evidence: "services", Strength: "strong"}},
			MatchSummary:  "Good fit",
		},
		WriterOutput:  &types.WriterOutput{CoverLetter: "Dear Acme", ApplicationEmail: "Subject: hi"},
		AdvisorOutput: &types.AdvisorOutput{OverallRecommendation: "Apply", Strategy: "Lead with Go", ConfidenceLevel: "high"},
	}
	return types.NewApplicationRecord("run-1", state)
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	require.NoError(t, err)
	v1, err := s1.AppliedMigrations()
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()
	v2, err := s2.AppliedMigrations()
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, []int{1, 2}, v2)
}

func TestParseMigrationVersion(t *testing.T) {
	v, err := parseMigrationVersion("002_knowledge_chunks.sql")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = parseMigrationVersion("notes.sql")
	require.Error(t, err)
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := fullRecord()

	id, err := s.Save(ctx, rec)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, rec.JobURL, got.JobURL)
	assert.Equal(t, types.StatusGenerated, got.Status)
	assert.Equal(t, rec.JobAnalysis, got.JobAnalysis)
	assert.Equal(t, rec.MatchAnalysis, got.MatchAnalysis)
	assert.Equal(t, rec.WriterOutput, got.WriterOutput)
	assert.Equal(t, rec.AdvisorOutput, got.AdvisorOutput)
	assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestSave_PartialRunKeepsNulls(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, types.NewApplicationRecord("", types.ApplicationState{JobURL: "https://bad.invalid/404"}))
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got.JobAnalysis)
	assert.Nil(t, got.MatchAnalysis)
	assert.Nil(t, got.WriterOutput)
	assert.Nil(t, got.AdvisorOutput)

	var score *int64
	require.NoError(t, s.db.QueryRow(`SELECT match_score FROM applications WHERE id = ?`, id).Scan(&score))
	assert.Nil(t, score)
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Save(ctx, fullRecord())
	require.NoError(t, err)
	second, err := s.Save(ctx, types.NewApplicationRecord("run-2", types.ApplicationState{}))
	require.NoError(t, err)

	list, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, second, list[0].ID)
	assert.Nil(t, list[0].MatchScore)
	assert.Equal(t, first, list[1].ID)
	assert.Equal(t, "Acme", list[1].Company)
	assert.Equal(t, "Senior Backend Engineer", list[1].JobTitle)
	require.NotNil(t, list[1].MatchScore)
	assert.Equal(t, 82, *list[1].MatchScore)
	assert.Equal(t, "Apply", list[1].Recommendation)

	limited, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestUpdateStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id, err := s.Save(ctx, fullRecord())
	require.NoError(t, err)

	require.NoError(t, s.UpdateStatus(ctx, id, types.StatusInterviewing, "phone screen Tuesday"))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInterviewing, got.Status)
	assert.Equal(t, "phone screen Tuesday", got.Notes)
}

func TestUpdateStatus_Errors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id, err := s.Save(ctx, fullRecord())
	require.NoError(t, err)

	err = s.UpdateStatus(ctx, id, "ghosted", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	err = s.UpdateStatus(ctx, id+100, types.StatusApplied, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := &PersistenceError{Op: "save application", Cause: cause}

	assert.Equal(t, "failed to save application: disk I/O error", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestSave_ClosedDatabase(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Save(context.Background(), fullRecord())
	var persistErr *PersistenceError
	assert.ErrorAs(t, err, &persistErr)
}

func TestKnowledgeIndex_MissingUntilBuilt(t *testing.T) {
	idx := openTestStore(t).KnowledgeIndex()
	ctx := context.Background()

	_, err := idx.Count(ctx)
	assert.ErrorIs(t, err, retrieval.ErrIndexMissing)

	require.NoError(t, idx.Replace(ctx, nil))
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestKnowledgeIndex_ReplaceAndSearch(t *testing.T) {
	idx := openTestStore(t).KnowledgeIndex()
	ctx := context.Background()

	records := []retrieval.Record{
		{ID: "chunk_0", Ordinal: 0, Text: "Go services", Metadata: types.ChunkMetadata{Source: "experience_acme", Category: "experience", Section: "intro"}, Embedding: []float32{1, 0}},
		{ID: "chunk_1", Ordinal: 1, Text: "Gardening", Metadata: types.ChunkMetadata{Source: "hobbies", Category: "hobbies", Section: "Plants"}, Embedding: []float32{0, 1}},
		{ID: "chunk_2", Ordinal: 2, Text: "Go services", Metadata: types.ChunkMetadata{Source: "cv_main", Category: "profile", Section: "Skills"}, Embedding: []float32{1, 0}},
	}
	require.NoError(t, idx.Replace(ctx, records))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := idx.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "chunk_0", hits[0].ID)
	assert.Equal(t, "chunk_2", hits[1].ID)
	assert.InDelta(t, 0, hits[0].Distance, 1e-9)
	assert.Equal(t, "experience", hits[0].Metadata.Category)

	require.NoError(t, idx.Replace(ctx, records[1:2]))
	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestKnowledgeIndex_WithRetriever(t *testing.T) {
	idx := openTestStore(t).KnowledgeIndex()
	ctx := context.Background()
	r := retrieval.NewRetriever(retrieval.NewHashEmbedder(0), idx, nil)

	chunks := retrieval.StaticChunks{
		{Text: "Built distributed systems in Go", Metadata: types.ChunkMetadata{Source: "experience_a", Category: "experience", Section: "intro"}},
		{Text: "Baked sourdough bread", Metadata: types.ChunkMetadata{Source: "hobbies", Category: "hobbies", Section: "intro"}},
	}
	n, err := r.Index(ctx, chunks, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := r.Retrieve(ctx, "distributed systems in Go", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Built distributed systems in Go", hits[0].Text)
}

func TestKnowledgeIndex_RebuildsForNewEmbedderWidth(t *testing.T) {
	idx := openTestStore(t).KnowledgeIndex()
	ctx := context.Background()
	chunks := retrieval.StaticChunks{
		{Text: "Built distributed systems in Go", Metadata: types.ChunkMetadata{Source: "experience_a", Category: "experience", Section: "intro"}},
	}

	dims, err := idx.Dimensions(ctx)
	require.NoError(t, err)
	assert.Zero(t, dims)

	_, err = retrieval.NewRetriever(retrieval.NewHashEmbedder(64), idx, nil).Index(ctx, chunks, false)
	require.NoError(t, err)
	dims, err = idx.Dimensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 64, dims)

	r := retrieval.NewRetriever(retrieval.NewHashEmbedder(128), idx, nil)
	_, err = r.Index(ctx, chunks, false)
	require.NoError(t, err)
	dims, err = idx.Dimensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 128, dims)

	hits, err := r.Retrieve(ctx, "distributed systems in Go", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Less(t, hits[0].Distance, 1.0)
}

func TestKnowledgeIndex_SearchCorruptEmbedding(t *testing.T) {
	s := openTestStore(t)
	idx := s.KnowledgeIndex()
	ctx := context.Background()
	require.NoError(t, idx.Replace(ctx, nil))
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO knowledge_chunks (id, ordinal, text, source, category, section, embedding)
		VALUES ('chunk_0', 0, 'x', '', '', '', ?)`, []byte{1, 2, 3})
	require.NoError(t, err)

	_, err = idx.Search(ctx, []float32{1, 0}, 1)
	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Contains(t, err.Error(), "chunk chunk_0")
}

func TestValidateStatus(t *testing.T) {
	for _, s := range types.ApplicationStatuses {
		assert.NoError(t, ValidateStatus(s))
	}
	assert.ErrorIs(t, ValidateStatus(""), ErrInvalidStatus)
	assert.ErrorIs(t, ValidateStatus("Applied"), ErrInvalidStatus)
}
