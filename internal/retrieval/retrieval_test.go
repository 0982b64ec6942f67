package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/oceanward/reefguide/internal/log"
	"github.com/oceanward/reefguide/internal/testutil"
	"github.com/oceanward/reefguide/internal/vectorstore"
)

type fakeSearcher struct {
	matches []vectorstore.Match
	err     error
	gotTopK int
}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, topK int, _ vectorstore.Filter) ([]vectorstore.Match, error) {
	f.gotTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func TestRetrieveEmptyQuery(t *testing.T) {
	svc := New(testutil.NewFakeEmbedder(8), &fakeSearcher{}, log.NewNop())

	for _, query := range []string{"", "   ", "\n\t"} {
		_, err := svc.Retrieve(context.Background(), query, Options{TopK: 3})
		if !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Retrieve(%q) err = %v, want ErrEmptyQuery", query, err)
		}
	}
}

func TestRetrieveAppliesSimilarityFloor(t *testing.T) {
	searcher := &fakeSearcher{matches: []vectorstore.Match{
		{ID: 1, Content: "strong match", Similarity: 0.91},
		{ID: 2, Content: "weak match", Similarity: 0.42},
		{ID: 3, Content: "noise", Similarity: 0.10},
	}}
	svc := New(testutil.NewFakeEmbedder(8), searcher, log.NewNop())

	results, err := svc.Retrieve(context.Background(), "reef sharks", Options{
		TopK:          5,
		MinSimilarity: 0.4,
	})
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ChunkID != 1 || results[1].ChunkID != 2 {
		t.Errorf("unexpected result order: %+v", results)
	}
	if searcher.gotTopK != 5 {
		t.Errorf("searcher received topK %d, want 5", searcher.gotTopK)
	}
}

func TestRetrieveOrderPreserved(t *testing.T) {
	searcher := &fakeSearcher{matches: []vectorstore.Match{
		{ID: 1, Similarity: 0.9},
		{ID: 2, Similarity: 0.8},
		{ID: 3, Similarity: 0.7},
	}}
	svc := New(testutil.NewFakeEmbedder(8), searcher, log.NewNop())

	results, err := svc.Retrieve(context.Background(), "wreck penetration", Options{TopK: 3})
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Errorf("results not monotonically non-increasing at %d", i)
		}
	}
}

func TestRetrieveEmbedFailure(t *testing.T) {
	embedder := testutil.NewFakeEmbedder(8)
	embedder.Err = errors.New("upstream down")
	svc := New(embedder, &fakeSearcher{}, log.NewNop())

	_, err := svc.Retrieve(context.Background(), "manta rays", Options{TopK: 3})
	if err == nil {
		t.Fatal("expected error from failing embedder")
	}
}

func TestRetrieveSearchFailure(t *testing.T) {
	svc := New(testutil.NewFakeEmbedder(8), &fakeSearcher{err: errors.New("db down")}, log.NewNop())

	_, err := svc.Retrieve(context.Background(), "currents", Options{TopK: 3})
	if err == nil {
		t.Fatal("expected error from failing searcher")
	}
}

func TestRetrieveInvalidTopK(t *testing.T) {
	svc := New(testutil.NewFakeEmbedder(8), &fakeSearcher{}, log.NewNop())

	if _, err := svc.Retrieve(context.Background(), "octopus", Options{TopK: 0}); err == nil {
		t.Fatal("expected error for topK 0")
	}
}
