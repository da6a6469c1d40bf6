package quiz

import (
	"context"
	"testing"
	"time"

	"friedrich-quiz-service/internal/domain"
)

func TestRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		Loader: NewStaticLoader(map[string]Set{
			"friedrich-v1": DefaultSet(),
		}),
	}
	repo := NewRepository(loader, time.Minute)

	set, err := repo.GetSet(context.Background(), "friedrich-v1")
	if err != nil {
		t.Fatalf("get set: %v", err)
	}
	if len(set.Questions) != 6 {
		t.Fatalf("expected 6 questions, got %d", len(set.Questions))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetSet(context.Background(), "friedrich-v1"); err != nil {
		t.Fatalf("get set 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestRepositoryUnknownSet(t *testing.T) {
	repo := NewRepository(NewStaticLoader(nil), time.Minute)
	if _, err := repo.GetSet(context.Background(), "nope"); err != domain.ErrQuestionSetNotFound {
		t.Fatalf("expected ErrQuestionSetNotFound, got %v", err)
	}
}

type countingLoader struct {
	Loader
	calls int
}

func (l *countingLoader) LoadQuestionSet(ctx context.Context, setID string) (Set, error) {
	l.calls++
	return l.Loader.LoadQuestionSet(ctx, setID)
}
