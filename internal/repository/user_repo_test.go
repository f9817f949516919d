package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poppang-auth/internal/db"
	"poppang-auth/internal/domain"
)

func listKeywords(ctx context.Context, pool *pgxpool.Pool, userID int64) ([]string, error) {
	rows, err := pool.Query(ctx, `SELECT keyword FROM user_keyword WHERE users_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func countLinks(ctx context.Context, pool *pgxpool.Pool, userID int64) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `SELECT count(*) FROM user_recommend WHERE users_id = $1`, userID).Scan(&n)
	return n, err
}

// newTestPool usa TEST_DATABASE_URL; sin ella los tests de integracion se omiten.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func TestPgUserRepositoryCreateIsIdempotent(t *testing.T) {
	pool := newTestPool(t)
	repo := NewPgUserRepository(pool)
	ctx := context.Background()
	uid := "it-" + uuid.NewString()

	created, err := repo.Create(ctx, domain.User{UID: uid, Provider: domain.ProviderApple, Email: domain.StringPtr("a@example.com"), Role: domain.RoleMember})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 || created.Role != domain.RoleMember {
		t.Fatalf("unexpected created user: %+v", created)
	}

	_, err = repo.Create(ctx, domain.User{UID: uid, Provider: domain.ProviderApple, Email: domain.StringPtr("b@example.com"), Role: domain.RoleMember})
	if !errors.Is(err, ErrDuplicateUID) {
		t.Fatalf("expected ErrDuplicateUID, got %v", err)
	}

	found, err := repo.FindByUID(ctx, uid)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if domain.Deref(found.Email) != "a@example.com" {
		t.Fatalf("existing row must not be overwritten: %+v", found)
	}
	byID, err := repo.FindByID(ctx, created.ID)
	if err != nil || byID.UID != uid {
		t.Fatalf("find by id: %+v err=%v", byID, err)
	}
	if _, err := repo.FindActiveByUID(ctx, uid); err != nil {
		t.Fatalf("find active: %v", err)
	}

	if _, err := repo.FindByUID(ctx, "missing-"+uuid.NewString()); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows, got %v", err)
	}
}

func TestPgUserRepositoryConcurrentNickname(t *testing.T) {
	pool := newTestPool(t)
	repo := NewPgUserRepository(pool)
	ctx := context.Background()

	uids := []string{"it-" + uuid.NewString(), "it-" + uuid.NewString()}
	for _, uid := range uids {
		if _, err := repo.Create(ctx, domain.User{UID: uid, Provider: domain.ProviderKakao, Role: domain.RoleMember}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	nickname := "nick-" + uuid.NewString()[:8]
	var wg sync.WaitGroup
	errs := make([]error, len(uids))
	for i, uid := range uids {
		wg.Add(1)
		go func(i int, uid string) {
			defer wg.Done()
			_, errs[i] = repo.CompleteSignup(ctx, uid, domain.SignupProfile{Nickname: nickname})
		}(i, uid)
	}
	wg.Wait()

	var ok, taken int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNicknameExists):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || taken != 1 {
		t.Fatalf("expected one winner, got ok=%d taken=%d", ok, taken)
	}

	exists, err := repo.ExistsByNickname(ctx, nickname)
	if err != nil || !exists {
		t.Fatalf("expected nickname to exist, got %v err=%v", exists, err)
	}
}

func TestPgKeywordAndRecommendRepositories(t *testing.T) {
	pool := newTestPool(t)
	users := NewPgUserRepository(pool)
	keywords := &PgKeywordRepository{db: pool}
	recommends := &PgRecommendRepository{db: pool}
	ctx := context.Background()

	user, err := users.Create(ctx, domain.User{UID: "it-" + uuid.NewString(), Provider: domain.ProviderGoogle, Role: domain.RoleMember})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := keywords.SaveAll(ctx, user.ID, []string{"food", "art"}); err != nil {
		t.Fatalf("save keywords: %v", err)
	}
	saved, err := listKeywords(ctx, pool, user.ID)
	if err != nil || len(saved) != 2 {
		t.Fatalf("expected 2 keywords, got %v err=%v", saved, err)
	}

	var recommendID int64
	name := "it-" + uuid.NewString()[:8]
	if err := pool.QueryRow(ctx, `INSERT INTO recommend (recommend_name) VALUES ($1) RETURNING id`, name).Scan(&recommendID); err != nil {
		t.Fatalf("seed recommend: %v", err)
	}
	found, err := recommends.FindAllByIDs(ctx, []int64{recommendID, -1})
	if err != nil || len(found) != 1 || found[0].Name != name {
		t.Fatalf("unexpected recommends: %v err=%v", found, err)
	}
	for i := 0; i < 2; i++ {
		if err := recommends.Link(ctx, user.ID, recommendID); err != nil {
			t.Fatalf("link: %v", err)
		}
	}
	linked, err := countLinks(ctx, pool, user.ID)
	if err != nil || linked != 1 {
		t.Fatalf("expected one link, got %d err=%v", linked, err)
	}
}

func TestPgTransactorRollsBackSignup(t *testing.T) {
	pool := newTestPool(t)
	users := NewPgUserRepository(pool)
	ctx := context.Background()

	user, err := users.Create(ctx, domain.User{UID: "it-" + uuid.NewString(), Provider: domain.ProviderKakao, Role: domain.RoleMember})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	err = NewPgTransactor(pool).InTx(ctx, func(repos Repositories) error {
		if _, err := repos.Users.CompleteSignup(ctx, user.UID, domain.SignupProfile{Nickname: "it-" + uuid.NewString()[:8]}); err != nil {
			return err
		}
		if err := repos.Keywords.SaveAll(ctx, user.ID, []string{"food"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	after, err := users.FindByUID(ctx, user.UID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if after.Nickname != nil {
		t.Fatalf("nickname must be rolled back: %+v", after)
	}
	saved, err := listKeywords(ctx, pool, user.ID)
	if err != nil || len(saved) != 0 {
		t.Fatalf("keywords must be rolled back, got %v err=%v", saved, err)
	}
}
