package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/EdouardYu/ZeroDay/internal/platform/keylock"
	userdomain "github.com/EdouardYu/ZeroDay/internal/user/domain"
	"github.com/EdouardYu/ZeroDay/internal/validation/domain"
)

type memCodeRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*domain.Code
	emails map[int64]string
}

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{rows: make(map[int64]*domain.Code), emails: make(map[int64]string)}
}

func (r *memCodeRepo) GetByEmailAndCode(ctx context.Context, email, code string) (*domain.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Code
	for _, c := range r.rows {
		if r.emails[c.UserID] == email && c.Code == code {
			if latest == nil || c.ID > latest.ID {
				latest = c
			}
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *memCodeRepo) Create(ctx context.Context, c *domain.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	cp := *c
	r.rows[c.ID] = &cp
	return nil
}

func (r *memCodeRepo) Disable(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.rows[id]; ok {
		c.Enabled = false
	}
	return nil
}

func (r *memCodeRepo) DisableAllByUser(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.UserID == userID {
			c.Enabled = false
		}
	}
	return nil
}

func (r *memCodeRepo) enabledCount(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.rows {
		if c.UserID == userID && c.Enabled {
			n++
		}
	}
	return n
}

type memSender struct {
	mu    sync.Mutex
	codes []string
	fail  error
}

func (s *memSender) Send(ctx context.Context, user *userdomain.User, code string, purpose Purpose, validity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.codes = append(s.codes, code)
	return nil
}

func (s *memSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codes) == 0 {
		return ""
	}
	return s.codes[len(s.codes)-1]
}

func newCodeFixture() (*Service, *memCodeRepo, *memSender, *userdomain.User) {
	repo := newMemCodeRepo()
	sender := &memSender{}
	svc := NewService(repo, keylock.NewRegistry(), sender)
	user := &userdomain.User{ID: 3, Email: "u@example.com", Role: userdomain.RoleUser}
	repo.emails[user.ID] = user.Email
	return svc, repo, sender, user
}

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	svc, _, sender, user := newCodeFixture()

	if err := svc.Issue(context.Background(), user, PurposeActivation); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	code := sender.last()
	if !regexp.MustCompile(`^\d{6}$`).MatchString(code) {
		t.Fatalf("code %q is not a 6-digit string", code)
	}

	if err := svc.Verify(context.Background(), user.Email, code); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	// Consumed on first use: replay within the validity window fails.
	if err := svc.Verify(context.Background(), user.Email, code); !errors.Is(err, ErrDisabledCode) {
		t.Errorf("second Verify = %v, want ErrDisabledCode", err)
	}
}

func TestVerify_Unknown(t *testing.T) {
	svc, _, _, user := newCodeFixture()
	if err := svc.Verify(context.Background(), user.Email, "123456"); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("Verify = %v, want ErrInvalidCode", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	svc, _, sender, user := newCodeFixture()
	base := time.Now()
	svc.now = func() time.Time { return base }

	if err := svc.Issue(context.Background(), user, PurposePasswordReset); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	svc.now = func() time.Time { return base.Add(11 * time.Minute) }
	if err := svc.Verify(context.Background(), user.Email, sender.last()); !errors.Is(err, ErrExpiredCode) {
		t.Errorf("Verify after 11m = %v, want ErrExpiredCode", err)
	}
}

func TestIssue_SupersedesPriorCode(t *testing.T) {
	svc, repo, sender, user := newCodeFixture()

	if err := svc.Issue(context.Background(), user, PurposeActivation); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	first := sender.last()
	if err := svc.Issue(context.Background(), user, PurposePasswordReset); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	second := sender.last()

	if n := repo.enabledCount(user.ID); n != 1 {
		t.Errorf("enabled codes = %d, want 1", n)
	}
	if first != second {
		if err := svc.Verify(context.Background(), user.Email, first); !errors.Is(err, ErrDisabledCode) {
			t.Errorf("Verify(first) = %v, want ErrDisabledCode", err)
		}
	}
	if err := svc.Verify(context.Background(), user.Email, second); err != nil {
		t.Errorf("Verify(second): %v", err)
	}
}

func TestIssue_SingleActiveUnderConcurrency(t *testing.T) {
	svc, repo, _, user := newCodeFixture()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Issue(context.Background(), user, PurposeActivation); err != nil {
				t.Errorf("Issue: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := repo.enabledCount(user.ID); n != 1 {
		t.Errorf("enabled codes = %d, want 1", n)
	}
}

func TestIssue_SenderFailure(t *testing.T) {
	svc, _, sender, user := newCodeFixture()
	sender.fail = errors.New("smtp down")

	if err := svc.Issue(context.Background(), user, PurposeActivation); err == nil {
		t.Fatal("Issue with failing sender succeeded, want error")
	}
}
