package repositorycache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-commerce-backend/cache"
	repository "github.com/goliatone/go-repository-bun"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestUser represents a test entity
type TestUser struct {
	ID       int64
	Username string
}

// mockStore is a backing store that tracks method calls for testing
type mockStore[T any] struct {
	mu    sync.Mutex
	calls []string

	saveResult T
	saveError  error

	findResult T
	findError  error
	// findErrors overrides findError per call, in order
	findErrors []error

	findOneResult T
	findOneError  error

	updateError error

	deleteAffected int64
	deleteError    error
	deletedIDs     []int64

	allResult []T
	allError  error

	pageResult []T
	pageCount  int
	pageError  error
	pageArgs   []int
}

func (m *mockStore[T]) recordCall(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, method)
}

func (m *mockStore[T]) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockStore[T]) Save(ctx context.Context, record T) (T, error) {
	m.recordCall("Save")
	return m.saveResult, m.saveError
}

func (m *mockStore[T]) FindByID(ctx context.Context, id int64) (T, error) {
	m.recordCall("FindByID")
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.findErrors) > 0 {
		err := m.findErrors[0]
		m.findErrors = m.findErrors[1:]
		if err != nil {
			var zero T
			return zero, err
		}
		return m.findResult, nil
	}
	return m.findResult, m.findError
}

func (m *mockStore[T]) FindOne(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("FindOne")
	return m.findOneResult, m.findOneError
}

func (m *mockStore[T]) Update(ctx context.Context, id int64, values map[string]any) error {
	m.recordCall("Update")
	return m.updateError
}

func (m *mockStore[T]) Delete(ctx context.Context, id int64) (int64, error) {
	m.recordCall("Delete")
	m.mu.Lock()
	m.deletedIDs = append(m.deletedIDs, id)
	m.mu.Unlock()
	return m.deleteAffected, m.deleteError
}

func (m *mockStore[T]) FindAll(ctx context.Context) ([]T, error) {
	m.recordCall("FindAll")
	return m.allResult, m.allError
}

func (m *mockStore[T]) FindAndCount(ctx context.Context, skip, take int) ([]T, int, error) {
	m.recordCall("FindAndCount")
	m.mu.Lock()
	m.pageArgs = []int{skip, take}
	m.mu.Unlock()
	return m.pageResult, m.pageCount, m.pageError
}

// mockCache tracks cache operations and can simulate hits, misses and errors
type mockCache struct {
	mu      sync.Mutex
	calls   []string
	storage map[string]string
	ttls    map[string]time.Duration
	err     error
	setErr  error
}

func newMockCache() *mockCache {
	return &mockCache{
		storage: make(map[string]string),
		ttls:    make(map[string]time.Duration),
	}
}

func (m *mockCache) recordCall(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockCache) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// SetCacheValue pre-populates cache to simulate cache hit
func (m *mockCache) SetCacheValue(t *testing.T, key string, value any) {
	t.Helper()
	encoded, err := cache.Encode(value)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storage[key] = encoded
}

func (m *mockCache) Get(ctx context.Context, key string) (string, bool, error) {
	m.recordCall("Get:" + key)
	if m.err != nil {
		return "", false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.storage[key]
	return v, ok, nil
}

func (m *mockCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.recordCall("Set:" + key)
	if m.err != nil {
		return m.err
	}
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storage[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.recordCall("Delete:" + key)
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.storage, key)
	return nil
}

func (m *mockCache) decode(t *testing.T, key string) TestUser {
	t.Helper()
	m.mu.Lock()
	raw, ok := m.storage[key]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("expected cache entry for %q", key)
	}
	u, err := cache.Decode[TestUser](raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return u
}

func equalCalls(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

var userModel = cache.NewModel("user:a", time.Minute)

func TestNew(t *testing.T) {
	store := &mockStore[TestUser]{}
	c := newMockCache()

	repo := New[TestUser](store, c)

	if repo == nil {
		t.Fatal("New() returned nil")
	}
	if repo.store != store {
		t.Error("backing store not stored correctly")
	}
	if repo.cache != c {
		t.Error("cache not stored correctly")
	}
	if repo.snapshot != SnapshotInput {
		t.Error("expected SnapshotInput by default")
	}
}

func TestCreateEntity_CachesInputSnapshot(t *testing.T) {
	// the store assigns a different id on insert
	store := &mockStore[TestUser]{saveResult: TestUser{ID: 99, Username: "a"}}
	c := newMockCache()
	repo := New[TestUser](store, c)
	ctx := context.Background()

	created := repo.CreateEntity(ctx, TestUser{ID: 1, Username: "a"}, userModel)
	if !created.OK() {
		t.Fatalf("CreateEntity() status = %v, err = %v", created.Status, created.Err)
	}
	if created.Value.ID != 99 {
		t.Errorf("expected persisted entity to be returned, got %+v", created.Value)
	}

	found := repo.FindEntityByID(ctx, 1, userModel)
	if !found.OK() || !found.Cached {
		t.Fatalf("expected cache hit, got status=%v cached=%v", found.Status, found.Cached)
	}
	if found.Value != (TestUser{ID: 1, Username: "a"}) {
		t.Errorf("expected input snapshot {1 a}, got %+v", found.Value)
	}
	if calls := store.getCalls(); !equalCalls(calls, []string{"Save"}) {
		t.Errorf("expected only Save on store, got %v", calls)
	}
	if ttl := c.ttls["user:a"]; ttl != time.Minute {
		t.Errorf("expected TTL passed through, got %v", ttl)
	}
}

func TestCreateEntity_PersistedSnapshot(t *testing.T) {
	store := &mockStore[TestUser]{saveResult: TestUser{ID: 99, Username: "a"}}
	c := newMockCache()
	repo := New[TestUser](store, c, WithCreateSnapshot(SnapshotPersisted))

	repo.CreateEntity(context.Background(), TestUser{ID: 1, Username: "a"}, userModel)

	if got := c.decode(t, "user:a"); got.ID != 99 {
		t.Errorf("expected persisted snapshot, got %+v", got)
	}
}

func TestCreateEntity_KeyAlreadyCached(t *testing.T) {
	store := &mockStore[TestUser]{saveResult: TestUser{ID: 2, Username: "a"}}
	c := newMockCache()
	c.SetCacheValue(t, "user:a", TestUser{ID: 7, Username: "old"})
	repo := New[TestUser](store, c)

	repo.CreateEntity(context.Background(), TestUser{ID: 2, Username: "a"}, userModel)

	if got := c.decode(t, "user:a"); got.ID != 7 {
		t.Errorf("existing entry must not be overwritten, got %+v", got)
	}
	if calls := c.getCalls(); !equalCalls(calls, []string{"Get:user:a"}) {
		t.Errorf("unexpected cache calls %v", calls)
	}
}

func TestCreateEntity_PersistFailure(t *testing.T) {
	store := &mockStore[TestUser]{saveError: errors.New("unique violation")}
	c := newMockCache()
	repo := New[TestUser](store, c)

	res := repo.CreateEntity(context.Background(), TestUser{Username: "a"}, userModel)

	if !res.Failed() {
		t.Fatalf("expected failed result, got %v", res.Status)
	}
	if len(c.getCalls()) != 0 {
		t.Errorf("cache must not be touched on persist failure, got %v", c.getCalls())
	}
}

func TestCreateEntity_CacheFailureAfterInsert(t *testing.T) {
	tests := []struct {
		name   string
		getErr error
		setErr error
	}{
		{name: "lookup fails", getErr: errors.New("connection refused")},
		{name: "write fails", setErr: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore[TestUser]{saveResult: TestUser{ID: 42, Username: "a"}}
			c := newMockCache()
			c.err = tt.getErr
			c.setErr = tt.setErr
			repo := New[TestUser](store, c)

			res := repo.CreateEntity(context.Background(), TestUser{Username: "a"}, userModel)

			if !res.Failed() {
				t.Fatalf("expected failed result, got %v", res.Status)
			}
			if !res.Persisted {
				t.Error("expected Persisted to report the committed insert")
			}
			if res.Value.ID != 42 {
				t.Errorf("expected stored record as value, got %+v", res.Value)
			}
		})
	}
}

func TestWritesReportPersisted(t *testing.T) {
	store := &mockStore[TestUser]{
		saveResult:     TestUser{ID: 1, Username: "a"},
		findResult:     TestUser{ID: 1, Username: "b"},
		deleteAffected: 1,
	}
	repo := New[TestUser](store, newMockCache())
	ctx := context.Background()

	if res := repo.CreateEntity(ctx, TestUser{Username: "a"}, nil); !res.OK() || !res.Persisted {
		t.Errorf("CreateEntity() = %+v", res)
	}
	if res := repo.UpdateEntity(ctx, 1, map[string]any{"username": "b"}, nil); !res.OK() || !res.Persisted {
		t.Errorf("UpdateEntity() = %+v", res)
	}
	if res := repo.DeleteEntity(ctx, 1, nil); !res.OK() || !res.Persisted {
		t.Errorf("DeleteEntity() = %+v", res)
	}

	store.saveError = errors.New("unique violation")
	if res := repo.CreateEntity(ctx, TestUser{Username: "a"}, nil); res.Persisted {
		t.Error("a rejected insert must not report Persisted")
	}
}

func TestUpdateAndDelete_CacheFailureAfterCommit(t *testing.T) {
	store := &mockStore[TestUser]{findResult: TestUser{ID: 1, Username: "b"}, deleteAffected: 1}
	c := newMockCache()
	c.setErr = errors.New("connection reset")
	repo := New[TestUser](store, c)
	ctx := context.Background()

	upd := repo.UpdateEntity(ctx, 1, map[string]any{"username": "b"}, userModel)
	if !upd.Failed() || !upd.Persisted || upd.Value.Username != "b" {
		t.Errorf("UpdateEntity() = %+v", upd)
	}

	c.setErr = nil
	c.err = errors.New("connection reset")
	del := repo.DeleteEntity(ctx, 1, userModel)
	if !del.Failed() || !del.Persisted {
		t.Errorf("DeleteEntity() = %+v", del)
	}
}

func TestFindEntityByID_NoCacheModelSkipsCache(t *testing.T) {
	store := &mockStore[TestUser]{findResult: TestUser{ID: 1, Username: "a"}}
	c := newMockCache()
	repo := New[TestUser](store, c)

	res := repo.FindEntityByID(context.Background(), 1, nil)

	if !res.OK() || res.Cached {
		t.Fatalf("expected store hit, got status=%v cached=%v", res.Status, res.Cached)
	}
	if calls := c.getCalls(); len(calls) != 0 {
		t.Errorf("expected no cache calls, got %v", calls)
	}
}

func TestFindEntityByID(t *testing.T) {
	tests := []struct {
		name           string
		setupCache     func(*testing.T, *mockCache)
		setupStore     func(*mockStore[TestUser])
		wantStatus     Status
		wantCached     bool
		wantStoreCalls []string
		wantCacheCalls []string
	}{
		{
			name: "cache hit skips store",
			setupCache: func(t *testing.T, c *mockCache) {
				c.SetCacheValue(t, "user:a", TestUser{ID: 1, Username: "stale"})
			},
			setupStore:     func(s *mockStore[TestUser]) {},
			wantStatus:     StatusOK,
			wantCached:     true,
			wantStoreCalls: nil,
			wantCacheCalls: []string{"Get:user:a"},
		},
		{
			name:       "cache miss populates",
			setupCache: func(t *testing.T, c *mockCache) {},
			setupStore: func(s *mockStore[TestUser]) {
				s.findResult = TestUser{ID: 1, Username: "a"}
			},
			wantStatus:     StatusOK,
			wantStoreCalls: []string{"FindByID"},
			wantCacheCalls: []string{"Get:user:a", "Set:user:a"},
		},
		{
			name:       "not found",
			setupCache: func(t *testing.T, c *mockCache) {},
			setupStore: func(s *mockStore[TestUser]) {
				s.findError = ErrNotFound
			},
			wantStatus:     StatusNotFound,
			wantStoreCalls: []string{"FindByID"},
			wantCacheCalls: []string{"Get:user:a"},
		},
		{
			name:       "store error",
			setupCache: func(t *testing.T, c *mockCache) {},
			setupStore: func(s *mockStore[TestUser]) {
				s.findError = errors.New("connection reset")
			},
			wantStatus:     StatusFailed,
			wantStoreCalls: []string{"FindByID"},
			wantCacheCalls: []string{"Get:user:a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore[TestUser]{}
			c := newMockCache()
			tt.setupCache(t, c)
			tt.setupStore(store)
			repo := New[TestUser](store, c)

			res := repo.FindEntityByID(context.Background(), 1, userModel)

			if res.Status != tt.wantStatus {
				t.Errorf("status = %v, want %v (err %v)", res.Status, tt.wantStatus, res.Err)
			}
			if res.Cached != tt.wantCached {
				t.Errorf("cached = %v, want %v", res.Cached, tt.wantCached)
			}
			if calls := store.getCalls(); !equalCalls(calls, tt.wantStoreCalls) {
				t.Errorf("store calls = %v, want %v", calls, tt.wantStoreCalls)
			}
			if calls := c.getCalls(); !equalCalls(calls, tt.wantCacheCalls) {
				t.Errorf("cache calls = %v, want %v", calls, tt.wantCacheCalls)
			}
		})
	}
}

func TestFindEntityByID_CacheErrorPropagatesAsFailure(t *testing.T) {
	store := &mockStore[TestUser]{}
	c := newMockCache()
	c.err = errors.New("dial tcp: connection refused")
	repo := New[TestUser](store, c)

	res := repo.FindEntityByID(context.Background(), 1, userModel)

	if !res.Failed() || !errors.Is(res.Err, c.err) {
		t.Fatalf("expected failed result carrying cache error, got %v / %v", res.Status, res.Err)
	}
	if len(store.getCalls()) != 0 {
		t.Errorf("store must not be called, got %v", store.getCalls())
	}
}

func TestFindEntityBy(t *testing.T) {
	store := &mockStore[TestUser]{findOneResult: TestUser{ID: 3, Username: "bob"}}
	c := newMockCache()
	repo := New[TestUser](store, c)
	cm := cache.NewModel("user:bob", time.Minute)

	first := repo.FindEntityBy(context.Background(), "username", "bob", cm)
	second := repo.FindEntityBy(context.Background(), "username", "bob", cm)

	if !first.OK() || first.Cached {
		t.Fatalf("first lookup should hit store, got %+v", first)
	}
	if !second.OK() || !second.Cached || second.Value.ID != 3 {
		t.Fatalf("second lookup should hit cache, got %+v", second)
	}
	if calls := store.getCalls(); !equalCalls(calls, []string{"FindOne"}) {
		t.Errorf("store calls = %v", calls)
	}

	store.findOneError = ErrNotFound
	if res := repo.FindEntityBy(context.Background(), "username", "nobody", nil); !res.NotFound() {
		t.Errorf("expected not found, got %v", res.Status)
	}
}

func TestUpdateEntity_RefreshesCacheWithCanonicalState(t *testing.T) {
	store := &mockStore[TestUser]{findResult: TestUser{ID: 1, Username: "renamed"}}
	c := newMockCache()
	c.SetCacheValue(t, "user:a", TestUser{ID: 1, Username: "a"})
	repo := New[TestUser](store, c)

	res := repo.UpdateEntity(context.Background(), 1, map[string]any{"username": "renamed"}, userModel)

	if !res.OK() || res.Value.Username != "renamed" {
		t.Fatalf("UpdateEntity() = %+v", res)
	}
	if got := c.decode(t, "user:a"); got.Username != "renamed" {
		t.Errorf("cache not refreshed, got %+v", got)
	}
	if calls := store.getCalls(); !equalCalls(calls, []string{"Update", "FindByID"}) {
		t.Errorf("store calls = %v", calls)
	}
	// the read back never consults the cache
	if calls := c.getCalls(); !equalCalls(calls, []string{"Set:user:a"}) {
		t.Errorf("cache calls = %v", calls)
	}
}

func TestUpdateEntity_NotFoundAfterUpdate(t *testing.T) {
	store := &mockStore[TestUser]{findError: ErrNotFound}
	c := newMockCache()
	repo := New[TestUser](store, c)

	res := repo.UpdateEntity(context.Background(), 1, map[string]any{"username": "x"}, userModel)

	if !res.NotFound() {
		t.Fatalf("expected not found, got %v", res.Status)
	}
	if len(c.getCalls()) != 0 {
		t.Errorf("cache must not be written, got %v", c.getCalls())
	}
}

func TestUpdateEntity_FailureDeletesExistingRecord(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	store := &mockStore[TestUser]{
		updateError:    errors.New("constraint violation"),
		findResult:     TestUser{ID: 5, Username: "a"},
		deleteAffected: 1,
	}
	c := newMockCache()
	repo := New[TestUser](store, c, WithLogger(zap.New(core)))

	res := repo.UpdateEntity(context.Background(), 5, map[string]any{"email": "x"}, userModel)

	if !res.Failed() {
		t.Fatalf("expected failed result, got %v", res.Status)
	}
	if calls := store.getCalls(); !equalCalls(calls, []string{"Update", "FindByID", "Delete"}) {
		t.Errorf("store calls = %v", calls)
	}
	if len(store.deletedIDs) != 1 || store.deletedIDs[0] != 5 {
		t.Errorf("expected exactly one delete for id 5, got %v", store.deletedIDs)
	}
	if logs.FilterMessage("update rolled back, record deleted").Len() != 1 {
		t.Error("expected rollback to be logged")
	}
}

func TestUpdateEntity_FailureWithoutExistingRecord(t *testing.T) {
	store := &mockStore[TestUser]{
		updateError: errors.New("boom"),
		findError:   ErrNotFound,
	}
	repo := New[TestUser](store, newMockCache())

	res := repo.UpdateEntity(context.Background(), 5, map[string]any{"email": "x"}, nil)

	if !res.Failed() {
		t.Fatalf("expected failed result, got %v", res.Status)
	}
	if calls := store.getCalls(); !equalCalls(calls, []string{"Update", "FindByID"}) {
		t.Errorf("no delete expected, got %v", calls)
	}
}

func TestDeleteEntity(t *testing.T) {
	tests := []struct {
		name           string
		affected       int64
		deleteErr      error
		wantStatus     Status
		wantCacheCalls []string
	}{
		{name: "deleted and evicted", affected: 1, wantStatus: StatusOK, wantCacheCalls: []string{"Delete:user:a"}},
		{name: "zero rows", affected: 0, wantStatus: StatusNotFound, wantCacheCalls: nil},
		{name: "store error", deleteErr: errors.New("timeout"), wantStatus: StatusFailed, wantCacheCalls: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore[TestUser]{deleteAffected: tt.affected, deleteError: tt.deleteErr}
			c := newMockCache()
			repo := New[TestUser](store, c)

			res := repo.DeleteEntity(context.Background(), 1, userModel)

			if res.Status != tt.wantStatus {
				t.Errorf("status = %v, want %v", res.Status, tt.wantStatus)
			}
			if res.Value != (tt.wantStatus == StatusOK) {
				t.Errorf("value = %v", res.Value)
			}
			if calls := c.getCalls(); !equalCalls(calls, tt.wantCacheCalls) {
				t.Errorf("cache calls = %v, want %v", calls, tt.wantCacheCalls)
			}
		})
	}
}

func TestGetAllEntities(t *testing.T) {
	store := &mockStore[TestUser]{allResult: []TestUser{{ID: 1, Username: "a"}, {ID: 2, Username: "b"}}}
	c := newMockCache()
	repo := New[TestUser](store, c)
	cm := cache.NewModel("user:all", time.Minute)

	first := repo.GetAllEntities(context.Background(), cm)
	if !first.OK() || len(first.Value) != 2 || first.Cached {
		t.Fatalf("first call = %+v", first)
	}

	// stale snapshot is returned verbatim
	store.allResult = nil
	second := repo.GetAllEntities(context.Background(), cm)
	if !second.Cached || len(second.Value) != 2 {
		t.Fatalf("second call should be served from cache, got %+v", second)
	}

	if calls := store.getCalls(); !equalCalls(calls, []string{"FindAll"}) {
		t.Errorf("store calls = %v", calls)
	}

	store.allError = errors.New("boom")
	if res := repo.GetAllEntities(context.Background(), nil); !res.Failed() {
		t.Errorf("expected failure without cache, got %v", res.Status)
	}
}

func TestGetEntitiesWithPagination_MissDoesNotPopulate(t *testing.T) {
	store := &mockStore[TestUser]{pageResult: []TestUser{{ID: 1, Username: "a"}}, pageCount: 42}
	c := newMockCache()
	repo := New[TestUser](store, c)
	cm := cache.NewModel("user:page:0:10", time.Minute)

	res := repo.GetEntitiesWithPagination(context.Background(), 0, 10, cm)

	if !res.OK() || res.Value.Count != 42 || len(res.Value.Data) != 1 {
		t.Fatalf("GetEntitiesWithPagination() = %+v", res)
	}
	if fmt.Sprint(store.pageArgs) != "[0 10]" {
		t.Errorf("expected skip=0 take=10, got %v", store.pageArgs)
	}
	if calls := c.getCalls(); !equalCalls(calls, []string{"Get:user:page:0:10"}) {
		t.Errorf("expected lookup only, got %v", calls)
	}
}

func TestGetEntitiesWithPagination_CacheHit(t *testing.T) {
	store := &mockStore[TestUser]{}
	c := newMockCache()
	c.SetCacheValue(t, "user:page:0:10", Page[TestUser]{Data: []TestUser{{ID: 9}}, Count: 1})
	repo := New[TestUser](store, c)

	res := repo.GetEntitiesWithPagination(context.Background(), 0, 10, cache.NewModel("user:page:0:10", time.Minute))

	if !res.Cached || res.Value.Count != 1 || res.Value.Data[0].ID != 9 {
		t.Fatalf("expected cached page, got %+v", res)
	}
	if len(store.getCalls()) != 0 {
		t.Errorf("store must not be called, got %v", store.getCalls())
	}
}
