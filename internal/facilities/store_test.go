package facilities

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"bookingclient/internal/api"
	"bookingclient/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	list      []models.Facility
	listErr   error
	details   map[int64]models.Facility
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	gate      chan struct{}
	mu        sync.Mutex
	calls     []int64
}

func (s *stubSource) ListFacilities(_ context.Context, _ string) ([]models.Facility, error) {
	return s.list, s.listErr
}

func (s *stubSource) GetFacility(_ context.Context, id int64) (*models.Facility, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		m := s.maxFlight.Load()
		if n <= m || s.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}
	s.mu.Lock()
	s.calls = append(s.calls, id)
	s.mu.Unlock()
	if s.gate != nil {
		<-s.gate
	}
	d, ok := s.details[id]
	if !ok {
		return nil, &api.Error{Kind: api.KindNotFound, HTTPStatus: 404, ServerMessage: "Facility not found"}
	}
	return &d, nil
}

func basicList(n int) []models.Facility {
	out := make([]models.Facility, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, models.Facility{ID: int64(i), Name: "court"})
	}
	return out
}

func TestFetchAll_MergesDetailsInOrder(t *testing.T) {
	src := &stubSource{
		list: basicList(3),
		details: map[int64]models.Facility{
			1: {ID: 1, Name: "court", Images: []models.FacilityImage{{ID: 10, Filename: "a.jpg"}}},
			3: {ID: 3, Name: "court", Description: "indoor"},
		},
	}
	s := NewStore(src, 2, nil)

	got, err := s.FetchAll(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Len(t, got[0].Images, 1)
	// Detail for 2 failed: the list entry is kept.
	assert.Equal(t, models.Facility{ID: 2, Name: "court"}, got[1])
	assert.Equal(t, "indoor", got[2].Description)

	snap := s.Snapshot()
	assert.Equal(t, got, snap.Facilities)
	assert.Empty(t, snap.Error)
	assert.False(t, snap.Loading)
}

func TestFetchAll_BoundedConcurrency(t *testing.T) {
	src := &stubSource{list: basicList(8), details: map[int64]models.Facility{}, gate: make(chan struct{})}
	s := NewStore(src, 3, nil)

	done := make(chan struct{})
	go func() {
		_, _ = s.FetchAll(context.Background(), "")
		close(done)
	}()
	close(src.gate)
	<-done

	assert.LessOrEqual(t, src.maxFlight.Load(), int32(3))
	assert.Len(t, src.calls, 8)
}

func TestFetchAll_ListError(t *testing.T) {
	src := &stubSource{listErr: errors.New("dial tcp: refused")}
	s := NewStore(src, 0, nil)

	_, err := s.FetchAll(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, "Failed to fetch facilities", s.Snapshot().Error)
	assert.Empty(t, src.calls)
}

func TestFetchDetail(t *testing.T) {
	src := &stubSource{details: map[int64]models.Facility{5: {ID: 5, Name: "pool"}}}
	s := NewStore(src, 0, nil)

	f, err := s.FetchDetail(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "pool", f.Name)
	assert.Equal(t, f, s.Snapshot().Detail)

	_, err = s.FetchDetail(context.Background(), 6)
	require.Error(t, err)
	assert.Equal(t, "Facility not found", s.Snapshot().Error)
}
