package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
)

type fakeAcademicRepo struct {
	phases     []models.AcademicPhase
	years      []models.AcademicYear
	streams    []models.AcademicStream
	phaseCalls int
}

func (f *fakeAcademicRepo) ListPhases(ctx context.Context) ([]models.AcademicPhase, error) {
	f.phaseCalls++
	return f.phases, nil
}

func (f *fakeAcademicRepo) ListYears(ctx context.Context, phaseID *int64) ([]models.AcademicYear, error) {
	var out []models.AcademicYear
	for _, y := range f.years {
		if phaseID == nil || y.AcademicPhaseID == *phaseID {
			out = append(out, y)
		}
	}
	return out, nil
}

func (f *fakeAcademicRepo) ListStreams(ctx context.Context, yearID *int64) ([]models.AcademicStream, error) {
	var out []models.AcademicStream
	for _, s := range f.streams {
		if yearID == nil || s.AcademicYearID == *yearID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeAcademicRepo) StreamsByIDs(ctx context.Context, ids []int64) ([]models.AcademicStream, error) {
	wanted := models.NewIDSet(ids...)
	var out []models.AcademicStream
	for _, s := range f.streams {
		if wanted.Contains(s.ID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeAcademicRepo) FindActivePhase(ctx context.Context, id int64) (*models.AcademicPhase, error) {
	for _, p := range f.phases {
		if p.ID == id && p.IsActive {
			phase := p
			return &phase, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAcademicRepo) FindActiveYear(ctx context.Context, id int64) (*models.AcademicYear, error) {
	for _, y := range f.years {
		if y.ID == id && y.IsActive {
			year := y
			return &year, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAcademicRepo) FindActiveStream(ctx context.Context, id int64) (*models.AcademicStream, error) {
	for _, s := range f.streams {
		if s.ID == id && s.IsActive {
			stream := s
			return &stream, nil
		}
	}
	return nil, sql.ErrNoRows
}

// memoryCache stores JSON payloads the way the Redis repository does.
type memoryCache struct {
	entries map[string][]byte
	ttls    map[string]time.Duration
	failGet error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.failGet != nil {
		return m.failGet
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	m.ttls[key] = ttl
	return nil
}

func academicFixture() *fakeAcademicRepo {
	return &fakeAcademicRepo{
		phases: []models.AcademicPhase{
			{ID: 1, NameAr: "ثانوي", Slug: "secondary", Order: 1, IsActive: true},
			{ID: 2, NameAr: "متوسط", Slug: "middle", Order: 2, IsActive: true},
			{ID: 3, NameAr: "قديم", Slug: "old", Order: 3, IsActive: false},
		},
		years: []models.AcademicYear{
			{ID: 1, AcademicPhaseID: 1, NameAr: "السنة الثالثة", LevelNumber: intp(3), Order: 1, IsActive: true},
			{ID: 2, AcademicPhaseID: 1, NameAr: "السنة الثانية", LevelNumber: intp(2), Order: 2, IsActive: true},
		},
		streams: []models.AcademicStream{
			{ID: 3, AcademicYearID: 1, NameAr: "علوم تجريبية", Slug: "sciences", Order: 1, IsActive: true},
			{ID: 4, AcademicYearID: 1, NameAr: "آداب وفلسفة", Slug: "letters", Order: 2, IsActive: true},
			{ID: 5, AcademicYearID: 2, NameAr: "رياضيات", Slug: "maths", Order: 1, IsActive: true},
		},
	}
}

func TestAcademicStructureBuildsTreeAndCaches(t *testing.T) {
	repo := academicFixture()
	store := newMemoryCache()
	svc := NewAcademicService(repo, &fakeProfileRepo{}, NewCacheService(store, nil, time.Hour, nil, true), nil, nil)

	structure, err := svc.Structure(context.Background())
	require.NoError(t, err)
	require.Len(t, structure.Phases, 3)
	require.Len(t, structure.Phases[0].Years, 2)
	assert.Len(t, structure.Phases[0].Years[0].Streams, 2)
	assert.Equal(t, "letters", structure.Phases[0].Years[0].Streams[1].Slug)
	assert.NotNil(t, structure.Phases[1].Years)
	assert.Empty(t, structure.Phases[1].Years)
	assert.Contains(t, store.entries, "memo:academic:structure")

	again, err := svc.Structure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.phaseCalls)
	assert.Equal(t, structure.Phases[0].Years[1].Streams[0].ID, again.Phases[0].Years[1].Streams[0].ID)
}

func TestAcademicStructureIgnoresCacheErrors(t *testing.T) {
	repo := academicFixture()
	store := newMemoryCache()
	store.failGet = errors.New("redis down")
	svc := NewAcademicService(repo, &fakeProfileRepo{}, NewCacheService(store, nil, time.Hour, nil, true), nil, nil)

	_, err := svc.Structure(context.Background())
	require.NoError(t, err)
	_, err = svc.Structure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.phaseCalls)
}

func TestAcademicPhaseYearsAndYearStreams(t *testing.T) {
	svc := NewAcademicService(academicFixture(), &fakeProfileRepo{}, nil, nil, nil)

	years, err := svc.PhaseYears(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, dto.AcademicRef{ID: 1, NameAr: "ثانوي"}, years.Phase)
	require.Len(t, years.Years, 2)
	assert.Equal(t, 3, *years.Years[0].LevelNumber)

	_, err = svc.PhaseYears(context.Background(), 3)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))

	streams, err := svc.YearStreams(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, streams.Streams, 1)
	assert.Equal(t, "maths", streams.Streams[0].Slug)

	_, err = svc.YearStreams(context.Background(), 42)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}

func TestAcademicUpdateProfile(t *testing.T) {
	profiles := &fakeProfileRepo{}
	svc := NewAcademicService(academicFixture(), profiles, nil, nil, nil)

	view, err := svc.UpdateProfile(context.Background(), student, dto.UpdateAcademicProfileRequest{AcademicYearID: 1, AcademicStreamID: i64(4)})
	require.NoError(t, err)
	assert.True(t, view.IsComplete)
	assert.Equal(t, "آداب وفلسفة", view.Stream.NameAr)
	require.NotNil(t, profiles.saved)
	assert.Equal(t, int64(4), *profiles.saved.AcademicStreamID)

	got, err := svc.GetProfile(context.Background(), student)
	require.NoError(t, err)
	assert.Equal(t, int64(1), *got.AcademicYearID)
}

func TestAcademicUpdateProfileRejectsForeignStream(t *testing.T) {
	profiles := &fakeProfileRepo{}
	svc := NewAcademicService(academicFixture(), profiles, nil, nil, nil)

	_, err := svc.UpdateProfile(context.Background(), student, dto.UpdateAcademicProfileRequest{AcademicYearID: 1, AcademicStreamID: i64(5)})
	assert.Contains(t, appErrors.FromError(err).Fields, "academic_stream_id")

	_, err = svc.UpdateProfile(context.Background(), student, dto.UpdateAcademicProfileRequest{AcademicYearID: 77})
	assert.Contains(t, appErrors.FromError(err).Fields, "academic_year_id")

	_, err = svc.UpdateProfile(context.Background(), student, dto.UpdateAcademicProfileRequest{})
	assert.Contains(t, appErrors.FromError(err).Fields, "academic_year_id")
	assert.Nil(t, profiles.saved)
}

func TestAcademicGetProfileMissing(t *testing.T) {
	svc := NewAcademicService(academicFixture(), &fakeProfileRepo{}, nil, nil, nil)

	view, err := svc.GetProfile(context.Background(), student)
	require.NoError(t, err)
	assert.False(t, view.IsComplete)
	assert.Nil(t, view.AcademicYearID)
}
