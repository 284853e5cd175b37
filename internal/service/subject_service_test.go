package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
)

func listingSubjects() *fakeSubjectRepo {
	return &fakeSubjectRepo{
		subjects: []models.Subject{
			{ID: 1, NameAr: "رياضيات", AcademicYearID: i64(1), AcademicStreamIDs: models.NewIDSet(3, 4), Coefficient: f64(5), IsActive: true},
			{ID: 2, NameAr: "علوم طبيعية", AcademicYearID: i64(1), AcademicStreamIDs: models.NewIDSet(3), Coefficient: f64(6), IsActive: true},
			{ID: 3, NameAr: "فلسفة", AcademicYearID: i64(1), IsActive: true},
			{ID: 4, NameAr: "أدب عربي", AcademicYearID: i64(1), AcademicStreamIDs: models.NewIDSet(4), Coefficient: f64(6), IsActive: true},
			{ID: 5, NameAr: "رياضيات", AcademicYearID: i64(2), IsActive: true},
		},
		overrides: []models.SubjectStream{
			{SubjectID: 1, AcademicStreamID: 4, Coefficient: 2},
			{SubjectID: 3, AcademicStreamID: 4, Coefficient: 4},
		},
	}
}

type fakeChapterReader struct {
	chapters []models.ChapterCounts
	total    int
}

func (f *fakeChapterReader) ListChapters(ctx context.Context, subjectID int64, streamID *int64) ([]models.ChapterCounts, error) {
	return f.chapters, nil
}

func (f *fakeChapterReader) CountPublishedBySubject(ctx context.Context, subjectID int64) (int, error) {
	return f.total, nil
}

func newTestSubjectService(subjects *fakeSubjectRepo, profiles *fakeProfileRepo, cacheSvc *CacheService) *SubjectService {
	return NewSubjectService(subjects, academicFixture(), &fakeChapterReader{}, NewScopeResolver(profiles), cacheSvc, nil, nil)
}

func subjectIDs(items []dto.SubjectItem) []int64 {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func TestSubjectListStreamVisibility(t *testing.T) {
	svc := newTestSubjectService(listingSubjects(), &fakeProfileRepo{}, nil)

	items, err := svc.List(context.Background(), nil, dto.SubjectQuery{YearID: i64(1), StreamID: i64(4)})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4}, subjectIDs(items))

	items, err = svc.List(context.Background(), nil, dto.SubjectQuery{YearID: i64(1), StreamID: i64(3)})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, subjectIDs(items))
}

func TestSubjectListCoefficientOverride(t *testing.T) {
	svc := newTestSubjectService(listingSubjects(), &fakeProfileRepo{}, nil)

	items, err := svc.List(context.Background(), nil, dto.SubjectQuery{StreamID: i64(4)})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4, 5}, subjectIDs(items))
	assert.Equal(t, 2.0, *items[0].Coefficient)
	assert.Equal(t, 4.0, *items[1].Coefficient)
	assert.Equal(t, 6.0, *items[2].Coefficient)
	assert.Nil(t, items[3].Coefficient)

	items, err = svc.List(context.Background(), nil, dto.SubjectQuery{YearID: i64(1)})
	require.NoError(t, err)
	assert.Equal(t, 5.0, *items[0].Coefficient)
	assert.Nil(t, items[2].Coefficient)
}

func TestSubjectListScopePrecedence(t *testing.T) {
	subjects := listingSubjects()
	profiles := &fakeProfileRepo{profiles: map[int64]*models.AcademicProfile{
		student.UserID: {UserID: student.UserID, AcademicYearID: i64(1), AcademicStreamID: i64(3)},
	}}
	svc := newTestSubjectService(subjects, profiles, nil)

	_, err := svc.List(context.Background(), &student, dto.SubjectQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), *subjects.lastList.YearID)
	assert.Equal(t, int64(3), *subjects.lastList.StreamID)
	assert.True(t, subjects.lastList.OnlyWithContents)

	_, err = svc.List(context.Background(), &student, dto.SubjectQuery{YearID: i64(2)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), *subjects.lastList.YearID)
	assert.Nil(t, subjects.lastList.StreamID)
}

func TestSubjectListScopeRequired(t *testing.T) {
	svc := newTestSubjectService(listingSubjects(), &fakeProfileRepo{}, nil)

	_, err := svc.List(context.Background(), &student, dto.SubjectQuery{})
	appErr := appErrors.FromError(err)
	assert.Equal(t, "SCOPE_REQUIRED", appErr.Code)
	assert.Equal(t, 400, appErr.Status)

	_, err = svc.List(context.Background(), nil, dto.SubjectQuery{})
	assert.True(t, appErrors.Is(err, "SCOPE_REQUIRED"))
}

func TestSubjectListUsesCache(t *testing.T) {
	subjects := listingSubjects()
	store := newMemoryCache()
	svc := newTestSubjectService(subjects, &fakeProfileRepo{}, NewCacheService(store, nil, time.Hour, nil, true))

	first, err := svc.List(context.Background(), nil, dto.SubjectQuery{YearID: i64(1), StreamID: i64(3)})
	require.NoError(t, err)
	calls := subjects.calls
	assert.Contains(t, store.entries, "memo:subjects:list:1:3")

	second, err := svc.List(context.Background(), nil, dto.SubjectQuery{YearID: i64(1), StreamID: i64(3)})
	require.NoError(t, err)
	assert.Equal(t, calls, subjects.calls)
	assert.Equal(t, subjectIDs(first), subjectIDs(second))
}

func TestSubjectListCacheEntriesExpireWithDefaultTTL(t *testing.T) {
	store := newMemoryCache()
	svc := newTestSubjectService(listingSubjects(), &fakeProfileRepo{}, NewCacheService(store, nil, 30*time.Minute, nil, true))

	_, err := svc.List(context.Background(), nil, dto.SubjectQuery{YearID: i64(1), StreamID: i64(3)})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, store.ttls["memo:subjects:list:1:3"])
}

func TestSubjectByAcademicValidatesScope(t *testing.T) {
	profiles := &fakeProfileRepo{profiles: map[int64]*models.AcademicProfile{
		student.UserID: {UserID: student.UserID, AcademicYearID: i64(1), AcademicStreamID: i64(3)},
	}}
	subjects := listingSubjects()
	svc := newTestSubjectService(subjects, profiles, nil)

	items, err := svc.ByAcademic(context.Background(), dto.SubjectQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 5)
	assert.False(t, subjects.lastList.OnlyWithContents)

	_, err = svc.ByAcademic(context.Background(), dto.SubjectQuery{YearID: i64(99)})
	assert.Contains(t, appErrors.FromError(err).Fields, "year_id")

	_, err = svc.ByAcademic(context.Background(), dto.SubjectQuery{StreamID: i64(99)})
	assert.Contains(t, appErrors.FromError(err).Fields, "stream_id")
}

func TestSubjectGetDetail(t *testing.T) {
	subjects := listingSubjects()
	profiles := &fakeProfileRepo{profiles: map[int64]*models.AcademicProfile{
		student.UserID: {UserID: student.UserID, AcademicYearID: i64(1), AcademicStreamID: i64(4)},
	}}
	chapters := &fakeChapterReader{
		chapters: []models.ChapterCounts{
			{ContentChapter: models.ContentChapter{ID: 8, TitleAr: "الدوال"}, ContentsCount: 4},
			{ContentChapter: models.ContentChapter{ID: 9, TitleAr: "المتتاليات"}, ContentsCount: 2},
		},
		total: 7,
	}
	svc := NewSubjectService(subjects, academicFixture(), chapters, NewScopeResolver(profiles), nil, nil, nil)

	detail, err := svc.Get(context.Background(), &student, 1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, *detail.Subject.Coefficient)
	require.Len(t, detail.Subject.AcademicStreams, 2)
	assert.Equal(t, "علوم تجريبية", detail.Subject.AcademicStreams[0].NameAr)
	assert.Equal(t, dto.SubjectStats{TotalContents: 7, TotalChapters: 2}, detail.Stats)
	assert.Equal(t, 4, detail.Chapters[0].ContentsCount)

	anonymous, err := svc.Get(context.Background(), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 5.0, *anonymous.Subject.Coefficient)

	_, err = svc.Get(context.Background(), nil, 404)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}

func TestSubjectCoefficient(t *testing.T) {
	svc := newTestSubjectService(listingSubjects(), &fakeProfileRepo{}, nil)

	cases := []struct {
		name      string
		subjectID int64
		streamID  int64
		want      float64
	}{
		{name: "override wins", subjectID: 1, streamID: 4, want: 2},
		{name: "subject default", subjectID: 1, streamID: 3, want: 5},
		{name: "fallback one", subjectID: 3, streamID: 3, want: 1},
		{name: "override without default", subjectID: 3, streamID: 4, want: 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.Coefficient(context.Background(), tc.subjectID, tc.streamID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
