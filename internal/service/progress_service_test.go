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

func newTestProgressService(repo *fakeProgressRepo, now time.Time) *ProgressService {
	svc := NewProgressService(repo, newFakeContentRepo(contentFixture()...), &fakeSubjectRepo{subjects: plannerSubjects()}, nil, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestProgressGetZeroState(t *testing.T) {
	svc := newTestProgressService(newFakeProgressRepo(), time.Now())

	view, err := svc.Get(context.Background(), student, 1)
	require.NoError(t, err)
	assert.Equal(t, dto.ProgressView{}, *view)

	_, err = svc.Get(context.Background(), student, 4)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}

func TestProgressUpdateKeepsStartAndReplacesTime(t *testing.T) {
	repo := newFakeProgressRepo()
	first := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestProgressService(repo, first)

	view, err := svc.Update(context.Background(), student, 1, dto.UpdateProgressRequest{Progress: intp(40), TimeSpent: i64(300)})
	require.NoError(t, err)
	assert.Equal(t, models.ProgressInProgress, view.Status)
	assert.False(t, view.IsCompleted)
	assert.Nil(t, view.CompletedAt)
	assert.Equal(t, int64(300), *view.TimeSpentSeconds)

	later := first.Add(time.Hour)
	svc.now = func() time.Time { return later }
	view, err = svc.Update(context.Background(), student, 1, dto.UpdateProgressRequest{Progress: intp(100), TimeSpent: i64(120)})
	require.NoError(t, err)
	assert.Equal(t, models.ProgressCompleted, view.Status)
	assert.True(t, view.IsCompleted)
	assert.Equal(t, later, *view.CompletedAt)
	assert.Equal(t, first, *view.StartedAt)
	assert.Equal(t, int64(120), *view.TimeSpentSeconds)
}

func TestProgressUpdateValidation(t *testing.T) {
	svc := newTestProgressService(newFakeProgressRepo(), time.Now())

	_, err := svc.Update(context.Background(), student, 1, dto.UpdateProgressRequest{Progress: intp(101)})
	assert.Contains(t, appErrors.FromError(err).Fields, "progress")

	_, err = svc.Update(context.Background(), student, 1, dto.UpdateProgressRequest{})
	assert.Contains(t, appErrors.FromError(err).Fields, "progress")

	_, err = svc.Update(context.Background(), student, 4, dto.UpdateProgressRequest{Progress: intp(10)})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}

func TestProgressCompleteKeepsTimeSpent(t *testing.T) {
	repo := newFakeProgressRepo()
	repo.rows[2] = &models.ContentProgress{UserID: student.UserID, ContentID: 2, ProgressPercentage: 60, TimeSpentSeconds: 900}
	svc := newTestProgressService(repo, time.Now())

	view, err := svc.Complete(context.Background(), student, 2)
	require.NoError(t, err)
	assert.Equal(t, 100, view.Progress)
	assert.True(t, view.IsCompleted)
	assert.Equal(t, int64(900), *view.TimeSpentSeconds)
	assert.NotNil(t, view.CompletedAt)
}

func TestProgressSubjectSummary(t *testing.T) {
	repo := newFakeProgressRepo()
	repo.stats = models.SubjectProgressStats{TotalContents: 3, CompletedContents: 1, InProgressContents: 1, TotalTimeSpent: 5000}
	svc := newTestProgressService(repo, time.Now())

	view, err := svc.SubjectProgress(context.Background(), student, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, view.NotStartedContents)
	assert.Equal(t, 33.33, view.CompletionPercentage)
	assert.Equal(t, 1.39, view.TotalTimeSpentHours)

	repo.stats = models.SubjectProgressStats{}
	view, err = svc.SubjectProgress(context.Background(), student, 10)
	require.NoError(t, err)
	assert.Zero(t, view.CompletionPercentage)

	_, err = svc.SubjectProgress(context.Background(), student, 999)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}

func TestProgressRating(t *testing.T) {
	repo := newFakeProgressRepo()
	svc := newTestProgressService(repo, time.Now())

	none, err := svc.Rating(context.Background(), student, 1)
	require.NoError(t, err)
	assert.Nil(t, none)

	rated, err := svc.Rate(context.Background(), student, 1, dto.RateContentRequest{Rating: 4, Comment: str("clair")})
	require.NoError(t, err)
	assert.Equal(t, 4, rated.Rating)
	assert.Nil(t, rated.UpdatedAt)

	stored, err := svc.Rating(context.Background(), student, 1)
	require.NoError(t, err)
	assert.Equal(t, "clair", *stored.Comment)
	assert.NotNil(t, stored.UpdatedAt)

	_, err = svc.Rate(context.Background(), student, 1, dto.RateContentRequest{Rating: 6})
	assert.Contains(t, appErrors.FromError(err).Fields, "rating")
}

func TestProgressList(t *testing.T) {
	repo := newFakeProgressRepo()
	repo.rows[1] = &models.ContentProgress{UserID: student.UserID, ContentID: 1, ProgressPercentage: 20}
	repo.rows[3] = &models.ContentProgress{UserID: 99, ContentID: 3, ProgressPercentage: 50}
	svc := newTestProgressService(repo, time.Now())

	items, err := svc.List(context.Background(), student)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].Content.ID)
	assert.Equal(t, 20, items[0].Progress)
}
