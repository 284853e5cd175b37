package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
)

type fakeProgressSrv struct {
	update dto.UpdateProgressRequest
	rate   dto.RateContentRequest
}

func (f *fakeProgressSrv) Get(context.Context, models.Principal, int64) (*dto.ProgressView, error) {
	return &dto.ProgressView{}, nil
}

func (f *fakeProgressSrv) Update(_ context.Context, _ models.Principal, _ int64, req dto.UpdateProgressRequest) (*dto.ProgressView, error) {
	f.update = req
	if req.Progress == nil {
		return nil, appErrors.Validation(map[string]string{"progress": "this field is required"})
	}
	return &dto.ProgressView{Progress: *req.Progress}, nil
}

func (f *fakeProgressSrv) Complete(context.Context, models.Principal, int64) (*dto.ProgressView, error) {
	return &dto.ProgressView{Progress: 100, IsCompleted: true}, nil
}

func (f *fakeProgressSrv) SubjectProgress(context.Context, models.Principal, int64) (*dto.SubjectProgressView, error) {
	return &dto.SubjectProgressView{TotalContents: 3}, nil
}

func (f *fakeProgressSrv) Rate(_ context.Context, _ models.Principal, _ int64, req dto.RateContentRequest) (*dto.RatingView, error) {
	f.rate = req
	return &dto.RatingView{Rating: req.Rating}, nil
}

func (f *fakeProgressSrv) Rating(context.Context, models.Principal, int64) (*dto.RatingView, error) {
	return nil, nil
}

func (f *fakeProgressSrv) List(context.Context, models.Principal) ([]dto.ProgressListItem, error) {
	return []dto.ProgressListItem{}, nil
}

func TestProgressHandlerUpdate(t *testing.T) {
	srv := &fakeProgressSrv{}
	h := NewProgressHandler(srv)

	c, rec := newContext(http.MethodPost, "/contents/1/progress", `{"progress":40,"time_spent":300}`, true, "id", "1")
	h.Update(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(300), *srv.update.TimeSpent)
	assert.Equal(t, "Progress updated", decodeEnvelope(t, rec).Message)

	c, rec = newContext(http.MethodPost, "/contents/1/progress", `{}`, true, "id", "1")
	h.Update(c)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Errors, "progress")
}

func TestProgressHandlerRateAndRating(t *testing.T) {
	srv := &fakeProgressSrv{}
	h := NewProgressHandler(srv)

	c, rec := newContext(http.MethodPost, "/contents/1/rate", `{"rating":5,"comment":"clair"}`, true, "id", "1")
	h.Rate(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, srv.rate.Rating)

	c, rec = newContext(http.MethodGet, "/contents/1/rating", nil, true, "id", "1")
	h.Rating(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)
}

func TestProgressHandlerRequiresPrincipal(t *testing.T) {
	h := NewProgressHandler(&fakeProgressSrv{})

	c, rec := newContext(http.MethodPost, "/contents/1/complete", nil, false, "id", "1")
	h.Complete(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
