package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
)

type fakePlannerSrv struct {
	batchResult *dto.BatchCreatePlannerSubjectsResult
	batchErr    error
	lastBatch   dto.BatchCreatePlannerSubjectsRequest
	listItems   []dto.PlannerListItem
	upsert      *dto.UpsertPlannerSubjectResult
	lastUpsert  dto.UpdatePlannerSubjectRequest
	lastID      int64
	principal   models.Principal
	export      *dto.PlannerExport
	deleteErr   error
}

func (f *fakePlannerSrv) BatchCreate(_ context.Context, p models.Principal, req dto.BatchCreatePlannerSubjectsRequest) (*dto.BatchCreatePlannerSubjectsResult, error) {
	f.principal = p
	f.lastBatch = req
	return f.batchResult, f.batchErr
}

func (f *fakePlannerSrv) List(_ context.Context, p models.Principal) ([]dto.PlannerListItem, error) {
	f.principal = p
	return f.listItems, nil
}

func (f *fakePlannerSrv) Get(_ context.Context, _ models.Principal, id int64) (*models.PlannerSubject, error) {
	f.lastID = id
	return &models.PlannerSubject{ID: id, SubjectID: 10}, nil
}

func (f *fakePlannerSrv) Upsert(_ context.Context, _ models.Principal, id int64, req dto.UpdatePlannerSubjectRequest) (*dto.UpsertPlannerSubjectResult, error) {
	f.lastID = id
	f.lastUpsert = req
	return f.upsert, nil
}

func (f *fakePlannerSrv) Delete(_ context.Context, _ models.Principal, id int64) error {
	f.lastID = id
	return f.deleteErr
}

func (f *fakePlannerSrv) Export(_ context.Context, _ models.Principal, _ dto.PlannerExportQuery) (*dto.PlannerExport, error) {
	return f.export, nil
}

func TestPlannerHandlerBatchCreate(t *testing.T) {
	srv := &fakePlannerSrv{batchResult: &dto.BatchCreatePlannerSubjectsResult{CreatedCount: 2, Subjects: []models.PlannerSubject{{ID: 1}, {ID: 2}}}}
	h := NewPlannerHandler(srv)

	c, rec := newContext(http.MethodPost, "/planner/subjects/batch", map[string]interface{}{
		"subjects": []map[string]interface{}{
			{"subject_id": 1, "difficulty_level": 3, "priority": "high"},
			{"subject_id": 2, "difficulty_level": 2, "priority": "low"},
		},
	}, true)
	h.BatchCreate(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "2 subjects added to planner", env.Message)
	assert.Equal(t, testPrincipal, srv.principal)
	require.Len(t, srv.lastBatch.Subjects, 2)
	assert.Equal(t, "high", srv.lastBatch.Subjects[0].Priority)
}

func TestPlannerHandlerBatchDuplicateInRequest(t *testing.T) {
	h := NewPlannerHandler(&fakePlannerSrv{batchErr: appErrors.Clone(appErrors.ErrDuplicateInRequest, "duplicate subject in request")})

	c, rec := newContext(http.MethodPost, "/planner/subjects/batch", map[string]interface{}{
		"subjects": []map[string]interface{}{
			{"subject_id": 1, "difficulty_level": 3, "priority": "high"},
			{"subject_id": 1, "difficulty_level": 2, "priority": "low"},
		},
	}, true)
	h.BatchCreate(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "DUPLICATE_IN_REQUEST", env.Error)
}

func TestPlannerHandlerBatchDuplicateSubjectCarriesData(t *testing.T) {
	err := appErrors.WithData(appErrors.ErrDuplicateSubject, "subject 11 already exists in planner", dto.DuplicateSubjectData{SubjectID: 11, ExistingPlannerSubjectID: 55})
	h := NewPlannerHandler(&fakePlannerSrv{batchErr: err})

	c, rec := newContext(http.MethodPost, "/planner/subjects/batch", `{"subjects":[{"subject_id":11,"difficulty_level":3,"priority":"high"}]}`, true)
	h.BatchCreate(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "DUPLICATE_SUBJECT", env.Error)
	assert.JSONEq(t, `{"subject_id":11,"existing_planner_subject_id":55}`, string(env.Data))
}

func TestPlannerHandlerBatchRejectsMalformedJSON(t *testing.T) {
	srv := &fakePlannerSrv{}
	h := NewPlannerHandler(srv)

	c, rec := newContext(http.MethodPost, "/planner/subjects/batch", `{"subjects":`, true)
	h.BatchCreate(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, srv.principal.UserID)
}

func TestPlannerHandlerListWithoutProfile(t *testing.T) {
	h := NewPlannerHandler(&fakePlannerSrv{})

	c, rec := newContext(http.MethodGet, "/planner/subjects", nil, true)
	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "Academic profile not configured", env.Message)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestPlannerHandlerListRequiresPrincipal(t *testing.T) {
	h := NewPlannerHandler(&fakePlannerSrv{})

	c, rec := newContext(http.MethodGet, "/planner/subjects", nil, false)
	h.List(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlannerHandlerUpdateKeepsExplicitNull(t *testing.T) {
	srv := &fakePlannerSrv{upsert: &dto.UpsertPlannerSubjectResult{ID: 10, DifficultyLevel: 4, Outcome: models.OutcomeCreated}}
	h := NewPlannerHandler(srv)

	c, rec := newContext(http.MethodPut, "/planner/subjects/10", `{"difficulty_level":7,"last_year_average":null}`, true, "id", "10")
	h.Update(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(10), srv.lastID)
	assert.Equal(t, 7, *srv.lastUpsert.DifficultyLevel)
	assert.True(t, srv.lastUpsert.LastYearAverage.Set)
	assert.Nil(t, srv.lastUpsert.LastYearAverage.Value)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Subject added to planner", env.Message)
	assert.JSONEq(t, `{"id":10,"difficulty_level":4,"last_year_average":null,"outcome":"created"}`, string(env.Data))
}

func TestPlannerHandlerInvalidIDAndDeleteMissing(t *testing.T) {
	srv := &fakePlannerSrv{deleteErr: appErrors.Clone(appErrors.ErrNotFound, "planner subject not found")}
	h := NewPlannerHandler(srv)

	c, rec := newContext(http.MethodGet, "/planner/subjects/abc", nil, true, "id", "abc")
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newContext(http.MethodDelete, "/planner/subjects/99", nil, true, "id", "99")
	h.Delete(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, int64(99), srv.lastID)
}

func TestPlannerHandlerExport(t *testing.T) {
	h := NewPlannerHandler(&fakePlannerSrv{export: &dto.PlannerExport{FileName: "planner.csv", ContentType: "text/csv", Body: []byte("a,b\n")}})

	c, rec := newContext(http.MethodGet, "/planner/subjects/export?format=csv", nil, true)
	h.Export(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="planner.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", rec.Body.String())
}

func TestPlannerHandlerBatchWrongFieldTypes(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		field   string
		message string
	}{
		{"difficulty as text", `{"subjects":[{"subject_id":1,"difficulty_level":"hard","priority":"high"}]}`, "subjects.difficulty_level", "must be an integer"},
		{"fractional progress", `{"subjects":[{"subject_id":1,"difficulty_level":3,"priority":"high","progress_percentage":50.5}]}`, "subjects.progress_percentage", "must be an integer"},
		{"subjects not a list", `{"subjects":"nope"}`, "subjects", "must be an array"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := &fakePlannerSrv{}
			h := NewPlannerHandler(srv)

			c, rec := newContext(http.MethodPost, "/planner/subjects/batch", tc.body, true)
			h.BatchCreate(c)

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, "VALIDATION_ERROR", env.Error)
			assert.Equal(t, tc.message, env.Errors[tc.field])
			assert.Zero(t, srv.principal.UserID)
		})
	}
}
