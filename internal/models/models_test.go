package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(41, 20, 3)
	assert.Equal(t, 3, p.LastPage)
	assert.Equal(t, 3, p.CurrentPage)

	empty := NewPagination(0, 20, 0)
	assert.Equal(t, 1, empty.LastPage)
	assert.Equal(t, 1, empty.CurrentPage)
}

func TestSubjectVisibleToStream(t *testing.T) {
	shared := Subject{ID: 1}
	restricted := Subject{ID: 2, AcademicStreamIDs: NewIDSet(7)}

	assert.True(t, shared.VisibleToStream(7))
	assert.True(t, shared.VisibleToStream(9))
	assert.True(t, restricted.VisibleToStream(7))
	assert.False(t, restricted.VisibleToStream(9))
}

func TestSubjectCategoryWeight(t *testing.T) {
	assert.Equal(t, 1.10, CategoryHardCore.Weight())
	assert.Equal(t, 0.95, CategoryLanguage.Weight())
	assert.Equal(t, 1.00, CategoryMemorization.Weight())
	assert.Equal(t, 1.00, CategoryOther.Weight())
	assert.False(t, SubjectCategory("ELECTIVE").Valid())
}

func TestAcademicProfileComplete(t *testing.T) {
	year, stream := int64(3), int64(7)
	var nilProfile *AcademicProfile

	assert.False(t, nilProfile.Complete())
	assert.False(t, (&AcademicProfile{AcademicYearID: &year}).Complete())
	assert.True(t, (&AcademicProfile{AcademicYearID: &year, AcademicStreamID: &stream}).Complete())
}
