package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/memo-edu/memo-api/internal/models"
)

const contentColumns = `c.id, c.subject_id, c.academic_stream_id, c.content_type_id, c.chapter_id, c.title_ar, c.title_fr,
c.description_ar, c.description_fr, c.content_body_ar, c.content_body_fr, c.slug, c.difficulty_level,
c.estimated_duration_minutes, c."order", c.has_file, c.file_path, c.file_type, c.file_size, c.has_video, c.video_url,
c.is_published, c.published_at, c.is_premium, c.tags, c.search_keywords, c.views_count, c.downloads_count,
c.created_at, c.updated_at`

const contentDetailSelect = `SELECT ` + contentColumns + `,
s.name_ar AS subject_name_ar, s.name_fr AS subject_name_fr, s.color AS subject_color, s.icon AS subject_icon,
t.name_ar AS type_name_ar, t.name_fr AS type_name_fr, t.icon AS type_icon,
ch.title_ar AS chapter_title_ar, ch.title_fr AS chapter_title_fr,
st.name_ar AS stream_name_ar,
(SELECT AVG(r.rating)::float8 FROM content_ratings r WHERE r.content_id = c.id) AS average_rating,
(SELECT COUNT(*) FROM content_ratings r WHERE r.content_id = c.id) AS total_ratings`

const contentDetailFrom = ` FROM contents c
JOIN subjects s ON s.id = c.subject_id
JOIN content_types t ON t.id = c.content_type_id
LEFT JOIN content_chapters ch ON ch.id = c.chapter_id
LEFT JOIN academic_streams st ON st.id = c.academic_stream_id`

const chapterColumns = `ch.id, ch.subject_id, ch.academic_stream_id, ch.title_ar, ch.title_fr, ch.slug, ch.description_ar, ch.description_fr, ch."order", ch.is_active`

// ContentRepository reads published contents, chapters and content types.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository creates a new repository instance.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

func publishedWhere() whereBuilder {
	var where whereBuilder
	where.add("c.is_published = TRUE")
	where.add("c.deleted_at IS NULL")
	return where
}

// List returns a page of published contents and the total matching count.
// A non-empty Search ranks title matches before description matches.
func (r *ContentRepository) List(ctx context.Context, filter models.ContentFilter) ([]models.ContentDetail, int, error) {
	where := publishedWhere()
	if filter.StreamID != nil {
		where.addStreamColumn("c.academic_stream_id", *filter.StreamID)
	}
	if filter.SubjectID != nil {
		where.add("c.subject_id = ?", *filter.SubjectID)
	}
	if filter.ChapterID != nil {
		where.add("c.chapter_id = ?", *filter.ChapterID)
	}
	if filter.ContentTypeID != nil {
		where.add("c.content_type_id = ?", *filter.ContentTypeID)
	}
	if filter.Difficulty != "" {
		where.add("c.difficulty_level = ?", filter.Difficulty)
	}
	if filter.Premium != nil {
		where.add("c.is_premium = ?", *filter.Premium)
	}

	orderClause := contentOrder(filter)
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		where.add("(c.title_ar ILIKE ? OR c.description_ar ILIKE ? OR c.search_keywords ILIKE ? OR c.tags @> jsonb_build_array(?::text))",
			pattern, pattern, pattern, filter.Search)
		titleArg := where.next()
		where.args = append(where.args, pattern)
		descArg := where.next()
		where.args = append(where.args, pattern)
		orderClause = fmt.Sprintf(`CASE WHEN c.title_ar ILIKE %s THEN 1 WHEN c.description_ar ILIKE %s THEN 2 ELSE 3 END, c."order", c.id`, titleArg, descArg)
	}

	page, perPage := normalisePage(filter.Page, filter.PerPage)
	query := fmt.Sprintf("%s%s%s ORDER BY %s LIMIT %d OFFSET %d",
		contentDetailSelect, contentDetailFrom, where.sql(), orderClause, perPage, (page-1)*perPage)

	var contents []models.ContentDetail
	if err := r.db.SelectContext(ctx, &contents, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list contents: %w", err)
	}

	countArgs := where.args
	if filter.Search != "" {
		countArgs = where.args[:len(where.args)-2]
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM contents c"+where.sql(), countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count contents: %w", err)
	}

	return contents, total, nil
}

// FindPublished returns a published content with its relations.
func (r *ContentRepository) FindPublished(ctx context.Context, id int64) (*models.ContentDetail, error) {
	where := publishedWhere()
	where.add("c.id = ?", id)
	var content models.ContentDetail
	if err := r.db.GetContext(ctx, &content, contentDetailSelect+contentDetailFrom+where.sql(), where.args...); err != nil {
		return nil, err
	}
	return &content, nil
}

// PublishedExists reports whether id is a published content.
func (r *ContentRepository) PublishedExists(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM contents WHERE id = $1 AND is_published = TRUE AND deleted_at IS NULL)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check content: %w", err)
	}
	return exists, nil
}

// IncrementViews bumps the view counter.
func (r *ContentRepository) IncrementViews(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE contents SET views_count = views_count + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

// IncrementDownloads bumps the download counter.
func (r *ContentRepository) IncrementDownloads(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE contents SET downloads_count = downloads_count + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment downloads: %w", err)
	}
	return nil
}

// ListByChapter returns published contents of a chapter visible to the stream.
func (r *ContentRepository) ListByChapter(ctx context.Context, chapterID int64, streamID *int64) ([]models.ContentDetail, error) {
	where := publishedWhere()
	where.add("c.chapter_id = ?", chapterID)
	if streamID != nil {
		where.addStreamColumn("c.academic_stream_id", *streamID)
	}
	query := contentDetailSelect + contentDetailFrom + where.sql() + ` ORDER BY c."order", c.id`
	var contents []models.ContentDetail
	if err := r.db.SelectContext(ctx, &contents, query, where.args...); err != nil {
		return nil, fmt.Errorf("list chapter contents: %w", err)
	}
	return contents, nil
}

// CountPublishedBySubject counts published contents of a subject.
func (r *ContentRepository) CountPublishedBySubject(ctx context.Context, subjectID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM contents WHERE subject_id = $1 AND is_published = TRUE AND deleted_at IS NULL`
	var count int
	if err := r.db.GetContext(ctx, &count, query, subjectID); err != nil {
		return 0, fmt.Errorf("count subject contents: %w", err)
	}
	return count, nil
}

// ListTypes returns every content type.
func (r *ContentRepository) ListTypes(ctx context.Context) ([]models.ContentType, error) {
	var types []models.ContentType
	if err := r.db.SelectContext(ctx, &types, `SELECT id, name_ar, name_fr, slug, icon FROM content_types ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list content types: %w", err)
	}
	return types, nil
}

// FindActiveChapter returns an active chapter by id.
func (r *ContentRepository) FindActiveChapter(ctx context.Context, id int64) (*models.ContentChapter, error) {
	query := `SELECT ` + chapterColumns + ` FROM content_chapters ch WHERE ch.id = $1 AND ch.is_active = TRUE`
	var chapter models.ContentChapter
	if err := r.db.GetContext(ctx, &chapter, query, id); err != nil {
		return nil, err
	}
	return &chapter, nil
}

// ListChapters returns a subject's active chapters with published content counters.
// With a stream, both chapters and counted contents are limited to shared rows or that stream.
func (r *ContentRepository) ListChapters(ctx context.Context, subjectID int64, streamID *int64) ([]models.ChapterCounts, error) {
	args := []interface{}{subjectID}
	joinStream, chapterStream := "", ""
	if streamID != nil {
		args = append(args, *streamID)
		joinStream = " AND (c.academic_stream_id IS NULL OR c.academic_stream_id = $2)"
		chapterStream = " AND (ch.academic_stream_id IS NULL OR ch.academic_stream_id = $2)"
	}

	query := fmt.Sprintf(`SELECT %s,
COUNT(c.id) FILTER (WHERE c.content_type_id = %d) AS lessons_count,
COUNT(c.id) FILTER (WHERE c.content_type_id = %d) AS summaries_count,
COUNT(c.id) FILTER (WHERE c.content_type_id = %d) AS exercises_count,
COUNT(c.id) FILTER (WHERE c.content_type_id = %d) AS tests_count,
COUNT(c.id) AS contents_count
FROM content_chapters ch
LEFT JOIN contents c ON c.chapter_id = ch.id AND c.is_published = TRUE AND c.deleted_at IS NULL%s
WHERE ch.subject_id = $1 AND ch.is_active = TRUE%s
GROUP BY ch.id
ORDER BY ch."order", ch.id`,
		chapterColumns,
		models.ContentTypeLesson, models.ContentTypeSummary, models.ContentTypeExercise, models.ContentTypeTest,
		joinStream, chapterStream)

	var chapters []models.ChapterCounts
	if err := r.db.SelectContext(ctx, &chapters, query, args...); err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	return chapters, nil
}

func contentOrder(filter models.ContentFilter) string {
	column := filter.OrderBy
	if !models.ContentSortColumns[column] {
		column = "order"
	}
	direction := "ASC"
	if filter.OrderDesc {
		direction = "DESC"
	}
	return fmt.Sprintf(`c.%q %s, c.id`, column, direction)
}

func normalisePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 50 {
		perPage = 50
	}
	return page, perPage
}

func likePattern(term string) string {
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + escaper.Replace(term) + "%"
}
