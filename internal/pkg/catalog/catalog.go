// Package catalog filters and pages papers and books.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/app/repository"
)

const (
	PapersPerPage = 12
	BooksPerPage  = 9
)

// PaperFilter mirrors the query string of the papers list.
type PaperFilter struct {
	ClassID    uint   `query:"class"`
	SubjectID  uint   `query:"subject"`
	Period     string `query:"period"`
	SeriesID   uint   `query:"series"`
	Type       string `query:"type"`
	SchoolYear string `query:"school_year"`
	Query      string `query:"q"`
	Page       int    `query:"page"`
}

// Scopes turns the filter into repository scopes. Unknown or empty values
// are ignored rather than rejected.
func (f PaperFilter) Scopes() []repository.Scope {
	var scopes []repository.Scope
	if f.ClassID > 0 {
		id := f.ClassID
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return db.Where("exam_papers.class_id = ?", id) })
	}
	if f.SubjectID > 0 {
		id := f.SubjectID
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return db.Where("exam_papers.subject_id = ?", id) })
	}
	if period := strings.TrimSpace(f.Period); period != "" {
		if period == models.PeriodCodeExam {
			scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return db.Where("exam_papers.type IN ?", models.ExamPeriodTypes) })
		} else if id, err := strconv.ParseUint(period, 10, 64); err == nil && id > 0 {
			scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return db.Where("exam_papers.period_id = ?", id) })
		}
	}
	if f.SeriesID > 0 {
		id := f.SeriesID
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return db.Where("exam_papers.series_id = ?", id) })
	}
	if typ := strings.TrimSpace(f.Type); typ != "" && models.IsValidPaperType(typ) {
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return db.Where("exam_papers.type = ?", typ) })
	}
	if year := strings.TrimSpace(f.SchoolYear); year != "" {
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return db.Where("exam_papers.school_year = ?", year) })
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := containsPattern(q)
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB {
			return db.
				Joins("LEFT JOIN subjects ON subjects.id = exam_papers.subject_id").
				Joins("LEFT JOIN classes ON classes.id = exam_papers.class_id").
				Where("(exam_papers.title LIKE ? ESCAPE '!' OR subjects.name LIKE ? ESCAPE '!' OR "+
					"exam_papers.description LIKE ? ESCAPE '!' OR classes.name LIKE ? ESCAPE '!')",
					like, like, like, like)
		})
	}
	return scopes
}

// likeEscaper neutralises LIKE wildcards in user input; '!' is the ESCAPE
// character used by the search clauses.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern turns free text into a substring LIKE pattern.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

// IsEmpty reports whether no filter is applied.
func (f PaperFilter) IsEmpty() bool {
	return f.ClassID == 0 && f.SubjectID == 0 && f.Period == "" && f.SeriesID == 0 &&
		f.Type == "" && f.SchoolYear == "" && strings.TrimSpace(f.Query) == ""
}

// BookFilter mirrors the query string of the library list.
type BookFilter struct {
	Category string `query:"category"`
	Query    string `query:"q"`
	Format   string `query:"format"`
	Page     int    `query:"page"`
}

func (f BookFilter) Scopes() []repository.Scope {
	var scopes []repository.Scope
	if cat := strings.TrimSpace(f.Category); cat != "" {
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB {
			return db.Joins("JOIN categories ON categories.id = books.category_id").Where("categories.slug = ?", cat)
		})
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := containsPattern(q)
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB {
			return db.Where("(books.title LIKE ? ESCAPE '!' OR books.author LIKE ? ESCAPE '!' OR books.description LIKE ? ESCAPE '!')",
				like, like, like)
		})
	}
	switch f.Format {
	case models.BookFormatPDF, models.BookFormatEPUB, models.BookFormatBoth:
		format := f.Format
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return db.Where("books.format = ?", format) })
	}
	return scopes
}

// Page is one page of results plus navigation metadata.
type Page[T any] struct {
	Items      []T
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

func (p Page[T]) HasPrev() bool { return p.Page > 1 }
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages }
func (p Page[T]) PrevPage() int { return p.Page - 1 }
func (p Page[T]) NextPage() int { return p.Page + 1 }

// Pages lists every page number, for small paginators.
func (p Page[T]) Pages() []int {
	out := make([]int, 0, p.TotalPages)
	for i := 1; i <= p.TotalPages; i++ {
		out = append(out, i)
	}
	return out
}

// clampPage bounds a requested page to [1, last]. An empty result has one page.
func clampPage(requested int, total int64, size int) (page, pages int) {
	pages = int((total + int64(size) - 1) / int64(size))
	if pages < 1 {
		pages = 1
	}
	page = requested
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	return page, pages
}

type Service struct {
	repo    repository.CatalogRepository
	library repository.LibraryRepository
}

func NewService(repo repository.CatalogRepository, library repository.LibraryRepository) *Service {
	return &Service{repo: repo, library: library}
}

// Papers returns the requested page of active papers matching the filter.
func (s *Service) Papers(ctx context.Context, f PaperFilter) (Page[models.ExamPaper], error) {
	scopes := f.Scopes()
	// Count first so the page can be clamped before fetching.
	_, total, err := s.repo.FindPapers(ctx, 0, 0, scopes...)
	if err != nil {
		return Page[models.ExamPaper]{}, err
	}
	page, pages := clampPage(f.Page, total, PapersPerPage)
	items, total, err := s.repo.FindPapers(ctx, (page-1)*PapersPerPage, PapersPerPage, scopes...)
	if err != nil {
		return Page[models.ExamPaper]{}, err
	}
	return Page[models.ExamPaper]{Items: items, Total: total, Page: page, PageSize: PapersPerPage, TotalPages: pages}, nil
}

// Books returns the requested page of active books matching the filter.
func (s *Service) Books(ctx context.Context, f BookFilter) (Page[models.Book], error) {
	scopes := f.Scopes()
	_, total, err := s.library.FindBooks(ctx, 0, 0, scopes...)
	if err != nil {
		return Page[models.Book]{}, err
	}
	page, pages := clampPage(f.Page, total, BooksPerPage)
	items, total, err := s.library.FindBooks(ctx, (page-1)*BooksPerPage, BooksPerPage, scopes...)
	if err != nil {
		return Page[models.Book]{}, err
	}
	return Page[models.Book]{Items: items, Total: total, Page: page, PageSize: BooksPerPage, TotalPages: pages}, nil
}

// Taxonomy bundles the values offered in the filter form.
type Taxonomy struct {
	Classes     []models.Class
	Subjects    []models.Subject
	Periods     []models.Period
	Series      []models.Series
	SchoolYears []string
	PaperTypes  []struct {
		Code  string
		Label string
	}
}

func (s *Service) Taxonomy(ctx context.Context, now time.Time) (*Taxonomy, error) {
	classes, err := s.repo.ListClasses(ctx)
	if err != nil {
		return nil, err
	}
	subjects, err := s.repo.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	periods, err := s.repo.ListPeriods(ctx)
	if err != nil {
		return nil, err
	}
	series, err := s.repo.ListSeries(ctx)
	if err != nil {
		return nil, err
	}
	return &Taxonomy{
		Classes:     classes,
		Subjects:    subjects,
		Periods:     periods,
		Series:      series,
		SchoolYears: SchoolYears(now, 10),
		PaperTypes:  models.PaperTypeLabels,
	}, nil
}

// CurrentSchoolYear returns "YYYY-YYYY"; the year starts in September.
func CurrentSchoolYear(now time.Time) string {
	start := now.Year()
	if now.Month() < time.September {
		start--
	}
	return fmt.Sprintf("%d-%d", start, start+1)
}

// SchoolYears lists the current school year and the n-1 before it, newest first.
func SchoolYears(now time.Time, n int) []string {
	start := now.Year()
	if now.Month() < time.September {
		start--
	}
	years := make([]string, 0, n)
	for i := 0; i < n; i++ {
		years = append(years, fmt.Sprintf("%d-%d", start-i, start-i+1))
	}
	return years
}
