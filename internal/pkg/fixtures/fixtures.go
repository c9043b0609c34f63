// Package fixtures seeds in-memory databases for package tests.
package fixtures

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/internal/pkg/database"
)

var seq atomic.Int64

// NewDB opens a fresh migrated in-memory database for the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory(fmt.Sprintf("%s_%d", t.Name(), seq.Add(1)))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Taxonomy is a minimal school taxonomy: one lycée level with Terminale D.
type Taxonomy struct {
	System  models.SchoolSystem
	Level   models.Level
	Class   models.Class
	Series  models.Series
	Period  models.Period
	Subject models.Subject
}

func SeedTaxonomy(t *testing.T, db *gorm.DB) *Taxonomy {
	t.Helper()
	tx := &Taxonomy{
		System: models.SchoolSystem{Code: "sec", Name: "Secondaire", Kind: models.SystemSemester, PeriodCount: 2},
		Series: models.Series{Code: "D", FullName: "Série D", Color: "#16a34a"},
		Period: models.Period{Code: "S1", Name: "1er Semestre", Number: 1},
	}
	require.NoError(t, db.Create(&tx.System).Error)
	tx.Level = models.Level{Code: "lycee", Name: "Lycée", Cycle: models.CycleLycee, SystemID: tx.System.ID, HasSeries: true, HasExam: true, ExamName: "BAC"}
	require.NoError(t, db.Create(&tx.Level).Error)
	tx.Class = models.Class{LevelID: tx.Level.ID, Name: "Terminale", Code: "tle", Number: 7}
	require.NoError(t, db.Create(&tx.Class).Error)
	require.NoError(t, db.Create(&tx.Series).Error)
	require.NoError(t, db.Create(&tx.Period).Error)
	tx.Subject = models.Subject{Name: "Mathématiques", Code: "maths", IsActive: true}
	require.NoError(t, db.Create(&tx.Subject).Error)
	return tx
}

// AddSubject creates another active subject.
func AddSubject(t *testing.T, db *gorm.DB, name, code string) models.Subject {
	t.Helper()
	s := models.Subject{Name: name, Code: code, IsActive: true}
	require.NoError(t, db.Create(&s).Error)
	return s
}

// PaperOption tweaks a paper before it is stored.
type PaperOption func(p *models.ExamPaper)

func Premium(v bool) PaperOption {
	return func(p *models.ExamPaper) { p.IsPremium = v }
}

func WithCorrection(key string) PaperOption {
	return func(p *models.ExamPaper) { p.CorrectionFile = key }
}

func WithType(typ string) PaperOption {
	return func(p *models.ExamPaper) { p.Type = typ }
}

func WithSubject(s models.Subject) PaperOption {
	return func(p *models.ExamPaper) { p.SubjectID = s.ID }
}

func WithYear(year string) PaperOption {
	return func(p *models.ExamPaper) { p.SchoolYear = year }
}

func Inactive() PaperOption {
	return func(p *models.ExamPaper) { p.IsActive = false }
}

// AddPaper stores an active premium paper with a unique slug.
func AddPaper(t *testing.T, db *gorm.DB, tax *Taxonomy, title string, opts ...PaperOption) *models.ExamPaper {
	t.Helper()
	n := seq.Add(1)
	p := &models.ExamPaper{
		Title:       title,
		Slug:        fmt.Sprintf("paper-%d", n),
		LevelID:     tax.Level.ID,
		ClassID:     tax.Class.ID,
		SubjectID:   tax.Subject.ID,
		PeriodID:    tax.Period.ID,
		SchoolYear:  "2023-2024",
		Type:        models.PaperTypeComposition1,
		Session:     models.SessionNormal,
		Scale:       20,
		SubjectFile: fmt.Sprintf("papers/subjects/%d.pdf", n),
		IsPremium:   true,
		IsActive:    true,
	}
	for _, o := range opts {
		o(p)
	}
	require.NoError(t, db.Omit("Level", "Class", "Series", "Subject", "Period").Create(p).Error)
	if !p.IsActive {
		require.NoError(t, db.Model(p).UpdateColumn("is_active", false).Error)
	}
	return p
}

// AddUser stores an active user with password "secret123".
func AddUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u, err := models.CreateUser("Ada Houngbo", email, "", "secret123")
	require.NoError(t, err)
	require.NoError(t, db.Create(u).Error)
	return u
}

func AddCategory(t *testing.T, db *gorm.DB, name, slug string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Slug: slug, IsActive: true}
	require.NoError(t, db.Create(c).Error)
	return c
}

// BookOption tweaks a book before it is stored.
type BookOption func(b *models.Book)

func BookPremium(v bool) BookOption {
	return func(b *models.Book) { b.IsPremium = v }
}

func BookFormat(f string) BookOption {
	return func(b *models.Book) { b.Format = f }
}

func BookAuthor(a string) BookOption {
	return func(b *models.Book) { b.Author = a }
}

func AddBook(t *testing.T, db *gorm.DB, cat *models.Category, title string, opts ...BookOption) *models.Book {
	t.Helper()
	n := seq.Add(1)
	b := &models.Book{
		Title:      title,
		Slug:       fmt.Sprintf("book-%d", n),
		Author:     "Florent Couao-Zotti",
		CategoryID: cat.ID,
		Language:   "Français",
		PDFFile:    fmt.Sprintf("books/pdf/%d.pdf", n),
		Format:     models.BookFormatPDF,
		Price:      1500,
		IsPremium:  true,
		IsActive:   true,
	}
	for _, o := range opts {
		o(b)
	}
	require.NoError(t, db.Omit("Category").Create(b).Error)
	return b
}
