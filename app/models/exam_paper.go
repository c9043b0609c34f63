package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	PaperTypeComposition1 = "composition_1"
	PaperTypeComposition2 = "composition_2"
	PaperTypeEvaluation1  = "evaluation_1"
	PaperTypeEvaluation2  = "evaluation_2"
	PaperTypeEvaluation3  = "evaluation_3"
	PaperTypeCEPED        = "ceped"
	PaperTypeCEPD         = "cepd"
	PaperTypeBEPC         = "bepc"
	PaperTypeBac1         = "bac_1"
	PaperTypeBac2         = "bac_2"
	PaperTypeBacBlanc     = "bac_blanc"
	PaperTypeConcours     = "concours"
	PaperTypeEntranceExam = "examen_entree"

	SessionNormal      = "normale"
	SessionReplacement = "remplacement"
	SessionResit       = "rattrapage"
)

// PaperTypeLabels lists every paper type in display order.
var PaperTypeLabels = []struct {
	Code  string
	Label string
}{
	{PaperTypeComposition1, "1ère Composition"},
	{PaperTypeComposition2, "2ème Composition"},
	{PaperTypeEvaluation1, "1ère Évaluation"},
	{PaperTypeEvaluation2, "2ème Évaluation"},
	{PaperTypeEvaluation3, "3ème Évaluation"},
	{PaperTypeCEPED, "CEPED"},
	{PaperTypeCEPD, "CEPD"},
	{PaperTypeBEPC, "BEPC"},
	{PaperTypeBac1, "Baccalauréat 1er Tour"},
	{PaperTypeBac2, "Baccalauréat 2ème Tour"},
	{PaperTypeBacBlanc, "Bac Blanc"},
	{PaperTypeConcours, "Concours d'entrée"},
	{PaperTypeEntranceExam, "Examen d'entrée"},
}

// ExamPeriodTypes are the paper types matched by the "exam" period filter.
var ExamPeriodTypes = []string{PaperTypeCEPED, PaperTypeBEPC, PaperTypeBac1, PaperTypeBac2, PaperTypeBacBlanc}

func IsValidPaperType(t string) bool {
	for _, pt := range PaperTypeLabels {
		if pt.Code == t {
			return true
		}
	}
	return false
}

func IsValidSession(s string) bool {
	switch s {
	case SessionNormal, SessionReplacement, SessionResit:
		return true
	}
	return false
}

type ExamPaper struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Title          string         `gorm:"type:varchar(200)" json:"title" validate:"required,max=200"`
	Slug           string         `gorm:"type:varchar(100);uniqueIndex" json:"slug"`
	LevelID        uint           `gorm:"index" json:"level_id" validate:"required"`
	Level          Level          `gorm:"foreignKey:LevelID" json:"level,omitempty"`
	ClassID        uint           `gorm:"index:idx_paper_year_class_period,priority:2" json:"class_id" validate:"required"`
	Class          Class          `gorm:"foreignKey:ClassID" json:"class,omitempty"`
	SeriesID       *uint          `gorm:"index" json:"series_id,omitempty"`
	Series         *Series        `gorm:"foreignKey:SeriesID" json:"series,omitempty"`
	SubjectID      uint           `gorm:"index:idx_paper_type_subject,priority:2" json:"subject_id" validate:"required"`
	Subject        Subject        `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
	PeriodID       uint           `gorm:"index:idx_paper_year_class_period,priority:3" json:"period_id" validate:"required"`
	Period         Period         `gorm:"foreignKey:PeriodID" json:"period,omitempty"`
	SchoolYear     string         `gorm:"type:varchar(9);index:idx_paper_year_class_period,priority:1" json:"school_year" validate:"required,len=9"`
	Type           string         `gorm:"type:varchar(20);index:idx_paper_type_subject,priority:1" json:"type" validate:"required"`
	Session        string         `gorm:"type:varchar(20);default:'normale'" json:"session"`
	Duration       string         `gorm:"type:varchar(20)" json:"duration"`
	Coefficient    *int           `json:"coefficient,omitempty"`
	Scale          int            `gorm:"default:20" json:"scale"`
	SubjectFile    string         `gorm:"type:varchar(255)" json:"-"`
	CorrectionFile string         `gorm:"type:varchar(255);default:null" json:"-"`
	ReportFile     string         `gorm:"type:varchar(255);default:null" json:"-"`
	Statement      string         `gorm:"type:text" json:"statement"`
	Description    string         `gorm:"type:text" json:"description"`
	Instructions   string         `gorm:"type:text" json:"instructions"`
	PageCount      *int           `json:"page_count,omitempty"`
	FileSizeKB     int64          `json:"file_size_kb"`
	IsPremium      bool           `json:"is_premium"`
	IsActive       bool           `json:"is_active"`
	DownloadCount  int64          `gorm:"default:0" json:"download_count"`
	ViewCount      int64          `gorm:"default:0" json:"view_count"`
	ExamDate       *time.Time     `gorm:"type:date;default:null" json:"exam_date,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *ExamPaper) TypeLabel() string {
	for _, pt := range PaperTypeLabels {
		if pt.Code == p.Type {
			return pt.Label
		}
	}
	return p.Type
}

// IsOfficialExam reports national exams (CEPED, BEPC, Bac).
func (p *ExamPaper) IsOfficialExam() bool {
	switch p.Type {
	case PaperTypeCEPED, PaperTypeCEPD, PaperTypeBEPC, PaperTypeBac1, PaperTypeBac2:
		return true
	}
	return false
}

func (p *ExamPaper) HasCorrection() bool {
	return p.CorrectionFile != ""
}

func (p *ExamPaper) HasReport() bool {
	return p.ReportFile != ""
}

// SlugBase is the text the slug is derived from before collision handling.
func (p *ExamPaper) SlugBase() string {
	return fmt.Sprintf("%s-%s-%s-%s", p.Type, p.Subject.Name, p.Class.Name, p.SchoolYear)
}

// DownloadFilename is the attachment name served to the browser, e.g.
// "Mathematiques_3eme_2023-2024.pdf" or "CORRIGE_Mathematiques_3eme_2023-2024.pdf".
func (p *ExamPaper) DownloadFilename(correction bool, ext string) string {
	name := fmt.Sprintf("%s_%s_%s%s", fileSafe(p.Subject.Name), fileSafe(p.Class.Name), p.SchoolYear, ext)
	if correction {
		return "CORRIGE_" + name
	}
	return name
}

func (p *ExamPaper) PeriodWithYear() string {
	return p.Period.Name + " " + p.SchoolYear
}
