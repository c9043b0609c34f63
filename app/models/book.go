package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	BookFormatPDF  = "pdf"
	BookFormatEPUB = "epub"
	BookFormatBoth = "both"
)

// FinishedThreshold is the reading percentage from which a book counts as read.
const FinishedThreshold = 95

type Category struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"type:varchar(100)" json:"name"`
	Slug        string `gorm:"type:varchar(100);uniqueIndex" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Color       string `gorm:"type:varchar(7);default:'#6366f1'" json:"color"`
	Order       int    `gorm:"column:sort_order;default:0" json:"order"`
	IsActive    bool   `json:"is_active"`
}

type Book struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"type:varchar(200)" json:"title" validate:"required,max=200"`
	Slug            string         `gorm:"type:varchar(100);uniqueIndex" json:"slug"`
	Subtitle        string         `gorm:"type:varchar(200)" json:"subtitle"`
	Author          string         `gorm:"type:varchar(200)" json:"author" validate:"required,max=200"`
	Publisher       string         `gorm:"type:varchar(100)" json:"publisher"`
	CategoryID      uint           `gorm:"index" json:"category_id" validate:"required"`
	Category        Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Description     string         `gorm:"type:text" json:"description"`
	Excerpt         string         `gorm:"type:text" json:"excerpt"`
	ISBN            string         `gorm:"type:varchar(20)" json:"isbn"`
	PageCount       *int           `json:"page_count,omitempty"`
	PublicationYear *int           `json:"publication_year,omitempty"`
	Language        string         `gorm:"type:varchar(20);default:'Français'" json:"language"`
	PDFFile         string         `gorm:"type:varchar(255);default:null" json:"-"`
	EPUBFile        string         `gorm:"type:varchar(255);default:null" json:"-"`
	CoverFile       string         `gorm:"type:varchar(255);default:null" json:"cover_file"`
	Format          string         `gorm:"type:varchar(10);default:'pdf'" json:"format" validate:"oneof=pdf epub both"`
	Price           int            `gorm:"default:0" json:"price"`
	IsPremium       bool           `json:"is_premium"`
	IsActive        bool           `json:"is_active"`
	ReadCount       int64          `gorm:"default:0" json:"read_count"`
	DownloadCount   int64          `gorm:"default:0" json:"download_count"`
	RatingAverage   float64        `gorm:"type:decimal(3,2);default:0" json:"rating_average"`
	ReviewCount     int            `gorm:"default:0" json:"review_count"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// PriceLabel formats the price in FCFA with thin grouping, "Gratuit" when 0.
func (b *Book) PriceLabel() string {
	if b.Price == 0 {
		return "Gratuit"
	}
	return groupThousands(b.Price) + " FCFA"
}

// DownloadFile picks the PDF when present, the EPUB otherwise.
func (b *Book) DownloadFile() (key string, ext string) {
	if b.PDFFile != "" {
		return b.PDFFile, ".pdf"
	}
	if b.EPUBFile != "" {
		return b.EPUBFile, ".epub"
	}
	return "", ""
}

func (b *Book) DownloadFilename(ext string) string {
	return fileSafe(b.Title) + ext
}

type BookPurchase struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"uniqueIndex:ux_purchase_user_book,priority:1" json:"user_id"`
	User          User      `gorm:"foreignKey:UserID" json:"-"`
	BookID        uint      `gorm:"uniqueIndex:ux_purchase_user_book,priority:2" json:"book_id"`
	Book          Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	AmountPaid    int       `json:"amount_paid"`
	TransactionID string    `gorm:"type:varchar(100)" json:"transaction_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type ReadingProgress struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"uniqueIndex:ux_progress_user_book,priority:1" json:"user_id"`
	BookID      uint      `gorm:"uniqueIndex:ux_progress_user_book,priority:2" json:"book_id"`
	Book        Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	CurrentPage int       `gorm:"default:1" json:"current_page"`
	Percent     int       `gorm:"default:0" json:"percent"`
	Finished    bool      `json:"finished"`
	StartedAt   time.Time `gorm:"autoCreateTime" json:"started_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ReadingProgress) TableName() string {
	return "reading_progress"
}

type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"uniqueIndex:ux_review_user_book,priority:1" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BookID     uint      `gorm:"uniqueIndex:ux_review_user_book,priority:2;index" json:"book_id"`
	Score      int       `json:"score" validate:"min=1,max=5"`
	Comment    string    `gorm:"type:text" json:"comment"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func groupThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
