package models

import "time"

// Download is the ledger row proving a user fetched a paper. One row per
// (user, paper); re-downloads only flip the part flags.
type Download struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"uniqueIndex:ux_download_user_paper,priority:1" json:"user_id"`
	User           User      `gorm:"foreignKey:UserID" json:"-"`
	PaperID        uint      `gorm:"uniqueIndex:ux_download_user_paper,priority:2;index" json:"paper_id"`
	Paper          ExamPaper `gorm:"foreignKey:PaperID" json:"paper,omitempty"`
	IPAddress      string    `gorm:"type:varchar(45);default:null" json:"-"`
	GotSubject     bool      `json:"got_subject"`
	GotCorrection  bool      `json:"got_correction"`
	UsedFreeCredit bool      `json:"used_free_credit"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// Favorite marks a paper in a user's list. Toggling deletes the row for real so
// the unique key stays usable.
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:ux_favorite_user_paper,priority:1" json:"user_id"`
	PaperID   uint      `gorm:"uniqueIndex:ux_favorite_user_paper,priority:2" json:"paper_id"`
	Paper     ExamPaper `gorm:"foreignKey:PaperID" json:"paper,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
