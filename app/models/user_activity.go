package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	ActivityRegister           = "register"
	ActivityLogin              = "login"
	ActivityLogout             = "logout"
	ActivityDownloadPaper      = "download_paper"
	ActivityDownloadCorrection = "download_correction"
	ActivityViewPaper          = "view_paper"
	ActivityReadBook           = "read_book"
	ActivityDownloadBook       = "download_book"
	ActivityPurchase           = "purchase"
	ActivitySubscribe          = "subscribe"
	ActivitySearch             = "search"
	ActivityReview             = "review"
)

// UserActivity is an append-only audit row.
type UserActivity struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index:idx_activity_user_created,priority:1" json:"user_id"`
	Action    string         `gorm:"type:varchar(30);index" json:"action"`
	PaperID   *uint          `gorm:"index" json:"paper_id,omitempty"`
	BookID    *uint          `gorm:"index" json:"book_id,omitempty"`
	Details   datatypes.JSON `json:"details,omitempty"`
	IPAddress string         `gorm:"type:varchar(45);default:null" json:"-"`
	UserAgent string         `gorm:"type:text" json:"-"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index:idx_activity_user_created,priority:2" json:"created_at"`
}

func (UserActivity) TableName() string {
	return "user_activities"
}

// NewUserActivity encodes details as JSON; nil details leave the column empty.
func NewUserActivity(userID uint, action string, details map[string]any) *UserActivity {
	a := &UserActivity{UserID: userID, Action: action}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			a.Details = datatypes.JSON(raw)
		}
	}
	return a
}

// ActionLabel returns the French label shown in the profile timeline.
func (a *UserActivity) ActionLabel() string {
	switch a.Action {
	case ActivityRegister:
		return "Inscription"
	case ActivityLogin:
		return "Connexion"
	case ActivityLogout:
		return "Déconnexion"
	case ActivityDownloadPaper:
		return "Téléchargement d'épreuve"
	case ActivityDownloadCorrection:
		return "Téléchargement de corrigé"
	case ActivityViewPaper:
		return "Consultation d'épreuve"
	case ActivityReadBook:
		return "Lecture de livre"
	case ActivityDownloadBook:
		return "Téléchargement de livre"
	case ActivityPurchase:
		return "Achat"
	case ActivitySubscribe:
		return "Abonnement"
	case ActivitySearch:
		return "Recherche"
	case ActivityReview:
		return "Avis"
	default:
		return a.Action
	}
}
