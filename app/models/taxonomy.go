package models

const (
	SystemSemester  = "semestriel"
	SystemTrimester = "trimestriel"

	CyclePrimary   = "primaire"
	CycleCollege   = "college"
	CycleLycee     = "lycee"
	PeriodCodeExam = "exam"
)

// SchoolSystem groups levels by how the year is split (semesters or trimesters).
type SchoolSystem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Code        string  `gorm:"type:varchar(20);uniqueIndex" json:"code"`
	Name        string  `gorm:"type:varchar(100)" json:"name"`
	Kind        string  `gorm:"type:varchar(15)" json:"kind"`
	PeriodCount int     `json:"period_count"`
	Levels      []Level `gorm:"foreignKey:SystemID" json:"levels,omitempty"`
}

type Level struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Code      string       `gorm:"type:varchar(20);uniqueIndex" json:"code"`
	Name      string       `gorm:"type:varchar(50)" json:"name"`
	Cycle     string       `gorm:"type:varchar(10)" json:"cycle"`
	SystemID  uint         `gorm:"index" json:"system_id"`
	System    SchoolSystem `gorm:"foreignKey:SystemID" json:"-"`
	Order     int          `gorm:"column:sort_order;default:0" json:"order"`
	HasSeries bool         `json:"has_series"`
	HasExam   bool         `json:"has_exam"`
	ExamName  string       `gorm:"type:varchar(50)" json:"exam_name"`
	Classes   []Class      `gorm:"foreignKey:LevelID" json:"classes,omitempty"`
	Subjects  []Subject    `gorm:"many2many:subject_levels" json:"-"`
}

type Class struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	LevelID uint   `gorm:"index" json:"level_id"`
	Level   Level  `gorm:"foreignKey:LevelID" json:"level,omitempty"`
	Name    string `gorm:"type:varchar(30)" json:"name"`
	Code    string `gorm:"type:varchar(15);uniqueIndex" json:"code"`
	Number  int    `json:"number"`
}

func (c Class) Label() string {
	if c.Level.Name == "" {
		return c.Name
	}
	return c.Name + " (" + c.Level.Name + ")"
}

type Series struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Code        string `gorm:"type:varchar(5);uniqueIndex" json:"code"`
	FullName    string `gorm:"type:varchar(100)" json:"full_name"`
	Description string `gorm:"type:text" json:"description"`
	Color       string `gorm:"type:varchar(7);default:'#6366f1'" json:"color"`
}

func (Series) TableName() string {
	return "series"
}

type Period struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Code       string `gorm:"type:varchar(5);uniqueIndex" json:"code"`
	Name       string `gorm:"type:varchar(30)" json:"name"`
	Number     int    `json:"number"`
	StartMonth string `gorm:"type:varchar(20)" json:"start_month"`
	EndMonth   string `gorm:"type:varchar(20)" json:"end_month"`
}

type Subject struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"type:varchar(100)" json:"name"`
	Code        string  `gorm:"type:varchar(100);uniqueIndex" json:"code"`
	Levels      []Level `gorm:"many2many:subject_levels" json:"-"`
	Color       string  `gorm:"type:varchar(7);default:'#6366f1'" json:"color"`
	Icon        string  `gorm:"type:varchar(10)" json:"icon"`
	Description string  `gorm:"type:text" json:"description"`
	IsActive    bool    `json:"is_active"`
}
