package forms

type LoginForm struct {
	Identifier string `form:"username" validate:"required,max=200"`
	Password   string `form:"password" validate:"required"`
	Remember   bool   `form:"remember_me"`
	Next       string `form:"next"`
}

type RegisterForm struct {
	FullName        string `form:"full_name" validate:"required,min=2,max=300"`
	Email           string `form:"email" validate:"required,email,max=200"`
	Phone           string `form:"phone" validate:"omitempty,min=8,max=20"`
	Password        string `form:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `form:"password_confirm" validate:"required,eqfield=Password"`
	ClassLevel      string `form:"class_level" validate:"max=50"`
	School          string `form:"school" validate:"max=200"`
	AcceptTerms     bool   `form:"accept_terms" validate:"eq=true"`
	Newsletter      bool   `form:"newsletter"`
	Captcha         string `form:"h-captcha-response"`
}

type ForgotPasswordForm struct {
	Email string `form:"email" validate:"required,email"`
}

type ResetPasswordForm struct {
	Password        string `form:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `form:"password_confirm" validate:"required,eqfield=Password"`
}

type ProfileForm struct {
	FirstName  string `form:"first_name" validate:"required,max=150"`
	LastName   string `form:"last_name" validate:"max=150"`
	Phone      string `form:"phone" validate:"omitempty,min=8,max=20"`
	School     string `form:"school" validate:"max=200"`
	ClassLevel string `form:"class_level" validate:"max=50"`
	Newsletter bool   `form:"newsletter"`
}

type ReviewForm struct {
	Score   int    `form:"rating" validate:"min=1,max=5"`
	Comment string `form:"comment" validate:"max=2000"`
}

// ProgressForm is posted as JSON by the online reader.
type ProgressForm struct {
	Page    int `json:"page" form:"page" validate:"min=0"`
	Percent int `json:"percent" form:"percent"`
}

type PlanForm struct {
	Plan string `form:"plan" validate:"required,oneof=free monthly yearly"`
}

type PurchaseForm struct {
	BookSlug string `form:"book" validate:"required"`
	Amount   int    `form:"amount" validate:"min=0"`
}

type PaperForm struct {
	Title        string `form:"title" validate:"required,max=200"`
	LevelID      uint   `form:"level_id" validate:"required"`
	ClassID      uint   `form:"class_id" validate:"required"`
	SeriesID     uint   `form:"series_id"`
	SubjectID    uint   `form:"subject_id" validate:"required"`
	PeriodID     uint   `form:"period_id" validate:"required"`
	SchoolYear   string `form:"school_year" validate:"required,len=9"`
	Type         string `form:"type" validate:"required"`
	Session      string `form:"session" validate:"omitempty,oneof=normale remplacement rattrapage"`
	Duration     string `form:"duration" validate:"max=20"`
	Coefficient  int    `form:"coefficient" validate:"min=0,max=20"`
	Description  string `form:"description"`
	Instructions string `form:"instructions"`
	IsPremium    bool   `form:"is_premium"`
}

type BookForm struct {
	Title           string `form:"title" validate:"required,max=200"`
	Subtitle        string `form:"subtitle" validate:"max=200"`
	Author          string `form:"author" validate:"required,max=200"`
	Publisher       string `form:"publisher" validate:"max=100"`
	CategoryID      uint   `form:"category_id" validate:"required"`
	Description     string `form:"description"`
	Excerpt         string `form:"excerpt"`
	ISBN            string `form:"isbn" validate:"max=20"`
	PageCount       int    `form:"page_count" validate:"min=0"`
	PublicationYear int    `form:"publication_year" validate:"omitempty,min=1900,max=2100"`
	Language        string `form:"language" validate:"max=20"`
	Price           int    `form:"price" validate:"min=0"`
	IsPremium       bool   `form:"is_premium"`
}
