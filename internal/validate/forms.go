package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Form DTOs bound with fiber's BodyParser.

type RegisterForm struct {
	Email           string `form:"email" validate:"required,email,max=100"`
	FirstName       string `form:"first_name" validate:"required,max=50"`
	LastName        string `form:"last_name" validate:"required,max=50"`
	Password        string `form:"password" validate:"required,password"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
}

type ResetPasswordForm struct {
	Token           string `form:"token" validate:"required"`
	Password        string `form:"password" validate:"required,password"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
}

type ChangePasswordForm struct {
	Current         string `form:"current_password" validate:"required"`
	Password        string `form:"password" validate:"required,password"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
}

type ProfileForm struct {
	FirstName string `form:"first_name" validate:"required,max=50"`
	LastName  string `form:"last_name" validate:"required,max=50"`
}

type StaffForm struct {
	Email     string `form:"email" validate:"required,email,max=100"`
	FirstName string `form:"first_name" validate:"required,max=50"`
	LastName  string `form:"last_name" validate:"required,max=50"`
	Password  string `form:"password" validate:"required,password"`
}

type ReviewForm struct {
	Rating  int    `form:"rating" validate:"min=1,max=5"`
	Comment string `form:"comment" validate:"required,max=2000"`
}

type ReplyForm struct {
	ParentID int64  `form:"parent_id" validate:"required,gt=0"`
	Comment  string `form:"comment" validate:"required,max=2000"`
}

type AnnouncementForm struct {
	Title     string `form:"title" validate:"max=100"`
	Message   string `form:"message" validate:"required,max=500"`
	StartDate string `form:"start_date"`
	ExpiresAt string `form:"expires_at" validate:"required"`
}

type BookForm struct {
	Title           string `form:"title" validate:"required,max=200"`
	Author          string `form:"author" validate:"required,max=120"`
	Genre           string `form:"genre" validate:"max=60"`
	Description     string `form:"description" validate:"max=10000"`
	Price           string `form:"price" validate:"required,numeric"`
	Quantity        int    `form:"quantity" validate:"min=0,max=100000"`
	ISBN            string `form:"isbn" validate:"max=20"`
	Language        string `form:"language" validate:"max=40"`
	Format          string `form:"format" validate:"max=40"`
	Publisher       string `form:"publisher" validate:"max=120"`
	PublicationDate string `form:"publication_date" validate:"required,datetime=2006-01-02"`
	ReleaseDate     string `form:"release_date" validate:"omitempty,datetime=2006-01-02"`
	PhysicalAccess  bool   `form:"is_physical_library_access"`
	Bestseller      bool   `form:"is_bestseller"`
	AwardWinner     bool   `form:"is_award_winner"`
	ComingSoon      bool   `form:"is_coming_soon"`
}

type DiscountForm struct {
	Percentage string `form:"percentage" validate:"required,numeric"`
	StartDate  string `form:"start_date" validate:"required"`
	ExpiresAt  string `form:"expires_at" validate:"required"`
	OnSale     bool   `form:"on_sale"`
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	_ = val.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return Password(fl.Field().String())
	})
	return val
}

// Struct validates a bound form, returning the first problem as a user-facing sentence.
func Struct(form any) error {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return err
	}
	return errors.New(message(ves[0]))
}

func message(fe validator.FieldError) string {
	field := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required."
	case "email":
		return "Please enter a valid email address."
	case "password":
		return "Passwords need 8 to 64 characters with upper and lower case letters, a digit and a symbol."
	case "eqfield":
		return "Passwords do not match."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", field, fe.Param())
	case "min", "gt":
		return fmt.Sprintf("%s is too small.", field)
	case "numeric":
		return field + " must be a number."
	case "datetime":
		return field + " must be a date (YYYY-MM-DD)."
	default:
		return field + " is invalid."
	}
}

// humanize turns "FirstName" into "First name". Acronyms like "ISBN" stay intact.
func humanize(field string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range field {
		upper := r >= 'A' && r <= 'Z'
		if upper && prevLower {
			b.WriteByte(' ')
			r += 'a' - 'A'
		}
		prevLower = r >= 'a' && r <= 'z'
		b.WriteRune(r)
	}
	return b.String()
}
