package repos

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"booknook/internal/domain"
)

//go:embed seed/books.yaml
var seedCatalog []byte

type seedBook struct {
	Title                 string `yaml:"title"`
	Author                string `yaml:"author"`
	Genre                 string `yaml:"genre"`
	Description           string `yaml:"description"`
	Price                 string `yaml:"price"`
	Quantity              int    `yaml:"quantity"`
	ISBN                  string `yaml:"isbn"`
	Language              string `yaml:"language"`
	Format                string `yaml:"format"`
	Publisher             string `yaml:"publisher"`
	Published             string `yaml:"published"`
	PublishedInDays       int    `yaml:"published_in_days"`
	AddedDaysAgo          int    `yaml:"added_days_ago"`
	PhysicalLibraryAccess bool   `yaml:"physical_library_access"`
	Bestseller            bool   `yaml:"bestseller"`
	AwardWinner           bool   `yaml:"award_winner"`
	ComingSoon            bool   `yaml:"coming_soon"`
	Discount              *struct {
		Percent int  `yaml:"percent"`
		Days    int  `yaml:"days"`
		OnSale  bool `yaml:"on_sale"`
	} `yaml:"discount"`
}

// seedBooks loads the embedded starter catalog when the books table is empty.
func seedBooks(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM books`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var doc struct {
		Books []seedBook `yaml:"books"`
	}
	if err := yaml.Unmarshal(seedCatalog, &doc); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	now := time.Now().UTC()
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, sb := range doc.Books {
		price, err := decimal.NewFromString(sb.Price)
		if err != nil {
			return fmt.Errorf("seed %q price: %w", sb.Title, err)
		}
		published := now.AddDate(0, 0, sb.PublishedInDays)
		if sb.Published != "" {
			if published, err = time.Parse("2006-01-02", sb.Published); err != nil {
				return fmt.Errorf("seed %q published: %w", sb.Title, err)
			}
		}
		res, err := tx.Exec(`
			INSERT INTO books(title,author,genre,description,price,quantity,isbn,language,format,publisher,
			  is_physical_library_access,is_bestseller,is_award_winner,is_coming_soon,publication_date,added_date)
			VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			sb.Title, sb.Author, sb.Genre, sb.Description, price, sb.Quantity, sb.ISBN, sb.Language, sb.Format,
			sb.Publisher, sb.PhysicalLibraryAccess, sb.Bestseller, sb.AwardWinner, sb.ComingSoon,
			domain.FormatTime(published), domain.FormatTime(now.AddDate(0, 0, -sb.AddedDaysAgo)))
		if err != nil {
			return err
		}
		if sb.Discount == nil {
			continue
		}
		id, _ := res.LastInsertId()
		frac := decimal.NewFromInt(int64(sb.Discount.Percent)).Div(decimal.NewFromInt(100))
		if _, err := tx.Exec(`
			INSERT INTO timed_discounts(book_id,discount_percentage,start_date,expires_at,on_sale_flag)
			VALUES(?,?,?,?,?)`,
			id, frac.InexactFloat64(), domain.FormatTime(now.Add(-time.Hour)),
			domain.FormatTime(now.AddDate(0, 0, sb.Discount.Days)), sb.Discount.OnSale); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// seedUsers ensures one account per role exists (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		Email, First, Last, Role string
	}
	users := []u{
		{"admin@booknook.test", "Admin", "User", domain.RoleAdmin},
		{"staff@booknook.test", "Sam", "Shelver", domain.RoleStaff},
		{"reader@booknook.test", "Rita", "Reader", domain.RoleUser},
		{"reader2@booknook.test", "Ray", "Reader", domain.RoleUser},
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		var exists int
		if err := tx.Get(&exists, `SELECT COUNT(*) FROM users WHERE LOWER(email)=LOWER(?)`, x.Email); err != nil {
			return err
		}
		if exists > 0 {
			continue
		}
		h, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		id := uuid.NewString()
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,first_name,last_name,password_hash,email_confirmed)
			VALUES(?,?,?,?,?,1)`, id, x.Email, x.First, x.Last, string(h)); err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO user_roles(user_id,role) VALUES(?,?)`, id, x.Role); err != nil {
			return err
		}
	}
	return tx.Commit()
}
