package handlers

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorilla/schema"
)

// formDecoder maps POST bodies onto the typed form structs below.
var formDecoder = schema.NewDecoder()

func init() {
	formDecoder.IgnoreUnknownKeys(true)
}

func decodeForm(r *http.Request, dst interface{}) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	return formDecoder.Decode(dst, r.PostForm)
}

// Basic email validation regex
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return len(email) <= 254 && emailRegex.MatchString(email)
}

type RegisterForm struct {
	Username        string `schema:"username"`
	Email           string `schema:"email"`
	Password        string `schema:"password"`
	ConfirmPassword string `schema:"confirmPassword"`
	Address         string `schema:"address"`
	Phone           string `schema:"phone"`
}

func (f *RegisterForm) Validate() map[string]string {
	errs := make(map[string]string)
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	if len(f.Username) < 3 || len(f.Username) > 30 {
		errs["username"] = "Username must be between 3 and 30 characters."
	}
	if f.Email == "" {
		errs["email"] = "Email address is required."
	} else if !isValidEmail(f.Email) {
		errs["email"] = "Please enter a valid email address."
	}
	// bcrypt only considers the first 72 bytes
	if len(f.Password) < 6 || len(f.Password) > 72 {
		errs["password"] = "Password must be between 6 and 72 characters."
	} else if f.Password != f.ConfirmPassword {
		errs["confirmPassword"] = "Passwords do not match."
	}
	return errs
}

type LoginForm struct {
	Email    string `schema:"email"`
	Password string `schema:"password"`
	Next     string `schema:"next"`
}

func (f *LoginForm) Validate() map[string]string {
	errs := make(map[string]string)
	f.Email = strings.TrimSpace(f.Email)
	if f.Email == "" {
		errs["email"] = "Email address is required."
	}
	if f.Password == "" {
		errs["password"] = "Password is required."
	}
	return errs
}

type AccountForm struct {
	Username string `schema:"username"`
	Email    string `schema:"email"`
	Address  string `schema:"address"`
	Phone    string `schema:"phone"`
}

func (f *AccountForm) Validate() map[string]string {
	errs := make(map[string]string)
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	if len(f.Username) < 3 || len(f.Username) > 30 {
		errs["username"] = "Username must be between 3 and 30 characters."
	}
	if f.Email == "" {
		errs["email"] = "Email address is required."
	} else if !isValidEmail(f.Email) {
		errs["email"] = "Please enter a valid email address."
	}
	return errs
}

type NewItemForm struct {
	Name              string `schema:"itemName"`
	MainDescription   string `schema:"itemMainDescription"`
	PointsDescription string `schema:"itemPointsDescription"`
	PriceStr          string `schema:"itemPrice"`

	Price float64 `schema:"-"`
}

func (f *NewItemForm) Validate() map[string]string {
	errs := make(map[string]string)
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		errs["itemName"] = "Item name is required."
	}
	if f.PriceStr == "" {
		errs["itemPrice"] = "Price is required."
	} else {
		price, err := strconv.ParseFloat(f.PriceStr, 64)
		if err != nil {
			errs["itemPrice"] = "Invalid price format."
		} else if price <= 0 {
			errs["itemPrice"] = "Price must be positive."
		} else {
			f.Price = price
		}
	}
	return errs
}

type OrderStatusForm struct {
	OrderID string `schema:"orderID"`
	Status  string `schema:"status"`
}
