package testutil

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dom/foodorder-backend/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	email    string
	password string
	fullName *string
	googleID *string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		email:    fmt.Sprintf("user_%s@example.com", uuid.New().String()[:8]),
		password: "testpassword123",
	}
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

// WithPassword sets the password. An empty password builds a user that can
// only sign in through Google.
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

func (b *UserBuilder) WithFullName(name string) *UserBuilder {
	b.fullName = &name
	return b
}

func (b *UserBuilder) WithGoogleID(id string) *UserBuilder {
	b.googleID = &id
	return b
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	user := &domain.User{
		ID:        uuid.New(),
		Email:     b.email,
		FullName:  b.fullName,
		GoogleID:  b.googleID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if b.password != "" {
		// MinCost keeps fixture setup fast
		hashed, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("failed to hash password: %v", err)
		}
		hash := string(hashed)
		user.PasswordHash = &hash
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// SessionCookies are the token cookies set by a successful login.
type SessionCookies struct {
	AccessToken  *http.Cookie
	RefreshToken *http.Cookie
}

// Login posts the password form and returns the token cookies.
func Login(t *testing.T, ts *TestServer, email, password string) SessionCookies {
	t.Helper()

	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	resp, err := ts.Client().Post(ts.URL("/login"), "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("failed to login: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected login status code: %d", resp.StatusCode)
	}

	return SessionCookies{
		AccessToken:  FindCookie(resp, "access_token"),
		RefreshToken: FindCookie(resp, "refresh_token"),
	}
}

// TransactionBuilder creates stored transactions with a builder pattern
type TransactionBuilder struct {
	token    string
	buyOrder string
	amount   int64
	status   domain.TransactionStatus
}

func NewTransactionBuilder() *TransactionBuilder {
	suffix := uuid.New().String()[:8]
	return &TransactionBuilder{
		token:    "tok-" + suffix,
		buyOrder: "ORDER-" + suffix,
		amount:   1000,
		status:   domain.TransactionStatusPending,
	}
}

func (b *TransactionBuilder) WithToken(token string) *TransactionBuilder {
	b.token = token
	return b
}

func (b *TransactionBuilder) WithAmount(amount int64) *TransactionBuilder {
	b.amount = amount
	return b
}

func (b *TransactionBuilder) WithStatus(status domain.TransactionStatus) *TransactionBuilder {
	b.status = status
	return b
}

func (b *TransactionBuilder) Build(t *testing.T, db *gorm.DB) *domain.Transaction {
	t.Helper()

	tx := &domain.Transaction{
		ID:             uuid.New(),
		BuyOrder:       b.buyOrder,
		SessionID:      "SESS-" + b.buyOrder,
		Amount:         b.amount,
		Token:          b.token,
		Status:         b.status,
		WebPayResponse: datatypes.JSON(fmt.Sprintf(`{"token":%q,"url":"https://webpay.test/init"}`, b.token)),
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create transaction: %v", err)
	}

	return tx
}
