package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pizzeria/internal/domain"
	apperrors "pizzeria/internal/errors"
)

type mockRepository struct {
	InsertFunc        func(ctx context.Context, c domain.Customer) (uint, error)
	FindByIDFunc      func(ctx context.Context, id uint) (*domain.Customer, error)
	FindByEmailFunc   func(ctx context.Context, email string) (*domain.Customer, error)
	UpdateProfileFunc func(ctx context.Context, c domain.Customer) error
}

func (m *mockRepository) Insert(ctx context.Context, c domain.Customer) (uint, error) {
	return m.InsertFunc(ctx, c)
}

func (m *mockRepository) FindByID(ctx context.Context, id uint) (*domain.Customer, error) {
	return m.FindByIDFunc(ctx, id)
}

func (m *mockRepository) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return m.FindByEmailFunc(ctx, email)
}

func (m *mockRepository) UpdateProfile(ctx context.Context, c domain.Customer) error {
	return m.UpdateProfileFunc(ctx, c)
}

func newTestCustomerService(repo Repository) *CustomerService {
	svc := NewCustomerService(repo, zap.NewNop())
	svc.bcryptCost = bcrypt.MinCost
	return svc
}

func strPtr(s string) *string {
	return &s
}

func TestRegister_HashesPassword(t *testing.T) {
	var stored domain.Customer
	repo := &mockRepository{
		InsertFunc: func(ctx context.Context, c domain.Customer) (uint, error) {
			stored = c
			return 5, nil
		},
	}
	svc := newTestCustomerService(repo)

	c, err := svc.Register(context.Background(), RegisterInput{
		Name:       "Hana",
		Birthdate:  "1990-03-14",
		PostalCode: "6211",
		Email:      " Hana@Example.com ",
		Password:   "margherita",
	})
	require.NoError(t, err)

	assert.Equal(t, uint(5), c.ID)
	assert.Equal(t, "hana@example.com", stored.Email)
	assert.NotEqual(t, "margherita", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("margherita")))
	require.NotNil(t, stored.Birthdate)
	assert.Equal(t, 14, stored.Birthdate.Day())
}

func TestRegister_ValidationDetails(t *testing.T) {
	svc := newTestCustomerService(&mockRepository{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Birthdate: "14/03/1990",
		Email:     "not-an-email",
		Password:  "short",
	})

	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok)
	fields := map[string]bool{}
	for _, d := range ve.Details {
		fields[d.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["postalCode"])
	assert.True(t, fields["email"])
	assert.True(t, fields["password"])
	assert.True(t, fields["birthdate"])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := &mockRepository{
		InsertFunc: func(ctx context.Context, c domain.Customer) (uint, error) {
			return 0, apperrors.NewConflictError("email is already registered")
		},
	}
	svc := newTestCustomerService(repo)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name: "Ivo", PostalCode: "6211", Email: "ivo@example.com", Password: "quattro-formaggi",
	})
	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)
}

func TestAuthenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pepperoni"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &mockRepository{
		FindByEmailFunc: func(ctx context.Context, email string) (*domain.Customer, error) {
			if email != "jo@example.com" {
				return nil, apperrors.NewNotFoundError("customer not found")
			}
			return &domain.Customer{ID: 3, Email: email, PasswordHash: string(hash)}, nil
		},
	}
	svc := newTestCustomerService(repo)

	c, err := svc.Authenticate(context.Background(), "JO@example.com", "pepperoni")
	require.NoError(t, err)
	assert.Equal(t, uint(3), c.ID)

	_, err = svc.Authenticate(context.Background(), "jo@example.com", "hawaii")
	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "pepperoni")
	_, ok = apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestUpdateInfo_OnlyWhitelistedFields(t *testing.T) {
	original := &domain.Customer{
		ID:                 9,
		Name:               "Kai",
		PostalCode:         "6211",
		Email:              "kai@example.com",
		TotalPizzasOrdered: 12,
	}
	var updated domain.Customer
	repo := &mockRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.Customer, error) {
			cp := *original
			return &cp, nil
		},
		UpdateProfileFunc: func(ctx context.Context, c domain.Customer) error {
			updated = c
			return nil
		},
	}
	svc := newTestCustomerService(repo)

	c, err := svc.UpdateInfo(context.Background(), 9, UpdateInput{
		PostalCode: strPtr(" 6229 "),
		Phone:      strPtr("0612345678"),
	})
	require.NoError(t, err)

	assert.Equal(t, "6229", c.PostalCode)
	assert.Equal(t, "0612345678", updated.Phone)
	assert.Equal(t, "Kai", updated.Name)
	assert.Equal(t, 12, updated.TotalPizzasOrdered)
}

func TestUpdateInfo_InvalidEmail(t *testing.T) {
	repo := &mockRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.Customer, error) {
			return &domain.Customer{ID: id, Name: "Lea", PostalCode: "6211", Email: "lea@example.com"}, nil
		},
		UpdateProfileFunc: func(ctx context.Context, c domain.Customer) error {
			t.Fatal("UpdateProfile should not be called")
			return nil
		},
	}
	svc := newTestCustomerService(repo)

	_, err := svc.UpdateInfo(context.Background(), 1, UpdateInput{Email: strPtr("lea-at-example")})
	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
}
