package app

import (
	"context"
	"errors"
	"strings"

	"patorama/pkg/auth"
	"patorama/pkg/authz"
	"patorama/pkg/domain"
	"patorama/pkg/store"
)

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token     string            `json:"token"`
	ExpiresAt int64             `json:"expires_at"`
	User      domain.PublicUser `json:"user"`
}

// Login verifies credentials and issues a session token. Unknown emails,
// inactive users and wrong passwords all fail the same way.
func (a *App) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return LoginResult{}, validationError("Email and password are required")
	}
	u, ok, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, internal("Login failed", err)
	}
	if !ok || u.Status != domain.StatusActive || !auth.CheckPassword(password, u.PasswordHash) {
		return LoginResult{}, &Error{Kind: ErrInvalidCredentials, Msg: ErrInvalidCredentials.Error()}
	}
	token, expiresAt, err := a.sessions.NewSession(u)
	if err != nil {
		return LoginResult{}, internal("Login failed", err)
	}
	return LoginResult{Token: token, ExpiresAt: expiresAt.Unix(), User: u.Public()}, nil
}

// Authenticate resolves a bearer token to an active user.
func (a *App) Authenticate(ctx context.Context, token string) (domain.User, error) {
	if strings.TrimSpace(token) == "" {
		return domain.User{}, &Error{Kind: ErrUnauthenticated, Msg: "Access token required"}
	}
	sess, err := a.sessions.ResolveSession(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrInvalidSession) {
			return domain.User{}, &Error{Kind: ErrUnauthenticated, Msg: "Invalid or expired token", Cause: err}
		}
		return domain.User{}, internal("Authentication failed", err)
	}
	u, ok, err := a.store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return domain.User{}, internal("Authentication failed", err)
	}
	if !ok || u.Status != domain.StatusActive {
		return domain.User{}, &Error{Kind: ErrUnauthenticated, Msg: "Invalid or inactive user"}
	}
	return u, nil
}

// Logout revokes the token. Invalid tokens are ignored.
func (a *App) Logout(ctx context.Context, token string) error {
	if err := a.sessions.DeleteSession(ctx, token); err != nil {
		return internal("Logout failed", err)
	}
	return nil
}

// Me returns the session projection of the authenticated user.
func (a *App) Me(actor domain.User) domain.SessionUser {
	return actor.Session()
}

// CreateUserInput carries the fields accepted when an admin adds a user.
type CreateUserInput struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     domain.UserRole `json:"role"`
}

// ListUsers returns every user ordered by name.
func (a *App) ListUsers(ctx context.Context, actor domain.User) ([]domain.User, error) {
	if err := a.authorize(actor, authz.ManageUsers); err != nil {
		return nil, err
	}
	users, err := a.store.ListUsers(ctx)
	if err != nil {
		return nil, internal("Failed to fetch users", err)
	}
	return users, nil
}

// CreateUser adds an active user with a freshly hashed password.
func (a *App) CreateUser(ctx context.Context, actor domain.User, in CreateUserInput) (domain.User, error) {
	if err := a.authorize(actor, authz.ManageUsers); err != nil {
		return domain.User{}, err
	}
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case name == "":
		return domain.User{}, validationError("Name is required")
	case !validEmail(email):
		return domain.User{}, validationError("Valid email is required")
	case !in.Role.Valid():
		return domain.User{}, validationError("Invalid role")
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return domain.User{}, validationError("%s", err.Error())
	}
	return a.createUser(ctx, name, email, in.Password, in.Role)
}

func (a *App) createUser(ctx context.Context, name, email, password string, role domain.UserRole) (domain.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, internal("Failed to create user", err)
	}
	u, err := a.store.CreateUser(ctx, domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.StatusActive,
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return domain.User{}, conflict("Email already exists", err)
		}
		return domain.User{}, internal("Failed to create user", err)
	}
	return u, nil
}

// BootstrapAdmin creates the first super_admin when the user table is empty.
// It reports whether a user was created.
func (a *App) BootstrapAdmin(ctx context.Context, name, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, nil
	}
	count, err := a.store.UserCount(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if !validEmail(email) {
		return false, validationError("bootstrap admin email is invalid")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return false, validationError("bootstrap admin password: %s", err.Error())
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}
	if _, err := a.createUser(ctx, strings.TrimSpace(name), email, password, domain.RoleSuperAdmin); err != nil {
		return false, err
	}
	logger(ctx).Info("bootstrap admin created", "email", email)
	return true, nil
}

// DashboardStats returns the headline counters.
func (a *App) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	stats, err := a.store.DashboardStats(ctx)
	if err != nil {
		return domain.DashboardStats{}, internal("Failed to fetch dashboard stats", err)
	}
	return stats, nil
}
