package mockapi

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"academic-portal/internal/rbac"

	"golang.org/x/crypto/bcrypt"
)

var ErrBadCredentials = errors.New("mockapi: invalid username or password")

// Account is a backend user. ID is numeric on the wire.
type Account struct {
	ID          string
	Username    string
	DisplayName string
	Role        rbac.Role
	Department  string

	hash []byte
}

// User is the login payload's "user" object.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Department  string `json:"department,omitempty"`
}

func (a Account) User() User {
	id, _ := strconv.ParseInt(a.ID, 10, 64)
	return User{
		ID:          id,
		Username:    a.Username,
		DisplayName: a.DisplayName,
		Role:        a.Role.String(),
		Department:  a.Department,
	}
}

// Directory is an in-memory user table.
type Directory struct {
	mu     sync.RWMutex
	cost   int
	byName map[string]*Account
	byID   map[string]*Account
	nextID int64
}

func NewDirectory(cost int) *Directory {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Directory{
		cost:   cost,
		byName: make(map[string]*Account),
		byID:   make(map[string]*Account),
	}
}

// Add stores a with a hash of password and assigns the next id.
// Roles are not validated here so tests can seed accounts the dashboard must
// refuse.
func (d *Directory) Add(a Account, password string) (Account, error) {
	a.Username = strings.TrimSpace(a.Username)
	if a.Username == "" || password == "" {
		return Account{}, errors.New("mockapi: username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return Account{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byName[a.Username]; ok {
		return Account{}, errors.New("mockapi: username taken")
	}
	d.nextID++
	a.ID = strconv.FormatInt(d.nextID, 10)
	a.hash = hash
	d.byName[a.Username] = &a
	d.byID[a.ID] = &a
	return a, nil
}

func (d *Directory) Authenticate(username, password string) (Account, error) {
	d.mu.RLock()
	a, ok := d.byName[strings.TrimSpace(username)]
	d.mu.RUnlock()
	if !ok {
		return Account{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return Account{}, ErrBadCredentials
	}
	return *a, nil
}

func (d *Directory) ByID(id string) (Account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.byID[id]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// demoAccounts are the well-known local logins; never used in production.
var demoAccounts = []struct {
	account  Account
	password string
}{
	{Account{Username: "faculty", DisplayName: "Demo Faculty", Role: rbac.RoleFaculty, Department: "CSE"}, "faculty123"},
	{Account{Username: "hod", DisplayName: "Demo HOD", Role: rbac.RoleHOD, Department: "CSE"}, "hod123"},
	{Account{Username: "principal", DisplayName: "Demo Principal", Role: rbac.RolePrincipal}, "principal123"},
	{Account{Username: "admin", DisplayName: "Demo Admin", Role: rbac.RoleAdmin}, "admin123"},
}

// DemoDirectory returns a directory seeded with the demo logins.
func DemoDirectory(cost int) (*Directory, error) {
	d := NewDirectory(cost)
	for _, da := range demoAccounts {
		if _, err := d.Add(da.account, da.password); err != nil {
			return nil, err
		}
	}
	return d, nil
}
