package inmemdb

import (
	"sync"

	"github.com/kelasku/kelasku/core/assignment"
	"github.com/kelasku/kelasku/core/user"
)

type (
	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	assignmentTable struct {
		mutex sync.RWMutex
		table map[string]*assignment.Assignment
	}

	// DB is an in-memory store used by tests and local tinkering.
	DB struct {
		user       *userTable
		assignment *assignmentTable
	}
)

func NewDB() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		assignment: &assignmentTable{table: make(map[string]*assignment.Assignment)},
	}
}
