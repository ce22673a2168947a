package inmemdb

import (
	"sync"

	"github.com/trezcool/credeval/core/scale"
	"github.com/trezcool/credeval/core/student"
)

type (
	DB struct {
		scale   *scaleTable
		student *studentTable
	}

	scaleTable struct {
		sync.RWMutex
		table map[string]*scale.GradingScale
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}
)

func Open() *DB {
	return &DB{
		scale:   &scaleTable{table: make(map[string]*scale.GradingScale)},
		student: &studentTable{table: make(map[string]*student.Student)},
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.scale.Lock()
	db.scale.table = make(map[string]*scale.GradingScale)
	db.scale.Unlock()

	db.student.Lock()
	db.student.table = make(map[string]*student.Student)
	db.student.Unlock()
}
